package graph

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tradecouncil/tradecouncil/config"
	"github.com/tradecouncil/tradecouncil/internal/agents"
	"github.com/tradecouncil/tradecouncil/internal/dataflows"
	"github.com/tradecouncil/tradecouncil/internal/gateway"
	"github.com/tradecouncil/tradecouncil/internal/memory"
	"github.com/tradecouncil/tradecouncil/internal/models"
	"github.com/tradecouncil/tradecouncil/internal/storage"
)

// TradingGraph wires the full stack (gateway, data feed, memory, recorder)
// and runs sessions against it. It is the entry point the CLI uses.
type TradingGraph struct {
	cfg      config.Config
	gw       gateway.ModelGateway
	feed     dataflows.DataFeed
	store    *memory.Store
	recorder *storage.Recorder
}

func NewTradingGraph(ctx context.Context, cfg config.Config) (*TradingGraph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	gw, err := gateway.NewOpenAIGateway(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init model gateway: %w", err)
	}

	store, err := memory.Open(cfg.MemoryDBPath)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}

	return &TradingGraph{
		cfg:      cfg,
		gw:       gw,
		feed:     dataflows.NewCompositeFeed(cfg),
		store:    store,
		recorder: storage.NewRecorder(cfg.ResultsDir),
	}, nil
}

func (g *TradingGraph) Close() error {
	return g.store.Close()
}

func (g *TradingGraph) retryConfig() gateway.RetryConfig {
	retry := gateway.DefaultRetryConfig()
	if g.cfg.MaxRetries > 0 {
		retry.MaxAttempts = g.cfg.MaxRetries
	}
	return retry
}

// Propagate runs one full session for a symbol and trade date. The session is
// persisted whatever the outcome; the returned error, when non-nil, is the
// session's *models.Failure.
func (g *TradingGraph) Propagate(ctx context.Context, symbol, tradeDate string) (*models.Session, *models.Decision, error) {
	settings := models.Settings{
		Symbol:               dataflows.NormalizeSymbol(symbol),
		TradeDate:            tradeDate,
		MaxDebateRounds:      g.cfg.MaxDebateRounds,
		MaxRiskDiscussRounds: g.cfg.MaxRiskDiscussRounds,
		QuickThinkLLM:        g.cfg.QuickThinkLLM,
		DeepThinkLLM:         g.cfg.DeepThinkLLM,
		MemoryLookbackK:      g.cfg.MemoryLookbackK,
	}

	runner := agents.NewRunner(g.gw, g.retryConfig(), g.feed)
	orch, err := NewOrchestrator(settings, runner, WithMemory(g.store), WithRecorder(g.recorder))
	if err != nil {
		return nil, nil, err
	}

	decision, runErr := orch.Run(ctx)
	sess := orch.Session()

	// Persist regardless of outcome; use a fresh context so a cancelled run
	// is still recorded.
	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.store.SaveSession(saveCtx, sess); err != nil {
		log.Printf("save session %s: %v", sess.ID, err)
	}

	return sess, decision, runErr
}

// ReflectAndRemember records the realized outcome of a finished session as a
// past case for future retrieval.
func (g *TradingGraph) ReflectAndRemember(ctx context.Context, sessionID string, positionReturns float64) error {
	return g.store.Reflect(ctx, sessionID, positionReturns, "")
}

// History lists recent sessions, newest first.
func (g *TradingGraph) History(ctx context.Context, limit int) ([]memory.HistoryEntry, error) {
	return g.store.ListSessions(ctx, limit)
}
