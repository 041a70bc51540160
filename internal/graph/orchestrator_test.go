package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/tradecouncil/tradecouncil/internal/agents"
	"github.com/tradecouncil/tradecouncil/internal/dataflows"
	"github.com/tradecouncil/tradecouncil/internal/gateway"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

// roleGateway returns a fixed completion per role. Safe for the concurrent
// analyst fan-out.
type roleGateway struct {
	mu        sync.Mutex
	responses map[string]string
	errors    map[string]error
	calls     []string
	onCall    func(role string)
}

func (g *roleGateway) Complete(ctx context.Context, role string, tier gateway.Tier, messages []*schema.Message) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, role)
	onCall := g.onCall
	g.mu.Unlock()

	if onCall != nil {
		onCall(role)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err, ok := g.errors[role]; ok {
		return "", err
	}
	if resp, ok := g.responses[role]; ok {
		return resp, nil
	}
	return "", fmt.Errorf("no scripted response for role %s", role)
}

func (g *roleGateway) callCount(role string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c == role {
			n++
		}
	}
	return n
}

// happyGateway scripts a full successful session.
func happyGateway() *roleGateway {
	return &roleGateway{
		responses: map[string]string{
			"market_analyst":       "Uptrend intact.\n\nSIGNAL: BULLISH",
			"social_media_analyst": "Retail is euphoric.\n\nSIGNAL: BULLISH",
			"news_analyst":         "Earnings beat expectations.\n\nSIGNAL: BULLISH",
			"fundamentals_analyst": "Valuation is stretched.\n\nSIGNAL: BEARISH",
			"bull_researcher":      "Growth justifies the multiple.",
			"bear_researcher":      "Multiple compression risk is real.",
			"research_manager":     "The bull case is stronger on the evidence.\n\nSIGNAL: BULLISH",
			"risky_analyst":        "Size up; momentum pays.",
			"safe_analyst":         "Cap the position; respect the valuation risk.",
			"neutral_analyst":      "A half position balances both views.",
			"risk_judge":           "Take a measured long.\n\nFINAL TRANSACTION PROPOSAL: **BUY**",
			"trader":               "Enter over two days with a 5% stop.\n\nFINAL TRANSACTION PROPOSAL: **BUY**",
			"portfolio_manager":    "Plan is consistent with both memos. Approved.\n\nFINAL TRANSACTION PROPOSAL: **BUY**",
		},
	}
}

// kindFeed serves a canned document per kind, with optional per-kind errors.
type kindFeed struct {
	errs map[dataflows.Kind]error
}

func (f *kindFeed) Fetch(ctx context.Context, symbol, tradeDate string, kind dataflows.Kind) (*dataflows.Document, error) {
	if err, ok := f.errs[kind]; ok {
		return nil, err
	}
	return &dataflows.Document{
		Kind: kind, Symbol: symbol, TradeDate: tradeDate,
		Text: fmt.Sprintf("%s document for %s", kind, symbol), FetchedAt: time.Now(),
	}, nil
}

// listMemory returns a fixed case list.
type listMemory struct {
	cases []models.PastCase
	err   error
}

func (m *listMemory) Retrieve(ctx context.Context, symbol, date string, k int) ([]models.PastCase, error) {
	if m.err != nil {
		return nil, m.err
	}
	if k < len(m.cases) {
		return m.cases[:k], nil
	}
	return m.cases, nil
}

func fastRetry() gateway.RetryConfig {
	return gateway.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0}
}

func settingsFor(n, m int) models.Settings {
	return models.Settings{
		Symbol: "NVDA", TradeDate: "2024-05-10",
		MaxDebateRounds: n, MaxRiskDiscussRounds: m, MemoryLookbackK: 2,
	}
}

func newTestOrchestrator(t *testing.T, gw gateway.ModelGateway, feed dataflows.DataFeed, settings models.Settings, opts ...Option) *Orchestrator {
	t.Helper()
	runner := agents.NewRunner(gw, fastRetry(), feed)
	orch, err := NewOrchestrator(settings, runner, opts...)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return orch
}

func TestFullSessionFinalizes(t *testing.T) {
	gw := happyGateway()
	orch := newTestOrchestrator(t, gw, &kindFeed{}, settingsFor(1, 1))

	decision, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if orch.State() != StateFinalized {
		t.Errorf("state = %v, want finalized", orch.State())
	}

	sess := orch.Session()
	if sess.Status != models.StatusFinalized {
		t.Errorf("status = %v, want finalized", sess.Status)
	}
	if decision.Action != models.ActionBuy {
		t.Errorf("action = %v, want buy", decision.Action)
	}
	if decision.Research == nil || decision.Risk == nil {
		t.Errorf("decision must reference both consensus memos")
	}
	if decision.Symbol != "NVDA" || decision.TradeDate != "2024-05-10" {
		t.Errorf("decision identity wrong: %+v", decision)
	}
	if decision.Revised {
		t.Errorf("no revision was requested")
	}
	if !sess.ReportsComplete() {
		t.Errorf("all four reports should be recorded")
	}
}

func TestTranscriptLengthsMatchRoundBudgets(t *testing.T) {
	for _, tc := range []struct{ n, m int }{{1, 1}, {2, 1}, {3, 2}} {
		gw := happyGateway()
		orch := newTestOrchestrator(t, gw, &kindFeed{}, settingsFor(tc.n, tc.m))

		if _, err := orch.Run(context.Background()); err != nil {
			t.Fatalf("Run(N=%d,M=%d): %v", tc.n, tc.m, err)
		}

		sess := orch.Session()
		if got, want := len(sess.Research.Turns), 2*tc.n; got != want {
			t.Errorf("N=%d: research turns = %d, want %d", tc.n, got, want)
		}
		if got, want := len(sess.Risk.Turns), 3*tc.m; got != want {
			t.Errorf("M=%d: risk turns = %d, want %d", tc.m, got, want)
		}
		if sess.ResearchConsensus.Rounds != tc.n {
			t.Errorf("research consensus rounds = %d, want %d", sess.ResearchConsensus.Rounds, tc.n)
		}
		if sess.RiskConsensus.Rounds != tc.m {
			t.Errorf("risk consensus rounds = %d, want %d", sess.RiskConsensus.Rounds, tc.m)
		}
		if gw.callCount("research_manager") != 1 || gw.callCount("risk_judge") != 1 {
			t.Errorf("each judge must speak exactly once")
		}
	}
}

func TestTurnReferencesPointBackwards(t *testing.T) {
	orch := newTestOrchestrator(t, happyGateway(), &kindFeed{}, settingsFor(3, 2))
	if _, err := orch.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sess := orch.Session()
	for _, transcript := range []*models.DebateTranscript{&sess.Research, &sess.Risk} {
		for i, turn := range transcript.Turns {
			for _, ref := range turn.References {
				if ref < 0 || ref >= i {
					t.Errorf("turn %d (%s) references %d", i, turn.Speaker, ref)
				}
			}
		}
	}

	// After round 1, every debate turn responds to someone.
	for i, turn := range sess.Research.Turns {
		if i > 0 && len(turn.References) == 0 {
			t.Errorf("research turn %d (%s) has no references", i, turn.Speaker)
		}
	}
	for i, turn := range sess.Risk.Turns {
		if i > 0 && len(turn.References) == 0 {
			t.Errorf("risk turn %d (%s) has no references", i, turn.Speaker)
		}
	}
}

func TestSpeakingOrderIsFixed(t *testing.T) {
	orch := newTestOrchestrator(t, happyGateway(), &kindFeed{}, settingsFor(2, 2))
	if _, err := orch.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sess := orch.Session()
	for i, turn := range sess.Research.Turns {
		want := models.StanceBull.String()
		if i%2 == 1 {
			want = models.StanceBear.String()
		}
		if turn.Speaker != want {
			t.Errorf("research turn %d spoken by %s, want %s", i, turn.Speaker, want)
		}
		if turn.Round != i/2+1 {
			t.Errorf("research turn %d in round %d, want %d", i, turn.Round, i/2+1)
		}
	}
	for i, turn := range sess.Risk.Turns {
		want := models.AllRiskStances[i%3].String()
		if turn.Speaker != want {
			t.Errorf("risk turn %d spoken by %s, want %s", i, turn.Speaker, want)
		}
	}
}

func TestOneDegradedAnalystStillFinalizes(t *testing.T) {
	feed := &kindFeed{errs: map[dataflows.Kind]error{
		dataflows.KindNews: fmt.Errorf("%w: no key", dataflows.ErrDataUnavailable),
	}}
	gw := happyGateway()
	orch := newTestOrchestrator(t, gw, feed, settingsFor(1, 1))

	if _, err := orch.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sess := orch.Session()
	news := sess.Report(models.AnalystNews)
	if news == nil || !news.Degraded || news.Signal != models.SignalNoData {
		t.Errorf("news report should be degraded no-data, got %+v", news)
	}
	if gw.callCount("news_analyst") != 0 {
		t.Errorf("degraded analyst must not reach the gateway")
	}
	if sess.Status != models.StatusFinalized {
		t.Errorf("one degraded analyst must not fail the session")
	}
}

func TestAllAnalystsDegradedFailsListingAllRoles(t *testing.T) {
	errs := make(map[dataflows.Kind]error)
	for _, kind := range []dataflows.Kind{dataflows.KindMarket, dataflows.KindNews, dataflows.KindSocial, dataflows.KindFundamentals} {
		errs[kind] = fmt.Errorf("%w: everything down", dataflows.ErrDataUnavailable)
	}
	orch := newTestOrchestrator(t, happyGateway(), &kindFeed{errs: errs}, settingsFor(1, 1))

	_, err := orch.Run(context.Background())
	if err == nil {
		t.Fatalf("expected failure when all analysts degrade")
	}

	var failure *models.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error should be a *models.Failure, got %T", err)
	}
	if failure.Stage != models.StageAnalysts {
		t.Errorf("failure stage = %v, want analysts", failure.Stage)
	}
	if len(failure.Roles) != len(models.AllAnalystRoles) {
		t.Errorf("failure should list all %d roles, got %v", len(models.AllAnalystRoles), failure.Roles)
	}
	if failure.Kind != "data_unavailable" {
		t.Errorf("failure kind = %q", failure.Kind)
	}
	if orch.Session().Decision != nil {
		t.Errorf("failed session must not carry a decision")
	}
}

func TestGatewayAuthFailureFailsSession(t *testing.T) {
	gw := happyGateway()
	gw.errors = map[string]error{
		"bear_researcher": &gateway.Error{Kind: gateway.KindAuth, Err: errors.New("401")},
	}
	orch := newTestOrchestrator(t, gw, &kindFeed{}, settingsFor(2, 1))

	_, err := orch.Run(context.Background())
	if err == nil {
		t.Fatalf("expected failure")
	}

	var failure *models.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error should be a *models.Failure, got %T", err)
	}
	if failure.Stage != models.StageResearchDebate || failure.Kind != "gateway_auth_error" {
		t.Errorf("failure = %+v", failure)
	}
	if gw.callCount("bear_researcher") != 1 {
		t.Errorf("auth errors must not be retried")
	}

	sess := orch.Session()
	// The bull's completed turn stays; the failed bear turn is never recorded.
	if len(sess.Research.Turns) != 1 {
		t.Errorf("transcript has %d turns, want only the bull's", len(sess.Research.Turns))
	}
	if sess.Decision != nil || sess.ResearchConsensus != nil {
		t.Errorf("no consensus or decision may exist after a mid-debate failure")
	}
}

func TestCancellationMidDebateRecordsNoPartialTurn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	gw := happyGateway()
	gw.onCall = func(role string) {
		if role == models.StanceBear.String() {
			cancel()
		}
	}
	orch := newTestOrchestrator(t, gw, &kindFeed{}, settingsFor(1, 1))

	_, err := orch.Run(ctx)
	if err == nil {
		t.Fatalf("expected cancellation failure")
	}

	var failure *models.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error should be a *models.Failure, got %T", err)
	}
	if failure.Kind != "canceled" {
		t.Errorf("failure kind = %q, want canceled", failure.Kind)
	}

	sess := orch.Session()
	if len(sess.Research.Turns) != 1 {
		t.Errorf("cancelled turn must not be recorded; transcript has %d turns", len(sess.Research.Turns))
	}
	if sess.Status != models.StatusFailed {
		t.Errorf("status = %v, want failed", sess.Status)
	}
}

func TestSynthesisIsDeterministic(t *testing.T) {
	run := func() *models.Decision {
		orch := newTestOrchestrator(t, happyGateway(), &kindFeed{}, settingsFor(1, 1))
		decision, err := orch.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return decision
	}

	a, b := run(), run()
	if a.Action != b.Action {
		t.Errorf("same inputs produced different actions: %v vs %v", a.Action, b.Action)
	}
	if a.Rationale != b.Rationale {
		t.Errorf("same inputs produced different rationales")
	}
}

func TestPortfolioManagerRevisionCycle(t *testing.T) {
	// First review rejects, second accepts. Script via a wrapper gateway.
	base := happyGateway()
	reviews := 0
	wrapped := gatewayFunc(func(ctx context.Context, role string, tier gateway.Tier, messages []*schema.Message) (string, error) {
		if role == "portfolio_manager" {
			reviews++
			if reviews == 1 {
				return "REVISE: the plan ignores the risk memo's sizing guidance.", nil
			}
			return "Revision addresses the sizing concern.\n\nFINAL TRANSACTION PROPOSAL: **SELL**", nil
		}
		return base.Complete(ctx, role, tier, messages)
	})

	orch := newTestOrchestrator(t, wrapped, &kindFeed{}, settingsFor(1, 1))
	decision, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !decision.Revised {
		t.Errorf("decision should be marked revised")
	}
	if decision.Action != models.ActionSell {
		t.Errorf("action = %v, want the reviewing manager's sell", decision.Action)
	}
	if reviews != 2 {
		t.Errorf("portfolio manager reviewed %d times, want 2", reviews)
	}
	if base.callCount("trader") != 2 {
		t.Errorf("trader drafted %d times, want 2 (original + one revision)", base.callCount("trader"))
	}
}

func TestRevisionCycleIsBoundedToOne(t *testing.T) {
	gw := happyGateway()
	reviews := 0
	wrapped := gatewayFunc(func(ctx context.Context, role string, tier gateway.Tier, messages []*schema.Message) (string, error) {
		if role == "portfolio_manager" {
			reviews++
			return "REVISE: still not acceptable.", nil
		}
		return gw.Complete(ctx, role, tier, messages)
	})

	orch := newTestOrchestrator(t, wrapped, &kindFeed{}, settingsFor(1, 1))
	decision, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reviews != 2 {
		t.Errorf("portfolio manager reviewed %d times, want exactly 2", reviews)
	}
	// The single revision is spent; the trader's explicit proposal stands.
	if decision.Action != models.ActionBuy {
		t.Errorf("action = %v, want the trader's buy", decision.Action)
	}
	if !decision.Revised {
		t.Errorf("decision should be marked revised")
	}
}

// blockingMemory answers only when its context is cancelled.
type blockingMemory struct{}

func (m *blockingMemory) Retrieve(ctx context.Context, symbol, date string, k int) ([]models.PastCase, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestMemoryRetrievalIsTimeoutBounded(t *testing.T) {
	orch := newTestOrchestrator(t, happyGateway(), &kindFeed{}, settingsFor(1, 1),
		WithMemory(&blockingMemory{}))
	orch.memoryTimeout = 20 * time.Millisecond

	done := make(chan error, 1)
	go func() {
		_, err := orch.Run(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("a wedged store must degrade to no cases, not fail the session: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("session blocked on memory retrieval")
	}
	if len(orch.Session().PastCases) != 0 {
		t.Errorf("no cases should be loaded")
	}
	if orch.Session().Status != models.StatusFinalized {
		t.Errorf("status = %v, want finalized", orch.Session().Status)
	}
}

func TestPortfolioManagerFailureRecordsRetries(t *testing.T) {
	gw := happyGateway()
	gw.errors = map[string]error{
		"portfolio_manager": &gateway.Error{Kind: gateway.KindTimeout, Err: errors.New("deadline exceeded")},
	}
	orch := newTestOrchestrator(t, gw, &kindFeed{}, settingsFor(1, 1))

	_, err := orch.Run(context.Background())
	if err == nil {
		t.Fatalf("expected failure")
	}
	var failure *models.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error should be a *models.Failure, got %T", err)
	}
	if failure.Stage != models.StageSynthesis || len(failure.Roles) != 1 || failure.Roles[0] != "portfolio_manager" {
		t.Errorf("failure = %+v", failure)
	}
	if failure.Retries == 0 {
		t.Errorf("exhausted transient retries must be recorded in the failure")
	}
}

func TestMemoryRetrievalFailureIsNotFatal(t *testing.T) {
	orch := newTestOrchestrator(t, happyGateway(), &kindFeed{}, settingsFor(1, 1),
		WithMemory(&listMemory{err: errors.New("db locked")}))

	if _, err := orch.Run(context.Background()); err != nil {
		t.Fatalf("memory failure must not fail the session: %v", err)
	}
	if len(orch.Session().PastCases) != 0 {
		t.Errorf("no cases should be loaded")
	}
}

func TestMemoryCasesInjected(t *testing.T) {
	cases := []models.PastCase{
		{Symbol: "NVDA", TradeDate: "2024-04-01", Recommendation: "respect overbought signals", Returns: -3},
		{Symbol: "NVDA", TradeDate: "2024-03-01", Recommendation: "momentum persisted", Returns: 8},
		{Symbol: "NVDA", TradeDate: "2024-02-01", Recommendation: "earnings gap held", Returns: 5},
	}
	orch := newTestOrchestrator(t, happyGateway(), &kindFeed{}, settingsFor(1, 1),
		WithMemory(&listMemory{cases: cases}))

	if _, err := orch.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := len(orch.Session().PastCases); got != 2 {
		t.Errorf("lookback k=2 should load 2 cases, got %d", got)
	}
}

func TestRunIsSingleUse(t *testing.T) {
	orch := newTestOrchestrator(t, happyGateway(), &kindFeed{}, settingsFor(1, 1))
	if _, err := orch.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if _, err := orch.Run(context.Background()); err == nil {
		t.Fatalf("second Run must be rejected")
	}
}

// gatewayFunc adapts a function to the ModelGateway interface.
type gatewayFunc func(ctx context.Context, role string, tier gateway.Tier, messages []*schema.Message) (string, error)

func (f gatewayFunc) Complete(ctx context.Context, role string, tier gateway.Tier, messages []*schema.Message) (string, error) {
	return f(ctx, role, tier, messages)
}
