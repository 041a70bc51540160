// Package graph runs the debate pipeline: concurrent analysts behind a
// barrier, then the research debate, the risk debate, and the synthesis
// stage, each driven strictly in sequence. The orchestrator owns the session
// and is the only writer of its collections once the analyst barrier passes.
package graph

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tradecouncil/tradecouncil/internal/agents"
	"github.com/tradecouncil/tradecouncil/internal/gateway"
	"github.com/tradecouncil/tradecouncil/internal/memory"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

// State is the orchestrator's lifecycle position.
type State int

const (
	StateInit State = iota
	StateAnalystsRunning
	StateResearchDebate
	StateRiskDebate
	StateSynthesizing
	StateFinalized
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAnalystsRunning:
		return "analysts_running"
	case StateResearchDebate:
		return "research_debate"
	case StateRiskDebate:
		return "risk_debate"
	case StateSynthesizing:
		return "synthesizing"
	case StateFinalized:
		return "finalized"
	case StateFailed:
		return "failed"
	default:
		return "init"
	}
}

// ArtifactRecorder persists per-stage artifacts. Recording is best effort:
// a write failure is logged, never fatal to the session.
type ArtifactRecorder interface {
	RecordReports(sess *models.Session) error
	RecordDebate(sess *models.Session, transcript *models.DebateTranscript, consensus *models.Consensus) error
	RecordDecision(sess *models.Session) error
}

// memoryRetrieveTimeout bounds the memory suspension point the way the
// gateway timeout bounds model calls; a wedged store degrades to an empty
// case list instead of blocking the session.
const memoryRetrieveTimeout = 5 * time.Second

// Orchestrator drives one session from Init to Finalized or Failed. It is
// single use: Run may be called exactly once.
type Orchestrator struct {
	settings models.Settings
	runner   *agents.Runner
	memory   memory.Retriever
	recorder ArtifactRecorder

	memoryTimeout time.Duration

	state State
	sess  *models.Session
}

type Option func(*Orchestrator)

// WithMemory injects the past-case retriever. Retrieval failures degrade to
// an empty case list.
func WithMemory(m memory.Retriever) Option {
	return func(o *Orchestrator) { o.memory = m }
}

// WithRecorder injects the per-stage artifact writer.
func WithRecorder(r ArtifactRecorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

func NewOrchestrator(settings models.Settings, runner *agents.Runner, opts ...Option) (*Orchestrator, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session settings: %w", err)
	}
	o := &Orchestrator{
		settings:      settings,
		runner:        runner,
		memoryTimeout: memoryRetrieveTimeout,
		state:         StateInit,
		sess:          models.NewSession(settings),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

func (o *Orchestrator) State() State { return o.state }

func (o *Orchestrator) Session() *models.Session { return o.sess }

// Run executes the full pipeline. On success the session is Finalized and the
// decision returned; on any unrecoverable error the session is Failed with a
// Failure record and the error returned is that *models.Failure.
func (o *Orchestrator) Run(ctx context.Context) (*models.Decision, error) {
	if o.state != StateInit {
		return nil, fmt.Errorf("session %s already run", o.sess.ID)
	}

	o.sess.Status = models.StatusRunning
	o.sess.StartedAt = time.Now()

	o.retrieveMemory(ctx)

	o.state = StateAnalystsRunning
	if err := o.runAnalysts(ctx); err != nil {
		return nil, err
	}

	o.state = StateResearchDebate
	if err := o.runResearchDebate(ctx); err != nil {
		return nil, err
	}

	o.state = StateRiskDebate
	if err := o.runRiskDebate(ctx); err != nil {
		return nil, err
	}

	o.state = StateSynthesizing
	decision, err := o.runSynthesis(ctx)
	if err != nil {
		return nil, err
	}

	o.sess.Decision = decision
	o.sess.Status = models.StatusFinalized
	o.sess.EndedAt = time.Now()
	o.state = StateFinalized
	o.record(func() error { return o.recorder.RecordDecision(o.sess) })

	return decision, nil
}

// retrieveMemory loads past cases as read-only context. Best effort.
func (o *Orchestrator) retrieveMemory(ctx context.Context) {
	if o.memory == nil || o.settings.MemoryLookbackK <= 0 {
		return
	}
	retrieveCtx, cancel := context.WithTimeout(ctx, o.memoryTimeout)
	defer cancel()
	cases, err := o.memory.Retrieve(retrieveCtx, o.settings.Symbol, o.settings.TradeDate, o.settings.MemoryLookbackK)
	if err != nil {
		log.Printf("memory retrieval failed, continuing without past cases: %v", err)
		return
	}
	o.sess.PastCases = cases
}

// runAnalysts fans the four analysts out concurrently. Each goroutine owns
// its disjoint slot; the barrier is the WaitGroup. A gateway failure in any
// analyst fails the session naming that role; data unavailability degrades a
// role, and only all four degrading fails the session.
func (o *Orchestrator) runAnalysts(ctx context.Context) error {
	var wg sync.WaitGroup
	reports := make([]*models.AnalystReport, len(models.AllAnalystRoles))
	errs := make([]error, len(models.AllAnalystRoles))

	for i, role := range models.AllAnalystRoles {
		wg.Add(1)
		go func(slot int, role models.AnalystRole) {
			defer wg.Done()
			reports[slot], errs[slot] = o.runner.RunAnalyst(ctx, o.settings, role)
		}(i, role)
	}
	wg.Wait()

	var failedRoles []string
	var firstErr error
	retries := 0
	for i, role := range models.AllAnalystRoles {
		if errs[i] != nil {
			failedRoles = append(failedRoles, role.String())
			if firstErr == nil {
				firstErr = errs[i]
			}
		}
	}
	if firstErr != nil {
		return o.fail(models.StageAnalysts, failedRoles, retries, firstErr)
	}

	degraded := 0
	for i := range reports {
		if err := o.sess.SetReport(reports[i]); err != nil {
			return o.fail(models.StageAnalysts, []string{reports[i].Role.String()}, 0, err)
		}
		retries += reports[i].Retries
		if reports[i].Degraded {
			degraded++
		}
	}
	if degraded == len(models.AllAnalystRoles) {
		roles := make([]string, 0, len(models.AllAnalystRoles))
		for _, role := range models.AllAnalystRoles {
			roles = append(roles, role.String())
		}
		return o.fail(models.StageAnalysts, roles, retries,
			&gateway.Error{Kind: gateway.KindDataUnavailable, Err: fmt.Errorf("no analyst input data available")})
	}

	o.record(func() error { return o.recorder.RecordReports(o.sess) })
	return nil
}

// runResearchDebate runs exactly MaxDebateRounds rounds, bull then bear, and
// then the judge. A turn is recorded only after its gateway call succeeds, so
// a cancelled in-flight turn never appears in the transcript.
func (o *Orchestrator) runResearchDebate(ctx context.Context) error {
	order := []models.ResearchStance{models.StanceBull, models.StanceBear}

	for round := 1; round <= o.settings.MaxDebateRounds; round++ {
		for _, stance := range order {
			text, retries, err := o.runner.ResearchTurn(ctx, o.sess, stance)
			if err != nil {
				return o.fail(models.StageResearchDebate, []string{stance.String()}, retries, err)
			}

			opponent := models.StanceBear
			if stance == models.StanceBear {
				opponent = models.StanceBull
			}
			var refs []int
			if idx := o.sess.Research.LatestBy(opponent.String()); idx >= 0 {
				refs = []int{idx}
			}

			if _, err := o.sess.Research.Append(models.DebateTurn{
				Stage:      models.StageResearchDebate,
				Round:      round,
				Speaker:    stance.String(),
				Text:       text,
				References: refs,
				Timestamp:  time.Now(),
			}); err != nil {
				return o.fail(models.StageResearchDebate, []string{stance.String()}, retries, err)
			}
		}
	}

	consensus, retries, err := o.runner.ResearchJudge(ctx, o.sess)
	if err != nil {
		return o.fail(models.StageResearchDebate, []string{"research_manager"}, retries, err)
	}
	o.sess.ResearchConsensus = consensus
	o.record(func() error { return o.recorder.RecordDebate(o.sess, &o.sess.Research, consensus) })
	return nil
}

// runRiskDebate runs exactly MaxRiskDiscussRounds rounds in the fixed
// aggressive, conservative, neutral order, then the judge. Each turn
// references the other stances' latest turns.
func (o *Orchestrator) runRiskDebate(ctx context.Context) error {
	for round := 1; round <= o.settings.MaxRiskDiscussRounds; round++ {
		for _, stance := range models.AllRiskStances {
			text, retries, err := o.runner.RiskTurn(ctx, o.sess, stance)
			if err != nil {
				return o.fail(models.StageRiskDebate, []string{stance.String()}, retries, err)
			}

			var refs []int
			for _, other := range models.AllRiskStances {
				if other == stance {
					continue
				}
				if idx := o.sess.Risk.LatestBy(other.String()); idx >= 0 {
					refs = append(refs, idx)
				}
			}

			if _, err := o.sess.Risk.Append(models.DebateTurn{
				Stage:      models.StageRiskDebate,
				Round:      round,
				Speaker:    stance.String(),
				Text:       text,
				References: refs,
				Timestamp:  time.Now(),
			}); err != nil {
				return o.fail(models.StageRiskDebate, []string{stance.String()}, retries, err)
			}
		}
	}

	consensus, retries, err := o.runner.RiskJudge(ctx, o.sess)
	if err != nil {
		return o.fail(models.StageRiskDebate, []string{"risk_judge"}, retries, err)
	}
	o.sess.RiskConsensus = consensus
	o.record(func() error { return o.recorder.RecordDebate(o.sess, &o.sess.Risk, consensus) })
	return nil
}

// runSynthesis drafts the plan, has the portfolio manager review it, and
// allows at most one revision cycle before the decision is finalized.
func (o *Orchestrator) runSynthesis(ctx context.Context) (*models.Decision, error) {
	plan, retries, err := o.runner.TraderDraft(ctx, o.sess, "")
	if err != nil {
		return nil, o.fail(models.StageSynthesis, []string{"trader"}, retries, err)
	}
	o.sess.TraderPlan = plan

	review, reviewRetries, err := o.runner.PortfolioReview(ctx, o.sess, plan)
	if err != nil {
		return nil, o.fail(models.StageSynthesis, []string{"portfolio_manager"}, reviewRetries, err)
	}

	revised := false
	if review.Revise {
		revised = true
		plan, retries, err = o.runner.TraderDraft(ctx, o.sess, review.Text)
		if err != nil {
			return nil, o.fail(models.StageSynthesis, []string{"trader"}, retries, err)
		}
		o.sess.TraderPlan = plan

		review, reviewRetries, err = o.runner.PortfolioReview(ctx, o.sess, plan)
		if err != nil {
			return nil, o.fail(models.StageSynthesis, []string{"portfolio_manager"}, reviewRetries, err)
		}
	}

	action := review.Action
	rationale := review.Text
	if review.Revise {
		// The single revision is spent. The reviewed plan stands with the
		// trader's own proposal as the final action.
		action, _ = o.runner.Signals().ExtractAction(plan)
	}

	return &models.Decision{
		SessionID:   o.sess.ID,
		Symbol:      o.settings.Symbol,
		TradeDate:   o.settings.TradeDate,
		Action:      action,
		Rationale:   rationale,
		TraderPlan:  plan,
		Research:    o.sess.ResearchConsensus,
		Risk:        o.sess.RiskConsensus,
		Revised:     revised,
		FinalizedAt: time.Now(),
	}, nil
}

// fail moves the session to Failed with a Failure record and returns it.
func (o *Orchestrator) fail(stage models.Stage, roles []string, retries int, err error) error {
	failure := &models.Failure{
		Stage:   stage,
		Roles:   roles,
		Kind:    gateway.KindOf(err).String(),
		Retries: retries,
		Err:     err,
	}
	o.sess.Failure = failure
	o.sess.Status = models.StatusFailed
	o.sess.EndedAt = time.Now()
	o.state = StateFailed
	o.record(func() error { return o.recorder.RecordDecision(o.sess) })
	return failure
}

func (o *Orchestrator) record(write func() error) {
	if o.recorder == nil {
		return
	}
	if err := write(); err != nil {
		log.Printf("artifact write failed: %v", err)
	}
}
