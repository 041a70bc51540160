package agents

import (
	"context"
	"time"

	"github.com/tradecouncil/tradecouncil/internal/gateway"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

// ResearchTurn produces one researcher's argument for the current round. The
// returned text is not yet recorded; the orchestrator appends it only after
// the call succeeds.
func (r *Runner) ResearchTurn(ctx context.Context, sess *models.Session, stance models.ResearchStance) (string, int, error) {
	opponent := models.StanceBear
	if stance == models.StanceBear {
		opponent = models.StanceBull
	}

	opponentArgument := "The debate is just beginning; open with your strongest case."
	if idx := sess.Research.LatestBy(opponent.String()); idx >= 0 {
		opponentArgument = sess.Research.Turns[idx].Text
	}

	msgs, err := formatPrompt(ctx, "researchers/"+stance.String(), map[string]any{
		"symbol":            sess.Settings.Symbol,
		"trade_date":        sess.Settings.TradeDate,
		"reports":           sess.CombinedReports(),
		"history":           sess.Research.History(),
		"opponent_argument": opponentArgument,
		"past_cases":        renderPastCases(sess.PastCases),
	})
	if err != nil {
		return "", 0, err
	}

	return r.complete(ctx, stance.String(), gateway.TierQuick, msgs, nonEmpty, repairArgue)
}

// ResearchJudge ends the research debate: the research manager weighs the
// full transcript and emits the consensus memo with its directional lean.
func (r *Runner) ResearchJudge(ctx context.Context, sess *models.Session) (*models.Consensus, int, error) {
	const role = "research_manager"

	msgs, err := formatPrompt(ctx, "researchers/research_manager", map[string]any{
		"symbol":     sess.Settings.Symbol,
		"trade_date": sess.Settings.TradeDate,
		"reports":    sess.CombinedReports(),
		"history":    sess.Research.History(),
		"past_cases": renderPastCases(sess.PastCases),
	})
	if err != nil {
		return nil, 0, err
	}

	text, retries, err := r.complete(ctx, role, gateway.TierDeep, msgs, r.hasSignalToken, repairSignal)
	if err != nil {
		return nil, retries, err
	}

	lean, _ := r.signals.ExtractSignal(text)
	return &models.Consensus{
		Stage:    models.StageResearchDebate,
		Memo:     text,
		Lean:     lean,
		Rounds:   sess.Research.CompletedRounds(),
		JudgedAt: time.Now(),
	}, retries, nil
}
