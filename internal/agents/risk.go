package agents

import (
	"context"
	"time"

	"github.com/tradecouncil/tradecouncil/internal/gateway"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

// RiskTurn produces one risk analyst's contribution for the current round.
func (r *Runner) RiskTurn(ctx context.Context, sess *models.Session, stance models.RiskStance) (string, int, error) {
	researchMemo := ""
	if sess.ResearchConsensus != nil {
		researchMemo = sess.ResearchConsensus.Memo
	}

	msgs, err := formatPrompt(ctx, "risk/"+stance.String(), map[string]any{
		"symbol":        sess.Settings.Symbol,
		"trade_date":    sess.Settings.TradeDate,
		"reports":       sess.CombinedReports(),
		"research_memo": researchMemo,
		"history":       sess.Risk.History(),
	})
	if err != nil {
		return "", 0, err
	}

	return r.complete(ctx, stance.String(), gateway.TierQuick, msgs, nonEmpty, repairArgue)
}

// RiskJudge ends the risk debate with a consensus memo carrying a
// risk-adjusted action hint.
func (r *Runner) RiskJudge(ctx context.Context, sess *models.Session) (*models.Consensus, int, error) {
	const role = "risk_judge"

	researchMemo := ""
	if sess.ResearchConsensus != nil {
		researchMemo = sess.ResearchConsensus.Memo
	}

	msgs, err := formatPrompt(ctx, "risk/risk_judge", map[string]any{
		"symbol":        sess.Settings.Symbol,
		"trade_date":    sess.Settings.TradeDate,
		"reports":       sess.CombinedReports(),
		"research_memo": researchMemo,
		"history":       sess.Risk.History(),
	})
	if err != nil {
		return nil, 0, err
	}

	text, retries, err := r.complete(ctx, role, gateway.TierDeep, msgs, r.hasActionToken, repairAction)
	if err != nil {
		return nil, retries, err
	}

	hint, _ := r.signals.ExtractAction(text)
	return &models.Consensus{
		Stage:    models.StageRiskDebate,
		Memo:     text,
		Hint:     hint,
		Rounds:   sess.Risk.CompletedRounds(),
		JudgedAt: time.Now(),
	}, retries, nil
}
