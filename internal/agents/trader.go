package agents

import (
	"context"

	"github.com/tradecouncil/tradecouncil/internal/gateway"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

// TraderDraft produces the concrete trade plan from both consensus memos.
// A non-empty revisionNote means the portfolio manager rejected the previous
// draft; the note carries the objections the redraft must address.
func (r *Runner) TraderDraft(ctx context.Context, sess *models.Session, revisionNote string) (string, int, error) {
	const role = "trader"

	researchMemo, riskMemo := "", ""
	if sess.ResearchConsensus != nil {
		researchMemo = sess.ResearchConsensus.Memo
	}
	if sess.RiskConsensus != nil {
		riskMemo = sess.RiskConsensus.Memo
	}

	promptPath := "trader/trader"
	vars := map[string]any{
		"symbol":        sess.Settings.Symbol,
		"trade_date":    sess.Settings.TradeDate,
		"reports":       sess.CombinedReports(),
		"research_memo": researchMemo,
		"risk_memo":     riskMemo,
		"past_cases":    renderPastCases(sess.PastCases),
	}
	if revisionNote != "" {
		promptPath = "trader/trader_revision"
		vars["previous_plan"] = sess.TraderPlan
		vars["revision_note"] = revisionNote
	}

	msgs, err := formatPrompt(ctx, promptPath, vars)
	if err != nil {
		return "", 0, err
	}

	return r.complete(ctx, role, gateway.TierQuick, msgs, r.hasActionToken, repairAction)
}

// Review is the portfolio manager's verdict on a trader draft.
type Review struct {
	Text   string
	Action models.Action
	Revise bool
}

// PortfolioReview has the portfolio manager accept the draft (fixing the
// final action) or request the one bounded revision. The int is the
// transient-retry count spent on the call, reported on both paths.
func (r *Runner) PortfolioReview(ctx context.Context, sess *models.Session, plan string) (*Review, int, error) {
	const role = "portfolio_manager"

	researchMemo, riskMemo := "", ""
	if sess.ResearchConsensus != nil {
		researchMemo = sess.ResearchConsensus.Memo
	}
	if sess.RiskConsensus != nil {
		riskMemo = sess.RiskConsensus.Memo
	}

	msgs, err := formatPrompt(ctx, "trader/portfolio_manager", map[string]any{
		"symbol":        sess.Settings.Symbol,
		"trade_date":    sess.Settings.TradeDate,
		"plan":          plan,
		"research_memo": researchMemo,
		"risk_memo":     riskMemo,
	})
	if err != nil {
		return nil, 0, err
	}

	// A review is well formed when it either fixes the final action or
	// explicitly requests a revision.
	valid := func(text string) bool {
		return r.hasActionToken(text) || r.signals.RevisionRequested(text)
	}

	text, retries, err := r.complete(ctx, role, gateway.TierDeep, msgs, valid, repairAction)
	if err != nil {
		return nil, retries, err
	}

	if r.signals.RevisionRequested(text) && !r.hasActionToken(text) {
		return &Review{Text: text, Revise: true}, retries, nil
	}
	action, _ := r.signals.ExtractAction(text)
	return &Review{Text: text, Action: action}, retries, nil
}
