package agents

import (
	"context"
	"errors"
	"time"

	"github.com/tradecouncil/tradecouncil/internal/dataflows"
	"github.com/tradecouncil/tradecouncil/internal/gateway"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

func analystKind(role models.AnalystRole) dataflows.Kind {
	switch role {
	case models.AnalystMarket:
		return dataflows.KindMarket
	case models.AnalystSocial:
		return dataflows.KindSocial
	case models.AnalystNews:
		return dataflows.KindNews
	default:
		return dataflows.KindFundamentals
	}
}

// RunAnalyst produces one role's report. An unavailable input document
// degrades the role to a no-data report (nil error); gateway failures
// surface so the caller can fail the session.
func (r *Runner) RunAnalyst(ctx context.Context, settings models.Settings, role models.AnalystRole) (*models.AnalystReport, error) {
	doc, err := r.feed.Fetch(ctx, settings.Symbol, settings.TradeDate, analystKind(role))
	if err != nil {
		// The feed folds every upstream failure into ErrDataUnavailable,
		// including aborted fetches; distinguish cancellation here so a
		// cancelled session never finishes as "degraded".
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &gateway.Error{Kind: gateway.KindCanceled, Role: role.String(), Err: ctxErr}
		}
		if errors.Is(err, dataflows.ErrDataUnavailable) {
			return models.NoDataReport(role, settings.Symbol, settings.TradeDate), nil
		}
		return nil, gateway.Wrap(gateway.KindDataUnavailable, role.String(), err)
	}

	msgs, err := formatPrompt(ctx, "analysts/"+role.String(), map[string]any{
		"symbol":     settings.Symbol,
		"trade_date": settings.TradeDate,
		"document":   doc.Text,
	})
	if err != nil {
		return nil, err
	}

	text, retries, err := r.complete(ctx, role.String(), gateway.TierQuick, msgs, r.hasSignalToken, repairSignal)
	if err != nil {
		return nil, err
	}

	signal, _ := r.signals.ExtractSignal(text)
	return &models.AnalystReport{
		Role:        role,
		Text:        text,
		Signal:      signal,
		Retries:     retries,
		GeneratedAt: time.Now(),
	}, nil
}
