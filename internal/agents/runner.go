// Package agents implements the stage runners: thin adapters that assemble a
// role prompt, invoke the model gateway at the right thinking tier, validate
// the output shape, and retry with a repair prompt when validation fails.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/tradecouncil/tradecouncil/internal/dataflows"
	"github.com/tradecouncil/tradecouncil/internal/gateway"
	"github.com/tradecouncil/tradecouncil/internal/models"
	"github.com/tradecouncil/tradecouncil/internal/processing"
)

// Runner drives every role through the shared gateway. One Runner serves a
// whole session; it holds no per-call state.
type Runner struct {
	gw      gateway.ModelGateway
	retry   gateway.RetryConfig
	feed    dataflows.DataFeed
	signals *processing.SignalProcessor
}

func NewRunner(gw gateway.ModelGateway, retry gateway.RetryConfig, feed dataflows.DataFeed) *Runner {
	return &Runner{
		gw:      gw,
		retry:   retry,
		feed:    feed,
		signals: processing.NewSignalProcessor(),
	}
}

// Signals exposes the shared signal processor for consumers that post-process
// runner output (rationale extraction, confidence).
func (r *Runner) Signals() *processing.SignalProcessor { return r.signals }

// complete invokes the gateway with bounded backoff, then validates the
// output shape. A validation failure earns exactly one repair attempt: the
// invalid completion plus repairMsg are appended and the gateway is asked
// again. A second invalid response surfaces as KindInvalidResponse.
func (r *Runner) complete(ctx context.Context, role string, tier gateway.Tier,
	messages []*schema.Message, valid func(string) bool, repairMsg string) (string, int, error) {

	call := func(msgs []*schema.Message) (string, int, error) {
		var text string
		retries, err := gateway.WithRetry(ctx, r.retry, func() error {
			out, err := r.gw.Complete(ctx, role, tier, msgs)
			if err != nil {
				return gateway.Wrap(gateway.KindOf(err), role, err)
			}
			text = out
			return nil
		})
		return text, retries, err
	}

	text, retries, err := call(messages)
	if err != nil {
		return "", retries, err
	}
	if valid == nil || valid(text) {
		return text, retries, nil
	}

	repair := make([]*schema.Message, 0, len(messages)+2)
	repair = append(repair, messages...)
	repair = append(repair, schema.AssistantMessage(text, nil), schema.UserMessage(repairMsg))

	text, more, err := call(repair)
	retries += more
	if err != nil {
		return "", retries, err
	}
	if valid(text) {
		return text, retries, nil
	}
	return "", retries, gateway.InvalidResponse(role, "output failed shape validation after repair prompt")
}

func nonEmpty(text string) bool {
	return strings.TrimSpace(text) != ""
}

func (r *Runner) hasSignalToken(text string) bool {
	_, explicit := r.signals.ExtractSignal(text)
	return explicit
}

func (r *Runner) hasActionToken(text string) bool {
	_, explicit := r.signals.ExtractAction(text)
	return explicit
}

const (
	repairSignal = "Your previous answer did not end with the required closing line. Restate your conclusion and finish with exactly one line of the form SIGNAL: BULLISH, SIGNAL: BEARISH, or SIGNAL: NEUTRAL."
	repairAction = "Your previous answer did not end with the required closing line. Restate your conclusion and finish with exactly one line of the form FINAL TRANSACTION PROPOSAL: **BUY**, FINAL TRANSACTION PROPOSAL: **SELL**, or FINAL TRANSACTION PROPOSAL: **HOLD**."
	repairArgue  = "Your previous answer was empty. Make your argument in a few focused paragraphs."
)

// renderPastCases formats retrieved memories as few-shot context.
func renderPastCases(cases []models.PastCase) string {
	if len(cases) == 0 {
		return "No past cases on record."
	}
	var sb strings.Builder
	for i, c := range cases {
		fmt.Fprintf(&sb, "%d. [%s on %s, realized return %.2f%%] %s\n\n",
			i+1, c.Symbol, c.TradeDate, c.Returns, strings.TrimSpace(c.Recommendation))
	}
	return strings.TrimSpace(sb.String())
}
