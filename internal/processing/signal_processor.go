// Package processing extracts machine-readable signals from free-form model
// output: directional signals from analyst reports and judge memos, and the
// terminal buy/sell/hold action from synthesis text.
package processing

import (
	"regexp"
	"strings"

	"github.com/tradecouncil/tradecouncil/internal/models"
)

// Explicit tokens the prompts instruct the model to end with. Extraction
// prefers these and only falls back to pattern scoring when absent.
var (
	signalTokenRe = regexp.MustCompile(`(?i)SIGNAL\s*:\s*\**\s*(BULLISH|BEARISH|NEUTRAL)`)
	actionTokenRe = regexp.MustCompile(`(?i)(?:FINAL\s+TRANSACTION\s+PROPOSAL|ACTION)\s*:?\s*\**\s*(BUY|SELL|HOLD)`)
	reviseTokenRe = regexp.MustCompile(`(?im)^\s*\**\s*REVISE\s*\**\s*[:\-]`)
)

// SignalProcessor scores analysis text against directional vocabularies.
type SignalProcessor struct {
	buyPatterns  []*regexp.Regexp
	sellPatterns []*regexp.Regexp
	holdPatterns []*regexp.Regexp
}

func NewSignalProcessor() *SignalProcessor {
	return &SignalProcessor{
		buyPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(buy|long|bullish|upside|accumulate|undervalued|oversold)\b`),
			regexp.MustCompile(`(?i)\b(strong buy|buy recommendation|growth potential)\b`),
		},
		sellPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(sell|short|bearish|downside|divest|overvalued|overbought)\b`),
			regexp.MustCompile(`(?i)\b(strong sell|sell recommendation|avoid)\b`),
		},
		holdPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(hold|maintain|neutral|wait|sideways)\b`),
			regexp.MustCompile(`(?i)\b(no action|stay put|keep position)\b`),
		},
	}
}

// ExtractSignal reads the directional signal from analyst or judge text.
// The boolean reports whether an explicit token was found; callers treat a
// false return as a shape-validation failure.
func (sp *SignalProcessor) ExtractSignal(text string) (models.Signal, bool) {
	if m := signalTokenRe.FindStringSubmatch(text); len(m) > 1 {
		switch strings.ToUpper(m[1]) {
		case "BULLISH":
			return models.SignalBullish, true
		case "BEARISH":
			return models.SignalBearish, true
		default:
			return models.SignalNeutral, true
		}
	}

	buy, sell, hold := sp.scores(text)
	switch {
	case buy > sell && buy > hold:
		return models.SignalBullish, false
	case sell > buy && sell > hold:
		return models.SignalBearish, false
	default:
		return models.SignalNeutral, false
	}
}

// ExtractAction reads the terminal action from trader or portfolio-manager
// text. The boolean reports whether an explicit proposal token was present.
func (sp *SignalProcessor) ExtractAction(text string) (models.Action, bool) {
	if m := actionTokenRe.FindStringSubmatch(text); len(m) > 1 {
		switch strings.ToUpper(m[1]) {
		case "BUY":
			return models.ActionBuy, true
		case "SELL":
			return models.ActionSell, true
		default:
			return models.ActionHold, true
		}
	}

	buy, sell, hold := sp.scores(text)
	switch {
	case buy > sell && buy > hold:
		return models.ActionBuy, false
	case sell > buy && sell > hold:
		return models.ActionSell, false
	default:
		return models.ActionHold, false
	}
}

// RevisionRequested reports whether a portfolio-manager review asks the
// trader for the one bounded revision instead of accepting the draft.
func (sp *SignalProcessor) RevisionRequested(text string) bool {
	return reviseTokenRe.MatchString(text)
}

func (sp *SignalProcessor) scores(text string) (buy, sell, hold int) {
	lowered := strings.ToLower(text)
	for _, pattern := range sp.buyPatterns {
		buy += len(pattern.FindAllString(lowered, -1))
	}
	for _, pattern := range sp.sellPatterns {
		sell += len(pattern.FindAllString(lowered, -1))
	}
	for _, pattern := range sp.holdPatterns {
		hold += len(pattern.FindAllString(lowered, -1))
	}
	return buy, sell, hold
}

// Confidence estimates how strongly the text supports the action, as the
// density of action-consistent vocabulary. Bounded to [0.1, 1.0].
func (sp *SignalProcessor) Confidence(text string, action models.Action) float64 {
	totalWords := len(strings.Fields(text))
	if totalWords == 0 {
		return 0.5
	}

	var relevant []*regexp.Regexp
	switch action {
	case models.ActionBuy:
		relevant = sp.buyPatterns
	case models.ActionSell:
		relevant = sp.sellPatterns
	default:
		relevant = sp.holdPatterns
	}

	matchCount := 0
	lowered := strings.ToLower(text)
	for _, pattern := range relevant {
		matchCount += len(pattern.FindAllString(lowered, -1))
	}

	confidence := float64(matchCount) / float64(totalWords) * 10
	if confidence > 1.0 {
		confidence = 1.0
	}
	if confidence < 0.1 {
		confidence = 0.1
	}
	return confidence
}

// ExtractReasoning pulls up to three action-consistent sentences for a
// compact rationale summary.
func (sp *SignalProcessor) ExtractReasoning(text string, action models.Action) string {
	actionWords := map[models.Action][]string{
		models.ActionBuy:  {"buy", "bullish", "growth", "opportunity", "undervalued"},
		models.ActionSell: {"sell", "bearish", "risk", "decline", "overvalued"},
		models.ActionHold: {"hold", "neutral", "wait", "maintain", "uncertain"},
	}

	words := actionWords[action]
	var relevant []string
	for _, sentence := range strings.Split(text, ".") {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) < 10 {
			continue
		}
		for _, word := range words {
			if strings.Contains(strings.ToLower(sentence), word) {
				relevant = append(relevant, sentence)
				break
			}
		}
		if len(relevant) >= 3 {
			break
		}
	}

	if len(relevant) == 0 {
		return "Decision based on the combined analyst, research, and risk assessments."
	}
	return strings.Join(relevant, ". ")
}
