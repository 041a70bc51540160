package models

import "time"

// Signal is the compact directional read extracted from an analyst report or
// a judge memo. SignalNoData marks a report degraded by an unavailable feed.
type Signal int

const (
	SignalNeutral Signal = iota
	SignalBullish
	SignalBearish
	SignalNoData
)

func (s Signal) String() string {
	switch s {
	case SignalBullish:
		return "bullish"
	case SignalBearish:
		return "bearish"
	case SignalNoData:
		return "no_data"
	default:
		return "neutral"
	}
}

// AnalystReport is produced exactly once per role per session and is
// immutable once accepted.
type AnalystReport struct {
	Role        AnalystRole `json:"role"`
	Text        string      `json:"text"`
	Signal      Signal      `json:"signal"`
	Degraded    bool        `json:"degraded"`
	Retries     int         `json:"retries"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// NoDataReport builds the degraded report recorded when the data feed cannot
// supply an analyst's input document.
func NoDataReport(role AnalystRole, symbol, tradeDate string) *AnalystReport {
	return &AnalystReport{
		Role:        role,
		Text:        "No input data available for " + symbol + " on " + tradeDate + ". The " + role.DisplayName() + " abstains from this session.",
		Signal:      SignalNoData,
		Degraded:    true,
		GeneratedAt: time.Now(),
	}
}
