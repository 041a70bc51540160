package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SessionStatus int

const (
	StatusPending SessionStatus = iota
	StatusRunning
	StatusFinalized
	StatusFailed
)

func (s SessionStatus) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusFinalized:
		return "finalized"
	case StatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Settings is the immutable per-run configuration handed to the orchestrator
// at session start.
type Settings struct {
	Symbol               string `json:"symbol"`
	TradeDate            string `json:"trade_date"` // YYYY-MM-DD
	MaxDebateRounds      int    `json:"max_debate_rounds"`
	MaxRiskDiscussRounds int    `json:"max_risk_discuss_rounds"`
	QuickThinkLLM        string `json:"quick_think_llm"`
	DeepThinkLLM         string `json:"deep_think_llm"`
	MemoryLookbackK      int    `json:"memory_lookback_k"`
}

func (s Settings) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if _, err := time.Parse("2006-01-02", s.TradeDate); err != nil {
		return fmt.Errorf("invalid trade date %q: %w", s.TradeDate, err)
	}
	if s.MaxDebateRounds < 1 {
		return fmt.Errorf("max debate rounds must be >= 1, got %d", s.MaxDebateRounds)
	}
	if s.MaxRiskDiscussRounds < 1 {
		return fmt.Errorf("max risk discuss rounds must be >= 1, got %d", s.MaxRiskDiscussRounds)
	}
	if s.MemoryLookbackK < 0 {
		return fmt.Errorf("memory lookback must be >= 0, got %d", s.MemoryLookbackK)
	}
	return nil
}

// Session owns every entity of one end-to-end run for a (symbol, date) pair.
// Entity collections are mutated only by the orchestrator's currently active
// stage; concurrent analyst runners each own their disjoint report slot.
type Session struct {
	ID       string   `json:"id"`
	Settings Settings `json:"settings"`

	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Status    SessionStatus `json:"status"`

	Reports [len(AllAnalystRoles)]*AnalystReport `json:"reports"`

	Research DebateTranscript `json:"research_transcript"`
	Risk     DebateTranscript `json:"risk_transcript"`

	ResearchConsensus *Consensus `json:"research_consensus"`
	RiskConsensus     *Consensus `json:"risk_consensus"`

	TraderPlan string    `json:"trader_plan"`
	Decision   *Decision `json:"decision"`
	Failure    *Failure  `json:"failure"`

	PastCases []PastCase `json:"past_cases"`
}

func NewSession(settings Settings) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Settings: settings,
		Status:   StatusPending,
		Research: DebateTranscript{
			Stage:            StageResearchDebate,
			SpeakersPerRound: 2,
		},
		Risk: DebateTranscript{
			Stage:            StageRiskDebate,
			SpeakersPerRound: len(AllRiskStances),
		},
	}
}

// Report returns the accepted report for a role, nil if not recorded yet.
func (s *Session) Report(role AnalystRole) *AnalystReport {
	return s.Reports[int(role)]
}

// SetReport records a role's report. Reports are immutable once accepted.
func (s *Session) SetReport(report *AnalystReport) error {
	slot := int(report.Role)
	if s.Reports[slot] != nil {
		return fmt.Errorf("report for %s already recorded", report.Role)
	}
	s.Reports[slot] = report
	return nil
}

// ReportsComplete reports whether every analyst slot is filled.
func (s *Session) ReportsComplete() bool {
	for _, r := range s.Reports {
		if r == nil {
			return false
		}
	}
	return true
}

// CombinedReports joins all analyst report texts for prompt construction,
// in role declaration order.
func (s *Session) CombinedReports() string {
	out := ""
	for _, r := range s.Reports {
		if r == nil {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += "## " + r.Role.DisplayName() + " Report\n\n" + r.Text
	}
	return out
}
