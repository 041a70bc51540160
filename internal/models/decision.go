package models

import "time"

// Action is the terminal trading action.
type Action int

const (
	ActionHold Action = iota
	ActionBuy
	ActionSell
)

func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "buy"
	case ActionSell:
		return "sell"
	default:
		return "hold"
	}
}

// Decision is the terminal artifact of a session, finalized exactly once by
// the synthesis stage. It always references both consensus memos.
type Decision struct {
	SessionID   string     `json:"session_id"`
	Symbol      string     `json:"symbol"`
	TradeDate   string     `json:"trade_date"`
	Action      Action     `json:"action"`
	Rationale   string     `json:"rationale"`
	TraderPlan  string     `json:"trader_plan"`
	Research    *Consensus `json:"research_consensus"`
	Risk        *Consensus `json:"risk_consensus"`
	Revised     bool       `json:"revised"` // portfolio manager requested the one bounded revision
	FinalizedAt time.Time  `json:"finalized_at"`
}

// Failure names the stage and role(s) responsible for an aborted session.
type Failure struct {
	Stage   Stage    `json:"stage"`
	Roles   []string `json:"roles"`
	Kind    string   `json:"kind"`
	Retries int      `json:"retries"`
	Err     error    `json:"-"`
}

func (f *Failure) Error() string {
	msg := "session failed at " + f.Stage.String()
	if len(f.Roles) > 0 {
		msg += " (" + joinRoles(f.Roles) + ")"
	}
	msg += ": " + f.Kind
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.Err }

func joinRoles(roles []string) string {
	out := ""
	for i, r := range roles {
		if i > 0 {
			out += ", "
		}
		out += r
	}
	return out
}

// PastCase is a retrieved memory of a prior session used as few-shot context.
type PastCase struct {
	Symbol         string    `json:"symbol"`
	TradeDate      string    `json:"trade_date"`
	Situation      string    `json:"situation"`
	Recommendation string    `json:"recommendation"`
	Returns        float64   `json:"returns"`
	RecordedAt     time.Time `json:"recorded_at"`
}
