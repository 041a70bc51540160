package models

import (
	"fmt"
	"strings"
	"time"
)

// DebateTurn is one speaker turn in a debate stage. Turns are append-only;
// References holds the indices (into the owning transcript) of the turns this
// turn responds to, all of which were recorded strictly earlier.
type DebateTurn struct {
	Stage      Stage     `json:"stage"`
	Round      int       `json:"round"` // 1-indexed
	Speaker    string    `json:"speaker"`
	Text       string    `json:"text"`
	References []int     `json:"references"`
	Timestamp  time.Time `json:"timestamp"`
}

// DebateTranscript is the ordered turn sequence for one stage. The zero value
// is usable; set Stage and SpeakersPerRound before the first Append.
type DebateTranscript struct {
	Stage            Stage        `json:"stage"`
	SpeakersPerRound int          `json:"speakers_per_round"`
	Turns            []DebateTurn `json:"turns"`
}

// Append records a turn and returns its index. Reference indices must point
// at already-recorded turns; a violating turn is rejected so ordering can
// never be broken retroactively.
func (t *DebateTranscript) Append(turn DebateTurn) (int, error) {
	idx := len(t.Turns)
	for _, ref := range turn.References {
		if ref < 0 || ref >= idx {
			return 0, fmt.Errorf("turn by %s references turn %d which is not recorded yet", turn.Speaker, ref)
		}
	}
	if turn.Round < 1 {
		return 0, fmt.Errorf("turn by %s has invalid round %d", turn.Speaker, turn.Round)
	}
	if last := t.lastTurn(); last != nil && turn.Round < last.Round {
		return 0, fmt.Errorf("turn by %s would move round backwards (%d after %d)", turn.Speaker, turn.Round, last.Round)
	}
	t.Turns = append(t.Turns, turn)
	return idx, nil
}

func (t *DebateTranscript) lastTurn() *DebateTurn {
	if len(t.Turns) == 0 {
		return nil
	}
	return &t.Turns[len(t.Turns)-1]
}

// LatestBy returns the index of the most recent turn by the given speaker,
// or -1 when the speaker has not spoken yet.
func (t *DebateTranscript) LatestBy(speaker string) int {
	for i := len(t.Turns) - 1; i >= 0; i-- {
		if t.Turns[i].Speaker == speaker {
			return i
		}
	}
	return -1
}

// CompletedRounds reports how many full rounds have been spoken.
func (t *DebateTranscript) CompletedRounds() int {
	if t.SpeakersPerRound <= 0 {
		return 0
	}
	return len(t.Turns) / t.SpeakersPerRound
}

// History renders the transcript for prompt construction, one labeled
// paragraph per turn in recorded order.
func (t *DebateTranscript) History() string {
	var sb strings.Builder
	for _, turn := range t.Turns {
		sb.WriteString(turn.Speaker)
		sb.WriteString(": ")
		sb.WriteString(strings.TrimSpace(turn.Text))
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String())
}

// Consensus is the judged output of a completed debate stage.
type Consensus struct {
	Stage    Stage     `json:"stage"`
	Memo     string    `json:"memo"`
	Lean     Signal    `json:"lean"`   // research stage
	Hint     Action    `json:"hint"`   // risk stage: risk-adjusted action hint
	Rounds   int       `json:"rounds"` // completed rounds backing the memo
	JudgedAt time.Time `json:"judged_at"`
}
