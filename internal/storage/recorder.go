// Package storage writes the human-readable session artifacts: one markdown
// file per pipeline stage plus the final decision, under
// <results dir>/<symbol>/<trade date>/.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tradecouncil/tradecouncil/internal/models"
)

// Recorder persists session artifacts as markdown.
type Recorder struct {
	resultsDir string
}

func NewRecorder(resultsDir string) *Recorder {
	return &Recorder{resultsDir: resultsDir}
}

func (r *Recorder) sessionDir(symbol, tradeDate string) string {
	return filepath.Join(r.resultsDir, symbol, tradeDate)
}

func writeMarkdown(dir, fileName, content string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create results dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RecordReports writes the analyst stage artifact.
func (r *Recorder) RecordReports(sess *models.Session) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Analyst Reports: %s (%s)\n\n", sess.Settings.Symbol, sess.Settings.TradeDate)
	for _, rep := range sess.Reports {
		if rep == nil {
			continue
		}
		fmt.Fprintf(&sb, "## %s\n\n", rep.Role.DisplayName())
		if rep.Degraded {
			sb.WriteString("_Degraded: input data unavailable._\n\n")
		}
		fmt.Fprintf(&sb, "Signal: %s\n\n%s\n\n", rep.Signal, strings.TrimSpace(rep.Text))
	}
	return writeMarkdown(r.sessionDir(sess.Settings.Symbol, sess.Settings.TradeDate), "analyst_reports.md", sb.String())
}

// RecordDebate writes one debate stage's transcript and consensus.
func (r *Recorder) RecordDebate(sess *models.Session, transcript *models.DebateTranscript, consensus *models.Consensus) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s: %s (%s)\n\n", stageTitle(transcript.Stage), sess.Settings.Symbol, sess.Settings.TradeDate)

	for _, turn := range transcript.Turns {
		fmt.Fprintf(&sb, "## Round %d: %s\n\n%s\n\n", turn.Round, turn.Speaker, strings.TrimSpace(turn.Text))
	}

	if consensus != nil {
		sb.WriteString("## Judge Consensus\n\n")
		switch transcript.Stage {
		case models.StageResearchDebate:
			fmt.Fprintf(&sb, "Lean: %s (%d rounds)\n\n", consensus.Lean, consensus.Rounds)
		case models.StageRiskDebate:
			fmt.Fprintf(&sb, "Action hint: %s (%d rounds)\n\n", consensus.Hint, consensus.Rounds)
		}
		sb.WriteString(strings.TrimSpace(consensus.Memo) + "\n")
	}

	return writeMarkdown(r.sessionDir(sess.Settings.Symbol, sess.Settings.TradeDate),
		transcript.Stage.String()+".md", sb.String())
}

// RecordDecision writes the terminal artifact, or the failure report when the
// session aborted.
func (r *Recorder) RecordDecision(sess *models.Session) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Decision: %s (%s)\n\n", sess.Settings.Symbol, sess.Settings.TradeDate)

	switch {
	case sess.Decision != nil:
		d := sess.Decision
		fmt.Fprintf(&sb, "**Action: %s**\n\n", strings.ToUpper(d.Action.String()))
		if d.Revised {
			sb.WriteString("_The portfolio manager requested one revision before approving._\n\n")
		}
		sb.WriteString("## Rationale\n\n" + strings.TrimSpace(d.Rationale) + "\n\n")
		sb.WriteString("## Trader Plan\n\n" + strings.TrimSpace(d.TraderPlan) + "\n")
	case sess.Failure != nil:
		fmt.Fprintf(&sb, "**Session failed** at %s stage.\n\n", sess.Failure.Stage)
		fmt.Fprintf(&sb, "- Kind: %s\n- Roles: %s\n- Retries: %d\n",
			sess.Failure.Kind, strings.Join(sess.Failure.Roles, ", "), sess.Failure.Retries)
		if sess.Failure.Err != nil {
			fmt.Fprintf(&sb, "- Error: %v\n", sess.Failure.Err)
		}
	default:
		sb.WriteString("Session ended without a decision or failure record.\n")
	}

	return writeMarkdown(r.sessionDir(sess.Settings.Symbol, sess.Settings.TradeDate), "decision.md", sb.String())
}

func stageTitle(stage models.Stage) string {
	switch stage {
	case models.StageResearchDebate:
		return "Research Debate"
	case models.StageRiskDebate:
		return "Risk Debate"
	default:
		return "Transcript"
	}
}
