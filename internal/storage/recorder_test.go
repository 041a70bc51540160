package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tradecouncil/tradecouncil/internal/models"
)

func testSession() *models.Session {
	sess := models.NewSession(models.Settings{
		Symbol:               "NVDA",
		TradeDate:            "2024-05-10",
		MaxDebateRounds:      1,
		MaxRiskDiscussRounds: 1,
	})
	for _, role := range models.AllAnalystRoles {
		sess.SetReport(&models.AnalystReport{
			Role:        role,
			Text:        "analysis from " + role.DisplayName(),
			Signal:      models.SignalBullish,
			GeneratedAt: time.Now(),
		})
	}
	return sess
}

func readArtifact(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "NVDA", "2024-05-10", name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func TestRecordReports(t *testing.T) {
	dir := t.TempDir()
	rec := NewRecorder(dir)
	sess := testSession()

	if err := rec.RecordReports(sess); err != nil {
		t.Fatalf("RecordReports: %v", err)
	}

	content := readArtifact(t, dir, "analyst_reports.md")
	for _, role := range models.AllAnalystRoles {
		if !strings.Contains(content, role.DisplayName()) {
			t.Errorf("artifact missing %s section", role.DisplayName())
		}
	}
}

func TestRecordDebate(t *testing.T) {
	dir := t.TempDir()
	rec := NewRecorder(dir)
	sess := testSession()

	sess.Research.Append(models.DebateTurn{
		Stage: models.StageResearchDebate, Round: 1,
		Speaker: models.StanceBull.String(), Text: "bull case", Timestamp: time.Now(),
	})
	sess.Research.Append(models.DebateTurn{
		Stage: models.StageResearchDebate, Round: 1,
		Speaker: models.StanceBear.String(), Text: "bear case", References: []int{0}, Timestamp: time.Now(),
	})
	consensus := &models.Consensus{
		Stage: models.StageResearchDebate, Memo: "bull wins", Lean: models.SignalBullish, Rounds: 1,
	}

	if err := rec.RecordDebate(sess, &sess.Research, consensus); err != nil {
		t.Fatalf("RecordDebate: %v", err)
	}

	content := readArtifact(t, dir, "research_debate.md")
	for _, want := range []string{"bull case", "bear case", "bull wins", "Lean: bullish"} {
		if !strings.Contains(content, want) {
			t.Errorf("artifact missing %q", want)
		}
	}
}

func TestRecordDecision(t *testing.T) {
	dir := t.TempDir()
	rec := NewRecorder(dir)
	sess := testSession()
	sess.Decision = &models.Decision{
		SessionID:  sess.ID,
		Symbol:     "NVDA",
		TradeDate:  "2024-05-10",
		Action:     models.ActionBuy,
		Rationale:  "strong momentum",
		TraderPlan: "scale in over three days",
	}

	if err := rec.RecordDecision(sess); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}

	content := readArtifact(t, dir, "decision.md")
	for _, want := range []string{"Action: BUY", "strong momentum", "scale in"} {
		if !strings.Contains(content, want) {
			t.Errorf("artifact missing %q", want)
		}
	}
}

func TestRecordDecisionFailure(t *testing.T) {
	dir := t.TempDir()
	rec := NewRecorder(dir)
	sess := testSession()
	sess.Failure = &models.Failure{
		Stage:   models.StageAnalysts,
		Roles:   []string{"market_analyst"},
		Kind:    "gateway_timeout",
		Retries: 3,
	}

	if err := rec.RecordDecision(sess); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}

	content := readArtifact(t, dir, "decision.md")
	for _, want := range []string{"Session failed", "gateway_timeout", "market_analyst"} {
		if !strings.Contains(content, want) {
			t.Errorf("artifact missing %q", want)
		}
	}
}
