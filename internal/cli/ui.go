package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tradecouncil/tradecouncil/config"
	"github.com/tradecouncil/tradecouncil/internal/memory"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2)

	buyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#10B981"))

	sellStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#EF4444"))

	holdStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F59E0B"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#EF4444"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

func displayBanner() {
	fmt.Println(titleStyle.Render("TradeCouncil - multi-agent trading debate"))
	fmt.Println(dimStyle.Render("Analysts report, researchers debate, risk weighs in, the desk decides."))
	fmt.Println()
}

func displayStarting(symbol, date string, cfg config.Config) {
	header := fmt.Sprintf("Session: %s | %s | %d research round(s), %d risk round(s)",
		symbol, date, cfg.MaxDebateRounds, cfg.MaxRiskDiscussRounds)
	fmt.Println(headerStyle.Render(header))
	fmt.Println(dimStyle.Render("Running analysts concurrently, then the debates. Ctrl-C cancels cleanly."))
	fmt.Println()
}

func actionStyle(action models.Action) lipgloss.Style {
	switch action {
	case models.ActionBuy:
		return buyStyle
	case models.ActionSell:
		return sellStyle
	default:
		return holdStyle
	}
}

func displayDecision(sess *models.Session, decision *models.Decision, resultsDir string) {
	fmt.Println()
	fmt.Println(titleStyle.Render("DECISION"))
	fmt.Println()

	verdict := strings.ToUpper(decision.Action.String())
	if decision.Revised {
		verdict += "  (after one revision)"
	}
	fmt.Println(actionStyle(decision.Action).Render(fmt.Sprintf("%s %s on %s", verdict, decision.Symbol, decision.TradeDate)))
	fmt.Println()

	for _, report := range sess.Reports {
		if report == nil {
			continue
		}
		line := fmt.Sprintf("%-22s %s", report.Role.DisplayName(), report.Signal)
		if report.Degraded {
			line += "  (no data)"
		}
		fmt.Println(dimStyle.Render(line))
	}
	fmt.Println()

	if decision.Research != nil {
		fmt.Printf("Research lean: %s after %d round(s)\n", decision.Research.Lean, decision.Research.Rounds)
	}
	if decision.Risk != nil {
		fmt.Printf("Risk hint:     %s after %d round(s)\n", decision.Risk.Hint, decision.Risk.Rounds)
	}
	fmt.Println()

	fmt.Println("Rationale:")
	fmt.Println(indent(strings.TrimSpace(decision.Rationale), "  "))
	fmt.Println()
	fmt.Println(dimStyle.Render("Full transcripts written under " + resultsDir))
}

func displayFailure(sess *models.Session) {
	if sess == nil || sess.Failure == nil {
		return
	}
	f := sess.Failure
	fmt.Println()
	fmt.Println(errorStyle.Render(fmt.Sprintf("Session failed at the %s stage (%s)", f.Stage, f.Kind)))
	if len(f.Roles) > 0 {
		fmt.Println(dimStyle.Render("Roles: " + strings.Join(f.Roles, ", ")))
	}
	if f.Retries > 0 {
		fmt.Println(dimStyle.Render(fmt.Sprintf("Transient retries spent: %d", f.Retries)))
	}
}

func displayHistory(entries []memory.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Println(dimStyle.Render("No sessions recorded yet."))
		return
	}
	fmt.Println(titleStyle.Render("Session history"))
	fmt.Println()
	fmt.Printf("%-10s %-12s %-6s %-10s %s\n", "SYMBOL", "DATE", "ACTION", "STATUS", "FINISHED")
	for _, e := range entries {
		action := e.Action
		if action == "" {
			action = "-"
		}
		fmt.Printf("%-10s %-12s %-6s %-10s %s\n", e.Symbol, e.TradeDate, action, e.Status, e.FinishedAt)
	}
}

func displayConfig(cfg *config.Config) {
	fmt.Println(titleStyle.Render("Configuration"))
	fmt.Println()
	fmt.Printf("Results directory:     %s\n", cfg.ResultsDir)
	fmt.Printf("Data cache directory:  %s\n", cfg.DataCacheDir)
	fmt.Printf("Memory database:       %s\n", cfg.MemoryDBPath)
	fmt.Println()
	fmt.Printf("LLM provider:          %s\n", cfg.LLMProvider)
	fmt.Printf("Quick-think model:     %s\n", cfg.QuickThinkLLM)
	fmt.Printf("Deep-think model:      %s\n", cfg.DeepThinkLLM)
	fmt.Printf("Backend URL:           %s\n", cfg.BackendURL)
	fmt.Println()
	fmt.Printf("Research rounds:       %d\n", cfg.MaxDebateRounds)
	fmt.Printf("Risk rounds:           %d\n", cfg.MaxRiskDiscussRounds)
	fmt.Printf("Memory lookback:       %d\n", cfg.MemoryLookbackK)
	fmt.Printf("Gateway timeout:       %ds\n", cfg.GatewayTimeoutSecs)
	fmt.Printf("Gateway max retries:   %d\n", cfg.MaxRetries)
	fmt.Println()
	fmt.Printf("Backend API key:       %s\n", configured(cfg.APIKey != ""))
	fmt.Printf("Finnhub API key:       %s\n", configured(cfg.FinnhubAPIKey != ""))
	fmt.Printf("Cache enabled:         %t\n", cfg.CacheEnabled)
}

func displayValidation(warnings []string) {
	if len(warnings) == 0 {
		fmt.Println("Configuration is valid.")
		return
	}
	fmt.Printf("Configuration is valid, with %d warning(s):\n", len(warnings))
	for _, w := range warnings {
		fmt.Println(holdStyle.Render("  ! " + w))
	}
}

func displayError(err error) {
	fmt.Println(errorStyle.Render("Error: " + err.Error()))
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}
