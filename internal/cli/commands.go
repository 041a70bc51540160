// Package cli is the user-facing surface: cobra commands, survey-driven
// interactive mode, and lipgloss rendering of session results.
package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tradecouncil/tradecouncil/config"
	"github.com/tradecouncil/tradecouncil/internal/dataflows"
	"github.com/tradecouncil/tradecouncil/internal/graph"
)

const version = "1.0.0"

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "tradecouncil",
		Short: "TradeCouncil - multi-agent trading debate engine",
		Long: `TradeCouncil runs a panel of LLM agents through a structured debate:
four analysts report concurrently, bull and bear researchers argue, three
risk stances weigh in, and a trader/portfolio-manager pair synthesizes a
buy/sell/hold decision with its full rationale.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.EnsureDirectories()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(&cfg)
		},
	}

	rootCmd.AddCommand(newAnalyzeCmd(&cfg))
	rootCmd.AddCommand(newHistoryCmd(&cfg))
	rootCmd.AddCommand(newConfigCmd(&cfg))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newAnalyzeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze SYMBOL",
		Short: "Run a full debate session for a stock symbol",
		Long: `Run one end-to-end debate session for a ticker symbol and trade date.
Example: tradecouncil analyze NVDA --date 2024-05-10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}
			if rounds, _ := cmd.Flags().GetInt("debate-rounds"); rounds > 0 {
				cfg.MaxDebateRounds = rounds
			}
			if rounds, _ := cmd.Flags().GetInt("risk-rounds"); rounds > 0 {
				cfg.MaxRiskDiscussRounds = rounds
			}
			return runAnalyze(*cfg, args[0], date)
		},
	}

	cmd.Flags().String("date", "", "trade date in YYYY-MM-DD format (today if omitted)")
	cmd.Flags().Int("debate-rounds", 0, "research debate rounds (overrides config)")
	cmd.Flags().Int("risk-rounds", 0, "risk discussion rounds (overrides config)")

	return cmd
}

func newHistoryCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past sessions and their decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			ctx := context.Background()
			g, err := graph.NewTradingGraph(ctx, *cfg)
			if err != nil {
				return err
			}
			defer g.Close()

			entries, err := g.History(ctx, limit)
			if err != nil {
				return err
			}
			displayHistory(entries)
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum sessions to list")
	return cmd
}

func newConfigCmd(cfg *config.Config) *cobra.Command {
	var configFile string

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	configCmd.PersistentFlags().StringVar(&configFile, "file", "", "path to the persisted config.json (user config dir if omitted)")

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the persisted configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openConfigManager(cfg, configFile)
			if err != nil {
				return err
			}
			shown := m.Get()
			displayConfig(&shown)
			fmt.Println()
			fmt.Println(dimStyle.Render("Persisted at " + m.Path()))
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set JSON",
		Short: "Update and persist configuration fields from a JSON document",
		Long: `Overlay a JSON document on the persisted configuration and write it back.
Example: tradecouncil config set '{"max_debate_rounds": 2}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openConfigManager(cfg, configFile)
			if err != nil {
				return err
			}
			if err := m.UpdateFromJSON(args[0]); err != nil {
				return err
			}
			fmt.Println("Configuration updated at " + m.Path())
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			var warnings []string
			if cfg.APIKey == "" {
				warnings = append(warnings, "no backend API key configured (set BACKEND_API_KEY or OPENAI_API_KEY)")
			}
			if cfg.FinnhubAPIKey == "" {
				warnings = append(warnings, "no Finnhub API key; the news analyst will degrade (set FINNHUB_API_KEY)")
			}
			displayValidation(warnings)
			return nil
		},
	})

	return configCmd
}

// openConfigManager loads the persisted config.json, creating it from the
// current configuration on first use.
func openConfigManager(cfg *config.Config, file string) (*config.Manager, error) {
	opts := []config.ManagerOption{config.WithInitialConfig(cfg)}
	if file != "" {
		opts = append(opts, config.WithConfigPath(file))
	}
	return config.NewManager(opts...)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("TradeCouncil v%s\n", version)
		},
	}
}

// runAnalyze executes one session with Ctrl-C cancellation wired through to
// every in-flight gateway call.
func runAnalyze(cfg config.Config, symbol, date string) error {
	if err := dataflows.ValidateSymbol(symbol); err != nil {
		return err
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, err := graph.NewTradingGraph(ctx, cfg)
	if err != nil {
		return err
	}
	defer g.Close()

	displayStarting(dataflows.NormalizeSymbol(symbol), date, cfg)

	sess, decision, err := g.Propagate(ctx, symbol, date)
	if err != nil {
		displayFailure(sess)
		return err
	}

	displayDecision(sess, decision, cfg.ResultsDir)
	return nil
}
