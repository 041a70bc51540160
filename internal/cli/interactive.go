package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"

	"github.com/tradecouncil/tradecouncil/config"
)

var tickerRe = regexp.MustCompile(`^[A-Z0-9.-]+$`)

// runInteractive is the default mode: prompt for a symbol, date, and round
// budgets, run the session, and offer to go again.
func runInteractive(cfg *config.Config) error {
	displayBanner()

	for {
		symbol, err := promptTicker()
		if err != nil {
			return err
		}

		date, err := promptTradeDate()
		if err != nil {
			return err
		}

		runCfg := *cfg
		runCfg.MaxDebateRounds, runCfg.MaxRiskDiscussRounds, err = promptRounds(cfg.MaxDebateRounds, cfg.MaxRiskDiscussRounds)
		if err != nil {
			return err
		}

		if err := runAnalyze(runCfg, symbol, date); err != nil {
			displayError(err)
		}

		again := false
		if err := survey.AskOne(&survey.Confirm{Message: "Analyze another symbol?", Default: true}, &again); err != nil {
			return err
		}
		if !again {
			return nil
		}
	}
}

func promptTicker() (string, error) {
	var ticker string
	prompt := &survey.Input{
		Message: "Stock ticker symbol (e.g. NVDA, AAPL):",
	}
	err := survey.AskOne(prompt, &ticker, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(strings.ToUpper(val.(string)))
		if str == "" {
			return fmt.Errorf("ticker symbol cannot be empty")
		}
		if len(str) > 10 {
			return fmt.Errorf("ticker symbol too long (max 10 characters)")
		}
		if !tickerRe.MatchString(str) {
			return fmt.Errorf("invalid ticker format (letters, numbers, dots, and hyphens only)")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.ToUpper(ticker)), nil
}

func promptTradeDate() (string, error) {
	var dateStr string
	prompt := &survey.Input{
		Message: "Trade date (YYYY-MM-DD):",
		Default: time.Now().Format("2006-01-02"),
	}
	err := survey.AskOne(prompt, &dateStr, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(val.(string))
		parsed, err := time.Parse("2006-01-02", str)
		if err != nil {
			return fmt.Errorf("invalid date format, use YYYY-MM-DD")
		}
		if parsed.After(time.Now().AddDate(0, 0, 1)) {
			return fmt.Errorf("trade date cannot be in the future")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(dateStr), nil
}

func promptRounds(defaultDebate, defaultRisk int) (int, int, error) {
	askInt := func(message string, def int) (int, error) {
		var answer string
		prompt := &survey.Input{Message: message, Default: strconv.Itoa(def)}
		err := survey.AskOne(prompt, &answer, survey.WithValidator(func(val interface{}) error {
			n, err := strconv.Atoi(strings.TrimSpace(val.(string)))
			if err != nil || n < 1 || n > 10 {
				return fmt.Errorf("enter a number between 1 and 10")
			}
			return nil
		}))
		if err != nil {
			return 0, err
		}
		return strconv.Atoi(strings.TrimSpace(answer))
	}

	debate, err := askInt("Research debate rounds:", defaultDebate)
	if err != nil {
		return 0, 0, err
	}
	risk, err := askInt("Risk discussion rounds:", defaultRisk)
	if err != nil {
		return 0, 0, err
	}
	return debate, risk, nil
}
