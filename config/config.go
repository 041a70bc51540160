package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ProjectDir   string `json:"project_dir"`
	ResultsDir   string `json:"results_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`
	MemoryDBPath string `json:"memory_db_path"`

	LLMProvider   string `json:"llm_provider"`
	DeepThinkLLM  string `json:"deep_think_llm"`
	QuickThinkLLM string `json:"quick_think_llm"`
	BackendURL    string `json:"backend_url"`
	APIKey        string `json:"-"`

	MaxDebateRounds      int `json:"max_debate_rounds"`
	MaxRiskDiscussRounds int `json:"max_risk_discuss_rounds"`
	MemoryLookbackK      int `json:"memory_lookback_k"`

	// Gateway call budget: per-call timeout and transient-failure retries.
	GatewayTimeoutSecs int `json:"gateway_timeout_secs"`
	MaxRetries         int `json:"max_retries"`

	OnlineTools  bool `json:"online_tools"`
	CacheEnabled bool `json:"cache_enabled"`
	Debug        bool `json:"debug"`

	// Data feed credentials
	FinnhubAPIKey   string `json:"-"`
	RedditUserAgent string `json:"reddit_user_agent"`
}

func DefaultConfig() Config {
	currentDir, _ := os.Getwd()
	cfg := *DefaultConfigWithRoot(currentDir)

	// Load environment variables from .env file, then apply overrides.
	_ = godotenv.Load()
	cfg.loadFromEnv()

	return cfg
}

func DefaultConfigWithRoot(root string) *Config {
	return &Config{
		ProjectDir:   root,
		ResultsDir:   filepath.Join(root, "results"),
		DataDir:      filepath.Join(root, "data"),
		DataCacheDir: filepath.Join(root, "data", "cache"),
		MemoryDBPath: filepath.Join(root, "data", "tradecouncil.db"),

		LLMProvider:   "openai",
		DeepThinkLLM:  "o4-mini",
		QuickThinkLLM: "gpt-4o-mini",
		BackendURL:    "https://api.openai.com/v1",

		MaxDebateRounds:      1,
		MaxRiskDiscussRounds: 1,
		MemoryLookbackK:      2,

		GatewayTimeoutSecs: 120,
		MaxRetries:         3,

		OnlineTools:  true,
		CacheEnabled: true,
		Debug:        false,

		RedditUserAgent: "TradeCouncil/1.0",
	}
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("RESULTS_DIR"); val != "" {
		c.ResultsDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}
	if val := os.Getenv("MEMORY_DB_PATH"); val != "" {
		c.MemoryDBPath = val
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = val
	}
	if val := os.Getenv("DEEP_THINK_LLM"); val != "" {
		c.DeepThinkLLM = val
	}
	if val := os.Getenv("QUICK_THINK_LLM"); val != "" {
		c.QuickThinkLLM = val
	}
	if val := os.Getenv("BACKEND_URL"); val != "" {
		c.BackendURL = val
	}
	if val := os.Getenv("BACKEND_API_KEY"); val != "" {
		c.APIKey = val
	} else if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.APIKey = val
	}

	if val := os.Getenv("MAX_DEBATE_ROUNDS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxDebateRounds = v
		}
	}
	if val := os.Getenv("MAX_RISK_DISCUSS_ROUNDS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxRiskDiscussRounds = v
		}
	}
	if val := os.Getenv("MEMORY_LOOKBACK_K"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MemoryLookbackK = v
		}
	}
	if val := os.Getenv("GATEWAY_TIMEOUT_SECS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.GatewayTimeoutSecs = v
		}
	}
	if val := os.Getenv("GATEWAY_MAX_RETRIES"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxRetries = v
		}
	}

	if val := os.Getenv("ONLINE_TOOLS"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.OnlineTools = enabled
		}
	}
	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = enabled
		}
	}
	if val := os.Getenv("TRADECOUNCIL_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}

	if val := os.Getenv("FINNHUB_API_KEY"); val != "" {
		c.FinnhubAPIKey = val
	}
	if val := os.Getenv("REDDIT_USER_AGENT"); val != "" {
		c.RedditUserAgent = val
	}
}

func (c *Config) Validate() error {
	if c.MaxDebateRounds < 1 {
		return fmt.Errorf("max_debate_rounds must be >= 1, got %d", c.MaxDebateRounds)
	}
	if c.MaxRiskDiscussRounds < 1 {
		return fmt.Errorf("max_risk_discuss_rounds must be >= 1, got %d", c.MaxRiskDiscussRounds)
	}
	if c.MemoryLookbackK < 0 {
		return fmt.Errorf("memory_lookback_k must be >= 0, got %d", c.MemoryLookbackK)
	}
	if c.QuickThinkLLM == "" || c.DeepThinkLLM == "" {
		return fmt.Errorf("both quick_think_llm and deep_think_llm must be set")
	}
	if c.GatewayTimeoutSecs <= 0 {
		return fmt.Errorf("gateway_timeout_secs must be positive, got %d", c.GatewayTimeoutSecs)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", c.MaxRetries)
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ResultsDir, c.DataDir, c.DataCacheDir}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
