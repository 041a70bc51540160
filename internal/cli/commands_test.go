package cli

import (
	"path/filepath"
	"testing"

	"github.com/tradecouncil/tradecouncil/config"
)

func TestConfigSetPersistsUpdate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	base := config.DefaultConfigWithRoot(dir)

	cmd := newConfigCmd(base)
	cmd.SetArgs([]string{"set", `{"max_debate_rounds": 3}`, "--file", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config set: %v", err)
	}

	m, err := openConfigManager(base, path)
	if err != nil {
		t.Fatalf("reopen manager: %v", err)
	}
	got := m.Get()
	if got.MaxDebateRounds != 3 {
		t.Errorf("max debate rounds = %d, want 3", got.MaxDebateRounds)
	}
	// The overlay must leave unnamed fields alone.
	if got.QuickThinkLLM != base.QuickThinkLLM {
		t.Errorf("quick-think model changed: %q", got.QuickThinkLLM)
	}
}

func TestConfigSetRejectsInvalidUpdate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cmd := newConfigCmd(config.DefaultConfigWithRoot(dir))
	cmd.SetArgs([]string{"set", `{"max_debate_rounds": 0}`, "--file", path})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("an invalid round count must be rejected")
	}
}
