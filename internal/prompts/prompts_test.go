package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_AllKeysPresent(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Embedded catalogue invalid: %v", err)
	}
	if !strings.Contains(c.History, "{name}") {
		t.Error("History prompt should carry a {name} placeholder")
	}
}

func TestGreetingFor(t *testing.T) {
	c := Default()

	if got := c.GreetingFor("Solana"); !strings.Contains(got, "Solana") {
		t.Errorf("Expected greeting to mention Solana, got %q", got)
	}
	if got := c.GreetingFor(""); got != c.GreetingDefault {
		t.Errorf("Expected default greeting, got %q", got)
	}
}

func TestChatSystemFor(t *testing.T) {
	c := Default()

	if got := c.ChatSystemFor("Bitcoin"); !strings.Contains(got, "looking at Bitcoin") {
		t.Errorf("Expected preamble to name Bitcoin, got %q", got)
	}
	if got := c.ChatSystemFor(""); !strings.Contains(got, "looking at the dashboard") {
		t.Errorf("Expected preamble to fall back to the dashboard, got %q", got)
	}
}

func TestLoad_OverridesSingleKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	if err := os.WriteFile(path, []byte("chat_error: Oops.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.ChatError != "Oops." {
		t.Errorf("Expected override, got %q", c.ChatError)
	}
	if c.CoinList != Default().CoinList {
		t.Error("Keys absent from the file should keep their defaults")
	}
}

func TestLoad_RejectsBlank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	if err := os.WriteFile(path, []byte("forecast: \"  \"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for blank forecast prompt")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
