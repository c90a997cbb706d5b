package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/99designs/keyring"

	"improve/hotkey"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMissingOptional(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"), false)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Keys.Improve != "Shift+F10" {
		t.Errorf("got %q, want default chord", cfg.Keys.Improve)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"), true)
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
keys:
  improve: F9
  command: Ctrl+Alt+F1
backend: anthropic
ollama:
  model: llama3.2
poll:
  cooldown: 5s
`)
	cfg, err := Load(path, true)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Keys.Improve != "F9" || cfg.Keys.Command != "Ctrl+Alt+F1" {
		t.Errorf("keys = %+v", cfg.Keys)
	}
	if cfg.Backend != BackendAnthropic {
		t.Errorf("backend = %q", cfg.Backend)
	}
	if cfg.Ollama.Model != "llama3.2" || cfg.Ollama.Port != 11434 {
		t.Errorf("ollama = %+v, want model override and default port", cfg.Ollama)
	}
	if cfg.Poll.Cooldown != 5*time.Second || cfg.Poll.Interval != hotkey.DefaultInterval {
		t.Errorf("poll = %+v", cfg.Poll)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "keys: [")
	if _, err := Load(path, true); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	for _, tt := range []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"unknown modifier", func(c *Config) { c.Keys.Improve = "Foo+F1" }, `"Foo"`},
		{"unknown key", func(c *Config) { c.Keys.Command = "Ctrl+F13" }, "keys.command"},
		{"missing improve", func(c *Config) { c.Keys.Improve = "" }, "keys.improve"},
		{"duplicate", func(c *Config) { c.Keys.ShowOriginal = "shift+f10" }, "already bound"},
		{"backend", func(c *Config) { c.Backend = "gemini" }, "backend"},
		{"port", func(c *Config) { c.Ollama.Port = 70000 }, "ollama.port"},
		{"typer", func(c *Config) { c.Typer = "xdotool" }, "typer"},
		{"cooldown", func(c *Config) { c.Poll.Cooldown = 0 }, "poll.cooldown"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateWrapsChordErrors(t *testing.T) {
	cfg := Default()
	cfg.Keys.Improve = "Meta+F1"
	if err := cfg.Validate(); !errors.Is(err, hotkey.ErrUnknownModifier) {
		t.Errorf("got %v, want ErrUnknownModifier", err)
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv("IMPROVE_CONFIG", "/tmp/env.yaml")

	path, explicit, err := ResolvePath("/tmp/flag.yaml")
	if err != nil || path != "/tmp/flag.yaml" || !explicit {
		t.Errorf("flag: got %q %v %v", path, explicit, err)
	}

	path, explicit, err = ResolvePath("")
	if err != nil || path != "/tmp/env.yaml" || !explicit {
		t.Errorf("env: got %q %v %v", path, explicit, err)
	}

	t.Setenv("IMPROVE_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	path, explicit, err = ResolvePath("")
	if err != nil {
		t.Fatal(err)
	}
	if explicit || !strings.HasSuffix(path, filepath.Join("improve", "config.yaml")) {
		t.Errorf("default: got %q %v", path, explicit)
	}
}

func TestOllamaURL(t *testing.T) {
	if got := Default().Ollama.URL(); got != "http://localhost:11434" {
		t.Errorf("got %q", got)
	}
}

func TestSecretsEnvFirst(t *testing.T) {
	t.Setenv("IMPROVE_TEST_KEY", "from-env")
	s := Secrets{Open: func() (keyring.Keyring, error) {
		t.Fatal("keyring opened although env was set")
		return nil, nil
	}}
	got, err := s.Get("IMPROVE_TEST_KEY")
	if err != nil || got != "from-env" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestSecretsKeyring(t *testing.T) {
	t.Setenv("IMPROVE_TEST_KEY", "")
	kr := keyring.NewArrayKeyring(nil)
	s := Secrets{Open: func() (keyring.Keyring, error) { return kr, nil }}

	if _, err := s.Get("IMPROVE_TEST_KEY"); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("got %v, want ErrNoSecret", err)
	}
	if err := s.Set("IMPROVE_TEST_KEY", "from-keyring"); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get("IMPROVE_TEST_KEY")
	if err != nil || got != "from-keyring" {
		t.Errorf("got %q, %v", got, err)
	}
}
