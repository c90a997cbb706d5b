package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"improve/hotkey"
)

const (
	BackendOllama    = "ollama"
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"

	TyperAuto   = "auto"
	TyperUinput = "uinput"
	TyperWtype  = "wtype"
	TyperPaste  = "paste"
)

// Config is the on-disk configuration. Command-line flags override it.
type Config struct {
	Keys            Keys            `yaml:"keys"`
	ShowOriginal    bool            `yaml:"show_original"`
	Backend         string          `yaml:"backend"`
	Ollama          OllamaConfig    `yaml:"ollama"`
	OpenAI          OpenAIConfig    `yaml:"openai"`
	Anthropic       AnthropicConfig `yaml:"anthropic"`
	Typer           string          `yaml:"typer"`
	BackupClipboard bool            `yaml:"backup_clipboard"`
	Beep            bool            `yaml:"beep"`
	Notify          bool            `yaml:"notify"`
	Poll            PollConfig      `yaml:"poll"`
}

// Keys holds one chord per action. An empty chord disables the action.
type Keys struct {
	Improve      string `yaml:"improve"`
	ShowOriginal string `yaml:"show_original"`
	Command      string `yaml:"command"`
}

type OllamaConfig struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Model string `yaml:"model"`
}

func (o OllamaConfig) URL() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

type OpenAIConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type AnthropicConfig struct {
	Model string `yaml:"model"`
}

type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
	Cooldown time.Duration `yaml:"cooldown"`
}

func Default() Config {
	return Config{
		Keys:    Keys{Improve: "Shift+F10"},
		Backend: BackendOllama,
		Ollama: OllamaConfig{
			Host:  "http://localhost",
			Port:  11434,
			Model: "qwen3:1.7b",
		},
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		Anthropic: AnthropicConfig{Model: "claude-3-5-haiku-latest"},
		Typer:     TyperAuto,
		Beep:      true,
		Notify:    true,
		Poll: PollConfig{
			Interval: hotkey.DefaultInterval,
			Cooldown: hotkey.DefaultCooldown,
		},
	}
}

// ResolvePath picks the config file: -config flag, then IMPROVE_CONFIG, then
// the user config directory. explicit reports whether the user named it.
func ResolvePath(flagPath string) (path string, explicit bool, err error) {
	if flagPath != "" {
		return flagPath, true, nil
	}
	if env := os.Getenv("IMPROVE_CONFIG"); env != "" {
		return env, true, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", false, err
	}
	return filepath.Join(dir, "improve", "config.yaml"), false, nil
}

// Load reads path over the defaults. A missing file is only an error when
// required is set.
func Load(path string, required bool) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every chord and setting so mistakes surface before any
// device is opened.
func (c Config) Validate() error {
	if c.Keys.Improve == "" {
		return errors.New("keys.improve: a chord is required")
	}
	seen := make(map[hotkey.Chord]string)
	for _, k := range []struct{ name, value string }{
		{"improve", c.Keys.Improve},
		{"show_original", c.Keys.ShowOriginal},
		{"command", c.Keys.Command},
	} {
		if k.value == "" {
			continue
		}
		ch, err := hotkey.ParseChord(k.value)
		if err != nil {
			return fmt.Errorf("keys.%s: %w", k.name, err)
		}
		if prev, dup := seen[ch]; dup {
			return fmt.Errorf("keys.%s: %s is already bound to %s", k.name, ch, prev)
		}
		seen[ch] = k.name
	}

	switch c.Backend {
	case BackendOllama:
		if c.Ollama.Port <= 0 || c.Ollama.Port > 65535 {
			return fmt.Errorf("ollama.port: %d out of range", c.Ollama.Port)
		}
		if c.Ollama.Model == "" {
			return errors.New("ollama.model: required")
		}
	case BackendOpenAI:
		if c.OpenAI.Model == "" {
			return errors.New("openai.model: required")
		}
	case BackendAnthropic:
		if c.Anthropic.Model == "" {
			return errors.New("anthropic.model: required")
		}
	default:
		return fmt.Errorf("backend: unknown %q (want ollama, openai or anthropic)", c.Backend)
	}

	switch c.Typer {
	case TyperAuto, TyperUinput, TyperWtype, TyperPaste:
	default:
		return fmt.Errorf("typer: unknown %q (want auto, uinput, wtype or paste)", c.Typer)
	}

	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval: must be positive, got %s", c.Poll.Interval)
	}
	if c.Poll.Cooldown <= 0 {
		return fmt.Errorf("poll.cooldown: must be positive, got %s", c.Poll.Cooldown)
	}
	return nil
}
