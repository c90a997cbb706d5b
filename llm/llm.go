package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"improve/log"
)

const ImprovePrompt = `Improve the following text for clarity, grammar, and style.
Keep the original meaning and tone.
Only output the improved text, nothing else.
Do not add explanations or commentary.`

const CommandPrompt = `Convert the following description into a shell command.
Output only the command, nothing else.
Do not add explanations, commentary, or markdown formatting.
If multiple commands are needed, combine them on a single line using && or pipes.`

const (
	DefaultAttempts = 3
	DefaultPause    = time.Second
)

type Result struct {
	Text    string
	Metrics *NetworkMetrics
}

// Backend sends one system + user exchange to a chat model.
type Backend interface {
	Name() string
	Model() string
	Complete(ctx context.Context, system, user string) (*Result, error)
}

// Warmer is implemented by backends that can preload their model.
type Warmer interface {
	Warm(ctx context.Context) error
}

// Improver runs the improve and command prompts with retries.
type Improver struct {
	backend  Backend
	attempts int
	pause    time.Duration
}

func NewImprover(b Backend) *Improver {
	return &Improver{backend: b, attempts: DefaultAttempts, pause: DefaultPause}
}

// WithRetry overrides the attempt count and the pause between attempts.
func (im *Improver) WithRetry(attempts int, pause time.Duration) *Improver {
	im.attempts = max(attempts, 1)
	im.pause = pause
	return im
}

func (im *Improver) Backend() Backend { return im.backend }

func (im *Improver) Improve(ctx context.Context, text string) (*Result, error) {
	return im.send(ctx, ImprovePrompt, text)
}

func (im *Improver) GenerateCommand(ctx context.Context, description string) (*Result, error) {
	return im.send(ctx, CommandPrompt, description)
}

// send returns an empty result for blank input without calling the backend.
func (im *Improver) send(ctx context.Context, system, user string) (*Result, error) {
	if strings.TrimSpace(user) == "" {
		return &Result{}, nil
	}

	var lastErr error
	for attempt := 1; attempt <= im.attempts; attempt++ {
		start := time.Now()
		res, err := im.backend.Complete(ctx, system, user)
		if err == nil {
			res.Text = strings.TrimSpace(res.Text)
			log.Debugf("%s response in %s (attempt %d)", im.backend.Name(), time.Since(start).Round(time.Millisecond), attempt)
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		log.Warnf("%s attempt %d failed: %v", im.backend.Name(), attempt, err)

		if attempt < im.attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(im.pause):
			}
		}
	}
	return nil, fmt.Errorf("%s: all %d attempts failed: %w", im.backend.Name(), im.attempts, lastErr)
}

var ErrNoAPIKey = errors.New("missing API key")

// Config selects and configures a backend.
type Config struct {
	Backend string
	Model   string
	// URL is the Ollama server or the OpenAI-compatible base URL.
	URL    string
	APIKey string
}

func New(cfg Config) (Backend, error) {
	switch cfg.Backend {
	case "ollama", "":
		return NewOllama(cfg.URL, cfg.Model), nil
	case "openai":
		if cfg.APIKey == "" && !isLocal(cfg.URL) {
			return nil, fmt.Errorf("openai: %w", ErrNoAPIKey)
		}
		return NewOpenAI(cfg.URL, cfg.APIKey, cfg.Model), nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic: %w", ErrNoAPIKey)
		}
		return NewAnthropic(cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// isLocal reports whether url points at this machine, where
// OpenAI-compatible servers usually need no key.
func isLocal(url string) bool {
	return strings.Contains(url, "://localhost") || strings.Contains(url, "://127.0.0.1")
}
