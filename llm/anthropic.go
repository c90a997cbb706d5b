package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	antoption "github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 1024

type Anthropic struct {
	client anthropic.Client
	model  string
}

func NewAnthropic(apiKey, model string, opts ...antoption.RequestOption) *Anthropic {
	opts = append([]antoption.RequestOption{
		antoption.WithAPIKey(apiKey),
		antoption.WithHTTPClient(newHTTPClient(120 * time.Second)),
		antoption.WithMaxRetries(0),
	}, opts...)
	return &Anthropic{client: anthropic.NewClient(opts...), model: model}
}

func (a *Anthropic) Name() string  { return "anthropic" }
func (a *Anthropic) Model() string { return a.model }

func (a *Anthropic) Complete(ctx context.Context, system, user string) (*Result, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: anthropicMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("anthropic API error %d: %s", apiErr.StatusCode, apiErr.Error())
		}
		return nil, err
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, errors.New("anthropic response has no text")
	}
	return &Result{Text: sb.String()}, nil
}
