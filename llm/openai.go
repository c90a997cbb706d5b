package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	oaioption "github.com/openai/openai-go/option"
)

// OpenAI speaks the chat completions API, which also covers local servers
// such as llama.cpp, vLLM and LM Studio.
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(baseURL, apiKey, model string) *OpenAI {
	opts := []oaioption.RequestOption{
		oaioption.WithHTTPClient(newHTTPClient(120 * time.Second)),
		oaioption.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, oaioption.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		opts = append(opts, oaioption.WithAPIKey(apiKey))
	}
	return &OpenAI{client: openai.NewClient(opts...), model: model}
}

func (o *OpenAI) Name() string  { return "openai" }
func (o *OpenAI) Model() string { return o.model }

func (o *OpenAI) Complete(ctx context.Context, system, user string) (*Result, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("openai API error %d: %s", apiErr.StatusCode, apiErr.Message)
		}
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai response has no choices")
	}
	return &Result{Text: resp.Choices[0].Message.Content}, nil
}
