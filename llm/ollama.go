package llm

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Ollama talks to the native /api/chat endpoint of an Ollama server.
type Ollama struct {
	client *http.Client
	apiURL string
	model  string
}

func NewOllama(baseURL, model string) *Ollama {
	return &Ollama{
		client: newHTTPClient(120 * time.Second),
		apiURL: strings.TrimRight(baseURL, "/") + "/api/chat",
		model:  model,
	}
}

func (o *Ollama) Name() string  { return "ollama" }
func (o *Ollama) Model() string { return o.model }

// chatBody builds the request. Thinking is disabled and the model is kept
// loaded between requests.
func (o *Ollama) chatBody(system, user string) ([]byte, error) {
	body := []byte(`{}`)
	var err error
	set := func(path string, value any) {
		if err == nil {
			body, err = sjson.SetBytes(body, path, value)
		}
	}
	set("model", o.model)
	set("stream", false)
	set("think", false)
	set("keep_alive", -1)
	messages := []map[string]string{}
	if system != "" || user != "" {
		messages = append(messages,
			map[string]string{"role": "system", "content": system},
			map[string]string{"role": "user", "content": user},
		)
	}
	set("messages", messages)
	return body, err
}

func (o *Ollama) post(ctx context.Context, body []byte) (*tracedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", o.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := doTraced(o.client, req)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		msg := gjson.GetBytes(resp.Body, "error").String()
		if msg == "" {
			msg = string(resp.Body)
		}
		return nil, fmt.Errorf("ollama API error %d: %s", resp.Status, msg)
	}
	return resp, nil
}

func (o *Ollama) Complete(ctx context.Context, system, user string) (*Result, error) {
	body, err := o.chatBody(system, user)
	if err != nil {
		return nil, err
	}
	resp, err := o.post(ctx, body)
	if err != nil {
		return nil, err
	}
	content := gjson.GetBytes(resp.Body, "message.content")
	if !content.Exists() {
		return nil, fmt.Errorf("ollama response parse error: no message.content in %s", resp.Body)
	}
	return &Result{Text: content.String(), Metrics: resp.Metrics}, nil
}

// Warm loads the model into memory with an empty chat request.
func (o *Ollama) Warm(ctx context.Context) error {
	body, err := o.chatBody("", "")
	if err != nil {
		return err
	}
	_, err = o.post(ctx, body)
	return err
}
