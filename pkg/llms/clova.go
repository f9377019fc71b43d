package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/recipeu/agent/pkg/config"
	"github.com/recipeu/agent/pkg/httpclient"
)

// ClovaProvider talks to the Clova Studio chat-completions API (HCX models).
type ClovaProvider struct {
	config *config.LLMConfig
	client *httpclient.Client
}

type clovaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type clovaRequest struct {
	Messages    []clovaMessage `json:"messages"`
	Temperature float64        `json:"temperature"`
	MaxTokens   int            `json:"maxTokens"`
	TopP        float64        `json:"topP,omitempty"`
	Repetition  float64        `json:"repetitionPenalty,omitempty"`
}

type clovaResponse struct {
	Status struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
	Result struct {
		Message clovaMessage    `json:"message"`
		Usage   json.RawMessage `json:"usage"`
	} `json:"result"`
}

func NewClovaProvider(cfg *config.LLMConfig) (*ClovaProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("clova api key is required")
	}
	return &ClovaProvider{
		config: cfg,
		client: httpclient.New(
			httpclient.WithTimeout(time.Duration(cfg.Timeout)*time.Second),
			httpclient.WithMaxRetries(cfg.MaxRetries),
			httpclient.WithBaseDelay(time.Duration(cfg.RetryDelay*float64(time.Second))),
		),
	}, nil
}

func (p *ClovaProvider) ModelName() string {
	return p.config.Model
}

func (p *ClovaProvider) Close() error {
	return nil
}

func (p *ClovaProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	messages := make([]clovaMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, clovaMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, clovaMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(clovaRequest{
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal clova request: %w", err)
	}

	url := fmt.Sprintf("%s/v3/chat-completions/%s", p.config.BaseURL, p.config.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create clova request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	httpReq.Header.Set("X-NCP-CLOVASTUDIO-REQUEST-ID", uuid.NewString())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("clova request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read clova response: %w", err)
	}

	var parsed clovaResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse clova response: %w", err)
	}
	if parsed.Status.Code != "" && parsed.Status.Code != "20000" {
		return nil, fmt.Errorf("clova error %s: %s", parsed.Status.Code, parsed.Status.Message)
	}

	return &Completion{
		Text:  parsed.Result.Message.Content,
		Usage: NormalizeUsage(parsed.Result.Usage),
	}, nil
}
