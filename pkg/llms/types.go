// Package llms provides the completion-provider gateway used by the dialog
// pipeline. Providers are plain HTTP clients; token usage is normalized at
// this boundary so callers never see provider-specific shapes.
package llms

import (
	"context"
	"encoding/json"
)

// Request is a single completion call. Temperature and MaxTokens are
// per-call because every pipeline stage tunes them differently.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Usage is the normalized token accounting for one completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Add returns the element-wise sum of two usages.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}

// Completion is the provider-agnostic result of a completion call.
type Completion struct {
	Text  string
	Usage Usage
}

// Provider is the completion gateway contract.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
	ModelName() string
	Close() error
}

// NormalizeUsage maps the three usage shapes providers emit to one struct:
// input/output/total (Clova), prompt/completion/total (OpenAI-compatible),
// or absent entirely (zero tokens; wall time is still recorded upstream).
func NormalizeUsage(raw json.RawMessage) Usage {
	if len(raw) == 0 {
		return Usage{}
	}

	var fields map[string]json.Number
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Usage{}
	}

	asInt := func(keys ...string) int {
		for _, key := range keys {
			if v, ok := fields[key]; ok {
				if n, err := v.Int64(); err == nil {
					return int(n)
				}
			}
		}
		return 0
	}

	usage := Usage{
		PromptTokens:     asInt("inputTokens", "input_tokens", "promptTokens", "prompt_tokens"),
		CompletionTokens: asInt("outputTokens", "output_tokens", "completionTokens", "completion_tokens"),
		TotalTokens:      asInt("totalTokens", "total_tokens"),
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	return usage
}
