package llms

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUsage(t *testing.T) {
	t.Run("clova shape", func(t *testing.T) {
		usage := NormalizeUsage(json.RawMessage(`{"inputTokens": 120, "outputTokens": 45, "totalTokens": 165}`))
		assert.Equal(t, Usage{PromptTokens: 120, CompletionTokens: 45, TotalTokens: 165}, usage)
	})

	t.Run("openai shape", func(t *testing.T) {
		usage := NormalizeUsage(json.RawMessage(`{"prompt_tokens": 80, "completion_tokens": 20, "total_tokens": 100}`))
		assert.Equal(t, Usage{PromptTokens: 80, CompletionTokens: 20, TotalTokens: 100}, usage)
	})

	t.Run("missing total is computed", func(t *testing.T) {
		usage := NormalizeUsage(json.RawMessage(`{"inputTokens": 10, "outputTokens": 5}`))
		assert.Equal(t, 15, usage.TotalTokens)
	})

	t.Run("absent usage is zero", func(t *testing.T) {
		assert.Zero(t, NormalizeUsage(nil))
		assert.Zero(t, NormalizeUsage(json.RawMessage(`null`)))
	})

	t.Run("malformed usage is zero", func(t *testing.T) {
		assert.Zero(t, NormalizeUsage(json.RawMessage(`"oops"`)))
	})
}

func TestUsage_Add(t *testing.T) {
	sum := Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}.
		Add(Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3})
	assert.Equal(t, Usage{PromptTokens: 11, CompletionTokens: 7, TotalTokens: 18}, sum)
}
