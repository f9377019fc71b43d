package llms

import (
	"fmt"

	"github.com/recipeu/agent/pkg/config"
)

// NewProvider builds a completion provider from config.
func NewProvider(cfg *config.LLMConfig) (Provider, error) {
	switch cfg.Type {
	case "clova":
		return NewClovaProvider(cfg)
	case "openai":
		return NewOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider type: %s", cfg.Type)
	}
}
