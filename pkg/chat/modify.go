package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/recipeu/agent/pkg/llms"
)

// ErrNoPriorRecipe means a mutation was requested before any recipe card
// exists in the session; the caller falls back to a fresh search.
var ErrNoPriorRecipe = errors.New("no prior recipe in session")

// Modifier rewrites the last recipe card per a mutation request and records
// the mutation in the session ledger.
type Modifier struct {
	llm       llms.Provider
	extractor *Extractor
	log       *slog.Logger
}

func NewModifier(llm llms.Provider, extractor *Extractor, log *slog.Logger) *Modifier {
	return &Modifier{llm: llm, extractor: extractor, log: log}
}

// Run applies one mutation request against the session's last recipe. It
// returns the modified card; the ledger entry is appended on success.
func (m *Modifier) Run(ctx context.Context, request string, session *Session, stats *RequestStats) (string, error) {
	recipe, ok := session.LastRecipe()
	if !ok {
		return "", ErrNoPriorRecipe
	}

	modType := ClassifyModification(request)
	var removes, adds []string
	stats.Time("extract", func() llms.Usage {
		var usage llms.Usage
		switch modType {
		case ModReplace:
			removes, adds, usage = m.extractor.ExtractReplacement(ctx, request)
		case ModRemove:
			removes, usage = m.extractor.ExtractIngredients(ctx, request)
		case ModAdd:
			adds, usage = m.extractor.ExtractIngredients(ctx, request)
		}
		return usage
	})
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var modified string
	var callErr error
	stats.Time("modify", func() llms.Usage {
		completion, err := m.llm.Complete(ctx, llms.Request{
			Prompt:      fmt.Sprintf(modifyPrompt, recipe, request),
			Temperature: 0.2,
			MaxTokens:   800,
		})
		if err != nil {
			callErr = err
			return llms.Usage{}
		}
		modified = PostprocessModification(completion.Text)
		return completion.Usage
	})
	if callErr != nil {
		return "", fmt.Errorf("recipe modification failed: %w", callErr)
	}
	if strings.TrimSpace(modified) == "" {
		return "", errors.New("recipe modification produced empty output")
	}

	session.Ledger.Append(ModificationEntry{
		Request:           request,
		Type:              modType,
		RemoveIngredients: removes,
		AddIngredients:    adds,
	})
	m.log.Info("recipe modified",
		"type", modType,
		"removed", strings.Join(removes, ","),
		"added", strings.Join(adds, ","))
	return modified, nil
}
