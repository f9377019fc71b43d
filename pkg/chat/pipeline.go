package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/recipeu/agent/pkg/llms"
	"github.com/recipeu/agent/pkg/search"
	"github.com/recipeu/agent/pkg/websearch"
)

// Retriever is the recipe vector search the pipeline retrieves against.
type Retriever interface {
	SearchRecipes(ctx context.Context, query string, k int) ([]search.Document, error)
}

// Pipeline is the adaptive retrieval chain behind recipe search: rewrite the
// query, retrieve, grade relevance, fall back to web search when the corpus
// misses, then generate the recipe card.
type Pipeline struct {
	llm   llms.Provider
	store Retriever
	web   websearch.Service
	topK  int
	log   *slog.Logger
}

func NewPipeline(llm llms.Provider, store Retriever, web websearch.Service, topK int, log *slog.Logger) *Pipeline {
	if topK <= 0 {
		topK = 3
	}
	return &Pipeline{llm: llm, store: store, web: web, topK: topK, log: log}
}

// PipelineResult is the outcome of one search run.
type PipelineResult struct {
	Answer    string
	Documents []search.Document
}

const (
	contextDocFullLimit = 1000
	contextDocCutLimit  = 800
	gradeDocPreview     = 200
	webSearchResults    = 3
)

// RunSearch answers a recipe search question, recording per-stage accounting
// into stats. The context carries the request deadline.
func (p *Pipeline) RunSearch(ctx context.Context, question string, history []Message, profile Personalization, ledger *Ledger, stats *RequestStats) (*PipelineResult, error) {
	query := question
	stats.Time("rewrite", func() llms.Usage {
		rewritten, usage := p.rewrite(ctx, question, history)
		if rewritten != "" {
			query = rewritten
		}
		return usage
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var docs []search.Document
	stats.Time("retrieve", func() llms.Usage {
		found, err := p.store.SearchRecipes(ctx, query, p.topK)
		if err != nil {
			p.log.Warn("recipe retrieval failed", "query", query, "error", err)
			return llms.Usage{}
		}
		docs = found
		return llms.Usage{}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var warning string
	stats.Time("check_constraints", func() llms.Usage {
		warning = ConstraintWarning(query, profile)
		return llms.Usage{}
	})

	relevant := false
	stats.Time("grade", func() llms.Usage {
		var usage llms.Usage
		relevant, usage = p.grade(ctx, query, docs)
		return usage
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !relevant {
		stats.Time("web_search", func() llms.Usage {
			results, err := p.web.Search(ctx, query, webSearchResults)
			if err != nil {
				p.log.Warn("web search failed", "query", query, "error", err)
				return llms.Usage{}
			}
			docs = results
			return llms.Usage{}
		})
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	var answer string
	stats.Time("generate", func() llms.Usage {
		var usage llms.Usage
		answer, usage = p.generate(ctx, question, docs, warning, profile, ledger)
		return usage
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &PipelineResult{Answer: answer, Documents: docs}, nil
}

// rewrite condenses the question plus recent history into a short dish-name
// query. Returns "" when the model fails; the caller keeps the original.
func (p *Pipeline) rewrite(ctx context.Context, question string, history []Message) (string, llms.Usage) {
	var lines []string
	for _, msg := range history {
		lines = append(lines, msg.Role+": "+truncateRunes(msg.Content, gradeDocPreview))
	}
	completion, err := p.llm.Complete(ctx, llms.Request{
		Prompt:      fmt.Sprintf(rewritePrompt, strings.Join(lines, "\n"), question),
		Temperature: 0.1,
		MaxTokens:   50,
	})
	if err != nil {
		p.log.Warn("query rewrite failed, keeping original", "error", err)
		return "", llms.Usage{}
	}
	return strings.TrimSpace(completion.Text), completion.Usage
}

// grade decides whether the retrieved documents actually cover the dish. A
// cheap title match gates the model call; anything ambiguous routes to web
// search.
func (p *Pipeline) grade(ctx context.Context, query string, docs []search.Document) (bool, llms.Usage) {
	if len(docs) == 0 {
		return false, llms.Usage{}
	}
	top := docs
	if len(top) > 3 {
		top = top[:3]
	}

	queryLower := strings.ToLower(query)
	titleMatch := false
	for _, doc := range top {
		titleLower := strings.ToLower(doc.Title)
		if strings.Contains(titleLower, queryLower) {
			titleMatch = true
			break
		}
		for _, token := range strings.Fields(queryLower) {
			if len([]rune(token)) > 1 && strings.Contains(titleLower, token) {
				titleMatch = true
				break
			}
		}
		if titleMatch {
			break
		}
	}
	if !titleMatch {
		return false, llms.Usage{}
	}

	var previews []string
	for _, doc := range top {
		previews = append(previews, "- "+truncateRunes(doc.Content, gradeDocPreview))
	}
	completion, err := p.llm.Complete(ctx, llms.Request{
		Prompt:      fmt.Sprintf(gradePrompt, query, strings.Join(previews, "\n")),
		Temperature: 0.1,
		MaxTokens:   10,
	})
	if err != nil {
		p.log.Warn("relevance grading failed, routing to web search", "error", err)
		return false, llms.Usage{}
	}
	return strings.Contains(strings.ToLower(completion.Text), "yes"), completion.Usage
}

func (p *Pipeline) generate(ctx context.Context, question string, docs []search.Document, warning string, profile Personalization, ledger *Ledger) (string, llms.Usage) {
	if warning != "" {
		completion, err := p.llm.Complete(ctx, llms.Request{
			Prompt:      fmt.Sprintf(constraintAlternativePrompt, warning),
			Temperature: 0.3,
			MaxTokens:   200,
		})
		if err != nil {
			p.log.Warn("constrained generation failed", "error", err)
			return warning + "\n\n다른 요리를 추천해드릴까요?", llms.Usage{}
		}
		return warning + "\n\n" + strings.TrimSpace(completion.Text), completion.Usage
	}

	var contexts []string
	for _, doc := range docs {
		content := doc.Content
		if len([]rune(content)) >= contextDocFullLimit {
			content = truncateRunes(content, contextDocCutLimit)
		}
		contexts = append(contexts, content)
	}

	enhanced := question
	var markers []string
	if len(profile.Allergies) > 0 {
		markers = append(markers, "제외: "+strings.Join(profile.Allergies, ", "))
	}
	if len(profile.Dislikes) > 0 {
		markers = append(markers, "비선호: "+strings.Join(profile.Dislikes, ", "))
	}
	if len(markers) > 0 {
		enhanced = question + " (" + strings.Join(markers, " / ") + ")"
	}

	modConstraints := ""
	if removed := ledger.EffectiveRemoveSet(); len(removed) > 0 {
		modConstraints = "\n**이전 수정사항 (반드시 반영):**\n- 제외: " + strings.Join(removed, ", ") + "\n"
	}

	completion, err := p.llm.Complete(ctx, llms.Request{
		Prompt: fmt.Sprintf(generatePrompt,
			strings.Join(contexts, "\n\n"), enhanced, modConstraints, profile.Servings()),
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		p.log.Error("recipe generation failed", "error", err)
		return "답변 생성에 실패했습니다.", llms.Usage{}
	}
	return PostprocessRecipe(completion.Text), completion.Usage
}

// AnswerQuestion handles general cooking knowledge questions outside the
// retrieval chain.
func (p *Pipeline) AnswerQuestion(ctx context.Context, question string, history []Message, stats *RequestStats) (string, error) {
	var lines []string
	for _, msg := range history {
		lines = append(lines, msg.Role+": "+truncateRunes(msg.Content, gradeDocPreview))
	}

	var answer string
	var callErr error
	start := time.Now()
	completion, err := p.llm.Complete(ctx, llms.Request{
		Prompt:      fmt.Sprintf(cookingQuestionPrompt, strings.Join(lines, "\n"), question),
		Temperature: 0.3,
		MaxTokens:   200,
	})
	if err != nil {
		callErr = err
	} else {
		answer = strings.TrimSpace(completion.Text)
		stats.Record("cooking_question", time.Since(start), completion.Usage)
	}
	if callErr != nil {
		return "", fmt.Errorf("cooking question answer failed: %w", callErr)
	}
	return answer, nil
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
