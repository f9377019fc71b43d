package chat

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/recipeu/agent/pkg/llms"
)

// Extractor pulls ingredient names out of free-form mutation requests so the
// ledger records structured entries. Model extraction first, regex fallback
// when the model fails or returns nothing usable.
type Extractor struct {
	llm llms.Provider
	log *slog.Logger
}

func NewExtractor(llm llms.Provider, log *slog.Logger) *Extractor {
	return &Extractor{llm: llm, log: log}
}

var replaceFallbackPattern = regexp.MustCompile(`([가-힣]+)\s*말고\s*([가-힣]+)`)

// ExtractReplacement pulls the removed and added ingredients out of an
// "A 말고 B" style request.
func (e *Extractor) ExtractReplacement(ctx context.Context, text string) (removes, adds []string, usage llms.Usage) {
	completion, err := e.llm.Complete(ctx, llms.Request{
		Prompt:      fmt.Sprintf(replaceExtractPrompt, text),
		Temperature: 0.1,
		MaxTokens:   50,
	})
	if err != nil {
		e.log.Warn("replacement extraction failed, using regex fallback", "error", err)
		removes, adds = fallbackReplacement(text)
		return removes, adds, llms.Usage{}
	}

	for _, line := range strings.Split(completion.Text, "\n") {
		line = strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(line, "제거:"); ok {
			removes = append(removes, splitIngredients(after)...)
		} else if after, ok := strings.CutPrefix(line, "추가:"); ok {
			adds = append(adds, splitIngredients(after)...)
		}
	}
	if len(removes) == 0 && len(adds) == 0 {
		removes, adds = fallbackReplacement(text)
	}
	return removes, adds, completion.Usage
}

func fallbackReplacement(text string) (removes, adds []string) {
	for _, match := range replaceFallbackPattern.FindAllStringSubmatch(text, -1) {
		removes = append(removes, match[1])
		adds = append(adds, match[2])
	}
	return removes, adds
}

// ExtractIngredients pulls bare ingredient names out of a remove or add
// request, dropping particles, verbs and place words.
func (e *Extractor) ExtractIngredients(ctx context.Context, text string) ([]string, llms.Usage) {
	completion, err := e.llm.Complete(ctx, llms.Request{
		Prompt:      fmt.Sprintf(ingredientExtractPrompt, text),
		Temperature: 0.1,
		MaxTokens:   50,
	})
	if err != nil {
		e.log.Warn("ingredient extraction failed, using regex fallback", "error", err)
		return fallbackIngredients(text), llms.Usage{}
	}

	answer := strings.TrimSpace(completion.Text)
	if answer == "" || strings.Contains(answer, "없음") {
		return fallbackIngredients(text), completion.Usage
	}
	items := splitIngredients(answer)
	if len(items) == 0 {
		return fallbackIngredients(text), completion.Usage
	}
	return items, completion.Usage
}

func splitIngredients(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" && item != "없음" {
			items = append(items, item)
		}
	}
	return items
}

var (
	extractionKeywords = []string{
		"빼", "제거", "없이", "말고", "없어", "없는", "없다",
		"대신", "바꿔", "교체", "빼줘",
	}
	absenceKeywords = []string{"빼", "제거", "없어", "없는", "없다"}
	locationWords   = []string{
		"집", "냉장고", "부엌", "주방", "마트", "편의점",
		"가게", "슈퍼", "어제", "오늘", "내일",
	}
	firstWordPattern = regexp.MustCompile(`^([가-힣]{2,})`)
)

func fallbackIngredients(text string) []string {
	seen := make(map[string]struct{})
	var items []string

	add := func(item string) {
		if utf8.RuneCountInString(item) < 2 || isLocationWord(item) {
			return
		}
		if _, ok := seen[item]; ok {
			return
		}
		seen[item] = struct{}{}
		items = append(items, item)
	}

	for _, keyword := range extractionKeywords {
		pattern := regexp.MustCompile(
			`([가-힣]+?)(?:이|가|을|를|은|는|도|만|에|에서|으로|로)?\s*` + regexp.QuoteMeta(keyword))
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			add(match[1])
		}
	}

	// "오이 없어" with no particle: fall back to the leading word.
	if len(items) == 0 && containsAny(text, absenceKeywords) {
		if match := firstWordPattern.FindStringSubmatch(strings.TrimSpace(text)); match != nil {
			add(match[1])
		}
	}
	return items
}

func isLocationWord(item string) bool {
	for _, word := range locationWords {
		if item == word {
			return true
		}
	}
	return false
}
