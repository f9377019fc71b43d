package chat

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/recipeu/agent/pkg/llms"
)

// Classifier decides what a user message wants and spots allergy or dislike
// declarations. Each decision tries the model first and falls back to
// keyword rules when the model is down or answers garbage.
type Classifier struct {
	llm llms.Provider
	log *slog.Logger
}

func NewClassifier(llm llms.Provider, log *slog.Logger) *Classifier {
	return &Classifier{llm: llm, log: log}
}

var notCookingKeywords = []string{
	"영화", "날씨", "여행", "제주", "부산", "서울", "운동",
	"음악", "게임", "드라마", "뉴스", "정치", "경제",
}

var modifyIntentKeywords = []string{
	"말고", "대신", "바꿔", "교체", "추가", "빼고", "빼줘",
	"제거", "없이", "더", "덜", "없어", "없는", "없다",
}

// DetectIntent classifies one user message. hasRecipe biases the model and
// gates the modify fallback: a mutation request without a prior recipe card
// is just a search.
func (c *Classifier) DetectIntent(ctx context.Context, text string, hasRecipe bool) (Intent, llms.Usage) {
	recipeFlag := "N"
	if hasRecipe {
		recipeFlag = "Y"
	}

	completion, err := c.llm.Complete(ctx, llms.Request{
		Prompt:      fmt.Sprintf(intentPrompt, text, recipeFlag),
		Temperature: 0.1,
		MaxTokens:   20,
	})
	if err != nil {
		c.log.Warn("intent model call failed, using keyword fallback", "error", err)
		return c.fallbackIntent(text, hasRecipe), llms.Usage{}
	}

	decision := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(completion.Text)), " ", "")
	switch {
	case strings.Contains(decision, "RECIPE_MODIFY"),
		strings.Contains(decision, "RECIPE_MOD"),
		strings.Contains(decision, "MODIFY"),
		strings.Contains(decision, "MOD") && strings.Contains(decision, "Y"):
		return IntentRecipeModify, completion.Usage
	case strings.Contains(decision, "NOT_COOKING"), strings.Contains(decision, "NOTCOOKING"):
		return IntentNotCooking, completion.Usage
	case strings.Contains(decision, "COOKING_QUESTION"),
		strings.Contains(decision, "COOKINGQUESTION"),
		strings.Contains(decision, "QUESTION"):
		return IntentCookingQuestion, completion.Usage
	case strings.Contains(decision, "RECIPE_SEARCH"),
		strings.Contains(decision, "RECIPESEARCH"),
		strings.Contains(decision, "SEARCH"):
		return IntentRecipeSearch, completion.Usage
	}
	c.log.Warn("unrecognized intent decision, defaulting to search", "decision", decision)
	return IntentRecipeSearch, completion.Usage
}

func (c *Classifier) fallbackIntent(text string, hasRecipe bool) Intent {
	if containsAny(text, notCookingKeywords) {
		return IntentNotCooking
	}
	if hasRecipe && containsAny(text, modifyIntentKeywords) {
		return IntentRecipeModify
	}
	return IntentRecipeSearch
}

// Declaration is an allergy or dislike the user stated about themselves.
type Declaration struct {
	Type  string // "allergy" or "dislike"
	Items []string
}

// Modification phrasing that short-circuits declaration detection, with the
// ㅐ/ㅏ typo variants users actually produce.
var declarationShortCircuit = []string{
	"빼고", "뺴고", "빼줘", "뺴줘", "제외", "말고", "대신",
}

var declarationResponseMarkers = []string{"타입:", "재료:", "ALLERGY", "DISLIKE", "NONE"}

var declarationTypos = [][2]string{
	{"뺴고", "빼고"},
	{"뺴줘", "빼줘"},
	{"뺴", "빼"},
	{"싷어", "싫어"},
	{"안머거", "안먹어"},
	{"제와", "제외"},
}

var (
	allergyKeywords = []string{"알러지", "알레르기", "못먹어", "먹으면", "배아파", "탈나"}
	dislikeKeywords = []string{"싫어", "안먹어", "빼줘", "빼고", "제외"}
)

// DetectDeclaration spots explicit "I can't eat X" / "I don't like X"
// statements. A message that is plainly a recipe mutation is never a
// declaration.
func (c *Classifier) DetectDeclaration(ctx context.Context, text string, hasRecipe bool) (Declaration, llms.Usage) {
	compact := strings.ReplaceAll(text, " ", "")
	if hasRecipe && containsAny(compact, declarationShortCircuit) {
		return Declaration{}, llms.Usage{}
	}

	completion, err := c.llm.Complete(ctx, llms.Request{
		Prompt:      fmt.Sprintf(declarationPrompt, text),
		Temperature: 0.1,
		MaxTokens:   50,
	})
	if err != nil {
		c.log.Warn("declaration model call failed, using keyword fallback", "error", err)
		return c.fallbackDeclaration(text), llms.Usage{}
	}

	answer := completion.Text
	if garbledResponse(answer) {
		c.log.Warn("declaration response failed quality gate, using keyword fallback")
		return c.fallbackDeclaration(text), completion.Usage
	}

	upper := strings.ToUpper(answer)
	var declType string
	switch {
	case strings.Contains(upper, "ALLERGY"):
		declType = "allergy"
	case strings.Contains(upper, "DISLIKE"):
		declType = "dislike"
	default:
		return Declaration{}, completion.Usage
	}

	var items []string
	if _, after, ok := strings.Cut(answer, "재료:"); ok {
		line := after
		if nl := strings.IndexByte(line, '\n'); nl >= 0 {
			line = line[:nl]
		}
		for _, item := range strings.Split(line, ",") {
			item = strings.TrimSpace(item)
			if item != "" && item != "없음" {
				items = append(items, item)
			}
		}
	}
	if len(items) == 0 {
		return Declaration{}, completion.Usage
	}
	return Declaration{Type: declType, Items: items}, completion.Usage
}

// garbledResponse catches degenerate completions: near-zero whitespace runs
// of tokens, or output carrying none of the expected markers.
func garbledResponse(answer string) bool {
	runes := []rune(answer)
	if len(runes) == 0 {
		return true
	}
	spaces := 0
	for _, r := range runes {
		if r == ' ' || r == '\n' {
			spaces++
		}
	}
	if float64(spaces)/float64(len(runes)) < 0.05 {
		return true
	}
	return !containsAny(answer, declarationResponseMarkers)
}

func (c *Classifier) fallbackDeclaration(text string) Declaration {
	corrected := strings.ToLower(text)
	for _, typo := range declarationTypos {
		corrected = strings.ReplaceAll(corrected, typo[0], typo[1])
	}

	var declType string
	var keywords []string
	switch {
	case containsAny(corrected, allergyKeywords):
		declType = "allergy"
		keywords = allergyKeywords
	case containsAny(corrected, dislikeKeywords):
		declType = "dislike"
		keywords = dislikeKeywords
	default:
		return Declaration{}
	}

	compact := strings.ReplaceAll(strings.ToLower(text), " ", "")
	seen := make(map[string]struct{})
	var items []string
	for _, keyword := range keywords {
		pattern := regexp.MustCompile(`([가-힣]+)\s*` + regexp.QuoteMeta(keyword))
		for _, source := range []string{corrected, compact} {
			for _, match := range pattern.FindAllStringSubmatch(source, -1) {
				item := match[1]
				if item == "" || item == keyword {
					continue
				}
				if _, ok := seen[item]; ok {
					continue
				}
				seen[item] = struct{}{}
				items = append(items, item)
			}
		}
	}
	if len(items) == 0 {
		return Declaration{}
	}
	return Declaration{Type: declType, Items: items}
}
