// Package chat implements the dialog orchestrator: intent classification,
// the adaptive retrieval pipeline, recipe modification with its ledger, and
// the constraint confirmation protocol, all driven over websocket frames.
package chat

import (
	"strings"
	"time"
)

// Intent is the classified purpose of a user message.
type Intent string

const (
	IntentRecipeSearch    Intent = "recipe_search"
	IntentRecipeModify    Intent = "recipe_modify"
	IntentCookingQuestion Intent = "cooking_question"
	IntentNotCooking      Intent = "not_cooking"
)

// ModificationType categorizes a recipe mutation request.
type ModificationType string

const (
	ModRemove  ModificationType = "remove"
	ModReplace ModificationType = "replace"
	ModAdd     ModificationType = "add"
	ModModify  ModificationType = "modify"
)

// ModificationEntry is one append-only ledger record of a recipe mutation.
type ModificationEntry struct {
	Request           string           `json:"request"`
	Type              ModificationType `json:"type"`
	RemoveIngredients []string         `json:"remove_ingredients"`
	AddIngredients    []string         `json:"add_ingredients"`
	Timestamp         time.Time        `json:"timestamp"`
}

// Personalization is the member context delivered at init.
type Personalization struct {
	MemberID  int64    `json:"member_id"`
	Names     []string `json:"names"`
	Allergies []string `json:"allergies"`
	Dislikes  []string `json:"dislikes"`
	Utensils  []string `json:"utensils"`
}

// Servings derives the portion count from the selected family members.
func (p Personalization) Servings() int {
	if len(p.Names) > 0 {
		return len(p.Names)
	}
	return 1
}

// Message is one dialog turn in the session transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Image   string `json:"image,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	replaceKeywords    = []string{"대신", "말고", "바꿔", "교체"}
	addKeywords        = []string{"추가", "넣어", "로"}
	removeKeywords     = []string{"빼", "제거", "없이", "없어", "없는", "없다"}
	plainAddKeywords   = []string{"추가", "넣어"}
	replaceOnlyKeyword = []string{"대신", "바꿔", "교체", "말고"}
)

// ClassifyModification maps a mutation request to its type. Replace phrasing
// combined with add phrasing wins first ("A 말고 B 넣어줘"), then removal,
// then replace alone, then addition; anything else is a free-form modify.
func ClassifyModification(request string) ModificationType {
	if containsAny(request, replaceKeywords) && containsAny(request, addKeywords) {
		return ModReplace
	}
	if containsAny(request, removeKeywords) {
		return ModRemove
	}
	if containsAny(request, replaceOnlyKeyword) {
		return ModReplace
	}
	if containsAny(request, plainAddKeywords) {
		return ModAdd
	}
	return ModModify
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}

// HasRecipeMarker reports whether an assistant message is a recipe card:
// it mentions ingredients and carries the time or difficulty glyph.
func HasRecipeMarker(content string) bool {
	return strings.Contains(content, "재료") &&
		(strings.Contains(content, "⏱️") || strings.Contains(content, "📊"))
}
