package chat

import "strings"

// VerdictKind is the outcome of the pre-search constraint check.
type VerdictKind string

const (
	// VerdictProceed lets the search run.
	VerdictProceed VerdictKind = "proceed"
	// VerdictAllergyBlock refuses the search outright.
	VerdictAllergyBlock VerdictKind = "allergy_block"
	// VerdictDislikeConfirm pauses the search for a yes/no on disliked food.
	VerdictDislikeConfirm VerdictKind = "dislike_confirm"
	// VerdictLedgerConfirm pauses the search for a yes/no on previously
	// excluded ingredients.
	VerdictLedgerConfirm VerdictKind = "ledger_confirm"
)

// Verdict is the constraint decision for one search query.
type Verdict struct {
	Kind  VerdictKind
	Items []string
}

// CheckSearch screens a search query against the member's constraints before
// any retrieval runs. Allergies block unconditionally and are checked first;
// dislikes ask for confirmation unless already waived this session; ledger
// exclusions ask last. Allergy and dislike checks need a member profile, the
// ledger check applies to everyone.
func CheckSearch(query string, profile Personalization, allowedDislikes []string, ledger *Ledger) Verdict {
	queryLower := strings.ToLower(query)

	if profile.MemberID > 0 {
		if matched := matchSubstrings(queryLower, profile.Allergies); len(matched) > 0 {
			return Verdict{Kind: VerdictAllergyBlock, Items: matched}
		}

		waived := make(map[string]struct{}, len(allowedDislikes))
		for _, item := range allowedDislikes {
			waived[item] = struct{}{}
		}
		var matched []string
		for _, item := range matchSubstrings(queryLower, profile.Dislikes) {
			if _, ok := waived[item]; !ok {
				matched = append(matched, item)
			}
		}
		if len(matched) > 0 {
			return Verdict{Kind: VerdictDislikeConfirm, Items: matched}
		}
	}

	if conflicted := ledger.ConflictsWith(query); len(conflicted) > 0 {
		return Verdict{Kind: VerdictLedgerConfirm, Items: conflicted}
	}
	return Verdict{Kind: VerdictProceed}
}

func matchSubstrings(queryLower string, items []string) []string {
	var matched []string
	for _, item := range items {
		if item != "" && strings.Contains(queryLower, strings.ToLower(item)) {
			matched = append(matched, item)
		}
	}
	return matched
}

// ConstraintWarning renders the constraint callouts placed above a generated
// answer when the search query itself names a restricted ingredient. A
// restricted ingredient that merely appears inside a retrieved document does
// not trigger it.
func ConstraintWarning(query string, profile Personalization) string {
	queryLower := strings.ToLower(query)
	var lines []string
	for _, item := range profile.Allergies {
		if item != "" && strings.Contains(queryLower, strings.ToLower(item)) {
			lines = append(lines, "**"+item+"**는 알레르기 재료입니다!")
		}
	}
	for _, item := range profile.Dislikes {
		if item != "" && strings.Contains(queryLower, strings.ToLower(item)) {
			lines = append(lines, "**"+item+"**는 싫어하는 음식입니다.")
		}
	}
	return strings.Join(lines, "\n")
}
