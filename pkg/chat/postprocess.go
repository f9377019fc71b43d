package chat

import (
	"regexp"
	"strings"
)

// Postprocessing normalizes raw model output into the canonical recipe card
// layout. It is idempotent: running it over already-clean output is a no-op.

var (
	procedurePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\n\*\*조리법\*\*[\s:：]+`),
		regexp.MustCompile(`\n조리법[\s:：]+`),
		regexp.MustCompile(`\n\d+\.\s+`),
	}

	safetyLinePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\*알레르기[^\n]*\n?`),
		regexp.MustCompile(`알레르기 재료[^\n]*\n?`),
		regexp.MustCompile(`비선호 음식[^\n]*\n?`),
	}

	jamoRunPattern  = regexp.MustCompile(`[ᄀ-ᄒ]{2,}`)
	emoticonPattern = regexp.MustCompile(`[:;]\)|:\(|\^\^|ㅎㅎ|ㅋㅋ`)

	casualPhrases = []*regexp.Regexp{
		regexp.MustCompile(`레시피를 알려드릴게요[!\s]*`),
		regexp.MustCompile(`알려드릴게요[!\s]*`),
		regexp.MustCompile(`소개해드릴게요[!\s]*`),
		regexp.MustCompile(`드릴게요[!\s]*`),
		regexp.MustCompile(`그만큼[^\n]*?있답니다`),
		regexp.MustCompile(`답니다[:\s]*`),
		regexp.MustCompile(`하죠[!\s]*`),
		regexp.MustCompile(`요[~]+`),
		regexp.MustCompile(`[~]+`),
	}

	introHeaderPattern      = regexp.MustCompile(`(?:\*\*소개:\*\*|소개\s*:)\s*`)
	ingredientHeaderPattern = regexp.MustCompile(`(?:\*\*재료:\*\*|재료\s*:)\s*`)
	boldSectionPattern      = regexp.MustCompile(`\n\*\*`)

	bulletPrefixPattern = regexp.MustCompile(`^[-*]\s*`)
	quantityPattern     = regexp.MustCompile(`\d+|[가-힣]+스푼|작은술|큰술|컵|개|대|ml|g|kg|L|방울|꼬집`)

	vagueTerms = []string{"약간", "적당량", "조금", "넉넉히", "충분히", "적절히", "취향껏", "소량", "다량"}

	spaceRunPattern = regexp.MustCompile(`[ \t]{2,}`)
)

// PostprocessRecipe cleans a generated recipe card: drops any trailing
// procedure section, removes safety echo lines, normalizes the intro tone
// and keeps only concretely quantified ingredients.
func PostprocessRecipe(answer string) string {
	text := strings.TrimSpace(answer)

	for _, pattern := range procedurePatterns {
		if loc := pattern.FindStringIndex(text); loc != nil {
			text = strings.TrimSpace(text[:loc[0]])
			break
		}
	}

	for _, pattern := range safetyLinePatterns {
		text = pattern.ReplaceAllString(text, "")
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if loc := introHeaderPattern.FindStringIndex(line); loc != nil && loc[0] == 0 {
			lines[i] = "소개: " + cleanIntro(line[loc[1]:])
			continue
		}
		if loc := ingredientHeaderPattern.FindStringIndex(line); loc != nil && loc[0] == 0 {
			lines[i] = "재료: " + normalizeIngredientList(line[loc[1]:])
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func cleanIntro(intro string) string {
	intro = jamoRunPattern.ReplaceAllString(intro, "")
	intro = emoticonPattern.ReplaceAllString(intro, "")
	for _, phrase := range casualPhrases {
		intro = phrase.ReplaceAllString(intro, "")
	}
	intro = spaceRunPattern.ReplaceAllString(intro, " ")
	intro = strings.TrimSpace(intro)
	if intro != "" && !strings.HasSuffix(intro, ".") {
		intro += "."
	}
	return intro
}

func normalizeIngredientList(raw string) string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	var kept []string
	for _, part := range parts {
		item := strings.TrimSpace(bulletPrefixPattern.ReplaceAllString(strings.TrimSpace(part), ""))
		if item == "" || containsAny(item, vagueTerms) {
			continue
		}
		if !quantityPattern.MatchString(item) {
			continue
		}
		kept = append(kept, item)
	}
	if len(kept) == 0 {
		return strings.TrimSpace(raw)
	}
	return strings.Join(kept, ", ")
}

// PostprocessModification canonicalizes a modified recipe card. The model
// sometimes emits the ingredient list over several lines or with bold
// headers; the output always uses plain "소개:" and "재료:" single lines.
func PostprocessModification(answer string) string {
	text := strings.TrimSpace(answer)

	parts := ingredientHeaderPattern.Split(text, 2)
	if len(parts) == 2 {
		head, tail := parts[0], parts[1]
		if loc := boldSectionPattern.FindStringIndex(tail); loc != nil {
			tail = tail[:loc[0]]
		}
		items := strings.FieldsFunc(tail, func(r rune) bool {
			return r == ',' || r == '\n'
		})
		var kept []string
		for _, item := range items {
			item = strings.TrimSpace(bulletPrefixPattern.ReplaceAllString(strings.TrimSpace(item), ""))
			if item != "" {
				kept = append(kept, item)
			}
		}
		text = strings.TrimSpace(head) + "\n재료: " + strings.Join(kept, ", ")
	}

	if m := introHeaderPattern.FindStringIndex(text); m != nil {
		rest := text[m[1]:]
		end := len(rest)
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			end = nl
		}
		intro := strings.TrimSpace(rest[:end])
		text = text[:m[0]] + "소개: " + intro + rest[end:]
	}

	return strings.TrimSpace(text)
}
