package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/recipeu/agent/pkg/llms"
	"github.com/recipeu/agent/pkg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLLM answers each pipeline stage by recognizing its prompt.
func scriptedLLM(rewrite, grade, generate string) *fakeLLM {
	return &fakeLLM{respond: func(req llms.Request) (string, error) {
		switch {
		case promptContains(req, "요리명 1-5단어"):
			return rewrite, nil
		case promptContains(req, "요리명 매칭?"):
			return grade, nil
		case promptContains(req, "[검색 결과]"):
			return generate, nil
		case promptContains(req, "그래도 레시피를 원하시나요"):
			return "네, 원하시면 만들어드릴 수 있습니다.", nil
		}
		return "", errors.New("unexpected prompt")
	}}
}

func kimchiDocs() []search.Document {
	return []search.Document{
		{Title: "김치찌개", Content: "김치찌개 만드는 법: 김치 200g, 두부 1/2모", VectorScore: 0.9},
	}
}

func TestPipeline_RunSearch(t *testing.T) {
	t.Run("relevant corpus hit generates directly", func(t *testing.T) {
		recipeCard := "**[김치찌개]**\n⏱️ 30분 | 📊 초급 | 👥 1인분\n소개: 김치를 활용한 찌개.\n재료: 김치 200g, 두부 1/2모"
		llm := scriptedLLM("김치찌개", "yes", recipeCard)
		web := &fakeWebSearch{}
		pipeline := NewPipeline(llm, &fakeRetriever{docs: kimchiDocs()}, web, 3, testLogger())

		var ledger Ledger
		stats := NewRequestStats()
		result, err := pipeline.RunSearch(context.Background(), "김치찌개 끓이는 법",
			nil, Personalization{}, &ledger, stats)
		require.NoError(t, err)
		assert.Equal(t, recipeCard, result.Answer)
		assert.False(t, web.called)
		assert.Len(t, result.Documents, 1)

		stages := make(map[string]bool)
		for _, record := range stats.Stages() {
			stages[record.Stage] = true
		}
		for _, stage := range []string{"rewrite", "retrieve", "check_constraints", "grade", "generate"} {
			assert.True(t, stages[stage], "missing stage %s", stage)
		}
		assert.False(t, stages["web_search"])
	})

	t.Run("empty corpus routes to web search", func(t *testing.T) {
		llm := scriptedLLM("마라탕", "yes", "**[마라탕]**\n재료: 마라소스 50g")
		web := &fakeWebSearch{docs: []search.Document{{Title: "마라탕", Content: "마라탕 레시피", Source: "serper_dev"}}}
		pipeline := NewPipeline(llm, &fakeRetriever{}, web, 3, testLogger())

		var ledger Ledger
		result, err := pipeline.RunSearch(context.Background(), "마라탕",
			nil, Personalization{}, &ledger, NewRequestStats())
		require.NoError(t, err)
		assert.True(t, web.called)
		assert.Equal(t, "serper_dev", result.Documents[0].Source)
	})

	t.Run("title mismatch routes to web search without grading", func(t *testing.T) {
		llm := &fakeLLM{respond: func(req llms.Request) (string, error) {
			if promptContains(req, "요리명 매칭?") {
				return "", errors.New("grade must not run on title mismatch")
			}
			if promptContains(req, "요리명 1-5단어") {
				return "마라탕", nil
			}
			return "**[마라탕]**\n재료: 마라소스 50g", nil
		}}
		web := &fakeWebSearch{docs: []search.Document{{Content: "마라탕 레시피"}}}
		pipeline := NewPipeline(llm, &fakeRetriever{docs: kimchiDocs()}, web, 3, testLogger())

		var ledger Ledger
		_, err := pipeline.RunSearch(context.Background(), "마라탕",
			nil, Personalization{}, &ledger, NewRequestStats())
		require.NoError(t, err)
		assert.True(t, web.called)
	})

	t.Run("negative grade routes to web search", func(t *testing.T) {
		llm := scriptedLLM("김치찌개", "no", "**[김치찌개]**\n재료: 김치 200g")
		web := &fakeWebSearch{}
		pipeline := NewPipeline(llm, &fakeRetriever{docs: kimchiDocs()}, web, 3, testLogger())

		var ledger Ledger
		_, err := pipeline.RunSearch(context.Background(), "김치찌개",
			nil, Personalization{}, &ledger, NewRequestStats())
		require.NoError(t, err)
		assert.True(t, web.called)
	})

	t.Run("query naming an allergen prepends warning", func(t *testing.T) {
		docs := []search.Document{{Title: "새우볶음밥", Content: "새우 100g을 넣고 볶는다"}}
		llm := scriptedLLM("새우볶음밥", "yes", "unused")
		pipeline := NewPipeline(llm, &fakeRetriever{docs: docs}, &fakeWebSearch{}, 3, testLogger())

		var ledger Ledger
		profile := Personalization{MemberID: 1, Allergies: []string{"새우"}}
		result, err := pipeline.RunSearch(context.Background(), "새우볶음밥",
			nil, profile, &ledger, NewRequestStats())
		require.NoError(t, err)
		assert.Contains(t, result.Answer, "**새우**는 알레르기 재료입니다!")
		assert.Contains(t, result.Answer, "네, 원하시면 만들어드릴 수 있습니다.")
	})

	t.Run("restricted ingredient inside a document does not hijack generation", func(t *testing.T) {
		recipeCard := "**[김치찌개]**\n⏱️ 30분 | 📊 초급 | 👥 1인분\n소개: 김치를 활용한 찌개.\n재료: 김치 200g, 당근 1개"
		docs := []search.Document{{Title: "김치찌개", Content: "김치 200g, 당근 1개를 넣는다"}}
		llm := scriptedLLM("김치찌개", "yes", recipeCard)
		pipeline := NewPipeline(llm, &fakeRetriever{docs: docs}, &fakeWebSearch{}, 3, testLogger())

		var ledger Ledger
		profile := Personalization{MemberID: 1, Dislikes: []string{"당근"}}
		result, err := pipeline.RunSearch(context.Background(), "김치찌개",
			nil, profile, &ledger, NewRequestStats())
		require.NoError(t, err)
		assert.Equal(t, recipeCard, result.Answer)
		assert.NotContains(t, result.Answer, "싫어하는 음식")
	})

	t.Run("ledger exclusions reach the generate prompt", func(t *testing.T) {
		var generatePromptSeen string
		llm := &fakeLLM{respond: func(req llms.Request) (string, error) {
			switch {
			case promptContains(req, "요리명 1-5단어"):
				return "김치찌개", nil
			case promptContains(req, "요리명 매칭?"):
				return "yes", nil
			}
			generatePromptSeen = req.Prompt
			return "**[김치찌개]**\n재료: 김치 200g", nil
		}}
		pipeline := NewPipeline(llm, &fakeRetriever{docs: kimchiDocs()}, &fakeWebSearch{}, 3, testLogger())

		var ledger Ledger
		ledger.Append(ModificationEntry{Type: ModRemove, RemoveIngredients: []string{"양파"}})
		_, err := pipeline.RunSearch(context.Background(), "김치찌개",
			nil, Personalization{}, &ledger, NewRequestStats())
		require.NoError(t, err)
		assert.Contains(t, generatePromptSeen, "이전 수정사항 (반드시 반영)")
		assert.Contains(t, generatePromptSeen, "제외: 양파")
	})

	t.Run("generation failure yields fallback answer", func(t *testing.T) {
		llm := &fakeLLM{respond: func(req llms.Request) (string, error) {
			switch {
			case promptContains(req, "요리명 1-5단어"):
				return "김치찌개", nil
			case promptContains(req, "요리명 매칭?"):
				return "yes", nil
			}
			return "", errors.New("model down")
		}}
		pipeline := NewPipeline(llm, &fakeRetriever{docs: kimchiDocs()}, &fakeWebSearch{}, 3, testLogger())

		var ledger Ledger
		result, err := pipeline.RunSearch(context.Background(), "김치찌개",
			nil, Personalization{}, &ledger, NewRequestStats())
		require.NoError(t, err)
		assert.Equal(t, "답변 생성에 실패했습니다.", result.Answer)
	})

	t.Run("canceled context aborts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		llm := scriptedLLM("김치찌개", "yes", "답")
		pipeline := NewPipeline(llm, &fakeRetriever{docs: kimchiDocs()}, &fakeWebSearch{}, 3, testLogger())

		var ledger Ledger
		_, err := pipeline.RunSearch(ctx, "김치찌개", nil, Personalization{}, &ledger, NewRequestStats())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPipeline_AnswerQuestion(t *testing.T) {
	llm := &fakeLLM{respond: func(req llms.Request) (string, error) {
		if promptContains(req, "요리 전문가 답변") {
			return "밀폐 용기에 담아 냉장 보관하면 3일 정도 안전합니다.", nil
		}
		return "", errors.New("unexpected prompt")
	}}
	pipeline := NewPipeline(llm, &fakeRetriever{}, &fakeWebSearch{}, 3, testLogger())

	answer, err := pipeline.AnswerQuestion(context.Background(), "김치찌개 보관법",
		[]Message{{Role: RoleUser, Content: "김치찌개 끓였어"}}, NewRequestStats())
	require.NoError(t, err)
	assert.Contains(t, answer, "냉장 보관")
}
