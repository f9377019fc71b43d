package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/recipeu/agent/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classifierWith(respond func(req llms.Request) (string, error)) (*Classifier, *fakeLLM) {
	llm := &fakeLLM{respond: respond}
	return NewClassifier(llm, testLogger()), llm
}

func TestDetectIntent(t *testing.T) {
	tests := []struct {
		name     string
		decision string
		want     Intent
	}{
		{"search", "RECIPE_SEARCH", IntentRecipeSearch},
		{"search with noise", "답: recipe_search 입니다", IntentRecipeSearch},
		{"modify", "RECIPE_MODIFY", IntentRecipeModify},
		{"modify shorthand", "MODIFY", IntentRecipeModify},
		{"not cooking", "NOT_COOKING", IntentNotCooking},
		{"not cooking no underscore", "NOTCOOKING", IntentNotCooking},
		{"question", "COOKING_QUESTION", IntentCookingQuestion},
		{"bare question", "QUESTION", IntentCookingQuestion},
		{"garbage defaults to search", "모르겠어요", IntentRecipeSearch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier, _ := classifierWith(func(llms.Request) (string, error) {
				return tt.decision, nil
			})
			intent, usage := classifier.DetectIntent(context.Background(), "아무 질문", false)
			assert.Equal(t, tt.want, intent)
			assert.Equal(t, 15, usage.TotalTokens)
		})
	}
}

func TestDetectIntent_RecipeFlagInPrompt(t *testing.T) {
	classifier, llm := classifierWith(func(llms.Request) (string, error) {
		return "RECIPE_SEARCH", nil
	})
	classifier.DetectIntent(context.Background(), "김치찌개", true)
	require.Len(t, llm.calls, 1)
	assert.Contains(t, llm.calls[0].Prompt, "레시피: Y")
}

func TestDetectIntent_KeywordFallback(t *testing.T) {
	classifier, _ := classifierWith(func(llms.Request) (string, error) {
		return "", errors.New("model down")
	})

	t.Run("off-topic keyword", func(t *testing.T) {
		intent, _ := classifier.DetectIntent(context.Background(), "오늘 날씨 어때?", false)
		assert.Equal(t, IntentNotCooking, intent)
	})

	t.Run("modification keyword needs prior recipe", func(t *testing.T) {
		intent, _ := classifier.DetectIntent(context.Background(), "양파 빼줘", true)
		assert.Equal(t, IntentRecipeModify, intent)

		intent, _ = classifier.DetectIntent(context.Background(), "양파 빼줘", false)
		assert.Equal(t, IntentRecipeSearch, intent)
	})

	t.Run("defaults to search", func(t *testing.T) {
		intent, _ := classifier.DetectIntent(context.Background(), "김치찌개", false)
		assert.Equal(t, IntentRecipeSearch, intent)
	})
}

func TestDetectDeclaration(t *testing.T) {
	t.Run("allergy with items", func(t *testing.T) {
		classifier, _ := classifierWith(func(llms.Request) (string, error) {
			return "타입: ALLERGY\n재료: 새우, 게", nil
		})
		decl, _ := classifier.DetectDeclaration(context.Background(), "새우랑 게 먹으면 배아파", false)
		assert.Equal(t, "allergy", decl.Type)
		assert.Equal(t, []string{"새우", "게"}, decl.Items)
	})

	t.Run("dislike", func(t *testing.T) {
		classifier, _ := classifierWith(func(llms.Request) (string, error) {
			return "타입: DISLIKE\n재료: 고수", nil
		})
		decl, _ := classifier.DetectDeclaration(context.Background(), "나 고수 싫어해", false)
		assert.Equal(t, "dislike", decl.Type)
		assert.Equal(t, []string{"고수"}, decl.Items)
	})

	t.Run("none", func(t *testing.T) {
		classifier, _ := classifierWith(func(llms.Request) (string, error) {
			return "타입: NONE\n재료: 없음", nil
		})
		decl, _ := classifier.DetectDeclaration(context.Background(), "고수덮밥 먹을까", false)
		assert.Empty(t, decl.Type)
	})

	t.Run("type without items is discarded", func(t *testing.T) {
		classifier, _ := classifierWith(func(llms.Request) (string, error) {
			return "타입: DISLIKE\n재료: 없음", nil
		})
		decl, _ := classifier.DetectDeclaration(context.Background(), "그건 좀 싫다", false)
		assert.Empty(t, decl.Type)
	})

	t.Run("modification phrasing short-circuits with a recipe", func(t *testing.T) {
		classifier, llm := classifierWith(func(llms.Request) (string, error) {
			t.Fatal("model must not be called")
			return "", nil
		})
		decl, _ := classifier.DetectDeclaration(context.Background(), "후추 빼 고", true)
		assert.Empty(t, decl.Type)
		assert.Empty(t, llm.calls)
	})

	t.Run("garbled output falls back to keywords", func(t *testing.T) {
		classifier, _ := classifierWith(func(llms.Request) (string, error) {
			return "ㅁㄴㅇㄹㅁㄴㅇㄹㅁㄴㅇㄹㅁㄴㅇㄹㅁㄴㅇㄹ", nil
		})
		decl, _ := classifier.DetectDeclaration(context.Background(), "새우 알러지 있어", false)
		assert.Equal(t, "allergy", decl.Type)
		assert.Contains(t, decl.Items, "새우")
	})
}

func TestFallbackDeclaration(t *testing.T) {
	classifier, _ := classifierWith(func(llms.Request) (string, error) {
		return "", errors.New("model down")
	})

	t.Run("allergy wins over dislike", func(t *testing.T) {
		decl, _ := classifier.DetectDeclaration(context.Background(), "새우 알러지 있어서 싫어", false)
		assert.Equal(t, "allergy", decl.Type)
	})

	t.Run("dislike extraction", func(t *testing.T) {
		decl, _ := classifier.DetectDeclaration(context.Background(), "고수 싫어해", false)
		assert.Equal(t, "dislike", decl.Type)
		assert.Contains(t, decl.Items, "고수")
	})

	t.Run("typo correction", func(t *testing.T) {
		decl, _ := classifier.DetectDeclaration(context.Background(), "고수 싷어", false)
		assert.Equal(t, "dislike", decl.Type)
	})

	t.Run("no declaration", func(t *testing.T) {
		decl, _ := classifier.DetectDeclaration(context.Background(), "김치찌개 끓여줘", false)
		assert.Empty(t, decl.Type)
	})
}
