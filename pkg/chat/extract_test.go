package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/recipeu/agent/pkg/llms"
	"github.com/stretchr/testify/assert"
)

func extractorWith(respond func(req llms.Request) (string, error)) *Extractor {
	return NewExtractor(&fakeLLM{respond: respond}, testLogger())
}

func TestExtractReplacement(t *testing.T) {
	t.Run("parses model output", func(t *testing.T) {
		extractor := extractorWith(func(llms.Request) (string, error) {
			return "제거: 돼지고기\n추가: 참치", nil
		})
		removes, adds, _ := extractor.ExtractReplacement(context.Background(), "돼지고기 말고 참치 넣어줘")
		assert.Equal(t, []string{"돼지고기"}, removes)
		assert.Equal(t, []string{"참치"}, adds)
	})

	t.Run("regex fallback on model failure", func(t *testing.T) {
		extractor := extractorWith(func(llms.Request) (string, error) {
			return "", errors.New("model down")
		})
		removes, adds, _ := extractor.ExtractReplacement(context.Background(), "돼지고기 말고 참치 넣어줘")
		assert.Equal(t, []string{"돼지고기"}, removes)
		assert.Equal(t, []string{"참치"}, adds)
	})

	t.Run("fallback when model returns nothing usable", func(t *testing.T) {
		extractor := extractorWith(func(llms.Request) (string, error) {
			return "잘 모르겠습니다", nil
		})
		removes, adds, _ := extractor.ExtractReplacement(context.Background(), "양파 말고 대파")
		assert.Equal(t, []string{"양파"}, removes)
		assert.Equal(t, []string{"대파"}, adds)
	})
}

func TestExtractIngredients(t *testing.T) {
	t.Run("parses comma separated names", func(t *testing.T) {
		extractor := extractorWith(func(llms.Request) (string, error) {
			return "딸기, 블루베리", nil
		})
		items, _ := extractor.ExtractIngredients(context.Background(), "딸기 블루베리 추가해줘")
		assert.Equal(t, []string{"딸기", "블루베리"}, items)
	})

	t.Run("empty answer routes to fallback", func(t *testing.T) {
		extractor := extractorWith(func(llms.Request) (string, error) {
			return "없음", nil
		})
		items, _ := extractor.ExtractIngredients(context.Background(), "참치 빼줘")
		assert.Equal(t, []string{"참치"}, items)
	})

	t.Run("model failure routes to fallback", func(t *testing.T) {
		extractor := extractorWith(func(llms.Request) (string, error) {
			return "", errors.New("model down")
		})
		items, _ := extractor.ExtractIngredients(context.Background(), "양파 빼고 해주세요")
		assert.Equal(t, []string{"양파"}, items)
	})
}

func TestFallbackIngredients(t *testing.T) {
	t.Run("particle between name and keyword", func(t *testing.T) {
		assert.Equal(t, []string{"간장"}, fallbackIngredients("간장이 없어"))
	})

	t.Run("location words excluded", func(t *testing.T) {
		items := fallbackIngredients("집에 간장이 없어")
		assert.Contains(t, items, "간장")
		assert.NotContains(t, items, "집")
	})

	t.Run("location-only absence yields nothing", func(t *testing.T) {
		assert.Empty(t, fallbackIngredients("냉장고 없어"))
	})

	t.Run("single-rune matches dropped", func(t *testing.T) {
		assert.Empty(t, fallbackIngredients("아 빼줘"))
	})

	t.Run("no keyword at all", func(t *testing.T) {
		assert.Empty(t, fallbackIngredients("알려줘"))
	})
}
