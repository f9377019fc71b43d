package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostprocessRecipe(t *testing.T) {
	t.Run("strips trailing procedure section", func(t *testing.T) {
		raw := "**[김치찌개]**\n⏱️ 30분 | 📊 초급 | 👥 2인분\n소개: 김치를 활용한 찌개.\n재료: 김치 200g, 두부 1/2모\n조리법: 김치를 볶는다"
		got := PostprocessRecipe(raw)
		assert.NotContains(t, got, "조리법")
		assert.Contains(t, got, "재료: 김치 200g, 두부 1/2모")
	})

	t.Run("strips numbered steps", func(t *testing.T) {
		raw := "**[김치찌개]**\n재료: 김치 200g\n📊 초급\n1. 김치를 볶는다\n2. 물을 붓는다"
		got := PostprocessRecipe(raw)
		assert.NotContains(t, got, "김치를 볶는다")
	})

	t.Run("removes safety echo lines", func(t *testing.T) {
		raw := "알레르기 재료 주의가 필요합니다\n**[새우볶음밥]**\n재료: 새우 100g, 밥 1공기"
		got := PostprocessRecipe(raw)
		assert.NotContains(t, got, "알레르기 재료")
	})

	t.Run("cleans intro tone and normalizes header", func(t *testing.T) {
		raw := "**[딸기 케이크]**\n**소개:** 딸기로 만든 케이크입니다~ 알려드릴게요!\n재료: 딸기 300g"
		got := PostprocessRecipe(raw)
		assert.Contains(t, got, "소개: 딸기로 만든 케이크입니다.")
		assert.NotContains(t, got, "~")
		assert.NotContains(t, got, "알려드릴게요")
	})

	t.Run("drops vaguely quantified ingredients", func(t *testing.T) {
		raw := "**[볶음밥]**\n재료: 밥 1공기, 소금 약간, 간장 적당량, 대파 1대"
		got := PostprocessRecipe(raw)
		assert.Contains(t, got, "재료: 밥 1공기, 대파 1대")
		assert.NotContains(t, got, "약간")
		assert.NotContains(t, got, "적당량")
	})

	t.Run("idempotent on clean output", func(t *testing.T) {
		raw := "**[김치찌개]**\n⏱️ 30분 | 📊 초급 | 👥 2인분\n**소개:** 김치를 활용한 찌개 요리입니다~\n**재료:** 김치 200g, 두부 약간, 대파 1대\n조리법: 김치를 볶는다"
		once := PostprocessRecipe(raw)
		twice := PostprocessRecipe(once)
		assert.Equal(t, once, twice)
	})
}

func TestPostprocessModification(t *testing.T) {
	t.Run("collapses multi-line ingredient list", func(t *testing.T) {
		raw := strings.Join([]string{
			"변경: 돼지고기를 참치로 교체",
			"참치 김치찌개",
			"⏱️ 30분 | 📊 초급 | 👥 2인분",
			"**소개:** 참치와 김치를 활용한 찌개.",
			"**재료:**",
			"- 김치 200g",
			"- 참치캔 1개",
		}, "\n")
		got := PostprocessModification(raw)
		assert.Contains(t, got, "재료: 김치 200g, 참치캔 1개")
		assert.Contains(t, got, "소개: 참치와 김치를 활용한 찌개.")
		assert.NotContains(t, got, "**재료:**")
	})

	t.Run("cuts trailing bold section after ingredients", func(t *testing.T) {
		raw := "변경: 양파 제거\n양파 없는 볶음밥\n재료: 밥 1공기, 계란 2개\n**팁** 센 불에서 볶으세요"
		got := PostprocessModification(raw)
		assert.Contains(t, got, "재료: 밥 1공기, 계란 2개")
		assert.NotContains(t, got, "팁")
	})

	t.Run("idempotent", func(t *testing.T) {
		raw := "변경: 양파 제거\n볶음밥\n⏱️ 15분 | 📊 초급 | 👥 1인분\n소개: 간단한 볶음밥.\n재료: 밥 1공기, 계란 2개"
		once := PostprocessModification(raw)
		assert.Equal(t, once, PostprocessModification(once))
		assert.Equal(t, raw, once)
	})
}
