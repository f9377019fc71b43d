package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckSearch(t *testing.T) {
	member := Personalization{
		MemberID:  7,
		Allergies: []string{"새우"},
		Dislikes:  []string{"고수"},
	}

	t.Run("clean query proceeds", func(t *testing.T) {
		var ledger Ledger
		verdict := CheckSearch("김치찌개 레시피", member, nil, &ledger)
		assert.Equal(t, VerdictProceed, verdict.Kind)
	})

	t.Run("allergy blocks", func(t *testing.T) {
		var ledger Ledger
		verdict := CheckSearch("새우볶음밥 알려줘", member, nil, &ledger)
		assert.Equal(t, VerdictAllergyBlock, verdict.Kind)
		assert.Equal(t, []string{"새우"}, verdict.Items)
	})

	t.Run("allergy outranks dislike and ledger", func(t *testing.T) {
		var ledger Ledger
		ledger.Append(ModificationEntry{Type: ModRemove, RemoveIngredients: []string{"새우"}})
		verdict := CheckSearch("새우 고수 무침", member, nil, &ledger)
		assert.Equal(t, VerdictAllergyBlock, verdict.Kind)
	})

	t.Run("dislike asks for confirmation", func(t *testing.T) {
		var ledger Ledger
		verdict := CheckSearch("고수 비빔밥", member, nil, &ledger)
		assert.Equal(t, VerdictDislikeConfirm, verdict.Kind)
		assert.Equal(t, []string{"고수"}, verdict.Items)
	})

	t.Run("waived dislike passes through", func(t *testing.T) {
		var ledger Ledger
		verdict := CheckSearch("고수 비빔밥", member, []string{"고수"}, &ledger)
		assert.Equal(t, VerdictProceed, verdict.Kind)
	})

	t.Run("ledger exclusion asks last", func(t *testing.T) {
		var ledger Ledger
		ledger.Append(ModificationEntry{Type: ModRemove, RemoveIngredients: []string{"양파"}})
		verdict := CheckSearch("양파 수프", member, nil, &ledger)
		assert.Equal(t, VerdictLedgerConfirm, verdict.Kind)
		assert.Equal(t, []string{"양파"}, verdict.Items)
	})

	t.Run("ledger applies to guests too", func(t *testing.T) {
		var ledger Ledger
		ledger.Append(ModificationEntry{Type: ModRemove, RemoveIngredients: []string{"양파"}})
		verdict := CheckSearch("양파 수프", Personalization{}, nil, &ledger)
		assert.Equal(t, VerdictLedgerConfirm, verdict.Kind)
	})

	t.Run("guest skips allergy and dislike checks", func(t *testing.T) {
		var ledger Ledger
		guest := Personalization{Allergies: []string{"새우"}, Dislikes: []string{"고수"}}
		verdict := CheckSearch("새우 고수 무침", guest, nil, &ledger)
		assert.Equal(t, VerdictProceed, verdict.Kind)
	})
}

func TestConstraintWarning(t *testing.T) {
	profile := Personalization{
		Allergies: []string{"새우"},
		Dislikes:  []string{"고수"},
	}

	t.Run("flags restricted ingredients named by the query", func(t *testing.T) {
		warning := ConstraintWarning("새우와 고수를 넣은 볶음밥", profile)
		assert.Contains(t, warning, "**새우**는 알레르기 재료입니다!")
		assert.Contains(t, warning, "**고수**는 싫어하는 음식입니다.")
	})

	t.Run("clean query yields empty warning", func(t *testing.T) {
		assert.Empty(t, ConstraintWarning("김치찌개 만드는 법", profile))
	})

	t.Run("no constraints yields empty warning", func(t *testing.T) {
		assert.Empty(t, ConstraintWarning("새우볶음밥", Personalization{}))
	})
}
