package application

import (
	"context"
	"testing"

	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/domain"
	financeErrors "github.com/hisaabkitaab/hisaabkitaab/internal/finance/errors"
	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/infrastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchCategory(t *testing.T) {
	categories := defaultCategories()

	tests := []struct {
		name string
		want *string
	}{
		{"Food", strPtr(foodID)},
		{"food", strPtr(foodID)},
		{"Food (کھانا)", strPtr(foodID)},
		{"تنخواہ", strPtr(salaryID)},
		{"Groceries", strPtr(otherID)},
		{"", strPtr(otherID)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchCategory(categories, tt.name))
		})
	}

	assert.Nil(t, MatchCategory(categories[:2], "Groceries"))
}

func TestCategoryNames(t *testing.T) {
	names := CategoryNames([]domain.Category{{NameEn: "Food", NameUr: "کھانا"}, {NameEn: "Misc"}})
	assert.Equal(t, []string{"Food (کھانا)", "Misc"}, names)
}

func TestGetCategories_IncludesAccountCategories(t *testing.T) {
	accountID := testAccountID
	otherAccount := "acc-2"
	repo := &infrastructure.MockCategoryRepository{Categories: append(defaultCategories(),
		domain.Category{ID: "c-own", AccountID: &accountID, NameEn: "Rickshaw", Type: domain.TypeExpense},
		domain.Category{ID: "c-foreign", AccountID: &otherAccount, NameEn: "Hidden", Type: domain.TypeExpense},
	)}
	service := NewCategoryService(repo)

	categories, err := service.GetCategories(context.Background(), testAccountID, domain.TypeExpense)
	require.NoError(t, err)

	var names []string
	for _, c := range categories {
		names = append(names, c.NameEn)
	}
	assert.ElementsMatch(t, []string{"Food", "Other", "Rickshaw"}, names)
}

func TestCreateCategory(t *testing.T) {
	repo := &infrastructure.MockCategoryRepository{Categories: defaultCategories()}
	service := NewCategoryService(repo)

	created, err := service.CreateCategory(context.Background(), owner(), domain.CategoryInput{NameEn: " School Fees ", NameUr: "فیس"})
	require.NoError(t, err)
	assert.Equal(t, "School Fees", created.NameEn)
	assert.Equal(t, domain.TypeExpense, created.Type)
	assert.Equal(t, defaultCategoryColor, created.Color)
	assert.Equal(t, testAccountID, *created.AccountID)

	_, err = service.CreateCategory(context.Background(), owner(), domain.CategoryInput{NameEn: "food"})
	assert.True(t, financeErrors.IsValidationError(err))

	_, err = service.CreateCategory(context.Background(), owner(), domain.CategoryInput{NameEn: ""})
	assert.ErrorIs(t, err, financeErrors.ErrCategoryNameInvalid)

	_, err = service.CreateCategory(context.Background(), owner(), domain.CategoryInput{NameEn: "Gifts", Type: "transfer"})
	assert.True(t, financeErrors.IsValidationError(err))

	_, err = service.CreateCategory(context.Background(), viewer(), domain.CategoryInput{NameEn: "Gifts"})
	assert.ErrorIs(t, err, financeErrors.ErrReadOnly)
}
