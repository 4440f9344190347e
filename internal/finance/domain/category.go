package domain

import "context"

const (
	CategoryTypeBoth = "both"

	// FallbackCategory is the default category for unmatched AI output.
	FallbackCategory = "Other"
)

type Category struct {
	ID        string  `json:"id"`
	AccountID *string `json:"account_id"`
	NameEn    string  `json:"name_en"`
	NameUr    string  `json:"name_ur"`
	Icon      string  `json:"icon"`
	Color     string  `json:"color"`
	Type      string  `json:"type"`
}

// IsDefault reports whether the category is part of the global default set.
func (c Category) IsDefault() bool {
	return c.AccountID == nil
}

type CategoryRepository interface {
	FindForAccount(ctx context.Context, accountID, categoryType string) ([]Category, error)
	DoesCategoryExistForAccount(ctx context.Context, categoryID, accountID string) (bool, error)
	Save(ctx context.Context, category *Category) error
}

type CategoryInput struct {
	NameEn string `json:"name_en"`
	NameUr string `json:"name_ur"`
	Icon   string `json:"icon"`
	Color  string `json:"color"`
	Type   string `json:"type"`
}

func IsValidCategoryType(categoryType string) bool {
	return categoryType == TypeIncome || categoryType == TypeExpense || categoryType == CategoryTypeBoth
}
