package application

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/domain"
	financeErrors "github.com/hisaabkitaab/hisaabkitaab/internal/finance/errors"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
)

const (
	maxCategoryNameLength = 50
	defaultCategoryColor  = "#9CA3AF"
)

type CategoryService struct {
	repo domain.CategoryRepository
}

func NewCategoryService(repo domain.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) DoesCategoryExist(ctx context.Context, categoryID, accountID string) (bool, error) {
	if _, err := uuid.Parse(categoryID); err != nil {
		return false, nil
	}
	return s.repo.DoesCategoryExistForAccount(ctx, categoryID, accountID)
}

func (s *CategoryService) GetCategories(ctx context.Context, accountID, categoryType string) ([]domain.Category, error) {
	categories, err := s.repo.FindForAccount(ctx, accountID, categoryType)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		return []domain.Category{}, nil
	}
	return categories, nil
}

func (s *CategoryService) CreateCategory(ctx context.Context, p session.Principal, input domain.CategoryInput) (*domain.Category, error) {
	if !p.CanWrite() {
		return nil, financeErrors.ErrReadOnly
	}
	nameEn := strings.TrimSpace(input.NameEn)
	if nameEn == "" || len([]rune(nameEn)) > maxCategoryNameLength || len([]rune(input.NameUr)) > maxCategoryNameLength {
		return nil, financeErrors.ErrCategoryNameInvalid
	}
	categoryType := input.Type
	if categoryType == "" {
		categoryType = domain.TypeExpense
	}
	if !domain.IsValidCategoryType(categoryType) {
		return nil, financeErrors.NewValidationError("Type must be 'income', 'expense' or 'both'")
	}
	color := input.Color
	if color == "" {
		color = defaultCategoryColor
	}

	existing, err := s.repo.FindForAccount(ctx, p.AccountID, "")
	if err != nil {
		return nil, err
	}
	for _, c := range existing {
		if strings.EqualFold(c.NameEn, nameEn) {
			return nil, financeErrors.NewValidationError("A category with this name already exists")
		}
	}

	accountID := p.AccountID
	category := &domain.Category{
		AccountID: &accountID,
		NameEn:    nameEn,
		NameUr:    strings.TrimSpace(input.NameUr),
		Icon:      input.Icon,
		Color:     color,
		Type:      categoryType,
	}
	if err := s.repo.Save(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// MatchCategory maps a free-text category name onto the account's categories,
// comparing English and Urdu names case-insensitively. Unmatched names fall
// back to "Other"; nil means not even "Other" exists.
func MatchCategory(categories []domain.Category, name string) *string {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, " ("); i > 0 {
		name = name[:i]
	}
	var fallback *string
	for i := range categories {
		c := &categories[i]
		if name != "" && (strings.EqualFold(c.NameEn, name) || (c.NameUr != "" && strings.EqualFold(c.NameUr, name))) {
			id := c.ID
			return &id
		}
		if fallback == nil && strings.EqualFold(c.NameEn, domain.FallbackCategory) {
			id := c.ID
			fallback = &id
		}
	}
	return fallback
}

// CategoryNames lists English names, with the Urdu name in parentheses when
// present, for model prompts.
func CategoryNames(categories []domain.Category) []string {
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		if c.NameUr != "" {
			names = append(names, c.NameEn+" ("+c.NameUr+")")
			continue
		}
		names = append(names, c.NameEn)
	}
	return names
}
