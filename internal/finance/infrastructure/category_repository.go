package infrastructure

import (
	"context"
	"database/sql"

	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/domain"
)

type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// FindForAccount returns the default categories plus the account's own.
// Categories of type "both" match either transaction type.
func (r *CategoryRepository) FindForAccount(ctx context.Context, accountID, categoryType string) ([]domain.Category, error) {
	query := `SELECT id, account_id, name_en, name_ur, icon, color, type FROM categories
		WHERE (account_id IS NULL OR account_id = $1)`
	args := []interface{}{accountID}

	if categoryType != "" {
		query += ` AND (type = $2 OR type = 'both')`
		args = append(args, categoryType)
	}
	query += ` ORDER BY account_id NULLS FIRST, name_en`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.AccountID, &category.NameEn, &category.NameUr,
			&category.Icon, &category.Color, &category.Type); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (r *CategoryRepository) DoesCategoryExistForAccount(ctx context.Context, categoryID, accountID string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1 AND (account_id IS NULL OR account_id = $2))"
	err := r.db.QueryRowContext(ctx, query, categoryID, accountID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *CategoryRepository) Save(ctx context.Context, category *domain.Category) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO categories (account_id, name_en, name_ur, icon, color, type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		category.AccountID, category.NameEn, category.NameUr, category.Icon, category.Color, category.Type,
	).Scan(&category.ID)
}
