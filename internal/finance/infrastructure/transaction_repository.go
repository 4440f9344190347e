package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/domain"
	financeErrors "github.com/hisaabkitaab/hisaabkitaab/internal/finance/errors"
	"github.com/hisaabkitaab/hisaabkitaab/internal/logger"
)

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `t.id, t.account_id, t.added_by, t.type, t.amount, t.category_id, t.description, t.date, t.source,
	t.created_at, t.updated_at, COALESCE(c.name_en, ''), COALESCE(c.name_ur, ''),
	COALESCE(NULLIF(p.full_name, ''), p.email, '')`

const transactionJoins = `FROM transactions t
	LEFT JOIN categories c ON c.id = t.category_id
	LEFT JOIN profiles p ON p.id = t.added_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner, extra ...any) (*domain.Transaction, error) {
	var t domain.Transaction
	dest := append([]any{&t.ID, &t.AccountID, &t.AddedBy, &t.Type, &t.Amount, &t.CategoryID, &t.Description, &t.Date, &t.Source,
		&t.CreatedAt, &t.UpdatedAt, &t.CategoryName, &t.CategoryNameUr, &t.AddedByName}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, financeErrors.ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

const insertTransaction = `INSERT INTO transactions
	(account_id, added_by, type, amount, category_id, description, date, source)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id, created_at, updated_at`

func insertArgs(t *domain.Transaction) []any {
	return []any{t.AccountID, t.AddedBy, t.Type, t.Amount, t.CategoryID, t.Description, t.Date, t.Source}
}

func (r *TransactionRepository) Save(ctx context.Context, transaction *domain.Transaction) error {
	return r.db.QueryRowContext(ctx, insertTransaction, insertArgs(transaction)...).
		Scan(&transaction.ID, &transaction.CreatedAt, &transaction.UpdatedAt)
}

// SaveAll inserts the transactions atomically.
func (r *TransactionRepository) SaveAll(ctx context.Context, transactions []*domain.Transaction) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			safeRollback(ctx, tx)
			panic(p)
		} else if err != nil {
			safeRollback(ctx, tx)
		} else {
			err = tx.Commit()
		}
	}()

	for i, transaction := range transactions {
		if err = tx.QueryRowContext(ctx, insertTransaction, insertArgs(transaction)...).
			Scan(&transaction.ID, &transaction.CreatedAt, &transaction.UpdatedAt); err != nil {
			return fmt.Errorf("database error at transaction %d: %w", i+1, err)
		}
	}
	return nil
}

func safeRollback(ctx context.Context, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("Error during transaction rollback")
	}
}

func (r *TransactionRepository) FindByID(ctx context.Context, accountID, transactionID string) (*domain.Transaction, error) {
	return scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` `+transactionJoins+` WHERE t.account_id = $1 AND t.id = $2`,
		accountID, transactionID))
}

// List returns one page of matching transactions, newest first, together
// with the total number of matches.
func (r *TransactionRepository) List(ctx context.Context, accountID string, filter domain.TransactionFilter) ([]domain.Transaction, int, error) {
	where := []string{"t.account_id = $1"}
	args := []any{accountID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}

	if filter.Type != "" {
		add("t.type = ?", filter.Type)
	}
	if filter.CategoryID != "" {
		add("t.category_id = ?", filter.CategoryID)
	}
	if !filter.StartDate.IsZero() {
		add("t.date >= ?", filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		add("t.date <= ?", filter.EndDate)
	}

	limit, page := filter.Limit, filter.Page
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)

	query := `SELECT ` + transactionColumns + `, COUNT(*) OVER () ` + transactionJoins +
		` WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY t.date DESC, t.created_at DESC` +
		` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	total := 0
	for rows.Next() {
		t, err := scanTransaction(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, total, rows.Err()
}

func (r *TransactionRepository) Update(ctx context.Context, transaction *domain.Transaction) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE transactions
		SET type = $3, amount = $4, category_id = $5, description = $6, date = $7, updated_at = NOW()
		WHERE account_id = $1 AND id = $2
		RETURNING updated_at`,
		transaction.AccountID, transaction.ID, transaction.Type, transaction.Amount, transaction.CategoryID,
		transaction.Description, transaction.Date,
	).Scan(&transaction.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return financeErrors.ErrTransactionNotFound
	}
	return err
}

func (r *TransactionRepository) Delete(ctx context.Context, accountID, transactionID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE account_id = $1 AND id = $2`, accountID, transactionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return financeErrors.ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) GetTransactionsInDateRange(ctx context.Context, accountID string, startDate, endDate time.Time) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` `+transactionJoins+`
		WHERE t.account_id = $1 AND t.date BETWEEN $2 AND $3
		ORDER BY t.date, t.created_at`, accountID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

func (r *TransactionRepository) GetTransactionSummaryByCategory(ctx context.Context, accountID string, startDate, endDate time.Time, transactionType string) ([]domain.TransactionByCategorySummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.category_id, COALESCE(c.name_en, $5), COALESCE(c.name_ur, ''), COALESCE(c.color, '#9CA3AF'),
			SUM(t.amount), COUNT(*)
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.account_id = $1 AND t.date BETWEEN $2 AND $3 AND t.type = $4
		GROUP BY t.category_id, c.name_en, c.name_ur, c.color
		ORDER BY SUM(t.amount) DESC`,
		accountID, startDate, endDate, transactionType, domain.FallbackCategory)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.TransactionByCategorySummary
	for rows.Next() {
		var s domain.TransactionByCategorySummary
		if err := rows.Scan(&s.CategoryID, &s.CategoryName, &s.CategoryNameUr, &s.Color, &s.TotalAmount, &s.Count); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *TransactionRepository) GetTransactionSummaryByMember(ctx context.Context, accountID string, startDate, endDate time.Time) ([]domain.TransactionByMemberSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.added_by, COALESCE(NULLIF(p.full_name, ''), NULLIF(p.email, ''), 'Unknown'),
			COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'income'), 0),
			COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'expense'), 0),
			COUNT(*)
		FROM transactions t
		LEFT JOIN profiles p ON p.id = t.added_by
		WHERE t.account_id = $1 AND t.date BETWEEN $2 AND $3
		GROUP BY t.added_by, p.full_name, p.email
		ORDER BY 4 DESC`, accountID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.TransactionByMemberSummary
	for rows.Next() {
		var s domain.TransactionByMemberSummary
		if err := rows.Scan(&s.ProfileID, &s.Name, &s.IncomeTotal, &s.ExpenseTotal, &s.Count); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
