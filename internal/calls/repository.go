package calls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type Repository interface {
	insert(ctx context.Context, c *ScheduledCall) error
	get(ctx context.Context, id string) (*ScheduledCall, error)
	listForAccount(ctx context.Context, accountID string, limit int) ([]ScheduledCall, error)
	listDue(ctx context.Context, now time.Time, limit int) ([]ScheduledCall, error)
	markCompleted(ctx context.Context, id, callSID string) error
	markFailed(ctx context.Context, id, reason string) error
	deletePending(ctx context.Context, accountID, id string) (bool, error)
}

type callRepository struct {
	db *sql.DB
}

func NewCallRepository(db *sql.DB) Repository {
	return &callRepository{db: db}
}

const callColumns = `id, account_id, profile_id, phone_number, message, language, status,
	scheduled_for, call_sid, error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner) (*ScheduledCall, error) {
	var c ScheduledCall
	var profileID sql.NullString
	if err := row.Scan(&c.ID, &c.AccountID, &profileID, &c.PhoneNumber, &c.Message, &c.Language, &c.Status,
		&c.ScheduledFor, &c.CallSID, &c.Error, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if profileID.Valid {
		c.ProfileID = &profileID.String
	}
	return &c, nil
}

func (r *callRepository) insert(ctx context.Context, c *ScheduledCall) error {
	query := `INSERT INTO scheduled_calls (account_id, profile_id, phone_number, message, language, scheduled_for)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, status, call_sid, error, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, c.AccountID, c.ProfileID, c.PhoneNumber, c.Message, c.Language, c.ScheduledFor).
		Scan(&c.ID, &c.Status, &c.CallSID, &c.Error, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert scheduled call: %w", err)
	}
	return nil
}

func (r *callRepository) get(ctx context.Context, id string) (*ScheduledCall, error) {
	query := `SELECT ` + callColumns + ` FROM scheduled_calls WHERE id = $1`
	c, err := scanCall(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCallNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get scheduled call: %w", err)
	}
	return c, nil
}

func (r *callRepository) list(ctx context.Context, query string, args ...any) ([]ScheduledCall, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scheduled calls: %w", err)
	}
	defer rows.Close()

	var out []ScheduledCall
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scheduled call: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *callRepository) listForAccount(ctx context.Context, accountID string, limit int) ([]ScheduledCall, error) {
	return r.list(ctx, `SELECT `+callColumns+` FROM scheduled_calls
		WHERE account_id = $1 ORDER BY scheduled_for DESC LIMIT $2`, accountID, limit)
}

func (r *callRepository) listDue(ctx context.Context, now time.Time, limit int) ([]ScheduledCall, error) {
	return r.list(ctx, `SELECT `+callColumns+` FROM scheduled_calls
		WHERE status = 'pending' AND scheduled_for <= $1 ORDER BY scheduled_for LIMIT $2`, now, limit)
}

func (r *callRepository) markCompleted(ctx context.Context, id, callSID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE scheduled_calls
		SET status = 'completed', call_sid = CASE WHEN $2 = '' THEN call_sid ELSE $2 END, error = '', updated_at = NOW()
		WHERE id = $1`, id, callSID)
	if err != nil {
		return fmt.Errorf("mark call completed: %w", err)
	}
	return nil
}

func (r *callRepository) markFailed(ctx context.Context, id, reason string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE scheduled_calls
		SET status = 'failed', error = $2, updated_at = NOW() WHERE id = $1`, id, reason)
	if err != nil {
		return fmt.Errorf("mark call failed: %w", err)
	}
	return nil
}

func (r *callRepository) deletePending(ctx context.Context, accountID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scheduled_calls
		WHERE id = $1 AND account_id = $2 AND status = 'pending'`, id, accountID)
	if err != nil {
		return false, fmt.Errorf("delete scheduled call: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
