package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type Repository interface {
	findInvitedMembership(ctx context.Context, profileID string) (*Account, string, error)
	findOwnedAccount(ctx context.Context, profileID string) (*Account, error)
	findAnyMembership(ctx context.Context, profileID string) (*Account, string, error)
	createAccount(ctx context.Context, a *Account) error
	ensureOwnerMember(ctx context.Context, accountID, profileID string) error
	getAccount(ctx context.Context, id string) (*Account, error)
	updateAccount(ctx context.Context, a *Account) error

	listMembers(ctx context.Context, accountID string) ([]Member, error)
	getMember(ctx context.Context, memberID string) (*Member, error)
	hasPendingInvite(ctx context.Context, accountID, email string) (bool, error)
	insertInvite(ctx context.Context, m *Member) error
	updateRole(ctx context.Context, memberID, role string) error
	deleteMember(ctx context.Context, memberID string) error

	listInvitations(ctx context.Context, profileID, email string) ([]Invitation, error)
	acceptInvitation(ctx context.Context, memberID, profileID string) error
	linkPendingInvitations(ctx context.Context, profileID, email string) (int, error)
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) Repository {
	return &accountRepository{db: db}
}

const accountColumns = `a.id, a.name, a.mode, a.owner_id, a.currency, a.created_at, a.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner, extra ...any) (*Account, error) {
	var a Account
	dest := append([]any{&a.ID, &a.Name, &a.Mode, &a.OwnerID, &a.Currency, &a.CreatedAt, &a.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *accountRepository) findInvitedMembership(ctx context.Context, profileID string) (*Account, string, error) {
	var role string
	a, err := scanAccount(r.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`, m.role
		FROM account_members m
		JOIN accounts a ON a.id = m.account_id
		WHERE m.profile_id = $1 AND m.is_accepted AND m.role <> 'owner' AND a.owner_id <> $1
		ORDER BY m.accepted_at DESC NULLS LAST, m.created_at DESC
		LIMIT 1`, profileID), &role)
	return a, role, err
}

func (r *accountRepository) findOwnedAccount(ctx context.Context, profileID string) (*Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts a
		WHERE a.owner_id = $1
		ORDER BY a.created_at
		LIMIT 1`, profileID))
}

func (r *accountRepository) findAnyMembership(ctx context.Context, profileID string) (*Account, string, error) {
	var role string
	a, err := scanAccount(r.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`, m.role
		FROM account_members m
		JOIN accounts a ON a.id = m.account_id
		WHERE m.profile_id = $1 AND m.is_accepted
		ORDER BY m.created_at
		LIMIT 1`, profileID), &role)
	return a, role, err
}

func (r *accountRepository) createAccount(ctx context.Context, a *Account) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO accounts (name, mode, owner_id, currency)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		a.Name, a.Mode, a.OwnerID, a.Currency,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *accountRepository) ensureOwnerMember(ctx context.Context, accountID, profileID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO account_members (account_id, profile_id, role, is_accepted, accepted_at)
		VALUES ($1, $2, 'owner', TRUE, NOW())
		ON CONFLICT (account_id, profile_id) DO NOTHING`, accountID, profileID)
	return err
}

func (r *accountRepository) getAccount(ctx context.Context, id string) (*Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts a WHERE a.id = $1`, id))
}

func (r *accountRepository) updateAccount(ctx context.Context, a *Account) error {
	return r.db.QueryRowContext(ctx, `
		UPDATE accounts SET name = $2, mode = $3, currency = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`, a.ID, a.Name, a.Mode, a.Currency).Scan(&a.UpdatedAt)
}

const memberColumns = `m.id, m.account_id, m.profile_id, m.role, m.is_accepted, m.invite_email, m.invite_token_hash,
	m.invited_by, m.created_at, m.accepted_at, COALESCE(p.full_name, ''), COALESCE(p.email, m.invite_email, '')`

func scanMember(row rowScanner) (*Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.AccountID, &m.ProfileID, &m.Role, &m.IsAccepted, &m.InviteEmail, &m.InviteTokenHash,
		&m.InvitedBy, &m.CreatedAt, &m.AcceptedAt, &m.Name, &m.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *accountRepository) listMembers(ctx context.Context, accountID string) ([]Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+memberColumns+`
		FROM account_members m
		LEFT JOIN profiles p ON p.id = m.profile_id
		WHERE m.account_id = $1
		ORDER BY (m.role = 'owner') DESC, m.created_at`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (r *accountRepository) getMember(ctx context.Context, memberID string) (*Member, error) {
	return scanMember(r.db.QueryRowContext(ctx, `
		SELECT `+memberColumns+`
		FROM account_members m
		LEFT JOIN profiles p ON p.id = m.profile_id
		WHERE m.id = $1`, memberID))
}

func (r *accountRepository) hasPendingInvite(ctx context.Context, accountID, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM account_members
			WHERE account_id = $1 AND NOT is_accepted AND lower(invite_email) = lower($2)
		)`, accountID, email).Scan(&exists)
	return exists, err
}

func (r *accountRepository) insertInvite(ctx context.Context, m *Member) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO account_members (account_id, profile_id, role, is_accepted, invite_email, invite_token_hash, invited_by)
		VALUES ($1, $2, $3, FALSE, $4, $5, $6)
		RETURNING id, created_at`,
		m.AccountID, m.ProfileID, m.Role, m.InviteEmail, m.InviteTokenHash, m.InvitedBy,
	).Scan(&m.ID, &m.CreatedAt)
	if isUniqueViolation(err) {
		return ErrAlreadyMember
	}
	return err
}

func (r *accountRepository) updateRole(ctx context.Context, memberID, role string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE account_members SET role = $2 WHERE id = $1 AND role <> 'owner'`, memberID, role)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrMemberNotFound)
}

func (r *accountRepository) deleteMember(ctx context.Context, memberID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM account_members WHERE id = $1 AND role <> 'owner'`, memberID)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrMemberNotFound)
}

func (r *accountRepository) listInvitations(ctx context.Context, profileID, email string) ([]Invitation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.account_id, a.name, m.role, COALESCE(NULLIF(inv.full_name, ''), inv.email, ''), m.created_at
		FROM account_members m
		JOIN accounts a ON a.id = m.account_id
		LEFT JOIN profiles inv ON inv.id = m.invited_by
		WHERE NOT m.is_accepted
		  AND (m.profile_id = $1 OR (m.profile_id IS NULL AND $2 <> '' AND lower(m.invite_email) = lower($2)))
		ORDER BY m.created_at DESC`, profileID, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []Invitation
	for rows.Next() {
		var inv Invitation
		if err := rows.Scan(&inv.ID, &inv.AccountID, &inv.AccountName, &inv.Role, &inv.InvitedBy, &inv.CreatedAt); err != nil {
			return nil, err
		}
		if inv.InvitedBy == "" {
			inv.InvitedBy = "Unknown"
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

func (r *accountRepository) acceptInvitation(ctx context.Context, memberID, profileID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE account_members
		SET profile_id = $2, is_accepted = TRUE, accepted_at = NOW(), invite_token_hash = NULL
		WHERE id = $1 AND NOT is_accepted`, memberID, profileID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyMember
		}
		return err
	}
	return expectAffected(res, ErrInvitationNotFound)
}

func (r *accountRepository) linkPendingInvitations(ctx context.Context, profileID, email string) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE account_members m
		SET profile_id = $1
		WHERE m.profile_id IS NULL AND NOT m.is_accepted AND lower(m.invite_email) = lower($2)
		  AND NOT EXISTS (
			SELECT 1 FROM account_members o WHERE o.account_id = m.account_id AND o.profile_id = $1
		  )`, profileID, email)
	if err != nil {
		return 0, fmt.Errorf("link invitations: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
