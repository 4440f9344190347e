package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrPhoneChanged    = errors.New("phone number changed during verification")
)

type Repository interface {
	getByID(ctx context.Context, id string) (*Profile, error)
	getByExternalID(ctx context.Context, externalID string) (*Profile, error)
	createIfMissing(ctx context.Context, identity Identity) (*Profile, bool, error)
	upsertIdentity(ctx context.Context, identity Identity) (*Profile, error)
	update(ctx context.Context, p *Profile) error
	deleteByExternalID(ctx context.Context, externalID string) (bool, error)
	savePhoneSecret(ctx context.Context, id, phone, secret string) error
	setPhoneVerified(ctx context.Context, id string, verified bool) error
}

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) Repository {
	return &profileRepository{db: db}
}

const profileColumns = `id, external_id, email, full_name, phone, phone_verified, phone_otp_secret, language, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.ExternalID, &p.Email, &p.FullName, &p.Phone, &p.PhoneVerified,
		&p.PhoneOTPSecret, &p.Language, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("could not scan profile: %w", err)
	}
	return &p, nil
}

func (r *profileRepository) getByID(ctx context.Context, id string) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	return scanProfile(r.db.QueryRowContext(ctx, query, id))
}

func (r *profileRepository) getByExternalID(ctx context.Context, externalID string) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE external_id = $1`
	return scanProfile(r.db.QueryRowContext(ctx, query, externalID))
}

// createIfMissing inserts a profile for the identity unless one exists and
// reports whether this call created it.
func (r *profileRepository) createIfMissing(ctx context.Context, identity Identity) (*Profile, bool, error) {
	query := `
		INSERT INTO profiles (external_id, email, full_name, phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (external_id) DO NOTHING
		RETURNING ` + profileColumns

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, identity.ExternalID, identity.Email, identity.FullName, identity.Phone))
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, false, err
	}

	p, err = r.getByExternalID(ctx, identity.ExternalID)
	return p, false, err
}

func (r *profileRepository) upsertIdentity(ctx context.Context, identity Identity) (*Profile, error) {
	query := `
		INSERT INTO profiles (external_id, email, full_name, phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (external_id) DO UPDATE SET
			email = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE profiles.email END,
			full_name = CASE WHEN EXCLUDED.full_name <> '' THEN EXCLUDED.full_name ELSE profiles.full_name END,
			phone = CASE WHEN EXCLUDED.phone <> '' THEN EXCLUDED.phone ELSE profiles.phone END,
			phone_verified = CASE WHEN EXCLUDED.phone <> '' AND EXCLUDED.phone <> profiles.phone THEN FALSE ELSE profiles.phone_verified END,
			phone_otp_secret = CASE WHEN EXCLUDED.phone <> '' AND EXCLUDED.phone <> profiles.phone THEN '' ELSE profiles.phone_otp_secret END,
			updated_at = NOW()
		RETURNING ` + profileColumns

	return scanProfile(r.db.QueryRowContext(ctx, query, identity.ExternalID, identity.Email, identity.FullName, identity.Phone))
}

func (r *profileRepository) update(ctx context.Context, p *Profile) error {
	query := `
		UPDATE profiles
		SET full_name = $2, phone = $3, phone_verified = $4, phone_otp_secret = $5, language = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, p.ID, p.FullName, p.Phone, p.PhoneVerified, p.PhoneOTPSecret, p.Language).Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProfileNotFound
	}
	return err
}

func (r *profileRepository) deleteByExternalID(ctx context.Context, externalID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE external_id = $1`, externalID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// savePhoneSecret stores the secret only while the profile still has the
// phone number the code is about to be read to.
func (r *profileRepository) savePhoneSecret(ctx context.Context, id, phone, secret string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET phone_otp_secret = $3, updated_at = NOW() WHERE id = $1 AND phone = $2`, id, phone, secret)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPhoneChanged
	}
	return nil
}

func (r *profileRepository) setPhoneVerified(ctx context.Context, id string, verified bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET phone_verified = $2, phone_otp_secret = '', updated_at = NOW() WHERE id = $1`, id, verified)
	return err
}
