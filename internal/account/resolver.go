package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/hisaabkitaab/hisaabkitaab/internal/logger"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
)

// Resolve picks the account a profile acts on. In order: an accepted
// invitation into someone else's account, the account the profile owns, any
// accepted membership, and finally a freshly created personal account.
func (s *service) Resolve(ctx context.Context, profileID, displayName string) (*Account, string, error) {
	a, role, err := s.repo.findInvitedMembership(ctx, profileID)
	if err == nil {
		return a, role, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, "", fmt.Errorf("find invited membership: %w", err)
	}

	a, err = s.repo.findOwnedAccount(ctx, profileID)
	if err == nil {
		if err := s.repo.ensureOwnerMember(ctx, a.ID, profileID); err != nil {
			logger.FromContext(ctx).Warn().Err(err).Str("account_id", a.ID).Msg("Repairing owner membership failed")
		}
		return a, session.RoleOwner, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, "", fmt.Errorf("find owned account: %w", err)
	}

	a, role, err = s.repo.findAnyMembership(ctx, profileID)
	if err == nil {
		return a, role, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, "", fmt.Errorf("find membership: %w", err)
	}

	a = &Account{
		Name:     personalAccountName(displayName),
		Mode:     ModeIndividual,
		OwnerID:  profileID,
		Currency: defaultCurrency,
	}
	if err := s.repo.createAccount(ctx, a); err != nil {
		return nil, "", fmt.Errorf("create personal account: %w", err)
	}
	if err := s.repo.ensureOwnerMember(ctx, a.ID, profileID); err != nil {
		// the owned-account branch repairs this on the next request
		logger.FromContext(ctx).Warn().Err(err).Str("account_id", a.ID).Msg("Creating owner membership failed")
	}
	logger.FromContext(ctx).Info().Str("account_id", a.ID).Str("profile_id", profileID).Msg("Created personal account")
	return a, session.RoleOwner, nil
}

func personalAccountName(displayName string) string {
	if displayName == "" || displayName == "Unknown" {
		return "Personal"
	}
	name := displayName + "'s Account"
	if len([]rune(name)) > maxAccountNameLen {
		return string([]rune(name)[:maxAccountNameLen])
	}
	return name
}
