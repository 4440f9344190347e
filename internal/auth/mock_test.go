package auth

import (
	"context"
	"errors"

	"github.com/hisaabkitaab/hisaabkitaab/internal/account"
	"github.com/hisaabkitaab/hisaabkitaab/internal/profile"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
)

type fakeProfiles struct {
	byExternal map[string]*profile.Profile
	upserts    []profile.Identity
	deleted    []string
	failWith   error
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{byExternal: map[string]*profile.Profile{}}
}

func (f *fakeProfiles) GetOrCreate(_ context.Context, identity profile.Identity) (*profile.Profile, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	if p, ok := f.byExternal[identity.ExternalID]; ok {
		return p, nil
	}
	p := &profile.Profile{ID: "prof-" + identity.ExternalID, ExternalID: identity.ExternalID, Email: identity.Email, FullName: identity.FullName, Language: "en"}
	f.byExternal[identity.ExternalID] = p
	return p, nil
}

func (f *fakeProfiles) UpsertFromIdentity(ctx context.Context, identity profile.Identity) (*profile.Profile, error) {
	f.upserts = append(f.upserts, identity)
	return f.GetOrCreate(ctx, identity)
}

func (f *fakeProfiles) DeleteByExternalID(_ context.Context, externalID string) error {
	if _, ok := f.byExternal[externalID]; !ok {
		return profile.ErrProfileNotFound
	}
	delete(f.byExternal, externalID)
	f.deleted = append(f.deleted, externalID)
	return nil
}

type fakeAccounts struct {
	failWith error
}

func (f fakeAccounts) Resolve(_ context.Context, profileID, displayName string) (*account.Account, string, error) {
	if f.failWith != nil {
		return nil, "", f.failWith
	}
	if profileID == "" {
		return nil, "", errors.New("no profile")
	}
	return &account.Account{ID: "acc-" + profileID, Name: displayName + "'s account", Currency: "PKR"}, session.RoleOwner, nil
}
