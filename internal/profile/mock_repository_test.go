package profile

import (
	"context"
	"strconv"
	"time"
)

type mockRepository struct {
	byID        map[string]*Profile
	createCalls int
	failWith    error
}

func newMockRepository(profiles ...*Profile) *mockRepository {
	m := &mockRepository{byID: map[string]*Profile{}}
	for _, p := range profiles {
		m.byID[p.ID] = p
	}
	return m
}

func (m *mockRepository) getByID(_ context.Context, id string) (*Profile, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepository) getByExternalID(_ context.Context, externalID string) (*Profile, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, p := range m.byID {
		if p.ExternalID == externalID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrProfileNotFound
}

func (m *mockRepository) createIfMissing(ctx context.Context, identity Identity) (*Profile, bool, error) {
	if p, err := m.getByExternalID(ctx, identity.ExternalID); err == nil {
		return p, false, nil
	}
	m.createCalls++
	p := &Profile{
		ID:         "profile-" + strconv.Itoa(len(m.byID)+1),
		ExternalID: identity.ExternalID,
		Email:      identity.Email,
		FullName:   identity.FullName,
		Phone:      identity.Phone,
		Language:   LanguageEnglish,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	m.byID[p.ID] = p
	cp := *p
	return &cp, true, nil
}

func (m *mockRepository) upsertIdentity(ctx context.Context, identity Identity) (*Profile, error) {
	p, _, err := m.createIfMissing(ctx, identity)
	if err != nil {
		return nil, err
	}
	stored := m.byID[p.ID]
	if identity.Email != "" {
		stored.Email = identity.Email
	}
	if identity.FullName != "" {
		stored.FullName = identity.FullName
	}
	if identity.Phone != "" && identity.Phone != stored.Phone {
		stored.Phone = identity.Phone
		stored.PhoneVerified = false
		stored.PhoneOTPSecret = ""
	}
	cp := *stored
	return &cp, nil
}

func (m *mockRepository) update(_ context.Context, p *Profile) error {
	if _, ok := m.byID[p.ID]; !ok {
		return ErrProfileNotFound
	}
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *mockRepository) deleteByExternalID(_ context.Context, externalID string) (bool, error) {
	for id, p := range m.byID {
		if p.ExternalID == externalID {
			delete(m.byID, id)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) savePhoneSecret(_ context.Context, id, phone, secret string) error {
	if m.byID[id].Phone != phone {
		return ErrPhoneChanged
	}
	m.byID[id].PhoneOTPSecret = secret
	return nil
}

func (m *mockRepository) setPhoneVerified(_ context.Context, id string, verified bool) error {
	m.byID[id].PhoneVerified = verified
	m.byID[id].PhoneOTPSecret = ""
	return nil
}

type mockLinker struct {
	calls []string
}

func (m *mockLinker) LinkPendingInvitations(_ context.Context, profileID, email string) (int, error) {
	m.calls = append(m.calls, profileID+"|"+email)
	return 1, nil
}

type mockVoice struct {
	to, message, language string
}

func (m *mockVoice) Say(_ context.Context, to, message, language string) (string, error) {
	m.to, m.message, m.language = to, message, language
	return "CA123", nil
}
