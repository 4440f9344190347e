package account

import (
	"context"
	"strconv"
	"strings"
	"time"

	emailService "github.com/hisaabkitaab/hisaabkitaab/internal/email"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
)

type mockRepository struct {
	accounts map[string]*Account
	members  map[string]*Member
	seq      int
	// failOn makes the named method return the error.
	failOn map[string]error
}

func newMockRepository() *mockRepository {
	return &mockRepository{accounts: map[string]*Account{}, members: map[string]*Member{}, failOn: map[string]error{}}
}

func (m *mockRepository) nextID(prefix string) string {
	m.seq++
	return prefix + "-" + strconv.Itoa(m.seq)
}

func (m *mockRepository) addAccount(id, ownerID string) *Account {
	a := &Account{ID: id, Name: id, Mode: ModeIndividual, OwnerID: ownerID, Currency: defaultCurrency, CreatedAt: time.Now()}
	m.accounts[id] = a
	return a
}

func (m *mockRepository) addMember(accountID, profileID, role string, accepted bool) *Member {
	pid := profileID
	mem := &Member{ID: m.nextID("member"), AccountID: accountID, ProfileID: &pid, Role: role, IsAccepted: accepted, CreatedAt: time.Now()}
	if accepted {
		now := time.Now().Add(time.Duration(m.seq) * time.Second)
		mem.AcceptedAt = &now
	}
	m.members[mem.ID] = mem
	return mem
}

func (m *mockRepository) findInvitedMembership(_ context.Context, profileID string) (*Account, string, error) {
	if err := m.failOn["findInvitedMembership"]; err != nil {
		return nil, "", err
	}
	var best *Member
	for _, mem := range m.members {
		a := m.accounts[mem.AccountID]
		if mem.linkedTo(profileID) && mem.IsAccepted && mem.Role != session.RoleOwner && a.OwnerID != profileID {
			if best == nil || mem.AcceptedAt.After(*best.AcceptedAt) {
				best = mem
			}
		}
	}
	if best == nil {
		return nil, "", ErrAccountNotFound
	}
	a := *m.accounts[best.AccountID]
	return &a, best.Role, nil
}

func (m *mockRepository) findOwnedAccount(_ context.Context, profileID string) (*Account, error) {
	if err := m.failOn["findOwnedAccount"]; err != nil {
		return nil, err
	}
	for _, a := range m.accounts {
		if a.OwnerID == profileID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (m *mockRepository) findAnyMembership(_ context.Context, profileID string) (*Account, string, error) {
	if err := m.failOn["findAnyMembership"]; err != nil {
		return nil, "", err
	}
	for _, mem := range m.members {
		if mem.linkedTo(profileID) && mem.IsAccepted {
			a := *m.accounts[mem.AccountID]
			return &a, mem.Role, nil
		}
	}
	return nil, "", ErrAccountNotFound
}

func (m *mockRepository) createAccount(_ context.Context, a *Account) error {
	if err := m.failOn["createAccount"]; err != nil {
		return err
	}
	a.ID = m.nextID("account")
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *mockRepository) ensureOwnerMember(_ context.Context, accountID, profileID string) error {
	if err := m.failOn["ensureOwnerMember"]; err != nil {
		return err
	}
	for _, mem := range m.members {
		if mem.AccountID == accountID && mem.linkedTo(profileID) {
			return nil
		}
	}
	m.addMember(accountID, profileID, session.RoleOwner, true)
	return nil
}

func (m *mockRepository) getAccount(_ context.Context, id string) (*Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepository) updateAccount(_ context.Context, a *Account) error {
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *mockRepository) listMembers(_ context.Context, accountID string) ([]Member, error) {
	var out []Member
	for _, mem := range m.members {
		if mem.AccountID == accountID {
			out = append(out, *mem)
		}
	}
	return out, nil
}

func (m *mockRepository) getMember(_ context.Context, memberID string) (*Member, error) {
	mem, ok := m.members[memberID]
	if !ok {
		return nil, ErrMemberNotFound
	}
	cp := *mem
	return &cp, nil
}

func (m *mockRepository) hasPendingInvite(_ context.Context, accountID, email string) (bool, error) {
	for _, mem := range m.members {
		if mem.AccountID == accountID && !mem.IsAccepted && mem.InviteEmail != nil && strings.EqualFold(*mem.InviteEmail, email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) insertInvite(_ context.Context, mem *Member) error {
	mem.ID = m.nextID("member")
	mem.CreatedAt = time.Now()
	cp := *mem
	m.members[mem.ID] = &cp
	return nil
}

func (m *mockRepository) updateRole(_ context.Context, memberID, role string) error {
	mem, ok := m.members[memberID]
	if !ok || mem.Role == session.RoleOwner {
		return ErrMemberNotFound
	}
	mem.Role = role
	return nil
}

func (m *mockRepository) deleteMember(_ context.Context, memberID string) error {
	mem, ok := m.members[memberID]
	if !ok || mem.Role == session.RoleOwner {
		return ErrMemberNotFound
	}
	delete(m.members, memberID)
	return nil
}

func (m *mockRepository) listInvitations(_ context.Context, profileID, email string) ([]Invitation, error) {
	var out []Invitation
	for _, mem := range m.members {
		if mem.IsAccepted {
			continue
		}
		byEmail := mem.ProfileID == nil && email != "" && mem.InviteEmail != nil && strings.EqualFold(*mem.InviteEmail, email)
		if mem.linkedTo(profileID) || byEmail {
			out = append(out, Invitation{ID: mem.ID, AccountID: mem.AccountID, AccountName: m.accounts[mem.AccountID].Name, Role: mem.Role})
		}
	}
	return out, nil
}

func (m *mockRepository) acceptInvitation(_ context.Context, memberID, profileID string) error {
	mem, ok := m.members[memberID]
	if !ok || mem.IsAccepted {
		return ErrInvitationNotFound
	}
	now := time.Now().Add(time.Hour)
	pid := profileID
	mem.ProfileID = &pid
	mem.IsAccepted = true
	mem.AcceptedAt = &now
	mem.InviteTokenHash = nil
	return nil
}

func (m *mockRepository) linkPendingInvitations(_ context.Context, profileID, email string) (int, error) {
	n := 0
	for _, mem := range m.members {
		if mem.ProfileID == nil && !mem.IsAccepted && mem.InviteEmail != nil && strings.EqualFold(*mem.InviteEmail, email) {
			pid := profileID
			mem.ProfileID = &pid
			n++
		}
	}
	return n, nil
}

type queuedEmail struct {
	to   string
	data emailService.EmailData
}

type mockEmailSender struct {
	sent []queuedEmail
}

func (m *mockEmailSender) QueueEmail(to string, data emailService.EmailData) {
	m.sent = append(m.sent, queuedEmail{to: to, data: data})
}
