package account

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/badoux/checkmail"
	emailService "github.com/hisaabkitaab/hisaabkitaab/internal/email"
	"github.com/hisaabkitaab/hisaabkitaab/internal/logger"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
	"golang.org/x/crypto/bcrypt"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

type Service interface {
	Resolve(ctx context.Context, profileID, displayName string) (*Account, string, error)
	GetAccount(ctx context.Context, accountID string) (*Account, error)
	UpdateAccount(ctx context.Context, p session.Principal, req UpdateAccountRequest) (*Account, error)

	ListMembers(ctx context.Context, p session.Principal) ([]Member, error)
	Invite(ctx context.Context, p session.Principal, req InviteRequest) (*Member, error)
	ChangeRole(ctx context.Context, p session.Principal, memberID, role string) error
	RemoveMember(ctx context.Context, p session.Principal, memberID string) error

	ListInvitations(ctx context.Context, p session.Principal) ([]Invitation, error)
	AcceptInvitation(ctx context.Context, p session.Principal, memberID, token string) error
	DeclineInvitation(ctx context.Context, p session.Principal, memberID string) error
	LinkPendingInvitations(ctx context.Context, profileID, email string) (int, error)
}

type service struct {
	repo   Repository
	email  emailService.EmailSender
	appURL string
}

func NewAccountService(repo Repository, email emailService.EmailSender, appURL string) Service {
	return &service{repo: repo, email: email, appURL: strings.TrimRight(appURL, "/")}
}

func (s *service) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	return s.repo.getAccount(ctx, accountID)
}

func (s *service) UpdateAccount(ctx context.Context, p session.Principal, req UpdateAccountRequest) (*Account, error) {
	if !p.CanManageMembers() {
		return nil, ErrForbidden
	}
	a, err := s.repo.getAccount(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || len([]rune(name)) > maxAccountNameLen {
			return nil, ErrInvalidAccountName
		}
		a.Name = name
	}
	if req.Mode != nil {
		if !IsValidMode(*req.Mode) {
			return nil, ErrInvalidMode
		}
		a.Mode = *req.Mode
	}
	if req.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*req.Currency))
		if !currencyPattern.MatchString(currency) {
			return nil, ErrInvalidCurrency
		}
		a.Currency = currency
	}

	if err := s.repo.updateAccount(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *service) ListMembers(ctx context.Context, p session.Principal) ([]Member, error) {
	members, err := s.repo.listMembers(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}
	for i := range members {
		if members[i].Name == "" {
			members[i].Name = "Unknown"
		}
	}
	return members, nil
}

// Invite records a pending membership and emails the invitee a one-time token.
// Only the bcrypt hash of the token is stored.
func (s *service) Invite(ctx context.Context, p session.Principal, req InviteRequest) (*Member, error) {
	if !p.CanManageMembers() {
		return nil, ErrForbidden
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := checkmail.ValidateFormat(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if !IsInvitableRole(req.Role) {
		return nil, ErrInvalidRole
	}
	if strings.EqualFold(email, p.Email) {
		return nil, ErrCannotInviteYourself
	}

	members, err := s.repo.listMembers(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.IsAccepted && strings.EqualFold(m.Email, email) {
			return nil, ErrAlreadyMember
		}
	}
	pending, err := s.repo.hasPendingInvite(ctx, p.AccountID, email)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrDuplicateInvite
	}

	token, err := generateInviteToken()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash invite token: %w", err)
	}
	hashStr := string(hash)
	inviter := p.ProfileID

	m := &Member{
		AccountID:       p.AccountID,
		Role:            req.Role,
		InviteEmail:     &email,
		InviteTokenHash: &hashStr,
		InvitedBy:       &inviter,
		Email:           email,
		Name:            "Unknown",
	}
	if err := s.repo.insertInvite(ctx, m); err != nil {
		return nil, err
	}

	a, err := s.repo.getAccount(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}
	if s.email != nil {
		s.email.QueueEmail(email, emailService.InvitationData{
			InviterName: inviterName(p),
			AccountName: a.Name,
			Role:        m.Role,
			AcceptURL:   s.acceptURL(m.ID, token),
			Token:       token,
		})
	}
	logger.FromContext(ctx).Info().Str("account_id", p.AccountID).Str("member_id", m.ID).Msg("Invitation created")
	return m, nil
}

func (s *service) ChangeRole(ctx context.Context, p session.Principal, memberID, role string) error {
	if !p.CanManageMembers() {
		return ErrForbidden
	}
	if !IsInvitableRole(role) {
		return ErrInvalidRole
	}
	m, err := s.memberOf(ctx, p.AccountID, memberID)
	if err != nil {
		return err
	}
	if m.Role == session.RoleOwner {
		return ErrOwnerImmutable
	}
	return s.repo.updateRole(ctx, m.ID, role)
}

// RemoveMember deletes a membership or pending invitation. Members may always
// remove themselves.
func (s *service) RemoveMember(ctx context.Context, p session.Principal, memberID string) error {
	m, err := s.memberOf(ctx, p.AccountID, memberID)
	if err != nil {
		return err
	}
	if m.Role == session.RoleOwner {
		return ErrOwnerImmutable
	}
	if !p.CanManageMembers() && !m.linkedTo(p.ProfileID) {
		return ErrForbidden
	}
	return s.repo.deleteMember(ctx, m.ID)
}

func (s *service) ListInvitations(ctx context.Context, p session.Principal) ([]Invitation, error) {
	return s.repo.listInvitations(ctx, p.ProfileID, p.Email)
}

// AcceptInvitation joins the inviting account. The token may be omitted when
// the invitation was already linked to the caller by email.
func (s *service) AcceptInvitation(ctx context.Context, p session.Principal, memberID, token string) error {
	m, err := s.invitationFor(ctx, p, memberID)
	if err != nil {
		return err
	}
	if !m.linkedTo(p.ProfileID) || token != "" {
		if m.InviteTokenHash == nil || bcrypt.CompareHashAndPassword([]byte(*m.InviteTokenHash), []byte(token)) != nil {
			return ErrInvalidInviteToken
		}
	}
	if err := s.repo.acceptInvitation(ctx, m.ID, p.ProfileID); err != nil {
		return err
	}
	logger.FromContext(ctx).Info().Str("account_id", m.AccountID).Str("profile_id", p.ProfileID).Msg("Invitation accepted")
	return nil
}

func (s *service) DeclineInvitation(ctx context.Context, p session.Principal, memberID string) error {
	m, err := s.invitationFor(ctx, p, memberID)
	if err != nil {
		return err
	}
	return s.repo.deleteMember(ctx, m.ID)
}

func (s *service) LinkPendingInvitations(ctx context.Context, profileID, email string) (int, error) {
	if email == "" {
		return 0, nil
	}
	return s.repo.linkPendingInvitations(ctx, profileID, email)
}

func (s *service) memberOf(ctx context.Context, accountID, memberID string) (*Member, error) {
	m, err := s.repo.getMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if m.AccountID != accountID {
		return nil, ErrMemberNotFound
	}
	return m, nil
}

func (s *service) invitationFor(ctx context.Context, p session.Principal, memberID string) (*Member, error) {
	m, err := s.repo.getMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	if m.IsAccepted {
		if m.linkedTo(p.ProfileID) {
			return nil, ErrInvitationAccepted
		}
		return nil, ErrInvitationNotFound
	}
	emailMatch := m.ProfileID == nil && m.InviteEmail != nil && p.Email != "" && strings.EqualFold(*m.InviteEmail, p.Email)
	if !m.linkedTo(p.ProfileID) && !emailMatch {
		return nil, ErrInvitationNotFound
	}
	return m, nil
}

func (s *service) acceptURL(memberID, token string) string {
	q := url.Values{}
	q.Set("token", token)
	return s.appURL + "/invitations/" + memberID + "?" + q.Encode()
}

func inviterName(p session.Principal) string {
	if p.FullName != "" {
		return p.FullName
	}
	if p.Email != "" {
		return p.Email
	}
	return "A HisaabKitaab user"
}

func generateInviteToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate invite token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
