package account

import (
	"errors"
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
)

const (
	ModeIndividual = "individual"
	ModeFamily     = "family"
	ModeShop       = "shop"

	defaultCurrency   = "PKR"
	maxAccountNameLen = 100
)

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrMemberNotFound       = errors.New("member not found")
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrForbidden            = errors.New("you do not have permission to manage this account")
	ErrInvalidMode          = errors.New("mode must be 'individual', 'family' or 'shop'")
	ErrInvalidCurrency      = errors.New("currency must be a 3-letter ISO code")
	ErrInvalidAccountName   = errors.New("account name must be between 1 and 100 characters")
	ErrInvalidRole          = errors.New("role must be 'admin', 'member' or 'viewer'")
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrDuplicateInvite      = errors.New("an invitation for this email is already pending")
	ErrAlreadyMember        = errors.New("this person is already a member of the account")
	ErrOwnerImmutable       = errors.New("the account owner cannot be changed or removed")
	ErrInvalidInviteToken   = errors.New("invalid invitation token")
	ErrInvitationAccepted   = errors.New("invitation already accepted")
	ErrCannotInviteYourself = errors.New("you cannot invite yourself")
)

type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Mode      string    `json:"mode"`
	OwnerID   string    `json:"owner_id"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member is a row of account_members. Pending invitations have IsAccepted
// false and may not be linked to a profile yet.
type Member struct {
	ID              string     `json:"id"`
	AccountID       string     `json:"account_id"`
	ProfileID       *string    `json:"profile_id"`
	Role            string     `json:"role"`
	IsAccepted      bool       `json:"is_accepted"`
	InviteEmail     *string    `json:"invite_email,omitempty"`
	InviteTokenHash *string    `json:"-"`
	InvitedBy       *string    `json:"invited_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	AcceptedAt      *time.Time `json:"accepted_at,omitempty"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
}

func (m *Member) linkedTo(profileID string) bool {
	return m.ProfileID != nil && *m.ProfileID == profileID
}

// Invitation is a pending membership as seen by the invitee.
type Invitation struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	AccountName string    `json:"account_name"`
	Role        string    `json:"role"`
	InvitedBy   string    `json:"invited_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type UpdateAccountRequest struct {
	Name     *string `json:"name"`
	Mode     *string `json:"mode"`
	Currency *string `json:"currency"`
}

type InviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func IsValidMode(mode string) bool {
	return mode == ModeIndividual || mode == ModeFamily || mode == ModeShop
}

// IsInvitableRole reports whether role can be granted through an invitation.
func IsInvitableRole(role string) bool {
	return role == session.RoleAdmin || role == session.RoleMember || role == session.RoleViewer
}
