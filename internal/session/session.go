// Package session carries the authenticated caller through a request.
package session

import "context"

// Role values of an account membership.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// Principal is the resolved caller: who they are and which account they act on.
type Principal struct {
	ProfileID  string
	ExternalID string
	Email      string
	FullName   string
	Language   string
	AccountID  string
	Role       string
}

func (p Principal) CanWrite() bool {
	return p.Role != RoleViewer
}

func (p Principal) CanManageMembers() bool {
	return p.Role == RoleOwner || p.Role == RoleAdmin
}

type contextKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok && p.ProfileID != ""
}
