package auth

import "context"

// Role is the coarse authorization role of a caller.
type Role string

const (
	RoleAnonymous Role = "ANONYMOUS"
	RoleUser      Role = "USER"
	RoleAdmin     Role = "ADMIN"
)

// Principal identifies the caller of an operation. The zero value is the
// anonymous principal.
type Principal struct {
	ID   int64
	Role Role
}

// Anonymous returns the principal used for unauthenticated callers.
func Anonymous() Principal {
	return Principal{Role: RoleAnonymous}
}

// User returns an authenticated non-admin principal.
func User(id int64) Principal {
	return Principal{ID: id, Role: RoleUser}
}

// Admin returns an authenticated admin principal.
func Admin(id int64) Principal {
	return Principal{ID: id, Role: RoleAdmin}
}

// Authenticated reports whether the principal carries a verified identity.
func (p Principal) Authenticated() bool {
	return p.ID > 0 && (p.Role == RoleUser || p.Role == RoleAdmin)
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Authenticated() && p.Role == RoleAdmin
}

type principalKey struct{}

// WithPrincipal stores the resolved principal on a request context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal, or the
// anonymous principal.
func FromContext(ctx context.Context) Principal {
	if p, ok := ctx.Value(principalKey{}).(Principal); ok {
		return p
	}
	return Anonymous()
}
