package authz

import (
	"context"
	"errors"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// AuthUser is the authenticated member attached to a request.
type AuthUser struct {
	ID            string
	Email         string
	Name          string
	IsAdmin       bool
	IsWhitelisted bool
}

type userContextKey struct{}

func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the AuthUser stored in ctx.
// It returns nil if ctx is nil, if no user is stored, or if the stored value
// has a different type.
func UserFromContext(ctx context.Context) *AuthUser {
	if ctx == nil {
		return nil
	}
	user, ok := ctx.Value(userContextKey{}).(*AuthUser)
	if !ok {
		return nil
	}
	return user
}

// IsAdmin reports whether the given AuthUser represents a group admin.
func IsAdmin(user *AuthUser) bool {
	return user != nil && user.IsAdmin
}

// RequireAuthenticated returns ErrUnauthenticated when no user is attached to
// ctx.
func RequireAuthenticated(ctx context.Context) error {
	if UserFromContext(ctx) == nil {
		return ErrUnauthenticated
	}
	return nil
}

// RequireAdmin returns ErrUnauthenticated when no user is attached to ctx and
// ErrForbidden when the user is not an admin.
func RequireAdmin(ctx context.Context) error {
	user := UserFromContext(ctx)
	if user == nil {
		return ErrUnauthenticated
	}
	if !user.IsAdmin {
		return ErrForbidden
	}
	return nil
}

// RequireWhitelisted returns ErrForbidden for users an admin has removed from
// the whitelist. Admins always pass.
func RequireWhitelisted(ctx context.Context) error {
	user := UserFromContext(ctx)
	if user == nil {
		return ErrUnauthenticated
	}
	if !user.IsWhitelisted && !user.IsAdmin {
		return ErrForbidden
	}
	return nil
}
