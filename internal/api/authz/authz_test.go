package authz

import (
	"context"
	"errors"
	"testing"
)

func TestRequireAuthenticatedAnonymous(t *testing.T) {
	err := RequireAuthenticated(context.Background())
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestRequireAdminNonAdminForbidden(t *testing.T) {
	ctx := ContextWithUser(context.Background(), &AuthUser{
		ID:            "user_01",
		IsWhitelisted: true,
	})

	err := RequireAdmin(ctx)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRequireAdminAllowed(t *testing.T) {
	ctx := ContextWithUser(context.Background(), &AuthUser{
		ID:      "admin_01",
		IsAdmin: true,
	})

	if err := RequireAdmin(ctx); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestRequireWhitelistedForbidden(t *testing.T) {
	ctx := ContextWithUser(context.Background(), &AuthUser{
		ID: "user_01",
	})

	err := RequireWhitelisted(ctx)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRequireWhitelistedAdminBypasses(t *testing.T) {
	ctx := ContextWithUser(context.Background(), &AuthUser{
		ID:      "admin_01",
		IsAdmin: true,
	})

	if err := RequireWhitelisted(ctx); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestUserFromContextRoundTrip(t *testing.T) {
	user := &AuthUser{ID: "user_01", Email: "user_01@example.com"}
	ctx := ContextWithUser(context.Background(), user)

	got := UserFromContext(ctx)
	if got == nil || got.ID != user.ID {
		t.Fatalf("expected stored user back, got %+v", got)
	}
	if UserFromContext(context.Background()) != nil {
		t.Error("empty context must not yield a user")
	}
}
