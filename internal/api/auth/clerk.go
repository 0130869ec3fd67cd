package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/rs/zerolog/log"

	"github.com/ivanrubin10/fulbojubilados/internal/api/authz"
	"github.com/ivanrubin10/fulbojubilados/internal/db"
	"github.com/ivanrubin10/fulbojubilados/internal/models"
)

var queries *db.Queries

// clerkInitialized indicates whether the Clerk SDK has been initialized
var clerkInitialized bool

func InitHandlers(q *db.Queries) {
	queries = q
}

// InitClerk initializes Clerk SDK with the secret key
func InitClerk(secretKey string) {
	if secretKey == "" {
		log.Warn().Msg("Clerk secret key not configured")
		return
	}
	clerk.SetKey(secretKey)
	clerkInitialized = true
	log.Info().Msg("Clerk SDK initialized")
}

// WithClerkSession is middleware that validates Clerk session tokens and adds
// session claims to the request context. Tokens arrive as a bearer header
// from the SPA or as the __session cookie.
func WithClerkSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !clerkInitialized {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			if cookie, err := r.Cookie("__session"); err == nil {
				token = cookie.Value
			}
		}
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := jwt.Verify(r.Context(), &jwt.VerifyParams{
			Token: token,
		})
		if err != nil {
			log.Ctx(r.Context()).Debug().Err(err).Msg("Invalid Clerk session token")
			next.ServeHTTP(w, r)
			return
		}

		ctx := clerk.ContextWithSessionClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// UserFromRequest resolves the local user from verified Clerk claims,
// provisioning a whitelisted account on first login and refreshing the stored
// profile on later ones. Returns nil without error when the request carries
// no session.
func UserFromRequest(r *http.Request) (*authz.AuthUser, error) {
	claims, ok := clerk.SessionClaimsFromContext(r.Context())
	if !ok || claims == nil {
		return nil, nil
	}
	local, err := resolveLocalUser(r.Context(), claims.Subject)
	if err != nil {
		return nil, err
	}
	return &authz.AuthUser{
		ID:            local.ID,
		Email:         local.Email,
		Name:          local.Name,
		IsAdmin:       local.IsAdmin,
		IsWhitelisted: local.IsWhitelisted,
	}, nil
}

// resolveLocalUser loads the local record for a Clerk user ID, creating it on
// first login. New members are whitelisted immediately so they can vote
// without waiting on an admin.
func resolveLocalUser(ctx context.Context, clerkUserID string) (models.User, error) {
	if queries == nil {
		return models.User{}, errors.New("database not initialized")
	}

	clerkUser, err := user.Get(ctx, clerkUserID)
	if err != nil {
		return models.User{}, err
	}
	email, name, avatarURL := profileFromClerk(clerkUser)

	local, err := queries.GetUserByID(ctx, clerkUserID)
	if err == nil {
		if local.Email != email || local.Name != name || local.AvatarURL != avatarURL {
			if updateErr := queries.UpdateUserProfile(ctx, clerkUserID, email, name, avatarURL); updateErr != nil {
				log.Ctx(ctx).Error().Err(updateErr).Str("user_id", clerkUserID).Msg("Failed to refresh user profile")
			} else {
				local.Email, local.Name, local.AvatarURL = email, name, avatarURL
			}
		}
		return local, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.User{}, err
	}

	created, err := queries.CreateUser(ctx, db.CreateUserParams{
		ID:            clerkUserID,
		Email:         email,
		Name:          name,
		AvatarURL:     avatarURL,
		IsWhitelisted: true,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return queries.GetUserByID(ctx, clerkUserID)
		}
		return models.User{}, err
	}
	log.Ctx(ctx).Info().Str("user_id", created.ID).Str("email", created.Email).Msg("Provisioned user on first login")
	return created, nil
}

func profileFromClerk(clerkUser *clerk.User) (email, name, avatarURL string) {
	if clerkUser.PrimaryEmailAddressID != nil {
		for _, address := range clerkUser.EmailAddresses {
			if address.ID == *clerkUser.PrimaryEmailAddressID {
				email = address.EmailAddress
				break
			}
		}
	}
	if email == "" && len(clerkUser.EmailAddresses) > 0 {
		email = clerkUser.EmailAddresses[0].EmailAddress
	}

	var parts []string
	if clerkUser.FirstName != nil && *clerkUser.FirstName != "" {
		parts = append(parts, *clerkUser.FirstName)
	}
	if clerkUser.LastName != nil && *clerkUser.LastName != "" {
		parts = append(parts, *clerkUser.LastName)
	}
	name = strings.Join(parts, " ")
	if name == "" {
		name = email
	}

	if clerkUser.ImageURL != nil {
		avatarURL = *clerkUser.ImageURL
	}
	return email, name, avatarURL
}
