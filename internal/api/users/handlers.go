// internal/api/users/handlers.go
package users

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ivanrubin10/fulbojubilados/internal/api/apiutil"
	"github.com/ivanrubin10/fulbojubilados/internal/api/authz"
	appdb "github.com/ivanrubin10/fulbojubilados/internal/db"
)

var (
	queries     *appdb.Queries
	queriesOnce sync.Once
)

const userQueryTimeout = 5 * time.Second

const maxNicknameLength = 30

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB) {
	if database == nil {
		log.Warn().Msg("users.InitHandlers called with nil database")
		return
	}
	queriesOnce.Do(func() {
		queries = database.Queries
	})
}

type updateUserRequest struct {
	IsAdmin       *bool `json:"is_admin,omitempty"`
	IsWhitelisted *bool `json:"is_whitelisted,omitempty"`
}

type updateNicknameRequest struct {
	Nickname string `json:"nickname"`
}

// GET /api/v1/users
func HandleUsersList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	user := authz.UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), userQueryTimeout)
	defer cancel()

	list, err := listUsersFor(ctx, user)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list users")
		http.Error(w, "Failed to load users", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, list); err != nil {
		logger.Error().Err(err).Msg("Failed to write users response")
	}
}

func listUsersFor(ctx context.Context, user *authz.AuthUser) (any, error) {
	if user.IsAdmin {
		return queries.ListUsers(ctx)
	}
	return queries.ListWhitelistedUsers(ctx)
}

// PATCH /api/v1/users/{id}
func HandleUserUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if !apiutil.RequireAdmin(w, r) {
		return
	}

	userID := strings.TrimSpace(r.PathValue("id"))
	if userID == "" {
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return
	}

	var req updateUserRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.IsAdmin == nil && req.IsWhitelisted == nil {
		http.Error(w, "nothing to update", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), userQueryTimeout)
	defer cancel()

	existing, err := queries.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Str("user_id", userID).Msg("Failed to load user")
		http.Error(w, "Failed to load user", http.StatusInternalServerError)
		return
	}

	isAdmin := existing.IsAdmin
	if req.IsAdmin != nil {
		isAdmin = *req.IsAdmin
	}
	isWhitelisted := existing.IsWhitelisted
	if req.IsWhitelisted != nil {
		isWhitelisted = *req.IsWhitelisted
	}

	updated, err := queries.UpdateUserFlags(ctx, appdb.UpdateUserFlagsParams{
		ID:            userID,
		IsAdmin:       isAdmin,
		IsWhitelisted: isWhitelisted,
	})
	if err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("Failed to update user flags")
		http.Error(w, "Failed to update user", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, updated); err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("Failed to write user response")
	}
}

// PATCH /api/v1/users/me/nickname
func HandleNicknameUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	user := authz.UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req updateNicknameRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	nickname := strings.TrimSpace(req.Nickname)
	if len(nickname) > maxNicknameLength {
		http.Error(w, "nickname is too long", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), userQueryTimeout)
	defer cancel()

	updated, err := queries.UpdateUserNickname(ctx, user.ID, nickname)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to update nickname")
		http.Error(w, "Failed to update nickname", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, updated); err != nil {
		logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to write nickname response")
	}
}

// DELETE /api/v1/users/{id}
func HandleUserDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if !apiutil.RequireAdmin(w, r) {
		return
	}

	userID := strings.TrimSpace(r.PathValue("id"))
	if userID == "" {
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return
	}

	admin := authz.UserFromContext(r.Context())
	if admin != nil && admin.ID == userID {
		http.Error(w, "cannot delete your own account", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), userQueryTimeout)
	defer cancel()

	if err := queries.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Str("user_id", userID).Msg("Failed to delete user")
		http.Error(w, "Failed to delete user", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
