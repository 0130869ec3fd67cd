// internal/api/notifications/handlers.go
package notifications

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ivanrubin10/fulbojubilados/internal/api/apiutil"
	appdb "github.com/ivanrubin10/fulbojubilados/internal/db"
	"github.com/ivanrubin10/fulbojubilados/internal/models"
	"github.com/ivanrubin10/fulbojubilados/internal/scheduler"
)

var (
	queries  *appdb.Queries
	sweeps   *scheduler.Sweeps
	initOnce sync.Once
)

const notificationQueryTimeout = 5 * time.Second

// sweepTriggerTimeout is longer than the query timeout because a manual sweep
// may touch every pending voter.
const sweepTriggerTimeout = 2 * time.Minute

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB, s *scheduler.Sweeps) {
	if database == nil {
		log.Warn().Msg("notifications.InitHandlers called with nil database")
		return
	}
	initOnce.Do(func() {
		queries = database.Queries
		sweeps = s
	})
}

// GET /api/v1/notifications
func HandleNotificationsList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireAdmin(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), notificationQueryTimeout)
	defer cancel()

	list, err := queries.ListNotifications(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list notifications")
		http.Error(w, "Failed to load notifications", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []models.AdminNotification{}
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, list); err != nil {
		logger.Error().Err(err).Msg("Failed to write notifications response")
	}
}

// POST /api/v1/notifications/{id}/read
func HandleNotificationRead(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireAdmin(w, r) {
		return
	}

	pathID := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(pathID, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid notification ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), notificationQueryTimeout)
	defer cancel()

	if err := queries.MarkNotificationRead(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Notification not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Int64("notification_id", id).Msg("Failed to mark notification read")
		http.Error(w, "Failed to update notification", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/sweeps/voting-reminder
func HandleVotingReminderTrigger(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if sweeps == nil {
		logger.Error().Msg("Sweeps not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireAdmin(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sweepTriggerTimeout)
	defer cancel()

	reminded, err := sweeps.RunVotingReminder(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Manual voting reminder sweep failed")
		http.Error(w, "Failed to run voting reminder", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]int{"reminded": reminded}); err != nil {
		logger.Error().Err(err).Msg("Failed to write sweep response")
	}
}

// POST /api/v1/sweeps/match-ready
func HandleMatchReadyTrigger(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if sweeps == nil {
		logger.Error().Msg("Sweeps not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireAdmin(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sweepTriggerTimeout)
	defer cancel()

	if err := sweeps.RunMatchReady(ctx); err != nil {
		logger.Error().Err(err).Msg("Manual match ready sweep failed")
		http.Error(w, "Failed to run match ready sweep", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
