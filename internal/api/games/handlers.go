// internal/api/games/handlers.go
package games

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
	"github.com/ivanrubin10/fulbojubilados/internal/db"
	"github.com/ivanrubin10/fulbojubilados/internal/models"
	"github.com/ivanrubin10/fulbojubilados/internal/roster"
)

var (
	manager     *roster.Manager
	queries     *db.Queries
	managerOnce sync.Once
)

const gameQueryTimeout = 10 * time.Second

const gameDateLayout = "2006-01-02"

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(m *roster.Manager) {
	if m == nil {
		log.Warn().Msg("games.InitHandlers called with nil manager")
		return
	}
	managerOnce.Do(func() {
		manager = m
		queries = m.Store().Queries
	})
}

type createGameRequest struct {
	Date string `json:"date"`
}

type statusPatchRequest struct {
	Status           string              `json:"status,omitempty"`
	ClearReservation bool                `json:"clear_reservation,omitempty"`
	Reservation      *models.Reservation `json:"reservation,omitempty"`
}

type confirmRequest struct {
	Reservation models.Reservation `json:"reservation"`
}

type completeRequest struct {
	NotifyParticipants bool `json:"notify_participants"`
}

type rosterActionRequest struct {
	UserID string `json:"user_id"`
}

type teamAssignRequest struct {
	UserID string `json:"user_id"`
	Team   int    `json:"team"`
}

type resultRequest struct {
	Team1Score int    `json:"team1_score"`
	Team2Score int    `json:"team2_score"`
	Notes      string `json:"notes,omitempty"`
}

// GET /api/v1/games
func HandleGamesList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if !ready(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	var (
		list []models.Game
		err  error
	)
	monthRaw := strings.TrimSpace(r.URL.Query().Get("month"))
	yearRaw := strings.TrimSpace(r.URL.Query().Get("year"))
	if monthRaw != "" || yearRaw != "" {
		month, convErr := strconv.Atoi(monthRaw)
		if convErr != nil || month < 1 || month > 12 {
			http.Error(w, "month must be 1-12", http.StatusBadRequest)
			return
		}
		year, convErr := strconv.Atoi(yearRaw)
		if convErr != nil || year < 2000 {
			http.Error(w, "year must be a four-digit year", http.StatusBadRequest)
			return
		}
		list, err = queries.ListGamesForPeriod(ctx, month, year)
	} else {
		list, err = queries.ListGames(ctx)
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list games")
		http.Error(w, "Failed to load games", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []models.Game{}
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, list); err != nil {
		logger.Error().Err(err).Msg("Failed to write games response")
	}
}

// POST /api/v1/games
func HandleGameCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if !ready(w, r) {
		return
	}
	if !apiutil.RequireAdmin(w, r) {
		return
	}

	var req createGameRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	date, err := time.Parse(gameDateLayout, strings.TrimSpace(req.Date))
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	game, err := manager.CreateManual(ctx, date)
	if err != nil {
		if errors.Is(err, roster.ErrDuplicateDate) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		logger.Error().Err(err).Str("date", req.Date).Msg("Failed to create game")
		http.Error(w, "Failed to create game", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusCreated, game); err != nil {
		logger.Error().Err(err).Int64("game_id", game.ID).Msg("Failed to write game response")
	}
}

// GET /api/v1/games/{id}
func HandleGameGet(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if !ready(w, r) {
		return
	}

	gameID, err := gameIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	game, err := queries.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Game not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Int64("game_id", gameID).Msg("Failed to load game")
		http.Error(w, "Failed to load game", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, game); err != nil {
		logger.Error().Err(err).Int64("game_id", gameID).Msg("Failed to write game response")
	}
}

// PATCH /api/v1/games/{id}
func HandleGamePatch(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	if !apiutil.RequireAdmin(w, r) {
		return
	}

	gameID, err := gameIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req statusPatchRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	switch {
	case req.Status != "":
		status := models.GameStatus(req.Status)
		if !status.Valid() {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
		writeGameMutation(w, r, gameID, func() (models.Game, error) {
			return manager.SetStatus(ctx, gameID, status, req.ClearReservation)
		})
	case req.Reservation != nil:
		writeGameMutation(w, r, gameID, func() (models.Game, error) {
			return manager.Confirm(ctx, gameID, *req.Reservation)
		})
	default:
		http.Error(w, "nothing to update", http.StatusBadRequest)
	}
}

// POST /api/v1/games/{id}/confirm
func HandleGameConfirm(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	if !apiutil.RequireAdmin(w, r) {
		return
	}

	gameID, err := gameIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req confirmRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	writeGameMutation(w, r, gameID, func() (models.Game, error) {
		return manager.Confirm(ctx, gameID, req.Reservation)
	})
}

// POST /api/v1/games/{id}/complete
func HandleGameComplete(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	if !apiutil.RequireAdmin(w, r) {
		return
	}

	gameID, err := gameIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := completeRequest{NotifyParticipants: true}
	if r.ContentLength > 0 {
		if err := apiutil.DecodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	writeGameMutation(w, r, gameID, func() (models.Game, error) {
		return manager.Complete(ctx, gameID, req.NotifyParticipants)
	})
}

// POST /api/v1/games/{id}/cancel
func HandleGameCancel(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	if !apiutil.RequireAdmin(w, r) {
		return
	}

	gameID, err := gameIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	writeGameMutation(w, r, gameID, func() (models.Game, error) {
		return manager.Cancel(ctx, gameID)
	})
}

// POST /api/v1/games/{id}/roster/promote
func HandleRosterPromote(w http.ResponseWriter, r *http.Request) {
	handleRosterAction(w, r, manager.PromoteFromWaitlist)
}

// POST /api/v1/games/{id}/roster/demote
func HandleRosterDemote(w http.ResponseWriter, r *http.Request) {
	handleRosterAction(w, r, manager.DemoteToWaitlist)
}

// POST /api/v1/games/{id}/roster/remove
func HandleRosterRemove(w http.ResponseWriter, r *http.Request) {
	handleRosterAction(w, r, manager.RemoveFromMatch)
}

func handleRosterAction(w http.ResponseWriter, r *http.Request, action func(context.Context, int64, string) (models.Game, error)) {
	if !ready(w, r) {
		return
	}
	if !apiutil.RequireAdmin(w, r) {
		return
	}

	gameID, err := gameIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req rosterActionRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	writeGameMutation(w, r, gameID, func() (models.Game, error) {
		return action(ctx, gameID, userID)
	})
}

// POST /api/v1/games/{id}/teams/assign
func HandleTeamAssign(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	if !apiutil.RequireAdmin(w, r) {
		return
	}

	gameID, err := gameIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req teamAssignRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	writeGameMutation(w, r, gameID, func() (models.Game, error) {
		return manager.AssignToTeam(ctx, gameID, userID, req.Team)
	})
}

// POST /api/v1/games/{id}/teams/regenerate
func HandleTeamsRegenerate(w http.ResponseWriter, r *http.Request) {
	handleSimpleAdminAction(w, r, manager.RegenerateTeams)
}

// POST /api/v1/games/{id}/teams/revert
func HandleTeamsRevert(w http.ResponseWriter, r *http.Request) {
	handleSimpleAdminAction(w, r, manager.RevertToOriginalTeams)
}

// POST /api/v1/games/{id}/sync
func HandleGameSync(w http.ResponseWriter, r *http.Request) {
	handleSimpleAdminAction(w, r, manager.SyncWithVoters)
}

func handleSimpleAdminAction(w http.ResponseWriter, r *http.Request, action func(context.Context, int64) (models.Game, error)) {
	if !ready(w, r) {
		return
	}
	if !apiutil.RequireAdmin(w, r) {
		return
	}

	gameID, err := gameIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	writeGameMutation(w, r, gameID, func() (models.Game, error) {
		return action(ctx, gameID)
	})
}

// POST /api/v1/games/{id}/result
func HandleGameResult(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	if !apiutil.RequireAdmin(w, r) {
		return
	}

	gameID, err := gameIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req resultRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Team1Score < 0 || req.Team2Score < 0 {
		http.Error(w, "scores must be non-negative", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	writeGameMutation(w, r, gameID, func() (models.Game, error) {
		return manager.RecordResult(ctx, gameID, req.Team1Score, req.Team2Score, req.Notes)
	})
}

// writeGameMutation runs a roster mutation and maps its domain errors onto
// HTTP statuses.
func writeGameMutation(w http.ResponseWriter, r *http.Request, gameID int64, mutation func() (models.Game, error)) {
	logger := log.Ctx(r.Context())

	game, err := mutation()
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			http.Error(w, "Game not found", http.StatusNotFound)
		case errors.Is(err, roster.ErrGameLocked),
			errors.Is(err, roster.ErrInvalidTransition),
			errors.Is(err, roster.ErrRosterFull),
			errors.Is(err, roster.ErrDuplicateDate):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, roster.ErrLocationRequired),
			errors.Is(err, roster.ErrRosterNotFull),
			errors.Is(err, roster.ErrNotInMatch),
			errors.Is(err, roster.ErrNotOnWaitlist),
			errors.Is(err, roster.ErrNotParticipant),
			errors.Is(err, roster.ErrInvalidTeam):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			logger.Error().Err(err).Int64("game_id", gameID).Msg("Game mutation failed")
			http.Error(w, "Failed to update game", http.StatusInternalServerError)
		}
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, game); err != nil {
		logger.Error().Err(err).Int64("game_id", gameID).Msg("Failed to write game response")
	}
}

func ready(w http.ResponseWriter, r *http.Request) bool {
	if manager == nil || queries == nil {
		log.Ctx(r.Context()).Error().Msg("Game handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return false
	}
	return true
}

func gameIDFromRequest(r *http.Request) (int64, error) {
	pathID := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(pathID, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid game ID")
	}
	return id, nil
}
