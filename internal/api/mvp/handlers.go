// internal/api/mvp/handlers.go
package mvp

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
	"github.com/ivanrubin10/fulbojubilados/internal/api/authz"
	mvpsvc "github.com/ivanrubin10/fulbojubilados/internal/mvp"
)

var (
	tally     *mvpsvc.Tally
	tallyOnce sync.Once
)

const mvpQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(t *mvpsvc.Tally) {
	if t == nil {
		log.Warn().Msg("mvp.InitHandlers called with nil tally")
		return
	}
	tallyOnce.Do(func() {
		tally = t
	})
}

type castVoteRequest struct {
	VotedFor string `json:"voted_for"`
}

// POST /api/v1/games/{id}/mvp/votes
func HandleCastVote(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if tally == nil {
		logger.Error().Msg("MVP tally not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	user := authz.UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	gameID, err := gameIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req castVoteRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	votedFor := strings.TrimSpace(req.VotedFor)
	if votedFor == "" {
		http.Error(w, "voted_for is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), mvpQueryTimeout)
	defer cancel()

	if err := tally.CastVote(ctx, gameID, user.ID, votedFor); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			http.Error(w, "Game not found", http.StatusNotFound)
		case errors.Is(err, mvpsvc.ErrAlreadyVoted):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, mvpsvc.ErrGameNotCompleted), errors.Is(err, mvpsvc.ErrNotParticipant):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			logger.Error().Err(err).Int64("game_id", gameID).Msg("Failed to record ballot")
			http.Error(w, "Failed to record vote", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/games/{id}/mvp/results
func HandleResults(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if tally == nil {
		logger.Error().Msg("MVP tally not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	user := authz.UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	gameID, err := gameIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), mvpQueryTimeout)
	defer cancel()

	results, err := tally.Results(ctx, gameID, authz.IsAdmin(user))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Game not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Int64("game_id", gameID).Msg("Failed to tally votes")
		http.Error(w, "Failed to load results", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, results); err != nil {
		logger.Error().Err(err).Int64("game_id", gameID).Msg("Failed to write results response")
	}
}

// POST /api/v1/games/{id}/mvp/finalize
func HandleFinalize(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if tally == nil {
		logger.Error().Msg("MVP tally not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
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

	ctx, cancel := context.WithTimeout(r.Context(), mvpQueryTimeout)
	defer cancel()

	winners, err := tally.Finalize(ctx, gameID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			http.Error(w, "Game not found", http.StatusNotFound)
		case errors.Is(err, mvpsvc.ErrGameNotCompleted), errors.Is(err, mvpsvc.ErrNoBallots):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			logger.Error().Err(err).Int64("game_id", gameID).Msg("Failed to finalize MVP")
			http.Error(w, "Failed to finalize MVP", http.StatusInternalServerError)
		}
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"mvp": winners}); err != nil {
		logger.Error().Err(err).Int64("game_id", gameID).Msg("Failed to write finalize response")
	}
}

func gameIDFromRequest(r *http.Request) (int64, error) {
	pathID := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(pathID, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid game ID")
	}
	return id, nil
}
