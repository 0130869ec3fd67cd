// internal/api/availability/handlers.go
package availability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ivanrubin10/fulbojubilados/internal/api/apiutil"
	"github.com/ivanrubin10/fulbojubilados/internal/api/authz"
	availsvc "github.com/ivanrubin10/fulbojubilados/internal/availability"
)

var (
	ledger     *availsvc.Ledger
	ledgerOnce sync.Once
)

const availabilityQueryTimeout = 10 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(l *availsvc.Ledger) {
	if l == nil {
		log.Warn().Msg("availability.InitHandlers called with nil ledger")
		return
	}
	ledgerOnce.Do(func() {
		ledger = l
	})
}

type setAvailabilityRequest struct {
	Month            int   `json:"month"`
	Year             int   `json:"year"`
	Days             []int `json:"days"`
	CannotPlayAnyDay bool  `json:"cannot_play_any_day"`
}

type activeMonthRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// GET /api/v1/availability
func HandleAvailabilityGet(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user, ok := requireLedgerAndUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), availabilityQueryTimeout)
	defer cancel()

	month, year, err := periodFromRequest(ctx, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	days, err := ledger.Get(ctx, user.ID, month, year)
	if err != nil {
		logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to load availability")
		http.Error(w, "Failed to load availability", http.StatusInternalServerError)
		return
	}
	if days == nil {
		days = []int{}
	}

	payload := map[string]any{"month": month, "year": year, "days": days}
	if err := apiutil.WriteJSON(w, http.StatusOK, payload); err != nil {
		logger.Error().Err(err).Msg("Failed to write availability response")
	}
}

// PUT /api/v1/availability
func HandleAvailabilitySet(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user, ok := requireLedgerAndUser(w, r)
	if !ok {
		return
	}

	var req setAvailabilityRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), availabilityQueryTimeout)
	defer cancel()

	saved, err := ledger.Set(ctx, user.ID, req.Month, req.Year, req.Days, req.CannotPlayAnyDay)
	if err != nil {
		switch {
		case errors.Is(err, availsvc.ErrInvalidPeriod), errors.Is(err, availsvc.ErrNotSunday):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, availsvc.ErrDayBlocked):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to save availability")
			http.Error(w, "Failed to save availability", http.StatusInternalServerError)
		}
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, saved); err != nil {
		logger.Error().Err(err).Msg("Failed to write availability response")
	}
}

// GET /api/v1/availability/status
func HandleVotingStatus(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user, ok := requireLedgerAndUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), availabilityQueryTimeout)
	defer cancel()

	month, year, err := periodFromRequest(ctx, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	status, err := ledger.Status(ctx, user.ID, month, year)
	if err != nil {
		logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to load voting status")
		http.Error(w, "Failed to load voting status", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, status); err != nil {
		logger.Error().Err(err).Msg("Failed to write status response")
	}
}

// GET /api/v1/availability/pending
func HandlePendingVoters(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if ledger == nil {
		logger.Error().Msg("Availability ledger not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireAdmin(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), availabilityQueryTimeout)
	defer cancel()

	month, year, err := periodFromRequest(ctx, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pending, err := ledger.PendingVoters(ctx, month, year)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list pending voters")
		http.Error(w, "Failed to load pending voters", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, pending); err != nil {
		logger.Error().Err(err).Msg("Failed to write pending voters response")
	}
}

// GET /api/v1/settings/active-month
func HandleActiveMonthGet(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if _, ok := requireLedgerAndUser(w, r); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), availabilityQueryTimeout)
	defer cancel()

	month, year, err := ledger.ActivePeriod(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load active month")
		http.Error(w, "Failed to load active month", http.StatusInternalServerError)
		return
	}

	payload := map[string]int{"month": month, "year": year}
	if err := apiutil.WriteJSON(w, http.StatusOK, payload); err != nil {
		logger.Error().Err(err).Msg("Failed to write active month response")
	}
}

// PUT /api/v1/settings/active-month
func HandleActiveMonthSet(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if ledger == nil {
		logger.Error().Msg("Availability ledger not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireAdmin(w, r) {
		return
	}

	var req activeMonthRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), availabilityQueryTimeout)
	defer cancel()

	if err := ledger.SetActivePeriod(ctx, req.Month, req.Year); err != nil {
		if errors.Is(err, availsvc.ErrInvalidPeriod) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Error().Err(err).Msg("Failed to set active month")
		http.Error(w, "Failed to set active month", http.StatusInternalServerError)
		return
	}

	payload := map[string]int{"month": req.Month, "year": req.Year}
	if err := apiutil.WriteJSON(w, http.StatusOK, payload); err != nil {
		logger.Error().Err(err).Msg("Failed to write active month response")
	}
}

func requireLedgerAndUser(w http.ResponseWriter, r *http.Request) (*authz.AuthUser, bool) {
	if ledger == nil {
		log.Ctx(r.Context()).Error().Msg("Availability ledger not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	user := authz.UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return user, true
}

// periodFromRequest reads month/year query params, falling back to the active
// month when both are absent.
func periodFromRequest(ctx context.Context, r *http.Request) (int, int, error) {
	monthRaw := strings.TrimSpace(r.URL.Query().Get("month"))
	yearRaw := strings.TrimSpace(r.URL.Query().Get("year"))
	if monthRaw == "" && yearRaw == "" {
		return ledger.ActivePeriod(ctx)
	}

	month, err := strconv.Atoi(monthRaw)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("month must be 1-12")
	}
	year, err := strconv.Atoi(yearRaw)
	if err != nil || year < 2000 {
		return 0, 0, fmt.Errorf("year must be a four-digit year")
	}
	return month, year, nil
}
