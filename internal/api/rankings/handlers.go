// internal/api/rankings/handlers.go
package rankings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ivanrubin10/fulbojubilados/internal/api/apiutil"
	"github.com/ivanrubin10/fulbojubilados/internal/api/authz"
	ranksvc "github.com/ivanrubin10/fulbojubilados/internal/rankings"
)

var (
	aggregator *ranksvc.Aggregator
	aggOnce    sync.Once
)

const rankingsQueryTimeout = 15 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(a *ranksvc.Aggregator) {
	if a == nil {
		log.Warn().Msg("rankings.InitHandlers called with nil aggregator")
		return
	}
	aggOnce.Do(func() {
		aggregator = a
	})
}

// GET /api/v1/rankings/top-winners
func HandleTopWinners(w http.ResponseWriter, r *http.Request) {
	handleTable(w, r, func(ctx context.Context, scope ranksvc.Scope) ([]ranksvc.PlayerStats, error) {
		return aggregator.TopWinners(ctx, scope)
	})
}

// GET /api/v1/rankings/win-rate
func HandleBestWinRate(w http.ResponseWriter, r *http.Request) {
	handleTable(w, r, func(ctx context.Context, scope ranksvc.Scope) ([]ranksvc.PlayerStats, error) {
		return aggregator.BestWinRate(ctx, scope)
	})
}

// GET /api/v1/rankings/table
func HandleDetailedTable(w http.ResponseWriter, r *http.Request) {
	handleTable(w, r, func(ctx context.Context, scope ranksvc.Scope) ([]ranksvc.PlayerStats, error) {
		return aggregator.DetailedTable(ctx, scope)
	})
}

// GET /api/v1/rankings/hall-of-shame
func HandleHallOfShame(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if aggregator == nil {
		logger.Error().Msg("Rankings aggregator not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if authz.UserFromContext(r.Context()) == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	scope, err := scopeFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), rankingsQueryTimeout)
	defer cancel()

	entries, err := aggregator.HallOfShame(ctx, scope)
	if err != nil {
		writeTableError(w, logger, err)
		return
	}
	if entries == nil {
		entries = []ranksvc.AbsenceEntry{}
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, entries); err != nil {
		logger.Error().Err(err).Msg("Failed to write rankings response")
	}
}

func handleTable(w http.ResponseWriter, r *http.Request, view func(context.Context, ranksvc.Scope) ([]ranksvc.PlayerStats, error)) {
	logger := log.Ctx(r.Context())

	if aggregator == nil {
		logger.Error().Msg("Rankings aggregator not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if authz.UserFromContext(r.Context()) == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	scope, err := scopeFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), rankingsQueryTimeout)
	defer cancel()

	table, err := view(ctx, scope)
	if err != nil {
		writeTableError(w, logger, err)
		return
	}
	if table == nil {
		table = []ranksvc.PlayerStats{}
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, table); err != nil {
		logger.Error().Err(err).Msg("Failed to write rankings response")
	}
}

func writeTableError(w http.ResponseWriter, logger *zerolog.Logger, err error) {
	if errors.Is(err, ranksvc.ErrInvalidQuarter) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	logger.Error().Err(err).Msg("Failed to compute rankings")
	http.Error(w, "Failed to load rankings", http.StatusInternalServerError)
}

// scopeFromRequest reads ?quarter= and ?year=. Year defaults to the current
// year, quarter to the whole year.
func scopeFromRequest(r *http.Request) (ranksvc.Scope, error) {
	scope := ranksvc.Scope{Year: time.Now().Year()}

	if yearRaw := strings.TrimSpace(r.URL.Query().Get("year")); yearRaw != "" {
		year, err := strconv.Atoi(yearRaw)
		if err != nil || year < 2000 {
			return ranksvc.Scope{}, fmt.Errorf("year must be a four-digit year")
		}
		scope.Year = year
	}
	if quarterRaw := strings.TrimSpace(r.URL.Query().Get("quarter")); quarterRaw != "" {
		quarter, err := strconv.Atoi(quarterRaw)
		if err != nil || quarter < 1 || quarter > 4 {
			return ranksvc.Scope{}, fmt.Errorf("quarter must be 1-4")
		}
		scope.Quarter = quarter
	}
	return scope, nil
}
