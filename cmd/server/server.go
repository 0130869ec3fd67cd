// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ivanrubin10/fulbojubilados/internal/api"
	"github.com/ivanrubin10/fulbojubilados/internal/api/auth"
	availhandlers "github.com/ivanrubin10/fulbojubilados/internal/api/availability"
	gamehandlers "github.com/ivanrubin10/fulbojubilados/internal/api/games"
	mvphandlers "github.com/ivanrubin10/fulbojubilados/internal/api/mvp"
	notifhandlers "github.com/ivanrubin10/fulbojubilados/internal/api/notifications"
	rankhandlers "github.com/ivanrubin10/fulbojubilados/internal/api/rankings"
	userhandlers "github.com/ivanrubin10/fulbojubilados/internal/api/users"
	"github.com/ivanrubin10/fulbojubilados/internal/availability"
	"github.com/ivanrubin10/fulbojubilados/internal/calendar"
	"github.com/ivanrubin10/fulbojubilados/internal/config"
	"github.com/ivanrubin10/fulbojubilados/internal/db"
	"github.com/ivanrubin10/fulbojubilados/internal/email"
	"github.com/ivanrubin10/fulbojubilados/internal/mvp"
	"github.com/ivanrubin10/fulbojubilados/internal/rankings"
	"github.com/ivanrubin10/fulbojubilados/internal/roster"
	"github.com/ivanrubin10/fulbojubilados/internal/scheduler"
)

// app holds the wired services behind the HTTP surface.
type app struct {
	cfg       *config.Config
	store     *db.DB
	scheduler *scheduler.Service
}

func newApp(cfg *config.Config) (*app, error) {
	store, err := db.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var sender email.Sender
	if cfg.Email.Enabled {
		client, err := email.NewSESClient(cfg.Email.AccessKeyID, cfg.Email.SecretAccessKey, cfg.Email.Region, cfg.Email.Sender)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("init email client: %w", err)
		}
		sender = client
	} else {
		log.Warn().Msg("Email sending disabled")
	}

	calendarProvider, err := calendar.NewProvider(cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init calendar provider: %w", err)
	}

	manager := roster.New(store, sender, calendarProvider)
	ledger := availability.New(store, manager)
	tally := mvp.New(store)
	aggregator := rankings.New(store)

	sched, err := scheduler.New()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init scheduler: %w", err)
	}
	sweeps := scheduler.NewSweeps(store, ledger, manager, sender, cfg.App.BaseURL)
	if err := sweeps.Register(sched, cfg.Sweeps); err != nil {
		store.Close()
		return nil, fmt.Errorf("register sweeps: %w", err)
	}

	auth.InitClerk(cfg.Auth.ClerkSecretKey)
	auth.InitHandlers(store.Queries)
	userhandlers.InitHandlers(store)
	availhandlers.InitHandlers(ledger)
	gamehandlers.InitHandlers(manager)
	mvphandlers.InitHandlers(tally)
	rankhandlers.InitHandlers(aggregator)
	notifhandlers.InitHandlers(store, sweeps)

	return &app{cfg: cfg, store: store, scheduler: sched}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}
}

func (a *app) newHTTPServer() *http.Server {
	router := http.NewServeMux()

	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithAuth,
		auth.WithClerkSession,
		api.WithRequestID,
	)

	registerRoutes(router)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// User routes
	mux.HandleFunc("GET /api/v1/users", userhandlers.HandleUsersList)
	mux.HandleFunc("PATCH /api/v1/users/me/nickname", userhandlers.HandleNicknameUpdate)
	mux.HandleFunc("PATCH /api/v1/users/{id}", userhandlers.HandleUserUpdate)
	mux.HandleFunc("DELETE /api/v1/users/{id}", userhandlers.HandleUserDelete)

	// Availability routes
	mux.HandleFunc("GET /api/v1/availability", availhandlers.HandleAvailabilityGet)
	mux.HandleFunc("PUT /api/v1/availability", availhandlers.HandleAvailabilitySet)
	mux.HandleFunc("GET /api/v1/availability/status", availhandlers.HandleVotingStatus)
	mux.HandleFunc("GET /api/v1/availability/pending", availhandlers.HandlePendingVoters)
	mux.HandleFunc("GET /api/v1/settings/active-month", availhandlers.HandleActiveMonthGet)
	mux.HandleFunc("PUT /api/v1/settings/active-month", availhandlers.HandleActiveMonthSet)

	// Game routes
	mux.HandleFunc("GET /api/v1/games", gamehandlers.HandleGamesList)
	mux.HandleFunc("POST /api/v1/games", gamehandlers.HandleGameCreate)
	mux.HandleFunc("GET /api/v1/games/{id}", gamehandlers.HandleGameGet)
	mux.HandleFunc("PATCH /api/v1/games/{id}", gamehandlers.HandleGamePatch)
	mux.HandleFunc("POST /api/v1/games/{id}/confirm", gamehandlers.HandleGameConfirm)
	mux.HandleFunc("POST /api/v1/games/{id}/complete", gamehandlers.HandleGameComplete)
	mux.HandleFunc("POST /api/v1/games/{id}/cancel", gamehandlers.HandleGameCancel)
	mux.HandleFunc("POST /api/v1/games/{id}/roster/promote", gamehandlers.HandleRosterPromote)
	mux.HandleFunc("POST /api/v1/games/{id}/roster/demote", gamehandlers.HandleRosterDemote)
	mux.HandleFunc("POST /api/v1/games/{id}/roster/remove", gamehandlers.HandleRosterRemove)
	mux.HandleFunc("POST /api/v1/games/{id}/teams/assign", gamehandlers.HandleTeamAssign)
	mux.HandleFunc("POST /api/v1/games/{id}/teams/regenerate", gamehandlers.HandleTeamsRegenerate)
	mux.HandleFunc("POST /api/v1/games/{id}/teams/revert", gamehandlers.HandleTeamsRevert)
	mux.HandleFunc("POST /api/v1/games/{id}/sync", gamehandlers.HandleGameSync)
	mux.HandleFunc("POST /api/v1/games/{id}/result", gamehandlers.HandleGameResult)

	// MVP routes
	mux.HandleFunc("POST /api/v1/games/{id}/mvp/votes", mvphandlers.HandleCastVote)
	mux.HandleFunc("GET /api/v1/games/{id}/mvp/results", mvphandlers.HandleResults)
	mux.HandleFunc("POST /api/v1/games/{id}/mvp/finalize", mvphandlers.HandleFinalize)

	// Ranking routes
	mux.HandleFunc("GET /api/v1/rankings/top-winners", rankhandlers.HandleTopWinners)
	mux.HandleFunc("GET /api/v1/rankings/win-rate", rankhandlers.HandleBestWinRate)
	mux.HandleFunc("GET /api/v1/rankings/table", rankhandlers.HandleDetailedTable)
	mux.HandleFunc("GET /api/v1/rankings/hall-of-shame", rankhandlers.HandleHallOfShame)

	// Notification routes
	mux.HandleFunc("GET /api/v1/notifications", notifhandlers.HandleNotificationsList)
	mux.HandleFunc("POST /api/v1/notifications/{id}/read", notifhandlers.HandleNotificationRead)
	mux.HandleFunc("POST /api/v1/sweeps/voting-reminder", notifhandlers.HandleVotingReminderTrigger)
	mux.HandleFunc("POST /api/v1/sweeps/match-ready", notifhandlers.HandleMatchReadyTrigger)
}
