// internal/scheduler/sweeps.go
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ivanrubin10/fulbojubilados/internal/availability"
	"github.com/ivanrubin10/fulbojubilados/internal/config"
	"github.com/ivanrubin10/fulbojubilados/internal/db"
	"github.com/ivanrubin10/fulbojubilados/internal/email"
	"github.com/ivanrubin10/fulbojubilados/internal/models"
	"github.com/ivanrubin10/fulbojubilados/internal/roster"
)

const sweepTimeout = 2 * time.Minute

// Sweeps holds the periodic maintenance passes: nudging members who have not
// voted and surfacing rosters that filled up. Both are also triggerable by
// hand through the admin API.
type Sweeps struct {
	store    *db.DB
	ledger   *availability.Ledger
	games    *roster.Manager
	sender   email.Sender
	voteLink string
}

func NewSweeps(store *db.DB, ledger *availability.Ledger, games *roster.Manager, sender email.Sender, voteLink string) *Sweeps {
	return &Sweeps{
		store:    store,
		ledger:   ledger,
		games:    games,
		sender:   sender,
		voteLink: voteLink,
	}
}

// Register wires both sweeps into the scheduler on their configured cadences.
func (s *Sweeps) Register(svc *Service, cfg config.SweepsConfig) error {
	_, err := svc.AddJob("voting_reminder_sweep", cfg.VotingReminderCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		jobLogger := log.With().Str("component", "voting_reminder_sweep").Logger()
		ctx = jobLogger.WithContext(ctx)

		if _, err := s.RunVotingReminder(ctx); err != nil {
			jobLogger.Error().Err(err).Msg("Voting reminder sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("add voting reminder job: %w", err)
	}

	_, err = svc.AddJob("match_ready_sweep", cfg.MatchReadyCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		jobLogger := log.With().Str("component", "match_ready_sweep").Logger()
		ctx = jobLogger.WithContext(ctx)

		if err := s.RunMatchReady(ctx); err != nil {
			jobLogger.Error().Err(err).Msg("Match ready sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("add match ready job: %w", err)
	}
	return nil
}

// RunVotingReminder nags the whitelisted members who have not voted for the
// active month. At most one reminder notification stays open per period, so
// repeated runs are harmless; the reminder retires itself once everyone has
// voted.
func (s *Sweeps) RunVotingReminder(ctx context.Context) (int, error) {
	logger := log.Ctx(ctx)

	month, year, err := s.ledger.ActivePeriod(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolve active period: %w", err)
	}

	pending, err := s.ledger.PendingVoters(ctx, month, year)
	if err != nil {
		return 0, fmt.Errorf("list pending voters: %w", err)
	}
	if len(pending) == 0 {
		logger.Debug().Int("month", month).Int("year", year).Msg("No pending voters, skipping reminder")
		return 0, nil
	}

	alreadyOpen, err := s.store.Queries.HasUnreadNotificationForPeriod(ctx, models.NotificationVotingReminder, month, year)
	if err != nil {
		return 0, err
	}
	if alreadyOpen {
		logger.Debug().Int("month", month).Int("year", year).Msg("Voting reminder already open for period")
		return 0, nil
	}

	_, err = s.store.Queries.InsertNotification(ctx, db.InsertNotificationParams{
		Type:           models.NotificationVotingReminder,
		Month:          &month,
		Year:           &year,
		Message:        fmt.Sprintf("%d members have not voted availability for %s %d", len(pending), time.Month(month), year),
		ActionRequired: false,
	})
	if err != nil {
		return 0, fmt.Errorf("record voting reminder: %w", err)
	}

	if s.sender != nil {
		recipients := make([]string, 0, len(pending))
		for _, user := range pending {
			if user.Email != "" {
				recipients = append(recipients, user.Email)
			}
		}
		msg := email.BuildVotingReminder(email.VotingReminderDetails{
			Month:    time.Month(month),
			Year:     year,
			VoteLink: s.voteLink,
		})
		email.Dispatch(ctx, s.sender, recipients, msg, logger)
	}

	logger.Info().
		Int("month", month).
		Int("year", year).
		Int("pending", len(pending)).
		Msg("Voting reminder sent")
	return len(pending), nil
}

// RunMatchReady surfaces scheduled games whose rosters reached capacity.
func (s *Sweeps) RunMatchReady(ctx context.Context) error {
	return s.games.NotifyReadyGames(ctx)
}
