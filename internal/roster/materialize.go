// internal/roster/materialize.go
package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ivanrubin10/fulbojubilados/internal/db"
	"github.com/ivanrubin10/fulbojubilados/internal/email"
	"github.com/ivanrubin10/fulbojubilados/internal/models"
)

// votersForDate returns the whitelisted users who voted the given date as
// available, ordered by vote time ascending. Earlier voters sort first, so a
// guaranteed slot rewards voting early.
func (m *Manager) votersForDate(ctx context.Context, date time.Time) ([]string, error) {
	entries, err := m.store.Queries.ListAvailabilityForPeriod(ctx, int(date.Month()), date.Year())
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	whitelisted, err := m.whitelistedSet(ctx)
	if err != nil {
		return nil, err
	}

	day := date.Day()
	var voters []string
	for _, entry := range entries {
		if entry.CannotPlayAnyDay {
			continue
		}
		if _, ok := whitelisted[entry.UserID]; !ok {
			continue
		}
		for _, d := range entry.Days {
			if d == day {
				voters = append(voters, entry.UserID)
				break
			}
		}
	}
	return voters, nil
}

func (m *Manager) whitelistedSet(ctx context.Context) (map[string]struct{}, error) {
	users, err := m.store.Queries.ListWhitelistedUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list whitelisted users: %w", err)
	}
	set := make(map[string]struct{}, len(users))
	for _, u := range users {
		set[u.ID] = struct{}{}
	}
	return set, nil
}

// Sundays returns every Sunday of (month, year) as a date at UTC midnight.
func Sundays(month, year int) []time.Time {
	var sundays []time.Time
	day := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	for day.Month() == time.Month(month) {
		if day.Weekday() == time.Sunday {
			sundays = append(sundays, day)
		}
		day = day.AddDate(0, 0, 1)
	}
	return sundays
}

// EnsureGamesForMonth materializes a scheduled game for every Sunday of the
// period that has accumulated ten or more qualifying votes and has no game
// yet. The first ten voters by vote time become participants; the rest land
// on the waitlist in the same order.
func (m *Manager) EnsureGamesForMonth(ctx context.Context, month, year int) error {
	logger := log.Ctx(ctx)

	for _, sunday := range Sundays(month, year) {
		voters, err := m.votersForDate(ctx, sunday)
		if err != nil {
			return err
		}
		if len(voters) < MaxParticipants {
			continue
		}

		_, err = m.store.Queries.GetGameByDate(ctx, sunday)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("look up game for %s: %w", sunday.Format("2006-01-02"), err)
		}

		participants, waitlist := splitRoster(voters)
		game, err := m.store.Queries.CreateGame(ctx, db.CreateGameParams{
			Date:         sunday,
			Participants: participants,
			Waitlist:     waitlist,
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				// Lost a race with another writer; the game exists now.
				continue
			}
			return fmt.Errorf("create game for %s: %w", sunday.Format("2006-01-02"), err)
		}
		logger.Info().
			Int64("game_id", game.ID).
			Str("date", sunday.Format("2006-01-02")).
			Int("participants", len(participants)).
			Int("waitlist", len(waitlist)).
			Msg("Game materialized from votes")
	}

	return nil
}

// CreateManual creates a scheduled game for an arbitrary date by admin
// action, seeding the roster from whoever has already voted that day.
func (m *Manager) CreateManual(ctx context.Context, date time.Time) (models.Game, error) {
	voters, err := m.votersForDate(ctx, date)
	if err != nil {
		return models.Game{}, err
	}
	participants, waitlist := splitRoster(voters)

	game, err := m.store.Queries.CreateGame(ctx, db.CreateGameParams{
		Date:         date,
		Participants: participants,
		Waitlist:     waitlist,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return models.Game{}, ErrDuplicateDate
		}
		return models.Game{}, err
	}
	return game, nil
}

// NotifyReadyGames is the match-ready debounce: for every scheduled game
// whose roster is at the cap and which has not been announced (or whose
// cooldown elapsed), it records an admin notification, emails the admins, and
// stamps a fresh timeout.
func (m *Manager) NotifyReadyGames(ctx context.Context) error {
	logger := log.Ctx(ctx)

	games, err := m.store.Queries.ListGamesByStatus(ctx, models.StatusScheduled)
	if err != nil {
		return fmt.Errorf("list scheduled games: %w", err)
	}

	now := time.Now().UTC()
	for i := range games {
		game := games[i]
		if len(game.Participants) != MaxParticipants {
			continue
		}
		if game.ReadyNotified && game.ReadyNotifiedAt != nil && now.Sub(*game.ReadyNotifiedAt) < readyNotifyCooldown {
			continue
		}

		err := m.store.RunInTx(ctx, func(txDB *db.DB) error {
			fresh, err := txDB.Queries.GetGame(ctx, game.ID)
			if err != nil {
				return err
			}
			if fresh.Status != models.StatusScheduled || len(fresh.Participants) != MaxParticipants {
				return nil
			}
			if fresh.ReadyNotified && fresh.ReadyNotifiedAt != nil && now.Sub(*fresh.ReadyNotifiedAt) < readyNotifyCooldown {
				return nil
			}

			gameID := fresh.ID
			if _, err := txDB.Queries.InsertNotification(ctx, db.InsertNotificationParams{
				Type:           models.NotificationMatchReady,
				GameID:         &gameID,
				Message:        fmt.Sprintf("Match for %s has a full roster and needs confirmation", email.FormatGameDate(fresh.Date)),
				ActionRequired: true,
			}); err != nil {
				return fmt.Errorf("insert match-ready notification: %w", err)
			}

			fresh.ReadyNotified = true
			notifiedAt := now
			fresh.ReadyNotifiedAt = &notifiedAt
			_, err = txDB.Queries.SaveGame(ctx, fresh)
			return err
		})
		if err != nil {
			logger.Error().Err(err).Int64("game_id", game.ID).Msg("Failed to record match-ready notification")
			continue
		}

		m.emailAdminsMatchReady(ctx, game)
	}

	return nil
}

func (m *Manager) emailAdminsMatchReady(ctx context.Context, game models.Game) {
	logger := log.Ctx(ctx)

	admins, err := m.store.Queries.ListAdmins(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load admins for match-ready email")
		return
	}
	recipients := make([]string, 0, len(admins))
	for _, admin := range admins {
		if admin.Email != "" {
			recipients = append(recipients, admin.Email)
		}
	}

	names := make([]string, 0, len(game.Participants))
	for _, id := range game.Participants {
		user, err := m.store.Queries.GetUserByID(ctx, id)
		if err != nil {
			names = append(names, id)
			continue
		}
		names = append(names, user.DisplayName())
	}

	email.Dispatch(ctx, m.sender, recipients, email.BuildMatchReady(email.MatchReadyDetails{
		Date:         game.Date,
		Participants: names,
	}), logger)
}
