// internal/roster/lifecycle.go
package roster

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/ivanrubin10/fulbojubilados/internal/calendar"
	"github.com/ivanrubin10/fulbojubilados/internal/db"
	"github.com/ivanrubin10/fulbojubilados/internal/email"
	"github.com/ivanrubin10/fulbojubilados/internal/models"
)

// Confirm records reservation details on a game. A scheduled game requires a
// location and transitions to confirmed; a game that is already confirmed
// only has its reservation updated, so clearing the location later never
// silently downgrades the status. On the actual transition the manager
// creates a calendar event and emails every participant, neither of which can
// fail the transition itself.
func (m *Manager) Confirm(ctx context.Context, gameID int64, reservation models.Reservation) (models.Game, error) {
	transitioned := false

	game, err := m.mutate(ctx, gameID, func(g *models.Game) error {
		switch g.Status {
		case models.StatusScheduled:
			if reservation.Location == "" {
				return ErrLocationRequired
			}
			g.Status = models.StatusConfirmed
			transitioned = true
		case models.StatusConfirmed:
			// reservation edit only
		default:
			return ErrInvalidTransition
		}
		g.Reservation = &reservation
		return nil
	})
	if err != nil {
		return models.Game{}, err
	}

	if transitioned {
		m.announceConfirmed(ctx, game)
	}
	return game, nil
}

func (m *Manager) announceConfirmed(ctx context.Context, game models.Game) {
	logger := log.Ctx(ctx)

	reservation := game.Reservation
	if reservation == nil {
		reservation = &models.Reservation{}
	}

	if m.calendar != nil {
		err := m.calendar.CreateEvent(ctx, calendar.Event{
			Title:     "Fulbo - " + email.FormatGameDate(game.Date),
			Date:      game.Date,
			Location:  reservation.Location,
			StartTime: reservation.Time,
			Attendees: game.Participants,
		})
		if err != nil {
			logger.Error().Err(err).Int64("game_id", game.ID).Msg("Failed to create calendar event")
		}
	}

	recipients, err := m.store.Queries.UserEmails(ctx, game.Participants)
	if err != nil {
		logger.Error().Err(err).Int64("game_id", game.ID).Msg("Failed to resolve participant emails")
		return
	}
	email.Dispatch(ctx, m.sender, recipients, email.BuildMatchConfirmed(email.MatchConfirmedDetails{
		Date:         game.Date,
		Location:     reservation.Location,
		Time:         reservation.Time,
		Cost:         reservation.CostPerPlayer,
		ReservedBy:   reservation.ReservedBy,
		MapURL:       reservation.MapURL,
		PaymentAlias: reservation.PaymentAlias,
	}), logger)
}

// Revert downgrades a confirmed game back to scheduled. Stale reservation
// data under a non-confirmed status is meaningless, so the caller may ask for
// it to be cleared, but is not forced to.
func (m *Manager) Revert(ctx context.Context, gameID int64, clearReservation bool) (models.Game, error) {
	return m.mutate(ctx, gameID, func(g *models.Game) error {
		if g.Status != models.StatusConfirmed {
			return ErrInvalidTransition
		}
		g.Status = models.StatusScheduled
		if clearReservation {
			g.Reservation = nil
		}
		return nil
	})
}

// Complete marks a confirmed game as played. When notifyParticipants is set,
// participants get an MVP-vote-and-payment reminder.
func (m *Manager) Complete(ctx context.Context, gameID int64, notifyParticipants bool) (models.Game, error) {
	game, err := m.mutate(ctx, gameID, func(g *models.Game) error {
		if g.Status != models.StatusConfirmed {
			return ErrInvalidTransition
		}
		g.Status = models.StatusCompleted
		return nil
	})
	if err != nil {
		return models.Game{}, err
	}

	if notifyParticipants {
		logger := log.Ctx(ctx)
		recipients, err := m.store.Queries.UserEmails(ctx, game.Participants)
		if err != nil {
			logger.Error().Err(err).Int64("game_id", game.ID).Msg("Failed to resolve participant emails")
			return game, nil
		}
		details := email.MvpReminderDetails{Date: game.Date}
		if game.Reservation != nil {
			details.Cost = game.Reservation.CostPerPlayer
			details.PaymentAlias = game.Reservation.PaymentAlias
		}
		email.Dispatch(ctx, m.sender, recipients, email.BuildMvpReminder(details), logger)
	}
	return game, nil
}

// Cancel terminates a game from any non-terminal state.
func (m *Manager) Cancel(ctx context.Context, gameID int64) (models.Game, error) {
	return m.mutate(ctx, gameID, func(g *models.Game) error {
		g.Status = models.StatusCancelled
		return nil
	})
}

// SetStatus applies a direct admin status edit, honoring the same transition
// rules as the dedicated operations.
func (m *Manager) SetStatus(ctx context.Context, gameID int64, status models.GameStatus, clearReservation bool) (models.Game, error) {
	if !status.Valid() {
		return models.Game{}, ErrInvalidTransition
	}
	switch status {
	case models.StatusScheduled:
		return m.Revert(ctx, gameID, clearReservation)
	case models.StatusCompleted:
		return m.Complete(ctx, gameID, false)
	case models.StatusCancelled:
		return m.Cancel(ctx, gameID)
	default:
		return models.Game{}, ErrInvalidTransition
	}
}

// RecordResult stores the final score for a game. Valid only once teams
// exist; it does not transition the status, score entry and completion are
// separate admin actions.
func (m *Manager) RecordResult(ctx context.Context, gameID int64, team1Score, team2Score int, notes string) (models.Game, error) {
	var updated models.Game
	err := m.store.RunInTx(ctx, func(txDB *db.DB) error {
		game, err := txDB.Queries.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		if game.Status == models.StatusCancelled {
			return ErrGameLocked
		}
		if game.Teams == nil {
			return errors.New("teams must be generated before recording a result")
		}
		if team1Score < 0 || team2Score < 0 {
			return errors.New("scores must be non-negative")
		}

		if game.Result == nil {
			game.Result = &models.GameResult{}
		}
		game.Result.Team1Score = &team1Score
		game.Result.Team2Score = &team2Score
		game.Result.Notes = notes

		updated, err = txDB.Queries.SaveGame(ctx, game)
		return err
	})
	if err != nil {
		return models.Game{}, err
	}
	return updated, nil
}
