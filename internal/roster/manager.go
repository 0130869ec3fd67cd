// internal/roster/manager.go
package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ivanrubin10/fulbojubilados/internal/calendar"
	"github.com/ivanrubin10/fulbojubilados/internal/db"
	"github.com/ivanrubin10/fulbojubilados/internal/email"
	"github.com/ivanrubin10/fulbojubilados/internal/models"
)

const (
	// MaxParticipants is the roster cap; voters beyond it overflow to the
	// waitlist in vote order.
	MaxParticipants = 10
	// TeamSize is the size of each side when teams are generated.
	TeamSize = 5

	// readyNotifyCooldown debounces repeated match-ready notifications while
	// a full game sits unconfirmed.
	readyNotifyCooldown = 24 * time.Hour
)

var (
	ErrGameLocked        = errors.New("game is completed or cancelled")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrLocationRequired  = errors.New("location is required to confirm a game")
	ErrRosterFull        = errors.New("roster already has the maximum number of participants")
	ErrRosterNotFull     = errors.New("roster does not have enough participants for teams")
	ErrNotInMatch        = errors.New("user is not part of this match")
	ErrNotOnWaitlist     = errors.New("user is not on the waitlist")
	ErrNotParticipant    = errors.New("user is not a participant")
	ErrDuplicateDate     = errors.New("a game already exists for this date")
	ErrInvalidTeam       = errors.New("team must be 1 or 2")
)

// Manager maintains the participants/waitlist/teams triple for each game and
// enforces the lifecycle transition rules. Every mutation is a single
// read-modify-write transaction; notification side effects fire after the
// transaction commits and never roll it back.
type Manager struct {
	store    *db.DB
	sender   email.Sender
	calendar calendar.Provider
}

func New(store *db.DB, sender email.Sender, cal calendar.Provider) *Manager {
	return &Manager{
		store:    store,
		sender:   sender,
		calendar: cal,
	}
}

// Store exposes the underlying database for read-only handler paths.
func (m *Manager) Store() *db.DB {
	return m.store
}

// checkInvariants validates the roster shape after a mutation. A violation
// here is a programming error, surfaced loudly instead of persisted.
func checkInvariants(g *models.Game) error {
	if len(g.Participants) > MaxParticipants {
		return fmt.Errorf("participants exceed cap: %d", len(g.Participants))
	}

	seen := make(map[string]string, len(g.Participants)+len(g.Waitlist))
	for _, id := range g.Participants {
		if _, ok := seen[id]; ok {
			return fmt.Errorf("duplicate roster entry: %s", id)
		}
		seen[id] = "participants"
	}
	for _, id := range g.Waitlist {
		if where, ok := seen[id]; ok {
			return fmt.Errorf("user %s in both %s and waitlist", id, where)
		}
		seen[id] = "waitlist"
	}

	// Only the current split is validated against the match; OriginalTeams
	// is a historical snapshot and may name players who have since left.
	if g.Teams != nil {
		inTeam := make(map[string]struct{}, len(g.Teams.Team1)+len(g.Teams.Team2))
		for _, id := range append(append([]string{}, g.Teams.Team1...), g.Teams.Team2...) {
			if _, ok := inTeam[id]; ok {
				return fmt.Errorf("user %s appears in more than one team", id)
			}
			inTeam[id] = struct{}{}
			if _, ok := seen[id]; !ok {
				return fmt.Errorf("team member %s is not in the match", id)
			}
		}
	}

	return nil
}

// mutate loads a game, applies fn, validates invariants, and saves — all in
// one transaction. Games in a terminal state reject roster mutations.
func (m *Manager) mutate(ctx context.Context, gameID int64, fn func(*models.Game) error) (models.Game, error) {
	var updated models.Game
	err := m.store.RunInTx(ctx, func(txDB *db.DB) error {
		game, err := txDB.Queries.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		if game.Status.Terminal() {
			return ErrGameLocked
		}
		if err := fn(&game); err != nil {
			return err
		}
		if err := checkInvariants(&game); err != nil {
			return fmt.Errorf("roster invariant violated: %w", err)
		}
		updated, err = txDB.Queries.SaveGame(ctx, game)
		return err
	})
	if err != nil {
		return models.Game{}, err
	}
	return updated, nil
}

func remove(ids []string, id string) []string {
	out := ids[:0:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}

func copyIDs(ids []string) []string {
	return append([]string{}, ids...)
}
