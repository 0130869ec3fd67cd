// internal/roster/ops.go
package roster

import (
	"context"
	"math/rand/v2"

	"github.com/ivanrubin10/fulbojubilados/internal/models"
)

// PromoteFromWaitlist moves a waitlisted user into a guaranteed slot. Only
// valid while the roster has room.
func (m *Manager) PromoteFromWaitlist(ctx context.Context, gameID int64, userID string) (models.Game, error) {
	return m.mutate(ctx, gameID, func(g *models.Game) error {
		if !g.HasWaitlisted(userID) {
			return ErrNotOnWaitlist
		}
		if len(g.Participants) >= MaxParticipants {
			return ErrRosterFull
		}
		g.Waitlist = remove(g.Waitlist, userID)
		g.Participants = append(g.Participants, userID)
		return nil
	})
}

// DemoteToWaitlist moves a participant back to the end of the waitlist. The
// user stays in the match.
func (m *Manager) DemoteToWaitlist(ctx context.Context, gameID int64, userID string) (models.Game, error) {
	return m.mutate(ctx, gameID, func(g *models.Game) error {
		if !g.HasParticipant(userID) {
			return ErrNotParticipant
		}
		g.Participants = remove(g.Participants, userID)
		g.Waitlist = append(g.Waitlist, userID)
		return nil
	})
}

// RemoveFromMatch removes a user from participants, waitlist, and both team
// assignments at once. This is the destructive match-wide removal, distinct
// from moving someone between teams.
func (m *Manager) RemoveFromMatch(ctx context.Context, gameID int64, userID string) (models.Game, error) {
	return m.mutate(ctx, gameID, func(g *models.Game) error {
		if !g.InMatch(userID) {
			return ErrNotInMatch
		}
		g.Participants = remove(g.Participants, userID)
		g.Waitlist = remove(g.Waitlist, userID)
		pruneTeams(g.Teams, func(id string) bool { return id == userID })
		return nil
	})
}

// AssignToTeam places a user on team 1 or 2, removing them from the other
// side first. Users outside the match cannot be assigned.
func (m *Manager) AssignToTeam(ctx context.Context, gameID int64, userID string, team int) (models.Game, error) {
	if team != 1 && team != 2 {
		return models.Game{}, ErrInvalidTeam
	}
	return m.mutate(ctx, gameID, func(g *models.Game) error {
		if !g.InMatch(userID) {
			return ErrNotInMatch
		}
		if g.Teams == nil {
			g.Teams = &models.Teams{Team1: []string{}, Team2: []string{}}
		}
		g.Teams.Team1 = remove(g.Teams.Team1, userID)
		g.Teams.Team2 = remove(g.Teams.Team2, userID)
		if team == 1 {
			g.Teams.Team1 = append(g.Teams.Team1, userID)
		} else {
			g.Teams.Team2 = append(g.Teams.Team2, userID)
		}
		return nil
	})
}

// RegenerateTeams partitions the ten participants into two sides with an
// unweighted uniform shuffle. The first generation is also snapshotted as the
// original teams; later regenerations never touch the snapshot.
func (m *Manager) RegenerateTeams(ctx context.Context, gameID int64) (models.Game, error) {
	return m.mutate(ctx, gameID, func(g *models.Game) error {
		if len(g.Participants) != MaxParticipants {
			return ErrRosterNotFull
		}

		shuffled := copyIDs(g.Participants)
		rand.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		g.Teams = &models.Teams{
			Team1: copyIDs(shuffled[:TeamSize]),
			Team2: copyIDs(shuffled[TeamSize:]),
		}
		if g.OriginalTeams == nil {
			g.OriginalTeams = &models.Teams{
				Team1: copyIDs(g.Teams.Team1),
				Team2: copyIDs(g.Teams.Team2),
			}
		}
		return nil
	})
}

// RevertToOriginalTeams restores the first-generation team split, dropping
// snapshotted players who have since left the match. A no-op when no snapshot
// exists.
func (m *Manager) RevertToOriginalTeams(ctx context.Context, gameID int64) (models.Game, error) {
	return m.mutate(ctx, gameID, func(g *models.Game) error {
		if g.OriginalTeams == nil {
			return nil
		}
		g.Teams = &models.Teams{
			Team1: copyIDs(g.OriginalTeams.Team1),
			Team2: copyIDs(g.OriginalTeams.Team2),
		}
		pruneTeams(g.Teams, func(id string) bool { return !g.InMatch(id) })
		return nil
	})
}

// SyncWithVoters recomputes the roster for the game's date from the current
// availability ledger. This is a full recomputation, not a merge: manual
// roster edits are discarded in favor of the vote state, and team entries for
// users no longer in the match are pruned.
func (m *Manager) SyncWithVoters(ctx context.Context, gameID int64) (models.Game, error) {
	game, err := m.store.Queries.GetGame(ctx, gameID)
	if err != nil {
		return models.Game{}, err
	}

	voters, err := m.votersForDate(ctx, game.Date)
	if err != nil {
		return models.Game{}, err
	}

	return m.mutate(ctx, gameID, func(g *models.Game) error {
		g.Participants, g.Waitlist = splitRoster(voters)
		inMatch := make(map[string]struct{}, len(voters))
		for _, id := range voters {
			inMatch[id] = struct{}{}
		}
		pruneTeams(g.Teams, func(id string) bool {
			_, ok := inMatch[id]
			return !ok
		})
		return nil
	})
}

// splitRoster takes voters in vote order: the first ten get guaranteed slots,
// the rest overflow to the waitlist.
func splitRoster(voters []string) (participants, waitlist []string) {
	if len(voters) <= MaxParticipants {
		return copyIDs(voters), []string{}
	}
	return copyIDs(voters[:MaxParticipants]), copyIDs(voters[MaxParticipants:])
}

func pruneTeams(teams *models.Teams, drop func(string) bool) {
	if teams == nil {
		return
	}
	keep := func(ids []string) []string {
		out := ids[:0:0]
		for _, id := range ids {
			if !drop(id) {
				out = append(out, id)
			}
		}
		return out
	}
	teams.Team1 = keep(teams.Team1)
	teams.Team2 = keep(teams.Team2)
}
