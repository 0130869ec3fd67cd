// internal/mvp/tally.go
package mvp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ivanrubin10/fulbojubilados/internal/db"
	"github.com/ivanrubin10/fulbojubilados/internal/models"
)

var (
	ErrGameNotCompleted = errors.New("mvp voting is only open on completed games")
	ErrNotParticipant   = errors.New("only participants of the game may vote or be voted for")
	ErrAlreadyVoted     = errors.New("voter has already cast a ballot for this game")
	ErrNoBallots        = errors.New("no ballots cast for this game")
)

// Tally runs the anonymous MVP election for a completed game. Ballots are
// stored without the voter; a separate status table records who voted so
// repeats can be refused without linking voter to choice.
type Tally struct {
	store *db.DB
}

func New(store *db.DB) *Tally {
	return &Tally{store: store}
}

// CandidateResult is one row of the per-game tally.
type CandidateResult struct {
	UserID     string  `json:"userId"`
	Votes      int     `json:"votes"`
	Percentage float64 `json:"percentage"`
}

// Results is the tally plus turnout. PendingVoters is only populated for
// admin callers.
type Results struct {
	GameID        int64             `json:"gameId"`
	TotalVotes    int               `json:"totalVotes"`
	Candidates    []CandidateResult `json:"candidates"`
	Eligible      int               `json:"eligible"`
	VotedCount    int               `json:"votedCount"`
	PendingVoters []string          `json:"pendingVoters,omitempty"`
}

// CastVote records an anonymous ballot from voterID for votedFor.
func (t *Tally) CastVote(ctx context.Context, gameID int64, voterID, votedFor string) error {
	return t.store.RunInTx(ctx, func(txDB *db.DB) error {
		game, err := txDB.Queries.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		if game.Status != models.StatusCompleted {
			return ErrGameNotCompleted
		}
		if !game.HasParticipant(voterID) {
			return fmt.Errorf("%w: voter %s", ErrNotParticipant, voterID)
		}
		if !game.HasParticipant(votedFor) {
			return fmt.Errorf("%w: candidate %s", ErrNotParticipant, votedFor)
		}

		voted, err := txDB.Queries.HasMvpVoted(ctx, gameID, voterID)
		if err != nil {
			return err
		}
		if voted {
			return ErrAlreadyVoted
		}

		if err := txDB.Queries.InsertMvpBallot(ctx, gameID, votedFor); err != nil {
			return err
		}
		if err := txDB.Queries.InsertMvpVoteStatus(ctx, gameID, voterID); err != nil {
			if db.IsUniqueViolation(err) {
				return ErrAlreadyVoted
			}
			return err
		}
		return nil
	})
}

// HasVoted reports whether a voter already cast a ballot for the game.
func (t *Tally) HasVoted(ctx context.Context, gameID int64, voterID string) (bool, error) {
	return t.store.Queries.HasMvpVoted(ctx, gameID, voterID)
}

// Results tallies the ballots for a game. Percentages are rounded to one
// decimal; candidates are ranked by votes descending, ties broken by user ID
// for a stable order. When forAdmin is set the result names the participants
// who have not voted yet.
func (t *Tally) Results(ctx context.Context, gameID int64, forAdmin bool) (Results, error) {
	game, err := t.store.Queries.GetGame(ctx, gameID)
	if err != nil {
		return Results{}, err
	}

	ballots, err := t.store.Queries.ListMvpBallots(ctx, gameID)
	if err != nil {
		return Results{}, err
	}
	voters, err := t.store.Queries.ListMvpVoters(ctx, gameID)
	if err != nil {
		return Results{}, err
	}

	counts := make(map[string]int)
	for _, candidate := range ballots {
		counts[candidate]++
	}

	results := Results{
		GameID:     gameID,
		TotalVotes: len(ballots),
		Eligible:   len(game.Participants),
		VotedCount: len(voters),
	}
	for userID, votes := range counts {
		pct := 0.0
		if len(ballots) > 0 {
			pct = math.Round(float64(votes)/float64(len(ballots))*1000) / 10
		}
		results.Candidates = append(results.Candidates, CandidateResult{
			UserID:     userID,
			Votes:      votes,
			Percentage: pct,
		})
	}
	sort.Slice(results.Candidates, func(i, j int) bool {
		if results.Candidates[i].Votes != results.Candidates[j].Votes {
			return results.Candidates[i].Votes > results.Candidates[j].Votes
		}
		return results.Candidates[i].UserID < results.Candidates[j].UserID
	})

	if forAdmin {
		voted := make(map[string]struct{}, len(voters))
		for _, voter := range voters {
			voted[voter] = struct{}{}
		}
		for _, participant := range game.Participants {
			if _, ok := voted[participant]; !ok {
				results.PendingVoters = append(results.PendingVoters, participant)
			}
		}
	}
	return results, nil
}

// Finalize closes the election: every candidate with the maximum vote count
// becomes an MVP winner, and the winners are written onto the game result.
func (t *Tally) Finalize(ctx context.Context, gameID int64) (models.MVPWinners, error) {
	var winners models.MVPWinners
	err := t.store.RunInTx(ctx, func(txDB *db.DB) error {
		game, err := txDB.Queries.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		if game.Status != models.StatusCompleted {
			return ErrGameNotCompleted
		}

		ballots, err := txDB.Queries.ListMvpBallots(ctx, gameID)
		if err != nil {
			return err
		}
		if len(ballots) == 0 {
			return ErrNoBallots
		}

		counts := make(map[string]int)
		max := 0
		for _, candidate := range ballots {
			counts[candidate]++
			if counts[candidate] > max {
				max = counts[candidate]
			}
		}
		winners = winners[:0]
		for candidate, votes := range counts {
			if votes == max {
				winners = append(winners, candidate)
			}
		}
		sort.Strings(winners)

		if game.Result == nil {
			game.Result = &models.GameResult{}
		}
		game.Result.MVP = winners
		_, err = txDB.Queries.SaveGame(ctx, game)
		return err
	})
	if err != nil {
		return nil, err
	}
	return winners, nil
}
