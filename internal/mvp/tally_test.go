package mvp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ivanrubin10/fulbojubilados/internal/db"
	"github.com/ivanrubin10/fulbojubilados/internal/models"
	"github.com/ivanrubin10/fulbojubilados/internal/testutil"
)

func setupCompletedGame(t *testing.T) (*Tally, *db.DB, models.Game, []string) {
	t.Helper()
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	participants := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("user_%02d", i)
		testutil.SeedUser(t, database, id)
		participants = append(participants, id)
	}

	game, err := database.Queries.CreateGame(ctx, db.CreateGameParams{
		Date:         time.Date(2026, time.September, 6, 0, 0, 0, 0, time.UTC),
		Participants: participants,
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	game.Status = models.StatusCompleted
	game, err = database.Queries.SaveGame(ctx, game)
	if err != nil {
		t.Fatalf("complete game: %v", err)
	}

	return New(database), database, game, participants
}

func TestCastVoteAndResults(t *testing.T) {
	tally, _, game, players := setupCompletedGame(t)
	ctx := context.Background()

	// Three votes for players[0], one for players[1].
	for _, voter := range players[1:4] {
		if err := tally.CastVote(ctx, game.ID, voter, players[0]); err != nil {
			t.Fatalf("vote by %s: %v", voter, err)
		}
	}
	if err := tally.CastVote(ctx, game.ID, players[0], players[1]); err != nil {
		t.Fatalf("vote by %s: %v", players[0], err)
	}

	results, err := tally.Results(ctx, game.ID, false)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if results.TotalVotes != 4 {
		t.Fatalf("expected 4 ballots, got %d", results.TotalVotes)
	}
	if len(results.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(results.Candidates))
	}
	top := results.Candidates[0]
	if top.UserID != players[0] || top.Votes != 3 {
		t.Errorf("expected %s leading with 3 votes, got %+v", players[0], top)
	}
	if top.Percentage != 75.0 {
		t.Errorf("expected 75%%, got %v", top.Percentage)
	}
	if results.PendingVoters != nil {
		t.Error("non-admin results must not expose pending voters")
	}
}

func TestCastVoteOncePerVoter(t *testing.T) {
	tally, _, game, players := setupCompletedGame(t)
	ctx := context.Background()

	if err := tally.CastVote(ctx, game.ID, players[1], players[0]); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	err := tally.CastVote(ctx, game.ID, players[1], players[2])
	if !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}

	voted, err := tally.HasVoted(ctx, game.ID, players[1])
	if err != nil {
		t.Fatalf("has voted: %v", err)
	}
	if !voted {
		t.Error("expected voter marked as voted")
	}
}

func TestCastVoteRequiresParticipants(t *testing.T) {
	tally, database, game, players := setupCompletedGame(t)
	ctx := context.Background()

	testutil.SeedUser(t, database, "outsider")

	if err := tally.CastVote(ctx, game.ID, "outsider", players[0]); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant for outside voter, got %v", err)
	}
	if err := tally.CastVote(ctx, game.ID, players[0], "outsider"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant for outside candidate, got %v", err)
	}
}

func TestCastVoteRequiresCompletedGame(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.SeedUser(t, database, "user_00")
	testutil.SeedUser(t, database, "user_01")
	game, err := database.Queries.CreateGame(ctx, db.CreateGameParams{
		Date:         time.Date(2026, time.September, 6, 0, 0, 0, 0, time.UTC),
		Participants: []string{"user_00", "user_01"},
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}

	tally := New(database)
	if err := tally.CastVote(ctx, game.ID, "user_00", "user_01"); !errors.Is(err, ErrGameNotCompleted) {
		t.Fatalf("expected ErrGameNotCompleted, got %v", err)
	}
}

func TestBallotsStayAnonymous(t *testing.T) {
	tally, database, game, players := setupCompletedGame(t)
	ctx := context.Background()

	if err := tally.CastVote(ctx, game.ID, players[1], players[0]); err != nil {
		t.Fatalf("vote: %v", err)
	}

	// The ballots table must carry no voter column.
	rows, err := database.QueryContext(ctx, `SELECT * FROM mvp_votes WHERE game_id = ?`, game.ID)
	if err != nil {
		t.Fatalf("query ballots: %v", err)
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		t.Fatalf("columns: %v", err)
	}
	for _, column := range columns {
		if column == "voter_id" {
			t.Fatal("ballots must not record the voter")
		}
	}
}

func TestResultsForAdminListsPendingVoters(t *testing.T) {
	tally, _, game, players := setupCompletedGame(t)
	ctx := context.Background()

	if err := tally.CastVote(ctx, game.ID, players[1], players[0]); err != nil {
		t.Fatalf("vote: %v", err)
	}

	results, err := tally.Results(ctx, game.ID, true)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if results.VotedCount != 1 {
		t.Fatalf("expected 1 voter, got %d", results.VotedCount)
	}
	if results.Eligible != len(players) {
		t.Errorf("expected %d eligible voters, got %d", len(players), results.Eligible)
	}
	if len(results.PendingVoters) != len(players)-1 {
		t.Fatalf("expected %d pending voters, got %d", len(players)-1, len(results.PendingVoters))
	}
	for _, pending := range results.PendingVoters {
		if pending == players[1] {
			t.Errorf("voter %s should not be pending", players[1])
		}
	}
}

func TestFinalizeSingleWinner(t *testing.T) {
	tally, database, game, players := setupCompletedGame(t)
	ctx := context.Background()

	for _, voter := range players[1:4] {
		if err := tally.CastVote(ctx, game.ID, voter, players[0]); err != nil {
			t.Fatalf("vote: %v", err)
		}
	}

	winners, err := tally.Finalize(ctx, game.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(winners) != 1 || winners[0] != players[0] {
		t.Fatalf("expected single winner %s, got %v", players[0], winners)
	}

	reloaded, err := database.Queries.GetGame(ctx, game.ID)
	if err != nil {
		t.Fatalf("reload game: %v", err)
	}
	if reloaded.Result == nil || len(reloaded.Result.MVP) != 1 || reloaded.Result.MVP[0] != players[0] {
		t.Errorf("expected MVP persisted on game, got %+v", reloaded.Result)
	}
}

func TestFinalizeTie(t *testing.T) {
	tally, _, game, players := setupCompletedGame(t)
	ctx := context.Background()

	if err := tally.CastVote(ctx, game.ID, players[2], players[0]); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := tally.CastVote(ctx, game.ID, players[3], players[1]); err != nil {
		t.Fatalf("vote: %v", err)
	}

	winners, err := tally.Finalize(ctx, game.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(winners) != 2 {
		t.Fatalf("expected two tied winners, got %v", winners)
	}
}

func TestFinalizeNeedsBallots(t *testing.T) {
	tally, _, game, _ := setupCompletedGame(t)

	if _, err := tally.Finalize(context.Background(), game.ID); !errors.Is(err, ErrNoBallots) {
		t.Fatalf("expected ErrNoBallots, got %v", err)
	}
}
