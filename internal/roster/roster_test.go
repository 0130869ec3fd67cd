package roster

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

func setupManager(t *testing.T) (*Manager, *db.DB) {
	t.Helper()
	database := testutil.NewTestDB(t)
	return New(database, nil, nil), database
}

func seedPlayers(t *testing.T, database *db.DB, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("user_%02d", i)
		testutil.SeedUser(t, database, id)
		ids = append(ids, id)
	}
	return ids
}

func seedGame(t *testing.T, database *db.DB, date time.Time, participants, waitlist []string) models.Game {
	t.Helper()
	game, err := database.Queries.CreateGame(context.Background(), db.CreateGameParams{
		Date:         date,
		Participants: participants,
		Waitlist:     waitlist,
	})
	if err != nil {
		t.Fatalf("seed game: %v", err)
	}
	return game
}

func sunday(t *testing.T, year int, month time.Month, day int) time.Time {
	t.Helper()
	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if date.Weekday() != time.Sunday {
		t.Fatalf("%s is not a Sunday", date.Format("2006-01-02"))
	}
	return date
}

func TestPromoteFromWaitlist(t *testing.T) {
	manager, database := setupManager(t)
	ctx := context.Background()

	players := seedPlayers(t, database, 4)
	game := seedGame(t, database, sunday(t, 2026, time.September, 6), players[:3], players[3:])

	updated, err := manager.PromoteFromWaitlist(ctx, game.ID, players[3])
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if !updated.HasParticipant(players[3]) {
		t.Errorf("expected %s promoted to participants, got %v", players[3], updated.Participants)
	}
	if updated.HasWaitlisted(players[3]) {
		t.Errorf("expected %s removed from waitlist, got %v", players[3], updated.Waitlist)
	}
}

func TestPromoteRejectsFullRoster(t *testing.T) {
	manager, database := setupManager(t)
	ctx := context.Background()

	players := seedPlayers(t, database, 11)
	game := seedGame(t, database, sunday(t, 2026, time.September, 6), players[:10], players[10:])

	_, err := manager.PromoteFromWaitlist(ctx, game.ID, players[10])
	if !errors.Is(err, ErrRosterFull) {
		t.Fatalf("expected ErrRosterFull, got %v", err)
	}
}

func TestPromoteRejectsNonWaitlisted(t *testing.T) {
	manager, database := setupManager(t)
	ctx := context.Background()

	players := seedPlayers(t, database, 3)
	game := seedGame(t, database, sunday(t, 2026, time.September, 6), players[:2], nil)

	_, err := manager.PromoteFromWaitlist(ctx, game.ID, players[2])
	if !errors.Is(err, ErrNotOnWaitlist) {
		t.Fatalf("expected ErrNotOnWaitlist, got %v", err)
	}
}

func TestDemoteToWaitlist(t *testing.T) {
	manager, database := setupManager(t)
	ctx := context.Background()

	players := seedPlayers(t, database, 3)
	game := seedGame(t, database, sunday(t, 2026, time.September, 6), players, nil)

	updated, err := manager.DemoteToWaitlist(ctx, game.ID, players[0])
	if err != nil {
		t.Fatalf("demote: %v", err)
	}
	if updated.HasParticipant(players[0]) {
		t.Errorf("expected %s out of participants", players[0])
	}
	if !updated.HasWaitlisted(players[0]) {
		t.Errorf("expected %s on waitlist, got %v", players[0], updated.Waitlist)
	}
}

func TestRemoveFromMatchPrunesTeams(t *testing.T) {
	manager, database := setupManager(t)
	ctx := context.Background()

	players := seedPlayers(t, database, 10)
	game := seedGame(t, database, sunday(t, 2026, time.September, 6), players, nil)

	if _, err := manager.RegenerateTeams(ctx, game.ID); err != nil {
		t.Fatalf("regenerate: %v", err)
	}

	updated, err := manager.RemoveFromMatch(ctx, game.ID, players[0])
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if updated.InMatch(players[0]) {
		t.Errorf("expected %s removed entirely", players[0])
	}
	if updated.Teams != nil {
		for _, id := range append(updated.Teams.Team1, updated.Teams.Team2...) {
			if id == players[0] {
				t.Errorf("expected %s pruned from teams", players[0])
			}
		}
	}
}

func TestRegenerateTeamsSplitsEvenly(t *testing.T) {
	manager, database := setupManager(t)
	ctx := context.Background()

	players := seedPlayers(t, database, 10)
	game := seedGame(t, database, sunday(t, 2026, time.September, 6), players, nil)

	updated, err := manager.RegenerateTeams(ctx, game.ID)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if updated.Teams == nil {
		t.Fatal("expected teams to be set")
	}
	if len(updated.Teams.Team1) != TeamSize || len(updated.Teams.Team2) != TeamSize {
		t.Fatalf("expected %d v %d, got %d v %d", TeamSize, TeamSize, len(updated.Teams.Team1), len(updated.Teams.Team2))
	}

	seen := make(map[string]int)
	for _, id := range append(updated.Teams.Team1, updated.Teams.Team2...) {
		seen[id]++
	}
	for _, id := range players {
		if seen[id] != 1 {
			t.Errorf("player %s appears %d times across teams", id, seen[id])
		}
	}

	if updated.OriginalTeams == nil {
		t.Fatal("expected first generation to snapshot original teams")
	}
}

func TestRegenerateTeamsRequiresFullRoster(t *testing.T) {
	manager, database := setupManager(t)
	ctx := context.Background()

	players := seedPlayers(t, database, 8)
	game := seedGame(t, database, sunday(t, 2026, time.September, 6), players, nil)

	_, err := manager.RegenerateTeams(ctx, game.ID)
	if !errors.Is(err, ErrRosterNotFull) {
		t.Fatalf("expected ErrRosterNotFull, got %v", err)
	}
}

func TestRevertToOriginalTeams(t *testing.T) {
	manager, database := setupManager(t)
	ctx := context.Background()

	players := seedPlayers(t, database, 10)
	game := seedGame(t, database, sunday(t, 2026, time.September, 6), players, nil)

	first, err := manager.RegenerateTeams(ctx, game.ID)
	if err != nil {
		t.Fatalf("first regenerate: %v", err)
	}
	original := *first.OriginalTeams

	if _, err := manager.RegenerateTeams(ctx, game.ID); err != nil {
		t.Fatalf("second regenerate: %v", err)
	}

	reverted, err := manager.RevertToOriginalTeams(ctx, game.ID)
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if reverted.Teams == nil {
		t.Fatal("expected teams after revert")
	}
	if !sameIDs(reverted.Teams.Team1, original.Team1) || !sameIDs(reverted.Teams.Team2, original.Team2) {
		t.Errorf("revert did not restore the first split: got %v / %v, want %v / %v",
			reverted.Teams.Team1, reverted.Teams.Team2, original.Team1, original.Team2)
	}
}

func TestRemoveKeepsSnapshotIntact(t *testing.T) {
	manager, database := setupManager(t)
	ctx := context.Background()

	players := seedPlayers(t, database, 10)
	game := seedGame(t, database, sunday(t, 2026, time.September, 6), players, nil)

	if _, err := manager.RegenerateTeams(ctx, game.ID); err != nil {
		t.Fatalf("regenerate: %v", err)
	}

	// The snapshot keeps naming the removed player; only the current split
	// drops them.
	updated, err := manager.RemoveFromMatch(ctx, game.ID, players[0])
	if err != nil {
		t.Fatalf("remove after snapshot: %v", err)
	}
	if updated.OriginalTeams == nil {
		t.Fatal("expected snapshot to survive the removal")
	}
	snapshot := append(append([]string{}, updated.OriginalTeams.Team1...), updated.OriginalTeams.Team2...)
	found := false
	for _, id := range snapshot {
		if id == players[0] {
			found = true
		}
	}
	if !found {
		t.Errorf("expected snapshot to still record %s, got %v", players[0], snapshot)
	}
}

func TestRevertDropsDepartedPlayer(t *testing.T) {
	manager, database := setupManager(t)
	ctx := context.Background()

	players := seedPlayers(t, database, 10)
	game := seedGame(t, database, sunday(t, 2026, time.September, 6), players, nil)

	first, err := manager.RegenerateTeams(ctx, game.ID)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	departed := first.Teams.Team1[0]

	if _, err := manager.RemoveFromMatch(ctx, game.ID, departed); err != nil {
		t.Fatalf("remove: %v", err)
	}

	reverted, err := manager.RevertToOriginalTeams(ctx, game.ID)
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if reverted.Teams == nil {
		t.Fatal("expected teams after revert")
	}
	restored := append(append([]string{}, reverted.Teams.Team1...), reverted.Teams.Team2...)
	for _, id := range restored {
		if id == departed {
			t.Errorf("expected %s dropped from the reverted split, got %v", departed, restored)
		}
	}
	if len(restored) != 9 {
		t.Errorf("expected the nine remaining players restored, got %d", len(restored))
	}
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestConfirmRequiresLocation(t *testing.T) {
	manager, database := setupManager(t)
	ctx := context.Background()

	players := seedPlayers(t, database, 10)
	game := seedGame(t, database, sunday(t, 2026, time.September, 6), players, nil)

	_, err := manager.Confirm(ctx, game.ID, models.Reservation{})
	if !errors.Is(err, ErrLocationRequired) {
		t.Fatalf("expected ErrLocationRequired, got %v", err)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	manager, database := setupManager(t)
	ctx := context.Background()

	players := seedPlayers(t, database, 10)
	game := seedGame(t, database, sunday(t, 2026, time.September, 6), players, nil)

	// scheduled -> completed is not allowed
	if _, err := manager.Complete(ctx, game.ID, false); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition completing a scheduled game, got %v", err)
	}

	confirmed, err := manager.Confirm(ctx, game.ID, models.Reservation{Location: "Club Norte"})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != models.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}

	completed, err := manager.Complete(ctx, game.ID, false)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != models.StatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}

	// terminal games refuse further mutation
	if _, err := manager.Cancel(ctx, game.ID); !errors.Is(err, ErrGameLocked) {
		t.Fatalf("expected ErrGameLocked cancelling a completed game, got %v", err)
	}
	if _, err := manager.PromoteFromWaitlist(ctx, game.ID, players[0]); !errors.Is(err, ErrGameLocked) {
		t.Fatalf("expected ErrGameLocked on roster mutation, got %v", err)
	}
}

func TestRevertClearsReservation(t *testing.T) {
	manager, database := setupManager(t)
	ctx := context.Background()

	players := seedPlayers(t, database, 10)
	game := seedGame(t, database, sunday(t, 2026, time.September, 6), players, nil)

	if _, err := manager.Confirm(ctx, game.ID, models.Reservation{Location: "Club Norte"}); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	reverted, err := manager.Revert(ctx, game.ID, true)
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if reverted.Status != models.StatusScheduled {
		t.Fatalf("expected scheduled, got %s", reverted.Status)
	}
	if reverted.Reservation != nil {
		t.Errorf("expected reservation cleared, got %+v", reverted.Reservation)
	}
}

func TestRecordResult(t *testing.T) {
	manager, database := setupManager(t)
	ctx := context.Background()

	players := seedPlayers(t, database, 10)
	game := seedGame(t, database, sunday(t, 2026, time.September, 6), players, nil)

	if _, err := manager.RegenerateTeams(ctx, game.ID); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if _, err := manager.Confirm(ctx, game.ID, models.Reservation{Location: "Club Norte"}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := manager.Complete(ctx, game.ID, false); err != nil {
		t.Fatalf("complete: %v", err)
	}

	updated, err := manager.RecordResult(ctx, game.ID, 5, 3, "close one")
	if err != nil {
		t.Fatalf("record result: %v", err)
	}
	if !updated.Result.HasScore() {
		t.Fatal("expected scores recorded")
	}
	if *updated.Result.Team1Score != 5 || *updated.Result.Team2Score != 3 {
		t.Errorf("unexpected scores %d-%d", *updated.Result.Team1Score, *updated.Result.Team2Score)
	}
	if updated.Result.Notes != "close one" {
		t.Errorf("unexpected notes %q", updated.Result.Notes)
	}
}

func TestRecordResultRejectsCancelled(t *testing.T) {
	manager, database := setupManager(t)
	ctx := context.Background()

	players := seedPlayers(t, database, 10)
	game := seedGame(t, database, sunday(t, 2026, time.September, 6), players, nil)

	if _, err := manager.Cancel(ctx, game.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := manager.RecordResult(ctx, game.ID, 1, 0, ""); err == nil {
		t.Fatal("expected error recording result on a cancelled game")
	}
}

func TestSundays(t *testing.T) {
	// September 2026 has Sundays on 6, 13, 20, 27.
	got := Sundays(9, 2026)
	want := []int{6, 13, 20, 27}
	if len(got) != len(want) {
		t.Fatalf("expected %d Sundays, got %d", len(want), len(got))
	}
	for i, date := range got {
		if date.Day() != want[i] {
			t.Errorf("sunday %d: expected day %d, got %d", i, want[i], date.Day())
		}
		if date.Weekday() != time.Sunday {
			t.Errorf("expected Sunday, got %s", date.Weekday())
		}
	}
}

func voteAvailability(t *testing.T, database *db.DB, userID string, month, year int, days []int, votedAt time.Time) {
	t.Helper()
	_, err := database.Queries.UpsertAvailability(context.Background(), db.UpsertAvailabilityParams{
		UserID: userID,
		Month:  month,
		Year:   year,
		Days:   days,
		VotedAt: votedAt,
	})
	if err != nil {
		t.Fatalf("vote for %s: %v", userID, err)
	}
}

func TestEnsureGamesForMonthMaterializesAtTen(t *testing.T) {
	manager, database := setupManager(t)
	ctx := context.Background()

	players := seedPlayers(t, database, 12)
	base := time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range players {
		voteAvailability(t, database, id, 9, 2026, []int{6}, base.Add(time.Duration(i)*time.Minute))
	}

	if err := manager.EnsureGamesForMonth(ctx, 9, 2026); err != nil {
		t.Fatalf("ensure games: %v", err)
	}

	game, err := database.Queries.GetGameByDate(ctx, sunday(t, 2026, time.September, 6))
	if err != nil {
		t.Fatalf("load game: %v", err)
	}
	if len(game.Participants) != MaxParticipants {
		t.Fatalf("expected %d participants, got %d", MaxParticipants, len(game.Participants))
	}
	if len(game.Waitlist) != 2 {
		t.Fatalf("expected 2 waitlisted, got %d", len(game.Waitlist))
	}
	// Roster order follows vote order.
	if !sameIDs(game.Participants, players[:10]) {
		t.Errorf("expected participants in vote order, got %v", game.Participants)
	}
	if !sameIDs(game.Waitlist, players[10:]) {
		t.Errorf("expected overflow in vote order, got %v", game.Waitlist)
	}
}

func TestEnsureGamesForMonthNeedsTenVoters(t *testing.T) {
	manager, database := setupManager(t)
	ctx := context.Background()

	players := seedPlayers(t, database, 9)
	base := time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range players {
		voteAvailability(t, database, id, 9, 2026, []int{6}, base.Add(time.Duration(i)*time.Minute))
	}

	if err := manager.EnsureGamesForMonth(ctx, 9, 2026); err != nil {
		t.Fatalf("ensure games: %v", err)
	}

	games, err := database.Queries.ListGamesForPeriod(ctx, 9, 2026)
	if err != nil {
		t.Fatalf("list games: %v", err)
	}
	if len(games) != 0 {
		t.Fatalf("expected no games with 9 voters, got %d", len(games))
	}
}

func TestSyncWithVoters(t *testing.T) {
	manager, database := setupManager(t)
	ctx := context.Background()

	players := seedPlayers(t, database, 11)
	base := time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range players {
		voteAvailability(t, database, id, 9, 2026, []int{6}, base.Add(time.Duration(i)*time.Minute))
	}
	if err := manager.EnsureGamesForMonth(ctx, 9, 2026); err != nil {
		t.Fatalf("ensure games: %v", err)
	}
	game, err := database.Queries.GetGameByDate(ctx, sunday(t, 2026, time.September, 6))
	if err != nil {
		t.Fatalf("load game: %v", err)
	}
	if _, err := manager.RegenerateTeams(ctx, game.ID); err != nil {
		t.Fatalf("regenerate: %v", err)
	}

	// First voter withdraws; everyone shifts up and the waitlisted player
	// gets a slot. The team snapshot still names the withdrawn voter.
	voteAvailability(t, database, players[0], 9, 2026, nil, base)

	synced, err := manager.SyncWithVoters(ctx, game.ID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if synced.InMatch(players[0]) {
		t.Errorf("expected withdrawn voter out of the match, got %v / %v", synced.Participants, synced.Waitlist)
	}
	if synced.Teams != nil {
		for _, id := range append(synced.Teams.Team1, synced.Teams.Team2...) {
			if id == players[0] {
				t.Errorf("expected %s pruned from teams after sync", players[0])
			}
		}
	}
	if !synced.HasParticipant(players[10]) {
		t.Errorf("expected waitlisted voter promoted, got %v", synced.Participants)
	}
	if len(synced.Waitlist) != 0 {
		t.Errorf("expected empty waitlist, got %v", synced.Waitlist)
	}
}

func TestCreateManualRejectsDuplicateDate(t *testing.T) {
	manager, database := setupManager(t)
	ctx := context.Background()

	seedPlayers(t, database, 2)
	date := sunday(t, 2026, time.September, 13)
	if _, err := manager.CreateManual(ctx, date); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := manager.CreateManual(ctx, date); !errors.Is(err, ErrDuplicateDate) {
		t.Fatalf("expected ErrDuplicateDate, got %v", err)
	}
}

func TestNotifyReadyGamesDebounce(t *testing.T) {
	manager, database := setupManager(t)
	ctx := context.Background()

	players := seedPlayers(t, database, 10)
	testutil.SeedAdmin(t, database, "admin_01")
	seedGame(t, database, sunday(t, 2026, time.September, 6), players, nil)

	if err := manager.NotifyReadyGames(ctx); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	notifications, err := database.Queries.ListNotifications(ctx)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("expected one match-ready notification, got %d", len(notifications))
	}
	if notifications[0].Type != models.NotificationMatchReady {
		t.Errorf("unexpected type %s", notifications[0].Type)
	}

	// Second pass inside the cooldown window is a no-op.
	if err := manager.NotifyReadyGames(ctx); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	notifications, err = database.Queries.ListNotifications(ctx)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("expected debounced second pass, got %d notifications", len(notifications))
	}
}
