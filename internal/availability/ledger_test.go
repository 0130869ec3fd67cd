package availability

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ivanrubin10/fulbojubilados/internal/db"
	"github.com/ivanrubin10/fulbojubilados/internal/models"
	"github.com/ivanrubin10/fulbojubilados/internal/roster"
	"github.com/ivanrubin10/fulbojubilados/internal/testutil"
)

type recordingMaterializer struct {
	ensureCalls int
	notifyCalls int
}

func (m *recordingMaterializer) EnsureGamesForMonth(ctx context.Context, month, year int) error {
	m.ensureCalls++
	return nil
}

func (m *recordingMaterializer) NotifyReadyGames(ctx context.Context) error {
	m.notifyCalls++
	return nil
}

func setupLedger(t *testing.T) (*Ledger, *recordingMaterializer, *db.DB) {
	t.Helper()
	database := testutil.NewTestDB(t)
	games := &recordingMaterializer{}
	return New(database, games), games, database
}

func TestSetAndGetRoundTrip(t *testing.T) {
	ledger, games, database := setupLedger(t)
	ctx := context.Background()

	testutil.SeedUser(t, database, "user_01")

	saved, err := ledger.Set(ctx, "user_01", 9, 2026, []int{6, 20}, false)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if !saved.HasVoted {
		t.Error("expected HasVoted after set")
	}

	days, err := ledger.Get(ctx, "user_01", 9, 2026)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(days) != 2 || days[0] != 6 || days[1] != 20 {
		t.Errorf("expected [6 20], got %v", days)
	}

	if games.ensureCalls != 1 || games.notifyCalls != 1 {
		t.Errorf("expected one materialize and one notify call, got %d/%d", games.ensureCalls, games.notifyCalls)
	}
}

func TestSetRejectsNonSundays(t *testing.T) {
	ledger, _, database := setupLedger(t)
	ctx := context.Background()

	testutil.SeedUser(t, database, "user_01")

	// September 7, 2026 is a Monday.
	_, err := ledger.Set(ctx, "user_01", 9, 2026, []int{7}, false)
	if !errors.Is(err, ErrNotSunday) {
		t.Fatalf("expected ErrNotSunday, got %v", err)
	}
}

func TestSetRejectsBadPeriod(t *testing.T) {
	ledger, _, database := setupLedger(t)
	testutil.SeedUser(t, database, "user_01")

	_, err := ledger.Set(context.Background(), "user_01", 13, 2026, nil, false)
	if !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestCannotPlayClearsDays(t *testing.T) {
	ledger, _, database := setupLedger(t)
	ctx := context.Background()

	testutil.SeedUser(t, database, "user_01")

	if _, err := ledger.Set(ctx, "user_01", 9, 2026, []int{6}, false); err != nil {
		t.Fatalf("initial vote: %v", err)
	}

	saved, err := ledger.Set(ctx, "user_01", 9, 2026, nil, true)
	if err != nil {
		t.Fatalf("cannot-play vote: %v", err)
	}
	if len(saved.Days) != 0 {
		t.Errorf("expected no days, got %v", saved.Days)
	}
	if !saved.CannotPlayAnyDay {
		t.Error("expected CannotPlayAnyDay set")
	}
}

func seedConfirmedFullGame(t *testing.T, database *db.DB, date time.Time) models.Game {
	t.Helper()
	ctx := context.Background()

	participants := make([]string, 0, roster.MaxParticipants)
	for i := 0; i < roster.MaxParticipants; i++ {
		id := fmt.Sprintf("starter_%02d", i)
		testutil.SeedUser(t, database, id)
		participants = append(participants, id)
	}
	game, err := database.Queries.CreateGame(ctx, db.CreateGameParams{
		Date:         date,
		Participants: participants,
	})
	if err != nil {
		t.Fatalf("seed game: %v", err)
	}
	game.Status = models.StatusConfirmed
	game.Reservation = &models.Reservation{Location: "Club Norte"}
	game, err = database.Queries.SaveGame(ctx, game)
	if err != nil {
		t.Fatalf("confirm game: %v", err)
	}
	return game
}

func TestBlockedDayDroppedForNewVoter(t *testing.T) {
	ledger, _, database := setupLedger(t)
	ctx := context.Background()

	seedConfirmedFullGame(t, database, time.Date(2026, time.September, 6, 0, 0, 0, 0, time.UTC))
	testutil.SeedUser(t, database, "late_voter")

	saved, err := ledger.Set(ctx, "late_voter", 9, 2026, []int{6, 13}, false)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(saved.Days) != 1 || saved.Days[0] != 13 {
		t.Errorf("expected blocked day 6 dropped, got %v", saved.Days)
	}
}

func TestBlockedDayRetainedForPriorVoter(t *testing.T) {
	ledger, _, database := setupLedger(t)
	ctx := context.Background()

	testutil.SeedUser(t, database, "early_voter")
	if _, err := ledger.Set(ctx, "early_voter", 9, 2026, []int{6, 13}, false); err != nil {
		t.Fatalf("initial vote: %v", err)
	}

	seedConfirmedFullGame(t, database, time.Date(2026, time.September, 6, 0, 0, 0, 0, time.UTC))

	// Attempting to drop the now-blocked day 6 keeps it.
	saved, err := ledger.Set(ctx, "early_voter", 9, 2026, []int{13}, false)
	if err != nil {
		t.Fatalf("re-vote: %v", err)
	}
	if len(saved.Days) != 2 || saved.Days[0] != 6 || saved.Days[1] != 13 {
		t.Errorf("expected blocked day 6 retained, got %v", saved.Days)
	}
}

func TestCannotPlayRefusedWhenBlockedDayHeld(t *testing.T) {
	ledger, _, database := setupLedger(t)
	ctx := context.Background()

	testutil.SeedUser(t, database, "early_voter")
	if _, err := ledger.Set(ctx, "early_voter", 9, 2026, []int{6}, false); err != nil {
		t.Fatalf("initial vote: %v", err)
	}

	seedConfirmedFullGame(t, database, time.Date(2026, time.September, 6, 0, 0, 0, 0, time.UTC))

	_, err := ledger.Set(ctx, "early_voter", 9, 2026, nil, true)
	if !errors.Is(err, ErrDayBlocked) {
		t.Fatalf("expected ErrDayBlocked, got %v", err)
	}
}

func TestPendingVoters(t *testing.T) {
	ledger, _, database := setupLedger(t)
	ctx := context.Background()

	testutil.SeedUser(t, database, "user_01")
	testutil.SeedUser(t, database, "user_02")
	testutil.SeedAdmin(t, database, "admin_01")

	pending, err := ledger.PendingVoters(ctx, 9, 2026)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending voters (admins excluded), got %d", len(pending))
	}

	if _, err := ledger.Set(ctx, "user_01", 9, 2026, []int{6}, false); err != nil {
		t.Fatalf("vote: %v", err)
	}

	pending, err = ledger.PendingVoters(ctx, 9, 2026)
	if err != nil {
		t.Fatalf("pending after vote: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "user_02" {
		t.Errorf("expected only user_02 pending, got %+v", pending)
	}

	// A cannot-play vote also counts as voting.
	if _, err := ledger.Set(ctx, "user_02", 9, 2026, nil, true); err != nil {
		t.Fatalf("cannot-play vote: %v", err)
	}
	pending, err = ledger.PendingVoters(ctx, 9, 2026)
	if err != nil {
		t.Fatalf("pending after all votes: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected nobody pending, got %+v", pending)
	}
}

func TestVoteRetiresReminderWhenNobodyPending(t *testing.T) {
	ledger, _, database := setupLedger(t)
	ctx := context.Background()

	testutil.SeedUser(t, database, "user_01")

	month, year := 9, 2026
	_, err := database.Queries.InsertNotification(ctx, db.InsertNotificationParams{
		Type:    models.NotificationVotingReminder,
		Month:   &month,
		Year:    &year,
		Message: "1 member has not voted",
	})
	if err != nil {
		t.Fatalf("insert reminder: %v", err)
	}

	if _, err := ledger.Set(ctx, "user_01", 9, 2026, []int{6}, false); err != nil {
		t.Fatalf("vote: %v", err)
	}

	open, err := database.Queries.HasUnreadNotificationForPeriod(ctx, models.NotificationVotingReminder, 9, 2026)
	if err != nil {
		t.Fatalf("check reminder: %v", err)
	}
	if open {
		t.Error("expected the reminder retired once everyone voted")
	}
}

func TestActivePeriodDefaultsToNow(t *testing.T) {
	ledger, _, _ := setupLedger(t)
	ctx := context.Background()

	month, year, err := ledger.ActivePeriod(ctx)
	if err != nil {
		t.Fatalf("active period: %v", err)
	}
	now := time.Now()
	if month != int(now.Month()) || year != now.Year() {
		t.Errorf("expected current month, got %d/%d", month, year)
	}

	if err := ledger.SetActivePeriod(ctx, 10, 2026); err != nil {
		t.Fatalf("set active period: %v", err)
	}
	month, year, err = ledger.ActivePeriod(ctx)
	if err != nil {
		t.Fatalf("active period after set: %v", err)
	}
	if month != 10 || year != 2026 {
		t.Errorf("expected 10/2026, got %d/%d", month, year)
	}
}
