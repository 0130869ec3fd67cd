package scheduler

import (
	"context"
	"testing"

	"github.com/ivanrubin10/fulbojubilados/internal/availability"
	"github.com/ivanrubin10/fulbojubilados/internal/db"
	"github.com/ivanrubin10/fulbojubilados/internal/models"
	"github.com/ivanrubin10/fulbojubilados/internal/roster"
	"github.com/ivanrubin10/fulbojubilados/internal/testutil"
)

func setupSweeps(t *testing.T) (*Sweeps, *availability.Ledger, *db.DB) {
	t.Helper()
	database := testutil.NewTestDB(t)
	manager := roster.New(database, nil, nil)
	ledger := availability.New(database, manager)
	sweeps := NewSweeps(database, ledger, manager, nil, "https://fulbo.example/vote")
	return sweeps, ledger, database
}

func TestRunVotingReminder(t *testing.T) {
	sweeps, ledger, database := setupSweeps(t)
	ctx := context.Background()

	testutil.SeedUser(t, database, "user_01")
	testutil.SeedUser(t, database, "user_02")
	if err := ledger.SetActivePeriod(ctx, 9, 2026); err != nil {
		t.Fatalf("set active period: %v", err)
	}

	reminded, err := sweeps.RunVotingReminder(ctx)
	if err != nil {
		t.Fatalf("run sweep: %v", err)
	}
	if reminded != 2 {
		t.Fatalf("expected 2 reminded members, got %d", reminded)
	}

	open, err := database.Queries.HasUnreadNotificationForPeriod(ctx, models.NotificationVotingReminder, 9, 2026)
	if err != nil {
		t.Fatalf("check notification: %v", err)
	}
	if !open {
		t.Error("expected an open voting reminder notification")
	}

	// A second pass must not stack another reminder.
	reminded, err = sweeps.RunVotingReminder(ctx)
	if err != nil {
		t.Fatalf("run sweep again: %v", err)
	}
	if reminded != 0 {
		t.Errorf("expected repeat run to be a no-op, got %d", reminded)
	}
}

func TestRunVotingReminderSkipsFullTurnout(t *testing.T) {
	sweeps, ledger, database := setupSweeps(t)
	ctx := context.Background()

	testutil.SeedUser(t, database, "user_01")
	if err := ledger.SetActivePeriod(ctx, 9, 2026); err != nil {
		t.Fatalf("set active period: %v", err)
	}
	if _, err := ledger.Set(ctx, "user_01", 9, 2026, nil, true); err != nil {
		t.Fatalf("vote: %v", err)
	}

	reminded, err := sweeps.RunVotingReminder(ctx)
	if err != nil {
		t.Fatalf("run sweep: %v", err)
	}
	if reminded != 0 {
		t.Fatalf("expected no reminders with full turnout, got %d", reminded)
	}
	open, err := database.Queries.HasUnreadNotificationForPeriod(ctx, models.NotificationVotingReminder, 9, 2026)
	if err != nil {
		t.Fatalf("check notification: %v", err)
	}
	if open {
		t.Error("no notification should be recorded when nobody is pending")
	}
}
