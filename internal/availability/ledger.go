// internal/availability/ledger.go
package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ivanrubin10/fulbojubilados/internal/db"
	"github.com/ivanrubin10/fulbojubilados/internal/models"
	"github.com/ivanrubin10/fulbojubilados/internal/roster"
)

var (
	ErrInvalidPeriod = errors.New("month must be 1-12 and year must be plausible")
	ErrNotSunday     = errors.New("availability days must be Sundays of the target month")
	ErrDayBlocked    = errors.New("cannot withdraw from a day with a confirmed full match")
)

// Materializer is the roster-side hook the ledger pokes after a vote lands:
// new votes may complete a roster, which may create a game and trip the
// match-ready debounce.
type Materializer interface {
	EnsureGamesForMonth(ctx context.Context, month, year int) error
	NotifyReadyGames(ctx context.Context) error
}

// Ledger is the per-user, per-month record of which Sundays a user can play.
// A single mutable row per (user, month, year) with last-write-wins
// semantics.
type Ledger struct {
	store *db.DB
	games Materializer
}

func New(store *db.DB, games Materializer) *Ledger {
	return &Ledger{store: store, games: games}
}

// VotingStatus is the caller-facing summary of a ledger row.
type VotingStatus struct {
	HasVoted         bool `json:"hasVoted"`
	CannotPlayAnyDay bool `json:"cannotPlayAnyDay"`
}

// Set casts or changes a user's availability vote for a month.
//
// The blocked-day rule is enforced here, centrally, rather than trusted to
// every caller: a day is blocked once a confirmed game with a full roster
// exists on it. Requesting a blocked day the user had not already selected
// silently drops it; dropping a blocked day the user had selected is refused.
func (l *Ledger) Set(ctx context.Context, userID string, month, year int, days []int, cannotPlayAnyDay bool) (models.MonthlyAvailability, error) {
	if month < 1 || month > 12 || year < 2000 || year > 2200 {
		return models.MonthlyAvailability{}, ErrInvalidPeriod
	}
	if cannotPlayAnyDay && len(days) > 0 {
		return models.MonthlyAvailability{}, fmt.Errorf("cannot-play-any-day excludes selecting days")
	}
	if err := validateSundays(days, month, year); err != nil {
		return models.MonthlyAvailability{}, err
	}

	var saved models.MonthlyAvailability
	err := l.store.RunInTx(ctx, func(txDB *db.DB) error {
		existing, err := txDB.Queries.GetAvailability(ctx, userID, month, year)
		if err != nil {
			return err
		}
		blocked, err := blockedDays(ctx, txDB.Queries, month, year)
		if err != nil {
			return err
		}

		finalDays, err := applyBlockedDayRule(days, existing.Days, blocked, cannotPlayAnyDay)
		if err != nil {
			return err
		}

		saved, err = txDB.Queries.UpsertAvailability(ctx, db.UpsertAvailabilityParams{
			UserID:           userID,
			Month:            month,
			Year:             year,
			Days:             finalDays,
			CannotPlayAnyDay: cannotPlayAnyDay,
			VotedAt:          time.Now().UTC(),
		})
		return err
	})
	if err != nil {
		return models.MonthlyAvailability{}, err
	}

	l.afterVote(ctx, month, year)
	return saved, nil
}

// afterVote runs the post-commit hooks: materialize any newly full Sundays,
// fire the match-ready debounce, and retire the period's voting reminder once
// nobody is pending. None of these can fail the vote that already landed.
func (l *Ledger) afterVote(ctx context.Context, month, year int) {
	logger := log.Ctx(ctx)

	if l.games != nil {
		if err := l.games.EnsureGamesForMonth(ctx, month, year); err != nil {
			logger.Error().Err(err).Int("month", month).Int("year", year).Msg("Failed to materialize games after vote")
		}
		if err := l.games.NotifyReadyGames(ctx); err != nil {
			logger.Error().Err(err).Msg("Failed to run match-ready check after vote")
		}
	}

	pending, err := l.PendingVoters(ctx, month, year)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to check pending voters after vote")
		return
	}
	if len(pending) == 0 {
		if err := l.store.Queries.MarkPeriodNotificationsRead(ctx, models.NotificationVotingReminder, month, year); err != nil {
			logger.Error().Err(err).Msg("Failed to retire voting reminder")
		}
	}
}

// Get returns the day list a user voted, empty if they never voted.
func (l *Ledger) Get(ctx context.Context, userID string, month, year int) ([]int, error) {
	entry, err := l.store.Queries.GetAvailability(ctx, userID, month, year)
	if err != nil {
		return nil, err
	}
	return entry.Days, nil
}

// Status returns the voting flags for a user and period.
func (l *Ledger) Status(ctx context.Context, userID string, month, year int) (VotingStatus, error) {
	entry, err := l.store.Queries.GetAvailability(ctx, userID, month, year)
	if err != nil {
		return VotingStatus{}, err
	}
	return VotingStatus{
		HasVoted:         entry.HasVoted,
		CannotPlayAnyDay: entry.CannotPlayAnyDay,
	}, nil
}

// PendingVoters returns the whitelisted, non-admin users without a vote for
// the period. Feeds the reminder sweep and the admin pending list.
func (l *Ledger) PendingVoters(ctx context.Context, month, year int) ([]models.User, error) {
	users, err := l.store.Queries.ListActiveUsers(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := l.store.Queries.ListAvailabilityForPeriod(ctx, month, year)
	if err != nil {
		return nil, err
	}

	voted := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if entry.HasVoted {
			voted[entry.UserID] = struct{}{}
		}
	}

	var pending []models.User
	for _, user := range users {
		if _, ok := voted[user.ID]; !ok {
			pending = append(pending, user)
		}
	}
	return pending, nil
}

// activeMonthKey is the settings row naming the month voting is open for.
const activeMonthKey = "active_month"

const periodLayout = "2006-01"

// ActivePeriod returns the month voting is currently open for. Defaults to the
// calendar month when no admin has set one.
func (l *Ledger) ActivePeriod(ctx context.Context) (month, year int, err error) {
	value, err := l.store.Queries.GetSetting(ctx, activeMonthKey)
	if err != nil {
		return 0, 0, err
	}
	if value != "" {
		parsed, parseErr := time.Parse(periodLayout, value)
		if parseErr == nil {
			return int(parsed.Month()), parsed.Year(), nil
		}
		log.Ctx(ctx).Warn().Str("value", value).Msg("Ignoring malformed active month setting")
	}
	now := time.Now()
	return int(now.Month()), now.Year(), nil
}

// SetActivePeriod moves voting to a new month.
func (l *Ledger) SetActivePeriod(ctx context.Context, month, year int) error {
	if month < 1 || month > 12 || year < 2000 || year > 2200 {
		return ErrInvalidPeriod
	}
	value := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format(periodLayout)
	return l.store.Queries.UpsertSetting(ctx, activeMonthKey, value)
}

// validateSundays rejects days that don't exist in the month or don't fall on
// a Sunday.
func validateSundays(days []int, month, year int) error {
	sundays := make(map[int]struct{})
	for _, sunday := range roster.Sundays(month, year) {
		sundays[sunday.Day()] = struct{}{}
	}
	for _, day := range days {
		if _, ok := sundays[day]; !ok {
			return fmt.Errorf("%w: day %d", ErrNotSunday, day)
		}
	}
	return nil
}

// blockedDays returns the days of the period carrying a confirmed game with a
// full roster. Votes can no longer move those rosters.
func blockedDays(ctx context.Context, q *db.Queries, month, year int) (map[int]struct{}, error) {
	games, err := q.ListGamesForPeriod(ctx, month, year)
	if err != nil {
		return nil, err
	}
	blocked := make(map[int]struct{})
	for _, game := range games {
		if game.Status == models.StatusConfirmed && len(game.Participants) >= roster.MaxParticipants {
			blocked[game.Date.Day()] = struct{}{}
		}
	}
	return blocked, nil
}

// applyBlockedDayRule filters a requested day set against the blocked days:
// newly requested blocked days are dropped, previously selected blocked days
// are retained. A cannot-play vote that would withdraw from a blocked day is
// refused outright.
func applyBlockedDayRule(requested, previous []int, blocked map[int]struct{}, cannotPlayAnyDay bool) ([]int, error) {
	previouslySelected := make(map[int]struct{}, len(previous))
	for _, day := range previous {
		previouslySelected[day] = struct{}{}
	}

	keptBlocked := make(map[int]struct{})
	for day := range blocked {
		if _, ok := previouslySelected[day]; ok {
			keptBlocked[day] = struct{}{}
		}
	}
	if cannotPlayAnyDay && len(keptBlocked) > 0 {
		return nil, ErrDayBlocked
	}

	final := make(map[int]struct{}, len(requested)+len(keptBlocked))
	for _, day := range requested {
		if _, isBlocked := blocked[day]; isBlocked {
			if _, had := previouslySelected[day]; !had {
				// Cannot vote onto a day that is already full.
				continue
			}
		}
		final[day] = struct{}{}
	}
	for day := range keptBlocked {
		final[day] = struct{}{}
	}

	days := make([]int, 0, len(final))
	for day := range final {
		days = append(days, day)
	}
	sort.Ints(days)
	return days, nil
}
