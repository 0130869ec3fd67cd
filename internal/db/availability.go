// internal/db/availability.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ivanrubin10/fulbojubilados/internal/models"
)

const availabilityColumns = `user_id, month, year, days, cannot_play_any_day, has_voted, voted_at, updated_at`

func scanAvailability(row interface{ Scan(...any) error }) (models.MonthlyAvailability, error) {
	var (
		a       models.MonthlyAvailability
		rawDays string
		votedAt sql.NullTime
	)
	err := row.Scan(
		&a.UserID,
		&a.Month,
		&a.Year,
		&rawDays,
		&a.CannotPlayAnyDay,
		&a.HasVoted,
		&votedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return models.MonthlyAvailability{}, err
	}
	a.Days, err = unmarshalDays(rawDays)
	if err != nil {
		return models.MonthlyAvailability{}, err
	}
	a.VotedAt = timePtr(votedAt)
	return a, nil
}

type UpsertAvailabilityParams struct {
	UserID           string
	Month            int
	Year             int
	Days             []int
	CannotPlayAnyDay bool
	VotedAt          time.Time
}

// UpsertAvailability creates or overwrites the ledger row for (user, month,
// year). voted_at is only written on first insert so roster ordering keeps
// the original vote time across re-votes.
func (q *Queries) UpsertAvailability(ctx context.Context, params UpsertAvailabilityParams) (models.MonthlyAvailability, error) {
	rawDays, err := marshalDays(params.Days)
	if err != nil {
		return models.MonthlyAvailability{}, err
	}

	row := q.db.QueryRowContext(ctx, `
		INSERT INTO monthly_availability (user_id, month, year, days, cannot_play_any_day, has_voted, voted_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, month, year) DO UPDATE SET
			days = excluded.days,
			cannot_play_any_day = excluded.cannot_play_any_day,
			has_voted = 1,
			updated_at = CURRENT_TIMESTAMP
		RETURNING `+availabilityColumns,
		params.UserID, params.Month, params.Year, rawDays, params.CannotPlayAnyDay, params.VotedAt,
	)
	return scanAvailability(row)
}

// GetAvailability returns the ledger row, or a zero-valued row when the user
// never voted for the period.
func (q *Queries) GetAvailability(ctx context.Context, userID string, month, year int) (models.MonthlyAvailability, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+availabilityColumns+`
		FROM monthly_availability
		WHERE user_id = ? AND month = ? AND year = ?`,
		userID, month, year,
	)
	a, err := scanAvailability(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MonthlyAvailability{
			UserID: userID,
			Month:  month,
			Year:   year,
			Days:   []int{},
		}, nil
	}
	return a, err
}

// ListAvailabilityForPeriod returns every ledger row for (month, year),
// ordered by vote time ascending so earlier voters sort first.
func (q *Queries) ListAvailabilityForPeriod(ctx context.Context, month, year int) ([]models.MonthlyAvailability, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+availabilityColumns+`
		FROM monthly_availability
		WHERE month = ? AND year = ?
		ORDER BY voted_at ASC, user_id ASC`,
		month, year,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.MonthlyAvailability
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}
