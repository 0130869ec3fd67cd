// internal/db/games.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ivanrubin10/fulbojubilados/internal/models"
)

const gameColumns = `id, game_date, status, participants, waitlist, team1, team2,
	original_team1, original_team2, location, game_time, cost_per_player,
	reserved_by, map_url, payment_alias, team1_score, team2_score, result_notes,
	mvp, ready_notified, ready_notified_at, created_at, updated_at`

func scanGame(row interface{ Scan(...any) error }) (models.Game, error) {
	var (
		g               models.Game
		rawDate         string
		rawParticipants string
		rawWaitlist     string
		rawTeam1        sql.NullString
		rawTeam2        sql.NullString
		rawOrig1        sql.NullString
		rawOrig2        sql.NullString
		reservation     models.Reservation
		team1Score      sql.NullInt64
		team2Score      sql.NullInt64
		resultNotes     string
		rawMVP          string
		readyAt         sql.NullTime
	)

	err := row.Scan(
		&g.ID,
		&rawDate,
		&g.Status,
		&rawParticipants,
		&rawWaitlist,
		&rawTeam1,
		&rawTeam2,
		&rawOrig1,
		&rawOrig2,
		&reservation.Location,
		&reservation.Time,
		&reservation.CostPerPlayer,
		&reservation.ReservedBy,
		&reservation.MapURL,
		&reservation.PaymentAlias,
		&team1Score,
		&team2Score,
		&resultNotes,
		&rawMVP,
		&g.ReadyNotified,
		&readyAt,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return models.Game{}, err
	}

	g.Date, err = time.Parse(dateLayout, rawDate)
	if err != nil {
		return models.Game{}, fmt.Errorf("parse game date %q: %w", rawDate, err)
	}
	if g.Participants, err = unmarshalIDs(rawParticipants); err != nil {
		return models.Game{}, err
	}
	if g.Waitlist, err = unmarshalIDs(rawWaitlist); err != nil {
		return models.Game{}, err
	}
	if g.Teams, err = scanTeams(rawTeam1, rawTeam2); err != nil {
		return models.Game{}, err
	}
	if g.OriginalTeams, err = scanTeams(rawOrig1, rawOrig2); err != nil {
		return models.Game{}, err
	}

	if reservation != (models.Reservation{}) {
		g.Reservation = &reservation
	}

	mvp, err := unmarshalIDs(rawMVP)
	if err != nil {
		return models.Game{}, err
	}
	if team1Score.Valid || team2Score.Valid || resultNotes != "" || len(mvp) > 0 {
		g.Result = &models.GameResult{
			Team1Score: intPtr(team1Score),
			Team2Score: intPtr(team2Score),
			Notes:      resultNotes,
			MVP:        models.MVPWinners(mvp),
		}
	}
	g.ReadyNotifiedAt = timePtr(readyAt)

	return g, nil
}

func scanTeams(rawTeam1, rawTeam2 sql.NullString) (*models.Teams, error) {
	if !rawTeam1.Valid && !rawTeam2.Valid {
		return nil, nil
	}
	teams := &models.Teams{Team1: []string{}, Team2: []string{}}
	var err error
	if rawTeam1.Valid {
		if teams.Team1, err = unmarshalIDs(rawTeam1.String); err != nil {
			return nil, err
		}
	}
	if rawTeam2.Valid {
		if teams.Team2, err = unmarshalIDs(rawTeam2.String); err != nil {
			return nil, err
		}
	}
	return teams, nil
}

type CreateGameParams struct {
	Date         time.Time
	Participants []string
	Waitlist     []string
}

// CreateGame inserts a scheduled game for a date. The unique index on
// game_date surfaces duplicate-date creation as a unique violation.
func (q *Queries) CreateGame(ctx context.Context, params CreateGameParams) (models.Game, error) {
	participants, err := marshalIDs(params.Participants)
	if err != nil {
		return models.Game{}, err
	}
	waitlist, err := marshalIDs(params.Waitlist)
	if err != nil {
		return models.Game{}, err
	}

	row := q.db.QueryRowContext(ctx, `
		INSERT INTO games (game_date, status, participants, waitlist)
		VALUES (?, ?, ?, ?)
		RETURNING `+gameColumns,
		params.Date.Format(dateLayout), models.StatusScheduled, participants, waitlist,
	)
	return scanGame(row)
}

func (q *Queries) GetGame(ctx context.Context, id int64) (models.Game, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = ?`, id)
	return scanGame(row)
}

func (q *Queries) GetGameByDate(ctx context.Context, date time.Time) (models.Game, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE game_date = ?`, date.Format(dateLayout))
	return scanGame(row)
}

func (q *Queries) ListGames(ctx context.Context) ([]models.Game, error) {
	return q.listGames(ctx, `SELECT `+gameColumns+` FROM games ORDER BY game_date ASC`)
}

// ListGamesForPeriod returns the games falling in a calendar month.
func (q *Queries) ListGamesForPeriod(ctx context.Context, month, year int) ([]models.Game, error) {
	prefix := fmt.Sprintf("%04d-%02d-", year, month)
	return q.listGames(ctx, `
		SELECT `+gameColumns+`
		FROM games
		WHERE game_date LIKE ?
		ORDER BY game_date ASC`,
		prefix+"%",
	)
}

func (q *Queries) ListGamesByStatus(ctx context.Context, status models.GameStatus) ([]models.Game, error) {
	return q.listGames(ctx, `
		SELECT `+gameColumns+`
		FROM games
		WHERE status = ?
		ORDER BY game_date ASC`,
		status,
	)
}

func (q *Queries) listGames(ctx context.Context, query string, args ...any) ([]models.Game, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// SaveGame writes back every mutable column of a game in one statement. All
// mutations are read-modify-write, so last write wins by design.
func (q *Queries) SaveGame(ctx context.Context, g models.Game) (models.Game, error) {
	participants, err := marshalIDs(g.Participants)
	if err != nil {
		return models.Game{}, err
	}
	waitlist, err := marshalIDs(g.Waitlist)
	if err != nil {
		return models.Game{}, err
	}

	team1, team2, err := teamColumns(g.Teams)
	if err != nil {
		return models.Game{}, err
	}
	orig1, orig2, err := teamColumns(g.OriginalTeams)
	if err != nil {
		return models.Game{}, err
	}

	var reservation models.Reservation
	if g.Reservation != nil {
		reservation = *g.Reservation
	}

	var (
		team1Score  sql.NullInt64
		team2Score  sql.NullInt64
		resultNotes string
		mvp         = "[]"
	)
	if g.Result != nil {
		team1Score = nullInt(g.Result.Team1Score)
		team2Score = nullInt(g.Result.Team2Score)
		resultNotes = g.Result.Notes
		if mvp, err = marshalIDs(g.Result.MVP); err != nil {
			return models.Game{}, err
		}
	}

	row := q.db.QueryRowContext(ctx, `
		UPDATE games SET
			status = ?,
			participants = ?,
			waitlist = ?,
			team1 = ?,
			team2 = ?,
			original_team1 = ?,
			original_team2 = ?,
			location = ?,
			game_time = ?,
			cost_per_player = ?,
			reserved_by = ?,
			map_url = ?,
			payment_alias = ?,
			team1_score = ?,
			team2_score = ?,
			result_notes = ?,
			mvp = ?,
			ready_notified = ?,
			ready_notified_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING `+gameColumns,
		g.Status,
		participants,
		waitlist,
		team1,
		team2,
		orig1,
		orig2,
		reservation.Location,
		reservation.Time,
		reservation.CostPerPlayer,
		reservation.ReservedBy,
		reservation.MapURL,
		reservation.PaymentAlias,
		team1Score,
		team2Score,
		resultNotes,
		mvp,
		g.ReadyNotified,
		nullTime(g.ReadyNotifiedAt),
		g.ID,
	)
	return scanGame(row)
}

func teamColumns(teams *models.Teams) (sql.NullString, sql.NullString, error) {
	if teams == nil {
		return sql.NullString{}, sql.NullString{}, nil
	}
	team1, err := marshalIDs(teams.Team1)
	if err != nil {
		return sql.NullString{}, sql.NullString{}, err
	}
	team2, err := marshalIDs(teams.Team2)
	if err != nil {
		return sql.NullString{}, sql.NullString{}, err
	}
	return sql.NullString{String: team1, Valid: true}, sql.NullString{String: team2, Valid: true}, nil
}
