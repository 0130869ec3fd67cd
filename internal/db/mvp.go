// internal/db/mvp.go
package db

import (
	"context"
)

// InsertMvpBallot records an anonymous ballot. The voter is deliberately not
// stored with the ballot; double voting is blocked through the status table.
func (q *Queries) InsertMvpBallot(ctx context.Context, gameID int64, votedFor string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO mvp_votes (game_id, voted_for)
		VALUES (?, ?)`,
		gameID, votedFor,
	)
	return err
}

// InsertMvpVoteStatus marks that a voter has cast a ballot for a game. The
// primary key on (game_id, voter_id) turns a repeat into a unique violation.
func (q *Queries) InsertMvpVoteStatus(ctx context.Context, gameID int64, voterID string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO mvp_vote_status (game_id, voter_id)
		VALUES (?, ?)`,
		gameID, voterID,
	)
	return err
}

// HasMvpVoted reports whether the voter already has a status row for the game.
func (q *Queries) HasMvpVoted(ctx context.Context, gameID int64, voterID string) (bool, error) {
	var count int
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM mvp_vote_status
		WHERE game_id = ? AND voter_id = ?`,
		gameID, voterID,
	).Scan(&count)
	return count > 0, err
}

// ListMvpBallots returns the candidate of every ballot cast for a game, in
// cast order.
func (q *Queries) ListMvpBallots(ctx context.Context, gameID int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT voted_for FROM mvp_votes
		WHERE game_id = ?
		ORDER BY id ASC`,
		gameID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []string
	for rows.Next() {
		var candidate string
		if err := rows.Scan(&candidate); err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate)
	}
	return candidates, rows.Err()
}

// ListMvpVoters returns the users who have cast a ballot for a game. Used for
// the admin-only pending-voters view; never joined against the ballots.
func (q *Queries) ListMvpVoters(ctx context.Context, gameID int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT voter_id FROM mvp_vote_status
		WHERE game_id = ?
		ORDER BY created_at ASC, voter_id ASC`,
		gameID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var voters []string
	for rows.Next() {
		var voter string
		if err := rows.Scan(&voter); err != nil {
			return nil, err
		}
		voters = append(voters, voter)
	}
	return voters, rows.Err()
}
