// internal/db/notifications.go
package db

import (
	"context"
	"database/sql"

	"github.com/ivanrubin10/fulbojubilados/internal/models"
)

const notificationColumns = `id, type, game_id, month, year, message, read, action_required, created_at`

func scanNotification(row interface{ Scan(...any) error }) (models.AdminNotification, error) {
	var (
		n      models.AdminNotification
		gameID sql.NullInt64
		month  sql.NullInt64
		year   sql.NullInt64
	)
	err := row.Scan(
		&n.ID,
		&n.Type,
		&gameID,
		&month,
		&year,
		&n.Message,
		&n.Read,
		&n.ActionRequired,
		&n.CreatedAt,
	)
	if err != nil {
		return models.AdminNotification{}, err
	}
	if gameID.Valid {
		id := gameID.Int64
		n.GameID = &id
	}
	n.Month = intPtr(month)
	n.Year = intPtr(year)
	return n, nil
}

type InsertNotificationParams struct {
	Type           models.NotificationType
	GameID         *int64
	Month          *int
	Year           *int
	Message        string
	ActionRequired bool
}

func (q *Queries) InsertNotification(ctx context.Context, params InsertNotificationParams) (models.AdminNotification, error) {
	var gameID sql.NullInt64
	if params.GameID != nil {
		gameID = sql.NullInt64{Int64: *params.GameID, Valid: true}
	}
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO admin_notifications (type, game_id, month, year, message, action_required)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+notificationColumns,
		params.Type, gameID, nullInt(params.Month), nullInt(params.Year), params.Message, params.ActionRequired,
	)
	return scanNotification(row)
}

func (q *Queries) ListNotifications(ctx context.Context) ([]models.AdminNotification, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+notificationColumns+`
		FROM admin_notifications
		ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.AdminNotification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (q *Queries) MarkNotificationRead(ctx context.Context, id int64) error {
	result, err := q.db.ExecContext(ctx, `UPDATE admin_notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HasUnreadNotificationForPeriod reports whether an unread notification of
// the given type already exists for (month, year). Keeps the reminder sweep
// from piling up duplicates.
func (q *Queries) HasUnreadNotificationForPeriod(ctx context.Context, notificationType models.NotificationType, month, year int) (bool, error) {
	var count int
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM admin_notifications
		WHERE type = ? AND month = ? AND year = ? AND read = 0`,
		notificationType, month, year,
	).Scan(&count)
	return count > 0, err
}

// MarkPeriodNotificationsRead marks every notification of a type for
// (month, year) as read.
func (q *Queries) MarkPeriodNotificationsRead(ctx context.Context, notificationType models.NotificationType, month, year int) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE admin_notifications SET read = 1
		WHERE type = ? AND month = ? AND year = ?`,
		notificationType, month, year,
	)
	return err
}
