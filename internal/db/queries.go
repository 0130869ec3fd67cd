// internal/db/queries.go
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every query can run inside
// or outside a transaction.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries is the hand-written query layer over the relational store.
type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// dateLayout is how game dates are stored: calendar dates without a time
// component.
const dateLayout = "2006-01-02"

// IsUniqueViolation reports whether err is a SQLite unique-constraint error.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if ok := asSQLiteError(err, &sqliteErr); ok {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func asSQLiteError(err error, target *sqlite3.Error) bool {
	for err != nil {
		if sqliteErr, ok := err.(sqlite3.Error); ok {
			*target = sqliteErr
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// marshalIDs encodes an ordered ID list as JSON text. Nil encodes as "[]" so
// roster columns never hold SQL NULL.
func marshalIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("marshal id list: %w", err)
	}
	return string(data), nil
}

func unmarshalIDs(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal id list: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func marshalDays(days []int) (string, error) {
	if days == nil {
		days = []int{}
	}
	data, err := json.Marshal(days)
	if err != nil {
		return "", fmt.Errorf("marshal day list: %w", err)
	}
	return string(data), nil
}

func unmarshalDays(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []int{}, nil
	}
	var days []int
	if err := json.Unmarshal([]byte(raw), &days); err != nil {
		return nil, fmt.Errorf("unmarshal day list: %w", err)
	}
	if days == nil {
		days = []int{}
	}
	return days, nil
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}

func timePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func nullInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}

func intPtr(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	i := int(value.Int64)
	return &i
}
