package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies it
// in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type PgStore struct {
	db DB
}

func NewPgStore(db DB) *PgStore {
	return &PgStore{db: db}
}

const selectWindowColumns = `
	SELECT id, doctor_id, available_date,
	       available_date + start_time AS start_at,
	       available_date + end_time   AS end_at,
	       created_at
	FROM availability_windows
`

func scanWindow(row pgx.Row) (*Window, error) {
	var w Window
	err := row.Scan(
		&w.ID,
		&w.DoctorID,
		&w.Date,
		&w.Start,
		&w.End,
		&w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	w.Date = Day(w.Date)
	w.Start = w.Start.UTC()
	w.End = w.End.UTC()
	return &w, nil
}

func collectWindows(rows pgx.Rows) ([]Window, error) {
	defer rows.Close()

	var out []Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PgStore) WindowsForDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Window, error) {
	rows, err := s.db.Query(ctx, selectWindowColumns+`
		WHERE doctor_id = $1 AND available_date = $2
		ORDER BY start_time
	`, doctorID, Day(date))
	if err != nil {
		return nil, fmt.Errorf("query windows for date: %w", err)
	}
	return collectWindows(rows)
}

func (s *PgStore) WindowsInRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Window, error) {
	rows, err := s.db.Query(ctx, selectWindowColumns+`
		WHERE doctor_id = $1 AND available_date >= $2 AND available_date < $3
		ORDER BY available_date, start_time
	`, doctorID, Day(from), Day(to))
	if err != nil {
		return nil, fmt.Errorf("query windows in range: %w", err)
	}
	return collectWindows(rows)
}

// ReplaceHorizon deletes every window for the doctor inside
// [from, from+days) and inserts the given set, as one transaction.
func (s *PgStore) ReplaceHorizon(ctx context.Context, doctorID uuid.UUID, from time.Time, days int, windows []Window) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace horizon: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	horizonStart := Day(from)
	horizonEnd := horizonStart.AddDate(0, 0, days)

	_, err = tx.Exec(ctx, `
		DELETE FROM availability_windows
		WHERE doctor_id = $1 AND available_date >= $2 AND available_date < $3
	`, doctorID, horizonStart, horizonEnd)
	if err != nil {
		return fmt.Errorf("delete horizon windows: %w", err)
	}

	for _, w := range windows {
		_, err = tx.Exec(ctx, `
			INSERT INTO availability_windows (id, doctor_id, available_date, start_time, end_time, created_at)
			VALUES ($1, $2, $3, $4::time, $5::time, now())
		`, uuid.New(), doctorID, Day(w.Date), w.Start.UTC().Format("15:04:05"), w.End.UTC().Format("15:04:05"))
		if err != nil {
			return fmt.Errorf("insert window: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace horizon: %w", err)
	}
	return nil
}
