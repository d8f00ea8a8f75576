package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS score_records (
	id              TEXT PRIMARY KEY,
	updated_at      TEXT NOT NULL,
	category_totals TEXT NOT NULL DEFAULT '{}',
	result_code     TEXT NOT NULL DEFAULT ''
)`

// SQLite is a single-file ScoreStore for local deployments.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer keeps json_set read-modify-write atomic.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate score_records: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Increment(ctx context.Context, id, category string, delta int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE score_records
		SET category_totals = json_set(
				category_totals,
				'$."' || ?1 || '"',
				COALESCE(json_extract(category_totals, '$."' || ?1 || '"'), 0) + ?2),
			updated_at = ?3
		WHERE id = ?4`,
		category, delta, FormatTimestamp(s.now()), id,
	)
	if err != nil {
		return unavailable("increment", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("increment", id, err)
	}
	if n == 0 {
		return notFound("increment", id)
	}
	return nil
}

func (s *SQLite) Create(ctx context.Context, id string, totals map[string]int, timestamp time.Time) error {
	body, err := marshalTotals(totals)
	if err != nil {
		return &Error{Kind: KindUnknown, Op: "create", ID: id, Err: err}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO score_records (id, updated_at, category_totals, result_code)
		VALUES (?, ?, ?, '')
		ON CONFLICT (id) DO NOTHING`,
		id, FormatTimestamp(timestamp), body,
	)
	if err != nil {
		return unavailable("create", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("create", id, err)
	}
	if n == 0 {
		return conflict("create", id)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, updated_at, category_totals, result_code
		FROM score_records WHERE id = ?`, id)

	var (
		rec  Record
		body string
	)
	if err := row.Scan(&rec.ID, &rec.Timestamp, &body, &rec.ResultCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("get", id)
		}
		return nil, unavailable("get", id, err)
	}
	totals, err := unmarshalTotals([]byte(body))
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Op: "get", ID: id, Err: err}
	}
	rec.Totals = totals
	return &rec, nil
}

func (s *SQLite) Replace(ctx context.Context, rec *Record) error {
	body, err := marshalTotals(rec.Totals)
	if err != nil {
		return &Error{Kind: KindUnknown, Op: "replace", ID: rec.ID, Err: err}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO score_records (id, updated_at, category_totals, result_code)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			updated_at = excluded.updated_at,
			category_totals = excluded.category_totals,
			result_code = excluded.result_code`,
		rec.ID, rec.Timestamp, body, rec.ResultCode,
	)
	if err != nil {
		return unavailable("replace", rec.ID, err)
	}
	return nil
}
