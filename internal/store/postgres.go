package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS score_records (
	id              TEXT PRIMARY KEY,
	updated_at      TEXT NOT NULL,
	category_totals JSONB NOT NULL DEFAULT '{}'::jsonb,
	result_code     TEXT NOT NULL DEFAULT ''
)`

// Postgres is a ScoreStore backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool, now: time.Now}, nil
}

// Migrate creates the score_records table if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("migrate score_records: %w", err)
	}
	return nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Increment(ctx context.Context, id, category string, delta int) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE score_records
		SET category_totals = jsonb_set(
				category_totals,
				ARRAY[$2::text],
				to_jsonb(COALESCE((category_totals->>$2::text)::int, 0) + $3::int),
				true),
			updated_at = $4
		WHERE id = $1`,
		id, category, delta, FormatTimestamp(p.now()),
	)
	if err != nil {
		return unavailable("increment", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("increment", id)
	}
	return nil
}

func (p *Postgres) Create(ctx context.Context, id string, totals map[string]int, timestamp time.Time) error {
	body, err := marshalTotals(totals)
	if err != nil {
		return &Error{Kind: KindUnknown, Op: "create", ID: id, Err: err}
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO score_records (id, updated_at, category_totals, result_code)
		VALUES ($1, $2, $3::jsonb, '')`,
		id, FormatTimestamp(timestamp), body,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return conflict("create", id)
		}
		return unavailable("create", id, err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, id string) (*Record, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, updated_at, category_totals, result_code
		FROM score_records WHERE id = $1`, id)

	var (
		rec  Record
		body []byte
	)
	if err := row.Scan(&rec.ID, &rec.Timestamp, &body, &rec.ResultCode); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("get", id)
		}
		return nil, unavailable("get", id, err)
	}
	totals, err := unmarshalTotals(body)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Op: "get", ID: id, Err: err}
	}
	rec.Totals = totals
	return &rec, nil
}

func (p *Postgres) Replace(ctx context.Context, rec *Record) error {
	body, err := marshalTotals(rec.Totals)
	if err != nil {
		return &Error{Kind: KindUnknown, Op: "replace", ID: rec.ID, Err: err}
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO score_records (id, updated_at, category_totals, result_code)
		VALUES ($1, $2, $3::jsonb, $4)
		ON CONFLICT (id)
		DO UPDATE SET
			updated_at = EXCLUDED.updated_at,
			category_totals = EXCLUDED.category_totals,
			result_code = EXCLUDED.result_code`,
		rec.ID, rec.Timestamp, body, rec.ResultCode,
	)
	if err != nil {
		return unavailable("replace", rec.ID, err)
	}
	return nil
}

func marshalTotals(totals map[string]int) (string, error) {
	if totals == nil {
		totals = map[string]int{}
	}
	b, err := json.Marshal(totals)
	if err != nil {
		return "", fmt.Errorf("marshal totals: %w", err)
	}
	return string(b), nil
}

func unmarshalTotals(body []byte) (map[string]int, error) {
	totals := map[string]int{}
	if len(body) == 0 {
		return totals, nil
	}
	if err := json.Unmarshal(body, &totals); err != nil {
		return nil, fmt.Errorf("unmarshal totals: %w", err)
	}
	return totals, nil
}
