// Package store persists per-session interview score records.
//
// A record is addressed by session id and holds additive per-category totals
// plus the final result code. Backends: in-memory, PostgreSQL and SQLite.
package store

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"
)

// Record is the persisted score state for one session.
type Record struct {
	ID         string         `json:"id"`
	Timestamp  string         `json:"timestamp"`
	Totals     map[string]int `json:"category_totals"`
	ResultCode string         `json:"result_code"`
}

// Clone returns a deep copy so callers never share the totals map.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Totals = maps.Clone(r.Totals)
	if out.Totals == nil {
		out.Totals = map[string]int{}
	}
	return &out
}

// ScoreStore is the key-addressed score persistence contract.
type ScoreStore interface {
	// Increment adds delta to one category total. Fails with KindNotFound
	// when no record exists for id.
	Increment(ctx context.Context, id, category string, delta int) error
	// Create inserts a new record. Fails with KindConflict when one exists.
	Create(ctx context.Context, id string, totals map[string]int, timestamp time.Time) error
	// Get reads a full record. Fails with KindNotFound.
	Get(ctx context.Context, id string) (*Record, error)
	// Replace writes the full record, creating it if needed. Last write wins.
	Replace(ctx context.Context, rec *Record) error
}

// Kind classifies store failures.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by every backend.
type Error struct {
	Kind Kind
	Op   string
	ID   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store %s %s: %s: %v", e.Op, e.ID, e.Kind, e.Err)
	}
	return fmt.Sprintf("store %s %s: %s", e.Op, e.ID, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the Kind of err, or KindUnknown if err is not a store error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

func notFound(op, id string) error {
	return &Error{Kind: KindNotFound, Op: op, ID: id}
}

func conflict(op, id string) error {
	return &Error{Kind: KindConflict, Op: op, ID: id}
}

func unavailable(op, id string, err error) error {
	return &Error{Kind: KindUnavailable, Op: op, ID: id, Err: err}
}

// FormatTimestamp renders record timestamps.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
