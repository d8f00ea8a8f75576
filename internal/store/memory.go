package store

import (
	"context"
	"maps"
	"sync"
	"time"
)

// Memory is an in-process ScoreStore. Not persistent; for local mode and tests.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*Record
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

func (m *Memory) Increment(_ context.Context, id, category string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return notFound("increment", id)
	}
	rec.Totals[category] += delta
	rec.Timestamp = FormatTimestamp(m.now())
	return nil
}

func (m *Memory) Create(_ context.Context, id string, totals map[string]int, timestamp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; ok {
		return conflict("create", id)
	}
	seeded := maps.Clone(totals)
	if seeded == nil {
		seeded = map[string]int{}
	}
	m.records[id] = &Record{
		ID:        id,
		Timestamp: FormatTimestamp(timestamp),
		Totals:    seeded,
	}
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, notFound("get", id)
	}
	return rec.Clone(), nil
}

func (m *Memory) Replace(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[rec.ID] = rec.Clone()
	return nil
}
