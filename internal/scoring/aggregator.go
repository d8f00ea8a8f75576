// Package scoring ranks accumulated category totals into a result code.
package scoring

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/pathfinder/internal/interview"
	"github.com/MikeSquared-Agency/pathfinder/internal/store"
)

// CodeLength is the number of categories in a full result code.
const CodeLength = 3

// ErrNoRecord means finalize found nothing persisted for the session.
var ErrNoRecord = errors.New("scoring: no score record")

// Aggregator turns a session's persisted totals into its result code.
type Aggregator struct {
	store  store.ScoreStore
	order  map[interview.Category]int
	logger *slog.Logger
	now    func() time.Time
}

func NewAggregator(s store.ScoreStore, questions []interview.Question, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		store:  s,
		order:  FirstOccurrence(questions),
		logger: logger,
		now:    time.Now,
	}
}

// Finalize reads the record, ranks it, and writes the code back with a full
// replace. Concurrent finalizations for one session are last-write-wins.
func (a *Aggregator) Finalize(ctx context.Context, sessionID string) (string, error) {
	rec, err := a.store.Get(ctx, sessionID)
	if err != nil {
		if store.KindOf(err) == store.KindNotFound {
			return "", fmt.Errorf("%w for session %s", ErrNoRecord, sessionID)
		}
		return "", fmt.Errorf("read score record: %w", err)
	}

	code := Code(Rank(rec.Totals, a.order), CodeLength)

	rec.ResultCode = code
	rec.Timestamp = store.FormatTimestamp(a.now())
	if err := a.store.Replace(ctx, rec); err != nil {
		return "", fmt.Errorf("write result code: %w", err)
	}

	a.logger.Info("result finalized", "session_id", sessionID, "result_code", code, "totals", rec.Totals)
	return code, nil
}

// FirstOccurrence maps each category to the index of the first question
// tagged with it.
func FirstOccurrence(questions []interview.Question) map[interview.Category]int {
	order := make(map[interview.Category]int)
	for i, q := range questions {
		if _, seen := order[q.Category]; !seen {
			order[q.Category] = i
		}
	}
	return order
}

// Rank orders every category present in totals by total descending. Equal
// totals fall back to first occurrence in the question sequence; categories
// the sequence never mentions go last, alphabetically.
func Rank(totals map[string]int, order map[interview.Category]int) []interview.Category {
	cats := make([]interview.Category, 0, len(totals))
	for _, k := range slices.Sorted(maps.Keys(totals)) {
		cats = append(cats, interview.Category(k))
	}

	position := func(c interview.Category) int {
		if i, ok := order[c]; ok {
			return i
		}
		return math.MaxInt
	}

	slices.SortStableFunc(cats, func(x, y interview.Category) int {
		if c := cmp.Compare(totals[string(y)], totals[string(x)]); c != 0 {
			return c
		}
		return cmp.Compare(position(x), position(y))
	})
	return cats
}

// Code concatenates the first n ranked labels.
func Code(ranked []interview.Category, n int) string {
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	var b strings.Builder
	for _, c := range ranked {
		b.WriteString(string(c))
	}
	return b.String()
}
