package review

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/at-ishikawa/conceptdeck/internal/content"
	"github.com/at-ishikawa/conceptdeck/internal/learning"
)

func concepts(ids ...string) []content.Concept {
	result := make([]content.Concept, len(ids))
	for i, id := range ids {
		result[i] = content.Concept{ID: id, Term: "term " + id}
	}
	return result
}

func record(id string, next time.Time) learning.Record {
	return learning.Record{UserID: "u1", ConceptID: id, NotebookID: "nb1", EaseFactor: 2.5, Interval: 1, NextReviewDate: next}
}

func recordIDs(records []learning.Record) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ConceptID)
	}
	return ids
}

func TestSelectReviewable(t *testing.T) {
	today := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	tonight := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)
	nextWeek := today.AddDate(0, 0, 7)

	tests := []struct {
		name        string
		concepts    []content.Concept
		records     []learning.Record
		wantNew     []string
		wantDue     []string
		wantOrphans []string
		wantLenZero bool
	}{
		{
			name:     "all new",
			concepts: concepts("a", "b", "c"),
			wantNew:  []string{"a", "b", "c"},
			wantDue:  []string{},
		},
		{
			name:     "due by calendar day",
			concepts: concepts("a", "b", "c", "d"),
			records:  []learning.Record{record("a", yesterday), record("b", tonight), record("c", tomorrow)},
			wantNew:  []string{"d"},
			wantDue:  []string{"a", "b"},
		},
		{
			name:     "backfills nearest future record",
			concepts: concepts("a", "b", "c"),
			records:  []learning.Record{record("a", nextWeek), record("b", tomorrow), record("c", nextWeek.AddDate(0, 0, 1))},
			wantNew:  []string{},
			wantDue:  []string{"b"},
		},
		{
			name:     "no backfill when something is due",
			concepts: concepts("a", "b"),
			records:  []learning.Record{record("a", yesterday), record("b", tomorrow)},
			wantNew:  []string{},
			wantDue:  []string{"a"},
		},
		{
			name:     "no backfill when a new concept exists",
			concepts: concepts("a", "b"),
			records:  []learning.Record{record("a", tomorrow)},
			wantNew:  []string{"b"},
			wantDue:  []string{},
		},
		{
			name:        "empty notebook without records",
			wantNew:     []string{},
			wantDue:     []string{},
			wantLenZero: true,
		},
		{
			name:        "due records whose concepts are gone are orphans",
			records:     []learning.Record{record("gone", yesterday)},
			wantNew:     []string{},
			wantDue:     []string{},
			wantOrphans: []string{"gone"},
			wantLenZero: true,
		},
		{
			name:        "orphans are kept apart from live due records",
			concepts:    concepts("a"),
			records:     []learning.Record{record("gone", yesterday), record("a", today)},
			wantNew:     []string{},
			wantDue:     []string{"a"},
			wantOrphans: []string{"gone"},
		},
		{
			name:     "backfill skips a nearer record whose concept is gone",
			concepts: concepts("a"),
			records:  []learning.Record{record("gone", tomorrow), record("a", today.AddDate(0, 0, 5))},
			wantNew:  []string{},
			wantDue:  []string{"a"},
		},
		{
			name:        "nothing to backfill when only orphans are scheduled",
			records:     []learning.Record{record("gone", tomorrow)},
			wantNew:     []string{},
			wantDue:     []string{},
			wantLenZero: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectReviewable(tt.concepts, tt.records, today, time.UTC)

			assert.Equal(t, tt.wantNew, append([]string{}, content.IDs(got.NewConcepts)...))
			assert.Equal(t, tt.wantDue, recordIDs(got.DueRecords))
			if tt.wantOrphans == nil {
				tt.wantOrphans = []string{}
			}
			assert.Equal(t, tt.wantOrphans, recordIDs(got.Orphans))
			assert.Equal(t, tt.wantLenZero, got.Len() == 0)
			assert.Equal(t, got.Len(), CountReviewable(tt.concepts, tt.records, today, time.UTC))
		})
	}
}

func TestSelectReviewable_Properties(t *testing.T) {
	today := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	rnd := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		n := rnd.Intn(12)
		var cs []content.Concept
		var rs []learning.Record
		for j := 0; j < n; j++ {
			id := fmt.Sprintf("c%d", j)
			cs = append(cs, content.Concept{ID: id})
			if rnd.Intn(3) > 0 {
				rs = append(rs, record(id, today.AddDate(0, 0, rnd.Intn(10)-4)))
			}
		}

		got := SelectReviewable(cs, rs, today, time.UTC)

		newIDs := map[string]bool{}
		for _, c := range got.NewConcepts {
			newIDs[c.ID] = true
		}
		for _, r := range got.DueRecords {
			assert.False(t, newIDs[r.ConceptID], "concept %s is both new and due", r.ConceptID)
		}
		if len(cs) > 0 {
			assert.GreaterOrEqual(t, got.Len(), 1)
		}
		assert.Equal(t, got.Len(), CountReviewable(cs, rs, today, time.UTC))
	}
}

func TestSelectReviewable_DoesNotReorderInput(t *testing.T) {
	today := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	records := []learning.Record{
		record("late", today.AddDate(0, 0, 9)),
		record("soon", today.AddDate(0, 0, 2)),
	}

	got := SelectReviewable(concepts("late", "soon"), records, today, time.UTC)

	assert.Equal(t, []string{"soon"}, recordIDs(got.DueRecords))
	assert.Equal(t, []string{"late", "soon"}, recordIDs(records))
}
