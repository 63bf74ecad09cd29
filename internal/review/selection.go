// Package review decides which concepts of a notebook are up for review.
package review

import (
	"sort"
	"time"

	"github.com/at-ishikawa/conceptdeck/internal/content"
	"github.com/at-ishikawa/conceptdeck/internal/learning"
)

// MinBatch is the smallest selection worth starting a session for.
// When fewer concepts are due, the nearest future records are pulled in early.
const MinBatch = 1

// Selection partitions a notebook for one user.
// NewConcepts have no record; DueRecords are due today or were pulled in early.
// Orphans are due records whose concept is no longer in the notebook; they are never selected.
type Selection struct {
	NewConcepts []content.Concept
	DueRecords  []learning.Record
	Orphans     []learning.Record
}

// Len is the number of reviewable items.
func (s Selection) Len() int {
	return len(s.NewConcepts) + len(s.DueRecords)
}

// SelectReviewable partitions concepts and records as of today, comparing calendar days in loc.
// Records are matched to concepts by concept id.
func SelectReviewable(concepts []content.Concept, records []learning.Record, today time.Time, loc *time.Location) Selection {
	members := content.IndexByID(concepts)
	recorded := make(map[string]struct{}, len(records))
	for _, r := range records {
		recorded[r.ConceptID] = struct{}{}
	}

	var sel Selection
	for _, c := range concepts {
		if _, ok := recorded[c.ID]; !ok {
			sel.NewConcepts = append(sel.NewConcepts, c)
		}
	}

	var future []learning.Record
	for _, r := range records {
		_, live := members[r.ConceptID]
		switch {
		case r.DueOn(today, loc) && live:
			sel.DueRecords = append(sel.DueRecords, r)
		case r.DueOn(today, loc):
			sel.Orphans = append(sel.Orphans, r)
		case live:
			future = append(future, r)
		}
	}

	if missing := MinBatch - sel.Len(); missing > 0 && len(future) > 0 {
		sortByNextReview(future)
		if missing > len(future) {
			missing = len(future)
		}
		sel.DueRecords = append(sel.DueRecords, future[:missing]...)
	}
	return sel
}

// CountReviewable returns SelectReviewable(...).Len() without building the partition.
func CountReviewable(concepts []content.Concept, records []learning.Record, today time.Time, loc *time.Location) int {
	members := content.IndexByID(concepts)
	recorded := make(map[string]struct{}, len(records))
	due, future := 0, 0
	for _, r := range records {
		recorded[r.ConceptID] = struct{}{}
		if _, live := members[r.ConceptID]; !live {
			continue
		}
		if r.DueOn(today, loc) {
			due++
		} else {
			future++
		}
	}

	count := due
	for _, c := range concepts {
		if _, ok := recorded[c.ID]; !ok {
			count++
		}
	}

	if missing := MinBatch - count; missing > 0 {
		if missing > future {
			missing = future
		}
		count += missing
	}
	return count
}

func sortByNextReview(records []learning.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].NextReviewDate.Before(records[j].NextReviewDate)
	})
}
