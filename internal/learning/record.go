// Package learning provides per-concept learning records and the SM-3 scheduler that evolves them.
package learning

import "time"

// Record is the scheduling state of one concept for one user.
type Record struct {
	UserID         string     `db:"user_id" json:"userId"`
	ConceptID      string     `db:"concept_id" json:"conceptId"`
	NotebookID     string     `db:"notebook_id" json:"notebookId"`
	EaseFactor     float64    `db:"ease_factor" json:"easeFactor"`
	Interval       int        `db:"interval_days" json:"interval"`
	Repetitions    int        `db:"repetitions" json:"repetitions"`
	Quality        int        `db:"quality" json:"quality"`
	NextReviewDate time.Time  `db:"next_review_date" json:"nextReviewDate"`
	LastReviewDate *time.Time `db:"last_review_date" json:"lastReviewDate,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// NewRecord creates the initial record of a concept that has never been answered.
// The concept becomes due tomorrow.
func NewRecord(userID, conceptID, notebookID string, now time.Time) Record {
	return Record{
		UserID:         userID,
		ConceptID:      conceptID,
		NotebookID:     notebookID,
		EaseFactor:     DefaultEaseFactor,
		Interval:       1,
		Repetitions:    0,
		Quality:        0,
		NextReviewDate: now.AddDate(0, 0, 1),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Apply returns a copy of the record carrying the schedule.
func (r Record) Apply(s Schedule) Record {
	r.EaseFactor = s.EaseFactor
	r.Interval = s.Interval
	r.Repetitions = s.Repetitions
	r.Quality = s.Quality
	r.NextReviewDate = s.NextReviewDate
	last := s.LastReviewDate
	r.LastReviewDate = &last
	r.UpdatedAt = s.LastReviewDate
	return r
}

// DueOn reports whether the record's next review date, compared by calendar day in loc,
// is on or before day.
func (r Record) DueOn(day time.Time, loc *time.Location) bool {
	return !StartOfDay(r.NextReviewDate, loc).After(StartOfDay(day, loc))
}

// StartOfDay truncates t to local midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return StartOfDay(a, loc).Equal(StartOfDay(b, loc))
}
