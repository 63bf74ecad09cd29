// Package limits gates how often a user may study a notebook in each mode.
package limits

import (
	"math"
	"time"

	"github.com/at-ishikawa/conceptdeck/internal/learning"
)

// QuizCooldownDays is the number of calendar days between two quizzes.
const QuizCooldownDays = 7

// Reason explains why a gate is closed.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonDailyLimit       Reason = "daily_limit"
	ReasonValidationFailed Reason = "validation_failed"
	ReasonWeeklyLimit      Reason = "weekly_limit"
)

// NotebookLimits is the usage bookkeeping of one user on one notebook.
// Its three field groups are written independently.
type NotebookLimits struct {
	UserID     string `db:"user_id"`
	NotebookID string `db:"notebook_id"`

	LastFreeStudyDate   *time.Time `db:"last_free_study_date"`
	FreeStudyCountToday int        `db:"free_study_count_today"`

	LastSmartStudyDate   *time.Time `db:"last_smart_study_date"`
	SmartStudyCountToday int        `db:"smart_study_count_today"`
	LastQuizPassed       bool       `db:"last_quiz_passed"`

	LastQuizDate      *time.Time `db:"last_quiz_date"`
	QuizCountThisWeek int        `db:"quiz_count_this_week"`
	WeekStartDate     *time.Time `db:"week_start_date"`

	UpdatedAt time.Time `db:"updated_at"`
}

type FreeStudyFields struct {
	LastFreeStudyDate   time.Time
	FreeStudyCountToday int
}

type SmartStudyFields struct {
	LastSmartStudyDate   time.Time
	SmartStudyCountToday int
	LastQuizPassed       bool
}

type QuizFields struct {
	LastQuizDate      time.Time
	QuizCountThisWeek int
	WeekStartDate     time.Time
}

// Update is a field-level merge: nil groups are left untouched in the store.
type Update struct {
	FreeStudy  *FreeStudyFields
	SmartStudy *SmartStudyFields
	Quiz       *QuizFields
	UpdatedAt  time.Time
}

// Availability is the state of one gate.
type Availability struct {
	Allowed      bool       `json:"allowed"`
	NextEligible *time.Time `json:"nextEligible,omitempty"`
	Reason       Reason     `json:"reason,omitempty"`
}

func allowed() Availability {
	return Availability{Allowed: true}
}

func blocked(next time.Time, reason Reason) Availability {
	return Availability{NextEligible: &next, Reason: reason}
}

// CanFreeStudy allows one free study session per calendar day.
func CanFreeStudy(l *NotebookLimits, now time.Time, loc *time.Location) Availability {
	if l == nil || l.LastFreeStudyDate == nil {
		return allowed()
	}
	if !learning.SameDay(*l.LastFreeStudyDate, now, loc) {
		return allowed()
	}
	return blocked(nextDay(now, loc), ReasonDailyLimit)
}

// CanSmartStudy allows one smart study session per calendar day.
// A failed validation is reported separately but reopens on the same schedule.
func CanSmartStudy(l *NotebookLimits, now time.Time, loc *time.Location) Availability {
	if l == nil || l.LastSmartStudyDate == nil {
		return allowed()
	}

	isNewDay := !learning.SameDay(*l.LastSmartStudyDate, now, loc)
	if !l.LastQuizPassed {
		if isNewDay {
			return allowed()
		}
		return blocked(nextDay(now, loc), ReasonValidationFailed)
	}
	if isNewDay {
		return allowed()
	}
	return blocked(nextDay(now, loc), ReasonDailyLimit)
}

// CanQuiz allows one quiz every QuizCooldownDays calendar days.
func CanQuiz(l *NotebookLimits, now time.Time, loc *time.Location) Availability {
	if l == nil || l.LastQuizDate == nil {
		return allowed()
	}
	if DaysSince(*l.LastQuizDate, now, loc) >= QuizCooldownDays {
		return allowed()
	}
	return blocked(learning.StartOfDay(*l.LastQuizDate, loc).AddDate(0, 0, QuizCooldownDays), ReasonWeeklyLimit)
}

// DaysSince counts calendar days in loc from then to now.
func DaysSince(then, now time.Time, loc *time.Location) int {
	from := learning.StartOfDay(then, loc)
	to := learning.StartOfDay(now, loc)
	// rounding absorbs DST shifts between the two midnights
	return int(math.Round(to.Sub(from).Hours() / 24))
}

func nextDay(now time.Time, loc *time.Location) time.Time {
	return learning.StartOfDay(now, loc).AddDate(0, 0, 1)
}

// FreeStudyUsage returns the free study group after one more session at now.
func FreeStudyUsage(l *NotebookLimits, now time.Time, loc *time.Location) FreeStudyFields {
	count := 1
	if l != nil && l.LastFreeStudyDate != nil && learning.SameDay(*l.LastFreeStudyDate, now, loc) {
		count = l.FreeStudyCountToday + 1
	}
	return FreeStudyFields{LastFreeStudyDate: now, FreeStudyCountToday: count}
}

// SmartStudyUsage returns the smart study group after one more session at now.
func SmartStudyUsage(l *NotebookLimits, quizPassed bool, now time.Time, loc *time.Location) SmartStudyFields {
	count := 1
	if l != nil && l.LastSmartStudyDate != nil && learning.SameDay(*l.LastSmartStudyDate, now, loc) {
		count = l.SmartStudyCountToday + 1
	}
	return SmartStudyFields{LastSmartStudyDate: now, SmartStudyCountToday: count, LastQuizPassed: quizPassed}
}

// QuizUsage returns the quiz group after one more quiz at now.
// The week restarts once the current one is QuizCooldownDays old.
func QuizUsage(l *NotebookLimits, now time.Time, loc *time.Location) QuizFields {
	if l == nil || l.WeekStartDate == nil || DaysSince(*l.WeekStartDate, now, loc) >= QuizCooldownDays {
		return QuizFields{LastQuizDate: now, QuizCountThisWeek: 1, WeekStartDate: learning.StartOfDay(now, loc)}
	}
	return QuizFields{LastQuizDate: now, QuizCountThisWeek: l.QuizCountThisWeek + 1, WeekStartDate: *l.WeekStartDate}
}
