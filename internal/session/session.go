// Package session runs a single study session: batch drawing, responses,
// immediate re-review passes and the metrics persisted at completion.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/at-ishikawa/conceptdeck/internal/learning"
)

var (
	// ErrInvalidTransition is returned when an operation is not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrUnknownConcept is returned for a response to a concept that is not pending in this pass.
	ErrUnknownConcept = errors.New("concept is not pending in this session")
	// ErrEmptyBatch is returned when a session is started without concepts.
	ErrEmptyBatch = errors.New("no concepts to study")

	ErrInvalidMode      = errors.New("invalid mode")
	ErrInvalidIntensity = errors.New("invalid intensity")
	ErrInvalidResponse  = errors.New("invalid response")
)

type Mode string

const (
	ModeSmart Mode = "SMART"
	ModeFree  Mode = "FREE"
	ModeQuiz  Mode = "QUIZ"
)

// ParseMode accepts mode names case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToUpper(strings.TrimSpace(s))); m {
	case ModeSmart, ModeFree, ModeQuiz:
		return m, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrInvalidMode)
}

// UsesIntensity reports whether sessions of the mode pick an intensity.
func (m Mode) UsesIntensity() bool {
	return m == ModeSmart || m == ModeFree
}

type Intensity string

const (
	IntensityWarmUp   Intensity = "WARM_UP"
	IntensityProgress Intensity = "PROGRESS"
	IntensityRocket   Intensity = "ROCKET"
)

// ParseIntensity accepts "warm_up", "warm-up" or "WARM_UP" style names.
func ParseIntensity(s string) (Intensity, error) {
	normalized := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_")
	switch i := Intensity(normalized); i {
	case IntensityWarmUp, IntensityProgress, IntensityRocket:
		return i, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrInvalidIntensity)
}

// BatchSize is the number of concepts a SMART session of this intensity draws.
func (i Intensity) BatchSize() int {
	switch i {
	case IntensityWarmUp:
		return 5
	case IntensityProgress:
		return 10
	case IntensityRocket:
		return 20
	}
	return 0
}

// ScoreMultiplier weights FREE study scores.
func (i Intensity) ScoreMultiplier() float64 {
	switch i {
	case IntensityProgress:
		return 1.5
	case IntensityRocket:
		return 2.0
	}
	return 1.0
}

// Response is the learner's verdict on one concept.
type Response string

const (
	ResponseMastered    Response = "MASTERED"
	ResponseReviewLater Response = "REVIEW_LATER"
)

func ParseResponse(s string) (Response, error) {
	normalized := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_")
	switch r := Response(normalized); r {
	case ResponseMastered, ResponseReviewLater:
		return r, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrInvalidResponse)
}

// Quality maps the verdict onto the SM-3 grade scale.
func (r Response) Quality() int {
	if r == ResponseMastered {
		return learning.QualityMastered
	}
	return learning.QualityReviewLater
}

type State int

const (
	StateNotStarted State = iota
	StateActive
	StateImmediateReview
	StateCompleting
	StateAwaitingValidation
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateActive:
		return "active"
	case StateImmediateReview:
		return "immediate_review"
	case StateCompleting:
		return "completing"
	case StateAwaitingValidation:
		return "awaiting_validation"
	case StateComplete:
		return "complete"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Session is the persisted record of one study session.
type Session struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	NotebookID      string     `json:"notebookId"`
	Mode            Mode       `json:"mode"`
	Intensity       Intensity  `json:"intensity,omitempty"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	ConceptIDs      []string   `json:"conceptIds"`
	Metrics         *Metrics   `json:"metrics,omitempty"`
	Validated       *bool      `json:"validated,omitempty"`
	ValidationScore *float64   `json:"validationScore,omitempty"`
}

// Fields is a partial update of a Session; nil fields are left untouched.
type Fields struct {
	EndTime         *time.Time
	Metrics         *Metrics
	Validated       *bool
	ValidationScore *float64
	UpdatedAt       time.Time
}
