package study

import (
	"errors"
	"fmt"
	"time"

	"github.com/at-ishikawa/conceptdeck/internal/limits"
	"github.com/at-ishikawa/conceptdeck/internal/session"
)

var (
	// ErrPersistenceFailed wraps session writes that failed even after a retry.
	// The session stays in memory and the operation can be retried.
	ErrPersistenceFailed = errors.New("session persistence failed")
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidRequest wraps request validation failures.
	ErrInvalidRequest = errors.New("invalid request")

	ErrNoReviewableConcepts = errors.New("no concepts to review right now")
	ErrEmptyNotebook        = errors.New("notebook has no concepts")
)

// LimitReachedError is returned when a usage gate denies a new session.
type LimitReachedError struct {
	Mode         session.Mode
	Reason       limits.Reason
	NextEligible *time.Time
}

func (e *LimitReachedError) Error() string {
	if e.NextEligible == nil {
		return fmt.Sprintf("%s study limit reached (%s)", e.Mode, e.Reason)
	}
	return fmt.Sprintf("%s study limit reached (%s), next eligible at %s",
		e.Mode, e.Reason, e.NextEligible.Format(time.RFC3339))
}

func persistenceFailed(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistenceFailed, err)
}
