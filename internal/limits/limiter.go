package limits

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/at-ishikawa/conceptdeck/internal/logging"
)

// Report holds every gate of a notebook at one instant.
type Report struct {
	FreeStudy  Availability `json:"freeStudy"`
	SmartStudy Availability `json:"smartStudy"`
	Quiz       Availability `json:"quiz"`
}

// Limiter evaluates gates against a Store.
// Store failures on reads open the gate; failures on usage writes are logged and dropped.
type Limiter struct {
	store    Store
	timeout  time.Duration
	location *time.Location
	logger   *zap.Logger
}

// NewLimiter creates a new Limiter. timeout bounds each store call; zero disables it.
func NewLimiter(store Store, timeout time.Duration, location *time.Location, logger *zap.Logger) *Limiter {
	if location == nil {
		location = time.Local
	}
	return &Limiter{
		store:    store,
		timeout:  timeout,
		location: location,
		logger:   logging.OrNop(logger),
	}
}

func (l *Limiter) CanFreeStudy(ctx context.Context, userID, notebookID string, now time.Time) Availability {
	return CanFreeStudy(l.load(ctx, userID, notebookID), now, l.location)
}

func (l *Limiter) CanSmartStudy(ctx context.Context, userID, notebookID string, now time.Time) Availability {
	return CanSmartStudy(l.load(ctx, userID, notebookID), now, l.location)
}

func (l *Limiter) CanQuiz(ctx context.Context, userID, notebookID string, now time.Time) Availability {
	return CanQuiz(l.load(ctx, userID, notebookID), now, l.location)
}

// Check evaluates all gates from a single read.
func (l *Limiter) Check(ctx context.Context, userID, notebookID string, now time.Time) Report {
	limits := l.load(ctx, userID, notebookID)
	return Report{
		FreeStudy:  CanFreeStudy(limits, now, l.location),
		SmartStudy: CanSmartStudy(limits, now, l.location),
		Quiz:       CanQuiz(limits, now, l.location),
	}
}

func (l *Limiter) RecordFreeStudyUsage(ctx context.Context, userID, notebookID string, now time.Time) {
	fields := FreeStudyUsage(l.load(ctx, userID, notebookID), now, l.location)
	l.write(ctx, userID, notebookID, Update{FreeStudy: &fields, UpdatedAt: now})
}

// RecordSmartStudyUsage stores quizPassed as the outcome of the latest validation.
// Callers that cannot know it yet pass true.
func (l *Limiter) RecordSmartStudyUsage(ctx context.Context, userID, notebookID string, quizPassed bool, now time.Time) {
	fields := SmartStudyUsage(l.load(ctx, userID, notebookID), quizPassed, now, l.location)
	l.write(ctx, userID, notebookID, Update{SmartStudy: &fields, UpdatedAt: now})
}

func (l *Limiter) RecordQuizUsage(ctx context.Context, userID, notebookID string, now time.Time) {
	fields := QuizUsage(l.load(ctx, userID, notebookID), now, l.location)
	l.write(ctx, userID, notebookID, Update{Quiz: &fields, UpdatedAt: now})
}

func (l *Limiter) load(ctx context.Context, userID, notebookID string) *NotebookLimits {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	limits, err := l.store.Get(ctx, userID, notebookID)
	if err != nil {
		l.logger.Warn("load notebook limits, treating gates as open",
			zap.String("user_id", userID),
			zap.String("notebook_id", notebookID),
			zap.Error(err))
		return nil
	}
	return limits
}

func (l *Limiter) write(ctx context.Context, userID, notebookID string, update Update) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	if err := l.store.MergePut(ctx, userID, notebookID, update); err != nil {
		l.logger.Warn("record notebook usage",
			zap.String("user_id", userID),
			zap.String("notebook_id", notebookID),
			zap.Error(err))
	}
}

func (l *Limiter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout > 0 {
		return context.WithTimeout(ctx, l.timeout)
	}
	return context.WithCancel(ctx)
}
