// Package study runs study sessions end to end: usage gates, batch selection,
// session persistence and the SM-3 updates that follow a passed validation.
package study

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/at-ishikawa/conceptdeck/internal/config"
	"github.com/at-ishikawa/conceptdeck/internal/content"
	"github.com/at-ishikawa/conceptdeck/internal/learning"
	"github.com/at-ishikawa/conceptdeck/internal/limits"
	"github.com/at-ishikawa/conceptdeck/internal/logging"
	"github.com/at-ishikawa/conceptdeck/internal/review"
	"github.com/at-ishikawa/conceptdeck/internal/session"
)

// Options tunes a Service. Zero values fall back to defaults.
type Options struct {
	StoreTimeout        time.Duration
	QuizSize            int
	MinFreeStudySeconds int
	Location            *time.Location
	// RetryDelay is the pause before the single retry of a failed session write.
	RetryDelay time.Duration
	Now        func() time.Time
	Seed       int64
}

// OptionsFromConfig maps the study section of the configuration onto Options.
func OptionsFromConfig(cfg config.StudyConfig) Options {
	return Options{
		StoreTimeout:        cfg.StoreTimeout,
		QuizSize:            cfg.QuizSize,
		MinFreeStudySeconds: cfg.MinFreeStudySeconds,
		Location:            cfg.Location(),
		RetryDelay:          200 * time.Millisecond,
	}
}

// Outcome tells whether StartSession opened a session.
type Outcome string

const (
	OutcomeStarted              Outcome = "started"
	OutcomeNoReviewableConcepts Outcome = "no_reviewable_concepts"
	OutcomeEmptyNotebook        Outcome = "empty_notebook"
)

// Err returns the informational error matching a non-started outcome.
func (o Outcome) Err() error {
	switch o {
	case OutcomeNoReviewableConcepts:
		return ErrNoReviewableConcepts
	case OutcomeEmptyNotebook:
		return ErrEmptyNotebook
	}
	return nil
}

type StartRequest struct {
	UserID     string            `json:"userId" validate:"required"`
	NotebookID string            `json:"notebookId" validate:"required"`
	Mode       session.Mode      `json:"mode" validate:"required,oneof=SMART FREE QUIZ"`
	Intensity  session.Intensity `json:"intensity,omitempty" validate:"omitempty,oneof=WARM_UP PROGRESS ROCKET"`
}

type StartResult struct {
	Started bool              `json:"started"`
	Outcome Outcome           `json:"outcome"`
	Session session.Session   `json:"session"`
	Batch   []content.Concept `json:"batch,omitempty"`
}

// Progress is the state of a session after a response.
type Progress struct {
	SessionID       string            `json:"sessionId"`
	State           session.State     `json:"-"`
	Pass            int               `json:"pass"`
	Remaining       []content.Concept `json:"remaining"`
	ImmediateReview []content.Concept `json:"immediateReview"`
	Metrics         session.Metrics   `json:"metrics"`
	// Summary is set once the session's metrics were persisted.
	Summary *Summary `json:"summary,omitempty"`
}

// Summary describes a completed session.
type Summary struct {
	SessionID          string          `json:"sessionId"`
	Mode               session.Mode    `json:"mode"`
	Metrics            session.Metrics `json:"metrics"`
	AwaitingValidation bool            `json:"awaitingValidation"`
	// Valid and ScoreMultiplier are set for FREE sessions.
	Valid           *bool   `json:"valid,omitempty"`
	ScoreMultiplier float64 `json:"scoreMultiplier,omitempty"`
	// QuizScore is set for QUIZ sessions, on a 0 to 10 scale.
	QuizScore *float64 `json:"quizScore,omitempty"`
}

type ValidationResult struct {
	SessionID string            `json:"sessionId"`
	Passed    bool              `json:"passed"`
	Score     float64           `json:"score"`
	Records   []learning.Record `json:"records"`
}

// Availability reports every gate of a notebook along with its concept counts.
type Availability struct {
	limits.Report
	ReviewableCount int `json:"reviewableCount"`
	TotalConcepts   int `json:"totalConcepts"`
}

// NextEligibleDates carries a date only for blocked gates.
type NextEligibleDates struct {
	FreeStudy  *time.Time `json:"freeStudy,omitempty"`
	SmartStudy *time.Time `json:"smartStudy,omitempty"`
	Quiz       *time.Time `json:"quiz,omitempty"`
}

type notebookRef struct {
	UserID     string `json:"userId" validate:"required"`
	NotebookID string `json:"notebookId" validate:"required"`
}

// Service serves the study operations for all users.
// Sessions live in memory between their start and their last transition.
type Service struct {
	provider content.Provider
	records  learning.Store
	sessions session.Store
	selector *review.Selector
	limiter  *limits.Limiter
	validate *validator.Validate
	opts     Options
	logger   *zap.Logger

	mu     sync.Mutex
	rand   *rand.Rand
	active map[string]*activeSession
}

type activeSession struct {
	mu            sync.Mutex
	session       session.Session
	runtime       *session.Runtime
	summary       *Summary
	applied       map[string]learning.Record
	usageRecorded bool
}

// NewService creates a new Service.
func NewService(
	provider content.Provider,
	records learning.Store,
	limitsStore limits.Store,
	sessions session.Store,
	opts Options,
	logger *zap.Logger,
) *Service {
	logger = logging.OrNop(logger)
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.QuizSize <= 0 {
		opts.QuizSize = 10
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	// field names in validation errors follow the json tags of the requests
	validate, _, err := config.NewValidator("json")
	if err != nil {
		validate = validator.New()
	}

	return &Service{
		provider: provider,
		records:  records,
		sessions: sessions,
		selector: review.NewSelector(provider, records, opts.StoreTimeout, opts.Location, logger),
		limiter:  limits.NewLimiter(limitsStore, opts.StoreTimeout, opts.Location, logger),
		validate: validate,
		opts:     opts,
		logger:   logger,
		rand:     rand.New(rand.NewSource(opts.Seed)),
		active:   make(map[string]*activeSession),
	}
}

// StartSession checks the mode's usage gate, draws a batch and persists the new session.
// A notebook without anything to study is reported through the Outcome, not as an error.
func (s *Service) StartSession(ctx context.Context, req StartRequest) (*StartResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.Mode.UsesIntensity() && req.Intensity == "" {
		req.Intensity = session.IntensityWarmUp
	}
	now := s.opts.Now()

	if gate := s.gate(ctx, req, now); !gate.Allowed {
		return nil, &LimitReachedError{Mode: req.Mode, Reason: gate.Reason, NextEligible: gate.NextEligible}
	}

	rnd := s.newRand()
	candidates, outcome, err := s.candidates(ctx, req, now, rnd)
	if err != nil {
		return nil, err
	}
	if outcome != OutcomeStarted {
		s.logger.Info("session not started",
			zap.String("user_id", req.UserID),
			zap.String("notebook_id", req.NotebookID),
			zap.String("outcome", string(outcome)))
		return &StartResult{Outcome: outcome}, nil
	}

	runtime, err := session.NewRuntime(req.Mode, req.Intensity, s.opts.QuizSize, rnd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	batch, err := runtime.Begin(candidates, now)
	if err != nil {
		return nil, fmt.Errorf("runtime.Begin() > %w", err)
	}

	sess := session.Session{
		UserID:     req.UserID,
		NotebookID: req.NotebookID,
		Mode:       req.Mode,
		Intensity:  runtime.Intensity(),
		StartTime:  now,
		ConceptIDs: content.IDs(batch),
	}
	if err := s.persist(ctx, func(ctx context.Context) error {
		id, err := s.sessions.Create(ctx, sess)
		if err != nil {
			return err
		}
		sess.ID = id
		return nil
	}); err != nil {
		s.logger.Error("create session",
			zap.String("user_id", req.UserID),
			zap.String("notebook_id", req.NotebookID),
			zap.Error(err))
		return nil, persistenceFailed("create session", err)
	}

	s.register(&activeSession{
		session: sess,
		runtime: runtime,
		applied: make(map[string]learning.Record),
	})
	s.logger.Info("session started",
		zap.String("session_id", sess.ID),
		zap.String("user_id", sess.UserID),
		zap.String("notebook_id", sess.NotebookID),
		zap.String("mode", string(sess.Mode)),
		zap.Int("batch_size", len(batch)))

	return &StartResult{
		Started: true,
		Outcome: OutcomeStarted,
		Session: sess,
		Batch:   batch,
	}, nil
}

func (s *Service) gate(ctx context.Context, req StartRequest, now time.Time) limits.Availability {
	switch req.Mode {
	case session.ModeSmart:
		return s.limiter.CanSmartStudy(ctx, req.UserID, req.NotebookID, now)
	case session.ModeFree:
		return s.limiter.CanFreeStudy(ctx, req.UserID, req.NotebookID, now)
	default:
		return s.limiter.CanQuiz(ctx, req.UserID, req.NotebookID, now)
	}
}

// candidates returns what the runtime draws its batch from.
// SMART sessions draw from the reviewable set, the other modes from the whole notebook.
func (s *Service) candidates(ctx context.Context, req StartRequest, now time.Time, rnd *rand.Rand) ([]content.Concept, Outcome, error) {
	if req.Mode == session.ModeSmart {
		reviewable := s.selector.Reviewable(ctx, req.UserID, req.NotebookID, now)
		if len(reviewable.Concepts) > 0 {
			return reviewable.Concepts, OutcomeStarted, nil
		}

		concepts, err := s.listConcepts(ctx, req.NotebookID)
		if errors.Is(err, content.ErrNotebookNotFound) {
			return nil, "", err
		}
		if err != nil {
			s.logger.Warn("list concepts",
				zap.String("notebook_id", req.NotebookID),
				zap.Error(err))
			return nil, OutcomeNoReviewableConcepts, nil
		}
		if len(concepts) == 0 {
			return nil, OutcomeEmptyNotebook, nil
		}
		return nil, OutcomeNoReviewableConcepts, nil
	}

	concepts, err := s.listConcepts(ctx, req.NotebookID)
	if err != nil {
		return nil, "", err
	}
	if len(concepts) == 0 {
		return nil, OutcomeEmptyNotebook, nil
	}
	if req.Mode == session.ModeQuiz {
		// the runtime caps in candidate order, so quizzes shuffle the whole notebook first
		concepts = slices.Clone(concepts)
		rnd.Shuffle(len(concepts), func(i, j int) {
			concepts[i], concepts[j] = concepts[j], concepts[i]
		})
	}
	return concepts, OutcomeStarted, nil
}

// RecordResponse applies one verdict. When it ends the last pass the session is
// completed right away; if that write fails the session stays Completing and
// CompleteSession retries it.
func (s *Service) RecordResponse(ctx context.Context, sessionID, conceptID string, response session.Response) (*Progress, error) {
	a, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.runtime.Record(conceptID, response); err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if a.runtime.State() == session.StateCompleting {
		if _, err := s.complete(ctx, a); err != nil {
			return nil, err
		}
	}
	return s.progress(a), nil
}

// CompleteSession persists a session stuck in Completing.
// It returns the existing summary of an already completed session.
func (s *Service) CompleteSession(ctx context.Context, sessionID string) (*Summary, error) {
	a, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	state := a.runtime.State()
	switch {
	case state == session.StateCompleting:
		return s.complete(ctx, a)
	case a.summary != nil:
		return a.summary, nil
	}
	return nil, fmt.Errorf("complete session %s in state %s: %w", sessionID, state, session.ErrInvalidTransition)
}

func (s *Service) complete(ctx context.Context, a *activeSession) (*Summary, error) {
	now := s.opts.Now()
	metrics, err := a.runtime.Finalize(now)
	if err != nil {
		return nil, err
	}

	sess := a.session
	end := now
	if err := s.persist(ctx, func(ctx context.Context) error {
		return s.sessions.Update(ctx, sess.ID, session.Fields{EndTime: &end, Metrics: &metrics, UpdatedAt: now})
	}); err != nil {
		s.logger.Error("persist session completion",
			zap.String("session_id", sess.ID),
			zap.String("user_id", sess.UserID),
			zap.Error(err))
		return nil, persistenceFailed(fmt.Sprintf("complete session %s", sess.ID), err)
	}
	if err := a.runtime.Committed(); err != nil {
		return nil, err
	}
	a.session.EndTime = &end
	a.session.Metrics = &metrics

	summary := &Summary{SessionID: sess.ID, Mode: sess.Mode, Metrics: metrics}
	switch sess.Mode {
	case session.ModeSmart:
		summary.AwaitingValidation = true
	case session.ModeFree:
		valid := metrics.TimeSpent >= s.opts.MinFreeStudySeconds
		summary.Valid = &valid
		summary.ScoreMultiplier = sess.Intensity.ScoreMultiplier()
		s.limiter.RecordFreeStudyUsage(ctx, sess.UserID, sess.NotebookID, now)
	case session.ModeQuiz:
		score := QuizScore(metrics)
		summary.QuizScore = &score
		s.limiter.RecordQuizUsage(ctx, sess.UserID, sess.NotebookID, now)
	}
	a.summary = summary

	s.logger.Info("session completed",
		zap.String("session_id", sess.ID),
		zap.String("mode", string(sess.Mode)),
		zap.Int("concepts_reviewed", metrics.ConceptsReviewed),
		zap.Int("time_spent", metrics.TimeSpent))
	if a.runtime.State() == session.StateComplete {
		s.unregister(sess.ID)
	}
	return summary, nil
}

// QuizScore is the share of concepts mastered on the first pass, scaled to 0..10.
func QuizScore(m session.Metrics) float64 {
	if m.TotalConcepts == 0 {
		return 0
	}
	mastered := 0
	for _, v := range m.FirstPassResults {
		if v == session.ResponseMastered {
			mastered++
		}
	}
	return math.Round(float64(mastered)/float64(m.TotalConcepts)*100) / 10
}

// SubmitValidation closes a SMART session. A passed validation applies SM-3 to
// every concept's final verdict; a failed one leaves learning records untouched.
// Sessions no longer held in memory are rebuilt from the session store.
func (s *Service) SubmitValidation(ctx context.Context, sessionID string, passed bool, score float64) (*ValidationResult, error) {
	if err := s.validate.Var(score, "gte=0,lte=10"); err != nil {
		return nil, fmt.Errorf("%w: score: %w", ErrInvalidRequest, err)
	}

	a, err := s.lookup(sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		a, err = s.rehydrate(ctx, sessionID)
	}
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if state := a.runtime.State(); state != session.StateAwaitingValidation {
		return nil, fmt.Errorf("validate session %s in state %s: %w", sessionID, state, session.ErrInvalidTransition)
	}

	now := s.opts.Now()
	sess := a.session
	if passed {
		if err := s.applyReviews(ctx, a, now); err != nil {
			return nil, err
		}
	}
	if !a.usageRecorded {
		s.limiter.RecordSmartStudyUsage(ctx, sess.UserID, sess.NotebookID, passed, now)
		a.usageRecorded = true
	}

	if err := s.persist(ctx, func(ctx context.Context) error {
		return s.sessions.Update(ctx, sess.ID, session.Fields{Validated: &passed, ValidationScore: &score, UpdatedAt: now})
	}); err != nil {
		s.logger.Error("persist session validation",
			zap.String("session_id", sess.ID),
			zap.String("user_id", sess.UserID),
			zap.Error(err))
		return nil, persistenceFailed(fmt.Sprintf("validate session %s", sess.ID), err)
	}
	if err := a.runtime.Validated(); err != nil {
		return nil, err
	}
	a.session.Validated = &passed
	a.session.ValidationScore = &score
	s.unregister(sess.ID)

	s.logger.Info("session validated",
		zap.String("session_id", sess.ID),
		zap.Bool("passed", passed),
		zap.Float64("score", score),
		zap.Int("records_updated", len(a.applied)))

	records := make([]learning.Record, 0, len(a.applied))
	for _, id := range slices.Sorted(maps.Keys(a.applied)) {
		records = append(records, a.applied[id])
	}
	return &ValidationResult{
		SessionID: sess.ID,
		Passed:    passed,
		Score:     score,
		Records:   records,
	}, nil
}

// applyReviews writes one SM-3 update per final verdict. Concepts written by an
// earlier attempt are skipped so a retry never reviews a concept twice.
func (s *Service) applyReviews(ctx context.Context, a *activeSession, now time.Time) error {
	verdicts := a.runtime.FinalVerdicts()
	for _, conceptID := range slices.Sorted(maps.Keys(verdicts)) {
		if _, ok := a.applied[conceptID]; ok {
			continue
		}

		var updated learning.Record
		if err := s.persist(ctx, func(ctx context.Context) error {
			existing, err := s.records.Get(ctx, a.session.UserID, conceptID)
			if err != nil {
				return err
			}
			rec := learning.NewRecord(a.session.UserID, conceptID, a.session.NotebookID, now)
			if existing != nil {
				rec = *existing
			}
			updated, err = learning.Review(rec, verdicts[conceptID].Quality(), now)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			return s.records.Put(ctx, updated)
		}); err != nil {
			return persistenceFailed(fmt.Sprintf("review concept %s", conceptID), err)
		}
		a.applied[conceptID] = updated
	}
	return nil
}

func (s *Service) rehydrate(ctx context.Context, sessionID string) (*activeSession, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, persistenceFailed(fmt.Sprintf("load session %s", sessionID), err)
	}
	if sess == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}

	index := map[string]content.Concept{}
	concepts, err := s.provider.ListConcepts(ctx, sess.NotebookID)
	if err != nil {
		s.logger.Warn("list concepts of restored session",
			zap.String("session_id", sess.ID),
			zap.String("notebook_id", sess.NotebookID),
			zap.Error(err))
	} else {
		index = content.IndexByID(concepts)
	}
	batch := make([]content.Concept, 0, len(sess.ConceptIDs))
	for _, id := range sess.ConceptIDs {
		c, ok := index[id]
		if !ok {
			c = content.Concept{ID: id}
		}
		batch = append(batch, c)
	}

	runtime, err := session.Restore(*sess, batch)
	if err != nil {
		return nil, err
	}
	return s.registerOrGet(&activeSession{
		session: *sess,
		runtime: runtime,
		summary: &Summary{
			SessionID:          sess.ID,
			Mode:               sess.Mode,
			Metrics:            *sess.Metrics,
			AwaitingValidation: true,
		},
		applied: make(map[string]learning.Record),
	}), nil
}

// AbandonSession forgets an in-memory session. Nothing is persisted and usage
// already recorded stays recorded.
func (s *Service) AbandonSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[sessionID]; !ok {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	delete(s.active, sessionID)
	s.logger.Info("session abandoned", zap.String("session_id", sessionID))
	return nil
}

// GetAvailability reports every gate of the notebook with its concept counts.
func (s *Service) GetAvailability(ctx context.Context, userID, notebookID string) (*Availability, error) {
	if err := s.validate.Struct(notebookRef{UserID: userID, NotebookID: notebookID}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	now := s.opts.Now()

	var report limits.Report
	var reviewable int
	var concepts []content.Concept
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		report = s.limiter.Check(gctx, userID, notebookID, now)
		return nil
	})
	g.Go(func() error {
		count, err := s.selector.CountReviewable(gctx, userID, notebookID, now)
		if err != nil {
			s.logger.Warn("count reviewable concepts",
				zap.String("user_id", userID),
				zap.String("notebook_id", notebookID),
				zap.Error(err))
			return nil
		}
		reviewable = count
		return nil
	})
	g.Go(func() error {
		var err error
		concepts, err = s.listConcepts(gctx, notebookID)
		if err != nil {
			s.logger.Warn("list notebook concepts",
				zap.String("user_id", userID),
				zap.String("notebook_id", notebookID),
				zap.Error(err))
			concepts = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Availability{
		Report:          report,
		ReviewableCount: reviewable,
		TotalConcepts:   len(concepts),
	}, nil
}

func (s *Service) GetNextEligibleDates(ctx context.Context, userID, notebookID string) (*NextEligibleDates, error) {
	if err := s.validate.Struct(notebookRef{UserID: userID, NotebookID: notebookID}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	report := s.limiter.Check(ctx, userID, notebookID, s.opts.Now())
	return &NextEligibleDates{
		FreeStudy:  report.FreeStudy.NextEligible,
		SmartStudy: report.SmartStudy.NextEligible,
		Quiz:       report.Quiz.NextEligible,
	}, nil
}

func (s *Service) progress(a *activeSession) *Progress {
	p := &Progress{
		SessionID:       a.session.ID,
		State:           a.runtime.State(),
		Pass:            a.runtime.Pass(),
		Remaining:       a.runtime.Remaining(),
		ImmediateReview: a.runtime.ImmediateQueue(),
		Metrics:         a.runtime.Metrics(s.opts.Now()),
		Summary:         a.summary,
	}
	if a.summary != nil {
		p.Metrics = a.summary.Metrics
	}
	return p
}

func (s *Service) listConcepts(ctx context.Context, notebookID string) ([]content.Concept, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	concepts, err := s.provider.ListConcepts(ctx, notebookID)
	if err != nil {
		return nil, fmt.Errorf("provider.ListConcepts(%s) > %w", notebookID, err)
	}
	return concepts, nil
}

// persist runs a session write, retrying it once.
func (s *Service) persist(ctx context.Context, write func(ctx context.Context) error) error {
	return retry.Do(
		func() error {
			ctx, cancel := s.withTimeout(ctx)
			defer cancel()
			return write(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(s.opts.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return retry.IsRecoverable(err) && !errors.Is(err, session.ErrNotFound)
		}),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("session write failed", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.StoreTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.StoreTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *Service) newRand() *rand.Rand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return rand.New(rand.NewSource(s.rand.Int63()))
}

func (s *Service) lookup(sessionID string) (*activeSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.active[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	return a, nil
}

func (s *Service) register(a *activeSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[a.session.ID] = a
}

// registerOrGet keeps the first of two concurrent rehydrations.
func (s *Service) registerOrGet(a *activeSession) *activeSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.active[a.session.ID]; ok {
		return existing
	}
	s.active[a.session.ID] = a
	return a
}

func (s *Service) unregister(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, sessionID)
}
