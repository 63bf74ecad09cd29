package session

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/at-ishikawa/conceptdeck/internal/content"
)

// Runtime is the in-memory state machine of one session.
// It is not safe for concurrent use; callers serialize calls per session.
type Runtime struct {
	mode      Mode
	intensity Intensity
	quizSize  int
	rand      *rand.Rand

	state     State
	startTime time.Time
	batch     []content.Concept
	index     map[string]content.Concept

	active    []string
	immediate []string
	pass      int

	reviewed  int
	mastered  int
	reviewing int
	first     map[string]Response
	final     map[string]Response
}

// NewRuntime creates a runtime in StateNotStarted.
// quizSize caps QUIZ batches; rnd shuffles the batch and may be nil.
func NewRuntime(mode Mode, intensity Intensity, quizSize int, rnd *rand.Rand) (*Runtime, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if mode.UsesIntensity() {
		if _, err := ParseIntensity(string(intensity)); err != nil {
			return nil, err
		}
	} else {
		intensity = ""
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Runtime{
		mode:      mode,
		intensity: intensity,
		quizSize:  quizSize,
		rand:      rnd,
		state:     StateNotStarted,
		first:     make(map[string]Response),
		final:     make(map[string]Response),
	}, nil
}

// BatchLimit is how many of available concepts a session draws.
// FREE sessions take everything; intensity only changes their score multiplier.
func BatchLimit(mode Mode, intensity Intensity, quizSize, available int) int {
	limit := available
	switch mode {
	case ModeSmart:
		limit = intensity.BatchSize()
	case ModeQuiz:
		limit = quizSize
	}
	if limit <= 0 || limit > available {
		return available
	}
	return limit
}

// Begin draws the batch from candidates and opens the first pass.
// Candidates are capped in the given order, then shuffled.
func (r *Runtime) Begin(candidates []content.Concept, now time.Time) ([]content.Concept, error) {
	if r.state != StateNotStarted {
		return nil, fmt.Errorf("begin in state %s: %w", r.state, ErrInvalidTransition)
	}

	seen := make(map[string]struct{}, len(candidates))
	unique := make([]content.Concept, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		unique = append(unique, c)
	}
	if len(unique) == 0 {
		return nil, ErrEmptyBatch
	}

	batch := unique[:BatchLimit(r.mode, r.intensity, r.quizSize, len(unique))]
	r.rand.Shuffle(len(batch), func(i, j int) {
		batch[i], batch[j] = batch[j], batch[i]
	})

	r.batch = batch
	r.index = content.IndexByID(batch)
	r.active = content.IDs(batch)
	r.pass = 1
	r.startTime = now
	r.state = StateActive
	return r.Batch(), nil
}

// Restore rebuilds a runtime awaiting validation from a persisted SMART session.
func Restore(s Session, batch []content.Concept) (*Runtime, error) {
	if s.Mode != ModeSmart || s.EndTime == nil || s.Validated != nil || s.Metrics == nil {
		return nil, fmt.Errorf("restore session %s: %w", s.ID, ErrInvalidTransition)
	}
	r, err := NewRuntime(s.Mode, s.Intensity, 0, nil)
	if err != nil {
		return nil, err
	}
	r.batch = batch
	r.index = content.IndexByID(batch)
	r.startTime = s.StartTime
	r.pass = s.Metrics.Passes
	r.reviewed = s.Metrics.ConceptsReviewed
	r.mastered = s.Metrics.Mastered
	r.reviewing = s.Metrics.Reviewing
	for id, v := range s.Metrics.FirstPassResults {
		r.first[id] = v
	}
	for id, v := range s.Metrics.ConceptFinalResults {
		r.final[id] = v
	}
	r.state = StateAwaitingValidation
	return r, nil
}

// Record applies one verdict.
// A concept can be answered while pending in the current pass, or again while it
// waits in the immediate-review queue, in which case a MASTERED verdict withdraws it.
func (r *Runtime) Record(conceptID string, response Response) error {
	if r.state != StateActive && r.state != StateImmediateReview {
		return fmt.Errorf("record response in state %s: %w", r.state, ErrInvalidTransition)
	}
	if _, err := ParseResponse(string(response)); err != nil {
		return err
	}

	if i := indexOf(r.active, conceptID); i >= 0 {
		r.active = append(r.active[:i], r.active[i+1:]...)
		if response == ResponseReviewLater && indexOf(r.immediate, conceptID) < 0 {
			r.immediate = append(r.immediate, conceptID)
		}
	} else if indexOf(r.immediate, conceptID) < 0 {
		return fmt.Errorf("concept %s: %w", conceptID, ErrUnknownConcept)
	}

	if response == ResponseMastered {
		if i := indexOf(r.immediate, conceptID); i >= 0 {
			r.immediate = append(r.immediate[:i], r.immediate[i+1:]...)
		}
	}

	r.reviewed++
	if response == ResponseMastered {
		r.mastered++
	} else {
		r.reviewing++
	}
	if _, ok := r.first[conceptID]; !ok {
		r.first[conceptID] = response
	}
	r.final[conceptID] = response

	r.advance()
	return nil
}

func (r *Runtime) advance() {
	if len(r.active) > 0 {
		return
	}
	if len(r.immediate) > 0 {
		r.active = r.immediate
		r.immediate = nil
		r.pass++
		r.state = StateImmediateReview
		return
	}
	r.state = StateCompleting
}

// Finalize computes the metrics to persist. The state stays Completing until Committed.
func (r *Runtime) Finalize(now time.Time) (Metrics, error) {
	if r.state != StateCompleting {
		return Metrics{}, fmt.Errorf("finalize in state %s: %w", r.state, ErrInvalidTransition)
	}

	m := r.Metrics(now)
	masteredFinal, notMasteredFinal := 0, 0
	for _, v := range r.final {
		if v == ResponseMastered {
			masteredFinal++
		} else {
			notMasteredFinal++
		}
	}
	m.MasteredFinal = &masteredFinal
	m.NotMasteredFinal = &notMasteredFinal
	m.ConceptFinalResults = copyResults(r.final)
	m.FirstPassResults = copyResults(r.first)
	m.Passes = r.pass
	return m, nil
}

// Committed records that the finalized metrics were persisted.
// SMART sessions then wait for validation; other modes are complete.
func (r *Runtime) Committed() error {
	if r.state != StateCompleting {
		return fmt.Errorf("commit in state %s: %w", r.state, ErrInvalidTransition)
	}
	if r.mode == ModeSmart {
		r.state = StateAwaitingValidation
	} else {
		r.state = StateComplete
	}
	return nil
}

// Validated closes a SMART session once the validation outcome was handled.
func (r *Runtime) Validated() error {
	if r.state != StateAwaitingValidation {
		return fmt.Errorf("validate in state %s: %w", r.state, ErrInvalidTransition)
	}
	r.state = StateComplete
	return nil
}

// Metrics is a live snapshot of the running counters.
func (r *Runtime) Metrics(now time.Time) Metrics {
	return Metrics{
		TotalConcepts:    len(r.batch),
		ConceptsReviewed: r.reviewed,
		Mastered:         r.mastered,
		Reviewing:        r.reviewing,
		TimeSpent:        elapsedSeconds(r.startTime, now),
	}
}

// FinalVerdicts returns the last verdict of every answered concept.
func (r *Runtime) FinalVerdicts() map[string]Response {
	return copyResults(r.final)
}

func (r *Runtime) Mode() Mode {
	return r.mode
}

func (r *Runtime) Intensity() Intensity {
	return r.intensity
}

func (r *Runtime) State() State {
	return r.state
}

// Pass is 1 for the first pass through the batch and grows with each immediate-review pass.
func (r *Runtime) Pass() int {
	return r.pass
}

func (r *Runtime) StartTime() time.Time {
	return r.startTime
}

func (r *Runtime) Concept(id string) (content.Concept, bool) {
	c, ok := r.index[id]
	return c, ok
}

// Batch returns the concepts drawn at Begin, in presentation order.
func (r *Runtime) Batch() []content.Concept {
	return append([]content.Concept(nil), r.batch...)
}

// Remaining returns the concepts still pending in the current pass.
func (r *Runtime) Remaining() []content.Concept {
	return r.lookup(r.active)
}

// ImmediateQueue returns the concepts queued for the next pass.
func (r *Runtime) ImmediateQueue() []content.Concept {
	return r.lookup(r.immediate)
}

func (r *Runtime) lookup(ids []string) []content.Concept {
	concepts := make([]content.Concept, 0, len(ids))
	for _, id := range ids {
		concepts = append(concepts, r.index[id])
	}
	return concepts
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func copyResults(results map[string]Response) map[string]Response {
	out := make(map[string]Response, len(results))
	for k, v := range results {
		out[k] = v
	}
	return out
}
