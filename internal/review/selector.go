package review

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/at-ishikawa/conceptdeck/internal/content"
	"github.com/at-ishikawa/conceptdeck/internal/learning"
	"github.com/at-ishikawa/conceptdeck/internal/logging"
)

// Reviewable is a selection resolved against live notebook content.
type Reviewable struct {
	// Concepts holds due concepts first, then new ones.
	Concepts  []content.Concept
	Selection Selection
	// Records indexes the user's existing records by concept id.
	Records map[string]learning.Record
}

// Selector loads notebook content and learning records to select what to review.
type Selector struct {
	provider content.Provider
	store    learning.Store
	timeout  time.Duration
	location *time.Location
	logger   *zap.Logger
}

// NewSelector creates a new Selector. timeout bounds each load and each orphan delete; zero disables it.
func NewSelector(provider content.Provider, store learning.Store, timeout time.Duration, location *time.Location, logger *zap.Logger) *Selector {
	if location == nil {
		location = time.Local
	}
	return &Selector{
		provider: provider,
		store:    store,
		timeout:  timeout,
		location: location,
		logger:   logging.OrNop(logger),
	}
}

// Reviewable returns the concepts the user should review now.
// Load failures yield an empty result: selecting nothing is safer than guessing.
func (s *Selector) Reviewable(ctx context.Context, userID, notebookID string, now time.Time) Reviewable {
	concepts, records, err := s.load(ctx, userID, notebookID)
	if err != nil {
		s.logger.Warn("load reviewable concepts",
			zap.String("user_id", userID),
			zap.String("notebook_id", notebookID),
			zap.Error(err))
		return Reviewable{}
	}

	sel := SelectReviewable(concepts, records, now, s.location)
	if len(sel.Orphans) > 0 && !anyDueOn(sel.DueRecords, now, s.location) {
		s.deleteOrphans(ctx, userID, notebookID, sel.Orphans)
	}

	byConcept := make(map[string]learning.Record, len(records))
	for _, r := range records {
		byConcept[r.ConceptID] = r
	}

	result := Reviewable{
		Selection: sel,
		Records:   byConcept,
	}
	result.Concepts = append(result.Concepts, resolve(sel.DueRecords, content.IndexByID(concepts))...)
	result.Concepts = append(result.Concepts, sel.NewConcepts...)
	return result
}

// CountReviewable returns len(Reviewable(...).Concepts) without touching orphaned records.
func (s *Selector) CountReviewable(ctx context.Context, userID, notebookID string, now time.Time) (int, error) {
	concepts, records, err := s.load(ctx, userID, notebookID)
	if err != nil {
		return 0, err
	}
	return CountReviewable(concepts, records, now, s.location), nil
}

// load lists the notebook first so records of member concepts created through another notebook are found.
func (s *Selector) load(ctx context.Context, userID, notebookID string) ([]content.Concept, []learning.Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	concepts, err := s.provider.ListConcepts(ctx, notebookID)
	if err != nil {
		return nil, nil, fmt.Errorf("list concepts: %w", err)
	}
	records, err := s.store.GetAll(ctx, userID, notebookID, content.IDs(concepts))
	if err != nil {
		return nil, nil, fmt.Errorf("load learning records: %w", err)
	}
	return concepts, records, nil
}

func (s *Selector) deleteOrphans(ctx context.Context, userID, notebookID string, orphans []learning.Record) {
	for _, r := range orphans {
		if err := s.deleteRecord(ctx, userID, r.ConceptID); err != nil {
			s.logger.Warn("delete orphaned learning record",
				zap.String("user_id", userID),
				zap.String("notebook_id", notebookID),
				zap.String("concept_id", r.ConceptID),
				zap.Error(err))
			continue
		}
		s.logger.Info("deleted orphaned learning record",
			zap.String("user_id", userID),
			zap.String("concept_id", r.ConceptID))
	}
}

func (s *Selector) deleteRecord(ctx context.Context, userID, conceptID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.Delete(ctx, userID, conceptID)
}

func (s *Selector) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func anyDueOn(records []learning.Record, day time.Time, loc *time.Location) bool {
	for _, r := range records {
		if r.DueOn(day, loc) {
			return true
		}
	}
	return false
}

func resolve(records []learning.Record, index map[string]content.Concept) []content.Concept {
	var concepts []content.Concept
	for _, r := range records {
		if c, ok := index[r.ConceptID]; ok {
			concepts = append(concepts, c)
		}
	}
	return concepts
}
