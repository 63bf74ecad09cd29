package learning

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

//go:generate mockgen -source=repository.go -destination=../mocks/learning/mock_store.go -package=mock_learning

// Store persists learning records keyed by (user, concept).
type Store interface {
	// Get returns nil when the concept has no record yet.
	Get(ctx context.Context, userID, conceptID string) (*Record, error)
	// GetAll returns the records of conceptIDs, the notebook's membership list, together with
	// records created through the notebook whose concept is no longer a member.
	GetAll(ctx context.Context, userID, notebookID string, conceptIDs []string) ([]Record, error)
	Put(ctx context.Context, rec Record) error
	Delete(ctx context.Context, userID, conceptID string) error
}

// DBStore implements Store on top of the learning_records table.
type DBStore struct {
	db *sqlx.DB
}

// NewDBStore creates a new DBStore.
func NewDBStore(db *sqlx.DB) *DBStore {
	return &DBStore{db: db}
}

const recordColumns = "user_id, concept_id, notebook_id, ease_factor, interval_days, repetitions, quality, " +
	"next_review_date, last_review_date, created_at, updated_at"

func (s *DBStore) Get(ctx context.Context, userID, conceptID string) (*Record, error) {
	var rec Record
	err := s.db.GetContext(ctx, &rec,
		"SELECT "+recordColumns+" FROM learning_records WHERE user_id = ? AND concept_id = ?",
		userID, conceptID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext(learning_record) > %w", err)
	}
	return &rec, nil
}

// GetAll returns the user's records for the notebook's concepts, soonest review first.
// Records are matched by concept id, so a concept shared by several notebooks has one record.
func (s *DBStore) GetAll(ctx context.Context, userID, notebookID string, conceptIDs []string) ([]Record, error) {
	query := "SELECT " + recordColumns + " FROM learning_records WHERE user_id = ? AND notebook_id = ?"
	args := []interface{}{userID, notebookID}
	if len(conceptIDs) > 0 {
		var err error
		query, args, err = sqlx.In(
			"SELECT "+recordColumns+" FROM learning_records WHERE user_id = ? AND (notebook_id = ? OR concept_id IN (?))",
			userID, notebookID, conceptIDs)
		if err != nil {
			return nil, fmt.Errorf("sqlx.In() > %w", err)
		}
	}

	var records []Record
	if err := s.db.SelectContext(ctx, &records,
		s.db.Rebind(query+" ORDER BY next_review_date, concept_id"), args...); err != nil {
		return nil, fmt.Errorf("db.SelectContext(learning_records by notebook) > %w", err)
	}
	return records, nil
}

// Put inserts or replaces the record.
func (s *DBStore) Put(ctx context.Context, rec Record) error {
	if _, err := s.db.ExecContext(ctx,
		"REPLACE INTO learning_records ("+recordColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		rec.UserID, rec.ConceptID, rec.NotebookID, rec.EaseFactor, rec.Interval, rec.Repetitions, rec.Quality,
		rec.NextReviewDate, rec.LastReviewDate, rec.CreatedAt, rec.UpdatedAt); err != nil {
		return fmt.Errorf("db.ExecContext(replace learning_record) > %w", err)
	}
	return nil
}

func (s *DBStore) Delete(ctx context.Context, userID, conceptID string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM learning_records WHERE user_id = ? AND concept_id = ?",
		userID, conceptID); err != nil {
		return fmt.Errorf("db.ExecContext(delete learning_record) > %w", err)
	}
	return nil
}
