package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

//go:generate mockgen -source=repository.go -destination=../mocks/session/mock_store.go -package=mock_session

// ErrNotFound is returned when a session id is unknown to the store.
var ErrNotFound = errors.New("session not found")

// Store persists sessions.
type Store interface {
	// Create assigns an id when s.ID is empty and returns it.
	Create(ctx context.Context, s Session) (string, error)
	// Get returns nil when the session does not exist.
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, id string, fields Fields) error
}

type sessionRow struct {
	ID              string          `db:"id"`
	UserID          string          `db:"user_id"`
	NotebookID      string          `db:"notebook_id"`
	Mode            string          `db:"mode"`
	Intensity       sql.NullString  `db:"intensity"`
	StartTime       time.Time       `db:"start_time"`
	EndTime         *time.Time      `db:"end_time"`
	ConceptIDs      string          `db:"concept_ids"`
	Metrics         sql.NullString  `db:"metrics"`
	Validated       sql.NullBool    `db:"validated"`
	ValidationScore sql.NullFloat64 `db:"validation_score"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

func (row sessionRow) toSession() (*Session, error) {
	s := &Session{
		ID:         row.ID,
		UserID:     row.UserID,
		NotebookID: row.NotebookID,
		Mode:       Mode(row.Mode),
		Intensity:  Intensity(row.Intensity.String),
		StartTime:  row.StartTime,
		EndTime:    row.EndTime,
	}
	if err := json.Unmarshal([]byte(row.ConceptIDs), &s.ConceptIDs); err != nil {
		return nil, fmt.Errorf("json.Unmarshal(concept_ids) > %w", err)
	}
	if row.Metrics.Valid && row.Metrics.String != "" {
		var m Metrics
		if err := json.Unmarshal([]byte(row.Metrics.String), &m); err != nil {
			return nil, fmt.Errorf("json.Unmarshal(metrics) > %w", err)
		}
		s.Metrics = &m
	}
	if row.Validated.Valid {
		v := row.Validated.Bool
		s.Validated = &v
	}
	if row.ValidationScore.Valid {
		v := row.ValidationScore.Float64
		s.ValidationScore = &v
	}
	return s, nil
}

// DBStore implements Store on top of the study_sessions table.
type DBStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewDBStore creates a new DBStore.
func NewDBStore(db *sqlx.DB) *DBStore {
	return &DBStore{db: db, now: time.Now}
}

func (s *DBStore) Create(ctx context.Context, sess Session) (string, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	conceptIDs, err := json.Marshal(nonNil(sess.ConceptIDs))
	if err != nil {
		return "", fmt.Errorf("json.Marshal(concept_ids) > %w", err)
	}
	var intensity sql.NullString
	if sess.Intensity != "" {
		intensity = sql.NullString{String: string(sess.Intensity), Valid: true}
	}

	now := s.now()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO study_sessions (id, user_id, notebook_id, mode, intensity, start_time, concept_ids, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.NotebookID, string(sess.Mode), intensity, sess.StartTime, string(conceptIDs), now, now); err != nil {
		return "", fmt.Errorf("db.ExecContext(insert study_session) > %w", err)
	}
	return sess.ID, nil
}

func (s *DBStore) Get(ctx context.Context, id string) (*Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, user_id, notebook_id, mode, intensity, start_time, end_time, concept_ids,
		metrics, validated, validation_score, created_at, updated_at
		FROM study_sessions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext(study_session) > %w", err)
	}
	return row.toSession()
}

func (s *DBStore) Update(ctx context.Context, id string, fields Fields) error {
	var assignments []string
	var args []interface{}
	if fields.EndTime != nil {
		assignments = append(assignments, "end_time = ?")
		args = append(args, *fields.EndTime)
	}
	if fields.Metrics != nil {
		payload, err := json.Marshal(fields.Metrics.Payload())
		if err != nil {
			return fmt.Errorf("json.Marshal(metrics) > %w", err)
		}
		assignments = append(assignments, "metrics = ?")
		args = append(args, string(payload))
	}
	if fields.Validated != nil {
		assignments = append(assignments, "validated = ?")
		args = append(args, *fields.Validated)
	}
	if fields.ValidationScore != nil {
		assignments = append(assignments, "validation_score = ?")
		args = append(args, *fields.ValidationScore)
	}
	if len(assignments) == 0 {
		return nil
	}

	updatedAt := fields.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}
	assignments = append(assignments, "updated_at = ?")
	args = append(args, updatedAt, id)

	result, err := s.db.ExecContext(ctx,
		"UPDATE study_sessions SET "+strings.Join(assignments, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("db.ExecContext(update study_session) > %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("result.RowsAffected() > %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	return nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
