package limits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/conceptdeck/internal/database"
)

//go:generate mockgen -source=repository.go -destination=../mocks/limits/mock_store.go -package=mock_limits

// Store persists NotebookLimits keyed by (user, notebook).
type Store interface {
	// Get returns nil when nothing was recorded yet.
	Get(ctx context.Context, userID, notebookID string) (*NotebookLimits, error)
	// MergePut writes only the groups set in update, creating the row if needed.
	MergePut(ctx context.Context, userID, notebookID string, update Update) error
}

// DBStore implements Store on top of the notebook_limits table.
type DBStore struct {
	db *sqlx.DB
}

// NewDBStore creates a new DBStore.
func NewDBStore(db *sqlx.DB) *DBStore {
	return &DBStore{db: db}
}

func (s *DBStore) Get(ctx context.Context, userID, notebookID string) (*NotebookLimits, error) {
	var l NotebookLimits
	err := s.db.GetContext(ctx, &l,
		`SELECT user_id, notebook_id, last_free_study_date, free_study_count_today,
		last_smart_study_date, smart_study_count_today, last_quiz_passed,
		last_quiz_date, quiz_count_this_week, week_start_date, updated_at
		FROM notebook_limits WHERE user_id = ? AND notebook_id = ?`,
		userID, notebookID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext(notebook_limits) > %w", err)
	}
	return &l, nil
}

func (s *DBStore) MergePut(ctx context.Context, userID, notebookID string, update Update) error {
	columns, values := update.columns()
	if len(columns) == 0 {
		return nil
	}

	return database.RunInTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		assignments := make([]string, len(columns))
		for i, c := range columns {
			assignments[i] = c + " = ?"
		}
		args := append(append([]interface{}{}, values...), userID, notebookID)
		result, err := tx.ExecContext(ctx,
			"UPDATE notebook_limits SET "+strings.Join(assignments, ", ")+" WHERE user_id = ? AND notebook_id = ?",
			args...)
		if err != nil {
			return fmt.Errorf("tx.ExecContext(update notebook_limits) > %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("result.RowsAffected() > %w", err)
		}
		if affected > 0 {
			return nil
		}

		insertColumns := append([]string{"user_id", "notebook_id"}, columns...)
		insertArgs := append([]interface{}{userID, notebookID}, values...)
		if _, err := tx.ExecContext(ctx,
			database.BuildMultiRowInsert("notebook_limits", insertColumns, 1),
			insertArgs...); err != nil {
			return fmt.Errorf("tx.ExecContext(insert notebook_limits) > %w", err)
		}
		return nil
	})
}

func (u Update) columns() ([]string, []interface{}) {
	var columns []string
	var values []interface{}
	if u.FreeStudy != nil {
		columns = append(columns, "last_free_study_date", "free_study_count_today")
		values = append(values, u.FreeStudy.LastFreeStudyDate, u.FreeStudy.FreeStudyCountToday)
	}
	if u.SmartStudy != nil {
		columns = append(columns, "last_smart_study_date", "smart_study_count_today", "last_quiz_passed")
		values = append(values, u.SmartStudy.LastSmartStudyDate, u.SmartStudy.SmartStudyCountToday, u.SmartStudy.LastQuizPassed)
	}
	if u.Quiz != nil {
		columns = append(columns, "last_quiz_date", "quiz_count_this_week", "week_start_date")
		values = append(values, u.Quiz.LastQuizDate, u.Quiz.QuizCountThisWeek, u.Quiz.WeekStartDate)
	}
	if len(columns) == 0 {
		return nil, nil
	}
	return append(columns, "updated_at"), append(values, u.UpdatedAt)
}
