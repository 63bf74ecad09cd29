package content

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/conceptdeck/internal/database"
)

// DBProvider reads concepts through the notebook_concepts membership table.
type DBProvider struct {
	db *sqlx.DB
}

// NewDBProvider creates a new DBProvider.
func NewDBProvider(db *sqlx.DB) *DBProvider {
	return &DBProvider{db: db}
}

// ListConcepts returns the notebook's concepts ordered by position.
// A notebook without members yields an empty slice, not an error.
func (p *DBProvider) ListConcepts(ctx context.Context, notebookID string) ([]Concept, error) {
	var concepts []Concept
	if err := p.db.SelectContext(ctx, &concepts,
		`SELECT c.id, c.term, c.definition FROM concepts c
		JOIN notebook_concepts nc ON nc.concept_id = c.id
		WHERE nc.notebook_id = ? ORDER BY nc.position, c.id`,
		notebookID); err != nil {
		return nil, fmt.Errorf("load concepts of notebook %s: %w", notebookID, err)
	}
	return concepts, nil
}

// ImportNotebook replaces the notebook's membership and upserts its concepts in one transaction.
func (p *DBProvider) ImportNotebook(ctx context.Context, nb Notebook) error {
	return database.RunInTx(ctx, p.db, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM notebook_concepts WHERE notebook_id = ?", nb.ID); err != nil {
			return fmt.Errorf("delete notebook_concepts: %w", err)
		}
		if len(nb.Concepts) == 0 {
			return nil
		}

		query, args, err := sqlx.In("DELETE FROM concepts WHERE id IN (?)", IDs(nb.Concepts))
		if err != nil {
			return fmt.Errorf("sqlx.In() > %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("delete concepts: %w", err)
		}

		conceptArgs := make([]interface{}, 0, len(nb.Concepts)*3)
		memberArgs := make([]interface{}, 0, len(nb.Concepts)*3)
		for i, c := range nb.Concepts {
			conceptArgs = append(conceptArgs, c.ID, c.Term, c.Definition)
			memberArgs = append(memberArgs, nb.ID, c.ID, i)
		}
		if _, err := tx.ExecContext(ctx,
			database.BuildMultiRowInsert("concepts", []string{"id", "term", "definition"}, len(nb.Concepts)),
			conceptArgs...); err != nil {
			return fmt.Errorf("insert concepts: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			database.BuildMultiRowInsert("notebook_concepts", []string{"notebook_id", "concept_id", "position"}, len(nb.Concepts)),
			memberArgs...); err != nil {
			return fmt.Errorf("insert notebook_concepts: %w", err)
		}
		return nil
	})
}
