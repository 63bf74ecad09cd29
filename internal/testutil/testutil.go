// Package testutil provides shared test helpers for config files, notebook fixtures and test databases.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/conceptdeck/internal/config"
	"github.com/at-ishikawa/conceptdeck/internal/content"
	"github.com/at-ishikawa/conceptdeck/internal/database"
	"github.com/at-ishikawa/conceptdeck/schemas"
)

// SetupTestConfig creates a config file pointing at a sqlite database and a notebooks directory under tmpDir.
// Returns the path to the generated config file.
func SetupTestConfig(t *testing.T, tmpDir string) string {
	t.Helper()

	notebooksDir := filepath.Join(tmpDir, "notebooks")
	require.NoError(t, os.MkdirAll(notebooksDir, 0755))

	configContent := fmt.Sprintf(`database:
  driver: sqlite
  path: %s
content:
  source: yaml
  notebooks_directory: %s
study:
  timezone: UTC
  validation_questions: 2
`,
		filepath.Join(tmpDir, "data", "conceptdeck.db"),
		notebooksDir,
	)

	cfgPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configContent), 0644))
	return cfgPath
}

// Concepts returns n concepts with ids c01, c02, ...
func Concepts(n int) []content.Concept {
	concepts := make([]content.Concept, n)
	for i := range concepts {
		id := fmt.Sprintf("c%02d", i+1)
		concepts[i] = content.Concept{
			ID:         id,
			Term:       "term-" + id,
			Definition: "definition of " + id,
		}
	}
	return concepts
}

// CreateNotebook writes a notebook YAML file into dir and returns its path.
func CreateNotebook(t *testing.T, dir, id string, concepts []content.Concept) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, id+".yml")
	require.NoError(t, content.WriteNotebookFile(path, content.Notebook{
		ID:       id,
		Title:    "Notebook " + id,
		Concepts: concepts,
	}))
	return path
}

// NewSQLiteDB opens an in-memory sqlite database with every migration applied.
func NewSQLiteDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	require.NoError(t, database.Migrate(context.Background(), db, schemas.Migrations))
	return db
}
