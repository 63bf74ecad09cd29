package content

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYAMLProvider_ListConcepts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "biology.yml"), []byte(`id: biology
title: Biology
concepts:
  - id: cell
    term: Cell
    definition: Basic unit of life
  - id: dna
    term: DNA
    definition: Molecule carrying genetic instructions
`), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "chemistry.yaml"), []byte(`title: Chemistry
concepts:
  - id: atom
    term: Atom
    definition: Smallest unit of an element
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# ignored"), 0644))

	tests := []struct {
		name       string
		notebookID string
		want       []Concept
		wantErr    error
	}{
		{
			name:       "explicit id keeps file order",
			notebookID: "biology",
			want: []Concept{
				{ID: "cell", Term: "Cell", Definition: "Basic unit of life"},
				{ID: "dna", Term: "DNA", Definition: "Molecule carrying genetic instructions"},
			},
		},
		{
			name:       "id defaults to file name",
			notebookID: "chemistry",
			want:       []Concept{{ID: "atom", Term: "Atom", Definition: "Smallest unit of an element"}},
		},
		{
			name:       "unknown notebook",
			notebookID: "physics",
			wantErr:    ErrNotebookNotFound,
		},
	}

	provider := NewYAMLProvider(dir)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := provider.ListConcepts(context.Background(), tt.notebookID)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestYAMLProvider_ListNotebooks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteNotebookFile(filepath.Join(dir, "b.yml"), Notebook{ID: "b", Title: "B"}))
	require.NoError(t, WriteNotebookFile(filepath.Join(dir, "a.yml"), Notebook{
		ID: "a", Title: "A", Concepts: []Concept{{ID: "x", Term: "X", Definition: "x"}},
	}))

	got, err := NewYAMLProvider(dir).ListNotebooks(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, []string{"x"}, IDs(got[0].Concepts))
	assert.Equal(t, "b", got[1].ID)
}

func TestYAMLProvider_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yml"), []byte("concepts: [[["), 0644))

	_, err := NewYAMLProvider(dir).ListConcepts(context.Background(), "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yml")
}

func TestDBProvider_ListConcepts(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		want      []Concept
		wantErr   bool
	}{
		{
			name: "returns concepts ordered by position",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "term", "definition"}).
					AddRow("cell", "Cell", "Basic unit of life").
					AddRow("dna", "DNA", "Genetic molecule")
				mock.ExpectQuery("SELECT c.id, c.term, c.definition FROM concepts c").
					WithArgs("biology").
					WillReturnRows(rows)
			},
			want: []Concept{
				{ID: "cell", Term: "Cell", Definition: "Basic unit of life"},
				{ID: "dna", Term: "DNA", Definition: "Genetic molecule"},
			},
		},
		{
			name: "db error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT c.id, c.term, c.definition FROM concepts c").
					WithArgs("biology").
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			provider := NewDBProvider(sqlx.NewDb(db, "mysql"))
			tt.setupMock(mock)

			got, err := provider.ListConcepts(context.Background(), "biology")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBProvider_ImportNotebook(t *testing.T) {
	tests := []struct {
		name      string
		notebook  Notebook
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   bool
	}{
		{
			name: "replaces membership and concepts",
			notebook: Notebook{ID: "biology", Concepts: []Concept{
				{ID: "cell", Term: "Cell", Definition: "unit"},
				{ID: "dna", Term: "DNA", Definition: "molecule"},
			}},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM notebook_concepts WHERE notebook_id = \\?").
					WithArgs("biology").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("DELETE FROM concepts WHERE id IN \\(\\?, \\?\\)").
					WithArgs("cell", "dna").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("INSERT INTO concepts \\(id, term, definition\\) VALUES \\(\\?, \\?, \\?\\), \\(\\?, \\?, \\?\\)").
					WithArgs("cell", "Cell", "unit", "dna", "DNA", "molecule").
					WillReturnResult(sqlmock.NewResult(0, 2))
				mock.ExpectExec("INSERT INTO notebook_concepts \\(notebook_id, concept_id, position\\)").
					WithArgs("biology", "cell", 0, "biology", "dna", 1).
					WillReturnResult(sqlmock.NewResult(0, 2))
				mock.ExpectCommit()
			},
		},
		{
			name:     "empty notebook only clears membership",
			notebook: Notebook{ID: "empty"},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM notebook_concepts WHERE notebook_id = \\?").
					WithArgs("empty").
					WillReturnResult(sqlmock.NewResult(0, 3))
				mock.ExpectCommit()
			},
		},
		{
			name:     "insert failure rolls back",
			notebook: Notebook{ID: "biology", Concepts: []Concept{{ID: "cell", Term: "Cell", Definition: "unit"}}},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM notebook_concepts").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("DELETE FROM concepts").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("INSERT INTO concepts").WillReturnError(errors.New("duplicate"))
				mock.ExpectRollback()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			provider := NewDBProvider(sqlx.NewDb(db, "mysql"))
			tt.setupMock(mock)

			err = provider.ImportNotebook(context.Background(), tt.notebook)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIndexByID(t *testing.T) {
	concepts := []Concept{{ID: "a", Term: "A"}, {ID: "b", Term: "B"}}
	index := IndexByID(concepts)
	assert.Len(t, index, 2)
	assert.Equal(t, "B", index["b"].Term)
	assert.Equal(t, []string{"a", "b"}, IDs(concepts))
}
