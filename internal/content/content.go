// Package content provides read access to the concepts studied in a notebook.
package content

import (
	"context"
	"errors"
)

//go:generate mockgen -source=content.go -destination=../mocks/content/mock_provider.go -package=mock_content

// ErrNotebookNotFound is returned when a provider does not know the notebook.
var ErrNotebookNotFound = errors.New("notebook not found")

// Concept is a studyable item. The engine treats everything but ID as opaque payload.
type Concept struct {
	ID         string `yaml:"id" db:"id" json:"id"`
	Term       string `yaml:"term" db:"term" json:"term"`
	Definition string `yaml:"definition" db:"definition" json:"definition"`
}

// Notebook groups concepts in a stable order.
type Notebook struct {
	ID       string    `yaml:"id" json:"id"`
	Title    string    `yaml:"title" json:"title"`
	Concepts []Concept `yaml:"concepts" json:"concepts"`
}

// Provider lists the live concepts of a notebook.
type Provider interface {
	ListConcepts(ctx context.Context, notebookID string) ([]Concept, error)
}

// IDs returns the concept ids in order.
func IDs(concepts []Concept) []string {
	ids := make([]string, len(concepts))
	for i, c := range concepts {
		ids[i] = c.ID
	}
	return ids
}

// IndexByID maps concept ids to concepts.
func IndexByID(concepts []Concept) map[string]Concept {
	index := make(map[string]Concept, len(concepts))
	for _, c := range concepts {
		index[c.ID] = c
	}
	return index
}
