package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLProvider reads notebooks from *.yml / *.yaml files under a directory.
// Each file holds one notebook.
type YAMLProvider struct {
	directory string
}

// NewYAMLProvider creates a new YAMLProvider.
func NewYAMLProvider(directory string) *YAMLProvider {
	return &YAMLProvider{directory: directory}
}

// ListConcepts returns the concepts of the notebook in file order.
func (p *YAMLProvider) ListConcepts(ctx context.Context, notebookID string) ([]Concept, error) {
	notebooks, err := p.ListNotebooks(ctx)
	if err != nil {
		return nil, err
	}
	for _, nb := range notebooks {
		if nb.ID == notebookID {
			return nb.Concepts, nil
		}
	}
	return nil, fmt.Errorf("notebook %q: %w", notebookID, ErrNotebookNotFound)
}

// ListNotebooks loads every notebook file, sorted by notebook id.
func (p *YAMLProvider) ListNotebooks(ctx context.Context) ([]Notebook, error) {
	var notebooks []Notebook
	err := filepath.Walk(p.directory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() || !isYAML(path) {
			return nil
		}

		nb, err := ReadNotebookFile(path)
		if err != nil {
			return fmt.Errorf("ReadNotebookFile(%s) > %w", path, err)
		}
		if nb.ID == "" {
			nb.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		notebooks = append(notebooks, nb)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("filepath.Walk(%s) > %w", p.directory, err)
	}

	sort.Slice(notebooks, func(i, j int) bool {
		return notebooks[i].ID < notebooks[j].ID
	})
	return notebooks, nil
}

func isYAML(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yml" || ext == ".yaml"
}

// ReadNotebookFile decodes one notebook YAML file.
func ReadNotebookFile(path string) (Notebook, error) {
	var nb Notebook

	file, err := os.Open(path)
	if err != nil {
		return nb, fmt.Errorf("os.Open(%s)> %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	if err := yaml.NewDecoder(file).Decode(&nb); err != nil {
		return nb, fmt.Errorf("yaml.NewDecoder().Decode()> %w", err)
	}
	return nb, nil
}

// WriteNotebookFile writes a notebook as YAML.
func WriteNotebookFile(path string, nb Notebook) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("os.Create(%s)> %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	return yaml.NewEncoder(file).Encode(nb)
}
