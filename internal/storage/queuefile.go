// Package storage persists the task and event documents as YAML files and
// provides the single-writer lock and report writer used around them.
package storage

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/valter-silva-au/opq/pkg/models"
)

// DocumentVersion is the version stamped on freshly created documents.
const DocumentVersion = "1.0"

// TaskFile reads and rewrites the task document.
type TaskFile struct {
	path string
}

// NewTaskFile creates a TaskFile backed by path.
func NewTaskFile(path string) *TaskFile {
	return &TaskFile{path: filepath.Clean(path)}
}

// Path returns the document location.
func (f *TaskFile) Path() string { return f.path }

// LoadTasks reads the document. A missing file yields an empty document.
func (f *TaskFile) LoadTasks() (*models.TaskDocument, error) {
	doc := &models.TaskDocument{}
	exists, err := readYAML(f.path, doc)
	if err != nil {
		return nil, fmt.Errorf("loading task document %s: %w", f.path, err)
	}
	if !exists || doc.Version == "" {
		doc.Version = DocumentVersion
	}
	if doc.Queue == nil {
		doc.Queue = []models.TaskEntry{}
	}
	return doc, nil
}

// SaveTasks atomically replaces the document, queue and metadata together.
func (f *TaskFile) SaveTasks(doc *models.TaskDocument) error {
	if doc == nil {
		return fmt.Errorf("saving task document: document is nil")
	}
	if doc.Version == "" {
		doc.Version = DocumentVersion
	}
	if doc.LastUpdated.IsZero() {
		doc.LastUpdated = time.Now().UTC()
	}
	if err := writeYAML(f.path, doc); err != nil {
		return fmt.Errorf("saving task document %s: %w", f.path, err)
	}
	return nil
}
