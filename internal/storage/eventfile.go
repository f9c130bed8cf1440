package storage

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/valter-silva-au/opq/pkg/models"
)

// EventFile reads and rewrites the event document.
type EventFile struct {
	path string
}

// NewEventFile creates an EventFile backed by path.
func NewEventFile(path string) *EventFile {
	return &EventFile{path: filepath.Clean(path)}
}

// Path returns the document location.
func (f *EventFile) Path() string { return f.path }

// LoadEvents reads the document. A missing file yields an empty document.
func (f *EventFile) LoadEvents() (*models.EventDocument, error) {
	doc := &models.EventDocument{}
	exists, err := readYAML(f.path, doc)
	if err != nil {
		return nil, fmt.Errorf("loading event document %s: %w", f.path, err)
	}
	if !exists || doc.Version == "" {
		doc.Version = DocumentVersion
	}
	if doc.Events == nil {
		doc.Events = []models.EventEntry{}
	}
	return doc, nil
}

// SaveEvents atomically replaces the document.
func (f *EventFile) SaveEvents(doc *models.EventDocument) error {
	if doc == nil {
		return fmt.Errorf("saving event document: document is nil")
	}
	if doc.Version == "" {
		doc.Version = DocumentVersion
	}
	if doc.LastUpdated.IsZero() {
		doc.LastUpdated = time.Now().UTC()
	}
	if err := writeYAML(f.path, doc); err != nil {
		return fmt.Errorf("saving event document %s: %w", f.path, err)
	}
	return nil
}
