package storage

import (
	"fmt"
	"path/filepath"
)

// ReportFile overwrites the feedback report on every run.
type ReportFile struct {
	path string
}

// NewReportFile creates a ReportFile backed by path.
func NewReportFile(path string) *ReportFile {
	return &ReportFile{path: filepath.Clean(path)}
}

// Path returns the report location.
func (r *ReportFile) Path() string { return r.path }

// WriteReport atomically replaces the report with content.
func (r *ReportFile) WriteReport(content []byte) error {
	if err := writeAtomic(r.path, content, false); err != nil {
		return fmt.Errorf("writing report %s: %w", r.path, err)
	}
	return nil
}
