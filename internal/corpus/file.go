package corpus

import (
	"context"
	"fmt"
	"os"

	"github.com/valter-silva-au/opq/internal/core"
	"github.com/valter-silva-au/opq/internal/storage"
	"github.com/valter-silva-au/opq/pkg/models"
	"gopkg.in/yaml.v3"
)

// FileSource reads records from a YAML file of the form
//
//	version: "1.0"
//	records:
//	  - id: K-00001
//	    created_at: 2026-01-02T03:04:05Z
//	    topics: [auth, caching]
//	    has_errors: true
//	    has_solutions: false
//	    project_path: services/api
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource on path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return "file" }

// Open reads and parses the whole file. A missing file is an error: the
// corpus is expected to exist once configured.
func (s *FileSource) Open(ctx context.Context) (core.CorpusSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cf, err := readCorpusFile(s.path)
	if err != nil {
		return nil, err
	}
	return &fileSession{records: cf.Records}, nil
}

type fileSession struct {
	records []models.CorpusRecord
}

func (s *fileSession) Recent(ctx context.Context, limit int) ([]models.CorpusRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := append([]models.CorpusRecord(nil), s.records...)
	newestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fileSession) Close() error {
	s.records = nil
	return nil
}

func readCorpusFile(path string) (*models.CorpusDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}
	var cf models.CorpusDocument
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing corpus file %s: %w", path, err)
	}
	return &cf, nil
}

// ReadFile parses a YAML corpus file, e.g. for import into a database
// backend.
func ReadFile(path string) ([]models.CorpusRecord, error) {
	cf, err := readCorpusFile(path)
	if err != nil {
		return nil, err
	}
	return cf.Records, nil
}

// appendToFile merges records into the YAML file at path, replacing records
// with the same id. The file is created if missing.
func appendToFile(path string, records []models.CorpusRecord) (int, error) {
	cf := &models.CorpusDocument{Version: "1.0"}
	if _, err := os.Stat(path); err == nil {
		existing, err := readCorpusFile(path)
		if err != nil {
			return 0, err
		}
		cf = existing
		if cf.Version == "" {
			cf.Version = "1.0"
		}
	}

	index := make(map[string]int, len(cf.Records))
	for i, r := range cf.Records {
		index[r.ID] = i
	}
	for _, r := range records {
		if i, ok := index[r.ID]; ok {
			cf.Records[i] = r
			continue
		}
		index[r.ID] = len(cf.Records)
		cf.Records = append(cf.Records, r)
	}

	if err := storage.WriteYAML(path, cf); err != nil {
		return 0, fmt.Errorf("writing corpus file: %w", err)
	}
	return len(records), nil
}
