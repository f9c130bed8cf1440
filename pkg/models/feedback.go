package models

import "time"

// Severity grades a feedback item.
type Severity string

const (
	SeverityInfo   Severity = "info"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// FeedbackItem is a candidate task derived from operational signals. It is
// never persisted directly: survivors of deduplication become TaskEntry
// records.
type FeedbackItem struct {
	Title             string     `json:"title"`
	Detail            string     `json:"detail"`
	Severity          Severity   `json:"severity"`
	RecommendedRole   Role       `json:"recommended_role,omitempty"`
	RecommendedAction string     `json:"recommended_action"`
	DueAt             *time.Time `json:"due_at,omitempty"`
	Labels            []string   `json:"labels,omitempty"`
}

// PriorityForSeverity maps a feedback severity onto a task priority.
func PriorityForSeverity(s Severity) Priority {
	switch s {
	case SeverityHigh:
		return PriorityHigh
	case SeverityMedium:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// CorpusRecord is one historical record sampled from the knowledge corpus.
type CorpusRecord struct {
	ID           string    `yaml:"id" json:"id"`
	CreatedAt    time.Time `yaml:"created_at" json:"created_at"`
	Topics       []string  `yaml:"topics" json:"topics"`
	HasErrors    bool      `yaml:"has_errors" json:"has_errors"`
	HasSolutions bool      `yaml:"has_solutions" json:"has_solutions"`
	ProjectPath  string    `yaml:"project_path,omitempty" json:"project_path,omitempty"`
}

// CorpusDocument is the top-level structure of a file-backed corpus.
type CorpusDocument struct {
	Version string         `yaml:"version"`
	Records []CorpusRecord `yaml:"records"`
}
