package core

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/valter-silva-au/opq/pkg/models"
)

// Labels attached to synthesized tasks.
const (
	LabelFeedback       = "feedback"
	LabelFlakyTests     = "flaky-tests"
	LabelKnowledgeGap   = "knowledge-gap"
	LabelUnresolvedErrs = "unresolved-errors"
)

// CorpusSource opens sessions against the external knowledge corpus.
type CorpusSource interface {
	// Name identifies the backend in logs.
	Name() string
	Open(ctx context.Context) (CorpusSession, error)
}

// CorpusSession is an acquired corpus connection. Close must be called once
// the session is no longer needed, whether or not queries succeeded.
type CorpusSession interface {
	// Recent returns up to limit of the most recent records.
	Recent(ctx context.Context, limit int) ([]models.CorpusRecord, error)
	Close() error
}

// SignalSource yields recent operational events.
type SignalSource interface {
	Recent(windowDays int) iter.Seq[models.EventEntry]
}

// FeedbackRules holds the thresholds for the synthesis rules.
type FeedbackRules struct {
	WindowDays     int
	FlakyThreshold int
	TopicThreshold int
	ErrorThreshold int
	CorpusLimit    int
	CorpusTimeout  time.Duration
}

// DefaultFeedbackRules returns the standard rule thresholds.
func DefaultFeedbackRules() FeedbackRules {
	return FeedbackRules{
		WindowDays:     7,
		FlakyThreshold: 2,
		TopicThreshold: 5,
		ErrorThreshold: 3,
		CorpusLimit:    200,
		CorpusTimeout:  10 * time.Second,
	}
}

// Synthesis is the outcome of evaluating the rules once.
type Synthesis struct {
	Items []models.FeedbackItem
	// Degraded is set when corpus-derived rules could not run.
	Degraded bool
	// CorpusErr holds the corpus failure when Degraded is set.
	CorpusErr error
}

// FeedbackSynthesizer derives candidate tasks from recent events and the
// knowledge corpus.
type FeedbackSynthesizer struct {
	rules  FeedbackRules
	corpus CorpusSource
	logger *slog.Logger
	now    func() time.Time
}

// NewFeedbackSynthesizer creates a synthesizer. corpus may be nil, in which
// case only event-derived rules run. logger may be nil.
func NewFeedbackSynthesizer(rules FeedbackRules, corpus CorpusSource, logger *slog.Logger, now func() time.Time) *FeedbackSynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &FeedbackSynthesizer{rules: rules, corpus: corpus, logger: logger, now: now}
}

// Synthesize evaluates every rule. A corpus failure never aborts the run: it
// is logged as a warning and the event-derived items are still returned.
func (f *FeedbackSynthesizer) Synthesize(ctx context.Context, signals SignalSource) Synthesis {
	now := f.now()
	var out Synthesis

	if item, ok := f.flakinessRule(signals, now); ok {
		out.Items = append(out.Items, item)
	}

	if f.corpus == nil {
		return out
	}

	sample, err := f.sampleCorpus(ctx)
	if err != nil {
		f.logger.Warn("knowledge corpus unavailable, continuing with partial signals",
			"backend", f.corpus.Name(), "error", err)
		out.Degraded = true
		out.CorpusErr = err
		return out
	}
	f.logger.Debug("sampled knowledge corpus", "backend", f.corpus.Name(), "records", len(sample))

	if item, ok := f.knowledgeGapRule(sample, now); ok {
		out.Items = append(out.Items, item)
	}
	out.Items = append(out.Items, f.unresolvedErrorRule(sample, now)...)
	return out
}

// sampleCorpus acquires a session, reads the sample and always releases the
// session. The whole exchange is bounded by CorpusTimeout.
func (f *FeedbackSynthesizer) sampleCorpus(ctx context.Context) (records []models.CorpusRecord, err error) {
	if f.rules.CorpusTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.rules.CorpusTimeout)
		defer cancel()
	}

	session, err := f.corpus.Open(ctx)
	if err != nil {
		return nil, externalServiceError("opening corpus", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			f.logger.Warn("releasing corpus session", "backend", f.corpus.Name(), "error", cerr)
		}
	}()

	records, err = session.Recent(ctx, f.rules.CorpusLimit)
	if err != nil {
		return nil, externalServiceError("reading corpus", err)
	}
	return records, nil
}

func (f *FeedbackSynthesizer) flakinessRule(signals SignalSource, now time.Time) (models.FeedbackItem, bool) {
	if signals == nil {
		return models.FeedbackItem{}, false
	}
	failures := 0
	for e := range signals.Recent(f.rules.WindowDays) {
		if e.Type == models.EventTestFailure {
			failures++
		}
	}
	f.logger.Debug("flakiness rule", "test_failures", failures, "threshold", f.rules.FlakyThreshold)
	if failures < f.rules.FlakyThreshold {
		return models.FeedbackItem{}, false
	}
	due := now.Add(48 * time.Hour)
	return models.FeedbackItem{
		Title:             "Stabilize flaky tests",
		Detail:            fmt.Sprintf("%d test failures recorded in the last %d days.", failures, f.rules.WindowDays),
		Severity:          models.SeverityHigh,
		RecommendedRole:   models.RoleTester,
		RecommendedAction: "Triage the recent test failures and fix or quarantine the flaky cases.",
		DueAt:             &due,
		Labels:            []string{LabelFeedback, LabelFlakyTests},
	}, true
}

func (f *FeedbackSynthesizer) knowledgeGapRule(sample []models.CorpusRecord, now time.Time) (models.FeedbackItem, bool) {
	counts := make(map[string]int)
	for _, rec := range sample {
		seen := make(map[string]bool, len(rec.Topics))
		for _, topic := range rec.Topics {
			topic = strings.ToLower(strings.TrimSpace(topic))
			if topic == "" || seen[topic] {
				continue
			}
			seen[topic] = true
			counts[topic]++
		}
	}

	top, topCount := "", 0
	for topic, n := range counts {
		if n > topCount || (n == topCount && topic < top) {
			top, topCount = topic, n
		}
	}
	f.logger.Debug("knowledge gap rule", "top_topic", top, "count", topCount, "threshold", f.rules.TopicThreshold)
	if top == "" || topCount < f.rules.TopicThreshold {
		return models.FeedbackItem{}, false
	}

	due := now.Add(72 * time.Hour)
	return models.FeedbackItem{
		Title:             fmt.Sprintf("Document recurring topic: %s", top),
		Detail:            fmt.Sprintf("Topic %q appears in %d of the %d most recent knowledge records.", top, topCount, len(sample)),
		Severity:          models.SeverityMedium,
		RecommendedRole:   models.RoleArchitect,
		RecommendedAction: "Write a reference note or design doc that answers the recurring questions on this topic.",
		DueAt:             &due,
		Labels:            []string{LabelFeedback, LabelKnowledgeGap},
	}, true
}

func (f *FeedbackSynthesizer) unresolvedErrorRule(sample []models.CorpusRecord, now time.Time) []models.FeedbackItem {
	counts := make(map[string]int)
	for _, rec := range sample {
		project := strings.TrimSpace(rec.ProjectPath)
		if project == "" || !rec.HasErrors || rec.HasSolutions {
			continue
		}
		counts[project]++
	}

	projects := make([]string, 0, len(counts))
	for p, n := range counts {
		if n >= f.rules.ErrorThreshold {
			projects = append(projects, p)
		}
	}
	sort.Strings(projects)

	items := make([]models.FeedbackItem, 0, len(projects))
	for _, p := range projects {
		due := now.Add(24 * time.Hour)
		items = append(items, models.FeedbackItem{
			Title:             fmt.Sprintf("Resolve recurring errors in %s", p),
			Detail:            fmt.Sprintf("%d recent records for %s report errors without a recorded solution.", counts[p], p),
			Severity:          models.SeverityHigh,
			RecommendedRole:   models.RoleDeveloper,
			RecommendedAction: "Reproduce the recurring errors, fix the root cause and record the solution.",
			DueAt:             &due,
			Labels:            []string{LabelFeedback, LabelUnresolvedErrs},
		})
	}
	return items
}

// Deduplicate drops items whose title already belongs to a task in store, in
// any status, and repeated titles within items. Order is preserved.
func Deduplicate(items []models.FeedbackItem, store *TaskStore) (survivors []models.FeedbackItem, skipped int) {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if seen[item.Title] || store.HasTitle(item.Title) {
			skipped++
			continue
		}
		seen[item.Title] = true
		survivors = append(survivors, item)
	}
	return survivors, skipped
}

// TaskInputFromFeedback converts a surviving feedback item into task input.
func TaskInputFromFeedback(item models.FeedbackItem, now time.Time) models.TaskInput {
	role := item.RecommendedRole
	if role == "" {
		role = models.RoleArchitect
	}
	in := models.TaskInput{
		Title:        item.Title,
		Description:  strings.TrimSpace(item.Detail + "\n\nRecommended action: " + item.RecommendedAction),
		Role:         role,
		Priority:     models.PriorityForSeverity(item.Severity),
		Status:       models.StatusPending,
		Dependencies: []string{},
		Labels:       append([]string{}, item.Labels...),
	}
	if item.DueAt != nil {
		in.Due = item.DueAt.UTC().Format(time.RFC3339)
	}
	return in
}
