package observability

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/opq/pkg/models"
)

// DocumentVersion is written into every persisted event document.
const DocumentVersion = "1.0"

// EventFilter specifies criteria for reading events. Zero fields match
// everything.
type EventFilter struct {
	Since *time.Time
	Until *time.Time
	Type  models.EventType
	Role  models.Role
}

// EventLog is an append-only arena of events. Entries are never modified or
// removed once appended, which lets the metadata counters be maintained
// incrementally.
type EventLog struct {
	events []models.EventEntry
	meta   models.EventMetadata
	now    func() time.Time
}

// NewEventLog restores a log from its persisted document. doc may be nil.
// now supplies timestamps; nil means time.Now in UTC.
func NewEventLog(doc *models.EventDocument, now func() time.Time) *EventLog {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	l := &EventLog{now: now, meta: emptyMetadata()}
	if doc == nil {
		return l
	}
	l.events = append([]models.EventEntry(nil), doc.Events...)
	if doc.Metadata.TotalEvents == len(doc.Events) && doc.Metadata.EventsByType != nil {
		l.meta = doc.Metadata
		if l.meta.EventsByRole == nil {
			l.meta.EventsByRole = make(map[string]int)
		}
		return l
	}
	// Counters disagree with the arena (hand-edited or older document):
	// rebuild them from the entries.
	for _, e := range l.events {
		l.count(e)
	}
	return l
}

func emptyMetadata() models.EventMetadata {
	return models.EventMetadata{
		EventsByType: make(map[string]int),
		EventsByRole: make(map[string]int),
	}
}

// Append stamps the event with an id (and a timestamp when unset), stores it
// and updates the counters. The stored entry is returned.
func (l *EventLog) Append(event models.EventEntry) (models.EventEntry, error) {
	if strings.TrimSpace(string(event.Type)) == "" {
		return models.EventEntry{}, fmt.Errorf("appending event: type must not be empty")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}
	event.ID = NewEventID(event.Timestamp)

	l.events = append(l.events, event)
	l.count(event)
	return event, nil
}

func (l *EventLog) count(e models.EventEntry) {
	l.meta.TotalEvents++
	l.meta.EventsByType[string(e.Type)]++
	if e.Role != "" {
		l.meta.EventsByRole[string(e.Role)]++
	}
	l.meta.LastEventID = e.ID
	ts := e.Timestamp
	l.meta.LastEventTimestamp = &ts
}

// NewEventID builds an id from the event timestamp plus a random suffix, so
// ids sort roughly chronologically and collide only in theory.
func NewEventID(ts time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("evt-%d-%s", ts.UnixMilli(), suffix)
}

// Recent yields the events whose timestamp falls within the trailing window
// of windowDays days. The sequence is computed on each iteration and holds no
// state between calls, so it can be ranged over repeatedly.
func (l *EventLog) Recent(windowDays int) iter.Seq[models.EventEntry] {
	snapshot := l.events[:len(l.events):len(l.events)]
	return func(yield func(models.EventEntry) bool) {
		cutoff := l.now().Add(-time.Duration(windowDays) * 24 * time.Hour)
		for _, e := range snapshot {
			if e.Timestamp.Before(cutoff) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Filter returns the events matching every criterion in filter, oldest first.
func (l *EventLog) Filter(filter EventFilter) []models.EventEntry {
	var out []models.EventEntry
	for _, e := range l.events {
		if matchesEventFilter(e, filter) {
			out = append(out, e)
		}
	}
	return out
}

func matchesEventFilter(event models.EventEntry, filter EventFilter) bool {
	if filter.Since != nil && event.Timestamp.Before(*filter.Since) {
		return false
	}
	if filter.Until != nil && event.Timestamp.After(*filter.Until) {
		return false
	}
	if filter.Type != "" && event.Type != filter.Type {
		return false
	}
	if filter.Role != "" && event.Role != filter.Role {
		return false
	}
	return true
}

// Events returns a copy of every entry in append order.
func (l *EventLog) Events() []models.EventEntry {
	return append([]models.EventEntry(nil), l.events...)
}

// Len returns the number of appended events.
func (l *EventLog) Len() int { return len(l.events) }

// Metadata returns a copy of the running aggregates.
func (l *EventLog) Metadata() models.EventMetadata {
	m := l.meta
	m.EventsByType = copyCounts(l.meta.EventsByType)
	m.EventsByRole = copyCounts(l.meta.EventsByRole)
	return m
}

// Document returns the persisted form of the log.
func (l *EventLog) Document() *models.EventDocument {
	return &models.EventDocument{
		Version:     DocumentVersion,
		LastUpdated: l.now(),
		Events:      l.Events(),
		Metadata:    l.Metadata(),
	}
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
