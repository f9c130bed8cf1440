package observability

import (
	"regexp"
	"testing"
	"time"

	"github.com/valter-silva-au/opq/pkg/models"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)}
}

func TestEventLog_AppendStampsEntries(t *testing.T) {
	clock := newClock()
	log := NewEventLog(nil, clock.now)

	e, err := log.Append(models.EventEntry{Type: models.EventTestFailure, Role: models.RoleTester})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if !e.Timestamp.Equal(clock.t) {
		t.Errorf("timestamp = %v, want %v", e.Timestamp, clock.t)
	}
	if !regexp.MustCompile(`^evt-\d+-[0-9a-f]{8}$`).MatchString(e.ID) {
		t.Errorf("id %q does not match evt-<millis>-<hex>", e.ID)
	}

	explicit := clock.t.Add(-time.Hour)
	e2, _ := log.Append(models.EventEntry{Type: models.EventTaskAdd, Timestamp: explicit})
	if !e2.Timestamp.Equal(explicit) {
		t.Errorf("explicit timestamp overwritten: %v", e2.Timestamp)
	}

	meta := log.Metadata()
	if meta.TotalEvents != 2 || log.Len() != 2 {
		t.Errorf("total = %d, len = %d; want 2", meta.TotalEvents, log.Len())
	}
	if meta.EventsByType["test-failure"] != 1 || meta.EventsByType["task-add"] != 1 {
		t.Errorf("by type = %v", meta.EventsByType)
	}
	if len(meta.EventsByRole) != 1 || meta.EventsByRole["tester"] != 1 {
		t.Errorf("by role = %v, want only tester", meta.EventsByRole)
	}
	if meta.LastEventID != e2.ID || meta.LastEventTimestamp == nil || !meta.LastEventTimestamp.Equal(explicit) {
		t.Errorf("last event = %s at %v", meta.LastEventID, meta.LastEventTimestamp)
	}
}

func TestEventLog_AppendRejectsEmptyType(t *testing.T) {
	log := NewEventLog(nil, nil)
	if _, err := log.Append(models.EventEntry{Type: "  "}); err == nil {
		t.Fatal("expected error for empty event type")
	}
	if log.Len() != 0 {
		t.Error("rejected event was stored")
	}
}

func TestEventLog_MetadataIsACopy(t *testing.T) {
	log := NewEventLog(nil, newClock().now)
	_, _ = log.Append(models.EventEntry{Type: models.EventTaskAdd})

	meta := log.Metadata()
	meta.EventsByType["task-add"] = 99
	if log.Metadata().EventsByType["task-add"] != 1 {
		t.Error("mutating returned metadata changed the log")
	}
}

func TestEventLog_RecentWindow(t *testing.T) {
	clock := newClock()
	log := NewEventLog(nil, clock.now)
	for _, age := range []time.Duration{time.Hour, 6 * 24 * time.Hour, 8 * 24 * time.Hour} {
		_, _ = log.Append(models.EventEntry{Type: models.EventTestFailure, Timestamp: clock.t.Add(-age)})
	}

	count := func() int {
		n := 0
		for range log.Recent(7) {
			n++
		}
		return n
	}
	if got := count(); got != 2 {
		t.Errorf("recent = %d, want 2", got)
	}
	// Restartable: ranging again yields the same result.
	if got := count(); got != 2 {
		t.Errorf("second pass = %d, want 2", got)
	}

	// The cutoff is taken when iteration starts.
	seq := log.Recent(7)
	clock.t = clock.t.Add(2 * 24 * time.Hour)
	n := 0
	for range seq {
		n++
	}
	if n != 1 {
		t.Errorf("after advancing the clock recent = %d, want 1", n)
	}
}

func TestEventLog_RecentEarlyBreak(t *testing.T) {
	log := NewEventLog(nil, newClock().now)
	for i := 0; i < 5; i++ {
		_, _ = log.Append(models.EventEntry{Type: models.EventTestFailure})
	}
	n := 0
	for range log.Recent(7) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("iterated %d, want 2", n)
	}
}

func TestEventLog_Filter(t *testing.T) {
	clock := newClock()
	log := NewEventLog(nil, clock.now)
	base := clock.t.Add(-10 * time.Hour)
	_, _ = log.Append(models.EventEntry{Type: models.EventTaskAdd, Role: models.RoleDeveloper, Timestamp: base})
	_, _ = log.Append(models.EventEntry{Type: models.EventTestFailure, Role: models.RoleTester, Timestamp: base.Add(time.Hour)})
	_, _ = log.Append(models.EventEntry{Type: models.EventTaskAdd, Role: models.RoleTester, Timestamp: base.Add(2 * time.Hour)})

	since := base.Add(30 * time.Minute)
	until := base.Add(90 * time.Minute)
	tests := []struct {
		name   string
		filter EventFilter
		want   int
	}{
		{"all", EventFilter{}, 3},
		{"type", EventFilter{Type: models.EventTaskAdd}, 2},
		{"role", EventFilter{Role: models.RoleTester}, 2},
		{"type and role", EventFilter{Type: models.EventTaskAdd, Role: models.RoleTester}, 1},
		{"since", EventFilter{Since: &since}, 2},
		{"window", EventFilter{Since: &since, Until: &until}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := log.Filter(tt.filter); len(got) != tt.want {
				t.Errorf("Filter() returned %d events, want %d", len(got), tt.want)
			}
		})
	}
}

func TestEventLog_RestoreKeepsCounters(t *testing.T) {
	clock := newClock()
	src := NewEventLog(nil, clock.now)
	_, _ = src.Append(models.EventEntry{Type: models.EventTaskAdd, Role: models.RoleAnalyst})
	_, _ = src.Append(models.EventEntry{Type: models.EventTaskComplete})

	doc := src.Document()
	if doc.Version != DocumentVersion || len(doc.Events) != 2 {
		t.Fatalf("document = %+v", doc)
	}

	restored := NewEventLog(doc, clock.now)
	if restored.Len() != 2 || restored.Metadata().TotalEvents != 2 {
		t.Errorf("restored len = %d, total = %d", restored.Len(), restored.Metadata().TotalEvents)
	}
	_, _ = restored.Append(models.EventEntry{Type: models.EventTaskAdd})
	if restored.Metadata().EventsByType["task-add"] != 2 {
		t.Errorf("by type after append = %v", restored.Metadata().EventsByType)
	}
}

func TestEventLog_RestoreRebuildsStaleCounters(t *testing.T) {
	clock := newClock()
	doc := &models.EventDocument{
		Events: []models.EventEntry{
			{ID: "evt-1", Type: models.EventTestFailure, Role: models.RoleTester, Timestamp: clock.t},
			{ID: "evt-2", Type: models.EventTestFailure, Timestamp: clock.t},
		},
		Metadata: models.EventMetadata{TotalEvents: 7},
	}

	meta := NewEventLog(doc, clock.now).Metadata()
	if meta.TotalEvents != 2 || meta.EventsByType["test-failure"] != 2 || meta.EventsByRole["tester"] != 1 {
		t.Errorf("rebuilt metadata = %+v", meta)
	}
	if meta.LastEventID != "evt-2" {
		t.Errorf("last event id = %q, want evt-2", meta.LastEventID)
	}
}
