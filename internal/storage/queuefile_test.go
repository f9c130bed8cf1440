package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valter-silva-au/opq/pkg/models"
)

func sampleTaskDocument(now time.Time) *models.TaskDocument {
	due := now.Add(48 * time.Hour)
	sla := 12.5
	return &models.TaskDocument{
		LastUpdated: now,
		Queue: []models.TaskEntry{
			{
				ID:           "T-0000000a",
				Title:        "Design schema",
				Role:         models.RoleArchitect,
				Priority:     models.PriorityHigh,
				Status:       models.StatusPending,
				CreatedAt:    now,
				UpdatedAt:    now,
				DueAt:        &due,
				SLAHours:     &sla,
				Dependencies: []string{},
				Labels:       []string{"db"},
			},
			{
				ID:           "T-0000000b",
				Title:        "Implement schema",
				Role:         models.RoleDeveloper,
				Priority:     models.PriorityMedium,
				Status:       models.StatusPending,
				CreatedAt:    now,
				UpdatedAt:    now,
				Dependencies: []string{"T-0000000a"},
				Labels:       []string{},
			},
		},
		Metadata: models.QueueMetadata{TotalTasks: 2, PendingTasks: 2, BlockedTasks: 1},
	}
}

func TestTaskFile_MissingFileIsEmpty(t *testing.T) {
	f := NewTaskFile(filepath.Join(t.TempDir(), "queue.yaml"))

	doc, err := f.LoadTasks()
	require.NoError(t, err)
	assert.Equal(t, DocumentVersion, doc.Version)
	assert.NotNil(t, doc.Queue)
	assert.Empty(t, doc.Queue)
}

func TestTaskFile_RoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	f := NewTaskFile(filepath.Join(t.TempDir(), "nested", "queue.yaml"))

	require.NoError(t, f.SaveTasks(sampleTaskDocument(now)))

	doc, err := f.LoadTasks()
	require.NoError(t, err)
	require.Len(t, doc.Queue, 2)
	assert.Equal(t, DocumentVersion, doc.Version)
	assert.True(t, doc.LastUpdated.Equal(now))
	assert.Equal(t, 1, doc.Metadata.BlockedTasks)

	first := doc.Queue[0]
	require.NotNil(t, first.DueAt)
	assert.True(t, first.DueAt.Equal(now.Add(48*time.Hour)))
	require.NotNil(t, first.SLAHours)
	assert.InDelta(t, 12.5, *first.SLAHours, 1e-9)
	assert.Nil(t, first.CompletedAt)
	assert.Equal(t, []string{"T-0000000a"}, doc.Queue[1].Dependencies)
}

func TestTaskFile_SaveKeepsBackup(t *testing.T) {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "queue.yaml")
	f := NewTaskFile(path)

	doc := sampleTaskDocument(now)
	require.NoError(t, f.SaveTasks(doc))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	doc.Queue = doc.Queue[:1]
	require.NoError(t, f.SaveTasks(doc))

	backup, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, first, backup)

	loaded, err := f.LoadTasks()
	require.NoError(t, err)
	assert.Len(t, loaded.Queue, 1)

	// No temp files are left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".opq-tmp-")
	}
}

func TestTaskFile_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.yaml")
	require.NoError(t, os.WriteFile(path, []byte("queue: [unclosed\n"), 0o600))

	_, err := NewTaskFile(path).LoadTasks()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing YAML")
}

func TestTaskFile_SaveNil(t *testing.T) {
	assert.Error(t, NewTaskFile(filepath.Join(t.TempDir(), "q.yaml")).SaveTasks(nil))
}
