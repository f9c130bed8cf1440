package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "feedback-report.md")
	r := NewReportFile(path)

	require.NoError(t, r.WriteReport([]byte("# first\n")))
	require.NoError(t, r.WriteReport([]byte("# second\n")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# second\n", string(got))

	_, err = os.Stat(path + ".bak")
	assert.True(t, os.IsNotExist(err), "reports are not backed up")
}
