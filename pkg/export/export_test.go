package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecords() []Record {
	return []Record{
		{Username: "alice", CostCenter: "Engineering", Team: "acme/backend"},
		{Username: "bob", CostCenter: "Engineering", Team: "acme/backend"},
		{Username: "carol", CostCenter: "Product", Team: "acme/frontend"},
	}
}

func fixedExporter(dir string) *Exporter {
	e := NewExporter(dir)
	e.now = func() time.Time {
		return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	}
	return e
}

func TestSummarize(t *testing.T) {
	rows := Summarize(testRecords())

	require.Len(t, rows, 2)
	assert.Equal(t, SummaryRow{CostCenter: "Engineering", Users: 2}, rows[0])
	assert.Equal(t, SummaryRow{CostCenter: "Product", Users: 1}, rows[1])
}

func TestExportCSV(t *testing.T) {
	dir := t.TempDir()
	e := fixedExporter(dir)

	paths, err := e.Export([]string{"csv"}, testRecords())
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join(dir, "cost_center_assignments_20250314_093000.csv"), paths[0])

	f, err := os.Open(paths[0])
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"username", "cost_center", "team"}, rows[0])
	assert.Equal(t, []string{"alice", "Engineering", "acme/backend"}, rows[1])
	assert.Equal(t, []string{"carol", "Product", "acme/frontend"}, rows[3])
}

func TestExportJSON(t *testing.T) {
	dir := t.TempDir()
	e := fixedExporter(dir)

	paths, err := e.Export([]string{"json"}, testRecords())
	require.NoError(t, err)
	require.Len(t, paths, 1)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)

	var payload struct {
		Assignments []Record     `json:"assignments"`
		Summary     []SummaryRow `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))

	assert.Len(t, payload.Assignments, 3)
	require.Len(t, payload.Summary, 2)
	assert.Equal(t, "Engineering", payload.Summary[0].CostCenter)
	assert.Equal(t, 2, payload.Summary[0].Users)
}

func TestExportXLSX(t *testing.T) {
	dir := t.TempDir()
	e := fixedExporter(dir)

	paths, err := e.Export([]string{"xlsx"}, testRecords())
	require.NoError(t, err)
	require.Len(t, paths, 1)

	info, err := os.Stat(paths[0])
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExportMultipleFormats(t *testing.T) {
	dir := t.TempDir()
	e := fixedExporter(dir)

	paths, err := e.Export([]string{"csv", "json"}, testRecords())
	require.NoError(t, err)
	require.Len(t, paths, 2)
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	e := fixedExporter(t.TempDir())

	_, err := e.Export([]string{"pdf"}, testRecords())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export format")
}

func TestExportCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "exports")
	e := fixedExporter(dir)

	_, err := e.Export([]string{"csv"}, nil)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
