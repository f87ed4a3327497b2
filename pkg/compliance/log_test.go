package compliance

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/secsweep/pkg/engine"
	"github.com/user/secsweep/pkg/ext"
)

func testSummary() engine.Summary {
	return engine.Summary{
		Target:      "/src",
		Fingerprint: "fp-abc",
		BySeverity:  map[string]int{"critical": 1, "high": 2, "medium": 0, "low": 3},
		Tools: []engine.ToolSummary{
			{Tool: "trivy"},
			{Tool: "grype"},
		},
	}
}

func TestAppendAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compliance-log.csv")
	fixed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	log := NewLog(path, ext.NewFixedClock(fixed))

	_, err := log.Append("scan-1", testSummary(), false)
	require.NoError(t, err)
	_, err = log.Append("scan-2", testSummary(), true)
	require.NoError(t, err)

	entries, err := log.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, "scan-1", first.ScanID)
	assert.Equal(t, "/src", first.Target)
	assert.Equal(t, "fp-abc", first.Fingerprint)
	assert.Equal(t, []string{"trivy", "grype"}, first.Tools)
	assert.Equal(t, 1, first.Critical)
	assert.Equal(t, 2, first.High)
	assert.Equal(t, 3, first.Low)
	assert.Equal(t, "fail", first.Verdict)
	assert.Equal(t, fixed, first.Timestamp)
	assert.Equal(t, "pass", entries[1].Verdict)
}

func TestHeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compliance-log.csv")
	log := NewLog(path, ext.NewSystemClock())

	_, err := log.Append("scan-1", testSummary(), true)
	require.NoError(t, err)
	_, err = log.Append("scan-2", testSummary(), true)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "timestamp,user,scan_id"))
	assert.Equal(t, 3, strings.Count(strings.TrimSpace(string(data)), "\n")+1, "header plus two rows")
}

func TestEntriesMissingFile(t *testing.T) {
	log := NewLog(filepath.Join(t.TempDir(), "nope.csv"), ext.NewSystemClock())
	entries, err := log.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compliance-log.csv")
	log := NewLog(path, ext.NewFixedClock(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)))

	_, err := log.Append("scan-1", testSummary(), true)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, log.WriteJSON(&buf))

	var decoded []LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "scan-1", decoded[0].ScanID)
}

func TestWriteCSVCopiesRawFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compliance-log.csv")
	log := NewLog(path, ext.NewSystemClock())

	_, err := log.Append("scan-1", testSummary(), true)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, log.WriteCSV(&buf))
	assert.Contains(t, buf.String(), "scan-1")
	assert.True(t, strings.HasPrefix(buf.String(), "timestamp,"))
}
