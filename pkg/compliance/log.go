package compliance

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/user"
	"strconv"
	"strings"
	"time"

	"github.com/user/secsweep/pkg/engine"
	"github.com/user/secsweep/pkg/ext"
)

// logHeader is the audit contract: downstream systems parse these columns.
var logHeader = []string{
	"timestamp", "user", "scan_id", "target", "fingerprint",
	"tools", "critical", "high", "medium", "low", "verdict",
}

// LogEntry is one audit trail row.
type LogEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	User        string    `json:"user"`
	ScanID      string    `json:"scan_id"`
	Target      string    `json:"target"`
	Fingerprint string    `json:"fingerprint"`
	Tools       []string  `json:"tools"`
	Critical    int       `json:"critical"`
	High        int       `json:"high"`
	Medium      int       `json:"medium"`
	Low         int       `json:"low"`
	Verdict     string    `json:"verdict"` // pass / fail
}

// Log is the append-only CSV audit trail of who ran which scan and what it
// found. Rows are never rewritten; the file is the compliance record.
type Log struct {
	path  string
	clock ext.Clock
}

func NewLog(path string, clock ext.Clock) *Log {
	return &Log{path: path, clock: clock}
}

// Append records a completed scan. The header is written once, when the
// file is created.
func (l *Log) Append(scanID string, summary engine.Summary, pass bool) (LogEntry, error) {
	entry := LogEntry{
		Timestamp:   l.clock.Now().UTC(),
		User:        currentUser(),
		ScanID:      scanID,
		Target:      summary.Target,
		Fingerprint: summary.Fingerprint,
		Critical:    summary.BySeverity["critical"],
		High:        summary.BySeverity["high"],
		Medium:      summary.BySeverity["medium"],
		Low:         summary.BySeverity["low"],
		Verdict:     "fail",
	}
	if pass {
		entry.Verdict = "pass"
	}
	for _, ts := range summary.Tools {
		entry.Tools = append(entry.Tools, ts.Tool)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return entry, fmt.Errorf("open compliance log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return entry, err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(logHeader); err != nil {
			return entry, err
		}
	}
	if err := w.Write(entry.record()); err != nil {
		return entry, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return entry, fmt.Errorf("append compliance log: %w", err)
	}
	return entry, nil
}

func (e LogEntry) record() []string {
	return []string{
		e.Timestamp.Format(time.RFC3339),
		e.User,
		e.ScanID,
		e.Target,
		e.Fingerprint,
		strings.Join(e.Tools, "+"),
		strconv.Itoa(e.Critical),
		strconv.Itoa(e.High),
		strconv.Itoa(e.Medium),
		strconv.Itoa(e.Low),
		e.Verdict,
	}
}

// Entries reads the full audit trail back.
func (l *Log) Entries() ([]LogEntry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	var entries []LogEntry
	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read compliance log: %w", err)
		}
		if first {
			first = false
			continue // header
		}
		entry, err := parseRecord(record)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseRecord(record []string) (LogEntry, error) {
	if len(record) != len(logHeader) {
		return LogEntry{}, fmt.Errorf("malformed compliance log row: %d columns", len(record))
	}
	ts, err := time.Parse(time.RFC3339, record[0])
	if err != nil {
		return LogEntry{}, fmt.Errorf("malformed timestamp %q: %w", record[0], err)
	}
	entry := LogEntry{
		Timestamp:   ts,
		User:        record[1],
		ScanID:      record[2],
		Target:      record[3],
		Fingerprint: record[4],
		Verdict:     record[10],
	}
	if record[5] != "" {
		entry.Tools = strings.Split(record[5], "+")
	}
	entry.Critical, _ = strconv.Atoi(record[6])
	entry.High, _ = strconv.Atoi(record[7])
	entry.Medium, _ = strconv.Atoi(record[8])
	entry.Low, _ = strconv.Atoi(record[9])
	return entry, nil
}

// WriteJSON exports the audit trail as JSON.
func (l *Log) WriteJSON(w io.Writer) error {
	entries, err := l.Entries()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// WriteCSV copies the raw audit file.
func (l *Log) WriteCSV(w io.Writer) error {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if v := os.Getenv("USER"); v != "" {
		return v
	}
	return "unknown"
}
