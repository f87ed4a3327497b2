package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/user/secsweep/pkg/engine"
	"github.com/user/secsweep/pkg/ext"
)

// Record is the metadata kept for one stored scan.
type Record struct {
	ID          string    `json:"id"`
	Target      string    `json:"target"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
	Tools       []string  `json:"tools"`
}

// Entry is one row of the store index.
type Entry struct {
	ID            string    `json:"id"`
	Target        string    `json:"target"`
	Fingerprint   string    `json:"fingerprint"`
	CreatedAt     time.Time `json:"created_at"`
	TotalFindings int       `json:"total_findings"`
	Overall       string    `json:"overall"`
}

// Store persists scans on the local filesystem:
//
//	<dir>/scans/<id>/meta.json
//	<dir>/scans/<id>/findings.json
//	<dir>/scans/<id>/summary.json
//	<dir>/scans/<id>/raw/<tool>.json
//	<dir>/index.json
type Store struct {
	dir   string
	clock ext.Clock
	ids   ext.IDGenerator
	log   zerolog.Logger
}

func New(dir string, clock ext.Clock, ids ext.IDGenerator, log zerolog.Logger) *Store {
	return &Store{dir: dir, clock: clock, ids: ids, log: log.With().Str("component", "store").Logger()}
}

func (s *Store) scanDir(id string) string {
	return filepath.Join(s.dir, "scans", id)
}

func (s *Store) indexPath() string {
	return filepath.Join(s.dir, "index.json")
}

// Save persists a scan and returns its generated ID.
func (s *Store) Save(target, fingerprint string, summary engine.Summary, findings []engine.Finding, rawByTool map[string][]byte) (string, error) {
	id := s.ids.GenerateID()
	dir := s.scanDir(id)
	if err := os.MkdirAll(filepath.Join(dir, "raw"), 0o755); err != nil {
		return "", fmt.Errorf("create scan dir: %w", err)
	}

	rec := Record{
		ID:          id,
		Target:      target,
		Fingerprint: fingerprint,
		CreatedAt:   s.clock.Now().UTC(),
	}
	for _, ts := range summary.Tools {
		rec.Tools = append(rec.Tools, ts.Tool)
	}

	if err := writeJSON(filepath.Join(dir, "meta.json"), rec); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, "findings.json"), findings); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, "summary.json"), summary); err != nil {
		return "", err
	}
	for tool, raw := range rawByTool {
		if err := os.WriteFile(filepath.Join(dir, "raw", tool+".json"), raw, 0o644); err != nil {
			return "", fmt.Errorf("write raw %s report: %w", tool, err)
		}
	}

	entry := Entry{
		ID:            id,
		Target:        target,
		Fingerprint:   fingerprint,
		CreatedAt:     rec.CreatedAt,
		TotalFindings: summary.TotalFindings,
		Overall:       summary.Overall,
	}
	if err := s.appendIndex(entry); err != nil {
		return "", err
	}

	s.log.Info().Str("scan", id).Str("fingerprint", shortFingerprint(fingerprint)).
		Int("findings", summary.TotalFindings).Msg("scan stored")
	return id, nil
}

func (s *Store) appendIndex(entry Entry) error {
	entries, err := s.List()
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	entries = append(entries, entry)
	return writeJSON(s.indexPath(), entries)
}

// List returns all stored scans, oldest first.
func (s *Store) List() ([]Entry, error) {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("corrupt index: %w", err)
	}
	// stable so same-timestamp entries keep their append order
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	return entries, nil
}

// Latest returns the most recent scan entry.
func (s *Store) Latest() (Entry, error) {
	entries, err := s.List()
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, fmt.Errorf("no scans stored yet; run 'secsweep scan' first")
	}
	return entries[len(entries)-1], nil
}

// Resolve matches a full ID or unique prefix against the index.
func (s *Store) Resolve(idOrPrefix string) (Entry, error) {
	entries, err := s.List()
	if err != nil {
		return Entry{}, err
	}
	var matches []Entry
	for _, e := range entries {
		if e.ID == idOrPrefix {
			return e, nil
		}
		if strings.HasPrefix(e.ID, idOrPrefix) {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return Entry{}, fmt.Errorf("no scan matches %q", idOrPrefix)
	default:
		return Entry{}, fmt.Errorf("scan id %q is ambiguous (%d matches)", idOrPrefix, len(matches))
	}
}

// Findings loads the deduplicated findings of a stored scan.
func (s *Store) Findings(id string) (*engine.FindingSet, error) {
	set := engine.NewFindingSet()
	if err := set.LoadSnapshot(filepath.Join(s.scanDir(id), "findings.json")); err != nil {
		return nil, fmt.Errorf("load findings for scan %s: %w", id, err)
	}
	return set, nil
}

// Summary loads a stored scan summary.
func (s *Store) Summary(id string) (engine.Summary, error) {
	var summary engine.Summary
	data, err := os.ReadFile(filepath.Join(s.scanDir(id), "summary.json"))
	if err != nil {
		return summary, fmt.Errorf("load summary for scan %s: %w", id, err)
	}
	if err := json.Unmarshal(data, &summary); err != nil {
		return summary, fmt.Errorf("decode summary for scan %s: %w", id, err)
	}
	return summary, nil
}

// Meta loads a stored scan record.
func (s *Store) Meta(id string) (Record, error) {
	var rec Record
	data, err := os.ReadFile(filepath.Join(s.scanDir(id), "meta.json"))
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode meta for scan %s: %w", id, err)
	}
	return rec, nil
}

// Diff compares a scan against a baseline scan.
func (s *Store) Diff(baselineID, currentID string) (engine.SnapshotDiff, error) {
	baseline, err := s.Findings(baselineID)
	if err != nil {
		return engine.SnapshotDiff{}, err
	}
	current, err := s.Findings(currentID)
	if err != nil {
		return engine.SnapshotDiff{}, err
	}
	return current.CompareSnapshot(baseline), nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
