package evolve

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Evaluation outcome statuses persisted with every record.
const (
	StatusOK          = "ok"
	StatusBuildFailed = "build_failed"
	StatusBenchFailed = "bench_failed"
)

// Target metrics and score modes.
const (
	TargetCompress   = "compress"
	TargetDecompress = "decompress"
	TargetBalanced   = "balanced"

	ScoreModeBest    = "best"
	ScoreModeAverage = "average"
)

// Record is the persisted outcome for one evaluated candidate. Records are
// append-only; the key is reproducible from the candidate's fields alone,
// so the on-disk log is a verifiable history rather than mutable state.
type Record struct {
	Key        string   `json:"key"`
	Score      float64  `json:"score"`
	Flags      []string `json:"flags"`
	LTO        string   `json:"lto"`
	Target     string   `json:"target"`
	ScoreMode  string   `json:"score_mode"`
	Timestamp  float64  `json:"timestamp"`
	Generation int      `json:"generation"`
	Status     string   `json:"status"`
	Error      string   `json:"error"`
}

// Store is the append-only result log. Single-writer by design; the search
// runs one evaluation at a time.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load parses the newline-delimited log into a map keyed by each record's
// stored key. A missing file yields an empty map. Duplicate keys resolve
// last-write-wins; the full history stays on disk.
func (s *Store) Load() (map[string]Record, error) {
	results := make(map[string]Record)

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return results, nil
		}
		return nil, fmt.Errorf("failed to open results log %s: %w", s.path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, fmt.Errorf("malformed record at %s:%d: %w", s.path, lineNo, err)
		}
		results[record.Key] = record
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results log %s: %w", s.path, err)
	}
	return results, nil
}

// Append serializes one record as a single new line, creating parent
// directories as needed. Existing lines are never rewritten, so a crash
// mid-run leaves prior records intact.
func (s *Store) Append(record Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal result record: %w", err)
	}

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open results log %s: %w", s.path, err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append result record: %w", err)
	}
	return nil
}

// BuildBlacklist collects the keys of every cached record whose status is
// not ok. With reset requested the blacklist starts empty.
func BuildBlacklist(cache map[string]Record, reset bool) map[string]struct{} {
	blacklist := make(map[string]struct{})
	if reset {
		return blacklist
	}
	for key, record := range cache {
		if record.Status != "" && record.Status != StatusOK {
			blacklist[key] = struct{}{}
		}
	}
	return blacklist
}
