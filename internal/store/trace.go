package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TraceEntry is one objective evaluation of a run, stored as a line of
// trace.jsonl next to run.json.
type TraceEntry struct {
	Evaluation int       `json:"evaluation"` // 1-based
	Cost       float64   `json:"cost"`
	Best       float64   `json:"best"` // lowest cost up to this evaluation
	Timestamp  time.Time `json:"timestamp"`
	Params     []float64 `json:"params,omitempty"`
}

// Improved reports whether the evaluation set a new best cost.
func (e TraceEntry) Improved() bool {
	return e.Cost <= e.Best
}

// Tracer is implemented by stores that keep an evaluation trace per run.
type Tracer interface {
	// CreateTrace starts a new trace for runID, replacing an existing one.
	CreateTrace(runID string) (*Trace, error)

	// ScanTrace calls fn for every entry of the trace of runID in order.
	// Returns ErrNotFound if the run has no trace.
	ScanTrace(runID string, fn func(TraceEntry) error) error
}

// Trace appends evaluations of one run to its JSONL file. Entries are
// buffered until Flush or Close. A Trace is safe for concurrent use.
type Trace struct {
	mu    sync.Mutex
	file  *os.File
	buf   *bufio.Writer
	enc   *json.Encoder
	path  string
	count int
}

// CreateTrace starts the trace of runID under the store directory.
func (fs *FSStore) CreateTrace(runID string) (*Trace, error) {
	path := fs.tracePath(runID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	buf := bufio.NewWriterSize(file, 64*1024)
	return &Trace{file: file, buf: buf, enc: json.NewEncoder(buf), path: path}, nil
}

// Record appends one entry.
func (t *Trace) Record(entry TraceEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Encode terminates every value with a newline.
	if err := t.enc.Encode(entry); err != nil {
		return fmt.Errorf("failed to write trace entry %d: %w", entry.Evaluation, err)
	}
	t.count++
	return nil
}

// Flush writes buffered entries through to disk.
func (t *Trace) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush trace: %w", err)
	}
	return t.file.Sync()
}

// Close flushes and closes the trace file.
func (t *Trace) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	flushErr := t.buf.Flush()
	closeErr := t.file.Close()
	if err := errors.Join(flushErr, closeErr); err != nil {
		return fmt.Errorf("failed to close trace: %w", err)
	}
	return nil
}

// Path returns the trace file location.
func (t *Trace) Path() string { return t.path }

// Len returns the number of entries recorded through this Trace.
func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// ScanTrace streams the trace of runID through fn. An error returned by fn
// stops the scan and is passed back unchanged.
func (fs *FSStore) ScanTrace(runID string, fn func(TraceEntry) error) error {
	file, err := os.Open(fs.tracePath(runID))
	if os.IsNotExist(err) {
		return &NotFoundError{RunID: runID}
	} else if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer file.Close()

	dec := json.NewDecoder(bufio.NewReader(file))
	for line := 1; ; line++ {
		var entry TraceEntry
		if err := dec.Decode(&entry); err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("trace %s entry %d: %w", runID, line, err)
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
}

// ReadTrace loads the whole trace of runID.
func ReadTrace(t Tracer, runID string) ([]TraceEntry, error) {
	var entries []TraceEntry
	err := t.ScanTrace(runID, func(e TraceEntry) error {
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

func (fs *FSStore) tracePath(runID string) string {
	return filepath.Join(fs.RunDir(runID), "trace.jsonl")
}
