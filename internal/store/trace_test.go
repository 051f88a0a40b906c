package store

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return fs
}

func recordAll(t *testing.T, trace *Trace, entries ...TraceEntry) {
	t.Helper()
	for _, entry := range entries {
		if err := trace.Record(entry); err != nil {
			t.Fatalf("Failed to record entry: %v", err)
		}
	}
}

func TestTrace_RecordAndRead(t *testing.T) {
	fs := newTestStore(t)
	runID := "test-run-123"

	trace, err := fs.CreateTrace(runID)
	if err != nil {
		t.Fatalf("Failed to create trace: %v", err)
	}
	entries := []TraceEntry{
		{Evaluation: 1, Cost: 1.0, Best: 1.0, Timestamp: time.Now()},
		{Evaluation: 2, Cost: 1.5, Best: 1.0, Timestamp: time.Now()},
		{Evaluation: 3, Cost: 0.6, Best: 0.6, Timestamp: time.Now(), Params: []float64{1, 2}},
	}
	recordAll(t, trace, entries...)
	if trace.Len() != len(entries) {
		t.Errorf("Expected %d recorded entries, got %d", len(entries), trace.Len())
	}
	if err := trace.Close(); err != nil {
		t.Fatalf("Failed to close trace: %v", err)
	}

	want := filepath.Join(fs.BaseDir(), "runs", runID, "trace.jsonl")
	if trace.Path() != want {
		t.Errorf("Expected path %s, got %s", want, trace.Path())
	}

	got, err := ReadTrace(fs, runID)
	if err != nil {
		t.Fatalf("Failed to read trace: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(got))
	}
	for i, entry := range got {
		if entry.Evaluation != entries[i].Evaluation {
			t.Errorf("Entry %d: expected evaluation %d, got %d", i, entries[i].Evaluation, entry.Evaluation)
		}
		if entry.Cost != entries[i].Cost || entry.Best != entries[i].Best {
			t.Errorf("Entry %d: expected cost/best %f/%f, got %f/%f", i, entries[i].Cost, entries[i].Best, entry.Cost, entry.Best)
		}
		if len(entry.Params) != len(entries[i].Params) {
			t.Errorf("Entry %d: expected %d params, got %d", i, len(entries[i].Params), len(entry.Params))
		}
	}
}

func TestTrace_CreateReplaces(t *testing.T) {
	fs := newTestStore(t)
	runID := "test-run-replace"

	first, err := fs.CreateTrace(runID)
	if err != nil {
		t.Fatalf("Failed to create trace: %v", err)
	}
	recordAll(t, first, TraceEntry{Evaluation: 1, Cost: 1}, TraceEntry{Evaluation: 2, Cost: 1})
	first.Close()

	replaced, err := fs.CreateTrace(runID)
	if err != nil {
		t.Fatalf("Failed to recreate trace: %v", err)
	}
	recordAll(t, replaced, TraceEntry{Evaluation: 1, Cost: 3})
	replaced.Close()

	entries, err := ReadTrace(fs, runID)
	if err != nil {
		t.Fatalf("Failed to read trace: %v", err)
	}
	if len(entries) != 1 || entries[0].Cost != 3 {
		t.Errorf("Expected a single entry after recreate, got %+v", entries)
	}
}

func TestTrace_FlushMakesEntriesReadable(t *testing.T) {
	fs := newTestStore(t)
	runID := "test-run-flush"

	trace, err := fs.CreateTrace(runID)
	if err != nil {
		t.Fatalf("Failed to create trace: %v", err)
	}
	defer trace.Close()

	recordAll(t, trace, TraceEntry{Evaluation: 1, Cost: 2})
	if entries, _ := ReadTrace(fs, runID); len(entries) != 0 {
		t.Errorf("Expected buffered entry to be invisible before flush, got %d entries", len(entries))
	}
	if err := trace.Flush(); err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}

	entries, err := ReadTrace(fs, runID)
	if err != nil {
		t.Fatalf("Failed to read trace: %v", err)
	}
	if len(entries) != 1 || entries[0].Cost != 2 {
		t.Errorf("Expected one entry with cost 2, got %+v", entries)
	}
}

func TestScanTrace_NotFound(t *testing.T) {
	fs := newTestStore(t)
	err := fs.ScanTrace("missing", func(TraceEntry) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestScanTrace_StopsOnCallbackError(t *testing.T) {
	fs := newTestStore(t)
	runID := "test-run-stop"

	trace, _ := fs.CreateTrace(runID)
	for i := 1; i <= 5; i++ {
		recordAll(t, trace, TraceEntry{Evaluation: i})
	}
	trace.Close()

	stop := errors.New("stop")
	seen := 0
	err := fs.ScanTrace(runID, func(e TraceEntry) error {
		seen++
		if e.Evaluation == 2 {
			return stop
		}
		return nil
	})
	if err != stop {
		t.Errorf("Expected callback error, got %v", err)
	}
	if seen != 2 {
		t.Errorf("Expected scan to stop after 2 entries, saw %d", seen)
	}
}

func TestScanTrace_CorruptLine(t *testing.T) {
	fs := newTestStore(t)
	runID := "test-run-corrupt"

	if err := os.MkdirAll(fs.RunDir(runID), 0755); err != nil {
		t.Fatal(err)
	}
	data := "{\"evaluation\":1,\"cost\":1,\"best\":1}\nnot json\n"
	if err := os.WriteFile(fs.tracePath(runID), []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadTrace(fs, runID); err == nil {
		t.Error("Expected error for corrupt trace line")
	}
}

func TestTraceEntry_Improved(t *testing.T) {
	if !(TraceEntry{Cost: 1, Best: 1}).Improved() {
		t.Error("Entry that sets the best cost should count as improved")
	}
	if (TraceEntry{Cost: 2, Best: 1}).Improved() {
		t.Error("Entry above the best cost should not count as improved")
	}
}

func TestTrace_ConcurrentRecords(t *testing.T) {
	fs := newTestStore(t)
	runID := "test-run-concurrent"

	trace, err := fs.CreateTrace(runID)
	if err != nil {
		t.Fatalf("Failed to create trace: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := trace.Record(TraceEntry{Evaluation: n, Cost: float64(n)}); err != nil {
				t.Errorf("Concurrent record failed: %v", err)
			}
		}(i + 1)
	}
	wg.Wait()
	if err := trace.Close(); err != nil {
		t.Fatalf("Failed to close trace: %v", err)
	}

	entries, err := ReadTrace(fs, runID)
	if err != nil {
		t.Fatalf("Failed to read trace: %v", err)
	}
	if len(entries) != 10 {
		t.Errorf("Expected 10 entries, got %d", len(entries))
	}
}
