package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// setupTestStore creates a temporary directory and returns an FSStore for testing.
func setupTestStore(t *testing.T) (*FSStore, string) {
	t.Helper()

	tempDir := t.TempDir()
	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}

	return store, tempDir
}

// createTestRecord creates a completed run record with test data.
func createTestRecord(runID string) *RunRecord {
	start := time.Now().Add(-time.Second)
	return &RunRecord{
		RunID:       runID,
		Status:      StatusCompleted,
		BestParams:  []float64{-4, -2.118},
		BestCost:    -142.99,
		InitialCost: -44,
		Evaluations: 87,
		Rounds:      1,
		StartTime:   start,
		EndTime:     start.Add(500 * time.Millisecond),
		Config: RunConfig{
			Problem:       "demo",
			Dim:           2,
			Optimizer:     OptimizerBobyqa,
			NPT:           6,
			InitialRadius: 1e-3,
			FinalRadius:   1e3,
			MaxCalls:      100,
			Seed:          42,
		},
	}
}

func TestNewFSStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	if store.BaseDir() != dir {
		t.Errorf("Expected base dir %s, got %s", dir, store.BaseDir())
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Fatal("Base directory was not created")
	}
}

func TestSaveRun(t *testing.T) {
	store, tempDir := setupTestStore(t)
	runID := "test-run-123"

	if err := store.SaveRun(runID, createTestRecord(runID)); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	expectedPath := filepath.Join(tempDir, "runs", runID, "run.json")
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Fatalf("Run file was not created at %s", expectedPath)
	}
	if _, err := os.Stat(expectedPath + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Temp file should not exist after save")
	}
}

func TestSaveRun_InvalidArguments(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveRun("", createTestRecord("x")); err == nil {
		t.Error("Expected error for empty runID")
	}
	if err := store.SaveRun("x", nil); err == nil {
		t.Error("Expected error for nil record")
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	store, _ := setupTestStore(t)
	runID := "test-run-roundtrip"
	original := createTestRecord(runID)

	if err := store.SaveRun(runID, original); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	loaded, err := store.LoadRun(runID)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}

	if loaded.RunID != original.RunID || loaded.Status != original.Status {
		t.Errorf("Identity mismatch: %s/%s", loaded.RunID, loaded.Status)
	}
	if loaded.BestCost != original.BestCost || loaded.Evaluations != original.Evaluations {
		t.Errorf("Result mismatch: %f/%d", loaded.BestCost, loaded.Evaluations)
	}
	if loaded.Config != original.Config {
		t.Errorf("Config mismatch: %+v", loaded.Config)
	}
	if !loaded.EndTime.Equal(original.EndTime) {
		t.Errorf("EndTime mismatch: %v vs %v", loaded.EndTime, original.EndTime)
	}
}

func TestSaveRun_Overwrite(t *testing.T) {
	store, _ := setupTestStore(t)
	runID := "test-run-overwrite"

	first := createTestRecord(runID)
	first.BestCost = 5
	second := createTestRecord(runID)
	second.BestCost = 1

	if err := store.SaveRun(runID, first); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if err := store.SaveRun(runID, second); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := store.LoadRun(runID)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if loaded.BestCost != 1 {
		t.Errorf("Expected overwritten cost 1, got %f", loaded.BestCost)
	}
}

func TestLoadRun_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.LoadRun("nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.RunID != "nonexistent" {
		t.Errorf("Expected NotFoundError for nonexistent, got %v", err)
	}
}

func TestLoadRun_Corrupted(t *testing.T) {
	store, tempDir := setupTestStore(t)
	dir := filepath.Join(tempDir, "runs", "broken")
	os.MkdirAll(dir, 0755)
	os.WriteFile(filepath.Join(dir, "run.json"), []byte("{not json"), 0644)

	_, err := store.LoadRun("broken")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Expected deserialization error, got %v", err)
	}
}

func TestListRuns_Empty(t *testing.T) {
	store, _ := setupTestStore(t)

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected no runs, got %d", len(infos))
	}
}

func TestListRuns_SortedAndSkipsInvalid(t *testing.T) {
	store, tempDir := setupTestStore(t)
	now := time.Now()

	for i, id := range []string{"run-c", "run-a", "run-b"} {
		record := createTestRecord(id)
		record.StartTime = now.Add(time.Duration(-10+i) * time.Minute)
		record.EndTime = record.StartTime.Add(time.Second)
		if err := store.SaveRun(id, record); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	// Directory without run.json, stray file, corrupted record.
	os.MkdirAll(filepath.Join(tempDir, "runs", "empty"), 0755)
	os.WriteFile(filepath.Join(tempDir, "runs", "stray.txt"), []byte("x"), 0644)
	os.MkdirAll(filepath.Join(tempDir, "runs", "corrupt"), 0755)
	os.WriteFile(filepath.Join(tempDir, "runs", "corrupt", "run.json"), []byte("]"), 0644)

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(infos))
	}
	for i, want := range []string{"run-c", "run-a", "run-b"} {
		if infos[i].RunID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, infos[i].RunID)
		}
	}
}

func TestDeleteRun(t *testing.T) {
	store, _ := setupTestStore(t)
	runID := "test-run-delete"

	store.SaveRun(runID, createTestRecord(runID))
	trace, err := store.CreateTrace(runID)
	if err != nil {
		t.Fatalf("Failed to create trace: %v", err)
	}
	trace.Close()

	if err := store.DeleteRun(runID); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := os.Stat(store.RunDir(runID)); !os.IsNotExist(err) {
		t.Error("Run directory should be removed")
	}
	if _, err := store.LoadRun(runID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if _, err := ReadTrace(store, runID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected trace to be gone after delete, got %v", err)
	}
}

func TestDeleteRun_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.DeleteRun("nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteRun(""); err == nil {
		t.Error("Expected error for empty runID")
	}
}

func TestConcurrentSave(t *testing.T) {
	store, _ := setupTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("run-%d", n)
			if err := store.SaveRun(id, createTestRecord(id)); err != nil {
				t.Errorf("Concurrent save %d failed: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 10 {
		t.Errorf("Expected 10 runs, got %d", len(infos))
	}
}
