package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/cwbudde/bobyqa/internal/store"
)

func withRunFlags(t *testing.T, config store.RunConfig, dataDir string, trace bool) {
	t.Helper()
	originalConfig, originalDir, originalTrace := runConfig, runDataDir, runTrace
	runConfig, runDataDir, runTrace = config, dataDir, trace
	t.Cleanup(func() {
		runConfig, runDataDir, runTrace = originalConfig, originalDir, originalTrace
	})
}

func TestRunOptimization(t *testing.T) {
	withRunFlags(t, store.RunConfig{Problem: "linear", Dim: 3, MaxCalls: 200}, "", false)

	var out bytes.Buffer
	if err := runOptimization(testCommand(&out, ""), nil); err != nil {
		t.Fatalf("runOptimization failed: %v", err)
	}

	for _, want := range []string{"problem: linear (3 variables, optimizer bobyqa)", "best: [", "known minimum 0, gap ", "evaluations: "} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Output missing %q:\n%s", want, out.String())
		}
	}
	if strings.Contains(out.String(), "saved run") {
		t.Error("Nothing should be saved without --data-dir")
	}
}

func TestRunOptimization_SavesRunAndTrace(t *testing.T) {
	dataDir := t.TempDir()
	withRunFlags(t, store.RunConfig{Problem: "sphere", Dim: 2, MaxCalls: 50}, dataDir, true)

	var out bytes.Buffer
	if err := runOptimization(testCommand(&out, ""), nil); err != nil {
		t.Fatalf("runOptimization failed: %v", err)
	}

	fs, err := store.NewFSStore(dataDir)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	infos, err := fs.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("Expected 1 saved run, got %d", len(infos))
	}
	if !strings.Contains(out.String(), "saved run "+infos[0].RunID) {
		t.Errorf("Output should name the saved run:\n%s", out.String())
	}

	entries, err := store.ReadTrace(fs, infos[0].RunID)
	if err != nil {
		t.Fatalf("Failed to read trace: %v", err)
	}
	if len(entries) != infos[0].Evaluations {
		t.Errorf("Expected %d trace entries, got %d", infos[0].Evaluations, len(entries))
	}
}

func TestRunOptimization_Errors(t *testing.T) {
	tests := []struct {
		name    string
		config  store.RunConfig
		dataDir string
		trace   bool
	}{
		{"trace without data dir", store.RunConfig{}, "", true},
		{"unknown problem", store.RunConfig{Problem: "nonexistent"}, "", false},
		{"unknown optimizer", store.RunConfig{Optimizer: "gradient"}, "", false},
		{"npt out of range", store.RunConfig{Dim: 2, NPT: 9}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withRunFlags(t, tt.config, tt.dataDir, tt.trace)

			var out bytes.Buffer
			if err := runOptimization(testCommand(&out, ""), nil); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	defer versionCmd.SetOut(nil)

	versionCmd.Run(versionCmd, nil)

	if out.String() != "bobyqa version "+version+"\n" {
		t.Errorf("Unexpected output %q", out.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLogLevel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLogLevel(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
