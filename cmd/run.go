package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/bobyqa/internal/problem"
	"github.com/cwbudde/bobyqa/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	runConfig  store.RunConfig
	runDataDir string
	runTrace   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run single-shot optimization",
	Long: `Minimizes a benchmark problem with the selected optimizer and prints
the best point found. With --data-dir the run record (and with --trace every
evaluation) is saved for later inspection with "runs list".`,
	Args: cobra.NoArgs,
	RunE: runOptimization,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runConfig.Problem, "problem", "demo", fmt.Sprintf("Benchmark problem %v", problem.Names()))
	f.IntVar(&runConfig.Dim, "dim", 2, "Number of variables")
	f.StringVar(&runConfig.Optimizer, "optimizer", store.OptimizerBobyqa, fmt.Sprintf("Optimizer %v", store.Optimizers))
	f.IntVar(&runConfig.NPT, "npt", 0, "Interpolation conditions (0 = 2*dim+1)")
	f.Float64Var(&runConfig.InitialRadius, "initial-radius", 1e-3, "Initial trust region radius")
	f.Float64Var(&runConfig.FinalRadius, "final-radius", 1e3, "Final trust region radius")
	f.IntVar(&runConfig.MaxCalls, "max-calls", 1000, "Function call budget per local run")
	f.IntVar(&runConfig.Starts, "starts", 4, "Start points (multistart)")
	f.IntVar(&runConfig.Restarts, "restarts", 0, "Additional rounds from the best point")
	f.IntVar(&runConfig.Iters, "iters", 100, "Max iterations (mayfly, hybrid)")
	f.IntVar(&runConfig.PopSize, "pop", 20, "Population size (mayfly, hybrid)")
	f.Int64Var(&runConfig.Seed, "seed", 42, "Random seed")
	f.StringVar(&runDataDir, "data-dir", "", "Save the run record under this directory")
	f.BoolVar(&runTrace, "trace", false, "Also save every evaluation (requires --data-dir)")

	rootCmd.AddCommand(runCmd)
}

func runOptimization(cmd *cobra.Command, args []string) error {
	if runTrace && runDataDir == "" {
		return fmt.Errorf("--trace requires --data-dir")
	}

	config := runConfig
	config.ApplyDefaults()

	runID := uuid.New().String()
	var runStore *store.FSStore
	var trace *store.Trace
	if runDataDir != "" {
		var err error
		runStore, err = store.NewFSStore(runDataDir)
		if err != nil {
			return fmt.Errorf("failed to create run store: %w", err)
		}
		if runTrace {
			trace, err = runStore.CreateTrace(runID)
			if err != nil {
				return fmt.Errorf("failed to create trace: %w", err)
			}
			defer trace.Close()
		}
	}

	var observe func(problem.Evaluation)
	if trace != nil {
		observe = func(e problem.Evaluation) {
			err := trace.Record(store.TraceEntry{
				Evaluation: e.Index,
				Cost:       e.Cost,
				Best:       e.Best,
				Timestamp:  time.Now(),
				Params:     e.Params,
			})
			if err != nil {
				slog.Warn("Failed to write trace entry", "run_id", runID, "error", err)
			}
		}
	}

	start := time.Now()
	p, result, err := problem.Run(config, observe)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	slog.Info("Optimization complete",
		"run_id", runID,
		"elapsed", elapsed,
		"initial_cost", result.InitialCost,
		"final_cost", result.BestCost,
		"evaluations", result.Evaluations,
	)

	if runStore != nil {
		record := &store.RunRecord{
			RunID:       runID,
			Status:      store.StatusCompleted,
			Config:      config,
			BestParams:  result.BestParams,
			BestCost:    result.BestCost,
			InitialCost: result.InitialCost,
			Evaluations: result.Evaluations,
			Rounds:      result.Rounds,
			StartTime:   start,
			EndTime:     start.Add(elapsed),
		}
		if err := runStore.SaveRun(runID, record); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "problem: %s (%d variables, optimizer %s)\n", p.Name, p.Dim, config.Optimizer)
	fmt.Fprintf(out, "best: %v\n", result.BestParams)
	fmt.Fprintf(out, "cost: %g -> %g (known minimum %g, gap %.3g)\n", result.InitialCost, result.BestCost, p.Minimum, result.Gap(p))
	fmt.Fprintf(out, "evaluations: %d in %d round(s), %s\n", result.Evaluations, result.Rounds, elapsed.Round(time.Millisecond))
	if runStore != nil {
		fmt.Fprintf(out, "saved run %s\n", runID)
	}
	return nil
}
