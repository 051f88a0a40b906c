package main

import (
	"fmt"
	"slices"

	"github.com/cwbudde/bobyqa"
	"github.com/cwbudde/bobyqa/internal/problem"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Minimize the two-variable demo quadratic",
	Long: `Minimizes -4xy + 5x² + 8y² + 16√5x + 8√5y - 44 on [-4,5]x[-3,5]
starting from (0, -√5) with 6 interpolation conditions, trust region radii
1e-3 and 1e3 and a budget of 100 calls, then prints the initial point, the
final point, the value there and the number of calls.`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	p, err := problem.Lookup("demo", 2)
	if err != nil {
		return err
	}

	values := slices.Clone(p.Start)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "initial: %v\n", values)

	counter := problem.NewCounter(p.Func, nil)
	result, err := bobyqa.New().
		VariablesCount(2).
		NumberOfInterpolationConditions((2+1)*(2+2)/2).
		InitialTrustRegionRadius(1e-3).
		FinalTrustRegionRadius(1e3).
		LowerBound(p.Lower).
		UpperBound(p.Upper).
		MaxFunctionCallsCount(100).
		PerformMut(values, counter)
	if err != nil {
		return fmt.Errorf("failed to minimize demo: %w", err)
	}

	fmt.Fprintf(out, "final: %v\n", values)
	fmt.Fprintf(out, "result: %v\n", result)
	fmt.Fprintf(out, "calls_count: %d\n", counter.Count())
	return nil
}
