package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"invlearn/adapters/harness"
	"invlearn/adapters/memory"
	"invlearn/adapters/rng"
	"invlearn/adapters/tracefile"
	"invlearn/app"
	"invlearn/domain/core"
	"invlearn/domain/equation"
	"invlearn/domain/trace"
	"invlearn/internal/config"
	"invlearn/internal/report"
	"invlearn/programs"

	"github.com/spf13/cobra"
)

func newSampleCmd() *cobra.Command {
	var runs int
	var seed int64
	var out string
	var bounds boundsFlags

	cmd := &cobra.Command{
		Use:   "sample [program]",
		Short: "Record traces of a program on random inputs",
		Long: `Execute a registered program on uniformly drawn inputs and save the
labelled traces as xlsx, csv or json for later import.

Example: invlearn sample ex1 --runs 200 --out ex1.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			program, err := core.ParseProgramName(args[0])
			if err != nil {
				return err
			}
			if seed == 0 {
				seed = cfg.Learning.Seed
			}
			store, entry, err := sample(cmd.Context(), program, runs, bounds.resolve(cmd, cfg.Learning), seed)
			if err != nil {
				return err
			}

			f, err := tracefile.FromStore(store, entry.Variables)
			if err != nil {
				return err
			}
			if err := f.Write(out); err != nil {
				return err
			}
			counts := f.Counts()
			fmt.Printf("wrote %d traces to %s (positive %d, negative %d, question %d, counterexample %d)\n",
				len(f.Traces), out, counts[trace.Positive], counts[trace.Negative], counts[trace.Question], counts[trace.CounterExample])
			return nil
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 100, "Number of program executions")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default from LEARN_SEED)")
	cmd.Flags().StringVar(&out, "out", "", "Output file (.xlsx, .csv or .json)")
	_ = cmd.MarkFlagRequired("out")
	bounds.register(cmd)
	return cmd
}

func sample(ctx context.Context, program core.ProgramName, runs int, bounds equation.Bounds, seed int64) (*memory.TraceStore, programs.Entry, error) {
	entry, err := programs.Lookup(program)
	if err != nil {
		return nil, programs.Entry{}, err
	}
	src := rng.New()
	harnessRNG, err := src.SeededStream(ctx, "harness", seed)
	if err != nil {
		return nil, entry, err
	}
	inputRNG, err := src.SeededStream(ctx, "inputs", seed)
	if err != nil {
		return nil, entry, err
	}
	arity := len(entry.Variables)
	runner, err := harness.NewRunner(entry.Program, arity, harnessRNG)
	if err != nil {
		return nil, entry, err
	}

	store := memory.NewTraceStore(arity)
	for i := 0; i < runs; i++ {
		input := equation.RandomPoint(inputRNG, arity, bounds)
		t, err := runner.RunOnce(ctx, input)
		switch {
		case errors.Is(err, harness.ErrTraceTruncated), errors.Is(err, harness.ErrNoAssert):
			continue
		case err != nil:
			return nil, entry, fmt.Errorf("run on %v: %w", input, err)
		}
		if err := store.AppendTrace(t); err != nil {
			return nil, entry, err
		}
	}
	return store, entry, nil
}

func newImportCmd() *cobra.Command {
	var programName string
	var degree int
	var out, reportPath string

	cmd := &cobra.Command{
		Use:   "import [traces-file]",
		Short: "Fit an invariant to recorded traces",
		Long: `Train a single candidate on traces read from an xlsx, csv or json file
and check it against the file's question traces and counterexamples.

Example: invlearn import ex1.xlsx --program ex1 --report ex1.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			file, err := tracefile.NewReader(args[0]).Read()
			if err != nil {
				return err
			}
			store, err := file.Store()
			if err != nil {
				return err
			}
			vars, err := equation.NewVariables(file.Variables...)
			if err != nil {
				return err
			}
			if programName == "" {
				programName = "imported"
			}

			c, err := openContainer(ctx)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			result, fitErr := c.Learning.Fit(ctx, core.ProgramName(programName), store, vars, degree)
			if result == nil {
				return fitErr
			}
			printResult(result)
			if err := saveOutputs(result, out, reportPath); err != nil {
				return err
			}
			return fitErr
		},
	}

	cmd.Flags().StringVar(&programName, "program", "", "Program name recorded with the result")
	cmd.Flags().IntVar(&degree, "degree", 1, "Polynomial degree of the candidate")
	cmd.Flags().StringVar(&out, "out", "", "Write the result as JSON")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a Markdown report (.html renders a page)")
	return cmd
}

func newReportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "report [result.json]",
		Short: "Render a saved result as Markdown or HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var result app.Result
			if err := json.Unmarshal(data, &result); err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}
			if out == "" {
				fmt.Print(report.Markdown(&result))
				return nil
			}
			return writeReport(&result, out)
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output file; .html renders a page, stdout when empty")
	return cmd
}
