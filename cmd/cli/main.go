package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"invlearn/app"
	"invlearn/domain/core"
	"invlearn/domain/equation"
	"invlearn/internal"
	"invlearn/internal/config"
	"invlearn/internal/container"
	"invlearn/internal/report"
	"invlearn/programs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "invlearn",
		Short: "Learn numeric loop invariants from program traces",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	rootCmd.AddCommand(
		newProgramsCmd(),
		newLearnCmd(),
		newBatchCmd(),
		newSampleCmd(),
		newImportCmd(),
		newReportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openContainer loads configuration from the environment and attaches the
// database when DATABASE_URL is set
func openContainer(ctx context.Context) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return container.Open(ctx, cfg, internal.NewDefaultLogger())
}

func newProgramsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "programs",
		Short: "List the instrumented programs",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range programs.Names() {
				e, err := programs.Lookup(name)
				if err != nil {
					return err
				}
				fmt.Printf("%-12s (%s)  %s\n", e.Name, strings.Join(e.Variables, ", "), e.Description)
			}
			return nil
		},
	}
}

// boundsFlags are the input range flags shared by learn and sample
type boundsFlags struct {
	min, max int
}

func (b *boundsFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&b.min, "min", 0, "Smallest program input (default from LEARN_MIN_INPUT)")
	cmd.Flags().IntVar(&b.max, "max", 0, "Largest program input (default from LEARN_MAX_INPUT)")
}

func (b *boundsFlags) resolve(cmd *cobra.Command, lc config.LearningConfig) equation.Bounds {
	bounds := equation.Bounds{Min: lc.MinInput, Max: lc.MaxInput}
	if cmd.Flags().Changed("min") {
		bounds.Min = b.min
	}
	if cmd.Flags().Changed("max") {
		bounds.Max = b.max
	}
	return bounds.Normalized()
}

func newLearnCmd() *cobra.Command {
	var degree int
	var seed int64
	var vars []string
	var out, reportPath string
	var bounds boundsFlags

	cmd := &cobra.Command{
		Use:   "learn [program]",
		Short: "Run a learning session for one program",
		Long: `Run the learning loop for a registered program until a candidate
invariant is accepted or the iteration budget runs out.

Example: invlearn learn substring1 --degree 1 --seed 7 --report substring1.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := openContainer(ctx)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			program, err := core.ParseProgramName(args[0])
			if err != nil {
				return err
			}
			job := app.Job{
				Program:   program,
				Variables: vars,
				Degree:    degree,
				Bounds:    bounds.resolve(cmd, c.Config.Learning),
				Seed:      seed,
			}
			result, runErr := c.Learning.Learn(ctx, job)
			if result == nil {
				return runErr
			}
			printResult(result)
			if err := saveOutputs(result, out, reportPath); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().IntVar(&degree, "degree", 1, "Polynomial degree of the candidate")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default from LEARN_SEED)")
	cmd.Flags().StringSliceVar(&vars, "vars", nil, "Variable names; defaults to the program's own")
	cmd.Flags().StringVar(&out, "out", "", "Write the result as JSON")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a Markdown report (.html renders a page)")
	bounds.register(cmd)
	return cmd
}

func newBatchCmd() *cobra.Command {
	var outDir string
	var parallel int

	cmd := &cobra.Command{
		Use:   "batch [sessions.yaml]",
		Short: "Run every session listed in a YAML file",
		Long: `Run a batch of learning sessions concurrently. The file holds either a
single session or a list:

  sessions:
    - program: substring1
      degree: 1
    - program: ex1
      min: -50
      max: 50
      seed: 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := config.LoadSessionFile(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			c, err := openContainer(ctx)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			batch := c.Batch
			if parallel > 0 {
				batch = app.NewBatchService(c.Learning, parallel).WithLogger(c.Logger)
			}
			items, runErr := batch.RunAll(ctx, jobsFromSessions(sessions, c.Config.Learning))

			var results []*app.Result
			for _, item := range items {
				if item.Err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", item.Job.Program, item.Err)
				}
				if item.Result == nil {
					continue
				}
				results = append(results, item.Result)
				if outDir != "" {
					base := filepath.Join(outDir, fmt.Sprintf("%s-%s", item.Result.Program, item.Result.SessionID))
					if err := saveOutputs(item.Result, base+".json", base+".md"); err != nil {
						return err
					}
				}
			}
			fmt.Print(report.Summary(results))
			return runErr
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", "", "Directory for per-session JSON results and reports")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "Concurrent sessions (default from BATCH_PARALLELISM)")
	return cmd
}

func jobsFromSessions(sessions []config.Session, lc config.LearningConfig) []app.Job {
	jobs := make([]app.Job, 0, len(sessions))
	for _, s := range sessions {
		job := app.Job{
			Program:   core.ProgramName(s.Program),
			Variables: s.Variables,
			Degree:    s.Degree,
		}
		if s.Min != nil || s.Max != nil {
			job.Bounds = equation.Bounds{Min: lc.MinInput, Max: lc.MaxInput}
			if s.Min != nil {
				job.Bounds.Min = *s.Min
			}
			if s.Max != nil {
				job.Bounds.Max = *s.Max
			}
		}
		if s.Seed != nil {
			job.Seed = *s.Seed
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func printResult(r *app.Result) {
	fmt.Printf("session:    %s\n", r.SessionID)
	fmt.Printf("program:    %s\n", r.Program)
	fmt.Printf("status:     %s after %d iterations (%d ms)\n", r.Status, r.Iterations, r.RuntimeMs)
	if r.Converged() {
		fmt.Printf("invariant:  %s\n", r.Readable)
		fmt.Printf("soundness:  %s\n", r.Soundness)
	}
}

func saveOutputs(r *app.Result, jsonPath, reportPath string) error {
	if jsonPath != "" {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", jsonPath, err)
		}
	}
	if reportPath != "" {
		return writeReport(r, reportPath)
	}
	return nil
}

func writeReport(r *app.Result, path string) error {
	md := report.Markdown(r)
	data := []byte(md)
	if strings.EqualFold(filepath.Ext(path), ".html") {
		data = report.HTML(md, fmt.Sprintf("Invariant for %s", r.Program))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
