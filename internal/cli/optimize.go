package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mixorder/pkg/library"
	"github.com/matzehuels/mixorder/pkg/mix"
	"github.com/matzehuels/mixorder/pkg/mix/anneal"
	"github.com/matzehuels/mixorder/pkg/pipeline"
	"github.com/matzehuels/mixorder/pkg/render"
)

// optimizeOpts holds the command-line flags for optimize and exact.
// Solver flags override the config file only when set explicitly.
type optimizeOpts struct {
	mode      string        // auto, anneal or exact
	timeLimit time.Duration // annealing budget
	workers   int           // parallel annealing drivers
	seed      int64         // 0 picks a time-based seed
	exactMax  int           // largest set auto mode solves exactly
	noCache   bool          // bypass the solution cache

	save     bool   // store the result as a saved set
	name     string // saved set name
	svgPath  string // write the transition graph as SVG
	dotPath  string // write the transition graph as DOT
	jsonPath string // write the result as JSON ("-" for stdout)
	detailed bool   // label graph nodes with tempo and keys
	tui      bool   // live view instead of spinner
}

// optimizeCommand creates the optimize command.
func (c *CLI) optimizeCommand() *cobra.Command {
	var opts optimizeOpts

	cmd := &cobra.Command{
		Use:   "optimize <playlist>",
		Short: "Order a playlist into a DJ set",
		Long: `Order a playlist (.json, .toml or .yaml) so that adjacent tracks are harmonically
compatible and close in tempo. Tracks may be shifted by one semitone.

Small sets are solved exactly; larger ones are annealed for --time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOptimize(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", pipeline.DefaultMode, "solver: auto, anneal, exact")
	cmd.Flags().DurationVarP(&opts.timeLimit, "time", "t", pipeline.DefaultTimeLimit, "annealing time budget")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", pipeline.DefaultWorkers, "parallel annealing drivers")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "random seed (0 = time-based)")
	cmd.Flags().IntVar(&opts.exactMax, "exact-max", mix.DefaultExactMax, "largest set auto mode solves exactly")
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "show a live view of annealing attempts")
	addOutputFlags(cmd, &opts)

	return cmd
}

// exactCommand creates the exact command, a shortcut for optimize --mode exact.
func (c *CLI) exactCommand() *cobra.Command {
	var opts optimizeOpts

	cmd := &cobra.Command{
		Use:   "exact <playlist>",
		Short: "Order a playlist with the exact solver",
		Long:  `Find the provably cheapest order of a small playlist (at most 20 tracks).`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.mode = string(mix.ModeExact)
			return c.runOptimize(cmd, args[0], opts)
		},
	}
	addOutputFlags(cmd, &opts)

	return cmd
}

func addOutputFlags(cmd *cobra.Command, opts *optimizeOpts) {
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the solution cache")
	cmd.Flags().BoolVar(&opts.save, "save", false, "save the set")
	cmd.Flags().StringVar(&opts.name, "name", "", "name of the saved set (default: set-<timestamp>)")
	cmd.Flags().StringVar(&opts.svgPath, "svg", "", "write the transition graph as SVG")
	cmd.Flags().StringVar(&opts.dotPath, "dot", "", "write the transition graph as DOT")
	cmd.Flags().StringVar(&opts.jsonPath, "json", "", "write the result as JSON (- prints only the JSON to stdout)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show tempo and keys in graph nodes")
}

// applyFlags copies explicitly set solver flags over the config values.
func applyFlags(cmd *cobra.Command, opts optimizeOpts, popts *pipeline.Options) {
	flags := cmd.Flags()
	if flags.Changed("mode") || cmd.Name() == "exact" {
		popts.Mode = opts.mode
	}
	if flags.Changed("time") {
		popts.TimeLimit = opts.timeLimit
	}
	if flags.Changed("workers") {
		popts.Workers = opts.workers
	}
	if flags.Changed("seed") {
		popts.Seed = opts.seed
	}
	if flags.Changed("exact-max") {
		popts.ExactMax = opts.exactMax
	}
	if opts.noCache {
		popts.NoCache = true
	}
}

// runOptimize loads the playlist, solves it and writes the requested outputs.
func (c *CLI) runOptimize(cmd *cobra.Command, input string, opts optimizeOpts) error {
	ctx := cmd.Context()

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	pl, err := library.Import(input)
	if err != nil {
		return fmt.Errorf("load playlist %s: %w", input, err)
	}

	popts := cfg.PipelineOptions()
	applyFlags(cmd, opts, &popts)
	popts.Logger = c.Logger

	runner, err := c.newRunner(ctx, cfg, popts.NoCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	title := fmt.Sprintf("Ordering %d tracks from %s", len(pl.Tracks), filepath.Base(input))
	res, err := c.solve(ctx, runner, pl.Tracks, popts, title, opts.tui)
	if err != nil {
		return fmt.Errorf("optimize %s: %w", input, err)
	}
	if ctx.Err() != nil {
		printWarning("Interrupted; showing the best set found so far")
	}

	quiet := opts.jsonPath == "-"
	if quiet {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	if err := render.Report(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	printNewline()
	printSuccess("Set ordered")
	printSolveStats(res)

	if err := writeOutputs(ctx, res, opts); err != nil {
		return err
	}

	if opts.save {
		return c.saveSet(ctx, cfg, opts.name, res)
	}
	return nil
}

// solve runs the pipeline behind a spinner, or behind the live view when
// tui is set.
func (c *CLI) solve(ctx context.Context, runner *pipeline.Runner, tracks []library.Track, popts pipeline.Options, title string, tui bool) (*pipeline.Result, error) {
	if tui {
		// Log lines would tear the live view.
		popts.Logger = newLogger(io.Discard, LogInfo)
		return runTUI(ctx, title, popts.TimeLimit, func(ctx context.Context, progress func(anneal.Progress)) (*pipeline.Result, error) {
			o := popts
			o.Progress = progress
			return runner.Execute(ctx, tracks, o)
		})
	}

	spinner := newSpinnerWithContext(ctx, title+"...")
	popts.Progress = newAnnealMonitor(ctx, popts.TimeLimit, spinner).onProgress
	spinner.Start()

	res, err := runner.Execute(ctx, tracks, popts)
	if err != nil {
		spinner.StopWithError("Solve failed")
		return nil, err
	}
	spinner.Stop()
	return res, nil
}

// writeOutputs writes the --json, --dot and --svg files.
func writeOutputs(ctx context.Context, res *pipeline.Result, opts optimizeOpts) error {
	if opts.jsonPath != "" {
		f, err := os.Create(opts.jsonPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", opts.jsonPath, err)
		}
		if err := writeJSON(f, res); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", opts.jsonPath, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		printFile(opts.jsonPath)
	}

	if opts.dotPath == "" && opts.svgPath == "" {
		return nil
	}
	dot := render.ToDOT(res, render.DOTOptions{Detailed: opts.detailed})
	if opts.dotPath != "" {
		if err := os.WriteFile(opts.dotPath, []byte(dot), 0644); err != nil {
			return fmt.Errorf("write %s: %w", opts.dotPath, err)
		}
		printFile(opts.dotPath)
	}
	if opts.svgPath != "" {
		prog := newProgress(loggerFromContext(ctx))
		svg, err := render.RenderSVG(ctx, dot)
		if err != nil {
			return fmt.Errorf("render svg: %w", err)
		}
		prog.done("Rendered transition graph")
		if err := os.WriteFile(opts.svgPath, svg, 0644); err != nil {
			return fmt.Errorf("write %s: %w", opts.svgPath, err)
		}
		printFile(opts.svgPath)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
