// Package pkg provides the core libraries for mixorder DJ set ordering.
//
// # Overview
//
// mixorder takes an unordered playlist of tracks, each with a tempo and a
// Camelot key, and finds the play order (and optional one-semitone key
// shifts) that keeps every transition harmonic and close in tempo. The pkg
// directory is organized into four main areas:
//
//  1. [camelot] and [mix] - Domain logic (key wheel, cost model, solvers)
//  2. [library] - Playlist input (JSON, TOML, YAML)
//  3. [pipeline] - Orchestration (prepare → solve → shape)
//  4. [cache], [store], [config], [observability] - Infrastructure
//
// # Architecture
//
// The typical data flow:
//
//	Playlist file
//	     ↓
//	[library] package (decode, drop tracks without tempo or key)
//	     ↓
//	[camelot] package (key ids and lookup tables)
//	     ↓
//	[mix] package (annealing or Held-Karp over the cost model)
//	     ↓
//	[render] package (report, DOT, SVG)
//
// # Quick Start
//
//	import (
//	    "context"
//	    "os"
//	    "time"
//
//	    "github.com/matzehuels/mixorder/pkg/library"
//	    "github.com/matzehuels/mixorder/pkg/pipeline"
//	    "github.com/matzehuels/mixorder/pkg/render"
//	)
//
//	pl, _ := library.Import("friday.json")
//	runner := pipeline.NewRunner(nil, nil, nil)
//	res, _ := runner.Execute(context.Background(), pl.Tracks, pipeline.Options{
//	    TimeLimit: 30 * time.Second,
//	})
//	render.Report(os.Stdout, res)
//
// # Table-level API
//
// Callers that build their own cost tables use the [mix] entry points
// directly:
//
//	out, err := mix.OptimizeMix(ctx, tables, costParams, annealParams, 60, 0)
//	out, err := mix.SolveMixExact(ctx, tables, costParams)
//
// Both take parameter bundles keyed by name (see [mix.CostParamKeys] and
// [mix.AnnealParamKeys]) and return a [mix.Outcome].
//
// # Errors
//
// Library errors carry a code from [errors] (INVALID_TABLE, MISSING_PARAM,
// UNSUPPORTED_SIZE, ...) so the CLI and HTTP API can report them
// consistently.
package pkg
