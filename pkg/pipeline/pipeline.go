// Package pipeline turns a playlist into an ordered set.
//
// It is the one place where CLI and API share behavior: track preparation,
// table construction, mode selection, caching of exact results and the
// shaping of solver output into a Result.
//
// # Stages
//
//  1. Prepare: drop tracks without a tempo or key and build cost tables
//  2. Solve: anneal or run the exact solver (auto picks by set size)
//  3. Shape: map positions back to tracks and score every transition
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	res, err := runner.Execute(ctx, playlist.Tracks, pipeline.Options{
//	    Mode:      "auto",
//	    TimeLimit: 30 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, t := range res.Tracks {
//	    fmt.Println(t.Label())
//	}
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mixorder/pkg/camelot"
	"github.com/matzehuels/mixorder/pkg/errors"
	"github.com/matzehuels/mixorder/pkg/library"
	"github.com/matzehuels/mixorder/pkg/mix"
	"github.com/matzehuels/mixorder/pkg/mix/anneal"
	"github.com/matzehuels/mixorder/pkg/mix/cost"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultMode lets the set size choose the solver.
	DefaultMode = string(mix.ModeAuto)

	// DefaultTimeLimit is the annealing budget.
	DefaultTimeLimit = 5 * time.Minute

	// DefaultWorkers is the number of parallel annealing drivers.
	DefaultWorkers = 1
)

// solutionVersion is part of every solution cache key. Bump it whenever
// the cost model changes in a way that alters optimal orders.
const solutionVersion = 1

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	Mode      string        `json:"mode,omitempty"`
	TimeLimit time.Duration `json:"time_limit,omitempty"`
	Workers   int           `json:"workers,omitempty"`
	Seed      int64         `json:"seed,omitempty"`
	ExactMax  int           `json:"exact_max,omitempty"`
	// ExactMemoryMB caps the exact solver's table. Zero means no cap.
	ExactMemoryMB int  `json:"exact_memory_mb,omitempty"`
	NoCache       bool `json:"no_cache,omitempty"`
	// NoStats skips per-track statistics across annealing attempts.
	NoStats bool `json:"no_stats,omitempty"`

	// Zero values select the defaults. Cost.NonHarmonicCost always follows
	// Harmonic.NonHarmonic, since the tables are built from the scheme.
	Cost     cost.Params    `json:"cost"`
	Harmonic camelot.Scheme `json:"harmonic"`
	Anneal   anneal.Params  `json:"anneal"`

	// Runtime options (not serialized)
	Logger   *log.Logger           `json:"-"`
	Progress func(anneal.Progress) `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
	mode      mix.Mode
}

// ValidateAndSetDefaults checks the options and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Mode == "" {
		o.Mode = DefaultMode
	}
	m, err := mix.ParseMode(o.Mode)
	if err != nil {
		return err
	}
	o.mode = m

	if o.TimeLimit == 0 {
		o.TimeLimit = DefaultTimeLimit
	}
	if o.TimeLimit < 0 {
		return errors.New(errors.ErrCodeInvalidParam, "time limit must not be negative, got %v", o.TimeLimit)
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.ExactMax <= 0 {
		o.ExactMax = mix.DefaultExactMax
	}
	if o.ExactMemoryMB < 0 {
		return errors.New(errors.ErrCodeInvalidParam, "exact memory limit must not be negative, got %d", o.ExactMemoryMB)
	}

	if o.Cost == (cost.Params{}) {
		o.Cost = cost.DefaultParams()
	}
	if o.Harmonic == (camelot.Scheme{}) {
		o.Harmonic = camelot.DefaultScheme()
	}
	if o.Anneal == (anneal.Params{}) {
		o.Anneal = anneal.DefaultParams()
	}
	o.Cost.NonHarmonicCost = o.Harmonic.NonHarmonic
	if err := o.Cost.Validate(); err != nil {
		return err
	}
	if err := o.Anneal.Validate(); err != nil {
		return err
	}

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// exactMemoryBytes returns the exact solver's table ceiling in bytes.
func (o *Options) exactMemoryBytes() int64 {
	return int64(o.ExactMemoryMB) << 20
}

// =============================================================================
// Result
// =============================================================================

// Transition describes the pair ending at a position of the final order.
type Transition struct {
	Harmonic float64 `json:"harmonic"`
	Tempo    float64 `json:"tempo"`
	Cost     float64 `json:"cost"`
	// Bridges lists keys that would connect the pair harmonically. Only
	// filled for pairs at or above the non-harmonic cost.
	Bridges []camelot.Bridge `json:"bridges,omitempty"`
}

// TrackStat is the per-track cost summary. Min, Max and Avg span all
// annealing attempts; for exact results they equal Final and Runs is 1.
type TrackStat struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Final float64 `json:"final"`
	Runs  int     `json:"runs"`
}

// Result contains the outputs of a pipeline run. Per-track slices are in
// play order.
type Result struct {
	Mode   mix.Mode        `json:"mode"`
	Tracks []library.Track `json:"tracks"`
	// Keys are the original keys; Effective are the keys after shifting.
	Keys      []camelot.Key `json:"keys"`
	Effective []camelot.Key `json:"effective"`
	Shifts    []int         `json:"shifts"`
	// Transitions[i] is the pair from position i to i+1.
	Transitions []Transition         `json:"transitions"`
	Cost        float64              `json:"cost"`
	Breakdown   cost.Breakdown       `json:"breakdown"`
	Attempts    []anneal.AttemptCost `json:"attempts,omitempty"`
	TrackStats  []TrackStat          `json:"track_stats"`
	Skipped     []library.Skipped    `json:"skipped,omitempty"`

	// ProblemHash identifies the prepared input.
	ProblemHash string        `json:"problem_hash"`
	CacheHit    bool          `json:"cache_hit"`
	Elapsed     time.Duration `json:"elapsed"`
}
