// Package mix is the entry point for ordering a DJ set.
//
// A Problem couples the per-track tables with the cost weights. Two solvers
// implement Solver: Annealer runs timed simulated-annealing attempts and
// Exact runs the Held-Karp dynamic program for small sets. Problems are
// validated once here; the solvers below assume well-formed input.
package mix

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/mixorder/pkg/errors"
	"github.com/matzehuels/mixorder/pkg/mix/anneal"
	"github.com/matzehuels/mixorder/pkg/mix/cost"
	"github.com/matzehuels/mixorder/pkg/mix/exact"
)

// Mode selects a solver.
type Mode string

const (
	ModeAnneal Mode = "anneal"
	ModeExact  Mode = "exact"
	ModeAuto   Mode = "auto"
)

// DefaultExactMax is the largest set ModeAuto hands to the exact solver.
// Beyond it the table grows past what finishes in interactive time.
const DefaultExactMax = 12

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeAnneal, ModeExact, ModeAuto:
		return m, nil
	case "":
		return ModeAuto, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown mode %q (want anneal, exact or auto)", s)
}

// Resolve picks the concrete mode for n tracks.
func (m Mode) Resolve(n, exactMax int) Mode {
	if m != ModeAuto {
		return m
	}
	if exactMax <= 0 {
		exactMax = DefaultExactMax
	}
	if n <= exactMax && n <= exact.MaxTracks {
		return ModeExact
	}
	return ModeAnneal
}

// Problem is one ordering task.
type Problem struct {
	Tables cost.Tables `json:"tables"`
	Params cost.Params `json:"params"`
}

// Validate checks table shapes, the track count and the weights.
func (p Problem) Validate() error {
	if err := p.Tables.Validate(); err != nil {
		return err
	}
	return p.Params.Validate()
}

// Model returns the cost model for p.
func (p Problem) Model() *cost.Model {
	return cost.New(p.Tables, p.Params)
}

// Outcome is what a solver returns.
type Outcome struct {
	Mode     Mode                 `json:"mode"`
	Solution cost.Solution        `json:"solution"`
	Attempts []anneal.AttemptCost `json:"attempts,omitempty"`
	Stats    *anneal.TrackStats   `json:"stats,omitempty"`
	Elapsed  time.Duration        `json:"elapsed"`
}

// Solver orders the tracks of a validated problem.
type Solver interface {
	Solve(ctx context.Context, p Problem) (*Outcome, error)
}

// Annealer runs timed simulated annealing.
type Annealer struct {
	Params  anneal.Params
	Budget  time.Duration
	Workers int
	Seed    int64
	// Progress, if set, is called after every attempt.
	Progress func(anneal.Progress)
	// NoStats skips per-track statistics.
	NoStats bool
}

// Solve implements Solver.
func (a Annealer) Solve(ctx context.Context, p Problem) (*Outcome, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := a.Params.Validate(); err != nil {
		return nil, err
	}
	if a.Budget < 0 {
		return nil, errors.New(errors.ErrCodeInvalidParam, "time budget must not be negative, got %v", a.Budget)
	}

	opts := []anneal.Option{anneal.WithSeed(a.Seed), anneal.WithTrackStats(!a.NoStats)}
	if a.Progress != nil {
		opts = append(opts, anneal.WithProgress(a.Progress))
	}
	rep := anneal.RunParallel(ctx, p.Model(), a.Params, a.Budget, a.Workers, opts...)
	return &Outcome{
		Mode:     ModeAnneal,
		Solution: rep.Best,
		Attempts: rep.Attempts,
		Stats:    rep.Stats,
		Elapsed:  rep.Elapsed,
	}, nil
}

// Exact runs the Held-Karp solver.
type Exact struct {
	Options exact.Options
}

// Solve implements Solver.
func (e Exact) Solve(ctx context.Context, p Problem) (*Outcome, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	sol, err := exact.Solve(ctx, p.Model(), e.Options)
	if err != nil {
		return nil, err
	}
	return &Outcome{Mode: ModeExact, Solution: sol, Elapsed: time.Since(start)}, nil
}

// Optimize runs the annealing solver with a single worker.
func Optimize(ctx context.Context, p Problem, params anneal.Params, budget time.Duration, seed int64) (*Outcome, error) {
	return Annealer{Params: params, Budget: budget, Seed: seed}.Solve(ctx, p)
}

// SolveExact runs the exact solver without a memory ceiling.
func SolveExact(ctx context.Context, p Problem) (*Outcome, error) {
	return Exact{}.Solve(ctx, p)
}

// String implements fmt.Stringer.
func (o *Outcome) String() string {
	b := o.Solution.Breakdown
	return fmt.Sprintf("%s: cost %.1f (H=%.1f T=%.1f S=%.1f) in %v",
		o.Mode, o.Solution.Cost, b.Harmonic, b.Tempo, b.Shift, o.Elapsed.Truncate(time.Millisecond))
}
