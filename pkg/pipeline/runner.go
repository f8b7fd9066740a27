package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mixorder/pkg/cache"
	"github.com/matzehuels/mixorder/pkg/camelot"
	"github.com/matzehuels/mixorder/pkg/library"
	"github.com/matzehuels/mixorder/pkg/mix"
	"github.com/matzehuels/mixorder/pkg/mix/anneal"
	"github.com/matzehuels/mixorder/pkg/mix/cost"
	"github.com/matzehuels/mixorder/pkg/mix/exact"
	"github.com/matzehuels/mixorder/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	// CacheTTL is the lifetime of cached solutions. Zero means
	// cache.TTLSolution.
	CacheTTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute prepares tracks, solves the ordering and shapes the result.
func (r *Runner) Execute(ctx context.Context, tracks []library.Track, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	start := time.Now()

	prepared, skipped, err := library.Prepare(tracks)
	for _, s := range skipped {
		opts.Logger.Warn("skipping track", "track", s.Track.Label(), "reason", s.Reason)
	}
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}

	problem := mix.Problem{
		Tables: library.BuildTables(prepared, opts.Harmonic),
		Params: opts.Cost,
	}
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	hash, err := cache.HashJSON(problem)
	if err != nil {
		return nil, fmt.Errorf("hash problem: %w", err)
	}

	n := prepared.Len()
	mode := opts.mode.Resolve(n, opts.ExactMax)
	opts.Logger.Info("solving", "tracks", n, "skipped", len(skipped), "mode", mode)

	hooks := observability.Solve()
	hooks.OnSolveStart(ctx, string(mode), n)

	var (
		out *mix.Outcome
		hit bool
	)
	switch mode {
	case mix.ModeExact:
		out, hit, err = r.solveExact(ctx, problem, hash, opts)
	default:
		out, err = r.solveAnneal(ctx, problem, opts)
	}
	if err != nil {
		hooks.OnSolveComplete(ctx, string(mode), n, observability.SolveResult{}, time.Since(start), err)
		return nil, fmt.Errorf("%s: %w", mode, err)
	}

	res := shape(problem.Model(), prepared, out, opts.Harmonic)
	res.Skipped = skipped
	res.ProblemHash = hash
	res.CacheHit = hit
	res.Elapsed = time.Since(start)

	hooks.OnSolveComplete(ctx, string(mode), n, observability.SolveResult{
		Cost:     res.Cost,
		Attempts: len(res.Attempts),
		Cached:   hit,
	}, res.Elapsed, nil)

	opts.Logger.Info("solved",
		"cost", fmt.Sprintf("%.2f", res.Cost),
		"attempts", len(res.Attempts),
		"cached", hit,
		"duration", res.Elapsed.Truncate(time.Millisecond))
	return res, nil
}

// solveExact runs the exact solver, consulting the cache first. Exact
// solutions depend only on the problem, so they are safe to reuse.
func (r *Runner) solveExact(ctx context.Context, p mix.Problem, hash string, opts Options) (*mix.Outcome, bool, error) {
	key := r.Keyer.SolutionKey(hash, cache.SolutionKeyOpts{Mode: string(mix.ModeExact), Version: solutionVersion})
	ch := observability.Cache()

	if !opts.NoCache {
		if data, hit, err := r.Cache.Get(ctx, key); err != nil {
			opts.Logger.Warn("cache read failed", "error", err)
		} else if hit {
			var sol cost.Solution
			if err := json.Unmarshal(data, &sol); err == nil && len(sol.Order) == p.Tables.Len() {
				ch.OnCacheHit(ctx, "solution")
				opts.Logger.Debug("exact solution from cache", "key", key)
				return &mix.Outcome{Mode: mix.ModeExact, Solution: sol}, true, nil
			}
		}
		ch.OnCacheMiss(ctx, "solution")
	}

	out, err := mix.Exact{Options: exact.Options{MaxTableBytes: opts.exactMemoryBytes()}}.Solve(ctx, p)
	if err != nil {
		return nil, false, err
	}

	if !opts.NoCache {
		if data, err := json.Marshal(out.Solution); err == nil {
			ttl := r.CacheTTL
			if ttl == 0 {
				ttl = cache.TTLSolution
			}
			if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
				opts.Logger.Warn("cache write failed", "error", err)
			} else {
				ch.OnCacheSet(ctx, "solution", len(data))
			}
		}
	}
	return out, false, nil
}

// solveAnneal runs the timed annealer. Its results are never cached.
func (r *Runner) solveAnneal(ctx context.Context, p mix.Problem, opts Options) (*mix.Outcome, error) {
	hooks := observability.Solve()
	progress := func(pr anneal.Progress) {
		hooks.OnAttempt(ctx, pr.Worker, pr.Cost.Overall, pr.Improved)
		if opts.Progress != nil {
			opts.Progress(pr)
		}
	}
	return mix.Annealer{
		Params:   opts.Anneal,
		Budget:   opts.TimeLimit,
		Workers:  opts.Workers,
		Seed:     opts.Seed,
		Progress: progress,
		NoStats:  opts.NoStats,
	}.Solve(ctx, p)
}

// shape maps a solver outcome onto the prepared tracks in play order.
func shape(m *cost.Model, prepared library.Prepared, out *mix.Outcome, scheme camelot.Scheme) *Result {
	sol := out.Solution
	n := len(sol.Order)
	res := &Result{
		Mode:        out.Mode,
		Tracks:      make([]library.Track, n),
		Keys:        make([]camelot.Key, n),
		Effective:   make([]camelot.Key, n),
		Shifts:      make([]int, n),
		Transitions: make([]Transition, 0, n-1),
		Cost:        sol.Cost,
		Breakdown:   sol.Breakdown,
		Attempts:    out.Attempts,
		TrackStats:  make([]TrackStat, n),
	}

	final := make([]float64, n)
	m.TrackCosts(sol.Order, sol.Shifts, final)

	p := m.Params()
	for pos, i := range sol.Order {
		s := sol.Shifts[i]
		res.Tracks[pos] = prepared.Tracks[i]
		res.Keys[pos] = prepared.Keys[i]
		res.Effective[pos] = camelot.Key(m.EffectiveKey(i, s))
		res.Shifts[pos] = int(s)

		st := TrackStat{Min: final[i], Max: final[i], Avg: final[i], Final: final[i], Runs: 1}
		if out.Stats != nil {
			st.Min, st.Max, st.Avg, st.Runs = out.Stats.Min[i], out.Stats.Max[i], out.Stats.Avg[i], out.Stats.Runs
		}
		res.TrackStats[pos] = st

		if pos == 0 {
			continue
		}
		prev := sol.Order[pos-1]
		h, t := m.Components(prev, i, sol.Shifts[prev], s)
		tr := Transition{Harmonic: h, Tempo: t, Cost: h + p.TempoWeight*t}
		if h >= p.NonHarmonicCost {
			tr.Bridges = scheme.Bridges(res.Effective[pos-1], res.Effective[pos])
		}
		res.Transitions = append(res.Transitions, tr)
	}
	return res
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
