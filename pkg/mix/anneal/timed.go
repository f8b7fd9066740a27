package anneal

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/mixorder/pkg/mix/cost"
)

// AttemptCost records the outcome of one attempt.
type AttemptCost struct {
	Overall float64 `json:"overall"`
	cost.Breakdown
}

// TrackStats aggregates, per track, the mean cost of its adjacent pairs in
// each attempt's winning order. Slices are indexed by track.
type TrackStats struct {
	Min  []float64 `json:"min"`
	Max  []float64 `json:"max"`
	Avg  []float64 `json:"avg"`
	Runs int       `json:"runs"`
}

// Report is the outcome of a timed run.
type Report struct {
	Best     cost.Solution `json:"best"`
	Attempts []AttemptCost `json:"attempts"`
	Stats    *TrackStats   `json:"stats,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Progress is passed to the progress callback after every attempt.
type Progress struct {
	Worker   int
	Attempt  int
	Cost     AttemptCost
	Best     float64
	Improved bool
	Elapsed  time.Duration
}

type options struct {
	seed     int64
	progress func(Progress)
	now      func() time.Time
	stats    bool
}

// Option configures RunTimed and RunParallel.
type Option func(*options)

// WithSeed makes the run reproducible for a fixed number of attempts. Zero
// selects a time-based seed.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// WithProgress registers a callback invoked after each attempt. In parallel
// runs it is called from the worker goroutines, serialized by a mutex.
func WithProgress(fn func(Progress)) Option {
	return func(o *options) { o.progress = fn }
}

// WithTrackStats toggles per-track statistics. Enabled by default.
func WithTrackStats(enabled bool) Option {
	return func(o *options) { o.stats = enabled }
}

// WithClock overrides the wall clock used for the budget.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) options {
	o := options{now: time.Now, stats: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// statsAccumulator collects per-track costs across attempts.
type statsAccumulator struct {
	min, max, sum []float64
	runs          int
}

func newStatsAccumulator(n int) *statsAccumulator {
	acc := &statsAccumulator{
		min: make([]float64, n),
		max: make([]float64, n),
		sum: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		acc.min[i] = math.Inf(1)
		acc.max[i] = math.Inf(-1)
	}
	return acc
}

func (s *statsAccumulator) add(costs []float64) {
	for i, c := range costs {
		s.min[i] = math.Min(s.min[i], c)
		s.max[i] = math.Max(s.max[i], c)
		s.sum[i] += c
	}
	s.runs++
}

func (s *statsAccumulator) merge(o *statsAccumulator) {
	for i := range s.sum {
		s.min[i] = math.Min(s.min[i], o.min[i])
		s.max[i] = math.Max(s.max[i], o.max[i])
		s.sum[i] += o.sum[i]
	}
	s.runs += o.runs
}

func (s *statsAccumulator) stats() *TrackStats {
	st := &TrackStats{
		Min:  append([]float64(nil), s.min...),
		Max:  append([]float64(nil), s.max...),
		Avg:  make([]float64, len(s.sum)),
		Runs: s.runs,
	}
	if s.runs > 0 {
		for i, v := range s.sum {
			// Rounding in the sum can nudge the mean outside [min, max].
			st.Avg[i] = math.Min(math.Max(v/float64(s.runs), s.min[i]), s.max[i])
		}
	}
	return st
}

// runner drives attempts for one goroutine.
type runner struct {
	worker int
	m      *cost.Model
	p      Params
	o      options
	acc    *statsAccumulator
	best   cost.Solution
	costs  []AttemptCost
	notify func(Progress)
}

// run executes attempts until the budget is spent or ctx is done. The
// deadline is only consulted between attempts, and at least one attempt
// always completes.
func (r *runner) run(ctx context.Context, budget time.Duration) {
	rng := newRNG(r.o.seed)
	start := r.o.now()
	bestCost := math.Inf(1)
	buf := make([]float64, r.m.N())

	for {
		if len(r.costs) > 0 && (r.o.now().Sub(start) >= budget || ctx.Err() != nil) {
			return
		}
		res := Attempt(r.m, r.p, rng)
		ac := AttemptCost{Overall: res.Cost, Breakdown: res.Breakdown}
		r.costs = append(r.costs, ac)

		if r.acc != nil {
			r.m.TrackCosts(res.Order, res.Shifts, buf)
			r.acc.add(buf)
		}

		improved := res.Cost < bestCost
		if improved {
			bestCost = res.Cost
			r.best = res
		}
		if r.notify != nil {
			r.notify(Progress{
				Worker:   r.worker,
				Attempt:  len(r.costs),
				Cost:     ac,
				Best:     bestCost,
				Improved: improved,
				Elapsed:  r.o.now().Sub(start),
			})
		}
	}
}

func newRunner(worker int, m *cost.Model, p Params, o options) *runner {
	r := &runner{worker: worker, m: m, p: p, o: o, notify: o.progress}
	if o.stats {
		r.acc = newStatsAccumulator(m.N())
	}
	return r
}

// RunTimed repeats independent attempts until budget has elapsed and returns
// the best arrangement together with every attempt's cost. Cancelling ctx
// ends the run early in the same way as an exhausted budget.
func RunTimed(ctx context.Context, m *cost.Model, p Params, budget time.Duration, opts ...Option) *Report {
	o := newOptions(opts)
	start := o.now()
	r := newRunner(0, m, p, o)
	r.run(ctx, budget)

	rep := &Report{Best: r.best, Attempts: r.costs, Elapsed: o.now().Sub(start)}
	if r.acc != nil {
		rep.Stats = r.acc.stats()
	}
	return rep
}

// RunParallel runs workers independent timed drivers concurrently, each with
// its own generator, and merges their reports. Worker seeds are derived from
// the configured seed so a seeded run stays reproducible per worker.
func RunParallel(ctx context.Context, m *cost.Model, p Params, budget time.Duration, workers int, opts ...Option) *Report {
	if workers <= 1 {
		return RunTimed(ctx, m, p, budget, opts...)
	}
	o := newOptions(opts)
	start := o.now()
	base := o.seed
	if base == 0 {
		base = time.Now().UnixNano()
	}

	var mu sync.Mutex
	runners := make([]*runner, workers)
	for w := range runners {
		wo := o
		wo.seed = deriveSeed(base, uint64(w))
		r := newRunner(w, m, p, wo)
		if o.progress != nil {
			r.notify = func(pr Progress) {
				mu.Lock()
				defer mu.Unlock()
				o.progress(pr)
			}
		}
		runners[w] = r
	}

	var g errgroup.Group
	for _, r := range runners {
		g.Go(func() error {
			r.run(ctx, budget)
			return nil
		})
	}
	_ = g.Wait()

	rep := &Report{}
	bestCost := math.Inf(1)
	var acc *statsAccumulator
	if o.stats {
		acc = newStatsAccumulator(m.N())
	}
	for _, r := range runners {
		rep.Attempts = append(rep.Attempts, r.costs...)
		if r.best.Cost < bestCost {
			bestCost = r.best.Cost
			rep.Best = r.best
		}
		if acc != nil {
			acc.merge(r.acc)
		}
	}
	if acc != nil {
		rep.Stats = acc.stats()
	}
	rep.Elapsed = o.now().Sub(start)
	return rep
}
