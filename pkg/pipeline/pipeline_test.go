package pipeline

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mixorder/pkg/cache"
	"github.com/matzehuels/mixorder/pkg/camelot"
	"github.com/matzehuels/mixorder/pkg/errors"
	"github.com/matzehuels/mixorder/pkg/library"
	"github.com/matzehuels/mixorder/pkg/mix"
	"github.com/matzehuels/mixorder/pkg/mix/anneal"
	"github.com/matzehuels/mixorder/pkg/mix/cost"
)

func testTracks() []library.Track {
	return []library.Track{
		{Title: "Aurora", Artist: "A", BPM: 122, Key: "8A"},
		{Title: "Basalt", Artist: "B", BPM: 124, Key: "9A"},
		{Title: "Cinder", Artist: "C", BPM: 126, Key: "3B"},
		{Title: "Delta", Artist: "D", BPM: 123, Comments: "10A energy 6"},
		{Title: "Ember", Artist: "E", BPM: 125, Key: "8B"},
	}
}

func testRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	return NewRunner(c, nil, log.NewWithOptions(io.Discard, log.Options{}))
}

func TestValidateAndSetDefaults(t *testing.T) {
	var o Options
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("zero options should be valid: %v", err)
	}
	if o.Mode != DefaultMode || o.TimeLimit != DefaultTimeLimit || o.Workers != DefaultWorkers {
		t.Errorf("defaults not applied: %+v", o)
	}
	if o.ExactMax != mix.DefaultExactMax {
		t.Errorf("ExactMax = %d, want %d", o.ExactMax, mix.DefaultExactMax)
	}
	if o.Cost != cost.DefaultParams() || o.Anneal != anneal.DefaultParams() || o.Harmonic != camelot.DefaultScheme() {
		t.Error("zero parameter sections should take defaults")
	}
	if o.Logger == nil {
		t.Error("Logger should default to a discard logger")
	}
	// Idempotent
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Errorf("second call: %v", err)
	}
}

func TestValidateAndSetDefaultsRejects(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"mode", Options{Mode: "greedy"}, errors.ErrCodeInvalidInput},
		{"time", Options{TimeLimit: -time.Second}, errors.ErrCodeInvalidParam},
		{"memory", Options{ExactMemoryMB: -1}, errors.ErrCodeInvalidParam},
		{"anneal", Options{Anneal: anneal.Params{TotalIterations: -5}}, errors.ErrCodeInvalidParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errors.Is(err, tt.code) {
				t.Errorf("got %v, want code %s", err, tt.code)
			}
		})
	}
}

func checkResult(t *testing.T, res *Result, n int) {
	t.Helper()
	if len(res.Tracks) != n || len(res.Shifts) != n || len(res.TrackStats) != n {
		t.Fatalf("result has %d tracks, %d shifts, %d stats; want %d", len(res.Tracks), len(res.Shifts), len(res.TrackStats), n)
	}
	if len(res.Transitions) != n-1 {
		t.Errorf("got %d transitions, want %d", len(res.Transitions), n-1)
	}
	seen := map[string]bool{}
	for _, tr := range res.Tracks {
		if seen[tr.Title] {
			t.Errorf("track %s appears twice", tr.Title)
		}
		seen[tr.Title] = true
	}
	for i, s := range res.Shifts {
		if s < -1 || s > 1 {
			t.Errorf("shift %d at position %d out of range", s, i)
		}
		if res.Keys[i].Shift(s) != res.Effective[i] {
			t.Errorf("effective key at %d is %s, want %s shifted by %d", i, res.Effective[i], res.Keys[i], s)
		}
	}
	for i, st := range res.TrackStats {
		if st.Min > st.Avg+1e-9 || st.Avg > st.Max+1e-9 {
			t.Errorf("stats at %d not ordered: %+v", i, st)
		}
	}
	if res.ProblemHash == "" {
		t.Error("ProblemHash should be set")
	}
}

func TestExecuteExactUsesCache(t *testing.T) {
	ctx := context.Background()
	r := testRunner(t)
	opts := Options{Mode: "exact"}

	first, err := r.Execute(ctx, testTracks(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	checkResult(t, first, 5)
	if first.Mode != mix.ModeExact || first.CacheHit {
		t.Errorf("first run: mode=%s hit=%v", first.Mode, first.CacheHit)
	}

	second, err := r.Execute(ctx, testTracks(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !second.CacheHit {
		t.Error("second exact run should hit the cache")
	}
	if second.Cost != first.Cost {
		t.Errorf("cached cost %v differs from %v", second.Cost, first.Cost)
	}
	for i := range first.Tracks {
		if first.Tracks[i].Title != second.Tracks[i].Title {
			t.Fatalf("cached order differs at %d", i)
		}
	}

	third, err := r.Execute(ctx, testTracks(), Options{Mode: "exact", NoCache: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if third.CacheHit {
		t.Error("NoCache should bypass the cache")
	}
}

func TestExecuteAutoPicksExact(t *testing.T) {
	res, err := testRunner(t).Execute(context.Background(), testTracks(), Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Mode != mix.ModeExact {
		t.Errorf("auto mode with 5 tracks should use exact, got %s", res.Mode)
	}
}

func TestExecuteAnneal(t *testing.T) {
	var calls int
	opts := Options{
		Mode:      "anneal",
		TimeLimit: time.Nanosecond,
		Seed:      7,
		Anneal:    anneal.Params{TotalIterations: 2000, InitialTemp: 50, FinalTemp: 0.1, MultiSwapFactor: 2},
		Progress:  func(anneal.Progress) { calls++ },
	}
	res, err := testRunner(t).Execute(context.Background(), testTracks(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	checkResult(t, res, 5)
	if res.Mode != mix.ModeAnneal || res.CacheHit {
		t.Errorf("mode=%s hit=%v", res.Mode, res.CacheHit)
	}
	if len(res.Attempts) < 1 || calls != len(res.Attempts) {
		t.Errorf("attempts=%d progress calls=%d", len(res.Attempts), calls)
	}
	if res.TrackStats[0].Runs != len(res.Attempts) {
		t.Errorf("Runs = %d, want %d", res.TrackStats[0].Runs, len(res.Attempts))
	}
}

func TestExecuteSkipsTracks(t *testing.T) {
	tracks := append(testTracks(),
		library.Track{Title: "No tempo", Key: "4A"},
		library.Track{Title: "No key", BPM: 120, Comments: "great vocals"},
	)
	res, err := testRunner(t).Execute(context.Background(), tracks, Options{Mode: "exact"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Skipped) != 2 {
		t.Fatalf("got %d skipped, want 2", len(res.Skipped))
	}
	checkResult(t, res, 5)
}

func TestExecuteRejectsTooFewTracks(t *testing.T) {
	r := testRunner(t)
	_, err := r.Execute(context.Background(), []library.Track{{Title: "x"}}, Options{})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("no usable tracks: got %v", err)
	}
	_, err = r.Execute(context.Background(), testTracks()[:1], Options{})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("single track: got %v", err)
	}
}

func TestExecuteBridgeHints(t *testing.T) {
	p := cost.DefaultParams()
	p.ShiftPenalty = 10
	tracks := []library.Track{
		{Title: "Low", BPM: 124, Key: "8A"},
		{Title: "High", BPM: 124, Key: "10A"},
	}
	res, err := testRunner(t).Execute(context.Background(), tracks, Options{Mode: "exact", Cost: p})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Cost != 5 {
		t.Errorf("Cost = %v, want 5", res.Cost)
	}
	tr := res.Transitions[0]
	if tr.Harmonic != 5 {
		t.Fatalf("Harmonic = %v, want 5", tr.Harmonic)
	}
	if len(tr.Bridges) != 3 {
		t.Errorf("got %d bridges, want 3: %v", len(tr.Bridges), tr.Bridges)
	}
	for _, b := range tr.Bridges {
		if b.Effective().String() != "9A" {
			t.Errorf("bridge %s lands on %s, want 9A", b, b.Effective())
		}
	}
}

func TestExecuteNonHarmonicFollowsScheme(t *testing.T) {
	scheme := camelot.DefaultScheme()
	scheme.NonHarmonic = 8
	p := cost.DefaultParams()
	p.ShiftPenalty = 100
	tracks := []library.Track{
		{Title: "Low", BPM: 124, Key: "1A"},
		{Title: "Far", BPM: 124, Key: "4A"},
	}
	res, err := testRunner(t).Execute(context.Background(), tracks, Options{Mode: "exact", Harmonic: scheme, Cost: p})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	// 1A to 4A has no direct relationship and no cheap bridge, so it pays triple.
	if h := res.Transitions[0].Harmonic; h != 24 {
		t.Errorf("Harmonic = %v, want 24", h)
	}
	if res.Cost != 24 {
		t.Errorf("Cost = %v, want 24", res.Cost)
	}
}

func TestValidateAndSetDefaultsSyncsNonHarmonic(t *testing.T) {
	scheme := camelot.DefaultScheme()
	scheme.NonHarmonic = 7
	o := Options{Harmonic: scheme}
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if o.Cost.NonHarmonicCost != 7 {
		t.Errorf("NonHarmonicCost = %v, want 7", o.Cost.NonHarmonicCost)
	}
}

func TestExecuteUsesRunnerLogger(t *testing.T) {
	var buf bytes.Buffer
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(c, nil, log.NewWithOptions(&buf, log.Options{}))
	tracks := append(testTracks(), library.Track{Title: "No tempo", Key: "4A"})
	if _, err := r.Execute(context.Background(), tracks, Options{Mode: "exact"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(buf.String(), "skipping track") {
		t.Errorf("runner logger got %q, want a skipped track warning", buf.String())
	}
}
