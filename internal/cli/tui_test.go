package cli

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/mixorder/pkg/mix/anneal"
	"github.com/matzehuels/mixorder/pkg/pipeline"
)

func update(t *testing.T, m SolveModel, msg tea.Msg) (SolveModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	sm, ok := next.(SolveModel)
	if !ok {
		t.Fatalf("Update returned %T, want SolveModel", next)
	}
	return sm, cmd
}

func TestSolveModelProgress(t *testing.T) {
	m := NewSolveModel("Ordering 30 tracks", time.Minute, nil)
	if v := m.View(); !strings.Contains(v, "Ordering 30 tracks") || !strings.Contains(v, "—") {
		t.Errorf("initial view should show the title and no best cost:\n%s", v)
	}

	m, _ = update(t, m, progressMsg{Progress: anneal.Progress{Worker: 0, Best: 20, Elapsed: time.Second}, Total: 1})
	m, _ = update(t, m, progressMsg{Progress: anneal.Progress{Worker: 1, Best: 25, Elapsed: 2 * time.Second}, Total: 50})
	m, _ = update(t, m, progressMsg{Progress: anneal.Progress{Worker: 1, Best: 12.5, Elapsed: 3 * time.Second}, Total: 90})

	if m.Best != 12.5 || m.Attempts != 90 || m.Elapsed != 3*time.Second {
		t.Errorf("model = best %v attempts %d elapsed %v", m.Best, m.Attempts, m.Elapsed)
	}
	if len(m.Improvements) != 2 {
		t.Fatalf("improvements = %d, want 2", len(m.Improvements))
	}

	v := m.View()
	for _, want := range []string{"12.50", "20.00", "Attempt", "90"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q:\n%s", want, v)
		}
	}
}

func TestSolveModelKeepsRecentImprovements(t *testing.T) {
	m := NewSolveModel("x", time.Minute, nil)
	for i := 0; i < maxImprovements+5; i++ {
		m, _ = update(t, m, progressMsg{Progress: anneal.Progress{Best: float64(100 - i)}, Total: i + 1})
	}
	if len(m.Improvements) != maxImprovements {
		t.Fatalf("improvements = %d, want %d", len(m.Improvements), maxImprovements)
	}
	if last := m.Improvements[len(m.Improvements)-1]; last.Cost != float64(100-(maxImprovements+4)) {
		t.Errorf("last improvement cost = %v", last.Cost)
	}
}

func TestSolveModelStopAndDone(t *testing.T) {
	cancelled := 0
	m := NewSolveModel("x", time.Minute, func() { cancelled++ })

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd != nil {
		t.Error("stopping should wait for the run instead of quitting")
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if !m.Stopping || cancelled != 1 {
		t.Errorf("Stopping = %v, cancel calls = %d; want true, 1", m.Stopping, cancelled)
	}
	if !strings.Contains(m.View(), "stopping") {
		t.Error("view should say the run is stopping")
	}

	want := &pipeline.Result{Cost: 4}
	m, cmd = update(t, m, doneMsg{res: want, err: errors.New("partial")})
	if cmd == nil {
		t.Fatal("doneMsg should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("doneMsg command should produce tea.QuitMsg")
	}
	res, err := m.Result()
	if res != want || err == nil {
		t.Errorf("Result() = %v, %v", res, err)
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		elapsed, budget time.Duration
		filled          int
	}{
		{0, time.Minute, 0},
		{30 * time.Second, time.Minute, barWidth / 2},
		{2 * time.Minute, time.Minute, barWidth},
		{time.Second, 0, 0},
	}
	for _, tt := range tests {
		bar := progressBar(tt.elapsed, tt.budget)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("progressBar(%v, %v) filled = %d, want %d", tt.elapsed, tt.budget, got, tt.filled)
		}
		if got := strings.Count(bar, "█") + strings.Count(bar, "░"); got != barWidth {
			t.Errorf("progressBar(%v, %v) width = %d, want %d", tt.elapsed, tt.budget, got, barWidth)
		}
	}
}
