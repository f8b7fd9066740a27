package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mixorder/pkg/mix/anneal"
)

// heartbeat is how often a search without improvements reports that it is
// still running.
const heartbeat = 10 * time.Second

// annealMonitor turns annealing progress into log lines and spinner text.
// It logs the first attempt, every improvement of the overall best, and a
// heartbeat every 10 seconds.
//
// Progress callbacks are serialized by the annealer, so the monitor needs no
// locking of its own.
type annealMonitor struct {
	logger   *log.Logger
	spinner  *Spinner
	budget   time.Duration
	attempts int
	best     float64
	lastLog  time.Time
	now      func() time.Time
}

// newAnnealMonitor creates a monitor using the logger from ctx. spinner may
// be nil.
func newAnnealMonitor(ctx context.Context, budget time.Duration, spinner *Spinner) *annealMonitor {
	return &annealMonitor{
		logger:  loggerFromContext(ctx),
		spinner: spinner,
		budget:  budget,
		best:    -1,
		now:     time.Now,
	}
}

// onProgress is installed as pipeline.Options.Progress.
func (m *annealMonitor) onProgress(p anneal.Progress) {
	m.attempts++
	switch {
	case m.best < 0:
		m.best = p.Best
		m.logger.Infof("Initial: cost %.2f (worker %d)", p.Best, p.Worker)
		m.lastLog = m.now()
	case p.Best < m.best:
		m.logger.Infof("Improved: cost %.2f (↓%.2f) after %d attempts", p.Best, m.best-p.Best, m.attempts)
		m.best = p.Best
		m.lastLog = m.now()
	default:
		if m.now().Sub(m.lastLog) >= heartbeat {
			m.logger.Infof("Annealing... %v/%v elapsed, best %.2f after %d attempts",
				p.Elapsed.Truncate(time.Second), m.budget, m.best, m.attempts)
			m.lastLog = m.now()
		}
	}
	if m.spinner != nil {
		m.spinner.SetMessage("Annealing... best %.2f after %d attempts", m.best, m.attempts)
	}
}
