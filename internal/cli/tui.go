package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/mixorder/pkg/mix/anneal"
	"github.com/matzehuels/mixorder/pkg/pipeline"
)

// List styles
var (
	listDimStyle  = lipgloss.NewStyle().Foreground(colorDim)
	barFullStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	barEmptyStyle = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	// maxImprovements is how many recent improvements the view keeps.
	maxImprovements = 8

	// sendInterval throttles non-improving progress messages.
	sendInterval = 100 * time.Millisecond

	barWidth = 30
)

// =============================================================================
// Messages
// =============================================================================

// progressMsg carries one annealing attempt and the running total.
type progressMsg struct {
	anneal.Progress
	Total int
}

// doneMsg ends the view.
type doneMsg struct {
	res *pipeline.Result
	err error
}

// =============================================================================
// SolveModel - Live view of an annealing run
// =============================================================================

// improvement is one row of the improvements table.
type improvement struct {
	Attempt int
	Worker  int
	Cost    float64
	Elapsed time.Duration
}

// SolveModel is the bubbletea model shown by optimize --tui.
type SolveModel struct {
	Title        string
	Budget       time.Duration
	Attempts     int
	Best         float64
	Elapsed      time.Duration
	Improvements []improvement
	Stopping     bool

	res    *pipeline.Result
	err    error
	cancel context.CancelFunc
}

// NewSolveModel creates a model for a run with the given budget. cancel is
// called when the user asks to stop early.
func NewSolveModel(title string, budget time.Duration, cancel context.CancelFunc) SolveModel {
	return SolveModel{Title: title, Budget: budget, Best: -1, cancel: cancel}
}

func (m SolveModel) Init() tea.Cmd {
	return nil
}

func (m SolveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// The run keeps its best arrangement; doneMsg quits.
			if !m.Stopping && m.cancel != nil {
				m.cancel()
			}
			m.Stopping = true
		}
	case progressMsg:
		m.Attempts = msg.Total
		m.Elapsed = max(m.Elapsed, msg.Elapsed)
		if m.Best < 0 || msg.Best < m.Best {
			m.Best = msg.Best
			m.Improvements = append(m.Improvements, improvement{
				Attempt: msg.Total,
				Worker:  msg.Worker,
				Cost:    msg.Best,
				Elapsed: msg.Elapsed,
			})
			if len(m.Improvements) > maxImprovements {
				m.Improvements = m.Improvements[len(m.Improvements)-maxImprovements:]
			}
		}
	case doneMsg:
		m.res, m.err = msg.res, msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m SolveModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	if m.Stopping {
		b.WriteString(StyleWarning.Render("stopping after the current attempts..."))
	} else {
		b.WriteString(listDimStyle.Render("q stop early and keep the best set"))
	}
	b.WriteString("\n\n")

	b.WriteString(progressBar(m.Elapsed, m.Budget))
	fmt.Fprintf(&b, " %s / %s\n", m.Elapsed.Truncate(time.Second), m.Budget)

	best := "—"
	if m.Best >= 0 {
		best = fmt.Sprintf("%.2f", m.Best)
	}
	fmt.Fprintf(&b, "%s %s   %s %s\n\n",
		StyleDim.Render("attempts"), StyleNumber.Render(fmt.Sprint(m.Attempts)),
		StyleDim.Render("best"), StyleHighlight.Render(best))

	if len(m.Improvements) == 0 {
		return b.String()
	}

	rows := make([][]string, 0, len(m.Improvements))
	for i := len(m.Improvements) - 1; i >= 0; i-- {
		imp := m.Improvements[i]
		rows = append(rows, []string{
			fmt.Sprint(imp.Attempt),
			fmt.Sprint(imp.Worker),
			fmt.Sprintf("%.2f", imp.Cost),
			imp.Elapsed.Truncate(time.Millisecond).String(),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Attempt", "Worker", "Cost", "Elapsed").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case row == 0:
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			default:
				return lipgloss.NewStyle().Foreground(colorGray)
			}
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

// Result returns what the run produced once the view has quit.
func (m SolveModel) Result() (*pipeline.Result, error) {
	return m.res, m.err
}

func progressBar(elapsed, budget time.Duration) string {
	filled := 0
	if budget > 0 {
		filled = int(float64(barWidth) * float64(elapsed) / float64(budget))
	}
	filled = min(max(filled, 0), barWidth)
	return barFullStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))
}

// =============================================================================
// Runner
// =============================================================================

// solveFunc runs a solve, reporting attempts through progress.
type solveFunc func(ctx context.Context, progress func(anneal.Progress)) (*pipeline.Result, error)

// runTUI runs solve behind a live view on stderr. Stopping early from the
// view cancels the solve's context, which makes annealing return the best
// arrangement found so far.
func runTUI(ctx context.Context, title string, budget time.Duration, solve solveFunc) (*pipeline.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewSolveModel(title, budget, cancel), tea.WithOutput(os.Stderr))

	results := make(chan doneMsg, 1)
	go func() {
		var (
			total    int
			lastSend time.Time
		)
		res, err := solve(ctx, func(pr anneal.Progress) {
			total++
			if !pr.Improved && time.Since(lastSend) < sendInterval {
				return
			}
			lastSend = time.Now()
			p.Send(progressMsg{Progress: pr, Total: total})
		})
		d := doneMsg{res: res, err: err}
		results <- d
		p.Send(d)
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		loggerFromContext(ctx).Warn("live view failed", "err", err)
	}
	d := <-results
	return d.res, d.err
}
