package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mixorder/pkg/camelot"
)

// keysCommand creates the keys command. Without arguments it prints the
// Camelot wheel; with two keys it explains the transition between them.
func (c *CLI) keysCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keys [from to]",
		Short: "Show the Camelot wheel or the transition between two keys",
		Example: `  mixorder keys
  mixorder keys 8A 3B`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts 0 or 2 keys, received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), wheelTable(cfg.Harmonic))
				return nil
			}
			from, err := camelot.Parse(args[0])
			if err != nil {
				return err
			}
			to, err := camelot.Parse(args[1])
			if err != nil {
				return err
			}
			printTransition(cmd.OutOrStdout(), cfg.Harmonic, from, to)
			return nil
		},
	}
}

// compatible lists the keys a move from k reaches for less than the
// non-harmonic cost.
func compatible(s camelot.Scheme, k camelot.Key) []string {
	var out []string
	for _, o := range camelot.All() {
		if o != k && s.Cost(k, o) < s.NonHarmonic {
			out = append(out, o.String())
		}
	}
	return out
}

func wheelTable(s camelot.Scheme) string {
	rows := make([][]string, 0, camelot.NumKeys)
	for _, k := range camelot.All() {
		down, up := k.Shift(-1), k.Shift(1)
		rows = append(rows, []string{
			k.String(),
			k.RealKey(),
			fmt.Sprintf("%s (%s)", down, down.RealKey()),
			fmt.Sprintf("%s (%s)", up, up.RealKey()),
			strings.Join(compatible(s, k), " "),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Key", "Real key", "-1 semitone", "+1 semitone", "Compatible").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0:
				return lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
			case col == 2 || col == 3:
				return lipgloss.NewStyle().Foreground(colorGray)
			default:
				return lipgloss.NewStyle()
			}
		}).
		Render()
}

// printTransition writes the direct and two-step costs from one key to
// another, and the keys that could bridge them.
func printTransition(w io.Writer, s camelot.Scheme, from, to camelot.Key) {
	fmt.Fprintln(w, StyleTitle.Render(fmt.Sprintf("%s (%s) -> %s (%s)", from, from.RealKey(), to, to.RealKey())))
	fmt.Fprintln(w, formatKeyValue("Direct", fmt.Sprintf("%.1f", s.Cost(from, to))))
	fmt.Fprintln(w, formatKeyValue("Two-step", fmt.Sprintf("%.1f", s.Indirect(from, to))))
	if path := camelot.Path(from, to); len(path) > 0 {
		steps := make([]string, len(path))
		for i, n := range path {
			steps[i] = fmt.Sprint(n)
		}
		fmt.Fprintln(w, formatKeyValue("Wheel path", strings.Join(steps, " -> ")))
	}

	if s.Cost(from, to) < s.NonHarmonic {
		return
	}
	bridges := s.Bridges(from, to)
	if len(bridges) == 0 {
		fmt.Fprintln(w, formatKeyValue("Bridges", StyleWarning.Render("none")))
		return
	}
	parts := make([]string, len(bridges))
	for i, b := range bridges {
		parts[i] = fmt.Sprintf("%s = %s", b, b.Effective())
	}
	fmt.Fprintln(w, formatKeyValue("Bridges", strings.Join(parts, ", ")))
}
