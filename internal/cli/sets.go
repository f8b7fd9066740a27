package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mixorder/pkg/config"
	"github.com/matzehuels/mixorder/pkg/errors"
	"github.com/matzehuels/mixorder/pkg/pipeline"
	"github.com/matzehuels/mixorder/pkg/store"
)

// setsCommand creates the saved set management command.
func (c *CLI) setsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sets",
		Short: "Manage saved sets",
	}

	cmd.AddCommand(c.setsListCommand())
	cmd.AddCommand(c.setsShowCommand())
	cmd.AddCommand(c.setsDeleteCommand())

	return cmd
}

// withStore opens the configured store for the duration of fn.
func (c *CLI) withStore(ctx context.Context, fn func(store.Store) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	st, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open set store: %w", err)
	}
	defer st.Close()
	return fn(st)
}

func (c *CLI) setsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved sets, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(st store.Store) error {
				sets, err := st.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(sets) == 0 {
					printInfo("No saved sets")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), setsTable(sets))
				return nil
			})
		},
	}
}

func (c *CLI) setsShowCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved set in play order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(st store.Store) error {
				set, err := st.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), set)
				}
				printSet(cmd.OutOrStdout(), set)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the set as JSON")
	return cmd
}

func (c *CLI) setsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.ValidateSetID(args[0]); err != nil {
				return err
			}
			return c.withStore(cmd.Context(), func(st store.Store) error {
				if err := st.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				printSuccess("Deleted set %s", args[0])
				return nil
			})
		},
	}
}

// saveSet stores res under name and prints where to find it.
func (c *CLI) saveSet(ctx context.Context, cfg *config.Config, name string, res *pipeline.Result) error {
	st, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open set store: %w", err)
	}
	defer st.Close()

	set := setFromResult(name, res)
	if err := st.Save(ctx, set); err != nil {
		return fmt.Errorf("save set: %w", err)
	}
	printSuccess("Saved set %s", set.Name)
	printDetail("ID: %s", set.ID)
	printNextStep("Show it", appName+" sets show "+set.ID)
	return nil
}

func setFromResult(name string, res *pipeline.Result) *store.SavedSet {
	return &store.SavedSet{
		Name:      name,
		Mode:      string(res.Mode),
		Tracks:    res.Tracks,
		Shifts:    res.Shifts,
		Cost:      res.Cost,
		Breakdown: res.Breakdown,
	}
}

// =============================================================================
// Formatting
// =============================================================================

func setsTable(sets []store.Summary) string {
	rows := make([][]string, len(sets))
	for i, s := range sets {
		rows[i] = []string{
			s.ID,
			s.Name,
			s.CreatedAt.Local().Format(time.DateTime),
			s.Mode,
			fmt.Sprint(s.Tracks),
			fmt.Sprintf("%.1f", s.Cost),
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Name", "Created", "Mode", "Tracks", "Cost").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0:
				return lipgloss.NewStyle().Foreground(colorDim)
			case col == 1:
				return lipgloss.NewStyle().Foreground(colorCyan)
			default:
				return lipgloss.NewStyle()
			}
		}).
		Render()
}

// printSet writes a saved set's header and its tracks in play order.
func printSet(w io.Writer, set *store.SavedSet) {
	fmt.Fprintln(w, StyleTitle.Render(set.Name))
	fmt.Fprintln(w, formatKeyValue("ID", set.ID))
	fmt.Fprintln(w, formatKeyValue("Created", set.CreatedAt.Local().Format(time.DateTime)))
	fmt.Fprintln(w, formatKeyValue("Mode", set.Mode))
	fmt.Fprintln(w, formatKeyValue("Cost", fmt.Sprintf("%.1f (harmonic %.1f, tempo %.1f, shift %.1f)",
		set.Cost, set.Breakdown.Harmonic, set.Breakdown.Tempo, set.Breakdown.Shift)))
	fmt.Fprintln(w)

	for i, t := range set.Tracks {
		key := t.Key
		if k, err := t.CamelotKey(); err == nil {
			key = k.String()
			if i < len(set.Shifts) && set.Shifts[i] != 0 {
				key = fmt.Sprintf("%s -> %s", k, k.Shift(set.Shifts[i]))
			}
		}
		fmt.Fprintf(w, "%2d. %-40.40s %4d BPM  %s\n", i+1, t.Label(), t.BPM, key)
	}
}
