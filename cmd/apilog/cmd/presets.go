package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/daimoniac/apilog/internal/tracing"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	nameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED"))
)

func newPresetsCmd() *cobra.Command {
	presets := &cobra.Command{
		Use:   "presets",
		Short: "Manage trace presets",
	}

	presets.AddCommand(&cobra.Command{
		Use:   "check <file>",
		Short: "Validate a trace preset file and print the resulting configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := tracing.LoadPresets(args[0])
			if err != nil {
				return err
			}

			registry := tracing.NewRegistry()
			if err := p.Apply(registry); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s (exact=%t)\n", okStyle.Render("OK"), args[0], registry.Exact())

			seen := make(map[string]bool, len(p.Components))
			for _, c := range p.Components {
				if seen[c.Name] {
					continue
				}
				seen[c.Name] = true

				levels, _ := registry.Levels(c.Name)
				fmt.Fprintf(out, "  %s %s\n", nameStyle.Render(c.Name), describeLevels(levels, registry.Exact()))
			}
			return nil
		},
	})

	return presets
}

// describeLevels explains which levelled trace calls a component lets through
func describeLevels(levels []int, exact bool) string {
	switch {
	case len(levels) == 0 && exact:
		// exact matching needs a registered level
		return "unlevelled traces only"
	case len(levels) == 0:
		return "all levels"
	case exact:
		return fmt.Sprintf("levels %v", levels)
	default:
		return fmt.Sprintf("levels up to %d", levels[len(levels)-1])
	}
}
