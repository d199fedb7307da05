package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"binfill/internal/engine"
	"binfill/internal/registry"
)

type binView struct {
	Name     string `json:"name"`
	Group    string `json:"group"`
	Focus    string `json:"focus,omitempty"`
	IDs      int    `json:"ids"`
	Capacity int    `json:"capacity"`
	ReadOnly bool   `json:"read_only"`
	Shape    string `json:"shape"`
	Format   string `json:"format"`
	Path     string `json:"path"`
}

type binsReport struct {
	Root  string             `json:"root"`
	Stats registry.LoadStats `json:"stats"`
	Bins  []binView          `json:"bins"`
}

func newBinsCommand(ctx *commandContext) *cobra.Command {
	var groupFilter string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "bins",
		Short: "Show bins in the bin directory and their fill levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			eng, err := engine.New(cfg, logger)
			if err != nil {
				return err
			}
			reg, err := eng.LoadRegistry()
			if err != nil {
				return err
			}

			report := binsReport{Root: reg.Root(), Stats: reg.Stats(), Bins: []binView{}}
			group := strings.TrimSpace(groupFilter)
			for _, bin := range reg.Bins() {
				if group != "" && bin.Group != group {
					continue
				}
				report.Bins = append(report.Bins, binView{
					Name:     bin.Name,
					Group:    bin.Group,
					Focus:    bin.Focus,
					IDs:      bin.Len(),
					Capacity: bin.Capacity,
					ReadOnly: bin.ReadOnly,
					Shape:    bin.Shape.String(),
					Format:   bin.Format,
					Path:     bin.Path,
				})
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderBins(report, colorEnabled(cmd.OutOrStdout())))
			return nil
		},
	}

	cmd.Flags().StringVarP(&groupFilter, "group", "g", "", "Only show bins of this group")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print bins as JSON")
	return cmd
}

func renderBins(report binsReport, colorize bool) string {
	var b strings.Builder
	if len(report.Bins) == 0 {
		fmt.Fprintf(&b, "No bins in %s\n", report.Root)
	} else {
		rows := make([][]string, 0, len(report.Bins))
		for _, bin := range report.Bins {
			rows = append(rows, []string{
				bin.Name,
				bin.Group,
				fmt.Sprintf("%d/%d", bin.IDs, bin.Capacity),
				yesNo(bin.ReadOnly),
				bin.Shape + "/" + bin.Format,
			})
		}
		b.WriteString(renderTable([]column{
			leftColumn("Bin"), leftColumn("Group"), rightColumn("Fill"),
			leftColumn("Read-only"), leftColumn("Document"),
		}, rows))
		b.WriteString("\n")
	}

	if skipped := report.Stats.Malformed + report.Stats.Escaped; skipped > 0 {
		b.WriteString(callout{severityWarn, "bin documents",
			fmt.Sprintf("%d of %d documents skipped", skipped, report.Stats.Documents)}.render(colorize))
		b.WriteString("\n")
	}
	if report.Stats.Conflicts > 0 {
		b.WriteString(callout{severityWarn, "conflicts",
			fmt.Sprintf("%d ids listed in more than one bin, first owner kept", report.Stats.Conflicts)}.render(colorize))
		b.WriteString("\n")
	}
	return b.String()
}
