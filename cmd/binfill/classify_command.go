package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"binfill/internal/classify"
	"binfill/internal/engine"
)

type classification struct {
	Attribute  string `json:"attribute"`
	Normalized string `json:"normalized"`
	Group      string `json:"group"`
}

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "classify <attribute>...",
		Short: "Show the group each classification attribute maps to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			eng, err := engine.New(cfg, nil)
			if err != nil {
				return err
			}
			classifier := eng.Classifier()

			results := make([]classification, 0, len(args))
			for _, attr := range args {
				results = append(results, classification{
					Attribute:  attr,
					Normalized: classify.Normalize(attr),
					Group:      classifier.Classify(attr),
				})
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Attribute, r.Group})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{leftColumn("Attribute"), leftColumn("Group")}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print classifications as JSON")
	return cmd
}
