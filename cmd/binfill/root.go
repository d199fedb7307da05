package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var binDirFlag string
	var itemsFlag string
	var logLevelFlag string
	var dryRun bool
	var jsonOutput bool

	ctx := newCommandContext(&configFlag, &binDirFlag, &itemsFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:   "binfill",
		Short: "Place unplaced work items into capacity-bounded bins",
		Long: "binfill reads the item source, skips ids already listed in a bin document,\n" +
			"classifies the rest into groups and fills each group's bins up to capacity,\n" +
			"creating overflow bins as needed. Only changed bin documents are rewritten.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlacement(cmd, ctx, dryRun, jsonOutput)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&binDirFlag, "bin-dir", "", "Override paths.bin_dir")
	rootCmd.PersistentFlags().StringVar(&itemsFlag, "items", "", "Override paths.items_path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override logging.level (debug, info, warn, error)")
	rootCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Plan placements without writing bins, journal or metrics")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run summary as JSON")

	rootCmd.AddCommand(newBinsCommand(ctx))
	rootCmd.AddCommand(newClassifyCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
