package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"binfill/internal/engine"
)

func runPlacement(cmd *cobra.Command, ctx *commandContext, dryRun, asJSON bool) error {
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

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, runErr := eng.Run(runCtx, engine.Options{DryRun: dryRun})
	if summary == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	if asJSON {
		if err := writeJSON(cmd.OutOrStdout(), summary); err != nil {
			return err
		}
		return runErr
	}
	fmt.Fprint(out, renderSummary(summary, colorEnabled(out)))
	return runErr
}
