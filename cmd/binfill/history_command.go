package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"binfill/internal/journal"
)

const (
	defaultHistoryLimit = 20
	shortRunIDLength    = 8
	historyTimeLayout   = "2006-01-02 15:04:05"
)

type runView struct {
	ID            string          `json:"id"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
	BinDir        string          `json:"bin_dir"`
	ItemsPath     string          `json:"items_path"`
	Pending       int             `json:"pending"`
	AlreadyPlaced int             `json:"already_placed"`
	Placed        int             `json:"placed"`
	Unplaced      int             `json:"unplaced"`
	BinsTouched   int             `json:"bins_touched"`
	BinsCreated   int             `json:"bins_created"`
	WriteFailures int             `json:"write_failures"`
	Placements    []placementView `json:"placements,omitempty"`
}

type placementView struct {
	ItemID  string `json:"item_id"`
	Bin     string `json:"bin"`
	Group   string `json:"group"`
	Written bool   `json:"written"`
}

func newRunView(run journal.Run) runView {
	return runView{
		ID:            run.ID,
		StartedAt:     run.StartedAt,
		FinishedAt:    run.FinishedAt,
		BinDir:        run.BinDir,
		ItemsPath:     run.ItemsPath,
		Pending:       run.Pending,
		AlreadyPlaced: run.AlreadyPlaced,
		Placed:        run.Placed,
		Unplaced:      run.Unplaced,
		BinsTouched:   run.BinsTouched,
		BinsCreated:   run.BinsCreated,
		WriteFailures: run.WriteFailures,
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded placement runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return errors.New("--limit must be positive")
			}
			return withJournal(ctx, func(j *journal.Journal) error {
				runs, err := j.ListRuns(cmd.Context(), limit)
				if err != nil {
					return fmt.Errorf("list runs: %w", err)
				}
				views := make([]runView, 0, len(runs))
				for _, run := range runs {
					views = append(views, newRunView(run))
				}
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), views)
				}
				out := cmd.OutOrStdout()
				if len(views) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderRunTable(views))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", defaultHistoryLimit, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")
	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and the items it placed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return errors.New("run id is required")
			}
			return withJournal(ctx, func(j *journal.Journal) error {
				run, err := j.GetRun(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("get run: %w", err)
				}
				if run == nil {
					return fmt.Errorf("run %s not found", id)
				}
				placements, err := j.RunPlacements(cmd.Context(), run.ID)
				if err != nil {
					return fmt.Errorf("list placements: %w", err)
				}
				view := newRunView(*run)
				view.Placements = make([]placementView, 0, len(placements))
				for _, p := range placements {
					view.Placements = append(view.Placements, placementView{ItemID: p.ItemID, Bin: p.Bin, Group: p.Group, Written: p.Written})
				}
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), view)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderRunDetail(view, colorEnabled(cmd.OutOrStdout())))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run as JSON")
	return cmd
}

func withJournal(ctx *commandContext, fn func(*journal.Journal) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Journal.Enabled {
		return errors.New("journal is disabled; set journal.enabled = true to record run history")
	}
	j, err := journal.Open(cfg)
	if err != nil {
		if errors.Is(err, journal.ErrSchemaMismatch) {
			return fmt.Errorf("%w: remove %s to start a fresh journal", err, cfg.JournalPath())
		}
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()
	return fn(j)
}

func renderRunTable(runs []runView) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortRunID(run.ID),
			formatRunTime(run.StartedAt),
			fmt.Sprintf("%d", run.Placed),
			fmt.Sprintf("%d", run.Unplaced),
			fmt.Sprintf("%d", run.BinsTouched),
			fmt.Sprintf("%d", run.WriteFailures),
		})
	}
	return renderTable([]column{
		leftColumn("Run"), leftColumn("Started"), rightColumn("Placed"),
		rightColumn("Unplaced"), rightColumn("Bins"), rightColumn("Failures"),
	}, rows)
}

func renderRunDetail(run runView, colorize bool) string {
	var b strings.Builder
	b.WriteString(heading("run "+run.ID, colorize))
	b.WriteString("\n")
	fields := [][2]string{
		{"started", formatRunTime(run.StartedAt)},
		{"finished", formatRunTime(run.FinishedAt)},
		{"bin dir", run.BinDir},
		{"items", run.ItemsPath},
		{"pending", fmt.Sprintf("%d", run.Pending)},
		{"already placed", fmt.Sprintf("%d", run.AlreadyPlaced)},
		{"placed", fmt.Sprintf("%d", run.Placed)},
		{"unplaced", fmt.Sprintf("%d", run.Unplaced)},
		{"bins touched", fmt.Sprintf("%d", run.BinsTouched)},
		{"bins created", fmt.Sprintf("%d", run.BinsCreated)},
		{"write failures", fmt.Sprintf("%d", run.WriteFailures)},
	}
	for _, f := range fields {
		fmt.Fprintf(&b, "      %-*s %s\n", calloutLabelWidth, f[0], f[1])
	}
	if len(run.Placements) > 0 {
		rows := make([][]string, 0, len(run.Placements))
		for _, p := range run.Placements {
			rows = append(rows, []string{p.ItemID, p.Bin, p.Group, yesNo(p.Written)})
		}
		b.WriteString(renderTable([]column{leftColumn("Item"), leftColumn("Bin"), leftColumn("Group"), leftColumn("Written")}, rows))
		b.WriteString("\n")
	}
	return b.String()
}

func shortRunID(id string) string {
	if len(id) <= shortRunIDLength {
		return id
	}
	return id[:shortRunIDLength]
}

func formatRunTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format(historyTimeLayout)
}

