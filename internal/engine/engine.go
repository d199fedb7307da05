package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"binfill/internal/backlog"
	"binfill/internal/classify"
	"binfill/internal/config"
	"binfill/internal/journal"
	"binfill/internal/logging"
	"binfill/internal/metrics"
	"binfill/internal/placement"
	"binfill/internal/registry"
)

// LockFileName is the advisory lock held in the bin directory during a run.
const LockFileName = ".binfill.lock"

var (
	// ErrConfiguration marks fatal setup problems: a missing bin directory or
	// item source, or a run already in progress. Nothing is written.
	ErrConfiguration = errors.New("configuration error")
	// ErrLocked indicates another run holds the bin directory lock.
	ErrLocked = errors.New("another binfill run holds the bin directory lock")
	// ErrWriteFailed indicates one or more bins could not be written.
	ErrWriteFailed = errors.New("bin write failed")
)

// Options controls a single run.
type Options struct {
	DryRun bool
}

// Engine runs placement against one configuration.
type Engine struct {
	cfg        *config.Config
	logger     *slog.Logger
	classifier *classify.Classifier
	now        func() time.Time
}

// New builds an engine for cfg.
func New(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is required", ErrConfiguration)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		cfg:        cfg,
		logger:     logger,
		classifier: classify.FromConfig(cfg.Classifier),
		now:        time.Now,
	}, nil
}

// Classifier returns the classifier built from configuration.
func (e *Engine) Classifier() *classify.Classifier { return e.classifier }

// LoadRegistry reads the bin directory without taking the run lock.
func (e *Engine) LoadRegistry() (*registry.Registry, error) {
	reg, err := registry.Load(e.cfg.Paths.BinDir, registry.OptionsFromConfig(e.cfg, e.logger))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return reg, nil
}

// Run performs one placement pass: load, diff, classify, place, write,
// journal and metrics. The summary is returned even when some bins failed
// to write; the error then wraps ErrWriteFailed.
func (e *Engine) Run(ctx context.Context, opts Options) (*Summary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	runID := uuid.NewString()
	ctx = logging.ContextWithRunID(ctx, runID)
	logger := logging.NewComponentLogger(logging.WithContext(ctx, e.logger), "engine")
	started := e.now()

	summary := &Summary{
		RunID:     runID,
		DryRun:    opts.DryRun,
		StartedAt: started,
		BinDir:    e.cfg.Paths.BinDir,
		ItemsPath: e.cfg.Paths.ItemsPath,
		Unplaced:  map[string]int{},
	}

	if !opts.DryRun {
		unlock, err := e.acquireLock()
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	reg, err := registry.Load(e.cfg.Paths.BinDir, registry.OptionsFromConfig(e.cfg, logger))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	summary.Registry = reg.Stats()

	items, err := backlog.Load(e.cfg.Paths.ItemsPath, backlog.OptionsFromConfig(e.cfg.Backlog), logger)
	if err != nil {
		if errors.Is(err, backlog.ErrSourceUnavailable) {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		return nil, err
	}
	summary.Backlog = BacklogStats{
		Lines:      items.Lines,
		Eligible:   len(items.Items),
		Malformed:  items.Malformed,
		MissingID:  items.MissingID,
		Duplicates: items.Duplicates,
		Excluded:   items.Excluded,
		Terminal:   items.Terminal,
	}

	pending := make([]placement.Pending, 0, len(items.Items))
	for _, item := range items.Items {
		if reg.IsPlaced(item.ID) {
			summary.AlreadyPlaced++
			continue
		}
		pending = append(pending, placement.Pending{ID: item.ID, Group: e.classifier.Classify(item.Attribute)})
	}
	summary.Pending = len(pending)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run cancelled before placement: %w", err)
	}

	result := placement.Place(reg, pending, placement.GroupsFromConfig(e.cfg), placement.OptionsFromConfig(e.cfg, logger))
	summary.applyPlacement(reg, result)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run cancelled before write: %w", err)
	}

	var writeErr error
	if !opts.DryRun {
		report, err := reg.Write(reg.Changed())
		summary.applyWrite(report)
		if err != nil {
			writeErr = fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
	}
	summary.FinishedAt = e.now()

	if !opts.DryRun {
		e.recordJournal(ctx, logger, summary)
		e.exportMetrics(logger, summary, reg)
	}

	logger.Info("placement run complete",
		logging.Bool("dry_run", opts.DryRun),
		logging.Int("pending", summary.Pending),
		logging.Int("placed", summary.Placed),
		logging.Int("bins_touched", summary.Touched()),
		logging.Int("unplaced", summary.UnplacedTotal()),
		logging.Duration("duration", summary.FinishedAt.Sub(started)))
	return summary, writeErr
}

func (e *Engine) acquireLock() (func(), error) {
	info, err := os.Stat(e.cfg.Paths.BinDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrConfiguration, registry.ErrRootUnavailable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %w: %s is not a directory", ErrConfiguration, registry.ErrRootUnavailable, e.cfg.Paths.BinDir)
	}
	lock := flock.New(filepath.Join(e.cfg.Paths.BinDir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: acquire lock: %w", ErrConfiguration, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, ErrLocked)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			e.logger.Warn("failed to release bin directory lock", logging.Error(err))
		}
	}, nil
}

func (e *Engine) recordJournal(ctx context.Context, logger *slog.Logger, s *Summary) {
	if !e.cfg.Journal.Enabled {
		return
	}
	j, err := journal.Open(e.cfg)
	if err != nil {
		logging.WarnWithContext(logger, "placement journal unavailable", "journal_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.state_dir or set journal.enabled = false"),
			logging.String(logging.FieldImpact, "run not recorded in history"))
		return
	}
	defer j.Close()

	if err := j.RecordRun(ctx, s.journalRun(), s.journalPlacements()); err != nil {
		logging.WarnWithContext(logger, "failed to record run in journal", "journal_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run not recorded in history"))
	}
}

func (e *Engine) exportMetrics(logger *slog.Logger, s *Summary, reg *registry.Registry) {
	path := e.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	collector := metrics.New()
	collector.Observe(s.metricsStats(reg))
	if err := collector.WriteTextfile(path); err != nil {
		logging.WarnWithContext(logger, "failed to export run metrics", "metrics_write_failed",
			logging.String(logging.FieldPath, path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "metrics textfile is stale"))
	}
}
