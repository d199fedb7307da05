package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/xxh3"

	"binfill/internal/fileutil"
	"binfill/internal/idorder"
	"binfill/internal/logging"
)

// WriteFailure records a bin that could not be written.
type WriteFailure struct {
	Bin string
	Err error
}

// WriteReport lists the outcome of a Write call.
type WriteReport struct {
	Written []string
	Failed  []WriteFailure
}

// Write sorts and persists the named bins. Each document is replaced
// atomically or left untouched; a failure on one bin does not stop the
// others. The returned error joins every per-bin failure.
func (r *Registry) Write(changed []string) (WriteReport, error) {
	var report WriteReport
	var errs []error
	for _, name := range changed {
		if err := r.writeBin(name); err != nil {
			report.Failed = append(report.Failed, WriteFailure{Bin: name, Err: err})
			errs = append(errs, fmt.Errorf("write bin %s: %w", name, err))
			logging.ErrorWithContext(r.logger, "bin write failed", "registry_write_failed",
				logging.String(logging.FieldBin, name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, writeHint(err)))
			continue
		}
		report.Written = append(report.Written, name)
	}
	return report, errors.Join(errs...)
}

func writeHint(err error) string {
	switch {
	case errors.Is(err, ErrExternalEdit):
		return "the document was edited during the run; re-run to place the remaining items"
	case errors.Is(err, ErrReadOnly):
		return "read-only bins are never written"
	default:
		return "check permissions on the bin directory"
	}
}

func (r *Registry) writeBin(name string) error {
	bin, ok := r.bins[name]
	if !ok {
		return ErrUnknownBin
	}
	if bin.ReadOnly {
		return ErrReadOnly
	}
	if err := r.checkUnchanged(bin); err != nil {
		return err
	}

	idorder.Sort(bin.IDs)
	data, err := encodeBin(bin)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := fileutil.WriteAtomic(bin.Path, data, 0o644); err != nil {
		return err
	}
	bin.fingerprint = xxh3.Hash(data)
	bin.New = false
	r.logger.Debug("bin written",
		logging.String(logging.FieldBin, name),
		logging.Int("ids", len(bin.IDs)),
		logging.Int("added", bin.added))
	return nil
}

// checkUnchanged verifies the document on disk is the one that was loaded,
// or absent for a bin created during this run.
func (r *Registry) checkUnchanged(bin *Bin) error {
	data, err := os.ReadFile(bin.Path)
	if bin.New {
		if err == nil {
			return fmt.Errorf("%w: %s appeared on disk", ErrExternalEdit, filepath.Base(bin.Path))
		}
		if isNotExist(err) {
			return nil
		}
		return err
	}
	if err != nil {
		if isNotExist(err) {
			return fmt.Errorf("%w: %s was removed", ErrExternalEdit, filepath.Base(bin.Path))
		}
		return err
	}
	if xxh3.Hash(data) != bin.fingerprint {
		return fmt.Errorf("%w: %s", ErrExternalEdit, filepath.Base(bin.Path))
	}
	return nil
}
