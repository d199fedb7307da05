package engine

import (
	"fmt"
	"slices"
	"time"

	"binfill/internal/journal"
	"binfill/internal/metrics"
	"binfill/internal/placement"
	"binfill/internal/registry"
)

// BacklogStats counts how the item source was filtered.
type BacklogStats struct {
	Lines      int `json:"lines"`
	Eligible   int `json:"eligible"`
	Malformed  int `json:"malformed"`
	MissingID  int `json:"missing_id"`
	Duplicates int `json:"duplicates"`
	Excluded   int `json:"excluded"`
	Terminal   int `json:"terminal"`
}

// BinChange describes one bin that received items.
type BinChange struct {
	Name     string `json:"name"`
	Group    string `json:"group"`
	Added    int    `json:"added"`
	Count    int    `json:"count"`
	Capacity int    `json:"capacity"`
	Created  bool   `json:"created"`
	Written  bool   `json:"written"`
	Error    string `json:"error,omitempty"`
}

// Summary is the outcome of one run.
type Summary struct {
	RunID         string                 `json:"run_id"`
	DryRun        bool                   `json:"dry_run"`
	StartedAt     time.Time              `json:"started_at"`
	FinishedAt    time.Time              `json:"finished_at"`
	BinDir        string                 `json:"bin_dir"`
	ItemsPath     string                 `json:"items_path"`
	Backlog       BacklogStats           `json:"backlog"`
	Registry      registry.LoadStats     `json:"registry"`
	Pending       int                    `json:"pending"`
	AlreadyPlaced int                    `json:"already_placed"`
	Placed        int                    `json:"placed"`
	Bins          []BinChange            `json:"bins"`
	Created       []string               `json:"created,omitempty"`
	Unplaced      map[string]int         `json:"unplaced"`
	Exhausted     []string               `json:"exhausted,omitempty"`
	Assignments   []placement.Assignment `json:"-"`
}

// Touched returns how many bins received items.
func (s *Summary) Touched() int { return len(s.Bins) }

// UnplacedTotal sums unplaced items across exhausted groups.
func (s *Summary) UnplacedTotal() int {
	total := 0
	for _, n := range s.Unplaced {
		total += n
	}
	return total
}

// WriteFailures counts bins that could not be written.
func (s *Summary) WriteFailures() int {
	n := 0
	for _, b := range s.Bins {
		if b.Error != "" {
			n++
		}
	}
	return n
}

// Line renders the closing summary line, e.g. "3 bins touched, 0 unplaced".
func (s *Summary) Line() string {
	noun := "bins"
	if s.Touched() == 1 {
		noun = "bin"
	}
	return fmt.Sprintf("%d %s touched, %d unplaced", s.Touched(), noun, s.UnplacedTotal())
}

func (s *Summary) applyPlacement(reg *registry.Registry, res placement.Result) {
	created := make(map[string]struct{}, len(res.Created))
	for _, name := range res.Created {
		created[name] = struct{}{}
	}
	for _, name := range res.Touched {
		bin, ok := reg.Bin(name)
		if !ok {
			continue
		}
		_, isNew := created[name]
		s.Bins = append(s.Bins, BinChange{
			Name:     name,
			Group:    bin.Group,
			Added:    res.Added[name],
			Count:    bin.Len(),
			Capacity: bin.Capacity,
			Created:  isNew,
		})
		s.Placed += res.Added[name]
	}
	for _, name := range res.Created {
		if _, touched := res.Added[name]; touched {
			s.Created = append(s.Created, name)
		}
	}
	for group, n := range res.Unplaced {
		s.Unplaced[group] = n
	}
	s.Exhausted = slices.Clone(res.Exhausted)
	s.AlreadyPlaced += res.AlreadyPlaced
	s.Assignments = res.Assignments
}

func (s *Summary) applyWrite(report registry.WriteReport) {
	failed := make(map[string]string, len(report.Failed))
	for _, f := range report.Failed {
		failed[f.Bin] = f.Err.Error()
	}
	for i := range s.Bins {
		if msg, ok := failed[s.Bins[i].Name]; ok {
			s.Bins[i].Error = msg
			continue
		}
		s.Bins[i].Written = true
	}
}

func (s *Summary) journalRun() journal.Run {
	return journal.Run{
		ID:            s.RunID,
		StartedAt:     s.StartedAt,
		FinishedAt:    s.FinishedAt,
		BinDir:        s.BinDir,
		ItemsPath:     s.ItemsPath,
		Pending:       s.Pending,
		AlreadyPlaced: s.AlreadyPlaced,
		Placed:        s.Placed,
		Unplaced:      s.UnplacedTotal(),
		BinsTouched:   s.Touched(),
		BinsCreated:   len(s.Created),
		WriteFailures: s.WriteFailures(),
	}
}

func (s *Summary) journalPlacements() []journal.Placement {
	written := make(map[string]bool, len(s.Bins))
	for _, b := range s.Bins {
		written[b.Name] = b.Written
	}
	out := make([]journal.Placement, 0, len(s.Assignments))
	for _, a := range s.Assignments {
		out = append(out, journal.Placement{ItemID: a.ItemID, Bin: a.Bin, Group: a.Group, Written: written[a.Bin]})
	}
	return out
}

func (s *Summary) metricsStats(reg *registry.Registry) metrics.RunStats {
	stats := metrics.RunStats{
		Pending:       s.Pending,
		AlreadyPlaced: s.AlreadyPlaced,
		Placed:        s.Placed,
		Unplaced:      s.Unplaced,
		BinsTouched:   s.Touched(),
		BinsCreated:   len(s.Created),
		WriteFailures: s.WriteFailures(),
		Duration:      s.FinishedAt.Sub(s.StartedAt),
		FinishedAt:    s.FinishedAt,
	}
	for _, b := range reg.Bins() {
		if b.New {
			continue
		}
		stats.Bins = append(stats.Bins, metrics.BinFill{
			Name:     b.Name,
			Group:    b.Group,
			IDs:      b.Len(),
			Capacity: b.Capacity,
			ReadOnly: b.ReadOnly,
		})
	}
	return stats
}
