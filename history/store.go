package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// DefaultMaxRuns is how many runs a Store keeps when no limit is given.
const DefaultMaxRuns = 50

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Store persists run records as JSON files in a directory, keeping the most
// recent maxRuns and deleting older files.
type Store struct {
	dir     string
	logger  *slog.Logger
	maxRuns int
	runs    []Run // most recent first, protected by mu
	mu      sync.Mutex
}

// NewStore opens the history in dir, creating it if needed, and loads the
// existing records. Unreadable files are logged and skipped.
func NewStore(dir string, maxRuns int, logger *slog.Logger) (*Store, error) {
	if maxRuns <= 0 {
		maxRuns = DefaultMaxRuns
	}
	s := &Store{
		dir:     dir,
		logger:  logger,
		maxRuns: maxRuns,
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	runs, err := s.load()
	if err != nil {
		return nil, err
	}
	s.runs = runs
	return s, nil
}

// Runs returns the stored runs, most recent first.
func (s *Store) Runs() []Run {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Run, len(s.runs))
	copy(result, s.runs)
	return result
}

// Get returns the run with the given ID.
func (s *Store) Get(id string) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, run := range s.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

// Save writes run to disk and prunes records beyond the limit.
func (s *Store) Save(run Run) error {
	if run.ID == "" {
		return fmt.Errorf("cannot save run without an ID")
	}
	if run.StartedAt.IsZero() {
		return fmt.Errorf("cannot save run without start time")
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(run.ID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}

	s.runs = append(s.runs, run)
	sortRuns(s.runs)
	if len(s.runs) > s.maxRuns {
		for _, old := range s.runs[s.maxRuns:] {
			if err := os.Remove(s.path(old.ID)); err != nil && !errors.Is(err, os.ErrNotExist) {
				s.logger.Warn("failed to remove old run file", "run_id", old.ID, "error", err)
			}
		}
		s.runs = s.runs[:s.maxRuns]
	}

	s.logger.Debug("saved run to history", "path", path)
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// load reads every record in the directory, most recent first.
func (s *Store) load() ([]Run, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	runs := make([]Run, 0, len(files))
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		path := filepath.Join(s.dir, file.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("failed to read run file", "file", path, "error", err)
			continue
		}

		var run Run
		if err := json.Unmarshal(data, &run); err != nil {
			s.logger.Warn("failed to parse run file", "file", path, "error", err)
			continue
		}
		runs = append(runs, run)
	}

	sortRuns(runs)
	if len(runs) > s.maxRuns {
		runs = runs[:s.maxRuns]
	}

	s.logger.Debug("loaded run history", "count", len(runs))
	return runs, nil
}

func sortRuns(runs []Run) {
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
}
