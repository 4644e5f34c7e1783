package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ducminhle1904/pattern-backtester/internal/backtest"
	"github.com/ducminhle1904/pattern-backtester/internal/storage"
)

// staleLockAge is how old a lock file may get before another process may break it.
const staleLockAge = 5 * time.Minute

type runFile struct {
	Run     storage.Run               `json:"run"`
	Results []backtest.StrategyResult `json:"results"`
}

// ResultStore keeps each run in its own JSON file below a directory.
type ResultStore struct {
	mu       sync.RWMutex
	dir      string
	lockFile string
}

var _ storage.ResultStore = (*ResultStore)(nil)

// NewResultStore creates a file-based store rooted at dir
func NewResultStore(dir string) (*ResultStore, error) {
	if dir == "" {
		dir = "runs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	return &ResultStore{
		dir:      dir,
		lockFile: filepath.Join(dir, ".lock"),
	}, nil
}

func (f *ResultStore) runPath(runID string) string {
	return filepath.Join(f.dir, runID+".json")
}

// SaveRun writes the run to a temporary file and renames it into place
func (f *ResultStore) SaveRun(_ context.Context, run *storage.Run, results []backtest.StrategyResult) error {
	if err := run.Validate(); err != nil {
		return err
	}
	if strings.ContainsAny(run.ID, `/\`) {
		return fmt.Errorf("%w: run id %q contains a path separator", storage.ErrInvalidInput, run.ID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.lock(); err != nil {
		return err
	}
	defer f.unlock()

	path := f.runPath(run.ID)
	if _, err := os.Stat(path); err == nil {
		return storage.ErrDuplicateKey
	}

	if results == nil {
		results = []backtest.StrategyResult{}
	}
	data, err := json.MarshalIndent(runFile{Run: *run, Results: results}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run %s: %w", run.ID, err)
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary run file: %w", err)
	}
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to commit run file: %w", err)
	}
	return nil
}

func (f *ResultStore) load(runID string) (*runFile, error) {
	data, err := os.ReadFile(f.runPath(runID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	var rf runFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", runID, err)
	}
	for i := range rf.Results {
		if err := rf.Results[i].RestorePattern(); err != nil {
			return nil, fmt.Errorf("run %s result %d: %w", runID, i, err)
		}
	}
	return &rf, nil
}

// GetRun loads a run
func (f *ResultStore) GetRun(_ context.Context, runID string) (*storage.Run, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	rf, err := f.load(runID)
	if err != nil {
		return nil, err
	}
	return &rf.Run, nil
}

// GetResults loads the results of a run, best first
func (f *ResultStore) GetResults(_ context.Context, runID string) ([]backtest.StrategyResult, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	rf, err := f.load(runID)
	if err != nil {
		return nil, err
	}
	backtest.RankResults(rf.Results)
	return rf.Results, nil
}

// ListRuns loads every run in the directory, newest first
func (f *ResultStore) ListRuns(_ context.Context) ([]*storage.Run, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read run directory: %w", err)
	}

	runs := make([]*storage.Run, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		rf, err := f.load(strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		run := rf.Run
		runs = append(runs, &run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

// Close is a no-op.
func (f *ResultStore) Close() error { return nil }

type lockInfo struct {
	Timestamp time.Time `json:"timestamp"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
}

// lock guards the directory against writers in other processes
func (f *ResultStore) lock() error {
	if _, err := os.Stat(f.lockFile); err == nil {
		if err := f.checkStaleLock(); err != nil {
			return err
		}
	}

	lockData, err := json.Marshal(lockInfo{Timestamp: time.Now(), PID: os.Getpid(), Hostname: getHostname()})
	if err != nil {
		return fmt.Errorf("failed to create lock data: %w", err)
	}
	if err := os.WriteFile(f.lockFile, lockData, 0644); err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	return nil
}

func (f *ResultStore) unlock() {
	if err := os.Remove(f.lockFile); err != nil && !os.IsNotExist(err) {
		fmt.Printf("⚠️ Warning: could not remove lock file %s: %v\n", f.lockFile, err)
	}
}

func (f *ResultStore) checkStaleLock() error {
	lockData, err := os.ReadFile(f.lockFile)
	if err != nil {
		return fmt.Errorf("failed to read lock file: %w", err)
	}

	var info lockInfo
	if err := json.Unmarshal(lockData, &info); err != nil {
		// unreadable lock, break it
		os.Remove(f.lockFile)
		return nil
	}

	if age := time.Since(info.Timestamp); age > staleLockAge {
		fmt.Printf("⚠️ Removing stale lock file (age: %v)\n", age.Round(time.Second))
		os.Remove(f.lockFile)
		return nil
	}
	return fmt.Errorf("run directory %s is locked by pid %d on %s", f.dir, info.PID, info.Hostname)
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}
