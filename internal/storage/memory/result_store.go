package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ducminhle1904/pattern-backtester/internal/backtest"
	"github.com/ducminhle1904/pattern-backtester/internal/storage"
)

type entry struct {
	run     storage.Run
	results []backtest.StrategyResult
}

// ResultStore is an in-memory implementation of storage.ResultStore.
type ResultStore struct {
	mu   sync.RWMutex
	data map[string]*entry // keyed by run id
}

// NewResultStore creates an empty in-memory store.
func NewResultStore() *ResultStore {
	return &ResultStore{data: make(map[string]*entry)}
}

var _ storage.ResultStore = (*ResultStore)(nil)

// SaveRun stores a copy of run and results.
func (s *ResultStore) SaveRun(_ context.Context, run *storage.Run, results []backtest.StrategyResult) error {
	if err := run.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.ID]; exists {
		return storage.ErrDuplicateKey
	}

	stored := make([]backtest.StrategyResult, len(results))
	for i, res := range results {
		res.MoneyEvolution = append([]float64(nil), res.MoneyEvolution...)
		stored[i] = res
	}
	s.data[run.ID] = &entry{run: *run, results: stored}
	return nil
}

// GetRun returns a copy of the run.
func (s *ResultStore) GetRun(_ context.Context, runID string) (*storage.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	run := e.run
	return &run, nil
}

// GetResults returns a ranked copy of the run's results.
func (s *ResultStore) GetResults(_ context.Context, runID string) ([]backtest.StrategyResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	results := make([]backtest.StrategyResult, len(e.results))
	copy(results, e.results)
	backtest.RankResults(results)
	return results, nil
}

// ListRuns returns copies of all runs, newest first.
func (s *ResultStore) ListRuns(_ context.Context) ([]*storage.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*storage.Run, 0, len(s.data))
	for _, e := range s.data {
		run := e.run
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
func (s *ResultStore) Close() error { return nil }
