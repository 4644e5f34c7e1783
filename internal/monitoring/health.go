package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// StatusTracker exposes the progress of a running sweep over HTTP.
type StatusTracker struct {
	mu           sync.RWMutex
	runID        string
	total        int
	completed    int
	lastStrategy string
	finished     bool
	started      time.Time
	errors       []string
}

type SweepStatus struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	RunID        string    `json:"run_id,omitempty"`
	Completed    int       `json:"completed"`
	Total        int       `json:"total"`
	Progress     float64   `json:"progress"`
	LastStrategy string    `json:"last_strategy,omitempty"`
	Elapsed      string    `json:"elapsed"`
	Uptime       string    `json:"uptime"`
	Errors       []string  `json:"errors,omitempty"`
}

func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		errors: make([]string, 0),
	}
}

// Begin resets the tracker for a new sweep.
func (s *StatusTracker) Begin(runID string, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runID = runID
	s.total = total
	s.completed = 0
	s.lastStrategy = ""
	s.finished = false
	s.started = time.Now()
	s.errors = s.errors[:0]
}

func (s *StatusTracker) Complete(strategy string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed++
	s.lastStrategy = strategy
}

func (s *StatusTracker) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, err.Error())
}

func (s *StatusTracker) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
}

// Snapshot returns the current status.
func (s *StatusTracker) Snapshot() SweepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := "running"
	switch {
	case len(s.errors) > 0:
		status = "failed"
	case s.finished:
		status = "done"
	case s.started.IsZero():
		status = "idle"
	}

	progress := 0.0
	if s.total > 0 {
		progress = float64(s.completed) / float64(s.total) * 100
	}
	elapsed := time.Duration(0)
	if !s.started.IsZero() {
		elapsed = time.Since(s.started)
	}

	errs := make([]string, len(s.errors))
	copy(errs, s.errors)

	return SweepStatus{
		Status:       status,
		Timestamp:    time.Now(),
		RunID:        s.runID,
		Completed:    s.completed,
		Total:        s.total,
		Progress:     progress,
		LastStrategy: s.lastStrategy,
		Elapsed:      elapsed.Round(time.Millisecond).String(),
		Uptime:       time.Since(startTime).Round(time.Second).String(),
		Errors:       errs,
	}
}

func (s *StatusTracker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := s.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	if status.Status == "failed" {
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(status)
}
