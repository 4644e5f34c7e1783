package backtest

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/ducminhle1904/pattern-backtester/internal/strategy"
	"github.com/ducminhle1904/pattern-backtester/pkg/types"
)

// WorkerPool runs trade generation for candle chunks in parallel
type WorkerPool struct {
	workerCount int
	jobQueue    chan ChunkJob
	resultQueue chan ChunkResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	stopOnce    sync.Once
}

// ChunkJob is one span of the candle series scanned by one worker
type ChunkJob struct {
	Index   int
	Span    strategy.Span
	Factory *strategy.Factory
	Candles []types.Candle
	// Ctx bounds this job; it is the per-strategy context carrying the worker timeout.
	Ctx context.Context
}

// ChunkResult holds the trades produced for one chunk
type ChunkResult struct {
	Index    int
	Trades   []*strategy.Trade
	Duration time.Duration
	Error    error
}

// NewWorkerPool creates a new worker pool bound to ctx
func NewWorkerPool(ctx context.Context, workerCount int, jobBufferSize int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if jobBufferSize < workerCount {
		jobBufferSize = workerCount
	}

	poolCtx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		workerCount: workerCount,
		jobQueue:    make(chan ChunkJob, jobBufferSize),
		resultQueue: make(chan ChunkResult, jobBufferSize),
		ctx:         poolCtx,
		cancel:      cancel,
	}
}

// WorkerCount returns the number of workers
func (wp *WorkerPool) WorkerCount() int {
	return wp.workerCount
}

// Start starts the worker pool
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// Stop stops the worker pool gracefully, waiting for in-flight jobs
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		close(wp.jobQueue)
		wp.wg.Wait()
		close(wp.resultQueue)
		wp.cancel()
	})
}

// Abort cancels all workers without waiting for them to return
func (wp *WorkerPool) Abort() {
	wp.cancel()
}

// SubmitJob submits a chunk job to the pool
func (wp *WorkerPool) SubmitJob(job ChunkJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// GetResults returns the result channel for collecting completed jobs
func (wp *WorkerPool) GetResults() <-chan ChunkResult {
	return wp.resultQueue
}

// Context is cancelled once the pool is aborted or stopped
func (wp *WorkerPool) Context() context.Context {
	return wp.ctx
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}

			result := wp.processJob(job)

			select {
			case wp.resultQueue <- result:
			case <-wp.ctx.Done():
				return
			}

		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job ChunkJob) ChunkResult {
	startTime := time.Now()

	ctx := job.Ctx
	if ctx == nil {
		ctx = wp.ctx
	}

	trades, err := job.Factory.Generate(ctx, job.Candles, job.Span)
	return ChunkResult{
		Index:    job.Index,
		Trades:   trades,
		Duration: time.Since(startTime),
		Error:    err,
	}
}

// SplitSpans partitions n candles into at most workers contiguous spans. Each span lets
// matches run window candles past its end so patterns crossing a boundary are kept; a
// window of 0 lets them run to the end of the series. With strict set, matches are cut
// at the span end instead.
func SplitSpans(n, workers, window int, strict bool) []strategy.Span {
	if n <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	size := (n + workers - 1) / workers
	spans := make([]strategy.Span, 0, workers)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}

		limit := n
		switch {
		case strict:
			limit = end
		case window > 0 && end+window < n:
			limit = end + window
		}
		spans = append(spans, strategy.Span{Start: start, End: end, Limit: limit})
	}
	return spans
}

// ProgressTracker tracks the progress of a sweep
type ProgressTracker struct {
	total     int
	completed int
	startTime time.Time
	mutex     sync.RWMutex
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{
		total:     total,
		startTime: time.Now(),
	}
}

// Increment increments the completion count
func (pt *ProgressTracker) Increment() {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()
	pt.completed++
}

// GetProgress returns the current progress
func (pt *ProgressTracker) GetProgress() (int, int, float64, time.Duration) {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	elapsed := time.Since(pt.startTime)
	progress := 0.0
	if pt.total > 0 {
		progress = float64(pt.completed) / float64(pt.total) * 100
	}

	return pt.completed, pt.total, progress, elapsed
}

// EstimateTimeRemaining estimates the remaining time based on current progress
func (pt *ProgressTracker) EstimateTimeRemaining() time.Duration {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	if pt.completed == 0 {
		return 0
	}

	elapsed := time.Since(pt.startTime)
	avgTimePerItem := elapsed / time.Duration(pt.completed)
	remaining := pt.total - pt.completed

	return avgTimePerItem * time.Duration(remaining)
}
