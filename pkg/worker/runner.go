package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/supplier-risk/pkg/logger"
)

// Worker is a unit of background work run on a schedule
type Worker interface {
	// Name returns worker name for logging
	Name() string
	// Run executes one iteration of work
	Run(ctx context.Context) error
}

// Status describes the last iterations of a periodic worker
type Status struct {
	Name      string    `json:"name"`
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// PeriodicWorker runs a Worker immediately, then every interval or whenever triggered
type PeriodicWorker struct {
	worker   Worker
	interval time.Duration
	trigger  chan struct{}
	done     chan struct{}
	clock    func() time.Time

	mu     sync.Mutex
	status Status
}

// NewPeriodicWorker creates new periodic worker
func NewPeriodicWorker(worker Worker, interval time.Duration) *PeriodicWorker {
	return &PeriodicWorker{
		worker:   worker,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		clock:    time.Now,
		status:   Status{Name: worker.Name()},
	}
}

// Start runs the worker loop until ctx is cancelled
func (pw *PeriodicWorker) Start(ctx context.Context) {
	go pw.loop(ctx)
}

// Trigger requests an extra iteration; requests made while one is pending are coalesced
func (pw *PeriodicWorker) Trigger() {
	select {
	case pw.trigger <- struct{}{}:
	default:
	}
}

// Status returns a copy of the worker's run statistics
func (pw *PeriodicWorker) Status() Status {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.status
}

// Stop waits up to timeout for the loop to exit; the caller cancels the context
func (pw *PeriodicWorker) Stop(timeout time.Duration) bool {
	select {
	case <-pw.done:
		logger.Info("✅ Worker stopped gracefully",
			zap.String("worker", pw.status.Name),
		)
		return true
	case <-time.After(timeout):
		logger.Warn("⚠️ Worker stop timeout",
			zap.String("worker", pw.status.Name),
		)
		return false
	}
}

func (pw *PeriodicWorker) loop(ctx context.Context) {
	defer close(pw.done)

	logger.Info("🚀 Worker started",
		zap.String("worker", pw.status.Name),
		zap.Duration("interval", pw.interval),
	)

	pw.runOnce(ctx)

	ticker := time.NewTicker(pw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("🛑 Worker stopping",
				zap.String("worker", pw.status.Name),
			)
			return
		case <-ticker.C:
			pw.runOnce(ctx)
		case <-pw.trigger:
			pw.runOnce(ctx)
			ticker.Reset(pw.interval)
		}
	}
}

func (pw *PeriodicWorker) runOnce(ctx context.Context) {
	err := pw.worker.Run(ctx)

	pw.mu.Lock()
	pw.status.Runs++
	pw.status.LastRun = pw.clock()
	pw.status.LastError = ""
	if err != nil {
		pw.status.Failures++
		pw.status.LastError = err.Error()
	}
	pw.mu.Unlock()

	// a failed iteration never stops the loop
	if err != nil {
		logger.Error("worker execution failed",
			zap.String("worker", pw.status.Name),
			zap.Error(err),
		)
	}
}

// WorkerGroup manages multiple workers with graceful shutdown
type WorkerGroup struct {
	workers []*PeriodicWorker
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
}

// NewWorkerGroup creates new worker group
func NewWorkerGroup(ctx context.Context) *WorkerGroup {
	ctx, cancel := context.WithCancel(ctx)
	return &WorkerGroup{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers worker and returns its handle for triggering and status
func (wg *WorkerGroup) Add(worker Worker, interval time.Duration) *PeriodicWorker {
	wg.mu.Lock()
	defer wg.mu.Unlock()

	pw := NewPeriodicWorker(worker, interval)
	wg.workers = append(wg.workers, pw)
	return pw
}

// Start starts all workers
func (wg *WorkerGroup) Start() {
	wg.mu.Lock()
	defer wg.mu.Unlock()

	for _, pw := range wg.workers {
		pw.Start(wg.ctx)
	}

	logger.Info("🚀 Worker group started",
		zap.Int("workers", len(wg.workers)),
	)
}

// Statuses returns the run statistics of every worker in the group
func (wg *WorkerGroup) Statuses() []Status {
	wg.mu.Lock()
	defer wg.mu.Unlock()

	out := make([]Status, 0, len(wg.workers))
	for _, pw := range wg.workers {
		out = append(out, pw.Status())
	}
	return out
}

// Stop cancels all workers and waits for each up to timeout
func (wg *WorkerGroup) Stop(timeout time.Duration) {
	logger.Info("🛑 Stopping worker group...",
		zap.Int("workers", len(wg.workers)),
	)

	wg.cancel()

	wg.mu.Lock()
	defer wg.mu.Unlock()

	for _, pw := range wg.workers {
		pw.Stop(timeout)
	}

	logger.Info("✅ Worker group stopped")
}
