// Package service runs period scans in the background on behalf of the API
// and records each one as a run.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetops/fuelrecon/internal/application/reconcile"
	"github.com/fleetops/fuelrecon/internal/domain/fleet"
)

// ScanStatus represents the current state of a scan job.
type ScanStatus string

const (
	StatusPending   ScanStatus = "pending"
	StatusRunning   ScanStatus = "running"
	StatusCompleted ScanStatus = "completed"
	StatusFailed    ScanStatus = "failed"
	StatusCancelled ScanStatus = "cancelled"
	StatusTimedOut  ScanStatus = "timed_out"

	// StatusCancelling is set by CancelScan until the scan goroutine has
	// stored its partial stats and released the scan slot.
	StatusCancelling ScanStatus = "cancelling"
)

// Done reports whether the status is terminal.
func (s ScanStatus) Done() bool {
	return s != StatusPending && s != StatusRunning && s != StatusCancelling
}

// DefaultJobRetention is how long finished jobs stay queryable in memory.
// Runs are persisted and outlive it.
const DefaultJobRetention = 24 * time.Hour

var (
	// ErrJobNotFound is returned for an unknown job ID
	ErrJobNotFound = errors.New("scan job not found")

	// ErrScanRunning is returned when a scan is already in progress
	ErrScanRunning = errors.New("scan already running")

	// ErrJobFinished is returned when cancelling a job that already ended
	ErrJobFinished = errors.New("scan job already finished")
)

// PeriodAnalyzer runs a period scan. Implemented by reconcile.Orchestrator.
type PeriodAnalyzer interface {
	AnalyzePeriod(ctx context.Context, from, to time.Time, filters reconcile.PeriodFilters, params reconcile.Params) (*fleet.PeriodStats, error)
}

// RunRecorder persists the scan audit trail. Implemented by storage.Repository.
type RunRecorder interface {
	StartRun(ctx context.Context, from, to time.Time, trigger string) (int64, error)
	CompleteRun(ctx context.Context, runID int64, stats *fleet.PeriodStats) error
	FailRun(ctx context.Context, runID int64, reason string) error
}

// ScanRequest holds parameters for starting a scan.
type ScanRequest struct {
	From    time.Time
	To      time.Time
	Filters reconcile.PeriodFilters
	Params  *reconcile.Params // nil = service defaults
	Trigger string            // "api", "cli", ...
}

// ScanJob is a snapshot of a running or finished scan.
type ScanJob struct {
	ID          string
	RunID       int64
	Status      ScanStatus
	Request     ScanRequest
	Params      reconcile.Params
	StartedAt   time.Time
	CompletedAt *time.Time
	Stats       *fleet.PeriodStats
	Error       string
}

type scanJob struct {
	ScanJob
	cancel context.CancelFunc
	done   chan struct{}
}

// ScanService manages background period scans. Only one scan runs at a time;
// overlapping scans would redo the same upserts.
type ScanService struct {
	analyzer    PeriodAnalyzer
	runs        RunRecorder
	logger      *slog.Logger
	params      reconcile.Params
	maxDuration time.Duration

	jobs      map[string]*scanJob
	jobsMutex sync.RWMutex

	scanLock sync.Mutex

	// Background cleanup
	cleanupStop chan struct{}
	cleanupDone chan struct{}
}

// Option configures a ScanService
type Option func(*ScanService)

// WithDefaultParams sets the parameters used when a request carries none
func WithDefaultParams(p reconcile.Params) Option {
	return func(s *ScanService) { s.params = p }
}

// WithMaxDuration stops scans that run longer than d. Zero disables the limit.
func WithMaxDuration(d time.Duration) Option {
	return func(s *ScanService) { s.maxDuration = d }
}

// NewScanService creates a new scan service.
func NewScanService(analyzer PeriodAnalyzer, runs RunRecorder, logger *slog.Logger, opts ...Option) *ScanService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ScanService{
		analyzer: analyzer,
		runs:     runs,
		logger:   logger,
		params:   reconcile.DefaultParams(),
		jobs:     make(map[string]*scanJob),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartScan validates the request, records a run and starts the scan in the
// background. ctx only bounds the run bookkeeping; the scan itself is
// detached from it and stopped with CancelScan or the max duration.
func (s *ScanService) StartScan(ctx context.Context, req ScanRequest) (string, error) {
	params := s.params
	if req.Params != nil {
		params = *req.Params
	}
	if err := params.Validate(); err != nil {
		return "", err
	}
	if req.From.IsZero() || req.To.IsZero() || req.To.Before(req.From) {
		return "", fmt.Errorf("scan period %s..%s: %w",
			req.From.Format(time.RFC3339), req.To.Format(time.RFC3339), reconcile.ErrInvalidRange)
	}
	if req.Trigger == "" {
		req.Trigger = "api"
	}

	if !s.scanLock.TryLock() {
		return "", ErrScanRunning
	}

	runID, err := s.runs.StartRun(ctx, req.From, req.To, req.Trigger)
	if err != nil {
		s.scanLock.Unlock()
		return "", fmt.Errorf("failed to record scan run: %w", err)
	}

	var (
		jobCtx context.Context
		cancel context.CancelFunc
	)
	if s.maxDuration > 0 {
		jobCtx, cancel = context.WithTimeout(context.Background(), s.maxDuration)
	} else {
		jobCtx, cancel = context.WithCancel(context.Background())
	}

	job := &scanJob{
		ScanJob: ScanJob{
			ID:        uuid.NewString(),
			RunID:     runID,
			Status:    StatusPending,
			Request:   req,
			Params:    params,
			StartedAt: time.Now(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.jobsMutex.Lock()
	s.jobs[job.ID] = job
	s.jobsMutex.Unlock()

	go s.runScan(jobCtx, job)

	s.logger.Info("Scan job started",
		"job_id", job.ID,
		"run_id", runID,
		"from", req.From.Format(time.RFC3339),
		"to", req.To.Format(time.RFC3339),
		"trigger", req.Trigger,
	)
	return job.ID, nil
}

// GetScan returns a snapshot of a job.
func (s *ScanService) GetScan(jobID string) (*ScanJob, error) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	snapshot := job.ScanJob
	return &snapshot, nil
}

// ListScans returns snapshots of all retained jobs, newest first.
func (s *ScanService) ListScans() []ScanJob {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]ScanJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.ScanJob)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartedAt.After(jobs[j].StartedAt)
	})
	return jobs
}

// CancelScan asks a running scan to stop and returns without waiting. The
// job reports cancelling until the scan goroutine has stored the partial
// stats on the job and its run; use Wait to observe the final status.
// Cancelling a job that is already cancelling is a no-op.
func (s *ScanService) CancelScan(jobID string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status.Done() {
		return fmt.Errorf("%w: status=%s", ErrJobFinished, job.Status)
	}

	if job.Status == StatusCancelling {
		return nil
	}

	job.cancel()
	job.Status = StatusCancelling

	s.logger.Info("Scan job cancelling", "job_id", jobID)
	return nil
}

// Shutdown cancels every unfinished scan and waits for each one to record
// its run. It returns ctx.Err() if ctx ends first.
func (s *ScanService) Shutdown(ctx context.Context) error {
	var pending []string
	for _, job := range s.ListScans() {
		if job.Status.Done() {
			continue
		}
		if err := s.CancelScan(job.ID); err != nil && !errors.Is(err, ErrJobFinished) {
			return err
		}
		pending = append(pending, job.ID)
	}

	for _, id := range pending {
		job, err := s.Wait(ctx, id)
		if err != nil {
			s.logger.Warn("Scan job still running at shutdown", "job_id", id, "error", err)
			return err
		}
		s.logger.Info("Scan job drained", "job_id", id, "status", job.Status)
	}
	return nil
}

// Wait blocks until the job finishes or ctx is done and returns its final
// snapshot.
func (s *ScanService) Wait(ctx context.Context, jobID string) (*ScanJob, error) {
	s.jobsMutex.RLock()
	job, exists := s.jobs[jobID]
	s.jobsMutex.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	select {
	case <-job.done:
		return s.GetScan(jobID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runScan executes the scan in a background goroutine.
func (s *ScanService) runScan(ctx context.Context, job *scanJob) {
	defer close(job.done)
	defer s.scanLock.Unlock()
	defer job.cancel()

	s.updateJob(job.ID, func(j *scanJob) {
		if j.Status == StatusPending {
			j.Status = StatusRunning
		}
	})

	req := job.Request
	stats, err := s.analyzer.AnalyzePeriod(ctx, req.From, req.To, req.Filters, job.Params)

	// Bookkeeping must land even when the scan context is gone
	record := context.WithoutCancel(ctx)

	if err != nil && stats == nil {
		s.failJob(job.ID, err)
		if rerr := s.runs.FailRun(record, job.RunID, err.Error()); rerr != nil {
			s.logger.Error("Failed to record run failure", "run_id", job.RunID, "error", rerr)
		}
		return
	}

	s.finishJob(job.ID, stats, err)
	if rerr := s.runs.CompleteRun(record, job.RunID, stats); rerr != nil {
		s.logger.Error("Failed to record run completion", "run_id", job.RunID, "error", rerr)
	}
}

func (s *ScanService) updateJob(jobID string, fn func(j *scanJob)) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		fn(job)
	}
}

// finishJob stores the stats of a scan that ran to completion or was
// stopped early.
func (s *ScanService) finishJob(jobID string, stats *fleet.PeriodStats, err error) {
	s.updateJob(jobID, func(job *scanJob) {
		job.Stats = stats
		if job.CompletedAt == nil {
			now := time.Now()
			job.CompletedAt = &now
		}

		switch {
		case errors.Is(err, context.DeadlineExceeded):
			job.Status = StatusTimedOut
			job.Error = fmt.Sprintf("exceeded max duration of %v", s.maxDuration)
		case err != nil:
			job.Status = StatusCancelled
		default:
			job.Status = StatusCompleted
		}

		s.logger.Info("Scan job finished",
			"job_id", jobID,
			"status", job.Status,
			"total", stats.Total,
			"analyzed", stats.Analyzed,
			"errored", stats.Errored,
		)
	})
}

// failJob marks a job as failed with an error.
func (s *ScanService) failJob(jobID string, err error) {
	s.updateJob(jobID, func(job *scanJob) {
		now := time.Now()
		job.Status = StatusFailed
		job.CompletedAt = &now
		job.Error = err.Error()
		s.logger.Error("Scan job failed", "job_id", jobID, "error", err)
	})
}

// CleanupOldJobs removes finished jobs older than maxAge.
func (s *ScanService) CleanupOldJobs(maxAge time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, job := range s.jobs {
		if job.Status.Done() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug("Cleaned up old scan jobs", "removed", removed)
	}
	return removed
}

// StartBackgroundCleanup periodically drops finished jobs older than
// DefaultJobRetention. Call StopBackgroundCleanup to stop it.
func (s *ScanService) StartBackgroundCleanup(checkInterval time.Duration) {
	s.cleanupStop = make(chan struct{})
	s.cleanupDone = make(chan struct{})

	go func() {
		defer close(s.cleanupDone)

		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.cleanupStop:
				return
			case <-ticker.C:
				s.CleanupOldJobs(DefaultJobRetention)
			}
		}
	}()
}

// StopBackgroundCleanup stops the cleanup goroutine and waits for it.
func (s *ScanService) StopBackgroundCleanup() {
	if s.cleanupStop == nil {
		return
	}
	close(s.cleanupStop)
	<-s.cleanupDone
}
