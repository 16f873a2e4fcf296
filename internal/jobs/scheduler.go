package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"mp3-to-mp4/internal/domain"
	"mp3-to-mp4/internal/errs"
)

// ErrConverterUnavailable is returned when the scheduler is constructed
// without a working conversion backend.
var ErrConverterUnavailable = errors.New("conversion service is not available")

// defaultPollInterval bounds the admission loop's idle sleep.
const defaultPollInterval = 100 * time.Millisecond

// ConversionService performs one audio to video conversion. Convert must
// be safe for concurrent calls, report progress in [0,100] through the
// callback, and honor context cancellation by stopping its work.
type ConversionService interface {
	IsAvailable() bool
	Convert(ctx context.Context, audio domain.AudioFile, video domain.VideoFile, onProgress func(percent float64)) error
}

// Callbacks receive job lifecycle events. All callbacks fire from worker
// or admission-loop goroutines; receivers must not block.
type Callbacks struct {
	OnJobStart    func(job Snapshot)
	OnJobProgress func(job Snapshot, percent float64)
	OnJobComplete func(job Snapshot)
	OnJobError    func(job Snapshot, message string)
	OnAllComplete func(succeeded, failed int)
}

// Statistics is a best-effort snapshot of registry counts by status.
type Statistics struct {
	Total      int `json:"total"`
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
}

// Scheduler owns the job registry and pending queue, admits up to
// maxConcurrent jobs at a time in FIFO order, and dispatches each to its
// own worker goroutine.
type Scheduler struct {
	converter     ConversionService
	callbacks     Callbacks
	maxConcurrent atomic.Int32
	pollInterval  time.Duration

	mu      sync.Mutex
	jobs    map[string]*Job // input path -> job
	pending []*Job
	active  map[string]*Job // job id -> job
	cancels map[string]context.CancelFunc
	running bool
}

// NewScheduler builds a scheduler over a conversion backend. The backend
// must be available up front; a missing transcoder is a construction
// failure, never a deferred per-job one.
func NewScheduler(converter ConversionService, maxConcurrent int, callbacks Callbacks) (*Scheduler, error) {
	if converter == nil || !converter.IsAvailable() {
		return nil, ErrConverterUnavailable
	}
	if maxConcurrent < 1 {
		maxConcurrent = 2
	}

	s := &Scheduler{
		converter:    converter,
		callbacks:    callbacks,
		pollInterval: defaultPollInterval,
		jobs:         make(map[string]*Job),
		active:       make(map[string]*Job),
		cancels:      make(map[string]context.CancelFunc),
	}
	s.maxConcurrent.Store(int32(maxConcurrent))
	return s, nil
}

// SetMaxConcurrent adjusts the concurrency cap. The admission loop reads
// it on every iteration, so the change applies to the next admission.
func (s *Scheduler) SetMaxConcurrent(n int) {
	if n >= 1 {
		s.maxConcurrent.Store(int32(n))
	}
}

// MaxConcurrent returns the current concurrency cap.
func (s *Scheduler) MaxConcurrent() int {
	return int(s.maxConcurrent.Load())
}

// Submit registers a queued job for the input and appends it to the
// pending queue. While a job for the same input path is still active the
// existing job is returned instead of creating a duplicate.
func (s *Scheduler) Submit(audio domain.AudioFile, video domain.VideoFile) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[audio.Path]; ok && existing.IsActive() {
		return existing
	}

	job := NewJob(audio, video)
	s.jobs[audio.Path] = job
	s.pending = append(s.pending, job)
	return job
}

// StartProcessing launches the admission loop on its own goroutine.
// Idempotent: already running or an empty queue is a warning, not an error.
func (s *Scheduler) StartProcessing() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Printf("scheduler: conversions already running")
		return
	}
	if len(s.pending) == 0 {
		s.mu.Unlock()
		log.Printf("scheduler: no jobs in queue")
		return
	}
	s.running = true
	s.mu.Unlock()

	go s.processQueue()
}

// Cancel cancels the job registered for the input path, whether still
// queued or already processing. Returns whether cancellation happened.
func (s *Scheduler) Cancel(inputPath string) bool {
	s.mu.Lock()
	job, ok := s.jobs[inputPath]
	var cancel context.CancelFunc
	if ok {
		cancel = s.cancels[job.ID()]
	}
	s.mu.Unlock()

	if !ok {
		return false
	}

	cancelled := job.Cancel()
	if cancelled && cancel != nil {
		cancel()
	}
	return cancelled
}

// CancelAll stops the admission loop, cancels every active job, and drains
// the pending queue. Jobs that never got dispatched are marked failed with
// the cancellation message, matching individual job reporting in the UI
// counters.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	s.running = false
	drained := s.pending
	s.pending = nil
	activeJobs := make([]*Job, 0, len(s.active))
	for _, job := range s.active {
		activeJobs = append(activeJobs, job)
	}
	cancels := make([]context.CancelFunc, 0, len(s.cancels))
	for _, cancel := range s.cancels {
		cancels = append(cancels, cancel)
	}
	s.active = make(map[string]*Job)
	s.cancels = make(map[string]context.CancelFunc)
	s.mu.Unlock()

	for _, job := range activeJobs {
		job.Cancel()
	}
	for _, cancel := range cancels {
		cancel()
	}

	message := errs.Describe(errs.New(errs.CodeCancelled, "cancelled before start")).Message
	for _, job := range drained {
		if job.Status() == StatusQueued {
			job.CompleteFailure(message)
		}
	}

	log.Printf("scheduler: cancelled all conversions (%d active, %d queued)", len(activeJobs), len(drained))
}

// Job returns the registered job for an input path.
func (s *Scheduler) Job(inputPath string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[inputPath]
	return job, ok
}

// Jobs returns all registered jobs in no particular order.
func (s *Scheduler) Jobs() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job)
	}
	return out
}

// Statistics counts registered jobs by status. The snapshot is best-effort
// and may be stale by the time the caller reads it.
func (s *Scheduler) Statistics() Statistics {
	jobs := s.Jobs()

	stats := Statistics{Total: len(jobs)}
	for _, job := range jobs {
		switch job.Status() {
		case StatusQueued:
			stats.Queued++
		case StatusProcessing:
			stats.Processing++
		case StatusCompleted:
			stats.Completed++
		case StatusFailed:
			stats.Failed++
		case StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

// ClearFinished evicts every finished job from the registry. Active jobs
// are kept; the pending queue and active set are untouched.
func (s *Scheduler) ClearFinished() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for path, job := range s.jobs {
		if !job.IsActive() {
			delete(s.jobs, path)
		}
	}
}

// IsConverting reports whether the admission loop runs or workers are
// still active.
func (s *Scheduler) IsConverting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running || len(s.active) > 0
}

// processQueue is the admission loop: prune finished jobs from the active
// set, admit pending jobs FIFO up to the concurrency cap, and emit the
// all-complete event once both queue and active set drain.
func (s *Scheduler) processQueue() {
	log.Printf("scheduler: queue processing started")

	for {
		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			log.Printf("scheduler: queue processing stopped")
			return
		}

		for id, job := range s.active {
			if !job.IsActive() {
				if cancel, ok := s.cancels[id]; ok {
					cancel()
					delete(s.cancels, id)
				}
				delete(s.active, id)
			}
		}

		max := int(s.maxConcurrent.Load())
		for len(s.active) < max && len(s.pending) > 0 {
			job := s.pending[0]
			s.pending = s.pending[1:]

			// Cancelled while queued: discard, never dispatch.
			if job.IsFinished() {
				continue
			}

			ctx, cancel := context.WithCancel(context.Background())
			s.active[job.ID()] = job
			s.cancels[job.ID()] = cancel
			go s.runJob(ctx, job)
		}

		if len(s.pending) == 0 && len(s.active) == 0 {
			s.running = false
			s.mu.Unlock()

			stats := s.Statistics()
			succeeded := stats.Completed
			failed := stats.Failed + stats.Cancelled
			if s.callbacks.OnAllComplete != nil {
				s.callbacks.OnAllComplete(succeeded, failed)
			}
			log.Printf("scheduler: all conversions complete: %d succeeded, %d failed", succeeded, failed)
			return
		}
		s.mu.Unlock()

		time.Sleep(s.pollInterval)
	}
}

// runJob executes a single conversion on its own goroutine. Failures are
// captured into the job and reported via callbacks; nothing escapes the
// worker boundary.
func (s *Scheduler) runJob(ctx context.Context, job *Job) {
	defer func() {
		if r := recover(); r != nil {
			err := errs.Newf(errs.CodeUnexpected, "conversion worker panic: %v", r)
			message := errs.Describe(err).Message
			job.CompleteFailure(message)
			if s.callbacks.OnJobError != nil {
				s.callbacks.OnJobError(job.Snapshot(), message)
			}
			log.Printf("scheduler: %v", err)
		}
	}()

	if err := job.Start(); err != nil {
		// Lost the race with cancellation between dequeue and start.
		return
	}
	if s.callbacks.OnJobStart != nil {
		s.callbacks.OnJobStart(job.Snapshot())
	}

	err := s.converter.Convert(ctx, job.Audio(), job.Video(), func(percent float64) {
		if updateErr := job.UpdateProgress(percent, 0); updateErr != nil {
			return
		}
		if s.callbacks.OnJobProgress != nil {
			s.callbacks.OnJobProgress(job.Snapshot(), percent)
		}
	})

	// Cooperative cancellation: the converter noticed and returned, the
	// job already holds its terminal state.
	if job.Status() == StatusCancelled {
		return
	}

	if err != nil {
		info := errs.Describe(err)
		job.CompleteFailure(info.Message)
		if s.callbacks.OnJobError != nil {
			s.callbacks.OnJobError(job.Snapshot(), info.Message)
		}
		log.Printf("scheduler: conversion failed for %s: %s", job.Audio().Filename, info.Technical)
		return
	}

	job.CompleteSuccess()
	if s.callbacks.OnJobComplete != nil {
		s.callbacks.OnJobComplete(job.Snapshot())
	}
}

// String implements fmt.Stringer for debug logging.
func (s *Statistics) String() string {
	return fmt.Sprintf("total=%d queued=%d processing=%d completed=%d failed=%d cancelled=%d",
		s.Total, s.Queued, s.Processing, s.Completed, s.Failed, s.Cancelled)
}
