package jobs

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"mp3-to-mp4/internal/domain"
)

// Status tracks the lifecycle stage of a single conversion job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// ErrNotQueued is returned when starting a job that already left the queue.
var ErrNotQueued = errors.New("job is not queued")

// ErrNotProcessing is returned when progress is reported for a job that is
// not currently processing.
var ErrNotProcessing = errors.New("job is not processing")

// Job is one MP3 to MP4 conversion task. All state mutation goes through
// methods holding the job's own mutex, so workers, the admission loop, and
// UI readers can share it.
type Job struct {
	mu sync.Mutex

	id    string
	audio domain.AudioFile
	video domain.VideoFile

	status      Status
	progress    float64
	etaSeconds  int
	errMessage  string
	canCancel   bool
	createdAt   time.Time
	startedAt   time.Time
	completedAt time.Time
}

// NewJob creates a queued job with a fresh process-unique identifier.
func NewJob(audio domain.AudioFile, video domain.VideoFile) *Job {
	return &Job{
		id:        uuid.NewString(),
		audio:     audio,
		video:     video,
		status:    StatusQueued,
		canCancel: true,
		createdAt: time.Now(),
	}
}

// ID returns the job identifier.
func (j *Job) ID() string {
	return j.id
}

// Audio returns the input descriptor.
func (j *Job) Audio() domain.AudioFile {
	return j.audio
}

// Video returns the output descriptor.
func (j *Job) Video() domain.VideoFile {
	return j.video
}

// Status returns the current lifecycle stage.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Progress returns the last reported completion percentage.
func (j *Job) Progress() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

// ErrorMessage returns the user-facing failure summary, empty when none.
func (j *Job) ErrorMessage() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.errMessage
}

// Start moves the job from queued to processing and stamps the start time.
func (j *Job) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.status != StatusQueued {
		return ErrNotQueued
	}

	j.status = StatusProcessing
	j.startedAt = time.Now()
	j.progress = 0
	j.canCancel = true
	return nil
}

// UpdateProgress records a clamped completion percentage and optional ETA.
// Only legal while processing.
func (j *Job) UpdateProgress(percent float64, etaSeconds int) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.status != StatusProcessing {
		return ErrNotProcessing
	}

	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if j.progress < percent {
		j.progress = percent
	}
	if etaSeconds < 0 {
		etaSeconds = 0
	}
	j.etaSeconds = etaSeconds
	return nil
}

// CompleteSuccess marks a processing job as completed. A job that already
// reached a terminal state is left untouched.
func (j *Job) CompleteSuccess() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.status != StatusProcessing {
		return
	}

	j.status = StatusCompleted
	j.completedAt = time.Now()
	j.progress = 100
	j.errMessage = ""
	j.canCancel = false
}

// CompleteFailure marks a queued or processing job as failed with a
// user-facing message. Terminal states are left untouched.
func (j *Job) CompleteFailure(message string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.status != StatusQueued && j.status != StatusProcessing {
		return
	}

	j.status = StatusFailed
	j.completedAt = time.Now()
	j.errMessage = message
	j.canCancel = false
}

// Cancel transitions an active job to cancelled. Returns false without any
// state change when cancellation is no longer allowed.
func (j *Job) Cancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.canCancel {
		return false
	}

	j.status = StatusCancelled
	j.completedAt = time.Now()
	j.canCancel = false
	return true
}

// IsActive reports whether the job is queued or processing.
func (j *Job) IsActive() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status == StatusQueued || j.status == StatusProcessing
}

// IsFinished reports whether the job reached a terminal state.
func (j *Job) IsFinished() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status == StatusCompleted || j.status == StatusFailed || j.status == StatusCancelled
}

// Elapsed returns time from start to completion, or to now while the job
// is still running. Zero for jobs that never started.
func (j *Job) Elapsed() time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.startedAt.IsZero() {
		return 0
	}
	end := j.completedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(j.startedAt)
}

// Snapshot is an immutable, JSON-friendly view of a job for events and UI.
type Snapshot struct {
	ID              string  `json:"id"`
	InputPath       string  `json:"inputPath"`
	InputFilename   string  `json:"inputFilename"`
	OutputPath      string  `json:"outputPath"`
	Status          Status  `json:"status"`
	Progress        float64 `json:"progress"`
	EtaSeconds      int     `json:"etaSeconds,omitempty"`
	Error           string  `json:"error,omitempty"`
	ElapsedSeconds  float64 `json:"elapsedSeconds"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// Snapshot captures the job's current state under its lock.
func (j *Job) Snapshot() Snapshot {
	elapsed := j.Elapsed()

	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{
		ID:              j.id,
		InputPath:       j.audio.Path,
		InputFilename:   j.audio.Filename,
		OutputPath:      j.video.Path,
		Status:          j.status,
		Progress:        j.progress,
		EtaSeconds:      j.etaSeconds,
		Error:           j.errMessage,
		ElapsedSeconds:  elapsed.Seconds(),
		DurationSeconds: j.audio.DurationSeconds,
	}
}
