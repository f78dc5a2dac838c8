package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusCreated      JobStatus = "created"
	StatusInitializing JobStatus = "initializing"
	StatusRunning      JobStatus = "running"
	StatusCancelling   JobStatus = "cancelling"
	StatusCompleted    JobStatus = "completed"
	StatusFailed       JobStatus = "failed"
	StatusCancelled    JobStatus = "cancelled"
)

// Terminal reports whether the status is immutable except for the later
// active-to-history move.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Snapshot is the read-only view of a job handed to callers.
type Snapshot struct {
	ID             uuid.UUID  `json:"id"`
	Target         string     `json:"target"`
	TargetType     string     `json:"targetType,omitempty"`
	Status         JobStatus  `json:"status"`
	Progress       int        `json:"progress"`
	StatusMessage  string     `json:"statusMessage,omitempty"`
	Customer       string     `json:"customer,omitempty"`
	LogLines       []string   `json:"logLines,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	ElapsedSeconds float64    `json:"elapsedSeconds"`
}

// Job is the mutable unit of destructive work. All field access goes through
// the job's own mutex so reads and writes for one job are serialized while
// different jobs stay independent.
type Job struct {
	id         uuid.UUID
	target     string
	targetType string
	customer   string

	logLineCap int

	mu            sync.Mutex
	status        JobStatus
	progress      int
	logLines      []string
	statusMessage string
	createdAt     time.Time
	updatedAt     time.Time
	completedAt   *time.Time

	cancelExec func()
	done       chan struct{}
}

func newJob(target, targetType, customer string, logLineCap int) *Job {
	now := time.Now().UTC()
	return &Job{
		id:         uuid.New(),
		target:     target,
		targetType: targetType,
		customer:   customer,
		logLineCap: logLineCap,
		status:     StatusCreated,
		createdAt:  now,
		updatedAt:  now,
		done:       make(chan struct{}),
	}
}

func (j *Job) ID() uuid.UUID {
	return j.id
}

func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	lines := make([]string, len(j.logLines))
	copy(lines, j.logLines)

	s := Snapshot{
		ID:            j.id,
		Target:        j.target,
		TargetType:    j.targetType,
		Status:        j.status,
		Progress:      j.progress,
		StatusMessage: j.statusMessage,
		Customer:      j.customer,
		LogLines:      lines,
		CreatedAt:     j.createdAt,
		UpdatedAt:     j.updatedAt,
	}
	if j.completedAt != nil {
		t := *j.completedAt
		s.CompletedAt = &t
		s.ElapsedSeconds = t.Sub(j.createdAt).Seconds()
	} else {
		s.ElapsedSeconds = time.Since(j.createdAt).Seconds()
	}
	return s
}

// setProgress applies the monotonic-progress policy: only strictly greater
// values are accepted, regressions are dropped on purpose so observers never
// see progress move backward.
func (j *Job) setProgress(p int) bool {
	if p > 100 {
		p = 100
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if p <= j.progress || j.status.Terminal() {
		return false
	}
	j.progress = p
	j.updatedAt = time.Now().UTC()
	return true
}

// appendLog adds a line to the bounded buffer, trimming to the newest half
// once the cap is exceeded.
func (j *Job) appendLog(line string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.logLines = append(j.logLines, line)
	if len(j.logLines) > j.logLineCap {
		keep := j.logLineCap / 2
		j.logLines = append([]string(nil), j.logLines[len(j.logLines)-keep:]...)
	}
	j.updatedAt = time.Now().UTC()
}

// terminalSince returns the completion time when the job is terminal.
func (j *Job) terminalSince() (time.Time, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.completedAt == nil {
		return time.Time{}, false
	}
	return *j.completedAt, true
}
