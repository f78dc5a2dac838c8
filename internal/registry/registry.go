package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	jitterbug "github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	"github.com/wipeguard/wipeguard/internal/audit"
	"github.com/wipeguard/wipeguard/internal/events"
	"github.com/wipeguard/wipeguard/internal/executor"
	"github.com/wipeguard/wipeguard/internal/safety"
	"github.com/wipeguard/wipeguard/pkg/metrics"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobConflict = errors.New("job is already in a terminal state")
)

type Config struct {
	CancelGracePeriod  time.Duration
	HistoryGracePeriod time.Duration
	HistoryCap         int
	LogLineCap         int
	SweepInterval      time.Duration
}

func DefaultConfig() Config {
	return Config{
		CancelGracePeriod:  5 * time.Second,
		HistoryGracePeriod: 30 * time.Second,
		HistoryCap:         100,
		LogLineCap:         1000,
		SweepInterval:      5 * time.Second,
	}
}

type CreateRequest struct {
	Target             string
	TargetType         string
	ConfirmationPhrase string
	CallerKey          string
}

// Registry owns the job lifecycle. It is the single owner of mutable job
// state: callers only ever see snapshots.
type Registry struct {
	cfg         Config
	validator   *safety.Validator
	trail       *audit.Trail
	broadcaster *events.Broadcaster
	executor    executor.Executor
	interpreter ProgressInterpreter

	mu      sync.RWMutex
	active  map[uuid.UUID]*Job
	history []*Job
}

type Option func(*Registry)

// WithProgressInterpreter swaps the substring-milestone heuristic for
// another strategy, e.g. a structured-event protocol.
func WithProgressInterpreter(pi ProgressInterpreter) Option {
	return func(r *Registry) {
		r.interpreter = pi
	}
}

func New(cfg Config, validator *safety.Validator, trail *audit.Trail, broadcaster *events.Broadcaster, exec executor.Executor, opts ...Option) *Registry {
	r := &Registry{
		cfg:         cfg,
		validator:   validator,
		trail:       trail,
		broadcaster: broadcaster,
		executor:    exec,
		interpreter: NewMilestoneInterpreter(),
		active:      make(map[uuid.UUID]*Job),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Create runs the safety gate and, on success, admits the job and starts the
// executor asynchronously. It returns as soon as the job is registered.
func (r *Registry) Create(ctx context.Context, req CreateRequest) (Snapshot, error) {
	result, err := r.validator.Validate(ctx, req.Target, req.ConfirmationPhrase, req.CallerKey)
	if err != nil {
		return Snapshot{}, err
	}
	if !result.Passed {
		return Snapshot{}, &safety.Rejection{Result: result}
	}

	job := newJob(req.Target, req.TargetType, req.CallerKey, r.cfg.LogLineCap)
	job.mu.Lock()
	job.status = StatusInitializing
	job.statusMessage = "erase job admitted"
	job.mu.Unlock()

	// a job whose start cannot be provably recorded is not admitted
	jobID := job.id
	if _, err := r.trail.Append(ctx, audit.Entry{
		Action:   audit.ActionJobStarted,
		Category: audit.CategoryJob,
		Severity: audit.SeverityInfo,
		JobID:    &jobID,
		Customer: req.CallerKey,
		Target:   req.Target,
		Details:  map[string]any{"status": string(StatusInitializing), "target_type": req.TargetType},
	}); err != nil {
		return Snapshot{}, err
	}

	r.mu.Lock()
	r.active[job.id] = job
	count := len(r.active)
	r.mu.Unlock()
	metrics.UpdateActiveJobsCountMetric(count)

	r.publish(job, events.EventJobStarted, "")
	go r.execute(job)

	return job.Snapshot(), nil
}

// Get never blocks on in-flight execution.
func (r *Registry) Get(id uuid.UUID) (Snapshot, error) {
	job, ok := r.lookup(id)
	if !ok {
		return Snapshot{}, ErrJobNotFound
	}
	return job.Snapshot(), nil
}

func (r *Registry) ListActive() []Snapshot {
	r.mu.RLock()
	jobs := make([]*Job, 0, len(r.active))
	for _, job := range r.active {
		jobs = append(jobs, job)
	}
	r.mu.RUnlock()

	snapshots := make([]Snapshot, 0, len(jobs))
	for _, job := range jobs {
		snapshots = append(snapshots, job.Snapshot())
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.Before(snapshots[j].CreatedAt)
	})
	return snapshots
}

// ListHistory returns retained terminal jobs, newest first.
func (r *Registry) ListHistory(limit int) []Snapshot {
	r.mu.RLock()
	jobs := make([]*Job, len(r.history))
	copy(jobs, r.history)
	r.mu.RUnlock()

	snapshots := make([]Snapshot, 0, len(jobs))
	for i := len(jobs) - 1; i >= 0; i-- {
		snapshots = append(snapshots, jobs[i].Snapshot())
		if limit > 0 && len(snapshots) >= limit {
			break
		}
	}
	return snapshots
}

// Cancel is the first phase of the two-phase cancellation protocol: request
// the executor to stop, then let the grace timer force the job terminal if
// no acknowledgement arrives.
func (r *Registry) Cancel(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	r.mu.RLock()
	job, inActive := r.active[id]
	r.mu.RUnlock()

	if !inActive {
		// terminal jobs migrated to history conflict rather than vanish
		if _, err := r.Get(id); err == nil {
			return Snapshot{}, ErrJobConflict
		}
		return Snapshot{}, ErrJobNotFound
	}

	job.mu.Lock()
	if job.status.Terminal() {
		job.mu.Unlock()
		return Snapshot{}, ErrJobConflict
	}
	if job.status == StatusCancelling {
		job.mu.Unlock()
		return job.Snapshot(), nil
	}
	job.status = StatusCancelling
	job.statusMessage = "cancellation requested"
	job.updatedAt = time.Now().UTC()
	cancelExec := job.cancelExec
	job.mu.Unlock()

	r.auditTransition(ctx, job, audit.ActionJobCancelRequested, audit.SeverityInfo, nil)
	r.publish(job, events.EventJobProgress, "")

	if cancelExec != nil {
		cancelExec()
	}

	go func() {
		select {
		case <-job.done:
		case <-time.After(r.cfg.CancelGracePeriod):
			r.finalize(job, StatusCancelled,
				"forced termination: executor did not acknowledge the stop request",
				audit.ActionJobCancelForced, audit.SeverityWarning)
		}
	}()

	return job.Snapshot(), nil
}

// Run drives the history sweeper until the context is cancelled.
func (r *Registry) Run(ctx context.Context) {
	ticker := jitterbug.New(r.cfg.SweepInterval, &jitterbug.Norm{Stdev: 100 * time.Millisecond, Mean: 0})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		r.Sweep(time.Now().UTC())
	}
}

// Sweep migrates terminal jobs past their grace period into history and
// evicts the oldest history entries beyond the cap. Run drives it on a
// jittered interval; calling it directly is safe at any time.
func (r *Registry) Sweep(now time.Time) {
	r.mu.Lock()
	for id, job := range r.active {
		if completedAt, terminal := job.terminalSince(); terminal && now.Sub(completedAt) >= r.cfg.HistoryGracePeriod {
			delete(r.active, id)
			r.history = append(r.history, job)
			zap.S().Named("registry").Debugw("job moved to history", "job_id", id)
		}
	}
	if len(r.history) > r.cfg.HistoryCap {
		keep := r.cfg.HistoryCap / 2
		r.history = append([]*Job(nil), r.history[len(r.history)-keep:]...)
	}
	count := len(r.active)
	r.mu.Unlock()

	metrics.UpdateActiveJobsCountMetric(count)
}

func (r *Registry) lookup(id uuid.UUID) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if job, ok := r.active[id]; ok {
		return job, true
	}
	for i := len(r.history) - 1; i >= 0; i-- {
		if r.history[i].id == id {
			return r.history[i], true
		}
	}
	return nil, false
}

// execute is the per-job worker goroutine. It is the single writer for the
// job's progress and log state while the job runs.
func (r *Registry) execute(job *Job) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job.mu.Lock()
	if job.status.Terminal() {
		job.mu.Unlock()
		return
	}
	cancelledEarly := job.status == StatusCancelling
	if !cancelledEarly {
		job.cancelExec = cancel
		job.status = StatusRunning
		job.statusMessage = "erase in progress"
		job.updatedAt = time.Now().UTC()
	}
	job.mu.Unlock()

	if cancelledEarly {
		r.finalize(job, StatusCancelled, "cancelled before execution started",
			audit.ActionJobCancelled, audit.SeverityInfo)
		return
	}

	r.auditTransition(context.Background(), job, audit.ActionJobRunning, audit.SeverityInfo, nil)
	r.publish(job, events.EventJobProgress, "")

	evs, err := r.executor.Run(ctx, job.id, job.target)
	if err != nil {
		r.finalize(job, StatusFailed, fmt.Sprintf("executor failed to start: %s", err),
			audit.ActionJobFailed, audit.SeverityWarning)
		return
	}

	exitCode := 0
	for ev := range evs {
		if ev.Exited {
			exitCode = ev.ExitCode
			continue
		}
		job.appendLog(ev.Line)
		r.publish(job, events.EventJobLog, ev.Line)
		if pct, ok := r.interpreter.Interpret(ev.Line); ok {
			if job.setProgress(pct) {
				r.publish(job, events.EventJobProgress, "")
			}
		}
	}

	job.mu.Lock()
	wasCancelling := job.status == StatusCancelling
	job.mu.Unlock()

	switch {
	case wasCancelling:
		r.finalize(job, StatusCancelled, "cancelled by operator",
			audit.ActionJobCancelled, audit.SeverityInfo)
	case exitCode == 0:
		r.finalize(job, StatusCompleted, "erase completed",
			audit.ActionJobCompleted, audit.SeverityInfo)
	default:
		r.finalize(job, StatusFailed, fmt.Sprintf("executor exited with code %d", exitCode),
			audit.ActionJobFailed, audit.SeverityWarning)
	}
}

// finalize moves a job to a terminal state exactly once. Later callers,
// including the forced-cancellation timer racing the executor's own exit,
// are no-ops.
func (r *Registry) finalize(job *Job, status JobStatus, message string, action string, severity string) {
	job.mu.Lock()
	if job.status.Terminal() {
		job.mu.Unlock()
		return
	}
	now := time.Now().UTC()
	job.status = status
	job.statusMessage = message
	job.updatedAt = now
	job.completedAt = &now
	if status == StatusCompleted {
		job.progress = 100
	}
	close(job.done)
	job.mu.Unlock()

	metrics.IncreaseJobsTotalMetric(string(status))
	r.auditTransition(context.Background(), job, action, severity, map[string]any{"message": message})

	typ := events.EventJobCompleted
	if status == StatusFailed {
		typ = events.EventJobError
	}
	r.publish(job, typ, "")
}

// auditTransition records a lifecycle transition. Transitions happening on
// the executor's goroutine have no caller to surface a persistence failure
// to, so the failure is logged as not provably recorded and execution goes
// on; Create handles its own append so an unrecordable admission never
// starts a job.
func (r *Registry) auditTransition(ctx context.Context, job *Job, action, severity string, details map[string]any) {
	jobID := job.id
	s := job.Snapshot()
	if details == nil {
		details = map[string]any{}
	}
	details["status"] = string(s.Status)

	if _, err := r.trail.Append(ctx, audit.Entry{
		Action:   action,
		Category: audit.CategoryJob,
		Severity: severity,
		JobID:    &jobID,
		Customer: s.Customer,
		Target:   s.Target,
		Details:  details,
	}); err != nil {
		zap.S().Named("registry").Errorw("job transition not provably recorded",
			"job_id", jobID, "action", action, "error", err)
	}
}

func (r *Registry) publish(job *Job, typ events.EventType, line string) {
	s := job.Snapshot()
	r.broadcaster.Publish(events.JobEvent{
		Type:     typ,
		JobID:    job.id.String(),
		Channel:  events.JobChannel(job.id),
		Status:   string(s.Status),
		Progress: s.Progress,
		Line:     line,
		Message:  s.StatusMessage,
	})
}
