package audit

// Categories group entries by the subsystem that produced them.
const (
	CategorySafety = "safety"
	CategoryJob    = "job"
)

// Severity tiers. Critical is reserved for protected-resource violations
// and other events that must never pass unnoticed.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Actions recorded by the safety validator.
const (
	ActionTargetNotFound    = "safety_target_not_found"
	ActionProtectedResource = "safety_protected_resource"
	ActionBadConfirmation   = "safety_bad_confirmation"
	ActionRateLimited       = "safety_rate_limited"
)

// Actions recorded by the job registry.
const (
	ActionJobStarted         = "job_started"
	ActionJobRunning         = "job_running"
	ActionJobCompleted       = "job_completed"
	ActionJobFailed          = "job_failed"
	ActionJobCancelRequested = "job_cancel_requested"
	ActionJobCancelled       = "job_cancelled"
	ActionJobCancelForced    = "job_cancel_forced"
)
