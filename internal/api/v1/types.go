package v1

import (
	"net/http"
	"time"
)

type CreateJobRequest struct {
	Target             string `json:"target" validate:"required,max=255,target"`
	TargetType         string `json:"targetType" validate:"target_type"`
	ConfirmationPhrase string `json:"confirmationPhrase" validate:"required"`
}

type Job struct {
	Id             string     `json:"id"`
	Target         string     `json:"target"`
	TargetType     string     `json:"targetType,omitempty"`
	Status         string     `json:"status"`
	Progress       int        `json:"progress"`
	StatusMessage  string     `json:"statusMessage,omitempty"`
	Customer       string     `json:"customer,omitempty"`
	LogLines       []string   `json:"logLines,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	ElapsedSeconds float64    `json:"elapsedSeconds"`
}

type JobList struct {
	Jobs []Job `json:"jobs"`
}

type SafetyCheck struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

type SafetyRejection struct {
	Message           string        `json:"message"`
	Checks            []SafetyCheck `json:"checks"`
	ExpectedPhrase    string        `json:"expectedPhrase,omitempty"`
	RetryAfterSeconds int           `json:"retryAfterSeconds,omitempty"`
	RequestId         *string       `json:"requestId,omitempty"`
}

type Device struct {
	Id         string `json:"id"`
	Identifier string `json:"identifier"`
	Label      string `json:"label"`
	SizeBytes  int64  `json:"sizeBytes"`
	Removable  bool   `json:"removable"`
	Protected  bool   `json:"protected"`
}

type DeviceList struct {
	Devices []Device `json:"devices"`
}

type AuditEntry struct {
	Id        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	Category  string         `json:"category"`
	Severity  string         `json:"severity"`
	JobId     *string        `json:"jobId,omitempty"`
	Customer  string         `json:"customer,omitempty"`
	Target    string         `json:"target,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Checksum  string         `json:"checksum"`
}

type AuditPage struct {
	Entries    []AuditEntry `json:"entries"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	Total      int64        `json:"total"`
	TotalPages int          `json:"totalPages"`
}

type IntegrityMismatch struct {
	Id       string `json:"id"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

type IntegrityReport struct {
	CheckedEntries int                 `json:"checkedEntries"`
	Mismatches     []IntegrityMismatch `json:"mismatches"`
	VerifiedAt     time.Time           `json:"verifiedAt"`
}

type Error struct {
	Message   string  `json:"message"`
	RequestId *string `json:"requestId,omitempty"`
}

func (j Job) Render(w http.ResponseWriter, r *http.Request) error             { return nil }
func (l JobList) Render(w http.ResponseWriter, r *http.Request) error         { return nil }
func (s SafetyRejection) Render(w http.ResponseWriter, r *http.Request) error { return nil }
func (d DeviceList) Render(w http.ResponseWriter, r *http.Request) error      { return nil }
func (p AuditPage) Render(w http.ResponseWriter, r *http.Request) error       { return nil }
func (i IntegrityReport) Render(w http.ResponseWriter, r *http.Request) error { return nil }
func (e Error) Render(w http.ResponseWriter, r *http.Request) error           { return nil }
