package mappers

import (
	api "github.com/wipeguard/wipeguard/internal/api/v1"
	"github.com/wipeguard/wipeguard/internal/audit"
	"github.com/wipeguard/wipeguard/internal/inventory"
	"github.com/wipeguard/wipeguard/internal/registry"
	"github.com/wipeguard/wipeguard/internal/safety"
	"github.com/wipeguard/wipeguard/internal/store/model"
)

func JobToApi(s registry.Snapshot) api.Job {
	return api.Job{
		Id:             s.ID.String(),
		Target:         s.Target,
		TargetType:     s.TargetType,
		Status:         string(s.Status),
		Progress:       s.Progress,
		StatusMessage:  s.StatusMessage,
		Customer:       s.Customer,
		LogLines:       s.LogLines,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		CompletedAt:    s.CompletedAt,
		ElapsedSeconds: s.ElapsedSeconds,
	}
}

func JobListToApi(snapshots []registry.Snapshot) api.JobList {
	jobs := make([]api.Job, 0, len(snapshots))
	for _, s := range snapshots {
		jobs = append(jobs, JobToApi(s))
	}
	return api.JobList{Jobs: jobs}
}

func SafetyRejectionToApi(result safety.Result, expectedPhrase string, requestID *string) api.SafetyRejection {
	checks := make([]api.SafetyCheck, 0, len(result.Checks))
	for _, c := range result.Checks {
		checks = append(checks, api.SafetyCheck{
			Name:    c.Name,
			Passed:  c.Passed,
			Message: c.Message,
		})
	}
	retryAfter := 0
	if result.RetryAfter > 0 {
		retryAfter = int(result.RetryAfter.Seconds())
		if retryAfter == 0 {
			retryAfter = 1
		}
	}
	return api.SafetyRejection{
		Message:           "request rejected by safety validation",
		Checks:            checks,
		ExpectedPhrase:    expectedPhrase,
		RetryAfterSeconds: retryAfter,
		RequestId:         requestID,
	}
}

func DeviceToApi(d inventory.Device) api.Device {
	return api.Device{
		Id:         d.ID,
		Identifier: d.Identifier,
		Label:      d.Label,
		SizeBytes:  d.SizeBytes,
		Removable:  d.Removable,
		Protected:  d.Protected,
	}
}

func DeviceListToApi(devices []inventory.Device) api.DeviceList {
	out := make([]api.Device, 0, len(devices))
	for _, d := range devices {
		out = append(out, DeviceToApi(d))
	}
	return api.DeviceList{Devices: out}
}

func AuditEntryToApi(e model.AuditEntry) api.AuditEntry {
	var jobID *string
	if e.JobID != nil {
		s := e.JobID.String()
		jobID = &s
	}
	var details map[string]any
	if e.Details != nil {
		details = e.Details.Data
	}
	return api.AuditEntry{
		Id:        e.ID.String(),
		Timestamp: e.CreatedAt,
		Action:    e.Action,
		Category:  e.Category,
		Severity:  e.Severity,
		JobId:     jobID,
		Customer:  e.Customer,
		Target:    e.Target,
		Details:   details,
		Checksum:  e.Checksum,
	}
}

func AuditPageToApi(entries model.AuditEntryList, pagination audit.Pagination) api.AuditPage {
	out := make([]api.AuditEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryToApi(e))
	}
	return api.AuditPage{
		Entries:    out,
		Page:       pagination.Page,
		PageSize:   pagination.PageSize,
		Total:      pagination.Total,
		TotalPages: pagination.TotalPages,
	}
}

func IntegrityReportToApi(r audit.IntegrityReport) api.IntegrityReport {
	mismatches := make([]api.IntegrityMismatch, 0, len(r.Mismatches))
	for _, m := range r.Mismatches {
		mismatches = append(mismatches, api.IntegrityMismatch{
			Id:       m.ID.String(),
			Expected: m.Expected,
			Actual:   m.Actual,
		})
	}
	return api.IntegrityReport{
		CheckedEntries: r.CheckedEntries,
		Mismatches:     mismatches,
		VerifiedAt:     r.VerifiedAt,
	}
}
