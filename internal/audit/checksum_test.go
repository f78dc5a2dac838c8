package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wipeguard/wipeguard/internal/store/model"
)

func TestChecksumIsDeterministic(t *testing.T) {
	jobID := uuid.New()
	entry := model.AuditEntry{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		Action:    ActionJobStarted,
		Category:  CategoryJob,
		Severity:  SeverityInfo,
		JobID:     &jobID,
		Customer:  "caller-a",
		Target:    "/dev/sdz",
		Details:   model.MakeJSONField(map[string]any{"status": "Initializing", "pass": 1}),
	}

	require.Equal(t, Checksum(entry), Checksum(entry))
	require.Len(t, Checksum(entry), 64)
}

func TestChecksumCoversEveryField(t *testing.T) {
	base := model.AuditEntry{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		Action:    ActionJobCompleted,
		Category:  CategoryJob,
		Severity:  SeverityInfo,
		Customer:  "caller-a",
		Target:    "/dev/sdz",
	}
	original := Checksum(base)

	mutations := map[string]func(e *model.AuditEntry){
		"id":        func(e *model.AuditEntry) { e.ID = uuid.New() },
		"timestamp": func(e *model.AuditEntry) { e.CreatedAt = e.CreatedAt.Add(time.Microsecond) },
		"action":    func(e *model.AuditEntry) { e.Action = ActionJobFailed },
		"category":  func(e *model.AuditEntry) { e.Category = CategorySafety },
		"severity":  func(e *model.AuditEntry) { e.Severity = SeverityCritical },
		"job id":    func(e *model.AuditEntry) { id := uuid.New(); e.JobID = &id },
		"customer":  func(e *model.AuditEntry) { e.Customer = "caller-b" },
		"target":    func(e *model.AuditEntry) { e.Target = "/dev/sdy" },
		"details":   func(e *model.AuditEntry) { e.Details = model.MakeJSONField(map[string]any{"k": "v"}) },
	}

	for name, mutate := range mutations {
		entry := base
		mutate(&entry)
		require.NotEqualf(t, original, Checksum(entry), "mutating %s must change the checksum", name)
	}
}

func TestChecksumStableAcrossDetailKeyOrder(t *testing.T) {
	id := uuid.New()
	at := time.Now().UTC().Truncate(time.Microsecond)

	a := model.AuditEntry{ID: id, CreatedAt: at, Action: ActionJobRunning, Category: CategoryJob, Severity: SeverityInfo,
		Details: model.MakeJSONField(map[string]any{"alpha": 1, "beta": 2})}
	b := model.AuditEntry{ID: id, CreatedAt: at, Action: ActionJobRunning, Category: CategoryJob, Severity: SeverityInfo,
		Details: model.MakeJSONField(map[string]any{"beta": 2, "alpha": 1})}

	require.Equal(t, Checksum(a), Checksum(b))
}
