package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditEntry is the write-once record of a safety decision or job transition.
// The store exposes no update or delete path for it.
type AuditEntry struct {
	ID        uuid.UUID                  `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	CreatedAt time.Time                  `gorm:"not null;index:audit_entries_created_at_idx"`
	Action    string                     `gorm:"not null;type:VARCHAR(100);index:audit_entries_action_idx"`
	Category  string                     `gorm:"not null;type:VARCHAR(100);index:audit_entries_category_idx"`
	Severity  string                     `gorm:"not null;type:VARCHAR(20);index:audit_entries_severity_idx"`
	JobID     *uuid.UUID                 `gorm:"type:TEXT;index:audit_entries_job_id_idx"`
	Customer  string                     `gorm:"type:VARCHAR(255)"`
	Target    string                     `gorm:"type:VARCHAR(255)"`
	Details   *JSONField[map[string]any] `gorm:"type:jsonb"`
	Checksum  string                     `gorm:"not null;type:VARCHAR(64)"`
}

type AuditEntryList []AuditEntry

func (e AuditEntry) String() string {
	val, _ := json.Marshal(e)
	return string(val)
}
