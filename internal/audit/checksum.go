package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/wipeguard/wipeguard/internal/store/model"
)

// canonical serializes every field of the entry except the checksum itself,
// in a fixed order. Map details go through encoding/json, which sorts keys,
// so the serialization is deterministic.
func canonical(e model.AuditEntry) string {
	jobID := ""
	if e.JobID != nil {
		jobID = e.JobID.String()
	}
	details := "{}"
	if e.Details != nil {
		if b, err := json.Marshal(e.Details.Data); err == nil {
			details = string(b)
		}
	}

	return strings.Join([]string{
		e.ID.String(),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
		e.Action,
		e.Category,
		e.Severity,
		jobID,
		e.Customer,
		e.Target,
		details,
	}, "|")
}

// Checksum computes the sha256 over the canonical serialization of the entry.
func Checksum(e model.AuditEntry) string {
	sum := sha256.Sum256([]byte(canonical(e)))
	return hex.EncodeToString(sum[:])
}
