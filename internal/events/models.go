package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventJobStarted   EventType = "started"
	EventJobProgress  EventType = "progress"
	EventJobLog       EventType = "log"
	EventJobCompleted EventType = "completed"
	EventJobError     EventType = "error"
)

// JobEvent is the payload fanned out to live observers. Events for a single
// job are published by a single writer, so subscribers see them in order.
type JobEvent struct {
	Type      EventType `json:"type"`
	JobID     string    `json:"job_id"`
	Channel   string    `json:"channel,omitempty"`
	Status    string    `json:"status,omitempty"`
	Progress  int       `json:"progress,omitempty"`
	Line      string    `json:"line,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// JobChannel is the per-job channel name subscribers can filter on.
func JobChannel(id uuid.UUID) string {
	return "jobs." + id.String()
}
