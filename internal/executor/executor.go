package executor

import (
	"context"

	"github.com/google/uuid"
)

// Event is one element of the executor's output stream: zero or more log
// lines followed by exactly one terminal event carrying the exit code.
// Exit code 0 is success, anything else is failure.
type Event struct {
	Line     string
	Exited   bool
	ExitCode int
}

// Executor performs the destructive action. The orchestrator requests a stop
// by cancelling the context; an executor that does not terminate within the
// registry's grace period gets its job force-marked cancelled anyway.
type Executor interface {
	Run(ctx context.Context, jobID uuid.UUID, target string) (<-chan Event, error)
}
