package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wipeguard/wipeguard/internal/safety"
)

type ErrJobNotFound struct {
	error
}

func NewErrJobNotFound(id uuid.UUID) *ErrJobNotFound {
	return &ErrJobNotFound{fmt.Errorf("job %s not found", id)}
}

type ErrJobConflict struct {
	error
}

func NewErrJobConflict(id uuid.UUID) *ErrJobConflict {
	return &ErrJobConflict{fmt.Errorf("job %s is already in a terminal state", id)}
}

type ErrInvalidRequest struct {
	error
}

func NewErrInvalidRequest(message string) *ErrInvalidRequest {
	return &ErrInvalidRequest{fmt.Errorf("bad request: %s", message)}
}

// ErrSafetyRejected carries the full check result so the API layer can tell
// the caller exactly which gates failed and what was expected.
type ErrSafetyRejected struct {
	error
	Result     safety.Result
	Target     string
	RetryAfter time.Duration
}

func NewErrSafetyRejected(target string, rejection *safety.Rejection) *ErrSafetyRejected {
	return &ErrSafetyRejected{
		error:      rejection,
		Result:     rejection.Result,
		Target:     target,
		RetryAfter: rejection.Result.RetryAfter,
	}
}
