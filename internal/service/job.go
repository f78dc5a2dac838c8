package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/wipeguard/wipeguard/internal/registry"
	"github.com/wipeguard/wipeguard/internal/safety"
)

type JobService struct {
	registry *registry.Registry
}

func NewJobService(r *registry.Registry) *JobService {
	return &JobService{registry: r}
}

func (s *JobService) CreateJob(ctx context.Context, req registry.CreateRequest) (registry.Snapshot, error) {
	snapshot, err := s.registry.Create(ctx, req)
	if err != nil {
		var rejection *safety.Rejection
		if errors.As(err, &rejection) {
			return registry.Snapshot{}, NewErrSafetyRejected(req.Target, rejection)
		}
		return registry.Snapshot{}, err
	}
	return snapshot, nil
}

func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (registry.Snapshot, error) {
	snapshot, err := s.registry.Get(id)
	if err != nil {
		if errors.Is(err, registry.ErrJobNotFound) {
			return registry.Snapshot{}, NewErrJobNotFound(id)
		}
		return registry.Snapshot{}, err
	}
	return snapshot, nil
}

func (s *JobService) CancelJob(ctx context.Context, id uuid.UUID) (registry.Snapshot, error) {
	snapshot, err := s.registry.Cancel(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrJobNotFound):
			return registry.Snapshot{}, NewErrJobNotFound(id)
		case errors.Is(err, registry.ErrJobConflict):
			return registry.Snapshot{}, NewErrJobConflict(id)
		default:
			return registry.Snapshot{}, err
		}
	}
	return snapshot, nil
}

func (s *JobService) ListActiveJobs(ctx context.Context) []registry.Snapshot {
	return s.registry.ListActive()
}

func (s *JobService) ListHistory(ctx context.Context, limit int) []registry.Snapshot {
	return s.registry.ListHistory(limit)
}
