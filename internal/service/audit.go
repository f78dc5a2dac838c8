package service

import (
	"context"

	"github.com/wipeguard/wipeguard/internal/audit"
	"github.com/wipeguard/wipeguard/internal/store/model"
)

type AuditService struct {
	trail *audit.Trail
}

func NewAuditService(trail *audit.Trail) *AuditService {
	return &AuditService{trail: trail}
}

func (s *AuditService) Query(ctx context.Context, filter audit.Filter, page, pageSize int) (model.AuditEntryList, audit.Pagination, error) {
	return s.trail.Query(ctx, filter, page, pageSize)
}

func (s *AuditService) Export(ctx context.Context, format string, filter audit.Filter) ([]byte, error) {
	if !audit.LegalExportFormat(format) {
		return nil, NewErrInvalidRequest("unsupported export format: " + format)
	}
	return s.trail.Export(ctx, format, filter)
}

func (s *AuditService) VerifyIntegrity(ctx context.Context) (audit.IntegrityReport, error) {
	return s.trail.VerifyIntegrity(ctx)
}
