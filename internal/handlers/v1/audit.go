package v1

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/wipeguard/wipeguard/internal/audit"
	"github.com/wipeguard/wipeguard/internal/handlers/v1/mappers"
	"github.com/wipeguard/wipeguard/internal/service"
)

// (GET /api/v1/audit)
func (s *ServiceHandler) QueryAudit(w http.ResponseWriter, r *http.Request) {
	filter, err := auditFilterFromQuery(r)
	if err != nil {
		replyError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	page, pageSize, err := paginationFromQuery(r)
	if err != nil {
		replyError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	entries, pagination, err := s.auditSrv.Query(r.Context(), filter, page, pageSize)
	if err != nil {
		replyError(w, r, http.StatusInternalServerError, "failed to query audit trail")
		return
	}

	reply(w, r, http.StatusOK, mappers.AuditPageToApi(entries, pagination))
}

// (GET /api/v1/audit/export)
func (s *ServiceHandler) ExportAudit(w http.ResponseWriter, r *http.Request) {
	filter, err := auditFilterFromQuery(r)
	if err != nil {
		replyError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = audit.FormatJSON
	}

	data, err := s.auditSrv.Export(r.Context(), format, filter)
	if err != nil {
		switch err.(type) {
		case *service.ErrInvalidRequest:
			replyError(w, r, http.StatusBadRequest, err.Error())
		default:
			replyError(w, r, http.StatusInternalServerError, "failed to export audit trail")
		}
		return
	}

	w.Header().Set("Content-Type", audit.ExportContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=audit-%s.%s", time.Now().UTC().Format("20060102-150405"), format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// (GET /api/v1/audit/verify)
func (s *ServiceHandler) VerifyAudit(w http.ResponseWriter, r *http.Request) {
	report, err := s.auditSrv.VerifyIntegrity(r.Context())
	if err != nil {
		replyError(w, r, http.StatusInternalServerError, "failed to verify audit trail")
		return
	}
	reply(w, r, http.StatusOK, mappers.IntegrityReportToApi(report))
}

func auditFilterFromQuery(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()
	filter := audit.Filter{
		Category: q.Get("category"),
		Action:   q.Get("action"),
		Severity: q.Get("severity"),
		Customer: q.Get("customer"),
	}

	if raw := q.Get("jobId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return audit.Filter{}, fmt.Errorf("invalid jobId: %q", raw)
		}
		filter.JobID = &id
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return audit.Filter{}, fmt.Errorf("invalid from timestamp: %q", raw)
		}
		filter.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return audit.Filter{}, fmt.Errorf("invalid to timestamp: %q", raw)
		}
		filter.To = &t
	}

	return filter, nil
}

func paginationFromQuery(r *http.Request) (int, int, error) {
	q := r.URL.Query()
	page, pageSize := 0, 0

	if raw := q.Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return 0, 0, fmt.Errorf("page must be a positive integer")
		}
		page = parsed
	}
	if raw := q.Get("pageSize"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return 0, 0, fmt.Errorf("pageSize must be a positive integer")
		}
		pageSize = parsed
	}

	return page, pageSize, nil
}
