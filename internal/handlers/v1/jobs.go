package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	api "github.com/wipeguard/wipeguard/internal/api/v1"
	"github.com/wipeguard/wipeguard/internal/audit"
	"github.com/wipeguard/wipeguard/internal/handlers/v1/mappers"
	"github.com/wipeguard/wipeguard/internal/handlers/validator"
	"github.com/wipeguard/wipeguard/internal/registry"
	"github.com/wipeguard/wipeguard/internal/safety"
	"github.com/wipeguard/wipeguard/internal/service"
	"github.com/wipeguard/wipeguard/pkg/requestid"
)

const callerKeyHeader = "X-Caller-Key"

// (POST /api/v1/jobs)
func (s *ServiceHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var form api.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		replyError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	v := validator.NewValidator()
	v.Register(validator.NewJobValidationRules()...)
	if err := v.Struct(form); err != nil {
		replyError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	callerKey := r.Header.Get(callerKeyHeader)
	if callerKey == "" {
		callerKey = clientAddr(r)
	}

	snapshot, err := s.jobSrv.CreateJob(r.Context(), registry.CreateRequest{
		Target:             form.Target,
		TargetType:         form.TargetType,
		ConfirmationPhrase: form.ConfirmationPhrase,
		CallerKey:          callerKey,
	})
	if err != nil {
		var rejected *service.ErrSafetyRejected
		var notRecorded *audit.NotRecordedError
		switch {
		case errors.As(err, &rejected):
			rejection := mappers.SafetyRejectionToApi(rejected.Result, safety.ExpectedPhrase(rejected.Target), requestid.FromContextPtr(r.Context()))
			if rejected.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(rejection.RetryAfterSeconds))
			}
			reply(w, r, http.StatusForbidden, rejection)
		case errors.As(err, &notRecorded):
			replyError(w, r, http.StatusServiceUnavailable, "action not provably recorded, refusing to proceed")
		default:
			replyError(w, r, http.StatusInternalServerError, "failed to create job")
		}
		return
	}

	reply(w, r, http.StatusCreated, mappers.JobToApi(snapshot))
}

// (GET /api/v1/jobs)
func (s *ServiceHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	reply(w, r, http.StatusOK, mappers.JobListToApi(s.jobSrv.ListActiveJobs(r.Context())))
}

// (GET /api/v1/jobs/history)
func (s *ServiceHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			replyError(w, r, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	reply(w, r, http.StatusOK, mappers.JobListToApi(s.jobSrv.ListHistory(r.Context(), limit)))
}

// (GET /api/v1/jobs/{id})
func (s *ServiceHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		replyError(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	snapshot, err := s.jobSrv.GetJob(r.Context(), id)
	if err != nil {
		switch err.(type) {
		case *service.ErrJobNotFound:
			replyError(w, r, http.StatusNotFound, err.Error())
		default:
			replyError(w, r, http.StatusInternalServerError, "failed to get job")
		}
		return
	}

	reply(w, r, http.StatusOK, mappers.JobToApi(snapshot))
}

// (DELETE /api/v1/jobs/{id})
func (s *ServiceHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		replyError(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	snapshot, err := s.jobSrv.CancelJob(r.Context(), id)
	if err != nil {
		switch err.(type) {
		case *service.ErrJobNotFound:
			replyError(w, r, http.StatusNotFound, err.Error())
		case *service.ErrJobConflict:
			replyError(w, r, http.StatusConflict, err.Error())
		default:
			replyError(w, r, http.StatusInternalServerError, "failed to cancel job")
		}
		return
	}

	reply(w, r, http.StatusAccepted, mappers.JobToApi(snapshot))
}

func clientAddr(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
