package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	api "github.com/wipeguard/wipeguard/internal/api/v1"
	"github.com/wipeguard/wipeguard/internal/events"
	"github.com/wipeguard/wipeguard/internal/service"
	"github.com/wipeguard/wipeguard/pkg/requestid"
)

type ServiceHandler struct {
	jobSrv      *service.JobService
	auditSrv    *service.AuditService
	deviceSrv   *service.DeviceService
	broadcaster *events.Broadcaster
}

func NewServiceHandler(jobService *service.JobService, auditService *service.AuditService, deviceService *service.DeviceService, broadcaster *events.Broadcaster) *ServiceHandler {
	return &ServiceHandler{
		jobSrv:      jobService,
		auditSrv:    auditService,
		deviceSrv:   deviceService,
		broadcaster: broadcaster,
	}
}

func (s *ServiceHandler) Routes(r chi.Router) {
	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", s.CreateJob)
		r.Get("/", s.ListJobs)
		r.Get("/history", s.ListHistory)
		r.Get("/{id}", s.GetJob)
		r.Delete("/{id}", s.CancelJob)
	})
	r.Get("/devices", s.ListDevices)
	r.Route("/audit", func(r chi.Router) {
		r.Get("/", s.QueryAudit)
		r.Get("/export", s.ExportAudit)
		r.Get("/verify", s.VerifyAudit)
	})
	r.Get("/events", s.StreamEvents)
}

func replyError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	if err := render.Render(w, r, api.Error{Message: message, RequestId: requestid.FromContextPtr(r.Context())}); err != nil {
		zap.S().Named("handlers").Errorw("failed to render error reply", "error", err)
	}
}

func reply(w http.ResponseWriter, r *http.Request, status int, v render.Renderer) {
	render.Status(r, status)
	if err := render.Render(w, r, v); err != nil {
		zap.S().Named("handlers").Errorw("failed to render reply", "error", err)
	}
}
