package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/wipeguard/wipeguard/internal/config"
	"github.com/wipeguard/wipeguard/internal/events"
	handlers "github.com/wipeguard/wipeguard/internal/handlers/v1"
	"github.com/wipeguard/wipeguard/internal/service"
	"github.com/wipeguard/wipeguard/internal/store"
	"github.com/wipeguard/wipeguard/pkg/metrics"
	"github.com/wipeguard/wipeguard/pkg/middleware"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg         *config.Config
	store       store.Store
	listener    net.Listener
	jobSrv      *service.JobService
	auditSrv    *service.AuditService
	deviceSrv   *service.DeviceService
	broadcaster *events.Broadcaster
}

// New returns a new instance of a wipeguard server.
func New(
	cfg *config.Config,
	store store.Store,
	listener net.Listener,
	jobService *service.JobService,
	auditService *service.AuditService,
	deviceService *service.DeviceService,
	broadcaster *events.Broadcaster,
) *Server {
	return &Server{
		cfg:         cfg,
		store:       store,
		listener:    listener,
		jobSrv:      jobService,
		auditSrv:    auditService,
		deviceSrv:   deviceService,
		broadcaster: broadcaster,
	}
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	router := chi.NewRouter()

	metricMiddleware := metrics.NewMiddleware("api_server")
	metricMiddleware.MustRegisterDefault()

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: false,
			MaxAge:           300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	h := handlers.NewServiceHandler(s.jobSrv, s.auditSrv, s.deviceSrv, s.broadcaster)
	router.Route("/api/v1", h.Routes)

	srv := http.Server{Addr: s.cfg.Service.Address, Handler: router}

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}
