package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apiserver "github.com/wipeguard/wipeguard/internal/api_server"
	"github.com/wipeguard/wipeguard/internal/audit"
	"github.com/wipeguard/wipeguard/internal/config"
	"github.com/wipeguard/wipeguard/internal/events"
	"github.com/wipeguard/wipeguard/internal/executor"
	"github.com/wipeguard/wipeguard/internal/inventory"
	"github.com/wipeguard/wipeguard/internal/registry"
	"github.com/wipeguard/wipeguard/internal/safety"
	"github.com/wipeguard/wipeguard/internal/service"
	"github.com/wipeguard/wipeguard/internal/store"
	"github.com/wipeguard/wipeguard/pkg/log"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the wipeguard api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		logger := log.InitLog(log.ParseLevel(cfg.Service.LogLevel))
		defer func() { _ = logger.Sync() }()
		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Info("Starting API service")
		defer zap.S().Info("API service stopped")

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		dataStore := store.NewStore(db)
		defer dataStore.Close()

		if err := dataStore.InitialMigration(); err != nil {
			zap.S().Fatalw("running initial migration", "error", err)
		}

		trail := audit.NewTrail(dataStore)

		broadcaster := events.NewBroadcaster(&events.StdoutWriter{}, events.WithOutputTopic(cfg.Service.EventTopic))
		defer func() { _ = broadcaster.Close() }()

		inv, err := newInventory(cfg)
		if err != nil {
			zap.S().Fatalw("loading device inventory", "error", err)
		}

		limiter := safety.NewRateLimiter(cfg.Safety.RateLimitAttempts, cfg.Safety.RateLimitWindow)
		validator := safety.NewValidator(inv, trail, limiter, cfg.Safety.DeniedTargets, cfg.Safety.ProtectedPrefixes)

		reg := registry.New(registry.Config{
			CancelGracePeriod:  cfg.Registry.CancelGracePeriod,
			HistoryGracePeriod: cfg.Registry.HistoryGracePeriod,
			HistoryCap:         cfg.Registry.HistoryCap,
			LogLineCap:         cfg.Registry.LogLineCap,
			SweepInterval:      cfg.Registry.SweepInterval,
		}, validator, trail, broadcaster, executor.NewShellExecutor(cfg.Service.EraseCommand))

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		go reg.Run(ctx)

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			server := apiserver.New(
				cfg,
				dataStore,
				listener,
				service.NewJobService(reg),
				service.NewAuditService(trail),
				service.NewDeviceService(inv),
				broadcaster,
			)
			if err := server.Run(ctx); err != nil {
				zap.S().Fatalw("running api server", "error", err)
			}
		}()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				zap.S().Fatalw("creating metrics listener", "error", err)
			}

			metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener)
			if err := metricsServer.Run(ctx); err != nil {
				zap.S().Fatalw("running metrics server", "error", err)
			}
		}()

		<-ctx.Done()
		return nil
	},
}

func newInventory(cfg *config.Config) (inventory.Inventory, error) {
	if cfg.Service.InventoryFile != "" {
		return inventory.NewFromFile(cfg.Service.InventoryFile)
	}
	return inventory.NewStatic(nil), nil
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
