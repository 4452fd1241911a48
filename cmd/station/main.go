package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barcode-lookup/internal/bootstrap"
	"barcode-lookup/internal/config"
	"barcode-lookup/internal/constant"
	"barcode-lookup/internal/pkg/logger"
	"barcode-lookup/internal/server"
	"barcode-lookup/internal/tracer"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer sysLogger.Sync()

	// 2. Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer(cfg.Tracing, sysLogger)
	defer shutdownTracer(context.Background())

	// 3. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(cfg, sysLogger)
	if err != nil {
		log.Fatalf("Unable to build station: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Start Background Services
	go container.WebSocketHub.Run(ctx)

	if err := container.ScanIntake.Consume(ctx); err != nil {
		log.Fatalf("Unable to start scan intake: %v", err)
	}

	if container.Source != nil {
		go func() {
			_ = container.ScanIntake.RunSource(ctx, container.Source)
		}()
	}

	if cfg.Torch.OnStart {
		// Best effort: a station without a light still scans.
		_ = container.Session.SetTorch(ctx, true)
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Run()
	}()

	select {
	case <-ctx.Done():
		sysLogger.Info(constant.StationLoggerModule, "Shutting down", nil)
	case err := <-serverErr:
		sysLogger.Error(constant.StationLoggerModule, "Server stopped", map[string]interface{}{"error": err})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sysLogger.Warn(constant.StationLoggerModule, "Server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	if container.Torch.IsTorchAvailable() {
		_ = container.Torch.SetTorch(shutdownCtx, false)
	}
	container.Close(shutdownCtx)
}
