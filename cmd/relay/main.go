// Command relay reads a local scanner and publishes every scan to NATS as
// events.scan.captured, feeding stations that subscribe to remote scans.
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
	"barcode-lookup/pkg/decoder"
	"barcode-lookup/pkg/events"
	pktNats "barcode-lookup/pkg/nats"
)

func main() {
	cfg := config.Load()
	if cfg.Events.NatsURL == "" {
		log.Fatal("NATS_URL is required")
	}

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer sysLogger.Sync()

	source, err := bootstrap.NewSource(cfg.Decoder)
	if err != nil {
		log.Fatalf("Unable to open decoder: %v", err)
	}
	if source == nil {
		log.Fatal("DECODER=none leaves nothing to relay")
	}

	pub, err := pktNats.NewPublisher(cfg.Events.NatsURL, sysLogger)
	if err != nil {
		log.Fatalf("Unable to connect to NATS: %v", err)
	}
	defer pub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = source.Run(ctx, func(ev decoder.ScanEvent) {
		if ev.Source == "" {
			ev.Source = source.Name()
		}
		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pub.Publish(pubCtx, events.ScanCaptured(ev)); err != nil {
			sysLogger.Warn(constant.RelayLoggerModule, "Failed to relay scan", map[string]interface{}{
				"code":  ev.Code,
				"error": err.Error(),
			})
			return
		}
		sysLogger.Info(constant.RelayLoggerModule, "Scan relayed", map[string]interface{}{"code": ev.Code, "source": ev.Source})
	})
	if err != nil && ctx.Err() == nil {
		log.Fatalf("Decoder stopped: %v", err)
	}
}
