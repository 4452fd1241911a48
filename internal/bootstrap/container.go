package bootstrap

import (
	"context"
	"fmt"
	"os"

	"barcode-lookup/internal/config"
	"barcode-lookup/internal/constant"
	"barcode-lookup/internal/controller"
	"barcode-lookup/internal/handler"
	"barcode-lookup/internal/pkg/logger"
	"barcode-lookup/internal/service"
	"barcode-lookup/internal/websocket"
	"barcode-lookup/pkg/decoder"
	"barcode-lookup/pkg/events"
	"barcode-lookup/pkg/lookup"
	pktNats "barcode-lookup/pkg/nats"
	"barcode-lookup/pkg/session"
	"barcode-lookup/pkg/torch"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	Logger logger.ILogger

	// Domain
	Session *session.Controller
	Torch   torch.Torch

	// Controllers
	SessionController controller.ISessionController
	DisplayHandler    *handler.DisplayHandler

	// Background services (run by main.go)
	ScanIntake   service.IScanIntakeService
	Source       decoder.Source
	WebSocketHub *websocket.Hub

	// Infrastructure, nil when not configured
	pubSub  *gochannel.GoChannel
	natsPub *pktNats.Publisher
	natsSub *pktNats.Subscriber
	rdb     *redis.Client
}

func NewContainer(cfg *config.Config, sysLogger logger.ILogger) (*Container, error) {
	// 1. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermillLogger,
	)

	// 2. Infrastructure
	var natsPub *pktNats.Publisher
	var natsSub *pktNats.Subscriber
	if cfg.Events.NatsURL != "" {
		var err error
		natsPub, err = pktNats.NewPublisher(cfg.Events.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn(constant.BootstrapLoggerModule, "Failed to connect NATS publisher", map[string]interface{}{"error": err.Error()})
		}
		natsSub, err = pktNats.NewSubscriber(cfg.Events.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn(constant.BootstrapLoggerModule, "Failed to connect NATS subscriber", map[string]interface{}{"error": err.Error()})
		}
	}

	rdb := newRedis(cfg.Events.RedisURL, sysLogger)

	// 3. Display feed
	wsLogger := sysLogger
	if cfg.App.DisplayLogFilePath != "" {
		wsLogger = logger.NewIsolatedLogger(cfg.App.DisplayLogFilePath)
	}
	wsHub := websocket.NewHub(rdb, wsLogger)

	// 4. Session
	lookupClient := lookup.NewClient(cfg.Lookup.BaseURL, sysLogger)
	light := newTorch(cfg.Torch)

	opts := []session.Option{
		session.WithListener(wsHub.BroadcastSession),
		session.WithTorchListener(wsHub.BroadcastTorch),
	}
	if natsPub != nil {
		opts = append(opts, session.WithListener(func(snap session.Snapshot) {
			natsPub.Announce(events.SessionTransition(snap))
		}))
	}
	scanSession := session.NewController(lookupClient, light, sysLogger, opts...)

	// 5. Scan intake
	intake := service.NewScanIntakeService(
		pubSub,
		constant.TopicScanCaptured,
		scanSession,
		sysLogger,
		service.ScanIntakeOptions{
			Debounce:   cfg.Decoder.Debounce,
			AutoSubmit: cfg.Lookup.AutoSubmit,
		},
	)

	if natsSub != nil {
		if err := natsSub.Subscribe(constant.SubjectScanCaptured, constant.ScanConsumerDurable, intake.HandleRemote); err != nil {
			sysLogger.Warn(constant.BootstrapLoggerModule, "Failed to subscribe to remote scans", map[string]interface{}{"error": err.Error()})
		}
	}

	source, err := NewSource(cfg.Decoder)
	if err != nil {
		return nil, err
	}

	return &Container{
		Logger:            sysLogger,
		Session:           scanSession,
		Torch:             light,
		SessionController: controller.NewSessionController(scanSession),
		DisplayHandler:    handler.NewDisplayHandler(intake, wsHub, sysLogger),
		ScanIntake:        intake,
		Source:            source,
		WebSocketHub:      wsHub,
		pubSub:            pubSub,
		natsPub:           natsPub,
		natsSub:           natsSub,
		rdb:               rdb,
	}, nil
}

// NewSource picks the decoder named by cfg.Kind. "none" yields a nil source:
// codes then arrive only through the API or NATS.
func NewSource(cfg config.DecoderConfig) (decoder.Source, error) {
	switch cfg.Kind {
	case "stdin", "":
		return decoder.NewLineSource(os.Stdin), nil
	case "usb":
		return decoder.NewUSBSource(cfg.USBVendorID, cfg.USBProductID, cfg.USBSerial), nil
	case "simulated":
		return decoder.NewSimulatedSource(cfg.SimulatedCode, cfg.SimulatedInterval), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown decoder %q (want stdin, usb, simulated or none)", cfg.Kind)
	}
}

func newTorch(cfg config.TorchConfig) torch.Torch {
	if cfg.LEDPath == "" {
		return torch.Noop{}
	}
	return torch.NewSysfsLED(cfg.LEDPath)
}

func newRedis(url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn(constant.BootstrapLoggerModule, "Failed to parse Redis URL, using it as address", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Warn(constant.BootstrapLoggerModule, "Failed to connect to Redis, display fan-out disabled", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}

// Close releases the infrastructure connections. In-flight lookups are
// awaited until ctx is done so their final transition still reaches the
// listeners; any still running after that are cancelled.
func (c *Container) Close(ctx context.Context) {
	if err := c.Session.Shutdown(ctx); err != nil {
		c.Logger.Warn(constant.BootstrapLoggerModule, "Cancelled lookups still in flight at shutdown", map[string]interface{}{"error": err.Error()})
	}
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	_ = c.pubSub.Close()
}
