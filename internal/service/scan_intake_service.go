package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"barcode-lookup/internal/constant"
	"barcode-lookup/internal/pkg/apperr"
	"barcode-lookup/internal/pkg/logger"
	"barcode-lookup/pkg/decoder"
	"barcode-lookup/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/patrickmn/go-cache"
)

// ScanSink is the part of the session controller the intake drives.
type ScanSink interface {
	OnCodeScanned(code string) error
	SubmitLookup(ctx context.Context) (uint64, error)
}

type IScanIntakeService interface {
	// Consume subscribes to the scan topic and feeds the session until ctx is done.
	Consume(ctx context.Context) error
	// Publish puts one decoder event on the scan topic.
	Publish(ev decoder.ScanEvent) error
	// RunSource publishes everything src emits until it stops.
	RunSource(ctx context.Context, src decoder.Source) error
	// HandleRemote accepts a scan.captured event from another station.
	HandleRemote(ctx context.Context, event events.Event) error
}

type ScanIntakeOptions struct {
	Debounce   time.Duration
	AutoSubmit bool
}

type scanIntakeService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	sink       ScanSink
	logger     logger.ILogger
	recent     *cache.Cache
	autoSubmit bool
}

func NewScanIntakeService(
	pubSub *gochannel.GoChannel,
	topicName string,
	sink ScanSink,
	log logger.ILogger,
	opts ScanIntakeOptions,
) IScanIntakeService {
	s := &scanIntakeService{
		pubSub:     pubSub,
		topicName:  topicName,
		sink:       sink,
		logger:     log,
		autoSubmit: opts.AutoSubmit,
	}
	if opts.Debounce > 0 {
		s.recent = cache.New(opts.Debounce, 2*opts.Debounce)
	}
	return s
}

func (s *scanIntakeService) Publish(ev decoder.ScanEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal scan event: %w", err)
	}
	return s.pubSub.Publish(s.topicName, message.NewMessage(watermill.NewUUID(), payload))
}

func (s *scanIntakeService) RunSource(ctx context.Context, src decoder.Source) error {
	s.logger.Info(constant.IntakeLoggerModule, "Decoder started", map[string]interface{}{
		"source": src.Name(),
	})
	err := src.Run(ctx, func(ev decoder.ScanEvent) {
		if ev.Source == "" {
			ev.Source = src.Name()
		}
		if err := s.Publish(ev); err != nil {
			s.logger.Error(constant.IntakeLoggerModule, "Failed to publish scan", map[string]interface{}{
				"source": src.Name(),
				"error":  err.Error(),
			})
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error(constant.IntakeLoggerModule, "Decoder stopped", map[string]interface{}{
			"source": src.Name(),
			"error":  err.Error(),
		})
		return err
	}
	s.logger.Info(constant.IntakeLoggerModule, "Decoder stopped", map[string]interface{}{
		"source": src.Name(),
	})
	return nil
}

func (s *scanIntakeService) HandleRemote(_ context.Context, event events.Event) error {
	ev, err := events.ToScanEvent(event)
	if err != nil {
		return err
	}
	return s.Publish(ev)
}

func (s *scanIntakeService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *scanIntakeService) processMessage(ctx context.Context, msg *message.Message) {
	// Every outcome acks: a scan is never worth redelivering.
	defer msg.Ack()

	var ev decoder.ScanEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		s.logger.Error(constant.IntakeLoggerModule, "Failed to unmarshal scan event", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if ev.Failed() {
		s.logger.Warn(constant.IntakeLoggerModule, "Decoder reported failure", map[string]interface{}{
			"source": ev.Source,
			"reason": ev.Err,
		})
		return
	}

	if !ev.Symbology.Supported() {
		s.logger.Warn(constant.IntakeLoggerModule, "Ignoring unsupported symbology", map[string]interface{}{
			"source":    ev.Source,
			"symbology": string(ev.Symbology),
		})
		return
	}

	if s.recent != nil {
		if err := s.recent.Add(ev.Code, struct{}{}, cache.DefaultExpiration); err != nil {
			s.logger.Debug(constant.IntakeLoggerModule, "Dropping repeated scan", map[string]interface{}{
				"code":   ev.Code,
				"source": ev.Source,
			})
			return
		}
	}

	if err := s.sink.OnCodeScanned(ev.Code); err != nil {
		// A rejected code was never seen by the session; let a rescan through.
		if s.recent != nil {
			s.recent.Delete(ev.Code)
		}
		s.logger.Warn(constant.IntakeLoggerModule, "Scan rejected", map[string]interface{}{
			"code":  ev.Code,
			"kind":  apperr.KindOf(err).String(),
			"error": err.Error(),
		})
		return
	}

	if !s.autoSubmit {
		return
	}
	if _, err := s.sink.SubmitLookup(ctx); err != nil {
		s.logger.Warn(constant.IntakeLoggerModule, "Auto submit rejected", map[string]interface{}{
			"code":  ev.Code,
			"kind":  apperr.KindOf(err).String(),
			"error": err.Error(),
		})
	}
}
