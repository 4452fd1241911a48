package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"barcode-lookup/internal/constant"
	"barcode-lookup/internal/pkg/logger"
	"barcode-lookup/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler processes one event. Returning an error naks the message.
type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber listens for events from remote stations.
type Subscriber struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger logger.ILogger

	mu       sync.Mutex
	consumes []jetstream.ConsumeContext
}

func NewSubscriber(url string, log logger.ILogger) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	ensureStream(js, log)
	return &Subscriber{nc: nc, js: js, logger: log}, nil
}

// Subscribe registers a durable consumer for subject. Only messages published
// after the consumer is created are delivered; a station that was down does
// not replay old scans into its session.
func (s *Subscriber) Subscribe(subject string, durableName string, handler EventHandler) error {
	ctx := context.Background()

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		s.handle(msg, handler)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	s.mu.Lock()
	s.consumes = append(s.consumes, cc)
	s.mu.Unlock()

	s.logger.Info(constant.NatsLoggerModule, "Subscribed", map[string]interface{}{
		"subject": subject,
		"durable": durableName,
	})
	return nil
}

func (s *Subscriber) handle(msg jetstream.Msg, handler EventHandler) {
	event, err := Decode(msg.Subject(), msg.Data())
	if err != nil {
		s.logger.Warn(constant.NatsLoggerModule, "Dropping undecodable event", map[string]interface{}{
			"subject": msg.Subject(),
			"error":   err.Error(),
		})
		// Redelivery cannot fix a bad payload.
		_ = msg.Term()
		return
	}

	if err := handler(context.Background(), event); err != nil {
		s.logger.Warn(constant.NatsLoggerModule, "Handler failed", map[string]interface{}{
			"subject": msg.Subject(),
			"error":   err.Error(),
		})
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}

// Decode rebuilds an event from a subject and its JSON payload.
func Decode(subject string, data []byte) (events.Event, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal event data: %w", err)
	}
	return events.BaseEvent{
		Type:       strings.TrimPrefix(subject, SubjectPrefix),
		Data:       payload,
		OccurredAt: time.Now(),
	}, nil
}

func (s *Subscriber) Close() {
	s.mu.Lock()
	for _, cc := range s.consumes {
		cc.Stop()
	}
	s.consumes = nil
	s.mu.Unlock()

	if s.nc != nil {
		s.nc.Close()
	}
}
