package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"barcode-lookup/internal/constant"
	"barcode-lookup/internal/pkg/logger"
	"barcode-lookup/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher sends station events to the NATS bus.
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger logger.ILogger
}

func NewPublisher(url string, log logger.ILogger) (*Publisher, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	ensureStream(js, log)
	return &Publisher{nc: nc, js: js, logger: log}, nil
}

func Subject(event events.Event) string {
	return SubjectPrefix + event.EventType()
}

func encode(event events.Event) ([]byte, error) {
	data, err := json.Marshal(event.Payload())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return data, nil
}

// Publish sends an event and waits for the stream ack.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	data, err := encode(event)
	if err != nil {
		return err
	}
	subject := Subject(event)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event to subject %s: %w", subject, err)
	}
	return nil
}

// Announce publishes without waiting for the ack. Session listeners use it
// so a slow broker never stalls a state transition; publish order is kept.
func (p *Publisher) Announce(event events.Event) {
	data, err := encode(event)
	if err != nil {
		p.logger.Error(constant.NatsLoggerModule, "Failed to encode event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
		return
	}
	subject := Subject(event)
	if _, err := p.js.PublishAsync(subject, data); err != nil {
		p.logger.Warn(constant.NatsLoggerModule, "Failed to publish event", map[string]interface{}{
			"subject": subject,
			"error":   err.Error(),
		})
	}
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
