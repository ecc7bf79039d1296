package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"ai-recall-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler processes one event. Returning an error NAKs the message for
// redelivery; poison payloads are acked away before the handler runs.
type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber reads run lifecycle events through a durable consumer.
type Subscriber struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewSubscriber(url string) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js}, nil
}

// Subscribe binds a durable consumer for the subject pattern and dispatches
// each event to the handler.
func (s *Subscriber) Subscribe(subject string, durableName string, handler EventHandler) error {
	ctx := context.Background()

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	_, err = consumer.Consume(func(msg jetstream.Msg) {
		event, err := decodeEvent(msg)
		if err != nil {
			// Malformed payloads never get better on redelivery.
			log.Printf("Error unmarshalling event data: %v", err)
			msg.Ack()
			return
		}

		if err := handler(context.Background(), event); err != nil {
			log.Printf("Handler failed for event %s: %v", msg.Subject(), err)
			msg.Nak()
			return
		}
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	log.Printf("Subscribed to %s with durable %s", subject, durableName)
	return nil
}

// decodeEvent rebuilds the published event. Older payloads without an
// envelope fall back to the subject tail for the type.
func decodeEvent(msg jetstream.Msg) (events.Event, error) {
	var env envelope
	if err := json.Unmarshal(msg.Data(), &env); err != nil {
		return nil, err
	}

	eventType := env.Type
	if eventType == "" {
		eventType = strings.TrimPrefix(msg.Subject(), subjectPrefix)
	}
	occurredAt := env.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	return events.BaseEvent{
		Type:       eventType,
		Data:       env.Data,
		OccurredAt: occurredAt,
	}, nil
}

func (s *Subscriber) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}
