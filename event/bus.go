package event

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/kbukum/prefkit/logger"
)

// Topics published by the engine.
const (
	TopicPreferencesChanged = "preferences.changed"
	TopicRootsChanged       = "roots.changed"
)

// Envelope is a message received from the bus.
type Envelope struct {
	ID      string          `json:"id"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Bus is a topic based publish/subscribe channel for consumers outside the
// engine. Delivery is asynchronous; each subscriber gets its own channel.
type Bus struct {
	pubsub *gochannel.GoChannel
	log    *logger.Logger

	mu     sync.Mutex
	closed bool
}

// NewBus creates a bus backed by an in-memory watermill gochannel.
func NewBus(log *logger.Logger) *Bus {
	if log == nil {
		log = logger.Get("bus")
	}
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 64,
				Persistent:          false,
			},
			newWatermillLogger(log),
		),
		log: log,
	}
}

// Publish marshals payload to JSON and publishes it on topic.
func (b *Bus) Publish(topic string, payload any) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := message.NewMessage(uuid.NewString(), data)
	return b.pubsub.Publish(topic, msg)
}

// Subscribe returns a channel of envelopes published on topic. The channel
// closes when ctx is done or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan Envelope, error) {
	msgs, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}
	out := make(chan Envelope, 16)
	go func() {
		defer close(out)
		for msg := range msgs {
			env := Envelope{ID: msg.UUID, Topic: topic, Payload: json.RawMessage(msg.Payload)}
			msg.Ack()
			select {
			case out <- env:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close shuts the bus down and closes every subscription channel.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	return b.pubsub.Close()
}

// watermillLogger routes watermill's internal logging through prefkit's logger.
type watermillLogger struct {
	log *logger.Logger
}

func newWatermillLogger(log *logger.Logger) watermill.LoggerAdapter {
	return &watermillLogger{log: log}
}

func (w *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.log.WithError(err).Error(msg, fields)
}

func (w *watermillLogger) Info(msg string, fields watermill.LogFields) {
	w.log.Debug(msg, fields)
}

func (w *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.log.Debug(msg, fields)
}

func (w *watermillLogger) Trace(msg string, fields watermill.LogFields) {}

func (w *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{log: w.log.WithFields(fields)}
}
