package sse

import (
	"context"

	"github.com/kbukum/prefkit/event"
)

// Relay forwards envelopes published on topics to the hub until ctx ends.
func Relay(ctx context.Context, bus *event.Bus, hub *Hub, topics ...string) error {
	merged := make(chan event.Envelope)
	for _, topic := range topics {
		ch, err := bus.Subscribe(ctx, topic)
		if err != nil {
			return err
		}
		go func(ch <-chan event.Envelope) {
			for env := range ch {
				select {
				case merged <- env:
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-merged:
			hub.Broadcast(env.Topic, Frame{ID: env.ID, Event: env.Topic, Data: env.Payload})
		}
	}
}
