package sse

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/prefkit/component"
	"github.com/kbukum/prefkit/event"
	"github.com/kbukum/prefkit/logger"
)

// Component runs a Hub fed from an event bus.
type Component struct {
	hub    *Hub
	bus    *event.Bus
	topics []string

	wg     sync.WaitGroup
	mu     sync.Mutex
	cancel context.CancelFunc
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a component relaying topics from bus.
func NewComponent(bus *event.Bus, topics ...string) *Component {
	return &Component{hub: NewHub(), bus: bus, topics: topics}
}

// Hub returns the underlying hub.
func (c *Component) Hub() *Hub { return c.hub }

// Name implements component.Component.
func (c *Component) Name() string { return "sse" }

// Start launches the hub loop and the relay.
func (c *Component) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.hub.Run()
	}()
	go func() {
		defer c.wg.Done()
		if err := Relay(ctx, c.bus, c.hub, c.topics...); err != nil {
			logger.Get("sse").Error("event relay stopped", logger.Fields(logger.FieldError, err.Error()))
		}
	}()
	return nil
}

// Stop shuts the relay and hub down.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.hub.Stop()
	c.wg.Wait()
	return nil
}

// Health implements component.Component.
func (c *Component) Health(_ context.Context) component.Health {
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d clients connected", c.hub.ClientCount()),
	}
}
