package server

import (
	"context"

	"github.com/kbukum/prefkit/component"
)

const componentName = "http-server"

var _ component.Component = (*Component)(nil)

// Component runs a Server under the component registry.
type Component struct {
	server *Server
}

// NewComponent wraps s.
func NewComponent(s *Server) *Component {
	return &Component{server: s}
}

// Name implements component.Component.
func (c *Component) Name() string { return componentName }

// Start implements component.Component.
func (c *Component) Start(ctx context.Context) error { return c.server.Start(ctx) }

// Stop implements component.Component.
func (c *Component) Stop(ctx context.Context) error { return c.server.Stop(ctx) }

// Health reports unhealthy until the listener is bound.
func (c *Component) Health(_ context.Context) component.Health {
	c.server.mu.Lock()
	running := c.server.listener != nil
	c.server.mu.Unlock()

	if !running {
		return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: "not listening"}
	}
	return component.Health{Name: componentName, Status: component.StatusHealthy, Message: c.server.Addr()}
}
