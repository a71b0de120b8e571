// Package sse streams preference and workspace changes to HTTP clients as
// Server-Sent Events.
//
// A Hub tracks connected clients and fans frames out to those subscribed to
// a topic. Relay feeds the hub from the process event bus.
//
//	hub := sse.NewHub()
//	go hub.Run()
//	go sse.Relay(ctx, bus, hub, event.TopicPreferencesChanged, event.TopicRootsChanged)
//	router.GET("/events", func(c *gin.Context) {
//	    sse.ServeSSE(hub, c.Writer, c.Request, uuid.NewString())
//	})
package sse
