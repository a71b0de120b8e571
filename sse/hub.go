package sse

import (
	"slices"
	"sync"

	"github.com/kbukum/prefkit/logger"
)

// Frame is one event sent to a client.
type Frame struct {
	ID    string
	Event string
	Data  []byte
}

// Client is a connected SSE client.
type Client struct {
	id     string
	topics []string
	frames chan Frame
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTopics limits the client to the given topics. A client without topics
// receives everything.
func WithTopics(topics ...string) ClientOption {
	return func(c *Client) { c.topics = append(c.topics, topics...) }
}

// NewClient creates a client.
func NewClient(id string, opts ...ClientOption) *Client {
	c := &Client{
		id:     id,
		frames: make(chan Frame, 256),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the client's identifier.
func (c *Client) ID() string { return c.id }

// Topics returns the topics the client listens to.
func (c *Client) Topics() []string { return c.topics }

// Frames returns the channel of frames for the client.
func (c *Client) Frames() <-chan Frame { return c.frames }

// Wants reports whether the client listens to topic.
func (c *Client) Wants(topic string) bool {
	return len(c.topics) == 0 || slices.Contains(c.topics, topic)
}

// Send queues f. It returns false when the client is too slow to keep up.
func (c *Client) Send(f Frame) bool {
	select {
	case c.frames <- f:
		return true
	default:
		logger.Get("sse").Warn("client channel full, dropping frame", logger.Fields("client_id", c.id, "event", f.Event))
		return false
	}
}

// Close closes the client's frame channel.
func (c *Client) Close() {
	close(c.frames)
}

type message struct {
	topic string
	frame Frame
}

// Hub manages client connections and broadcasting.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	stopped    bool
	mu         sync.RWMutex
	log        *logger.Logger
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
		log:        logger.Get("sse"),
	}
}

// Run is the hub's event loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client registered", logger.Fields("client_id", client.id, logger.FieldCount, total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				client.Close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client unregistered", logger.Fields("client_id", client.id, logger.FieldCount, total))

		case msg := <-h.broadcast:
			h.send(msg)
		}
	}
}

// Stop shuts the hub down and closes every client. Safe to call more than
// once.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.stopped {
		h.stopped = true
		close(h.done)
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		client.Close()
		delete(h.clients, id)
	}
}

// Register adds a client. It returns false when the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast sends f to every client listening to topic.
func (h *Hub) Broadcast(topic string, f Frame) {
	select {
	case h.broadcast <- message{topic: topic, frame: f}:
	case <-h.done:
	}
}

func (h *Hub) send(msg message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, client := range h.clients {
		if client.Wants(msg.topic) && client.Send(msg.frame) {
			sent++
		}
	}
	h.log.Debug("broadcast sent", logger.Fields("topic", msg.topic, logger.FieldCount, sent))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ClientIDs returns the IDs of connected clients.
func (h *Hub) ClientIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}
