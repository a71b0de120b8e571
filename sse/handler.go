package sse

import (
	"net/http"
	"time"

	"github.com/kbukum/prefkit/logger"
)

// EventConnected is the first event every client receives.
const EventConnected = "connected"

// KeepAliveInterval is the period of keep-alive comments. It should stay
// below common proxy idle timeouts.
var KeepAliveInterval = 30 * time.Second

// ServeSSE streams frames to one client until the request ends or the hub
// stops.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, clientID string, opts ...ClientOption) {
	log := logger.Get("sse")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// long-lived: the server's write timeout must not apply
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("could not disable write deadline", logger.Fields("client_id", clientID, logger.FieldError, err.Error()))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := NewClient(clientID, opts...)
	if !hub.Register(client) {
		http.Error(w, "event stream closed", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	writeFrame(w, Frame{Event: EventConnected, Data: []byte(`{"client_id":"` + clientID + `"}`)})
	flusher.Flush()

	keepAlive := time.NewTicker(KeepAliveInterval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-client.Frames():
			if !ok {
				return
			}
			writeFrame(w, f)
			flusher.Flush()
		case <-keepAlive.C:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		}
	}
}

func writeFrame(w http.ResponseWriter, f Frame) {
	buf := make([]byte, 0, len(f.Data)+64)
	if f.ID != "" {
		buf = append(buf, "id: "+f.ID+"\n"...)
	}
	if f.Event != "" {
		buf = append(buf, "event: "+f.Event+"\n"...)
	}
	buf = append(buf, "data: "...)
	buf = append(buf, f.Data...)
	buf = append(buf, "\n\n"...)
	_, _ = w.Write(buf)
}
