package sse

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// Stream writes server-sent events. Writes are serialized so the keep-alive
// goroutine and the event loop can share one connection.
type Stream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

// Open sets the event-stream headers and flushes them to the client.
func Open(w http.ResponseWriter) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Stream{w: w, flusher: flusher}, nil
}

// WriteEvent writes one event. Multi-line data is split into data lines.
func (s *Stream) WriteEvent(event, data string) error {
	var b strings.Builder
	if event != "" {
		fmt.Fprintf(&b, "event: %s\n", event)
	}
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	return s.write(b.String())
}

// WriteKeepAlive writes an SSE comment line.
func (s *Stream) WriteKeepAlive() error {
	return s.write(": keepalive\n\n")
}

func (s *Stream) write(payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write([]byte(payload)); err != nil {
		return fmt.Errorf("sse write failed: %w", err)
	}
	s.flusher.Flush()
	return nil
}
