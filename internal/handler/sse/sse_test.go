package sse

import (
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestStreamWriteEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	s, err := Open(rec)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.WriteEvent("message_alert", `{"count":3}`); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if err := s.WriteEvent("", "a\nb"); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if err := s.WriteKeepAlive(); err != nil {
		t.Fatalf("WriteKeepAlive: %v", err)
	}

	want := "event: message_alert\ndata: {\"count\":3}\n\n" +
		"data: a\ndata: b\n\n" +
		": keepalive\n\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
}

type countingWriter struct {
	calls atomic.Int32
	fail  bool
}

func (c *countingWriter) WriteKeepAlive() error {
	c.calls.Add(1)
	if c.fail {
		return errors.New("closed")
	}
	return nil
}

func TestTickerKeepAliveStopsOnWriteError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := &countingWriter{fail: true}
	k := NewTickerKeepAlive(time.Millisecond)

	select {
	case <-k.Start(w, logger):
	case <-time.After(time.Second):
		t.Fatal("keep-alive did not stop after a failed write")
	}
	if w.calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", w.calls.Load())
	}
	k.Stop()
	k.Stop()
}

func TestTickerKeepAliveStop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	k := NewTickerKeepAlive(time.Hour)
	stopped := k.Start(&countingWriter{}, logger)
	k.Stop()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("keep-alive did not stop")
	}
}
