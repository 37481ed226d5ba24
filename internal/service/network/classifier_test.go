package network

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	models "beps/internal/domain/models/network"
)

type fakeRanges struct {
	mu   sync.Mutex
	rows []models.IPRange
	err  error
}

func (f *fakeRanges) List(context.Context) ([]models.IPRange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.IPRange(nil), f.rows...), f.err
}

func (f *fakeRanges) set(rows ...models.IPRange) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = rows
}

type fakeSubscription struct {
	ch     chan string
	closed chan struct{}
	once   sync.Once
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{ch: make(chan string), closed: make(chan struct{})}
}

func (s *fakeSubscription) Messages() <-chan string { return s.ch }

func (s *fakeSubscription) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIsInternal(t *testing.T) {
	repo := &fakeRanges{rows: []models.IPRange{
		{ID: 1, StartIP: "10.0.0.0", EndIP: "10.0.255.255", Label: "office"},
		{ID: 2, StartIP: "192.168.1.10", EndIP: "192.168.1.20", Label: "lab"},
		{ID: 3, StartIP: "fe80::1", EndIP: "fe80::ff", Label: "v6"},
		{ID: 4, StartIP: "172.16.0.9", EndIP: "172.16.0.1", Label: "reversed"},
	}}
	c, err := NewClassifier(context.Background(), repo, testLogger())
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}

	tests := []struct {
		ip   string
		want bool
	}{
		{"10.0.0.0", true},
		{"10.0.255.255", true},
		{"10.1.0.0", false},
		{"192.168.1.10", true},
		{"192.168.1.20", true},
		{"192.168.1.21", false},
		{"172.16.0.5", false},
		{"8.8.8.8", false},
		{"fe80::10", false},
		{"::ffff:10.0.0.1", false},
		{"2001:db8::1", false},
		{"not-an-ip", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := c.IsInternal(tt.ip); got != tt.want {
			t.Errorf("IsInternal(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}

func TestReloadKeepsRangesOnError(t *testing.T) {
	repo := &fakeRanges{rows: []models.IPRange{{ID: 1, StartIP: "10.0.0.1", EndIP: "10.0.0.1"}}}
	c, err := NewClassifier(context.Background(), repo, testLogger())
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	repo.err = errors.New("db down")
	if err := c.Reload(context.Background()); err == nil {
		t.Fatal("Reload() succeeded with failing repository")
	}
	if !c.IsInternal("10.0.0.1") {
		t.Error("ranges dropped after failed reload")
	}
}

func TestWatchReloads(t *testing.T) {
	repo := &fakeRanges{}
	c, err := NewClassifier(context.Background(), repo, testLogger())
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	if c.IsInternal("10.0.0.1") {
		t.Fatal("internal before any range is loaded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := newFakeSubscription()
	done := make(chan struct{})
	go func() {
		WatchReloads(ctx, c, sub, testLogger())
		close(done)
	}()

	repo.set(models.IPRange{ID: 1, StartIP: "10.0.0.0", EndIP: "10.0.0.255"})
	sub.ch <- "reload"
	// The second send only completes once the first reload has finished.
	sub.ch <- "reload"
	if !c.IsInternal("10.0.0.1") {
		t.Error("reload message did not refresh ranges")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
	select {
	case <-sub.closed:
	default:
		t.Error("subscription not closed")
	}
}
