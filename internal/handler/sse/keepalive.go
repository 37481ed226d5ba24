package sse

import (
	"log/slog"
	"sync"
	"time"
)

// KeepAliveStrategy decides when keep-alive comments are written.
type KeepAliveStrategy interface {
	// Start begins sending keep-alive pings using the provided writer.
	// The returned channel closes once the strategy stops, either on Stop or
	// after a failed write.
	Start(writer KeepAliveWriter, logger *slog.Logger) <-chan struct{}

	Stop()
}

// KeepAliveWriter writes one keep-alive message.
type KeepAliveWriter interface {
	WriteKeepAlive() error
}

// TickerKeepAlive writes a keep-alive at a fixed interval
type TickerKeepAlive struct {
	interval time.Duration
	done     chan struct{}
	once     sync.Once
}

// NewTickerKeepAlive creates a new ticker-based keep-alive strategy
func NewTickerKeepAlive(interval time.Duration) *TickerKeepAlive {
	return &TickerKeepAlive{
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start implements KeepAliveStrategy
func (k *TickerKeepAlive) Start(writer KeepAliveWriter, logger *slog.Logger) <-chan struct{} {
	stopped := make(chan struct{})
	ticker := time.NewTicker(k.interval)

	go func() {
		defer close(stopped)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := writer.WriteKeepAlive(); err != nil {
					logger.Debug("keep-alive write failed, stopping", "error", err)
					return
				}
			case <-k.done:
				return
			}
		}
	}()

	return stopped
}

// Stop is safe to call more than once
func (k *TickerKeepAlive) Stop() {
	k.once.Do(func() { close(k.done) })
}
