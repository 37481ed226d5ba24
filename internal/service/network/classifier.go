package network

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"sync/atomic"

	networkRepo "beps/internal/domain/repositories/network"
	notifRepo "beps/internal/domain/repositories/notification"
	networkSvc "beps/internal/domain/services/network"
)

type ipRange struct {
	start netip.Addr
	end   netip.Addr
	label string
}

func (r ipRange) contains(a netip.Addr) bool {
	return r.start.Compare(a) <= 0 && a.Compare(r.end) <= 0
}

// classifier implements the IPClassifier interface. The range list is
// replaced wholesale on reload; readers never take a lock.
type classifier struct {
	repo   networkRepo.IPRangeRepository
	ranges atomic.Pointer[[]ipRange]
	logger *slog.Logger
}

// NewClassifier creates a classifier and loads the ranges once.
func NewClassifier(ctx context.Context, repo networkRepo.IPRangeRepository, logger *slog.Logger) (networkSvc.IPClassifier, error) {
	c := &classifier{repo: repo, logger: logger}
	empty := []ipRange{}
	c.ranges.Store(&empty)
	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// IsInternal reports whether ip is an IPv4 address inside a loaded range.
// IPv6, including IPv4-mapped forms, is always external.
func (c *classifier) IsInternal(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil || !addr.Is4() {
		return false
	}
	for _, r := range *c.ranges.Load() {
		if r.contains(addr) {
			return true
		}
	}
	return false
}

// Reload reads the ranges and swaps them in. On error the previous list stays.
func (c *classifier) Reload(ctx context.Context) error {
	rows, err := c.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load ip ranges: %w", err)
	}

	ranges := make([]ipRange, 0, len(rows))
	for _, row := range rows {
		start, serr := netip.ParseAddr(strings.TrimSpace(row.StartIP))
		end, eerr := netip.ParseAddr(strings.TrimSpace(row.EndIP))
		if serr != nil || eerr != nil || !start.Is4() || !end.Is4() || end.Less(start) {
			c.logger.Warn("skipping invalid ip range",
				"range_id", row.ID,
				"start_ip", row.StartIP,
				"end_ip", row.EndIP,
			)
			continue
		}
		ranges = append(ranges, ipRange{start: start, end: end, label: row.Label})
	}

	c.ranges.Store(&ranges)
	c.logger.Info("ip ranges loaded", "count", len(ranges))
	return nil
}

// Len returns the number of loaded ranges
func (c *classifier) Len() int {
	return len(*c.ranges.Load())
}

// WatchReloads reloads c on every message of sub until ctx ends or the
// subscription closes.
func WatchReloads(ctx context.Context, c networkSvc.IPClassifier, sub notifRepo.Subscription, logger *slog.Logger) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.Messages():
			if !ok {
				return
			}
			if err := c.Reload(ctx); err != nil {
				logger.Error("ip range reload failed", "error", err)
			}
		}
	}
}
