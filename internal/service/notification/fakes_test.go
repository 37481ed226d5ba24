package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"beps/internal/domain/models"
	notifModels "beps/internal/domain/models/notification"
	statsModels "beps/internal/domain/models/statistics"
	"beps/internal/domain/repositories"
	notifRepo "beps/internal/domain/repositories/notification"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePushRepo keeps messages in insertion order.
type fakePushRepo struct {
	recipients []notifModels.Recipient
	pages      int64
	messages   []notifModels.PushMessage
	nextID     int64
	marked     []int64
}

func (f *fakePushRepo) ListRecipients(context.Context, statsModels.Filter) ([]notifModels.Recipient, error) {
	return f.recipients, nil
}

func (f *fakePushRepo) CountPages(context.Context) (int64, error) { return f.pages, nil }

func (f *fakePushRepo) InsertMessages(_ context.Context, messages []*notifModels.PushMessage) error {
	for _, m := range messages {
		f.nextID++
		m.ID = f.nextID
		f.messages = append(f.messages, *m)
	}
	return nil
}

func (f *fakePushRepo) TrimPerUser(_ context.Context, userIDs []string, keep int) (int64, error) {
	targets := map[string]bool{}
	for _, id := range userIDs {
		targets[id] = true
	}
	perUser := map[string]int{}
	var kept []notifModels.PushMessage
	var removed int64
	// newest first
	for i := len(f.messages) - 1; i >= 0; i-- {
		m := f.messages[i]
		if targets[m.UserID] {
			perUser[m.UserID]++
			if perUser[m.UserID] > keep {
				removed++
				continue
			}
		}
		kept = append(kept, m)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].ID < kept[j].ID })
	f.messages = kept
	return removed, nil
}

func (f *fakePushRepo) Latest(_ context.Context, userID string, limit int) ([]notifModels.PushMessage, error) {
	var out []notifModels.PushMessage
	for i := len(f.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if f.messages[i].UserID == userID {
			out = append(out, f.messages[i])
		}
	}
	return out, nil
}

func (f *fakePushRepo) MarkRead(_ context.Context, userID string, ids []int64) error {
	f.marked = append(f.marked, ids...)
	set := map[int64]bool{}
	for _, id := range ids {
		set[id] = true
	}
	for i := range f.messages {
		if f.messages[i].UserID == userID && set[f.messages[i].ID] {
			f.messages[i].IsRead = true
		}
	}
	return nil
}

func (f *fakePushRepo) count(userID string) int {
	n := 0
	for _, m := range f.messages {
		if m.UserID == userID {
			n++
		}
	}
	return n
}

// fakePushCache mirrors the list semantics of the Redis cache.
type fakePushCache struct {
	mu        sync.Mutex
	lists     map[string][][]byte
	ttls      map[string]time.Duration
	published map[string][]string
	maxLen    int
}

func newFakePushCache() *fakePushCache {
	return &fakePushCache{
		lists:     map[string][][]byte{},
		ttls:      map[string]time.Duration{},
		published: map[string][]string{},
	}
}

func (c *fakePushCache) Append(_ context.Context, userID string, payload []byte, limit int, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := append(c.lists[userID], payload)
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	c.lists[userID] = list
	c.ttls[userID] = ttl
	if len(list) > c.maxLen {
		c.maxLen = len(list)
	}
	return int64(len(list)), nil
}

func (c *fakePushCache) Replace(_ context.Context, userID string, payloads [][]byte, limit int, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(payloads) > limit {
		payloads = payloads[len(payloads)-limit:]
	}
	c.lists[userID] = payloads
	c.ttls[userID] = ttl
	return nil
}

func (c *fakePushCache) Exists(_ context.Context, userID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.lists[userID]
	return ok, nil
}

func (c *fakePushCache) List(_ context.Context, userID string) ([][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.lists[userID]...), nil
}

func (c *fakePushCache) Len(_ context.Context, userID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.lists[userID])), nil
}

func (c *fakePushCache) Touch(_ context.Context, userID string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttls[userID] = ttl
	return nil
}

func (c *fakePushCache) Publish(_ context.Context, userID string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published[userID] = append(c.published[userID], string(payload))
	return nil
}

func (c *fakePushCache) Subscribe(context.Context, string) (notifRepo.Subscription, error) {
	return nil, nil
}

type fakeTx struct{ calls int }

func (f *fakeTx) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	f.calls++
	return fn(ctx)
}

// fakePeer records frames; Close marks it closed.
type fakePeer struct {
	id     string
	mu     sync.Mutex
	frames []notifModels.ServerFrame
	closed bool
}

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Send(f notifModels.ServerFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, f)
	return nil
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePeer) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.frames))
	for i, f := range p.frames {
		out[i] = f.Type
	}
	return out
}

func (p *fakePeer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type fakeRevoker struct {
	mu     sync.Mutex
	tokens []string
}

func (r *fakeRevoker) Logout(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, token)
	return nil
}

// fakeVerifier maps accepted tokens to their subject.
type fakeVerifier map[string]string

func (v fakeVerifier) VerifyToken(token string) (*models.TokenClaims, error) {
	sub, ok := v[token]
	if !ok {
		return nil, errors.New("signature is invalid")
	}
	claims := &models.TokenClaims{}
	claims.Subject = sub
	return claims, nil
}
