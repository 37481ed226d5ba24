package redis

import (
	"context"
	"fmt"
	"sync"

	notifRepo "beps/internal/domain/repositories/notification"

	goredis "github.com/redis/go-redis/v9"
)

// subscription adapts a go-redis PubSub to notifRepo.Subscription, exposing
// payloads only.
type subscription struct {
	pubsub *goredis.PubSub
	out    chan string
	once   sync.Once
	done   chan struct{}
}

// Subscribe opens a subscription on channel and waits for the server to
// confirm it, so no publish issued after return is missed.
func Subscribe(ctx context.Context, client *goredis.Client, channel string) (notifRepo.Subscription, error) {
	ps := client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	s := &subscription{
		pubsub: ps,
		out:    make(chan string, 16),
		done:   make(chan struct{}),
	}
	go s.forward()
	return s, nil
}

func (s *subscription) forward() {
	defer close(s.out)
	in := s.pubsub.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- msg.Payload:
			case <-s.done:
				return
			}
		}
	}
}

// Messages returns the payload stream. It is closed after Close.
func (s *subscription) Messages() <-chan string {
	return s.out
}

// Close unsubscribes and stops forwarding
func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}

// Publish sends payload on channel
func Publish(ctx context.Context, client *goredis.Client, channel string, payload []byte) error {
	if err := client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}
