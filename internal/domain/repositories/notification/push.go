package notification

import (
	"context"
	"time"

	models "beps/internal/domain/models/notification"
	statsModels "beps/internal/domain/models/statistics"
)

// PushRepository persists push messages.
type PushRepository interface {
	// ListRecipients returns live users matching the filter with their completed page counts.
	ListRecipients(ctx context.Context, filter statsModels.Filter) ([]models.Recipient, error)
	CountPages(ctx context.Context) (int64, error)

	InsertMessages(ctx context.Context, messages []*models.PushMessage) error

	// TrimPerUser keeps only the newest keep messages of each user.
	TrimPerUser(ctx context.Context, userIDs []string, keep int) (int64, error)

	// Latest returns up to limit newest messages of the user, newest first.
	Latest(ctx context.Context, userID string, limit int) ([]models.PushMessage, error)
	MarkRead(ctx context.Context, userID string, ids []int64) error
}

// PushCache is the per-user bounded message list and alert channel.
type PushCache interface {
	// Append right-pushes payload, trims to the last limit entries, extends the
	// TTL and returns the resulting list length.
	Append(ctx context.Context, userID string, payload []byte, limit int, ttl time.Duration) (int64, error)

	// Replace rewrites the whole list.
	Replace(ctx context.Context, userID string, payloads [][]byte, limit int, ttl time.Duration) error

	Exists(ctx context.Context, userID string) (bool, error)
	List(ctx context.Context, userID string) ([][]byte, error)
	Len(ctx context.Context, userID string) (int64, error)
	Touch(ctx context.Context, userID string, ttl time.Duration) error

	Publish(ctx context.Context, userID string, payload []byte) error
	Subscribe(ctx context.Context, userID string) (Subscription, error)
}

// Subscription is a live pub/sub subscription.
type Subscription interface {
	Messages() <-chan string
	Close() error
}
