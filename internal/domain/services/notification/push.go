package notification

import (
	"context"
	"errors"

	notifModels "beps/internal/domain/models/notification"
	"beps/internal/domain/repositories/notification"
)

// ErrNotLoaded is returned by Count and Read while the user's cache is cold.
var ErrNotLoaded = errors.New("not_loaded")

// PushService fans out push messages and serves the per-user cache.
type PushService interface {
	Send(ctx context.Context, req *SendRequest) (*SendResult, error)
	Load(ctx context.Context, userID string) ([]notifModels.PushMessage, error)
	Read(ctx context.Context, userID string) ([]notifModels.PushMessage, error)
	Count(ctx context.Context, userID string) (int64, error)
	Subscribe(ctx context.Context, userID string) (notification.Subscription, error)
}

// SendRequest selects recipients and carries the message.
type SendRequest struct {
	FilterType  string  `json:"filter_type"`
	FilterValue string  `json:"filter_value"`
	Title       string  `json:"title"`
	Message     string  `json:"message"`
	PointValue  float64 `json:"pointValue"`
}

// SendResult reports how many users received the message.
type SendResult struct {
	Recipients int   `json:"recipients"`
	Trimmed    int64 `json:"trimmed"`
}
