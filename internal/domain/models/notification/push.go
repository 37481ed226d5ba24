package notification

import "time"

// PushMessage is a notification delivered to one user. The store keeps the
// most recent N per user.
type PushMessage struct {
	ID        int64     `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Alert is the payload published on a user's alert channel.
type Alert struct {
	Count int64 `json:"count"`
}

// Recipient is a user selected by a push filter, with their completion rate.
type Recipient struct {
	UserID         string
	CompletedPages int64
}
