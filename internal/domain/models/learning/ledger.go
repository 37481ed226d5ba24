package learning

import "time"

// FileType is the kind of file a view was recorded against.
type FileType string

const (
	FileTypePage   FileType = "page"
	FileTypeDetail FileType = "detail"
)

// MaxPoints is the cap on point grants per (user, file).
const MaxPoints = 5

// ViewingHistory is one append-only view record.
type ViewingHistory struct {
	ID           int64         `json:"id" db:"id"`
	UserID       string        `json:"user_id" db:"user_id"`
	FileID       int64         `json:"file_id" db:"file_id"`
	FileType     FileType      `json:"file_type" db:"file_type"`
	StartTime    time.Time     `json:"start_time" db:"start_time"`
	EndTime      time.Time     `json:"end_time" db:"end_time"`
	StayDuration time.Duration `json:"stay_duration" db:"stay_duration"`
	IPAddress    string        `json:"ip_address" db:"ip_address"`
}

// PointRecord tracks point grants for a (user, file) pair.
// len(EarnedTimes) always equals Point.
type PointRecord struct {
	ID          int64       `json:"id" db:"id"`
	UserID      string      `json:"user_id" db:"user_id"`
	FileID      int64       `json:"file_id" db:"file_id"`
	FileType    FileType    `json:"file_type" db:"file_type"`
	Point       int         `json:"point" db:"point"`
	EarnedTimes []time.Time `json:"earned_times" db:"earned_times"`
}

// CompletionHistory accumulates viewing time per (user, page).
// CompletedAt is set once, when TotalDuration first reaches the threshold.
type CompletionHistory struct {
	ID            int64         `json:"id" db:"id"`
	UserID        string        `json:"user_id" db:"user_id"`
	PageID        int64         `json:"page_id" db:"page_id"`
	TotalDuration time.Duration `json:"total_duration" db:"total_duration"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
}

// LoginHistory is a login session as written by the auth layer.
type LoginHistory struct {
	ID              int64         `json:"id" db:"id"`
	UserID          string        `json:"user_id" db:"user_id"`
	IPAddress       string        `json:"ip_address" db:"ip_address"`
	LoginTime       time.Time     `json:"login_time" db:"login_time"`
	LogoutTime      *time.Time    `json:"logout_time,omitempty" db:"logout_time"`
	SessionDuration time.Duration `json:"session_duration" db:"session_duration"`
}

// PointGrant is the outcome of the point step of a recorded view.
type PointGrant struct {
	Added  bool   `json:"point_added"`
	Point  int    `json:"point"`
	Reason string `json:"point_reason"`
}

// PointSummary is a user's point totals.
type PointSummary struct {
	UserID      string        `json:"user_id"`
	TotalPoints int           `json:"total_points"`
	Files       []PointRecord `json:"files"`
}
