package learning

import "time"

// RankGroup selects what point totals are summed over.
type RankGroup string

const (
	RankByUser       RankGroup = "all"
	RankByCompany    RankGroup = "company"
	RankByDepartment RankGroup = "department"
)

// PointTotal is the points earned in a period by a user, company or department.
type PointTotal struct {
	UserID     string `json:"id,omitempty"`
	Name       string `json:"name,omitempty"`
	Company    string `json:"company,omitempty"`
	Department string `json:"department,omitempty"`
	Points     int64  `json:"total_points"`
}

// PointRanking holds every group tied for the highest and the lowest total.
type PointRanking struct {
	Top    []PointTotal `json:"top"`
	Bottom []PointTotal `json:"bottom"`
}

// PageViews counts the views of a page in a period.
type PageViews struct {
	FileID      int64      `json:"file_id"`
	FileName    string     `json:"file_name"`
	FolderName  string     `json:"folder_name"`
	ChannelName string     `json:"channel_name"`
	ViewCount   int64      `json:"view_count"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// PageUpdate is a page with the manager assigned to it, if any.
type PageUpdate struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	UpdatedAt   time.Time `json:"updated_at"`
	ManagerID   *string   `json:"manager_id"`
	ManagerName *string   `json:"manager_name"`
}

// UpdateRanking lists the most and least recently updated pages.
type UpdateRanking struct {
	Top    []PageUpdate `json:"top"`
	Bottom []PageUpdate `json:"bottom"`
}

// UpdatedPage is a recently updated page and whether the user opened it since.
type UpdatedPage struct {
	PageUpdate
	ViewedAfterUpdate bool `json:"viewed_after_update"`
}

// UserCompletions is the number of pages a user has completed.
type UserCompletions struct {
	UserID    string `json:"user_id"`
	Completed int64  `json:"completed_pages"`
}

// LearningRank places a user among all users by completed pages.
type LearningRank struct {
	UserID         string `json:"user_id"`
	CompletedPages int64  `json:"completed_pages"`
	Rank           int    `json:"rank"`
}

// LearningStreak counts consecutive learning days ending on ReferenceDate.
type LearningStreak struct {
	UserID         string `json:"user_id"`
	ReferenceDate  string `json:"reference_date"`
	ContinuousDays int    `json:"continuous_learning_days"`
}

// DailySeconds is learning time summed over one local date.
type DailySeconds struct {
	Date    time.Time
	Seconds float64
}

// DailyMinutes is learning time of one date in minutes.
type DailyMinutes struct {
	Date    string  `json:"date"`
	Minutes float64 `json:"minutes"`
}

// LearningTime compares a user's daily learning with the all-user average.
type LearningTime struct {
	UserID               string         `json:"user_id"`
	StartDate            string         `json:"start_date"`
	EndDate              string         `json:"end_date"`
	AllUsersDailyAverage []DailyMinutes `json:"all_users_daily_average"`
	UserDailyTotal       []DailyMinutes `json:"user_daily_total"`
}

// ChannelShare is a channel's share of the learning time in a period.
type ChannelShare struct {
	ChannelID   int64   `json:"channel_id"`
	ChannelName string  `json:"channel_name"`
	Duration    string  `json:"duration"`
	Percentage  float64 `json:"percentage"`
}

// ChannelPages counts the live pages of a channel and their completions.
type ChannelPages struct {
	ChannelID   int64
	ChannelName string
	TotalPages  int64
	Completed   int64
}

// ChannelCompletion is the completed share of a channel's pages.
type ChannelCompletion struct {
	ChannelID      int64   `json:"channel_id"`
	ChannelName    string  `json:"channel_name"`
	CompletedPages float64 `json:"completed_pages"`
	TotalPages     int64   `json:"total_pages"`
	ProgressRate   float64 `json:"progress_rate"`
}
