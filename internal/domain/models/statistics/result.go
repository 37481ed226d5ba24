package statistics

import "time"

// Totals are connection durations and counts summed over a scope.
type Totals struct {
	Total         time.Duration
	Work          time.Duration
	Off           time.Duration
	InternalCount int64
	ExternalCount int64
}

// Add accumulates o into t.
func (t *Totals) Add(o Totals) {
	t.Total += o.Total
	t.Work += o.Work
	t.Off += o.Off
	t.InternalCount += o.InternalCount
	t.ExternalCount += o.ExternalCount
}

// Grouping is the key a duration ranking is grouped by.
type Grouping string

const (
	GroupUser       Grouping = "user"
	GroupDepartment Grouping = "department"
	GroupCompany    Grouping = "company"
	GroupChannel    Grouping = "channel"
)

// GroupKey identifies one ranking group. Only the fields of the grouping are set.
type GroupKey struct {
	UserID     string
	Company    string
	Department string
	ChannelID  int64
}

// GroupDuration is a summed duration for one group.
type GroupDuration struct {
	Key      GroupKey
	Label    string
	Duration time.Duration
}

// LoginSession is a raw login row scanned by the hot tier.
type LoginSession struct {
	UserID     string
	IPAddress  string
	LoginTime  time.Time
	LogoutTime *time.Time
	Duration   time.Duration
}

// End is the logout time, or login plus duration when the session never
// recorded a logout.
func (s LoginSession) End() time.Time {
	if s.LogoutTime != nil {
		return *s.LogoutTime
	}
	return s.LoginTime.Add(s.Duration)
}

// Work hours: a session counts as work time when it starts between 08:00
// and 18:59 and ends no later than 18:59, local time.
const (
	WorkStartHour = 8
	WorkEndHour   = 18
)

// IsWorkTime classifies a session by its local login and logout hours.
func IsWorkTime(loginHour, logoutHour int) bool {
	return loginHour >= WorkStartHour && loginHour <= WorkEndHour && logoutHour <= WorkEndHour
}

// IPPair is a distinct (user, ip) observed in login history.
type IPPair struct {
	UserID    string
	IPAddress string
}

// UserRef is the organisational projection of a user.
type UserRef struct {
	ID         string
	Name       string
	Company    string
	Department string
}

// ChannelRef names a channel for learning rankings.
type ChannelRef struct {
	ID   int64
	Name string
}

// ConnectionResult is the connection_duration answer.
type ConnectionResult struct {
	TotalSeconds  float64 `json:"total_seconds"`
	WorkSeconds   float64 `json:"worktime_seconds"`
	OffSeconds    float64 `json:"offhour_seconds"`
	InternalCount int64   `json:"internal_count"`
	ExternalCount int64   `json:"external_count"`
}

// RankEntry is one row of a top/bottom ranking.
type RankEntry struct {
	Key        string  `json:"key"`
	Name       string  `json:"name,omitempty"`
	UserID     string  `json:"user_id,omitempty"`
	Company    string  `json:"company,omitempty"`
	Department string  `json:"department,omitempty"`
	Seconds    float64 `json:"seconds"`
}

// Ranking holds the highest and lowest groups.
type Ranking struct {
	Top    []RankEntry `json:"top"`
	Bottom []RankEntry `json:"bottom"`
}

// ChannelLearning is learning time per channel.
type ChannelLearning struct {
	ChannelID   int64   `json:"channel_id"`
	ChannelName string  `json:"channel_name"`
	Seconds     float64 `json:"seconds"`
}

// CompletionRate is completed pages over (pages x users).
type CompletionRate struct {
	CompletedPages int64   `json:"completed_pages"`
	TotalPages     int64   `json:"total_pages"`
	Users          int64   `json:"users"`
	Rate           float64 `json:"rate"`
}

// Result is the tier-independent answer to a Query.
type Result struct {
	Metric      Metric            `json:"metric"`
	PeriodType  PeriodType        `json:"period_type"`
	PeriodValue string            `json:"period_value"`
	Start       string            `json:"start"`
	End         string            `json:"end"`
	HasData     bool              `json:"has_data"`
	Segments    []Segment         `json:"segments"`
	Connection  *ConnectionResult `json:"connection,omitempty"`
	Ranking     *Ranking          `json:"ranking,omitempty"`
	Channels    []ChannelLearning `json:"channels,omitempty"`
	Completion  *CompletionRate   `json:"completion,omitempty"`
}
