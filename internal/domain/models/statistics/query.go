package statistics

import (
	"fmt"
	"strings"
	"time"
)

// Metric names an aggregation the engine can answer.
type Metric string

const (
	MetricConnectionDuration Metric = "connection_duration"
	MetricTopUsers           Metric = "top_users"
	MetricTopDepartments     Metric = "top_departments"
	MetricTopCompanies       Metric = "top_companies"
	MetricLearningByChannel  Metric = "learning_by_channel"
	MetricCompletionRate     Metric = "completion_rate"
)

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool {
	switch m {
	case MetricConnectionDuration, MetricTopUsers, MetricTopDepartments,
		MetricTopCompanies, MetricLearningByChannel, MetricCompletionRate:
		return true
	}
	return false
}

// Source returns the ledger a metric is computed from.
func (m Metric) Source() Source {
	if m == MetricLearningByChannel || m == MetricCompletionRate {
		return SourceLearning
	}
	return SourceLogin
}

// Source is the event family a summary table is built from.
type Source string

const (
	SourceLogin    Source = "login"
	SourceLearning Source = "learning"
)

// PeriodType is the granularity of a requested period.
type PeriodType string

const (
	PeriodDay     PeriodType = "day"
	PeriodQuarter PeriodType = "quarter"
	PeriodHalf    PeriodType = "half"
	PeriodYear    PeriodType = "year"
)

// FilterType selects which users contribute to an aggregation.
type FilterType string

const (
	FilterAll        FilterType = "all"
	FilterCompany    FilterType = "company"
	FilterDepartment FilterType = "department"
	FilterUser       FilterType = "user"
)

// Filter is a parsed recipient/aggregation filter.
type Filter struct {
	Type       FilterType `json:"type"`
	Company    string     `json:"company,omitempty"`
	Department string     `json:"department,omitempty"`
	UserID     string     `json:"user_id,omitempty"`
}

// ParseFilter parses a filter type and value. Department values take the form
// "company||department" or a bare department name.
func ParseFilter(filterType, value string) (Filter, error) {
	value = strings.TrimSpace(value)
	switch FilterType(filterType) {
	case FilterAll, "":
		return Filter{Type: FilterAll}, nil
	case FilterCompany:
		if value == "" {
			return Filter{}, fmt.Errorf("filter_value is required for company filter")
		}
		return Filter{Type: FilterCompany, Company: value}, nil
	case FilterDepartment:
		if value == "" {
			return Filter{}, fmt.Errorf("filter_value is required for department filter")
		}
		if company, dept, ok := strings.Cut(value, "||"); ok {
			return Filter{Type: FilterDepartment, Company: company, Department: dept}, nil
		}
		return Filter{Type: FilterDepartment, Department: value}, nil
	case FilterUser:
		if value == "" {
			return Filter{}, fmt.Errorf("filter_value is required for user filter")
		}
		return Filter{Type: FilterUser, UserID: value}, nil
	default:
		return Filter{}, fmt.Errorf("unknown filter_type %q", filterType)
	}
}

// Query is an aggregation request.
type Query struct {
	Metric      Metric     `json:"metric"`
	Filter      Filter     `json:"filter"`
	PeriodType  PeriodType `json:"period_type"`
	PeriodValue string     `json:"period_value"`
}

// DateRange is an inclusive range of calendar dates, each held at UTC midnight.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether other lies fully within r.
func (r DateRange) Contains(other DateRange) bool {
	return !other.Start.Before(r.Start) && !other.End.After(r.End)
}

// Days returns the number of calendar days in r.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Tier is the data source a segment is answered from.
type Tier string

const (
	TierCold Tier = "cold"
	TierWarm Tier = "warm"
	TierHot  Tier = "hot"
)

// Segment is one tier-attributed slice of a query range.
type Segment struct {
	Tier        Tier       `json:"tier"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	PeriodType  PeriodType `json:"period_type,omitempty"`
	PeriodValue string     `json:"period_value,omitempty"`
}

// Range returns the segment's dates.
func (s Segment) Range() DateRange {
	return DateRange{Start: s.Start, End: s.End}
}
