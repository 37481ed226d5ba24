package learning

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"beps/internal/domain"
	learningModels "beps/internal/domain/models/learning"
	statsModels "beps/internal/domain/models/statistics"
	learningRepo "beps/internal/domain/repositories/learning"
	learningSvc "beps/internal/domain/services/learning"
	statsSvc "beps/internal/domain/services/statistics"
	serviceStats "beps/internal/service/statistics"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	dateLayout = "2006-01-02"

	// pageListLimit bounds the top viewed and update rankings.
	pageListLimit = 5

	// maxLearningTimeDays bounds the range of a daily learning chart.
	maxLearningTimeDays = 366
)

// insightService implements the InsightService interface
type insightService struct {
	insights learningRepo.InsightRepository
	engine   statsSvc.AggregationEngine
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewInsightService creates a new learning insight service. Channel shares
// are answered by the aggregation engine; everything else reads the ledger.
func NewInsightService(
	insights learningRepo.InsightRepository,
	engine statsSvc.AggregationEngine,
	location *time.Location,
	logger *slog.Logger,
) learningSvc.InsightService {
	return &insightService{
		insights: insights,
		engine:   engine,
		location: location,
		now:      time.Now,
		logger:   logger,
	}
}

// PointRank ranks users, companies or departments by points earned in a period
func (s *insightService) PointRank(ctx context.Context, group learningModels.RankGroup, q learningSvc.PeriodQuery) (*learningModels.PointRanking, error) {
	err := validation.Validate(group,
		validation.Required,
		validation.In(learningModels.RankByUser, learningModels.RankByCompany, learningModels.RankByDepartment),
	)
	if err != nil {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("filter_type: %v", err)}
	}
	from, until, err := s.period(q)
	if err != nil {
		return nil, err
	}

	totals, err := s.insights.PointTotals(ctx, group, from, until)
	if err != nil {
		return nil, err
	}
	if len(totals) == 0 {
		return nil, &domain.NotFoundError{Message: "no users to rank"}
	}
	return rankTies(totals), nil
}

// rankTies keeps every total equal to the highest and to the lowest.
func rankTies(totals []learningModels.PointTotal) *learningModels.PointRanking {
	sorted := append([]learningModels.PointTotal(nil), totals...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Points > sorted[j].Points })

	high, low := sorted[0].Points, sorted[len(sorted)-1].Points
	r := &learningModels.PointRanking{}
	for _, t := range sorted {
		if t.Points == high {
			r.Top = append(r.Top, t)
		}
		if t.Points == low {
			r.Bottom = append(r.Bottom, t)
		}
	}
	return r
}

// TopViewedPages returns the most viewed pages of a period
func (s *insightService) TopViewedPages(ctx context.Context, q learningSvc.PeriodQuery) ([]learningModels.PageViews, error) {
	from, until, err := s.period(q)
	if err != nil {
		return nil, err
	}
	return s.insights.TopViewedPages(ctx, q.Filter, from, until, pageListLimit)
}

// UpdateRanking returns the most and least recently updated pages
func (s *insightService) UpdateRanking(ctx context.Context) (*learningModels.UpdateRanking, error) {
	newest, err := s.insights.PagesByUpdate(ctx, false, pageListLimit)
	if err != nil {
		return nil, err
	}
	oldest, err := s.insights.PagesByUpdate(ctx, true, pageListLimit)
	if err != nil {
		return nil, err
	}
	return &learningModels.UpdateRanking{Top: newest, Bottom: oldest}, nil
}

// UpdatedContents lists pages updated since the start of the local day
// days ago
func (s *insightService) UpdatedContents(ctx context.Context, userID string, days int) ([]learningModels.UpdatedPage, error) {
	if days <= 0 {
		return nil, &domain.ValidationError{Message: "days must be greater than 0"}
	}
	today := s.now().In(s.location)
	since := time.Date(today.Year(), today.Month(), today.Day()-days, 0, 0, 0, 0, s.location)
	return s.insights.UpdatedSince(ctx, userID, since)
}

// LearningRank places the user by completed pages; ties share a rank
func (s *insightService) LearningRank(ctx context.Context, userID string) (*learningModels.LearningRank, error) {
	counts, err := s.insights.CompletionCounts(ctx)
	if err != nil {
		return nil, err
	}
	completed, rank := rankOf(counts, userID)
	return &learningModels.LearningRank{UserID: userID, CompletedPages: completed, Rank: rank}, nil
}

// rankOf returns the user's count and one plus the number of users ahead.
func rankOf(counts []learningModels.UserCompletions, userID string) (int64, int) {
	var mine int64
	for _, c := range counts {
		if strings.EqualFold(c.UserID, userID) {
			mine = c.Completed
			break
		}
	}
	rank := 1
	for _, c := range counts {
		if c.Completed > mine {
			rank++
		}
	}
	return mine, rank
}

// ContinuousDays counts the learning streak ending on the reference date
func (s *insightService) ContinuousDays(ctx context.Context, userID, referenceDate string) (*learningModels.LearningStreak, error) {
	ref, err := s.parseDate("reference_date", referenceDate)
	if err != nil {
		return nil, err
	}
	until := s.localMidnight(ref.AddDate(0, 0, 1))
	_, offset := until.Zone()

	dates, err := s.insights.LearningDates(ctx, userID, until, time.Duration(offset)*time.Second)
	if err != nil {
		return nil, err
	}
	return &learningModels.LearningStreak{
		UserID:         userID,
		ReferenceDate:  ref.Format(dateLayout),
		ContinuousDays: streak(dates, ref),
	}, nil
}

// streak counts dates (newest first) that run back day by day from ref.
func streak(dates []time.Time, ref time.Time) int {
	n := 0
	want := ref
	for _, d := range dates {
		if d.Format(dateLayout) != want.Format(dateLayout) {
			break
		}
		n++
		want = want.AddDate(0, 0, -1)
	}
	return n
}

// LearningTime compares the user's daily learning with the all-user average
func (s *insightService) LearningTime(ctx context.Context, userID, startDate, endDate string) (*learningModels.LearningTime, error) {
	start, err := s.parseDate("start_date", startDate)
	if err != nil {
		return nil, err
	}
	end, err := s.parseDate("end_date", endDate)
	if err != nil {
		return nil, err
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 || days > maxLearningTimeDays {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("end_date must be on or after start_date and within %d days", maxLearningTimeDays),
		}
	}

	from, until := s.localMidnight(start), s.localMidnight(end.AddDate(0, 0, 1))
	_, offset := from.Zone()
	shift := time.Duration(offset) * time.Second

	all, err := s.insights.DailyLearning(ctx, "", from, until, shift)
	if err != nil {
		return nil, err
	}
	mine, err := s.insights.DailyLearning(ctx, userID, from, until, shift)
	if err != nil {
		return nil, err
	}
	users, err := s.insights.CountUsers(ctx)
	if err != nil {
		return nil, err
	}

	return &learningModels.LearningTime{
		UserID:               userID,
		StartDate:            start.Format(dateLayout),
		EndDate:              end.Format(dateLayout),
		AllUsersDailyAverage: dailyMinutes(all, start, days, users),
		UserDailyTotal:       dailyMinutes(mine, start, days, 1),
	}, nil
}

// dailyMinutes lays sums over every date of the range, dividing by per.
// Dates without learning report zero.
func dailyMinutes(sums []learningModels.DailySeconds, start time.Time, days int, per int64) []learningModels.DailyMinutes {
	byDate := make(map[string]float64, len(sums))
	for _, d := range sums {
		byDate[d.Date.Format(dateLayout)] += d.Seconds
	}
	out := make([]learningModels.DailyMinutes, days)
	for i := range out {
		date := start.AddDate(0, 0, i).Format(dateLayout)
		minutes := 0.0
		if per > 0 {
			minutes = round(byDate[date]/float64(per)/60, 2)
		}
		out[i] = learningModels.DailyMinutes{Date: date, Minutes: minutes}
	}
	return out
}

// CategoryProgress splits a period's learning time across channels
func (s *insightService) CategoryProgress(ctx context.Context, q learningSvc.PeriodQuery) ([]learningModels.ChannelShare, error) {
	res, err := s.engine.Query(ctx, statsModels.Query{
		Metric:      statsModels.MetricLearningByChannel,
		Filter:      q.Filter,
		PeriodType:  q.PeriodType,
		PeriodValue: q.PeriodValue,
	})
	if err != nil {
		return nil, err
	}
	shares := channelShares(res.Channels)
	if len(shares) == 0 {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("no learning data in %s", q.PeriodValue)}
	}
	return shares, nil
}

// channelShares converts channel seconds into rounded percentages of the
// total. Channels without time are dropped.
func channelShares(channels []statsModels.ChannelLearning) []learningModels.ChannelShare {
	var total float64
	for _, c := range channels {
		total += c.Seconds
	}
	if total <= 0 {
		return nil
	}
	out := make([]learningModels.ChannelShare, 0, len(channels))
	for _, c := range channels {
		if c.Seconds <= 0 {
			continue
		}
		out = append(out, learningModels.ChannelShare{
			ChannelID:   c.ChannelID,
			ChannelName: c.ChannelName,
			Duration:    clock(c.Seconds),
			Percentage:  round(c.Seconds/total*100, 1),
		})
	}
	return out
}

// ChannelCompletion reports completed pages per channel
func (s *insightService) ChannelCompletion(ctx context.Context, userID string) ([]learningModels.ChannelCompletion, error) {
	rows, err := s.insights.ChannelCompletion(ctx, userID)
	if err != nil {
		return nil, err
	}
	per := int64(1)
	if userID == "" {
		if per, err = s.insights.CountUsers(ctx); err != nil {
			return nil, err
		}
	}

	out := make([]learningModels.ChannelCompletion, 0, len(rows))
	for _, r := range rows {
		completed := 0.0
		if per > 0 {
			completed = float64(r.Completed) / float64(per)
		}
		rate := 0.0
		if r.TotalPages > 0 {
			rate = round(completed/float64(r.TotalPages)*100, 1)
		}
		out = append(out, learningModels.ChannelCompletion{
			ChannelID:      r.ChannelID,
			ChannelName:    r.ChannelName,
			CompletedPages: round(completed, 2),
			TotalPages:     r.TotalPages,
			ProgressRate:   rate,
		})
	}
	return out, nil
}

// period resolves a statistics period to local instants [from, until).
func (s *insightService) period(q learningSvc.PeriodQuery) (time.Time, time.Time, error) {
	rng, err := serviceStats.CanonicalRange(q.PeriodType, q.PeriodValue)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return s.localMidnight(rng.Start), s.localMidnight(rng.End.AddDate(0, 0, 1)), nil
}

// parseDate reads a YYYY-MM-DD value; empty means today.
func (s *insightService) parseDate(name, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		today := s.now().In(s.location)
		return time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, &domain.ValidationError{Message: fmt.Sprintf("invalid %s %q, expected YYYY-MM-DD", name, value)}
	}
	return d, nil
}

// localMidnight is the start of a calendar date in the service location.
func (s *insightService) localMidnight(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.location)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// clock formats seconds as HH:MM:SS.
func clock(seconds float64) string {
	total := int64(math.Round(seconds))
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}
