package statistics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"beps/internal/domain"
	models "beps/internal/domain/models/statistics"
	statsRepo "beps/internal/domain/repositories/statistics"
	statsSvc "beps/internal/domain/services/statistics"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type ipClassifier interface {
	IsInternal(ip string) bool
}

// aggregationEngine implements the AggregationEngine interface
type aggregationEngine struct {
	summary    statsRepo.SummaryRepository
	planner    *planner
	classifier ipClassifier
	location   *time.Location
	now        func() time.Time
	logger     *slog.Logger
}

// NewAggregationEngine creates a new aggregation engine. location decides day
// boundaries and work hours.
func NewAggregationEngine(
	summary statsRepo.SummaryRepository,
	classifier ipClassifier,
	location *time.Location,
	logger *slog.Logger,
) statsSvc.AggregationEngine {
	return &aggregationEngine{
		summary:    summary,
		planner:    &planner{summary: summary},
		classifier: classifier,
		location:   location,
		now:        time.Now,
		logger:     logger,
	}
}

// Query answers one metric over a period. A transient database failure is
// retried once.
func (e *aggregationEngine) Query(ctx context.Context, q models.Query) (*models.Result, error) {
	if err := validateQuery(q); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	rng, err := CanonicalRange(q.PeriodType, q.PeriodValue)
	if err != nil {
		return nil, err
	}

	res, err := e.evaluate(ctx, q, rng)
	if errors.Is(err, domain.ErrTransient) {
		e.logger.Warn("statistics query failed, retrying",
			"metric", q.Metric,
			"period_value", q.PeriodValue,
			"error", err,
		)
		res, err = e.evaluate(ctx, q, rng)
	}
	if err != nil {
		return nil, err
	}
	if !res.HasData {
		return nil, &domain.NotFoundError{
			Message: fmt.Sprintf("no data for %s in %s", q.Metric, q.PeriodValue),
		}
	}
	return res, nil
}

func (e *aggregationEngine) evaluate(ctx context.Context, q models.Query, rng models.DateRange) (*models.Result, error) {
	res := &models.Result{
		Metric:      q.Metric,
		PeriodType:  q.PeriodType,
		PeriodValue: q.PeriodValue,
		Start:       rng.Start.Format(dateLayout),
		End:         rng.End.Format(dateLayout),
	}

	if q.Metric == models.MetricCompletionRate {
		return res, e.completionRate(ctx, q.Filter, rng, res)
	}

	today := date(e.now(), e.location)
	segments, err := e.planner.plan(ctx, q.Metric.Source(), rng, today)
	if err != nil {
		return nil, err
	}
	res.Segments = segments

	switch q.Metric {
	case models.MetricConnectionDuration:
		err = e.connection(ctx, q.Filter, rng, segments, res)
	case models.MetricTopUsers:
		err = e.ranking(ctx, q.Filter, models.GroupUser, segments, res)
	case models.MetricTopDepartments:
		err = e.ranking(ctx, q.Filter, models.GroupDepartment, segments, res)
	case models.MetricTopCompanies:
		err = e.ranking(ctx, q.Filter, models.GroupCompany, segments, res)
	case models.MetricLearningByChannel:
		err = e.learningByChannel(ctx, q.Filter, segments, res)
	}
	if err != nil {
		return nil, err
	}

	e.logger.Debug("statistics query evaluated",
		"metric", q.Metric,
		"start", res.Start,
		"end", res.End,
		"segments", len(segments),
		"has_data", res.HasData,
	)
	return res, nil
}

func (e *aggregationEngine) connection(ctx context.Context, filter models.Filter, rng models.DateRange, segments []models.Segment, res *models.Result) error {
	var totals models.Totals
	for _, s := range segments {
		sc := scope(s, e.location)
		if s.Tier != models.TierHot {
			t, ok, err := e.summary.ConnectionTotals(ctx, sc, filter)
			if err != nil {
				return err
			}
			res.HasData = res.HasData || ok
			totals.Add(t)
			continue
		}

		sessions, err := e.summary.LoginSessions(ctx, sc.From, sc.Until, filter)
		if err != nil {
			return err
		}
		if len(sessions) > 0 {
			res.HasData = true
		}
		for _, session := range sessions {
			totals.Total += session.Duration
			if e.isWorkTime(session) {
				totals.Work += session.Duration
			} else {
				totals.Off += session.Duration
			}
		}
	}

	// Distinct (user, ip) counts always come from the live ledger.
	pairs, err := e.summary.UniqueIPPairs(ctx, instant(rng.Start, e.location), instant(rng.End.AddDate(0, 0, 1), e.location), filter)
	if err != nil {
		return err
	}
	totals.InternalCount, totals.ExternalCount = 0, 0
	for _, p := range pairs {
		if e.classifier.IsInternal(p.IPAddress) {
			totals.InternalCount++
		} else {
			totals.ExternalCount++
		}
	}
	if len(pairs) > 0 {
		res.HasData = true
	}

	res.Connection = &models.ConnectionResult{
		TotalSeconds:  totals.Total.Seconds(),
		WorkSeconds:   totals.Work.Seconds(),
		OffSeconds:    totals.Off.Seconds(),
		InternalCount: totals.InternalCount,
		ExternalCount: totals.ExternalCount,
	}
	return nil
}

// isWorkTime classifies a session in the configured zone.
func (e *aggregationEngine) isWorkTime(s models.LoginSession) bool {
	return models.IsWorkTime(s.LoginTime.In(e.location).Hour(), s.End().In(e.location).Hour())
}

func (e *aggregationEngine) ranking(ctx context.Context, filter models.Filter, grouping models.Grouping, segments []models.Segment, res *models.Result) error {
	acc := newAccumulator(grouping)
	for _, s := range segments {
		rows, err := e.summary.GroupDurations(ctx, scope(s, e.location), filter, grouping)
		if err != nil {
			return err
		}
		acc.add(rows)
	}
	if len(acc.entries) == 0 {
		return nil
	}
	if grouping == models.GroupUser {
		users, err := e.summary.ListUsers(ctx, filter)
		if err != nil {
			return err
		}
		acc.label(users)
	}
	res.HasData = true
	res.Ranking = acc.rank()
	return nil
}

func (e *aggregationEngine) learningByChannel(ctx context.Context, filter models.Filter, segments []models.Segment, res *models.Result) error {
	seconds := map[int64]float64{}
	names := map[int64]string{}
	for _, s := range segments {
		rows, err := e.summary.GroupDurations(ctx, scope(s, e.location), filter, models.GroupChannel)
		if err != nil {
			return err
		}
		for _, g := range rows {
			seconds[g.Key.ChannelID] += g.Duration.Seconds()
			if g.Label != "" {
				names[g.Key.ChannelID] = g.Label
			}
		}
	}
	if len(seconds) == 0 {
		return nil
	}

	channels, err := e.summary.ListChannels(ctx)
	if err != nil {
		return err
	}
	for _, c := range channels {
		names[c.ID] = c.Name
		if _, ok := seconds[c.ID]; !ok {
			seconds[c.ID] = 0
		}
	}

	out := make([]models.ChannelLearning, 0, len(seconds))
	for id, secs := range seconds {
		out = append(out, models.ChannelLearning{ChannelID: id, ChannelName: names[id], Seconds: secs})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seconds != out[j].Seconds {
			return out[i].Seconds > out[j].Seconds
		}
		return out[i].ChannelID < out[j].ChannelID
	})
	res.HasData = true
	res.Channels = out
	return nil
}

// completionRate is completed (user, page) pairs over pages x users, as a
// percentage. It always reads the completion ledger.
func (e *aggregationEngine) completionRate(ctx context.Context, filter models.Filter, rng models.DateRange, res *models.Result) error {
	res.Segments = []models.Segment{{Tier: models.TierHot, Start: rng.Start, End: rng.End}}

	users, err := e.summary.ListUsers(ctx, filter)
	if err != nil {
		return err
	}
	pages, err := e.summary.CountPages(ctx)
	if err != nil {
		return err
	}
	completed, err := e.summary.CountCompletions(ctx, instant(rng.Start, e.location), instant(rng.End.AddDate(0, 0, 1), e.location), filter)
	if err != nil {
		return err
	}

	rate := &models.CompletionRate{CompletedPages: completed, TotalPages: pages, Users: int64(len(users))}
	if denom := pages * int64(len(users)); denom > 0 {
		rate.Rate = math.Round(float64(completed)/float64(denom)*100*100) / 100
		res.HasData = true
	}
	res.Completion = rate
	return nil
}

func validateQuery(q models.Query) error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Metric, validation.Required, validation.By(func(v interface{}) error {
			if m, _ := v.(models.Metric); !m.Valid() {
				return fmt.Errorf("unknown metric %q", m)
			}
			return nil
		})),
		validation.Field(&q.PeriodType,
			validation.Required,
			validation.In(models.PeriodDay, models.PeriodQuarter, models.PeriodHalf, models.PeriodYear),
		),
		validation.Field(&q.PeriodValue, validation.Required),
	)
}
