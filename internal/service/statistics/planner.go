package statistics

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"beps/internal/domain"
	models "beps/internal/domain/models/statistics"
	statsRepo "beps/internal/domain/repositories/statistics"
)

const dateLayout = "2006-01-02"

// date truncates t to its calendar day in loc, returned at UTC midnight.
func date(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// instant is the start of the calendar day d in loc, in UTC.
func instant(d time.Time, loc *time.Location) time.Time {
	y, m, dd := d.Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, loc).UTC()
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CanonicalRange resolves a period into its inclusive date range.
//
//	year    2025            -> 2025-01-01 .. 2025-12-31
//	half    2025-H2         -> 2025-07-01 .. 2025-12-31
//	quarter 2025-Q3         -> 2025-07-01 .. 2025-09-30
//	day     2025-01-01~2025-01-31
func CanonicalRange(periodType models.PeriodType, value string) (models.DateRange, error) {
	value = strings.TrimSpace(value)
	invalid := func() (models.DateRange, error) {
		return models.DateRange{}, &domain.ValidationError{
			Message: fmt.Sprintf("invalid period_value %q for period_type %q", value, periodType),
		}
	}

	switch periodType {
	case models.PeriodYear:
		y, err := strconv.Atoi(value)
		if err != nil || y < 1 {
			return invalid()
		}
		return models.DateRange{Start: day(y, time.January, 1), End: day(y, time.December, 31)}, nil

	case models.PeriodHalf:
		ys, hs, ok := strings.Cut(value, "-H")
		y, err := strconv.Atoi(ys)
		if !ok || err != nil || y < 1 {
			return invalid()
		}
		switch hs {
		case "1":
			return models.DateRange{Start: day(y, time.January, 1), End: day(y, time.June, 30)}, nil
		case "2":
			return models.DateRange{Start: day(y, time.July, 1), End: day(y, time.December, 31)}, nil
		}
		return invalid()

	case models.PeriodQuarter:
		ys, qs, ok := strings.Cut(value, "-Q")
		y, err := strconv.Atoi(ys)
		q, qerr := strconv.Atoi(qs)
		if !ok || err != nil || qerr != nil || y < 1 || q < 1 || q > 4 {
			return invalid()
		}
		start := day(y, time.Month(3*(q-1)+1), 1)
		return models.DateRange{Start: start, End: start.AddDate(0, 3, -1)}, nil

	case models.PeriodDay:
		ss, es, ok := strings.Cut(value, "~")
		if !ok {
			return invalid()
		}
		start, err := time.Parse(dateLayout, strings.TrimSpace(ss))
		if err != nil {
			return invalid()
		}
		end, err := time.Parse(dateLayout, strings.TrimSpace(es))
		if err != nil || end.Before(start) {
			return invalid()
		}
		return models.DateRange{Start: start, End: end}, nil
	}
	return models.DateRange{}, &domain.ValidationError{Message: fmt.Sprintf("unknown period_type %q", periodType)}
}

// period is a rollup candidate.
type period struct {
	Type  models.PeriodType
	Value string
	Range models.DateRange
}

// periodsOf lists the rollup periods of a year, coarsest first.
func periodsOf(y int) []period {
	out := []period{{
		Type:  models.PeriodYear,
		Value: strconv.Itoa(y),
		Range: models.DateRange{Start: day(y, time.January, 1), End: day(y, time.December, 31)},
	}}
	for h := 1; h <= 2; h++ {
		start := day(y, time.Month(6*(h-1)+1), 1)
		out = append(out, period{
			Type:  models.PeriodHalf,
			Value: fmt.Sprintf("%d-H%d", y, h),
			Range: models.DateRange{Start: start, End: start.AddDate(0, 6, -1)},
		})
	}
	for q := 1; q <= 4; q++ {
		start := day(y, time.Month(3*(q-1)+1), 1)
		out = append(out, period{
			Type:  models.PeriodQuarter,
			Value: fmt.Sprintf("%d-Q%d", y, q),
			Range: models.DateRange{Start: start, End: start.AddDate(0, 3, -1)},
		})
	}
	return out
}

// planner partitions a date range into cold, warm and hot segments.
type planner struct {
	summary statsRepo.SummaryRepository
}

// plan covers rng with disjoint segments in date order. Cold segments are
// whole periods that are fully inside rng and already rolled up; the residual
// is warm up to today-2 and hot afterwards.
func (p *planner) plan(ctx context.Context, source models.Source, rng models.DateRange, today time.Time) ([]models.Segment, error) {
	var used []models.Segment
	for y := rng.Start.Year(); y <= rng.End.Year(); y++ {
		for _, c := range periodsOf(y) {
			if !rng.Contains(c.Range) || covered(c.Range, used) {
				continue
			}
			ok, err := p.summary.HasAggRows(ctx, source, c.Type, c.Value)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			used = append(used, models.Segment{
				Tier:        models.TierCold,
				Start:       c.Range.Start,
				End:         c.Range.End,
				PeriodType:  c.Type,
				PeriodValue: c.Value,
			})
		}
	}
	sort.Slice(used, func(i, j int) bool { return used[i].Start.Before(used[j].Start) })

	split := today.AddDate(0, 0, -2)
	var out []models.Segment
	residual := func(start, end time.Time) {
		if !start.After(split) {
			out = append(out, models.Segment{Tier: models.TierWarm, Start: start, End: minDate(end, split)})
		}
		if end.After(split) {
			out = append(out, models.Segment{Tier: models.TierHot, Start: maxDate(start, split.AddDate(0, 0, 1)), End: end})
		}
	}

	current := rng.Start
	for _, u := range used {
		if current.Before(u.Start) {
			residual(current, u.Start.AddDate(0, 0, -1))
		}
		out = append(out, u)
		current = u.End.AddDate(0, 0, 1)
	}
	if !current.After(rng.End) {
		residual(current, rng.End)
	}
	return out, nil
}

// covered reports whether r lies inside an already chosen segment.
func covered(r models.DateRange, used []models.Segment) bool {
	for _, u := range used {
		if u.Range().Contains(r) {
			return true
		}
	}
	return false
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// scope turns a segment into repository read parameters. Hot scopes are
// half-open instants spanning the segment's days in loc.
func scope(s models.Segment, loc *time.Location) statsRepo.Scope {
	sc := statsRepo.Scope{Tier: s.Tier}
	switch s.Tier {
	case models.TierCold:
		sc.PeriodType = s.PeriodType
		sc.PeriodValue = s.PeriodValue
	case models.TierWarm:
		sc.StartDate = s.Start
		sc.EndDate = s.End
	case models.TierHot:
		sc.From = instant(s.Start, loc)
		sc.Until = instant(s.End.AddDate(0, 0, 1), loc)
	}
	return sc
}
