package recurrence

import (
	"iter"
	"slices"
	"time"

	"catalog_sync/internal/domain"
)

const (
	// maxIterations bounds how many steps any single rule is expanded.
	maxIterations = 1000
	// weeklyLookaheadDays bounds unbounded weekday rules.
	weeklyLookaheadDays = 52 * 7
)

// Occurrence is one concrete instance of a time interval. End is zero when open-ended.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// Ongoing reports start <= now < end, treating a zero end as open.
func (o Occurrence) Ongoing(now time.Time) bool {
	return !o.Start.After(now) && (o.End.IsZero() || now.Before(o.End))
}

func (o Occurrence) Upcoming(now time.Time) bool {
	return o.Start.After(now)
}

// Occurrences yields the occurrences of iv in chronological order. Recurring rules start at
// the first step whose occurrence may still be ongoing at now, so callers see at most a few past
// occurrences before reaching the relevant ones.
func Occurrences(iv domain.TimeInterval, now time.Time) iter.Seq[Occurrence] {
	loc := location(iv.Timezone)
	start := iv.Start.In(loc)
	end := iv.End
	if !end.IsZero() {
		end = end.In(loc)
	}
	step := max(iv.Interval, 1)

	switch {
	case iv.Frequency == domain.FrequencyWeekly && len(iv.Weekdays) > 0:
		return weekdayOccurrences(start, end, iv.Weekdays, step, iv.RepeatUntil, now)
	case iv.Frequency == domain.FrequencyDaily:
		return strideOccurrences(start, end, stride{days: step}, iv.RepeatUntil, now)
	case iv.Frequency == domain.FrequencyWeekly:
		return strideOccurrences(start, end, stride{days: 7 * step}, iv.RepeatUntil, now)
	case iv.Frequency == domain.FrequencyMonthly:
		return strideOccurrences(start, end, stride{months: step}, iv.RepeatUntil, now)
	case iv.Frequency == domain.FrequencyYearly:
		return strideOccurrences(start, end, stride{years: step}, iv.RepeatUntil, now)
	default:
		return func(yield func(Occurrence) bool) {
			yield(Occurrence{Start: iv.Start, End: iv.End})
		}
	}
}

// stride is a calendar step. Exactly one field is set.
type stride struct {
	years, months, days int
}

func (s stride) apply(t time.Time, n int) time.Time {
	if t.IsZero() {
		return t
	}
	return t.AddDate(s.years*n, s.months*n, s.days*n)
}

// stepsBefore estimates how many whole strides fit between from and to, erring low.
func (s stride) stepsBefore(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	var n int
	switch {
	case s.days > 0:
		n = int(to.Sub(from).Hours()/24) / s.days
	case s.months > 0:
		months := (to.Year()-from.Year())*12 + int(to.Month()-from.Month())
		n = months / s.months
	case s.years > 0:
		n = (to.Year() - from.Year()) / s.years
	}
	// AddDate normalization and DST can shift a step by a day or an hour.
	return max(n-1, 0)
}

func strideOccurrences(start, end time.Time, s stride, until *time.Time, now time.Time) iter.Seq[Occurrence] {
	return func(yield func(Occurrence) bool) {
		first := s.stepsBefore(start, now.Add(-span(start, end)))
		for n := first; n < first+maxIterations; n++ {
			occ := Occurrence{Start: s.apply(start, n), End: s.apply(end, n)}
			if until != nil && occ.Start.After(*until) {
				return
			}
			if !yield(occ) {
				return
			}
		}
	}
}

func weekdayOccurrences(start, end time.Time, weekdays []time.Weekday, weeks int, until *time.Time, now time.Time) iter.Seq[Occurrence] {
	block := stride{days: 7 * weeks}
	horizon := now.AddDate(0, 0, weeklyLookaheadDays)
	return func(yield func(Occurrence) bool) {
		// The last day of a block is six days after its first.
		first := block.stepsBefore(start, now.Add(-span(start, end)).AddDate(0, 0, -6))
		for n := first; n < first+maxIterations; n++ {
			base := block.apply(start, n)
			if base.After(horizon) {
				return
			}
			for offset := range 7 {
				day := base.AddDate(0, 0, offset)
				if !slices.Contains(weekdays, day.Weekday()) {
					continue
				}
				if until != nil && day.After(*until) {
					return
				}
				occ := Occurrence{Start: day, End: block.apply(end, n)}
				if !occ.End.IsZero() {
					occ.End = occ.End.AddDate(0, 0, offset)
				}
				if !yield(occ) {
					return
				}
			}
		}
	}
}

func span(start, end time.Time) time.Duration {
	if end.IsZero() || end.Before(start) {
		return 0
	}
	return end.Sub(start)
}

func location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
