package destinationone

import (
	"fmt"
	"strings"
	"time"

	"catalog_sync/internal/domain"
)

const dateLayout = "2006-01-02"

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	dateLayout,
}

var frequencies = map[string]domain.Frequency{
	"":        domain.FrequencyNone,
	"none":    domain.FrequencyNone,
	"daily":   domain.FrequencyDaily,
	"weekly":  domain.FrequencyWeekly,
	"monthly": domain.FrequencyMonthly,
	"yearly":  domain.FrequencyYearly,
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// convertIntervals normalizes provider intervals. Intervals without a start are dropped; a start
// or end that cannot be parsed fails the whole item.
func convertIntervals(raw []TimeInterval) ([]domain.TimeInterval, error) {
	intervals := make([]domain.TimeInterval, 0, len(raw))
	for i, ti := range raw {
		iv, ok, err := convertInterval(ti)
		if err != nil {
			return nil, fmt.Errorf("time interval %d: %w", i, err)
		}
		if ok {
			intervals = append(intervals, iv)
		}
	}
	if len(intervals) == 0 {
		return nil, nil
	}
	return intervals, nil
}

func convertInterval(ti TimeInterval) (domain.TimeInterval, bool, error) {
	loc, tz := loadLocation(ti.TZ)

	start, _, err := parseTime(ti.Start, loc)
	if err != nil {
		return domain.TimeInterval{}, false, fmt.Errorf("start: %w", err)
	}
	if start.IsZero() {
		return domain.TimeInterval{}, false, nil
	}

	end, dateOnly, err := parseTime(ti.End, loc)
	if err != nil {
		return domain.TimeInterval{}, false, fmt.Errorf("end: %w", err)
	}
	if dateOnly {
		end = end.AddDate(0, 0, 1)
	}

	freq, ok := frequencies[strings.ToLower(strings.TrimSpace(ti.Freq))]
	if !ok {
		freq = domain.FrequencyNone
	}

	iv := domain.TimeInterval{
		Start:     start.UTC(),
		Timezone:  tz,
		Frequency: freq,
		Interval:  max(ti.Interval, 1),
	}
	if !end.IsZero() {
		iv.End = end.UTC()
	}

	for _, name := range ti.Weekdays {
		if wd, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]; ok {
			iv.Weekdays = append(iv.Weekdays, wd)
		}
	}

	until, dateOnly, err := parseTime(ti.RepeatUntil, loc)
	if err != nil {
		return domain.TimeInterval{}, false, fmt.Errorf("repeatUntil: %w", err)
	}
	if !until.IsZero() {
		// A bare date includes the whole day.
		if dateOnly {
			until = until.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		until = until.UTC()
		iv.RepeatUntil = &until
	}

	return iv, true, nil
}

// parseTime accepts RFC 3339 or wall-clock values in loc. Empty input yields the zero time.
func parseTime(value string, loc *time.Location) (time.Time, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, false, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, layout == dateLayout, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unrecognized time %q", value)
}

func loadLocation(name string) (*time.Location, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, ""
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, ""
	}
	return loc, name
}

func intervalLocation(raw []TimeInterval) *time.Location {
	for _, ti := range raw {
		if loc, tz := loadLocation(ti.TZ); tz != "" {
			return loc
		}
	}
	return time.UTC
}
