// Package recurrence computes the display window of event listings from their time intervals.
package recurrence

import (
	"time"

	"catalog_sync/internal/domain"
)

// Window is the single start/end shown for an event. Both fields are nil when nothing is
// ongoing or upcoming.
type Window struct {
	Start *time.Time
	End   *time.Time
}

func (w Window) IsZero() bool {
	return w.Start == nil && w.End == nil
}

// CalculateEventWindow picks the most relevant window across all intervals. Any ongoing
// occurrence wins: the window then spans the earliest ongoing start to the latest ongoing end.
// Otherwise the earliest upcoming occurrence is used. Past occurrences never produce a window.
func CalculateEventWindow(intervals []domain.TimeInterval, now time.Time) Window {
	var (
		ongoing  []Occurrence
		upcoming *Occurrence
	)

	for _, iv := range intervals {
		if iv.Start.IsZero() {
			continue
		}
		if iv.Frequency.IsRecurring() && iv.RepeatUntil != nil && iv.RepeatUntil.Before(now) {
			continue
		}

		for occ := range Occurrences(iv, now) {
			if occ.Ongoing(now) {
				ongoing = append(ongoing, occ)
				continue
			}
			if occ.Upcoming(now) {
				if upcoming == nil || occ.Start.Before(upcoming.Start) {
					next := occ
					upcoming = &next
				}
				break
			}
		}
	}

	if len(ongoing) > 0 {
		return spanning(ongoing)
	}
	if upcoming != nil {
		return windowOf(*upcoming)
	}
	return Window{}
}

// Resolve prefers a provider-supplied window when it is still ongoing or upcoming and falls
// back to CalculateEventWindow otherwise.
func Resolve(hintStart, hintEnd *time.Time, intervals []domain.TimeInterval, now time.Time) Window {
	if hintStart != nil {
		hint := Occurrence{Start: *hintStart}
		if hintEnd != nil {
			hint.End = *hintEnd
		}
		if hint.Ongoing(now) || hint.Upcoming(now) {
			return windowOf(hint)
		}
	}
	return CalculateEventWindow(intervals, now)
}

// spanning merges ongoing occurrences. An open-ended one keeps the merged window open.
func spanning(occs []Occurrence) Window {
	start := occs[0].Start
	var end time.Time
	open := false
	for _, occ := range occs {
		if occ.Start.Before(start) {
			start = occ.Start
		}
		if occ.End.IsZero() {
			open = true
		} else if occ.End.After(end) {
			end = occ.End
		}
	}
	if open {
		end = time.Time{}
	}
	return windowOf(Occurrence{Start: start, End: end})
}

func windowOf(occ Occurrence) Window {
	start := occ.Start.UTC()
	w := Window{Start: &start}
	if !occ.End.IsZero() {
		end := occ.End.UTC()
		w.End = &end
	}
	return w
}
