package recurrence

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog_sync/internal/domain"
)

func ts(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func tsPtr(t *testing.T, value string) *time.Time {
	parsed := ts(t, value)
	return &parsed
}

func single(t *testing.T, start, end string) domain.TimeInterval {
	return domain.TimeInterval{
		Start:     ts(t, start),
		End:       ts(t, end),
		Frequency: domain.FrequencyNone,
		Interval:  1,
	}
}

func TestCalculateEventWindow(t *testing.T) {
	tests := []struct {
		name      string
		intervals func(t *testing.T) []domain.TimeInterval
		now       string
		wantStart string
		wantEnd   string
	}{
		{
			name: "single upcoming occurrence",
			intervals: func(t *testing.T) []domain.TimeInterval {
				return []domain.TimeInterval{single(t, "2025-06-01T20:00:00Z", "2025-06-01T23:00:00Z")}
			},
			now:       "2025-05-20T00:00:00Z",
			wantStart: "2025-06-01T20:00:00Z",
			wantEnd:   "2025-06-01T23:00:00Z",
		},
		{
			name: "ongoing wins over upcoming",
			intervals: func(t *testing.T) []domain.TimeInterval {
				return []domain.TimeInterval{
					single(t, "2025-05-21T08:00:00Z", "2025-05-21T09:00:00Z"),
					single(t, "2025-05-19T10:00:00Z", "2025-05-22T18:00:00Z"),
				}
			},
			now:       "2025-05-20T12:00:00Z",
			wantStart: "2025-05-19T10:00:00Z",
			wantEnd:   "2025-05-22T18:00:00Z",
		},
		{
			name: "overlapping ongoing occurrences are merged",
			intervals: func(t *testing.T) []domain.TimeInterval {
				return []domain.TimeInterval{
					single(t, "2025-05-20T10:00:00Z", "2025-05-20T12:00:00Z"),
					single(t, "2025-05-20T11:00:00Z", "2025-05-20T14:00:00Z"),
				}
			},
			now:       "2025-05-20T11:30:00Z",
			wantStart: "2025-05-20T10:00:00Z",
			wantEnd:   "2025-05-20T14:00:00Z",
		},
		{
			name: "earliest upcoming across intervals",
			intervals: func(t *testing.T) []domain.TimeInterval {
				return []domain.TimeInterval{
					single(t, "2025-07-01T10:00:00Z", "2025-07-01T12:00:00Z"),
					single(t, "2025-06-01T10:00:00Z", "2025-06-01T12:00:00Z"),
				}
			},
			now:       "2025-05-20T00:00:00Z",
			wantStart: "2025-06-01T10:00:00Z",
			wantEnd:   "2025-06-01T12:00:00Z",
		},
		{
			name: "weekly weekdays next upcoming",
			intervals: func(t *testing.T) []domain.TimeInterval {
				return []domain.TimeInterval{{
					Weekdays:  []time.Weekday{time.Monday, time.Wednesday},
					Start:     ts(t, "2025-01-06T10:00:00Z"),
					End:       ts(t, "2025-01-06T12:00:00Z"),
					Frequency: domain.FrequencyWeekly,
					Interval:  1,
				}}
			},
			now:       "2025-05-21T09:00:00Z",
			wantStart: "2025-05-21T10:00:00Z",
			wantEnd:   "2025-05-21T12:00:00Z",
		},
		{
			name: "weekly weekdays ongoing",
			intervals: func(t *testing.T) []domain.TimeInterval {
				return []domain.TimeInterval{{
					Weekdays:  []time.Weekday{time.Monday, time.Wednesday},
					Start:     ts(t, "2025-01-06T10:00:00Z"),
					End:       ts(t, "2025-01-06T12:00:00Z"),
					Frequency: domain.FrequencyWeekly,
					Interval:  1,
				}}
			},
			now:       "2025-05-21T11:00:00Z",
			wantStart: "2025-05-21T10:00:00Z",
			wantEnd:   "2025-05-21T12:00:00Z",
		},
		{
			name: "biweekly skips the off week",
			intervals: func(t *testing.T) []domain.TimeInterval {
				return []domain.TimeInterval{{
					Weekdays:  []time.Weekday{time.Monday},
					Start:     ts(t, "2025-01-06T10:00:00Z"),
					End:       ts(t, "2025-01-06T12:00:00Z"),
					Frequency: domain.FrequencyWeekly,
					Interval:  2,
				}}
			},
			now:       "2025-01-14T00:00:00Z",
			wantStart: "2025-01-20T10:00:00Z",
			wantEnd:   "2025-01-20T12:00:00Z",
		},
		{
			name: "weekly keeps wall clock across daylight saving change",
			intervals: func(t *testing.T) []domain.TimeInterval {
				return []domain.TimeInterval{{
					Weekdays:  []time.Weekday{time.Monday},
					Start:     ts(t, "2025-03-24T18:00:00Z"),
					End:       ts(t, "2025-03-24T20:00:00Z"),
					Timezone:  "Europe/Berlin",
					Frequency: domain.FrequencyWeekly,
					Interval:  1,
				}}
			},
			now:       "2025-04-01T12:00:00Z",
			wantStart: "2025-04-07T17:00:00Z",
			wantEnd:   "2025-04-07T19:00:00Z",
		},
		{
			name: "daily rule anchored years ago",
			intervals: func(t *testing.T) []domain.TimeInterval {
				return []domain.TimeInterval{{
					Start:     ts(t, "2020-01-01T10:00:00Z"),
					End:       ts(t, "2020-01-01T11:00:00Z"),
					Frequency: domain.FrequencyDaily,
					Interval:  1,
				}}
			},
			now:       "2025-05-20T12:00:00Z",
			wantStart: "2025-05-21T10:00:00Z",
			wantEnd:   "2025-05-21T11:00:00Z",
		},
		{
			name: "monthly rule",
			intervals: func(t *testing.T) []domain.TimeInterval {
				return []domain.TimeInterval{{
					Start:     ts(t, "2025-01-15T18:00:00Z"),
					End:       ts(t, "2025-01-15T20:00:00Z"),
					Frequency: domain.FrequencyMonthly,
					Interval:  1,
				}}
			},
			now:       "2025-03-20T00:00:00Z",
			wantStart: "2025-04-15T18:00:00Z",
			wantEnd:   "2025-04-15T20:00:00Z",
		},
		{
			name: "yearly rule",
			intervals: func(t *testing.T) []domain.TimeInterval {
				return []domain.TimeInterval{{
					Start:     ts(t, "2020-07-04T12:00:00Z"),
					End:       ts(t, "2020-07-04T22:00:00Z"),
					Frequency: domain.FrequencyYearly,
					Interval:  1,
				}}
			},
			now:       "2025-05-20T00:00:00Z",
			wantStart: "2025-07-04T12:00:00Z",
			wantEnd:   "2025-07-04T22:00:00Z",
		},
		{
			name: "open ended ongoing occurrence has no end",
			intervals: func(t *testing.T) []domain.TimeInterval {
				return []domain.TimeInterval{{
					Start:     ts(t, "2025-05-01T00:00:00Z"),
					Frequency: domain.FrequencyNone,
					Interval:  1,
				}}
			},
			now:       "2025-05-20T00:00:00Z",
			wantStart: "2025-05-01T00:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window := CalculateEventWindow(tt.intervals(t), ts(t, tt.now))

			require.NotNil(t, window.Start)
			assert.Equal(t, ts(t, tt.wantStart), *window.Start)
			if tt.wantEnd == "" {
				assert.Nil(t, window.End)
				return
			}
			require.NotNil(t, window.End)
			assert.Equal(t, ts(t, tt.wantEnd), *window.End)
		})
	}
}

func TestCalculateEventWindow_NoWindow(t *testing.T) {
	now := ts(t, "2025-05-20T00:00:00Z")

	tests := []struct {
		name      string
		intervals []domain.TimeInterval
	}{
		{name: "no intervals"},
		{
			name: "only past single occurrences",
			intervals: []domain.TimeInterval{
				single(t, "2025-04-01T10:00:00Z", "2025-04-01T12:00:00Z"),
				single(t, "2025-05-19T10:00:00Z", "2025-05-19T23:59:00Z"),
			},
		},
		{
			name: "recurrence that ended before now",
			intervals: []domain.TimeInterval{{
				Weekdays:    []time.Weekday{time.Tuesday},
				Start:       ts(t, "2025-01-07T10:00:00Z"),
				End:         ts(t, "2025-01-07T12:00:00Z"),
				Frequency:   domain.FrequencyWeekly,
				Interval:    1,
				RepeatUntil: tsPtr(t, "2025-03-01T00:00:00Z"),
			}},
		},
		{
			name: "daily recurrence bounded before the next occurrence",
			intervals: []domain.TimeInterval{{
				Start:       ts(t, "2025-05-01T10:00:00Z"),
				End:         ts(t, "2025-05-01T11:00:00Z"),
				Frequency:   domain.FrequencyDaily,
				Interval:    1,
				RepeatUntil: tsPtr(t, "2025-05-20T08:00:00Z"),
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window := CalculateEventWindow(tt.intervals, now)
			assert.True(t, window.IsZero())
		})
	}
}

func TestResolve(t *testing.T) {
	now := ts(t, "2025-05-20T00:00:00Z")
	intervals := []domain.TimeInterval{single(t, "2025-06-01T20:00:00Z", "2025-06-01T23:00:00Z")}

	t.Run("valid hint is used verbatim", func(t *testing.T) {
		window := Resolve(tsPtr(t, "2025-05-25T18:00:00Z"), tsPtr(t, "2025-05-25T20:00:00Z"), intervals, now)

		require.NotNil(t, window.Start)
		assert.Equal(t, ts(t, "2025-05-25T18:00:00Z"), *window.Start)
		assert.Equal(t, ts(t, "2025-05-25T20:00:00Z"), *window.End)
	})

	t.Run("past hint falls back to intervals", func(t *testing.T) {
		window := Resolve(tsPtr(t, "2025-05-01T18:00:00Z"), tsPtr(t, "2025-05-01T20:00:00Z"), intervals, now)

		require.NotNil(t, window.Start)
		assert.Equal(t, ts(t, "2025-06-01T20:00:00Z"), *window.Start)
		assert.Equal(t, ts(t, "2025-06-01T23:00:00Z"), *window.End)
	})

	t.Run("missing hint computes from intervals", func(t *testing.T) {
		window := Resolve(nil, nil, intervals, now)

		require.NotNil(t, window.Start)
		assert.Equal(t, ts(t, "2025-06-01T20:00:00Z"), *window.Start)
	})
}

func TestOccurrences_StopsAtRepeatUntil(t *testing.T) {
	iv := domain.TimeInterval{
		Start:       ts(t, "2025-05-01T10:00:00Z"),
		End:         ts(t, "2025-05-01T11:00:00Z"),
		Frequency:   domain.FrequencyDaily,
		Interval:    1,
		RepeatUntil: tsPtr(t, "2025-05-03T23:59:59Z"),
	}

	var starts []time.Time
	for occ := range Occurrences(iv, ts(t, "2025-04-01T00:00:00Z")) {
		starts = append(starts, occ.Start)
	}

	assert.Equal(t, []time.Time{
		ts(t, "2025-05-01T10:00:00Z"),
		ts(t, "2025-05-02T10:00:00Z"),
		ts(t, "2025-05-03T10:00:00Z"),
	}, starts)
}

func TestCalculateEventWindow_OpenEndedOngoingStaysOpen(t *testing.T) {
	now := ts(t, "2025-05-20T12:00:00Z")
	intervals := []domain.TimeInterval{
		{Start: ts(t, "2025-05-18T12:00:00Z"), Frequency: domain.FrequencyNone, Interval: 1},
		single(t, "2025-05-20T11:00:00Z", "2025-05-20T13:00:00Z"),
	}

	window := CalculateEventWindow(intervals, now)

	require.NotNil(t, window.Start)
	assert.Equal(t, ts(t, "2025-05-18T12:00:00Z"), *window.Start)
	assert.Nil(t, window.End)
}
