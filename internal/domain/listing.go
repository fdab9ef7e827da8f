package domain

import (
	"encoding/json"
	"time"
)

// Frequency is the recurrence cadence of a time interval.
type Frequency string

const (
	FrequencyNone    Frequency = "NONE"
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyYearly  Frequency = "YEARLY"
)

// IsRecurring reports whether f describes a repeating rule.
func (f Frequency) IsRecurring() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// TimeInterval is a single occurrence or a recurrence rule.
// End is zero for open-ended intervals.
type TimeInterval struct {
	Weekdays    []time.Weekday `json:"weekdays,omitempty"`
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	Timezone    string         `json:"timezone,omitempty"`
	Frequency   Frequency      `json:"frequency"`
	Interval    int            `json:"interval"`
	RepeatUntil *time.Time     `json:"repeatUntil,omitempty"`
}

// TimestampLayout renders instants in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp is an instant serialized with TimestampLayout.
type Timestamp time.Time

func NewTimestamp(t time.Time) *Timestamp {
	ts := Timestamp(t.UTC())
	return &ts
}

func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

func (t Timestamp) String() string {
	return time.Time(t).UTC().Format(TimestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed.UTC())
	return nil
}

// MediaMetadata records where a media item came from.
type MediaMetadata struct {
	Relation string `json:"relation"`
	MimeType string `json:"mimeType,omitempty"`
	Source   string `json:"source,omitempty"`
	License  string `json:"license,omitempty"`
}

type MediaItem struct {
	URL      string        `json:"url"`
	Order    int           `json:"order"`
	Caption  string        `json:"caption,omitempty"`
	Metadata MediaMetadata `json:"metadata"`
}

// Listing is the normalized catalog payload built from one provider item.
type Listing struct {
	Title          string         `json:"title"`
	Summary        string         `json:"summary,omitempty"`
	Content        string         `json:"content"`
	Slug           string         `json:"slug"`
	ContentType    ContentType    `json:"contentType"`
	ExternalSource ProviderID     `json:"externalSource"`
	ExternalID     string         `json:"externalId"`
	SyncHash       string         `json:"syncHash"`
	PrimaryCityID  string         `json:"primaryCityId"`
	Address        string         `json:"address,omitempty"`
	Latitude       *float64       `json:"latitude,omitempty"`
	Longitude      *float64       `json:"longitude,omitempty"`
	Phone          string         `json:"phone,omitempty"`
	Email          string         `json:"email,omitempty"`
	Website        string         `json:"website,omitempty"`
	HeroImageURL   string         `json:"heroImageUrl,omitempty"`
	Gallery        []MediaItem    `json:"gallery,omitempty"`
	CategorySlugs  []string       `json:"categorySlugs"`
	Tags           []string       `json:"tags,omitempty"`
	TimeIntervals  []TimeInterval `json:"timeIntervals,omitempty"`
	EventStart     *Timestamp     `json:"eventStart,omitempty"`
	EventEnd       *Timestamp     `json:"eventEnd,omitempty"`
}
