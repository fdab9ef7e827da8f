package domain

import (
	"maps"
	"time"
)

type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "SUCCESS"
	SyncStatusFailed  SyncStatus = "FAILED"
)

// Sync log events.
const (
	EventSyncCompleted = "sync_completed"
	EventSyncFailed    = "sync_failed"
)

// UpsertAction is what the catalog ingestion service did with a listing.
type UpsertAction string

const (
	ActionCreated UpsertAction = "created"
	ActionUpdated UpsertAction = "updated"
	ActionSkipped UpsertAction = "skipped"
)

func (a UpsertAction) Valid() bool {
	return a == ActionCreated || a == ActionUpdated || a == ActionSkipped
}

type UpsertResult struct {
	Action    UpsertAction `json:"action"`
	ListingID string       `json:"listingId"`
}

// SyncResult is returned to sync trigger callers.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// FetchedItem is one unique provider item together with every category mapping whose query returned it.
// Payload holds the provider-specific item and is only interpreted by the provider that fetched it.
type FetchedItem struct {
	ExternalID string
	Type       ContentType
	Payload    any
	Mappings   []CategoryMapping
}

// FetchResult is the output of a provider's fetch phase.
type FetchResult struct {
	Items  []FetchedItem
	Facets map[ContentType][]string
}

// SyncRunStats accumulates the counters of a single sync run. It is owned by one run and not shared.
type SyncRunStats struct {
	RunID            string
	Created          int
	Updated          int
	Skipped          int
	ItemsProcessed   int
	ItemsByType      map[ContentType]int
	ItemsByMapping   map[string]int
	TagOperations    int
	Facets           map[ContentType][]string
	ErrorsByCategory map[string]int
	APICalls         []string
}

func NewSyncRunStats(runID string) *SyncRunStats {
	return &SyncRunStats{
		RunID:            runID,
		ItemsByType:      make(map[ContentType]int),
		ItemsByMapping:   make(map[string]int),
		Facets:           make(map[ContentType][]string),
		ErrorsByCategory: make(map[string]int),
	}
}

// RecordAPICall appends an already redacted provider URL.
func (s *SyncRunStats) RecordAPICall(url string) {
	s.APICalls = append(s.APICalls, url)
}

func (s *SyncRunStats) RecordError(category string) {
	s.ErrorsByCategory[category]++
}

func (s *SyncRunStats) RecordAction(action UpsertAction) {
	switch action {
	case ActionCreated:
		s.Created++
	case ActionUpdated:
		s.Updated++
	case ActionSkipped:
		s.Skipped++
	}
}

func (s *SyncRunStats) ErrorCount() int {
	total := 0
	for _, n := range s.ErrorsByCategory {
		total += n
	}
	return total
}

func (s *SyncRunStats) Result() SyncResult {
	return SyncResult{Created: s.Created, Updated: s.Updated, Skipped: s.Skipped}
}

// Payload is the structured body persisted in the sync log.
func (s *SyncRunStats) Payload() map[string]any {
	payload := map[string]any{
		"runId":            s.RunID,
		"itemsProcessed":   s.ItemsProcessed,
		"itemsByType":      maps.Clone(s.ItemsByType),
		"itemsByMapping":   maps.Clone(s.ItemsByMapping),
		"errorsByCategory": maps.Clone(s.ErrorsByCategory),
		"tagOperations":    s.TagOperations,
		"apiCalls":         append([]string(nil), s.APICalls...),
		"apiCallCount":     len(s.APICalls),
	}
	if len(s.Facets) > 0 {
		payload["categoryFacets"] = maps.Clone(s.Facets)
	}
	return payload
}

func (s *SyncRunStats) Response() map[string]any {
	return map[string]any{
		"created": s.Created,
		"updated": s.Updated,
		"skipped": s.Skipped,
		"errors":  s.ErrorCount(),
	}
}

// SyncLog is the record written once per sync run.
type SyncLog struct {
	ID            int64
	IntegrationID string
	RunID         string
	Event         string
	Payload       map[string]any
	Response      map[string]any
	Status        SyncStatus
	ErrorMessage  *string
	CreatedAt     time.Time
}
