// Package messaging implements the RabbitMQ request/response boundaries of the syncer: listing
// upserts sent to the catalog ingestion service and sync triggers received from operators.
package messaging

import (
	"time"

	"catalog_sync/internal/domain"
)

// DirectReplyTo is RabbitMQ's pseudo queue for RPC replies without a declared reply queue.
const DirectReplyTo = "amq.rabbitmq.reply-to"

type UpsertRequest struct {
	IntegrationID string          `json:"integrationId"`
	ListingData   *domain.Listing `json:"listingData"`
	Timestamp     time.Time       `json:"timestamp"`
}

type UpsertResponse struct {
	Action    domain.UpsertAction `json:"action"`
	ListingID string              `json:"listingId"`
	Error     string              `json:"error,omitempty"`
}

type TriggerRequest struct {
	IntegrationID string     `json:"integrationId"`
	Timestamp     *time.Time `json:"timestamp,omitempty"`
}

type TriggerResponse struct {
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Skipped int    `json:"skipped"`
	Error   string `json:"error,omitempty"`
}
