package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"catalog_sync/internal/domain"
)

type SyncLogStore struct {
	db *sqlx.DB
}

func NewSyncLogStore(db *sqlx.DB) *SyncLogStore {
	return &SyncLogStore{db: db}
}

// Insert writes the log entry and sets its ID.
func (s *SyncLogStore) Insert(ctx context.Context, log *domain.SyncLog) error {
	payload, err := json.Marshal(log.Payload)
	if err != nil {
		return fmt.Errorf("marshal sync log payload: %w", err)
	}
	response, err := json.Marshal(log.Response)
	if err != nil {
		return fmt.Errorf("marshal sync log response: %w", err)
	}

	createdAt := log.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO sync_logs (
			integration_id, run_id, event, payload, response, status, error_message, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		RETURNING id`

	err = GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		log.IntegrationID,
		log.RunID,
		log.Event,
		string(payload),
		string(response),
		string(log.Status),
		log.ErrorMessage,
		createdAt,
	).Scan(&log.ID)
	if err != nil {
		return fmt.Errorf("insert sync log: %w", err)
	}

	log.CreatedAt = createdAt
	return nil
}
