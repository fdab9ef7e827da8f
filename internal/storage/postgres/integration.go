package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"catalog_sync/internal/domain"
)

type IntegrationStore struct {
	db *sqlx.DB
}

func NewIntegrationStore(db *sqlx.DB) *IntegrationStore {
	return &IntegrationStore{db: db}
}

type integrationRow struct {
	ID         string       `db:"id"`
	Provider   string       `db:"provider"`
	IsActive   bool         `db:"is_active"`
	Config     []byte       `db:"config"`
	LastSyncAt sql.NullTime `db:"last_sync_at"`
	CreatedAt  time.Time    `db:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at"`
}

func (r integrationRow) toDomain() (*domain.Integration, error) {
	integration := &domain.Integration{
		ID:        r.ID,
		Provider:  domain.ProviderID(r.Provider),
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if len(r.Config) > 0 {
		if err := json.Unmarshal(r.Config, &integration.Config); err != nil {
			return nil, fmt.Errorf("decode config of integration %s: %w", r.ID, err)
		}
	}
	if r.LastSyncAt.Valid {
		t := r.LastSyncAt.Time
		integration.LastSyncAt = &t
	}
	return integration, nil
}

const integrationColumns = `id, provider, is_active, config, last_sync_at, created_at, updated_at`

func (s *IntegrationStore) Get(ctx context.Context, id string) (*domain.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE id = $1`

	var row integrationRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get integration %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get integration %s: %w", id, err)
	}
	return row.toDomain()
}

// ListActive returns the active integrations of the given providers ordered by id.
func (s *IntegrationStore) ListActive(ctx context.Context, providers []domain.ProviderID) ([]domain.Integration, error) {
	if len(providers) == 0 {
		return nil, nil
	}

	ids := make([]string, len(providers))
	for i, p := range providers {
		ids[i] = string(p)
	}

	query := `SELECT ` + integrationColumns + `
		FROM integrations
		WHERE is_active AND provider = ANY($1)
		ORDER BY id`

	var rows []integrationRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list active integrations: %w", err)
	}

	integrations := make([]domain.Integration, 0, len(rows))
	for _, row := range rows {
		integration, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		integrations = append(integrations, *integration)
	}
	return integrations, nil
}

func (s *IntegrationStore) UpdateLastSyncAt(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE integrations SET last_sync_at = $2, updated_at = now() WHERE id = $1`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("update last sync of integration %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update last sync of integration %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update last sync of integration %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
