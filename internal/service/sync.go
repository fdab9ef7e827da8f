package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"catalog_sync/internal/config"
	"catalog_sync/internal/domain"
	"catalog_sync/internal/metrics"
)

type SyncService struct {
	registry     *Registry
	integrations IntegrationStore
	logs         SyncLogStore
	txManager    TransactionManager
	dispatcher   Dispatcher
	metrics      *metrics.Metrics
	logger       *slog.Logger
	config       config.SyncConfig

	now      func() time.Time
	newRunID func() string
}

func NewSyncService(
	registry *Registry,
	integrations IntegrationStore,
	logs SyncLogStore,
	txManager TransactionManager,
	dispatcher Dispatcher,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg config.SyncConfig,
) *SyncService {
	return &SyncService{
		registry:     registry,
		integrations: integrations,
		logs:         logs,
		txManager:    txManager,
		dispatcher:   dispatcher,
		metrics:      m,
		logger:       logger,
		config:       cfg,
		now:          time.Now,
		newRunID:     uuid.NewString,
	}
}

// SyncAll runs every active integration of the registered providers one after another. A failed
// integration does not stop the others; all failures are joined into the returned error.
func (s *SyncService) SyncAll(ctx context.Context) error {
	integrations, err := s.integrations.ListActive(ctx, s.registry.IDs())
	if err != nil {
		return fmt.Errorf("list active integrations: %w", err)
	}

	s.logger.Info("syncing active integrations", "count", len(integrations))

	var errs []error
	for _, integration := range integrations {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		if err := s.syncWithTimeout(ctx, integration.ID); err != nil {
			errs = append(errs, fmt.Errorf("sync integration %s: %w", integration.ID, err))
		}
	}

	return errors.Join(errs...)
}

func (s *SyncService) syncWithTimeout(ctx context.Context, integrationID string) error {
	if s.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RunTimeout)
		defer cancel()
	}
	_, err := s.SyncIntegration(ctx, integrationID)
	return err
}

// SyncIntegration runs one sync for the integration and returns the aggregated upsert counts.
// Inactive or disabled integrations yield a zero result. A configuration or fetch failure is
// recorded as a FAILED sync log before it is returned.
func (s *SyncService) SyncIntegration(ctx context.Context, integrationID string) (*domain.SyncResult, error) {
	integration, err := s.integrations.Get(ctx, integrationID)
	if err != nil {
		return nil, fmt.Errorf("load integration: %w", err)
	}

	cfg := integration.Config
	provider, ok := s.registry.Lookup(integration.Provider)
	if !ok || (cfg.Provider != "" && cfg.Provider != integration.Provider) {
		return nil, fmt.Errorf("%w: provider %s", domain.ErrNotApplicable, integration.Provider)
	}

	logger := s.logger.With(
		"integration_id", integration.ID,
		"provider", string(integration.Provider),
	)

	if !integration.IsActive || !cfg.Enabled {
		logger.Info("integration disabled, skipping sync")
		return &domain.SyncResult{}, nil
	}

	run := &syncRun{
		integration: integration,
		provider:    provider,
		stats:       domain.NewSyncRunStats(s.newRunID()),
		started:     time.Now(),
	}
	run.logger = logger.With("run_id", run.stats.RunID)

	if err := cfg.Validate(); err != nil {
		return nil, s.fail(ctx, run, err)
	}

	run.logger.Info("starting sync")

	fetched, err := provider.Fetch(ctx, &cfg, run.stats)
	if err != nil {
		return nil, s.fail(ctx, run, fmt.Errorf("fetch items: %w", err))
	}

	for category, n := range run.stats.ErrorsByCategory {
		s.metrics.AddErrors(string(integration.Provider), category, n)
	}

	run.logger.Info("items to sync", "count", len(fetched.Items))

	now := s.now()
	for _, item := range fetched.Items {
		if err := ctx.Err(); err != nil {
			return nil, s.fail(ctx, run, fmt.Errorf("sync interrupted: %w", err))
		}

		run.stats.ItemsProcessed++
		run.stats.ItemsByType[item.Type]++

		action, err := s.processItem(ctx, run, &cfg, fetched.Facets, item, now)
		if err != nil {
			run.stats.RecordError(domain.ErrorCategoryListingProcessing)
			s.metrics.IncError(string(integration.Provider), domain.ErrorCategoryListingProcessing)
			run.logger.Warn("failed to process item",
				"external_id", item.ExternalID,
				"type", item.Type,
				"error", err,
			)
			continue
		}
		s.metrics.IncListing(string(integration.Provider), string(action))
	}

	if err := s.finalize(ctx, run); err != nil {
		return nil, s.fail(ctx, run, fmt.Errorf("finalize sync: %w", err))
	}

	result := run.stats.Result()
	run.logger.Info("sync completed",
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"errors", run.stats.ErrorCount(),
		"api_calls", len(run.stats.APICalls),
		"duration", time.Since(run.started),
	)

	return &result, nil
}

// syncRun is the state owned by a single SyncIntegration call.
type syncRun struct {
	integration *domain.Integration
	provider    Provider
	stats       *domain.SyncRunStats
	logger      *slog.Logger
	started     time.Time
}

func (s *SyncService) processItem(
	ctx context.Context,
	run *syncRun,
	cfg *domain.IntegrationConfig,
	facets map[domain.ContentType][]string,
	item domain.FetchedItem,
	now time.Time,
) (action domain.UpsertAction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	listing, err := run.provider.Transform(cfg, facets, item, now)
	if err != nil {
		return "", fmt.Errorf("transform: %w", err)
	}

	result, err := s.dispatcher.Upsert(ctx, run.integration.ID, listing)
	if err != nil {
		return "", fmt.Errorf("dispatch: %w", err)
	}
	if !result.Action.Valid() {
		return "", fmt.Errorf("dispatch: unknown action %q", result.Action)
	}

	run.stats.RecordAction(result.Action)
	run.stats.TagOperations += len(listing.Tags)
	return result.Action, nil
}

func (s *SyncService) finalize(ctx context.Context, run *syncRun) error {
	finishedAt := s.now()
	entry := &domain.SyncLog{
		IntegrationID: run.integration.ID,
		RunID:         run.stats.RunID,
		Event:         domain.EventSyncCompleted,
		Payload:       run.stats.Payload(),
		Response:      run.stats.Response(),
		Status:        domain.SyncStatusSuccess,
		CreatedAt:     finishedAt,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.integrations.UpdateLastSyncAt(txCtx, run.integration.ID, finishedAt); err != nil {
			return fmt.Errorf("update last sync: %w", err)
		}
		if err := s.logs.Insert(txCtx, entry); err != nil {
			return fmt.Errorf("insert sync log: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.ObserveRun(string(run.integration.Provider), string(domain.SyncStatusSuccess), time.Since(run.started))
	return nil
}

// fail persists a FAILED sync log for the run and returns cause. The log is written outside any
// transaction and even when ctx is already cancelled.
func (s *SyncService) fail(ctx context.Context, run *syncRun, cause error) error {
	run.logger.Error("sync failed", "error", cause)

	msg := cause.Error()
	entry := &domain.SyncLog{
		IntegrationID: run.integration.ID,
		RunID:         run.stats.RunID,
		Event:         domain.EventSyncFailed,
		Payload:       run.stats.Payload(),
		Response:      run.stats.Response(),
		Status:        domain.SyncStatusFailed,
		ErrorMessage:  &msg,
		CreatedAt:     s.now(),
	}
	if err := s.logs.Insert(context.WithoutCancel(ctx), entry); err != nil {
		run.logger.Error("failed to write sync log", "error", err)
	}

	s.metrics.ObserveRun(string(run.integration.Provider), string(domain.SyncStatusFailed), time.Since(run.started))
	return cause
}
