// Package destinationone syncs listings from the destination.one tourism data API.
package destinationone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"catalog_sync/internal/domain"
)

var defaultFacetTypes = []domain.ContentType{
	domain.ContentTypeEvent,
	domain.ContentTypeTour,
	domain.ContentTypePOI,
}

// Provider plugs the destination.one client into the sync service.
type Provider struct {
	client *Client
	logger *slog.Logger
}

func NewProvider(client *Client, logger *slog.Logger) *Provider {
	return &Provider{
		client: client,
		logger: logger.With("provider", string(domain.ProviderDestinationOne)),
	}
}

func (p *Provider) ID() domain.ProviderID {
	return domain.ProviderDestinationOne
}

// Fetch collects every item the integration selects. With category mappings configured, each
// mapping is queried per provider type and an item returned by several mappings is kept once
// with all of them attached. A failing mapping is counted and skipped. Without mappings the
// fetch is per type, or a single unfiltered fetch, and any failure aborts the run.
func (p *Provider) Fetch(ctx context.Context, cfg *domain.IntegrationConfig, stats *domain.SyncRunStats) (*domain.FetchResult, error) {
	result := &domain.FetchResult{Facets: make(map[domain.ContentType][]string)}

	if cfg.FetchCategoryFacets {
		for _, typ := range facetTypes(cfg) {
			values := p.client.FetchCategoryFacets(ctx, cfg, typ, stats)
			result.Facets[typ] = values
			stats.Facets[typ] = values
		}
	}

	acc := newItemAccumulator()

	switch {
	case len(cfg.CategoryMappings) > 0:
		for i := range cfg.CategoryMappings {
			mapping := cfg.CategoryMappings[i]
			query := CategoryQuery(mapping.DOCategoryValues)

			for _, typ := range mappingTypes(mapping, cfg) {
				items, err := p.client.FetchAllPages(ctx, cfg, typ, query, stats)
				if err != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return nil, fmt.Errorf("fetch mapping %s: %w", mapping.Key(), ctxErr)
					}
					stats.RecordError(domain.ErrorCategoryMappingFetch)
					p.logger.Warn("mapping fetch failed",
						"mapping", mapping.Key(),
						"type", typ,
						"error", err,
					)
					continue
				}

				stats.ItemsByMapping[mappingStatsKey(i, mapping)] += len(items)
				p.collect(acc, stats, items, i, mapping)
			}
		}

	case len(cfg.TypeFilter) > 0:
		for _, typ := range cfg.TypeFilter {
			items, err := p.client.FetchAllPages(ctx, cfg, typ, "", stats)
			if err != nil {
				return nil, fmt.Errorf("fetch %s items: %w", typ, err)
			}
			p.collect(acc, stats, items, -1, domain.CategoryMapping{})
		}

	default:
		items, err := p.client.FetchAllPages(ctx, cfg, "", "", stats)
		if err != nil {
			return nil, fmt.Errorf("fetch items: %w", err)
		}
		p.collect(acc, stats, items, -1, domain.CategoryMapping{})
	}

	result.Items = acc.items()
	p.logger.Info("fetched items",
		"unique", len(result.Items),
		"api_calls", len(stats.APICalls),
	)
	return result, nil
}

// collect adds items to acc. Items without an id cannot be deduplicated or upserted and are
// counted as processing errors instead.
func (p *Provider) collect(acc *itemAccumulator, stats *domain.SyncRunStats, items []Item, index int, mapping domain.CategoryMapping) {
	for _, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			stats.RecordError(domain.ErrorCategoryListingProcessing)
			p.logger.Warn("skipping item without id", "type", item.Type, "title", item.Title)
			continue
		}
		acc.add(item, index, mapping)
	}
}

// mappingStatsKey labels a mapping in ItemsByMapping. The position keeps mappings with the same
// target slugs apart.
func mappingStatsKey(index int, m domain.CategoryMapping) string {
	return strconv.Itoa(index) + ":" + m.Key()
}

// Transform converts a fetched item. The payload must come from this provider's Fetch.
func (p *Provider) Transform(
	cfg *domain.IntegrationConfig,
	facets map[domain.ContentType][]string,
	fetched domain.FetchedItem,
	now time.Time,
) (*domain.Listing, error) {
	item, ok := fetched.Payload.(Item)
	if !ok {
		return nil, errors.New("payload is not a destination.one item")
	}
	return Transform(item, cfg, facets[domain.ContentType(item.Type)], fetched.Mappings, now)
}

// mappingTypes returns the mapping's declared types admitted by the global type filter. A
// mapping without types inherits the filter, or queries all types when there is none.
func mappingTypes(m domain.CategoryMapping, cfg *domain.IntegrationConfig) []domain.ContentType {
	if len(m.DOTypes) == 0 {
		if len(cfg.TypeFilter) == 0 {
			return []domain.ContentType{""}
		}
		return cfg.TypeFilter
	}

	types := make([]domain.ContentType, 0, len(m.DOTypes))
	for _, t := range m.DOTypes {
		if cfg.AllowsType(t) && !slices.Contains(types, t) {
			types = append(types, t)
		}
	}
	return types
}

func facetTypes(cfg *domain.IntegrationConfig) []domain.ContentType {
	if len(cfg.TypeFilter) > 0 {
		return cfg.TypeFilter
	}

	var types []domain.ContentType
	for _, m := range cfg.CategoryMappings {
		for _, t := range m.DOTypes {
			if !slices.Contains(types, t) {
				types = append(types, t)
			}
		}
	}
	if len(types) == 0 {
		return defaultFacetTypes
	}
	return types
}

// itemAccumulator keeps the first-seen order of unique items and every mapping that matched them.
type itemAccumulator struct {
	order    []string
	byID     map[string]Item
	mappings map[string][]domain.CategoryMapping
	matched  map[string][]int
}

func newItemAccumulator() *itemAccumulator {
	return &itemAccumulator{
		byID:     make(map[string]Item),
		mappings: make(map[string][]domain.CategoryMapping),
		matched:  make(map[string][]int),
	}
}

// add records item under the mapping at index. A negative index means no mapping.
func (a *itemAccumulator) add(item Item, index int, mapping domain.CategoryMapping) {
	if _, seen := a.byID[item.ID]; !seen {
		a.byID[item.ID] = item
		a.order = append(a.order, item.ID)
	}
	if index < 0 || slices.Contains(a.matched[item.ID], index) {
		return
	}
	a.matched[item.ID] = append(a.matched[item.ID], index)
	a.mappings[item.ID] = append(a.mappings[item.ID], mapping)
}

func (a *itemAccumulator) items() []domain.FetchedItem {
	items := make([]domain.FetchedItem, 0, len(a.order))
	for _, id := range a.order {
		item := a.byID[id]
		items = append(items, domain.FetchedItem{
			ExternalID: id,
			Type:       domain.ContentType(item.Type),
			Payload:    item,
			Mappings:   a.mappings[id],
		})
	}
	return items
}
