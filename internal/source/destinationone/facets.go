package destinationone

import (
	"context"
	"slices"
	"strings"

	"catalog_sync/internal/domain"
)

const categoryFacetField = "category"

// FetchCategoryFacets returns the sorted, distinct category values the provider knows for typ.
// Resolution failures are logged and yield an empty list.
func (c *Client) FetchCategoryFacets(ctx context.Context, cfg *domain.IntegrationConfig, typ domain.ContentType, calls CallLog) []string {
	key := facetCacheKey(cfg, typ)
	if c.facets != nil {
		if values, ok := c.facets.Get(ctx, key); ok {
			return values
		}
	}

	resp, err := c.search(ctx, cfg, searchParams{
		Type:     typ,
		Facets:   true,
		Page:     1,
		PageSize: 1,
	}, calls)
	if err != nil {
		c.logger.Warn("category facet resolution failed", "type", typ, "error", err)
		return []string{}
	}

	values := categoryFacetValues(resp.FacetGroups)
	if c.facets != nil {
		if err := c.facets.Set(ctx, key, values); err != nil {
			c.logger.Warn("failed to cache category facets", "type", typ, "error", err)
		}
	}
	return values
}

func categoryFacetValues(groups []FacetGroup) []string {
	seen := make(map[string]struct{})
	values := []string{}
	for _, group := range groups {
		if group.Field != categoryFacetField {
			continue
		}
		for _, facet := range group.Facets {
			v := strings.TrimSpace(facet.Value)
			if v == "" {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			values = append(values, v)
		}
	}
	slices.Sort(values)
	return values
}

func facetCacheKey(cfg *domain.IntegrationConfig, typ domain.ContentType) string {
	return strings.Join([]string{cfg.Experience, templateFor(cfg), string(typ)}, ":")
}
