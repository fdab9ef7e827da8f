package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ProviderID identifies an upstream listing provider.
type ProviderID string

const ProviderDestinationOne ProviderID = "DESTINATION_ONE"

// ContentType is the provider's content type of an item.
type ContentType string

const (
	ContentTypeEvent  ContentType = "Event"
	ContentTypeTour   ContentType = "Tour"
	ContentTypePOI    ContentType = "POI"
	ContentTypeGastro ContentType = "Gastro"
	ContentTypeHotel  ContentType = "Hotel"
)

// Integration is the persisted record that enables syncing from one provider account.
type Integration struct {
	ID         string
	Provider   ProviderID
	IsActive   bool
	Config     IntegrationConfig
	LastSyncAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IntegrationConfig is the per-integration sync configuration stored alongside the integration.
type IntegrationConfig struct {
	Provider                  ProviderID        `json:"provider"`
	Enabled                   bool              `json:"enabled"`
	Experience                string            `json:"experience"`
	LicenseKey                string            `json:"licenseKey"`
	BaseURL                   string            `json:"baseUrl,omitempty"`
	Template                  string            `json:"template,omitempty"`
	TypeFilter                []ContentType     `json:"typeFilter,omitempty"`
	CategoryMappings          []CategoryMapping `json:"categoryMappings,omitempty"`
	CityID                    string            `json:"cityId"`
	PageSize                  int               `json:"pageSize,omitempty"`
	StoreItemCategoriesAsTags bool              `json:"storeItemCategoriesAsTags,omitempty"`
	FetchCategoryFacets       bool              `json:"fetchCategoryFacets,omitempty"`
}

// Validate reports the required fields that are missing.
func (c *IntegrationConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Experience) == "" {
		missing = append(missing, "experience")
	}
	if strings.TrimSpace(c.LicenseKey) == "" {
		missing = append(missing, "licenseKey")
	}
	if strings.TrimSpace(c.CityID) == "" {
		missing = append(missing, "cityId")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

// AllowsType reports whether the global type filter admits t. An empty filter admits every type.
func (c *IntegrationConfig) AllowsType(t ContentType) bool {
	return len(c.TypeFilter) == 0 || slices.Contains(c.TypeFilter, t)
}

// CategoryMapping translates a provider category query into catalog category slugs.
type CategoryMapping struct {
	DOTypes               []ContentType `json:"doTypes"`
	DOCategoryValues      []string      `json:"doCategoryValues"`
	TargetCategorySlug    string        `json:"categorySlug"`
	TargetSubcategorySlug string        `json:"subcategorySlug,omitempty"`
}

// Key labels the mapping in per-mapping statistics.
func (m CategoryMapping) Key() string {
	if m.TargetSubcategorySlug == "" {
		return m.TargetCategorySlug
	}
	return m.TargetCategorySlug + "/" + m.TargetSubcategorySlug
}

// Slugs returns the non-empty target slugs of the mapping.
func (m CategoryMapping) Slugs() []string {
	slugs := make([]string, 0, 2)
	if m.TargetCategorySlug != "" {
		slugs = append(slugs, m.TargetCategorySlug)
	}
	if m.TargetSubcategorySlug != "" {
		slugs = append(slugs, m.TargetSubcategorySlug)
	}
	return slugs
}
