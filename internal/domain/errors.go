package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("integration not found")
	ErrNotApplicable = errors.New("integration not applicable")
	ErrInvalidConfig = errors.New("invalid integration config")
)

// Error categories recorded in SyncRunStats.ErrorsByCategory.
const (
	ErrorCategoryListingProcessing = "listing_processing"
	ErrorCategoryMappingFetch      = "mapping_fetch"
)

// ProviderFetchError is returned when a provider request fails at the network or HTTP level.
type ProviderFetchError struct {
	Type  ContentType
	Query string
	Page  int
	Err   error
}

func (e *ProviderFetchError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("provider fetch page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("provider fetch %s page %d: %v", e.Type, e.Page, e.Err)
}

func (e *ProviderFetchError) Unwrap() error {
	return e.Err
}
