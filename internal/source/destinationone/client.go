package destinationone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"catalog_sync/internal/domain"
	"catalog_sync/internal/metrics"
)

const (
	DefaultBaseURL  = "https://meta.et4.de/rest.ashx/search/"
	DefaultTemplate = "ET2014A.json"

	defaultPageSize = 100
	defaultTimeout  = 30 * time.Second
	// maxPages stops pagination when the provider ignores paging parameters.
	maxPages = 1000
)

// Config holds destination.one client configuration.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	PageSize         int
	RateLimit        float64
	RateBurst        int
	BreakerFailures  uint32
	BreakerOpenDelay time.Duration
}

// CallLog receives the redacted URL of every provider request.
type CallLog interface {
	RecordAPICall(url string)
}

// FacetCache stores resolved facet lists between runs.
type FacetCache interface {
	Get(ctx context.Context, key string) ([]string, bool)
	Set(ctx context.Context, key string, values []string) error
}

type Option func(*Client)

func WithFacetCache(cache FacetCache) Option {
	return func(c *Client) { c.facets = cache }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// Client queries the destination.one search endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	pageSize   int
	timeout    time.Duration
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*SearchResponse]
	facets     FacetCache
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates a new destination.one client.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerOpenDelay == 0 {
		cfg.BreakerOpenDelay = time.Minute
	}

	logger = logger.With("provider", string(domain.ProviderDestinationOne))

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:  cfg.BaseURL,
		pageSize: cfg.PageSize,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}

	failures := cfg.BreakerFailures
	c.breaker = gobreaker.NewCircuitBreaker[*SearchResponse](gobreaker.Settings{
		Name:    "destinationone",
		Timeout: cfg.BreakerOpenDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: breakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPage fetches one page of items of the given type. An empty type or query is omitted
// from the request.
func (c *Client) FetchPage(
	ctx context.Context,
	cfg *domain.IntegrationConfig,
	typ domain.ContentType,
	query string,
	page, pageSize int,
	calls CallLog,
) (*Page, error) {
	resp, err := c.search(ctx, cfg, searchParams{
		Type:     typ,
		Query:    query,
		Page:     page,
		PageSize: pageSize,
	}, calls)
	if err != nil {
		return nil, err
	}

	return &Page{
		Items:        resp.Items,
		Count:        resp.Count,
		OverallCount: resp.OverallCount,
	}, nil
}

// FetchAllPages walks pages from 1 until a page is empty, the reported overall count is reached
// or a page comes back short. Items are deduplicated by id across pages;
// items without an id are all kept.
func (c *Client) FetchAllPages(
	ctx context.Context,
	cfg *domain.IntegrationConfig,
	typ domain.ContentType,
	query string,
	calls CallLog,
) ([]Item, error) {
	pageSize := c.pageSizeFor(cfg)
	seen := make(map[string]struct{})
	var items []Item
	fetched := 0

	for page := 1; page <= maxPages; page++ {
		p, err := c.FetchPage(ctx, cfg, typ, query, page, pageSize, calls)
		if err != nil {
			return nil, err
		}
		if len(p.Items) == 0 {
			break
		}

		fetched += len(p.Items)
		for _, item := range p.Items {
			if id := strings.TrimSpace(item.ID); id != "" {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
			}
			items = append(items, item)
		}

		c.logger.Debug("fetched page",
			"type", typ,
			"page", page,
			"items", len(p.Items),
			"total", len(items),
			"overall", p.OverallCount,
		)

		if p.OverallCount > 0 && fetched >= p.OverallCount {
			break
		}
		count := p.Count
		if count == 0 {
			count = len(p.Items)
		}
		if count < pageSize {
			break
		}
		if page == maxPages {
			c.logger.Warn("pagination limit reached", "type", typ, "pages", maxPages)
		}
	}

	return items, nil
}

type searchParams struct {
	Type     domain.ContentType
	Query    string
	Facets   bool
	Page     int
	PageSize int
}

func (c *Client) search(ctx context.Context, cfg *domain.IntegrationConfig, params searchParams, calls CallLog) (*SearchResponse, error) {
	reqURL := c.requestURL(cfg, params)
	if calls != nil {
		calls.RecordAPICall(RedactURL(reqURL))
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for rate limiter: %w", err)
		}
	}

	resp, err := c.breaker.Execute(func() (*SearchResponse, error) {
		return c.doRequest(ctx, reqURL)
	})
	if err != nil {
		c.metrics.IncProviderRequest(string(domain.ProviderDestinationOne), "error")
		return nil, &domain.ProviderFetchError{
			Type:  params.Type,
			Query: params.Query,
			Page:  params.Page,
			Err:   err,
		}
	}

	c.metrics.IncProviderRequest(string(domain.ProviderDestinationOne), "ok")
	return resp, nil
}

func (c *Client) doRequest(ctx context.Context, reqURL string) (*SearchResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "CatalogSync/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport errors embed the request URL, which carries the license key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = RedactURL(urlErr.URL)
		}
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &searchResp, nil
}

// StatusError reports a non-2xx provider response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.StatusCode)
}

// breakerSuccess counts 4xx responses and cancellations as successes so only provider outages
// trip the breaker shared by all integrations.
func breakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode < http.StatusInternalServerError
}

func (c *Client) requestURL(cfg *domain.IntegrationConfig, params searchParams) string {
	base := cfg.BaseURL
	if base == "" {
		base = c.baseURL
	}

	values := url.Values{}
	values.Set("experience", cfg.Experience)
	values.Set("licensekey", cfg.LicenseKey)
	values.Set("template", templateFor(cfg))
	if params.Type != "" {
		values.Set("type", string(params.Type))
	}
	if params.Query != "" {
		values.Set("q", params.Query)
	}
	if params.Facets {
		values.Set("facets", "true")
	}
	if params.Page > 0 {
		values.Set("page", strconv.Itoa(params.Page))
	}
	if params.PageSize > 0 {
		values.Set("pagesize", strconv.Itoa(params.PageSize))
	}

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + values.Encode()
}

func (c *Client) pageSizeFor(cfg *domain.IntegrationConfig) int {
	if cfg.PageSize > 0 {
		return cfg.PageSize
	}
	return c.pageSize
}

func templateFor(cfg *domain.IntegrationConfig) string {
	if cfg.Template != "" {
		return cfg.Template
	}
	return DefaultTemplate
}

// RedactURL replaces the license key query value with ***.
func RedactURL(raw string) string {
	base, query, found := strings.Cut(raw, "?")
	if !found {
		return raw
	}

	params := strings.Split(query, "&")
	for i, param := range params {
		key, _, _ := strings.Cut(param, "=")
		if strings.EqualFold(key, "licensekey") {
			params[i] = key + "=***"
		}
	}
	return base + "?" + strings.Join(params, "&")
}
