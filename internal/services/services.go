package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"myshop/internal/apperr"
	"myshop/internal/models"
	"myshop/internal/resilience"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CatalogClient talks to the REST catalog backend. Timeouts, retries and
// the circuit breaker live here so the repositories above stay policy-free.
type CatalogClient struct {
	baseURL  string
	client   *http.Client
	attempts int
	delay    time.Duration
	cb       *resilience.CircuitBreaker
}

type Option func(*CatalogClient)

func WithHTTPClient(c *http.Client) Option {
	return func(s *CatalogClient) { s.client = c }
}

func WithRetry(attempts int, delay time.Duration) Option {
	return func(s *CatalogClient) {
		s.attempts = attempts
		s.delay = delay
	}
}

func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(s *CatalogClient) { s.cb = cb }
}

func NewCatalogClient(baseURL string, opts ...Option) *CatalogClient {
	s := &CatalogClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		attempts: 3,
		delay:    500 * time.Millisecond,
		cb:       resilience.NewCircuitBreaker("catalog", 3, 10*time.Second),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CatalogClient) fetchJSON(ctx context.Context, endpoint string, target any) error {
	err := s.cb.Execute(func() error {
		return resilience.Retry(ctx, s.attempts, s.delay, func(ctx context.Context) error {
			return s.get(ctx, endpoint, target)
		})
	}, countsAgainstBackend)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrProbeInProgress):
		return apperr.Wrap(apperr.KindTransport, err, "catalog backend unavailable")
	}

	var classified *apperr.Error
	if errors.As(err, &classified) {
		return err
	}
	return apperr.Wrap(apperr.KindTransport, err, "catalog request failed")
}

func (s *CatalogClient) get(ctx context.Context, endpoint string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return resilience.Permanent(apperr.Wrap(apperr.KindUnknown, err, "build catalog request"))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resilience.Permanent(apperr.Newf(apperr.KindNotFound, "catalog resource %s not found", endpoint))
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("server error: %d", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resilience.Permanent(apperr.Newf(apperr.KindTransport, "bad status code: %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return resilience.Permanent(apperr.Wrap(apperr.KindTransport, err, "decode catalog response"))
	}
	return nil
}

// countsAgainstBackend keeps answers the backend gave on purpose (404, 4xx)
// from tripping the breaker.
func countsAgainstBackend(err error) bool {
	kind := apperr.KindOf(err)
	return kind != apperr.KindNotFound && !errors.Is(err, context.Canceled)
}

func (s *CatalogClient) GetProducts(ctx context.Context) (models.ProductsPage, error) {
	var page models.ProductsPage
	if err := s.fetchJSON(ctx, "/products?limit=0", &page); err != nil {
		return models.ProductsPage{}, err
	}
	return page, nil
}

func (s *CatalogClient) GetProduct(ctx context.Context, id int) (models.Product, error) {
	var product models.Product
	if err := s.fetchJSON(ctx, fmt.Sprintf("/products/%d", id), &product); err != nil {
		return models.Product{}, err
	}
	return product, nil
}

func (s *CatalogClient) SearchProducts(ctx context.Context, query string) (models.ProductsPage, error) {
	var page models.ProductsPage
	endpoint := "/products/search?" + url.Values{"q": {query}, "limit": {"0"}}.Encode()
	if err := s.fetchJSON(ctx, endpoint, &page); err != nil {
		return models.ProductsPage{}, err
	}
	return page, nil
}

func (s *CatalogClient) GetCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := s.fetchJSON(ctx, "/products/category-list", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *CatalogClient) GetProductsByCategory(ctx context.Context, name string) (models.ProductsPage, error) {
	var page models.ProductsPage
	endpoint := "/products/category/" + url.PathEscape(name) + "?limit=0"
	if err := s.fetchJSON(ctx, endpoint, &page); err != nil {
		return models.ProductsPage{}, err
	}
	return page, nil
}
