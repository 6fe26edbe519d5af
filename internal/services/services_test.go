package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myshop/internal/apperr"
	"myshop/internal/resilience"
)

const pageJSON = `{"products":[{"id":1,"title":"Men's T-Shirt","price":19,"brand":"Brand A","category":"clothing","images":["a.jpg"]}],"total":1,"skip":0,"limit":0}`

func newTestClient(t *testing.T, h http.HandlerFunc) *CatalogClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewCatalogClient(srv.URL,
		WithRetry(3, time.Millisecond),
		WithCircuitBreaker(resilience.NewCircuitBreaker("test", 100, time.Minute)),
	)
}

func TestGetProducts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products", r.URL.Path)
		assert.Equal(t, "0", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(pageJSON))
	})

	page, err := c.GetProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Brand A", page.Products[0].Brand)
	assert.Equal(t, 1, page.Total)
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	})

	_, err := c.GetProduct(context.Background(), 99)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestServerErrorsAreRetriedThenTransport(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.GetCategories(context.Background())
	assert.ErrorIs(t, err, apperr.ErrTransport)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTransientFailureRecovers(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`["clothing","bags"]`))
	})

	categories, err := c.GetCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"clothing", "bags"}, categories)
}

func TestSearchAndCategoryEncodeParameters(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products/search":
			assert.Equal(t, "brand a", r.URL.Query().Get("q"))
		case "/products/category/home decor":
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(pageJSON))
	})

	_, err := c.SearchProducts(context.Background(), "brand a")
	require.NoError(t, err)
	_, err = c.GetProductsByCategory(context.Background(), "home decor")
	require.NoError(t, err)
}

func TestOpenBreakerShortCircuits(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := NewCatalogClient(srv.URL,
		WithRetry(1, time.Millisecond),
		WithCircuitBreaker(resilience.NewCircuitBreaker("test", 1, time.Minute)),
	)

	_, err := c.GetProducts(context.Background())
	assert.ErrorIs(t, err, apperr.ErrTransport)

	_, err = c.GetProducts(context.Background())
	assert.ErrorIs(t, err, apperr.ErrTransport)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMalformedBodyIsTransport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"products": [`))
	})

	_, err := c.GetProducts(context.Background())
	assert.ErrorIs(t, err, apperr.ErrTransport)
}
