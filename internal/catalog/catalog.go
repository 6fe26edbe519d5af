// Package catalog provides the product catalog repository in two
// interchangeable variants: an in-memory fixture set and a REST-backed one.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"myshop/internal/apperr"
	"myshop/internal/config"
	"myshop/internal/models"
	"myshop/internal/resource"
	"myshop/internal/telemetry"
)

type Repository interface {
	ListProducts(ctx context.Context) resource.Result[[]models.Product]
	GetProduct(ctx context.Context, id int) resource.Result[models.Product]
	SearchProducts(ctx context.Context, query string) resource.Result[[]models.Product]
	ListCategories(ctx context.Context) resource.Result[[]string]
	ListProductsByCategory(ctx context.Context, name string) resource.Result[[]models.Product]
}

// New selects the repository variant once, at startup.
func New(source string, client ProductClient) (Repository, error) {
	switch source {
	case config.CatalogFixture:
		return NewFixture(), nil
	case config.CatalogRemote:
		if client == nil {
			return nil, fmt.Errorf("catalog source %q requires a client", source)
		}
		return NewRemote(client), nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", source)
	}
}

// MatchesQuery reports whether query is a case-insensitive substring of the
// product's title, description, brand or category.
func MatchesQuery(p models.Product, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.Description), q) ||
		strings.Contains(strings.ToLower(p.Brand), q) ||
		strings.Contains(strings.ToLower(p.Category), q)
}

func InCategory(p models.Product, name string) bool {
	return strings.EqualFold(p.Category, name)
}

func filter(products []models.Product, keep func(models.Product) bool) []models.Product {
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// finish classifies and logs a failure and records the outcome.
func finish[T any](op string, r resource.Result[T]) resource.Result[T] {
	if err := r.Err(); err != nil {
		classified := apperr.Classify(err)
		slog.Error("Catalog operation failed", "operation", op, "kind", classified.Kind, "error", err)
		r = resource.Failure[T](classified)
	}
	telemetry.ObserveResult(op, r.State().String())
	return r
}
