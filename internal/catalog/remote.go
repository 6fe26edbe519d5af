package catalog

import (
	"context"

	"myshop/internal/models"
	"myshop/internal/resource"
)

// ProductClient is the REST transport the remote variant reads through.
type ProductClient interface {
	GetProducts(ctx context.Context) (models.ProductsPage, error)
	GetProduct(ctx context.Context, id int) (models.Product, error)
	SearchProducts(ctx context.Context, query string) (models.ProductsPage, error)
	GetCategories(ctx context.Context) ([]string, error)
	GetProductsByCategory(ctx context.Context, name string) (models.ProductsPage, error)
}

type Remote struct {
	client ProductClient
}

func NewRemote(client ProductClient) *Remote {
	return &Remote{client: client}
}

func (r *Remote) ListProducts(ctx context.Context) resource.Result[[]models.Product] {
	page, err := r.client.GetProducts(ctx)
	return finish("catalog.list_products", resource.FromPair(page.Products, err))
}

func (r *Remote) GetProduct(ctx context.Context, id int) resource.Result[models.Product] {
	product, err := r.client.GetProduct(ctx, id)
	return finish("catalog.get_product", resource.FromPair(product, err))
}

// SearchProducts re-applies the shared predicate to the backend's answer so
// both variants agree on what a match is.
func (r *Remote) SearchProducts(ctx context.Context, query string) resource.Result[[]models.Product] {
	page, err := r.client.SearchProducts(ctx, query)
	if err != nil {
		return finish("catalog.search_products", resource.Failure[[]models.Product](err))
	}
	matches := filter(page.Products, func(p models.Product) bool { return MatchesQuery(p, query) })
	return finish("catalog.search_products", resource.Success(matches))
}

func (r *Remote) ListCategories(ctx context.Context) resource.Result[[]string] {
	categories, err := r.client.GetCategories(ctx)
	return finish("catalog.list_categories", resource.FromPair(categories, err))
}

func (r *Remote) ListProductsByCategory(ctx context.Context, name string) resource.Result[[]models.Product] {
	page, err := r.client.GetProductsByCategory(ctx, name)
	if err != nil {
		return finish("catalog.list_products_by_category", resource.Failure[[]models.Product](err))
	}
	matches := filter(page.Products, func(p models.Product) bool { return InCategory(p, name) })
	return finish("catalog.list_products_by_category", resource.Success(matches))
}
