package catalog

import (
	"context"
	"slices"

	"myshop/internal/apperr"
	"myshop/internal/models"
	"myshop/internal/resource"
)

// Fixture serves a static product set without any I/O.
type Fixture struct {
	page       models.ProductsPage
	categories []string
}

func NewFixture() *Fixture {
	return NewFixtureFrom(FixtureProducts(), FixtureCategories())
}

func NewFixtureFrom(page models.ProductsPage, categories []string) *Fixture {
	return &Fixture{page: page, categories: categories}
}

// Page returns the fixture envelope as the REST backend would serve it.
func (f *Fixture) Page() models.ProductsPage {
	page := f.page
	page.Products = slices.Clone(f.page.Products)
	return page
}

func (f *Fixture) ListProducts(ctx context.Context) resource.Result[[]models.Product] {
	return finish("catalog.list_products", resource.Success(slices.Clone(f.page.Products)))
}

func (f *Fixture) GetProduct(ctx context.Context, id int) resource.Result[models.Product] {
	i := slices.IndexFunc(f.page.Products, func(p models.Product) bool { return p.ID == id })
	if i < 0 {
		return finish("catalog.get_product", resource.Failure[models.Product](apperr.New(apperr.KindNotFound, "product not found")))
	}
	return finish("catalog.get_product", resource.Success(f.page.Products[i]))
}

func (f *Fixture) SearchProducts(ctx context.Context, query string) resource.Result[[]models.Product] {
	matches := filter(f.page.Products, func(p models.Product) bool { return MatchesQuery(p, query) })
	return finish("catalog.search_products", resource.Success(matches))
}

func (f *Fixture) ListCategories(ctx context.Context) resource.Result[[]string] {
	return finish("catalog.list_categories", resource.Success(slices.Clone(f.categories)))
}

func (f *Fixture) ListProductsByCategory(ctx context.Context, name string) resource.Result[[]models.Product] {
	matches := filter(f.page.Products, func(p models.Product) bool { return InCategory(p, name) })
	return finish("catalog.list_products_by_category", resource.Success(matches))
}

func FixtureProducts() models.ProductsPage {
	return models.ProductsPage{
		Products: []models.Product{
			{
				ID:                 1,
				Title:              "Men's T-Shirt",
				Description:        "Comfortable cotton t-shirt for men.",
				Price:              19,
				DiscountPercentage: 10.0,
				Rating:             4.5,
				Stock:              100,
				Brand:              "Brand A",
				Category:           "clothing",
				Thumbnail:          "https://i.dummyjson.com/data/products/51/thumbnail.jpg",
				Images: []string{
					"https://i.dummyjson.com/data/products/51/1.jpg",
					"https://i.dummyjson.com/data/products/51/2.jpg",
				},
			},
			{
				ID:                 2,
				Title:              "Women's Dress",
				Description:        "Stylish summer dress for women.",
				Price:              49,
				DiscountPercentage: 15.0,
				Rating:             4.7,
				Stock:              50,
				Brand:              "Brand B",
				Category:           "clothing",
				Thumbnail:          "https://i.dummyjson.com/data/products/41/thumbnail.jpg",
				Images: []string{
					"https://i.dummyjson.com/data/products/41/1.jpg",
					"https://i.dummyjson.com/data/products/41/2.jpg",
				},
			},
			{
				ID:                 3,
				Title:              "Men's Jeans",
				Description:        "Classic fit jeans for men.",
				Price:              39,
				DiscountPercentage: 5.0,
				Rating:             4.3,
				Stock:              75,
				Brand:              "Brand C",
				Category:           "clothing",
				Thumbnail:          "https://i.dummyjson.com/data/products/31/thumbnail.jpg",
				Images: []string{
					"https://i.dummyjson.com/data/products/31/1.jpg",
					"https://i.dummyjson.com/data/products/31/2.jpg",
				},
			},
		},
		Total: 3,
		Skip:  0,
		Limit: 10,
	}
}

func FixtureCategories() []string {
	return []string{"clothing", "accessories", "footwear", "bags", "jewelry"}
}
