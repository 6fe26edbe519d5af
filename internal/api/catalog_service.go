package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"myshop/internal/apperr"
	"myshop/internal/catalog"
	"myshop/internal/models"
	"myshop/internal/resource"
	"myshop/internal/telemetry"
)

// CatalogService exposes a catalog repository over the REST shape the
// remote catalog client consumes.
type CatalogService struct {
	repo catalog.Repository
}

func NewCatalogService(repo catalog.Repository) *CatalogService {
	return &CatalogService{repo: repo}
}

func (s *CatalogService) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /products", telemetry.Middleware(s.listProducts))
	mux.HandleFunc("GET /products/search", telemetry.Middleware(s.searchProducts))
	mux.HandleFunc("GET /products/category-list", telemetry.Middleware(s.listCategories))
	mux.HandleFunc("GET /products/category/{name}", telemetry.Middleware(s.listByCategory))
	mux.HandleFunc("GET /products/{id}", telemetry.Middleware(s.getProduct))
}

func (s *CatalogService) listProducts(w http.ResponseWriter, r *http.Request) {
	servePage(w, s.repo.ListProducts(r.Context()))
}

func (s *CatalogService) searchProducts(w http.ResponseWriter, r *http.Request) {
	servePage(w, s.repo.SearchProducts(r.Context(), r.URL.Query().Get("q")))
}

func (s *CatalogService) listByCategory(w http.ResponseWriter, r *http.Request) {
	servePage(w, s.repo.ListProductsByCategory(r.Context(), r.PathValue("name")))
}

func (s *CatalogService) listCategories(w http.ResponseWriter, r *http.Request) {
	serve(w, s.repo.ListCategories(r.Context()))
}

func (s *CatalogService) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}
	serve(w, s.repo.GetProduct(r.Context(), id))
}

func servePage(w http.ResponseWriter, r resource.Result[[]models.Product]) {
	serve(w, resource.Map(r, func(products []models.Product) models.ProductsPage {
		return models.ProductsPage{Products: products, Total: len(products), Limit: len(products)}
	}))
}

// serve writes the bare value, as a plain REST backend would, rather than the
// gateway's Result envelope.
func serve[T any](w http.ResponseWriter, r resource.Result[T]) {
	v, ok := r.Value()
	if !ok {
		err := r.Err()
		if err == nil {
			err = apperr.New(apperr.KindUnknown, "no result")
		}
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
