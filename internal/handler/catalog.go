package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/webshop/backend/internal/catalog"
)

// CatalogHandler serves product and category read endpoints.
type CatalogHandler struct {
	svc catalog.Service
}

func NewCatalogHandler(svc catalog.Service) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// parseListParams pulls the listing filters out of the query string.
// Malformed values surface as validation errors rather than being ignored.
func parseListParams(r *http.Request) (catalog.ListParams, map[string]string) {
	q := r.URL.Query()
	params := catalog.ListParams{}
	fields := map[string]string{}

	if raw := q.Get("min_price"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			fields["min_price"] = "must be a decimal number"
		} else {
			params.MinPrice = &d
		}
	}
	if raw := q.Get("max_price"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			fields["max_price"] = "must be a decimal number"
		} else {
			params.MaxPrice = &d
		}
	}
	if raw := q.Get("rating"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fields["rating"] = "must be a number"
		} else {
			params.MinRating = &f
		}
	}
	if raw := q.Get("in_stock"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			fields["in_stock"] = "must be a boolean"
		} else {
			params.InStock = &b
		}
	}
	if raw := q.Get("is_featured"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			fields["is_featured"] = "must be a boolean"
		} else {
			params.IsFeatured = &b
		}
	}
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields["page"] = "must be a positive integer"
		} else {
			params.Page = n
		}
	}

	params.CategorySlug = q.Get("category")
	params.Search = q.Get("search")

	if ordering := q.Get("ordering"); ordering != "" {
		if ordering[0] == '-' {
			params.SortDesc = true
			ordering = ordering[1:]
		}
		params.SortBy = catalog.SortField(ordering)
	}

	return params, fields
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	params, fields := parseListParams(r)
	if len(fields) > 0 {
		respondValidation(w, "invalid filters", fields)
		return
	}

	page, err := h.svc.ListProducts(r.Context(), params)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	product, err := h.svc.GetProductBySlug(r.Context(), slug)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, productDetail(product))
}

// productDetail decorates the product with its computed fields for the
// detail payload.
func productDetail(p *catalog.Product) map[string]any {
	return map[string]any{
		"id":                  p.ID,
		"name":                p.Name,
		"slug":                p.Slug,
		"description":         p.Description,
		"short_description":   p.ShortDescription,
		"category_id":         p.CategoryID,
		"category_name":       p.CategoryName,
		"price":               p.Price,
		"compare_price":       p.ComparePrice,
		"discount_percentage": p.DiscountPercentage(),
		"stock_quantity":      p.StockQuantity,
		"is_in_stock":         p.IsInStock(),
		"sku":                 p.SKU,
		"is_active":           p.IsActive,
		"is_featured":         p.IsFeatured,
		"average_rating":      p.AverageRating,
		"review_count":        p.ReviewCount,
		"images":              p.Images,
		"created_at":          p.CreatedAt,
		"updated_at":          p.UpdatedAt,
	}
}

// QuickView serves the trimmed payload behind the storefront's quick-view
// modal: the short description only, and at most three images.
func (h *CatalogHandler) QuickView(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	p, err := h.svc.GetProductBySlug(r.Context(), slug)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	images := p.Images
	if len(images) > 3 {
		images = images[:3]
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"id":                  p.ID,
		"name":                p.Name,
		"slug":                p.Slug,
		"short_description":   p.ShortDescription,
		"price":               p.Price,
		"compare_price":       p.ComparePrice,
		"discount_percentage": p.DiscountPercentage(),
		"stock_quantity":      p.StockQuantity,
		"is_in_stock":         p.IsInStock(),
		"category":            p.CategoryName,
		"average_rating":      p.AverageRating,
		"review_count":        p.ReviewCount,
		"images":              images,
	})
}

func (h *CatalogHandler) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.FeaturedProducts(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"count":   len(products),
		"results": products,
	})
}

func (h *CatalogHandler) RelatedProducts(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	products, err := h.svc.RelatedProducts(r.Context(), slug)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"count":   len(products),
		"results": products,
	})
}

func (h *CatalogHandler) SearchSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.svc.SearchSuggestions(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (h *CatalogHandler) FilterOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.svc.FilterOptions(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, opts)
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"count":   len(categories),
		"results": categories,
	})
}

// CategoryProducts lists products constrained to a category slug; all other
// listing filters still apply.
func (h *CatalogHandler) CategoryProducts(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if _, err := h.svc.GetCategoryBySlug(r.Context(), slug); err != nil {
		respondWithError(w, r, err)
		return
	}

	params, fields := parseListParams(r)
	if len(fields) > 0 {
		respondValidation(w, "invalid filters", fields)
		return
	}
	params.CategorySlug = slug

	page, err := h.svc.ListProducts(r.Context(), params)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}
