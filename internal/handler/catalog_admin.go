package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/webshop/backend/internal/apperr"
	"github.com/webshop/backend/internal/catalog"
)

// Staff-only write endpoints for the catalog. The router gates all of these
// behind RequireStaff.

type categoryRequest struct {
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description,omitempty"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	IsActive    *bool      `json:"is_active,omitempty"`
}

func (req *categoryRequest) apply(c *catalog.Category) {
	c.Name = req.Name
	c.Slug = req.Slug
	c.Description = req.Description
	c.ParentID = req.ParentID
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c := catalog.Category{IsActive: true}
	req.apply(&c)
	if err := h.svc.CreateCategory(r.Context(), &c); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, c)
}

func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, r, apperr.Validation("invalid category id", nil))
		return
	}

	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c := catalog.Category{ID: categoryID, IsActive: true}
	req.apply(&c)
	if err := h.svc.UpdateCategory(r.Context(), &c); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

type productRequest struct {
	Name             string           `json:"name"`
	Slug             string           `json:"slug"`
	Description      string           `json:"description,omitempty"`
	ShortDescription string           `json:"short_description,omitempty"`
	CategoryID       uuid.UUID        `json:"category_id"`
	Price            decimal.Decimal  `json:"price"`
	ComparePrice     *decimal.Decimal `json:"compare_price,omitempty"`
	StockQuantity    int              `json:"stock_quantity"`
	SKU              string           `json:"sku"`
	IsActive         *bool            `json:"is_active,omitempty"`
	IsFeatured       bool             `json:"is_featured"`
}

func (req *productRequest) apply(p *catalog.Product) {
	p.Name = req.Name
	p.Slug = req.Slug
	p.Description = req.Description
	p.ShortDescription = req.ShortDescription
	p.CategoryID = req.CategoryID
	p.Price = req.Price
	p.ComparePrice = req.ComparePrice
	p.StockQuantity = req.StockQuantity
	p.SKU = req.SKU
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	p.IsFeatured = req.IsFeatured
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := catalog.Product{IsActive: true}
	req.apply(&p)
	if err := h.svc.CreateProduct(r.Context(), &p); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, productDetail(&p))
}

func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, r, apperr.Validation("invalid product id", nil))
		return
	}

	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := catalog.Product{ID: productID, IsActive: true}
	req.apply(&p)
	if err := h.svc.UpdateProduct(r.Context(), &p); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, productDetail(&p))
}

func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, r, apperr.Validation("invalid product id", nil))
		return
	}

	if err := h.svc.DeleteProduct(r.Context(), productID); err != nil {
		respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type imageRequest struct {
	URL       string `json:"url"`
	AltText   string `json:"alt_text,omitempty"`
	IsPrimary bool   `json:"is_primary"`
	SortOrder int    `json:"sort_order"`
}

func (h *CatalogHandler) AddProductImage(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, r, apperr.Validation("invalid product id", nil))
		return
	}

	var req imageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	img := catalog.ProductImage{
		ProductID: productID,
		URL:       req.URL,
		AltText:   req.AltText,
		IsPrimary: req.IsPrimary,
		SortOrder: req.SortOrder,
	}
	if err := h.svc.AddImage(r.Context(), &img); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, img)
}

func (h *CatalogHandler) SetPrimaryImage(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, r, apperr.Validation("invalid product id", nil))
		return
	}
	imageID, err := uuid.FromString(chi.URLParam(r, "imageID"))
	if err != nil {
		respondWithError(w, r, apperr.Validation("invalid image id", nil))
		return
	}

	if err := h.svc.SetPrimaryImage(r.Context(), productID, imageID); err != nil {
		respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
