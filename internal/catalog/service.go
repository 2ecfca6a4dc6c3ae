package catalog

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/webshop/backend/internal/apperr"
)

const (
	// DefaultPageSize is the public product listing window.
	DefaultPageSize = 12

	relatedLimit            = 6
	featuredLimit           = 8
	suggestionProductLimit  = 10
	suggestionCategoryLimit = 5
	minSuggestionQueryLen   = 2
)

// Page is the standard list envelope for paginated results.
type Page struct {
	Count       int       `json:"count"`
	TotalPages  int       `json:"total_pages"`
	CurrentPage int       `json:"current_page"`
	PageSize    int       `json:"page_size"`
	Results     []Product `json:"results"`
}

type Service interface {
	CreateCategory(ctx context.Context, c *Category) error
	UpdateCategory(ctx context.Context, c *Category) error
	GetCategoryBySlug(ctx context.Context, slug string) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)

	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	ListProducts(ctx context.Context, params ListParams) (*Page, error)
	RelatedProducts(ctx context.Context, slug string) ([]Product, error)
	FeaturedProducts(ctx context.Context) ([]Product, error)
	SearchSuggestions(ctx context.Context, query string) (*Suggestions, error)
	FilterOptions(ctx context.Context) (*FilterOptions, error)

	AddImage(ctx context.Context, img *ProductImage) error
	SetPrimaryImage(ctx context.Context, productID, imageID uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func validateCategory(c *Category) map[string]string {
	fields := map[string]string{}
	if c.Name == "" {
		fields["name"] = "name is required"
	}
	if c.Slug == "" {
		fields["slug"] = "slug is required"
	}
	return fields
}

func (s *service) CreateCategory(ctx context.Context, c *Category) error {
	if fields := validateCategory(c); len(fields) > 0 {
		return apperr.Validation("invalid category", fields)
	}
	if c.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("service: failed to generate category id: %w", err)
		}
		c.ID = id
	}
	if err := s.checkParentChain(ctx, c.ID, c.ParentID); err != nil {
		return err
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return fmt.Errorf("service: failed to create category: %w", err)
	}
	log.Info().Stringer("category_id", c.ID).Str("slug", c.Slug).Msg("service: category created")
	return nil
}

func (s *service) UpdateCategory(ctx context.Context, c *Category) error {
	if fields := validateCategory(c); len(fields) > 0 {
		return apperr.Validation("invalid category", fields)
	}
	if err := s.checkParentChain(ctx, c.ID, c.ParentID); err != nil {
		return err
	}
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return apperr.NotFound("category")
		}
		return fmt.Errorf("service: failed to update category: %w", err)
	}
	return nil
}

// checkParentChain walks the parent references from parentID upward and
// rejects the write if it would make id its own ancestor.
func (s *service) checkParentChain(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error {
	seen := map[uuid.UUID]bool{id: true}
	for parentID != nil {
		if seen[*parentID] {
			return apperr.Validation("invalid category", map[string]string{
				"parent_id": "parent chain must not form a cycle",
			})
		}
		seen[*parentID] = true

		parent, err := s.repo.GetCategoryByID(ctx, *parentID)
		if err != nil {
			if errors.Is(err, ErrCategoryNotFound) {
				return apperr.Validation("invalid category", map[string]string{
					"parent_id": "parent category does not exist",
				})
			}
			return fmt.Errorf("service: failed to resolve parent category: %w", err)
		}
		parentID = parent.ParentID
	}
	return nil
}

func (s *service) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	c, err := s.repo.GetCategoryBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return nil, apperr.NotFound("category")
		}
		return nil, fmt.Errorf("service: failed to fetch category: %w", err)
	}
	return c, nil
}

func (s *service) ListCategories(ctx context.Context) ([]Category, error) {
	categories, err := s.repo.ListActiveCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list categories: %w", err)
	}
	return categories, nil
}

func validateProduct(p *Product) map[string]string {
	fields := map[string]string{}
	if p.Name == "" {
		fields["name"] = "name is required"
	}
	if p.Slug == "" {
		fields["slug"] = "slug is required"
	}
	if p.SKU == "" {
		fields["sku"] = "sku is required"
	}
	if p.CategoryID == uuid.Nil {
		fields["category_id"] = "category_id is required"
	}
	if p.Price.IsNegative() {
		fields["price"] = "price must not be negative"
	}
	if p.ComparePrice != nil && p.ComparePrice.IsNegative() {
		fields["compare_price"] = "compare_price must not be negative"
	}
	if p.StockQuantity < 0 {
		fields["stock_quantity"] = "stock_quantity must not be negative"
	}
	return fields
}

func (s *service) CreateProduct(ctx context.Context, p *Product) error {
	if fields := validateProduct(p); len(fields) > 0 {
		return apperr.Validation("invalid product", fields)
	}
	if _, err := s.repo.GetCategoryByID(ctx, p.CategoryID); err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return apperr.Validation("invalid product", map[string]string{
				"category_id": "category does not exist",
			})
		}
		return fmt.Errorf("service: failed to resolve category: %w", err)
	}
	if p.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("service: failed to generate product id: %w", err)
		}
		p.ID = id
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return fmt.Errorf("service: failed to create product: %w", err)
	}
	log.Info().Stringer("product_id", p.ID).Str("sku", p.SKU).Msg("service: product created")
	return nil
}

func (s *service) UpdateProduct(ctx context.Context, p *Product) error {
	if fields := validateProduct(p); len(fields) > 0 {
		return apperr.Validation("invalid product", fields)
	}
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return apperr.NotFound("product")
		}
		return fmt.Errorf("service: failed to update product: %w", err)
	}
	return nil
}

func (s *service) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	p, err := s.repo.GetActiveProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, apperr.NotFound("product")
		}
		return nil, fmt.Errorf("service: failed to fetch product: %w", err)
	}
	return p, nil
}

// DeleteProduct deactivates instead of removing the row.
func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeactivateProduct(ctx, id); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return apperr.NotFound("product")
		}
		return fmt.Errorf("service: failed to deactivate product: %w", err)
	}
	log.Info().Stringer("product_id", id).Msg("service: product deactivated")
	return nil
}

func (s *service) ListProducts(ctx context.Context, params ListParams) (*Page, error) {
	if params.MinPrice != nil && params.MinPrice.IsNegative() {
		return nil, apperr.Validation("invalid filters", map[string]string{"min_price": "must not be negative"})
	}
	if params.MaxPrice != nil && params.MaxPrice.IsNegative() {
		return nil, apperr.Validation("invalid filters", map[string]string{"max_price": "must not be negative"})
	}
	if params.MinRating != nil && (*params.MinRating < 0 || *params.MinRating > 5) {
		return nil, apperr.Validation("invalid filters", map[string]string{"rating": "must be between 0 and 5"})
	}
	switch params.SortBy {
	case "", SortByPrice, SortByCreatedAt, SortByName:
	default:
		return nil, apperr.Validation("invalid filters", map[string]string{"ordering": "must be one of price, created_at, name"})
	}
	if params.SortBy == "" {
		params.SortBy = SortByCreatedAt
		params.SortDesc = true
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = DefaultPageSize
	}

	products, total, err := s.repo.ListProducts(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list products: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	if totalPages == 0 {
		totalPages = 1
	}
	return &Page{
		Count:       total,
		TotalPages:  totalPages,
		CurrentPage: params.Page,
		PageSize:    params.PageSize,
		Results:     products,
	}, nil
}

func (s *service) RelatedProducts(ctx context.Context, slug string) ([]Product, error) {
	p, err := s.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	related, err := s.repo.RelatedProducts(ctx, p.CategoryID, p.ID, relatedLimit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch related products: %w", err)
	}
	return related, nil
}

func (s *service) FeaturedProducts(ctx context.Context) ([]Product, error) {
	featured, err := s.repo.FeaturedProducts(ctx, featuredLimit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch featured products: %w", err)
	}
	return featured, nil
}

// SearchSuggestions returns nothing for queries shorter than two characters.
func (s *service) SearchSuggestions(ctx context.Context, query string) (*Suggestions, error) {
	if utf8.RuneCountInString(query) < minSuggestionQueryLen {
		return &Suggestions{Products: []Suggestion{}, Categories: []Suggestion{}}, nil
	}
	suggestions, err := s.repo.SearchSuggestions(ctx, query, suggestionProductLimit, suggestionCategoryLimit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch search suggestions: %w", err)
	}
	return suggestions, nil
}

func (s *service) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	opts, err := s.repo.FilterOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch filter options: %w", err)
	}
	return opts, nil
}

func (s *service) AddImage(ctx context.Context, img *ProductImage) error {
	if img.URL == "" {
		return apperr.Validation("invalid image", map[string]string{"url": "url is required"})
	}
	if _, err := s.repo.GetProductByID(ctx, img.ProductID); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return apperr.NotFound("product")
		}
		return fmt.Errorf("service: failed to resolve product: %w", err)
	}
	if img.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("service: failed to generate image id: %w", err)
		}
		img.ID = id
	}
	if err := s.repo.AddImage(ctx, img); err != nil {
		return fmt.Errorf("service: failed to add image: %w", err)
	}
	if img.IsPrimary {
		if err := s.SetPrimaryImage(ctx, img.ProductID, img.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) SetPrimaryImage(ctx context.Context, productID, imageID uuid.UUID) error {
	if err := s.repo.SetPrimaryImage(ctx, productID, imageID); err != nil {
		if errors.Is(err, ErrImageNotFound) {
			return apperr.NotFound("product image")
		}
		return fmt.Errorf("service: failed to set primary image: %w", err)
	}
	log.Info().Stringer("product_id", productID).Stringer("image_id", imageID).Msg("service: primary image set")
	return nil
}
