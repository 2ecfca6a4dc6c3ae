package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/webshop/backend/internal/apperr"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrImageNotFound    = errors.New("product image not found")
)

// SortField is a caller-selectable ordering column for product listings.
type SortField string

const (
	SortByPrice     SortField = "price"
	SortByCreatedAt SortField = "created_at"
	SortByName      SortField = "name"
)

// ListParams are the AND-combinable product listing filters. Nil pointer
// fields are not applied.
type ListParams struct {
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	CategorySlug string
	MinRating    *float64
	InStock      *bool
	IsFeatured   *bool
	Search       string
	SortBy       SortField
	SortDesc     bool
	Page         int
	PageSize     int
}

type Suggestion struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Suggestions struct {
	Products   []Suggestion `json:"products"`
	Categories []Suggestion `json:"categories"`
}

type CategoryCount struct {
	Category
	ProductCount int `json:"product_count"`
}

type FilterOptions struct {
	MinPrice   decimal.Decimal `json:"min_price"`
	MaxPrice   decimal.Decimal `json:"max_price"`
	Categories []CategoryCount `json:"categories"`
}

type Repository interface {
	CreateCategory(ctx context.Context, c *Category) error
	UpdateCategory(ctx context.Context, c *Category) error
	GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*Category, error)
	ListActiveCategories(ctx context.Context) ([]Category, error)

	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
	GetActiveProductBySlug(ctx context.Context, slug string) (*Product, error)
	DeactivateProduct(ctx context.Context, id uuid.UUID) error
	ListProducts(ctx context.Context, params ListParams) ([]Product, int, error)
	RelatedProducts(ctx context.Context, categoryID, excludeID uuid.UUID, limit int) ([]Product, error)
	FeaturedProducts(ctx context.Context, limit int) ([]Product, error)
	SearchSuggestions(ctx context.Context, query string, productLimit, categoryLimit int) (*Suggestions, error)
	FilterOptions(ctx context.Context) (*FilterOptions, error)

	AddImage(ctx context.Context, img *ProductImage) error
	ListImages(ctx context.Context, productID uuid.UUID) ([]ProductImage, error)
	SetPrimaryImage(ctx context.Context, productID, imageID uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation, which the service surfaces as a conflict.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (r *postgresRepository) CreateCategory(ctx context.Context, c *Category) error {
	query := `
		INSERT INTO categories (id, name, slug, description, is_active, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, c.ID, c.Name, c.Slug, c.Description, c.IsActive, c.ParentID).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("category name or slug already exists")
		}
		return fmt.Errorf("repository: failed to insert category: %w", err)
	}
	return nil
}

func (r *postgresRepository) UpdateCategory(ctx context.Context, c *Category) error {
	query := `
		UPDATE categories
		SET name = $1, slug = $2, description = $3, is_active = $4, parent_id = $5, updated_at = now()
		WHERE id = $6
	`
	tag, err := r.db.Exec(ctx, query, c.Name, c.Slug, c.Description, c.IsActive, c.ParentID, c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("category name or slug already exists")
		}
		return fmt.Errorf("repository: failed to update category %s: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

const categoryColumns = `id, name, slug, description, is_active, parent_id, created_at, updated_at`

func scanCategory(row pgx.Row, c *Category) error {
	return row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.IsActive, &c.ParentID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *postgresRepository) GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	var c Category
	err := scanCategory(r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id), &c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("repository: failed to select category %s: %w", id, err)
	}
	return &c, nil
}

func (r *postgresRepository) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	var c Category
	err := scanCategory(r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, slug), &c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("repository: failed to select category by slug %q: %w", slug, err)
	}
	return &c, nil
}

func (r *postgresRepository) ListActiveCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Query(ctx, `SELECT `+categoryColumns+` FROM categories WHERE is_active = true ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := scanCategory(rows, &c); err != nil {
			return nil, fmt.Errorf("repository: failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating categories: %w", err)
	}
	return categories, nil
}

func (r *postgresRepository) CreateProduct(ctx context.Context, p *Product) error {
	query := `
		INSERT INTO products (id, name, slug, description, short_description, category_id,
			price, compare_price, stock_quantity, sku, is_active, is_featured, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		p.ID, p.Name, p.Slug, p.Description, p.ShortDescription, p.CategoryID,
		p.Price, p.ComparePrice, p.StockQuantity, p.SKU, p.IsActive, p.IsFeatured,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("product slug or sku already exists")
		}
		return fmt.Errorf("repository: failed to insert product: %w", err)
	}
	return nil
}

func (r *postgresRepository) UpdateProduct(ctx context.Context, p *Product) error {
	query := `
		UPDATE products
		SET name = $1, slug = $2, description = $3, short_description = $4, category_id = $5,
			price = $6, compare_price = $7, stock_quantity = $8, sku = $9,
			is_active = $10, is_featured = $11, updated_at = now()
		WHERE id = $12
	`
	tag, err := r.db.Exec(ctx, query,
		p.Name, p.Slug, p.Description, p.ShortDescription, p.CategoryID,
		p.Price, p.ComparePrice, p.StockQuantity, p.SKU, p.IsActive, p.IsFeatured, p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("product slug or sku already exists")
		}
		return fmt.Errorf("repository: failed to update product %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// productColumns selects product fields plus the category name and review
// aggregates; queries using it must join categories c and group accordingly.
const productSelect = `
	SELECT p.id, p.name, p.slug, p.description, p.short_description, p.category_id, c.name,
		p.price, p.compare_price, p.stock_quantity, p.sku, p.is_active, p.is_featured,
		COALESCE(AVG(r.rating), 0)::float8, COUNT(r.id)::int,
		p.created_at, p.updated_at
	FROM products p
	JOIN categories c ON c.id = p.category_id
	LEFT JOIN reviews r ON r.product_id = p.id
`

const productGroupBy = ` GROUP BY p.id, c.name`

func scanProduct(rows pgx.Row, p *Product) error {
	return rows.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.ShortDescription, &p.CategoryID, &p.CategoryName,
		&p.Price, &p.ComparePrice, &p.StockQuantity, &p.SKU, &p.IsActive, &p.IsFeatured,
		&p.AverageRating, &p.ReviewCount,
		&p.CreatedAt, &p.UpdatedAt,
	)
}

func (r *postgresRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	var p Product
	err := scanProduct(r.db.QueryRow(ctx, productSelect+` WHERE p.id = $1`+productGroupBy, id), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product %s: %w", id, err)
	}
	return &p, nil
}

func (r *postgresRepository) GetActiveProductBySlug(ctx context.Context, slug string) (*Product, error) {
	var p Product
	err := scanProduct(r.db.QueryRow(ctx, productSelect+` WHERE p.slug = $1 AND p.is_active = true`+productGroupBy, slug), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product by slug %q: %w", slug, err)
	}

	images, err := r.ListImages(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Images = images
	return &p, nil
}

// DeactivateProduct soft-deletes: the row stays, read paths filter it out.
func (r *postgresRepository) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET is_active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to deactivate product %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) ListProducts(ctx context.Context, params ListParams) ([]Product, int, error) {
	var (
		conds  = []string{"p.is_active = true"}
		having []string
		args   []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if params.MinPrice != nil {
		conds = append(conds, "p.price >= "+arg(*params.MinPrice))
	}
	if params.MaxPrice != nil {
		conds = append(conds, "p.price <= "+arg(*params.MaxPrice))
	}
	if params.CategorySlug != "" {
		conds = append(conds, "c.slug = "+arg(params.CategorySlug))
	}
	if params.InStock != nil {
		if *params.InStock {
			conds = append(conds, "p.stock_quantity > 0")
		} else {
			conds = append(conds, "p.stock_quantity = 0")
		}
	}
	if params.IsFeatured != nil {
		conds = append(conds, "p.is_featured = "+arg(*params.IsFeatured))
	}
	if params.Search != "" {
		pattern := arg("%" + params.Search + "%")
		conds = append(conds, fmt.Sprintf(
			"(p.name ILIKE %[1]s OR p.description ILIKE %[1]s OR p.short_description ILIKE %[1]s OR c.name ILIKE %[1]s OR p.sku ILIKE %[1]s)",
			pattern))
	}
	if params.MinRating != nil {
		having = append(having, "COALESCE(AVG(r.rating), 0) >= "+arg(*params.MinRating))
	}

	where := " WHERE " + strings.Join(conds, " AND ")
	body := productSelect + where + productGroupBy
	if len(having) > 0 {
		body += " HAVING " + strings.Join(having, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM (" + body + ") sub"
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count products: %w", err)
	}

	orderCol := "p.created_at"
	switch params.SortBy {
	case SortByPrice:
		orderCol = "p.price"
	case SortByName:
		orderCol = "p.name"
	case SortByCreatedAt:
		orderCol = "p.created_at"
	}
	dir := "ASC"
	if params.SortDesc {
		dir = "DESC"
	}

	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page := params.Page
	if page < 1 {
		page = 1
	}
	query := body + fmt.Sprintf(" ORDER BY %s %s LIMIT %s OFFSET %s",
		orderCol, dir, arg(pageSize), arg((page-1)*pageSize))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	products := make([]Product, 0)
	for rows.Next() {
		var p Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products: %w", err)
	}
	return products, nil
}

func (r *postgresRepository) RelatedProducts(ctx context.Context, categoryID, excludeID uuid.UUID, limit int) ([]Product, error) {
	query := productSelect +
		` WHERE p.is_active = true AND p.category_id = $1 AND p.id <> $2` +
		productGroupBy + ` ORDER BY p.created_at DESC LIMIT $3`
	rows, err := r.db.Query(ctx, query, categoryID, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query related products: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (r *postgresRepository) FeaturedProducts(ctx context.Context, limit int) ([]Product, error) {
	query := productSelect +
		` WHERE p.is_active = true AND p.is_featured = true` +
		productGroupBy + ` ORDER BY p.created_at DESC LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query featured products: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (r *postgresRepository) SearchSuggestions(ctx context.Context, query string, productLimit, categoryLimit int) (*Suggestions, error) {
	pattern := "%" + query + "%"
	out := &Suggestions{Products: []Suggestion{}, Categories: []Suggestion{}}

	rows, err := r.db.Query(ctx, `
		SELECT p.name, p.slug FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.is_active = true AND (p.name ILIKE $1 OR c.name ILIKE $1)
		ORDER BY p.name LIMIT $2`, pattern, productLimit)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query product suggestions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s Suggestion
		if err := rows.Scan(&s.Name, &s.Slug); err != nil {
			return nil, fmt.Errorf("repository: failed to scan product suggestion: %w", err)
		}
		out.Products = append(out.Products, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating product suggestions: %w", err)
	}

	catRows, err := r.db.Query(ctx, `
		SELECT name, slug FROM categories
		WHERE is_active = true AND name ILIKE $1
		ORDER BY name LIMIT $2`, pattern, categoryLimit)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query category suggestions: %w", err)
	}
	defer catRows.Close()
	for catRows.Next() {
		var s Suggestion
		if err := catRows.Scan(&s.Name, &s.Slug); err != nil {
			return nil, fmt.Errorf("repository: failed to scan category suggestion: %w", err)
		}
		out.Categories = append(out.Categories, s)
	}
	if err := catRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating category suggestions: %w", err)
	}

	return out, nil
}

func (r *postgresRepository) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	opts := &FilterOptions{Categories: []CategoryCount{}}

	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(MIN(price), 0), COALESCE(MAX(price), 0)
		FROM products WHERE is_active = true`).
		Scan(&opts.MinPrice, &opts.MaxPrice)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query price range: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.name, c.slug, c.description, c.is_active, c.parent_id, c.created_at, c.updated_at,
			COUNT(p.id)::int
		FROM categories c
		JOIN products p ON p.category_id = c.id AND p.is_active = true
		WHERE c.is_active = true
		GROUP BY c.id
		ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query category counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cc CategoryCount
		err := rows.Scan(&cc.ID, &cc.Name, &cc.Slug, &cc.Description, &cc.IsActive, &cc.ParentID,
			&cc.CreatedAt, &cc.UpdatedAt, &cc.ProductCount)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan category count: %w", err)
		}
		opts.Categories = append(opts.Categories, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating category counts: %w", err)
	}

	return opts, nil
}

func (r *postgresRepository) AddImage(ctx context.Context, img *ProductImage) error {
	query := `
		INSERT INTO product_images (id, product_id, url, alt_text, is_primary, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, img.ID, img.ProductID, img.URL, img.AltText, img.IsPrimary, img.SortOrder).
		Scan(&img.CreatedAt, &img.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert product image: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListImages(ctx context.Context, productID uuid.UUID) ([]ProductImage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, product_id, url, alt_text, is_primary, sort_order, created_at, updated_at
		FROM product_images WHERE product_id = $1
		ORDER BY sort_order, created_at`, productID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query product images: %w", err)
	}
	defer rows.Close()

	images := make([]ProductImage, 0)
	for rows.Next() {
		var img ProductImage
		err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.AltText, &img.IsPrimary, &img.SortOrder,
			&img.CreatedAt, &img.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan product image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating product images: %w", err)
	}
	return images, nil
}

// SetPrimaryImage unsets every sibling's primary flag, then sets the target,
// inside one transaction. Concurrent writers on the same product still race;
// last committed write wins.
func (r *postgresRepository) SetPrimaryImage(ctx context.Context, productID, imageID uuid.UUID) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
		}
	}()

	_, err = tx.Exec(ctx, `
		UPDATE product_images SET is_primary = false, updated_at = now()
		WHERE product_id = $1 AND is_primary = true`, productID)
	if err != nil {
		return fmt.Errorf("repository: failed to unset primary images for product %s: %w", productID, err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE product_images SET is_primary = true, updated_at = now()
		WHERE id = $1 AND product_id = $2`, imageID, productID)
	if err != nil {
		return fmt.Errorf("repository: failed to set primary image %s: %w", imageID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrImageNotFound
	}
	return nil
}
