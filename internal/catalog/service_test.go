package catalog_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webshop/backend/internal/apperr"
	"github.com/webshop/backend/internal/catalog"
)

// mockRepository delegates to its function fields; unset fields return zero
// values so each test only wires what it exercises.
type mockRepository struct {
	createCategoryFunc       func(ctx context.Context, c *catalog.Category) error
	updateCategoryFunc       func(ctx context.Context, c *catalog.Category) error
	getCategoryByIDFunc      func(ctx context.Context, id uuid.UUID) (*catalog.Category, error)
	getCategoryBySlugFunc    func(ctx context.Context, slug string) (*catalog.Category, error)
	listActiveCategoriesFunc func(ctx context.Context) ([]catalog.Category, error)
	createProductFunc        func(ctx context.Context, p *catalog.Product) error
	updateProductFunc        func(ctx context.Context, p *catalog.Product) error
	getProductByIDFunc       func(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
	getActiveBySlugFunc      func(ctx context.Context, slug string) (*catalog.Product, error)
	deactivateProductFunc    func(ctx context.Context, id uuid.UUID) error
	listProductsFunc         func(ctx context.Context, params catalog.ListParams) ([]catalog.Product, int, error)
	relatedProductsFunc      func(ctx context.Context, categoryID, excludeID uuid.UUID, limit int) ([]catalog.Product, error)
	featuredProductsFunc     func(ctx context.Context, limit int) ([]catalog.Product, error)
	searchSuggestionsFunc    func(ctx context.Context, query string, productLimit, categoryLimit int) (*catalog.Suggestions, error)
	filterOptionsFunc        func(ctx context.Context) (*catalog.FilterOptions, error)
	addImageFunc             func(ctx context.Context, img *catalog.ProductImage) error
	listImagesFunc           func(ctx context.Context, productID uuid.UUID) ([]catalog.ProductImage, error)
	setPrimaryImageFunc      func(ctx context.Context, productID, imageID uuid.UUID) error
}

func (m *mockRepository) CreateCategory(ctx context.Context, c *catalog.Category) error {
	if m.createCategoryFunc != nil {
		return m.createCategoryFunc(ctx, c)
	}
	return nil
}

func (m *mockRepository) UpdateCategory(ctx context.Context, c *catalog.Category) error {
	if m.updateCategoryFunc != nil {
		return m.updateCategoryFunc(ctx, c)
	}
	return nil
}

func (m *mockRepository) GetCategoryByID(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	if m.getCategoryByIDFunc != nil {
		return m.getCategoryByIDFunc(ctx, id)
	}
	return nil, catalog.ErrCategoryNotFound
}

func (m *mockRepository) GetCategoryBySlug(ctx context.Context, slug string) (*catalog.Category, error) {
	if m.getCategoryBySlugFunc != nil {
		return m.getCategoryBySlugFunc(ctx, slug)
	}
	return nil, catalog.ErrCategoryNotFound
}

func (m *mockRepository) ListActiveCategories(ctx context.Context) ([]catalog.Category, error) {
	if m.listActiveCategoriesFunc != nil {
		return m.listActiveCategoriesFunc(ctx)
	}
	return nil, nil
}

func (m *mockRepository) CreateProduct(ctx context.Context, p *catalog.Product) error {
	if m.createProductFunc != nil {
		return m.createProductFunc(ctx, p)
	}
	return nil
}

func (m *mockRepository) UpdateProduct(ctx context.Context, p *catalog.Product) error {
	if m.updateProductFunc != nil {
		return m.updateProductFunc(ctx, p)
	}
	return nil
}

func (m *mockRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	if m.getProductByIDFunc != nil {
		return m.getProductByIDFunc(ctx, id)
	}
	return nil, catalog.ErrProductNotFound
}

func (m *mockRepository) GetActiveProductBySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	if m.getActiveBySlugFunc != nil {
		return m.getActiveBySlugFunc(ctx, slug)
	}
	return nil, catalog.ErrProductNotFound
}

func (m *mockRepository) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	if m.deactivateProductFunc != nil {
		return m.deactivateProductFunc(ctx, id)
	}
	return nil
}

func (m *mockRepository) ListProducts(ctx context.Context, params catalog.ListParams) ([]catalog.Product, int, error) {
	if m.listProductsFunc != nil {
		return m.listProductsFunc(ctx, params)
	}
	return nil, 0, nil
}

func (m *mockRepository) RelatedProducts(ctx context.Context, categoryID, excludeID uuid.UUID, limit int) ([]catalog.Product, error) {
	if m.relatedProductsFunc != nil {
		return m.relatedProductsFunc(ctx, categoryID, excludeID, limit)
	}
	return nil, nil
}

func (m *mockRepository) FeaturedProducts(ctx context.Context, limit int) ([]catalog.Product, error) {
	if m.featuredProductsFunc != nil {
		return m.featuredProductsFunc(ctx, limit)
	}
	return nil, nil
}

func (m *mockRepository) SearchSuggestions(ctx context.Context, query string, productLimit, categoryLimit int) (*catalog.Suggestions, error) {
	if m.searchSuggestionsFunc != nil {
		return m.searchSuggestionsFunc(ctx, query, productLimit, categoryLimit)
	}
	return &catalog.Suggestions{}, nil
}

func (m *mockRepository) FilterOptions(ctx context.Context) (*catalog.FilterOptions, error) {
	if m.filterOptionsFunc != nil {
		return m.filterOptionsFunc(ctx)
	}
	return &catalog.FilterOptions{}, nil
}

func (m *mockRepository) AddImage(ctx context.Context, img *catalog.ProductImage) error {
	if m.addImageFunc != nil {
		return m.addImageFunc(ctx, img)
	}
	return nil
}

func (m *mockRepository) ListImages(ctx context.Context, productID uuid.UUID) ([]catalog.ProductImage, error) {
	if m.listImagesFunc != nil {
		return m.listImagesFunc(ctx, productID)
	}
	return nil, nil
}

func (m *mockRepository) SetPrimaryImage(ctx context.Context, productID, imageID uuid.UUID) error {
	if m.setPrimaryImageFunc != nil {
		return m.setPrimaryImageFunc(ctx, productID, imageID)
	}
	return nil
}

func TestService_ListProducts_Defaults(t *testing.T) {
	var captured catalog.ListParams
	repo := &mockRepository{
		listProductsFunc: func(_ context.Context, params catalog.ListParams) ([]catalog.Product, int, error) {
			captured = params
			return []catalog.Product{}, 0, nil
		},
	}
	svc := catalog.NewService(repo)

	page, err := svc.ListProducts(context.Background(), catalog.ListParams{})
	require.NoError(t, err)

	assert.Equal(t, catalog.SortByCreatedAt, captured.SortBy)
	assert.True(t, captured.SortDesc, "default ordering is newest first")
	assert.Equal(t, 1, captured.Page)
	assert.Equal(t, catalog.DefaultPageSize, captured.PageSize)

	assert.Equal(t, 0, page.Count)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, catalog.DefaultPageSize, page.PageSize)
}

func TestService_ListProducts_Validation(t *testing.T) {
	svc := catalog.NewService(&mockRepository{})

	neg := dec("-1")
	_, err := svc.ListProducts(context.Background(), catalog.ListParams{MinPrice: &neg})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	rating := 7.0
	_, err = svc.ListProducts(context.Background(), catalog.ListParams{MinRating: &rating})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.ListProducts(context.Background(), catalog.ListParams{SortBy: catalog.SortField("sku")})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestService_ListProducts_PageMath(t *testing.T) {
	products := make([]catalog.Product, 12)
	repo := &mockRepository{
		listProductsFunc: func(_ context.Context, _ catalog.ListParams) ([]catalog.Product, int, error) {
			return products, 25, nil
		},
	}
	svc := catalog.NewService(repo)

	page, err := svc.ListProducts(context.Background(), catalog.ListParams{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 25, page.Count)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Len(t, page.Results, 12)
}

func TestService_SearchSuggestions_ShortQuery(t *testing.T) {
	called := false
	repo := &mockRepository{
		searchSuggestionsFunc: func(_ context.Context, _ string, _, _ int) (*catalog.Suggestions, error) {
			called = true
			return &catalog.Suggestions{}, nil
		},
	}
	svc := catalog.NewService(repo)

	// "é" is two bytes but one character and must still be rejected.
	for _, q := range []string{"", "a", "é"} {
		got, err := svc.SearchSuggestions(context.Background(), q)
		require.NoError(t, err)
		assert.Empty(t, got.Products)
		assert.Empty(t, got.Categories)
	}
	assert.False(t, called, "queries shorter than two characters never reach the store")

	_, err := svc.SearchSuggestions(context.Background(), "éé")
	require.NoError(t, err)
	assert.True(t, called)
}

func TestService_SearchSuggestions_Limits(t *testing.T) {
	repo := &mockRepository{
		searchSuggestionsFunc: func(_ context.Context, _ string, productLimit, categoryLimit int) (*catalog.Suggestions, error) {
			assert.Equal(t, 10, productLimit)
			assert.Equal(t, 5, categoryLimit)
			return &catalog.Suggestions{}, nil
		},
	}
	svc := catalog.NewService(repo)
	_, err := svc.SearchSuggestions(context.Background(), "desk")
	require.NoError(t, err)
}

func TestService_DeleteProduct_SoftDeletes(t *testing.T) {
	productID := uuid.Must(uuid.NewV4())
	deactivated := false
	repo := &mockRepository{
		deactivateProductFunc: func(_ context.Context, id uuid.UUID) error {
			deactivated = true
			assert.Equal(t, productID, id)
			return nil
		},
	}
	svc := catalog.NewService(repo)

	require.NoError(t, svc.DeleteProduct(context.Background(), productID))
	assert.True(t, deactivated)
}

func TestService_CreateProduct_Validation(t *testing.T) {
	categoryID := uuid.Must(uuid.NewV4())
	repo := &mockRepository{
		getCategoryByIDFunc: func(_ context.Context, id uuid.UUID) (*catalog.Category, error) {
			return &catalog.Category{ID: id}, nil
		},
	}
	svc := catalog.NewService(repo)

	tests := []struct {
		name    string
		product catalog.Product
		wantErr bool
	}{
		{
			name:    "missing_everything",
			product: catalog.Product{},
			wantErr: true,
		},
		{
			name: "negative_price",
			product: catalog.Product{
				Name: "Desk", Slug: "desk", SKU: "DESK-01", CategoryID: categoryID,
				Price: dec("-5.00"),
			},
			wantErr: true,
		},
		{
			name: "negative_stock",
			product: catalog.Product{
				Name: "Desk", Slug: "desk", SKU: "DESK-01", CategoryID: categoryID,
				Price: dec("5.00"), StockQuantity: -1,
			},
			wantErr: true,
		},
		{
			name: "valid",
			product: catalog.Product{
				Name: "Desk", Slug: "desk", SKU: "DESK-01", CategoryID: categoryID,
				Price: dec("5.00"), IsActive: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.product
			err := svc.CreateProduct(context.Background(), &p)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			} else {
				require.NoError(t, err)
				assert.NotEqual(t, uuid.Nil, p.ID, "an id is assigned on create")
			}
		})
	}
}

func TestService_CategoryCycleGuard(t *testing.T) {
	a := uuid.Must(uuid.NewV4())
	b := uuid.Must(uuid.NewV4())

	// b's parent is a; making a's parent b would close the loop.
	categories := map[uuid.UUID]*catalog.Category{
		a: {ID: a, Name: "Furniture", Slug: "furniture", ParentID: nil},
		b: {ID: b, Name: "Desks", Slug: "desks", ParentID: &a},
	}
	repo := &mockRepository{
		getCategoryByIDFunc: func(_ context.Context, id uuid.UUID) (*catalog.Category, error) {
			if c, ok := categories[id]; ok {
				return c, nil
			}
			return nil, catalog.ErrCategoryNotFound
		},
	}
	svc := catalog.NewService(repo)

	furniture := *categories[a]
	furniture.ParentID = &b
	err := svc.UpdateCategory(context.Background(), &furniture)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// A self-parent is the degenerate cycle.
	self := *categories[a]
	self.ParentID = &a
	err = svc.UpdateCategory(context.Background(), &self)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// Re-parenting b under the root stays legal.
	desks := *categories[b]
	err = svc.UpdateCategory(context.Background(), &desks)
	assert.NoError(t, err)
}

func TestService_AddImage_SetsPrimary(t *testing.T) {
	productID := uuid.Must(uuid.NewV4())
	var primaryCalls []uuid.UUID
	repo := &mockRepository{
		getProductByIDFunc: func(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
			return &catalog.Product{ID: id, IsActive: true}, nil
		},
		setPrimaryImageFunc: func(_ context.Context, _ uuid.UUID, imageID uuid.UUID) error {
			primaryCalls = append(primaryCalls, imageID)
			return nil
		},
	}
	svc := catalog.NewService(repo)

	img := &catalog.ProductImage{ProductID: productID, URL: "https://cdn.example.com/desk.jpg", IsPrimary: true}
	require.NoError(t, svc.AddImage(context.Background(), img))
	require.Len(t, primaryCalls, 1)
	assert.Equal(t, img.ID, primaryCalls[0])

	secondary := &catalog.ProductImage{ProductID: productID, URL: "https://cdn.example.com/desk-side.jpg"}
	require.NoError(t, svc.AddImage(context.Background(), secondary))
	assert.Len(t, primaryCalls, 1, "non-primary images never touch the primary flag")
}
