package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/webshop/backend/internal/account"
	"github.com/webshop/backend/internal/catalog"
	"github.com/webshop/backend/internal/handler"
	"github.com/webshop/backend/internal/order"
	"github.com/webshop/backend/internal/review"
)

// catalogSnapshotter adapts the catalog repository to the order engine's
// snapshot contract. Inactive products cannot be ordered.
type catalogSnapshotter struct {
	repo catalog.Repository
}

func (a catalogSnapshotter) ProductSnapshot(ctx context.Context, productID uuid.UUID) (*order.ProductSnapshot, error) {
	p, err := a.repo.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, order.ErrUnknownProduct
		}
		return nil, err
	}
	if !p.IsActive {
		return nil, order.ErrUnknownProduct
	}
	return &order.ProductSnapshot{ID: p.ID, Name: p.Name, SKU: p.SKU, Price: p.Price}, nil
}

// productResolver hands product identity to the review aggregator.
type productResolver struct {
	svc catalog.Service
}

func (a productResolver) ResolveProductID(ctx context.Context, slug string) (uuid.UUID, error) {
	p, err := a.svc.GetProductBySlug(ctx, slug)
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

// NewRouter wires repositories, services and handlers onto a chi mux.
func NewRouter(pool *pgxpool.Pool, notifier order.Notifier) *chi.Mux {
	catalogRepo := catalog.NewRepository(pool)
	catalogSvc := catalog.NewService(catalogRepo)

	reviewRepo := review.NewRepository(pool)
	reviewSvc := review.NewService(reviewRepo, productResolver{svc: catalogSvc})

	orderRepo := order.NewRepository(pool)
	orderSvc := order.NewService(orderRepo, catalogSnapshotter{repo: catalogRepo}, notifier)

	accountRepo := account.NewRepository(pool)
	accountSvc := account.NewService(accountRepo)

	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	reviewHandler := handler.NewReviewHandler(reviewSvc, catalogSvc)
	orderHandler := handler.NewOrderHandler(orderSvc)
	accountHandler := handler.NewAccountHandler(accountSvc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(handler.WithUser)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", catalogHandler.ListProducts)
			r.Get("/featured", catalogHandler.FeaturedProducts)
			r.Get("/suggestions", catalogHandler.SearchSuggestions)
			r.Get("/filters", catalogHandler.FilterOptions)
			r.Get("/{slug}", catalogHandler.GetProduct)
			r.Get("/{slug}/quick-view", catalogHandler.QuickView)
			r.Get("/{slug}/related", catalogHandler.RelatedProducts)
			r.Get("/{slug}/reviews", reviewHandler.ListProductReviews)
			r.Get("/{slug}/reviews/summary", reviewHandler.ReviewSummary)
			r.With(handler.RequireAuth).Post("/{slug}/reviews", reviewHandler.CreateReview)
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/{id}", reviewHandler.GetReview)
			r.With(handler.RequireAuth).Post("/{id}/helpful", reviewHandler.ToggleHelpful)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", catalogHandler.ListCategories)
			r.Get("/{slug}/products", catalogHandler.CategoryProducts)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(handler.RequireAuth)
			r.Post("/", orderHandler.CreateOrder)
			r.Get("/", orderHandler.ListOrders)
			r.Get("/{id}", orderHandler.GetOrder)
			r.With(handler.RequireStaff(accountSvc)).Patch("/{id}/status", orderHandler.UpdateStatus)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(handler.RequireStaff(accountSvc))
			r.Post("/categories", catalogHandler.CreateCategory)
			r.Put("/categories/{id}", catalogHandler.UpdateCategory)
			r.Post("/products", catalogHandler.CreateProduct)
			r.Put("/products/{id}", catalogHandler.UpdateProduct)
			r.Delete("/products/{id}", catalogHandler.DeleteProduct)
			r.Post("/products/{id}/images", catalogHandler.AddProductImage)
			r.Put("/products/{id}/images/{imageID}/primary", catalogHandler.SetPrimaryImage)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/register", accountHandler.Register)
			r.With(handler.RequireAuth).Get("/me", accountHandler.Me)
			r.With(handler.RequireAuth).Patch("/me", accountHandler.UpdateProfile)
		})
	})

	return r
}
