package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/webshop/backend/internal/apperr"
)

const pageSize = 12

type Page struct {
	Count       int      `json:"count"`
	TotalPages  int      `json:"total_pages"`
	CurrentPage int      `json:"current_page"`
	PageSize    int      `json:"page_size"`
	Results     []Review `json:"results"`
}

// ProductResolver supplies product identity to the aggregator without
// importing the catalog package wholesale.
type ProductResolver interface {
	ResolveProductID(ctx context.Context, slug string) (uuid.UUID, error)
}

type Service interface {
	Create(ctx context.Context, rev *Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)
	ListByProductSlug(ctx context.Context, slug string, page int) (*Page, error)
	SummaryByProductSlug(ctx context.Context, slug string) (*RatingSummary, error)
	ToggleHelpful(ctx context.Context, userID, reviewID uuid.UUID) (*HelpfulState, error)
}

type service struct {
	repo     Repository
	products ProductResolver
}

func NewService(repo Repository, products ProductResolver) Service {
	return &service{repo: repo, products: products}
}

func (s *service) Create(ctx context.Context, rev *Review) error {
	fields := map[string]string{}
	if rev.Rating < 1 || rev.Rating > 5 {
		fields["rating"] = "rating must be between 1 and 5"
	}
	if rev.Title == "" {
		fields["title"] = "title is required"
	}
	if rev.Content == "" {
		fields["content"] = "content is required"
	}
	if rev.UserID == uuid.Nil {
		fields["user_id"] = "user is required"
	}
	if rev.ProductID == uuid.Nil {
		fields["product_id"] = "product is required"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid review", fields)
	}

	if rev.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("service: failed to generate review id: %w", err)
		}
		rev.ID = id
	}
	rev.HelpfulCount = 0

	if err := s.repo.Create(ctx, rev); err != nil {
		return fmt.Errorf("service: failed to create review: %w", err)
	}
	log.Info().Stringer("review_id", rev.ID).Stringer("product_id", rev.ProductID).Int("rating", rev.Rating).
		Msg("service: review created")
	return nil
}

func (s *service) ListByProductSlug(ctx context.Context, slug string, page int) (*Page, error) {
	productID, err := s.products.ResolveProductID(ctx, slug)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}

	reviews, total, err := s.repo.ListByProduct(ctx, productID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list reviews: %w", err)
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	return &Page{
		Count:       total,
		TotalPages:  totalPages,
		CurrentPage: page,
		PageSize:    pageSize,
		Results:     reviews,
	}, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	rev, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrReviewNotFound) {
			return nil, apperr.NotFound("review")
		}
		return nil, fmt.Errorf("service: failed to fetch review: %w", err)
	}
	return rev, nil
}

func (s *service) SummaryByProductSlug(ctx context.Context, slug string) (*RatingSummary, error) {
	productID, err := s.products.ResolveProductID(ctx, slug)
	if err != nil {
		return nil, err
	}
	summary, err := s.repo.Summary(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to summarize reviews: %w", err)
	}
	return summary, nil
}

func (s *service) ToggleHelpful(ctx context.Context, userID, reviewID uuid.UUID) (*HelpfulState, error) {
	if userID == uuid.Nil {
		return nil, apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	state, err := s.repo.ToggleHelpful(ctx, userID, reviewID)
	if err != nil {
		if errors.Is(err, ErrReviewNotFound) {
			return nil, apperr.NotFound("review")
		}
		return nil, fmt.Errorf("service: failed to toggle helpful vote: %w", err)
	}
	log.Info().Stringer("review_id", reviewID).Stringer("user_id", userID).Bool("is_helpful", state.IsHelpful).
		Msg("service: helpful vote toggled")
	return state, nil
}
