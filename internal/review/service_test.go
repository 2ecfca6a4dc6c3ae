package review_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webshop/backend/internal/apperr"
	"github.com/webshop/backend/internal/review"
)

type mockRepository struct {
	createFunc        func(ctx context.Context, rev *review.Review) error
	getByIDFunc       func(ctx context.Context, id uuid.UUID) (*review.Review, error)
	listByProductFunc func(ctx context.Context, productID uuid.UUID, limit, offset int) ([]review.Review, int, error)
	summaryFunc       func(ctx context.Context, productID uuid.UUID) (*review.RatingSummary, error)
	toggleHelpfulFunc func(ctx context.Context, userID, reviewID uuid.UUID) (*review.HelpfulState, error)
}

func (m *mockRepository) Create(ctx context.Context, rev *review.Review) error {
	return m.createFunc(ctx, rev)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*review.Review, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockRepository) ListByProduct(ctx context.Context, productID uuid.UUID, limit, offset int) ([]review.Review, int, error) {
	return m.listByProductFunc(ctx, productID, limit, offset)
}

func (m *mockRepository) Summary(ctx context.Context, productID uuid.UUID) (*review.RatingSummary, error) {
	return m.summaryFunc(ctx, productID)
}

func (m *mockRepository) ToggleHelpful(ctx context.Context, userID, reviewID uuid.UUID) (*review.HelpfulState, error) {
	return m.toggleHelpfulFunc(ctx, userID, reviewID)
}

type mockResolver struct {
	ids map[string]uuid.UUID
}

func (m *mockResolver) ResolveProductID(_ context.Context, slug string) (uuid.UUID, error) {
	if id, ok := m.ids[slug]; ok {
		return id, nil
	}
	return uuid.Nil, apperr.NotFound("product")
}

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV4()
	require.NoError(t, err)
	return id
}

func TestService_Create(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	productID := uuid.Must(uuid.NewV4())

	valid := func() *review.Review {
		return &review.Review{
			UserID:    userID,
			ProductID: productID,
			Rating:    4,
			Title:     "Sturdy desk",
			Content:   "Solid build, easy assembly.",
		}
	}

	tests := []struct {
		name    string
		mutate  func(rev *review.Review)
		wantErr bool
	}{
		{name: "valid", mutate: func(_ *review.Review) {}},
		{
			name:    "rating_too_low",
			mutate:  func(rev *review.Review) { rev.Rating = 0 },
			wantErr: true,
		},
		{
			name:    "rating_too_high",
			mutate:  func(rev *review.Review) { rev.Rating = 6 },
			wantErr: true,
		},
		{
			name:    "missing_title",
			mutate:  func(rev *review.Review) { rev.Title = "" },
			wantErr: true,
		},
		{
			name:    "missing_content",
			mutate:  func(rev *review.Review) { rev.Content = "" },
			wantErr: true,
		},
		{
			name:    "anonymous_user",
			mutate:  func(rev *review.Review) { rev.UserID = uuid.Nil },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var created *review.Review
			repo := &mockRepository{
				createFunc: func(_ context.Context, rev *review.Review) error {
					created = rev
					return nil
				},
			}
			svc := review.NewService(repo, &mockResolver{})

			rev := valid()
			tt.mutate(rev)
			err := svc.Create(context.Background(), rev)

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
				assert.Nil(t, created)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, created)
			assert.NotEqual(t, uuid.Nil, created.ID)
			assert.Equal(t, 0, created.HelpfulCount, "a fresh review starts with no votes")
		})
	}
}

func TestService_Create_DuplicatePassthrough(t *testing.T) {
	repo := &mockRepository{
		createFunc: func(_ context.Context, _ *review.Review) error {
			return apperr.Conflict("user has already reviewed this product")
		},
	}
	svc := review.NewService(repo, &mockResolver{})

	err := svc.Create(context.Background(), &review.Review{
		UserID:    mustUUID(t),
		ProductID: mustUUID(t),
		Rating:    5,
		Title:     "Again",
		Content:   "Second attempt.",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestService_ListByProductSlug(t *testing.T) {
	productID := mustUUID(t)
	resolver := &mockResolver{ids: map[string]uuid.UUID{"standing-desk": productID}}

	var gotLimit, gotOffset int
	repo := &mockRepository{
		listByProductFunc: func(_ context.Context, id uuid.UUID, limit, offset int) ([]review.Review, int, error) {
			assert.Equal(t, productID, id)
			gotLimit, gotOffset = limit, offset
			return make([]review.Review, 12), 30, nil
		},
	}
	svc := review.NewService(repo, resolver)

	page, err := svc.ListByProductSlug(context.Background(), "standing-desk", 2)
	require.NoError(t, err)
	assert.Equal(t, 12, gotLimit)
	assert.Equal(t, 12, gotOffset)
	assert.Equal(t, 30, page.Count)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)

	// Page numbers below one clamp to the first page.
	_, err = svc.ListByProductSlug(context.Background(), "standing-desk", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, gotOffset)
}

func TestService_ListByProductSlug_UnknownProduct(t *testing.T) {
	svc := review.NewService(&mockRepository{}, &mockResolver{})

	_, err := svc.ListByProductSlug(context.Background(), "no-such-product", 1)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestService_ToggleHelpful(t *testing.T) {
	userID := mustUUID(t)
	reviewID := mustUUID(t)

	// Stateful mock: the second toggle undoes the first.
	voted := false
	count := 3
	repo := &mockRepository{
		toggleHelpfulFunc: func(_ context.Context, _, _ uuid.UUID) (*review.HelpfulState, error) {
			if voted {
				voted = false
				count--
			} else {
				voted = true
				count++
			}
			return &review.HelpfulState{IsHelpful: voted, HelpfulCount: count}, nil
		},
	}
	svc := review.NewService(repo, &mockResolver{})

	state, err := svc.ToggleHelpful(context.Background(), userID, reviewID)
	require.NoError(t, err)
	assert.True(t, state.IsHelpful)
	assert.Equal(t, 4, state.HelpfulCount)

	state, err = svc.ToggleHelpful(context.Background(), userID, reviewID)
	require.NoError(t, err)
	assert.False(t, state.IsHelpful)
	assert.Equal(t, 3, state.HelpfulCount, "a double toggle restores the original count")
}

func TestService_SummaryByProductSlug(t *testing.T) {
	productID := mustUUID(t)
	resolver := &mockResolver{ids: map[string]uuid.UUID{"standing-desk": productID}}
	repo := &mockRepository{
		summaryFunc: func(_ context.Context, id uuid.UUID) (*review.RatingSummary, error) {
			assert.Equal(t, productID, id)
			return &review.RatingSummary{AverageRating: 4.2, ReviewCount: 9}, nil
		},
	}
	svc := review.NewService(repo, resolver)

	summary, err := svc.SummaryByProductSlug(context.Background(), "standing-desk")
	require.NoError(t, err)
	assert.Equal(t, 4.2, summary.AverageRating)
	assert.Equal(t, 9, summary.ReviewCount)

	_, err = svc.SummaryByProductSlug(context.Background(), "no-such-product")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestService_GetByID_NotFound(t *testing.T) {
	repo := &mockRepository{
		getByIDFunc: func(_ context.Context, _ uuid.UUID) (*review.Review, error) {
			return nil, review.ErrReviewNotFound
		},
	}
	svc := review.NewService(repo, &mockResolver{})

	_, err := svc.GetByID(context.Background(), mustUUID(t))
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestService_ToggleHelpful_RequiresUser(t *testing.T) {
	svc := review.NewService(&mockRepository{}, &mockResolver{})

	_, err := svc.ToggleHelpful(context.Background(), uuid.Nil, mustUUID(t))
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestService_ToggleHelpful_UnknownReview(t *testing.T) {
	repo := &mockRepository{
		toggleHelpfulFunc: func(_ context.Context, _, _ uuid.UUID) (*review.HelpfulState, error) {
			return nil, review.ErrReviewNotFound
		},
	}
	svc := review.NewService(repo, &mockResolver{})

	_, err := svc.ToggleHelpful(context.Background(), mustUUID(t), mustUUID(t))
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
