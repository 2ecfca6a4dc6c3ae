package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/webshop/backend/internal/apperr"
)

var ErrReviewNotFound = errors.New("review not found")

type Repository interface {
	Create(ctx context.Context, rev *Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, limit, offset int) ([]Review, int, error)
	Summary(ctx context.Context, productID uuid.UUID) (*RatingSummary, error)
	ToggleHelpful(ctx context.Context, userID, reviewID uuid.UUID) (*HelpfulState, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, rev *Review) error {
	query := `
		INSERT INTO reviews (id, user_id, product_id, rating, title, content,
			is_verified_purchase, helpful_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, now(), now())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		rev.ID, rev.UserID, rev.ProductID, rev.Rating, rev.Title, rev.Content, rev.IsVerifiedPurchase,
	).Scan(&rev.CreatedAt, &rev.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return apperr.Conflict("user has already reviewed this product")
		}
		return fmt.Errorf("repository: failed to insert review: %w", err)
	}
	return nil
}

const reviewColumns = `id, user_id, product_id, rating, title, content, is_verified_purchase, helpful_count, created_at, updated_at`

func scanReview(row pgx.Row, rev *Review) error {
	return row.Scan(&rev.ID, &rev.UserID, &rev.ProductID, &rev.Rating, &rev.Title, &rev.Content,
		&rev.IsVerifiedPurchase, &rev.HelpfulCount, &rev.CreatedAt, &rev.UpdatedAt)
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	var rev Review
	err := scanReview(r.db.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id), &rev)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("repository: failed to select review %s: %w", id, err)
	}
	return &rev, nil
}

func (r *postgresRepository) ListByProduct(ctx context.Context, productID uuid.UUID, limit, offset int) ([]Review, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM reviews WHERE product_id = $1`, productID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count reviews: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+reviewColumns+` FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, productID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to query reviews for product %s: %w", productID, err)
	}
	defer rows.Close()

	reviews := make([]Review, 0)
	for rows.Next() {
		var rev Review
		if err := scanReview(rows, &rev); err != nil {
			return nil, 0, fmt.Errorf("repository: failed to scan review: %w", err)
		}
		reviews = append(reviews, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository: error iterating reviews: %w", err)
	}
	return reviews, total, nil
}

// Summary averages ratings over all reviews of the product; zero values when
// the product has none.
func (r *postgresRepository) Summary(ctx context.Context, productID uuid.UUID) (*RatingSummary, error) {
	var summary RatingSummary
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(AVG(rating), 0)::float8, COUNT(*)::int
		FROM reviews WHERE product_id = $1`, productID).
		Scan(&summary.AverageRating, &summary.ReviewCount)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to aggregate reviews for product %s: %w", productID, err)
	}
	return &summary, nil
}

// ToggleHelpful inserts or removes the (user, review) vote and adjusts the
// denormalized counter in the same transaction. Concurrent toggles by the
// same user can still interleave between transactions; the counter follows
// whichever write commits last.
func (r *postgresRepository) ToggleHelpful(ctx context.Context, userID, reviewID uuid.UUID) (state *HelpfulState, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			state = nil
			err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
		}
	}()

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM review_helpful_votes WHERE user_id = $1 AND review_id = $2)`,
		userID, reviewID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to check helpful vote: %w", err)
	}

	var delta int
	if exists {
		if _, err = tx.Exec(ctx, `
			DELETE FROM review_helpful_votes WHERE user_id = $1 AND review_id = $2`, userID, reviewID); err != nil {
			return nil, fmt.Errorf("repository: failed to delete helpful vote: %w", err)
		}
		delta = -1
	} else {
		voteID, genErr := uuid.NewV4()
		if genErr != nil {
			return nil, fmt.Errorf("repository: failed to generate vote id: %w", genErr)
		}
		if _, err = tx.Exec(ctx, `
			INSERT INTO review_helpful_votes (id, user_id, review_id, created_at)
			VALUES ($1, $2, $3, now())`, voteID, userID, reviewID); err != nil {
			// The review_id reference fails before the counter update ever
			// runs when the review does not exist.
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
				return nil, ErrReviewNotFound
			}
			return nil, fmt.Errorf("repository: failed to insert helpful vote: %w", err)
		}
		delta = 1
	}

	var count int
	err = tx.QueryRow(ctx, `
		UPDATE reviews SET helpful_count = helpful_count + $1, updated_at = now()
		WHERE id = $2
		RETURNING helpful_count`, delta, reviewID).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("repository: failed to update helpful count for review %s: %w", reviewID, err)
	}

	return &HelpfulState{IsHelpful: !exists, HelpfulCount: count}, nil
}
