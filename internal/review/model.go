package review

import (
	"time"

	"github.com/gofrs/uuid"
)

type Review struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	UserID             uuid.UUID `json:"user_id" db:"user_id"`
	ProductID          uuid.UUID `json:"product_id" db:"product_id"`
	Rating             int       `json:"rating" db:"rating"`
	Title              string    `json:"title" db:"title"`
	Content            string    `json:"content" db:"content"`
	IsVerifiedPurchase bool      `json:"is_verified_purchase" db:"is_verified_purchase"`
	HelpfulCount       int       `json:"helpful_count" db:"helpful_count"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// RatingSummary is the per-product review aggregate.
type RatingSummary struct {
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}

// HelpfulState is the outcome of a helpful-vote toggle.
type HelpfulState struct {
	IsHelpful    bool `json:"is_helpful"`
	HelpfulCount int  `json:"helpful_count"`
}
