package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/webshop/backend/internal/apperr"
)

var ErrInvalidStatusTransition = errors.New("invalid order status transition")

// ProductSnapshot is what the engine needs from the catalog at order time:
// current price and the name/sku to freeze onto the item.
type ProductSnapshot struct {
	ID    uuid.UUID
	Name  string
	SKU   string
	Price decimal.Decimal
}

// Catalog supplies product snapshots to the order engine.
type Catalog interface {
	ProductSnapshot(ctx context.Context, productID uuid.UUID) (*ProductSnapshot, error)
}

// ErrUnknownProduct is what Catalog implementations return for a missing id.
var ErrUnknownProduct = errors.New("unknown product")

// Notifier receives best-effort order lifecycle notifications. Dispatch must
// never block or fail the calling request.
type Notifier interface {
	Notify(recipient, subject, body string)
}

// ItemInput is one submitted order line. Price, when present, is only
// informational: the engine re-prices every line from the catalog and the
// catalog price always wins.
type ItemInput struct {
	ProductID uuid.UUID        `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

type CreateInput struct {
	Shipping      Address          `json:"shipping"`
	Billing       Address          `json:"billing"`
	PaymentMethod string           `json:"payment_method"`
	TaxAmount     *decimal.Decimal `json:"tax_amount,omitempty"`
	ShippingFee   *decimal.Decimal `json:"shipping_amount,omitempty"`
	Discount      *decimal.Decimal `json:"discount_amount,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	Items         []ItemInput      `json:"items"`
}

type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*Order, error)
	GetByID(ctx context.Context, userID, orderID uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus Status, comment string, actorID uuid.UUID) error
	StatusHistory(ctx context.Context, orderID uuid.UUID) ([]StatusHistory, error)
}

type service struct {
	repo     Repository
	catalog  Catalog
	notifier Notifier
	now      func() time.Time
}

func NewService(repo Repository, catalog Catalog, notifier Notifier) Service {
	return &service{repo: repo, catalog: catalog, notifier: notifier, now: time.Now}
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*Order, error) {
	if userID == uuid.Nil {
		return nil, apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	if len(input.Items) == 0 {
		return nil, apperr.Validation("invalid order", map[string]string{"items": "order must contain at least one item"})
	}

	items := make([]OrderItem, 0, len(input.Items))
	seen := make(map[uuid.UUID]bool, len(input.Items))
	total := decimal.Zero
	for i, in := range input.Items {
		if in.ProductID == uuid.Nil {
			return nil, apperr.Validation("invalid order", map[string]string{
				fmt.Sprintf("items[%d].product_id", i): "product_id is required",
			})
		}
		if in.Quantity < 1 {
			return nil, apperr.Validation("invalid order", map[string]string{
				fmt.Sprintf("items[%d].quantity", i): "quantity must be at least 1",
			})
		}
		if seen[in.ProductID] {
			return nil, apperr.Validation("invalid order", map[string]string{
				fmt.Sprintf("items[%d].product_id", i): "product appears more than once",
			})
		}
		seen[in.ProductID] = true

		snapshot, err := s.catalog.ProductSnapshot(ctx, in.ProductID)
		if err != nil {
			if errors.Is(err, ErrUnknownProduct) {
				return nil, apperr.Validation("invalid order", map[string]string{
					fmt.Sprintf("items[%d].product_id", i): "product does not exist",
				})
			}
			return nil, fmt.Errorf("service: failed to snapshot product %s: %w", in.ProductID, err)
		}

		// Catalog price is authoritative; a stale client price is not an
		// error, it is simply overridden.
		price := snapshot.Price
		if in.Price != nil && !in.Price.Equal(price) {
			log.Warn().Stringer("product_id", in.ProductID).
				Str("client_price", in.Price.String()).Str("catalog_price", price.String()).
				Msg("service: client-submitted price ignored, re-priced from catalog")
		}

		itemID, err := uuid.NewV4()
		if err != nil {
			return nil, fmt.Errorf("service: failed to generate order item id: %w", err)
		}
		item := OrderItem{
			ID:          itemID,
			ProductID:   snapshot.ID,
			ProductName: snapshot.Name,
			ProductSKU:  snapshot.SKU,
			Quantity:    in.Quantity,
			Price:       price,
		}
		total = total.Add(item.TotalPrice())
		items = append(items, item)
	}

	orderID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate order id: %w", err)
	}
	orderNumber, err := GenerateOrderNumber(s.now())
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate order number: %w", err)
	}

	o := &Order{
		ID:             orderID,
		UserID:         userID,
		OrderNumber:    orderNumber,
		TotalAmount:    total,
		TaxAmount:      amountOrZero(input.TaxAmount),
		ShippingAmount: amountOrZero(input.ShippingFee),
		DiscountAmount: amountOrZero(input.Discount),
		Status:         StatusPending,
		PaymentStatus:  PaymentPending,
		PaymentMethod:  input.PaymentMethod,
		Shipping:       input.Shipping,
		Billing:        input.Billing,
		Notes:          input.Notes,
		Items:          items,
	}
	if o.TaxAmount.IsNegative() || o.ShippingAmount.IsNegative() || o.DiscountAmount.IsNegative() {
		return nil, apperr.Validation("invalid order", map[string]string{
			"amounts": "tax, shipping and discount amounts must not be negative",
		})
	}

	historyID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate history id: %w", err)
	}
	initial := &StatusHistory{
		ID:        historyID,
		OrderID:   o.ID,
		Status:    StatusPending,
		Comment:   "order created",
		ChangedBy: &userID,
	}

	if err := s.repo.Create(ctx, o, initial); err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to create order")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().Stringer("order_id", o.ID).Str("order_number", o.OrderNumber).
		Str("total_amount", o.TotalAmount.String()).Int("items", len(o.Items)).
		Msg("service: order created")

	s.notifier.Notify(
		o.Shipping.Email,
		fmt.Sprintf("Order Confirmation - %s", o.OrderNumber),
		fmt.Sprintf("Thank you for your order! Your order number is %s.", o.OrderNumber),
	)

	return o, nil
}

func amountOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// GetByID returns the order only to its owner.
func (s *service) GetByID(ctx context.Context, userID, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, apperr.NotFound("order")
		}
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}
	if o.UserID != userID {
		// Existence of another user's order is not disclosed.
		return nil, apperr.NotFound("order")
	}
	return o, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus Status, comment string, actorID uuid.UUID) error {
	if !ValidStatus(newStatus) {
		return apperr.Validation("invalid status", map[string]string{"status": "unknown order status"})
	}

	current, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return apperr.NotFound("order")
		}
		return fmt.Errorf("service: failed to fetch order for status update: %w", err)
	}

	if current.Status == newStatus {
		log.Info().Stringer("order_id", orderID).Stringer("status", newStatus).
			Msg("service: order already in requested status")
		return nil
	}
	if !allowedTransitions[current.Status][newStatus] {
		return apperr.Wrap(apperr.KindValidation,
			fmt.Sprintf("cannot transition order from %s to %s", current.Status, newStatus),
			ErrInvalidStatusTransition)
	}

	historyID, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("service: failed to generate history id: %w", err)
	}
	entry := &StatusHistory{
		ID:      historyID,
		OrderID: orderID,
		Status:  newStatus,
		Comment: comment,
	}
	if actorID != uuid.Nil {
		entry.ChangedBy = &actorID
	}

	if err := s.repo.UpdateStatus(ctx, orderID, newStatus, entry); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return apperr.NotFound("order")
		}
		return fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Stringer("order_id", orderID).
		Stringer("old_status", current.Status).Stringer("new_status", newStatus).
		Msg("service: order status updated")

	s.notifier.Notify(
		current.Shipping.Email,
		fmt.Sprintf("Order %s Status Updated", current.OrderNumber),
		fmt.Sprintf("Your order status has been changed to: %s.", newStatus),
	)

	return nil
}

func (s *service) StatusHistory(ctx context.Context, orderID uuid.UUID) ([]StatusHistory, error) {
	entries, err := s.repo.ListStatusHistory(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list status history: %w", err)
	}
	return entries, nil
}
