package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

func (s Status) String() string { return string(s) }

// allowedTransitions is the order status state machine. Terminal states map
// to an empty set.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending:    {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed:  {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing: {StatusShipped: true, StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true},
	StatusDelivered:  {StatusRefunded: true},
	StatusCancelled:  {},
	StatusRefunded:   {},
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s Status) bool {
	_, ok := allowedTransitions[s]
	return ok
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) String() string { return string(s) }

// Address is a shipping or billing block captured on the order.
type Address struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type OrderItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderID     uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID   uuid.UUID       `json:"product_id" db:"product_id"`
	ProductName string          `json:"product_name" db:"product_name"`
	ProductSKU  string          `json:"product_sku" db:"product_sku"`
	Quantity    int             `json:"quantity" db:"quantity"`
	Price       decimal.Decimal `json:"price" db:"price"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// TotalPrice is price * quantity.
func (i *OrderItem) TotalPrice() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	UserID         uuid.UUID       `json:"user_id" db:"user_id"`
	OrderNumber    string          `json:"order_number" db:"order_number"`
	TotalAmount    decimal.Decimal `json:"total_amount" db:"total_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount" db:"tax_amount"`
	ShippingAmount decimal.Decimal `json:"shipping_amount" db:"shipping_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	Status         Status          `json:"status" db:"status"`
	PaymentStatus  PaymentStatus   `json:"payment_status" db:"payment_status"`
	PaymentMethod  string          `json:"payment_method" db:"payment_method"`
	Shipping       Address         `json:"shipping" db:"-"`
	Billing        Address         `json:"billing" db:"-"`
	Notes          string          `json:"notes,omitempty" db:"notes"`
	TrackingNumber string          `json:"tracking_number,omitempty" db:"tracking_number"`
	Items          []OrderItem     `json:"items" db:"-"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// Subtotal is the sum of item total prices.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for i := range o.Items {
		sum = sum.Add(o.Items[i].TotalPrice())
	}
	return sum
}

// GrandTotal is subtotal + tax + shipping - discount.
func (o *Order) GrandTotal() decimal.Decimal {
	return o.Subtotal().Add(o.TaxAmount).Add(o.ShippingAmount).Sub(o.DiscountAmount)
}

// StatusHistory is one append-only entry in the order's status log.
type StatusHistory struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	OrderID   uuid.UUID  `json:"order_id" db:"order_id"`
	Status    Status     `json:"status" db:"status"`
	Comment   string     `json:"comment,omitempty" db:"comment"`
	ChangedBy *uuid.UUID `json:"changed_by,omitempty" db:"changed_by"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
