package order

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

var ErrOrderNotFound = errors.New("order not found")

type Repository interface {
	Create(ctx context.Context, o *Order, initial *StatusHistory) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus Status, entry *StatusHistory) error
	ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]StatusHistory, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const orderColumns = `
	id, user_id, order_number, total_amount, tax_amount, shipping_amount, discount_amount,
	status, payment_status, payment_method,
	shipping_first_name, shipping_last_name, shipping_email, shipping_phone, shipping_address,
	shipping_city, shipping_state, shipping_postal_code, shipping_country,
	billing_first_name, billing_last_name, billing_email, billing_phone, billing_address,
	billing_city, billing_state, billing_postal_code, billing_country,
	notes, tracking_number, created_at, updated_at`

func scanOrder(row pgx.Row, o *Order) error {
	return row.Scan(
		&o.ID, &o.UserID, &o.OrderNumber, &o.TotalAmount, &o.TaxAmount, &o.ShippingAmount, &o.DiscountAmount,
		&o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&o.Shipping.FirstName, &o.Shipping.LastName, &o.Shipping.Email, &o.Shipping.Phone, &o.Shipping.Address,
		&o.Shipping.City, &o.Shipping.State, &o.Shipping.PostalCode, &o.Shipping.Country,
		&o.Billing.FirstName, &o.Billing.LastName, &o.Billing.Email, &o.Billing.Phone, &o.Billing.Address,
		&o.Billing.City, &o.Billing.State, &o.Billing.PostalCode, &o.Billing.Country,
		&o.Notes, &o.TrackingNumber, &o.CreatedAt, &o.UpdatedAt,
	)
}

// Create persists the order, its items and the initial status history entry
// in one transaction.
func (r *postgresRepository) Create(ctx context.Context, o *Order, initial *StatusHistory) (err error) {
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

	queryOrder := `
		INSERT INTO orders (
			id, user_id, order_number, total_amount, tax_amount, shipping_amount, discount_amount,
			status, payment_status, payment_method,
			shipping_first_name, shipping_last_name, shipping_email, shipping_phone, shipping_address,
			shipping_city, shipping_state, shipping_postal_code, shipping_country,
			billing_first_name, billing_last_name, billing_email, billing_phone, billing_address,
			billing_city, billing_state, billing_postal_code, billing_country,
			notes, tracking_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25, $26, $27, $28,
			$29, $30, now(), now())
		RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, queryOrder,
		o.ID, o.UserID, o.OrderNumber, o.TotalAmount, o.TaxAmount, o.ShippingAmount, o.DiscountAmount,
		o.Status, o.PaymentStatus, o.PaymentMethod,
		o.Shipping.FirstName, o.Shipping.LastName, o.Shipping.Email, o.Shipping.Phone, o.Shipping.Address,
		o.Shipping.City, o.Shipping.State, o.Shipping.PostalCode, o.Shipping.Country,
		o.Billing.FirstName, o.Billing.LastName, o.Billing.Email, o.Billing.Phone, o.Billing.Address,
		o.Billing.City, o.Billing.State, o.Billing.PostalCode, o.Billing.Country,
		o.Notes, o.TrackingNumber,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return apperr.Conflict("order number already exists")
		}
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID

		queryItem := `
			INSERT INTO order_items (id, order_id, product_id, product_name, product_sku, quantity, price, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			RETURNING created_at, updated_at
		`
		err = tx.QueryRow(ctx, queryItem,
			item.ID, item.OrderID, item.ProductID, item.ProductName, item.ProductSKU, item.Quantity, item.Price,
		).Scan(&item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return apperr.Conflict("duplicate product in order items")
			}
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", o.ID, err)
		}
	}

	if initial != nil {
		if err = insertStatusHistory(ctx, tx, initial); err != nil {
			return err
		}
	}
	return nil
}

func insertStatusHistory(ctx context.Context, tx pgx.Tx, entry *StatusHistory) error {
	query := `
		INSERT INTO order_status_history (id, order_id, status, comment, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at
	`
	err := tx.QueryRow(ctx, query, entry.ID, entry.OrderID, entry.Status, entry.Comment, entry.ChangedBy).
		Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert status history for order %s: %w", entry.OrderID, err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var o Order
	err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id), &o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order %s: %w", id, err)
	}

	items, err := r.itemsForOrders(ctx, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	if o.Items == nil {
		o.Items = []OrderItem{}
	}
	return &o, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for user %s: %w", userID, err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	var ids []uuid.UUID
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		o.Items = []OrderItem{}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders: %w", err)
	}
	if len(ids) == 0 {
		return orders, nil
	}

	itemsByOrder, err := r.itemsForOrders(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if items, ok := itemsByOrder[orders[i].ID]; ok {
			orders[i].Items = items
		}
	}
	return orders, nil
}

func (r *postgresRepository) itemsForOrders(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]OrderItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, product_id, product_name, product_sku, quantity, price, created_at, updated_at
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY created_at`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	byOrder := make(map[uuid.UUID][]OrderItem)
	for rows.Next() {
		var item OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.ProductSKU,
			&item.Quantity, &item.Price, &item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items: %w", err)
	}
	return byOrder, nil
}

// UpdateStatus flips the order status and appends the history entry in one
// transaction.
func (r *postgresRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus Status, entry *StatusHistory) (err error) {
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

	tag, err := tx.Exec(ctx, `
		UPDATE orders SET status = $1, updated_at = now() WHERE id = $2`, newStatus, orderID)
	if err != nil {
		return fmt.Errorf("repository: failed to update order status %s: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return insertStatusHistory(ctx, tx, entry)
}

func (r *postgresRepository) ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]StatusHistory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, status, comment, changed_by, created_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY created_at DESC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query status history for order %s: %w", orderID, err)
	}
	defer rows.Close()

	entries := make([]StatusHistory, 0)
	for rows.Next() {
		var e StatusHistory
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Comment, &e.ChangedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan status history: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating status history: %w", err)
	}
	return entries, nil
}
