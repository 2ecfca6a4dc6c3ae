package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"

	"github.com/webshop/backend/internal/apperr"
	"github.com/webshop/backend/internal/order"
)

type OrderHandler struct {
	svc order.Service
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var input order.CreateInput
	if !decodeJSON(w, r, &input) {
		return
	}

	o, err := h.svc.Create(r.Context(), UserID(r.Context()), input)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, orderDetail(o))
}

// orderDetail decorates the order with its derived totals.
func orderDetail(o *order.Order) map[string]any {
	return map[string]any{
		"id":              o.ID,
		"user_id":         o.UserID,
		"order_number":    o.OrderNumber,
		"total_amount":    o.TotalAmount,
		"tax_amount":      o.TaxAmount,
		"shipping_amount": o.ShippingAmount,
		"discount_amount": o.DiscountAmount,
		"subtotal":        o.Subtotal(),
		"grand_total":     o.GrandTotal(),
		"status":          o.Status,
		"payment_status":  o.PaymentStatus,
		"payment_method":  o.PaymentMethod,
		"shipping":        o.Shipping,
		"billing":         o.Billing,
		"notes":           o.Notes,
		"tracking_number": o.TrackingNumber,
		"items":           o.Items,
		"created_at":      o.CreatedAt,
		"updated_at":      o.UpdatedAt,
	}
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListByUser(r.Context(), UserID(r.Context()))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"count":   len(orders),
		"results": orders,
	})
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, r, apperr.Validation("invalid order id", nil))
		return
	}

	o, err := h.svc.GetByID(r.Context(), UserID(r.Context()), orderID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, orderDetail(o))
}

type updateStatusRequest struct {
	Status  order.Status `json:"status"`
	Comment string       `json:"comment,omitempty"`
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, r, apperr.Validation("invalid order id", nil))
		return
	}

	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.svc.UpdateStatus(r.Context(), orderID, req.Status, req.Comment, UserID(r.Context())); err != nil {
		respondWithError(w, r, err)
		return
	}

	history, err := h.svc.StatusHistory(r.Context(), orderID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"status":  req.Status,
		"history": history,
	})
}
