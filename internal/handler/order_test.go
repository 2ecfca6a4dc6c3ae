package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webshop/backend/internal/apperr"
	"github.com/webshop/backend/internal/handler"
	"github.com/webshop/backend/internal/order"
)

type mockOrderService struct {
	createFunc        func(ctx context.Context, userID uuid.UUID, input order.CreateInput) (*order.Order, error)
	getByIDFunc       func(ctx context.Context, userID, orderID uuid.UUID) (*order.Order, error)
	listByUserFunc    func(ctx context.Context, userID uuid.UUID) ([]order.Order, error)
	updateStatusFunc  func(ctx context.Context, orderID uuid.UUID, newStatus order.Status, comment string, actorID uuid.UUID) error
	statusHistoryFunc func(ctx context.Context, orderID uuid.UUID) ([]order.StatusHistory, error)
}

func (m *mockOrderService) Create(ctx context.Context, userID uuid.UUID, input order.CreateInput) (*order.Order, error) {
	return m.createFunc(ctx, userID, input)
}

func (m *mockOrderService) GetByID(ctx context.Context, userID, orderID uuid.UUID) (*order.Order, error) {
	return m.getByIDFunc(ctx, userID, orderID)
}

func (m *mockOrderService) ListByUser(ctx context.Context, userID uuid.UUID) ([]order.Order, error) {
	return m.listByUserFunc(ctx, userID)
}

func (m *mockOrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus order.Status, comment string, actorID uuid.UUID) error {
	return m.updateStatusFunc(ctx, orderID, newStatus, comment, actorID)
}

func (m *mockOrderService) StatusHistory(ctx context.Context, orderID uuid.UUID) ([]order.StatusHistory, error) {
	return m.statusHistoryFunc(ctx, orderID)
}

// authedRequest routes req through the user-resolution middleware so the
// handler sees the same context a real request would.
func authedRequest(t *testing.T, req *http.Request, userID uuid.UUID, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	if userID != uuid.Nil {
		req.Header.Set("X-User-ID", userID.String())
	}
	rr := httptest.NewRecorder()
	handler.WithUser(h).ServeHTTP(rr, req)
	return rr
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	return chiRouteContext(req, map[string]string{key: value})
}

func chiRouteContext(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestOrderHandler_CreateOrder(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	svc := &mockOrderService{
		createFunc: func(_ context.Context, gotUser uuid.UUID, input order.CreateInput) (*order.Order, error) {
			assert.Equal(t, userID, gotUser)
			require.Len(t, input.Items, 1)
			return &order.Order{
				ID:          uuid.Must(uuid.NewV4()),
				UserID:      gotUser,
				OrderNumber: "ORD-779200-AB12CD",
				TotalAmount: decimal.RequireFromString("19.98"),
				TaxAmount:   decimal.RequireFromString("1.50"),
				Status:      order.StatusPending,
				Items: []order.OrderItem{{
					ProductID:   input.Items[0].ProductID,
					ProductName: "Desk Lamp",
					Quantity:    2,
					Price:       decimal.RequireFromString("9.99"),
				}},
			}, nil
		},
	}
	h := handler.NewOrderHandler(svc)

	body := `{"payment_method":"card","items":[{"product_id":"` + uuid.Must(uuid.NewV4()).String() + `","quantity":2}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	rr := authedRequest(t, req, userID, h.CreateOrder)

	require.Equal(t, http.StatusCreated, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ORD-779200-AB12CD", resp["order_number"])
	assert.Equal(t, "pending", resp["status"])
	assert.Equal(t, "19.98", resp["subtotal"])
	assert.Equal(t, "21.48", resp["grand_total"])
}

func TestOrderHandler_CreateOrder_BadBody(t *testing.T) {
	h := handler.NewOrderHandler(&mockOrderService{})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader("{not json"))
	rr := authedRequest(t, req, uuid.Must(uuid.NewV4()), h.CreateOrder)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOrderHandler_GetOrder(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	orderID := uuid.Must(uuid.NewV4())

	tests := []struct {
		name       string
		urlID      string
		getErr     error
		wantStatus int
	}{
		{name: "found", urlID: orderID.String(), wantStatus: http.StatusOK},
		{name: "malformed_id", urlID: "not-a-uuid", wantStatus: http.StatusBadRequest},
		{name: "someone_elses_order", urlID: orderID.String(), getErr: apperr.NotFound("order"), wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockOrderService{
				getByIDFunc: func(_ context.Context, gotUser, gotOrder uuid.UUID) (*order.Order, error) {
					assert.Equal(t, userID, gotUser)
					assert.Equal(t, orderID, gotOrder)
					if tt.getErr != nil {
						return nil, tt.getErr
					}
					return &order.Order{ID: gotOrder, UserID: gotUser, Status: order.StatusPending}, nil
				},
			}
			h := handler.NewOrderHandler(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/orders/"+tt.urlID, nil)
			req = withURLParam(req, "id", tt.urlID)
			rr := authedRequest(t, req, userID, h.GetOrder)

			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())
	staffID := uuid.Must(uuid.NewV4())

	var gotStatus order.Status
	svc := &mockOrderService{
		updateStatusFunc: func(_ context.Context, _ uuid.UUID, newStatus order.Status, comment string, actorID uuid.UUID) error {
			gotStatus = newStatus
			assert.Equal(t, "payment cleared", comment)
			assert.Equal(t, staffID, actorID)
			return nil
		},
		statusHistoryFunc: func(_ context.Context, _ uuid.UUID) ([]order.StatusHistory, error) {
			return []order.StatusHistory{
				{OrderID: orderID, Status: order.StatusPending},
				{OrderID: orderID, Status: order.StatusConfirmed},
			}, nil
		},
	}
	h := handler.NewOrderHandler(svc)

	body := `{"status":"confirmed","comment":"payment cleared"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/orders/"+orderID.String()+"/status", strings.NewReader(body))
	req = withURLParam(req, "id", orderID.String())
	rr := authedRequest(t, req, staffID, h.UpdateStatus)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, order.StatusConfirmed, gotStatus)

	var resp struct {
		Status  order.Status          `json:"status"`
		History []order.StatusHistory `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, order.StatusConfirmed, resp.Status)
	assert.Len(t, resp.History, 2)
}

func TestOrderHandler_UpdateStatus_InvalidTransition(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())
	svc := &mockOrderService{
		updateStatusFunc: func(_ context.Context, _ uuid.UUID, _ order.Status, _ string, _ uuid.UUID) error {
			return apperr.Wrap(apperr.KindValidation, "cannot transition order from cancelled to shipped", order.ErrInvalidStatusTransition)
		},
	}
	h := handler.NewOrderHandler(svc)

	req := httptest.NewRequest(http.MethodPatch, "/api/orders/"+orderID.String()+"/status", strings.NewReader(`{"status":"shipped"}`))
	req = withURLParam(req, "id", orderID.String())
	rr := authedRequest(t, req, uuid.Must(uuid.NewV4()), h.UpdateStatus)

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "validation", resp["error"])
}
