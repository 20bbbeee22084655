package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/ezh-cafe/api/internal/database"
	"github.com/ezh-cafe/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// OrderServicer defines the service methods needed to place orders.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// OrderLedger defines the order lifecycle methods used by staff endpoints.
// Satisfied by *service.OrderLedger; narrow interface for testability.
type OrderLedger interface {
	Get(ctx context.Context, venueID string, id uuid.UUID) (database.Order, error)
	List(ctx context.Context, venueID, status string, limit, offset int32) ([]database.Order, error)
	Advance(ctx context.Context, venueID string, id uuid.UUID, to database.OrderStatus) (database.Order, error)
	Cancel(ctx context.Context, venueID string, id uuid.UUID) (database.Order, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc    OrderServicer
	ledger OrderLedger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, ledger OrderLedger) *OrderHandler {
	return &OrderHandler{svc: svc, ledger: ledger}
}

// RegisterRoutes registers the public order submission endpoint.
// Expected to be mounted inside a venue-scoped subrouter: /venues/{vid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
}

// RegisterStaffRoutes registers the staff order endpoints. The caller is
// responsible for authenticating the group.
func (h *OrderHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/cancel", h.Cancel)
}

// --- Request / Response types ---

type createOrderRequest struct {
	Auth          string                   `json:"auth"`
	CartItems     []service.CartLine       `json:"cart_items"`
	Address       *service.DeliveryAddress `json:"address"`
	PaymentMethod string                   `json:"payment_method"`
}

type createOrderResponse struct {
	OrderID    uuid.UUID `json:"order_id"`
	InvoiceURL string    `json:"invoice_url,omitempty"`
	Accepted   bool      `json:"accepted,omitempty"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []service.OrderView `json:"orders"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// --- Handlers ---

// Create handles POST /venues/{vid}/orders. The caller is identified by the
// auth field rather than a staff token.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Auth == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "auth is required"})
		return
	}
	// Cart shape is checked by the service after the auth data is verified.

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		VenueID:       chi.URLParam(r, "vid"),
		Auth:          req.Auth,
		Lines:         req.CartItems,
		Address:       req.Address,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeCreateOrderError(w, err)
		return
	}

	resp := createOrderResponse{OrderID: result.Order.ID, InvoiceURL: result.InvoiceURL}
	if result.InvoiceURL == "" {
		resp.Accepted = true
	}
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /venues/{vid}/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	orders, err := h.ledger.List(r.Context(), chi.URLParam(r, "vid"), r.URL.Query().Get("status"), int32(limit), int32(offset))
	if err != nil {
		writeLedgerError(w, "list orders", err)
		return
	}

	resp := make([]service.OrderView, len(orders))
	for i, o := range orders {
		resp[i] = service.NewOrderView(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /venues/{vid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := h.ledger.Get(r.Context(), chi.URLParam(r, "vid"), orderID)
	if err != nil {
		writeLedgerError(w, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, service.NewOrderView(order))
}

// UpdateStatus handles PATCH /venues/{vid}/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	order, err := h.ledger.Advance(r.Context(), chi.URLParam(r, "vid"), orderID, database.OrderStatus(req.Status))
	if err != nil {
		writeLedgerError(w, "update order status", err)
		return
	}
	writeJSON(w, http.StatusOK, service.NewOrderView(order))
}

// Cancel handles POST /venues/{vid}/orders/{id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := h.ledger.Cancel(r.Context(), chi.URLParam(r, "vid"), orderID)
	if err != nil {
		writeLedgerError(w, "cancel order", err)
		return
	}
	writeJSON(w, http.StatusOK, service.NewOrderView(order))
}

// --- Helpers ---

func parseOrderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return uuid.Nil, false
	}
	return id, true
}

// writeCreateOrderError maps order placement failures to responses. Pricing
// rejections carry the detail the client needs to fix the cart.
func writeCreateOrderError(w http.ResponseWriter, err error) {
	var unavailable *service.UnavailableError
	var belowMin *service.BelowMinimumError

	switch {
	case errors.Is(err, service.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrVenueNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "venue not found"})
	case errors.As(err, &unavailable):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":     err.Error(),
			"item_kind": unavailable.Kind,
			"item_id":   unavailable.ID,
		})
	case errors.As(err, &belowMin):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":            service.ErrBelowMinimumOrder.Error(),
			"min_order_amount": belowMin.Minimum,
		})
	case service.IsValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrDispatchFailed):
		// The service has already logged the cause with the order context.
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": service.ErrDispatchFailed.Error()})
	default:
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func writeLedgerError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrDuplicateCharge):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case service.IsValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
