package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/ezh-cafe/api/internal/database"
	"github.com/ezh-cafe/api/internal/middleware"
	"github.com/ezh-cafe/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PaymentConfirmer records successful online payments.
// Satisfied by *service.OrderLedger; narrow interface for testability.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, venueID string, id uuid.UUID, chargeID string) (database.Order, error)
}

// PaymentHandler handles payment confirmation for orders placed online.
type PaymentHandler struct {
	ledger PaymentConfirmer
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(ledger PaymentConfirmer) *PaymentHandler {
	return &PaymentHandler{ledger: ledger}
}

// RegisterRoutes registers payment endpoints on the given Chi router.
// Expected to be mounted inside the staff group at /venues/{vid}/orders
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/{id}/payment", h.Confirm)
}

type confirmPaymentRequest struct {
	ChargeID string `json:"charge_id"`
}

// Confirm handles POST /venues/{vid}/orders/{id}/payment. The charge ID is the
// payment provider's reference from the successful payment update.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.ledger.ConfirmPayment(r.Context(), chi.URLParam(r, "vid"), orderID, req.ChargeID)
	if err != nil {
		writeLedgerError(w, "confirm payment", err)
		return
	}

	log.Printf("payment confirmed: order=%s venue=%s amount=%d by=%s", order.ID, order.VenueID, order.TotalAmount, claims.UserID)
	writeJSON(w, http.StatusOK, service.NewOrderView(order))
}
