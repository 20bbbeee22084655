package service

import (
	"encoding/json"
	"time"

	"github.com/ezh-cafe/api/internal/database"
	"github.com/google/uuid"
)

// OrderView is the JSON shape of an order for staff clients and event
// consumers. The stored snapshots are passed through as raw JSON.
type OrderView struct {
	ID              uuid.UUID       `json:"id"`
	VenueID         string          `json:"venue_id"`
	CustomerInfo    json.RawMessage `json:"customer_info"`
	CartItems       json.RawMessage `json:"cart_items"`
	TotalAmount     int64           `json:"total_amount"`
	Currency        string          `json:"currency"`
	Status          string          `json:"status"`
	OrderType       string          `json:"order_type"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentChargeID *string         `json:"payment_charge_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func NewOrderView(o database.Order) OrderView {
	v := OrderView{
		ID:            o.ID,
		VenueID:       o.VenueID,
		CustomerInfo:  rawOrNull(o.CustomerInfo),
		CartItems:     rawOrNull(o.CartItems),
		TotalAmount:   o.TotalAmount,
		Currency:      o.Currency,
		Status:        string(o.Status),
		OrderType:     string(o.OrderType),
		PaymentMethod: string(o.PaymentMethod),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.PaymentChargeID.Valid {
		v.PaymentChargeID = &o.PaymentChargeID.String
	}
	return v
}

func rawOrNull(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(b)
}
