package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderStatus string

const (
	OrderStatusAwaitingPayment OrderStatus = "awaiting_payment"
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusPaid            OrderStatus = "paid"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

type OrderType string

const (
	OrderTypePickup   OrderType = "pickup"
	OrderTypeDelivery OrderType = "delivery"
)

type PaymentMethod string

const (
	PaymentMethodOnline        PaymentMethod = "online"
	PaymentMethodOnFulfillment PaymentMethod = "on_fulfillment"
)

type Venue struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	CoverImage        pgtype.Text `json:"cover_image"`
	LogoImage         pgtype.Text `json:"logo_image"`
	KitchenCategories pgtype.Text `json:"kitchen_categories"`
	Rating            pgtype.Text `json:"rating"`
	CookingTime       pgtype.Text `json:"cooking_time"`
	Status            pgtype.Text `json:"status"`
	OpeningHours      pgtype.Text `json:"opening_hours"`
	MinOrderAmount    int64       `json:"min_order_amount"`
}

type Category struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Icon            pgtype.Text `json:"icon"`
	BackgroundColor pgtype.Text `json:"background_color"`
}

type Order struct {
	ID              uuid.UUID     `json:"id"`
	VenueID         string        `json:"venue_id"`
	CustomerInfo    []byte        `json:"customer_info"`
	CartItems       []byte        `json:"cart_items"`
	TotalAmount     int64         `json:"total_amount"`
	Currency        string        `json:"currency"`
	Status          OrderStatus   `json:"status"`
	OrderType       OrderType     `json:"order_type"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	PaymentChargeID pgtype.Text   `json:"payment_charge_id"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

type StaffUser struct {
	ID             uuid.UUID   `json:"id"`
	VenueID        pgtype.Text `json:"venue_id"`
	Email          string      `json:"email"`
	HashedPassword string      `json:"hashed_password"`
	FullName       string      `json:"full_name"`
	Role           string      `json:"role"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
}
