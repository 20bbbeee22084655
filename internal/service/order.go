package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ezh-cafe/api/internal/auth"
	"github.com/ezh-cafe/api/internal/database"
	"github.com/ezh-cafe/api/internal/enum"
	"github.com/jackc/pgx/v5"
)

// Errors returned by the order service.
var (
	ErrUnauthorized         = errors.New("invalid auth data")
	ErrVenueNotFound        = errors.New("venue not found")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
	ErrNothingToPay         = errors.New("order has no payable items")
	ErrDispatchFailed       = errors.New("could not complete order")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	PricingStore
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// VenueStore looks up venues.
// Satisfied by *database.Queries; narrow interface for testability.
type VenueStore interface {
	GetVenue(ctx context.Context, id string) (database.Venue, error)
}

// Authenticator verifies the opaque auth token sent with a cart.
// Satisfied by *auth.InitDataValidator.
type Authenticator interface {
	Validate(token string) (*auth.Customer, error)
}

// Invoice is a request for a payment link. Payload correlates the payment
// with the order once it clears.
type Invoice struct {
	Payload  string
	Currency string
	Lines    []InvoiceLine
}

// OrderNotice is what customer and staff are told about an order.
type OrderNotice struct {
	Order     database.Order
	VenueName string
	Customer  CustomerInfo
	Lines     []PricedLine
}

// Dispatcher performs the external action that finalizes an order.
type Dispatcher interface {
	CreateInvoiceLink(ctx context.Context, inv Invoice) (string, error)
	NotifyOrderAccepted(ctx context.Context, n OrderNotice) error
}

// EventSink receives order events after they are committed. Publishing is
// best effort.
type EventSink interface {
	Publish(ctx context.Context, event string, order database.Order)
}

// DeliveryAddress is where a delivery order goes.
type DeliveryAddress struct {
	City      string `json:"city"`
	Street    string `json:"street"`
	House     string `json:"house"`
	Apartment string `json:"apartment"`
	Comment   string `json:"comment"`
}

// CustomerInfo is the customer snapshot stored on an order.
type CustomerInfo struct {
	auth.Customer
	Address *DeliveryAddress `json:"address,omitempty"`
}

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	VenueID       string
	Auth          string
	Lines         []CartLine
	Address       *DeliveryAddress
	PaymentMethod string
}

// CreateOrderResult is the committed order. InvoiceURL is set for online
// payment only.
type CreateOrderResult struct {
	Order      database.Order
	InvoiceURL string
}

// OrderService handles order business logic.
type OrderService struct {
	pool            TxBeginner
	newStore        NewOrderStore
	venues          VenueStore
	auth            Authenticator
	dispatcher      Dispatcher
	events          EventSink
	currency        string
	dispatchTimeout time.Duration
}

// NewOrderService creates a new OrderService. A zero dispatchTimeout leaves the
// dispatch bounded only by the request context.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, venues VenueStore, authn Authenticator, dispatcher Dispatcher, currency string, dispatchTimeout time.Duration) *OrderService {
	if currency == "" {
		currency = enum.DefaultCurrency
	}
	return &OrderService{
		pool:            pool,
		newStore:        newStore,
		venues:          venues,
		auth:            authn,
		dispatcher:      dispatcher,
		currency:        currency,
		dispatchTimeout: dispatchTimeout,
	}
}

// SetEventSink registers where committed orders are announced.
func (s *OrderService) SetEventSink(events EventSink) {
	s.events = events
}

// CreateOrder authenticates the customer, re-prices the cart, stages the order
// and performs the dispatch for the chosen payment method. The order is only
// committed when the dispatch succeeds.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	// --- Authenticate ---
	customer, err := s.auth.Validate(req.Auth)
	if err != nil {
		log.Printf("WARN: rejected auth data for venue %s: %v", req.VenueID, err)
		return nil, ErrUnauthorized
	}

	// --- Validate request shape ---
	method, status, err := validatePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	venue, err := s.venues.GetVenue(ctx, req.VenueID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, fmt.Errorf("get venue: %w", err)
	}

	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Price ---
	cart, err := PriceCart(ctx, store, venue.ID, req.Lines, venue.MinOrderAmount)
	if err != nil {
		return nil, err
	}
	if method == database.PaymentMethodOnline && len(cart.InvoiceLines) == 0 {
		return nil, ErrNothingToPay
	}

	// --- Stage order ---
	info := CustomerInfo{Customer: *customer, Address: req.Address}
	customerJSON, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("marshal customer info: %w", err)
	}
	cartJSON, err := json.Marshal(cart.Lines)
	if err != nil {
		return nil, fmt.Errorf("marshal cart: %w", err)
	}

	orderType := database.OrderTypePickup
	if req.Address != nil {
		orderType = database.OrderTypeDelivery
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		VenueID:       venue.ID,
		CustomerInfo:  customerJSON,
		CartItems:     cartJSON,
		TotalAmount:   cart.Total,
		Currency:      s.currency,
		Status:        status,
		OrderType:     orderType,
		PaymentMethod: method,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Dispatch ---
	invoiceURL, err := s.dispatch(ctx, order, venue, info, cart)
	if err != nil {
		log.Printf("ERROR: dispatch order %s (venue %s, method %s, amount %d %s): %v",
			order.ID, venue.ID, method, cart.Total, s.currency, err)
		return nil, fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	if s.events != nil {
		s.events.Publish(ctx, enum.EventOrderCreated, order)
	}

	return &CreateOrderResult{Order: order, InvoiceURL: invoiceURL}, nil
}

// dispatch runs the single external call of order creation under the
// dispatch timeout.
func (s *OrderService) dispatch(ctx context.Context, order database.Order, venue database.Venue, info CustomerInfo, cart *PricedCart) (string, error) {
	if s.dispatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.dispatchTimeout)
		defer cancel()
	}

	if order.PaymentMethod == database.PaymentMethodOnline {
		return s.dispatcher.CreateInvoiceLink(ctx, Invoice{
			Payload:  order.ID.String(),
			Currency: order.Currency,
			Lines:    cart.InvoiceLines,
		})
	}

	return "", s.dispatcher.NotifyOrderAccepted(ctx, OrderNotice{
		Order:     order,
		VenueName: venue.Name,
		Customer:  info,
		Lines:     cart.Lines,
	})
}

// --- Helpers ---

func validatePaymentMethod(s string) (database.PaymentMethod, database.OrderStatus, error) {
	switch database.PaymentMethod(s) {
	case database.PaymentMethodOnline:
		return database.PaymentMethodOnline, database.OrderStatusAwaitingPayment, nil
	case database.PaymentMethodOnFulfillment:
		return database.PaymentMethodOnFulfillment, database.OrderStatusPending, nil
	}
	return "", "", ErrInvalidPaymentMethod
}

// IsValidationError reports whether err is caused by the client's request
// rather than by the server or an external service.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrEmptyCart,
		ErrInvalidQuantity,
		ErrMissingVariant,
		ErrItemUnavailable,
		ErrVariantMismatch,
		ErrAddonNotEligible,
		ErrBelowMinimumOrder,
		ErrInvalidPaymentMethod,
		ErrNothingToPay,
		ErrInvalidStatus,
		ErrMissingChargeID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
