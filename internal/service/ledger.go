package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ezh-cafe/api/internal/database"
	"github.com/ezh-cafe/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// Errors returned by the order ledger.
var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrMissingChargeID   = errors.New("charge_id is required")
	ErrDuplicateCharge   = errors.New("payment charge already recorded")
)

// allowedTransitions lists the forward moves staff may make. awaiting_payment
// reaches paid only through ConfirmPayment, which records the charge.
var allowedTransitions = map[database.OrderStatus][]database.OrderStatus{
	database.OrderStatusAwaitingPayment: {database.OrderStatusCancelled},
	database.OrderStatusPending:         {database.OrderStatusPaid, database.OrderStatusCompleted, database.OrderStatusCancelled},
	database.OrderStatusPaid:            {database.OrderStatusCompleted, database.OrderStatusCancelled},
}

// LedgerStore defines the DB methods needed to read and advance orders.
// Satisfied by *database.Queries; narrow interface for testability.
type LedgerStore interface {
	GetVenue(ctx context.Context, id string) (database.Venue, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	MarkOrderPaid(ctx context.Context, arg database.MarkOrderPaidParams) (database.Order, error)
	CancelOrder(ctx context.Context, arg database.CancelOrderParams) (database.Order, error)
}

// PaymentNotifier tells customer and staff that an order was paid.
type PaymentNotifier interface {
	NotifyOrderPaid(ctx context.Context, n OrderNotice) error
}

// OrderLedger moves placed orders through their lifecycle.
type OrderLedger struct {
	store         LedgerStore
	notifier      PaymentNotifier
	events        EventSink
	notifyTimeout time.Duration
}

// NewOrderLedger creates a new OrderLedger. notifier and events may be nil.
func NewOrderLedger(store LedgerStore, notifier PaymentNotifier, events EventSink, notifyTimeout time.Duration) *OrderLedger {
	return &OrderLedger{store: store, notifier: notifier, events: events, notifyTimeout: notifyTimeout}
}

// Get returns one order of the venue.
func (l *OrderLedger) Get(ctx context.Context, venueID string, id uuid.UUID) (database.Order, error) {
	order, err := l.store.GetOrder(ctx, database.GetOrderParams{ID: id, VenueID: venueID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// List returns the venue's orders, newest first, optionally with one status.
func (l *OrderLedger) List(ctx context.Context, venueID, status string, limit, offset int32) ([]database.Order, error) {
	filter := pgtype.Text{}
	if status != "" {
		if !isKnownStatus(database.OrderStatus(status)) {
			return nil, ErrInvalidStatus
		}
		filter = pgtype.Text{String: status, Valid: true}
	}
	orders, err := l.store.ListOrders(ctx, database.ListOrdersParams{
		VenueID: venueID,
		Status:  filter,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Advance moves an order to the given status. Cancellation goes through
// Cancel so that it applies from any non-terminal status.
func (l *OrderLedger) Advance(ctx context.Context, venueID string, id uuid.UUID, to database.OrderStatus) (database.Order, error) {
	if !isKnownStatus(to) {
		return database.Order{}, ErrInvalidStatus
	}
	if to == database.OrderStatusCancelled {
		return l.Cancel(ctx, venueID, id)
	}

	current, err := l.Get(ctx, venueID, id)
	if err != nil {
		return database.Order{}, err
	}
	if !isAllowedTransition(current.Status, to) {
		return database.Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
	}

	order, err := l.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:             id,
		VenueID:        venueID,
		Status:         to,
		ExpectedStatus: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Someone else moved the order since it was read.
			return database.Order{}, fmt.Errorf("%w: %s changed concurrently", ErrInvalidTransition, current.Status)
		}
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}

	l.publish(ctx, order)
	return order, nil
}

// Cancel cancels an order that is neither completed nor already cancelled.
func (l *OrderLedger) Cancel(ctx context.Context, venueID string, id uuid.UUID) (database.Order, error) {
	order, err := l.store.CancelOrder(ctx, database.CancelOrderParams{ID: id, VenueID: venueID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			current, getErr := l.Get(ctx, venueID, id)
			if getErr != nil {
				return database.Order{}, getErr
			}
			return database.Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, database.OrderStatusCancelled)
		}
		return database.Order{}, fmt.Errorf("cancel order: %w", err)
	}

	l.publish(ctx, order)
	return order, nil
}

// ConfirmPayment records the provider's charge reference on an order that is
// awaiting payment and marks it paid. A charge reference is accepted once.
// Customer and staff are then notified; a failed notification does not undo
// the payment.
func (l *OrderLedger) ConfirmPayment(ctx context.Context, venueID string, id uuid.UUID, chargeID string) (database.Order, error) {
	if chargeID == "" {
		return database.Order{}, ErrMissingChargeID
	}

	order, err := l.store.MarkOrderPaid(ctx, database.MarkOrderPaidParams{
		ID:              id,
		VenueID:         venueID,
		PaymentChargeID: chargeID,
	})
	if err != nil {
		if isDuplicateCharge(err) {
			return database.Order{}, ErrDuplicateCharge
		}
		if errors.Is(err, pgx.ErrNoRows) {
			current, getErr := l.Get(ctx, venueID, id)
			if getErr != nil {
				return database.Order{}, getErr
			}
			return database.Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, database.OrderStatusPaid)
		}
		return database.Order{}, fmt.Errorf("mark order paid: %w", err)
	}

	l.notifyPaid(ctx, order)
	l.publish(ctx, order)
	return order, nil
}

func (l *OrderLedger) notifyPaid(ctx context.Context, order database.Order) {
	if l.notifier == nil {
		return
	}

	notice, err := noticeFromOrder(order)
	if err != nil {
		log.Printf("WARN: build notice for order %s: %v", order.ID, err)
		return
	}
	if venue, err := l.store.GetVenue(ctx, order.VenueID); err == nil {
		notice.VenueName = venue.Name
	}

	if l.notifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.notifyTimeout)
		defer cancel()
	}
	if err := l.notifier.NotifyOrderPaid(ctx, notice); err != nil {
		log.Printf("WARN: notify payment for order %s (venue %s): %v", order.ID, order.VenueID, err)
	}
}

func (l *OrderLedger) publish(ctx context.Context, order database.Order) {
	if l.events != nil {
		l.events.Publish(ctx, enum.EventOrderUpdated, order)
	}
}

// noticeFromOrder decodes the snapshots stored on an order.
func noticeFromOrder(order database.Order) (OrderNotice, error) {
	notice := OrderNotice{Order: order}
	if len(order.CustomerInfo) > 0 {
		if err := json.Unmarshal(order.CustomerInfo, &notice.Customer); err != nil {
			return OrderNotice{}, fmt.Errorf("decode customer info: %w", err)
		}
	}
	if len(order.CartItems) > 0 {
		if err := json.Unmarshal(order.CartItems, &notice.Lines); err != nil {
			return OrderNotice{}, fmt.Errorf("decode cart items: %w", err)
		}
	}
	return notice, nil
}

func isAllowedTransition(from, to database.OrderStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func isKnownStatus(s database.OrderStatus) bool {
	switch s {
	case database.OrderStatusAwaitingPayment, database.OrderStatusPending,
		database.OrderStatusPaid, database.OrderStatusCompleted, database.OrderStatusCancelled:
		return true
	}
	return false
}

// isDuplicateCharge checks if the error is a unique constraint violation
// on the payment charge reference (pgconn error code 23505).
func isDuplicateCharge(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_payment_charge_id_key"
	}
	return false
}
