package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, venue_id, customer_info, cart_items, total_amount, currency, status, order_type, payment_method, payment_charge_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.VenueID,
		&i.CustomerInfo,
		&i.CartItems,
		&i.TotalAmount,
		&i.Currency,
		&i.Status,
		&i.OrderType,
		&i.PaymentMethod,
		&i.PaymentChargeID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (venue_id, customer_info, cart_items, total_amount, currency, status, order_type, payment_method)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	VenueID       string        `json:"venue_id"`
	CustomerInfo  []byte        `json:"customer_info"`
	CartItems     []byte        `json:"cart_items"`
	TotalAmount   int64         `json:"total_amount"`
	Currency      string        `json:"currency"`
	Status        OrderStatus   `json:"status"`
	OrderType     OrderType     `json:"order_type"`
	PaymentMethod PaymentMethod `json:"payment_method"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.VenueID,
		arg.CustomerInfo,
		arg.CartItems,
		arg.TotalAmount,
		arg.Currency,
		arg.Status,
		arg.OrderType,
		arg.PaymentMethod,
	)
	return scanOrder(row)
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1 AND venue_id = $2
`

type GetOrderParams struct {
	ID      uuid.UUID `json:"id"`
	VenueID string    `json:"venue_id"`
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, arg.ID, arg.VenueID)
	return scanOrder(row)
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + `
FROM orders
WHERE venue_id = $1
  AND ($2::text IS NULL OR status = $2::text)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`

type ListOrdersParams struct {
	VenueID string      `json:"venue_id"`
	Status  pgtype.Text `json:"status"`
	Limit   int32       `json:"limit"`
	Offset  int32       `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.VenueID,
		arg.Status,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders
SET status = $3, updated_at = now()
WHERE id = $1 AND venue_id = $2 AND status = $4
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID             uuid.UUID   `json:"id"`
	VenueID        string      `json:"venue_id"`
	Status         OrderStatus `json:"status"`
	ExpectedStatus OrderStatus `json:"expected_status"`
}

// UpdateOrderStatus only updates when the stored status still equals
// ExpectedStatus; otherwise it returns pgx.ErrNoRows.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus,
		arg.ID,
		arg.VenueID,
		arg.Status,
		arg.ExpectedStatus,
	)
	return scanOrder(row)
}

const markOrderPaid = `-- name: MarkOrderPaid :one
UPDATE orders
SET status = 'paid', payment_charge_id = $3, updated_at = now()
WHERE id = $1 AND venue_id = $2 AND status = 'awaiting_payment' AND payment_charge_id IS NULL
RETURNING ` + orderColumns

type MarkOrderPaidParams struct {
	ID              uuid.UUID `json:"id"`
	VenueID         string    `json:"venue_id"`
	PaymentChargeID string    `json:"payment_charge_id"`
}

func (q *Queries) MarkOrderPaid(ctx context.Context, arg MarkOrderPaidParams) (Order, error) {
	row := q.db.QueryRow(ctx, markOrderPaid, arg.ID, arg.VenueID, arg.PaymentChargeID)
	return scanOrder(row)
}

const cancelOrder = `-- name: CancelOrder :one
UPDATE orders
SET status = 'cancelled', updated_at = now()
WHERE id = $1 AND venue_id = $2 AND status NOT IN ('completed', 'cancelled')
RETURNING ` + orderColumns

type CancelOrderParams struct {
	ID      uuid.UUID `json:"id"`
	VenueID string    `json:"venue_id"`
}

func (q *Queries) CancelOrder(ctx context.Context, arg CancelOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, cancelOrder, arg.ID, arg.VenueID)
	return scanOrder(row)
}
