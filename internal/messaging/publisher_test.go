package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ezh-cafe/api/internal/database"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp091.Publishing
}

type fakeChannel struct {
	published []published
	err       error
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return f.err
}

type fakeSource struct {
	ch  *fakeChannel
	err error
}

func (f *fakeSource) Channel() (Channel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ch, nil
}

func testOrder() database.Order {
	return database.Order{
		ID:          uuid.New(),
		VenueID:     "ezh-lenina",
		TotalAmount: 40000,
		Currency:    "RUB",
		Status:      database.OrderStatusPending,
	}
}

func TestPublisherPublish(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(&fakeSource{ch: ch})
	order := testOrder()

	p.Publish(context.Background(), "order.created", order)

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, OrdersExchange, got.exchange)
	assert.Equal(t, "order.created.ezh-lenina", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp091.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, order.ID.String(), got.msg.MessageId)

	var body struct {
		ID          uuid.UUID `json:"id"`
		Status      string    `json:"status"`
		TotalAmount int64     `json:"total_amount"`
	}
	require.NoError(t, json.Unmarshal(got.msg.Body, &body))
	assert.Equal(t, order.ID, body.ID)
	assert.Equal(t, "pending", body.Status)
	assert.Equal(t, int64(40000), body.TotalAmount)
}

func TestPublisherSwallowsErrors(t *testing.T) {
	p := NewPublisher(&fakeSource{err: errors.New("connection refused")})
	assert.NotPanics(t, func() {
		p.Publish(context.Background(), "order.updated", testOrder())
	})

	ch := &fakeChannel{err: errors.New("channel closed")}
	p = NewPublisher(&fakeSource{ch: ch})
	p.Publish(context.Background(), "order.updated", testOrder())
	assert.Len(t, ch.published, 1)
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "order.updated.ezh-lenina", RoutingKey("order.updated", "ezh-lenina"))
	assert.Equal(t, "order.created.ezh_msk", RoutingKey("order.created", "ezh.msk"))
}

type recordingSink struct {
	events []string
}

func (r *recordingSink) Publish(ctx context.Context, event string, order database.Order) {
	r.events = append(r.events, event)
}

func TestFanout(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	Fanout{a, b}.Publish(context.Background(), "order.created", testOrder())

	assert.Equal(t, []string{"order.created"}, a.events)
	assert.Equal(t, []string{"order.created"}, b.events)
}
