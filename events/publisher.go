package events

import (
	"context"
	"time"

	"storefront-service/models"
)

const TypeOrderCommitted = "order.committed"

// Event is the envelope published for storefront domain events.
type Event struct {
	Type       string        `json:"event"`
	OrderID    string        `json:"order_id"`
	AccountID  string        `json:"account_id"`
	TotalCents int64         `json:"total_cents"`
	OccurredAt time.Time     `json:"occurred_at"`
	Order      *models.Order `json:"order,omitempty"`
}

// OrderCommitted builds the event emitted after an order is persisted.
func OrderCommitted(order *models.Order) Event {
	return Event{
		Type:       TypeOrderCommitted,
		OrderID:    order.OrderID,
		AccountID:  order.Account.ID,
		TotalCents: order.TotalsCents,
		OccurredAt: order.CreatedAt,
		Order:      order,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher is used when no event bus is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
