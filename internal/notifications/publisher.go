package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/mercadia/storefront-backend/internal/orders"
	"github.com/mercadia/storefront-backend/pkg/logger"
)

const (
	defaultPublishTimeout = 10 * time.Second

	EventOrderCreated = "order.created"
	EventOrderPaid    = "order.paid"
)

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

// orderEvent is the envelope published on the order events topic.
type orderEvent struct {
	EventID    string           `json:"event_id"`
	EventType  string           `json:"event_type"`
	OccurredAt time.Time        `json:"occurred_at"`
	Order      *orders.OrderDTO `json:"order"`
}

// OrderPublisher emits order lifecycle events. Publishing is best-effort:
// failures are logged and never surface to the request that triggered them.
type OrderPublisher struct {
	pub     publisher
	logg    *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewOrderPublisher wraps a Pub/Sub publisher handle for order events.
func NewOrderPublisher(pub *gcppubsub.Publisher, logg *logger.Logger) (*OrderPublisher, error) {
	if pub == nil {
		return nil, fmt.Errorf("order events publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &OrderPublisher{
		pub:     &gcpPublisher{Publisher: pub},
		logg:    logg,
		timeout: defaultPublishTimeout,
		now:     time.Now,
	}, nil
}

// OrderCreated publishes an order.created event.
func (p *OrderPublisher) OrderCreated(ctx context.Context, order *orders.OrderDTO) {
	p.publish(ctx, EventOrderCreated, order)
}

// OrderPaid publishes an order.paid event.
func (p *OrderPublisher) OrderPaid(ctx context.Context, order *orders.OrderDTO) {
	p.publish(ctx, EventOrderPaid, order)
}

func (p *OrderPublisher) publish(ctx context.Context, eventType string, order *orders.OrderDTO) {
	if order == nil {
		return
	}

	event := orderEvent{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: p.now().UTC(),
		Order:      order,
	}
	fields := map[string]any{
		"event_id":   event.EventID,
		"event_type": eventType,
		"order_id":   order.ID.String(),
		"reference":  order.Reference,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.warn(ctx, fields, err)
		return
	}

	msg := &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_id":    event.EventID,
			"event_type":  eventType,
			"order_id":    order.ID.String(),
			"occurred_at": event.OccurredAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	result := p.pub.Publish(publishCtx, msg)
	if result == nil {
		p.warn(ctx, fields, errors.New("publisher returned nil result"))
		return
	}
	if _, err := result.Get(publishCtx); err != nil {
		p.warn(ctx, fields, err)
		return
	}
	p.logg.Info(p.logg.WithFields(ctx, fields), "order event published")
}

func (p *OrderPublisher) warn(ctx context.Context, fields map[string]any, err error) {
	ctxWithFields := p.logg.WithFields(ctx, fields)
	ctxWithFields = p.logg.WithField(ctxWithFields, "error", err.Error())
	p.logg.Warn(ctxWithFields, "order event publish failed")
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
