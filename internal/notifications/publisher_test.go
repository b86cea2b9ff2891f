package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/mercadia/storefront-backend/internal/orders"
	"github.com/mercadia/storefront-backend/pkg/logger"
)

type stubPublisher struct {
	messages []*gcppubsub.Message
	err      error
}

func (s *stubPublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	s.messages = append(s.messages, msg)
	return &stubResult{err: s.err}
}

type stubResult struct {
	err error
}

func (r *stubResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "msg-1", nil
}

func newTestPublisher(t *testing.T, pub publisher) *OrderPublisher {
	t.Helper()
	return &OrderPublisher{
		pub:     pub,
		logg:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		timeout: time.Second,
		now:     func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) },
	}
}

func TestOrderCreatedPublishesEnvelope(t *testing.T) {
	t.Parallel()

	stub := &stubPublisher{}
	p := newTestPublisher(t, stub)
	order := &orders.OrderDTO{
		ID:         uuid.New(),
		Reference:  "ORD-20260830-AB12CD",
		TotalCents: 3600,
	}

	p.OrderCreated(context.Background(), order)

	if len(stub.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(stub.messages))
	}
	msg := stub.messages[0]
	if msg.Attributes["event_type"] != EventOrderCreated {
		t.Fatalf("unexpected event type: %q", msg.Attributes["event_type"])
	}
	if msg.Attributes["order_id"] != order.ID.String() {
		t.Fatalf("unexpected order id attribute: %q", msg.Attributes["order_id"])
	}

	var event orderEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if event.EventType != EventOrderCreated || event.Order.Reference != order.Reference {
		t.Fatalf("unexpected payload: %+v", event)
	}
	if event.EventID == "" || event.EventID != msg.Attributes["event_id"] {
		t.Fatalf("event id mismatch: %q vs %q", event.EventID, msg.Attributes["event_id"])
	}
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	stub := &stubPublisher{err: errors.New("broker unavailable")}
	p := newTestPublisher(t, stub)

	// Must not panic or propagate; the checkout already committed.
	p.OrderPaid(context.Background(), &orders.OrderDTO{ID: uuid.New(), Reference: "ORD-X"})

	if len(stub.messages) != 1 {
		t.Fatalf("expected publish attempt, got %d", len(stub.messages))
	}
}

func TestNilOrderIsIgnored(t *testing.T) {
	t.Parallel()

	stub := &stubPublisher{}
	p := newTestPublisher(t, stub)

	p.OrderCreated(context.Background(), nil)

	if len(stub.messages) != 0 {
		t.Fatalf("expected no publish, got %d", len(stub.messages))
	}
}
