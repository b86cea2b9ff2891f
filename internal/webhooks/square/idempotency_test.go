package squarewebhook

import (
	"context"
	"testing"
	"time"
)

type stubIdempotencyStore struct {
	seen    map[string]bool
	deleted []string
}

func (s *stubIdempotencyStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *stubIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.seen, key)
		s.deleted = append(s.deleted, key)
	}
	return nil
}

func (s *stubIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "sf:idem:" + scope + ":" + id
}

func TestIdempotencyGuardBlocksReplays(t *testing.T) {
	t.Parallel()

	store := &stubIdempotencyStore{}
	guard, err := NewIdempotencyGuard(store, time.Hour, "square")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	already, err := guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	if already {
		t.Fatal("first delivery must not be flagged as a replay")
	}

	already, err = guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if !already {
		t.Fatal("second delivery must be flagged as a replay")
	}
}

func TestIdempotencyGuardDeleteAllowsRetry(t *testing.T) {
	t.Parallel()

	store := &stubIdempotencyStore{}
	guard, err := NewIdempotencyGuard(store, time.Hour, "square")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	if _, err := guard.CheckAndMark(context.Background(), "evt_2"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := guard.Delete(context.Background(), "evt_2"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	already, err := guard.CheckAndMark(context.Background(), "evt_2")
	if err != nil {
		t.Fatalf("re-check: %v", err)
	}
	if already {
		t.Fatal("deleted marker must allow the event through again")
	}
}

func TestIdempotencyGuardRejectsBadConfig(t *testing.T) {
	t.Parallel()

	if _, err := NewIdempotencyGuard(nil, time.Hour, "square"); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewIdempotencyGuard(&stubIdempotencyStore{}, time.Hour, ""); err == nil {
		t.Fatal("expected error for empty scope")
	}
}
