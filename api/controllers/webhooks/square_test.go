package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	squarewebhook "github.com/mercadia/storefront-backend/internal/webhooks/square"
)

type stubWebhookService struct {
	handled []*squarewebhook.WebhookEvent
	err     error
}

func (s *stubWebhookService) HandleEvent(_ context.Context, event *squarewebhook.WebhookEvent) error {
	s.handled = append(s.handled, event)
	return s.err
}

type stubGuard struct {
	seen    map[string]bool
	deleted []string
}

func (g *stubGuard) CheckAndMark(_ context.Context, eventID string) (bool, error) {
	if g.seen == nil {
		g.seen = map[string]bool{}
	}
	if g.seen[eventID] {
		return true, nil
	}
	g.seen[eventID] = true
	return false, nil
}

func (g *stubGuard) Delete(_ context.Context, eventID string) error {
	delete(g.seen, eventID)
	g.deleted = append(g.deleted, eventID)
	return nil
}

type stubClient struct{ secret string }

func (c stubClient) SigningSecret() string { return c.secret }

func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func postEvent(handler http.HandlerFunc, payload, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/square", strings.NewReader(payload))
	if signature != "" {
		req.Header.Set("Square-Signature", signature)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

const eventPayload = `{"event_id":"evt_1","type":"payment.updated","data":{"type":"payment","id":"pay_1"}}`

func TestSquareWebhookProcessesSignedEvent(t *testing.T) {
	svc := &stubWebhookService{}
	handler := SquareWebhook(svc, stubClient{secret: "whsec"}, &stubGuard{}, nil)

	resp := postEvent(handler, eventPayload, sign("whsec", eventPayload))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.handled) != 1 || svc.handled[0].EventID != "evt_1" {
		t.Fatalf("expected one handled event, got %v", svc.handled)
	}
}

func TestSquareWebhookRejectsBadSignature(t *testing.T) {
	svc := &stubWebhookService{}
	handler := SquareWebhook(svc, stubClient{secret: "whsec"}, &stubGuard{}, nil)

	resp := postEvent(handler, eventPayload, sign("other-secret", eventPayload))

	if resp.Code == http.StatusOK {
		t.Fatal("tampered signature must not be accepted")
	}
	if len(svc.handled) != 0 {
		t.Fatal("handler must not run for unverified payloads")
	}
}

func TestSquareWebhookRejectsMissingSignature(t *testing.T) {
	handler := SquareWebhook(&stubWebhookService{}, stubClient{secret: "whsec"}, &stubGuard{}, nil)

	resp := postEvent(handler, eventPayload, "")

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSquareWebhookShortCircuitsReplays(t *testing.T) {
	svc := &stubWebhookService{}
	guard := &stubGuard{}
	handler := SquareWebhook(svc, stubClient{secret: "whsec"}, guard, nil)

	signature := sign("whsec", eventPayload)
	if resp := postEvent(handler, eventPayload, signature); resp.Code != http.StatusOK {
		t.Fatalf("first delivery: expected 200 got %d", resp.Code)
	}
	if resp := postEvent(handler, eventPayload, signature); resp.Code != http.StatusOK {
		t.Fatalf("replay: expected 200 got %d", resp.Code)
	}
	if len(svc.handled) != 1 {
		t.Fatalf("replay must not re-run the handler, handled %d times", len(svc.handled))
	}
}

func TestSquareWebhookUnmarksOnHandlerFailure(t *testing.T) {
	svc := &stubWebhookService{err: context.DeadlineExceeded}
	guard := &stubGuard{}
	handler := SquareWebhook(svc, stubClient{secret: "whsec"}, guard, nil)

	resp := postEvent(handler, eventPayload, sign("whsec", eventPayload))

	if resp.Code == http.StatusOK {
		t.Fatal("handler failure must surface as an error status")
	}
	if len(guard.deleted) != 1 || guard.deleted[0] != "evt_1" {
		t.Fatalf("expected idempotency marker removed, got %v", guard.deleted)
	}
}
