package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	contractx "github.com/tanpawarit/cesto-mcp-server/server/contract"
)

func TestNewClientRequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected an error for an empty url")
	}
	if _, err := NewClient(Config{URL: "::not-a-url"}); err == nil {
		t.Fatal("expected an error for a malformed url")
	}
}

func TestNotifyPostsPayload(t *testing.T) {
	t.Parallel()

	var got payload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(Config{URL: srv.URL, Token: "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	receipt, err := c.Notify(context.Background(), contractx.SupportNotification{
		Reason:        "complaint",
		CustomerName:  "Ana",
		CustomerPhone: "+5583999990000",
		Context:       "pedido atrasado",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !receipt.Delivered {
		t.Fatal("expected delivered receipt")
	}
	if receipt.Priority != PriorityCritical {
		t.Fatalf("unexpected priority: %s", receipt.Priority)
	}
	if got.Reason != "complaint" || got.Priority != PriorityCritical {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if auth != "Bearer secret" {
		t.Fatalf("unexpected authorization header: %q", auth)
	}
}

func TestNotifyNon2xxIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClient(Config{URL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Notify(context.Background(), contractx.SupportNotification{Reason: "complaint"}); err == nil {
		t.Fatal("expected an error for a 502 response")
	}
}

func TestPriorityForReason(t *testing.T) {
	t.Parallel()

	cases := []struct {
		reason string
		want   string
	}{
		{"end_of_checkout", PriorityLow},
		{"  End_Of_Checkout  ", PriorityLow},
		{"freight_doubt", PriorityMedium},
		{"complaint", PriorityCritical},
		{"anything else", PriorityCritical},
	}
	for _, tc := range cases {
		if got := PriorityForReason(tc.reason); got != tc.want {
			t.Fatalf("%q: expected %s, got %s", tc.reason, tc.want, got)
		}
	}
}

func TestNopAcceptsAndDrops(t *testing.T) {
	t.Parallel()

	receipt, err := Nop{}.Notify(context.Background(), contractx.SupportNotification{Reason: "freight_doubt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.Delivered {
		t.Fatal("nop must not report delivery")
	}
	if receipt.Priority != PriorityMedium {
		t.Fatalf("unexpected priority: %s", receipt.Priority)
	}
}
