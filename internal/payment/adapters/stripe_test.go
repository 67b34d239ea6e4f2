package adapters

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openlotlabs/torii/internal/payment/domain"
)

func newStripeTestAdapter(t *testing.T, baseURL string) domain.Adapter {
	t.Helper()
	adapter, err := StripeFactory{}.NewAdapter(domain.AdapterConfig{
		Provider: "stripe",
		Config: map[string]any{
			"secret_key":     "sk_test",
			"webhook_secret": "whsec_test",
			"base_url":       baseURL,
		},
	})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return adapter
}

func stripeSignature(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "."))
	mac.Write(payload)
	return "t=" + timestamp + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

func TestStripeCreateCharge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payment_intents" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk_test" {
			t.Fatalf("unexpected authorization %q", r.Header.Get("Authorization"))
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("amount") != "600" {
			t.Fatalf("unexpected amount %q", r.PostForm.Get("amount"))
		}
		if r.PostForm.Get("metadata[session_token]") != "tok-1" {
			t.Fatalf("unexpected session token %q", r.PostForm.Get("metadata[session_token]"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_1","status":"succeeded","amount":600,"currency":"jpy"}`))
	}))
	defer server.Close()

	adapter := newStripeTestAdapter(t, server.URL)
	charge, err := adapter.CreateCharge(context.Background(), domain.ChargeRequest{
		SessionToken: "tok-1",
		Amount:       600,
		Currency:     "JPY",
		Description:  "Parking fee, 120 minutes",
	})
	if err != nil {
		t.Fatalf("create charge: %v", err)
	}
	if charge.ProviderChargeID != "pi_1" {
		t.Fatalf("unexpected charge id %q", charge.ProviderChargeID)
	}
	if charge.Status != domain.ChargeStatusSucceeded {
		t.Fatalf("unexpected status %q", charge.Status)
	}
}

func TestStripeCreateChargeDeclined(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer server.Close()

	adapter := newStripeTestAdapter(t, server.URL)
	_, err := adapter.CreateCharge(context.Background(), domain.ChargeRequest{
		SessionToken: "tok-2",
		Amount:       600,
		Currency:     "JPY",
	})
	if !errors.Is(err, domain.ErrChargeFailed) {
		t.Fatalf("expected ErrChargeFailed, got %v", err)
	}
}

func TestStripeVerify(t *testing.T) {
	adapter := newStripeTestAdapter(t, "http://unused")
	payload := []byte(`{"id":"evt_1"}`)

	headers := http.Header{}
	headers.Set("Stripe-Signature", stripeSignature("whsec_test", "1700000000", payload))
	if err := adapter.Verify(context.Background(), payload, headers); err != nil {
		t.Fatalf("verify: %v", err)
	}

	headers.Set("Stripe-Signature", stripeSignature("wrong_secret", "1700000000", payload))
	err := adapter.Verify(context.Background(), payload, headers)
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	headers.Del("Stripe-Signature")
	err = adapter.Verify(context.Background(), payload, headers)
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestStripeParse(t *testing.T) {
	adapter := newStripeTestAdapter(t, "http://unused")

	payload := []byte(`{
		"id": "evt_1",
		"type": "payment_intent.succeeded",
		"created": 1700000000,
		"data": {"object": {"id": "pi_1", "status": "succeeded", "amount": 600, "currency": "jpy"}}
	}`)
	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.ProviderEventID != "evt_1" {
		t.Fatalf("unexpected event id %q", event.ProviderEventID)
	}
	if event.Type != domain.EventTypePaymentSucceeded {
		t.Fatalf("unexpected type %q", event.Type)
	}
	if event.ChargeID != "pi_1" || event.Amount != 600 || event.Currency != "JPY" {
		t.Fatalf("unexpected event %+v", event)
	}

	_, err = adapter.Parse(context.Background(), []byte(`{"id":"evt_2","type":"customer.created"}`))
	if !errors.Is(err, domain.ErrEventIgnored) {
		t.Fatalf("expected ErrEventIgnored, got %v", err)
	}
}
