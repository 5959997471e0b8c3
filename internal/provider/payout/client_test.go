package payout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/domain"
)

var testRecipient = domain.Recipient{
	Name:          "Maria Lopez",
	BankName:      "BBVA",
	AccountNumber: "012345678901234567",
	Country:       "MX",
}

func TestCreatePayout(t *testing.T) {
	var gotIdempotencyKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payouts" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotIdempotencyKey = r.Header.Get("X-Idempotency-Key")
		if err := json.NewEncoder(w).Encode(map[string]string{
			"id":     "payout-1",
			"status": "accepted",
		}); err != nil {
			t.Fatal(err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", time.Second, false)
	result, err := client.CreatePayout(context.Background(), 17500, "MXN", testRecipient, "TRX-TEST0001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ProviderID != "payout-1" || result.Status != "accepted" || result.Simulated {
		t.Errorf("result: %+v", result)
	}
	if gotIdempotencyKey != "TRX-TEST0001" {
		t.Errorf("idempotency key: %q", gotIdempotencyKey)
	}
}

func TestCreatePayoutValidation(t *testing.T) {
	client := NewClient("http://localhost:0", "", time.Second, false)

	if _, err := client.CreatePayout(context.Background(), 0, "MXN", testRecipient, "ref"); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("zero amount: got %v", err)
	}
	if _, err := client.CreatePayout(context.Background(), 100, "", testRecipient, "ref"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("missing currency: got %v", err)
	}
	if _, err := client.CreatePayout(context.Background(), 100, "MXN", testRecipient, ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("missing reference: got %v", err)
	}

	incomplete := testRecipient
	incomplete.AccountNumber = ""
	if _, err := client.CreatePayout(context.Background(), 100, "MXN", incomplete, "ref"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("incomplete recipient: got %v", err)
	}
}

func TestCreatePayoutRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		if err := json.NewEncoder(w).Encode(map[string]string{"code": "invalid_account"}); err != nil {
			t.Fatal(err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second, true)
	_, err := client.CreatePayout(context.Background(), 100, "MXN", testRecipient, "ref")
	// Rejeição de negócio nunca cai no fallback simulado, mesmo habilitado.
	if !errors.Is(err, domain.ErrProviderRejected) {
		t.Fatalf("expected ErrProviderRejected, got %v", err)
	}
}

func TestSimulatedFallbackWhenRailUnreachable(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	down.Close()

	client := NewClient(down.URL, "", time.Second, true)
	result, err := client.CreatePayout(context.Background(), 100, "MXN", testRecipient, "TRX-TEST0002")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Simulated || result.Status != "simulated" {
		t.Errorf("result: %+v", result)
	}
	if !domain.IsSimulatedPayoutID(result.ProviderID) {
		t.Errorf("provider id should carry the simulated prefix: %s", result.ProviderID)
	}
}

func TestNoFallbackWhenSimulationDisabled(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	down.Close()

	client := NewClient(down.URL, "", time.Second, false)
	_, err := client.CreatePayout(context.Background(), 100, "MXN", testRecipient, "ref")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestSimulatedFallbackOnUnsupportedCorridor(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		if err := json.NewEncoder(w).Encode(map[string]string{"code": "unsupported_corridor"}); err != nil {
			t.Fatal(err)
		}
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	client := NewClient(server.URL, "", time.Second, true)
	result, err := client.CreatePayout(context.Background(), 100, "XOF", testRecipient, "ref")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Simulated {
		t.Errorf("result: %+v", result)
	}

	// Com a flag desligada o mesmo corredor é rejeição de verdade.
	client = NewClient(server.URL, "", time.Second, false)
	if _, err := client.CreatePayout(context.Background(), 100, "XOF", testRecipient, "ref"); !errors.Is(err, domain.ErrProviderRejected) {
		t.Fatalf("expected ErrProviderRejected, got %v", err)
	}
}

func TestSimulatedFallbackOnRailError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second, true)
	result, err := client.CreatePayout(context.Background(), 100, "MXN", testRecipient, "ref")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Simulated {
		t.Errorf("result: %+v", result)
	}
}
