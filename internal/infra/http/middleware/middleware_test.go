package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/gateway"
)

type memIdempotencyStore struct {
	entries map[string]gateway.CachedResponse
	getErr  error
}

func (s *memIdempotencyStore) Get(_ context.Context, key string) (*gateway.CachedResponse, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if cached, ok := s.entries[key]; ok {
		return &cached, nil
	}
	return nil, nil
}

func (s *memIdempotencyStore) Save(_ context.Context, key string, response gateway.CachedResponse, _ time.Duration) error {
	if s.entries == nil {
		s.entries = make(map[string]gateway.CachedResponse)
	}
	s.entries[key] = response
	return nil
}

func (s *memIdempotencyStore) Reserve(_ context.Context, _ string, _ time.Duration) (bool, error) {
	return true, nil
}

func TestIdempotencyReplaysCachedResponse(t *testing.T) {
	store := &memIdempotencyStore{}
	var handlerCalls int
	handler := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		handlerCalls++
		w.WriteHeader(http.StatusCreated)
		if _, err := w.Write([]byte(`{"transaction_id":"tx-1"}`)); err != nil {
			t.Fatal(err)
		}
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/wallets/deposits", nil)
		req.Header.Set("Idempotency-Key", "webhook-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := do()
	if first.Code != http.StatusCreated || handlerCalls != 1 {
		t.Fatalf("first call: code %d, handler calls %d", first.Code, handlerCalls)
	}

	second := do()
	if second.Code != http.StatusCreated {
		t.Errorf("replay code: %d", second.Code)
	}
	if handlerCalls != 1 {
		t.Errorf("handler ran again on replay: %d calls", handlerCalls)
	}
	if second.Header().Get("X-Idempotency-Hit") != "true" {
		t.Error("replay not marked as cache hit")
	}
	if second.Body.String() != first.Body.String() {
		t.Errorf("replay body differs: %q vs %q", second.Body.String(), first.Body.String())
	}
}

func TestIdempotencyWithoutKeyPassesThrough(t *testing.T) {
	store := &memIdempotencyStore{}
	var handlerCalls int
	handler := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		handlerCalls++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payouts", nil))
	}
	if handlerCalls != 2 {
		t.Errorf("handler calls: %d", handlerCalls)
	}
	if len(store.entries) != 0 {
		t.Error("nothing should be cached without a key")
	}
}

func TestIdempotencyFailsOpenOnStoreError(t *testing.T) {
	store := &memIdempotencyStore{getErr: context.DeadlineExceeded}
	var handlerCalls int
	handler := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		handlerCalls++
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/payouts", nil)
	req.Header.Set("Idempotency-Key", "k1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if handlerCalls != 1 || rec.Code != http.StatusOK {
		t.Errorf("fail open broken: calls %d, code %d", handlerCalls, rec.Code)
	}
}

func TestIdempotencyDoesNotCacheServerErrors(t *testing.T) {
	store := &memIdempotencyStore{}
	handler := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodPost, "/payouts", nil)
	req.Header.Set("Idempotency-Key", "k1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(store.entries) != 0 {
		t.Error("5xx response cached, retry would replay the failure")
	}
}

func TestOperatorMiddleware(t *testing.T) {
	var handlerCalls int
	handler := Operator(func(r *http.Request) bool {
		return r.Header.Get("X-Operator-Token") == "secret"
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		handlerCalls++
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/transactions/tx-1/hold", nil))
	if rec.Code != http.StatusForbidden || handlerCalls != 0 {
		t.Errorf("unauthenticated request: code %d, calls %d", rec.Code, handlerCalls)
	}

	req := httptest.NewRequest(http.MethodPost, "/transactions/tx-1/hold", nil)
	req.Header.Set("X-Operator-Token", "secret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || handlerCalls != 1 {
		t.Errorf("authenticated request: code %d, calls %d", rec.Code, handlerCalls)
	}
}

func TestOperatorMiddlewareNilAuthorizeDeniesAll(t *testing.T) {
	handler := Operator(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/transactions/tx-1/hold", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("nil authorize must deny: %d", rec.Code)
	}
}
