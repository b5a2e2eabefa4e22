package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joao-fontenele/shopflow/internal/domain"
)

type stubService struct {
	createResult *CreateResult
	createErr    error
	getOrder     *domain.Order
	getErr       error

	lastInput CreateOrderInput
	lastKey   string
}

func (s *stubService) CreateOrder(_ context.Context, in CreateOrderInput) (*CreateResult, error) {
	s.lastInput = in
	return s.createResult, s.createErr
}

func (s *stubService) GetOrder(_ context.Context, key string) (*domain.Order, error) {
	s.lastKey = key
	return s.getOrder, s.getErr
}

func newTestMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /products/buy", h.HandleCreate)
	mux.HandleFunc("GET /products/order", h.HandleGet)
	mux.HandleFunc("GET /products/order/{id}", h.HandleGet)
	return mux
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body["error"]
}

func TestHandler_HandleCreate(t *testing.T) {
	t.Run("creates order end to end", func(t *testing.T) {
		svc, store := newTestService(t, &fakePublisher{})
		mux := newTestMux(NewHandler(svc, discardLogger()))

		req := httptest.NewRequest(http.MethodPost, "/products/buy", strings.NewReader(`{"ids":["p1","p2"]}`))
		req = req.WithContext(domain.WithIdentity(req.Context(), domain.Identity{Username: "alice"}))
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if rec.Header().Get("Content-Type") != "application/json" {
			t.Errorf("expected application/json, got %s", rec.Header().Get("Content-Type"))
		}

		var order domain.Order
		if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if order.TotalPrice != 25 {
			t.Errorf("expected total 25, got %d", order.TotalPrice)
		}
		if order.Username != "alice" {
			t.Errorf("expected username alice, got %s", order.Username)
		}
		if order.PrimaryKey == "" || order.OrderID == "" {
			t.Errorf("expected both identifiers, got %+v", order)
		}
		if store.count() != 1 {
			t.Errorf("expected 1 stored order, got %d", store.count())
		}
	})

	t.Run("returns 200 on idempotent replay", func(t *testing.T) {
		svc, _ := newTestService(t, &fakePublisher{})
		mux := newTestMux(NewHandler(svc, discardLogger()))

		send := func() *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/products/buy", strings.NewReader(`{"ids":["p1"]}`))
			req.Header.Set(IdempotencyKeyHeader, " req-7 ")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			return rec
		}

		if rec := send(); rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d", rec.Code)
		}
		if rec := send(); rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("passes trimmed idempotency key and identity", func(t *testing.T) {
		stub := &stubService{createResult: &CreateResult{Order: &domain.Order{OrderID: "o1"}}}
		mux := newTestMux(NewHandler(stub, discardLogger()))

		req := httptest.NewRequest(http.MethodPost, "/products/buy", strings.NewReader(`{"ids":["p1"]}`))
		req.Header.Set(IdempotencyKeyHeader, "  abc  ")
		req = req.WithContext(domain.WithIdentity(req.Context(), domain.Identity{UserID: "u-1"}))
		mux.ServeHTTP(httptest.NewRecorder(), req)

		if stub.lastInput.IdempotencyKey != "abc" {
			t.Errorf("expected key abc, got %q", stub.lastInput.IdempotencyKey)
		}
		if stub.lastInput.Requester.Name() != "u-1" {
			t.Errorf("expected requester u-1, got %q", stub.lastInput.Requester.Name())
		}
	})

	t.Run("still returns 201 when publish fails", func(t *testing.T) {
		svc, _ := newTestService(t, &fakePublisher{err: domain.ErrBrokerUnavailable})
		mux := newTestMux(NewHandler(svc, discardLogger()))

		req := httptest.NewRequest(http.MethodPost, "/products/buy", strings.NewReader(`{"ids":["p1"]}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Errorf("expected status 201, got %d", rec.Code)
		}
	})

	t.Run("returns 400 for client errors", func(t *testing.T) {
		tests := []struct {
			name    string
			body    string
			wantMsg string
		}{
			{name: "invalid json", body: `{`, wantMsg: "invalid request body"},
			{name: "missing ids", body: `{}`, wantMsg: domain.ErrProductIDsRequired.Error()},
			{name: "empty ids", body: `{"ids":[]}`, wantMsg: domain.ErrProductIDsRequired.Error()},
			{name: "no products found", body: `{"ids":["nope"]}`, wantMsg: domain.ErrNoProductsFound.Error()},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc, store := newTestService(t, &fakePublisher{})
				mux := newTestMux(NewHandler(svc, discardLogger()))

				req := httptest.NewRequest(http.MethodPost, "/products/buy", strings.NewReader(tt.body))
				rec := httptest.NewRecorder()
				mux.ServeHTTP(rec, req)

				if rec.Code != http.StatusBadRequest {
					t.Fatalf("expected status 400, got %d", rec.Code)
				}
				if msg := decodeError(t, rec); msg != tt.wantMsg {
					t.Errorf("expected error %q, got %q", tt.wantMsg, msg)
				}
				if store.count() != 0 {
					t.Errorf("expected nothing persisted, got %d", store.count())
				}
			})
		}
	})

	t.Run("returns 500 on persistence failure", func(t *testing.T) {
		svc, store := newTestService(t, &fakePublisher{})
		store.createErr = errors.New("connection refused")
		mux := newTestMux(NewHandler(svc, discardLogger()))

		req := httptest.NewRequest(http.MethodPost, "/products/buy", strings.NewReader(`{"ids":["p1"]}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected status 500, got %d", rec.Code)
		}
		if msg := decodeError(t, rec); msg != "internal server error" {
			t.Errorf("expected generic message, got %q", msg)
		}
	})
}

func TestHandler_HandleGet(t *testing.T) {
	seed := func(t *testing.T) (*http.ServeMux, *domain.Order, *fakeStore) {
		t.Helper()
		svc, store := newTestService(t, &fakePublisher{})
		res, err := svc.CreateOrder(context.Background(), CreateOrderInput{ProductIDs: []string{"p1", "p2"}})
		if err != nil {
			t.Fatalf("failed to seed order: %v", err)
		}
		return newTestMux(NewHandler(svc, discardLogger())), res.Order, store
	}

	t.Run("resolves by path and query with either identifier", func(t *testing.T) {
		mux, created, _ := seed(t)

		paths := []string{
			"/products/order/" + created.OrderID,
			"/products/order/" + created.PrimaryKey,
			"/products/order?id=" + created.OrderID,
			"/products/order?id=" + created.PrimaryKey,
		}
		for _, path := range paths {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("%s: expected status 200, got %d", path, rec.Code)
			}
			var order domain.Order
			if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
				t.Fatalf("%s: decode: %v", path, err)
			}
			if order.OrderID != created.OrderID {
				t.Errorf("%s: expected order %s, got %s", path, created.OrderID, order.OrderID)
			}
			if order.TotalPrice != 25 || len(order.Products) != 2 {
				t.Errorf("%s: unexpected order %+v", path, order)
			}
		}
	})

	t.Run("query takes precedence over path", func(t *testing.T) {
		stub := &stubService{getOrder: &domain.Order{OrderID: "x"}}
		mux := newTestMux(NewHandler(stub, discardLogger()))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/order/from-path?id=from-query", nil))

		if stub.lastKey != "from-query" {
			t.Errorf("expected key from-query, got %q", stub.lastKey)
		}
	})

	t.Run("returns 400 without a key", func(t *testing.T) {
		mux, _, _ := seed(t)

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/order", nil))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
		if msg := decodeError(t, rec); msg != domain.ErrOrderKeyRequired.Error() {
			t.Errorf("unexpected message %q", msg)
		}
	})

	t.Run("returns 404 for unknown or malformed keys", func(t *testing.T) {
		mux, _, _ := seed(t)

		for _, key := range []string{"not-a-real-id", "123456", "0"} {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/order/"+key, nil))

			if rec.Code != http.StatusNotFound {
				t.Errorf("%s: expected status 404, got %d", key, rec.Code)
				continue
			}
			if msg := decodeError(t, rec); msg != "order not found" {
				t.Errorf("%s: unexpected message %q", key, msg)
			}
		}
	})

	t.Run("returns 500 on store failure", func(t *testing.T) {
		mux, created, store := seed(t)
		store.getErr = errors.New("db down")

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/order/"+created.OrderID, nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rec.Code)
		}
	})
}
