package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type memoryTokenCache struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (m *memoryTokenCache) GetToken(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[key]
	return token, ok
}

func (m *memoryTokenCache) SetToken(_ context.Context, key, token string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		m.tokens = map[string]string{}
	}
	m.tokens[key] = token
}

type fakePayPal struct {
	tokenCalls   int32
	captureCalls int32
	captured     int32
	requestIDs   []string
	mu           sync.Mutex
	createBody   map[string]interface{}
	captureState string
}

func (f *fakePayPal) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenCalls, 1)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok", "expires_in": 32400})
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.createBody = body
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": "PAYPAL-ORDER-1", "status": "CREATED"})
	})
	mux.HandleFunc("/v2/checkout/orders/PAYPAL-ORDER-1/capture", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.captureCalls, 1)
		f.mu.Lock()
		f.requestIDs = append(f.requestIDs, r.Header.Get("PayPal-Request-Id"))
		f.mu.Unlock()
		if atomic.AddInt32(&f.captured, 1) > 1 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"name":    "UNPROCESSABLE_ENTITY",
				"details": []map[string]string{{"issue": "ORDER_ALREADY_CAPTURED"}},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(f.orderBody())
	})
	mux.HandleFunc("/v2/checkout/orders/PAYPAL-ORDER-1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(f.orderBody())
	})
	return mux
}

func (f *fakePayPal) orderBody() map[string]interface{} {
	state := f.captureState
	if state == "" {
		state = StatusCompleted
	}
	return map[string]interface{}{
		"id":     "PAYPAL-ORDER-1",
		"status": state,
		"purchase_units": []interface{}{
			map[string]interface{}{
				"payments": map[string]interface{}{
					"captures": []interface{}{
						map[string]interface{}{
							"id":          "CAPTURE-1",
							"status":      state,
							"amount":      map[string]interface{}{"value": "10.00", "currency_code": "USD"},
							"create_time": "2026-02-09T12:00:00Z",
						},
					},
				},
			},
		},
	}
}

func newTestConfig(baseURL string) *Config {
	return &Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		BaseURL:      baseURL + "/",
	}
}

func TestValidateConfig(t *testing.T) {
	cfg := &Config{ClientID: "cid", ClientSecret: "secret", BaseURL: "https://api-m.sandbox.paypal.com/"}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("ValidateConfig should pass, got: %v", err)
	}
	if cfg.BaseURL != "https://api-m.sandbox.paypal.com" {
		t.Fatalf("base url not normalized, got: %s", cfg.BaseURL)
	}
	if cfg.BrandName != "The Union" || cfg.UserAction != "PAY_NOW" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if err := ValidateConfig(&Config{ClientID: "cid"}); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("missing secret should fail, got %v", err)
	}
}

func TestFormatAmount(t *testing.T) {
	got, err := FormatAmount("10")
	if err != nil || got != "10.00" {
		t.Fatalf("want 10.00 got %s err=%v", got, err)
	}
	if _, err := FormatAmount("-1"); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("negative amount should fail")
	}
}

func TestCreateOrderBuildsPayloadAndCachesToken(t *testing.T) {
	fake := &fakePayPal{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	cfg := newTestConfig(server.URL)
	cfg.TokenCache = &memoryTokenCache{}
	for i := 0; i < 2; i++ {
		result, err := CreateOrder(context.Background(), cfg, CreateInput{Amount: "10", Currency: "usd", CustomID: "7"})
		if err != nil {
			t.Fatalf("create order failed: %v", err)
		}
		if result.OrderID != "PAYPAL-ORDER-1" {
			t.Fatalf("unexpected order id: %s", result.OrderID)
		}
	}
	if fake.tokenCalls != 1 {
		t.Fatalf("token should be cached, got %d token calls", fake.tokenCalls)
	}
	unit := fake.createBody["purchase_units"].([]interface{})[0].(map[string]interface{})
	amount := unit["amount"].(map[string]interface{})
	if amount["value"] != "10.00" || amount["currency_code"] != "USD" {
		t.Fatalf("unexpected amount payload: %+v", amount)
	}
	if unit["description"] != "상품 구매" {
		t.Fatalf("want default description got %v", unit["description"])
	}
	appCtx := fake.createBody["application_context"].(map[string]interface{})
	if appCtx["brand_name"] != "The Union" || appCtx["user_action"] != "PAY_NOW" {
		t.Fatalf("unexpected application context: %+v", appCtx)
	}
}

func TestCaptureOrderIdempotencyHeaderAndAlreadyCaptured(t *testing.T) {
	fake := &fakePayPal{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()
	cfg := newTestConfig(server.URL)

	result, err := CaptureOrder(context.Background(), cfg, "PAYPAL-ORDER-1")
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	if !result.Completed() || result.TransactionID != "CAPTURE-1" {
		t.Fatalf("unexpected capture result: %+v", result)
	}
	if result.PaidAt == nil {
		t.Fatalf("paid at should be parsed")
	}

	_, err = CaptureOrder(context.Background(), cfg, "PAYPAL-ORDER-1")
	if !errors.Is(err, ErrAlreadyCaptured) {
		t.Fatalf("want ErrAlreadyCaptured got %v", err)
	}
	if len(fake.requestIDs) != 2 || fake.requestIDs[0] != fake.requestIDs[1] || !strings.HasSuffix(fake.requestIDs[0], "PAYPAL-ORDER-1") {
		t.Fatalf("request id must be deterministic: %v", fake.requestIDs)
	}

	order, err := GetOrder(context.Background(), cfg, "PAYPAL-ORDER-1")
	if err != nil || order.TransactionID != "CAPTURE-1" {
		t.Fatalf("get order failed: %+v err=%v", order, err)
	}
}

func TestCaptureNotCompleted(t *testing.T) {
	fake := &fakePayPal{captureState: "PENDING"}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	result, err := CaptureOrder(context.Background(), newTestConfig(server.URL), "PAYPAL-ORDER-1")
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	if result.Completed() {
		t.Fatalf("pending capture must not report completed")
	}
}

func TestParseCaptureFallsBackToOrderID(t *testing.T) {
	result, err := parseCapture([]byte(`{"status":"COMPLETED"}`), "ORDER-9")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if result.OrderID != "ORDER-9" || result.TransactionID != "ORDER-9" {
		t.Fatalf("unexpected fallback ids: %+v", result)
	}
}
