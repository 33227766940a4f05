package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tokencore/internal/config"
)

func testConfig() config.GatewayConfig {
	return config.GatewayConfig{
		ClientID:     "client-id",
		SecretKey:    "secret",
		MerchantCode: "MX123",
		PayItemID:    "item-1",
		Mode:         "TEST",
		ReturnURL:    "https://app.example.com/callback",
	}
}

func TestPaymentURL_IsDeterministicAndWellFormed(t *testing.T) {
	cfg := testConfig()
	cfg.PaymentBaseURL = "https://pay.example.com/checkout"
	c := New(cfg)

	got := c.PaymentURL("ref-123", decimal.NewFromInt(100), "NGN", "user-1")

	parsed, err := url.Parse(got)
	if err != nil {
		t.Fatalf("PaymentURL produced an unparseable URL: %v", err)
	}
	q := parsed.Query()

	if q.Get("txn_ref") != "ref-123" {
		t.Errorf("txn_ref = %q, want ref-123", q.Get("txn_ref"))
	}
	if q.Get("amount") != "10000" {
		t.Errorf("amount = %q, want 10000 (100 NGN in kobo)", q.Get("amount"))
	}
	if q.Get("currency") != "566" {
		t.Errorf("currency = %q, want 566 (NGN numeric code)", q.Get("currency"))
	}
	if q.Get("cust_id") != "user-1" {
		t.Errorf("cust_id = %q, want user-1", q.Get("cust_id"))
	}
	if q.Get("hash") == "" {
		t.Errorf("expected a non-empty hash")
	}

	again := c.PaymentURL("ref-123", decimal.NewFromInt(100), "NGN", "user-1")
	if got != again {
		t.Errorf("PaymentURL is not deterministic for identical inputs")
	}
}

func TestPaymentURL_DifferentReferenceChangesHash(t *testing.T) {
	cfg := testConfig()
	cfg.PaymentBaseURL = "https://pay.example.com/checkout"
	c := New(cfg)

	a := c.PaymentURL("ref-1", decimal.NewFromInt(100), "NGN", "user-1")
	b := c.PaymentURL("ref-2", decimal.NewFromInt(100), "NGN", "user-1")
	if a == b {
		t.Errorf("expected different references to produce different URLs")
	}
}

func TestCurrencyNumericCode(t *testing.T) {
	tests := []struct {
		currency string
		want     string
	}{
		{"NGN", "566"},
		{"usd", "840"},
		{"GBP", "826"},
		{"EUR", "978"},
		{"XXX", "566"},
	}
	for _, tt := range tests {
		if got := currencyNumericCode(tt.currency); got != tt.want {
			t.Errorf("currencyNumericCode(%q) = %q, want %q", tt.currency, got, tt.want)
		}
	}
}

func TestInterpretResponseCode(t *testing.T) {
	tests := []struct {
		code string
		want VerifyStatus
	}{
		{"00", VerifyStatusSuccessful},
		{"09", VerifyStatusPending},
		{"Z1", VerifyStatusPending},
		{"12", VerifyStatusFailed},
		{"", VerifyStatusFailed},
	}
	for _, tt := range tests {
		if got := interpretResponseCode(tt.code); got != tt.want {
			t.Errorf("interpretResponseCode(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestMinorUnits(t *testing.T) {
	if got := minorUnits(decimal.NewFromFloat(10.5)); got != 1050 {
		t.Errorf("minorUnits(10.5) = %d, want 1050", got)
	}
}

func TestInlineConfig(t *testing.T) {
	cfg := testConfig()
	c := New(cfg)
	info := c.InlineConfig()
	if info.MerchantCode != cfg.MerchantCode || info.PayItemID != cfg.PayItemID || info.Mode != cfg.Mode || info.ReturnURL != cfg.ReturnURL {
		t.Errorf("InlineConfig() = %+v, did not mirror the configured gateway fields", info)
	}
}

func TestVerify_SuccessfulResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "oauth/token"):
			w.Write([]byte(`{"access_token":"tok-abc","expires_in":3600}`))
		case strings.Contains(r.URL.Path, "gettransaction"):
			w.Write([]byte(`{"ResponseCode":"00","Amount":"10000"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.TokenBaseURL = server.URL
	cfg.APIBaseURL = server.URL
	c := New(cfg)

	result, err := c.Verify(context.Background(), "ref-1", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != VerifyStatusSuccessful {
		t.Errorf("Status = %q, want successful", result.Status)
	}
}

func TestVerify_AmountMismatchDowngradesToFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "oauth/token"):
			w.Write([]byte(`{"access_token":"tok-abc","expires_in":3600}`))
		case strings.Contains(r.URL.Path, "gettransaction"):
			w.Write([]byte(`{"ResponseCode":"00","Amount":"1"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.TokenBaseURL = server.URL
	cfg.APIBaseURL = server.URL
	c := New(cfg)

	result, err := c.Verify(context.Background(), "ref-1", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != VerifyStatusFailed {
		t.Errorf("Status = %q, want failed on amount mismatch", result.Status)
	}
}

func TestVerify_GatewayServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "oauth/token") {
			w.Write([]byte(`{"access_token":"tok-abc","expires_in":3600}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.TokenBaseURL = server.URL
	cfg.APIBaseURL = server.URL
	c := New(cfg)

	if _, err := c.Verify(context.Background(), "ref-1", decimal.NewFromInt(100)); err == nil {
		t.Fatalf("expected an error for a 5xx gateway response")
	}
}

func TestAccessTokenOrRefresh_CachesUntilExpirySafetyMargin(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"access_token":"tok-abc","expires_in":3600}`))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.TokenBaseURL = server.URL
	c := New(cfg)

	first, err := c.accessTokenOrRefresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.accessTokenOrRefresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("expected the cached token to be reused")
	}
	if calls != 1 {
		t.Errorf("fetchAccessToken called %d times, want 1", calls)
	}
}

func TestAccessTokenOrRefresh_RefreshesWhenNearExpiry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"access_token":"tok-abc","expires_in":3600}`))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.TokenBaseURL = server.URL
	c := New(cfg)

	c.mu.Lock()
	c.accessToken = "stale"
	c.expiresAt = time.Now().Add(1 * time.Minute)
	c.mu.Unlock()

	if _, err := c.accessTokenOrRefresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a refresh when within the expiry safety margin, got %d calls", calls)
	}
}
