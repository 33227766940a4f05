package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"tokencore/internal/config"
	"tokencore/internal/gateway"
	"tokencore/internal/pricing"
	"tokencore/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, rec
}

func testPricingPolicy() *pricing.Policy {
	return pricing.New(config.PricingConfig{
		Currency:           "NGN",
		TokensPerUnitMoney: 10,
		MinPurchaseMoney:   1,
		MaxPurchaseMoney:   1000,
		FreeGrantTokens:    50,
		ServiceCosts:       map[string]int64{"profile": 5},
	})
}

func TestGetPricing(t *testing.T) {
	h := &Handler{pricing: testPricingPolicy()}
	c, rec := newTestContext()

	h.GetPricing(c)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var env response.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	data, ok := env.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected Data to be a map, got %T", env.Data)
	}
	if data["currency"] != "NGN" {
		t.Errorf("currency = %v, want NGN", data["currency"])
	}
}

func TestInlineConfig(t *testing.T) {
	gatewayClient := gateway.New(config.GatewayConfig{MerchantCode: "MX1", PayItemID: "item-1", Mode: "TEST"})
	h := &Handler{gateway: gatewayClient}
	c, rec := newTestContext()

	h.InlineConfig(c)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestGetBalance_RejectsMissingUserKey(t *testing.T) {
	h := &Handler{}
	c, rec := newTestContext()

	h.GetBalance(c)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a missing user_key", rec.Code)
	}
}

func TestVerify_RejectsMissingReference(t *testing.T) {
	h := &Handler{}
	c, rec := newTestContext()

	h.Verify(c)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a missing reference", rec.Code)
	}
}

func TestGetTransaction_RejectsMissingReference(t *testing.T) {
	h := &Handler{}
	c, rec := newTestContext()

	h.GetTransaction(c)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a missing reference", rec.Code)
	}
}

func TestAnalyze_RejectsMissingUserKeyHeader(t *testing.T) {
	h := &Handler{}
	c, rec := newTestContext()
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/analyze/work-1", nil)

	h.Analyze(c)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a missing user-key header", rec.Code)
	}
}
