package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"tokencore/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	return c, rec
}

func TestFromError_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", model.ErrValidation, http.StatusBadRequest},
		{"unknown reference", model.ErrUnknownReference, http.StatusNotFound},
		{"unknown user", model.ErrUnknownUser, http.StatusNotFound},
		{"insufficient funds sentinel", model.ErrInsufficientFunds, http.StatusPaymentRequired},
		{"gateway unavailable", model.ErrGatewayUnavailable, http.StatusBadGateway},
		{"conflicting state", model.ErrConflictingState, http.StatusConflict},
		{"duplicate reference", model.ErrDuplicateReference, http.StatusConflict},
		{"unrecognized error", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newTestContext()
			FromError(c, tt.err)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestFromError_InsufficientTokensIncludesBalanceDetail(t *testing.T) {
	c, rec := newTestContext()
	FromError(c, &model.InsufficientTokensError{Required: 10, Current: 3})

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", rec.Code)
	}

	var body struct {
		Error          string `json:"error"`
		RequiredTokens int64  `json:"required_tokens"`
		CurrentBalance int64  `json:"current_balance"`
		Message        string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body.Error != "InsufficientTokens" {
		t.Errorf("Error = %q, want %q", body.Error, "InsufficientTokens")
	}
	if body.RequiredTokens != 10 || body.CurrentBalance != 3 {
		t.Errorf("body = %+v, want required_tokens=10 current_balance=3", body)
	}
}

func TestFromError_GatewayRejectedIsNotAnHTTPError(t *testing.T) {
	c, rec := newTestContext()
	FromError(c, model.ErrGatewayRejected)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (failed payments render as a normal response body)", rec.Code)
	}
}

func TestSuccess(t *testing.T) {
	c, rec := newTestContext()
	Success(c, gin.H{"balance": 100})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if env.Code != 0 {
		t.Errorf("Code = %d, want 0", env.Code)
	}
}

func TestParamError(t *testing.T) {
	c, rec := newTestContext()
	ParamError(c, "missing field")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body.Error != "ValidationError" {
		t.Errorf("Error = %q, want %q", body.Error, "ValidationError")
	}
	if body.Detail != "missing field" {
		t.Errorf("Detail = %q, want %q", body.Detail, "missing field")
	}
}
