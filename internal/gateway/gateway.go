// Package gateway is the protocol adapter for the external payment
// gateway (C2): OAuth2 client-credentials token acquisition, a pure
// payment-URL construction, and a verify call against the provider's
// transaction-status endpoint. It mirrors the teacher's separation of
// transport concerns from orchestration — nothing in here decides how a
// PaymentTransaction's status should change, it only answers "what does
// the gateway say".
package gateway

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tokencore/internal/config"
	"tokencore/internal/model"
)

// VerifyStatus is the three-way outcome verify() can report (§4.2).
type VerifyStatus string

const (
	VerifyStatusSuccessful VerifyStatus = "successful"
	VerifyStatusPending    VerifyStatus = "pending"
	VerifyStatusFailed     VerifyStatus = "failed"
)

// VerifyResult carries the gateway's reported outcome plus the raw
// response body for opaque storage in PaymentTransaction.GatewayPayload.
type VerifyResult struct {
	Status         VerifyStatus
	GatewayPayload string
}

// Client is the process-wide gateway adapter. The OAuth2 access token is
// shared state guarded by mu. Every call takes mu, including one that
// finds a fresh-enough token; a refresh holds mu across the token-endpoint
// request, so concurrent callers wait until it finishes.
type Client struct {
	cfg        config.GatewayConfig
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

func New(cfg config.GatewayConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

const tokenExpirySafetyMargin = 5 * time.Minute

// accessTokenOrRefresh returns a cached token if it is not within the
// safety margin of expiring, otherwise performs a single serialized
// refresh.
func (c *Client) accessTokenOrRefresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.accessToken != "" && time.Now().Add(tokenExpirySafetyMargin).Before(c.expiresAt) {
		token := c.accessToken
		c.mu.Unlock()
		return token, nil
	}
	defer c.mu.Unlock()

	// mu has been held since the check above, so this repeats that check
	// against the same state.
	if c.accessToken != "" && time.Now().Add(tokenExpirySafetyMargin).Before(c.expiresAt) {
		return c.accessToken, nil
	}

	token, expiresIn, err := c.fetchAccessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrGatewayUnavailable, err)
	}
	c.accessToken = token
	c.expiresAt = time.Now().Add(time.Duration(expiresIn) * time.Second)
	return c.accessToken, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (c *Client) fetchAccessToken(ctx context.Context) (string, int64, error) {
	endpoint := strings.TrimRight(c.cfg.TokenBaseURL, "/") + "/oauth/token"
	body := strings.NewReader("grant_type=client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.SecretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, err
	}
	if resp.StatusCode >= 500 {
		return "", 0, fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("token endpoint rejected client credentials: %d", resp.StatusCode)
	}

	var parsed tokenResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", 0, fmt.Errorf("malformed token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", 0, fmt.Errorf("token response missing access_token")
	}
	return parsed.AccessToken, parsed.ExpiresIn, nil
}

// minorUnits converts a 2-decimal money amount into the gateway's integer
// minor-unit representation (e.g. naira -> kobo).
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// PaymentURL implements payment_url(reference, amount, currency, user_key):
// pure construction, no network I/O. The return URL is the configured
// GatewayConfig.ReturnURL, not a parameter.
func (c *Client) PaymentURL(reference string, amount decimal.Decimal, currency string, userKey string) string {
	amountMinor := minorUnits(amount)
	returnURL := c.cfg.ReturnURL

	hash := sha512Hex(fmt.Sprintf("%s|%s|%d|%s|%s",
		c.cfg.PayItemID, reference, amountMinor, returnURL, c.cfg.SecretKey))

	q := url.Values{}
	q.Set("merchant_code", c.cfg.MerchantCode)
	q.Set("pay_item_id", c.cfg.PayItemID)
	q.Set("txn_ref", reference)
	q.Set("amount", strconv.FormatInt(amountMinor, 10))
	q.Set("currency", currencyNumericCode(currency))
	q.Set("cust_id", userKey)
	q.Set("site_redirect_url", returnURL)
	q.Set("hash", hash)

	base := strings.TrimRight(c.cfg.PaymentBaseURL, "/")
	return base + "?" + q.Encode()
}

func sha512Hex(s string) string {
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}

// currencyNumericCode maps ISO currency codes to their ISO 4217 numeric
// equivalent, the form the gateway's checkout expects. Only the codes the
// core is configured to support need an entry.
func currencyNumericCode(currency string) string {
	switch strings.ToUpper(currency) {
	case "NGN":
		return "566"
	case "USD":
		return "840"
	case "GBP":
		return "826"
	case "EUR":
		return "978"
	default:
		return "566"
	}
}

type verifyResponse struct {
	ResponseCode string `json:"ResponseCode"`
	Amount       string `json:"Amount"`
}

// Verify implements verify(reference, amount) (§4.2, §6): a network call
// against the gateway's transaction-status endpoint. Network failures and
// 5xx surface as GatewayUnavailable so the caller can retry while keeping
// the transaction pending; a parsed-but-unsuccessful response is not an
// error at all, it is a VerifyResult the orchestrator acts on.
func (c *Client) Verify(ctx context.Context, reference string, amount decimal.Decimal) (*VerifyResult, error) {
	token, err := c.accessTokenOrRefresh(ctx)
	if err != nil {
		return nil, err
	}

	amountMinor := minorUnits(amount)
	hash := sha512Hex(fmt.Sprintf("%s|%d|%s", c.cfg.SecretKey, amountMinor, reference))

	endpoint := strings.TrimRight(c.cfg.APIBaseURL, "/") + "/collections/api/v1/gettransaction.json"
	q := url.Values{}
	q.Set("merchantcode", c.cfg.MerchantCode)
	q.Set("transactionreference", reference)
	q.Set("amount", strconv.FormatInt(amountMinor, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrGatewayUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Hash", hash)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrGatewayUnavailable, err)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: gateway returned %d", model.ErrGatewayUnavailable, resp.StatusCode)
	}

	var parsed verifyResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed verify response", model.ErrGatewayUnavailable)
	}

	status := interpretResponseCode(parsed.ResponseCode)

	// An amount mismatch downgrades an otherwise-successful response to
	// failed — grounded on the reference implementation's verify_payment.
	if status == VerifyStatusSuccessful && parsed.Amount != "" {
		reportedMinor, convErr := strconv.ParseInt(parsed.Amount, 10, 64)
		if convErr == nil && reportedMinor != amountMinor {
			status = VerifyStatusFailed
		}
	}

	return &VerifyResult{Status: status, GatewayPayload: string(data)}, nil
}

func interpretResponseCode(code string) VerifyStatus {
	switch code {
	case "00":
		return VerifyStatusSuccessful
	case "09", "Z1":
		return VerifyStatusPending
	default:
		return VerifyStatusFailed
	}
}

// InlineConfigInfo is the public-safe subset of gateway configuration the
// browser-side checkout widget needs (SPEC_FULL.md SUPPLEMENTED FEATURES:
// GET /payment/inline-config).
type InlineConfigInfo struct {
	MerchantCode string `json:"merchant_code"`
	PayItemID    string `json:"pay_item_id"`
	Mode         string `json:"mode"`
	ReturnURL    string `json:"return_url"`
}

func (c *Client) InlineConfig() InlineConfigInfo {
	return InlineConfigInfo{
		MerchantCode: c.cfg.MerchantCode,
		PayItemID:    c.cfg.PayItemID,
		Mode:         c.cfg.Mode,
		ReturnURL:    c.cfg.ReturnURL,
	}
}
