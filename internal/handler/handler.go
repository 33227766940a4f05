package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tokencore/internal/analysis"
	"tokencore/internal/gateway"
	"tokencore/internal/guard"
	"tokencore/internal/infrastructure/idempotency"
	"tokencore/internal/ledger"
	"tokencore/internal/model"
	"tokencore/internal/orchestrator"
	"tokencore/internal/pricing"
	"tokencore/pkg/response"
)

// Handler is the C7 API surface: thin calls into C4/C5/C6 with request
// validation and error mapping, grounded on the teacher's handler.go
// layering (HTTP concerns never leak below this package).
type Handler struct {
	ledger       *ledger.Ledger
	orchestrator *orchestrator.Orchestrator
	pricing      *pricing.Policy
	guard        *guard.Guard
	engine       analysis.Engine
	gateway      *gateway.Client
	idempotency  *idempotency.Cache
}

func NewHandler(ledger *ledger.Ledger, orchestrator *orchestrator.Orchestrator, pricing *pricing.Policy, guard *guard.Guard, engine analysis.Engine, gatewayClient *gateway.Client, idempotencyCache *idempotency.Cache) *Handler {
	return &Handler{
		ledger:       ledger,
		orchestrator: orchestrator,
		pricing:      pricing,
		guard:        guard,
		engine:       engine,
		gateway:      gatewayClient,
		idempotency:  idempotencyCache,
	}
}

// GetPricing implements GET /payment/pricing.
func (h *Handler) GetPricing(c *gin.Context) {
	examples := []gin.H{}
	for _, qty := range []int64{100, 1000, 10000} {
		amount, err := h.pricing.AmountFor(qty)
		if err != nil {
			continue
		}
		examples = append(examples, gin.H{"token_qty": qty, "amount": amount})
	}

	response.Success(c, gin.H{
		"currency":              h.pricing.Currency(),
		"tokens_per_unit_money": h.pricing.TokensPerUnitMoney(),
		"min_purchase_money":    h.pricing.MinPurchaseMoney(),
		"max_purchase_money":    h.pricing.MaxPurchaseMoney(),
		"free_grant_tokens":     h.pricing.FreeGrantTokens(),
		"service_costs":         h.pricing.ServiceCosts(),
		"examples":              examples,
	})
}

// InlineConfig implements GET /payment/inline-config (SPEC_FULL.md
// supplemented feature): the checkout widget's public configuration.
func (h *Handler) InlineConfig(c *gin.Context) {
	response.Success(c, h.gateway.InlineConfig())
}

type purchaseRequest struct {
	UserKey  string `json:"user_key" binding:"required"`
	TokenQty int64  `json:"token_qty" binding:"required,gt=0"`
	Currency string `json:"currency" binding:"required"`
}

// Purchase implements POST /payment/purchase. An optional
// Idempotency-Key header lets a retried request within the dedup window
// get back the original reference instead of opening a second
// transaction.
func (h *Handler) Purchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	idempotencyKey := c.GetHeader("Idempotency-Key")
	if idempotencyKey != "" {
		if existingReference, hit, err := h.idempotency.Lookup(c.Request.Context(), idempotencyKey); err == nil && hit {
			if tx, err := h.orchestrator.GetTransaction(c.Request.Context(), existingReference); err == nil {
				response.Success(c, gin.H{
					"reference": tx.Reference,
					"amount":    tx.Amount,
					"status":    tx.Status,
					"replayed":  true,
				})
				return
			}
		}
	}

	result, err := h.orchestrator.Purchase(c.Request.Context(), req.UserKey, req.TokenQty, req.Currency)
	if err != nil {
		response.FromError(c, err)
		return
	}

	if idempotencyKey != "" {
		h.idempotency.Store(c.Request.Context(), idempotencyKey, result.Reference)
	}

	response.Success(c, gin.H{
		"reference":   result.Reference,
		"token_qty":   result.TokenQty,
		"amount":      result.Amount,
		"payment_url": result.PaymentURL,
		"expires_at":  result.ExpiresAt,
		"status":      "pending",
	})
}

// Verify implements POST /payment/verify/{reference}.
func (h *Handler) Verify(c *gin.Context) {
	reference := c.Param("reference")
	if reference == "" {
		response.ParamError(c, "reference is required")
		return
	}

	result, err := h.orchestrator.Verify(c.Request.Context(), reference)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{
		"reference":       reference,
		"status":          result.Status,
		"tokens_credited": result.TokensCredited,
		"current_balance": result.CurrentBalance,
		"message":         verifyStatusMessage(result.Status),
	})
}

// verifyStatusMessage renders the short human-readable description §6
// requires alongside a verify result's status.
func verifyStatusMessage(status string) string {
	switch status {
	case model.TransactionStatusSuccessful:
		return "payment confirmed and tokens credited"
	case model.TransactionStatusPending:
		return "payment still pending at the gateway"
	case model.TransactionStatusFailed:
		return "payment failed"
	case model.TransactionStatusCancelled:
		return "payment expired and was cancelled"
	default:
		return "unknown transaction status"
	}
}

// GetBalance implements GET /payment/balance/{user_key}.
func (h *Handler) GetBalance(c *gin.Context) {
	userKey := c.Param("user_key")
	if userKey == "" {
		response.ParamError(c, "user_key is required")
		return
	}

	balance, err := h.ledger.BalanceOf(c.Request.Context(), userKey)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{
		"user_key":        balance.UserKey,
		"balance":         balance.Balance,
		"total_purchased": balance.TotalPurchased,
		"total_consumed":  balance.TotalConsumed,
	})
}

// GetBalanceHistory implements GET /payment/balance/{user_key}/history.
func (h *Handler) GetBalanceHistory(c *gin.Context) {
	userKey := c.Param("user_key")
	if userKey == "" {
		response.ParamError(c, "user_key is required")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.ledger.ConsumptionHistory(c.Request.Context(), userKey, limit, offset)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{
		"user_key":      userKey,
		"history":       entries,
		"total_records": len(entries),
	})
}

// GetTransaction implements GET /payment/transaction/{reference}.
func (h *Handler) GetTransaction(c *gin.Context) {
	reference := c.Param("reference")
	if reference == "" {
		response.ParamError(c, "reference is required")
		return
	}

	tx, err := h.orchestrator.GetTransaction(c.Request.Context(), reference)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, tx)
}

// analysisServiceKind is the only service_kind POST /analyze/{work_item_id}
// is allowed to price as: the endpoint performs dataset profiling and
// nothing else, so the caller never chooses what gets billed (§6).
const analysisServiceKind = "analysis"

type analyzeRequest struct {
	WorkItemID  string           `json:"work_item_id"`
	Dataset     analysis.Dataset `json:"dataset" binding:"required"`
	ProblemType string           `json:"problem_type"`
}

// Analyze implements POST /analyze/{work_item_id}: the paid dataset
// profiling operation, wrapped by ConsumptionGuard so tokens are debited
// before the profiler runs (§4.6 — do_work is not invoked on insufficient
// balance). The caller identity comes from the user-key header (§6), not
// the JSON body, and service_kind is fixed to analysisServiceKind rather
// than caller-supplied.
func (h *Handler) Analyze(c *gin.Context) {
	userKey := c.GetHeader("user-key")
	if userKey == "" {
		response.ParamError(c, "user-key header is required")
		return
	}

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}
	workItemID := c.Param("work_item_id")
	if workItemID == "" {
		workItemID = req.WorkItemID
	}
	if workItemID == "" {
		// No caller-supplied correlation id: mint one so the consumption
		// entry this call produces can still be traced back to a single
		// analysis run.
		workItemID = uuid.NewString()
	}

	doWork := func(ctx context.Context) (interface{}, error) {
		return h.engine.Profile(ctx, req.Dataset, req.ProblemType)
	}

	result, usage, err := h.guard.Consume(c.Request.Context(), userKey, analysisServiceKind, workItemID, "dataset analysis", doWork)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{
		"profile":           result,
		"tokens_consumed":   usage.TokensConsumed,
		"remaining_balance": usage.RemainingBalance,
	})
}
