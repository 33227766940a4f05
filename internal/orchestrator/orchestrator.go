// Package orchestrator implements C5 PaymentOrchestrator: reference
// generation, the purchase flow, and the verify flow with its
// exactly-once credit invariant. Grounded on the teacher's PayService,
// generalized from a product-order checkout to a pure token top-up.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tokencore/internal/gateway"
	"tokencore/internal/ledger"
	"tokencore/internal/model"
	"tokencore/internal/pricing"
	"tokencore/internal/repository"
	"tokencore/pkg/idgen"
)

const referencePrefix = "TKC"

const maxReferenceRetries = 3

type Orchestrator struct {
	db           *gorm.DB
	transactions *repository.TransactionRepository
	outbox       *repository.OutboxRepository
	outboxTopic  string
	ledger       *ledger.Ledger
	pricing      *pricing.Policy
	gateway      *gateway.Client
	ttl          time.Duration
}

// New wires C5. outboxTopic is the single Kafka topic every token
// lifecycle event is published on, discriminated by event type in the
// payload — the same single-topic-per-domain layout the teacher uses for
// pay results, read from config rather than hardcoded.
func New(db *gorm.DB, transactions *repository.TransactionRepository, outbox *repository.OutboxRepository, outboxTopic string, ledger *ledger.Ledger, pricing *pricing.Policy, gateway *gateway.Client, ttl time.Duration) *Orchestrator {
	return &Orchestrator{
		db:           db,
		transactions: transactions,
		outbox:       outbox,
		outboxTopic:  outboxTopic,
		ledger:       ledger,
		pricing:      pricing,
		gateway:      gateway,
		ttl:          ttl,
	}
}

// publishEvent stages a token lifecycle event in the outbox, keyed by
// reference so the OutboxSender publishes it to outboxTopic exactly once
// it commits alongside the business write (SPEC_FULL.md AMBIENT STACK,
// grounded on the teacher's PayService transactional-outbox insert).
func publishEvent(ctx context.Context, outbox *repository.OutboxRepository, tx *gorm.DB, topic, reference, eventType string, payload map[string]interface{}) error {
	payload["event"] = eventType
	payload["reference"] = reference
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := &model.OutboxMessage{
		MessageKey: reference,
		Topic:      topic,
		EventType:  eventType,
		Payload:    string(body),
		Status:     model.OutboxStatusPending,
	}
	return outbox.Create(ctx, tx, msg)
}

// PurchaseResult is the response to a purchase request (§6:
// {reference, token_qty, amount, payment_url, status:"pending", expires_at}).
type PurchaseResult struct {
	Reference  string
	TokenQty   int64
	Amount     decimal.Decimal
	PaymentURL string
	ExpiresAt  time.Time
}

// Purchase implements the purchase flow (§4.5). It never blocks on the
// gateway: the payment URL is computed purely, no network I/O happens
// until Verify is called.
func (o *Orchestrator) Purchase(ctx context.Context, userKey string, tokenQty int64, currency string) (*PurchaseResult, error) {
	if currency != o.pricing.Currency() {
		return nil, fmt.Errorf("%w: currency %q does not match configured currency %q", model.ErrValidation, currency, o.pricing.Currency())
	}

	amount, err := o.pricing.ValidatePurchaseTokenQty(tokenQty)
	if err != nil {
		return nil, err
	}

	if _, err := o.ledger.BalanceOf(ctx, userKey); err != nil {
		return nil, err
	}

	var payment *model.PaymentTransaction
	for attempt := 0; attempt < maxReferenceRetries; attempt++ {
		reference := idgen.GenerateReference(referencePrefix)
		candidate := &model.PaymentTransaction{
			Reference: reference,
			UserKey:   userKey,
			Amount:    amount,
			Currency:  currency,
			TokenQty:  tokenQty,
			Status:    model.TransactionStatusPending,
		}
		err = o.db.Transaction(func(gdb *gorm.DB) error {
			if err := o.transactions.Insert(ctx, gdb, candidate); err != nil {
				return err
			}
			return publishEvent(ctx, o.outbox, gdb, o.outboxTopic, candidate.Reference, "token.purchase_initiated", map[string]interface{}{
				"user_key":  userKey,
				"token_qty": tokenQty,
				"amount":    amount.String(),
				"currency":  currency,
			})
		})
		if err == nil {
			payment = candidate
			break
		}
		if !isDuplicateReference(err) {
			return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
		}
		// Collision: regenerate and retry, per §4.5 "callers may retry".
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: could not generate a unique reference after %d attempts", model.ErrStorage, maxReferenceRetries)
	}

	paymentURL := o.gateway.PaymentURL(payment.Reference, amount, currency, userKey)

	return &PurchaseResult{
		Reference:  payment.Reference,
		TokenQty:   payment.TokenQty,
		Amount:     amount,
		PaymentURL: paymentURL,
		ExpiresAt:  payment.CreatedAt.Add(o.ttl),
	}, nil
}

func isDuplicateReference(err error) bool {
	return err == model.ErrDuplicateReference
}

// VerifyResult is the response to a verify request (§4.5 step 4).
type VerifyResult struct {
	Status         string
	TokensCredited int64
	CurrentBalance int64
}

// Verify implements the verify flow (§4.5). The exactly-once credit
// invariant rests entirely on TransactionRepository.UpdateStatus's
// conditional WHERE clause: only the caller whose UPDATE actually flips
// pending->successful proceeds to credit. A caller that finds the row
// already successful, on entry or after its UPDATE matched nothing, takes
// the idempotent short-circuit; one whose UPDATE matched nothing because
// the row settled as failed or cancelled gets ErrConflictingState.
func (o *Orchestrator) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	payment, err := o.transactions.GetByReference(ctx, nil, reference)
	if err != nil {
		if err == repository.ErrTransactionNotFound {
			return nil, fmt.Errorf("%w: %s", model.ErrUnknownReference, reference)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}

	if payment.Status == model.TransactionStatusSuccessful {
		balance, err := o.ledger.BalanceOf(ctx, payment.UserKey)
		if err != nil {
			return nil, err
		}
		return &VerifyResult{
			Status:         model.TransactionStatusSuccessful,
			TokensCredited: payment.TokenQty,
			CurrentBalance: balance.Balance,
		}, nil
	}
	if payment.Status != model.TransactionStatusPending {
		// Already failed or cancelled: short-circuit without re-hitting the
		// gateway, per §8 scenario 5.
		balance, err := o.ledger.BalanceOf(ctx, payment.UserKey)
		if err != nil {
			return nil, err
		}
		return &VerifyResult{Status: payment.Status, CurrentBalance: balance.Balance}, nil
	}

	result, err := o.gateway.Verify(ctx, reference, payment.Amount)
	if err != nil {
		return nil, err
	}

	switch result.Status {
	case gateway.VerifyStatusSuccessful:
		var changed bool
		var conflict *model.PaymentTransaction
		err := o.db.Transaction(func(gdb *gorm.DB) error {
			var txErr error
			changed, txErr = o.transactions.UpdateStatus(ctx, gdb, reference, model.TransactionStatusPending, model.TransactionStatusSuccessful, result.GatewayPayload)
			if txErr != nil {
				return txErr
			}
			if !changed {
				// The conditional UPDATE matched zero rows: either a concurrent
				// verifier already flipped this reference to successful (truly
				// idempotent), or it raced a failed/cancelled transition (a
				// conflicting state §7 says should be impossible). Re-read the
				// row in the same transaction to tell the two apart.
				row, txErr := o.transactions.GetByReference(ctx, gdb, reference)
				if txErr != nil {
					return txErr
				}
				if row.Status != model.TransactionStatusSuccessful {
					conflict = row
				}
				return nil
			}
			if _, txErr = o.ledger.CreditTx(ctx, gdb, payment.UserKey, payment.TokenQty); txErr != nil {
				return txErr
			}
			if _, txErr = o.transactions.MarkCreditApplied(ctx, gdb, reference); txErr != nil {
				return txErr
			}
			return publishEvent(ctx, o.outbox, gdb, o.outboxTopic, reference, "token.credited", map[string]interface{}{
				"user_key":  payment.UserKey,
				"token_qty": payment.TokenQty,
			})
		})
		if err != nil {
			// Status flip (if it happened) rolled back along with the credit,
			// so a retried verify call will see the row still pending and try
			// again rather than land in the credited-but-unrecorded gap the
			// reconciliation job exists to repair.
			return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
		}
		if conflict != nil {
			log.Printf("[orchestrator] conflicting state: gateway reported successful for reference=%s but row is %s", reference, conflict.Status)
			return nil, fmt.Errorf("%w: reference %s settled as %s, not successful", model.ErrConflictingState, reference, conflict.Status)
		}
		balance, err := o.ledger.BalanceOf(ctx, payment.UserKey)
		if err != nil {
			return nil, err
		}
		return &VerifyResult{
			Status:         model.TransactionStatusSuccessful,
			TokensCredited: payment.TokenQty,
			CurrentBalance: balance.Balance,
		}, nil

	case gateway.VerifyStatusPending:
		balance, err := o.ledger.BalanceOf(ctx, payment.UserKey)
		if err != nil {
			return nil, err
		}
		return &VerifyResult{Status: model.TransactionStatusPending, CurrentBalance: balance.Balance}, nil

	default: // failed
		err := o.db.Transaction(func(gdb *gorm.DB) error {
			if _, txErr := o.transactions.UpdateStatus(ctx, gdb, reference, model.TransactionStatusPending, model.TransactionStatusFailed, result.GatewayPayload); txErr != nil {
				return txErr
			}
			return publishEvent(ctx, o.outbox, gdb, o.outboxTopic, reference, "token.purchase_failed", map[string]interface{}{
				"user_key": payment.UserKey,
			})
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
		}
		balance, err := o.ledger.BalanceOf(ctx, payment.UserKey)
		if err != nil {
			return nil, err
		}
		return &VerifyResult{Status: model.TransactionStatusFailed, CurrentBalance: balance.Balance}, nil
	}
}

// GetTransaction backs GET /payment/transaction/{reference}.
func (o *Orchestrator) GetTransaction(ctx context.Context, reference string) (*model.PaymentTransaction, error) {
	payment, err := o.transactions.GetByReference(ctx, nil, reference)
	if err != nil {
		if err == repository.ErrTransactionNotFound {
			return nil, fmt.Errorf("%w: %s", model.ErrUnknownReference, reference)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	return payment, nil
}
