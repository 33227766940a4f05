// Package guard implements C6 ConsumptionGuard: the debit-then-act
// wrapper around any paid operation. Grounded on the teacher's
// PayService.Pay, which follows the same debit-then-act shape around a
// product purchase rather than a service invocation.
package guard

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"tokencore/internal/ledger"
	"tokencore/internal/model"
	"tokencore/internal/pricing"
	"tokencore/internal/repository"
)

type Guard struct {
	db          *gorm.DB
	ledger      *ledger.Ledger
	pricing     *pricing.Policy
	outbox      *repository.OutboxRepository
	outboxTopic string
}

func New(db *gorm.DB, ledger *ledger.Ledger, pricing *pricing.Policy, outbox *repository.OutboxRepository, outboxTopic string) *Guard {
	return &Guard{db: db, ledger: ledger, pricing: pricing, outbox: outbox, outboxTopic: outboxTopic}
}

// UsageInfo is returned alongside a successful do_work result (§4.6 step 5).
type UsageInfo struct {
	TokensConsumed   int64
	RemainingBalance int64
}

// DoWork is the caller-provided paid operation. Its result is opaque to
// the guard; only whether it errors matters.
type DoWork func(ctx context.Context) (interface{}, error)

// Consume implements consume(user_key, service_kind, work_item_id, do_work)
// (§4.6). do_work is invoked only after a successful debit; a failed
// do_work does not trigger an automatic refund — that is a deliberate
// operator action, never performed implicitly here. The debit and the
// post-work audit append are each their own short transaction so no
// database transaction is ever held open across the (potentially slow,
// external) do_work call — only the conditional UPDATE and the later
// INSERT need atomicity with their outbox events.
func (g *Guard) Consume(ctx context.Context, userKey, serviceKind, workItemID, description string, doWork DoWork) (interface{}, *UsageInfo, error) {
	cost, err := g.pricing.CostOf(serviceKind)
	if err != nil {
		return nil, nil, err
	}

	var debitResult *repository.DebitResult
	err = g.db.Transaction(func(gdb *gorm.DB) error {
		var txErr error
		debitResult, txErr = g.ledger.TryDebitTx(ctx, gdb, userKey, cost)
		if txErr != nil {
			return txErr
		}
		if !debitResult.OK {
			return nil
		}
		payload, marshalErr := json.Marshal(map[string]interface{}{
			"event":        "token.debited",
			"user_key":     userKey,
			"token_qty":    cost,
			"service_kind": serviceKind,
			"work_item_id": workItemID,
		})
		if marshalErr != nil {
			return marshalErr
		}
		return g.outbox.Create(ctx, gdb, &model.OutboxMessage{
			MessageKey: workItemID,
			Topic:      g.outboxTopic,
			EventType:  "token.debited",
			Payload:    string(payload),
			Status:     model.OutboxStatusPending,
		})
	})
	if err != nil {
		return nil, nil, err
	}
	if !debitResult.OK {
		return nil, nil, &model.InsufficientTokensError{Required: cost, Current: debitResult.CurrentBalance}
	}

	result, workErr := doWork(ctx)
	if workErr != nil {
		return nil, nil, workErr
	}

	entry := &model.ConsumptionEntry{
		UserKey:     userKey,
		TokenQty:    cost,
		ServiceKind: serviceKind,
		WorkItemID:  workItemID,
		Description: description,
	}
	err = g.db.Transaction(func(gdb *gorm.DB) error {
		if txErr := g.ledger.AppendConsumptionTx(ctx, gdb, entry); txErr != nil {
			return txErr
		}
		payload, marshalErr := json.Marshal(map[string]interface{}{
			"event":        "token.consumed",
			"user_key":     userKey,
			"token_qty":    cost,
			"service_kind": serviceKind,
			"work_item_id": workItemID,
		})
		if marshalErr != nil {
			return marshalErr
		}
		return g.outbox.Create(ctx, gdb, &model.OutboxMessage{
			MessageKey: workItemID,
			Topic:      g.outboxTopic,
			EventType:  "token.consumed",
			Payload:    string(payload),
			Status:     model.OutboxStatusPending,
		})
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: consumption recorded debit but failed to append audit row: %v", model.ErrStorage, err)
	}

	return result, &UsageInfo{TokensConsumed: cost, RemainingBalance: debitResult.NewBalance}, nil
}
