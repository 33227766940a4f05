package job

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"gorm.io/gorm"

	"tokencore/internal/ledger"
	"tokencore/internal/model"
	"tokencore/internal/repository"
)

// criticalEventAlertThreshold is the count of permanently-failed
// balance-mutating outbox rows at or above which ReconciliationJob logs a
// CRITICAL line and the failed rows' details; below it the check logs
// nothing.
const criticalEventAlertThreshold = 1

// ReconciliationJob drains SUCCESSFUL transactions whose credit_applied
// flag is still false. Orchestrator.Verify flips the status, credits and
// sets the flag in one transaction, so a crash between those steps rolls
// all of them back; this job is a backstop for SUCCESSFUL rows that got
// there without going through that transaction — grounded on the
// teacher's PayingOrderCompensateJob,
// which plays the same recovery role for its own stuck-PAYING state
// (§7 recovery, SPEC_FULL.md supplemented feature: credit_applied
// reconciliation).
type ReconciliationJob struct {
	db              *gorm.DB
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
	outboxTopic     string
	ledger          *ledger.Ledger
	stopCh          chan struct{}
	interval        time.Duration
	batchSize       int
}

func NewReconciliationJob(db *gorm.DB, transactionRepo *repository.TransactionRepository, outboxRepo *repository.OutboxRepository, outboxTopic string, ledger *ledger.Ledger) *ReconciliationJob {
	return &ReconciliationJob{
		db:              db,
		transactionRepo: transactionRepo,
		outboxRepo:      outboxRepo,
		outboxTopic:     outboxTopic,
		ledger:          ledger,
		stopCh:          make(chan struct{}),
		interval:        30 * time.Second,
		batchSize:       50,
	}
}

func (j *ReconciliationJob) Start(ctx context.Context) {
	log.Println("[ReconciliationJob] started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[ReconciliationJob] context cancelled, exiting")
			return
		case <-j.stopCh:
			log.Println("[ReconciliationJob] stopped")
			return
		case <-ticker.C:
			j.reconcile(ctx)
			j.checkCriticalOutboxBacklog(ctx)
		}
	}
}

func (j *ReconciliationJob) Stop() {
	close(j.stopCh)
}

// checkCriticalOutboxBacklog surfaces permanently-failed balance-mutating
// outbox rows (token.credited/token.debited/token.consumed) that
// OutboxSender already logged once at CRITICAL, so a stuck backlog keeps
// showing up on this job's own cadence rather than scrolling out of the
// log after a single line. Once the count crosses the threshold it pulls
// the actual rows via GetFailedMessages and names their message keys
// (payment references / work_item_ids), since an operator paged by the
// count alone still has to go find which references are stuck.
func (j *ReconciliationJob) checkCriticalOutboxBacklog(ctx context.Context) {
	count, err := j.outboxRepo.CountFailedCriticalEvents(ctx)
	if err != nil {
		log.Printf("[ReconciliationJob] failed to count failed critical outbox events: %v", err)
		return
	}
	if count < criticalEventAlertThreshold {
		return
	}
	log.Printf("[ReconciliationJob] CRITICAL: %d balance-mutating outbox event(s) permanently failed to publish", count)

	failed, err := j.outboxRepo.GetFailedMessages(ctx, j.batchSize)
	if err != nil {
		log.Printf("[ReconciliationJob] failed to list failed outbox messages for detail: %v", err)
		return
	}
	for _, msg := range failed {
		if model.CriticalOutboxEventTypes[msg.EventType] {
			log.Printf("[ReconciliationJob] CRITICAL detail: id=%d event_type=%s key=%s", msg.ID, msg.EventType, msg.MessageKey)
		}
	}
}

// reconcile credits each successful-but-uncredited transaction. The
// credit, the credit_applied flag flip, and the token.credited outbox
// insert are wrapped in one db.Transaction, the same shape
// Orchestrator.Verify uses: crediting twice for one reference would break
// §8's "the sum of credits applied under that reference is either 0 or
// exactly token_qty" invariant just as badly from this path as from a
// concurrent verify, so it gets the same atomicity, not a weaker one.
func (j *ReconciliationJob) reconcile(ctx context.Context) {
	txs, err := j.transactionRepo.ListSuccessfulUnapplied(ctx, j.batchSize)
	if err != nil {
		log.Printf("[ReconciliationJob] failed to list unapplied credits: %v", err)
		return
	}
	if len(txs) == 0 {
		return
	}

	log.Printf("[ReconciliationJob] found %d successful transactions awaiting credit", len(txs))

	for _, tx := range txs {
		err := j.db.Transaction(func(gdb *gorm.DB) error {
			if _, err := j.ledger.CreditTx(ctx, gdb, tx.UserKey, tx.TokenQty); err != nil {
				return err
			}
			if _, err := j.transactionRepo.MarkCreditApplied(ctx, gdb, tx.Reference); err != nil {
				return err
			}
			payload, err := json.Marshal(map[string]interface{}{
				"event":     "token.credited",
				"reference": tx.Reference,
				"user_key":  tx.UserKey,
				"token_qty": tx.TokenQty,
			})
			if err != nil {
				return err
			}
			return j.outboxRepo.Create(ctx, gdb, &model.OutboxMessage{
				MessageKey: tx.Reference,
				Topic:      j.outboxTopic,
				EventType:  "token.credited",
				Payload:    string(payload),
				Status:     model.OutboxStatusPending,
			})
		})
		if err != nil {
			log.Printf("[ReconciliationJob] failed to reconcile credit for reference=%s: %v", tx.Reference, err)
			continue
		}
		log.Printf("[ReconciliationJob] reconciled credit for reference=%s", tx.Reference)
	}
}
