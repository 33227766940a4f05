package job

import (
	"context"
	"log"
	"time"

	"tokencore/internal/config"
	"tokencore/internal/model"
	"tokencore/internal/repository"
)

// TransactionSweepJob periodically cancels PENDING transactions past the
// configured TTL (§4.5 "Timeouts and TTL"), in-binary the way the
// teacher's OrderTimeoutJob sweeps CREATED orders. Sweeping never
// touches SUCCESSFUL rows: the conditional UpdateStatus call only
// matches rows still in PENDING.
type TransactionSweepJob struct {
	transactionRepo *repository.TransactionRepository
	ttl             time.Duration
	stopCh          chan struct{}
	interval        time.Duration
	batchSize       int
}

func NewTransactionSweepJob(transactionRepo *repository.TransactionRepository, cfg *config.Config) *TransactionSweepJob {
	return &TransactionSweepJob{
		transactionRepo: transactionRepo,
		ttl:             time.Duration(cfg.Business.TransactionTTLMinutes) * time.Minute,
		stopCh:          make(chan struct{}),
		interval:        10 * time.Second,
		batchSize:       100,
	}
}

func (j *TransactionSweepJob) Start(ctx context.Context) {
	log.Println("[TransactionSweepJob] started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[TransactionSweepJob] context cancelled, exiting")
			return
		case <-j.stopCh:
			log.Println("[TransactionSweepJob] stopped")
			return
		case <-ticker.C:
			j.sweepExpired(ctx)
		}
	}
}

func (j *TransactionSweepJob) Stop() {
	close(j.stopCh)
}

func (j *TransactionSweepJob) sweepExpired(ctx context.Context) {
	cutoff := time.Now().Add(-j.ttl).Unix()
	txs, err := j.transactionRepo.ListPendingOlderThan(ctx, cutoff, j.batchSize)
	if err != nil {
		log.Printf("[TransactionSweepJob] failed to list expired pending transactions: %v", err)
		return
	}
	if len(txs) == 0 {
		return
	}

	log.Printf("[TransactionSweepJob] found %d expired pending transactions", len(txs))

	cancelled := 0
	for _, tx := range txs {
		changed, err := j.transactionRepo.UpdateStatus(ctx, nil, tx.Reference, model.TransactionStatusPending, model.TransactionStatusCancelled, "")
		if err != nil {
			log.Printf("[TransactionSweepJob] failed to cancel reference=%s: %v", tx.Reference, err)
			continue
		}
		if changed {
			cancelled++
		}
	}

	log.Printf("[TransactionSweepJob] cancelled %d expired pending transactions", cancelled)
}
