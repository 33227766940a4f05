package job

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"tokencore/internal/config"
	"tokencore/internal/infrastructure/mq"
	"tokencore/internal/model"
	"tokencore/internal/repository"
)

// OutboxSender publishes rows written by the transactional outbox inserts
// of the orchestrator, the guard and the reconciliation job
// (token.purchase_initiated / token.credited / token.purchase_failed /
// token.debited / token.consumed) to Kafka, retrying with a cap before
// marking a message permanently FAILED.
type OutboxSender struct {
	db         *gorm.DB
	outboxRepo *repository.OutboxRepository
	cfg        *config.Config
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
}

func NewOutboxSender(db *gorm.DB, cfg *config.Config) *OutboxSender {
	return &OutboxSender{
		db:         db,
		outboxRepo: repository.NewOutboxRepository(db),
		cfg:        cfg,
		stopCh:     make(chan struct{}),
		interval:   100 * time.Millisecond,
		batchSize:  100,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	log.Println("[OutboxSender] started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OutboxSender] context cancelled, exiting")
			return
		case <-s.stopCh:
			log.Println("[OutboxSender] stopped")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

func (s *OutboxSender) processPendingMessages(ctx context.Context) {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		log.Printf("[OutboxSender] failed to list pending messages: %v", err)
		return
	}

	if len(messages) == 0 {
		return
	}

	for _, msg := range messages {
		s.sendMessage(ctx, msg)
	}
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	err := mq.SendMessage(msg.Topic, msg.MessageKey, msg.Payload)

	if err == nil {
		if updateErr := s.outboxRepo.UpdateStatus(ctx, msg.ID, model.OutboxStatusSent); updateErr != nil {
			log.Printf("[OutboxSender] failed to update status: id=%d, err=%v", msg.ID, updateErr)
		} else {
			log.Printf("[OutboxSender] sent: id=%d, topic=%s, key=%s", msg.ID, msg.Topic, msg.MessageKey)
		}
		return
	}

	log.Printf("[OutboxSender] send failed: id=%d, err=%v", msg.ID, err)

	if err := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); err != nil {
		log.Printf("[OutboxSender] failed to increment retry count: id=%d, err=%v", msg.ID, err)
	}

	if msg.RetryCount+1 >= s.cfg.Business.MaxRetryCount {
		if err := s.outboxRepo.MarkAsFailed(ctx, msg.ID); err != nil {
			log.Printf("[OutboxSender] failed to mark as failed: id=%d, err=%v", msg.ID, err)
		} else if model.CriticalOutboxEventTypes[msg.EventType] {
			log.Printf("[OutboxSender] CRITICAL: balance-mutating event exhausted retries and was never published: id=%d, event_type=%s, key=%s", msg.ID, msg.EventType, msg.MessageKey)
		} else {
			log.Printf("[OutboxSender] exceeded max retries, marked failed: id=%d, event_type=%s", msg.ID, msg.EventType)
		}
	}
}
