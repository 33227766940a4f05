package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tokencore/internal/analysis"
	"tokencore/internal/config"
	"tokencore/internal/gateway"
	"tokencore/internal/guard"
	"tokencore/internal/handler"
	"tokencore/internal/infrastructure/cache"
	"tokencore/internal/infrastructure/database"
	"tokencore/internal/infrastructure/idempotency"
	"tokencore/internal/infrastructure/mq"
	"tokencore/internal/job"
	"tokencore/internal/ledger"
	"tokencore/internal/orchestrator"
	"tokencore/internal/pricing"
	"tokencore/internal/repository"
	"tokencore/pkg/idgen"
)

func main() {
	cfg := config.LoadConfig("config/config.yaml")

	idgen.Init(1)

	db := database.InitMySQL(&cfg.MySQL)
	redisClient := cache.InitRedis(&cfg.Redis)

	mq.InitKafka(&cfg.Kafka)
	defer mq.CloseKafka()

	idempotencyCache := idempotency.New(redisClient)

	balanceRepo := repository.NewBalanceRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	consumptionRepo := repository.NewConsumptionRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	pricingPolicy := pricing.New(cfg.Pricing)
	tokenLedger := ledger.New(balanceRepo, consumptionRepo, cfg.Pricing.FreeGrantTokens)
	gatewayClient := gateway.New(cfg.Gateway)

	ttl := time.Duration(cfg.Business.TransactionTTLMinutes) * time.Minute
	paymentOrchestrator := orchestrator.New(db, transactionRepo, outboxRepo, cfg.Kafka.Topic.TokenLifecycle, tokenLedger, pricingPolicy, gatewayClient, ttl)
	consumptionGuard := guard.New(db, tokenLedger, pricingPolicy, outboxRepo, cfg.Kafka.Topic.TokenLifecycle)

	analysisEngine := analysis.NewLocalEngine(
		analysis.LLMConfig{
			BaseURL: cfg.Analysis.LLMBaseURL,
			APIKey:  cfg.Analysis.LLMAPIKey,
			Model:   cfg.Analysis.LLMModel,
		},
		analysis.WebSearchConfig{
			BaseURL: cfg.Analysis.WebSearchBaseURL,
			APIKey:  cfg.Analysis.WebSearchAPIKey,
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outboxSender := job.NewOutboxSender(db, cfg)
	go outboxSender.Start(ctx)

	sweepJob := job.NewTransactionSweepJob(transactionRepo, cfg)
	go sweepJob.Start(ctx)

	reconciliationJob := job.NewReconciliationJob(db, transactionRepo, outboxRepo, cfg.Kafka.Topic.TokenLifecycle, tokenLedger)
	go reconciliationJob.Start(ctx)

	h := handler.NewHandler(tokenLedger, paymentOrchestrator, pricingPolicy, consumptionGuard, analysisEngine, gatewayClient, idempotencyCache)
	router := handler.SetupRouter(h)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("server starting, listening on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	log.Println("shutdown complete")
}
