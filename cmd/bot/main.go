package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/lib/pq"

	"github.com/nofumex/onion-shop/internal/api"
	"github.com/nofumex/onion-shop/internal/auth"
	"github.com/nofumex/onion-shop/internal/bot"
	"github.com/nofumex/onion-shop/internal/config"
	"github.com/nofumex/onion-shop/internal/infrastructure/cryptopay"
	"github.com/nofumex/onion-shop/internal/infrastructure/kafka"
	"github.com/nofumex/onion-shop/internal/infrastructure/redis"
	"github.com/nofumex/onion-shop/internal/observability"
	boltrepo "github.com/nofumex/onion-shop/internal/repository/bolt"
	pgrepo "github.com/nofumex/onion-shop/internal/repository/postgres"
	service "github.com/nofumex/onion-shop/internal/services"
)

func main() {
	shutdownTracing, metricsHandler := observability.Setup("onion-shop")
	defer shutdownTracing(context.Background())

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()
	if err := pgrepo.Bootstrap(ctx, db); err != nil {
		log.Fatalf("Failed to bootstrap schema: %v", err)
	}

	inventoryRepo, err := boltrepo.NewBoltInventoryRepository(cfg.BoltPath)
	if err != nil {
		log.Fatalf("Failed to open inventory database: %v", err)
	}
	defer inventoryRepo.Close()

	userRepo := pgrepo.NewPostgresUserRepository(db)
	saleRepo := pgrepo.NewPostgresSaleRepository(db)
	invoiceRepo := pgrepo.NewPostgresInvoiceRepository(db)

	redisClient := redis.NewClient(cfg.RedisAddr)
	defer redisClient.Close()

	kafkaProducer := kafka.NewProducer([]string{cfg.KafkaBroker})
	defer kafkaProducer.Close()

	provider := cryptopay.NewClient(cfg.CryptoPayBaseURL, cfg.CryptoPayToken, cfg.ProviderTimeout)

	svc := service.NewShopService(
		userRepo, saleRepo, invoiceRepo, inventoryRepo,
		redisClient, kafkaProducer, provider, cfg.AdminIDs,
	)

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("Failed to connect to Telegram: %v", err)
	}
	shopBot := bot.New(botAPI, svc, cfg.ChannelID, cfg.ChannelUsername)
	shopBot.SetAuthorizer(auth.NewAuthorizer(cfg.AdminIDs, shopBot))

	reconciler := service.NewReconciler(
		invoiceRepo, provider, shopBot, redisClient,
		cfg.PollInterval, cfg.ProviderTimeout,
	)
	go reconciler.Run(ctx)

	opsServer := &http.Server{
		Addr:    cfg.OpsAddr,
		Handler: api.SetupRouter(svc, metricsHandler),
	}
	go func() {
		log.Printf("Starting ops server on %s", cfg.OpsAddr)
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Ops server failed: %v", err)
		}
	}()

	go shopBot.Run(ctx)

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Ops server shutdown failed: %v", err)
	}
	log.Println("Shop stopped")
}
