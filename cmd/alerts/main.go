package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/stockpit/go-inventory-api/internal/alerts"
	"github.com/stockpit/go-inventory-api/internal/catalog"
	"github.com/stockpit/go-inventory-api/internal/config"
	kafkax "github.com/stockpit/go-inventory-api/internal/kafka"
	"github.com/stockpit/go-inventory-api/internal/logx"
	"github.com/stockpit/go-inventory-api/internal/orders"
	"github.com/stockpit/go-inventory-api/internal/postgres"
	"github.com/stockpit/go-inventory-api/internal/redisx"
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logx.New(logx.Options{
		Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile,
		Service: cfg.ServiceName + "-alerts",
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockLow, 1024)
	prod.Start(ctx)

	svc := &alerts.Service{
		DB:          db,
		Products:    &catalog.Repo{DB: db},
		Redis:       rdb,
		Producer:    prod,
		ServiceName: cfg.ServiceName + "-alerts",
		Log:         logger,
	}

	group := getenv("ALERTS_GROUP", "stock-alerts")
	workers := mustAtoi(os.Getenv("ALERTS_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderCreated, workers, logger)

	go func() {
		logger.Info("alerts consumer started", "group", group, "topic", orders.TopicOrderCreated, "workers", workers)
		if err := cons.Start(ctx, svc.HandleOrderCreated); err != nil {
			logger.Error("consumer exit", "err", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down consumer")
	cancel()
	time.Sleep(500 * time.Millisecond)
	prod.Close()
	prod.WaitClosed()
}
