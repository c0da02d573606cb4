package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/stockpit/go-inventory-api/internal/auth"
	"github.com/stockpit/go-inventory-api/internal/catalog"
	"github.com/stockpit/go-inventory-api/internal/config"
	"github.com/stockpit/go-inventory-api/internal/httpx"
	kafkax "github.com/stockpit/go-inventory-api/internal/kafka"
	"github.com/stockpit/go-inventory-api/internal/logx"
	"github.com/stockpit/go-inventory-api/internal/orders"
	"github.com/stockpit/go-inventory-api/internal/postgres"
	"github.com/stockpit/go-inventory-api/internal/redisx"
	"github.com/stockpit/go-inventory-api/internal/reports"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logx.New(logx.Options{
		Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile, Service: cfg.ServiceName,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	prod.Start(ctx)

	// Services & handlers
	authSvc := &auth.Service{
		Users:  &auth.Repo{DB: db},
		Secret: []byte(cfg.JWTSecret),
		Expiry: cfg.JWTExpiry,
	}
	productRepo := &catalog.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db}
	fulfiller := &orders.Fulfiller{Store: &orders.PgStore{DB: db}}

	router := httpx.NewRouter()
	(&httpx.AuthHandler{Service: authSvc}).Register(router)
	(&httpx.ProductsHandler{Repo: productRepo, Auth: authSvc}).Register(router)
	(&httpx.OrdersHandler{
		Repo:      orderRepo,
		Fulfiller: fulfiller,
		Auth:      authSvc,
		Producer:  prod,
		Redis:     rdb,
		Service:   cfg.ServiceName,
	}).Register(router)
	(&httpx.ReportsHandler{Repo: &reports.Repo{DB: db}, Auth: authSvc, Redis: rdb}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // close inbox -> flush & close writer
	cancel()
	prod.WaitClosed() // drain
}
