package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/stockpit/go-inventory-api/internal/config"
	"github.com/stockpit/go-inventory-api/internal/postgres"
)

func main() {
	_ = godotenv.Load()
	seed := flag.Bool("seed", false, "insert the default admin user and demo products")
	flag.Parse()

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("schema up to date")

	if *seed {
		if err := postgres.Seed(ctx, db); err != nil {
			log.Fatalf("seed: %v", err)
		}
		log.Println("seed data inserted")
	}
}
