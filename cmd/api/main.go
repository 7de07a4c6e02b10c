package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/orbitcart/orbitcart-backend/internal/cache"
	"github.com/orbitcart/orbitcart-backend/internal/database"
	"github.com/orbitcart/orbitcart-backend/internal/handlers"
	"github.com/orbitcart/orbitcart-backend/internal/inventory"
	"github.com/orbitcart/orbitcart-backend/internal/order"
	"github.com/orbitcart/orbitcart-backend/internal/routes"
	"github.com/orbitcart/orbitcart-backend/internal/shipment"
	"github.com/orbitcart/orbitcart-backend/internal/store"
)

// How long an unpaid order may sit in pending_payment before the
// background worker cancels it and releases its stock.
const paymentDeadline = 48 * time.Hour

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	db, err := database.OpenDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	st := store.NewMySQLStore(db)

	orderLifecycle := order.NewLifecycle(st)
	coordinator := order.NewCoordinator(st, orderLifecycle)

	app := &handlers.Handlers{
		DB:          db,
		Store:       st,
		Ledger:      inventory.NewLedger(st),
		Coordinator: coordinator,
		Orders:      orderLifecycle,
		Shipments:   shipment.NewService(st, orderLifecycle),
	}

	// Redis is optional; without it the Idempotency-Key header is
	// simply ignored.
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis at %s: %v", addr, err)
		}
		app.Idempotency = cache.NewIdempotencyGuard(client)
		log.Println("Checkout idempotency guard enabled")
	}

	// Background worker: cancel overdue unpaid orders and release
	// their reserved stock.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		log.Println("Background worker started: monitoring for overdue orders")
		for range ticker.C {
			n, err := coordinator.CancelOverdue(context.Background(), paymentDeadline)
			if err != nil {
				log.Printf("Overdue order sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("Cancelled %d overdue orders", n)
			}
		}
	}()

	router := routes.SetupRouter(app)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting OrbitCart API server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
