// estatehub-pipeline-service
//
// Listing ingestion and notification pipeline:
//   - cron-driven scrape runs capture OLX / Otodom listing pages raw
//   - parse runs turn captures into deduplicated offers (region/city resolved)
//   - the matching cycle builds one digest per active saved search and
//     hands it to the configured delivery strategy
//
// Publishes EVENT_NOTIFICATION_CREATED to Redis for gateway forward.
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

	"github.com/joho/godotenv"

	"estatehub/pipeline-service/internal/admin"
	"estatehub/pipeline-service/internal/config"
	"estatehub/pipeline-service/internal/db"
	"estatehub/pipeline-service/internal/ingest"
	"estatehub/pipeline-service/internal/notify"
	"estatehub/pipeline-service/internal/pipeline"
	"estatehub/pipeline-service/internal/scheduler"
	"estatehub/pipeline-service/internal/staging"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	if err := godotenv.Load(); err != nil {
		log.Println("[pipeline-service] No .env file found, reading environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[pipeline-service] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[pipeline-service] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[pipeline-service] PostgreSQL: %v", err)
	}
	defer pool.Close()
	log.Println("[pipeline-service] PostgreSQL connected ✓")

	// ── MongoDB ──────────────────────────────────────────────────────────────
	log.Println("[pipeline-service] Connecting to MongoDB…")
	mongoDB, err := db.NewMongoDatabase(ctx, cfg.MongoURL, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("[pipeline-service] MongoDB: %v", err)
	}
	defer mongoDB.Client().Disconnect(context.Background())
	log.Println("[pipeline-service] MongoDB connected ✓")

	// ── Redis ────────────────────────────────────────────────────────────────
	log.Println("[pipeline-service] Connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[pipeline-service] Redis: %v", err)
	}
	defer rdb.Close()
	log.Println("[pipeline-service] Redis connected ✓")

	// ── Stores and services ──────────────────────────────────────────────────
	captures, err := staging.NewStore(ctx, mongoDB)
	if err != nil {
		log.Fatalf("[pipeline-service] Staging store: %v", err)
	}

	offerStore, err := ingest.NewPgStore(ctx, pool)
	if err != nil {
		log.Fatalf("[pipeline-service] Offer store: %v", err)
	}
	ingestor := ingest.NewService(offerStore)

	notifyStore, err := notify.NewPgStore(ctx, pool)
	if err != nil {
		log.Fatalf("[pipeline-service] Notification store: %v", err)
	}

	runner := pipeline.NewRunner(captures, ingestor)
	strategy := notify.NewRedisStrategy(rdb, cfg.NotifyChannel)
	engine := notify.NewEngine(notifyStore, strategy, captures)

	// ── Scheduler ────────────────────────────────────────────────────────────
	sched := scheduler.New(runner, engine, cfg.ScrapeIntervalHours, cfg.MatchingCronSpec)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[pipeline-service] Scheduler: %v", err)
	}
	defer sched.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	h := admin.NewHandler(runner, engine, version)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      h.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // manual runs are synchronous
	}

	go func() {
		log.Printf("[pipeline-service] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[pipeline-service] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[pipeline-service] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[pipeline-service] Shutdown error: %v", err)
	}
	log.Println("[pipeline-service] Stopped.")
}
