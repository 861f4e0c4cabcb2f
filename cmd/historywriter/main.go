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

	"github.com/smehta/migraine-server/internal/database"
	"github.com/smehta/migraine-server/internal/logger"
	"github.com/smehta/migraine-server/internal/metrics"
	"github.com/smehta/migraine-server/internal/queue"
	"github.com/smehta/migraine-server/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer appLog.Sync()

	fmt.Println("Starting History Writer Service...")
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Expose Prometheus metrics
	m := metrics.New()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		if err := http.ListenAndServe(cfg.History.MetricsAddr, mux); err != nil {
			log.Printf("Metrics server stopped: %v\n", err)
		}
	}()
	fmt.Printf("Metrics available at %s/metrics\n", cfg.History.MetricsAddr)

	// Create Kafka consumer
	group := cfg.Kafka.ConsumerGroup
	if group == "" {
		group = "history-writer-group"
	}
	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEstimates, group)
	defer consumer.Close()
	fmt.Println("Kafka consumer created (registering with broker...)")

	// Create batch writer
	batchWriter := queue.NewBatchWriter(consumer, db, appLog, m, cfg.History.BatchSize, cfg.History.FlushInterval)
	ctx := context.Background()
	if err := batchWriter.Start(ctx); err != nil {
		log.Fatalf("Failed to start batch writer: %v", err)
	}
	fmt.Println("Batch writer started")

	// Print consumer stats periodically
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			stats := consumer.Stats()
			fmt.Printf("Consumer stats: Messages=%d, Bytes=%d, Errors=%d\n",
				stats.Messages, stats.Bytes, stats.Errors)
		}
	}()

	fmt.Println("\n✓ History Writer Service is running")
	fmt.Println("✓ Consuming estimate events and writing risk history to PostgreSQL")
	fmt.Printf("✓ Batch size: %d messages | Flush interval: %s\n", cfg.History.BatchSize, cfg.History.FlushInterval)
	fmt.Println("✓ Consumer group will register when first message is consumed")
	fmt.Println("✓ Press Ctrl+C to stop")
	fmt.Println("\nWaiting for messages...")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	batchWriter.Stop()
	fmt.Println("History Writer Service stopped")
}
