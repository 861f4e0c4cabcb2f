package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smehta/migraine-server/internal/cache"
	"github.com/smehta/migraine-server/internal/database"
	"github.com/smehta/migraine-server/internal/engine"
	"github.com/smehta/migraine-server/internal/logger"
	"github.com/smehta/migraine-server/internal/metrics"
	"github.com/smehta/migraine-server/internal/privacy"
	"github.com/smehta/migraine-server/internal/queue"
	"github.com/smehta/migraine-server/internal/server"
	"github.com/smehta/migraine-server/internal/timer"
	"github.com/smehta/migraine-server/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer appLog.Sync()

	fmt.Println("Starting Migraine Server...")

	// Connect to database
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	// Run migrations
	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	fmt.Println("Connected to Redis")

	states := cache.NewStateCache(redisClient, cfg.Redis.StateTTL)

	// Create Kafka topics
	if err := queue.CreateTopic(
		cfg.Kafka.Brokers,
		cfg.Kafka.TopicEstimates,
		cfg.Kafka.NumPartitions,
		1, // replication factor
	); err != nil {
		fmt.Printf("Note: Topic creation failed (may already exist): %v\n", err)
	}

	if err := queue.CreateTopic(
		cfg.Kafka.Brokers,
		cfg.Kafka.TopicAlerts,
		1, // single partition for alerts
		1, // replication factor
	); err != nil {
		fmt.Printf("Note: Topic creation failed (may already exist): %v\n", err)
	}

	// Create estimate producer
	producer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEstimates)
	defer producer.Close()
	fmt.Println("Kafka producer initialized")

	// Create user handle manager
	manager := engine.NewManager(cfg.Engine.MaxUserHandles)
	fmt.Println("User handle manager initialized")

	// Create scheduler for idle handle eviction
	scheduler := timer.NewScheduler()
	scheduler.Start()
	defer scheduler.Stop()
	fmt.Println("Scheduler started")

	anonymizer := privacy.NewAnonymizer(cfg.Privacy.ExportSalt)

	m := metrics.New()
	m.RegisterActiveHandles(func() float64 {
		return float64(manager.Count())
	})

	// Create engine service
	svc := engine.NewService(cfg, db, states, producer, manager, scheduler, anonymizer, m, appLog)
	svc.StartEviction()

	// Create HTTP server
	httpServer := server.NewHTTPServer(&cfg.HTTP, svc, db, states, m, appLog)
	if err := httpServer.Start(); err != nil {
		log.Fatalf("Failed to start HTTP server: %v", err)
	}

	// Print statistics periodically
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			stats := svc.HandleStats()
			fmt.Printf("\n--- Server Statistics ---\n")
			fmt.Printf("Resident User Handles: %d / %d\n", stats.ResidentHandles, stats.MaxHandles)
			fmt.Printf("In-Flight Requests: %d\n", stats.InFlight)
			fmt.Printf("Scheduled Tasks: %d\n", scheduler.Pending())
			fmt.Printf("------------------------\n\n")
		}
	}()

	fmt.Println("\n✓ Migraine Server is running")
	fmt.Printf("✓ HTTP API listening on %s\n", cfg.HTTP.Addr)
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	if err := httpServer.Stop(); err != nil {
		log.Printf("HTTP server shutdown error: %v\n", err)
	}
}
