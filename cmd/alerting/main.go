package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/smehta/migraine-server/internal/alerting"
	"github.com/smehta/migraine-server/internal/database"
	"github.com/smehta/migraine-server/internal/logger"
	"github.com/smehta/migraine-server/internal/metrics"
	"github.com/smehta/migraine-server/internal/queue"
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

	fmt.Println("Starting Alerting Service...")

	// Connect to database
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

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

	// Create alert state manager
	stateManager := alerting.NewStateManager(redisClient)

	// Create alert producer (for notifications)
	alertProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts)
	defer alertProducer.Close()
	fmt.Println("Alert producer initialized")

	m := metrics.New()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		if err := http.ListenAndServe(cfg.Alerting.MetricsAddr, mux); err != nil {
			log.Printf("Metrics endpoint stopped: %v\n", err)
		}
	}()

	// Create evaluator
	evaluator := alerting.NewEvaluator(
		db,
		stateManager,
		alertProducer,
		m,
		appLog,
		cfg.Alerting.DefaultMargin,
		cfg.Alerting.ConsecutiveRequired,
		cfg.Alerting.Cooldown,
	)

	// Create consumer for estimate events
	group := cfg.Kafka.ConsumerGroup
	if group == "" {
		group = "alerting-group"
	}
	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEstimates, group)
	defer consumer.Close()
	fmt.Println("Kafka consumer initialized")

	// Create sharded worker pool so one user's events stay ordered
	dispatcher := alerting.NewDispatcher(consumer, evaluator, appLog, cfg.Alerting.WorkerShards, 256)
	dispatcher.Start()
	fmt.Printf("Dispatcher started (%d worker shards)\n", cfg.Alerting.WorkerShards)

	fmt.Println("\n✓ Alerting Service is running")
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	dispatcher.Stop()
	fmt.Println("Alerting Service stopped")
}
