package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smehta/migraine-server/internal/aggregation"
	"github.com/smehta/migraine-server/internal/database"
	"github.com/smehta/migraine-server/internal/logger"
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

	fmt.Println("Starting Rollup Service...")

	// Connect to database
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	// Create scheduler
	scheduler := timer.NewScheduler()
	scheduler.Start()
	defer scheduler.Stop()
	fmt.Println("Scheduler started")

	// Create rollup jobs
	monthly := aggregation.NewMonthlyAggregator(db, appLog)
	refresher := aggregation.NewFrequencyRefresher(db, appLog, cfg.Rollup.FrequencyWindowDays)

	if cfg.Rollup.RunInterval > 0 {
		// Interval mode keeps the current month fresh; useful for testing
		fmt.Printf("Interval mode: running rollups every %s\n", cfg.Rollup.RunInterval)
		go func() {
			ticker := time.NewTicker(cfg.Rollup.RunInterval)
			defer ticker.Stop()
			for range ticker.C {
				if err := monthly.AggregateCurrentMonth(); err != nil {
					log.Printf("Monthly rollup failed: %v\n", err)
				}
				if err := refresher.Refresh(); err != nil {
					log.Printf("Frequency refresh failed: %v\n", err)
				}
			}
		}()
	} else {
		scheduleMonthlyRollup(scheduler, monthly, cfg.Rollup.MonthlyTime)
		scheduleFrequencyRefresh(scheduler, refresher, cfg.Rollup.RefreshTime)
	}

	fmt.Println("\n✓ Rollup Service is running")
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
}

func scheduleMonthlyRollup(sched *timer.Scheduler, agg *aggregation.MonthlyAggregator, timeOfDay string) {
	taskID := "monthly-rollup"

	var scheduleNext func()
	scheduleNext = func() {
		nextRun, err := agg.CalculateNextRunTime(timeOfDay)
		if err != nil {
			log.Fatalf("Failed to calculate monthly run time: %v", err)
		}
		fmt.Printf("Next monthly rollup scheduled for: %s\n", nextRun.Format("2006-01-02 15:04:05"))

		callback := func() {
			fmt.Println("\n--- Running Monthly Rollup ---")
			if err := agg.AggregatePreviousMonth(); err != nil {
				log.Printf("Monthly rollup failed: %v\n", err)
			}
			fmt.Println("--- Monthly Rollup Complete ---")

			// Schedule next run
			scheduleNext()
		}

		if err := sched.Schedule(taskID, nextRun, callback); err != nil {
			log.Printf("Failed to schedule monthly rollup: %v\n", err)
		}
	}

	scheduleNext()
}

func scheduleFrequencyRefresh(sched *timer.Scheduler, refresher *aggregation.FrequencyRefresher, timeOfDay string) {
	taskID := "frequency-refresh"

	var scheduleNext func()
	scheduleNext = func() {
		nextRun, err := refresher.CalculateNextRunTime(timeOfDay)
		if err != nil {
			log.Fatalf("Failed to calculate refresh run time: %v", err)
		}
		fmt.Printf("Next frequency refresh scheduled for: %s\n", nextRun.Format("2006-01-02 15:04:05"))

		callback := func() {
			fmt.Println("\n--- Running Frequency Refresh ---")
			if err := refresher.Refresh(); err != nil {
				log.Printf("Frequency refresh failed: %v\n", err)
			}
			fmt.Println("--- Frequency Refresh Complete ---")

			// Schedule next run
			scheduleNext()
		}

		if err := sched.Schedule(taskID, nextRun, callback); err != nil {
			log.Printf("Failed to schedule frequency refresh: %v\n", err)
		}
	}

	scheduleNext()
}
