package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/smehta/migraine-server/internal/database"
	"github.com/smehta/migraine-server/internal/logger"
	"github.com/smehta/migraine-server/internal/metrics"
	"github.com/smehta/migraine-server/internal/protocol"
)

// BatchWriter consumes estimate events from Kafka and batch-writes
// them to the risk history table. Inserts are idempotent on
// (user_id, log_date), so redelivered messages are harmless.
type BatchWriter struct {
	consumer      *Consumer
	db            *database.DB
	log           *logger.Logger
	metrics       *metrics.Metrics
	batchSize     int
	flushInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(consumer *Consumer, db *database.DB, log *logger.Logger, m *metrics.Metrics, batchSize int, flushInterval time.Duration) *BatchWriter {
	return &BatchWriter{
		consumer:      consumer,
		db:            db,
		log:           log,
		metrics:       m,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
	}
}

// Start begins consuming and writing to the database
func (bw *BatchWriter) Start(ctx context.Context) error {
	bw.wg.Add(1)
	go bw.run(ctx)
	return nil
}

// Stop stops the batch writer gracefully
func (bw *BatchWriter) Stop() {
	close(bw.stopCh)
	bw.wg.Wait()
}

func (bw *BatchWriter) run(ctx context.Context) {
	defer bw.wg.Done()

	var batch []kafka.Message
	ticker := time.NewTicker(bw.flushInterval)
	defer ticker.Stop()

	msgChan := make(chan kafka.Message, 10)
	go func() {
		for {
			msg, err := bw.consumer.Consume(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				bw.log.Error("consumer error", "error", err)
				continue
			}
			select {
			case msgChan <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-bw.stopCh:
			// Flush remaining batch before stopping
			bw.flush(ctx, batch)
			return

		case <-ticker.C:
			if len(batch) > 0 {
				bw.flush(ctx, batch)
				batch = nil
			}

		case msg := <-msgChan:
			batch = append(batch, msg)
			if len(batch) >= bw.batchSize {
				bw.flush(ctx, batch)
				batch = nil
			}
		}
	}
}

// flush decodes the batch, writes it in one multi-row insert, and
// commits offsets only after the insert succeeds. Malformed messages
// are skipped and committed so they cannot wedge the partition.
func (bw *BatchWriter) flush(ctx context.Context, batch []kafka.Message) {
	if len(batch) == 0 {
		return
	}

	entries := make([]*database.RiskHistoryEntry, 0, len(batch))
	for _, msg := range batch {
		entry, err := entryFromMessage(msg)
		if err != nil {
			bw.log.Warn("skipping malformed estimate event",
				"partition", msg.Partition, "offset", msg.Offset, "error", err)
			continue
		}
		entries = append(entries, entry)
	}

	if len(entries) > 0 {
		if err := bw.db.InsertRiskHistoryBatch(entries); err != nil {
			bw.log.Error("failed to flush risk history batch",
				"size", len(entries), "error", err)
			return
		}
		bw.metrics.HistoryFlushRows.Observe(float64(len(entries)))
	}

	for _, msg := range batch {
		if err := bw.consumer.Commit(ctx, msg); err != nil {
			bw.log.Error("failed to commit offset",
				"partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
	}

	bw.log.Info("flushed risk history batch", "messages", len(batch), "rows", len(entries))
}

func entryFromMessage(msg kafka.Message) (*database.RiskHistoryEntry, error) {
	event, err := protocol.DecodeEstimateEvent(msg.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	if event.UserID == "" {
		return nil, fmt.Errorf("estimate event missing user_id")
	}

	logDate, err := event.ParsedLogDate()
	if err != nil {
		return nil, fmt.Errorf("failed to parse log date: %w", err)
	}

	return &database.RiskHistoryEntry{
		UserID:        event.UserID,
		LogDate:       logDate,
		Score:         event.Score,
		Confidence:    event.Confidence,
		StateMean:     event.StateMean,
		StateVariance: event.StateVariance,
	}, nil
}
