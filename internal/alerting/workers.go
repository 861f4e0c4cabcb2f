package alerting

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/smehta/migraine-server/internal/logger"
	"github.com/smehta/migraine-server/internal/protocol"
	"github.com/smehta/migraine-server/internal/queue"
)

// EstimateJob carries one decoded estimate event through the pool
type EstimateJob struct {
	Event *protocol.EstimateEvent
	Msg   kafka.Message
}

// Dispatcher consumes estimate events and fans them out to a fixed
// set of shard workers. Jobs shard by user id, so one user's
// estimates are always evaluated in order by the same worker.
type Dispatcher struct {
	consumer  *queue.Consumer
	evaluator *Evaluator
	log       *logger.Logger

	shardCount int
	queueSize  int
	shards     []chan *EstimateJob
	workers    []*Worker

	consumerWg sync.WaitGroup
	workerWg   sync.WaitGroup
	stopCh     chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
}

// Worker evaluates the jobs of one shard
type Worker struct {
	id         int
	jobs       <-chan *EstimateJob
	dispatcher *Dispatcher
	stopCh     <-chan struct{}
}

// NewDispatcher creates a new dispatcher with its worker shards
func NewDispatcher(consumer *queue.Consumer, evaluator *Evaluator, log *logger.Logger, shardCount, queueSize int) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	if shardCount <= 0 {
		shardCount = 8
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	return &Dispatcher{
		consumer:   consumer,
		evaluator:  evaluator,
		log:        log,
		shardCount: shardCount,
		queueSize:  queueSize,
		stopCh:     make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start starts the workers and the consume loop
func (d *Dispatcher) Start() {
	d.shards = make([]chan *EstimateJob, d.shardCount)
	d.workers = make([]*Worker, d.shardCount)

	for i := 0; i < d.shardCount; i++ {
		d.shards[i] = make(chan *EstimateJob, d.queueSize)
		d.workers[i] = &Worker{
			id:         i,
			jobs:       d.shards[i],
			dispatcher: d,
			stopCh:     d.stopCh,
		}

		d.workerWg.Add(1)
		go d.workers[i].Start(&d.workerWg)
	}

	d.consumerWg.Add(1)
	go d.consumeEvents()

	d.log.Info("alert dispatcher started", "shards", d.shardCount)
}

// Stop stops the dispatcher gracefully. Uncommitted jobs are dropped
// and redelivered on the next start; the state machines skip dates
// they have already seen.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	d.cancel()

	d.consumerWg.Wait()
	for _, ch := range d.shards {
		close(ch)
	}
	d.workerWg.Wait()

	d.log.Info("alert dispatcher stopped")
}

// consumeEvents reads estimate events and dispatches them to shards
func (d *Dispatcher) consumeEvents() {
	defer d.consumerWg.Done()

	for {
		select {
		case <-d.stopCh:
			return
		default:
		}

		msg, err := d.consumer.Consume(d.ctx)
		if err != nil {
			if d.ctx.Err() != nil {
				return
			}
			d.log.Error("consumer error", "error", err)
			continue
		}

		event, err := protocol.DecodeEstimateEvent(msg.Value)
		if err != nil || event.UserID == "" {
			d.log.Warn("skipping malformed estimate event",
				"partition", msg.Partition, "offset", msg.Offset, "error", err)
			if err := d.consumer.Commit(d.ctx, msg); err != nil {
				d.log.Error("failed to commit offset", "error", err)
			}
			continue
		}

		shard := queue.PartitionForUser(event.UserID, d.shardCount)
		select {
		case d.shards[shard] <- &EstimateJob{Event: event, Msg: msg}:
		case <-d.stopCh:
			return
		}
	}
}

// Start runs the worker loop
func (w *Worker) Start(wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-w.jobs:
			if !ok {
				return
			}
			w.processJob(job)

		case <-w.stopCh:
			return
		}
	}
}

// processJob evaluates one estimate and commits its offset. A failed
// evaluation leaves the offset uncommitted for redelivery.
func (w *Worker) processJob(job *EstimateJob) {
	d := w.dispatcher

	if err := d.evaluator.EvaluateEstimate(d.ctx, job.Event); err != nil {
		d.log.Error("failed to evaluate estimate",
			"worker", w.id, "user_id", job.Event.UserID, "error", err)
		return
	}

	if err := d.consumer.Commit(d.ctx, job.Msg); err != nil {
		d.log.Error("failed to commit offset",
			"worker", w.id, "partition", job.Msg.Partition, "offset", job.Msg.Offset, "error", err)
	}
}
