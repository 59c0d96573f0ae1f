package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/loodlijn/dispatch/internal/observability/metrics"
	"github.com/loodlijn/dispatch/pkg/logging"
)

const (
	receiveBatchSize   = 5
	receiveWaitSeconds = 10
)

// WorkerPool drains the dispatch queue: each job is processed through the
// engine and its result written back to the job store. Processing order
// across conversations is unspecified; within a conversation the engine's
// per-conversation lock keeps turns sequential.
type WorkerPool struct {
	queue   queueClient
	engine  *Engine
	jobs    JobUpdater
	workers int
	logger  *logging.Logger
}

func NewWorkerPool(queue queueClient, engine *Engine, jobs JobUpdater, workers int, logger *logging.Logger) *WorkerPool {
	if queue == nil {
		panic("dispatch: queue cannot be nil")
	}
	if engine == nil {
		panic("dispatch: engine cannot be nil")
	}
	if jobs == nil {
		panic("dispatch: job updater cannot be nil")
	}
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WorkerPool{queue: queue, engine: engine, jobs: jobs, workers: workers, logger: logger}
}

// Run blocks until ctx is cancelled and every worker has drained.
func (w *WorkerPool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (w *WorkerPool) loop(ctx context.Context, id int) {
	logger := w.logger.With(slog.Int("worker", id))
	for {
		if ctx.Err() != nil {
			return
		}
		messages, err := w.queue.Receive(ctx, receiveBatchSize, receiveWaitSeconds)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("queue receive failed", slog.String("error", err.Error()))
			continue
		}
		if mq, ok := w.queue.(*MemoryQueue); ok {
			metrics.QueueDepth.Set(float64(mq.Len()))
		}
		for _, msg := range messages {
			w.handle(ctx, logger, msg)
		}
	}
}

func (w *WorkerPool) handle(ctx context.Context, logger *logging.Logger, msg queueMessage) {
	var job DispatchJob
	if err := json.Unmarshal([]byte(msg.Body), &job); err != nil {
		// A message that cannot be decoded will never succeed; drop it.
		logger.Error("dropping undecodable job", slog.String("message_id", msg.ID), slog.String("error", err.Error()))
		_ = w.queue.Delete(ctx, msg.ReceiptHandle)
		return
	}

	turn, err := w.engine.ProcessMessage(ctx, job.OrgID, job.ConversationID, job.Message)
	if err != nil {
		logger.Error("job processing failed",
			slog.String("job_id", job.JobID),
			slog.String("conversation_id", job.ConversationID),
			slog.String("error", err.Error()),
		)
		if markErr := w.jobs.MarkFailed(ctx, job.JobID, err.Error()); markErr != nil {
			logger.Error("failed to mark job failed", slog.String("job_id", job.JobID), slog.String("error", markErr.Error()))
		}
		// The job record carries the failure; the message is spent.
		_ = w.queue.Delete(ctx, msg.ReceiptHandle)
		return
	}

	if err := w.jobs.MarkCompleted(ctx, job.JobID, &turn, job.ConversationID); err != nil {
		logger.Error("failed to mark job completed", slog.String("job_id", job.JobID), slog.String("error", err.Error()))
	}
	_ = w.queue.Delete(ctx, msg.ReceiptHandle)
}
