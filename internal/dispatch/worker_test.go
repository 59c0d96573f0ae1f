package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loodlijn/dispatch/pkg/logging"
)

func TestWorkerPoolProcessesJob(t *testing.T) {
	fast := &fakeLLMClient{text: "komt voor elkaar"}
	engine, _ := newTestEngine(t, fast, fast)
	convID := startConversation(t, engine)

	queue := NewMemoryQueue(8)
	jobs := NewMemoryJobStore()
	publisher := NewPublisher(queue, jobs, logging.NewText("error"))
	pool := NewWorkerPool(queue, engine, jobs, 2, logging.NewText("error"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		pool.Run(ctx)
	}()

	jobID, err := publisher.Enqueue(ctx, "org1", convID, "mijn wc is verstopt")
	require.NoError(t, err)

	record := waitForTerminalJob(t, jobs, jobID)
	assert.Equal(t, JobStatusCompleted, record.Status)
	require.NotNil(t, record.Turn)
	assert.Equal(t, "komt voor elkaar", record.Turn.Text)
	assert.Equal(t, TierHigh, record.Turn.UrgencyTier)

	cancel()
	<-done
}

func TestWorkerPoolMarksFailedJob(t *testing.T) {
	fast := &fakeLLMClient{text: "ok"}
	engine, _ := newTestEngine(t, fast, fast)

	queue := NewMemoryQueue(8)
	jobs := NewMemoryJobStore()
	publisher := NewPublisher(queue, jobs, logging.NewText("error"))
	pool := NewWorkerPool(queue, engine, jobs, 1, logging.NewText("error"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		pool.Run(ctx)
	}()

	// Unknown conversation: the engine fails, the job records the failure.
	jobID, err := publisher.Enqueue(ctx, "org1", "ghost", "hallo")
	require.NoError(t, err)

	record := waitForTerminalJob(t, jobs, jobID)
	assert.Equal(t, JobStatusFailed, record.Status)
	assert.NotEmpty(t, record.ErrorMessage)
	assert.Nil(t, record.Turn)

	cancel()
	<-done
}

func waitForTerminalJob(t *testing.T, jobs JobRecorder, jobID string) *JobRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		record, err := jobs.GetJob(context.Background(), jobID)
		if err == nil && record.Status != JobStatusPending {
			return record
		}
		if err != nil && !errors.Is(err, ErrJobNotFound) {
			t.Fatalf("unexpected job store error: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return nil
}
