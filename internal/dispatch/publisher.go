package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/loodlijn/dispatch/pkg/logging"
)

// Publisher records a pending job and places its envelope on the dispatch
// queue. The job record is written first so a poll for the job ID never
// races the queue.
type Publisher struct {
	queue  queueClient
	jobs   JobRecorder
	logger *logging.Logger
}

func NewPublisher(queue queueClient, jobs JobRecorder, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("dispatch: queue cannot be nil")
	}
	if jobs == nil {
		panic("dispatch: job recorder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{queue: queue, jobs: jobs, logger: logger}
}

// Enqueue queues one customer message for asynchronous processing and
// returns the job ID the caller can poll.
func (p *Publisher) Enqueue(ctx context.Context, orgID, conversationID, message string) (string, error) {
	if orgID == "" || conversationID == "" || message == "" {
		return "", fmt.Errorf("dispatch: org id, conversation id and message are required")
	}

	job := DispatchJob{
		JobID:          uuid.NewString(),
		OrgID:          orgID,
		ConversationID: conversationID,
		Message:        message,
		EnqueuedAt:     time.Now().UTC(),
	}

	if err := p.jobs.PutPending(ctx, &JobRecord{
		JobID:          job.JobID,
		OrgID:          orgID,
		ConversationID: conversationID,
		Message:        message,
	}); err != nil {
		return "", err
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("dispatch: failed to marshal job: %w", err)
	}
	if err := p.queue.Send(ctx, string(payload)); err != nil {
		return "", err
	}
	return job.JobID, nil
}
