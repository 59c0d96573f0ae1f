package dispatch

import (
	"context"
	"time"
)

// queueMessage is one raw message pulled off the dispatch queue.
type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// queueClient abstracts the dispatch queue so workers run identically
// against SQS and the in-memory queue.
type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// DispatchJob is the envelope placed on the queue for one customer message.
type DispatchJob struct {
	JobID          string    `json:"job_id"`
	OrgID          string    `json:"org_id"`
	ConversationID string    `json:"conversation_id"`
	Message        string    `json:"message"`
	EnqueuedAt     time.Time `json:"enqueued_at"`
}
