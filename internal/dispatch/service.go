package dispatch

import (
	"context"
	"errors"
)

// StartRequest opens a new conversation.
type StartRequest struct {
	OrgID string `json:"org_id"`
}

// MessageRequest submits one customer message to an existing conversation.
type MessageRequest struct {
	OrgID          string `json:"org_id"`
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// Response is the public result of one processed message.
type Response struct {
	ConversationID string        `json:"conversation_id"`
	Reply          string        `json:"reply"`
	UrgencyTier    Tier          `json:"urgency_tier"`
	Categories     []string      `json:"categories"`
	EstimatedCost  int           `json:"estimated_cost"`
	TriggerBooking bool          `json:"trigger_booking"`
	BackendUsed    BackendChoice `json:"backend_used,omitempty"`
	Degraded       bool          `json:"degraded,omitempty"`
	KnownFields    KnownFields   `json:"known_fields"`
}

// Service is the application-facing facade over the engine and the queue.
type Service struct {
	engine    *Engine
	publisher *Publisher
	jobs      JobRecorder
}

func NewService(engine *Engine, publisher *Publisher, jobs JobRecorder) *Service {
	if engine == nil {
		panic("dispatch: engine cannot be nil")
	}
	return &Service{engine: engine, publisher: publisher, jobs: jobs}
}

// Start opens a conversation and returns its ID.
func (s *Service) Start(ctx context.Context, req StartRequest) (string, error) {
	conv, err := s.engine.StartConversation(ctx, req.OrgID)
	if err != nil {
		return "", err
	}
	return conv.ID, nil
}

// Message processes one customer message synchronously.
func (s *Service) Message(ctx context.Context, req MessageRequest) (Response, error) {
	turn, err := s.engine.ProcessMessage(ctx, req.OrgID, req.ConversationID, req.Message)
	if err != nil {
		return Response{}, err
	}
	return s.toResponse(ctx, req, turn), nil
}

// MessageStream processes one customer message while forwarding partial
// reply text to sink.
func (s *Service) MessageStream(ctx context.Context, req MessageRequest, sink ChunkSink) (Response, error) {
	turn, err := s.engine.ProcessMessageStream(ctx, req.OrgID, req.ConversationID, req.Message, sink)
	if err != nil {
		return Response{}, err
	}
	return s.toResponse(ctx, req, turn), nil
}

// EnqueueMessage queues a message for asynchronous processing and returns
// the job ID to poll.
func (s *Service) EnqueueMessage(ctx context.Context, req MessageRequest) (string, error) {
	if s.publisher == nil {
		return "", errors.New("dispatch: asynchronous processing is not configured")
	}
	return s.publisher.Enqueue(ctx, req.OrgID, req.ConversationID, req.Message)
}

// JobStatus reports the state of a queued message. Jobs are org-scoped.
func (s *Service) JobStatus(ctx context.Context, orgID, jobID string) (*JobRecord, error) {
	if s.jobs == nil {
		return nil, errors.New("dispatch: job store is not configured")
	}
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OrgID != orgID {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// History returns the stored conversation.
func (s *Service) History(ctx context.Context, orgID, conversationID string) (*Conversation, error) {
	return s.engine.GetConversation(ctx, orgID, conversationID)
}

func (s *Service) toResponse(ctx context.Context, req MessageRequest, turn TurnResult) Response {
	resp := Response{
		ConversationID: req.ConversationID,
		Reply:          turn.Text,
		UrgencyTier:    turn.UrgencyTier,
		Categories:     turn.Categories,
		EstimatedCost:  turn.EstimatedCost,
		TriggerBooking: turn.TriggerBooking,
		BackendUsed:    turn.BackendUsed,
		Degraded:       turn.Degraded,
	}
	if conv, err := s.engine.GetConversation(ctx, req.OrgID, req.ConversationID); err == nil {
		resp.KnownFields = conv.KnownFields
	}
	return resp
}
