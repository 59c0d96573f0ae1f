package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryJobStore is an in-process JobRecorder/JobUpdater used when the
// service runs without DynamoDB.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*JobRecord
}

var _ JobRecorder = (*MemoryJobStore)(nil)
var _ JobUpdater = (*MemoryJobStore)(nil)

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]*JobRecord)}
}

func (s *MemoryJobStore) PutPending(ctx context.Context, job *JobRecord) error {
	if job == nil || job.JobID == "" {
		return errors.New("dispatch: job with id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.JobID]; exists {
		return errors.New("dispatch: job already exists")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	job.Status = JobStatusPending
	job.CreatedAt = now
	job.UpdatedAt = now
	clone := *job
	s.jobs[job.JobID] = &clone
	return nil
}

func (s *MemoryJobStore) MarkCompleted(ctx context.Context, jobID string, turn *TurnResult, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.Status = JobStatusCompleted
	job.Turn = turn
	job.ConversationID = conversationID
	job.ErrorMessage = ""
	job.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	return nil
}

func (s *MemoryJobStore) MarkFailed(ctx context.Context, jobID string, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.Status = JobStatusFailed
	job.Turn = nil
	job.ErrorMessage = errMsg
	job.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	return nil
}

func (s *MemoryJobStore) GetJob(ctx context.Context, jobID string) (*JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	clone := *job
	return &clone, nil
}
