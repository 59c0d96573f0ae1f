package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ConversationStore persists conversations. Update is compare-and-swap on
// Conversation.Version: a stale version fails with ErrStoreConflict and the
// stored conversation is left untouched.
type ConversationStore interface {
	Create(ctx context.Context, conv *Conversation) error
	Get(ctx context.Context, orgID, conversationID string) (*Conversation, error)
	Update(ctx context.Context, conv *Conversation) error
}

// MemoryStore is an in-process ConversationStore for tests and local
// development.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Conversation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Conversation)}
}

func memoryKey(orgID, conversationID string) string {
	return orgID + "/" + conversationID
}

func (s *MemoryStore) Create(ctx context.Context, conv *Conversation) error {
	if conv == nil || conv.ID == "" || conv.OrgID == "" {
		return fmt.Errorf("dispatch: conversation id and org id are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey(conv.OrgID, conv.ID)
	if _, exists := s.items[key]; exists {
		return ErrStoreConflict
	}
	conv.Version = 1
	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	s.items[key] = cloneConversation(conv)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, orgID, conversationID string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.items[memoryKey(orgID, conversationID)]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return cloneConversation(conv), nil
}

func (s *MemoryStore) Update(ctx context.Context, conv *Conversation) error {
	if conv == nil {
		return fmt.Errorf("dispatch: conversation is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey(conv.OrgID, conv.ID)
	stored, ok := s.items[key]
	if !ok {
		return ErrConversationNotFound
	}
	if stored.Version != conv.Version {
		return ErrStoreConflict
	}
	conv.Version++
	conv.UpdatedAt = time.Now().UTC()
	s.items[key] = cloneConversation(conv)
	return nil
}

func cloneConversation(conv *Conversation) *Conversation {
	clone := *conv
	clone.Turns = make([]TurnResult, len(conv.Turns))
	copy(clone.Turns, conv.Turns)
	return &clone
}
