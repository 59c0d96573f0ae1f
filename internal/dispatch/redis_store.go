package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultConversationTTL = 30 * 24 * time.Hour

// RedisStore is the production ConversationStore. Conversations are stored
// as JSON under an org-scoped key; Update runs inside a WATCH transaction so
// concurrent writers surface as ErrStoreConflict instead of lost turns.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("dispatch: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultConversationTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		tracer: otel.Tracer("dispatch/redis_store"),
	}
}

func conversationKey(orgID, conversationID string) string {
	return fmt.Sprintf("dispatch:conv:%s:%s", orgID, conversationID)
}

func (s *RedisStore) Create(ctx context.Context, conv *Conversation) error {
	ctx, span := s.tracer.Start(ctx, "RedisStore.Create",
		trace.WithAttributes(attribute.String("conversation.id", conv.ID)))
	defer span.End()

	conv.Version = 1
	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	payload, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("dispatch: marshal conversation: %w", err)
	}

	ok, err := s.client.SetNX(ctx, conversationKey(conv.OrgID, conv.ID), payload, s.ttl).Result()
	if err != nil {
		return storeError(err)
	}
	if !ok {
		return ErrStoreConflict
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, orgID, conversationID string) (*Conversation, error) {
	ctx, span := s.tracer.Start(ctx, "RedisStore.Get",
		trace.WithAttributes(attribute.String("conversation.id", conversationID)))
	defer span.End()

	raw, err := s.client.Get(ctx, conversationKey(orgID, conversationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, storeError(err)
	}

	var conv Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, fmt.Errorf("dispatch: unmarshal conversation: %w", err)
	}
	return &conv, nil
}

func (s *RedisStore) Update(ctx context.Context, conv *Conversation) error {
	ctx, span := s.tracer.Start(ctx, "RedisStore.Update",
		trace.WithAttributes(
			attribute.String("conversation.id", conv.ID),
			attribute.Int64("conversation.version", conv.Version),
		))
	defer span.End()

	key := conversationKey(conv.OrgID, conv.ID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrConversationNotFound
		}
		if err != nil {
			return err
		}

		var stored Conversation
		if err := json.Unmarshal(raw, &stored); err != nil {
			return fmt.Errorf("dispatch: unmarshal conversation: %w", err)
		}
		if stored.Version != conv.Version {
			return ErrStoreConflict
		}

		conv.Version++
		conv.UpdatedAt = time.Now().UTC()
		payload, err := json.Marshal(conv)
		if err != nil {
			return fmt.Errorf("dispatch: marshal conversation: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		// Another writer touched the key between read and write.
		conv.Version--
		return ErrStoreConflict
	case errors.Is(err, ErrStoreConflict), errors.Is(err, ErrConversationNotFound):
		return err
	default:
		return storeError(err)
	}
}

func storeError(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
