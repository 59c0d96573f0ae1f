package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/loodlijn/dispatch/internal/observability/metrics"
	"github.com/loodlijn/dispatch/pkg/logging"
)

var engineTracer = otel.Tracer("dispatch/engine")

// BookingTrigger hands a qualified turn to the booking flow. Implementations
// must be safe for concurrent use.
type BookingTrigger interface {
	TriggerBooking(ctx context.Context, orgID string, conv *Conversation, turn TurnResult) error
}

// EngineConfig carries the tunables the engine needs beyond its
// collaborators.
type EngineConfig struct {
	// HistoryTurns bounds how many past turns are replayed to the backend.
	HistoryTurns int
	// EmergencyContact is the phone number quoted in degraded emergency
	// replies.
	EmergencyContact string
}

// Engine processes customer messages: it classifies, routes, invokes a model
// backend, assembles the turn and persists it. Turns within one conversation
// are strictly sequential; different conversations proceed in parallel.
type Engine struct {
	fast StreamingLLMClient
	// emergencyFast, when set, replaces fast for emergency turns. It is
	// typically the same provider pinned to the lowest-latency model.
	emergencyFast StreamingLLMClient
	deep          LLMClient
	invoker       *Invoker
	store         ConversationStore
	archive       *TurnArchive
	booking       BookingTrigger
	logger        *logging.Logger
	cfg           EngineConfig

	// locks serializes turns per conversation.
	locks sync.Map // conversation key -> *sync.Mutex
}

func NewEngine(fast StreamingLLMClient, deep LLMClient, invoker *Invoker, store ConversationStore, logger *logging.Logger, cfg EngineConfig) *Engine {
	if fast == nil {
		panic("dispatch: fast backend cannot be nil")
	}
	if deep == nil {
		panic("dispatch: deep backend cannot be nil")
	}
	if invoker == nil {
		panic("dispatch: invoker cannot be nil")
	}
	if store == nil {
		panic("dispatch: conversation store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = 12
	}
	return &Engine{
		fast:    fast,
		deep:    deep,
		invoker: invoker,
		store:   store,
		logger:  logger,
		cfg:     cfg,
	}
}

// WithEmergencyBackend pins emergency turns to a dedicated fast client.
func (e *Engine) WithEmergencyBackend(client StreamingLLMClient) *Engine {
	e.emergencyFast = client
	return e
}

// WithArchive attaches a best-effort turn archive.
func (e *Engine) WithArchive(archive *TurnArchive) *Engine {
	e.archive = archive
	return e
}

// WithBooking attaches the booking flow trigger.
func (e *Engine) WithBooking(booking BookingTrigger) *Engine {
	e.booking = booking
	return e
}

// StartConversation opens a new empty conversation for an org.
func (e *Engine) StartConversation(ctx context.Context, orgID string) (*Conversation, error) {
	if orgID == "" {
		return nil, errors.New("dispatch: org id is required")
	}
	conv := &Conversation{
		ID:    uuid.NewString(),
		OrgID: orgID,
	}
	if err := e.store.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("dispatch: create conversation: %w", err)
	}
	return conv, nil
}

// GetConversation loads a conversation for an org.
func (e *Engine) GetConversation(ctx context.Context, orgID, conversationID string) (*Conversation, error) {
	return e.store.Get(ctx, orgID, conversationID)
}

// ProcessMessage handles one customer message end to end and returns the
// persisted turn.
func (e *Engine) ProcessMessage(ctx context.Context, orgID, conversationID, message string) (TurnResult, error) {
	return e.process(ctx, orgID, conversationID, message, nil)
}

// ProcessMessageStream behaves like ProcessMessage but additionally forwards
// partial reply text to sink as it arrives from the backend. Degraded turns
// deliver the fallback text to the sink in one piece.
func (e *Engine) ProcessMessageStream(ctx context.Context, orgID, conversationID, message string, sink ChunkSink) (TurnResult, error) {
	return e.process(ctx, orgID, conversationID, message, sink)
}

func (e *Engine) process(ctx context.Context, orgID, conversationID, message string, sink ChunkSink) (TurnResult, error) {
	if message == "" {
		return TurnResult{}, errors.New("dispatch: message is required")
	}

	ctx, span := engineTracer.Start(ctx, "engine.process",
		trace.WithAttributes(
			attribute.String("org.id", orgID),
			attribute.String("conversation.id", conversationID),
		))
	defer span.End()

	unlock := e.lockConversation(orgID, conversationID)
	defer unlock()

	conv, err := e.store.Get(ctx, orgID, conversationID)
	if err != nil {
		return TurnResult{}, err
	}

	qc := e.analyze(conv, message)
	decision := SelectBackend(qc)
	span.SetAttributes(
		attribute.String("dispatch.backend", string(decision.Backend)),
		attribute.String("dispatch.tier", qc.UrgencyHint.String()),
	)
	metrics.RoutingDecisions.WithLabelValues(string(decision.Backend), decision.Reason).Inc()

	turn, invokeErr := e.invokeBackend(ctx, qc, decision, sink)
	if invokeErr != nil {
		// The caller abandoned the request: nothing to persist, nobody
		// to read a fallback.
		if ctx.Err() != nil {
			return TurnResult{}, invokeErr
		}
		e.logger.Warn("backend invocation failed, serving fallback",
			slog.String("conversation_id", conversationID),
			slog.String("backend", string(decision.Backend)),
			slog.String("error", invokeErr.Error()),
		)
		turn = FallbackTurn(message, e.cfg.EmergencyContact)
		if sink != nil {
			sink(turn.Text)
		}
	}

	outcome := "ok"
	if turn.Degraded {
		outcome = "degraded"
	}
	metrics.MessagesProcessed.WithLabelValues(turn.UrgencyTier.String(), outcome).Inc()

	if err := e.persistTurn(ctx, conv, turn); err != nil {
		return TurnResult{}, err
	}

	if turn.TriggerBooking {
		metrics.BookingTriggers.WithLabelValues(turn.UrgencyTier.String()).Inc()
		e.fireBooking(ctx, orgID, conv, turn)
	}
	if e.archive != nil {
		e.archive.Archive(ctx, orgID, conversationID, conv.TotalTurns, turn)
	}
	return turn, nil
}

// analyze runs the pure per-message analyses. They share no state, so they
// run concurrently; the turn does not proceed until all three finish.
func (e *Engine) analyze(conv *Conversation, message string) QueryContext {
	var (
		wg         sync.WaitGroup
		tier       Tier
		entities   Entities
		categories []string
	)
	wg.Add(3)
	go func() { defer wg.Done(); tier = ClassifyUrgency(message) }()
	go func() { defer wg.Done(); entities = ExtractEntities(message) }()
	go func() { defer wg.Done(); categories = DetectCategories(message) }()
	wg.Wait()

	known := conv.KnownFields.Merge(entities, categories[0])

	return QueryContext{
		ConversationID:     conv.ID,
		OrgID:              conv.OrgID,
		Message:            message,
		TurnIndex:          conv.TotalTurns + 1,
		History:            buildHistory(conv, e.cfg.HistoryTurns),
		UrgencyHint:        tier,
		ConversationTier:   MaxTier(conv.MaxTierSeen(), tier),
		Language:           DetectLanguage(message),
		NeedsDeepReasoning: NeedsDeepReasoning(message),
		NeedsScheduling:    NeedsScheduling(message),
		Categories:         categories,
		Extracted:          entities,
		Known:              known,
	}
}

func (e *Engine) invokeBackend(ctx context.Context, qc QueryContext, decision RoutingDecision, sink ChunkSink) (TurnResult, error) {
	profile := ProfileForTier(qc.ConversationTier)
	req := LLMRequest{
		System:      BuildSystemPrompt(qc),
		Messages:    append(qc.History, ChatMessage{Role: RoleUser, Content: qc.Message}),
		MaxTokens:   profile.MaxTokens,
		Temperature: profile.Temperature,
	}

	fast := e.fast
	if qc.UrgencyHint == TierEmergency && e.emergencyFast != nil {
		fast = e.emergencyFast
	}

	started := time.Now()
	var (
		result InvokeResult
		err    error
	)
	if decision.Backend == BackendFast && sink != nil {
		result, err = e.invoker.InvokeStream(ctx, fast, req, sink)
	} else if decision.Backend == BackendFast {
		result, err = e.invoker.Invoke(ctx, fast, req)
	} else {
		result, err = e.invoker.Invoke(ctx, e.deep, req)
	}
	if err != nil {
		return TurnResult{}, err
	}

	metrics.BackendLatency.WithLabelValues(string(decision.Backend), result.Model).
		Observe(time.Since(started).Seconds())
	metrics.BackendTokens.WithLabelValues(string(decision.Backend), "input").
		Add(float64(result.Usage.InputTokens))
	metrics.BackendTokens.WithLabelValues(string(decision.Backend), "output").
		Add(float64(result.Usage.OutputTokens))

	return Assemble(AssembleInput{
		Message:    qc.Message,
		ReplyText:  result.ReplyText,
		Hint:       result.Hint,
		LocalTier:  qc.UrgencyHint,
		Categories: qc.Categories,
		Extracted:  qc.Extracted,
		Backend:    decision.Backend,
	}), nil
}

// persistTurn appends the turn and writes the conversation back. A version
// conflict is retried exactly once against a fresh read; a second conflict
// or an unavailable store fails the turn.
func (e *Engine) persistTurn(ctx context.Context, conv *Conversation, turn TurnResult) error {
	applyTurn(conv, turn)

	err := e.store.Update(ctx, conv)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrStoreConflict) {
		return err
	}

	metrics.StoreConflicts.Inc()
	fresh, getErr := e.store.Get(ctx, conv.OrgID, conv.ID)
	if getErr != nil {
		return getErr
	}
	applyTurn(fresh, turn)
	if err := e.store.Update(ctx, fresh); err != nil {
		return err
	}
	*conv = *fresh
	return nil
}

func applyTurn(conv *Conversation, turn TurnResult) {
	conv.Turns = append(conv.Turns, turn)
	conv.TotalTurns = len(conv.Turns)
	conv.KnownFields = conv.KnownFields.Merge(turn.Extracted, firstCategory(turn.Categories))
}

func (e *Engine) fireBooking(ctx context.Context, orgID string, conv *Conversation, turn TurnResult) {
	if e.booking == nil {
		return
	}
	// Booking failures never fail the turn: the customer already has their
	// reply, the office follows up from the log.
	if err := e.booking.TriggerBooking(ctx, orgID, conv, turn); err != nil {
		e.logger.Error("booking trigger failed",
			slog.String("conversation_id", conv.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) lockConversation(orgID, conversationID string) func() {
	key := orgID + "/" + conversationID
	muIface, _ := e.locks.LoadOrStore(key, &sync.Mutex{})
	mu := muIface.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func buildHistory(conv *Conversation, maxTurns int) []ChatMessage {
	turns := conv.Turns
	if len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	history := make([]ChatMessage, 0, len(turns)*2)
	for _, turn := range turns {
		history = append(history,
			ChatMessage{Role: RoleUser, Content: turn.CustomerMessage},
			ChatMessage{Role: RoleAssistant, Content: turn.Text},
		)
	}
	return history
}

func firstCategory(categories []string) string {
	if len(categories) == 0 {
		return CategoryGeneral
	}
	return categories[0]
}
