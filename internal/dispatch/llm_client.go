package dispatch

import "context"

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of model-visible conversation history.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// LLMRequest is a provider-neutral completion request.
type LLMRequest struct {
	System      string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float32
}

// TokenUsage reports the token accounting of one completion.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// LLMResponse is a provider-neutral completion result.
type LLMResponse struct {
	Text  string
	Usage TokenUsage
}

// StreamChunk is one incremental piece of a streamed completion. A chunk
// carries either text or a terminal state, never both. The final chunk has
// Done set; Usage is only populated on that chunk.
type StreamChunk struct {
	Text  string
	Done  bool
	Err   error
	Usage TokenUsage
}

// LLMClient is the minimal contract every model backend satisfies.
type LLMClient interface {
	// Complete runs one full completion and returns the buffered text.
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)

	// ModelID names the underlying model for logging and metrics.
	ModelID() string
}

// StreamingLLMClient is satisfied by backends that can deliver partial
// output. The returned channel is closed after the terminal chunk.
type StreamingLLMClient interface {
	LLMClient

	CompleteStream(ctx context.Context, req LLMRequest) (<-chan StreamChunk, error)
}
