package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// InvokeResult is the interpreted outcome of one backend call.
type InvokeResult struct {
	// ReplyText is the customer-facing reply with the trailer stripped.
	ReplyText string
	// Hint is the parsed structured trailer, nil when absent or unparseable.
	Hint  *StructuredHint
	Usage TokenUsage
	Model string
}

// ChunkSink receives partial reply text during a streamed invocation. It is
// called from the invoker's goroutine; implementations must not block long.
type ChunkSink func(text string)

// Invoker runs backend completions under a deadline and maps raw failures to
// the engine's typed errors.
type Invoker struct {
	timeout time.Duration
}

func NewInvoker(timeout time.Duration) *Invoker {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &Invoker{timeout: timeout}
}

// Invoke runs one buffered completion. Failures are classified:
// deadline expiry becomes ErrBackendTimeout, transport or service errors
// become ErrBackendUpstream, an empty or unusable reply becomes
// ErrMalformedOutput. A cancellation from the caller keeps
// context.Canceled in its chain.
func (inv *Invoker) Invoke(ctx context.Context, client LLMClient, req LLMRequest) (InvokeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	resp, err := client.Complete(ctx, req)
	if err != nil {
		return InvokeResult{}, classifyBackendError(err)
	}

	reply, hint := SplitHint(resp.Text)
	if strings.TrimSpace(reply) == "" {
		return InvokeResult{}, fmt.Errorf("%w: empty reply", ErrMalformedOutput)
	}
	return InvokeResult{
		ReplyText: reply,
		Hint:      hint,
		Usage:     resp.Usage,
		Model:     client.ModelID(),
	}, nil
}

// InvokeStream runs a streamed completion, forwarding partial reply text to
// sink while buffering the full output. The structured trailer is held back
// from the sink so the marker never reaches the customer. The buffered
// result is interpreted exactly like a non-streamed invocation.
func (inv *Invoker) InvokeStream(ctx context.Context, client StreamingLLMClient, req LLMRequest, sink ChunkSink) (InvokeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	chunks, err := client.CompleteStream(ctx, req)
	if err != nil {
		return InvokeResult{}, classifyBackendError(err)
	}

	var full strings.Builder
	var usage TokenUsage
	suppress := newHintSuppressor(sink)

	for {
		select {
		case <-ctx.Done():
			return InvokeResult{}, classifyBackendError(ctx.Err())
		case chunk, ok := <-chunks:
			if !ok {
				return inv.finishStream(full.String(), usage, client.ModelID())
			}
			if chunk.Err != nil {
				return InvokeResult{}, classifyBackendError(chunk.Err)
			}
			if chunk.Text != "" {
				full.WriteString(chunk.Text)
				suppress.Write(chunk.Text)
			}
			if chunk.Done {
				usage = chunk.Usage
			}
		}
	}
}

func (inv *Invoker) finishStream(raw string, usage TokenUsage, model string) (InvokeResult, error) {
	reply, hint := SplitHint(raw)
	if strings.TrimSpace(reply) == "" {
		return InvokeResult{}, fmt.Errorf("%w: empty reply", ErrMalformedOutput)
	}
	return InvokeResult{ReplyText: reply, Hint: hint, Usage: usage, Model: model}, nil
}

func classifyBackendError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
	case errors.Is(err, context.Canceled):
		// Caller abandoned the request. Keep the cancellation visible so
		// the engine aborts the turn instead of serving a fallback.
		return fmt.Errorf("dispatch: invocation cancelled: %w", err)
	case errors.Is(err, ErrMalformedOutput):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrBackendUpstream, err)
	}
}

// hintSuppressor forwards streamed text to a sink while withholding any
// suffix that could be the start of the trailer marker. Once the full marker
// is seen, everything after it is swallowed.
type hintSuppressor struct {
	sink    ChunkSink
	pending string
	stopped bool
}

func newHintSuppressor(sink ChunkSink) *hintSuppressor {
	return &hintSuppressor{sink: sink}
}

func (s *hintSuppressor) Write(text string) {
	if s.stopped || s.sink == nil {
		return
	}
	buf := s.pending + text

	if idx := strings.Index(buf, hintMarker); idx >= 0 {
		if idx > 0 {
			s.sink(buf[:idx])
		}
		s.stopped = true
		s.pending = ""
		return
	}

	// Hold back the longest tail that is a prefix of the marker.
	hold := 0
	for n := min(len(hintMarker)-1, len(buf)); n > 0; n-- {
		if strings.HasSuffix(buf, hintMarker[:n]) {
			hold = n
			break
		}
	}
	if flush := buf[:len(buf)-hold]; flush != "" {
		s.sink(flush)
	}
	s.pending = buf[len(buf)-hold:]
}
