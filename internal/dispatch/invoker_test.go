package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLMClient struct {
	text   string
	err    error
	delay  time.Duration
	chunks []string
}

func (f *fakeLLMClient) ModelID() string { return "fake-model" }

func (f *fakeLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return LLMResponse{}, ctx.Err()
		}
	}
	if f.err != nil {
		return LLMResponse{}, f.err
	}
	return LLMResponse{Text: f.text, Usage: TokenUsage{InputTokens: 10, OutputTokens: 20}}, nil
}

func (f *fakeLLMClient) CompleteStream(ctx context.Context, req LLMRequest) (<-chan StreamChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(chan StreamChunk, len(f.chunks)+1)
	go func() {
		defer close(out)
		for _, chunk := range f.chunks {
			out <- StreamChunk{Text: chunk}
		}
		out <- StreamChunk{Done: true, Usage: TokenUsage{InputTokens: 10, OutputTokens: 20}}
	}()
	return out, nil
}

func TestInvokeParsesHint(t *testing.T) {
	client := &fakeLLMClient{
		text: "Hier is het antwoord.\n" + hintMarker + ` {"urgency":"high","request_booking":true}`,
	}
	inv := NewInvoker(time.Second)

	result, err := inv.Invoke(context.Background(), client, LLMRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Hier is het antwoord.", result.ReplyText)
	require.NotNil(t, result.Hint)
	assert.Equal(t, "high", result.Hint.Urgency)
	assert.Equal(t, "fake-model", result.Model)
	assert.Equal(t, 20, result.Usage.OutputTokens)
}

func TestInvokeTimeoutIsTyped(t *testing.T) {
	client := &fakeLLMClient{text: "late", delay: 500 * time.Millisecond}
	inv := NewInvoker(20 * time.Millisecond)

	_, err := inv.Invoke(context.Background(), client, LLMRequest{})
	assert.ErrorIs(t, err, ErrBackendTimeout)
}

func TestInvokeCancellationIsNotATimeout(t *testing.T) {
	client := &fakeLLMClient{text: "late", delay: time.Second}
	inv := NewInvoker(10 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := inv.Invoke(ctx, client, LLMRequest{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrBackendTimeout)
}

func TestInvokeUpstreamErrorIsTyped(t *testing.T) {
	client := &fakeLLMClient{err: errors.New("throttled")}
	inv := NewInvoker(time.Second)

	_, err := inv.Invoke(context.Background(), client, LLMRequest{})
	assert.ErrorIs(t, err, ErrBackendUpstream)
}

func TestInvokeEmptyReplyIsMalformed(t *testing.T) {
	client := &fakeLLMClient{text: hintMarker + ` {"urgency":"low"}`}
	inv := NewInvoker(time.Second)

	_, err := inv.Invoke(context.Background(), client, LLMRequest{})
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestInvokeStreamBuffersAndForwards(t *testing.T) {
	client := &fakeLLMClient{chunks: []string{"Hallo ", "daar", "!"}}
	inv := NewInvoker(time.Second)

	var streamed strings.Builder
	result, err := inv.InvokeStream(context.Background(), client, LLMRequest{}, func(text string) {
		streamed.WriteString(text)
	})
	require.NoError(t, err)
	assert.Equal(t, "Hallo daar!", result.ReplyText)
	assert.Equal(t, "Hallo daar!", streamed.String())
}

func TestInvokeStreamHintNeverReachesSink(t *testing.T) {
	// The marker arrives split across chunk boundaries.
	client := &fakeLLMClient{chunks: []string{
		"Het antwoord.", "\n##", "#DISP", "ATCH###", ` {"urgency":"low"}`,
	}}
	inv := NewInvoker(time.Second)

	var streamed strings.Builder
	result, err := inv.InvokeStream(context.Background(), client, LLMRequest{}, func(text string) {
		streamed.WriteString(text)
	})
	require.NoError(t, err)
	assert.Equal(t, "Het antwoord.", result.ReplyText)
	assert.NotContains(t, streamed.String(), "#")
	assert.NotContains(t, streamed.String(), "DISPATCH")
	require.NotNil(t, result.Hint)
	assert.Equal(t, "low", result.Hint.Urgency)
}

func TestInvokeStreamErrorChunkIsTyped(t *testing.T) {
	client := &streamErrClient{}
	inv := NewInvoker(time.Second)

	_, err := inv.InvokeStream(context.Background(), client, LLMRequest{}, nil)
	assert.ErrorIs(t, err, ErrBackendUpstream)
}

type streamErrClient struct{}

func (s *streamErrClient) ModelID() string { return "stream-err" }

func (s *streamErrClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	return LLMResponse{}, errors.New("not implemented")
}

func (s *streamErrClient) CompleteStream(ctx context.Context, req LLMRequest) (<-chan StreamChunk, error) {
	out := make(chan StreamChunk, 2)
	out <- StreamChunk{Text: "partial"}
	out <- StreamChunk{Err: errors.New("connection reset"), Done: true}
	close(out)
	return out, nil
}
