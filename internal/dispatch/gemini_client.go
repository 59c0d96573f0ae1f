package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiClient is the deep backend: slower, more deliberate completions for
// scheduling questions and advice requests.
type GeminiClient struct {
	client  *genai.Client
	modelID string
}

func NewGeminiClient(ctx context.Context, apiKey, modelID string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("dispatch: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-pro"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("dispatch: failed to create gemini client: %w", err)
	}
	return &GeminiClient{client: client, modelID: modelID}, nil
}

func (c *GeminiClient) ModelID() string { return c.modelID }

func (c *GeminiClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	cs, last, err := c.chatSession(req)
	if err != nil {
		return LLMResponse{}, err
	}

	resp, err := cs.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return LLMResponse{}, fmt.Errorf("dispatch: gemini completion failed: %w", err)
	}

	text, err := geminiCandidateText(resp)
	if err != nil {
		return LLMResponse{}, err
	}

	result := LLMResponse{Text: strings.TrimSpace(text)}
	if resp.UsageMetadata != nil {
		result.Usage = TokenUsage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return result, nil
}

// CompleteStream streams partial text from Gemini. Errors from the iterator
// surface on the terminal chunk.
func (c *GeminiClient) CompleteStream(ctx context.Context, req LLMRequest) (<-chan StreamChunk, error) {
	cs, last, err := c.chatSession(req)
	if err != nil {
		return nil, err
	}

	iter := cs.SendMessageStream(ctx, genai.Text(last.Content))
	chunks := make(chan StreamChunk, 32)

	go func() {
		defer close(chunks)

		var usage TokenUsage
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				break
			}
			if err != nil {
				chunks <- StreamChunk{Err: fmt.Errorf("dispatch: gemini stream failed: %w", err), Done: true}
				return
			}
			if text, err := geminiCandidateText(resp); err == nil && text != "" {
				chunks <- StreamChunk{Text: text}
			}
			if resp.UsageMetadata != nil {
				usage = TokenUsage{
					InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
					OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
				}
			}
		}
		chunks <- StreamChunk{Done: true, Usage: usage}
	}()

	return chunks, nil
}

func (c *GeminiClient) chatSession(req LLMRequest) (*genai.ChatSession, ChatMessage, error) {
	if len(req.Messages) == 0 {
		return nil, ChatMessage{}, errors.New("dispatch: gemini requires at least one message")
	}

	model := c.client.GenerativeModel(c.modelID)
	if req.Temperature > 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if strings.TrimSpace(req.System) != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}

	cs := model.StartChat()
	for _, msg := range req.Messages[:len(req.Messages)-1] {
		content := strings.TrimSpace(msg.Content)
		if content == "" || msg.Role == RoleSystem {
			continue
		}
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(content)},
		})
	}

	return cs, req.Messages[len(req.Messages)-1], nil
}

func geminiCandidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("dispatch: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("dispatch: gemini returned empty content")
	}

	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			builder.WriteString(string(text))
		}
	}
	return builder.String(), nil
}

// Close releases the underlying API connection.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
