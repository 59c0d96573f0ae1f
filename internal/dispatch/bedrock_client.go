package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
	ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error)
}

// BedrockClient is the fast backend: low-latency Converse calls against a
// small Anthropic model on Bedrock.
type BedrockClient struct {
	api     bedrockConverseAPI
	modelID string
}

func NewBedrockClient(api bedrockConverseAPI, modelID string) *BedrockClient {
	if api == nil {
		panic("dispatch: bedrock converse client cannot be nil")
	}
	if strings.TrimSpace(modelID) == "" {
		panic("dispatch: bedrock model id cannot be empty")
	}
	return &BedrockClient{api: api, modelID: modelID}
}

func (c *BedrockClient) ModelID() string { return c.modelID }

func (c *BedrockClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	system, messages, err := bedrockInput(req)
	if err != nil {
		return LLMResponse{}, err
	}

	out, err := c.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:         aws.String(c.modelID),
		System:          system,
		Messages:        messages,
		InferenceConfig: bedrockInference(req),
	})
	if err != nil {
		return LLMResponse{}, err
	}

	text, err := bedrockOutputText(out)
	if err != nil {
		return LLMResponse{}, err
	}

	resp := LLMResponse{Text: strings.TrimSpace(text)}
	if out.Usage != nil {
		resp.Usage = TokenUsage{
			InputTokens:  int(int32OrZero(out.Usage.InputTokens)),
			OutputTokens: int(int32OrZero(out.Usage.OutputTokens)),
		}
	}
	return resp, nil
}

// CompleteStream streams partial text via Bedrock's ConverseStream API. The
// channel is closed after the terminal chunk; usage arrives on that chunk.
func (c *BedrockClient) CompleteStream(ctx context.Context, req LLMRequest) (<-chan StreamChunk, error) {
	system, messages, err := bedrockInput(req)
	if err != nil {
		return nil, err
	}

	out, err := c.api.ConverseStream(ctx, &bedrockruntime.ConverseStreamInput{
		ModelId:         aws.String(c.modelID),
		System:          system,
		Messages:        messages,
		InferenceConfig: bedrockInference(req),
	})
	if err != nil {
		return nil, err
	}

	chunks := make(chan StreamChunk, 32)

	go func() {
		defer close(chunks)

		stream := out.GetStream()
		if stream == nil {
			chunks <- StreamChunk{Err: errors.New("dispatch: bedrock stream is nil"), Done: true}
			return
		}
		defer stream.Close()

		var usage TokenUsage
		for event := range stream.Events() {
			switch v := event.(type) {
			case *brtypes.ConverseStreamOutputMemberContentBlockDelta:
				if textDelta, ok := v.Value.Delta.(*brtypes.ContentBlockDeltaMemberText); ok {
					chunks <- StreamChunk{Text: textDelta.Value}
				}
			case *brtypes.ConverseStreamOutputMemberMetadata:
				if v.Value.Usage != nil {
					usage = TokenUsage{
						InputTokens:  int(int32OrZero(v.Value.Usage.InputTokens)),
						OutputTokens: int(int32OrZero(v.Value.Usage.OutputTokens)),
					}
				}
			}
		}

		if err := stream.Err(); err != nil {
			chunks <- StreamChunk{Err: err, Done: true}
			return
		}
		chunks <- StreamChunk{Done: true, Usage: usage}
	}()

	return chunks, nil
}

func bedrockInput(req LLMRequest) ([]brtypes.SystemContentBlock, []brtypes.Message, error) {
	var system []brtypes.SystemContentBlock
	if strings.TrimSpace(req.System) != "" {
		system = append(system, &brtypes.SystemContentBlockMemberText{Value: req.System})
	}

	messages := make([]brtypes.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		switch msg.Role {
		case RoleSystem:
			system = append(system, &brtypes.SystemContentBlockMemberText{Value: content})
		case RoleUser:
			messages = append(messages, brtypes.Message{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: content},
				},
			})
		case RoleAssistant:
			messages = append(messages, brtypes.Message{
				Role: brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: content},
				},
			})
		default:
			return nil, nil, fmt.Errorf("dispatch: unsupported role %q", msg.Role)
		}
	}
	return system, messages, nil
}

func bedrockInference(req LLMRequest) *brtypes.InferenceConfiguration {
	inference := &brtypes.InferenceConfiguration{}
	if req.MaxTokens > 0 {
		inference.MaxTokens = aws.Int32(int32(req.MaxTokens))
	}
	if req.Temperature > 0 {
		inference.Temperature = aws.Float32(req.Temperature)
	}
	if inference.MaxTokens == nil && inference.Temperature == nil {
		return nil
	}
	return inference
}

func bedrockOutputText(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil {
		return "", errors.New("dispatch: bedrock response is nil")
	}
	msgOut, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("dispatch: bedrock response did not include a message output")
	}
	if len(msgOut.Value.Content) == 0 {
		return "", errors.New("dispatch: bedrock response message was empty")
	}

	var builder strings.Builder
	for _, block := range msgOut.Value.Content {
		if textBlock, ok := block.(*brtypes.ContentBlockMemberText); ok {
			builder.WriteString(textBlock.Value)
		}
	}
	if strings.TrimSpace(builder.String()) == "" {
		return "", errors.New("dispatch: bedrock response contained no text content blocks")
	}
	return builder.String(), nil
}

func int32OrZero(v *int32) int32 {
	if v == nil {
		return 0
	}
	return *v
}
