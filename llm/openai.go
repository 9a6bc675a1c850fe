package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"bork/debug"
)

// OpenAIAdapter implements Adapter for the OpenAI API.
type OpenAIAdapter struct {
	client *openai.Client
	config AdapterConfig
}

// NewOpenAIAdapter creates a new OpenAI adapter.
func NewOpenAIAdapter(config AdapterConfig) *OpenAIAdapter {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	return &OpenAIAdapter{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

// Complete implements Adapter.Complete. The request asks for a JSON object
// response so the reply stays machine-extractable.
func (o *OpenAIAdapter) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	debug.LogRequest(o.config.Model, prompt)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ReasoningEffort: o.config.ReasoningEffort,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: OpenAI API error: %v", ErrUnreachable, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty completion", ErrRefused)
	}

	reply := resp.Choices[0].Message.Content
	debug.LogResponse(o.config.Model, reply)
	return reply, nil
}

// ModelName implements Adapter.ModelName.
func (o *OpenAIAdapter) ModelName() string {
	return o.config.Model
}

// Available implements Adapter.Available.
func (o *OpenAIAdapter) Available() bool {
	return o.config.APIKey != "" && o.config.Model != ""
}
