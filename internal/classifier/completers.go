package classifier

import (
	"context"
	"fmt"
	"strings"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// ─── OpenAI-compatible (local) ───────────────────────────────────────────────

// OpenAICompleter talks to any OpenAI-compatible chat endpoint, such as a
// local Ollama or vLLM server.
type OpenAICompleter struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAICompleter builds a completer for baseURL. apiKey may be empty for
// local endpoints.
func NewOpenAICompleter(baseURL, model, apiKey string, maxTokens int) (*OpenAICompleter, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("openai completer: base url is required")
	}
	if model == "" {
		return nil, fmt.Errorf("openai completer: model is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	return &OpenAICompleter{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

func (c *OpenAICompleter) Name() string { return "openai:" + c.model }

func (c *OpenAICompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// ─── Anthropic (remote) ──────────────────────────────────────────────────────

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

type AnthropicCompleter struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicCompleter builds a completer for the Anthropic Messages API.
// opts are passed to the client, e.g. anthropic.WithBaseURL in tests.
func NewAnthropicCompleter(apiKey, model string, maxTokens int, opts ...anthropic.ClientOption) (*AnthropicCompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic completer: api key is required")
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicCompleter{
		client:    anthropic.NewClient(apiKey, opts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

func (c *AnthropicCompleter) Name() string { return "anthropic:" + c.model }

func (c *AnthropicCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    system,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		return "", err
	}
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			return *block.Text, nil
		}
	}
	return "", fmt.Errorf("no text block in response")
}

// ─── Gemini (remote) ─────────────────────────────────────────────────────────

const defaultGeminiModel = "gemini-2.5-flash"

type GeminiCompleter struct {
	client    *genai.Client
	model     string
	maxTokens int
}

func NewGeminiCompleter(ctx context.Context, apiKey, model string, maxTokens int) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini completer: api key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini completer: %w", err)
	}
	return &GeminiCompleter{client: client, model: model, maxTokens: maxTokens}, nil
}

func (c *GeminiCompleter) Name() string { return "gemini:" + c.model }

func (c *GeminiCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			MaxOutputTokens:   int32(c.maxTokens),
		})
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response")
	}
	return text, nil
}
