package gemini

import (
	"context"
	"fmt"

	"subchapter-tutor-be/pkg/llm"

	"google.golang.org/genai"
)

const providerName = "gemini"

type GeminiProvider struct {
	client    *genai.Client
	modelName string
}

// Ensure GeminiProvider implements Gateway
var _ llm.Gateway = &GeminiProvider{}

func NewGeminiProvider(ctx context.Context, apiKey, modelName string) (*GeminiProvider, error) {
	return NewGeminiProviderWithConfig(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, modelName)
}

// NewGeminiProviderWithConfig allows overriding the endpoint, used by tests.
func NewGeminiProviderWithConfig(ctx context.Context, cfg *genai.ClientConfig, modelName string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiProvider{client: client, modelName: modelName}, nil
}

func (p *GeminiProvider) OpenDialogue(ctx context.Context, systemInstruction string, history []llm.Message, options ...llm.Option) (llm.Dialogue, error) {
	opts := llm.Apply(options...)

	model := p.modelName
	if opts.Model != "" {
		model = opts.Model
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(opts.Temperature)),
		TopP:             genai.Ptr(float32(opts.TopP)),
		TopK:             genai.Ptr(float32(opts.TopK)),
		MaxOutputTokens:  int32(opts.MaxTokens),
		ResponseMIMEType: opts.ResponseMIMEType,
	}
	if systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := genai.Role(genai.RoleUser)
		if msg.Role == llm.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}

	chat, err := p.client.Chats.Create(ctx, model, config, contents)
	if err != nil {
		return nil, llm.NewGatewayError(providerName, "open dialogue", err)
	}
	return &dialogue{chat: chat}, nil
}

type dialogue struct {
	chat *genai.Chat
}

func (d *dialogue) Send(ctx context.Context, text string) (string, error) {
	resp, err := d.chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return "", llm.NewGatewayError(providerName, "send", err)
	}
	return resp.Text(), nil
}
