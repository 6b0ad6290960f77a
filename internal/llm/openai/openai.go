// Package openai implements llm.Generator with the OpenAI Chat Completions
// API. The same client talks to Azure OpenAI deployments when built with
// NewAzure.
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/nadzzz/voicetone/internal/config"
	"github.com/nadzzz/voicetone/internal/llm"
)

// Generator asks a chat model for a JSON reply.
type Generator struct {
	client oai.Client
	model  string
	name   string
}

// New creates a Generator for the public OpenAI API.
func New(cfg config.OpenAIConfig, model string) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api key must not be empty")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Generator{client: oai.NewClient(opts...), model: model, name: "openai"}, nil
}

// NewAzure creates a Generator for an Azure OpenAI deployment.
func NewAzure(cfg config.AzureConfig, deployment string) (*Generator, error) {
	if cfg.OpenAIEndpoint == "" || cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("azure openai: endpoint and key must be set")
	}
	client := oai.NewClient(
		azure.WithEndpoint(cfg.OpenAIEndpoint, cfg.OpenAIAPIVersion),
		azure.WithAPIKey(cfg.OpenAIKey),
	)
	return &Generator{client: client, model: deployment, name: "azure-openai"}, nil
}

// Name returns the backend identifier.
func (g *Generator) Name() string { return g.name }

// Generate runs one chat completion in JSON mode.
func (g *Generator) Generate(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(req.SystemPrompt),
			oai.UserMessage(req.UserText),
		},
		ResponseFormat: oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if req.Temperature != 0 {
		params.Temperature = oai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = oai.Int(int64(req.MaxTokens))
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s: chat completion: %w", g.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: no choices returned", g.name)
	}

	content := resp.Choices[0].Message.Content
	slog.Debug("generation complete", "backend", g.name, "tokens", resp.Usage.TotalTokens, "chars", len(content))
	return &llm.Completion{
		Content:  content,
		Tokens:   resp.Usage.TotalTokens,
		Duration: time.Since(start),
	}, nil
}

// Close is a no-op.
func (g *Generator) Close() error { return nil }

var _ llm.Generator = (*Generator)(nil)
