// Package local implements llm.Generator for self-hosted models.
//
// It speaks Ollama's /api/generate format when the endpoint ends in
// /api/generate, and the OpenAI-compatible /v1/chat/completions format
// otherwise (Ollama, vLLM, llama.cpp server).
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nadzzz/voicetone/internal/config"
	"github.com/nadzzz/voicetone/internal/llm"
)

// Generator calls a self-hosted LLM endpoint.
type Generator struct {
	endpoint string
	model    string
	client   *http.Client
}

// New creates a local generator from config.
func New(cfg config.LocalLLMConfig) *Generator {
	model := cfg.Model
	if model == "" {
		model = "llama3"
	}
	return &Generator{
		endpoint: cfg.Endpoint,
		model:    model,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}
}

// Name returns the backend identifier.
func (g *Generator) Name() string { return "local" }

// Generate sends the prompt to the local endpoint and asks for JSON output.
func (g *Generator) Generate(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	var body map[string]any
	if g.ollama() {
		options := map[string]any{}
		if req.Temperature != 0 {
			options["temperature"] = req.Temperature
		}
		if req.MaxTokens > 0 {
			options["num_predict"] = req.MaxTokens
		}
		body = map[string]any{
			"model":   g.model,
			"system":  req.SystemPrompt,
			"prompt":  req.UserText,
			"stream":  false,
			"format":  "json",
			"options": options,
		}
	} else {
		body = map[string]any{
			"model": g.model,
			"messages": []map[string]string{
				{"role": "system", "content": req.SystemPrompt},
				{"role": "user", "content": req.UserText},
			},
			"response_format": map[string]string{"type": "json_object"},
			"stream":          false,
		}
		if req.Temperature != 0 {
			body["temperature"] = req.Temperature
		}
		if req.MaxTokens > 0 {
			body["max_tokens"] = req.MaxTokens
		}
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("local LLM request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("local LLM failed (status %d): %s", resp.StatusCode, respBody)
	}

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading LLM response: %w", err)
	}

	content, tokens := extractContent(respData)
	slog.Debug("local generation complete", "model", g.model, "chars", len(content), "tokens", tokens)
	return &llm.Completion{
		Content:  content,
		Tokens:   tokens,
		Duration: time.Since(start),
	}, nil
}

// Close is a no-op for the local generator.
func (g *Generator) Close() error { return nil }

func (g *Generator) ollama() bool { return strings.HasSuffix(g.endpoint, "/api/generate") }

// extractContent pulls the message text and token usage out of either
// response format. Unknown bodies are returned verbatim.
func extractContent(data []byte) (string, int64) {
	// OpenAI-compatible: {"choices": [{"message": {"content": "..."}}], "usage": {...}}
	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int64 `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(data, &chatResp); err == nil && len(chatResp.Choices) > 0 {
		return chatResp.Choices[0].Message.Content, chatResp.Usage.TotalTokens
	}

	// Ollama: {"response": "...", "prompt_eval_count": n, "eval_count": m}
	var ollamaResp struct {
		Response        string `json:"response"`
		PromptEvalCount int64  `json:"prompt_eval_count"`
		EvalCount       int64  `json:"eval_count"`
	}
	if err := json.Unmarshal(data, &ollamaResp); err == nil && ollamaResp.Response != "" {
		return ollamaResp.Response, ollamaResp.PromptEvalCount + ollamaResp.EvalCount
	}

	return string(data), 0
}

var _ llm.Generator = (*Generator)(nil)
