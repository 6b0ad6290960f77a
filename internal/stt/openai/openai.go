// Package openai implements stt.Transcriber with the OpenAI Audio
// Transcriptions API (whisper-1, gpt-4o-transcribe).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/nadzzz/voicetone/internal/config"
	"github.com/nadzzz/voicetone/internal/stt"
)

// Transcriber sends recordings to OpenAI.
type Transcriber struct {
	client oai.Client
	model  string
}

// New creates an OpenAI transcriber.
func New(creds config.OpenAIConfig, cfg config.OpenAISTTConfig) (*Transcriber, error) {
	if creds.APIKey == "" {
		return nil, fmt.Errorf("openai: api key must not be empty")
	}
	opts := []option.RequestOption{option.WithAPIKey(creds.APIKey)}
	if creds.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(creds.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = string(oai.AudioModelWhisper1)
	}
	return &Transcriber{client: oai.NewClient(opts...), model: model}, nil
}

// Name returns the backend identifier.
func (t *Transcriber) Name() string { return "openai" }

// Transcribe uploads audio and reads the detected language from the verbose
// JSON response. Only whisper-1 returns verbose JSON; the gpt-4o models
// answer in plain JSON without a language, in which case the first candidate
// is assumed.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, contentType string, opts stt.Options) (*stt.Result, error) {
	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(audio), "audio"+stt.ExtFromContentType(contentType), contentType),
		Model: oai.AudioModel(t.model),
	}
	if t.model == string(oai.AudioModelWhisper1) {
		params.ResponseFormat = oai.AudioResponseFormatVerboseJSON
	} else {
		params.ResponseFormat = oai.AudioResponseFormatJSON
	}
	if opts.Prompt != "" {
		params.Prompt = oai.String(opts.Prompt)
	}

	start := time.Now()
	res, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	var verbose struct {
		Language string `json:"language"`
	}
	if raw := res.RawJSON(); raw != "" {
		_ = json.Unmarshal([]byte(raw), &verbose)
	}
	lang := stt.NormalizeLanguage(verbose.Language, opts.Languages)

	slog.Debug("transcription complete", "backend", "openai", "text_length", len(res.Text), "language", lang)
	return &stt.Result{
		Text:     res.Text,
		Language: lang,
		Duration: time.Since(start),
	}, nil
}

// Close is a no-op.
func (t *Transcriber) Close() error { return nil }

var _ stt.Transcriber = (*Transcriber)(nil)
