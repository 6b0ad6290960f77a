// Package whisper implements stt.Transcriber for self-hosted Whisper servers.
//
// Two flavors are supported:
//   - "openai": OpenAI-compatible API (whisper.cpp server, faster-whisper)
//   - "asr":    ahmetoner/whisper-asr-webservice (POST /asr with query params)
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/nadzzz/voicetone/internal/config"
	"github.com/nadzzz/voicetone/internal/stt"
)

// Transcriber calls a Whisper endpoint.
type Transcriber struct {
	endpoint  string
	flavor    string
	model     string
	vadFilter bool
	client    *http.Client
}

// New creates a Whisper transcriber from config.
func New(cfg config.WhisperSTTConfig) *Transcriber {
	flavor := cfg.Type
	if flavor == "" {
		flavor = "openai"
	}
	return &Transcriber{
		endpoint:  cfg.Endpoint,
		flavor:    flavor,
		model:     cfg.Model,
		vadFilter: cfg.VADFilter,
		client:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// Name returns the backend identifier.
func (t *Transcriber) Name() string { return "whisper" }

// Transcribe sends audio to the Whisper endpoint. No language is forced so
// Whisper detects it; the result is mapped onto the candidates.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, contentType string, opts stt.Options) (*stt.Result, error) {
	var (
		req *http.Request
		err error
	)
	switch t.flavor {
	case "asr":
		req, err = t.asrRequest(ctx, audio, contentType, opts)
	default:
		req, err = t.openAIRequest(ctx, audio, contentType, opts)
	}
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("whisper transcription failed (status %d): %s", resp.StatusCode, respBody)
	}

	// Both flavors answer {"text": "...", "language": "..."} in verbose JSON.
	var result struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding transcription: %w", err)
	}

	lang := stt.NormalizeLanguage(result.Language, opts.Languages)
	slog.Debug("whisper transcription complete", "flavor", t.flavor, "text_length", len(result.Text), "language", lang)
	return &stt.Result{
		Text:     result.Text,
		Language: lang,
		Duration: time.Since(start),
	}, nil
}

// asrRequest builds a whisper-asr-webservice request.
// API: POST /asr?task=transcribe&output=json&vad_filter=true
// Body: multipart/form-data with field "audio_file"
func (t *Transcriber) asrRequest(ctx context.Context, audio []byte, contentType string, opts stt.Options) (*http.Request, error) {
	body, ct, err := multipartAudio("audio_file", audio, contentType, nil)
	if err != nil {
		return nil, err
	}

	q := make(url.Values)
	q.Set("task", "transcribe")
	q.Set("output", "json")
	q.Set("encode", "true")
	if opts.Prompt != "" {
		q.Set("initial_prompt", opts.Prompt)
	}
	if t.vadFilter {
		q.Set("vad_filter", "true")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+"?"+q.Encode(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", ct)
	return req, nil
}

// openAIRequest builds an OpenAI-compatible transcription request.
func (t *Transcriber) openAIRequest(ctx context.Context, audio []byte, contentType string, opts stt.Options) (*http.Request, error) {
	fields := map[string]string{"response_format": "verbose_json"}
	if t.model != "" {
		fields["model"] = t.model
	}
	if opts.Prompt != "" {
		fields["prompt"] = opts.Prompt
	}
	body, ct, err := multipartAudio("file", audio, contentType, fields)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", ct)
	return req, nil
}

func multipartAudio(field string, audio []byte, contentType string, fields map[string]string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(field, "audio"+stt.ExtFromContentType(contentType))
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("writing audio: %w", err)
	}
	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

// Close is a no-op.
func (t *Transcriber) Close() error { return nil }

var _ stt.Transcriber = (*Transcriber)(nil)
