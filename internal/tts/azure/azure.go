// Package azure implements tts.SSMLSynthesizer with the Azure AI Speech text
// to speech REST API.
package azure

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nadzzz/voicetone/internal/config"
	"github.com/nadzzz/voicetone/internal/tts"
)

// Synthesizer posts speech markup to Azure.
type Synthesizer struct {
	endpoint     string
	key          string
	outputFormat string
	client       *http.Client
}

// New creates an Azure synthesizer.
func New(creds config.AzureConfig, cfg config.AzureTTSConfig) *Synthesizer {
	endpoint := creds.SpeechEndpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.tts.speech.microsoft.com", creds.Region)
	}
	format := cfg.OutputFormat
	if format == "" {
		format = "audio-24khz-48kbitrate-mono-mp3"
	}
	return &Synthesizer{
		endpoint:     strings.TrimRight(endpoint, "/"),
		key:          creds.SpeechKey,
		outputFormat: format,
		client:       &http.Client{Timeout: time.Minute},
	}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "azure" }

// SynthesizeSSML renders document.
func (s *Synthesizer) SynthesizeSSML(ctx context.Context, document string) (*tts.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/cognitiveservices/v1", bytes.NewBufferString(document))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", s.outputFormat)
	req.Header.Set("User-Agent", "voicetone")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("azure synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("azure synthesis failed (status %d): %s", resp.StatusCode, respBody)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}

	slog.Debug("synthesis complete", "backend", "azure", "bytes", len(audio), "format", s.outputFormat)
	return &tts.Result{
		Audio:       audio,
		ContentType: contentType(s.outputFormat),
		Duration:    time.Since(start),
	}, nil
}

// Close is a no-op.
func (s *Synthesizer) Close() error { return nil }

// contentType maps an Azure output format name to a MIME type.
func contentType(format string) string {
	switch {
	case strings.HasSuffix(format, "mp3"):
		return "audio/mpeg"
	case strings.HasPrefix(format, "riff"):
		return "audio/wav"
	case strings.Contains(format, "opus"):
		return "audio/ogg"
	case strings.HasPrefix(format, "raw"):
		return "audio/L16"
	default:
		return "application/octet-stream"
	}
}

var _ tts.SSMLSynthesizer = (*Synthesizer)(nil)
