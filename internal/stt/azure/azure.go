// Package azure implements stt.Transcriber with the Azure AI Speech fast
// transcription REST API. Candidate locales are sent with every request so
// the service identifies the spoken language.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/nadzzz/voicetone/internal/config"
	"github.com/nadzzz/voicetone/internal/stt"
)

const apiVersion = "2024-11-15"

// Transcriber calls the Azure Speech service.
type Transcriber struct {
	endpoint string
	key      string
	client   *http.Client
}

// New creates an Azure transcriber. azure.speech_endpoint, when set,
// replaces the region-derived host.
func New(cfg config.AzureConfig) *Transcriber {
	endpoint := cfg.SpeechEndpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.api.cognitive.microsoft.com", cfg.Region)
	}
	return &Transcriber{
		endpoint: strings.TrimRight(endpoint, "/"),
		key:      cfg.SpeechKey,
		client:   &http.Client{Timeout: time.Minute},
	}
}

// Name returns the backend identifier.
func (t *Transcriber) Name() string { return "azure" }

type definition struct {
	Locales []string `json:"locales,omitempty"`
}

type transcription struct {
	DurationMilliseconds int64 `json:"durationMilliseconds"`
	CombinedPhrases      []struct {
		Text string `json:"text"`
	} `json:"combinedPhrases"`
	Phrases []struct {
		Locale     string  `json:"locale"`
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"phrases"`
}

// Transcribe uploads the recording and returns the combined transcript.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, contentType string, opts stt.Options) (*stt.Result, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("audio", "audio"+stt.ExtFromContentType(contentType))
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("writing audio: %w", err)
	}
	def, err := json.Marshal(definition{Locales: opts.Languages})
	if err != nil {
		return nil, fmt.Errorf("marshalling definition: %w", err)
	}
	_ = writer.WriteField("definition", string(def))
	writer.Close()

	reqURL := t.endpoint + "/speechtotext/transcriptions:transcribe?api-version=" + apiVersion
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", t.key)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("azure transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("azure transcription failed (status %d): %s", resp.StatusCode, respBody)
	}

	var result transcription
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding transcription: %w", err)
	}

	var text []string
	for _, p := range result.CombinedPhrases {
		if s := strings.TrimSpace(p.Text); s != "" {
			text = append(text, s)
		}
	}
	var detected string
	if len(result.Phrases) > 0 {
		detected = result.Phrases[0].Locale
	}
	lang := stt.NormalizeLanguage(detected, opts.Languages)

	slog.Debug("transcription complete", "backend", "azure", "text_length", len(strings.Join(text, " ")), "language", lang)
	return &stt.Result{
		Text:     strings.Join(text, " "),
		Language: lang,
		Duration: time.Since(start),
	}, nil
}

// Close is a no-op.
func (t *Transcriber) Close() error { return nil }

var _ stt.Transcriber = (*Transcriber)(nil)
