// Package openai implements tts.InstructedSynthesizer with the OpenAI speech
// API. gpt-4o-mini-tts honors the instructions; older models ignore them.
package openai

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/nadzzz/voicetone/internal/config"
	"github.com/nadzzz/voicetone/internal/tts"
)

// Synthesizer renders text through OpenAI speech.
type Synthesizer struct {
	client oai.Client
	model  string
	voice  string
	format string
}

// New creates an OpenAI synthesizer.
func New(creds config.OpenAIConfig, cfg config.OpenAITTSConfig) (*Synthesizer, error) {
	if creds.APIKey == "" {
		return nil, fmt.Errorf("openai: api key must not be empty")
	}
	opts := []option.RequestOption{option.WithAPIKey(creds.APIKey)}
	if creds.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(creds.BaseURL))
	}
	s := &Synthesizer{
		client: oai.NewClient(opts...),
		model:  cfg.Model,
		voice:  cfg.Voice,
		format: cfg.Format,
	}
	if s.model == "" {
		s.model = string(oai.SpeechModelGPT4oMiniTTS)
	}
	if s.voice == "" {
		s.voice = "nova"
	}
	if s.format == "" {
		s.format = "mp3"
	}
	return s, nil
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "openai" }

// Voice returns the configured default voice.
func (s *Synthesizer) Voice() string { return s.voice }

// Synthesize renders text. opts.Voice overrides the configured voice.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.InstructOpts) (*tts.Result, error) {
	voice := s.voice
	if opts.Voice != "" {
		voice = opts.Voice
	}
	params := oai.AudioSpeechNewParams{
		Input:          text,
		Model:          oai.SpeechModel(s.model),
		Voice:          oai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormat(s.format),
	}
	if opts.Instructions != "" {
		params.Instructions = oai.String(opts.Instructions)
	}

	start := time.Now()
	resp, err := s.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("openai speech failed (status %d): %s", resp.StatusCode, body)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading speech: %w", err)
	}

	slog.Debug("synthesis complete", "backend", "openai", "voice", voice, "bytes", len(audio))
	return &tts.Result{
		Audio:       audio,
		ContentType: contentType(s.format),
		Duration:    time.Since(start),
	}, nil
}

// Close is a no-op.
func (s *Synthesizer) Close() error { return nil }

func contentType(format string) string {
	switch format {
	case "wav":
		return "audio/wav"
	case "opus":
		return "audio/ogg"
	case "aac":
		return "audio/aac"
	case "flac":
		return "audio/flac"
	case "pcm":
		return "audio/L16"
	default:
		return "audio/mpeg"
	}
}

var _ tts.InstructedSynthesizer = (*Synthesizer)(nil)
