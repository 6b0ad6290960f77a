// Package google implements stt.Transcriber with Google Cloud Speech-to-Text.
//
// The first candidate language is the primary recognition language; the
// others are sent as alternatives so the service picks the spoken one.
package google

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"github.com/nadzzz/voicetone/internal/config"
	"github.com/nadzzz/voicetone/internal/stt"
)

// recognizer is the part of speech.Client the transcriber uses.
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

// Transcriber calls Google Cloud Speech.
type Transcriber struct {
	client     recognizer
	model      string
	sampleRate int32
}

// New creates a Google Cloud Speech client. It relies on Application Default
// Credentials unless a credentials file is configured.
func New(ctx context.Context, cfg config.GoogleSTTConfig) (*Transcriber, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return newWithClient(client, cfg), nil
}

func newWithClient(client recognizer, cfg config.GoogleSTTConfig) *Transcriber {
	return &Transcriber{client: client, model: cfg.Model, sampleRate: int32(cfg.SampleRate)}
}

// Name returns the backend identifier.
func (t *Transcriber) Name() string { return "google" }

// Transcribe runs a synchronous recognition over the whole recording.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, contentType string, opts stt.Options) (*stt.Result, error) {
	rc := &speechpb.RecognitionConfig{
		Encoding:                   encoding(contentType),
		Model:                      t.model,
		EnableAutomaticPunctuation: true,
	}
	// WAV and FLAC carry their sample rate in the header.
	if rc.Encoding != speechpb.RecognitionConfig_LINEAR16 && rc.Encoding != speechpb.RecognitionConfig_FLAC {
		rc.SampleRateHertz = t.sampleRate
	}
	if len(opts.Languages) > 0 {
		rc.LanguageCode = opts.Languages[0]
		rc.AlternativeLanguageCodes = opts.Languages[1:]
	}
	if opts.Prompt != "" {
		rc.SpeechContexts = []*speechpb.SpeechContext{{Phrases: strings.Fields(opts.Prompt)}}
	}

	start := time.Now()
	resp, err := t.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: rc,
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	})
	if err != nil {
		return nil, fmt.Errorf("google recognize: %w", err)
	}

	var parts []string
	var detected string
	for _, r := range resp.GetResults() {
		if alts := r.GetAlternatives(); len(alts) > 0 {
			parts = append(parts, strings.TrimSpace(alts[0].GetTranscript()))
		}
		if detected == "" {
			detected = r.GetLanguageCode()
		}
	}
	text := strings.Join(parts, " ")
	lang := stt.NormalizeLanguage(detected, opts.Languages)

	slog.Debug("transcription complete", "backend", "google", "text_length", len(text), "language", lang)
	return &stt.Result{
		Text:     text,
		Language: lang,
		Duration: time.Since(start),
	}, nil
}

// Close releases the gRPC connection.
func (t *Transcriber) Close() error { return t.client.Close() }

func encoding(contentType string) speechpb.RecognitionConfig_AudioEncoding {
	switch stt.ExtFromContentType(contentType) {
	case ".wav":
		return speechpb.RecognitionConfig_LINEAR16
	case ".flac":
		return speechpb.RecognitionConfig_FLAC
	case ".ogg":
		return speechpb.RecognitionConfig_OGG_OPUS
	case ".webm":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

var _ stt.Transcriber = (*Transcriber)(nil)
