// Package stt defines the interface for speech-to-text transcription.
//
// voicetone ships with four backends: Azure Speech (REST), Google Cloud
// Speech, OpenAI transcriptions, and a self-hosted Whisper endpoint. Each
// reports the detected language so the reply can be spoken in the same
// language.
package stt

import (
	"context"
	"strings"
	"time"
)

// Options controls transcription behavior.
type Options struct {
	// Languages are the BCP-47 candidates for automatic language detection
	// (e.g., "en-US", "de-DE"). The first entry is the fallback.
	Languages []string

	// Prompt provides context to improve recognition of domain-specific terms.
	Prompt string
}

// Result holds the output of a transcription call.
type Result struct {
	// Text is the transcript. Empty if no speech was recognized.
	Text string

	// Language is the detected BCP-47 language tag.
	Language string

	// Duration is the time the collaborator took to answer.
	Duration time.Duration
}

// Transcriber converts audio to text.
type Transcriber interface {
	// Name returns the backend identifier (e.g., "azure", "openai").
	Name() string

	// Transcribe converts audio bytes to text.
	Transcribe(ctx context.Context, audio []byte, contentType string, opts Options) (*Result, error)

	// Close releases any resources held by the transcriber.
	Close() error
}

// ExtFromContentType maps an audio MIME type to a file extension for
// multipart uploads.
func ExtFromContentType(ct string) string {
	switch {
	case strings.Contains(ct, "wav"):
		return ".wav"
	case strings.Contains(ct, "ogg"):
		return ".ogg"
	case strings.Contains(ct, "mp3"), strings.Contains(ct, "mpeg"):
		return ".mp3"
	case strings.Contains(ct, "flac"):
		return ".flac"
	case strings.Contains(ct, "webm"):
		return ".webm"
	case strings.Contains(ct, "m4a"):
		return ".m4a"
	default:
		return ".wav"
	}
}

// languageNames maps full language names, as some Whisper servers report
// them, to ISO-639-1 codes.
var languageNames = map[string]string{
	"english":    "en",
	"french":     "fr",
	"spanish":    "es",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"dutch":      "nl",
	"polish":     "pl",
	"russian":    "ru",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
}

// NormalizeLanguage maps a detected language ("english", "en", "en-us") onto
// one of the candidate BCP-47 tags. It returns the first candidate when
// nothing matches, or lang itself when there are no candidates.
func NormalizeLanguage(lang string, candidates []string) string {
	l := strings.ToLower(strings.TrimSpace(lang))
	if code, ok := languageNames[l]; ok {
		l = code
	}

	for _, c := range candidates {
		if strings.EqualFold(c, l) {
			return c
		}
	}
	base, _, _ := strings.Cut(l, "-")
	for _, c := range candidates {
		cb, _, _ := strings.Cut(c, "-")
		if base != "" && strings.EqualFold(cb, base) {
			return c
		}
	}

	if len(candidates) > 0 {
		return candidates[0]
	}
	return lang
}
