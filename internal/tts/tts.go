// Package tts defines the interfaces for text-to-speech synthesis.
//
// Two kinds of engine are supported. SSML engines (Azure Speech) accept a
// full markup document with explicit prosody. Instructed engines (OpenAI
// speech, Piper) accept plain text plus a free-text description of the
// desired delivery, which they may ignore.
package tts

import (
	"context"
	"time"
)

// Result holds the output of TTS synthesis.
type Result struct {
	// Audio is the synthesized audio. Nil when synthesis was canceled.
	Audio []byte

	// ContentType is the MIME type of the audio (e.g., "audio/mpeg").
	ContentType string

	// Duration is the time the collaborator took to answer.
	Duration time.Duration
}

// SSMLSynthesizer renders speech markup documents.
type SSMLSynthesizer interface {
	// Name returns the backend identifier.
	Name() string

	// SynthesizeSSML renders a complete speech markup document.
	SynthesizeSSML(ctx context.Context, document string) (*Result, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// InstructOpts controls instructed synthesis.
type InstructOpts struct {
	// Voice is the engine-specific voice name.
	Voice string

	// Language is the BCP-47 tag of the text.
	Language string

	// Instructions describes the desired delivery in natural language.
	Instructions string
}

// InstructedSynthesizer renders plain text with natural-language delivery
// guidance.
type InstructedSynthesizer interface {
	// Name returns the backend identifier.
	Name() string

	// Synthesize generates audio from text.
	Synthesize(ctx context.Context, text string, opts InstructOpts) (*Result, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}
