// Package mock provides test doubles for the tts synthesizer interfaces.
//
// SSML records every rendered document; Instructed records text and
// instructions. Both return Audio (or Err) on every call.
package mock

import (
	"context"
	"sync"

	"github.com/nadzzz/voicetone/internal/tts"
)

// SSML is a mock implementation of tts.SSMLSynthesizer.
type SSML struct {
	mu sync.Mutex

	// Audio is returned as the synthesized audio.
	Audio []byte

	// Err, if non-nil, is returned from SynthesizeSSML.
	Err error

	// Documents records every document passed to SynthesizeSSML in order.
	Documents []string
}

// Name returns "mock-ssml".
func (s *SSML) Name() string { return "mock-ssml" }

// SynthesizeSSML records the document and returns Audio or Err.
func (s *SSML) SynthesizeSSML(_ context.Context, document string) (*tts.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Documents = append(s.Documents, document)
	if s.Err != nil {
		return nil, s.Err
	}
	return &tts.Result{Audio: append([]byte(nil), s.Audio...), ContentType: "audio/mpeg"}, nil
}

// CallCount returns the number of SynthesizeSSML calls. Thread-safe.
func (s *SSML) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Documents)
}

// Close is a no-op.
func (s *SSML) Close() error { return nil }

// InstructedCall records a single invocation of Synthesize.
type InstructedCall struct {
	Text string
	Opts tts.InstructOpts
}

// Instructed is a mock implementation of tts.InstructedSynthesizer.
type Instructed struct {
	mu sync.Mutex

	// Audio is returned as the synthesized audio.
	Audio []byte

	// Err, if non-nil, is returned from Synthesize.
	Err error

	// Calls records every call to Synthesize in order.
	Calls []InstructedCall
}

// Name returns "mock-instructed".
func (s *Instructed) Name() string { return "mock-instructed" }

// Synthesize records the call and returns Audio or Err.
func (s *Instructed) Synthesize(_ context.Context, text string, opts tts.InstructOpts) (*tts.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, InstructedCall{Text: text, Opts: opts})
	if s.Err != nil {
		return nil, s.Err
	}
	return &tts.Result{Audio: append([]byte(nil), s.Audio...), ContentType: "audio/mpeg"}, nil
}

// CallCount returns the number of Synthesize calls. Thread-safe.
func (s *Instructed) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}

// Close is a no-op.
func (s *Instructed) Close() error { return nil }

var (
	_ tts.SSMLSynthesizer       = (*SSML)(nil)
	_ tts.InstructedSynthesizer = (*Instructed)(nil)
)
