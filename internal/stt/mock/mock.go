// Package mock provides a test double for the stt.Transcriber interface.
//
// Example:
//
//	tr := &mock.Transcriber{
//	    Result: &stt.Result{Text: "hello", Language: "en-US"},
//	}
//	res, _ := tr.Transcribe(ctx, audio, "audio/wav", stt.Options{})
package mock

import (
	"context"
	"sync"

	"github.com/nadzzz/voicetone/internal/stt"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	// Audio is a copy of the audio passed to Transcribe.
	Audio []byte
	// ContentType is the MIME type passed to Transcribe.
	ContentType string
	// Opts is the Options value passed to Transcribe.
	Opts stt.Options
}

// Transcriber is a mock implementation of stt.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Result is returned by Transcribe. A nil Result yields an empty one.
	Result *stt.Result

	// Err, if non-nil, is returned from Transcribe instead of Result.
	Err error

	// Calls records every call to Transcribe in order.
	Calls []TranscribeCall
}

// Name returns "mock".
func (t *Transcriber) Name() string { return "mock" }

// Transcribe records the call and returns Result or Err.
func (t *Transcriber) Transcribe(_ context.Context, audio []byte, contentType string, opts stt.Options) (*stt.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = append(t.Calls, TranscribeCall{
		Audio:       append([]byte(nil), audio...),
		ContentType: contentType,
		Opts:        opts,
	})
	if t.Err != nil {
		return nil, t.Err
	}
	if t.Result == nil {
		return &stt.Result{}, nil
	}
	res := *t.Result
	return &res, nil
}

// CallCount returns the number of Transcribe calls. Thread-safe.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}

// Close is a no-op.
func (t *Transcriber) Close() error { return nil }

var _ stt.Transcriber = (*Transcriber)(nil)
