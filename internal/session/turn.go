package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/nadzzz/voicetone/internal/tone"
)

// State is the stage a turn has reached.
type State int

const (
	StateNewAudio State = iota
	StateTranscribed
	StateResponded
	StateSpoken
)

func (s State) String() string {
	switch s {
	case StateNewAudio:
		return "NEW_AUDIO"
	case StateTranscribed:
		return "TRANSCRIBED"
	case StateResponded:
		return "RESPONDED"
	case StateSpoken:
		return "SPOKEN"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the state name for JSON and logs.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Turn is one question/answer exchange. Once appended to a session's history
// a turn is read-only; Audio may be shared with a replayed turn and must not
// be modified.
type Turn struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	State     State     `json:"state"`

	// Digest is the hex SHA-256 of the input audio.
	Digest string `json:"digest"`

	// Unchanged is set when the input audio matched the previous turn and
	// that turn's finished stages were reused instead of called again.
	Unchanged bool `json:"unchanged"`

	Transcript            string        `json:"transcript"`
	Language              string        `json:"language"`
	TranscriptionDuration time.Duration `json:"transcription_duration"`

	Reply              string         `json:"reply"`
	Overrides          tone.Overrides `json:"overrides,omitzero"`
	Instructions       string         `json:"instructions,omitempty"`
	GenerationDuration time.Duration  `json:"generation_duration"`
	Tokens             int64          `json:"tokens"`

	// Settings is the merged prosody the reply was spoken with.
	Settings tone.Prosody `json:"settings"`

	Audio             []byte        `json:"-"`
	ContentType       string        `json:"content_type,omitempty"`
	SynthesisDuration time.Duration `json:"synthesis_duration"`

	// SynthesisError is the reason synthesis produced no audio.
	SynthesisError string `json:"synthesis_error,omitempty"`

	ConversationTone string `json:"conversation_tone"`
	VoiceTone        string `json:"voice_tone"`
}

// Completed reports whether the turn produced audio.
func (t Turn) Completed() bool { return t.State == StateSpoken }

// Delivery is how the reply was meant to be spoken: the model's instructions,
// or its prosody overrides as JSON. Empty when neither was given.
func (t Turn) Delivery() string {
	if t.Instructions != "" {
		return t.Instructions
	}
	if t.Overrides.IsZero() {
		return ""
	}
	b, err := json.Marshal(t.Overrides)
	if err != nil {
		return ""
	}
	return string(b)
}

// replay derives a new turn from a completed one. Durations and token usage
// are zero because no collaborator was called.
func (t Turn) replay(id string, at time.Time) Turn {
	r := t
	r.ID = id
	r.CreatedAt = at
	r.Unchanged = true
	r.State = StateSpoken
	r.TranscriptionDuration = 0
	r.GenerationDuration = 0
	r.SynthesisDuration = 0
	r.Tokens = 0
	return r
}

// resume derives a new turn from an unfinished one with the same audio. It
// keeps the stages that finished; everything after them is recomputed.
func (t Turn) resume(id string, at time.Time) Turn {
	r := Turn{
		ID:        id,
		CreatedAt: at,
		State:     t.State,
		Digest:    t.Digest,
		Unchanged: true,
	}
	if t.State >= StateTranscribed {
		r.Transcript = t.Transcript
		r.Language = t.Language
	}
	if t.State >= StateResponded {
		r.Reply = t.Reply
		r.Overrides = t.Overrides
		r.Instructions = t.Instructions
	}
	return r
}

func digest(audio []byte) string {
	sum := sha256.Sum256(audio)
	return hex.EncodeToString(sum[:])
}
