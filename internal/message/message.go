// Package message defines the wire types exchanged between transports and
// the dispatcher.
package message

import (
	"encoding/base64"
	"time"

	"github.com/nadzzz/voicetone/internal/tone"
)

// OpenRequest starts a conversation session.
type OpenRequest struct {
	// ConversationTone selects the role prompt (e.g., "friendly", "formal").
	// Empty uses the default tone.
	ConversationTone string `json:"conversation_tone,omitempty"`

	// VoiceTone selects the prosody profile. Empty uses ConversationTone.
	VoiceTone string `json:"voice_tone,omitempty"`
}

// SessionInfo describes an open session.
type SessionInfo struct {
	ID               string   `json:"id"`
	Strategy         string   `json:"strategy"`
	ConversationTone string   `json:"conversation_tone"`
	VoiceTone        string   `json:"voice_tone"`
	Language         string   `json:"language"`
	Languages        []string `json:"languages"`
	Turns            int      `json:"turns"`
}

// TurnRequest submits one recording to a session.
type TurnRequest struct {
	SessionID string `json:"session_id"`

	// Audio is the raw recording; base64 in JSON.
	Audio []byte `json:"audio"`

	// ContentType is the MIME type of the audio (e.g., "audio/wav").
	ContentType string `json:"content_type,omitempty"`

	// ConversationTone and VoiceTone switch the session's tones from this
	// turn on. Empty keeps the current ones.
	ConversationTone string `json:"conversation_tone,omitempty"`
	VoiceTone        string `json:"voice_tone,omitempty"`
}

// TurnResult is the outcome of one turn. Fields of stages that were not
// reached are empty.
type TurnResult struct {
	SessionID string    `json:"session_id"`
	TurnID    string    `json:"turn_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// State is the last stage reached: NEW_AUDIO, TRANSCRIBED, RESPONDED or SPOKEN.
	State string `json:"state"`

	// Unchanged is true when the audio matched the previous turn and the
	// previous results were replayed.
	Unchanged bool `json:"unchanged"`

	Transcript string `json:"transcript,omitempty"`
	Language   string `json:"language,omitempty"`
	Reply      string `json:"reply,omitempty"`

	// Delivery is the model's prosody overrides (JSON) or instructions.
	Delivery string       `json:"delivery,omitempty"`
	Settings tone.Prosody `json:"settings"`
	Tokens   int64        `json:"tokens"`

	TranscriptionMS int64 `json:"transcription_ms"`
	GenerationMS    int64 `json:"generation_ms"`
	SynthesisMS     int64 `json:"synthesis_ms"`

	ConversationTone string `json:"conversation_tone"`
	VoiceTone        string `json:"voice_tone"`

	// Audio is the spoken reply, base64-encoded.
	Audio       string `json:"audio,omitempty"`
	ContentType string `json:"content_type,omitempty"`

	// SynthesisError explains why Audio is empty although a reply exists.
	SynthesisError string `json:"synthesis_error,omitempty"`

	// Error is set if the turn failed before synthesis.
	Error string `json:"error,omitempty"`
}

// SetAudioBytes base64-encodes raw audio bytes into Audio.
func (r *TurnResult) SetAudioBytes(audio []byte) {
	if len(audio) > 0 {
		r.Audio = base64.StdEncoding.EncodeToString(audio)
	}
}

// AudioBytes decodes Audio.
func (r *TurnResult) AudioBytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.Audio)
}

// History lists the turns of a session, most recent first. Audio is omitted.
type History struct {
	SessionID string       `json:"session_id"`
	Turns     []TurnResult `json:"turns"`
}

// ToneInfo lists the configured tones.
type ToneInfo struct {
	Default   string   `json:"default"`
	Tones     []string `json:"tones"`
	Languages []string `json:"languages"`
	Strategy  string   `json:"strategy"`
}

// Error is the body of a failed request that produced no turn.
type Error struct {
	Error string `json:"error"`
}
