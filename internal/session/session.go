// Package session runs conversational turns.
//
// A Session is a plain value owned by its caller: Pipeline.Run takes the
// current session and returns the next one. History is append-only and most
// recent first; every append allocates a new backing array so a session value
// held elsewhere never observes later turns.
package session

import (
	"errors"
	"slices"

	"github.com/google/uuid"

	"github.com/nadzzz/voicetone/internal/prompt"
)

var (
	// ErrNoAudio is returned when a turn carries no audio.
	ErrNoAudio = errors.New("no audio")

	// ErrEmptyTranscript is returned when nothing was recognized in the audio.
	ErrEmptyTranscript = errors.New("empty transcript")

	// ErrEmptyReply is returned when the model produced no reply text.
	ErrEmptyReply = errors.New("empty reply")
)

// Session is the state of one conversation.
type Session struct {
	ID       string `json:"id"`
	Strategy Kind   `json:"strategy"`

	// ConversationTone selects the role prompt, VoiceTone the prosody.
	ConversationTone string `json:"conversation_tone"`
	VoiceTone        string `json:"voice_tone"`

	// Language is the language of the most recent turn.
	Language string `json:"language"`

	// History holds finished turns, most recent first.
	History []Turn `json:"history"`

	// prev is the most recent turn whatever state it reached, including
	// turns that failed and were kept out of History.
	prev *Turn
}

// New creates an empty session with a fresh ID.
func New(kind Kind, conversationTone, voiceTone, language string) Session {
	return Session{
		ID:               uuid.NewString(),
		Strategy:         kind,
		ConversationTone: conversationTone,
		VoiceTone:        voiceTone,
		Language:         language,
	}
}

// Previous returns the turn run immediately before the next one. Its digest
// and finished stages are what identical audio is replayed from.
func (s Session) Previous() (Turn, bool) {
	if s.prev == nil {
		return Turn{}, false
	}
	return *s.prev, true
}

// WithTones returns s with new tone selections. Empty names keep the current
// ones.
func (s Session) WithTones(conversationTone, voiceTone string) Session {
	if conversationTone != "" {
		s.ConversationTone = conversationTone
	}
	if voiceTone != "" {
		s.VoiceTone = voiceTone
	}
	return s
}

// append returns s with t at the front of its history.
func (s Session) append(t Turn) Session {
	h := make([]Turn, 0, len(s.History)+1)
	h = append(h, t)
	s.History = append(h, s.History...)
	return s.remember(t)
}

// remember returns s with t as the previous turn, leaving History alone.
func (s Session) remember(t Turn) Session {
	s.prev = &t
	return s
}

// Exchanges converts the history into prompt exchanges, most recent first.
func (s Session) Exchanges() []prompt.Exchange {
	out := make([]prompt.Exchange, 0, len(s.History))
	for _, t := range s.History {
		out = append(out, prompt.Exchange{
			Question: t.Transcript,
			Answer:   t.Reply,
			Delivery: t.Delivery(),
		})
	}
	return out
}

// Clone returns a copy of s whose history does not share memory with s.
func (s Session) Clone() Session {
	s.History = slices.Clone(s.History)
	return s
}
