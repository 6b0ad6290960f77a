// Package dispatch owns the open sessions and runs turns against them.
//
// Transports hand wire messages to the Dispatcher; it looks up the session,
// runs the pipeline and stores the returned session. Turns within one session
// are serialized by a per-session lock, different sessions run in parallel.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/nadzzz/voicetone/internal/message"
	"github.com/nadzzz/voicetone/internal/observe"
	"github.com/nadzzz/voicetone/internal/session"
	"github.com/nadzzz/voicetone/internal/tone"
)

// ErrSessionNotFound is returned for unknown or closed session IDs.
var ErrSessionNotFound = errors.New("session not found")

type entry struct {
	mu   sync.Mutex
	sess session.Session
}

// Dispatcher is the session registry.
type Dispatcher struct {
	pipeline *session.Pipeline
	tones    *tone.Store
	metrics  *observe.Metrics

	mu       sync.Mutex
	sessions map[string]*entry
}

// New creates a Dispatcher. A nil metrics uses observe.DefaultMetrics().
func New(pipeline *session.Pipeline, tones *tone.Store, metrics *observe.Metrics) *Dispatcher {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Dispatcher{
		pipeline: pipeline,
		tones:    tones,
		metrics:  metrics,
		sessions: make(map[string]*entry),
	}
}

// Open starts a new session.
func (d *Dispatcher) Open(ctx context.Context, req message.OpenRequest) (*message.SessionInfo, error) {
	s := d.pipeline.NewSession(req.ConversationTone, req.VoiceTone)

	d.mu.Lock()
	d.sessions[s.ID] = &entry{sess: s}
	d.mu.Unlock()

	d.metrics.ActiveSessions.Add(ctx, 1)
	slog.Info("session opened", "session_id", s.ID, "conversation_tone", s.ConversationTone, "voice_tone", s.VoiceTone, "strategy", s.Strategy)
	return d.info(s), nil
}

// Turn runs one recording through the session's pipeline. The result is
// non-nil whenever the session exists, also on error, and then carries the
// stages that completed.
func (d *Dispatcher) Turn(ctx context.Context, req message.TurnRequest) (*message.TurnResult, error) {
	e, err := d.lookup(req.SessionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.sess.WithTones(req.ConversationTone, req.VoiceTone)
	next, turn, err := d.pipeline.Run(ctx, s, session.Input{Audio: req.Audio, ContentType: req.ContentType})

	// Tone switches stick even when the turn fails.
	e.sess = next

	res := turnResult(s.ID, turn)
	res.SetAudioBytes(turn.Audio)
	if err != nil {
		res.Error = err.Error()
		slog.Warn("turn failed", "session_id", s.ID, "state", turn.State, "error", err)
		return res, err
	}
	return res, nil
}

// History returns the session's turns, most recent first.
func (d *Dispatcher) History(_ context.Context, sessionID string) (*message.History, error) {
	e, err := d.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	s := e.sess
	e.mu.Unlock()

	h := &message.History{SessionID: s.ID, Turns: make([]message.TurnResult, 0, len(s.History))}
	for _, t := range s.History {
		h.Turns = append(h.Turns, *turnResult(s.ID, t))
	}
	return h, nil
}

// Session describes an open session.
func (d *Dispatcher) Session(_ context.Context, sessionID string) (*message.SessionInfo, error) {
	e, err := d.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return d.info(e.sess), nil
}

// Close discards a session and its history.
func (d *Dispatcher) Close(ctx context.Context, sessionID string) error {
	d.mu.Lock()
	_, ok := d.sessions[sessionID]
	delete(d.sessions, sessionID)
	d.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	d.metrics.ActiveSessions.Add(ctx, -1)
	slog.Info("session closed", "session_id", sessionID)
	return nil
}

// Tones lists the tone table.
func (d *Dispatcher) Tones(context.Context) *message.ToneInfo {
	return &message.ToneInfo{
		Default:   d.tones.DefaultTone(),
		Tones:     d.tones.Tones(),
		Languages: d.pipeline.Languages(),
		Strategy:  string(d.pipeline.Strategy().Kind()),
	}
}

// Len returns the number of open sessions.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

func (d *Dispatcher) lookup(id string) (*entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return e, nil
}

func (d *Dispatcher) info(s session.Session) *message.SessionInfo {
	return &message.SessionInfo{
		ID:               s.ID,
		Strategy:         string(s.Strategy),
		ConversationTone: s.ConversationTone,
		VoiceTone:        s.VoiceTone,
		Language:         s.Language,
		Languages:        d.pipeline.Languages(),
		Turns:            len(s.History),
	}
}

func turnResult(sessionID string, t session.Turn) *message.TurnResult {
	return &message.TurnResult{
		SessionID:        sessionID,
		TurnID:           t.ID,
		CreatedAt:        t.CreatedAt,
		State:            t.State.String(),
		Unchanged:        t.Unchanged,
		Transcript:       t.Transcript,
		Language:         t.Language,
		Reply:            t.Reply,
		Delivery:         t.Delivery(),
		Settings:         t.Settings,
		Tokens:           t.Tokens,
		TranscriptionMS:  t.TranscriptionDuration.Milliseconds(),
		GenerationMS:     t.GenerationDuration.Milliseconds(),
		SynthesisMS:      t.SynthesisDuration.Milliseconds(),
		ConversationTone: t.ConversationTone,
		VoiceTone:        t.VoiceTone,
		ContentType:      t.ContentType,
		SynthesisError:   t.SynthesisError,
	}
}

// StatusCode maps an error from the Dispatcher to an HTTP status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNoAudio):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrEmptyTranscript),
		errors.Is(err, session.ErrEmptyReply),
		errors.Is(err, tone.ErrUnsupportedLanguage),
		errors.Is(err, tone.ErrInvalidProsodyValue):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
