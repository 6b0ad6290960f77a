package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/voicetone/internal/llm"
	"github.com/nadzzz/voicetone/internal/observe"
	"github.com/nadzzz/voicetone/internal/prompt"
	"github.com/nadzzz/voicetone/internal/stt"
	"github.com/nadzzz/voicetone/internal/tone"
)

// Input is the audio captured for one turn.
type Input struct {
	Audio       []byte
	ContentType string
}

// Config wires the collaborators of a Pipeline.
type Config struct {
	Transcriber stt.Transcriber
	Generator   llm.Generator
	Strategy    Strategy
	Tones       *tone.Store

	// Languages are the detection candidates; defaults to Tones.Languages().
	Languages []string

	// TranscriptionPrompt is passed to the transcriber as context.
	TranscriptionPrompt string

	HistoryWindow int
	Temperature   float64
	MaxTokens     int

	// Metrics defaults to observe.DefaultMetrics().
	Metrics *observe.Metrics
}

// Pipeline runs turns through transcription, generation and synthesis. It
// holds no per-session state and is safe for concurrent use across
// sessions.
type Pipeline struct {
	transcriber stt.Transcriber
	generator   llm.Generator
	strategy    Strategy
	tones       *tone.Store
	prompts     *prompt.Builder
	languages   []string
	sttPrompt   string
	temperature float64
	maxTokens   int
	metrics     *observe.Metrics
	now         func() time.Time
}

// NewPipeline creates a Pipeline from cfg.
func NewPipeline(cfg Config) *Pipeline {
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = cfg.Tones.Languages()
	}
	m := cfg.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &Pipeline{
		transcriber: cfg.Transcriber,
		generator:   cfg.Generator,
		strategy:    cfg.Strategy,
		tones:       cfg.Tones,
		prompts:     prompt.NewBuilder(cfg.Strategy.schema(), cfg.HistoryWindow),
		languages:   langs,
		sttPrompt:   cfg.TranscriptionPrompt,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		metrics:     m,
		now:         time.Now,
	}
}

// Strategy returns the synthesis strategy the pipeline was built with.
func (p *Pipeline) Strategy() Strategy { return p.strategy }

// Languages returns the language detection candidates.
func (p *Pipeline) Languages() []string { return append([]string(nil), p.languages...) }

// NewSession creates a session bound to this pipeline's strategy.
func (p *Pipeline) NewSession(conversationTone, voiceTone string) Session {
	if conversationTone == "" {
		conversationTone = p.tones.DefaultTone()
	}
	if voiceTone == "" {
		voiceTone = conversationTone
	}
	return New(p.strategy.Kind(), conversationTone, voiceTone, p.languages[0])
}

// Run processes one turn and returns the updated session with the turn.
//
// Audio identical to the previous turn's audio reuses what that turn
// finished: a spoken turn is replayed without any collaborator call, an
// unfinished one resumes at the first stage it did not complete. On error
// the returned turn carries the last reached state; the session keeps its
// history but remembers the turn so a retry with the same audio skips the
// finished stages. A synthesis failure is not an error: the turn stops at
// StateResponded with SynthesisError set and is still recorded in history.
func (p *Pipeline) Run(ctx context.Context, s Session, in Input) (Session, Turn, error) {
	if len(in.Audio) == 0 {
		return s, Turn{}, ErrNoAudio
	}

	t := Turn{
		ID:        uuid.NewString(),
		CreatedAt: p.now(),
		State:     StateNewAudio,
		Digest:    digest(in.Audio),
	}
	log := slog.With("session_id", s.ID, "turn_id", t.ID)

	if prev, ok := s.Previous(); ok && prev.Digest == t.Digest {
		switch {
		case prev.Completed():
			t = prev.replay(t.ID, t.CreatedAt)
			t.ConversationTone, t.VoiceTone = s.ConversationTone, s.VoiceTone
			log.Info("audio unchanged, replaying previous turn", "replayed_turn", prev.ID)
			p.metrics.RecordReplay(ctx)
			p.metrics.RecordTurn(ctx, "replayed")
			s.Language = t.Language
			return s.append(t), t, nil
		case prev.State >= StateTranscribed:
			t = prev.resume(t.ID, t.CreatedAt)
			log.Info("audio unchanged, resuming previous turn", "resumed_turn", prev.ID, "state", prev.State)
			p.metrics.RecordReplay(ctx)
		}
	}
	t.ConversationTone, t.VoiceTone = s.ConversationTone, s.VoiceTone

	if t.State < StateTranscribed {
		start := time.Now()
		res, err := p.transcriber.Transcribe(ctx, in.Audio, in.ContentType, stt.Options{
			Languages: p.languages,
			Prompt:    p.sttPrompt,
		})
		p.metrics.RecordCall(ctx, observe.StageTranscription, p.transcriber.Name(), time.Since(start), err)
		if err != nil {
			p.metrics.RecordTurn(ctx, "failed")
			return s.remember(t), t, fmt.Errorf("transcription: %w", err)
		}
		t.Transcript = strings.TrimSpace(res.Text)
		t.Language = stt.NormalizeLanguage(res.Language, p.languages)
		t.TranscriptionDuration = elapsed(res.Duration, start)
		t.State = StateTranscribed
		log.Debug("transcribed", "language", t.Language, "chars", len(t.Transcript), "duration", t.TranscriptionDuration)
	}

	if t.Transcript == "" {
		p.metrics.RecordTurn(ctx, "empty_transcript")
		return s.remember(t), t, ErrEmptyTranscript
	}

	r := reply{Text: t.Reply, Overrides: t.Overrides, Instructions: t.Instructions}
	if t.State < StateResponded {
		var err error
		if r, err = p.generate(ctx, s, &t); err != nil {
			outcome := "failed"
			if errors.Is(err, ErrEmptyReply) {
				outcome = "empty_reply"
			}
			p.metrics.RecordTurn(ctx, outcome)
			return s.remember(t), t, err
		}
		t.Reply = r.Text
		t.Overrides = r.Overrides
		t.Instructions = r.Instructions
		t.State = StateResponded
	}

	// Synthesis.
	u, err := p.strategy.prepare(s, t.Language, r)
	if err != nil {
		p.metrics.RecordTurn(ctx, "failed")
		return s.remember(t), t, fmt.Errorf("preparing synthesis: %w", err)
	}
	t.Settings = u.settings

	start := time.Now()
	audio, err := u.speak(ctx)
	p.metrics.RecordCall(ctx, observe.StageSynthesis, p.strategy.Backend(), time.Since(start), err)
	s.Language = t.Language
	if err != nil {
		t.SynthesisError = err.Error()
		log.Warn("synthesis failed", "backend", p.strategy.Backend(), "error", err)
		p.metrics.RecordTurn(ctx, "unspoken")
		return s.append(t), t, nil
	}
	t.Audio = audio.Audio
	t.ContentType = audio.ContentType
	t.SynthesisDuration = elapsed(audio.Duration, start)
	t.State = StateSpoken

	log.Info("turn complete",
		"language", t.Language,
		"unchanged", t.Unchanged,
		"tokens", t.Tokens,
		"audio_bytes", len(t.Audio),
		"transcription", t.TranscriptionDuration,
		"generation", t.GenerationDuration,
		"synthesis", t.SynthesisDuration,
	)
	p.metrics.RecordTurn(ctx, "spoken")
	return s.append(t), t, nil
}

// generate asks the model for a reply to t's transcript and records the
// call's cost on t.
func (p *Pipeline) generate(ctx context.Context, s Session, t *Turn) (reply, error) {
	role, err := p.tones.Resolve(s.ConversationTone, t.Language)
	if err != nil {
		return reply{}, err
	}
	system := p.prompts.Build(prompt.Request{
		Role:     role.Prompt,
		Language: t.Language,
		History:  s.Exchanges(),
	})

	start := time.Now()
	comp, err := p.generator.Generate(ctx, llm.Request{
		SystemPrompt: system,
		UserText:     t.Transcript,
		Temperature:  p.temperature,
		MaxTokens:    p.maxTokens,
	})
	p.metrics.RecordCall(ctx, observe.StageGeneration, p.generator.Name(), time.Since(start), err)
	if err != nil {
		return reply{}, fmt.Errorf("generation: %w", err)
	}
	t.GenerationDuration = elapsed(comp.Duration, start)
	t.Tokens = comp.Tokens

	r, err := p.strategy.decode(comp.Content)
	if err != nil {
		slog.Warn("model reply is not the expected JSON, speaking it as plain text",
			"session_id", s.ID, "turn_id", t.ID, "error", err)
		r = reply{Text: comp.Content}
	}
	r.Text = strings.TrimSpace(r.Text)
	if r.Text == "" {
		return reply{}, ErrEmptyReply
	}
	return r, nil
}

// elapsed prefers the duration the collaborator reported.
func elapsed(reported time.Duration, start time.Time) time.Duration {
	if reported > 0 {
		return reported
	}
	return time.Since(start)
}
