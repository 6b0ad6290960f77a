package session_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	llmmock "github.com/nadzzz/voicetone/internal/llm/mock"
	"github.com/nadzzz/voicetone/internal/observe"
	"github.com/nadzzz/voicetone/internal/session"
	"github.com/nadzzz/voicetone/internal/ssml"
	"github.com/nadzzz/voicetone/internal/stt"
	sttmock "github.com/nadzzz/voicetone/internal/stt/mock"
	"github.com/nadzzz/voicetone/internal/tone"
	ttsmock "github.com/nadzzz/voicetone/internal/tts/mock"
)

// ── helpers ──────────────────────────────────────────────────────────────────

type fixture struct {
	stt  *sttmock.Transcriber
	llm  *llmmock.Generator
	ssml *ttsmock.SSML
	inst *ttsmock.Instructed
}

func (f *fixture) structured(t *testing.T, m *observe.Metrics) *session.Pipeline {
	t.Helper()
	tones := tone.Default()
	return session.NewPipeline(session.Config{
		Transcriber: f.stt,
		Generator:   f.llm,
		Strategy: session.StructuredProsody{
			Synth:   f.ssml,
			Builder: ssml.NewBuilder(tones.Languages()...),
			Tones:   tones,
		},
		Tones:   tones,
		Metrics: m,
	})
}

func (f *fixture) instructed(t *testing.T) *session.Pipeline {
	t.Helper()
	return session.NewPipeline(session.Config{
		Transcriber: f.stt,
		Generator:   f.llm,
		Strategy:    session.NaturalLanguageInstructions{Synth: f.inst, Voice: "alloy"},
		Tones:       tone.Default(),
	})
}

func newFixture(reply string) *fixture {
	return &fixture{
		stt:  &sttmock.Transcriber{Result: &stt.Result{Text: "what is the weather", Language: "english"}},
		llm:  &llmmock.Generator{Content: reply, Tokens: 42},
		ssml: &ttsmock.SSML{Audio: []byte("mp3-bytes")},
		inst: &ttsmock.Instructed{Audio: []byte("mp3-bytes")},
	}
}

func (f *fixture) calls() (int, int, int) {
	return f.stt.CallCount(), f.llm.CallCount(), f.ssml.CallCount() + f.inst.CallCount()
}

var audioA = []byte("RIFF....first recording")
var audioB = []byte("RIFF....second recording")

const structuredReply = `{"text": "Hello...world!", "ssml_config": {"rate": "-5%"}}`

// ── tests ────────────────────────────────────────────────────────────────────

func TestRun_StructuredProsody(t *testing.T) {
	f := newFixture(structuredReply)
	p := f.structured(t, nil)
	s := p.NewSession("friendly", "friendly")

	s, turn, err := p.Run(context.Background(), s, session.Input{Audio: audioA, ContentType: "audio/wav"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if turn.State != session.StateSpoken {
		t.Errorf("State = %v, want SPOKEN", turn.State)
	}
	if turn.Language != "en-US" {
		t.Errorf("Language = %q, want en-US", turn.Language)
	}
	if turn.Reply != "Hello...world!" {
		t.Errorf("Reply = %q", turn.Reply)
	}
	if turn.Settings.Rate != "-5%" || turn.Settings.Voice != "en-US-JennyNeural" || turn.Settings.Style != "cheerful" {
		t.Errorf("Settings = %+v", turn.Settings)
	}
	if !bytes.Equal(turn.Audio, []byte("mp3-bytes")) || turn.Tokens != 42 {
		t.Errorf("Audio = %q, Tokens = %d", turn.Audio, turn.Tokens)
	}

	doc := f.ssml.Documents[0]
	for _, want := range []string{
		`xml:lang="en-US"`,
		`name="en-US-JennyNeural"`,
		`rate="-5%"`,
		`style="cheerful"`,
		"Hello<break time='400ms'/>world!<break time='250ms'/>",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q:\n%s", want, doc)
		}
	}

	if len(s.History) != 1 || s.History[0].ID != turn.ID {
		t.Errorf("history = %+v", s.History)
	}
	if s.Language != "en-US" {
		t.Errorf("session language = %q", s.Language)
	}
}

func TestRun_UnchangedAudioReplaysWithoutCalls(t *testing.T) {
	f := newFixture(structuredReply)
	p := f.structured(t, nil)
	ctx := context.Background()
	s := p.NewSession("", "")

	s, first, err := p.Run(ctx, s, session.Input{Audio: audioA})
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	s, second, err := p.Run(ctx, s, session.Input{Audio: bytes.Clone(audioA)})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if stts, llms, ttss := f.calls(); stts != 1 || llms != 1 || ttss != 1 {
		t.Errorf("calls = (%d, %d, %d), want (1, 1, 1)", stts, llms, ttss)
	}
	if !second.Unchanged || first.Unchanged {
		t.Errorf("Unchanged = (%v, %v), want (false, true)", first.Unchanged, second.Unchanged)
	}
	if second.Transcript != first.Transcript || second.Reply != first.Reply || !bytes.Equal(second.Audio, first.Audio) {
		t.Error("replayed turn differs from the original")
	}
	if second.Settings != first.Settings {
		t.Errorf("Settings = %+v, want %+v", second.Settings, first.Settings)
	}
	if second.ID == first.ID || second.State != session.StateSpoken || second.Tokens != 0 {
		t.Errorf("replayed turn = %+v", second)
	}
	if len(s.History) != 2 || s.History[0].ID != second.ID || s.History[1].ID != first.ID {
		t.Error("history is not most recent first")
	}
}

func TestRun_ChangedAudioCallsAgain(t *testing.T) {
	f := newFixture(structuredReply)
	p := f.structured(t, nil)
	ctx := context.Background()
	s := p.NewSession("", "")

	s, _, _ = p.Run(ctx, s, session.Input{Audio: audioA})
	s, turn, err := p.Run(ctx, s, session.Input{Audio: audioB})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if turn.Unchanged {
		t.Error("changed audio marked unchanged")
	}
	if stts, llms, ttss := f.calls(); stts != 2 || llms != 2 || ttss != 2 {
		t.Errorf("calls = (%d, %d, %d), want (2, 2, 2)", stts, llms, ttss)
	}

	// The second prompt carries the first exchange.
	if sys := f.llm.Calls[1].SystemPrompt; !strings.Contains(sys, "User's question: what is the weather") {
		t.Errorf("history missing from prompt:\n%s", sys)
	}
	if len(s.History) != 2 {
		t.Errorf("history length = %d, want 2", len(s.History))
	}
}

func TestRun_HistoryNotShared(t *testing.T) {
	f := newFixture(structuredReply)
	p := f.structured(t, nil)
	ctx := context.Background()

	s0 := p.NewSession("", "")
	s1, _, _ := p.Run(ctx, s0, session.Input{Audio: audioA})
	s2, _, _ := p.Run(ctx, s1, session.Input{Audio: audioB})

	if len(s0.History) != 0 || len(s1.History) != 1 || len(s2.History) != 2 {
		t.Fatalf("history lengths = %d, %d, %d", len(s0.History), len(s1.History), len(s2.History))
	}
	if s2.History[1].ID != s1.History[0].ID {
		t.Error("older turn moved")
	}
}

func TestRun_NaturalLanguageInstructions(t *testing.T) {
	f := newFixture(`{"response": "Sure   thing!", "instructions": "Speak warmly and slowly."}`)
	p := f.instructed(t)
	s := p.NewSession("empathetic", "")

	_, turn, err := p.Run(context.Background(), s, session.Input{Audio: audioA})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.inst.CallCount() != 1 || f.ssml.CallCount() != 0 {
		t.Fatalf("instructed calls = %d, ssml calls = %d", f.inst.CallCount(), f.ssml.CallCount())
	}

	call := f.inst.Calls[0]
	if call.Text != "Sure thing!" {
		t.Errorf("Text = %q", call.Text)
	}
	if call.Opts.Voice != "alloy" || call.Opts.Instructions != "Speak warmly and slowly." || call.Opts.Language != "en-US" {
		t.Errorf("Opts = %+v", call.Opts)
	}
	if turn.Instructions != "Speak warmly and slowly." || turn.Delivery() != turn.Instructions {
		t.Errorf("Instructions = %q", turn.Instructions)
	}
	if sys := f.llm.Calls[0].SystemPrompt; !strings.Contains(sys, `"instructions"`) || !strings.Contains(sys, "compassionate") {
		t.Errorf("unexpected system prompt:\n%s", sys)
	}
}

func TestRun_EmptyTranscript(t *testing.T) {
	f := newFixture(structuredReply)
	f.stt.Result = &stt.Result{Text: "   ", Language: "en-US"}
	p := f.structured(t, nil)
	s := p.NewSession("", "")

	out, turn, err := p.Run(context.Background(), s, session.Input{Audio: audioA})
	if !errors.Is(err, session.ErrEmptyTranscript) {
		t.Fatalf("err = %v, want ErrEmptyTranscript", err)
	}
	if turn.State != session.StateTranscribed {
		t.Errorf("State = %v", turn.State)
	}
	if f.llm.CallCount() != 0 || f.ssml.CallCount() != 0 {
		t.Error("paid calls issued after empty transcript")
	}
	if len(out.History) != 0 {
		t.Error("failed turn appended to history")
	}
}

func TestRun_EmptyReply(t *testing.T) {
	f := newFixture(`{"text": "", "ssml_config": {}}`)
	p := f.structured(t, nil)

	_, _, err := p.Run(context.Background(), p.NewSession("", ""), session.Input{Audio: audioA})
	if !errors.Is(err, session.ErrEmptyReply) {
		t.Fatalf("err = %v, want ErrEmptyReply", err)
	}
	if f.ssml.CallCount() != 0 {
		t.Error("synthesis called for empty reply")
	}
}

func TestRun_NoAudio(t *testing.T) {
	f := newFixture(structuredReply)
	p := f.structured(t, nil)

	_, _, err := p.Run(context.Background(), p.NewSession("", ""), session.Input{})
	if !errors.Is(err, session.ErrNoAudio) {
		t.Fatalf("err = %v, want ErrNoAudio", err)
	}
	if stts, _, _ := f.calls(); stts != 0 {
		t.Error("transcriber called without audio")
	}
}

func TestRun_CollaboratorErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("transcription", func(t *testing.T) {
		f := newFixture(structuredReply)
		f.stt.Err = boom
		p := f.structured(t, nil)

		_, turn, err := p.Run(context.Background(), p.NewSession("", ""), session.Input{Audio: audioA})
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want boom", err)
		}
		if turn.State != session.StateNewAudio || f.llm.CallCount() != 0 {
			t.Errorf("State = %v, llm calls = %d", turn.State, f.llm.CallCount())
		}
	})

	t.Run("generation", func(t *testing.T) {
		f := newFixture(structuredReply)
		f.llm.Err = boom
		p := f.structured(t, nil)

		_, turn, err := p.Run(context.Background(), p.NewSession("", ""), session.Input{Audio: audioA})
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want boom", err)
		}
		if turn.State != session.StateTranscribed || turn.Transcript == "" || f.ssml.CallCount() != 0 {
			t.Errorf("turn = %+v", turn)
		}
	})
}

func TestRun_SynthesisFailureIsRecorded(t *testing.T) {
	f := newFixture(structuredReply)
	f.ssml.Err = errors.New("quota exceeded")
	p := f.structured(t, nil)
	ctx := context.Background()

	s, turn, err := p.Run(ctx, p.NewSession("", ""), session.Input{Audio: audioA})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if turn.State != session.StateResponded || turn.Audio != nil {
		t.Errorf("State = %v, Audio = %q", turn.State, turn.Audio)
	}
	if !strings.Contains(turn.SynthesisError, "quota exceeded") {
		t.Errorf("SynthesisError = %q", turn.SynthesisError)
	}
	if len(s.History) != 1 {
		t.Errorf("history length = %d, want 1", len(s.History))
	}
	if prev, ok := s.Previous(); !ok || prev.ID != turn.ID {
		t.Error("failed synthesis turn not remembered")
	}

	// Same audio again only retries synthesis.
	f.ssml.Err = nil
	s, again, err := p.Run(ctx, s, session.Input{Audio: audioA})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if stts, llms, ttss := f.calls(); stts != 1 || llms != 1 || ttss != 2 {
		t.Errorf("calls = (%d, %d, %d), want (1, 1, 2)", stts, llms, ttss)
	}
	if !again.Unchanged || again.State != session.StateSpoken || again.Reply != turn.Reply || again.Tokens != 0 {
		t.Errorf("resumed turn = %+v", again)
	}
	if string(again.Audio) != "mp3-bytes" || again.SynthesisError != "" {
		t.Errorf("Audio = %q, SynthesisError = %q", again.Audio, again.SynthesisError)
	}
	if len(s.History) != 2 {
		t.Errorf("history length = %d, want 2", len(s.History))
	}
}

func TestRun_ReplaySourceIsPreviousTurn(t *testing.T) {
	f := newFixture(structuredReply)
	p := f.structured(t, nil)
	ctx := context.Background()
	s := p.NewSession("", "")

	s, first, err := p.Run(ctx, s, session.Input{Audio: audioA})
	if err != nil || first.State != session.StateSpoken {
		t.Fatalf("first Run: state %v, err %v", first.State, err)
	}

	f.ssml.Err = errors.New("quota exceeded")
	s, second, err := p.Run(ctx, s, session.Input{Audio: audioB})
	if err != nil || second.State != session.StateResponded {
		t.Fatalf("second Run: state %v, err %v", second.State, err)
	}
	f.ssml.Err = nil

	// A, B, A: the first recording is not replayed over the second.
	_, third, err := p.Run(ctx, s, session.Input{Audio: audioA})
	if err != nil {
		t.Fatalf("third Run: %v", err)
	}
	if third.Unchanged {
		t.Error("turn replayed from a turn older than the previous one")
	}
	if stts, llms, ttss := f.calls(); stts != 3 || llms != 3 || ttss != 3 {
		t.Errorf("calls = (%d, %d, %d), want (3, 3, 3)", stts, llms, ttss)
	}
}

func TestRun_RetryAfterErrorSkipsFinishedStages(t *testing.T) {
	t.Run("generation failed", func(t *testing.T) {
		f := newFixture(structuredReply)
		f.llm.Err = errors.New("rate limited")
		p := f.structured(t, nil)
		ctx := context.Background()

		s, failed, err := p.Run(ctx, p.NewSession("", ""), session.Input{Audio: audioA})
		if err == nil || failed.State != session.StateTranscribed {
			t.Fatalf("first Run: state %v, err %v", failed.State, err)
		}
		if len(s.History) != 0 {
			t.Error("failed turn appended to history")
		}

		f.llm.Err = nil
		_, turn, err := p.Run(ctx, s, session.Input{Audio: audioA})
		if err != nil {
			t.Fatalf("retry: %v", err)
		}
		if stts, llms, ttss := f.calls(); stts != 1 || llms != 2 || ttss != 1 {
			t.Errorf("calls = (%d, %d, %d), want (1, 2, 1)", stts, llms, ttss)
		}
		if !turn.Unchanged || turn.Transcript != failed.Transcript || turn.State != session.StateSpoken {
			t.Errorf("turn = %+v", turn)
		}
	})

	t.Run("empty transcript", func(t *testing.T) {
		f := newFixture(structuredReply)
		f.stt.Result = &stt.Result{Text: "", Language: "en-US"}
		p := f.structured(t, nil)
		ctx := context.Background()

		s, _, _ := p.Run(ctx, p.NewSession("", ""), session.Input{Audio: audioA})
		_, _, err := p.Run(ctx, s, session.Input{Audio: audioA})
		if !errors.Is(err, session.ErrEmptyTranscript) {
			t.Fatalf("err = %v, want ErrEmptyTranscript", err)
		}
		if stts, llms, _ := f.calls(); stts != 1 || llms != 0 {
			t.Errorf("calls = (%d, %d), want (1, 0)", stts, llms)
		}
	})

	t.Run("transcription failed", func(t *testing.T) {
		f := newFixture(structuredReply)
		f.stt.Err = errors.New("stt down")
		p := f.structured(t, nil)
		ctx := context.Background()

		s, _, _ := p.Run(ctx, p.NewSession("", ""), session.Input{Audio: audioA})
		f.stt.Err = nil
		_, turn, err := p.Run(ctx, s, session.Input{Audio: audioA})
		if err != nil {
			t.Fatalf("retry: %v", err)
		}
		if turn.Unchanged || f.stt.CallCount() != 2 {
			t.Errorf("Unchanged = %v, transcriber calls = %d", turn.Unchanged, f.stt.CallCount())
		}
	})
}

func TestRun_InvalidOverride(t *testing.T) {
	f := newFixture(`{"text": "hi", "ssml_config": {"rate": "superfast"}}`)
	p := f.structured(t, nil)

	_, turn, err := p.Run(context.Background(), p.NewSession("", ""), session.Input{Audio: audioA})
	if !errors.Is(err, tone.ErrInvalidProsodyValue) {
		t.Fatalf("err = %v, want ErrInvalidProsodyValue", err)
	}
	if turn.State != session.StateResponded || f.ssml.CallCount() != 0 {
		t.Errorf("State = %v, synth calls = %d", turn.State, f.ssml.CallCount())
	}
}

func TestRun_LenientReplies(t *testing.T) {
	tests := []struct {
		name    string
		content string
		reply   string
		style   string
	}{
		{"trailing comma", `{"text": "Hi there", "ssml_config": {"style": "calm"},}`, "Hi there", "calm"},
		{"code fence", "```json\n{\"text\": \"Hi there\", \"ssml_config\": {}}\n```", "Hi there", "cheerful"},
		{"plain text", "Hi there", "Hi there", "cheerful"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(tc.content)
			p := f.structured(t, nil)

			_, turn, err := p.Run(context.Background(), p.NewSession("", ""), session.Input{Audio: audioA})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if turn.Reply != tc.reply || turn.Settings.Style != tc.style {
				t.Errorf("Reply = %q, Style = %q; want %q, %q", turn.Reply, turn.Settings.Style, tc.reply, tc.style)
			}
		})
	}
}

func TestRun_ReplayMetric(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	f := newFixture(structuredReply)
	p := f.structured(t, m)
	ctx := context.Background()
	s := p.NewSession("", "")
	s, _, _ = p.Run(ctx, s, session.Input{Audio: audioA})
	_, _, _ = p.Run(ctx, s, session.Input{Audio: audioA})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var replayed int64 = -1
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name == "voicetone.turns.replayed" {
				replayed = met.Data.(metricdata.Sum[int64]).DataPoints[0].Value
			}
		}
	}
	if replayed != 1 {
		t.Errorf("replayed = %d, want 1", replayed)
	}
}
