package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/nadzzz/voicetone/internal/dispatch"
	llmmock "github.com/nadzzz/voicetone/internal/llm/mock"
	"github.com/nadzzz/voicetone/internal/message"
	"github.com/nadzzz/voicetone/internal/observe"
	"github.com/nadzzz/voicetone/internal/session"
	"github.com/nadzzz/voicetone/internal/ssml"
	"github.com/nadzzz/voicetone/internal/stt"
	sttmock "github.com/nadzzz/voicetone/internal/stt/mock"
	"github.com/nadzzz/voicetone/internal/tone"
	ttsmock "github.com/nadzzz/voicetone/internal/tts/mock"
)

type stack struct {
	srv  *httptest.Server
	stt  *sttmock.Transcriber
	llm  *llmmock.Generator
	tts  *ttsmock.SSML
	disp *dispatch.Dispatcher
}

func newStack(t *testing.T, heard string) *stack {
	t.Helper()
	s := &stack{
		stt: &sttmock.Transcriber{Result: &stt.Result{Text: heard, Language: "en-US"}},
		llm: &llmmock.Generator{Content: `{"text": "Why did the chicken cross the road?", "ssml_config": {"rate": "slow"}}`},
		tts: &ttsmock.SSML{Audio: []byte("mp3")},
	}
	tones := tone.Default()
	metrics, err := observe.NewMetrics(sdkmetric.NewMeterProvider())
	if err != nil {
		t.Fatal(err)
	}
	p := session.NewPipeline(session.Config{
		Transcriber: s.stt,
		Generator:   s.llm,
		Strategy: session.StructuredProsody{
			Synth:   s.tts,
			Builder: ssml.NewBuilder(tones.Languages()...),
			Tones:   tones,
		},
		Tones:   tones,
		Metrics: metrics,
	})
	s.disp = dispatch.New(p, tones, metrics)
	s.srv = httptest.NewServer(New(0, 1024).Handler(s.disp))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *stack) open(t *testing.T, body string) message.SessionInfo {
	t.Helper()
	resp, err := http.Post(s.srv.URL+"/sessions", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /sessions status = %d", resp.StatusCode)
	}
	var info message.SessionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	return info
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func TestSessionLifecycle(t *testing.T) {
	s := newStack(t, "tell me a joke")
	info := s.open(t, `{"conversation_tone": "concise"}`)
	if info.VoiceTone != "concise" || info.Strategy != "structured" {
		t.Errorf("info = %+v", info)
	}

	// Raw audio upload.
	req, _ := http.NewRequest(http.MethodPost, s.srv.URL+"/sessions/"+info.ID+"/turns", bytes.NewReader([]byte("RIFF-audio")))
	req.Header.Set("Content-Type", "audio/wav")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("turn status = %d", resp.StatusCode)
	}
	res := decode[message.TurnResult](t, resp)
	if res.State != "SPOKEN" || res.Settings.Rate != "slow" || res.Unchanged {
		t.Errorf("result = %+v", res)
	}
	if audio, _ := res.AudioBytes(); string(audio) != "mp3" {
		t.Errorf("audio = %q", audio)
	}
	if got := s.stt.Calls[0].ContentType; got != "audio/wav" {
		t.Errorf("content type passed = %q", got)
	}

	// Same audio as JSON: replayed.
	body, _ := json.Marshal(message.TurnRequest{Audio: []byte("RIFF-audio"), ContentType: "audio/wav"})
	resp, err = http.Post(s.srv.URL+"/sessions/"+info.ID+"/turns", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	res = decode[message.TurnResult](t, resp)
	if !res.Unchanged {
		t.Error("identical audio should be replayed")
	}
	if s.llm.CallCount() != 1 {
		t.Errorf("generator calls = %d, want 1", s.llm.CallCount())
	}

	resp, err = http.Get(s.srv.URL + "/sessions/" + info.ID + "/history")
	if err != nil {
		t.Fatal(err)
	}
	hist := decode[message.History](t, resp)
	if len(hist.Turns) != 2 {
		t.Errorf("history has %d turns, want 2", len(hist.Turns))
	}

	req, _ = http.NewRequest(http.MethodDelete, s.srv.URL+"/sessions/"+info.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE status = %d", resp.StatusCode)
	}

	resp, err = http.Get(s.srv.URL + "/sessions/" + info.ID + "/history")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("history after close status = %d", resp.StatusCode)
	}
}

func TestTurn_Errors(t *testing.T) {
	s := newStack(t, "tell me a joke")
	info := s.open(t, "")

	tests := []struct {
		name        string
		session     string
		contentType string
		body        []byte
		want        int
	}{
		{name: "unknown session", session: "missing", contentType: "audio/wav", body: []byte("a"), want: http.StatusNotFound},
		{name: "no audio", session: info.ID, contentType: "audio/wav", body: nil, want: http.StatusBadRequest},
		{name: "bad json", session: info.ID, contentType: "application/json", body: []byte("{"), want: http.StatusBadRequest},
		{name: "too large", session: info.ID, contentType: "audio/wav", body: bytes.Repeat([]byte("x"), 1500), want: http.StatusRequestEntityTooLarge},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(s.srv.URL+"/sessions/"+tc.session+"/turns", tc.contentType, bytes.NewReader(tc.body))
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestTurn_EmptyTranscript(t *testing.T) {
	s := newStack(t, "  ")
	info := s.open(t, "")

	resp, err := http.Post(s.srv.URL+"/sessions/"+info.ID+"/turns", "audio/wav", bytes.NewReader([]byte("silence")))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
	res := decode[message.TurnResult](t, resp)
	if res.State != "TRANSCRIBED" || res.Error == "" {
		t.Errorf("result = %+v", res)
	}
}

func TestTones(t *testing.T) {
	s := newStack(t, "tell me a joke")
	resp, err := http.Get(s.srv.URL + "/tones")
	if err != nil {
		t.Fatal(err)
	}
	info := decode[message.ToneInfo](t, resp)
	if info.Default != tone.DefaultTone || len(info.Languages) != 2 {
		t.Errorf("tones = %+v", info)
	}
}

func TestWebSocket(t *testing.T) {
	s := newStack(t, "tell me a joke")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws?conversation_tone=formal"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	read := func(v any) {
		t.Helper()
		typ, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if typ != websocket.MessageText {
			t.Fatalf("message type = %v, want text", typ)
		}
		if err := json.Unmarshal(data, v); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
	}

	var info message.SessionInfo
	read(&info)
	if info.ConversationTone != "formal" {
		t.Errorf("ConversationTone = %q", info.ConversationTone)
	}

	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"voice_tone": "empathetic"}`)); err != nil {
		t.Fatal(err)
	}
	if err := conn.Write(ctx, websocket.MessageBinary, []byte("recording-1")); err != nil {
		t.Fatal(err)
	}
	var res message.TurnResult
	read(&res)
	if res.SessionID != info.ID || res.State != "SPOKEN" || res.VoiceTone != "empathetic" {
		t.Errorf("result = %+v", res)
	}

	if err := conn.Write(ctx, websocket.MessageBinary, []byte("recording-1")); err != nil {
		t.Fatal(err)
	}
	read(&res)
	if !res.Unchanged {
		t.Error("repeated recording should be replayed")
	}

	conn.Close(websocket.StatusNormalClosure, "done")

	deadline := time.Now().Add(2 * time.Second)
	for s.disp.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := s.disp.Len(); n != 0 {
		t.Errorf("%d sessions left open after disconnect", n)
	}
}
