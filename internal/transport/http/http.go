// Package http implements the HTTP/WebSocket transport for voicetone.
//
// The REST API manages sessions and accepts one recording per request. The
// WebSocket endpoint binds a session to the connection: every binary message
// is a turn, and every turn result comes back as a JSON text message.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nadzzz/voicetone/internal/dispatch"
	"github.com/nadzzz/voicetone/internal/message"
	"github.com/nadzzz/voicetone/internal/transport"

	// Registers the OpenAPI document served under /swagger/.
	_ "github.com/nadzzz/voicetone/internal/docs"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// DefaultMaxAudioBytes bounds uploaded recordings when no limit is configured.
const DefaultMaxAudioBytes = 25 << 20

// Transport implements transport.Transport over HTTP and WebSocket.
type Transport struct {
	port     int
	maxAudio int64
	server   *http.Server
}

// New creates a new HTTP transport on the given port. maxAudioBytes <= 0 uses
// DefaultMaxAudioBytes.
func New(port int, maxAudioBytes int64) *Transport {
	if maxAudioBytes <= 0 {
		maxAudioBytes = DefaultMaxAudioBytes
	}
	return &Transport{port: port, maxAudio: maxAudioBytes}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Handler returns the routes serving svc.
func (t *Transport) Handler(svc transport.Service) http.Handler {
	h := &handler{svc: svc, maxAudio: t.maxAudio}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /sessions", h.open)
	mux.HandleFunc("POST /sessions/{id}/turns", h.turn)
	mux.HandleFunc("GET /sessions/{id}/history", h.history)
	mux.HandleFunc("DELETE /sessions/{id}", h.close)
	mux.HandleFunc("GET /tones", h.tones)
	mux.HandleFunc("GET /ws", h.stream)

	// Swagger UI serves the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	return mux
}

// Listen starts the HTTP server and routes incoming requests to svc.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Handler(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

type handler struct {
	svc      transport.Service
	maxAudio int64
}

// open handles POST /sessions.
//
// @Summary     Open a session
// @Description Starts a conversation session. Both tones are optional; the voice tone defaults to the conversation tone.
// @Tags        sessions
// @Accept      json
// @Produce     json
// @Param       request  body      message.OpenRequest  false  "Tone selection"
// @Success     201      {object}  message.SessionInfo
// @Failure     400      {object}  message.Error
// @Router      /sessions [post]
func (h *handler) open(w http.ResponseWriter, r *http.Request) {
	var req message.OpenRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
			return
		}
	}
	info, err := h.svc.Open(r.Context(), req)
	if err != nil {
		writeError(w, dispatch.StatusCode(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// turn handles POST /sessions/{id}/turns.
//
// @Summary     Submit a recording
// @Description Accepts a JSON body with base64 audio, or the raw audio bytes with their Content-Type.
// @Description Audio identical to the previous spoken turn is answered from cache without calling any backend.
// @Tags        sessions
// @Accept      json
// @Accept      audio/wav
// @Accept      audio/ogg
// @Accept      audio/mpeg
// @Produce     json
// @Param       id                           path    string               true   "Session ID"
// @Param       request                      body    message.TurnRequest  true   "Turn request (JSON). For raw audio, POST the bytes directly."
// @Param       X-Voicetone-Conversation-Tone  header  string             false  "Conversation tone (raw audio uploads)"
// @Param       X-Voicetone-Voice-Tone         header  string             false  "Voice tone (raw audio uploads)"
// @Success     200  {object}  message.TurnResult
// @Failure     400  {object}  message.TurnResult  "No audio"
// @Failure     404  {object}  message.Error       "Unknown session"
// @Failure     413  {object}  message.Error       "Audio too large"
// @Failure     422  {object}  message.TurnResult  "Nothing to say"
// @Failure     502  {object}  message.TurnResult  "Backend failure"
// @Router      /sessions/{id}/turns [post]
func (h *handler) turn(w http.ResponseWriter, r *http.Request) {
	var req message.TurnRequest

	contentType := r.Header.Get("Content-Type")
	body := http.MaxBytesReader(w, r.Body, h.maxAudio*2)
	if strings.HasPrefix(contentType, "application/json") {
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			writeError(w, decodeStatus(err), "invalid json: "+err.Error())
			return
		}
	} else {
		audio, err := io.ReadAll(body)
		if err != nil {
			writeError(w, decodeStatus(err), "reading audio: "+err.Error())
			return
		}
		req.Audio = audio
		req.ContentType = contentType
		req.ConversationTone = r.Header.Get("X-Voicetone-Conversation-Tone")
		req.VoiceTone = r.Header.Get("X-Voicetone-Voice-Tone")
	}
	if int64(len(req.Audio)) > h.maxAudio {
		writeError(w, http.StatusRequestEntityTooLarge, "audio too large")
		return
	}
	req.SessionID = r.PathValue("id")

	res, err := h.svc.Turn(r.Context(), req)
	if err != nil && res == nil {
		writeError(w, dispatch.StatusCode(err), err.Error())
		return
	}
	writeJSON(w, dispatch.StatusCode(err), res)
}

// history handles GET /sessions/{id}/history.
//
// @Summary     Session history
// @Description Lists the turns of a session, most recent first. Audio is omitted.
// @Tags        sessions
// @Produce     json
// @Param       id   path      string  true  "Session ID"
// @Success     200  {object}  message.History
// @Failure     404  {object}  message.Error
// @Router      /sessions/{id}/history [get]
func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	hist, err := h.svc.History(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, dispatch.StatusCode(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

// close handles DELETE /sessions/{id}.
//
// @Summary     Close a session
// @Tags        sessions
// @Param       id   path  string  true  "Session ID"
// @Success     204
// @Failure     404  {object}  message.Error
// @Router      /sessions/{id} [delete]
func (h *handler) close(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Close(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, dispatch.StatusCode(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// tones handles GET /tones.
//
// @Summary     List tones
// @Tags        tones
// @Produce     json
// @Success     200  {object}  message.ToneInfo
// @Router      /tones [get]
func (h *handler) tones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Tones(r.Context()))
}

func decodeStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, message.Error{Error: msg})
}
