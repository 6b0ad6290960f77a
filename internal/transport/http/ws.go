package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/nadzzz/voicetone/internal/message"
)

// control is a text message that switches tones for the following turns.
type control struct {
	ConversationTone string `json:"conversation_tone,omitempty"`
	VoiceTone        string `json:"voice_tone,omitempty"`
	ContentType      string `json:"content_type,omitempty"`
}

// stream handles GET /ws.
//
// The query parameters conversation_tone, voice_tone and content_type
// configure the session. The first message sent is the SessionInfo. Each
// binary message from the client is one recording and is answered with a
// TurnResult. Text messages carry a control object that changes tones or the
// content type for later turns. The session is closed with the connection.
//
// @Summary     Conversation over WebSocket
// @Tags        sessions
// @Param       conversation_tone  query  string  false  "Conversation tone"
// @Param       voice_tone         query  string  false  "Voice tone"
// @Param       content_type       query  string  false  "MIME type of the binary messages"  default(audio/wav)
// @Success     101
// @Router      /ws [get]
func (h *handler) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(h.maxAudio)

	ctx := r.Context()
	q := r.URL.Query()
	info, err := h.svc.Open(ctx, message.OpenRequest{
		ConversationTone: q.Get("conversation_tone"),
		VoiceTone:        q.Get("voice_tone"),
	})
	if err != nil {
		conn.Close(websocket.StatusInternalError, "opening session failed")
		return
	}
	defer func() {
		if err := h.svc.Close(context.WithoutCancel(ctx), info.ID); err != nil {
			slog.Debug("closing websocket session", "session_id", info.ID, "error", err)
		}
	}()

	log := slog.With("session_id", info.ID, "remote", r.RemoteAddr)
	log.Info("websocket session started")
	if err := writeMessage(ctx, conn, info); err != nil {
		return
	}

	ctl := control{ContentType: q.Get("content_type")}
	if ctl.ContentType == "" {
		ctl.ContentType = "audio/wav"
	}

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				log.Info("websocket session ended")
			} else if !errors.Is(err, context.Canceled) {
				log.Warn("websocket read failed", "error", err)
			}
			return
		}

		if typ == websocket.MessageText {
			var next control
			if err := json.Unmarshal(data, &next); err != nil {
				_ = writeMessage(ctx, conn, message.Error{Error: "invalid control message: " + err.Error()})
				continue
			}
			if next.ContentType != "" {
				ctl.ContentType = next.ContentType
			}
			ctl.ConversationTone, ctl.VoiceTone = next.ConversationTone, next.VoiceTone
			continue
		}

		res, err := h.svc.Turn(ctx, message.TurnRequest{
			SessionID:        info.ID,
			Audio:            data,
			ContentType:      ctl.ContentType,
			ConversationTone: ctl.ConversationTone,
			VoiceTone:        ctl.VoiceTone,
		})
		ctl.ConversationTone, ctl.VoiceTone = "", ""

		var out any = res
		if res == nil {
			out = message.Error{Error: err.Error()}
		}
		if err := writeMessage(ctx, conn, out); err != nil {
			log.Warn("websocket write failed", "error", err)
			return
		}
	}
}

func writeMessage(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
