package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/duttnikhil/voice-bot/internal/audio"
	"github.com/duttnikhil/voice-bot/internal/dialog"
)

// Browser channel wire constants. Binary frames from the client are raw
// 16 kHz PCM16; the sentinel frame marks the end of one utterance. Binary
// frames to the client carry the prefix so raw audio is distinguishable
// from any future binary message kinds.
const (
	endAudioSentinel = "END_AUDIO"
	audioChunkPrefix = "AUDIO_CHUNK:"
)

// browserMessage is the JSON envelope of every text message sent to the
// browser client. Eligible is a pointer so a negative verdict still appears
// on the wire.
type browserMessage struct {
	Type         string          `json:"type"`
	Text         string          `json:"text,omitempty"`
	Message      string          `json:"message,omitempty"`
	QuestionID   string          `json:"question_id,omitempty"`
	Eligible     *bool           `json:"eligible,omitempty"`
	Answers      map[string]bool `json:"answers,omitempty"`
	ASRLatencyMs int64           `json:"asr_latency_ms,omitempty"`
	TTSLatencyMs int64           `json:"tts_latency_ms,omitempty"`
	HasAudio     bool            `json:"has_audio,omitempty"`
}

// handleBrowserStream implements the /ws/voice/{session_id} channel. The
// browser sends raw 16 kHz PCM16 binary frames terminated by the END_AUDIO
// sentinel; the service replies with JSON status messages and paced binary
// audio chunks.
func (s *Server) handleBrowserStream(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/ws/voice/")
	if sessionID == "" {
		http.Error(w, "Session ID required", http.StatusBadRequest)
		return
	}

	variant, err := dialog.ParseVariant(r.URL.Query().Get("bot_type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Browser WebSocket upgrade failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return
	}
	defer conn.Close()

	sess, err := s.registry.Create(sessionID, variant)
	if err != nil {
		s.logger.Warn("Rejecting browser connection",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return
	}

	s.metrics.RecordSessionCreated(string(sess.Variant), "browser")
	s.metrics.SetActiveSessions(s.registry.Len())

	defer func() {
		if s.registry.Remove(sessionID) {
			s.metrics.RecordSessionDestroyed(time.Since(sess.CreatedAt).Seconds())
			s.metrics.SetActiveSessions(s.registry.Len())
		}
	}()

	ctx := r.Context()

	prompt, err := s.orch.Greeting(ctx, sess)
	if err != nil {
		s.sendBrowserError(conn, err)
		return
	}

	greeting := browserMessage{
		Type:         "greeting",
		Text:         prompt.Text,
		TTSLatencyMs: prompt.TTSLatency.Milliseconds(),
		HasAudio:     true,
	}
	if err := conn.WriteJSON(greeting); err != nil {
		return
	}

	if err := s.sendBrowserAudio(ctx, conn, prompt.Audio); err != nil {
		return
	}

	timeout := s.config.Session.GetInactivityTimeout()

	for {
		conn.SetReadDeadline(time.Now().Add(timeout))

		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("Browser connection closed unexpectedly",
					slog.String("session_id", sessionID),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		sess.Touch()

		if string(data) != endAudioSentinel {
			s.metrics.RecordFrameReceived(len(data))
			sess.Turn.Append(data)
			continue
		}

		turn := sess.Turn.Drain()
		if turn == nil {
			continue
		}

		result, err := s.orch.ProcessTurn(ctx, sess, turn)
		if err != nil {
			s.sendBrowserError(conn, err)
			return
		}

		transcription := browserMessage{
			Type:         "transcription",
			Text:         result.Transcript,
			ASRLatencyMs: result.ASRLatency.Milliseconds(),
		}
		if err := conn.WriteJSON(transcription); err != nil {
			return
		}

		reply := browserMessage{
			Text:         result.Outcome.Prompt,
			TTSLatencyMs: result.TTSLatency.Milliseconds(),
			HasAudio:     true,
		}

		switch result.Outcome.Kind {
		case dialog.OutcomeUnrecognized:
			reply.Type = "response"

		case dialog.OutcomeAdvance:
			reply.Type = "question"
			reply.QuestionID = result.Outcome.QuestionID

		case dialog.OutcomeComplete:
			eligible := result.Outcome.Eligible
			reply.Type = "result"
			reply.Eligible = &eligible
			reply.Answers = result.Outcome.Answers
		}

		if err := conn.WriteJSON(reply); err != nil {
			return
		}

		if err := s.sendBrowserAudio(ctx, conn, result.Audio); err != nil {
			return
		}

		if result.Outcome.Kind == dialog.OutcomeComplete {
			return
		}
	}
}

// sendBrowserAudio streams one bot utterance to the browser as prefixed
// binary chunks with a fixed pacing delay between them.
func (s *Server) sendBrowserAudio(ctx context.Context, conn *websocket.Conn, pcm []byte) error {
	chunkSize := s.config.Audio.BrowserChunkBytes
	delay := s.config.Audio.GetFrameDelay()

	return audio.StreamPaced(ctx, pcm, chunkSize, delay, func(chunk []byte) error {
		frame := make([]byte, 0, len(audioChunkPrefix)+len(chunk))
		frame = append(frame, audioChunkPrefix...)
		frame = append(frame, chunk...)

		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			return fmt.Errorf("failed to send audio chunk: %w", err)
		}

		s.metrics.RecordFrameSent(len(chunk))
		return nil
	})
}

// sendBrowserError reports a fatal pipeline failure to the client before
// teardown. Send errors are ignored; the connection is closing anyway.
func (s *Server) sendBrowserError(conn *websocket.Conn, err error) {
	msg := browserMessage{
		Type:    "error",
		Message: err.Error(),
	}
	_ = conn.WriteJSON(msg)
}
