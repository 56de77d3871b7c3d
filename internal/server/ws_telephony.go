package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/duttnikhil/voice-bot/internal/audio"
	"github.com/duttnikhil/voice-bot/internal/dialog"
	"github.com/duttnikhil/voice-bot/internal/telephony"
)

// handleTelephonyStream implements the /ws/telephony/{session_id} channel.
// The telephony provider connects here after the call-setup webhook; the
// connection carries inbound mu-law frames as JSON media events and outbound
// frames as JSON-RPC messages. Telephony calls always run the quickrupee
// script.
func (s *Server) handleTelephonyStream(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/ws/telephony/")
	if sessionID == "" {
		http.Error(w, "Session ID required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Telephony WebSocket upgrade failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return
	}
	defer conn.Close()

	sess, err := s.registry.Create(sessionID, dialog.VariantQuickRupee)
	if err != nil {
		s.logger.Warn("Rejecting telephony connection",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return
	}

	s.metrics.RecordSessionCreated(string(sess.Variant), "telephony")
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
		s.logger.Error("Failed to start telephony interview",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := s.sendTelephonyAudio(conn, prompt.Audio); err != nil {
		s.logger.Error("Failed to send greeting audio",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return
	}

	timeout := s.config.Session.GetInactivityTimeout()

	for {
		conn.SetReadDeadline(time.Now().Add(timeout))

		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("Telephony connection closed unexpectedly",
					slog.String("session_id", sessionID),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		msg, err := telephony.ParseInbound(data)
		if err != nil {
			s.metrics.RecordDecodeError()
			s.logger.Warn("Dropping unparseable media-stream message",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
			continue
		}

		switch msg.Event {
		case telephony.EventStart:
			sess.Touch()
			continue

		case telephony.EventStop:
			s.logger.Info("Media stream stopped",
				slog.String("session_id", sessionID),
			)
			return

		case telephony.EventMedia:
			sess.Touch()

			payload, err := msg.AudioBytes()
			if err != nil {
				s.metrics.RecordDecodeError()
				sess.RecordDroppedChunk()
				s.logger.Warn("Dropping undecodable media frame",
					slog.String("session_id", sessionID),
					slog.String("error", err.Error()),
				)
				continue
			}

			s.metrics.RecordFrameReceived(len(payload))
			sess.Turn.Append(payload)

		default:
			continue
		}

		if !sess.Turn.Ready() {
			continue
		}

		turn := sess.Turn.Drain()

		pcm, err := s.orch.DecodeInbound(turn)
		if err != nil {
			s.metrics.RecordDecodeError()
			sess.RecordDroppedChunk()
			s.logger.Warn("Dropping undecodable turn audio",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
			continue
		}

		result, err := s.orch.ProcessTurn(ctx, sess, pcm)
		if err != nil {
			s.logger.Error("Turn processing failed, ending call",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
			return
		}

		if err := s.sendTelephonyAudio(conn, result.Audio); err != nil {
			s.logger.Error("Failed to send reply audio",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
			return
		}

		if result.Outcome.Kind == dialog.OutcomeComplete {
			return
		}
	}
}

// sendTelephonyAudio converts one bot utterance (16 kHz PCM) to mu-law and
// streams it to the provider as fixed-size JSON-RPC frames.
func (s *Server) sendTelephonyAudio(conn *websocket.Conn, pcm []byte) error {
	mulaw, err := s.orch.EncodeOutbound(pcm)
	if err != nil {
		return fmt.Errorf("failed to encode telephony audio: %w", err)
	}

	return audio.Stream(mulaw, s.config.Audio.TelephonyFrameBytes, func(frame []byte) error {
		if err := conn.WriteJSON(telephony.NewOutboundFrame(frame)); err != nil {
			return fmt.Errorf("failed to send media frame: %w", err)
		}

		s.metrics.RecordFrameSent(len(frame))
		return nil
	})
}
