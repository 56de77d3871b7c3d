package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/duttnikhil/voice-bot/internal/config"
	"github.com/duttnikhil/voice-bot/internal/dialog"
	"github.com/duttnikhil/voice-bot/internal/metrics"
	"github.com/duttnikhil/voice-bot/internal/orchestrator"
	"github.com/duttnikhil/voice-bot/internal/session"
	"github.com/duttnikhil/voice-bot/internal/synthesis"
	"github.com/duttnikhil/voice-bot/internal/telephony"
	"github.com/duttnikhil/voice-bot/internal/transcription"
)

// Server hosts every HTTP endpoint of the service: the call-setup webhook,
// the browser bootstrap API, both WebSocket audio channels, and the
// monitoring API.
type Server struct {
	server      *http.Server
	logger      *slog.Logger
	config      *config.Config
	registry    *session.Registry
	orch        *orchestrator.Orchestrator
	transcriber *transcription.Client
	synthesizer *synthesis.Client
	metrics     *metrics.Metrics
	upgrader    websocket.Upgrader

	// Server state
	startTime time.Time
	mu        sync.RWMutex
}

// NewServer creates the HTTP server with all routes configured.
func NewServer(logger *slog.Logger, cfg *config.Config, registry *session.Registry,
	orch *orchestrator.Orchestrator, transcriber *transcription.Client,
	synthesizer *synthesis.Client, m *metrics.Metrics) *Server {

	s := &Server{
		logger:      logger,
		config:      cfg,
		registry:    registry,
		orch:        orch,
		transcriber: transcriber,
		synthesizer: synthesizer,
		metrics:     m,
		upgrader:    websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from arbitrary origins; access
			// control is the fronting proxy's concern.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.GetReadTimeout(),
		WriteTimeout: cfg.Server.GetWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures HTTP routes.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Telephony call-setup webhook
	mux.HandleFunc("/voice", s.withMetrics("/voice", s.withCORS(s.handleVoiceWebhook)))

	// Browser session bootstrap
	mux.HandleFunc("/api/init-session", s.withMetrics("/api/init-session", s.withCORS(s.handleInitSession)))

	// WebSocket audio channels. The upgrade hijacks the connection, so the
	// metrics middleware's status capture does not apply here.
	mux.HandleFunc("/ws/telephony/", s.handleTelephonyStream)
	mux.HandleFunc("/ws/voice/", s.handleBrowserStream)

	// Monitoring API
	mux.HandleFunc("/health", s.withMetrics("/health", s.handleHealth))
	mux.HandleFunc("/sessions", s.withMetrics("/sessions", s.handleSessions))
	mux.HandleFunc("/sessions/", s.withMetrics("/sessions/{id}", s.handleSessionDetail))
	mux.HandleFunc("/config", s.withMetrics("/config", s.handleConfig))
	mux.HandleFunc("/stats", s.withMetrics("/stats", s.handleStats))

	// Speech gateway statistics
	mux.HandleFunc("/stats/transcription", s.withMetrics("/stats/transcription", s.handleTranscriptionStats))
	mux.HandleFunc("/stats/synthesis", s.withMetrics("/stats/synthesis", s.handleSynthesisStats))

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", s.withMetrics("/", s.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection.
func (s *Server) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		s.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			s.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// withCORS applies the allow-all CORS policy of the public API endpoints.
func (s *Server) withCORS(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		handler(w, r)
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		slog.String("address", s.server.Addr),
	)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server...")

	return s.server.Shutdown(ctx)
}

// handleVoiceWebhook implements the POST /voice endpoint. The telephony
// provider calls it at call start; the response instructs the provider to
// open a media stream to a fresh per-call WebSocket URL. The session itself
// is created when that stream connects.
func (s *Server) handleVoiceWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := uuid.New().String()
	streamURL := fmt.Sprintf("wss://%s/ws/telephony/%s", s.config.Telephony.Domain, sessionID)

	twiml, err := telephony.StreamTwiML(streamURL)
	if err != nil {
		s.logger.Error("Failed to render webhook response", slog.String("error", err.Error()))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.logger.Info("Call webhook handled",
		slog.String("session_id", sessionID),
		slog.String("stream_url", streamURL),
	)

	w.Header().Set("Content-Type", "application/xml")
	fmt.Fprint(w, twiml)
}

// handleInitSession implements the POST /api/init-session endpoint. Browser
// clients call it to obtain a session id and the WebSocket URL to connect
// to; the bot_type query parameter selects the script variant.
func (s *Server) handleInitSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	variant, err := dialog.ParseVariant(r.URL.Query().Get("bot_type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sessionID := uuid.New().String()
	wsURL := fmt.Sprintf("%s://%s/ws/voice/%s?bot_type=%s",
		s.config.Public.WSScheme, s.config.Public.Domain, sessionID, variant)

	s.logger.Info("Session initialized",
		slog.String("session_id", sessionID),
		slog.String("bot_type", string(variant)),
	)

	response := map[string]interface{}{
		"session_id": sessionID,
		"bot_type":   string(variant),
		"ws_url":     wsURL,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleHealth implements the /health endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.startTime)
	registryStats := s.registry.Stats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "voice-bot",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"sessions": map[string]interface{}{
				"status":           "running",
				"active_sessions":  registryStats.Active,
				"sessions_created": registryStats.Created,
				"sessions_expired": registryStats.Expired,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleSessions implements the /sessions endpoint.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions := s.registry.All()
	infos := make([]session.Info, 0, len(sessions))

	for _, sess := range sessions {
		infos = append(infos, sess.Info())
	}

	response := map[string]interface{}{
		"total_sessions": len(infos),
		"timestamp":      time.Now().UTC(),
		"sessions":       infos,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleSessionDetail implements the /sessions/{session_id} endpoint.
func (s *Server) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if sessionID == "" {
		http.Error(w, "Session ID required", http.StatusBadRequest)
		return
	}

	sess, err := s.registry.Get(sessionID)
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sess.Info())
}

// handleConfig implements the /config endpoint.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"server": map[string]interface{}{
			"address": s.config.Server.Address,
			"port":    s.config.Server.Port,
		},
		"audio": map[string]interface{}{
			"silence_threshold":     s.config.Audio.SilenceThreshold,
			"turn_threshold_bytes":  s.config.Audio.TurnThresholdBytes,
			"telephony_frame_bytes": s.config.Audio.TelephonyFrameBytes,
			"browser_chunk_bytes":   s.config.Audio.BrowserChunkBytes,
			"frame_delay_ms":        s.config.Audio.FrameDelayMs,
		},
		"session": map[string]interface{}{
			"inactivity_timeout": s.config.Session.InactivityTimeout,
			"cleanup_interval":   s.config.Session.CleanupInterval,
			"max_sessions":       s.config.Session.MaxSessions,
		},
		"transcription": map[string]interface{}{
			"endpoint":       s.config.Transcription.Endpoint,
			"model":          s.config.Transcription.Model,
			"timeout":        s.config.Transcription.Timeout,
			"max_concurrent": s.config.Transcription.MaxConcurrent,
			// Note: API key is intentionally omitted for security
		},
		"synthesis": map[string]interface{}{
			"endpoint":         s.config.Synthesis.Endpoint,
			"voice_id":         s.config.Synthesis.VoiceID,
			"model_id":         s.config.Synthesis.ModelID,
			"timeout":          s.config.Synthesis.Timeout,
			"stability":        s.config.Synthesis.Stability,
			"similarity_boost": s.config.Synthesis.SimilarityBoost,
		},
		"logging": map[string]interface{}{
			"level":  s.config.Logging.Level,
			"format": s.config.Logging.Format,
			"output": s.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.startTime)

	stats := map[string]interface{}{
		"uptime":        uptime.String(),
		"timestamp":     time.Now().UTC(),
		"sessions":      s.registry.Stats(),
		"transcription": s.transcriber.GetStats(),
		"synthesis":     s.synthesizer.GetStats(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleTranscriptionStats implements the /stats/transcription endpoint.
func (s *Server) handleTranscriptionStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.transcriber.GetStats())
}

// handleSynthesisStats implements the /stats/synthesis endpoint.
func (s *Server) handleSynthesisStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.synthesizer.GetStats())
}

// handleRoot implements the / endpoint with API documentation.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Voice Qualification Bot",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"POST /voice":                "Telephony call-setup webhook",
			"POST /api/init-session":     "Create a browser session (bot_type query parameter)",
			"GET /ws/telephony/{id}":     "Telephony media-stream WebSocket",
			"GET /ws/voice/{id}":         "Browser audio WebSocket",
			"GET /health":                "Service health check",
			"GET /sessions":              "List all active sessions",
			"GET /sessions/{session_id}": "Get detailed session information",
			"GET /config":                "Get service configuration",
			"GET /stats":                 "Get service statistics",
			"GET /stats/transcription":   "Get transcription client statistics",
			"GET /stats/synthesis":       "Get synthesis client statistics",
			"GET /metrics":               "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
