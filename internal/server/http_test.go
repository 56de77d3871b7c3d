package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/duttnikhil/voice-bot/internal/config"
	"github.com/duttnikhil/voice-bot/internal/metrics"
	"github.com/duttnikhil/voice-bot/internal/orchestrator"
	"github.com/duttnikhil/voice-bot/internal/session"
	"github.com/duttnikhil/voice-bot/internal/synthesis"
	"github.com/duttnikhil/voice-bot/internal/transcription"
)

// Metrics registration is process-global, so all tests share one instance.
var (
	testMetrics     *metrics.Metrics
	testMetricsOnce sync.Once
)

func sharedMetrics() *metrics.Metrics {
	testMetricsOnce.Do(func() {
		testMetrics = metrics.NewMetrics()
	})
	return testMetrics
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newSpeechStub serves both gateway protocols: the transcription upload
// always recognizes "yes", the synthesis request always returns 640 bytes
// of PCM.
func newSpeechStub(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/stt", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "yes"}`))
	})
	mux.HandleFunc("/tts/", func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 640))
	})

	stub := httptest.NewServer(mux)
	t.Cleanup(stub.Close)

	return stub
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Address:      "127.0.0.1",
			Port:         8080,
			ReadTimeout:  5,
			WriteTimeout: 5,
		},
		Public: config.PublicConfig{
			Domain:   "bot.example.com",
			WSScheme: "wss",
		},
		Telephony: config.TelephonyConfig{
			Domain: "bot.example.com",
		},
		Audio: config.AudioConfig{
			SilenceThreshold:    500,
			TurnThresholdBytes:  160,
			TelephonyFrameBytes: 320,
			BrowserChunkBytes:   256,
			FrameDelayMs:        1,
		},
		Session: config.SessionConfig{
			InactivityTimeout: 5,
			CleanupInterval:   30,
		},
		Transcription: config.TranscriptionConfig{
			Model: "whisper-1",
		},
		Synthesis: config.SynthesisConfig{
			VoiceID: "voice-1",
			ModelID: "eleven_multilingual_v2",
		},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
	}
}

// newTestServer wires a full server against the speech stub and returns it
// together with its httptest frontend.
func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	stub := newSpeechStub(t)
	cfg := testConfig()

	registry := session.NewRegistry(testLogger(), session.Config{
		InactivityTimeout:  cfg.Session.GetInactivityTimeout(),
		CleanupInterval:    cfg.Session.GetCleanupInterval(),
		TurnThresholdBytes: cfg.Audio.TurnThresholdBytes,
	})
	t.Cleanup(registry.Stop)

	transcriber, err := transcription.NewClient(transcription.Config{
		Endpoint: stub.URL + "/stt",
		APIKey:   "test-key",
	})
	if err != nil {
		t.Fatalf("Failed to create transcription client: %v", err)
	}

	synthesizer, err := synthesis.NewClient(synthesis.Config{
		Endpoint: stub.URL + "/tts",
		APIKey:   "test-key",
		VoiceID:  "voice-1",
	})
	if err != nil {
		t.Fatalf("Failed to create synthesis client: %v", err)
	}

	orch := orchestrator.New(testLogger(), sharedMetrics(), transcriber, synthesizer, orchestrator.Config{
		SilenceThreshold: cfg.Audio.SilenceThreshold,
	})

	srv := NewServer(testLogger(), cfg, registry, orch, transcriber, synthesizer, sharedMetrics())

	frontend := httptest.NewServer(srv.server.Handler)
	t.Cleanup(frontend.Close)

	return srv, frontend
}

func TestInitSession(t *testing.T) {
	_, frontend := newTestServer(t)

	resp, err := http.Post(frontend.URL+"/api/init-session?bot_type=home_renovation", "", nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var body struct {
		SessionID string `json:"session_id"`
		BotType   string `json:"bot_type"`
		WSURL     string `json:"ws_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if body.SessionID == "" {
		t.Error("Expected a session id")
	}

	if body.BotType != "home_renovation" {
		t.Errorf("Expected bot type home_renovation, got %q", body.BotType)
	}

	expectedPrefix := "wss://bot.example.com/ws/voice/" + body.SessionID
	if !strings.HasPrefix(body.WSURL, expectedPrefix) {
		t.Errorf("Expected ws_url to start with %q, got %q", expectedPrefix, body.WSURL)
	}
}

func TestInitSessionDefaultsToQuickRupee(t *testing.T) {
	_, frontend := newTestServer(t)

	resp, err := http.Post(frontend.URL+"/api/init-session", "", nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)

	if body["bot_type"] != "quickrupee" {
		t.Errorf("Expected default bot type quickrupee, got %q", body["bot_type"])
	}
}

func TestInitSessionUnknownBotType(t *testing.T) {
	_, frontend := newTestServer(t)

	resp, err := http.Post(frontend.URL+"/api/init-session?bot_type=mortgage", "", nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
}

func TestInitSessionMethodNotAllowed(t *testing.T) {
	_, frontend := newTestServer(t)

	resp, err := http.Get(frontend.URL + "/api/init-session")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", resp.StatusCode)
	}
}

func TestVoiceWebhook(t *testing.T) {
	_, frontend := newTestServer(t)

	resp, err := http.Post(frontend.URL+"/voice", "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "application/xml" {
		t.Errorf("Expected application/xml content type, got %q", ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}

	doc := string(body)
	for _, fragment := range []string{"<Response>", "<Start>", `wss://bot.example.com/ws/telephony/`} {
		if !strings.Contains(doc, fragment) {
			t.Errorf("Expected webhook response to contain %s, got %s", fragment, doc)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	_, frontend := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, frontend.URL+"/api/init-session", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", resp.StatusCode)
	}

	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("Expected allow-all origin, got %q", origin)
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, frontend := newTestServer(t)

	resp, err := http.Get(frontend.URL + "/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var health map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if health["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", health["status"])
	}
}

func TestSessionsEndpoint(t *testing.T) {
	srv, frontend := newTestServer(t)

	srv.registry.Create("call-1", "quickrupee")

	resp, err := http.Get(frontend.URL + "/sessions")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		TotalSessions int `json:"total_sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if body.TotalSessions != 1 {
		t.Errorf("Expected 1 session, got %d", body.TotalSessions)
	}
}

func TestSessionDetailNotFound(t *testing.T) {
	_, frontend := newTestServer(t)

	resp, err := http.Get(frontend.URL + "/sessions/no-such-call")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}
}

func TestConfigEndpointOmitsSecrets(t *testing.T) {
	srv, frontend := newTestServer(t)
	srv.config.Transcription.APIKey = "super-secret"
	srv.config.Synthesis.APIKey = "also-secret"

	resp, err := http.Get(frontend.URL + "/config")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}

	if strings.Contains(string(body), "secret") {
		t.Error("Expected API keys to be omitted from /config")
	}
}

func TestStatsEndpoint(t *testing.T) {
	_, frontend := newTestServer(t)

	resp, err := http.Get(frontend.URL + "/stats")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var stats map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	for _, key := range []string{"uptime", "sessions", "transcription", "synthesis"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("Expected %q key in stats response", key)
		}
	}
}
