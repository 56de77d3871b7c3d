package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{APIKey: "key", VoiceID: "v"}); err == nil {
		t.Error("Expected error for missing endpoint")
	}

	if _, err := NewClient(Config{Endpoint: "http://localhost", VoiceID: "v"}); err == nil {
		t.Error("Expected error for missing API key")
	}

	if _, err := NewClient(Config{Endpoint: "http://localhost", APIKey: "key"}); err == nil {
		t.Error("Expected error for missing voice id")
	}
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(Config{Endpoint: "http://localhost", APIKey: "key", VoiceID: "v"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if client.config.ModelID != "eleven_multilingual_v2" {
		t.Errorf("Expected default model eleven_multilingual_v2, got %q", client.config.ModelID)
	}

	if client.config.Stability != 0.5 {
		t.Errorf("Expected default stability 0.5, got %f", client.config.Stability)
	}

	if client.config.SimilarityBoost != 0.75 {
		t.Errorf("Expected default similarity boost 0.75, got %f", client.config.SimilarityBoost)
	}
}

func TestSynthesizeSuccess(t *testing.T) {
	fakeAudio := bytes.Repeat([]byte{0x01, 0x02}, 160)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}

		if !strings.HasSuffix(r.URL.Path, "/voice-42") {
			t.Errorf("Expected voice id in path, got %q", r.URL.Path)
		}

		if key := r.Header.Get("xi-api-key"); key != "test-key" {
			t.Errorf("Unexpected xi-api-key header: %q", key)
		}

		var req synthesisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request body: %v", err)
		}

		if req.Text != "Are you a salaried employee?" {
			t.Errorf("Unexpected text: %q", req.Text)
		}

		if req.ModelID != "eleven_multilingual_v2" {
			t.Errorf("Unexpected model id: %q", req.ModelID)
		}

		if req.VoiceSettings.Stability != 0.5 || req.VoiceSettings.SimilarityBoost != 0.75 {
			t.Errorf("Unexpected voice settings: %+v", req.VoiceSettings)
		}

		w.Write(fakeAudio)
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, APIKey: "test-key", VoiceID: "voice-42"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	audio, latency, err := client.Synthesize(context.Background(), "Are you a salaried employee?")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if !bytes.Equal(audio, fakeAudio) {
		t.Errorf("Expected %d audio bytes back, got %d", len(fakeAudio), len(audio))
	}

	if latency <= 0 {
		t.Errorf("Expected positive latency, got %v", latency)
	}

	stats := client.GetStats()
	if stats.SuccessRequests != 1 || stats.BytesReceived != uint64(len(fakeAudio)) {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestSynthesizeServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, APIKey: "test-key", VoiceID: "v"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, _, err = client.Synthesize(context.Background(), "hello")

	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("Expected *ServiceError, got %v", err)
	}

	if svcErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", svcErr.StatusCode)
	}
}

func TestSynthesizeEmptyText(t *testing.T) {
	client, err := NewClient(Config{Endpoint: "http://localhost:1", APIKey: "key", VoiceID: "v"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, _, err := client.Synthesize(context.Background(), ""); err == nil {
		t.Error("Expected error for empty text")
	}
}

func TestSynthesizeTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte("late"))
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Endpoint: server.URL,
		APIKey:   "test-key",
		VoiceID:  "v",
		Timeout:  50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, _, err := client.Synthesize(context.Background(), "hello"); err == nil {
		t.Error("Expected timeout error")
	}
}
