package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Stand-in for both speech gateways during local development: answers the
// Whisper-style transcription upload and the ElevenLabs-style synthesis
// request with canned data so the service can run without real API keys.

type transcriptionResponse struct {
	Text string `json:"text"`
}

type synthesisRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart form
	err := r.ParseMultipartForm(10 << 20) // 10 MB
	if err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	model := r.FormValue("model")

	// Get audio file
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	log.Printf("🎤 TRANSCRIPTION REQUEST RECEIVED:")
	log.Printf("    Model: %s", model)
	log.Printf("    Filename: %s", header.Filename)
	log.Printf("    Audio Size: %d bytes", len(audioData))
	log.Printf("    Authorization present: %v", r.Header.Get("Authorization") != "")

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	response := transcriptionResponse{Text: "yes"}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)

	log.Printf("✅ TRANSCRIPTION RESPONSE SENT: '%s'", response.Text)
	log.Println("---")
}

func synthesizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	voiceID := strings.TrimPrefix(r.URL.Path, "/v1/text-to-speech/")

	var req synthesisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error parsing request body", http.StatusBadRequest)
		return
	}

	log.Printf("🔊 SYNTHESIS REQUEST RECEIVED:")
	log.Printf("    Voice ID: %s", voiceID)
	log.Printf("    Model ID: %s", req.ModelID)
	log.Printf("    Text: %s", req.Text)
	log.Printf("    API Key present: %v", r.Header.Get("xi-api-key") != "")

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	// One second of silence: 16000 samples of 16kHz mono PCM16
	audio := make([]byte, 32000)

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(audio)

	log.Printf("✅ SYNTHESIS RESPONSE SENT: %d bytes", len(audio))
	log.Println("---")
}

func main() {
	http.HandleFunc("/v1/audio/transcriptions", transcribeHandler)
	http.HandleFunc("/v1/text-to-speech/", synthesizeHandler)

	port := ":9000"
	log.Printf("🚀 Test Speech Server starting on port %s", port)
	log.Printf("📡 STT Endpoint: http://localhost%s/v1/audio/transcriptions", port)
	log.Printf("📡 TTS Endpoint: http://localhost%s/v1/text-to-speech/{voice_id}", port)
	log.Println("💡 Point transcription.endpoint and synthesis.endpoint at these URLs")

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
