package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Public        PublicConfig        `yaml:"public"`
	Telephony     TelephonyConfig     `yaml:"telephony"`
	Audio         AudioConfig         `yaml:"audio"`
	Session       SessionConfig       `yaml:"session"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Synthesis     SynthesisConfig     `yaml:"synthesis"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig contains HTTP/WebSocket server configuration.
type ServerConfig struct {
	Address      string `yaml:"address"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"read_timeout"`  // seconds
	WriteTimeout int    `yaml:"write_timeout"` // seconds
}

// PublicConfig describes how browser clients reach the service. WSScheme is
// "ws" or "wss" depending on the fronting proxy.
type PublicConfig struct {
	Domain   string `yaml:"domain"`
	WSScheme string `yaml:"ws_scheme"`
}

// TelephonyConfig describes how the telephony provider reaches the
// media-stream endpoint. The provider always dials wss.
type TelephonyConfig struct {
	Domain string `yaml:"domain"`
}

// AudioConfig contains the audio pipeline tunables. The frame sizes and the
// turn threshold are deliberately configuration rather than protocol
// constants; verify the telephony frame size against the provider's
// expected frame duration before changing it.
type AudioConfig struct {
	SilenceThreshold    int `yaml:"silence_threshold"`     // PCM amplitude gate before mu-law encoding
	TurnThresholdBytes  int `yaml:"turn_threshold_bytes"`  // inbound bytes constituting one utterance
	TelephonyFrameBytes int `yaml:"telephony_frame_bytes"` // outbound mu-law frame size
	BrowserChunkBytes   int `yaml:"browser_chunk_bytes"`   // outbound binary chunk size
	FrameDelayMs        int `yaml:"frame_delay_ms"`        // inter-chunk pacing on the browser channel
}

// SessionConfig contains session lifecycle configuration.
type SessionConfig struct {
	InactivityTimeout int `yaml:"inactivity_timeout"` // seconds
	CleanupInterval   int `yaml:"cleanup_interval"`   // seconds
	MaxSessions       int `yaml:"max_sessions"`       // 0 = unlimited
}

// TranscriptionConfig contains speech-to-text service configuration.
type TranscriptionConfig struct {
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	Model         string `yaml:"model"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// SynthesisConfig contains text-to-speech service configuration.
type SynthesisConfig struct {
	Endpoint        string  `yaml:"endpoint"`
	APIKey          string  `yaml:"api_key"`
	VoiceID         string  `yaml:"voice_id"`
	ModelID         string  `yaml:"model_id"`
	Timeout         int     `yaml:"timeout"` // seconds
	Stability       float64 `yaml:"stability"`
	SimilarityBoost float64 `yaml:"similarity_boost"`
	MaxConcurrent   int     `yaml:"max_concurrent"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file. Environment references of
// the form ${VAR} are expanded before parsing so API keys can stay out of
// the file itself.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := os.Expand(string(data), func(name string) string {
		return os.Getenv(name)
	})

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyDefaults fills unset tunables with their documented defaults.
func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10
	}
	if c.Public.WSScheme == "" {
		c.Public.WSScheme = "ws"
	}
	if c.Audio.SilenceThreshold == 0 {
		c.Audio.SilenceThreshold = 500
	}
	if c.Audio.TurnThresholdBytes == 0 {
		c.Audio.TurnThresholdBytes = 8000
	}
	if c.Audio.TelephonyFrameBytes == 0 {
		c.Audio.TelephonyFrameBytes = 320
	}
	if c.Audio.BrowserChunkBytes == 0 {
		c.Audio.BrowserChunkBytes = 4096
	}
	if c.Audio.FrameDelayMs == 0 {
		c.Audio.FrameDelayMs = 10
	}
	if c.Session.InactivityTimeout == 0 {
		c.Session.InactivityTimeout = 120
	}
	if c.Session.CleanupInterval == 0 {
		c.Session.CleanupInterval = 30
	}
	if c.Transcription.Timeout == 0 {
		c.Transcription.Timeout = 30
	}
	if c.Transcription.MaxConcurrent == 0 {
		c.Transcription.MaxConcurrent = 10
	}
	if c.Synthesis.Timeout == 0 {
		c.Synthesis.Timeout = 30
	}
	if c.Synthesis.MaxConcurrent == 0 {
		c.Synthesis.MaxConcurrent = 10
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate performs comprehensive validation of the configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Public.Validate(); err != nil {
		return fmt.Errorf("public config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Synthesis.Validate(); err != nil {
		return fmt.Errorf("synthesis config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration.
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	return nil
}

// Validate validates the public endpoint configuration.
func (p *PublicConfig) Validate() error {
	if p.Domain == "" {
		return fmt.Errorf("domain cannot be empty")
	}

	if p.WSScheme != "ws" && p.WSScheme != "wss" {
		return fmt.Errorf("ws_scheme must be 'ws' or 'wss', got %q", p.WSScheme)
	}

	return nil
}

// Validate validates audio configuration.
func (a *AudioConfig) Validate() error {
	if a.SilenceThreshold < 0 {
		return fmt.Errorf("silence_threshold cannot be negative, got %d", a.SilenceThreshold)
	}

	if a.TurnThresholdBytes < 1 {
		return fmt.Errorf("turn_threshold_bytes must be positive, got %d", a.TurnThresholdBytes)
	}

	if a.TelephonyFrameBytes < 1 {
		return fmt.Errorf("telephony_frame_bytes must be positive, got %d", a.TelephonyFrameBytes)
	}

	if a.BrowserChunkBytes < 1 {
		return fmt.Errorf("browser_chunk_bytes must be positive, got %d", a.BrowserChunkBytes)
	}

	if a.FrameDelayMs < 0 {
		return fmt.Errorf("frame_delay_ms cannot be negative, got %d", a.FrameDelayMs)
	}

	return nil
}

// Validate validates session configuration.
func (s *SessionConfig) Validate() error {
	if s.InactivityTimeout < 1 {
		return fmt.Errorf("inactivity_timeout must be at least 1 second, got %d", s.InactivityTimeout)
	}

	if s.CleanupInterval < 1 {
		return fmt.Errorf("cleanup_interval must be at least 1 second, got %d", s.CleanupInterval)
	}

	if s.MaxSessions < 0 {
		return fmt.Errorf("max_sessions cannot be negative, got %d", s.MaxSessions)
	}

	return nil
}

// Validate validates transcription configuration.
func (t *TranscriptionConfig) Validate() error {
	if t.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if t.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	if t.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", t.MaxConcurrent)
	}

	return nil
}

// Validate validates synthesis configuration.
func (s *SynthesisConfig) Validate() error {
	if s.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if s.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}

	if s.VoiceID == "" {
		return fmt.Errorf("voice_id cannot be empty")
	}

	if s.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", s.Timeout)
	}

	if s.Stability < 0 || s.Stability > 1 {
		return fmt.Errorf("stability must be between 0 and 1, got %f", s.Stability)
	}

	if s.SimilarityBoost < 0 || s.SimilarityBoost > 1 {
		return fmt.Errorf("similarity_boost must be between 0 and 1, got %f", s.SimilarityBoost)
	}

	if s.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", s.MaxConcurrent)
	}

	return nil
}

// Validate validates logging configuration.
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetReadTimeout returns the server read timeout as a time.Duration.
func (s *ServerConfig) GetReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// GetWriteTimeout returns the server write timeout as a time.Duration.
func (s *ServerConfig) GetWriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// GetFrameDelay returns the browser pacing delay as a time.Duration.
func (a *AudioConfig) GetFrameDelay() time.Duration {
	return time.Duration(a.FrameDelayMs) * time.Millisecond
}

// GetInactivityTimeout returns the session inactivity timeout as a
// time.Duration.
func (s *SessionConfig) GetInactivityTimeout() time.Duration {
	return time.Duration(s.InactivityTimeout) * time.Second
}

// GetCleanupInterval returns the expiry sweep interval as a time.Duration.
func (s *SessionConfig) GetCleanupInterval() time.Duration {
	return time.Duration(s.CleanupInterval) * time.Second
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration.
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetTimeoutDuration returns the synthesis timeout as a time.Duration.
func (s *SynthesisConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}
