package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ServiceError reports a non-2xx response from the synthesis service,
// distinct from transport errors.
type ServiceError struct {
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("synthesis service returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Config contains synthesis client configuration.
type Config struct {
	Endpoint        string // Base endpoint; the voice id is appended as a path element
	APIKey          string
	VoiceID         string
	ModelID         string
	Timeout         time.Duration
	Stability       float64
	SimilarityBoost float64
	MaxConcurrent   int
}

// Client converts prompt text to speech via the external synthesis service.
// The service returns raw audio bytes equivalent to 16kHz mono PCM, which
// downstream either streams to the browser verbatim or downsamples and
// mu-law encodes for the telephony leg. Failures are not retried; a failed
// prompt ends the interview.
type Client struct {
	config     Config
	httpClient *http.Client
	semaphore  chan struct{}

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	bytesReceived   uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// ClientStats represents client statistics for monitoring.
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	BytesReceived   uint64        `json:"bytes_received"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	ActiveRequests  int           `json:"active_requests"`
}

// NewClient creates a synthesis client.
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}

	if config.VoiceID == "" {
		return nil, fmt.Errorf("voice id cannot be empty")
	}

	if config.ModelID == "" {
		config.ModelID = "eleven_multilingual_v2"
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	if config.Stability <= 0 {
		config.Stability = 0.5
	}

	if config.SimilarityBoost <= 0 {
		config.SimilarityBoost = 0.75
	}

	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		semaphore:  make(chan struct{}, config.MaxConcurrent),
	}, nil
}

// synthesisRequest is the service's JSON request body.
type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize converts text into raw audio bytes and returns the observed
// service latency alongside.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, time.Duration, error) {
	if text == "" {
		return nil, 0, fmt.Errorf("text cannot be empty")
	}

	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}

	startTime := time.Now()
	c.incrementTotalRequests()

	payload, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: c.config.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       c.config.Stability,
			SimilarityBoost: c.config.SimilarityBoost,
		},
	})
	if err != nil {
		c.incrementFailedRequests()
		return nil, 0, fmt.Errorf("failed to encode request body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	url := strings.TrimRight(c.config.Endpoint, "/") + "/" + c.config.VoiceID
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		c.incrementFailedRequests()
		return nil, 0, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.incrementFailedRequests()
		return nil, time.Since(startTime), fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.incrementFailedRequests()
		return nil, time.Since(startTime), fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.incrementFailedRequests()
		return nil, time.Since(startTime), &ServiceError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	latency := time.Since(startTime)
	c.recordSuccess(latency, len(respBody))

	return respBody, latency, nil
}

func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementFailedRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

func (c *Client) recordSuccess(responseTime time.Duration, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.successRequests++
	c.bytesReceived += uint64(size)

	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics.
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		BytesReceived:   c.bytesReceived,
		AvgResponseTime: c.avgResponseTime,
		ActiveRequests:  len(c.semaphore),
	}
}
