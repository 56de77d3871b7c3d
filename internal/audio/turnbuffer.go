package audio

import (
	"sync"
	"time"
)

// DefaultTurnThresholdBytes is the amount of accumulated inbound audio that
// constitutes a complete utterance. 8000 bytes of 8kHz mu-law is roughly one
// second of speech. This is a deliberate length-based approximation of turn
// detection, not voice-activity detection: an utterance is assumed complete
// once this much audio has arrived since the bot's last prompt.
const DefaultTurnThresholdBytes = 8000

// TurnBuffer accumulates inbound audio bytes for a single session and
// decides when enough has been captured to hand off for transcription.
// All methods are safe for concurrent use, though within a session the
// orchestration loop only ever drives it sequentially.
type TurnBuffer struct {
	threshold int
	data      []byte

	// Statistics
	totalBytes  uint64
	totalAppend uint64
	totalDrains uint64
	lastUpdate  time.Time

	mu sync.RWMutex
}

// TurnBufferStats represents buffer statistics for monitoring.
type TurnBufferStats struct {
	PendingBytes int       `json:"pending_bytes"`
	Threshold    int       `json:"threshold_bytes"`
	TotalBytes   uint64    `json:"total_bytes"`
	TotalAppends uint64    `json:"total_appends"`
	TotalDrains  uint64    `json:"total_drains"`
	LastUpdate   time.Time `json:"last_update"`
}

// NewTurnBuffer creates a turn buffer with the given byte threshold.
// A threshold of zero or less falls back to DefaultTurnThresholdBytes.
func NewTurnBuffer(threshold int) *TurnBuffer {
	if threshold <= 0 {
		threshold = DefaultTurnThresholdBytes
	}

	return &TurnBuffer{
		threshold:  threshold,
		data:       make([]byte, 0, threshold*2),
		lastUpdate: time.Now(),
	}
}

// Append adds inbound audio bytes to the buffer.
func (b *TurnBuffer) Append(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = append(b.data, data...)
	b.totalBytes += uint64(len(data))
	b.totalAppend++
	b.lastUpdate = time.Now()
}

// Ready reports whether the accumulated audio has crossed the threshold and
// is ready for transcription. It stays true until the next Drain.
func (b *TurnBuffer) Ready() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.data) >= b.threshold
}

// Len returns the number of pending bytes.
func (b *TurnBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.data)
}

// Drain returns the accumulated audio and clears the buffer. The returned
// slice is owned by the caller; the buffer never holds a pending utterance
// concurrently with a drained one.
func (b *TurnBuffer) Drain() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.data) == 0 {
		return nil
	}

	drained := b.data
	b.data = make([]byte, 0, b.threshold*2)
	b.totalDrains++
	b.lastUpdate = time.Now()

	return drained
}

// Stats returns current buffer statistics.
func (b *TurnBuffer) Stats() TurnBufferStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return TurnBufferStats{
		PendingBytes: len(b.data),
		Threshold:    b.threshold,
		TotalBytes:   b.totalBytes,
		TotalAppends: b.totalAppend,
		TotalDrains:  b.totalDrains,
		LastUpdate:   b.lastUpdate,
	}
}
