package audio

import (
	"context"
	"fmt"
	"time"
)

// Outbound frame sizes for the two delivery channels. The telephony
// media-stream protocol expects small frames (320 bytes of 8kHz mu-law is
// 40ms of audio); the browser channel tolerates larger binary chunks. Both
// are tunable through configuration -- these are defaults, not protocol
// requirements.
const (
	DefaultTelephonyFrameBytes = 320
	DefaultBrowserChunkBytes   = 4096

	// DefaultFrameDelay paces browser chunk emission so playback
	// buffers on the receiving side are not overwhelmed.
	DefaultFrameDelay = 10 * time.Millisecond
)

// EmitFunc receives one outbound frame. Frames are delivered strictly in
// order; frame i is fully emitted before frame i+1 begins.
type EmitFunc func(frame []byte) error

// Stream slices buf into contiguous frames of at most frameSize bytes (the
// last frame may be shorter) and invokes emit once per frame, synchronously
// and with no inter-frame gap.
func Stream(buf []byte, frameSize int, emit EmitFunc) error {
	if frameSize <= 0 {
		return fmt.Errorf("frame size must be positive, got %d", frameSize)
	}

	for start := 0; start < len(buf); start += frameSize {
		end := start + frameSize
		if end > len(buf) {
			end = len(buf)
		}

		if err := emit(buf[start:end]); err != nil {
			return fmt.Errorf("emit frame at offset %d: %w", start, err)
		}
	}

	return nil
}

// StreamPaced behaves like Stream but sleeps for delay between consecutive
// frames to emulate real-time playback pacing. This is a fixed-rate limiter,
// not backpressure: it does not observe the receiver's consumption rate.
// Cancellation of ctx stops emission between frames.
func StreamPaced(ctx context.Context, buf []byte, frameSize int, delay time.Duration, emit EmitFunc) error {
	if frameSize <= 0 {
		return fmt.Errorf("frame size must be positive, got %d", frameSize)
	}

	first := true
	for start := 0; start < len(buf); start += frameSize {
		if !first {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		first = false

		end := start + frameSize
		if end > len(buf) {
			end = len(buf)
		}

		if err := emit(buf[start:end]); err != nil {
			return fmt.Errorf("emit frame at offset %d: %w", start, err)
		}
	}

	return nil
}
