package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/duttnikhil/voice-bot/internal/audio"
	"github.com/duttnikhil/voice-bot/internal/dialog"
	"github.com/duttnikhil/voice-bot/internal/metrics"
	"github.com/duttnikhil/voice-bot/internal/session"
)

// Transcriber converts one utterance of 16 kHz mono PCM16 into text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte) (string, time.Duration, error)
}

// Synthesizer converts text into 16 kHz mono PCM16 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, time.Duration, error)
}

// Config tunes the orchestrator's audio handling.
type Config struct {
	// SilenceThreshold is the PCM amplitude gate applied before mu-law
	// encoding on the telephony channel. Zero disables the gate.
	SilenceThreshold int
}

// Prompt is one bot utterance ready to play: the text spoken and its
// synthesized 16 kHz PCM rendering.
type Prompt struct {
	Text       string
	Audio      []byte
	TTSLatency time.Duration
}

// TurnResult is the full outcome of processing one user turn.
type TurnResult struct {
	Transcript string
	ASRLatency time.Duration
	Outcome    dialog.Outcome
	Audio      []byte
	TTSLatency time.Duration
}

// Orchestrator runs the transcribe -> classify -> synthesize pipeline for
// interview sessions. One instance is shared by all sessions.
type Orchestrator struct {
	logger      *slog.Logger
	metrics     *metrics.Metrics
	transcriber Transcriber
	synthesizer Synthesizer
	cfg         Config
}

// New creates an orchestrator over the given speech gateways.
func New(logger *slog.Logger, m *metrics.Metrics, t Transcriber, s Synthesizer, cfg Config) *Orchestrator {
	return &Orchestrator{
		logger:      logger,
		metrics:     m,
		transcriber: t,
		synthesizer: s,
		cfg:         cfg,
	}
}

// Greeting starts the session's interview and synthesizes the greeting. The
// machine is left awaiting the answer to the first question.
func (o *Orchestrator) Greeting(ctx context.Context, sess *session.Session) (*Prompt, error) {
	text := sess.Machine.Start()

	pcm, latency, err := o.synthesize(ctx, sess.ID, text)
	if err != nil {
		return nil, err
	}

	o.logger.Info("Greeting synthesized",
		slog.String("session_id", sess.ID),
		slog.String("bot_type", string(sess.Variant)),
		slog.Duration("tts_latency", latency),
	)

	return &Prompt{Text: text, Audio: pcm, TTSLatency: latency}, nil
}

// ProcessTurn runs one full user turn: transcribe the utterance, feed it to
// the dialog machine, and synthesize the machine's reply. Gateway failures
// abort the turn; the caller tears the session down (no retries).
func (o *Orchestrator) ProcessTurn(ctx context.Context, sess *session.Session, pcm []byte) (*TurnResult, error) {
	start := time.Now()

	transcript, asrLatency, err := o.transcribe(ctx, sess.ID, pcm)
	if err != nil {
		return nil, err
	}

	outcome := sess.Machine.OnUtterance(transcript)

	o.logger.Info("Turn classified",
		slog.String("session_id", sess.ID),
		slog.String("transcript", transcript),
		slog.String("state", sess.Machine.State().String()),
		slog.Duration("asr_latency", asrLatency),
	)

	replyAudio, ttsLatency, err := o.synthesize(ctx, sess.ID, outcome.Prompt)
	if err != nil {
		return nil, err
	}

	sess.RecordTurn()
	o.metrics.RecordTurn(time.Since(start).Seconds(), outcome.Kind == dialog.OutcomeUnrecognized)

	if outcome.Kind == dialog.OutcomeComplete {
		o.metrics.RecordInterviewCompleted(outcome.Eligible)
		o.logger.Info("Interview completed",
			slog.String("session_id", sess.ID),
			slog.Bool("eligible", outcome.Eligible),
		)
	}

	return &TurnResult{
		Transcript: transcript,
		ASRLatency: asrLatency,
		Outcome:    outcome,
		Audio:      replyAudio,
		TTSLatency: ttsLatency,
	}, nil
}

// DecodeInbound converts one telephony media frame (8 kHz mu-law) to the
// 16 kHz PCM16 the pipeline works in.
func (o *Orchestrator) DecodeInbound(mulaw []byte) ([]byte, error) {
	pcm8k := audio.DecodeMuLaw(mulaw)

	pcm16k, err := audio.Upsample8kTo16k(pcm8k)
	if err != nil {
		return nil, fmt.Errorf("failed to upsample inbound audio: %w", err)
	}

	return pcm16k, nil
}

// EncodeOutbound converts 16 kHz PCM16 bot audio to the 8 kHz mu-law the
// telephony channel expects.
func (o *Orchestrator) EncodeOutbound(pcm []byte) ([]byte, error) {
	pcm8k, err := audio.Downsample16kTo8k(pcm)
	if err != nil {
		return nil, fmt.Errorf("failed to downsample outbound audio: %w", err)
	}

	mulaw, err := audio.EncodeMuLaw(pcm8k, o.cfg.SilenceThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to encode outbound audio: %w", err)
	}

	return mulaw, nil
}

func (o *Orchestrator) transcribe(ctx context.Context, sessionID string, pcm []byte) (string, time.Duration, error) {
	transcript, latency, err := o.transcriber.Transcribe(ctx, pcm)
	o.metrics.RecordTranscription(latency.Seconds(), err != nil)

	if err != nil {
		o.logger.Error("Transcription failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return "", latency, fmt.Errorf("transcription failed: %w", err)
	}

	return transcript, latency, nil
}

func (o *Orchestrator) synthesize(ctx context.Context, sessionID, text string) ([]byte, time.Duration, error) {
	pcm, latency, err := o.synthesizer.Synthesize(ctx, text)
	o.metrics.RecordSynthesis(latency.Seconds(), err != nil)

	if err != nil {
		o.logger.Error("Synthesis failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return nil, latency, fmt.Errorf("synthesis failed: %w", err)
	}

	return pcm, latency, nil
}
