// Package audio implements the audio plumbing of the voice pipeline:
// mu-law/PCM codec conversion, 8kHz/16kHz resampling, per-session turn
// buffering, outbound frame chunking with optional pacing, and the WAV
// container used when shipping audio to the transcription service.
package audio
