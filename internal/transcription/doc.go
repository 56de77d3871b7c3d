// Package transcription implements the HTTP client for the speech-to-text
// service. It wraps drained utterance audio in a WAV container, uploads it
// as multipart form data with bearer authentication, and manages request
// concurrency limiting.
package transcription
