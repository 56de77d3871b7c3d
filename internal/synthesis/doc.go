// Package synthesis implements the HTTP client for the text-to-speech
// service. It posts prompt text with a voice identifier and receives raw
// 16kHz mono PCM audio back.
package synthesis
