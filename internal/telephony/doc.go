// Package telephony implements the wire protocol of the provider's
// media-stream channel: the JSON event envelopes exchanged over the
// bidirectional audio WebSocket, and the markup document returned by the
// call-setup webhook that instructs the provider to open that stream.
package telephony
