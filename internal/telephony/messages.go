package telephony

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Media-stream event names sent by the telephony provider.
const (
	EventStart = "start"
	EventMedia = "media"
	EventStop  = "stop"
)

// InboundMessage is the envelope of every JSON message the provider sends
// on the media-stream channel.
type InboundMessage struct {
	Event string        `json:"event"`
	Media *MediaPayload `json:"media,omitempty"`
}

// MediaPayload carries one frame of base64-encoded mu-law audio.
type MediaPayload struct {
	Payload string `json:"payload"`
}

// OutboundMessage is the JSON-RPC shaped frame the service sends back, one
// message per outbound audio frame.
type OutboundMessage struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int            `json:"id"`
	Result  OutboundResult `json:"result"`
}

// OutboundResult carries the base64-encoded mu-law frame payload.
type OutboundResult struct {
	Payload string `json:"payload"`
}

// ParseInbound decodes a media-stream JSON message. Unknown events are not
// an error here; callers ignore what they do not handle.
func ParseInbound(data []byte) (*InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse media-stream message: %w", err)
	}

	return &msg, nil
}

// AudioBytes decodes the base64 mu-law payload of a media event.
func (m *InboundMessage) AudioBytes() ([]byte, error) {
	if m.Event != EventMedia || m.Media == nil || m.Media.Payload == "" {
		return nil, fmt.Errorf("message has no media payload (event %q)", m.Event)
	}

	data, err := base64.StdEncoding.DecodeString(m.Media.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode media payload: %w", err)
	}

	return data, nil
}

// NewOutboundFrame wraps one mu-law audio frame in the outbound JSON-RPC
// envelope expected on the media-stream channel.
func NewOutboundFrame(mulaw []byte) OutboundMessage {
	return OutboundMessage{
		JSONRPC: "2.0",
		ID:      1,
		Result: OutboundResult{
			Payload: base64.StdEncoding.EncodeToString(mulaw),
		},
	}
}
