package telephony

import (
	"encoding/xml"
	"fmt"
)

// voiceResponse is the markup document returned to the telephony provider
// at call start. It instructs the provider to open a bidirectional
// media-stream connection to the per-call WebSocket URL.
type voiceResponse struct {
	XMLName xml.Name    `xml:"Response"`
	Start   streamStart `xml:"Start"`
}

type streamStart struct {
	Stream streamTarget `xml:"Stream"`
}

type streamTarget struct {
	URL string `xml:"url,attr"`
}

// StreamTwiML renders the call-setup webhook response pointing the provider
// at the given media-stream WebSocket URL.
func StreamTwiML(wsURL string) (string, error) {
	doc := voiceResponse{
		Start: streamStart{
			Stream: streamTarget{URL: wsURL},
		},
	}

	body, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to render stream markup: %w", err)
	}

	return xml.Header + string(body), nil
}
