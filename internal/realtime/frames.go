package realtime

import "encoding/json"

// Frame types the push channel carries.
const (
	// FrameConnected is the server's subscription confirmation, sent
	// once after the socket opens.
	FrameConnected = "connected"

	// FrameMessage carries a chat message in Data.
	FrameMessage = "message"
)

// Frame is the tagged payload exchanged over the push channel, in both
// directions. Data is left raw; the handler decodes it per Type.
type Frame struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}
