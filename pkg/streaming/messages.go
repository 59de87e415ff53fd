package streaming

import (
	"encoding/json"
	"fmt"
)

// Message type constants matching the streaming protocol.
const (
	// live map view, browser to server
	TypeNavigate = "navigate"
	TypeResize   = "resize"
	TypeToggle   = "toggle"
	TypePanZoom  = "panzoom"

	// live map view, server to browser
	TypeView  = "view"
	TypeError = "error"

	// snapshot mirror, cache job to mirror server
	TypeDocument = "document"
	TypeAck      = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload into an envelope of the given type.
func NewEnvelope(msgType string, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Type: msgType}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return Envelope{Type: msgType, Payload: raw}, nil
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"`           // always "ack"
	For  string `json:"for"`            // the message type being acknowledged
	Name string `json:"name,omitempty"` // the document name for document acks
}

// NavigatePayload selects the map shown by a live view session.
type NavigatePayload struct {
	MapID string `json:"mapId"`
}

// ResizePayload reports the browser window and navigation bar heights.
type ResizePayload struct {
	WindowHeight int `json:"windowHeight"`
	NavBarHeight int `json:"navBarHeight"`
}

// TogglePayload shows or hides one overlay group.
type TogglePayload struct {
	Label   string `json:"label"`
	Visible bool   `json:"visible"`
}

// PanZoomPayload records the static image pan/zoom position.
type PanZoomPayload struct {
	Scale float64 `json:"scale"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// ErrorPayload reports a rejected command.
type ErrorPayload struct {
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
}

// DocumentPayload carries one snapshot document to a mirror.
type DocumentPayload struct {
	Name string          `json:"name"`
	Body json.RawMessage `json:"body"`
}
