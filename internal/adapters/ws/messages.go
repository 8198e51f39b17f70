package ws

import (
	"encoding/json"
	"fmt"

	"solden-marketplace-service/internal/domain/shared"
	"solden-marketplace-service/internal/ports/outbound"
)

// ClientFrame is the envelope every inbound message uses: a source tag that
// selects the operation plus an operation-specific payload.
type ClientFrame struct {
	Source string          `json:"source"`
	Data   json.RawMessage `json:"data"`
}

// ServerFrame is the envelope every outbound message uses. Clients dispatch
// on the source tag.
type ServerFrame struct {
	Source string      `json:"source"`
	Data   interface{} `json:"data"`
}

// ErrorFrame is sent in place of a ServerFrame when an operation fails.
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ParseClientFrame parses an inbound frame and validates the envelope
func ParseClientFrame(data []byte) (*ClientFrame, error) {
	var frame ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, shared.ErrInvalidMessageFormat
	}

	if frame.Source == "" {
		return nil, shared.ErrInvalidMessageFormat
	}

	return &frame, nil
}

func NewServerFrame(source string, data interface{}) *ServerFrame {
	return &ServerFrame{Source: source, Data: data}
}

// NewErrorFrame converts an operation error into a client-facing error frame.
// Internal failures are masked; only validation and domain errors carry their
// message through.
func NewErrorFrame(err error) *ErrorFrame {
	message := "internal error"
	if shared.IsClientVisible(err) {
		message = err.Error()
	}
	return &ErrorFrame{Type: "error", Message: message}
}

// frameFromEvent converts a broadcast event into an outbound frame
func frameFromEvent(event outbound.Event) *ServerFrame {
	return &ServerFrame{Source: event.Source, Data: event.Data}
}

// decodeInto unmarshals an operation payload, mapping malformed JSON to the
// client-visible request error
func decodeInto(data json.RawMessage, dst interface{}) error {
	if len(data) == 0 {
		return shared.ErrInvalidRequest
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidRequest, err)
	}
	return nil
}
