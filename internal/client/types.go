// Package client provides the WebSocket session used to talk to a YAAN assistant
// server. Types mirror the server wire protocol without importing server packages.
package client

import (
	"encoding/json"
	"errors"
)

// MessageType identifies the kind of envelope.
type MessageType string

const (
	MsgWelcome  MessageType = "welcome"
	MsgResponse MessageType = "response"
	MsgCommand  MessageType = "command"
)

// Envelope is the JSON object exchanged in both directions. Inbound payload text
// arrives under either "message" or "text"; outbound envelopes only use "text".
type Envelope struct {
	Type    MessageType `json:"type"`
	Message *string     `json:"message,omitempty"`
	Text    *string     `json:"text,omitempty"`
}

// wireEnvelope keeps field presence so a missing type can be told apart from an
// empty one, and so non-string payloads can be coerced.
type wireEnvelope struct {
	Type    *string         `json:"type"`
	Message json.RawMessage `json:"message"`
	Text    json.RawMessage `json:"text"`
}

var errMissingType = errors.New(`missing "type" field`)

// NewCommand builds the outbound envelope for user input.
func NewCommand(text string) Envelope {
	return Envelope{Type: MsgCommand, Text: &text}
}

// DecodeEnvelope parses one complete inbound message.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return Envelope{}, err
	}
	if w.Type == nil {
		return Envelope{}, errMissingType
	}
	return Envelope{
		Type:    MessageType(*w.Type),
		Message: payloadField(w.Message),
		Text:    payloadField(w.Text),
	}, nil
}

// payloadField returns nil for an absent or null field. Strings are unquoted;
// any other JSON value is kept in its literal form.
func payloadField(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	return &s
}

// Displayable reports whether the envelope carries text meant for the user.
func (e Envelope) Displayable() bool {
	return e.Type == MsgWelcome || e.Type == MsgResponse
}

// Payload returns the envelope text, preferring "message" over "text" and
// defaulting to the empty string.
func (e Envelope) Payload() string {
	switch {
	case e.Message != nil:
		return *e.Message
	case e.Text != nil:
		return *e.Text
	default:
		return ""
	}
}
