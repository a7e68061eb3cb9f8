// Package message defines the nozzle IPC protocol spoken between the
// daemon and the popup and CLI sub-commands.
//
// All messages are newline-delimited JSON. Each message is exactly one
// line: <json>\n. Every request gets exactly one reply.
package message

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type identifies the kind of message.
type Type string

const (
	// TypeSuppress asks the daemon to stop (or resume) recording clipboard
	// changes. Replied to with TypeAck.
	TypeSuppress Type = "SUPPRESS"

	// TypeCopy asks the daemon to put Text on the clipboard. The daemon
	// stays alive to own the selection after the requester exits.
	TypeCopy Type = "COPY"

	TypeAck            Type = "ACK"
	TypePing           Type = "PING"
	TypePong           Type = "PONG"
	TypeStatus         Type = "STATUS"
	TypeStatusResponse Type = "STATUS_RESPONSE"
	TypeError          Type = "ERROR"
)

// Status describes a running daemon.
type Status struct {
	PID          int       `json:"pid"`
	Version      string    `json:"version"`
	Backend      string    `json:"backend"`
	DB           string    `json:"db"`
	Sealed       bool      `json:"sealed"`
	Records      int       `json:"records"`
	Suppressed   bool      `json:"suppressed"`
	StartedAt    time.Time `json:"started_at"`
	LastRecorded time.Time `json:"last_recorded,omitzero"`
}

// Message is the top-level wire envelope.
type Message struct {
	// Always present
	Type   Type   `json:"type"`
	Source string `json:"source,omitempty"`

	// SUPPRESS: On turns suppression on or off. TTL bounds how long it
	// stays on if the requester never turns it off again.
	On  bool          `json:"on,omitempty"`
	TTL time.Duration `json:"ttl,omitempty"`

	// COPY
	Text string `json:"text,omitempty"`

	// STATUS_RESPONSE
	Status *Status `json:"status,omitempty"`

	// ERROR
	Error string `json:"error,omitempty"`
}

// Suppress builds a SUPPRESS request.
func Suppress(source string, on bool, ttl time.Duration) *Message {
	return &Message{Type: TypeSuppress, Source: source, On: on, TTL: ttl}
}

// Errorf builds an ERROR reply.
func Errorf(format string, args ...any) *Message {
	return &Message{Type: TypeError, Error: fmt.Sprintf(format, args...)}
}

// Err returns the reply's error, if it is an ERROR message.
func (m *Message) Err() error {
	if m.Type != TypeError {
		return nil
	}
	return fmt.Errorf("daemon: %s", m.Error)
}

// Encode serialises the message to JSON without a trailing newline.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode deserialises a message from raw JSON bytes.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("message decode: %w", err)
	}
	if m.Type == "" {
		return nil, fmt.Errorf("message decode: missing type")
	}
	return &m, nil
}
