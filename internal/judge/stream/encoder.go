// Package stream encodes judge run events as Server-Sent Events.
package stream

import (
	"encoding/json"
	"fmt"
	"io"
)

// Event names. Exactly one compile event opens every stream; execute events
// follow in completion order; a single error event, if any, terminates it.
const (
	EventCompile = "compile"
	EventExecute = "execute"
	EventError   = "error"
)

// Event is one tagged record of the outbound event sequence.
type Event struct {
	Name    string
	Payload interface{}
}

// ErrorPayload is the body of a terminal error event.
type ErrorPayload struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// Encoder writes events in SSE wire format: an event name line, a data line
// holding the JSON payload, and a terminating blank line.
type Encoder struct {
	w io.Writer
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes one event. The caller is responsible for flushing the
// underlying transport between events.
func (e *Encoder) Encode(event Event) error {
	data, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("encode event payload failed: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event.Name, data); err != nil {
		return fmt.Errorf("write event failed: %w", err)
	}
	return nil
}
