// Package daemonenv defines the wire envelope a long-running daemon
// process and its clients exchange over a newline-delimited JSON stream,
// and the platform-specific socket path the two sides agree on without a
// rendezvous service. It does not implement the socket transport itself -
// that's an external collaborator's job.
package daemonenv

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nrwl-labs/nxcore/internal/nxerrors"
)

// messageDelimiter frames one JSON message per line on the wire.
const messageDelimiter = '\n'

// Envelope is one message exchanged over the daemon socket: Type selects
// how Payload is interpreted (e.g. "HANDSHAKE", "REQUEST_PROJECT_GRAPH",
// or an application-defined request/response type); Payload is carried
// as a raw JSON value so this package never needs to know every message
// shape a caller defines.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// HandshakePayload is the body of the initial HANDSHAKE envelope a client
// sends when it connects, identifying the protocol version it speaks.
type HandshakePayload struct {
	Version string `json:"version"`
}

const handshakeType = "HANDSHAKE"

// Handshake builds the envelope a client sends immediately after
// connecting.
func Handshake(version string) (Envelope, error) {
	payload, err := json.Marshal(HandshakePayload{Version: version})
	if err != nil {
		return Envelope{}, fmt.Errorf("encode handshake payload: %w", err)
	}
	return Envelope{Type: handshakeType, Payload: payload}, nil
}

// IsHandshake reports whether env is a HANDSHAKE envelope.
func (e Envelope) IsHandshake() bool {
	return e.Type == handshakeType
}

// DecodeHandshake unmarshals e's payload as a HandshakePayload. Callers
// should check IsHandshake first.
func (e Envelope) DecodeHandshake() (HandshakePayload, error) {
	var hs HandshakePayload
	if err := json.Unmarshal(e.Payload, &hs); err != nil {
		return HandshakePayload{}, fmt.Errorf("decode handshake payload: %w", err)
	}
	return hs, nil
}

// Request builds a request envelope of msgType with an arbitrary payload
// value, which is marshaled to JSON.
func Request(msgType string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	return Envelope{Type: msgType, Payload: data}, nil
}

// Encode writes env to w as one newline-terminated JSON line.
func Encode(w io.Writer, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	data = append(data, messageDelimiter)
	_, err = w.Write(data)
	return err
}

// Reader decodes a stream of newline-delimited envelopes from an
// underlying connection.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader wraps r in a line-delimited envelope decoder.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	return &Reader{scanner: scanner}
}

// Next reads and decodes the next envelope. It returns
// nxerrors.ErrConnectionClosed when the underlying stream ends cleanly,
// or a *nxerrors.ConnectionError wrapping the underlying read failure.
func (r *Reader) Next() (Envelope, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return Envelope{}, &nxerrors.ConnectionError{Addr: "daemon socket", Err: err}
		}
		return Envelope{}, nxerrors.ErrConnectionClosed
	}

	var env Envelope
	if err := json.Unmarshal(r.scanner.Bytes(), &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}
