// Package xsmp implements the framed transport the client state machine
// rides on: an ordered, bidirectional channel of XSMP messages over a
// connection handed to it by the transport listener. Framing itself
// (newline-delimited JSON envelopes over a Unix domain socket) stands in
// for the underlying Ice-style message transport, which this repository
// treats as an opaque, pre-framed byte stream per its own scope.
package xsmp

import (
	"bufio"
	"encoding/json"
	"io"
	"net"
	"sync"

	"github.com/cwel/gsmd/internal/xerrors"
)

// MessageType names every XSMP message this engine sends or receives.
type MessageType string

const (
	MsgRegisterClient      MessageType = "RegisterClient"
	MsgRegisterClientReply MessageType = "RegisterClientReply"
	MsgSetProperties       MessageType = "SetProperties"
	MsgDeleteProperties    MessageType = "DeleteProperties"
	MsgSaveYourself        MessageType = "SaveYourself"
	MsgSaveYourselfRequest MessageType = "SaveYourselfRequest"
	MsgSaveYourselfPhase2  MessageType = "SaveYourselfPhase2"
	MsgSaveYourselfDone    MessageType = "SaveYourselfDone"
	MsgSaveComplete        MessageType = "SaveComplete"
	MsgInteract            MessageType = "Interact"
	MsgInteractRequest     MessageType = "InteractRequest"
	MsgInteractDone        MessageType = "InteractDone"
	MsgDie                 MessageType = "Die"
	MsgShutdownCancelled   MessageType = "ShutdownCancelled"
	MsgCloseConnection     MessageType = "CloseConnection"
)

// SaveType is the XSMP save-yourself scope: local, global, or both.
type SaveType string

const (
	SaveNone   SaveType = "none"
	SaveLocal  SaveType = "local"
	SaveGlobal SaveType = "global"
	SaveBoth   SaveType = "both"
)

// InteractStyle is the XSMP interact-style request.
type InteractStyle string

const (
	InteractNone InteractStyle = "none"
	InteractErrors InteractStyle = "errors"
	InteractAny  InteractStyle = "any"
)

// Envelope is the wire frame: a message type tag plus its opaque payload.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RegisterClientPayload is the payload of an inbound RegisterClient frame.
type RegisterClientPayload struct {
	PreviousID string `json:"previous_id"`
}

// RegisterClientReplyPayload is the payload of an outbound
// RegisterClientReply frame.
type RegisterClientReplyPayload struct {
	ID string `json:"id"`
}

// SaveYourselfPayload is the payload of an outbound SaveYourself frame.
type SaveYourselfPayload struct {
	SaveType SaveType      `json:"save_type"`
	Shutdown bool          `json:"shutdown"`
	Interact InteractStyle `json:"interact"`
	Fast     bool          `json:"fast"`
}

// SaveYourselfRequestPayload is the payload of an inbound
// SaveYourselfRequest frame.
type SaveYourselfRequestPayload struct {
	SaveType      SaveType      `json:"save_type"`
	Shutdown      bool          `json:"shutdown"`
	InteractStyle InteractStyle `json:"interact_style"`
	Fast          bool          `json:"fast"`
	Global        bool          `json:"global"`
}

// SaveYourselfDonePayload is the payload of an inbound SaveYourselfDone
// frame.
type SaveYourselfDonePayload struct {
	Success bool `json:"success"`
}

// InteractPayload is the payload of an outbound Interact frame.
type InteractPayload struct {
	Dialog bool `json:"dialog"`
}

// InteractRequestPayload is the payload of an inbound InteractRequest
// frame (the peer asking permission to put up a blocking dialog).
type InteractRequestPayload struct {
	Dialog bool `json:"dialog"`
}

// InteractDonePayload is the payload of an inbound InteractDone frame.
type InteractDonePayload struct {
	CancelShutdown bool `json:"cancel_shutdown"`
}

// CloseConnectionPayload is the payload of an inbound CloseConnection
// frame.
type CloseConnectionPayload struct {
	Reasons []string `json:"reasons"`
}

// SetPropertiesPayload is the payload of an inbound SetProperties frame.
type SetPropertiesPayload struct {
	Properties []WireProperty `json:"properties"`
}

// DeletePropertiesPayload is the payload of an inbound DeleteProperties
// frame.
type DeletePropertiesPayload struct {
	Names []string `json:"names"`
}

// WireProperty is the on-the-wire encoding of a property.Property: values
// are base64-encoded opaque byte strings, carried transparently by
// encoding/json's []byte handling.
type WireProperty struct {
	Name   string   `json:"name"`
	Type   int      `json:"type"`
	Values [][]byte `json:"values"`
}

// Conn wraps a net.Conn (or any io.ReadWriteCloser standing in for the
// transport library's framed connection) in a goroutine-safe, ordered
// message channel. Reads happen in ReadLoop, which callers run on a
// dedicated goroutine; Send serializes concurrent writers so a state-machine-driven
// SaveYourself and a control-surface-driven reply never interleave frames.
type Conn struct {
	rw     io.ReadWriteCloser
	reader *bufio.Reader
	writeMu sync.Mutex
	closeOnce sync.Once
}

// NewConn wraps rw (typically a net.Conn accepted by the transport
// listener) in a framed Conn.
func NewConn(rw io.ReadWriteCloser) *Conn {
	return &Conn{rw: rw, reader: bufio.NewReader(rw)}
}

// Send serializes and writes one frame, newline-delimited.
func (c *Conn) Send(msg Envelope) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return xerrors.Wrap(err, "encode frame")
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.rw.Write(data); err != nil {
		return xerrors.Wrap(err, "write frame")
	}
	return nil
}

// ReadLoop reads frames until EOF or error, invoking handle for each one.
// It returns the terminal error: nil on a graceful EOF, non-nil on any
// transport I/O failure. Callers run this on its own goroutine per
// connection; handle must not block on anything other than the owning
// client's own serialization.
func (c *Conn) ReadLoop(handle func(Envelope) error) error {
	for {
		line, err := c.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && len(line) == 0 {
				return nil
			}
			if err == io.EOF {
				// Last frame had no trailing newline; process it, then stop.
				var env Envelope
				if jerr := json.Unmarshal(line, &env); jerr == nil {
					_ = handle(env)
				}
				return nil
			}
			return xerrors.Wrap(err, "read frame")
		}

		var env Envelope
		if err := json.Unmarshal(line, &env); err != nil {
			// A malformed frame is a transport-level failure, not a property
			// parse failure: the connection itself is no longer trustworthy.
			return xerrors.Wrap(err, "decode frame")
		}
		if err := handle(env); err != nil {
			return err
		}
	}
}

// Close closes the underlying connection exactly once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.rw.Close()
	})
	return err
}

// Listener accepts connections on a Unix domain socket and hands each one,
// wrapped in a Conn, to accept. It is the transport listener of the
// session-management engine: it owns no client state itself, it only
// produces framed-connection handles for the router above it.
type Listener struct {
	ln net.Listener
}

// Listen binds a Unix domain socket at socketPath. Callers that need to
// clear a stale socket file left over from an unclean shutdown must
// remove it themselves first; Listen does not (the daemon does this in
// Start, once, before binding either of its two sockets).
func Listen(socketPath string) (*Listener, error) {
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, xerrors.Wrap(err, "listen")
	}
	return &Listener{ln: ln}, nil
}

// Accept blocks for the next inbound connection.
func (l *Listener) Accept() (*Conn, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	return NewConn(conn), nil
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	return l.ln.Close()
}
