// Package signalbus implements the upward signal bus through which a
// client's state machine informs the surrounding session manager of
// register-request, logout-request, disconnected, and
// end-session-response. Dispatch is synchronous, in-process, and
// ordered: an explicit slice of handlers per signal, not a language-level
// multicast event, because the register-request signal specifically
// needs accumulator semantics (first handler to return true wins, with
// its output value acknowledged) that a generic pub/sub can't express
// without bolting the same thing back on.
package signalbus

import "github.com/cwel/gsmd/internal/xerrors"

// RegisterRequestHandler decides whether to accept a client registering
// with the given previous id (empty for a fresh client), returning the
// startup id to acknowledge when accepting.
type RegisterRequestHandler func(path, previousID string) (accept bool, id string)

// LogoutRequestHandler is notified that a client asked to begin a
// session-wide logout.
type LogoutRequestHandler func(path string, allowInteract bool)

// DisconnectedHandler is notified that a client's transport is gone,
// either gracefully or via I/O error.
type DisconnectedHandler func(path string)

// EndSessionResponse is the payload of the end-session-response signal.
type EndSessionResponse struct {
	OK     bool
	DoLast bool
	Cancel bool
	Reason string
}

// EndSessionResponseHandler is notified of a client's response to an
// outstanding end-session round.
type EndSessionResponseHandler func(path string, resp EndSessionResponse)

// Bus holds the ordered handler lists for all four signals. The zero
// value is ready to use.
type Bus struct {
	registerRequest    []RegisterRequestHandler
	logoutRequest      []LogoutRequestHandler
	disconnected       []DisconnectedHandler
	endSessionResponse []EndSessionResponseHandler
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{}
}

// OnRegisterRequest appends h to the accumulator chain. Handlers run in
// the order they were added.
func (b *Bus) OnRegisterRequest(h RegisterRequestHandler) {
	b.registerRequest = append(b.registerRequest, h)
}

// OnLogoutRequest subscribes h to logout-request.
func (b *Bus) OnLogoutRequest(h LogoutRequestHandler) {
	b.logoutRequest = append(b.logoutRequest, h)
}

// OnDisconnected subscribes h to disconnected.
func (b *Bus) OnDisconnected(h DisconnectedHandler) {
	b.disconnected = append(b.disconnected, h)
}

// OnEndSessionResponse subscribes h to end-session-response.
func (b *Bus) OnEndSessionResponse(h EndSessionResponseHandler) {
	b.endSessionResponse = append(b.endSessionResponse, h)
}

// EmitRegisterRequest runs the accumulator chain in registration order.
// The first handler to return accept=true stops the chain; its id is
// returned. If no handler accepts, accept is false and id is empty. A
// handler that panics is treated as a non-accept and does not stop the
// chain, via SafeCall.
func (b *Bus) EmitRegisterRequest(path, previousID string) (accept bool, id string) {
	for _, h := range b.registerRequest {
		var ok bool
		var returnedID string
		_ = SafeCall(func() {
			ok, returnedID = h(path, previousID)
		})
		if ok {
			return true, returnedID
		}
	}
	return false, ""
}

// EmitLogoutRequest notifies every subscriber in order.
func (b *Bus) EmitLogoutRequest(path string, allowInteract bool) {
	for _, h := range b.logoutRequest {
		handler := h
		_ = SafeCall(func() { handler(path, allowInteract) })
	}
}

// EmitDisconnected notifies every subscriber in order.
func (b *Bus) EmitDisconnected(path string) {
	for _, h := range b.disconnected {
		handler := h
		_ = SafeCall(func() { handler(path) })
	}
}

// EmitEndSessionResponse notifies every subscriber in order.
func (b *Bus) EmitEndSessionResponse(path string, resp EndSessionResponse) {
	for _, h := range b.endSessionResponse {
		handler := h
		_ = SafeCall(func() { handler(path, resp) })
	}
}

// ErrHandlerPanic wraps a recovered panic from inside a handler so the
// state machine driving EmitX is never corrupted by a misbehaving
// subscriber. Callers that want this protection should invoke handlers
// through SafeCall.
var ErrHandlerPanic = xerrors.New("signal handler panicked")

// SafeCall runs fn, converting any panic into an error instead of
// unwinding through the caller's state machine.
func SafeCall(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = xerrors.Wrapf(ErrHandlerPanic, "%v", r)
		}
	}()
	fn()
	return nil
}
