// Package client implements the XSMP protocol state machine: the
// per-connection engine that drives register / save-yourself / interact /
// shutdown handshakes, owns the client's property set, and emits the
// upward signals the surrounding session manager consumes.
package client

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cwel/gsmd/internal/property"
	"github.com/cwel/gsmd/internal/signalbus"
	"github.com/cwel/gsmd/internal/xerrors"
	"github.com/cwel/gsmd/internal/xsmp"
)

// Status is the client's top-level lifecycle state.
type Status int

const (
	StatusUnregistered Status = iota
	StatusRegistered
	StatusFinished
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUnregistered:
		return "unregistered"
	case StatusRegistered:
		return "registered"
	case StatusFinished:
		return "finished"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SaveYourselfState is one of the two save-yourself sub-state slots
// (current or pending). An empty slot is the zero value (Type ""); isNone
// also treats xsmp.SaveNone as empty.
type SaveYourselfState struct {
	Type          xsmp.SaveType
	AllowInteract bool
}

func (s SaveYourselfState) isNone() bool {
	return s.Type == "" || s.Type == xsmp.SaveNone
}

// SaveCodec is the narrow interface Client.Save needs from the save/restore
// codec. Defined here, on the consumer side, so internal/client never
// imports internal/autostart.
type SaveCodec interface {
	// SaveClient persists startupID's property set to the autostart area.
	// wrote is false, err is nil when the save is silently skipped
	// (restart hint never, or no RestartCommand). A non-nil err is a
	// keyfile I/O failure; the client's in-memory state is unchanged
	// either way.
	SaveClient(startupID string, props *property.Store) (wrote bool, err error)
}

// Client is one XSMP peer's protocol state and property set.
type Client struct {
	mu sync.Mutex

	path        string
	startupID   string
	appID       string
	status      Status
	description string

	properties *property.Store
	conn       *xsmp.Conn

	current SaveYourselfState
	pending SaveYourselfState

	bus    *signalbus.Bus
	logger *zap.SugaredLogger

	// refCount tracks outstanding handler invocations and control-surface
	// calls; the client is only eligible for teardown when it reaches
	// zero and status is terminal.
	refCount int32
}

// New constructs an unregistered client bound to conn. Path is assigned
// separately by the registry immediately after construction (see
// SetPath) — this mirrors the registry's own ownership of path
// allocation rather than letting the client invent one.
func New(conn *xsmp.Conn, bus *signalbus.Bus, logger *zap.SugaredLogger) *Client {
	return &Client{
		status:     StatusUnregistered,
		properties: property.NewStore(),
		conn:       conn,
		bus:        bus,
		logger:     logger,
	}
}

// SetPath assigns the client's path. Must be called exactly once,
// immediately after registry.Insert returns it.
func (c *Client) SetPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.path != "" {
		panic("client: SetPath called more than once")
	}
	c.path = path
	c.recomputeDescription()
}

// Path returns the client's allocated path.
func (c *Client) Path() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

// Status returns the client's current lifecycle status.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// StartupID returns the startup id acknowledged at registration, or "" if
// not yet registered.
func (c *Client) StartupID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startupID
}

// AppID returns the client's application id, or "" if unknown.
func (c *Client) AppID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appID
}

// SetAppID assigns the client's application id, mirroring the original
// session manager's gsm_client_set_app_id: nothing on the wire carries
// this value, so it is populated out of band, typically once the
// save/restore codec resolves the client against a known autostart entry.
func (c *Client) SetAppID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appID = id
}

// Description returns the diagnostic label recomputed on connection setup
// and whenever SmProgram changes. Purely diagnostic, never exposed on the
// control surface.
func (c *Client) Description() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.description
}

// Retain increments the outstanding-reference count. Call before invoking
// a handler or control-surface operation that may outlive a single mutex
// hold, and pair with Release.
func (c *Client) Retain() { atomic.AddInt32(&c.refCount, 1) }

// Release decrements the outstanding-reference count.
func (c *Client) Release() { atomic.AddInt32(&c.refCount, -1) }

// Collectible reports whether the client has reached a terminal status and
// has no outstanding references, i.e. it is safe to remove from the
// registry and drop.
func (c *Client) Collectible() bool {
	c.mu.Lock()
	status := c.status
	c.mu.Unlock()
	return (status == StatusFinished || status == StatusFailed) && atomic.LoadInt32(&c.refCount) == 0
}

// recomputeDescription rebuilds the diagnostic label per the format:
// "<path> [<program> <startup-id>]" if program present,
// "<path> [<startup-id>]" if only id present, "<path>" otherwise. The
// spec's original format uses pointer identity; path is this engine's
// stable stand-in since clients have no meaningful pointer identity
// across a process boundary.
func (c *Client) recomputeDescription() {
	program := c.properties.Program()
	var programStr string
	if len(program) > 0 {
		programStr = program[0]
	}

	switch {
	case programStr != "":
		c.description = fmt.Sprintf("%s [%s %s]", c.path, programStr, c.startupID)
	case c.startupID != "":
		c.description = fmt.Sprintf("%s [%s]", c.path, c.startupID)
	default:
		c.description = c.path
	}
}

// --- Inbound events (§4.2.3) ---

// HandleRegisterClient processes an inbound RegisterClient(previousID).
// It must only be called while status is unregistered.
func (c *Client) HandleRegisterClient(previousID string) {
	c.mu.Lock()
	if c.status != StatusUnregistered {
		c.mu.Unlock()
		return
	}
	path := c.path
	c.mu.Unlock()

	accept, id := c.bus.EmitRegisterRequest(path, previousID)
	if !accept || id == "" {
		// Reject: remain unregistered.
		return
	}

	c.mu.Lock()
	c.status = StatusRegistered
	c.startupID = id
	c.recomputeDescription()
	c.mu.Unlock()

	_ = c.conn.Send(xsmp.Envelope{
		Type:    xsmp.MsgRegisterClientReply,
		Payload: mustMarshal(xsmp.RegisterClientReplyPayload{ID: id}),
	})

	if previousID == "" {
		c.outboundSaveYourself(xsmp.SaveLocal, false)
	}
}

// HandleSetProperties applies a batch of property replacements.
func (c *Client) HandleSetProperties(props []property.Property) {
	c.mu.Lock()
	defer c.mu.Unlock()

	changedProgram := false
	for _, p := range props {
		if p.Name == property.SmProgram {
			changedProgram = true
		}
		c.properties.Delete(p.Name)
		c.properties.Set(p)
	}
	if changedProgram {
		c.recomputeDescription()
	}
}

// HandleDeleteProperties removes a batch of properties by name.
func (c *Client) HandleDeleteProperties(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range names {
		c.properties.Delete(n)
	}
}

// Properties returns the client's current property set.
func (c *Client) Properties() []property.Property {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.properties.All()
}

// HandleSaveYourselfRequest interprets an inbound SaveYourselfRequest per
// §4.2.4's three-case collapse.
func (c *Client) HandleSaveYourselfRequest(shutdown, global, fast bool) {
	path := c.Path()
	switch {
	case shutdown && global:
		// save_type and interact_style are deliberately ignored here —
		// session-manager policy decides, not the peer. This mirrors a
		// compatibility choice in the historical engine, not an oversight.
		c.bus.EmitLogoutRequest(path, !fast)
	case !shutdown && !global:
		c.checkpointSelf()
	default:
		if c.logger != nil {
			c.logger.Debugw("ignoring nonsensical SaveYourselfRequest", "path", path, "shutdown", shutdown, "global", global)
		}
	}
}

// checkpointSelf runs the local-save routine triggered by a
// non-shutdown, non-global SaveYourselfRequest.
func (c *Client) checkpointSelf() {
	c.outboundSaveYourself(xsmp.SaveLocal, true)
}

// HandleSaveYourselfPhase2Request processes an inbound
// SaveYourselfPhase2Request. Valid only while current is not none.
func (c *Client) HandleSaveYourselfPhase2Request() error {
	c.mu.Lock()
	if c.current.isNone() {
		c.mu.Unlock()
		return xerrors.ErrGeneral
	}
	c.mu.Unlock()
	c.sendPhase2()
	return nil
}

// sendPhase2 sends SaveYourselfPhase2 and emits the matching
// end-session-response. Shared by the inbound SaveYourselfPhase2Request
// handler (which gates on current≠none first) and the upward
// end_session(flags&last) path (§4.2.6), which sends phase2
// unconditionally.
func (c *Client) sendPhase2() {
	path := c.Path()
	_ = c.conn.Send(xsmp.Envelope{Type: xsmp.MsgSaveYourselfPhase2})
	c.bus.EmitEndSessionResponse(path, signalbus.EndSessionResponse{OK: true, DoLast: true})
}

// HandleInteractRequest processes the peer asking to put up a blocking
// dialog.
func (c *Client) HandleInteractRequest() {
	path := c.Path()
	c.bus.EmitEndSessionResponse(path, signalbus.EndSessionResponse{
		Reason: "This program is blocking logout.",
	})
	_ = c.conn.Send(xsmp.Envelope{Type: xsmp.MsgInteract})
}

// HandleInteractDone processes the peer finishing its interaction.
func (c *Client) HandleInteractDone(cancelShutdown bool) {
	path := c.Path()
	c.bus.EmitEndSessionResponse(path, signalbus.EndSessionResponse{OK: true, Cancel: cancelShutdown})
}

// HandleSaveYourselfDone processes the peer's SaveYourselfDone reply. If
// current is set, SaveComplete is sent and current is cleared; if pending
// is set, it is dequeued into a fresh outbound SaveYourself.
func (c *Client) HandleSaveYourselfDone(success bool) {
	c.mu.Lock()
	hadCurrent := !c.current.isNone()
	c.mu.Unlock()

	if hadCurrent {
		_ = c.conn.Send(xsmp.Envelope{Type: xsmp.MsgSaveComplete})
	}

	c.mu.Lock()
	c.current = SaveYourselfState{}
	path := c.path
	c.mu.Unlock()

	c.bus.EmitEndSessionResponse(path, signalbus.EndSessionResponse{OK: true})

	c.mu.Lock()
	pending := c.pending
	c.pending = SaveYourselfState{}
	c.mu.Unlock()

	if !pending.isNone() {
		c.outboundSaveYourself(pending.Type, pending.AllowInteract)
	}
}

// HandleCloseConnection processes a graceful inbound CloseConnection.
func (c *Client) HandleCloseConnection() {
	c.mu.Lock()
	c.status = StatusFinished
	path := c.path
	c.mu.Unlock()
	c.bus.EmitDisconnected(path)
}

// HandleTransportError processes a terminal transport I/O failure.
func (c *Client) HandleTransportError(err error) {
	c.mu.Lock()
	c.status = StatusFailed
	path := c.path
	c.mu.Unlock()
	if c.logger != nil {
		c.logger.Warnw("transport error", "path", path, "err", err)
	}
	c.bus.EmitDisconnected(path)
}

// HandleTransportClose processes a graceful transport close that was not
// preceded by an XSMP CloseConnection frame (e.g. the peer just hung up).
func (c *Client) HandleTransportClose() {
	_ = c.conn.Close()
}

// --- Outbound SaveYourself routine (§4.2.5) ---

// outboundSaveYourself implements §4.2.5: drop if pending is already set,
// coalesce into pending if current is already set, otherwise set current
// and send the appropriate SaveYourself frame. The state mutation happens
// under the client's mutex; the frame is written afterward, outside the
// lock, and xsmp.Conn.Send serializes it against any other sender on the
// same connection.
func (c *Client) outboundSaveYourself(saveType xsmp.SaveType, allowInteract bool) {
	c.mu.Lock()
	if !c.pending.isNone() {
		c.mu.Unlock()
		return // redundant, drop
	}
	if !c.current.isNone() {
		c.pending = SaveYourselfState{Type: saveType, AllowInteract: allowInteract}
		c.mu.Unlock()
		return
	}

	c.current = SaveYourselfState{Type: saveType}
	c.pending = SaveYourselfState{}
	c.mu.Unlock()

	var msg xsmp.SaveYourselfPayload
	switch {
	case saveType == xsmp.SaveLocal:
		msg = xsmp.SaveYourselfPayload{SaveType: xsmp.SaveLocal, Shutdown: false, Interact: xsmp.InteractNone, Fast: false}
	case !allowInteract:
		msg = xsmp.SaveYourselfPayload{SaveType: saveType, Shutdown: true, Interact: xsmp.InteractNone, Fast: true}
	default:
		msg = xsmp.SaveYourselfPayload{SaveType: saveType, Shutdown: true, Interact: xsmp.InteractAny, Fast: false}
	}

	_ = c.conn.Send(xsmp.Envelope{Type: xsmp.MsgSaveYourself, Payload: mustMarshal(msg)})
}
