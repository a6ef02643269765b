package client

import (
	"encoding/json"

	"github.com/cwel/gsmd/internal/property"
	"github.com/cwel/gsmd/internal/shellquote"
	"github.com/cwel/gsmd/internal/xerrors"
	"github.com/cwel/gsmd/internal/xsmp"
)

// Flag bits for QueryEndSession/EndSession, per §6 "Bus object".
const (
	FlagForceful uint32 = 1 << 0
	FlagSave     uint32 = 1 << 1
	FlagLast     uint32 = 1 << 2
)

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err) // payload types are all statically known and marshalable
	}
	return data
}

// requireRegistered is the shared precondition of QueryEndSession,
// EndSession, CancelEndSession, Stop and Save: ErrNotRegistered unless the
// client is registered. The getters below do not check it and answer for
// clients in any status.
func (c *Client) requireRegistered() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusRegistered {
		return xerrors.ErrNotRegistered
	}
	return nil
}

// QueryEndSession implements §4.2.6 query_end_session(flags).
func (c *Client) QueryEndSession(flags uint32) error {
	if err := c.requireRegistered(); err != nil {
		return err
	}
	c.outboundSaveYourself(xsmp.SaveGlobal, flags&FlagForceful == 0)
	return nil
}

// EndSession implements §4.2.6 end_session(flags).
func (c *Client) EndSession(flags uint32) error {
	if err := c.requireRegistered(); err != nil {
		return err
	}
	if flags&FlagLast != 0 {
		c.sendPhase2()
		return nil
	}
	saveType := xsmp.SaveGlobal
	if flags&FlagSave != 0 {
		saveType = xsmp.SaveBoth
	}
	c.outboundSaveYourself(saveType, false)
	return nil
}

// CancelEndSession implements §4.2.6 cancel_end_session(). Once past the
// registration precondition, it unconditionally resets current and
// pending to none and sends ShutdownCancelled, mirroring the invariant
// tested in §8 ("after CancelEndSession, current = pending = none").
func (c *Client) CancelEndSession() error {
	if err := c.requireRegistered(); err != nil {
		return err
	}
	c.mu.Lock()
	c.current = SaveYourselfState{}
	c.pending = SaveYourselfState{}
	c.mu.Unlock()
	return c.conn.Send(xsmp.Envelope{Type: xsmp.MsgShutdownCancelled})
}

// Stop implements §4.2.6 stop(): sends Die.
func (c *Client) Stop() error {
	if err := c.requireRegistered(); err != nil {
		return err
	}
	return c.conn.Send(xsmp.Envelope{Type: xsmp.MsgDie})
}

// Save implements §4.2.6 save() by delegating to codec. It returns
// (false, nil) when the codec silently skips the client (restart hint
// never, or no RestartCommand) and propagates any keyfile I/O error.
func (c *Client) Save(codec SaveCodec) (bool, error) {
	if err := c.requireRegistered(); err != nil {
		return false, err
	}
	c.mu.Lock()
	startupID := c.startupID
	c.mu.Unlock()
	return codec.SaveClient(startupID, c.properties)
}

// RestartStyleHint values as exposed on the control surface, mapped from
// property.RestartXxx byte constants.
type RestartStyleHint string

const (
	RestartIfRunning   RestartStyleHint = "if-running"
	RestartAnyway      RestartStyleHint = "anyway"
	RestartImmediately RestartStyleHint = "immediately"
	RestartNever       RestartStyleHint = "never"
)

// GetRestartStyleHint implements §4.2.6 get_restart_style_hint().
func (c *Client) GetRestartStyleHint() RestartStyleHint {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.properties.RestartStyleHint() {
	case property.RestartAnyway:
		return RestartAnyway
	case property.RestartImmediately:
		return RestartImmediately
	case property.RestartNever:
		return RestartNever
	default:
		return RestartIfRunning
	}
}

// StatusCode maps Status onto a numeric code: 0 unregistered,
// 1 registered, 2 finished, 3 failed. The control surface's GetStatus does
// not use it; it reports Status().String() instead.
func (c *Client) StatusCode() uint32 {
	return uint32(c.Status())
}

// GetUnixProcessID implements §4.2.6 get_unix_process_id().
func (c *Client) GetUnixProcessID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.properties.ProcessID()
}

// GetAppName implements §4.2.6 get_app_name(): shell-quote reconstruction
// of the SmProgram argv list.
func (c *Client) GetAppName() string {
	c.mu.Lock()
	program := c.properties.Program()
	c.mu.Unlock()
	return shellquote.Join(program)
}
