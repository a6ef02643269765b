package daemon

import (
	"encoding/json"
	"net"

	"github.com/cwel/gsmd/internal/ctlproto"
	"github.com/cwel/gsmd/internal/xerrors"
)

func (d *Daemon) acceptControl() {
	for {
		conn, err := d.ctlListener.Accept()
		if err != nil {
			select {
			case <-d.done:
				return
			default:
				d.logger.Warnw("control accept failed", "error", err)
				return
			}
		}
		go d.handleControlConn(conn)
	}
}

func (d *Daemon) handleControlConn(conn net.Conn) {
	defer conn.Close()

	var req ctlproto.Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		resp := ctlproto.ErrorResponse(ctlproto.ErrorKindGeneral, "decode: "+err.Error())
		json.NewEncoder(conn).Encode(resp)
		return
	}

	resp := d.handleControlRequest(req)
	json.NewEncoder(conn).Encode(resp)
}

func (d *Daemon) handleControlRequest(req ctlproto.Request) ctlproto.Response {
	switch req.Method {
	case ctlproto.MethodListClients:
		return d.handleListClients()
	case ctlproto.MethodShutdownDaemon:
		go d.Stop()
		return ctlproto.SuccessResponse(true)
	case ctlproto.MethodSaveSession:
		return d.handleSaveSession()
	}

	c, ok := d.registry.Lookup(req.ObjectPath)
	if !ok {
		return ctlproto.ErrorResponse(ctlproto.ErrorKindNotRegistered, "no such client")
	}

	switch req.Method {
	case ctlproto.MethodGetStartupID:
		return ctlproto.SuccessResponse(c.StartupID())
	case ctlproto.MethodGetAppID:
		return ctlproto.SuccessResponse(c.AppID())
	case ctlproto.MethodGetRestartStyleHint:
		return ctlproto.SuccessResponse(string(c.GetRestartStyleHint()))
	case ctlproto.MethodGetStatus:
		return ctlproto.SuccessResponse(c.Status().String())
	case ctlproto.MethodGetUnixProcessID:
		return ctlproto.SuccessResponse(c.GetUnixProcessID())
	case ctlproto.MethodStop:
		return errOrSuccess(c.Stop())
	case ctlproto.MethodQueryEndSession:
		flags, err := decodeFlags(req)
		if err != nil {
			return ctlproto.ErrorResponse(ctlproto.ErrorKindGeneral, err.Error())
		}
		return errOrSuccess(c.QueryEndSession(flags))
	case ctlproto.MethodEndSession:
		flags, err := decodeFlags(req)
		if err != nil {
			return ctlproto.ErrorResponse(ctlproto.ErrorKindGeneral, err.Error())
		}
		return errOrSuccess(c.EndSession(flags))
	case ctlproto.MethodCancelEndSession:
		return errOrSuccess(c.CancelEndSession())
	default:
		return ctlproto.ErrorResponse(ctlproto.ErrorKindGeneral, "unknown method: "+req.Method)
	}
}

func (d *Daemon) handleListClients() ctlproto.Response {
	var out []ctlproto.ClientSummary
	for _, c := range d.registry.Iter() {
		out = append(out, ctlproto.ClientSummary{
			ObjectPath: c.Path(),
			StartupID:  c.StartupID(),
			AppID:      c.AppID(),
			Status:     c.Status().String(),
			Unique:     c.Description(),
		})
	}
	return ctlproto.SuccessResponse(out)
}

// handleSaveSession implements the session-wide save trigger: the control
// surface's counterpart of the original's gsm_session_save, which walks
// every client and calls gsm_client_save on each. Save errors are logged
// and skipped rather than aborting the walk, so one client's keyfile I/O
// failure doesn't stop its siblings from being saved.
func (d *Daemon) handleSaveSession() ctlproto.Response {
	clients := d.registry.Iter()
	result := ctlproto.SaveSessionResult{Total: len(clients)}
	for _, c := range clients {
		wrote, err := c.Save(d.codec)
		if err != nil {
			d.logger.Warnw("client save failed", "path", c.Path(), "error", err)
			continue
		}
		if wrote {
			result.Saved++
		}
	}
	return ctlproto.SuccessResponse(result)
}

func decodeFlags(req ctlproto.Request) (uint32, error) {
	var p ctlproto.EndSessionParams
	if len(req.Params) == 0 {
		return 0, nil
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return 0, xerrors.Wrap(err, "decode params")
	}
	return p.Flags, nil
}

func errOrSuccess(err error) ctlproto.Response {
	if err != nil {
		return ctlproto.ErrorResponse(xerrors.Kind(err), err.Error())
	}
	return ctlproto.SuccessResponse(true)
}
