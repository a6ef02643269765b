// Package ctlclient is a control-surface RPC client, genericized from
// teacher's daemon/client/client.go (which talked to one session daemon
// about sessions) to address one gsmd client at a time by object path.
package ctlclient

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/cwel/gsmd/internal/ctlproto"
	"github.com/cwel/gsmd/internal/xerrors"
)

// Client is a control-surface RPC client.
type Client struct {
	socketPath string
}

// New creates a control-surface client dialing socketPath.
func New(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// IsRunning reports whether the daemon is listening on the control socket.
func (c *Client) IsRunning() bool {
	conn, err := net.DialTimeout("unix", c.socketPath, 100*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// EnsureRunning starts the daemon (gsmd serve) if it is not already
// listening, and waits up to 5 seconds for the socket to appear.
func (c *Client) EnsureRunning() error {
	if c.IsRunning() {
		return nil
	}

	executable, err := os.Executable()
	if err != nil {
		return xerrors.Wrap(err, "get executable")
	}

	cmd := exec.Command(executable, "serve", "--background")
	if err := cmd.Start(); err != nil {
		return xerrors.Wrap(err, "start daemon")
	}

	for i := 0; i < 50; i++ {
		if c.IsRunning() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return xerrors.New("daemon did not start within 5 seconds")
}

func (c *Client) call(req ctlproto.Request) (ctlproto.Response, error) {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return ctlproto.Response{}, xerrors.Wrap(err, "connect")
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return ctlproto.Response{}, xerrors.Wrap(err, "encode")
	}

	var resp ctlproto.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return ctlproto.Response{}, xerrors.Wrap(err, "decode")
	}

	if resp.Error != "" {
		switch resp.ErrorKind {
		case ctlproto.ErrorKindNotRegistered:
			return resp, xerrors.Wrap(xerrors.ErrNotRegistered, resp.Error)
		default:
			return resp, xerrors.Wrap(xerrors.ErrGeneral, resp.Error)
		}
	}
	return resp, nil
}

// ListClients returns every client currently tracked by the daemon.
func (c *Client) ListClients() ([]ctlproto.ClientSummary, error) {
	resp, err := c.call(ctlproto.NewRequest(ctlproto.MethodListClients, ""))
	if err != nil {
		return nil, err
	}
	var out []ctlproto.ClientSummary
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		return nil, xerrors.Wrap(err, "unmarshal")
	}
	return out, nil
}

// GetStartupID implements the GetStartupId bus-object method.
func (c *Client) GetStartupID(objectPath string) (string, error) {
	return c.stringCall(ctlproto.MethodGetStartupID, objectPath)
}

// GetAppID implements the GetAppId bus-object method.
func (c *Client) GetAppID(objectPath string) (string, error) {
	return c.stringCall(ctlproto.MethodGetAppID, objectPath)
}

// GetRestartStyleHint implements the GetRestartStyleHint bus-object method.
func (c *Client) GetRestartStyleHint(objectPath string) (string, error) {
	return c.stringCall(ctlproto.MethodGetRestartStyleHint, objectPath)
}

// GetStatus implements the GetStatus bus-object method.
func (c *Client) GetStatus(objectPath string) (string, error) {
	return c.stringCall(ctlproto.MethodGetStatus, objectPath)
}

func (c *Client) stringCall(method, objectPath string) (string, error) {
	resp, err := c.call(ctlproto.NewRequest(method, objectPath))
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(resp.Result, &s); err != nil {
		return "", xerrors.Wrap(err, "unmarshal")
	}
	return s, nil
}

// GetUnixProcessID implements the GetUnixProcessId bus-object method.
func (c *Client) GetUnixProcessID(objectPath string) (uint32, error) {
	resp, err := c.call(ctlproto.NewRequest(ctlproto.MethodGetUnixProcessID, objectPath))
	if err != nil {
		return 0, err
	}
	var pid uint32
	if err := json.Unmarshal(resp.Result, &pid); err != nil {
		return 0, xerrors.Wrap(err, "unmarshal")
	}
	return pid, nil
}

// Stop implements the Stop bus-object method.
func (c *Client) Stop(objectPath string) error {
	_, err := c.call(ctlproto.NewRequest(ctlproto.MethodStop, objectPath))
	return err
}

// QueryEndSession implements the QueryEndSession bus-object method.
func (c *Client) QueryEndSession(objectPath string, flags uint32) error {
	return c.flagsCall(ctlproto.MethodQueryEndSession, objectPath, flags)
}

// EndSession implements the EndSession bus-object method.
func (c *Client) EndSession(objectPath string, flags uint32) error {
	return c.flagsCall(ctlproto.MethodEndSession, objectPath, flags)
}

// CancelEndSession implements the CancelEndSession bus-object method.
func (c *Client) CancelEndSession(objectPath string) error {
	_, err := c.call(ctlproto.NewRequest(ctlproto.MethodCancelEndSession, objectPath))
	return err
}

func (c *Client) flagsCall(method, objectPath string, flags uint32) error {
	req, err := ctlproto.NewRequestWithParams(method, objectPath, ctlproto.EndSessionParams{Flags: flags})
	if err != nil {
		return err
	}
	_, err = c.call(req)
	return err
}

// ShutdownDaemon asks the daemon to stop listening and exit.
func (c *Client) ShutdownDaemon() error {
	_, err := c.call(ctlproto.NewRequest(ctlproto.MethodShutdownDaemon, ""))
	return err
}

// SaveSession asks the daemon to walk every registered client and persist
// an autostart entry for each, mirroring the original's gsm_session_save.
func (c *Client) SaveSession() (ctlproto.SaveSessionResult, error) {
	resp, err := c.call(ctlproto.NewRequest(ctlproto.MethodSaveSession, ""))
	if err != nil {
		return ctlproto.SaveSessionResult{}, err
	}
	var result ctlproto.SaveSessionResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return ctlproto.SaveSessionResult{}, xerrors.Wrap(err, "unmarshal")
	}
	return result, nil
}

// DefaultSocketPath returns the conventional control-surface socket path
// under dataDir.
func DefaultSocketPath(dataDir string) string {
	return fmt.Sprintf("%s/control.sock", dataDir)
}
