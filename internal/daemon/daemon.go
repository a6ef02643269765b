// Package daemon wires the transport listener, client registry, signal
// bus, and save/restore codec together into the long-lived process,
// grounded on the teacher's internal/daemon/server accept-loop-per-
// connection shape.
package daemon

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cwel/gsmd/internal/autostart"
	"github.com/cwel/gsmd/internal/client"
	"github.com/cwel/gsmd/internal/config"
	"github.com/cwel/gsmd/internal/ctlproto"
	"github.com/cwel/gsmd/internal/property"
	"github.com/cwel/gsmd/internal/registry"
	"github.com/cwel/gsmd/internal/signalbus"
	"github.com/cwel/gsmd/internal/xerrors"
	"github.com/cwel/gsmd/internal/xsmp"
)

// Daemon is the long-lived gsmd process.
type Daemon struct {
	cfg    *config.Config
	logger *zap.SugaredLogger

	registry *registry.Registry[*client.Client]
	bus      *signalbus.Bus
	codec    *autostart.Codec
	reader   *autostart.Reader
	watcher  *autostart.Watcher

	xsmpListener *xsmp.Listener
	ctlListener  net.Listener

	mu   sync.Mutex
	done chan struct{}
}

// New constructs a Daemon from cfg. It does not bind any sockets yet.
func New(cfg *config.Config, logger *zap.SugaredLogger) *Daemon {
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		registry: registry.New[*client.Client](),
		bus:      signalbus.New(),
		codec:    autostart.NewCodec(cfg.Autostart.Dirs),
		reader:   autostart.NewReader(cfg.Autostart.Dirs),
		done:     make(chan struct{}),
	}
}

// Registry exposes the live client registry, e.g. for the control-surface
// server.
func (d *Daemon) Registry() *registry.Registry[*client.Client] {
	return d.registry
}

// Bus exposes the signal bus so callers (tests, or a future coordinator)
// can subscribe to register-request/logout-request/disconnected/
// end-session-response.
func (d *Daemon) Bus() *signalbus.Bus {
	return d.bus
}

// Start binds both Unix sockets and begins accepting connections. It
// blocks until Stop is called or a listener fails.
func (d *Daemon) Start() error {
	// Default register-request policy, consulted after any handler
	// subscribed through Bus before Start: a returning client keeps the id
	// it presents, a fresh client gets a newly minted one.
	d.bus.OnRegisterRequest(func(path, previousID string) (bool, string) {
		if previousID != "" {
			return true, previousID
		}
		return true, uuid.NewString()
	})

	for _, path := range []string{d.cfg.Listen.SocketPath, d.cfg.Listen.CtlSocketPath} {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return xerrors.Wrapf(err, "create socket directory for %s", path)
		}
		os.Remove(path)
	}

	xsmpLn, err := xsmp.Listen(d.cfg.Listen.SocketPath)
	if err != nil {
		return xerrors.Wrap(err, "listen xsmp")
	}
	d.xsmpListener = xsmpLn

	d.startAutostartWatcher()

	ctlLn, err := net.Listen("unix", d.cfg.Listen.CtlSocketPath)
	if err != nil {
		xsmpLn.Close()
		return xerrors.Wrap(err, "listen control surface")
	}
	d.ctlListener = ctlLn

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		d.acceptXSMP()
	}()
	go func() {
		defer wg.Done()
		d.acceptControl()
	}()
	wg.Wait()
	return nil
}

// Stop closes both listeners and the autostart watcher, ending Start's
// accept loops.
func (d *Daemon) Stop() {
	close(d.done)
	d.mu.Lock()
	if d.xsmpListener != nil {
		d.xsmpListener.Close()
	}
	if d.ctlListener != nil {
		d.ctlListener.Close()
	}
	if d.watcher != nil {
		d.watcher.Stop()
	}
	d.mu.Unlock()
	os.Remove(d.cfg.Listen.SocketPath)
	os.Remove(d.cfg.Listen.CtlSocketPath)
}

// startAutostartWatcher watches the autostart directories that exist on
// disk so a capplet's edit to a desktop entry is reflected in resolveAppID
// without waiting for the owning client's next SetProperties. Directories
// that don't exist yet are skipped rather than created: only Codec.Write
// creates Dirs[0] on demand, and a watch on a not-yet-existing directory
// would just fail fsnotify.Add outright.
func (d *Daemon) startAutostartWatcher() {
	var dirs []string
	for _, dir := range d.cfg.Autostart.Dirs {
		if _, err := os.Stat(dir); err == nil {
			dirs = append(dirs, dir)
		}
	}
	if len(dirs) == 0 {
		d.logger.Infow("no autostart directories exist yet, watcher disabled")
		return
	}

	w, err := autostart.NewWatcher(dirs, d.logger)
	if err != nil {
		d.logger.Warnw("autostart watcher unavailable", "error", err)
		return
	}
	w.OnChange(func(path string, removed bool) {
		d.refreshAppIDs()
	})
	w.Start()
	d.watcher = w
}

// refreshAppIDs re-resolves AppID for every registered client against the
// current autostart entries. It is the autostart watcher's change
// callback, so an entry edited out of band takes effect immediately rather
// than only at the client's next SetProperties.
func (d *Daemon) refreshAppIDs() {
	for _, c := range d.registry.Iter() {
		d.resolveAppID(c)
	}
}

func (d *Daemon) acceptXSMP() {
	for {
		conn, err := d.xsmpListener.Accept()
		if err != nil {
			select {
			case <-d.done:
				return
			default:
				d.logger.Warnw("xsmp accept failed", "error", err)
				return
			}
		}
		go d.handleXSMPConn(conn)
	}
}

func (d *Daemon) handleXSMPConn(conn *xsmp.Conn) {
	c := client.New(conn, d.bus, d.logger)
	path := d.registry.Insert(c)
	c.SetPath(path)
	d.logger.Infow("client connected", "path", path)

	err := conn.ReadLoop(func(env xsmp.Envelope) error {
		if err := dispatchEnvelope(c, env); err != nil {
			return err
		}
		if env.Type == xsmp.MsgSetProperties {
			d.resolveAppID(c)
		}
		return nil
	})

	if err != nil {
		c.HandleTransportError(err)
	} else {
		c.HandleTransportClose()
	}
	d.registry.Remove(path)
	d.logger.Infow("client disconnected", "path", path, "error", err)
}

// resolveAppID re-derives AppID from the client's current SmProgram every
// time properties change, matching an existing autostart entry's Name if
// one's Exec basename agrees, falling back to the program's own basename.
func (d *Daemon) resolveAppID(c *client.Client) {
	var programPath string
	for _, p := range c.Properties() {
		if p.Name == property.SmProgram && len(p.Values) > 0 {
			programPath = string(p.Values[0])
			break
		}
	}
	if programPath == "" {
		return
	}
	exe := filepath.Base(programPath)

	entries, err := d.reader.List()
	if err == nil {
		for _, e := range entries {
			fields := strings.Fields(e.Exec)
			if len(fields) == 0 {
				continue
			}
			if filepath.Base(strings.Trim(fields[0], "'\"")) == exe {
				c.SetAppID(e.Name)
				return
			}
		}
	}
	c.SetAppID(exe)
}

func dispatchEnvelope(c *client.Client, env xsmp.Envelope) error {
	switch env.Type {
	case xsmp.MsgRegisterClient:
		var p xsmp.RegisterClientPayload
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				return xerrors.Wrap(err, "decode RegisterClient")
			}
		}
		c.HandleRegisterClient(p.PreviousID)
	case xsmp.MsgSetProperties:
		var p xsmp.SetPropertiesPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return xerrors.Wrap(err, "decode SetProperties")
		}
		c.HandleSetProperties(wirePropertiesToProperties(p.Properties))
	case xsmp.MsgDeleteProperties:
		var p xsmp.DeletePropertiesPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return xerrors.Wrap(err, "decode DeleteProperties")
		}
		c.HandleDeleteProperties(p.Names)
	case xsmp.MsgSaveYourselfRequest:
		var p xsmp.SaveYourselfRequestPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return xerrors.Wrap(err, "decode SaveYourselfRequest")
		}
		c.HandleSaveYourselfRequest(p.Shutdown, p.Global, p.Fast)
	case xsmp.MsgSaveYourselfPhase2:
		return c.HandleSaveYourselfPhase2Request()
	case xsmp.MsgInteractRequest:
		c.HandleInteractRequest()
	case xsmp.MsgInteractDone:
		var p xsmp.InteractDonePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return xerrors.Wrap(err, "decode InteractDone")
		}
		c.HandleInteractDone(p.CancelShutdown)
	case xsmp.MsgSaveYourselfDone:
		var p xsmp.SaveYourselfDonePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return xerrors.Wrap(err, "decode SaveYourselfDone")
		}
		c.HandleSaveYourselfDone(p.Success)
	case xsmp.MsgCloseConnection:
		c.HandleCloseConnection()
	default:
		// Unknown frame types are ignored rather than treated as a
		// transport failure, matching §7's malformed-input tolerance for
		// anything above the framing layer.
	}
	return nil
}

func wirePropertiesToProperties(wps []xsmp.WireProperty) []property.Property {
	out := make([]property.Property, len(wps))
	for i, wp := range wps {
		out[i] = property.Property{
			Name:   wp.Name,
			Type:   property.Type(wp.Type),
			Values: wp.Values,
		}
	}
	return out
}
