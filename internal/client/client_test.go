package client

import (
	"encoding/json"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cwel/gsmd/internal/property"
	"github.com/cwel/gsmd/internal/signalbus"
	"github.com/cwel/gsmd/internal/xerrors"
	"github.com/cwel/gsmd/internal/xsmp"
)

// pipeClient wires a Client to one end of a connected Unix-socket pair and
// returns the other end for the test to read frames sent to the peer. The
// socket buffers writes, so a synchronous call that sends a frame returns
// before the test reads that frame.
func pipeClient(t *testing.T, bus *signalbus.Bus) (*Client, *xsmp.Conn) {
	t.Helper()
	ln, err := net.Listen("unix", filepath.Join(t.TempDir(), "xsmp.sock"))
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	b, err := net.Dial("unix", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	a, err := ln.Accept()
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	t.Cleanup(func() { a.Close(); b.Close() })

	c := New(xsmp.NewConn(a), bus, zap.NewNop().Sugar())
	peer := xsmp.NewConn(b)
	return c, peer
}

func recvEnvelope(t *testing.T, peer *xsmp.Conn) xsmp.Envelope {
	t.Helper()
	ch := make(chan xsmp.Envelope, 1)
	errCh := make(chan error, 1)
	go func() {
		err := peer.ReadLoop(func(e xsmp.Envelope) error {
			ch <- e
			return errStop
		})
		if err != nil && !errors.Is(err, errStop) {
			errCh <- err
		}
	}()
	select {
	case e := <-ch:
		return e
	case err := <-errCh:
		t.Fatalf("read loop error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for envelope")
	}
	return xsmp.Envelope{}
}

// errStop is a sentinel handle() returns to end ReadLoop after one frame
// without treating it as a transport failure in the test helper above.
var errStop = xerrors.New("stop after one frame")

func TestFreshClientCheckpointScenario(t *testing.T) {
	bus := signalbus.New()
	var gotID string
	bus.OnRegisterRequest(func(path, prevID string) (bool, string) {
		gotID = "c1"
		return true, "c1"
	})

	var responses []signalbus.EndSessionResponse
	bus.OnEndSessionResponse(func(path string, resp signalbus.EndSessionResponse) {
		responses = append(responses, resp)
	})

	c, peer := pipeClient(t, bus)
	c.SetPath("/org/gnome/SessionManager/Client1")

	done := make(chan struct{})
	go func() {
		c.HandleRegisterClient("")
		close(done)
	}()

	env := recvEnvelope(t, peer)
	if env.Type != xsmp.MsgRegisterClientReply {
		t.Fatalf("first frame = %s, want RegisterClientReply", env.Type)
	}

	env = recvEnvelope(t, peer)
	if env.Type != xsmp.MsgSaveYourself {
		t.Fatalf("second frame = %s, want SaveYourself", env.Type)
	}
	var payload xsmp.SaveYourselfPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.SaveType != xsmp.SaveLocal || payload.Shutdown || payload.Fast {
		t.Fatalf("payload = %+v, want local/no-shutdown/no-fast", payload)
	}

	<-done
	if gotID != "c1" {
		t.Fatalf("gotID = %q", gotID)
	}
	if c.StartupID() != "c1" {
		t.Fatalf("StartupID() = %q, want c1", c.StartupID())
	}

	// Peer replies SaveYourselfDone(true).
	go c.HandleSaveYourselfDone(true)
	env = recvEnvelope(t, peer)
	if env.Type != xsmp.MsgSaveComplete {
		t.Fatalf("frame = %s, want SaveComplete", env.Type)
	}

	time.Sleep(10 * time.Millisecond)
	if len(responses) == 0 || !responses[len(responses)-1].OK {
		t.Fatalf("responses = %+v, want a trailing ok=true", responses)
	}
}

func TestCoalescedLogoutScenario(t *testing.T) {
	bus := signalbus.New()
	bus.OnRegisterRequest(func(path, prevID string) (bool, string) { return true, "c1" })

	c, peer := pipeClient(t, bus)
	c.SetPath("/p/1")
	go c.HandleRegisterClient("prev")

	env := recvEnvelope(t, peer)
	if env.Type != xsmp.MsgRegisterClientReply {
		t.Fatalf("frame = %s", env.Type)
	}

	if err := c.QueryEndSession(0); err != nil {
		t.Fatal(err)
	}
	env = recvEnvelope(t, peer)
	var p1 xsmp.SaveYourselfPayload
	json.Unmarshal(env.Payload, &p1)
	if p1.SaveType != xsmp.SaveGlobal || !p1.Shutdown {
		t.Fatalf("payload = %+v, want global/shutdown", p1)
	}

	// end_session(flags=save) while current=global is outstanding.
	if err := c.EndSession(FlagSave); err != nil {
		t.Fatal(err)
	}

	// SaveYourselfDone arrives; SaveComplete sent, then the coalesced
	// pending request fires as SaveYourself(both, yes, none, yes).
	go c.HandleSaveYourselfDone(true)

	env = recvEnvelope(t, peer)
	if env.Type != xsmp.MsgSaveComplete {
		t.Fatalf("frame = %s, want SaveComplete", env.Type)
	}
	env = recvEnvelope(t, peer)
	if env.Type != xsmp.MsgSaveYourself {
		t.Fatalf("frame = %s, want SaveYourself", env.Type)
	}
	var p2 xsmp.SaveYourselfPayload
	json.Unmarshal(env.Payload, &p2)
	if p2.SaveType != xsmp.SaveBoth || !p2.Shutdown || !p2.Fast || p2.Interact != xsmp.InteractNone {
		t.Fatalf("payload = %+v, want both/shutdown/fast/none", p2)
	}
}

func TestInteractiveBlockScenario(t *testing.T) {
	bus := signalbus.New()
	bus.OnRegisterRequest(func(path, prevID string) (bool, string) { return true, "c1" })
	var responses []signalbus.EndSessionResponse
	bus.OnEndSessionResponse(func(path string, resp signalbus.EndSessionResponse) {
		responses = append(responses, resp)
	})

	c, peer := pipeClient(t, bus)
	c.SetPath("/p/1")
	go c.HandleRegisterClient("prev")
	recvEnvelope(t, peer) // RegisterClientReply

	c.HandleInteractRequest()
	env := recvEnvelope(t, peer)
	if env.Type != xsmp.MsgInteract {
		t.Fatalf("frame = %s, want Interact", env.Type)
	}
	if len(responses) != 1 || responses[0].OK || responses[0].Reason == "" {
		t.Fatalf("responses = %+v, want one blocking response", responses)
	}

	c.HandleInteractDone(true)
	if len(responses) != 2 || !responses[1].OK || !responses[1].Cancel {
		t.Fatalf("responses = %+v, want trailing ok/cancel", responses)
	}
}

func TestTransportDropScenario(t *testing.T) {
	bus := signalbus.New()
	bus.OnRegisterRequest(func(path, prevID string) (bool, string) { return true, "c1" })
	var disconnected bool
	bus.OnDisconnected(func(path string) { disconnected = true })

	c, peer := pipeClient(t, bus)
	c.SetPath("/p/1")
	go c.HandleRegisterClient("prev")
	recvEnvelope(t, peer)

	c.HandleTransportError(errors.New("broken pipe"))
	if !disconnected {
		t.Fatal("expected disconnected signal")
	}
	if c.Status() != StatusFailed {
		t.Fatalf("Status() = %v, want failed", c.Status())
	}
	if err := c.Stop(); !xerrors.Is(err, xerrors.ErrNotRegistered) {
		t.Fatalf("Stop() after failure = %v, want not-registered", err)
	}
}

type fakeCodec struct {
	wrote bool
	err   error
}

func (f *fakeCodec) SaveClient(startupID string, props *property.Store) (bool, error) {
	return f.wrote, f.err
}

func TestSaveWithNoRestartCommand(t *testing.T) {
	bus := signalbus.New()
	bus.OnRegisterRequest(func(path, prevID string) (bool, string) { return true, "c1" })

	c, peer := pipeClient(t, bus)
	c.SetPath("/p/1")
	go c.HandleRegisterClient("prev")
	recvEnvelope(t, peer)

	wrote, err := c.Save(&fakeCodec{wrote: false, err: nil})
	if err != nil || wrote {
		t.Fatalf("Save() = (%v, %v), want (false, nil)", wrote, err)
	}
}

func TestCancelEndSessionResetsState(t *testing.T) {
	bus := signalbus.New()
	bus.OnRegisterRequest(func(path, prevID string) (bool, string) { return true, "c1" })

	c, peer := pipeClient(t, bus)
	c.SetPath("/p/1")
	go c.HandleRegisterClient("prev")
	recvEnvelope(t, peer)

	if err := c.QueryEndSession(0); err != nil {
		t.Fatal(err)
	}
	recvEnvelope(t, peer) // the outbound SaveYourself

	if err := c.CancelEndSession(); err != nil {
		t.Fatal(err)
	}
	recvEnvelope(t, peer) // ShutdownCancelled

	c.mu.Lock()
	current, pending := c.current, c.pending
	c.mu.Unlock()
	if !current.isNone() || !pending.isNone() {
		t.Fatalf("current=%+v pending=%+v, want both none", current, pending)
	}
}

func TestGetAppNameShellQuoting(t *testing.T) {
	bus := signalbus.New()
	bus.OnRegisterRequest(func(path, prevID string) (bool, string) { return true, "c1" })

	c, peer := pipeClient(t, bus)
	c.SetPath("/p/1")
	go c.HandleRegisterClient("prev")
	recvEnvelope(t, peer)

	c.HandleSetProperties([]property.Property{{
		Name:   property.SmProgram,
		Type:   property.TypeByteStringList,
		Values: [][]byte{[]byte("my app"), []byte("--file=/tmp/a'b")},
	}})

	got := c.GetAppName()
	want := `'my app' '--file=/tmp/a'\''b'`
	if got != want {
		t.Fatalf("GetAppName() = %q, want %q", got, want)
	}
}

func TestRestartStyleHintBoundary(t *testing.T) {
	bus := signalbus.New()
	bus.OnRegisterRequest(func(path, prevID string) (bool, string) { return true, "c1" })

	c, peer := pipeClient(t, bus)
	c.SetPath("/p/1")
	go c.HandleRegisterClient("prev")
	recvEnvelope(t, peer)

	if got := c.GetRestartStyleHint(); got != RestartIfRunning {
		t.Fatalf("GetRestartStyleHint() = %q, want if-running", got)
	}
}

func TestGetUnixProcessIDBoundary(t *testing.T) {
	bus := signalbus.New()
	bus.OnRegisterRequest(func(path, prevID string) (bool, string) { return true, "c1" })

	c, peer := pipeClient(t, bus)
	c.SetPath("/p/1")
	go c.HandleRegisterClient("prev")
	recvEnvelope(t, peer)

	c.HandleSetProperties([]property.Property{{
		Name: property.SmProcessID, Type: property.TypeByteString, Values: [][]byte{[]byte("4294967296")},
	}})
	if got := c.GetUnixProcessID(); got != 0 {
		t.Fatalf("GetUnixProcessID() = %d, want 0 (overflow)", got)
	}
}
