package qrc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-qsys/internal/qsys"
)

// MockCoreServer simulates a Q-SYS Core QRC endpoint for testing.
type MockCoreServer struct {
	listener net.Listener
	frames   chan map[string]any

	mu   sync.Mutex
	conn net.Conn
}

// NewMockCoreServer starts a server on a random local port.
func NewMockCoreServer(t *testing.T) *MockCoreServer {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to create listener: %v", err)
	}

	s := &MockCoreServer{
		listener: listener,
		frames:   make(chan map[string]any, 100),
	}
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

func (s *MockCoreServer) serve() {
	conn, err := s.listener.Accept()
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	scanner := bufio.NewScanner(conn)
	scanner.Split(splitFrames)
	for scanner.Scan() {
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			continue
		}
		s.frames <- m
	}
}

// Port returns the listening port.
func (s *MockCoreServer) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Send writes one NUL-terminated frame to the client.
func (s *MockCoreServer) Send(t *testing.T, frame string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn != nil {
			if _, err := conn.Write(append([]byte(frame), 0)); err != nil {
				t.Fatalf("server write: %v", err)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("client never connected")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// Expect waits for the next frame with the given method.
func (s *MockCoreServer) Expect(t *testing.T, method string) map[string]any {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case m := <-s.frames:
			if m["method"] == method {
				return m
			}
		case <-timeout:
			t.Fatalf("no %s frame received", method)
			return nil
		}
	}
}

// DropClient closes the server side of the connection.
func (s *MockCoreServer) DropClient() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
	}
}

// Close stops the server.
func (s *MockCoreServer) Close() {
	s.listener.Close()
	s.DropClient()
}

func connectMock(t *testing.T, s *MockCoreServer) *Core {
	t.Helper()
	core, err := Connect(context.Background(), Config{
		ID:                "core-1",
		Host:              "127.0.0.1",
		Port:              s.Port(),
		KeepaliveInterval: time.Hour,
		PollRate:          100 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { core.Close() })
	return core
}

func TestConnectStartsAutoPoll(t *testing.T) {
	server := NewMockCoreServer(t)
	core := connectMock(t, server)

	m := server.Expect(t, methodChangeGroupAutoPoll)
	params, _ := m["params"].(map[string]any)
	if params["Id"] != core.ChangeGroupID() || params["Rate"] != 0.1 {
		t.Errorf("AutoPoll params = %v", params)
	}
	if core.ChangeGroupID() == "" {
		t.Error("empty change group id")
	}
	if !core.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}
	if err := core.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() = %v", err)
	}
}

func TestConnectFailure(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	_, err = Connect(context.Background(), Config{
		ID:             "core-1",
		Host:           "127.0.0.1",
		Port:           port,
		ConnectTimeout: time.Second,
	}, nil)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}

	_, err = Connect(context.Background(), Config{Host: "127.0.0.1"}, nil)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Connect() without id error = %v, want ErrInvalidConfig", err)
	}
}

func TestSubscribedControlJoinsChangeGroup(t *testing.T) {
	server := NewMockCoreServer(t)
	core := connectMock(t, server)
	server.Expect(t, methodChangeGroupAutoPoll)

	comp := core.LazyLoadComponent("Router1")
	comp.LazyLoadControl("load.1", false)
	comp.LoadControl("select.3")

	m := server.Expect(t, methodChangeGroupAdd)
	params, _ := m["params"].(map[string]any)
	component, _ := params["Component"].(map[string]any)
	controls, _ := component["Controls"].([]any)
	if params["Id"] != core.ChangeGroupID() || component["Name"] != "Router1" || len(controls) != 1 {
		t.Fatalf("AddComponentControl params = %v", params)
	}
	if ctrl, _ := controls[0].(map[string]any); ctrl["Name"] != "select.3" {
		t.Errorf("subscribed control = %v, want select.3", ctrl)
	}

	// Turning on a subscription later adds that control too.
	comp.LazyLoadControl("load.1", true)
	m = server.Expect(t, methodChangeGroupAdd)
	params, _ = m["params"].(map[string]any)
	component, _ = params["Component"].(map[string]any)
	controls, _ = component["Controls"].([]any)
	if ctrl, _ := controls[0].(map[string]any); ctrl["Name"] != "load.1" {
		t.Errorf("subscribed control = %v, want load.1", ctrl)
	}
}

func TestSendWritesComponentSet(t *testing.T) {
	server := NewMockCoreServer(t)
	core := connectMock(t, server)

	ctrl := core.LazyLoadComponent("Router1").LoadControl("select.3")
	if err := ctrl.SendChangeDoubleValue(5); err != nil {
		t.Fatalf("SendChangeDoubleValue() error = %v", err)
	}

	m := server.Expect(t, "Component.Set")
	params, _ := m["Params"].(map[string]any)
	if params["Name"] != "Router1" {
		t.Errorf("Params = %v", params)
	}
	id, _ := m["ID"].(string)
	if tok, err := qsys.DecodeToken(id); err != nil || tok.Method != "select.3" {
		t.Errorf("ID token = %+v, %v", tok, err)
	}
}

func TestPollDispatchesEachChange(t *testing.T) {
	server := NewMockCoreServer(t)
	core := connectMock(t, server)
	server.Expect(t, methodChangeGroupAutoPoll)

	comp := core.LazyLoadComponent("Mixer")
	gain := comp.LoadControl("input.1.output.1.gain")
	mute := comp.LoadControl("input.1.output.1.mute")

	got := make(chan qsys.StateData, 4)
	comp.FeedbackReceived().Add(func(e qsys.FeedbackEvent) { got <- e.State })

	server.Send(t, `{"jsonrpc":"2.0","method":"ChangeGroup.Poll","params":{"Id":"`+core.ChangeGroupID()+`","Changes":[`+
		`{"Component":"Mixer","Name":"input.1.output.1.gain","String":"-6dB","Value":-6,"Position":0.75},`+
		`{"Component":"Mixer","Name":"input.1.output.1.mute","String":"muted","Value":1,"Position":1},`+
		`{"Component":"Unknown","Name":"x","Value":1},`+
		`{"Name":"named.control","Value":2}]}}`)

	for i := 0; i < 2; i++ {
		select {
		case <-got:
		case <-time.After(2 * time.Second):
			t.Fatalf("received %d feedback events, want 2", i)
		}
	}

	if gain.Position() != 0.75 || gain.StringValue() != "-6dB" || gain.Value() != -6 {
		t.Errorf("gain state = %v/%v/%q", gain.Value(), gain.Position(), gain.StringValue())
	}
	if !mute.BoolValue() {
		t.Error("mute BoolValue() = false")
	}

	waitFor(t, func() bool { return core.Stats().ChangesDropped == 2 })
	if s := core.Stats(); s.ChangesRx != 4 {
		t.Errorf("ChangesRx = %d, want 4", s.ChangesRx)
	}
}

func TestEngineStatusAndErrors(t *testing.T) {
	server := NewMockCoreServer(t)
	core := connectMock(t, server)

	server.Send(t, `{"jsonrpc":"2.0","method":"EngineStatus","params":{"Platform":"Core 110f","State":"Active","DesignName":"Lobby","DesignCode":"abc","IsRedundant":false,"IsEmulator":true}}`)
	waitFor(t, func() bool { return core.Engine().State == "Active" })
	if e := core.Stats().Engine; e.DesignName != "Lobby" || !e.IsEmulator {
		t.Errorf("Engine = %+v", e)
	}

	token, _ := qsys.Encode(qsys.KindValue, "Router1", "select.3", 5.0)
	id, _ := json.Marshal(token)
	server.Send(t, `{"jsonrpc":"2.0","error":{"code":8,"message":"Unknown control"},"id":`+string(id)+`}`)
	server.Send(t, `garbage`)
	waitFor(t, func() bool { return core.Stats().ErrorsTotal >= 2 })
}

func TestDisconnectCallback(t *testing.T) {
	server := NewMockCoreServer(t)
	core := connectMock(t, server)

	lost := make(chan error, 1)
	core.SetOnDisconnect(func(err error) { lost <- err })

	server.Expect(t, methodChangeGroupAutoPoll)
	server.DropClient()

	select {
	case err := <-lost:
		if err == nil {
			t.Error("disconnect callback got nil error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect callback not invoked")
	}

	if core.IsConnected() {
		t.Error("IsConnected() = true after drop")
	}
	if err := core.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}

	before := core.Stats().CommandsDropped
	core.Enqueue("{}")
	if core.Stats().CommandsDropped != before+1 {
		t.Error("command enqueued on a dead session was not dropped")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	server := NewMockCoreServer(t)
	core := connectMock(t, server)

	called := false
	core.SetOnDisconnect(func(error) { called = true })

	if err := core.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := core.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if core.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
	time.Sleep(50 * time.Millisecond)
	if called {
		t.Error("disconnect callback invoked by Close")
	}
}

func TestStatsCoreID(t *testing.T) {
	c := &Core{cfg: Config{ID: "core-7"}, done: newCloseOnce()}
	c.commandsTx.Add(3)
	s := c.Stats()
	if s.CoreID != "core-7" || s.CommandsTx != 3 || s.Connected {
		t.Errorf("Stats() = %+v", s)
	}
	if !errors.Is(c.HealthCheck(context.Background()), ErrNotConnected) {
		t.Error("HealthCheck() on unconnected core should fail")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
