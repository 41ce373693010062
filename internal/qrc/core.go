package qrc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-qsys/internal/qsys"
)

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Stats holds operational statistics for one session.
type Stats struct {
	CoreID          string
	CommandsTx      uint64
	CommandsDropped uint64 // Commands dropped due to a full queue or closed session
	MessagesRx      uint64
	ChangesRx       uint64
	ChangesDropped  uint64 // Changes for components nobody loaded
	ErrorsTotal     uint64
	LastActivity    time.Time
	Connected       bool
	Engine          EngineStatus
}

// Core is a live session with one Q-SYS Core.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Feedback is dispatched on the receive goroutine.
type Core struct {
	cfg           Config
	conn          net.Conn
	changeGroupID string
	components    *qsys.ComponentRegistry

	// Connection state
	connMu    sync.RWMutex
	connected bool

	// Outbound queue, drained by writeLoop
	sendQueue chan string
	requestID atomic.Uint64

	// Disconnect notification (fires once)
	onDisconnect   func(error)
	callbackMu     sync.RWMutex
	disconnectOnce sync.Once

	// Shutdown coordination
	done *closeOnce
	wg   sync.WaitGroup

	// Logger (optional)
	logger   Logger
	loggerMu sync.RWMutex

	engineMu sync.RWMutex
	engine   EngineStatus

	// Statistics
	commandsTx      atomic.Uint64
	commandsDropped atomic.Uint64
	messagesRx      atomic.Uint64
	changesRx       atomic.Uint64
	changesDropped  atomic.Uint64
	errorsTotal     atomic.Uint64
	lastActivity    atomic.Int64
}

// Ensure Core satisfies the interfaces the intermediary layer consumes.
var (
	_ qsys.Core     = (*Core)(nil)
	_ qsys.Enqueuer = (*Core)(nil)
)

// Connect dials the Core and starts the session.
//
// After the dial it starts the writer, the receiver and the keepalive,
// then asks the Core to auto-poll the session's change group.
//
// Parameters:
//   - ctx: Bounds the dial only; the session outlives it
//   - cfg: Core address, timeouts and poll rate
//   - logger: May be nil
//
// Returns:
//   - *Core: Connected session; call Close when done
//   - error: ErrInvalidConfig, or ErrConnectionFailed wrapping the dial error
func Connect(ctx context.Context, cfg Config, logger Logger) (*Core, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(connectCtx, "tcp", cfg.address())
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrConnectionFailed, cfg.address(), err)
	}

	c := &Core{
		cfg:           cfg,
		conn:          conn,
		changeGroupID: uuid.NewString(),
		connected:     true,
		sendQueue:     make(chan string, sendQueueSize),
		done:          newCloseOnce(),
		logger:        logger,
	}
	c.lastActivity.Store(time.Now().Unix())
	c.components = qsys.NewComponentRegistry(c, sessionLogger{c})
	c.components.ComponentAdded().Add(c.watchComponent)

	c.wg.Add(3)
	go c.writeLoop()
	go c.receiveLoop()
	go c.keepaliveLoop()

	c.request(methodChangeGroupAutoPoll, autoPollParams{
		ID:   c.changeGroupID,
		Rate: cfg.PollRate.Seconds(),
	})

	c.logInfo("connected to core",
		"core_id", cfg.ID,
		"address", cfg.address(),
		"change_group", c.changeGroupID,
	)
	return c, nil
}

// ID returns the local identifier of this Core.
func (c *Core) ID() string { return c.cfg.ID }

// ChangeGroupID returns the session's change group identifier.
func (c *Core) ChangeGroupID() string { return c.changeGroupID }

// LazyLoadComponent returns the named Component, creating it on first use.
func (c *Core) LazyLoadComponent(name string) *qsys.Component {
	return c.components.LazyLoadComponent(name)
}

// TryGetComponent returns an existing Component without creating one.
func (c *Core) TryGetComponent(name string) (*qsys.Component, bool) {
	return c.components.TryGetComponent(name)
}

// Components returns a snapshot of every Component in use on this Core.
func (c *Core) Components() []*qsys.Component {
	return c.components.Components()
}

// ComponentAdded returns the list notified when a Component is created.
func (c *Core) ComponentAdded() *qsys.Listeners[*qsys.Component] {
	return c.components.ComponentAdded()
}

// Enqueue hands a serialised command to the writer. It never blocks:
// when the queue is full or the session is closed the command is dropped.
func (c *Core) Enqueue(command string) {
	select {
	case <-c.done.Done():
		c.commandsDropped.Add(1)
		return
	default:
	}

	select {
	case c.sendQueue <- command:
	default:
		c.commandsDropped.Add(1)
		c.errorsTotal.Add(1)
		c.logWarn("send queue full, dropping command", "core_id", c.cfg.ID)
	}
}

// request encodes and enqueues a JSON-RPC request with a fresh ID.
func (c *Core) request(method string, params any) {
	cmd, err := encodeRequest(method, params, c.requestID.Add(1))
	if err != nil {
		c.errorsTotal.Add(1)
		c.logError("encode request failed", err)
		return
	}
	c.Enqueue(cmd)
}

// watchComponent subscribes a new Component's controls to the change group
// as they are created or turn their subscription on.
func (c *Core) watchComponent(comp *qsys.Component) {
	comp.ControlAdded().Add(func(ctrl *qsys.Control) {
		if ctrl.Subscribed() {
			c.subscribe(comp.Name(), ctrl.Name())
		}
	})
	comp.SubscribeChanged().Add(func(e qsys.SubscribeEvent) {
		c.subscribe(comp.Name(), e.Control.Name())
	})

	if req := comp.ToSubscribeRequest(); len(req.Controls) > 0 {
		c.request(methodChangeGroupAdd, changeGroupAddParams{ID: c.changeGroupID, Component: req})
	}
}

func (c *Core) subscribe(component, control string) {
	c.logDebug("subscribing control",
		"core_id", c.cfg.ID,
		"component", component,
		"control", control,
	)
	c.request(methodChangeGroupAdd, changeGroupAddParams{
		ID: c.changeGroupID,
		Component: qsys.SubscribeRequest{
			Name:     component,
			Controls: []qsys.ControlName{{Name: control}},
		},
	})
}

// Resubscribe sends the full subscription list of every Component.
func (c *Core) Resubscribe() {
	for _, comp := range c.components.Components() {
		if req := comp.ToSubscribeRequest(); len(req.Controls) > 0 {
			c.request(methodChangeGroupAdd, changeGroupAddParams{ID: c.changeGroupID, Component: req})
		}
	}
}

// writeLoop drains the send queue onto the connection.
func (c *Core) writeLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done.Done():
			return
		case cmd := <-c.sendQueue:
			if err := c.writeFrame(cmd); err != nil {
				c.handleDisconnect(err)
				return
			}
		}
	}
}

func (c *Core) writeFrame(cmd string) error {
	frame := make([]byte, 0, len(cmd)+1)
	frame = append(frame, cmd...)
	frame = append(frame, frameTerminator)

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := c.conn.Write(frame); err != nil {
		c.errorsTotal.Add(1)
		return fmt.Errorf("write: %w", err)
	}

	c.commandsTx.Add(1)
	c.lastActivity.Store(time.Now().Unix())
	return nil
}

// receiveLoop reads frames until the connection fails or the session closes.
func (c *Core) receiveLoop() {
	defer c.wg.Done()

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 4096), maxFrameSize)
	scanner.Split(splitFrames)

	for scanner.Scan() {
		c.messagesRx.Add(1)
		c.lastActivity.Store(time.Now().Unix())
		c.handleFrame(scanner.Bytes())
	}

	err := scanner.Err()
	if errors.Is(err, bufio.ErrTooLong) {
		err = fmt.Errorf("%w: limit %d bytes", ErrFrameTooLarge, maxFrameSize)
	}
	if err == nil {
		err = errors.New("connection closed by core")
	}
	c.handleDisconnect(err)
}

// handleFrame decodes one frame and routes it.
func (c *Core) handleFrame(frame []byte) {
	msg, err := decodeMessage(frame)
	if err != nil {
		c.errorsTotal.Add(1)
		c.logError("discarding frame", err)
		return
	}

	switch {
	case msg.Error != nil:
		c.handleErrorResponse(msg)
	case msg.Method == methodChangeGroupPoll:
		c.handlePoll(msg.Params)
	case msg.Method == methodEngineStatus:
		c.handleEngineStatus(msg.Params)
	case msg.Method != "":
		c.logDebug("ignoring notification", "core_id", c.cfg.ID, "method", msg.Method)
	}
}

// handlePoll splits a poll result into one Dispatch per change.
func (c *Core) handlePoll(raw json.RawMessage) {
	var params pollParams
	if err := json.Unmarshal(raw, &params); err != nil {
		c.errorsTotal.Add(1)
		c.logError("decode poll result failed", err)
		return
	}
	if params.ID != "" && params.ID != c.changeGroupID {
		c.logDebug("ignoring poll for foreign change group", "change_group", params.ID)
		return
	}

	for _, ch := range params.Changes {
		c.changesRx.Add(1)
		state := qsys.StateData{
			Name:        ch.Name,
			Value:       ch.Value,
			Position:    ch.Position,
			StringValue: ch.String,
			BoolValue:   ch.Value != 0,
		}
		if ch.Component == "" || !c.components.Dispatch(ch.Component, state) {
			c.changesDropped.Add(1)
		}
	}
}

func (c *Core) handleEngineStatus(raw json.RawMessage) {
	var status EngineStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		c.errorsTotal.Add(1)
		c.logError("decode engine status failed", err)
		return
	}

	c.engineMu.Lock()
	c.engine = status
	c.engineMu.Unlock()

	c.logInfo("core engine status",
		"core_id", c.cfg.ID,
		"state", status.State,
		"design", status.DesignName,
		"platform", status.Platform,
	)
}

// handleErrorResponse logs a failed request. Component.Set requests carry
// a correlation token as their ID, which names the component and control.
func (c *Core) handleErrorResponse(msg message) {
	c.errorsTotal.Add(1)

	var id string
	if err := json.Unmarshal(msg.ID, &id); err == nil {
		if tok, err := qsys.DecodeToken(id); err == nil {
			c.logError("core rejected command", msg.Error,
				"component", tok.Caller,
				"control", tok.Method,
				"value_type", string(tok.ValueType),
			)
			return
		}
	}
	c.logError("core rejected request", msg.Error, "id", string(msg.ID))
}

// keepaliveLoop sends NoOp so the Core does not drop an idle session.
func (c *Core) keepaliveLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done.Done():
			return
		case <-ticker.C:
			c.request(methodNoOp, nil)
		}
	}
}

// handleDisconnect tears the session down after a transport failure.
// The disconnect callback runs once, on its own goroutine.
func (c *Core) handleDisconnect(err error) {
	closing := c.isClosed()

	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	c.done.Close()
	c.conn.Close()

	if closing {
		return
	}

	c.disconnectOnce.Do(func() {
		c.logError("connection to core lost", err, "core_id", c.cfg.ID)

		c.callbackMu.RLock()
		fn := c.onDisconnect
		c.callbackMu.RUnlock()
		if fn != nil {
			go fn(err)
		}
	})
}

func (c *Core) isClosed() bool {
	select {
	case <-c.done.Done():
		return true
	default:
		return false
	}
}

// Close destroys the change group and ends the session.
// Safe to call multiple times.
func (c *Core) Close() error {
	if !c.isClosed() {
		// Best effort: tell the Core to drop our change group.
		if cmd, err := encodeRequest(methodChangeGroupDestroy, changeGroupParams{ID: c.changeGroupID}, c.requestID.Add(1)); err == nil {
			_ = c.writeFrame(cmd) //nolint:errcheck // closing anyway
		}
	}

	c.done.Close()

	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	c.conn.Close()
	c.wg.Wait()

	c.logInfo("core session closed", "core_id", c.cfg.ID)
	return nil
}

// SetOnDisconnect sets the callback invoked once when the connection drops.
// It is not called for Close.
func (c *Core) SetOnDisconnect(fn func(error)) {
	c.callbackMu.Lock()
	c.onDisconnect = fn
	c.callbackMu.Unlock()
}

// SetLogger sets the logger for this session.
func (c *Core) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// IsConnected returns true while the session is live.
func (c *Core) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected
}

// Engine returns the last engine status reported by the Core.
func (c *Core) Engine() EngineStatus {
	c.engineMu.RLock()
	defer c.engineMu.RUnlock()
	return c.engine
}

// Stats returns current operational statistics.
func (c *Core) Stats() Stats {
	return Stats{
		CoreID:          c.cfg.ID,
		CommandsTx:      c.commandsTx.Load(),
		CommandsDropped: c.commandsDropped.Load(),
		MessagesRx:      c.messagesRx.Load(),
		ChangesRx:       c.changesRx.Load(),
		ChangesDropped:  c.changesDropped.Load(),
		ErrorsTotal:     c.errorsTotal.Load(),
		LastActivity:    time.Unix(c.lastActivity.Load(), 0),
		Connected:       c.IsConnected(),
		Engine:          c.Engine(),
	}
}

// HealthCheck reports whether the session is live.
func (c *Core) HealthCheck(_ context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

func (c *Core) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

func (c *Core) logDebug(msg string, keysAndValues ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (c *Core) logInfo(msg string, keysAndValues ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (c *Core) logWarn(msg string, keysAndValues ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (c *Core) logError(msg string, err error, keysAndValues ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
	}
}

// sessionLogger lets the component registry log through whatever logger
// the session currently has.
type sessionLogger struct{ c *Core }

func (l sessionLogger) Debug(msg string, kv ...any) { l.c.logDebug(msg, kv...) }
func (l sessionLogger) Info(msg string, kv ...any)  { l.c.logInfo(msg, kv...) }
func (l sessionLogger) Warn(msg string, kv ...any)  { l.c.logWarn(msg, kv...) }

func (l sessionLogger) Error(msg string, kv ...any) {
	if logger := l.c.getLogger(); logger != nil {
		logger.Error(msg, kv...)
	}
}
