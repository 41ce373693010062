package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-qsys/internal/qrc"
	"github.com/nerrad567/gray-logic-qsys/internal/qsys"
	"github.com/nerrad567/gray-logic-qsys/internal/qsys/adapter"
)

// minTopicParts is the minimum number of parts in a valid MQTT topic.
const minTopicParts = 3

// Logger interface for optional logging.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// MQTTClient is the interface for MQTT operations.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// BridgeID identifies this bridge in health messages.
	BridgeID string

	// Version is reported in health messages.
	Version string

	// HealthInterval is how often health is published. Default: 30s.
	HealthInterval time.Duration

	// Devices are the devices to expose.
	Devices []DeviceConfig

	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// Directory resolves Core IDs to live sessions.
	Directory *qsys.Directory

	// CoreStats reports the configured Core sessions for health messages.
	// Optional.
	CoreStats func() []qrc.Stats

	// Logger is optional structured logger.
	Logger Logger
}

// Bridge exposes Q-SYS device adapters on the MQTT bus.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	id      string
	configs []DeviceConfig
	mqtt    MQTTClient
	dir     *qsys.Directory
	health  *HealthReporter

	devices   map[string]*managedDevice
	devicesMu sync.RWMutex

	// State cache for change detection
	stateCache   map[string]map[string]any
	stateCacheMu sync.Mutex

	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
//
// Parameters:
//   - opts: Devices, directory, MQTT client and optional stats source
//
// Returns:
//   - *Bridge: Ready to Start
//   - error: If the MQTT client or the directory is missing
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Directory == nil {
		return nil, fmt.Errorf("core directory is required")
	}

	b := &Bridge{
		id:         opts.BridgeID,
		configs:    opts.Devices,
		mqtt:       opts.MQTTClient,
		dir:        opts.Directory,
		devices:    make(map[string]*managedDevice),
		stateCache: make(map[string]map[string]any),
		logger:     opts.Logger,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  opts.BridgeID,
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTTClient,
		CoreStats: opts.CoreStats,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start builds the device adapters, subscribes to command and request
// topics and starts health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	b.loadDevices()

	commandTopic := CommandSubscribeTopic()
	if err := b.mqtt.Subscribe(commandTopic, 1, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", commandTopic)

	requestTopic := RequestSubscribeTopic()
	if err := b.mqtt.Subscribe(requestTopic, 1, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to requests: %w", err)
	}
	b.logInfo("subscribed to requests", "topic", requestTopic)

	b.health.Start(ctx)

	b.logInfo("bridge started",
		"bridge_id", b.id,
		"devices", b.deviceCount())

	return nil
}

// Stop releases every adapter and publishes a final stopping status.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.devicesMu.Lock()
		for _, md := range b.devices {
			md.dev.Close()
		}
		b.devicesMu.Unlock()

		b.health.Stop()
		b.logInfo("bridge stopped")
	})
}

// loadDevices builds one adapter per configured device. A device that
// fails to initialize is logged and skipped.
func (b *Bridge) loadDevices() {
	for _, cfg := range b.configs {
		dev, err := b.buildDevice(cfg)
		if err != nil {
			b.logError("device skipped", fmt.Errorf("%s: %w", cfg.ID, err))
			continue
		}

		b.devicesMu.Lock()
		if old, ok := b.devices[cfg.ID]; ok {
			old.dev.Close()
		}
		b.devices[cfg.ID] = &managedDevice{cfg: cfg, dev: dev}
		b.devicesMu.Unlock()
	}

	count := b.deviceCount()
	b.health.SetDeviceCount(count)
	b.logInfo("devices loaded", "count", count, "configured", len(b.configs))
}

func (b *Bridge) deviceCount() int {
	b.devicesMu.RLock()
	defer b.devicesMu.RUnlock()
	return len(b.devices)
}

func (b *Bridge) lookup(deviceID string) (*managedDevice, bool) {
	b.devicesMu.RLock()
	defer b.devicesMu.RUnlock()
	md, ok := b.devices[deviceID]
	return md, ok
}

// Devices returns a view of every managed device, sorted by ID.
func (b *Bridge) Devices() []DeviceInfo {
	b.devicesMu.RLock()
	list := make([]*managedDevice, 0, len(b.devices))
	for _, md := range b.devices {
		list = append(list, md)
	}
	b.devicesMu.RUnlock()

	infos := make([]DeviceInfo, 0, len(list))
	for _, md := range list {
		infos = append(infos, b.deviceInfo(md))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

func (b *Bridge) deviceInfo(md *managedDevice) DeviceInfo {
	return DeviceInfo{
		ID:        md.cfg.ID,
		Name:      md.cfg.Name,
		Type:      md.cfg.Type,
		Core:      md.cfg.Core,
		Component: md.cfg.Component,
		Controls:  md.dev.ControlNames(),
		Bound:     componentBound(md.dev),
		State:     b.cachedState(md.cfg.ID),
	}
}

// handleMQTTMessage routes an inbound message by its topic type.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) {
	parts := strings.Split(topic, "/")
	if len(parts) < minTopicParts {
		b.logError("invalid topic format", fmt.Errorf("topic: %s", topic))
		return
	}

	switch parts[1] {
	case "command":
		b.handleCommand(payload)
	case "request":
		b.handleRequest(payload)
	default:
		b.logError("unknown message type", fmt.Errorf("type: %s", parts[1]))
	}
}

// handleCommand processes a command message from Core.
func (b *Bridge) handleCommand(payload []byte) {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logError("failed to parse command", err)
		return
	}

	b.logInfo("received command",
		"command_id", cmd.ID,
		"device_id", cmd.DeviceID,
		"command", cmd.Command)

	md, ok := b.lookup(cmd.DeviceID)
	if !ok {
		b.publishAckError(cmd, "", ErrCodeNotConfigured,
			fmt.Sprintf("device %s not configured", cmd.DeviceID))
		return
	}

	address := md.cfg.Address()
	if !componentBound(md.dev) {
		b.publishAckError(cmd, address, ErrCodeDeviceUnreachable,
			fmt.Sprintf("core %s not connected", md.cfg.Core))
		return
	}

	if err := executeCommand(md.dev, cmd); err != nil {
		b.publishAckError(cmd, address, errorCode(err), err.Error())
		return
	}

	b.publishAck(cmd, address, AckAccepted)
}

// errorCode maps a command error to its ack error code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnknownCommand):
		return ErrCodeInvalidCommand
	case errors.Is(err, ErrInvalidParameter),
		errors.Is(err, adapter.ErrInvalidIndex),
		errors.Is(err, qsys.ErrInvalidValue):
		return ErrCodeInvalidParameters
	case errors.Is(err, adapter.ErrNotInitialized):
		return ErrCodeNotConfigured
	default:
		return ErrCodeProtocolError
	}
}

func (b *Bridge) publishAck(cmd CommandMessage, address string, status AckStatus) {
	b.publishJSON(AckTopic(cmd.DeviceID), NewAckMessage(cmd, status, address), false)
}

func (b *Bridge) publishAckError(cmd CommandMessage, address, code, message string) {
	b.publishJSON(AckTopic(cmd.DeviceID), NewAckError(cmd, address, code, message), false)
	b.logWarn("command failed",
		"command_id", cmd.ID,
		"device_id", cmd.DeviceID,
		"code", code,
		"message", message)
}

// handleRequest processes a request message from Core.
func (b *Bridge) handleRequest(payload []byte) {
	var req RequestMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		b.logError("failed to parse request", err)
		return
	}

	b.logDebug("received request",
		"request_id", req.RequestID,
		"action", req.Action)

	resp := ResponseMessage{
		RequestID: req.RequestID,
		Timestamp: time.Now().UTC(),
	}

	switch req.Action {
	case "read_state":
		md, ok := b.lookup(req.DeviceID)
		if !ok {
			resp.Error = &AckError{
				Code:    ErrCodeNotConfigured,
				Message: fmt.Sprintf("device %q not configured", req.DeviceID),
			}
			break
		}
		info := b.deviceInfo(md)
		resp.Success = true
		resp.Data = map[string]any{
			"device_id": info.ID,
			"bound":     info.Bound,
			"state":     info.State,
		}
	case "list_devices":
		resp.Success = true
		resp.Data = map[string]any{"devices": b.Devices()}
	default:
		resp.Error = &AckError{
			Code:    ErrCodeInvalidCommand,
			Message: fmt.Sprintf("unknown action: %s", req.Action),
		}
	}

	b.publishJSON(ResponseTopic(req.RequestID), resp, false)
}

// updateState records a changed value and publishes the device's full
// known state. Unchanged values are not republished.
func (b *Bridge) updateState(cfg DeviceConfig, key string, value any) {
	b.stateCacheMu.Lock()
	state := b.stateCache[cfg.ID]
	if state == nil {
		state = make(map[string]any)
		b.stateCache[cfg.ID] = state
	}
	if cached, ok := state[key]; ok && cached == value {
		b.stateCacheMu.Unlock()
		return
	}
	state[key] = value
	snapshot := copyState(state)
	b.stateCacheMu.Unlock()

	b.publishJSON(StateTopic(cfg.ID), NewStateMessage(cfg.ID, cfg.Address(), snapshot), true)
}

func (b *Bridge) cachedState(deviceID string) map[string]any {
	b.stateCacheMu.Lock()
	defer b.stateCacheMu.Unlock()
	if state, ok := b.stateCache[deviceID]; ok {
		return copyState(state)
	}
	return nil
}

func copyState(state map[string]any) map[string]any {
	out := make(map[string]any, len(state))
	for k, v := range state {
		out[k] = v
	}
	return out
}

// ClearStateCache forgets every published state so the next feedback is
// republished.
func (b *Bridge) ClearStateCache() {
	b.stateCacheMu.Lock()
	b.stateCache = make(map[string]map[string]any)
	b.stateCacheMu.Unlock()
}

func (b *Bridge) publishJSON(topic string, msg any, retained bool) {
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logError("failed to marshal message", err)
		return
	}
	if err := b.mqtt.Publish(topic, payload, 1, retained); err != nil {
		b.logError("failed to publish", fmt.Errorf("%s: %w", topic, err))
	}
}

// Health returns the bridge's health reporter.
func (b *Bridge) Health() *HealthReporter {
	return b.health
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	b.health.SetLogger(logger)
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}
