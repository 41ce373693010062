package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-qsys/internal/qrc"
)

// Protocol is the protocol identifier carried in every bridge message.
const Protocol = "qsys"

// CommandMessage is sent from Core to Bridge to execute a device command.
// Topic: graylogic/command/qsys/{device}
type CommandMessage struct {
	// ID uniquely identifies this command for correlation with acknowledgments.
	ID string `json:"id"`

	// Timestamp is when the command was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// DeviceID is the Gray Logic device identifier.
	DeviceID string `json:"device_id"`

	// Command is the command name (e.g., "select_input", "set_gain").
	Command string `json:"command"`

	// Parameters contains command-specific values.
	// Examples:
	//   {"input": 5} for select_input
	//   {"level": 32768} for set_gain
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source indicates where the command originated.
	Source string `json:"source"`
}

// MarshalJSON writes the timestamp in RFC3339.
func (m *CommandMessage) MarshalJSON() ([]byte, error) {
	type Alias CommandMessage
	return json.Marshal(&struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias:     (*Alias)(m),
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
	})
}

// UnmarshalJSON accepts an RFC3339 timestamp or none at all.
func (m *CommandMessage) UnmarshalJSON(data []byte) error {
	type Alias CommandMessage
	aux := &struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias: (*Alias)(m),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return fmt.Errorf("unmarshal command message: %w", err)
	}
	if aux.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, aux.Timestamp)
		if err != nil {
			return fmt.Errorf("parse timestamp: %w", err)
		}
		m.Timestamp = t
	}
	return nil
}

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the command was handed to the Core.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"
)

// AckMessage is sent from Bridge to Core to acknowledge a command.
// Topic: graylogic/ack/qsys/{device}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Status    AckStatus `json:"status"`
	Protocol  string    `json:"protocol"`

	// Address is "{core}/{component}" for the device's component.
	Address string    `json:"address"`
	Error   *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for command failures.
const (
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeProtocolError     = "PROTOCOL_ERROR"
	ErrCodeNotConfigured     = "NOT_CONFIGURED"
)

// StateMessage is sent from Bridge to Core when device state changes.
// Topic: graylogic/state/qsys/{device}
// QoS: 1, Retained: Yes
type StateMessage struct {
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`

	// State contains every value known for the device:
	//   router:     {"input": 5, "mute": false}
	//   crosspoint: {"mute": true, "gain": 32768}
	//   snapshot:   {"match": 2}
	State    map[string]any `json:"state"`
	Protocol string         `json:"protocol"`
	Address  string         `json:"address"`
}

// RequestMessage is sent from Core to Bridge to query state.
// Topic: graylogic/request/qsys/{request_id}
type RequestMessage struct {
	RequestID string         `json:"request_id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	DeviceID  string         `json:"device_id,omitempty"`
	Params    map[string]any `json:"parameters,omitempty"`
}

// ResponseMessage answers a RequestMessage.
// Topic: graylogic/response/qsys/{request_id}
type ResponseMessage struct {
	RequestID string         `json:"request_id"`
	Timestamp time.Time      `json:"timestamp"`
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data,omitempty"`
	Error     *AckError      `json:"error,omitempty"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthOffline  HealthStatus = "offline"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is sent from Bridge to Core to report operational status.
// Topic: graylogic/health/qsys
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge         string       `json:"bridge"`
	Timestamp      time.Time    `json:"timestamp"`
	Status         HealthStatus `json:"status"`
	Version        string       `json:"version"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	Cores          []CoreHealth `json:"cores,omitempty"`
	DevicesManaged int          `json:"devices_managed"`
	Reason         string       `json:"reason,omitempty"`
}

// CoreHealth summarises one Core session.
type CoreHealth struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"`
	EngineState     string    `json:"engine_state,omitempty"`
	DesignName      string    `json:"design_name,omitempty"`
	CommandsSent    uint64    `json:"commands_sent"`
	CommandsDropped uint64    `json:"commands_dropped"`
	ChangesReceived uint64    `json:"changes_received"`
	Errors          uint64    `json:"errors"`
	LastActivity    time.Time `json:"last_activity"`
}

// NewAckMessage builds an acknowledgment for cmd.
func NewAckMessage(cmd CommandMessage, status AckStatus, address string) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  cmd.DeviceID,
		Status:    status,
		Protocol:  Protocol,
		Address:   address,
	}
}

// NewAckError builds a failed acknowledgment for cmd.
func NewAckError(cmd CommandMessage, address, code, message string) AckMessage {
	ack := NewAckMessage(cmd, AckFailed, address)
	ack.Error = &AckError{Code: code, Message: message}
	return ack
}

// NewStateMessage builds a state update for a device.
func NewStateMessage(deviceID, address string, state map[string]any) StateMessage {
	return StateMessage{
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC(),
		State:     state,
		Protocol:  Protocol,
		Address:   address,
	}
}

// NewCoreHealth converts session statistics for a health message.
func NewCoreHealth(stats qrc.Stats) CoreHealth {
	status := "disconnected"
	if stats.Connected {
		status = "connected"
	}
	return CoreHealth{
		ID:              stats.CoreID,
		Status:          status,
		EngineState:     stats.Engine.State,
		DesignName:      stats.Engine.DesignName,
		CommandsSent:    stats.CommandsTx,
		CommandsDropped: stats.CommandsDropped,
		ChangesReceived: stats.ChangesRx,
		Errors:          stats.ErrorsTotal,
		LastActivity:    stats.LastActivity,
	}
}

// NewLWTMessage builds the Last Will and Testament payload.
func NewLWTMessage(bridgeID string) HealthMessage {
	return HealthMessage{
		Bridge:    bridgeID,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected_disconnect",
	}
}

// TopicPrefix is the root of every Gray Logic topic.
const TopicPrefix = "graylogic"

// CommandTopic returns the command topic for a device.
func CommandTopic(deviceID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, Protocol, deviceID)
}

// AckTopic returns the acknowledgment topic for a device.
func AckTopic(deviceID string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefix, Protocol, deviceID)
}

// StateTopic returns the state topic for a device.
func StateTopic(deviceID string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, Protocol, deviceID)
}

// ResponseTopic returns the response topic for a request.
func ResponseTopic(requestID string) string {
	return fmt.Sprintf("%s/response/%s/%s", TopicPrefix, Protocol, requestID)
}

// HealthTopic returns the bridge health topic.
func HealthTopic() string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, Protocol)
}

// CommandSubscribeTopic matches every device command.
func CommandSubscribeTopic() string {
	return fmt.Sprintf("%s/command/%s/+", TopicPrefix, Protocol)
}

// RequestSubscribeTopic matches every request.
func RequestSubscribeTopic() string {
	return fmt.Sprintf("%s/request/%s/+", TopicPrefix, Protocol)
}
