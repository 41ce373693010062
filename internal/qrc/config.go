package qrc

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Default timeouts, intervals and sizes for QRC sessions.
const (
	// DefaultPort is the QRC TCP port.
	DefaultPort = 1710

	// defaultConnectTimeout is the maximum time to wait for the TCP dial.
	defaultConnectTimeout = 10 * time.Second

	// defaultWriteTimeout bounds each frame write.
	defaultWriteTimeout = 5 * time.Second

	// defaultKeepaliveInterval keeps the Core from dropping an idle session
	// (it closes connections silent for 60 seconds).
	defaultKeepaliveInterval = 30 * time.Second

	// defaultPollRate is the change group auto-poll rate.
	defaultPollRate = 200 * time.Millisecond

	// sendQueueSize is the buffer size of the outbound command queue.
	sendQueueSize = 256

	// maxFrameSize caps a single inbound frame.
	maxFrameSize = 1 << 20
)

// Config holds the settings for one Core session.
type Config struct {
	// ID identifies the Core locally; adapters bind to it.
	ID string

	// Host is the Core's hostname or IP address.
	Host string

	// Port is the QRC port. Default: 1710.
	Port int

	// ConnectTimeout bounds the TCP dial. Default: 10 seconds.
	ConnectTimeout time.Duration

	// WriteTimeout bounds each frame write. Default: 5 seconds.
	WriteTimeout time.Duration

	// KeepaliveInterval is the NoOp period. Default: 30 seconds.
	KeepaliveInterval time.Duration

	// PollRate is how often the Core pushes change-group updates.
	// Default: 200 ms.
	PollRate time.Duration
}

// withDefaults returns cfg with zero fields replaced by defaults.
func (cfg Config) withDefaults() Config {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.KeepaliveInterval == 0 {
		cfg.KeepaliveInterval = defaultKeepaliveInterval
	}
	if cfg.PollRate == 0 {
		cfg.PollRate = defaultPollRate
	}
	return cfg
}

// validate checks the fields Connect cannot default.
func (cfg Config) validate() error {
	if cfg.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidConfig)
	}
	if cfg.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, cfg.Port)
	}
	if cfg.KeepaliveInterval < 0 || cfg.PollRate < 0 {
		return fmt.Errorf("%w: intervals must be positive", ErrInvalidConfig)
	}
	return nil
}

// address returns the host:port dial address.
func (cfg Config) address() string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}
