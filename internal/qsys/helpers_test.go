package qsys

import (
	"encoding/json"
	"sync"
	"testing"
)

// recordingCore implements Enqueuer and Core for testing.
type recordingCore struct {
	id string

	mu       sync.Mutex
	commands []string

	components *ComponentRegistry
}

func newRecordingCore(id string) *recordingCore {
	c := &recordingCore{id: id}
	c.components = NewComponentRegistry(c, nil)
	return c
}

func (c *recordingCore) Enqueue(command string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, command)
}

func (c *recordingCore) ID() string { return c.id }

func (c *recordingCore) LazyLoadComponent(name string) *Component {
	return c.components.LazyLoadComponent(name)
}

func (c *recordingCore) Commands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.commands))
	copy(out, c.commands)
	return out
}

// recordingLogger captures Error calls.
type recordingLogger struct {
	noopLogger
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}

// decodeEnvelope parses a serialised command into a generic map.
func decodeEnvelope(t *testing.T, cmd string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(cmd), &m); err != nil {
		t.Fatalf("command is not JSON: %v\n%s", err, cmd)
	}
	return m
}

// singleSetting returns the only entry of Params.Controls.
func singleSetting(t *testing.T, env map[string]any) map[string]any {
	t.Helper()
	params, ok := env["Params"].(map[string]any)
	if !ok {
		t.Fatalf("Params missing: %v", env)
	}
	controls, ok := params["Controls"].([]any)
	if !ok || len(controls) != 1 {
		t.Fatalf("Controls = %v, want exactly one entry", params["Controls"])
	}
	setting, ok := controls[0].(map[string]any)
	if !ok {
		t.Fatalf("control entry is %T", controls[0])
	}
	return setting
}

// hookCore runs onLoad once, inside the first LazyLoadComponent call.
type hookCore struct {
	*recordingCore
	once   sync.Once
	onLoad func()
}

func (c *hookCore) LazyLoadComponent(name string) *Component {
	comp := c.recordingCore.LazyLoadComponent(name)
	c.once.Do(c.onLoad)
	return comp
}
