package adapter

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-qsys/internal/qsys"
)

// fakeCore records enqueued commands and owns a component registry.
type fakeCore struct {
	id         string
	components *qsys.ComponentRegistry

	mu       sync.Mutex
	commands []string
}

func newFakeCore(id string) *fakeCore {
	c := &fakeCore{id: id}
	c.components = qsys.NewComponentRegistry(c, nil)
	return c
}

func (c *fakeCore) ID() string { return c.id }

func (c *fakeCore) LazyLoadComponent(name string) *qsys.Component {
	return c.components.LazyLoadComponent(name)
}

func (c *fakeCore) Enqueue(command string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, command)
}

func (c *fakeCore) Commands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.commands...)
}

// wireSetting is one decoded Component.Set command.
type wireSetting struct {
	Component   string
	Control     string
	Value       *float64
	Position    *float64
	StringValue *string
}

func decodeCommand(t *testing.T, cmd string) wireSetting {
	t.Helper()
	var env struct {
		Params struct {
			Name     string `json:"Name"`
			Controls []struct {
				Name        string   `json:"Name"`
				Value       *float64 `json:"Value"`
				Position    *float64 `json:"Position"`
				StringValue *string  `json:"StringValue"`
			} `json:"Controls"`
		} `json:"Params"`
	}
	if err := json.Unmarshal([]byte(cmd), &env); err != nil {
		t.Fatalf("command is not JSON: %v", err)
	}
	if len(env.Params.Controls) != 1 {
		t.Fatalf("Controls = %d entries, want 1", len(env.Params.Controls))
	}
	c := env.Params.Controls[0]
	return wireSetting{
		Component:   env.Params.Name,
		Control:     c.Name,
		Value:       c.Value,
		Position:    c.Position,
		StringValue: c.StringValue,
	}
}

// onlyCommand returns the only command enqueued on core.
func onlyCommand(t *testing.T, core *fakeCore) wireSetting {
	t.Helper()
	cmds := core.Commands()
	if len(cmds) != 1 {
		t.Fatalf("enqueued %d commands, want 1", len(cmds))
	}
	return decodeCommand(t, cmds[0])
}

// setup registers a fresh core in a new directory.
func setup(t *testing.T) (*qsys.Directory, *fakeCore) {
	t.Helper()
	dir := qsys.NewDirectory(nil)
	core := newFakeCore("core-1")
	dir.Register(core)
	return dir, core
}
