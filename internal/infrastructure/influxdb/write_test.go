package influxdb

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

type fakeWriter struct {
	mu      sync.Mutex
	points  []*write.Point
	flushes int
}

func (f *fakeWriter) WritePoint(p *write.Point) {
	f.mu.Lock()
	f.points = append(f.points, p)
	f.mu.Unlock()
}

func (f *fakeWriter) Flush() {
	f.mu.Lock()
	f.flushes++
	f.mu.Unlock()
}

func TestControlPointLineProtocol(t *testing.T) {
	ts := time.Unix(1700000000, 0)

	tests := []struct {
		name     string
		str      string
		want     []string
		notWants []string
	}{
		{
			name: "with string",
			str:  "Lobby",
			want: []string{
				"qsys_control,component=Router1,control=select.3,core=core-1 ",
				"position=0.5",
				"value=5",
				`string="Lobby"`,
				" 1700000000000000000",
			},
		},
		{
			name:     "empty string omitted",
			str:      "",
			want:     []string{"position=0.5", "value=5"},
			notWants: []string{"string="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newControlPoint("core-1", "Router1", "select.3", 5, 0.5, tt.str, ts)
			line := write.PointToLineProtocol(p, time.Nanosecond)

			for _, w := range tt.want {
				if !strings.Contains(line, w) {
					t.Errorf("line %q missing %q", line, w)
				}
			}
			for _, nw := range tt.notWants {
				if strings.Contains(line, nw) {
					t.Errorf("line %q contains %q", line, nw)
				}
			}
		})
	}
}

func TestWritesRequireConnection(t *testing.T) {
	w := &fakeWriter{}
	c := &Client{writeAPI: w}

	c.WriteControlState("core-1", "Mixer", "input.1.output.1.gain", 0, 0.25, "", time.Now())
	c.WritePoint("qsys_core", nil, map[string]interface{}{"errors": 0})
	c.Flush()
	if len(w.points) != 0 || w.flushes != 0 {
		t.Fatalf("disconnected client wrote %d points, %d flushes", len(w.points), w.flushes)
	}

	c.connected = true
	c.WriteControlState("core-1", "Mixer", "input.1.output.1.gain", 0, 0.25, "", time.Now())
	c.WritePoint("qsys_core", map[string]string{"core": "core-1"}, map[string]interface{}{"errors": 0})
	c.Flush()

	if len(w.points) != 2 {
		t.Fatalf("points = %d, want 2", len(w.points))
	}
	if w.points[0].Name() != ControlMeasurement || w.points[1].Name() != "qsys_core" {
		t.Errorf("measurements = %q, %q", w.points[0].Name(), w.points[1].Name())
	}
	if w.flushes != 1 {
		t.Errorf("flushes = %d, want 1", w.flushes)
	}
}

func TestWriteErrorCallback(t *testing.T) {
	c := &Client{}
	got := make(chan error, 1)
	c.SetOnError(func(err error) { got <- err })

	errs := make(chan error, 1)
	errs <- ErrConnectionFailed
	close(errs)
	c.handleWriteErrors(errs)

	select {
	case err := <-got:
		if err != ErrConnectionFailed {
			t.Errorf("callback error = %v", err)
		}
	default:
		t.Error("callback not invoked")
	}
}
