package qrc

import (
	"bufio"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestSplitFrames(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single frame", "{\"a\":1}\x00", []string{`{"a":1}`}},
		{"two frames", "{}\x00[]\x00", []string{"{}", "[]"}},
		{"empty frames skipped", "\x00\x00{}\x00\x00", []string{"{}"}},
		{"partial trailing frame dropped", "{}\x00{\"b\"", []string{"{}"}},
		{"nothing", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := bufio.NewScanner(strings.NewReader(tt.input))
			scanner.Split(splitFrames)

			var got []string
			for scanner.Scan() {
				got = append(got, scanner.Text())
			}
			if err := scanner.Err(); err != nil {
				t.Fatalf("scan error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("frames = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeRequest(t *testing.T) {
	got, err := encodeRequest(methodChangeGroupAutoPoll, autoPollParams{ID: "g1", Rate: 0.2}, 7)
	if err != nil {
		t.Fatalf("encodeRequest() error = %v", err)
	}
	want := `{"jsonrpc":"2.0","method":"ChangeGroup.AutoPoll","params":{"Id":"g1","Rate":0.2},"id":7}`
	if got != want {
		t.Errorf("encodeRequest() =\n  %s\nwant\n  %s", got, want)
	}

	got, err = encodeRequest(methodNoOp, nil, 0)
	if err != nil {
		t.Fatalf("encodeRequest() error = %v", err)
	}
	if want := `{"jsonrpc":"2.0","method":"NoOp","params":{}}`; got != want {
		t.Errorf("notification = %s, want %s", got, want)
	}
}

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		wantErr bool
		check   func(t *testing.T, m message)
	}{
		{
			name:  "notification",
			frame: `{"jsonrpc":"2.0","method":"EngineStatus","params":{"State":"Active"}}`,
			check: func(t *testing.T, m message) {
				if m.Method != methodEngineStatus {
					t.Errorf("Method = %q", m.Method)
				}
			},
		},
		{
			name:  "error response with capitalised ID",
			frame: `{"jsonrpc":"2.0","error":{"code":2,"message":"Unknown component name"},"ID":"x"}`,
			check: func(t *testing.T, m message) {
				if m.Error == nil || m.Error.Code != 2 || string(m.ID) != `"x"` {
					t.Errorf("message = %+v", m)
				}
			},
		},
		{
			name:  "result",
			frame: `{"jsonrpc":"2.0","result":true,"id":3}`,
		},
		{name: "garbage", frame: `not json`, wantErr: true},
		{name: "empty object", frame: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := decodeMessage([]byte(tt.frame))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMessage) {
					t.Errorf("decodeMessage() error = %v, want ErrInvalidMessage", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeMessage() error = %v", err)
			}
			if tt.check != nil {
				tt.check(t, m)
			}
		})
	}
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	cfg := Config{ID: "core-1", Host: "10.0.0.5"}.withDefaults()
	if cfg.Port != DefaultPort || cfg.KeepaliveInterval != defaultKeepaliveInterval || cfg.PollRate != defaultPollRate {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("validate() error = %v", err)
	}
	if cfg.address() != "10.0.0.5:1710" {
		t.Errorf("address() = %q", cfg.address())
	}

	bad := []Config{
		{Host: "h", Port: 1710},
		{ID: "c", Port: 1710},
		{ID: "c", Host: "h", Port: 70000},
	}
	for _, b := range bad {
		if err := b.validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("validate(%+v) error = %v, want ErrInvalidConfig", b, err)
		}
	}
}
