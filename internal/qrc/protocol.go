package qrc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// frameTerminator ends every QRC message.
const frameTerminator = 0x00

// QRC method names used by the session.
const (
	methodNoOp                = "NoOp"
	methodEngineStatus        = "EngineStatus"
	methodChangeGroupAdd      = "ChangeGroup.AddComponentControl"
	methodChangeGroupAutoPoll = "ChangeGroup.AutoPoll"
	methodChangeGroupPoll     = "ChangeGroup.Poll"
	methodChangeGroupDestroy  = "ChangeGroup.Destroy"
)

// request is an outbound JSON-RPC request. A zero ID makes it a notification.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      uint64 `json:"id,omitempty"`
}

// message is any inbound JSON-RPC frame: a notification from the Core or a
// response to one of our requests.
type message struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// rpcError is the error member of a JSON-RPC response.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// changeGroupAddParams is the params object of ChangeGroup.AddComponentControl.
type changeGroupAddParams struct {
	ID        string `json:"Id"`
	Component any    `json:"Component"`
}

// autoPollParams is the params object of ChangeGroup.AutoPoll.
type autoPollParams struct {
	ID   string  `json:"Id"`
	Rate float64 `json:"Rate"`
}

// changeGroupParams identifies a change group.
type changeGroupParams struct {
	ID string `json:"Id"`
}

// pollParams is the params object of a ChangeGroup.Poll push.
type pollParams struct {
	ID      string   `json:"Id"`
	Changes []change `json:"Changes"`
}

// change is one control update inside a poll result. Named controls (not
// part of a component) carry no Component.
type change struct {
	Component string  `json:"Component"`
	Name      string  `json:"Name"`
	String    string  `json:"String"`
	Value     float64 `json:"Value"`
	Position  float64 `json:"Position"`
}

// EngineStatus is what the Core reports about itself.
type EngineStatus struct {
	Platform    string `json:"Platform"`
	State       string `json:"State"`
	DesignName  string `json:"DesignName"`
	DesignCode  string `json:"DesignCode"`
	IsRedundant bool   `json:"IsRedundant"`
	IsEmulator  bool   `json:"IsEmulator"`
}

// encodeRequest serialises a request without its frame terminator.
func encodeRequest(method string, params any, id uint64) (string, error) {
	if params == nil {
		params = struct{}{}
	}
	data, err := json.Marshal(request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      id,
	})
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", method, err)
	}
	return string(data), nil
}

// decodeMessage parses one inbound frame.
func decodeMessage(frame []byte) (message, error) {
	var msg message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return message{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if msg.Method == "" && msg.Error == nil && msg.Result == nil {
		return message{}, fmt.Errorf("%w: neither method nor result", ErrInvalidMessage)
	}
	return msg, nil
}

// splitFrames is a bufio.SplitFunc for NUL-terminated frames. Empty frames
// are skipped. A trailing partial frame at EOF is discarded.
func splitFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && data[start] == frameTerminator {
		start++
	}
	if i := bytes.IndexByte(data[start:], frameTerminator); i >= 0 {
		return start + i + 1, data[start : start+i], nil
	}
	if atEOF {
		return len(data), nil, nil
	}
	// Request more data, keeping skipped terminators consumed.
	return start, nil, nil
}
