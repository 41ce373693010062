package qsys

import (
	"encoding/json"
	"fmt"
)

// JSON-RPC header carried by every Component.Set command.
const (
	jsonRPCVersion     = "2.0"
	methodComponentSet = "Component.Set"
)

// Envelope is an outbound Component.Set command.
type Envelope struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	ID      string         `json:"ID"`
	Params  EnvelopeParams `json:"Params"`
}

// EnvelopeParams names the component and the controls being set.
type EnvelopeParams struct {
	Name     string           `json:"Name"`
	Controls []ControlSetting `json:"Controls"`
}

// ControlSetting carries exactly one of Value, Position or StringValue.
// Unset fields are omitted from the wire form.
type ControlSetting struct {
	Name        string   `json:"Name"`
	Value       *float64 `json:"Value,omitempty"`
	Position    *float64 `json:"Position,omitempty"`
	StringValue *string  `json:"StringValue,omitempty"`
}

// buildEnvelope encodes the correlation token and the envelope for a single
// control change and returns the serialised command.
func buildEnvelope(kind ValueKind, componentName, controlName string, value any) (string, error) {
	id, err := Encode(kind, componentName, controlName, value)
	if err != nil {
		return "", err
	}

	setting := ControlSetting{Name: controlName}
	switch kind {
	case KindPosition:
		f := value.(float64) //nolint:forcetypeassert // checked by Encode
		setting.Position = &f
	case KindValue:
		f, _ := numericValue(value) //nolint:errcheck // checked by Encode
		setting.Value = &f
	case KindStringValue:
		s := value.(string) //nolint:forcetypeassert // checked by Encode
		setting.StringValue = &s
	}

	env := Envelope{
		JSONRPC: jsonRPCVersion,
		Method:  methodComponentSet,
		ID:      id,
		Params: EnvelopeParams{
			Name:     componentName,
			Controls: []ControlSetting{setting},
		},
	}

	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncodingFailed, err)
	}
	return string(data), nil
}
