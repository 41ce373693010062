package qsys

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ValueKind tags which value field a command carries.
type ValueKind string

// Value kinds understood by Component.Set.
const (
	KindPosition    ValueKind = "position"
	KindValue       ValueKind = "value"
	KindStringValue ValueKind = "string_value"
)

// Token is the correlation record carried in the ID of every outbound
// Component.Set command. It lets anything watching the wire (logs, error
// responses from the Core) reconstruct what a command meant without
// request/response pairing.
type Token struct {
	ValueType   ValueKind `json:"ValueType"`
	Caller      string    `json:"Caller"`
	Method      string    `json:"Method"`
	Position    *float64  `json:"Position,omitempty"`
	Value       *float64  `json:"Value,omitempty"`
	StringValue *string   `json:"StringValue,omitempty"`
}

// Encode builds the serialised correlation token for a set command.
//
// value must be a float64 for KindPosition, a float64 or bool for KindValue
// (bool encodes as 1/0) and a string for KindStringValue. Numeric kinds also
// carry the shortest decimal rendering of the number in StringValue.
//
// Encode is deterministic: equal arguments always produce equal tokens.
func Encode(kind ValueKind, componentName, controlName string, value any) (string, error) {
	tok := Token{
		ValueType: kind,
		Caller:    componentName,
		Method:    controlName,
	}

	switch kind {
	case KindPosition:
		f, ok := value.(float64)
		if !ok {
			return "", fmt.Errorf("%w: position wants float64, got %T", ErrInvalidValue, value)
		}
		if err := checkFinite(f); err != nil {
			return "", err
		}
		rendered := formatNumber(f)
		tok.Position = &f
		tok.StringValue = &rendered
	case KindValue:
		f, err := numericValue(value)
		if err != nil {
			return "", err
		}
		rendered := formatNumber(f)
		tok.Value = &f
		tok.StringValue = &rendered
	case KindStringValue:
		s, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("%w: string_value wants string, got %T", ErrInvalidValue, value)
		}
		tok.StringValue = &s
	default:
		return "", fmt.Errorf("%w: unknown value kind %q", ErrInvalidValue, kind)
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncodingFailed, err)
	}
	return string(data), nil
}

// DecodeToken parses a token produced by Encode. Only diagnostics use it.
func DecodeToken(s string) (Token, error) {
	var tok Token
	if err := json.Unmarshal([]byte(s), &tok); err != nil {
		return Token{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if tok.ValueType == "" || tok.Caller == "" {
		return Token{}, fmt.Errorf("%w: missing ValueType or Caller", ErrInvalidToken)
	}
	return tok, nil
}

func numericValue(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, checkFinite(v)
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: value wants float64 or bool, got %T", ErrInvalidValue, value)
	}
}

func checkFinite(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: %v is not finite", ErrInvalidValue, f)
	}
	return nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
