package session

import (
	"encoding/json"
	"fmt"
)

// Session is the decoded session record as consumers see it. TTL and Idle
// are derived at decode time: for no-resave sessions TTL is the remaining
// lifetime, otherwise the declared one.
type Session struct {
	Token string
	ID    string

	Reads  int64
	Writes int64

	TTL  int64
	Idle int64
	IP   string

	NoResave bool

	Data Payload
}

// Kind discriminates the scalar payload value union.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

// Value is a scalar payload value: string, number, boolean, or null.
// Null is a delete marker and is never persisted. The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

func String(s string) Value  { return Value{kind: KindString, str: s} }
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }
func Null() Value            { return Value{} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string content and whether the value is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the numeric content and whether the value is a number.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Bool returns the boolean content and whether the value is a boolean.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// MarshalJSON encodes the value as its plain JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON scalar. Objects and arrays are rejected:
// the payload holds flat scalar data only.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = Null()
	case string:
		*v = String(x)
	case float64:
		*v = Number(x)
	case bool:
		*v = Bool(x)
	default:
		return fmt.Errorf("payload value has forbidden type %T", raw)
	}
	return nil
}

// Payload is the per-session custom data mapping.
type Payload map[string]Value

// WithoutNulls returns a copy with all null-valued keys removed. An empty
// result is reported as nil so callers can skip the hash field.
func (p Payload) WithoutNulls() Payload {
	if len(p) == 0 {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		if !v.IsNull() {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Merge applies update on top of existing: null values delete keys, all
// others overwrite or insert. Neither input is modified.
func Merge(existing, update Payload) Payload {
	out := make(Payload, len(existing)+len(update))
	for k, v := range existing {
		if !v.IsNull() {
			out[k] = v
		}
	}
	for k, v := range update {
		if v.IsNull() {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
