package session

import (
	"encoding/json"
	"testing"
)

func TestValueJSONRoundTrip(t *testing.T) {
	in := Payload{
		"s":    String("hello"),
		"n":    Number(42.5),
		"b":    Bool(false),
		"null": Null(),
	}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out Payload
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, ok := out["s"].Str(); !ok || v != "hello" {
		t.Fatalf("s = %v", out["s"])
	}
	if v, ok := out["n"].Num(); !ok || v != 42.5 {
		t.Fatalf("n = %v", out["n"])
	}
	if v, ok := out["b"].Bool(); !ok || v {
		t.Fatalf("b = %v", out["b"])
	}
	if !out["null"].IsNull() {
		t.Fatalf("null = %v", out["null"])
	}
}

func TestValueRejectsCompoundTypes(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(`[1,2]`), &v); err == nil {
		t.Fatal("expected array to be rejected")
	}
	if err := json.Unmarshal([]byte(`{"a":1}`), &v); err == nil {
		t.Fatal("expected object to be rejected")
	}
}

func TestValueAccessorsAreTyped(t *testing.T) {
	v := String("x")
	if _, ok := v.Num(); ok {
		t.Fatal("string value must not read as number")
	}
	if _, ok := v.Bool(); ok {
		t.Fatal("string value must not read as bool")
	}
	if v.IsNull() {
		t.Fatal("string value must not be null")
	}
	if Null().Kind() != KindNull {
		t.Fatal("zero value must be null")
	}
}

func TestWithoutNulls(t *testing.T) {
	p := Payload{"keep": Number(1), "drop": Null()}
	out := p.WithoutNulls()
	if len(out) != 1 {
		t.Fatalf("expected 1 key, got %v", out)
	}
	if _, found := p["drop"]; !found {
		t.Fatal("input payload was mutated")
	}

	if Payload(nil).WithoutNulls() != nil {
		t.Fatal("nil input must stay nil")
	}
	if (Payload{"a": Null()}).WithoutNulls() != nil {
		t.Fatal("all-null payload must collapse to nil")
	}
}

func TestMerge(t *testing.T) {
	existing := Payload{"a": String("old"), "b": Number(1)}
	update := Payload{"a": String("new"), "b": Null(), "c": Bool(true)}

	out := Merge(existing, update)
	if len(out) != 2 {
		t.Fatalf("expected keys a and c, got %v", out)
	}
	if v, _ := out["a"].Str(); v != "new" {
		t.Fatalf("a = %v", out["a"])
	}
	if _, found := out["b"]; found {
		t.Fatal("null update must delete the key")
	}
	if v, _ := existing["a"].Str(); v != "old" {
		t.Fatal("existing payload was mutated")
	}

	if Merge(Payload{"a": Number(1)}, Payload{"a": Null()}) != nil {
		t.Fatal("merge emptying the payload must return nil")
	}
}
