package session

import (
	"strings"
	"testing"
)

// reply builds an HMGET-shaped reply in Fields order:
// id, r, w, ttl, d, la, ip, no_resave.
func reply(id, r, w, ttl, d, la, ip, noResave any) []any {
	return []any{id, r, w, ttl, d, la, ip, noResave}
}

func TestDecodeAbsent(t *testing.T) {
	s, err := Decode(reply(nil, nil, nil, nil, nil, nil, nil, nil), 1000)
	if err != nil {
		t.Fatalf("absent hash must not error: %v", err)
	}
	if s != nil {
		t.Fatalf("expected nil session, got %+v", s)
	}
}

func TestDecodeLive(t *testing.T) {
	s, err := Decode(reply("user1", "3", "2", "600", `{"plan":"pro","n":1.5,"ok":true}`, "990", "10.0.0.1", nil), 1000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s == nil {
		t.Fatal("expected live session")
	}
	if s.ID != "user1" || s.Reads != 3 || s.Writes != 2 {
		t.Fatalf("unexpected fields: %+v", s)
	}
	if s.TTL != 600 || s.Idle != 10 || s.IP != "10.0.0.1" || s.NoResave {
		t.Fatalf("unexpected derived fields: %+v", s)
	}
	if v, ok := s.Data["plan"].Str(); !ok || v != "pro" {
		t.Fatalf("plan = %v", s.Data["plan"])
	}
	if v, ok := s.Data["n"].Num(); !ok || v != 1.5 {
		t.Fatalf("n = %v", s.Data["n"])
	}
	if v, ok := s.Data["ok"].Bool(); !ok || !v {
		t.Fatalf("ok = %v", s.Data["ok"])
	}
}

func TestDecodeLogicallyDead(t *testing.T) {
	// idle 601 exceeds ttl 600.
	s, err := Decode(reply("user1", "1", "1", "600", nil, "399", "10.0.0.1", nil), 1000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s != nil {
		t.Fatalf("expected dead session to decode as nil, got %+v", s)
	}

	// idle exactly equal to ttl is still alive.
	s, err = Decode(reply("user1", "1", "1", "600", nil, "400", "10.0.0.1", nil), 1000)
	if err != nil || s == nil {
		t.Fatalf("boundary session must be alive: s=%v err=%v", s, err)
	}
}

func TestDecodeNoResave(t *testing.T) {
	s, err := Decode(reply("user1", "1", "1", "600", nil, "900", "10.0.0.1", "1"), 1000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s == nil {
		t.Fatal("expected live session")
	}
	if !s.NoResave {
		t.Fatal("no_resave flag lost")
	}
	if s.TTL != 500 || s.Idle != 100 {
		t.Fatalf("expected remaining ttl 500 idle 100, got ttl=%d idle=%d", s.TTL, s.Idle)
	}
}

func TestDecodeNoResaveDeadline(t *testing.T) {
	// idle exactly equal to the declared ttl: nothing remains of a fixed
	// deadline, the session is dead.
	s, err := Decode(reply("user1", "1", "1", "600", nil, "400", "10.0.0.1", "1"), 1000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s != nil {
		t.Fatalf("expected no_resave session dead at idle == ttl, got %+v", s)
	}

	// One second of lifetime left is still alive.
	s, err = Decode(reply("user1", "1", "1", "600", nil, "401", "10.0.0.1", "1"), 1000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s == nil || s.TTL != 1 {
		t.Fatalf("expected remaining ttl 1, got %+v", s)
	}
}

func TestDecodeCorruptRecord(t *testing.T) {
	if _, err := Decode(reply("user1", "NaN", "1", "600", nil, "990", "ip", nil), 1000); err == nil {
		t.Fatal("expected error for non-integer counter")
	}
	if _, err := Decode(reply("user1", "1", "1", "600", "{broken", "990", "ip", nil), 1000); err == nil {
		t.Fatal("expected error for corrupt payload json")
	}
	if _, err := Decode([]any{"too", "short"}, 1000); err == nil {
		t.Fatal("expected error for wrong reply arity")
	}
}

func TestEncodeNew(t *testing.T) {
	fields, err := EncodeNew("user1", "10.0.0.1", 600, 1000,
		Payload{"plan": String("pro")}, true)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	kv := map[string]any{}
	for i := 0; i < len(fields); i += 2 {
		kv[fields[i].(string)] = fields[i+1]
	}
	if kv["id"] != "user1" || kv["ip"] != "10.0.0.1" {
		t.Fatalf("identity fields wrong: %v", kv)
	}
	if kv["r"] != 1 || kv["w"] != 1 {
		t.Fatalf("counters must start at 1: %v", kv)
	}
	if kv["no_resave"] != 1 {
		t.Fatalf("no_resave flag missing: %v", kv)
	}
	d, ok := kv["d"].(string)
	if !ok || !strings.Contains(d, `"plan":"pro"`) {
		t.Fatalf("payload field wrong: %v", kv["d"])
	}

	// No payload and no flag: neither field appears.
	fields, err = EncodeNew("user1", "10.0.0.1", 600, 1000, nil, false)
	if err != nil {
		t.Fatalf("encode minimal: %v", err)
	}
	for i := 0; i < len(fields); i += 2 {
		if name := fields[i].(string); name == "d" || name == "no_resave" {
			t.Fatalf("unexpected field %s in minimal encoding", name)
		}
	}
}
