package session

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Fields is the fixed hash field list, in the order Decode expects the
// HMGET reply. The field names are part of the storage format.
var Fields = []string{"id", "r", "w", "ttl", "d", "la", "ip", "no_resave"}

// Decode turns an HMGET reply over Fields into a Session. It returns
// (nil, nil) when the hash is absent or the session is logically dead
// (declared ttl exceeded by idle time). A non-nil error means the stored
// record is corrupt.
//
// For no-resave sessions the reported TTL is the remaining lifetime,
// declared ttl minus idle.
func Decode(vals []any, now int64) (*Session, error) {
	if len(vals) != len(Fields) {
		return nil, fmt.Errorf("session hash reply has %d fields, want %d", len(vals), len(Fields))
	}
	if vals[0] == nil {
		return nil, nil
	}

	id, err := fieldString(vals[0], "id")
	if err != nil {
		return nil, err
	}
	r, err := fieldInt(vals[1], "r")
	if err != nil {
		return nil, err
	}
	w, err := fieldInt(vals[2], "w")
	if err != nil {
		return nil, err
	}
	ttl, err := fieldInt(vals[3], "ttl")
	if err != nil {
		return nil, err
	}
	la, err := fieldInt(vals[5], "la")
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:     id,
		Reads:  r,
		Writes: w,
		TTL:    ttl,
		Idle:   now - la,
	}
	if vals[6] != nil {
		ip, err := fieldString(vals[6], "ip")
		if err != nil {
			return nil, err
		}
		s.IP = ip
	}

	// Logically dead regardless of whether the hash still exists.
	if s.TTL < s.Idle {
		return nil, nil
	}

	// For a fixed deadline the session dies the moment idle catches up with
	// the declared ttl; rolling sessions survive the exact boundary because
	// the read refreshes them.
	if noResave, _ := vals[7].(string); noResave == "1" {
		s.NoResave = true
		s.TTL -= s.Idle
		if s.TTL <= 0 {
			return nil, nil
		}
	}

	if vals[4] != nil {
		raw, err := fieldString(vals[4], "d")
		if err != nil {
			return nil, err
		}
		var d Payload
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, fmt.Errorf("session payload corrupt: %w", err)
		}
		s.Data = d
	}

	return s, nil
}

// EncodeNew builds the field/value argument list for the initial HSET of a
// freshly created session. The payload must already be stripped of nulls.
func EncodeNew(id, ip string, ttl, now int64, d Payload, noResave bool) ([]any, error) {
	fields := []any{
		"id", id,
		"r", 1,
		"w", 1,
		"ip", ip,
		"la", now,
		"ttl", ttl,
	}
	if len(d) > 0 {
		raw, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		fields = append(fields, "d", string(raw))
	}
	if noResave {
		fields = append(fields, "no_resave", 1)
	}
	return fields, nil
}

func fieldString(v any, name string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("session field %s has unexpected type %T", name, v)
	}
	return s, nil
}

func fieldInt(v any, name string) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("session field %s has unexpected type %T", name, v)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("session field %s is not an integer: %w", name, err)
	}
	return n, nil
}
