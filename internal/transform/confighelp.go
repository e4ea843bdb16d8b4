package transform

import "fmt"

// The built-in transforms parse their config by hand from a
// map[string]any (the JSON object already decoded at the ingress
// boundary) rather than through a schema-validation library: this
// mirrors the teacher's own map[string]any-first style for ad hoc
// JSON shapes (internal/providers/base.go) and keeps each transform's
// config shape colocated with its apply logic, same as the original
// Rust transform's co-located serde struct.

func requireString(raw map[string]any, key string) (string, error) {
	v, ok := raw[key]
	if !ok {
		return "", fmt.Errorf("missing required field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q must be a string", key)
	}
	return s, nil
}

func optionalBool(raw map[string]any, key string, def bool) bool {
	v, ok := raw[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func requireBool(raw map[string]any, key string) (bool, error) {
	v, ok := raw[key]
	if !ok {
		return false, fmt.Errorf("missing required field %q", key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("field %q must be a boolean", key)
	}
	return b, nil
}

func requireUint(raw map[string]any, key string) (uint64, error) {
	v, ok := raw[key]
	if !ok {
		return 0, fmt.Errorf("missing required field %q", key)
	}
	f, ok := v.(float64)
	if !ok || f < 0 {
		return 0, fmt.Errorf("field %q must be a non-negative integer", key)
	}
	return uint64(f), nil
}

func requireUint32(raw map[string]any, key string) (uint32, error) {
	u, err := requireUint(raw, key)
	if err != nil {
		return 0, err
	}
	return uint32(u), nil
}
