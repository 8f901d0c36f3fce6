// Package settings maintains an in-memory snapshot of DB-backed billing settings.
// The snapshot swaps atomically on refresh, so readers on the billing hot path never
// block on a settings reload.
package settings

import (
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"
)

// snapshot holds the in-memory DB config values.
type snapshot struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

// global stores the latest snapshot atomically.
var global atomic.Value // stores snapshot

func init() {
	global.Store(snapshot{values: map[string]json.RawMessage{}})
}

// Store replaces the in-memory snapshot of DB-backed settings.
func Store(updatedAt time.Time, values map[string]json.RawMessage) {
	next := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		copied := make([]byte, len(v))
		copy(copied, v)
		next[key] = copied
	}
	global.Store(snapshot{updatedAt: updatedAt.UTC(), values: next})
}

// UpdatedAt returns the last refresh timestamp.
func UpdatedAt() time.Time {
	return load().updatedAt
}

// Value returns a copy of the raw config value for a key.
func Value(key string) (json.RawMessage, bool) {
	cfg := load()
	v, ok := cfg.values[strings.TrimSpace(key)]
	if !ok {
		return nil, false
	}
	copied := make([]byte, len(v))
	copy(copied, v)
	return copied, true
}

// Float returns a numeric setting, falling back when absent or malformed.
func Float(key string, fallback float64) float64 {
	raw, ok := Value(key)
	if !ok {
		return fallback
	}
	var v float64
	if errUnmarshal := json.Unmarshal(raw, &v); errUnmarshal != nil {
		return fallback
	}
	return v
}

// String returns a string setting, falling back when absent or malformed.
func String(key, fallback string) string {
	raw, ok := Value(key)
	if !ok {
		return fallback
	}
	var v string
	if errUnmarshal := json.Unmarshal(raw, &v); errUnmarshal != nil {
		return fallback
	}
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// load returns the current snapshot with safe defaults.
func load() snapshot {
	v := global.Load()
	cfg, ok := v.(snapshot)
	if !ok || cfg.values == nil {
		return snapshot{values: map[string]json.RawMessage{}}
	}
	return cfg
}
