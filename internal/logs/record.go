package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"mpvkit/internal/logging"
)

// Record is one decoded line of the JSON log. Lines that are not JSON keep
// only Raw and Message.
type Record struct {
	Time      time.Time
	Level     string
	Message   string
	Component string
	Instance  string
	Fields    map[string]any
	Raw       string
}

var levelRank = map[string]int{
	"debug": 0,
	"info":  1,
	"warn":  2,
	"error": 3,
}

// ParseRecord decodes a log line written by the JSON handler. The second
// return is false when the line was not structured.
func ParseRecord(line string) (Record, bool) {
	rec := Record{Raw: line, Message: line}
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return rec, false
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return rec, false
	}

	take := func(key string) string {
		value, ok := payload[key]
		if !ok {
			return ""
		}
		delete(payload, key)
		if s, ok := value.(string); ok {
			return s
		}
		return fmt.Sprint(value)
	}

	if ts := take("ts"); ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			rec.Time = parsed
		}
	}
	rec.Level = strings.ToLower(take("level"))
	rec.Message = take("msg")
	rec.Component = take(logging.FieldComponent)
	rec.Instance = take(logging.FieldInstance)
	if len(payload) > 0 {
		rec.Fields = payload
	}
	return rec, true
}

// FieldKeys returns the extra field names in a stable order.
func (r Record) FieldKeys() []string {
	keys := make([]string, 0, len(r.Fields))
	for key := range r.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Filter selects records by minimum level, component and engine instance.
// Empty fields match everything.
type Filter struct {
	MinLevel  string
	Component string
	Instance  string
}

// Validate reports an unknown minimum level.
func (f Filter) Validate() error {
	level := strings.ToLower(strings.TrimSpace(f.MinLevel))
	if level == "" {
		return nil
	}
	if _, ok := levelRank[level]; !ok {
		return fmt.Errorf("unsupported level %q (want debug, info, warn, or error)", f.MinLevel)
	}
	return nil
}

func (f Filter) empty() bool {
	return f.MinLevel == "" && f.Component == "" && f.Instance == ""
}

// Match reports whether rec passes the filter. Unstructured lines only pass
// an empty filter.
func (f Filter) Match(rec Record, structured bool) bool {
	if f.empty() {
		return true
	}
	if !structured {
		return false
	}
	if floor := strings.ToLower(strings.TrimSpace(f.MinLevel)); floor != "" {
		if levelRank[rec.Level] < levelRank[floor] {
			return false
		}
	}
	if f.Component != "" && !strings.EqualFold(rec.Component, f.Component) {
		return false
	}
	if f.Instance != "" && !strings.EqualFold(rec.Instance, f.Instance) {
		return false
	}
	return true
}
