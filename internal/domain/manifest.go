package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Manifest summarizes one lake partition once writing completes. Extra holds
// caller-supplied metadata which is flattened next to the reserved keys on the
// wire; reserved keys always win over extra keys of the same name.
type Manifest struct {
	Date          string
	Timestamp     time.Time
	Channels      map[string]int
	TotalMessages int
	Extra         map[string]any
}

var manifestReserved = map[string]struct{}{
	"date": {}, "timestamp": {}, "channels": {}, "total_messages": {},
}

// MarshalJSON flattens Extra into the top-level object.
func (m Manifest) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+4)
	for k, v := range m.Extra {
		out[k] = v
	}
	channels := m.Channels
	if channels == nil {
		channels = map[string]int{}
	}
	out["date"] = m.Date
	out["timestamp"] = m.Timestamp.Format(time.RFC3339Nano)
	out["channels"] = channels
	out["total_messages"] = m.TotalMessages
	return json.Marshal(out)
}

// UnmarshalJSON reads the reserved keys and keeps every other key in Extra.
func (m *Manifest) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var out Manifest
	if v, ok := raw["date"]; ok {
		if err := json.Unmarshal(v, &out.Date); err != nil {
			return fmt.Errorf("manifest date: %w", err)
		}
	}
	if v, ok := raw["timestamp"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("manifest timestamp: %w", err)
		}
		ts, err := ParseTimestamp(s)
		if err != nil {
			return fmt.Errorf("manifest timestamp: %w", err)
		}
		out.Timestamp = ts
	}
	if v, ok := raw["channels"]; ok {
		if err := json.Unmarshal(v, &out.Channels); err != nil {
			return fmt.Errorf("manifest channels: %w", err)
		}
	}
	if v, ok := raw["total_messages"]; ok {
		if err := json.Unmarshal(v, &out.TotalMessages); err != nil {
			return fmt.Errorf("manifest total_messages: %w", err)
		}
	}
	for k, v := range raw {
		if _, reserved := manifestReserved[k]; reserved {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("manifest %s: %w", k, err)
		}
		if out.Extra == nil {
			out.Extra = map[string]any{}
		}
		out.Extra[k] = val
	}
	*m = out
	return nil
}
