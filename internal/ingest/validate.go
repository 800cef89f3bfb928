// Package ingest moves raw lake records into the message store.
//
// A record passes three gates before it is persisted: validation (required
// fields present and usable), duplicate resolution against the store, and a
// conflict-ignoring bulk insert keyed by message_id. Replaying the same lake
// files is therefore always safe.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/telegram-warehouse/internal/domain"
)

// Record is one untyped lake record.
type Record = domain.RawRecord

// ErrInvalidRecord wraps every validation failure.
var ErrInvalidRecord = errors.New("invalid record")

// Required fields of a lake record.
const (
	FieldMessageID   = "message_id"
	FieldChannelName = "channel_name"
	FieldMessageDate = "message_date"
)

// IsValid reports whether rec can be persisted. It never mutates rec.
func IsValid(rec Record) bool { return Validate(rec) == nil }

// Validate returns nil for a persistable record, or an error wrapping
// ErrInvalidRecord that names the offending field.
func Validate(rec Record) error {
	_, err := toMessage(rec, time.Time{})
	return err
}

// toMessage is the single conversion from a lake record to a row. Required
// fields fail the record; optional fields that are absent or malformed fall
// back to their defaults.
func toMessage(rec Record, now time.Time) (domain.Message, error) {
	var m domain.Message
	if rec == nil {
		return m, fmt.Errorf("%w: not an object", ErrInvalidRecord)
	}
	for _, f := range []string{FieldMessageID, FieldChannelName, FieldMessageDate} {
		if v, ok := rec[f]; !ok || v == nil {
			return m, fmt.Errorf("%w: missing %s", ErrInvalidRecord, f)
		}
	}

	id, ok := asInt64(rec[FieldMessageID])
	if !ok {
		return m, fmt.Errorf("%w: message_id %v is not an integer", ErrInvalidRecord, rec[FieldMessageID])
	}
	m.MessageID = id

	ch, ok := rec[FieldChannelName].(string)
	if !ok || strings.TrimSpace(ch) == "" {
		return m, fmt.Errorf("%w: channel_name must be a non-empty string", ErrInvalidRecord)
	}
	m.ChannelName = ch

	ds, ok := rec[FieldMessageDate].(string)
	if !ok {
		return m, fmt.Errorf("%w: message_date must be a timestamp string", ErrInvalidRecord)
	}
	date, err := domain.ParseTimestamp(ds)
	if err != nil {
		return m, fmt.Errorf("%w: message_date: %v", ErrInvalidRecord, err)
	}
	m.MessageDate = date

	if s, ok := rec["message_text"].(string); ok {
		m.MessageText = s
	}
	if b, ok := rec["has_media"].(bool); ok {
		m.HasMedia = b
	}
	m.MediaType = optString(rec["media_type"])
	m.ImagePath = optString(rec["image_path"])
	m.PostAuthor = optString(rec["post_author"])
	if v, ok := asInt64(rec["channel_id"]); ok {
		m.ChannelID = &v
	}
	m.Views = counter(rec["views"])
	m.Forwards = counter(rec["forwards"])
	m.Replies = counter(rec["replies"])
	if s, ok := rec["edit_date"].(string); ok {
		if t, err := domain.ParseTimestamp(s); err == nil {
			m.EditDate = &t
		}
	}
	m.ScrapedAt = now.UTC()
	if s, ok := rec["scraped_at"].(string); ok {
		if t, err := domain.ParseTimestamp(s); err == nil {
			m.ScrapedAt = t
		}
	}
	return m, nil
}

// asInt64 coerces integers, integral floats and decimal strings. Booleans,
// fractions, objects and arrays are rejected.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case float64:
		return floatToInt(n)
	case float32:
		return floatToInt(float64(n))
	}
	return 0, false
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func counter(v any) int64 {
	n, ok := asInt64(v)
	if !ok || n < 0 {
		return 0
	}
	return n
}

func optString(v any) *string {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}
