package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// LocalLayout is the zone-less date-time format used by the backend.
const LocalLayout = "2006-01-02T15:04:05"

var timestampLayouts = []string{
	time.RFC3339Nano,
	LocalLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Timestamp is a date-time that tolerates the layouts the backend and users
// produce. The zero value encodes as JSON null.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses s using the first matching layout.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognised date-time %q", s)
}

// String formats the timestamp for display, "TBA" when unset.
func (t Timestamp) String() string {
	if t.IsZero() {
		return "TBA"
	}
	return t.Format("Mon 02 Jan 2006 15:04")
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(LocalLayout))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var raw *string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(*raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
