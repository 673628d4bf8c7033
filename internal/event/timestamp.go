package event

import (
	"bytes"
	"fmt"
	"time"
)

var _timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp accepts RFC 3339 as well as zone-less ISO 8601 values, which
// are read as UTC. It always marshals as RFC 3339 in UTC.
type Timestamp struct {
	time.Time
}

// MarshalJSON -.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}

// UnmarshalJSON -.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	s := string(bytes.Trim(data, `"`))
	if s == "" {
		return nil
	}

	for _, layout := range _timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed.UTC()

			return nil
		}
	}

	return fmt.Errorf("event - Timestamp - unsupported format %q", s)
}
