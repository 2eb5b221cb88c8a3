package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Instant stores a timestamp as an ISO-8601 instant string at the driver
// boundary. All stamped times are normalised to UTC.
type Instant struct {
	time.Time
}

// NewInstant wraps a time as a UTC instant.
func NewInstant(t time.Time) Instant {
	return Instant{Time: t.UTC()}
}

// Value encodes the instant as an RFC 3339 string.
func (i Instant) Value() (driver.Value, error) {
	if i.Time.IsZero() {
		return nil, nil
	}
	return i.Time.UTC().Format(time.RFC3339Nano), nil
}

// Scan decodes from a stored string (or a driver-native time).
func (i *Instant) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		i.Time = time.Time{}
		return nil
	case time.Time:
		i.Time = v.UTC()
		return nil
	case []byte:
		return i.parse(string(v))
	case string:
		return i.parse(v)
	default:
		return fmt.Errorf("scan instant: unsupported type %T", src)
	}
}

func (i *Instant) parse(raw string) error {
	if raw == "" {
		i.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return fmt.Errorf("scan instant %q: %w", raw, err)
	}
	i.Time = parsed.UTC()
	return nil
}

// IntBool stores a boolean as a 0/1 integer column. Zero decodes to false,
// any nonzero value decodes to true.
type IntBool bool

// Value encodes the boolean as 0 or 1.
func (b IntBool) Value() (driver.Value, error) {
	if b {
		return int64(1), nil
	}
	return int64(0), nil
}

// Scan decodes a stored 0/1 integer.
func (b *IntBool) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*b = false
	case bool:
		*b = IntBool(v)
	case int64:
		*b = v != 0
	case []byte:
		*b = len(v) > 0 && string(v) != "0"
	case string:
		*b = v != "" && v != "0"
	default:
		return fmt.Errorf("scan int bool: unsupported type %T", src)
	}
	return nil
}
