package core

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Timestamp represents a point in time, always stored in UTC
type Timestamp time.Time

// Now returns the current timestamp
func Now() Timestamp {
	return Timestamp(time.Now().UTC())
}

// Time returns the underlying time.Time
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// IsZero checks if the timestamp is zero
func (t Timestamp) IsZero() bool {
	return time.Time(t).IsZero()
}

// MarshalJSON renders the timestamp as RFC3339 with nanoseconds
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return time.Time(t).MarshalJSON()
}

// String renders the timestamp as RFC3339
func (t Timestamp) String() string {
	return time.Time(t).Format(time.RFC3339)
}

// UnmarshalJSON parses an RFC3339 timestamp and normalizes it to UTC
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var parsed time.Time
	if err := parsed.UnmarshalJSON(data); err != nil {
		return err
	}
	*t = Timestamp(parsed.UTC())
	return nil
}

// Value stores the timestamp as a time.Time
func (t Timestamp) Value() (driver.Value, error) {
	return time.Time(t), nil
}

// Scan reads a timestamp column
func (t *Timestamp) Scan(value interface{}) error {
	switch v := value.(type) {
	case time.Time:
		*t = Timestamp(v.UTC())
		return nil
	case nil:
		*t = Timestamp(time.Time{})
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Timestamp", value)
	}
}
