package custom

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// Datetime represents a datetime. It is persisted as Unix milliseconds so documents written by older
// revisions of the bot (which stored raw millisecond numbers) keep loading.
type Datetime time.Time

// NewDatetime creates a Datetime from t, truncated to millisecond precision.
func NewDatetime(t time.Time) Datetime {
	return Datetime(time.UnixMilli(t.UnixMilli()).UTC())
}

// DatetimePtr is a convenience for optional timestamp fields.
func DatetimePtr(t time.Time) *Datetime {
	d := NewDatetime(t)
	return &d
}

// Time returns the underlying time.
func (d Datetime) Time() time.Time {
	return time.Time(d)
}

// IsZero reports whether the datetime is unset.
func (d Datetime) IsZero() bool {
	return time.Time(d).IsZero()
}

// Millis returns the datetime as Unix milliseconds.
func (d Datetime) Millis() int64 {
	if d.IsZero() {
		return 0
	}
	return time.Time(d).UnixMilli()
}

// MarshalJSON implements the json.Marshaler interface.
func (d Datetime) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(d.Millis(), 10)), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface. Both millisecond numbers and RFC3339
// strings are accepted.
func (d *Datetime) UnmarshalJSON(text []byte) error {
	text = bytes.TrimSpace(text)
	if len(text) == 0 || bytes.Equal(text, []byte("null")) {
		*d = Datetime{}
		return nil
	}

	if text[0] == '"' {
		s, err := strconv.Unquote(string(text))
		if err != nil {
			return fmt.Errorf("invalid datetime %s: %w", text, err)
		}
		if s == "" {
			*d = Datetime{}
			return nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid datetime %q: %w", s, err)
		}
		*d = NewDatetime(t)
		return nil
	}

	ms, err := strconv.ParseFloat(string(text), 64)
	if err != nil {
		return fmt.Errorf("invalid datetime %s: %w", text, err)
	}
	*d = Datetime(time.UnixMilli(int64(ms)).UTC())
	return nil
}

// String implements the fmt.Stringer interface.
func (d Datetime) String() string {
	return time.Time(d).Format(time.RFC3339)
}
