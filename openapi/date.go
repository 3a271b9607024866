package openapi

import (
	"strconv"
	"time"
)

// DateLayout is the full-date layout from RFC 3339.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time of day. It is documented as
// {type: string, format: date} and encodes as "YYYY-MM-DD".
type Date struct {
	time.Time
}

// NewDate returns the date part of t.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}
