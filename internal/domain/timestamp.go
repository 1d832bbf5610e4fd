package domain

import "time"

const TimestampLayout = "2006-01-02 15:04"

// Timestamp is the minute-resolution local time used by match history and the
// call log. It is kept as text so history lines round-trip verbatim.
type Timestamp string

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.Format(TimestampLayout))
}

func (t Timestamp) Time(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}

	return time.ParseInLocation(TimestampLayout, string(t), loc)
}

func (t Timestamp) String() string {
	return string(t)
}
