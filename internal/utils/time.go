package utils

import (
	"time"
)

// ParseTimestamp parses an RFC 3339 timestamp and normalises it to UTC.
func ParseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
