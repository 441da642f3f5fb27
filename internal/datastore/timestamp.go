package datastore

import (
	"fmt"
	"time"
)

// ParseUnixTimestamp converts a metadata date string to Unix epoch seconds.
// It accepts RFC 3339 timestamps and bare YYYY-MM-DD dates; bare dates are
// interpreted as UTC midnight.
func ParseUnixTimestamp(s string) (int64, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Unix(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return 0, fmt.Errorf("datastore: unrecognized timestamp %q (want RFC 3339 or YYYY-MM-DD)", s)
	}
	return t.Unix(), nil
}

// FormatUnixTimestamp renders epoch seconds back into the RFC 3339 UTC form
// used by chunk metadata. It is the inverse of ParseUnixTimestamp for
// date-only inputs up to the midnight normalization.
func FormatUnixTimestamp(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(time.RFC3339)
}
