package metastore

import (
	"fmt"
	"time"
)

// timeLayout is the fixed UTC form of stored timestamps.
const timeLayout = "2006-01-02T15:04:05Z"

// FormatTime renders epoch seconds as YYYY-MM-DDTHH:MM:SSZ.
func FormatTime(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(timeLayout)
}

// ParseTime is the inverse of FormatTime.
func ParseTime(s string) (int64, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	return t.Unix(), nil
}
