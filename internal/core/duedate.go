package core

import (
	"strconv"
	"strings"
	"time"
)

// dueLayouts are the absolute timestamp formats accepted for due dates.
// Layouts without a zone are interpreted as UTC.
var dueLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDue parses a due date given either as an absolute timestamp or as an
// offset from now such as "+48h" or "+3d".
func ParseDue(s string, now time.Time) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, validationErrorf("due date is empty")
	}

	if strings.HasPrefix(s, "+") {
		offset, err := parseOffset(s[1:])
		if err != nil {
			return nil, validationErrorf("invalid due date %q: %v", s, err)
		}
		if offset < 0 {
			return nil, validationErrorf("invalid due date %q: offset must not be negative", s)
		}
		t := now.Add(offset)
		return &t, nil
	}

	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, validationErrorf("invalid due date %q (use RFC3339, YYYY-MM-DD, +48h or +3d)", s)
}

func parseOffset(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, err
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
