package token

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTTL parses a credential lifetime. Accepted forms are a raw integer
// number of seconds ("900") or a value with a unit suffix: "30s", "15m",
// "1h", "7d". The parser is total: an unrecognized unit or malformed value
// is a hard failure, never a silent default.
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("ttl is empty")
	}

	unit := time.Second
	num := s
	switch s[len(s)-1] {
	case 's':
		num = s[:len(s)-1]
	case 'm':
		unit = time.Minute
		num = s[:len(s)-1]
	case 'h':
		unit = time.Hour
		num = s[:len(s)-1]
	case 'd':
		unit = 24 * time.Hour
		num = s[:len(s)-1]
	default:
		if s[len(s)-1] < '0' || s[len(s)-1] > '9' {
			return 0, fmt.Errorf("ttl %q has unrecognized unit %q", s, s[len(s)-1:])
		}
	}

	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ttl %q is malformed: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("ttl %q must be positive", s)
	}

	return time.Duration(n) * unit, nil
}
