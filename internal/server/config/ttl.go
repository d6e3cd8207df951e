package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTTL parses the token-lifetime shorthand used in configuration:
// "15m", "2h", "30s", "1d", or a bare integer of seconds ("3600").
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	unit := time.Second
	num := s
	switch last := s[len(s)-1]; last {
	case 's', 'S':
		num = s[:len(s)-1]
	case 'm', 'M':
		unit = time.Minute
		num = s[:len(s)-1]
	case 'h', 'H':
		unit = time.Hour
		num = s[:len(s)-1]
	case 'd', 'D':
		unit = 24 * time.Hour
		num = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(n) * unit, nil
}
