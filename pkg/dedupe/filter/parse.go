package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Calendar units accepted by ParseAge. Months and years are approximate.
const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = 30 * Day
	Year  = 365 * Day
)

// ErrInvalidAge indicates that an age string could not be parsed.
var ErrInvalidAge = errors.New("invalid age")

var agePattern = regexp.MustCompile(`(?i)^([0-9]+(?:\.[0-9]+)?)\s*(d|w|mo|y)$`)

var ageUnits = map[string]time.Duration{
	"d":  Day,
	"w":  Week,
	"mo": Month,
	"y":  Year,
}

// ParseAge parses "30d", "2w", "3mo", "1y" or any time.ParseDuration string.
// Used by `dedupe history clean --older-than`.
func ParseAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAge, s)
	}

	m := agePattern.FindStringSubmatch(s)
	if m == nil {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAge, s)
		}
		return d, nil
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAge, s)
	}
	return time.Duration(value * float64(ageUnits[strings.ToLower(m[2])])), nil
}
