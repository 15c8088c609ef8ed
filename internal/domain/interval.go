package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	MinIntervalSecs uint64 = 30
	MaxIntervalSecs uint64 = 365 * 24 * 60 * 60
)

type IntervalErrorKind int

const (
	IntervalUnparseable IntervalErrorKind = iota
	IntervalTooShort
	IntervalTooLong
)

type IntervalError struct {
	Kind  IntervalErrorKind
	Input string
	Secs  uint64
}

func (e *IntervalError) Error() string {
	switch e.Kind {
	case IntervalTooShort:
		return fmt.Sprintf("interval too short: minimum is 30s, got %ds", e.Secs)
	case IntervalTooLong:
		return fmt.Sprintf("interval too long: maximum is 365d, got %ds", e.Secs)
	default:
		return fmt.Sprintf("cannot parse interval: %q", e.Input)
	}
}

func (e *IntervalError) Unwrap() error { return ErrValidation }

var unitSecs = map[string]uint64{
	"s": 1,
	"m": 60,
	"h": 3600,
	"d": 86400,
	"w": 7 * 86400,
}

// ParseInterval accepts raw seconds ("300") or unit shorthand ("30s", "5m",
// "1h30m", "2d", "1w") and enforces the [30s, 365d] bounds.
func ParseInterval(raw string) (uint64, error) {
	secs, ok := parseIntervalSecs(strings.TrimSpace(raw))
	if !ok {
		return 0, &IntervalError{Kind: IntervalUnparseable, Input: raw}
	}
	if err := CheckInterval(secs); err != nil {
		return 0, err
	}
	return secs, nil
}

// CheckInterval enforces the interval bounds on an already-parsed value.
func CheckInterval(secs uint64) error {
	if secs < MinIntervalSecs {
		return &IntervalError{Kind: IntervalTooShort, Secs: secs}
	}
	if secs > MaxIntervalSecs {
		return &IntervalError{Kind: IntervalTooLong, Secs: secs}
	}
	return nil
}

func parseIntervalSecs(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n, true
	}

	var total uint64
	for len(s) > 0 {
		i := 0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i == 0 {
			return 0, false
		}
		n, err := strconv.ParseUint(s[:i], 10, 64)
		if err != nil {
			return 0, false
		}
		mult, ok := unitSecs[s[i:i+min(1, len(s)-i)]]
		if !ok {
			return 0, false
		}
		// saturate; anything past the max is rejected by CheckInterval anyway
		if n > MaxIntervalSecs {
			n = MaxIntervalSecs + 1
		}
		total += n * mult
		if total > MaxIntervalSecs {
			total = MaxIntervalSecs + 1
		}
		s = s[i+1:]
	}
	return total, true
}
