package core

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// EmptyMarker is the placeholder exports use for "no value".
const EmptyMarker = "-"

var (
	hoursRe   = regexp.MustCompile(`(\d+)h`)
	minutesRe = regexp.MustCompile(`(\d+)m`)
	secondsRe = regexp.MustCompile(`(\d+)s`)

	strictDurationRe = regexp.MustCompile(`^(\d+h)?\s*(\d+m)?\s*(\d+s)?$`)
)

// ParseDuration converts text like "1h 15m 30s" to seconds. Each unit is
// searched independently, so order and spacing do not matter and missing
// units count as zero. "-", unrecognised text and totals that do not fit
// in an int64 yield 0.
func ParseDuration(text string) int64 {
	n, _ := durationSeconds(text)
	return n
}

// ParseDurationWith applies policy to the duration text. Under Strict the
// value must be "-" or a sequence of h/m/s components in that order, and
// the total must fit in an int64.
func ParseDurationWith(text string, policy ParsePolicy) (int64, error) {
	if policy == Strict {
		t := strings.TrimSpace(text)
		if t != EmptyMarker && (t == "" || !strictDurationRe.MatchString(t)) {
			return 0, fmt.Errorf("%w: duration %q", ErrMalformedField, text)
		}
	}
	n, ok := durationSeconds(text)
	if !ok && policy == Strict {
		return 0, fmt.Errorf("%w: duration %q out of range", ErrMalformedField, text)
	}
	return n, nil
}

// durationSeconds sums the h/m/s components of text. ok is false when a
// component or the total overflows; n is 0 then.
func durationSeconds(text string) (n int64, ok bool) {
	if text == EmptyMarker {
		return 0, true
	}
	units := []struct {
		re    *regexp.Regexp
		scale int64
	}{
		{hoursRe, 3600},
		{minutesRe, 60},
		{secondsRe, 1},
	}
	for _, u := range units {
		v, ok := unitValue(u.re, text)
		if !ok || v > (math.MaxInt64-n)/u.scale {
			return 0, false
		}
		n += v * u.scale
	}
	return n, true
}

func unitValue(re *regexp.Regexp, text string) (int64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, true
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatDuration renders seconds as "1h 2m 3s", "2m 3s" or "3s".
// Zero renders as "-".
func FormatDuration(seconds int64) string {
	if seconds == 0 {
		return EmptyMarker
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
