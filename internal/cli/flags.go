package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/rileyhilliard/fleetwatch/internal/timefmt"
)

// ParseSince parses a lookback like 30m, 6h or 7d. Empty returns fallback.
func ParseSince(flag string, fallback time.Duration) (time.Duration, error) {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return fallback, nil
	}

	d, err := parseDurationWithDays(flag)
	if err != nil || d <= 0 {
		if err == nil {
			err = fmt.Errorf("duration must be positive")
		}
		return 0, errors.WrapWithCode(err, errors.ErrValidation,
			fmt.Sprintf("'%s' doesn't look like a valid duration", flag),
			"Try something like 30m, 6h, or 7d.")
	}
	return d, nil
}

// ParseTimeBound accepts either an absolute timestamp or a lookback relative
// to now, so --until 2024-05-01 and --until 1h both work. Empty returns the
// zero time.
func ParseTimeBound(flag string, now time.Time) (time.Time, error) {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return time.Time{}, nil
	}
	if d, err := parseDurationWithDays(flag); err == nil && d > 0 {
		return now.Add(-d), nil
	}
	t, err := timefmt.Parse(flag)
	if err != nil {
		return time.Time{}, errors.WrapWithCode(err, errors.ErrValidation,
			fmt.Sprintf("'%s' isn't a time or duration", flag),
			"Use a timestamp like 2024-05-01T10:00:00Z or a lookback like 2h.")
	}
	return t, nil
}

// parseDurationWithDays parses a duration string that may include 'd' for days.
func parseDurationWithDays(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// splitList flattens repeated and comma-separated flag values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
