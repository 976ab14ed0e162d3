// config/duration.go
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var errNonPositive = errors.New("duration must be >0")

// parseDurationFlexible accepts "90s"/"2m" strings, plain seconds (as a
// number or a numeric string) or a time.Duration. Empty and unknown values
// yield def; invalid values yield def and an error.
func parseDurationFlexible(raw interface{}, def time.Duration) (time.Duration, error) {
	var d time.Duration
	switch t := raw.(type) {
	case time.Duration:
		d = t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return def, nil
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			n, nerr := strconv.ParseFloat(s, 64)
			if nerr != nil {
				return def, fmt.Errorf("cannot parse duration %q", s)
			}
			parsed = seconds(n)
		}
		d = parsed
	case int:
		d = seconds(float64(t))
	case int32:
		d = seconds(float64(t))
	case int64:
		d = seconds(float64(t))
	case float64:
		d = seconds(t)
	default:
		return def, nil
	}
	if d <= 0 {
		return def, errNonPositive
	}
	return d, nil
}

func seconds(n float64) time.Duration {
	return time.Duration(n * float64(time.Second))
}
