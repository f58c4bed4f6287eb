// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package sec

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// # Lifetime Parsing

// ParseLifetime converts a token lifetime expression into a [time.Duration].
//
// Accepted forms:
//
//	"900"  -> 900 seconds
//	"15m"  -> 15 minutes
//	"7d"   -> 7 days
//	"2w"   -> 14 days
//	"1h30m" and any other [time.ParseDuration] input
//
// The result must be strictly positive.
func ParseLifetime(raw string) (time.Duration, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, fmt.Errorf("sec: empty lifetime")
	}

	var (
		lifetime time.Duration
		err      error
	)

	switch {
	case isDigits(value):
		lifetime, err = scaled(value, time.Second)
	case strings.HasSuffix(value, "d"):
		lifetime, err = scaled(strings.TrimSuffix(value, "d"), 24*time.Hour)
	case strings.HasSuffix(value, "w"):
		lifetime, err = scaled(strings.TrimSuffix(value, "w"), 7*24*time.Hour)
	default:
		lifetime, err = time.ParseDuration(value)
	}

	if err != nil {
		return 0, fmt.Errorf("sec: invalid lifetime %q: %w", raw, err)
	}
	if lifetime <= 0 {
		return 0, fmt.Errorf("sec: lifetime %q must be positive", raw)
	}

	return lifetime, nil
}

func scaled(count string, unit time.Duration) (time.Duration, error) {
	if !isDigits(count) {
		return 0, fmt.Errorf("expected a whole number before the unit")
	}
	n, err := strconv.ParseInt(count, 10, 64)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt64/int64(unit) {
		return 0, fmt.Errorf("lifetime too large")
	}
	return time.Duration(n) * unit, nil
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
