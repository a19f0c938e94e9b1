// Package config provides environment helpers for go-facebox commands.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is prepended to every facebox environment variable.
const EnvPrefix = "FACEBOX_"

// Key returns the full environment variable name for a facebox setting.
func Key(name string) string {
	return EnvPrefix + strings.ToUpper(name)
}

// String returns the FACEBOX_<name> env var, or def if unset or empty.
func String(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(Key(name))); v != "" {
		return v
	}
	return def
}

// Int returns FACEBOX_<name> parsed as an int.
// Falls back to def if unset or not a number.
func Int(name string, def int) int {
	v := os.Getenv(Key(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// Float returns FACEBOX_<name> parsed as a float64.
func Float(name string, def float64) float64 {
	v := os.Getenv(Key(name))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

// Bool returns FACEBOX_<name> parsed with strconv.ParseBool.
func Bool(name string, def bool) bool {
	v := os.Getenv(Key(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// Duration returns FACEBOX_<name> parsed with time.ParseDuration.
func Duration(name string, def time.Duration) time.Duration {
	v := os.Getenv(Key(name))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return d
}

// LogLevel returns LOG_LEVEL, or def when unset.
func LogLevel(def string) string {
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return def
}
