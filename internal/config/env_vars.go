package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	envVar         = "ENV"
	logLevelEnvVar = "LOG_LEVEL"
)

type EnvVars struct {
	port     string
	appName  string
	env      string
	logLevel string
}

var _ EnvConfig = EnvVars{}

func loadEnvVars(r *reader) EnvVars {
	port := r.optional(portEnvVar, "8000")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return EnvVars{
		port:     port,
		appName:  r.optional(appNameVar, "Account Service"),
		env:      strings.ToUpper(r.optional(envVar, "DEV")),
		logLevel: strings.ToLower(r.optional(logLevelEnvVar, "info")),
	}
}

func (e EnvVars) GetPort() string {
	return e.port
}

func (e EnvVars) GetAppName() string {
	return e.appName
}

func (e EnvVars) GetEnv() string {
	return e.env
}

func (e EnvVars) GetLogLevel() string {
	return e.logLevel
}

// reader collects every missing or malformed setting so startup reports them together.
type reader struct {
	lookup LookupFunc
	errs   []error
}

func (r *reader) get(key string) string {
	v, ok := r.lookup(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

func (r *reader) required(key string) string {
	v := r.get(key)
	if v == "" {
		r.errs = append(r.errs, fmt.Errorf("%s is required", key))
	}
	return v
}

func (r *reader) optional(key, defaultValue string) string {
	if v := r.get(key); v != "" {
		return v
	}
	return defaultValue
}

func (r *reader) requiredDuration(key string) time.Duration {
	v := r.required(key)
	if v == "" {
		return 0
	}
	return r.parseDuration(key, v)
}

func (r *reader) optionalDuration(key string, defaultValue time.Duration) time.Duration {
	v := r.get(key)
	if v == "" {
		return defaultValue
	}
	return r.parseDuration(key, v)
}

func (r *reader) optionalInt(key string, defaultValue int) int {
	v := r.get(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
}

func (r *reader) optionalBool(key string, defaultValue bool) bool {
	v := r.get(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s must be a boolean: %w", key, err))
		return defaultValue
	}
	return b
}

// parseDuration accepts Go durations ("15m") and the shorthand "10d" for days.
func (r *reader) parseDuration(key, v string) time.Duration {
	if strings.HasSuffix(v, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(v, "d"))
		if err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return 0
	}
	return d
}

func (r *reader) err() error {
	return errors.Join(r.errs...)
}
