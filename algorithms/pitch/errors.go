package pitch

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is the sentinel every configuration failure unwraps to
var ErrInvalidConfig = errors.New("pitch: invalid configuration")

// ConfigError describes a rejected construction parameter. A detector is
// never returned together with a ConfigError.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("pitch: invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

// Unwrap lets errors.Is(err, ErrInvalidConfig) match
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

func configError(field string, value any, reason string) error {
	return &ConfigError{Field: field, Value: value, Reason: reason}
}
