package buildconfig

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidConfig = errors.New("invalid build config")

// ConfigError collects every validation problem found in a Config.
type ConfigError struct {
	Kind     error
	Problems []string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Problems) == 0 {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), strings.Join(e.Problems, "; "))
}

func (e *ConfigError) Unwrap() error { return e.Kind }
