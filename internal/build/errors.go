package build

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCollision    = errors.New("output path collision")
	ErrInvalidInput = errors.New("invalid staged artifact")
)

// CollisionError lists every output path claimed by more than one source.
type CollisionError struct {
	// Outputs maps an output path to the sorted sources routed to it.
	Outputs map[string][]string
}

func (e *CollisionError) Error() string {
	if e == nil {
		return ""
	}
	parts := make([]string, 0, len(e.Outputs))
	for _, out := range sortedKeys(e.Outputs) {
		parts = append(parts, fmt.Sprintf("%s <- %s", out, strings.Join(e.Outputs[out], ", ")))
	}
	return fmt.Sprintf("%s: %s", ErrCollision.Error(), strings.Join(parts, "; "))
}

func (e *CollisionError) Unwrap() error { return ErrCollision }

func invalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
