package route

import (
	"errors"
	"fmt"
)

var ErrInvalidRules = errors.New("invalid naming rules")

// RuleError reports a naming rule that cannot be used to build a Router.
type RuleError struct {
	Kind error
	Msg  string
}

func (e *RuleError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *RuleError) Unwrap() error { return e.Kind }

func invalidRulef(format string, args ...any) error {
	return &RuleError{Kind: ErrInvalidRules, Msg: fmt.Sprintf(format, args...)}
}
