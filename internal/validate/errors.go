package validate

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRule is returned for rules with a missing id, an out of range
	// weight, or an unknown type or severity.
	ErrInvalidRule = errors.New("validate: invalid rule")
	// ErrDuplicateRule is returned when AddRule sees an id twice.
	ErrDuplicateRule = errors.New("validate: duplicate rule")
	// ErrUnknownRule is returned for operations on an unregistered id.
	ErrUnknownRule = errors.New("validate: unknown rule")
	// ErrNoEvaluator marks rules that have no registered evaluator.
	ErrNoEvaluator = errors.New("validate: no evaluator")
)

// InputError reports a mapping result that cannot be validated. No result
// is produced when it is returned.
type InputError struct {
	Err error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("validate: invalid input: %v", e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// ConfigError lists rules that are registered without an evaluator.
type ConfigError struct {
	RuleIDs []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("validate: rules without evaluators: %s", strings.Join(e.RuleIDs, ", "))
}

func (e *ConfigError) Unwrap() error { return ErrNoEvaluator }
