package css

import (
	"fmt"
	"strings"
)

// ParameterError is returned when a required argument is missing.
type ParameterError struct {
	Caller string
	Names  []string
}

func (e *ParameterError) Error() string {
	if len(e.Names) > 1 {
		return fmt.Sprintf("[%s] (%s and %s) are required parameters",
			e.Caller, strings.Join(e.Names[:len(e.Names)-1], ", "), e.Names[len(e.Names)-1])
	}
	return fmt.Sprintf("[%s] %q is a required parameter", e.Caller, strings.Join(e.Names, ""))
}

// ValueError is returned when a supplied value fails a semantic precondition.
type ValueError struct {
	Caller string
	Msg    string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Caller, e.Msg)
}

// SelectorError is returned when a selector cannot be fully classified or uses
// an unsupported construct.
type SelectorError struct {
	Selector string
	Msg      string
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("selector %q: %s", e.Selector, e.Msg)
}

// ComputeError wraps a failure of a caller supplied ComputeFunc. Unlike
// expression failures it always aborts rendering.
type ComputeError struct {
	Selector string
	Property string
	Err      error
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("rule(%s): property %q: computed value failed: %v", e.Selector, e.Property, e.Err)
}

func (e *ComputeError) Unwrap() error {
	return e.Err
}

// required checks that named string arguments are not empty.
func required(caller string, pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) > 0 {
		return &ParameterError{Caller: caller, Names: missing}
	}
	return nil
}
