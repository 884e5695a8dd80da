package css

import (
	"fmt"
	"maps"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// EvalFailure records an inline expression which could not be evaluated.
type EvalFailure struct {
	Expr    string
	Literal string
	Span    Span
	Err     error
}

// Diagnostics collects non fatal problems found while rendering. Keys of both
// maps are property names. A nil *Diagnostics silently drops everything.
type Diagnostics struct {
	Unresolved map[string][]PlaceholderRef
	Errors     map[string][]EvalFailure
}

func NewDiagnostics() *Diagnostics {
	return &Diagnostics{
		Unresolved: make(map[string][]PlaceholderRef),
		Errors:     make(map[string][]EvalFailure),
	}
}

func (d *Diagnostics) addUnresolved(prop string, refs ...PlaceholderRef) {
	if d == nil || len(refs) == 0 {
		return
	}
	if d.Unresolved == nil {
		d.Unresolved = make(map[string][]PlaceholderRef)
	}
	d.Unresolved[prop] = append(d.Unresolved[prop], refs...)
}

func (d *Diagnostics) addError(prop string, f EvalFailure) {
	if d == nil {
		return
	}
	if d.Errors == nil {
		d.Errors = make(map[string][]EvalFailure)
	}
	d.Errors[prop] = append(d.Errors[prop], f)
}

// Len returns total number of recorded entries.
func (d *Diagnostics) Len() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, refs := range d.Unresolved {
		n += len(refs)
	}
	for _, errs := range d.Errors {
		n += len(errs)
	}
	return n
}

func (d *Diagnostics) Empty() bool {
	return d.Len() == 0
}

// Merge appends every entry of other.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if d == nil || other == nil {
		return
	}
	for prop, refs := range other.Unresolved {
		d.addUnresolved(prop, refs...)
	}
	for prop, errs := range other.Errors {
		for _, f := range errs {
			d.addError(prop, f)
		}
	}
}

// Err folds all entries into a single error, nil when there are none.
func (d *Diagnostics) Err() error {
	if d == nil {
		return nil
	}
	var err error
	for _, prop := range slices.Sorted(maps.Keys(d.Unresolved)) {
		for _, ref := range d.Unresolved[prop] {
			err = multierr.Append(err, fmt.Errorf("property %q: unresolved template variable %s at [%d:%d]",
				prop, ref.Literal, ref.Span.Start, ref.Span.End))
		}
	}
	for _, prop := range slices.Sorted(maps.Keys(d.Errors)) {
		for _, f := range d.Errors[prop] {
			err = multierr.Append(err, fmt.Errorf("property %q: expression %s at [%d:%d]: %w",
				prop, f.Literal, f.Span.Start, f.Span.End, f.Err))
		}
	}
	return err
}

// Log reports every entry as a warning.
func (d *Diagnostics) Log(log *zap.Logger, selector string) {
	if d == nil || log == nil {
		return
	}
	for _, prop := range slices.Sorted(maps.Keys(d.Unresolved)) {
		for _, ref := range d.Unresolved[prop] {
			log.Warn("Unresolved template variable",
				zap.String("rule", selector),
				zap.String("property", prop),
				zap.String("literal", ref.Literal),
				zap.Int("start", ref.Span.Start),
				zap.Int("end", ref.Span.End))
		}
	}
	for _, prop := range slices.Sorted(maps.Keys(d.Errors)) {
		for _, f := range d.Errors[prop] {
			log.Warn("Unable to evaluate expression",
				zap.String("rule", selector),
				zap.String("property", prop),
				zap.String("literal", f.Literal),
				zap.Int("start", f.Span.Start),
				zap.Int("end", f.Span.End),
				zap.Error(f.Err))
		}
	}
}
