package css

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"colorado/sandbox"
)

// exprMatch is a single inline expression found in a property value.
type exprMatch struct {
	literal string // including delimiters
	expr    string
	span    Span
}

var closing = map[byte]byte{'{': '}', '[': ']', '(': ')'}

// scanExpressions finds ${...}, $[...] and $(...) occurrences. Nested
// brackets of the same kind and brackets inside quoted strings do not close
// an expression. Unterminated expressions are ignored.
func scanExpressions(s string) []exprMatch {
	var out []exprMatch
	for i := 0; i+1 < len(s); i++ {
		if s[i] != '$' {
			continue
		}
		open := s[i+1]
		end, ok := closing[open]
		if !ok {
			continue
		}
		if j := matchBracket(s, i+2, open, end); j >= 0 {
			out = append(out, exprMatch{
				literal: s[i : j+1],
				expr:    s[i+2 : j],
				span:    Span{i, j + 1},
			})
			i = j
		}
	}
	return out
}

// matchBracket returns position of the bracket closing the one just before
// start, or -1.
func matchBracket(s string, start int, open, end byte) int {
	depth := 1
	var quote byte
	for j := start; j < len(s); j++ {
		c := s[j]
		if quote != 0 {
			switch {
			case c == '\\' && quote != '`':
				j++
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case open:
			depth++
		case end:
			if depth--; depth == 0 {
				return j
			}
		}
	}
	return -1
}

// HasExpressions reports whether s embeds at least one inline expression.
func HasExpressions(s string) bool {
	return len(scanExpressions(s)) > 0
}

// Evaluate produces a copy of props where computed values are replaced by
// their results and inline expressions by their evaluated text. scope.Props
// is set to the text of props before evaluation.
//
// Failing inline expressions are left in place and recorded in diag. Failing
// computed values abort evaluation with *ComputeError.
func Evaluate(ctx context.Context, ev *sandbox.Evaluator, props *PropertyMap, scope Scope, diag *Diagnostics) (*PropertyMap, error) {
	if ev == nil || props == nil {
		return nil, &ParameterError{Caller: "evaluate", Names: []string{"evaluator", "props"}}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	scope.Props = props.Strings()

	out := NewPropertyMap()
	for _, key := range props.keys {
		v := props.values[key]
		switch v.kind {
		case ValueComputed:
			res, err := callCompute(v.fn, scope)
			if err != nil {
				return nil, &ComputeError{Selector: scope.Selector, Property: key, Err: err}
			}
			out.put(key, Literal(res))
		case ValueExpression:
			out.put(key, Literal(evaluateText(ctx, ev, key, v.text, scope, diag)))
		default:
			out.put(key, v)
		}
	}
	return out, nil
}

// evaluateText evaluates every expression of text against the same scope.
func evaluateText(ctx context.Context, ev *sandbox.Evaluator, key, text string, scope Scope, diag *Diagnostics) string {
	matches := scanExpressions(text)
	if len(matches) == 0 {
		return text
	}

	var (
		sb   strings.Builder
		prev int
	)
	for _, m := range matches {
		sb.WriteString(text[prev:m.span.Start])
		res, err := ev.Eval(ctx, m.expr, isolate(scope))
		if err != nil {
			sb.WriteString(m.literal)
			diag.addError(key, EvalFailure{Expr: m.expr, Literal: m.literal, Span: m.span, Err: err})
		} else {
			sb.WriteString(res)
		}
		prev = m.span.End
	}
	sb.WriteString(text[prev:])
	return sb.String()
}

// callCompute shields the caller from panics in fn.
func callCompute(fn ComputeFunc, scope Scope) (res string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(isolate(scope))
}

// isolate copies scope so callees cannot leak changes into sibling
// evaluations.
func isolate(scope Scope) Scope {
	return Scope{
		Selector:   scope.Selector,
		Classnames: slices.Clone(scope.Classnames),
		Props:      maps.Clone(scope.Props),
		Vars:       maps.Clone(scope.Vars),
	}
}
