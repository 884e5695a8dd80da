// Package sandbox evaluates short Go expressions embedded in property values.
//
// Every expression runs in a fresh yaegi interpreter whose only bindings are
// the values of a Scope plus a whitelisted subset of the standard library, so
// one evaluation never observes another.
package sandbox

import (
	"context"
	"fmt"
	"go/token"
	"io"
	"maps"
	"path"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"
)

// Scope is the execution context of an expression.
type Scope struct {
	Selector   string
	Classnames []string
	Props      map[string]string
	Vars       map[string]string
}

// DefaultPackages may be referenced from expressions unless overridden.
var DefaultPackages = []string{"fmt", "math", "strconv", "strings", "unicode"}

// DefaultTimeout bounds a single evaluation.
const DefaultTimeout = 2 * time.Second

// names which cannot be bound as plain variables.
var bound = []string{"selector", "classnames", "props", "vars", "value", "evaluate", "main"}

var predeclared = []string{
	"any", "append", "bool", "byte", "cap", "clear", "close", "complex", "complex64", "complex128",
	"copy", "delete", "error", "false", "float32", "float64", "imag", "int", "int8", "int16", "int32",
	"int64", "iota", "len", "make", "max", "min", "new", "nil", "panic", "print", "println", "real",
	"recover", "rune", "string", "true", "uint", "uint8", "uint16", "uint32", "uint64", "uintptr",
}

// Evaluator runs expressions. It is safe for concurrent use.
type Evaluator struct {
	log      *zap.Logger
	timeout  time.Duration
	packages map[string]bool // import path -> allowed
	exports  interp.Exports
}

// Option configures an Evaluator.
type Option func(*Evaluator)

func WithLogger(log *zap.Logger) Option {
	return func(e *Evaluator) {
		if log != nil {
			e.log = log
		}
	}
}

// WithTimeout sets the per expression deadline, zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(e *Evaluator) {
		e.timeout = d
	}
}

// WithPackages replaces the list of standard packages expressions may use.
// "fmt" is always available.
func WithPackages(pkgs ...string) Option {
	return func(e *Evaluator) {
		e.packages = make(map[string]bool, len(pkgs))
		for _, p := range pkgs {
			e.packages[p] = true
		}
	}
}

// New creates an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		log:     zap.NewNop(),
		timeout: DefaultTimeout,
	}
	WithPackages(DefaultPackages...)(e)
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.Named("sandbox")
	e.packages["fmt"] = true

	e.exports = make(interp.Exports)
	for key, symbols := range stdlib.Symbols {
		// keys look like "strings/strings" - import path and package name
		if e.packages[path.Dir(key)] {
			e.exports[key] = symbols
		}
	}
	return e
}

// Packages returns the allowed import paths.
func (e *Evaluator) Packages() []string {
	return slices.Sorted(maps.Keys(e.packages))
}

// Eval evaluates expr against scope and returns its result formatted with
// fmt.Sprint. Expressions which do not begin with a return statement are
// treated as the returned value.
func (e *Evaluator) Eval(ctx context.Context, expr string, scope Scope) (string, error) {
	if strings.TrimSpace(expr) == "" {
		return "", fmt.Errorf("empty expression")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	i := interp.New(interp.Options{Stdout: io.Discard, Stderr: io.Discard})
	if err := i.Use(e.exports); err != nil {
		return "", fmt.Errorf("failed to load symbols: %w", err)
	}

	src := e.program(expr, scope)
	if _, err := i.EvalWithContext(ctx, src); err != nil {
		e.log.Debug("Expression rejected", zap.String("expr", expr), zap.Error(err))
		return "", fmt.Errorf("evaluation failed: %w", err)
	}
	res, err := call(ctx, i)
	if err != nil {
		e.log.Debug("Expression failed", zap.String("expr", expr), zap.Error(err))
		if ctx.Err() != nil {
			return "", fmt.Errorf("expression timed out: %w", ctx.Err())
		}
		return "", fmt.Errorf("evaluation failed: %w", err)
	}
	return res, nil
}

// call runs the generated entry point inside the interpreter so cancellation
// stops it.
func call(ctx context.Context, i *interp.Interpreter) (res string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("expression panicked: %v", r)
		}
	}()
	v, err := i.EvalWithContext(ctx, "main.evaluate()")
	if err != nil {
		return "", err
	}
	if !v.IsValid() || v.Kind() != reflect.String {
		return "", fmt.Errorf("unexpected evaluation result %v", v)
	}
	return v.String(), nil
}

var referencePattern = regexp.MustCompile(`\b([a-z][a-z0-9]*)\.`)

// program generates the package evaluated for a single expression.
func (e *Evaluator) program(expr string, scope Scope) string {
	var sb strings.Builder
	sb.WriteString("package main\n\n")

	imports := map[string]bool{"fmt": true}
	for _, m := range referencePattern.FindAllStringSubmatch(expr, -1) {
		for pkg := range e.packages {
			if path.Base(pkg) == m[1] {
				imports[pkg] = true
			}
		}
	}
	for _, pkg := range slices.Sorted(maps.Keys(imports)) {
		fmt.Fprintf(&sb, "import %q\n", pkg)
	}

	fmt.Fprintf(&sb, "\nvar selector = %s\n", strconv.Quote(scope.Selector))
	sb.WriteString("var classnames = []string{")
	for i, name := range scope.Classnames {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Quote(name))
	}
	sb.WriteString("}\n")
	writeMap(&sb, "props", scope.Props)
	writeMap(&sb, "vars", scope.Vars)

	for _, name := range slices.Sorted(maps.Keys(scope.Vars)) {
		if e.bindable(name) {
			fmt.Fprintf(&sb, "var %s = %s\n", name, strconv.Quote(scope.Vars[name]))
		}
	}

	body := strings.TrimSpace(expr)
	if !startsWithReturn(body) {
		body = "return " + body
	}
	fmt.Fprintf(&sb, "\nfunc value() interface{} {\n%s\n}\n", body)
	sb.WriteString("\nfunc evaluate() string {\n\treturn fmt.Sprint(value())\n}\n")
	return sb.String()
}

func writeMap(sb *strings.Builder, name string, m map[string]string) {
	fmt.Fprintf(sb, "var %s = map[string]string{", name)
	for i, key := range slices.Sorted(maps.Keys(m)) {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%s: %s", strconv.Quote(key), strconv.Quote(m[key]))
	}
	sb.WriteString("}\n")
}

// bindable reports whether a variable may be declared under its own name.
func (e *Evaluator) bindable(name string) bool {
	if !token.IsIdentifier(name) || slices.Contains(bound, name) || slices.Contains(predeclared, name) {
		return false
	}
	for pkg := range e.packages {
		if path.Base(pkg) == name {
			return false
		}
	}
	return true
}

func startsWithReturn(body string) bool {
	rest, found := strings.CutPrefix(body, "return")
	if !found {
		return false
	}
	return rest == "" || !token.IsIdentifier("x"+rest[:1])
}
