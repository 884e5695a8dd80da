package css

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"colorado/sandbox"
)

var defaultEvaluator = sync.OnceValue(func() *sandbox.Evaluator { return sandbox.New() })

var (
	abbrPattern   = regexp.MustCompile(`^[A-Za-z_-][A-Za-z0-9_-]*$`)
	prefixPattern = regexp.MustCompile(`^[A-Za-z0-9_-]*$`)
)

// Rule pairs a selector with a property map and records every change applied
// to them.
//
// Mutations (Update, Remove*) serialize on a per rule mutex. Render works on a
// snapshot taken under the same mutex and never changes the rule.
type Rule struct {
	mu       sync.Mutex
	selector *Selector
	props    *PropertyMap
	history  History

	log  *zap.Logger
	eval *sandbox.Evaluator
}

// RuleOption configures a Rule.
type RuleOption func(*Rule)

// WithLogger sets logger used for diagnostics and computed value failures.
func WithLogger(log *zap.Logger) RuleOption {
	return func(r *Rule) {
		if log != nil {
			r.log = log.Named("css-rule")
		}
	}
}

// WithEvaluator sets expression evaluator.
func WithEvaluator(ev *sandbox.Evaluator) RuleOption {
	return func(r *Rule) {
		if ev != nil {
			r.eval = ev
		}
	}
}

// NewRule creates a rule. selector must contain the <abbr/> placeholder as a
// class.
func NewRule(selector string, props *PropertyMap, opts ...RuleOption) (*Rule, error) {
	var missing []string
	if selector == "" {
		missing = append(missing, "selector")
	}
	if props == nil {
		missing = append(missing, "props")
	}
	if len(missing) > 0 {
		return nil, &ParameterError{Caller: "rule", Names: missing}
	}

	sel, err := Classify(selector)
	if err != nil {
		return nil, err
	}

	r := &Rule{
		selector: sel,
		props:    props.Clone(),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.eval == nil {
		r.eval = defaultEvaluator()
	}
	r.history.Selectors = append(r.history.Selectors, selector)
	r.history.Props = append(r.history.Props, props.Clone())
	return r, nil
}

// MustRule is like NewRule but panics on error.
func MustRule(selector string, props *PropertyMap, opts ...RuleOption) *Rule {
	r, err := NewRule(selector, props, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Selector returns the classified selector.
func (r *Rule) Selector() *Selector {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selector
}

// Props returns a copy of the property map.
func (r *Rule) Props() *PropertyMap {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.props.Clone()
}

// Changes returns a copy of the change history.
func (r *Rule) Changes() History {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.clone()
}

func (r *Rule) snapshot() (*Selector, *PropertyMap, History) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selector, r.props.Clone(), r.history.clone()
}

// Selectors expands the selector for abbr, see Selector.Expand.
func (r *Rule) Selectors(abbr string) (*Expansion, error) {
	return r.Selector().Expand(abbr)
}

// Classnames returns class selectors synthesized for abbr.
func (r *Rule) Classnames(abbr string) ([]string, error) {
	if err := required("rule.classnames", "abbr", abbr); err != nil {
		return nil, err
	}
	return r.Selector().Classnames(abbr), nil
}

// RenderContext carries per call render parameters.
type RenderContext struct {
	Context context.Context
	// Prefix is put in front of the abbreviation, joined with '-'.
	Prefix string
	// Compact drops indentation and new lines from the output.
	Compact bool
	// Color is available to properties as <color/>.
	Color string
	// Vars are caller supplied placeholder values, they override everything
	// else when placeholders are resolved. Inline expressions see history
	// values first: a key set by RenderWith shadows the one given here.
	Vars Vars
	// Diagnostics, when set, receives all non fatal problems.
	Diagnostics *Diagnostics
}

func normalizePrefix(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, "-") {
		return prefix
	}
	return prefix + "-"
}

func checkAbbr(caller, abbr string) error {
	if len(abbr) < 2 {
		return &ValueError{Caller: caller, Msg: "abbr should be a string of at least 2 characters"}
	}
	if !abbrPattern.MatchString(abbr) {
		return &ValueError{Caller: caller, Msg: fmt.Sprintf("abbr %q is wrongly formatted", abbr)}
	}
	return nil
}

// Render produces a CSS block for abbr. Unresolved placeholders and failing
// inline expressions are left verbatim and reported as warnings.
func (r *Rule) Render(abbr string, rc RenderContext) (string, error) {
	sel, props, hist := r.snapshot()

	if sel.HasPlaceholder() {
		if err := checkAbbr("rule.render", abbr); err != nil {
			return "", err
		}
	}
	if !prefixPattern.MatchString(rc.Prefix) {
		return "", &ValueError{Caller: "rule.render", Msg: fmt.Sprintf("prefix %q is wrongly formatted", rc.Prefix)}
	}
	nabbr := normalizePrefix(rc.Prefix) + abbr

	concrete, classnames := sel.String(), []string(nil)
	if sel.HasPlaceholder() {
		exp, err := sel.Expand(nabbr)
		if err != nil {
			return "", err
		}
		concrete, classnames = exp.String, exp.Classnames
	}

	implicit := Vars{"abbr": abbr}
	if nabbr != "" {
		implicit["var"] = "var(--" + nabbr + ")"
	}
	for i, name := range classnames {
		implicit[fmt.Sprintf("var-%d", i+1)] = "var(--" + strings.TrimPrefix(name, ".") + ")"
	}
	supplied := Vars{}
	if rc.Color != "" {
		supplied["color"] = rc.Color
	}
	historyVars := hist.MergedVars()
	vars := Merge(historyVars, implicit, supplied, rc.Vars)

	diag := NewDiagnostics()
	resolved := NewPropertyMap()
	for _, key := range props.keys {
		v := props.values[key]
		if v.kind == ValueComputed {
			resolved.put(key, v)
			continue
		}
		text, unresolved := Resolve(v.text, vars)
		diag.addUnresolved(key, unresolved...)
		resolved.put(key, retext(v, text))
	}

	ctx := rc.Context
	if ctx == nil {
		ctx = context.Background()
	}
	scope := Scope{Selector: concrete, Classnames: classnames, Vars: Merge(vars, historyVars)}
	evaluated, err := Evaluate(ctx, r.eval, resolved, scope, diag)
	if err != nil {
		r.log.Error("Unable to compute property value", zap.String("rule", sel.String()), zap.Error(err))
		return "", err
	}

	lines := make([]string, 0, evaluated.Len())
	for _, key := range evaluated.keys {
		if rc.Compact {
			lines = append(lines, key+":"+evaluated.values[key].text)
		} else {
			lines = append(lines, "\t"+key+": "+evaluated.values[key].text)
		}
	}

	diag.Log(r.log, concrete)
	rc.Diagnostics.Merge(diag)

	switch {
	case rc.Compact:
		return concrete + " {" + strings.Join(lines, ";") + "}", nil
	case len(lines) == 0:
		return concrete + " {\n}", nil
	}
	return concrete + " {\n" + strings.Join(lines, ";\n") + "\n}", nil
}

// retext returns v with new text. Substituted values may carry expressions of
// their own.
func retext(v Value, text string) Value {
	if v.kind == ValueExpression || text != v.text {
		return Text(text)
	}
	return v
}

// RenderWith returns a new rule with placeholders found in vars substituted
// in its properties. The receiver is not changed. The clone inherits the
// history of the receiver with vars appended to it.
func (r *Rule) RenderWith(vars Vars) *Rule {
	r.mu.Lock()
	defer r.mu.Unlock()

	props := NewPropertyMap()
	for _, key := range r.props.keys {
		v := r.props.values[key]
		if v.kind == ValueComputed {
			props.put(key, v)
			continue
		}
		text, _ := Resolve(v.text, vars)
		props.put(key, retext(v, text))
	}

	clone := &Rule{
		selector: r.selector,
		props:    props,
		history:  r.history.clone(),
		log:      r.log,
		eval:     r.eval,
	}
	applied := maps.Clone(vars)
	if applied == nil {
		applied = Vars{}
	}
	clone.history.Vars = append(clone.history.Vars, applied)
	return clone
}

// Remove drops properties. filter is either a []string of exact property
// names or a func(string, Value) bool selecting properties to drop.
func (r *Rule) Remove(filter any) (*Rule, error) {
	switch f := filter.(type) {
	case []string:
		return r.RemoveKeys(f...), nil
	case func(string, Value) bool:
		return r.RemoveFunc(f), nil
	default:
		return nil, &ValueError{Caller: "rule.remove",
			Msg: fmt.Sprintf("expects a list of property names or a func(string, Value) bool, got %T", filter)}
	}
}

// RemoveKeys drops properties with exactly matching names.
func (r *Rule) RemoveKeys(keys ...string) *Rule {
	return r.RemoveFunc(func(key string, _ Value) bool {
		for _, k := range keys {
			if k == key {
				return true
			}
		}
		return false
	})
}

// RemoveFunc drops properties for which drop returns true.
func (r *Rule) RemoveFunc(drop func(key string, v Value) bool) *Rule {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.props = r.props.Filter(func(key string, v Value) bool { return !drop(key, v) })
	r.history.Props = append(r.history.Props, r.props.Clone())
	return r
}

// Updater replaces parts of a rule. Each call is applied immediately and
// recorded in history; after the first failure remaining calls are skipped.
type Updater struct {
	rule *Rule
	err  error
}

// Update starts a chain of in place modifications.
func (r *Rule) Update() *Updater {
	return &Updater{rule: r}
}

// Selector replaces the rule selector.
func (u *Updater) Selector(raw string) *Updater {
	if u.err != nil {
		return u
	}
	if err := required("rule.update.selector", "value", raw); err != nil {
		u.err = err
		return u
	}
	sel, err := Classify(raw)
	if err != nil {
		u.err = err
		return u
	}

	r := u.rule
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selector = sel
	r.history.Selectors = append(r.history.Selectors, raw)
	return u
}

// Props merges p into the rule properties or, with replace, substitutes them.
func (u *Updater) Props(p *PropertyMap, replace bool) *Updater {
	if u.err != nil {
		return u
	}
	if p == nil {
		u.err = &ParameterError{Caller: "rule.update.props", Names: []string{"value"}}
		return u
	}

	r := u.rule
	r.mu.Lock()
	defer r.mu.Unlock()
	if replace {
		r.props = p.Clone()
	} else {
		r.props.Merge(p)
	}
	r.history.Props = append(r.history.Props, r.props.Clone())
	return u
}

// Done returns the updated rule or the first error met.
func (u *Updater) Done() (*Rule, error) {
	if u.err != nil {
		return nil, u.err
	}
	return u.rule, nil
}
