// Package sheet composes rules and colors into a complete stylesheet.
package sheet

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/maruel/natural"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"colorado/css"
)

// Color is a named value rendered through every sheet rule plus its own.
type Color struct {
	Name  string
	Abbr  string
	Value string
	Rules []*css.Rule
}

// Sheet is a set of colors sharing common rules.
type Sheet struct {
	ID     uuid.UUID
	Name   string
	Prefix string
	Rules  []*css.Rule
	Colors []Color

	log *zap.Logger
}

// New validates its arguments and creates a sheet. Color abbreviation
// defaults to the slug of its name.
func New(name string, rules []*css.Rule, colors []Color, log *zap.Logger) (*Sheet, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if name == "" || len(colors) == 0 {
		var missing []string
		if name == "" {
			missing = append(missing, "name")
		}
		if len(colors) == 0 {
			missing = append(missing, "colors")
		}
		return nil, &css.ParameterError{Caller: "sheet", Names: missing}
	}
	if err := checkRules("sheet", rules); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("unable to generate sheet id: %w", err)
	}
	s := &Sheet{ID: id, Name: name, log: log.Named("sheet")}
	s.Rules = slices.Clone(rules)

	seen := make(map[string]string)
	for i, c := range colors {
		if c.Name == "" || c.Value == "" {
			return nil, &css.ValueError{Caller: "sheet", Msg: fmt.Sprintf("color at position %d should have non-empty name and value", i)}
		}
		if c.Abbr == "" {
			c.Abbr = slug.Make(c.Name)
		}
		if other, ok := seen[c.Abbr]; ok {
			return nil, &css.ValueError{Caller: "sheet", Msg: fmt.Sprintf("colors %q and %q share abbreviation %q", other, c.Name, c.Abbr)}
		}
		seen[c.Abbr] = c.Name
		if err := checkRules("color "+c.Name, c.Rules); err != nil {
			return nil, err
		}
		s.Colors = append(s.Colors, c)
	}
	return s, nil
}

// checkRules makes sure a list holds nothing but usable rules.
func checkRules(caller string, rules []*css.Rule) error {
	for i, r := range rules {
		if r == nil {
			return &css.ParameterError{Caller: caller, Names: []string{fmt.Sprintf("rules[%d]", i)}}
		}
	}
	return nil
}

// RenderOptions control stylesheet rendering.
type RenderOptions struct {
	// Prefix overrides sheet prefix when not empty.
	Prefix  string
	Compact bool
	// Strict turns any diagnostics into an error.
	Strict bool
}

// Output is a rendered stylesheet.
type Output struct {
	// Classes holds unique class selectors in order of appearance.
	Classes []string
	// Styles holds unique rendered rules in order of appearance.
	Styles []string
	// Variables maps custom property names (without leading dashes) to color
	// values.
	Variables map[string]string

	compact bool
}

// Vars returns variable names in natural order.
func (o *Output) Vars() []string {
	keys := slices.Collect(maps.Keys(o.Variables))
	sort.Sort(natural.StringSlice(keys))
	return keys
}

// Root renders variables as custom properties of :root.
func (o *Output) Root() string {
	var sb strings.Builder
	sb.WriteString(":root {")
	for i, name := range o.Vars() {
		if o.compact {
			if i > 0 {
				sb.WriteString(";")
			}
			fmt.Fprintf(&sb, "--%s:%s", name, o.Variables[name])
		} else {
			fmt.Fprintf(&sb, "\n\t--%s: %s;", name, o.Variables[name])
		}
	}
	if !o.compact {
		sb.WriteString("\n")
	}
	sb.WriteString("}")
	return sb.String()
}

// Style joins all rendered rules.
func (o *Output) Style() string {
	return strings.Join(o.Styles, "\n")
}

// WriteTo writes the complete stylesheet.
func (o *Output) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, o.Root()+"\n"+o.Style()+"\n")
	return int64(n), err
}

// Render produces styles for every color: sheet rules first, then color rules.
// Rendering continues past failing rules and all failures are returned
// together.
func (s *Sheet) Render(ctx context.Context, opts RenderOptions) (*Output, error) {
	prefix := s.Prefix
	if opts.Prefix != "" {
		prefix = opts.Prefix
	}
	out := &Output{Variables: make(map[string]string), compact: opts.Compact}

	var errs error
	for _, c := range s.Colors {
		nabbr := c.Abbr
		if prefix != "" {
			nabbr = strings.TrimSuffix(prefix, "-") + "-" + c.Abbr
		}
		out.Variables[nabbr] = c.Value

		for _, r := range slices.Concat(s.Rules, c.Rules) {
			diag := css.NewDiagnostics()
			style, err := r.Render(c.Abbr, css.RenderContext{
				Context:     ctx,
				Prefix:      prefix,
				Compact:     opts.Compact,
				Color:       c.Value,
				Diagnostics: diag,
			})
			if err == nil && opts.Strict {
				err = diag.Err()
			}
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("color %q, rule %q: %w", c.Name, r.Selector(), err))
				continue
			}
			classes, _ := r.Classnames(nabbr)
			out.Classes = appendUnique(out.Classes, classes...)
			out.Styles = appendUnique(out.Styles, style)
		}
	}
	if errs != nil {
		return nil, errs
	}

	s.log.Debug("Sheet rendered",
		zap.String("sheet", s.Name),
		zap.Stringer("id", s.ID),
		zap.Int("classes", len(out.Classes)),
		zap.Int("styles", len(out.Styles)),
		zap.Int("variables", len(out.Variables)))
	return out, nil
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		if !slices.Contains(list, item) {
			list = append(list, item)
		}
	}
	return list
}
