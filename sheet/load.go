package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"colorado/css"
	"colorado/sandbox"
)

type ruleDef struct {
	Selector string            `yaml:"selector"`
	Props    yaml.Node         `yaml:"props"`
	CSS      string            `yaml:"css"`
	With     map[string]string `yaml:"with"`
	Remove   []string          `yaml:"remove"`
}

type colorDef struct {
	Name  string    `yaml:"name"`
	Abbr  string    `yaml:"abbr"`
	Value string    `yaml:"value"`
	Rules []ruleDef `yaml:"rules"`
}

type sheetDef struct {
	Name   string     `yaml:"name"`
	Prefix string     `yaml:"prefix"`
	Rules  []ruleDef  `yaml:"rules"`
	Colors []colorDef `yaml:"colors"`
}

type loader struct {
	log    *zap.Logger
	eval   *sandbox.Evaluator
	parser *css.Parser
	source string
}

// Option configures loading of sheet definitions.
type Option func(*loader)

func WithLogger(log *zap.Logger) Option {
	return func(l *loader) {
		if log != nil {
			l.log = log
		}
	}
}

// WithEvaluator sets evaluator shared by all loaded rules.
func WithEvaluator(ev *sandbox.Evaluator) Option {
	return func(l *loader) {
		l.eval = ev
	}
}

// LoadFile reads sheet definition from file.
func LoadFile(fname string, opts ...Option) (*Sheet, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet definition: %w", err)
	}
	return Load(data, append([]Option{WithSource(fname)}, opts...)...)
}

// WithSource names definition origin in logs and errors.
func WithSource(name string) Option {
	return func(l *loader) {
		l.source = name
	}
}

// Load decodes YAML sheet definition. Properties keep the order they have in
// the document, nested mappings are flattened into dash-joined names.
func Load(data []byte, opts ...Option) (*Sheet, error) {
	l := &loader{log: zap.NewNop(), source: "<data>"}
	for _, opt := range opts {
		opt(l)
	}
	l.parser = css.NewParser(l.log)

	var def sheetDef
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unable to decode sheet definition %s: %w", l.source, err)
	}

	rules, err := l.rules(def.Rules)
	if err != nil {
		return nil, err
	}
	colors := make([]Color, 0, len(def.Colors))
	for _, cd := range def.Colors {
		crules, err := l.rules(cd.Rules)
		if err != nil {
			return nil, fmt.Errorf("color %q: %w", cd.Name, err)
		}
		colors = append(colors, Color{Name: cd.Name, Abbr: cd.Abbr, Value: cd.Value, Rules: crules})
	}

	s, err := New(def.Name, rules, colors, l.log)
	if err != nil {
		return nil, err
	}
	s.Prefix = def.Prefix
	l.log.Debug("Sheet loaded", zap.String("source", l.source), zap.String("sheet", s.Name),
		zap.Int("rules", len(rules)), zap.Int("colors", len(colors)))
	return s, nil
}

func (l *loader) rules(defs []ruleDef) ([]*css.Rule, error) {
	out := make([]*css.Rule, 0, len(defs))
	for i, d := range defs {
		r, err := l.rule(d)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%q): %w", i, d.Selector, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (l *loader) rule(d ruleDef) (*css.Rule, error) {
	props := css.NewPropertyMap()
	if d.CSS != "" {
		parsed, err := l.parser.ParseDeclarations(d.CSS, l.source)
		if err != nil {
			return nil, err
		}
		props.Merge(parsed)
	}
	if !d.Props.IsZero() {
		if err := flatten(props, "", &d.Props); err != nil {
			return nil, err
		}
	}

	r, err := css.NewRule(d.Selector, props, css.WithLogger(l.log), css.WithEvaluator(l.eval))
	if err != nil {
		return nil, err
	}
	if d.With != nil {
		r = r.RenderWith(d.With)
	}
	if len(d.Remove) > 0 {
		r = r.RemoveKeys(d.Remove...)
	}
	return r, nil
}

// flatten walks mapping node in document order.
func flatten(props *css.PropertyMap, prefix string, node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: properties should be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		name := key.Value
		if prefix != "" {
			name = prefix + "-" + name
		}
		switch val.Kind {
		case yaml.MappingNode:
			if err := flatten(props, name, val); err != nil {
				return err
			}
		case yaml.ScalarNode:
			if err := props.Set(name, val.Value); err != nil {
				return err
			}
		default:
			return fmt.Errorf("line %d: property %q should be a scalar or a mapping", val.Line, name)
		}
	}
	return nil
}
