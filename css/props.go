package css

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"colorado/sandbox"
)

// Scope is what computed values and inline expressions can see.
type Scope = sandbox.Scope

// ComputeFunc produces a property value at render time.
type ComputeFunc func(Scope) (string, error)

// ValueKind tells how a property value is produced.
type ValueKind int

const (
	ValueLiteral    ValueKind = iota // used verbatim after placeholder substitution
	ValueExpression                  // contains inline ${...}, $[...] or $(...) expressions
	ValueComputed                    // produced by a ComputeFunc
)

func (k ValueKind) String() string {
	switch k {
	case ValueLiteral:
		return "literal"
	case ValueExpression:
		return "expression"
	case ValueComputed:
		return "computed"
	default:
		return "ValueKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single property value.
type Value struct {
	kind ValueKind
	text string
	fn   ComputeFunc
}

// Literal returns a value which is never evaluated.
func Literal(s string) Value {
	return Value{kind: ValueLiteral, text: s}
}

// Expression returns a value whose inline expressions are evaluated.
func Expression(s string) Value {
	return Value{kind: ValueExpression, text: s}
}

// Computed returns a value produced by fn at render time.
func Computed(fn ComputeFunc) Value {
	return Value{kind: ValueComputed, fn: fn}
}

// Text picks Expression or Literal depending on whether s embeds expressions.
func Text(s string) Value {
	if HasExpressions(s) {
		return Expression(s)
	}
	return Literal(s)
}

func (v Value) Kind() ValueKind {
	return v.kind
}

// Func returns the producing function of a computed value.
func (v Value) Func() ComputeFunc {
	return v.fn
}

// String returns the value text. Computed values have none.
func (v Value) String() string {
	if v.kind == ValueComputed {
		return "<computed>"
	}
	return v.text
}

// reserved keys would shadow scope bindings.
var reserved = []string{"selector", "classnames"}

// PropertyMap is an ordered mapping of CSS property names to values.
type PropertyMap struct {
	keys   []string
	values map[string]Value
}

func NewPropertyMap() *PropertyMap {
	return &PropertyMap{values: make(map[string]Value)}
}

// Props builds a PropertyMap from alternating key, value arguments preserving
// argument order.
func Props(pairs ...any) (*PropertyMap, error) {
	if len(pairs)%2 != 0 {
		return nil, &ValueError{Caller: "props", Msg: "expects an even number of key, value arguments"}
	}
	p := NewPropertyMap()
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, &ValueError{Caller: "props", Msg: fmt.Sprintf("key at position %d is not a string", i)}
		}
		if err := p.Set(key, pairs[i+1]); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// MustProps is like Props but panics on error.
func MustProps(pairs ...any) *PropertyMap {
	p, err := Props(pairs...)
	if err != nil {
		panic(err)
	}
	return p
}

// PropsFromMap builds a PropertyMap from m. Since Go maps are unordered keys
// are taken in sorted order, nested maps included.
func PropsFromMap(m map[string]any) (*PropertyMap, error) {
	if m == nil {
		return nil, &ParameterError{Caller: "props", Names: []string{"props"}}
	}
	p := NewPropertyMap()
	for _, key := range slices.Sorted(maps.Keys(m)) {
		if err := p.Set(key, m[key]); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Set stores value under key. Nested maps are flattened into dash-joined
// keys, so Set("border", map[string]any{"radius": "1rem"}) stores
// "border-radius". Existing keys keep their position.
func (p *PropertyMap) Set(key string, value any) error {
	if key == "" {
		return &ValueError{Caller: "props", Msg: "property name should be a non-empty string"}
	}
	if slices.Contains(reserved, key) {
		return &ValueError{Caller: "props", Msg: fmt.Sprintf("property name %q is reserved", key)}
	}

	var v Value
	switch val := value.(type) {
	case Value:
		v = val
	case string:
		v = Text(val)
	case ComputeFunc:
		v = Computed(val)
	case func(Scope) (string, error):
		v = Computed(val)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, bool:
		v = Literal(fmt.Sprint(val))
	case float32:
		v = Literal(strconv.FormatFloat(float64(val), 'f', -1, 32))
	case float64:
		v = Literal(strconv.FormatFloat(val, 'f', -1, 64))
	case map[string]any:
		for _, sub := range slices.Sorted(maps.Keys(val)) {
			if err := p.Set(key+"-"+sub, val[sub]); err != nil {
				return err
			}
		}
		return nil
	case nil:
		return &ValueError{Caller: "props", Msg: fmt.Sprintf("property %q has no value", key)}
	default:
		return &ValueError{Caller: "props", Msg: fmt.Sprintf("property %q has unsupported value type %T", key, value)}
	}

	if v.kind == ValueComputed && v.fn == nil {
		return &ValueError{Caller: "props", Msg: fmt.Sprintf("property %q has nil compute function", key)}
	}
	p.put(key, v)
	return nil
}

func (p *PropertyMap) put(key string, v Value) {
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = v
}

// Get returns the value stored under key.
func (p *PropertyMap) Get(key string) (Value, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Keys returns property names in order.
func (p *PropertyMap) Keys() []string {
	return slices.Clone(p.keys)
}

func (p *PropertyMap) Len() int {
	return len(p.keys)
}

// Delete removes keys which are present.
func (p *PropertyMap) Delete(keys ...string) {
	for _, key := range keys {
		if _, ok := p.values[key]; !ok {
			continue
		}
		delete(p.values, key)
		p.keys = slices.DeleteFunc(p.keys, func(k string) bool { return k == key })
	}
}

// Clone returns a deep copy.
func (p *PropertyMap) Clone() *PropertyMap {
	return &PropertyMap{keys: slices.Clone(p.keys), values: maps.Clone(p.values)}
}

// Merge copies every property of other into p. Existing keys keep their
// position and new keys are appended in other's order.
func (p *PropertyMap) Merge(other *PropertyMap) {
	for _, key := range other.keys {
		p.put(key, other.values[key])
	}
}

// Filter returns a copy retaining only properties keep returns true for.
func (p *PropertyMap) Filter(keep func(key string, v Value) bool) *PropertyMap {
	out := NewPropertyMap()
	for _, key := range p.keys {
		if v := p.values[key]; keep(key, v) {
			out.put(key, v)
		}
	}
	return out
}

// Strings returns text of every non computed value.
func (p *PropertyMap) Strings() map[string]string {
	out := make(map[string]string, len(p.keys))
	for _, key := range p.keys {
		if v := p.values[key]; v.kind != ValueComputed {
			out[key] = v.text
		}
	}
	return out
}
