package css_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"colorado/css"
)

func TestProps_Order(t *testing.T) {
	p, err := css.Props("z-index", 10, "color", "<color/>", "opacity", 0.5, "visible", true)
	if err != nil {
		t.Fatalf("Props failed: %v", err)
	}
	if diff := cmp.Diff([]string{"z-index", "color", "opacity", "visible"}, p.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	want := map[string]string{"z-index": "10", "color": "<color/>", "opacity": "0.5", "visible": "true"}
	if diff := cmp.Diff(want, p.Strings()); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestProps_Kinds(t *testing.T) {
	p := css.MustProps(
		"width", "${2*3}px",
		"height", "5px",
		"margin", css.Literal("${not evaluated}"),
		"content", func(css.Scope) (string, error) { return `""`, nil },
	)
	tests := map[string]css.ValueKind{
		"width":   css.ValueExpression,
		"height":  css.ValueLiteral,
		"margin":  css.ValueLiteral,
		"content": css.ValueComputed,
	}
	for key, kind := range tests {
		v, ok := p.Get(key)
		if !ok {
			t.Fatalf("missing %q", key)
		}
		if v.Kind() != kind {
			t.Errorf("%s: kind %s, want %s", key, v.Kind(), kind)
		}
	}
	if _, ok := p.Strings()["content"]; ok {
		t.Error("computed values have no text")
	}
}

func TestPropertyMap_SetNested(t *testing.T) {
	p := css.NewPropertyMap()
	err := p.Set("border", map[string]any{
		"width":  "1px",
		"radius": map[string]any{"top": "2px"},
	})
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if diff := cmp.Diff([]string{"border-radius-top", "border-width"}, p.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestPropertyMap_SetErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"reserved selector", "selector", "x"},
		{"reserved classnames", "classnames", "x"},
		{"empty key", "", "x"},
		{"nil value", "color", nil},
		{"unsupported", "color", []int{1}},
		{"nil func", "color", css.ComputeFunc(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := css.NewPropertyMap().Set(tt.key, tt.value)
			var ve *css.ValueError
			if !errors.As(err, &ve) {
				t.Errorf("expected ValueError, got %v", err)
			}
		})
	}
}

func TestProps_Errors(t *testing.T) {
	if _, err := css.Props("color"); !errors.As(err, new(*css.ValueError)) {
		t.Errorf("odd arguments: expected ValueError, got %v", err)
	}
	if _, err := css.Props(1, "x"); !errors.As(err, new(*css.ValueError)) {
		t.Errorf("non string key: expected ValueError, got %v", err)
	}
	if _, err := css.PropsFromMap(nil); !errors.As(err, new(*css.ParameterError)) {
		t.Errorf("nil map: expected ParameterError, got %v", err)
	}
}

func TestPropertyMap_Mutations(t *testing.T) {
	p := css.MustProps("a", "1", "b", "2", "c", "3")

	clone := p.Clone()
	clone.Delete("a", "missing")
	if p.Len() != 3 || clone.Len() != 2 {
		t.Fatalf("clone is not independent: %d %d", p.Len(), clone.Len())
	}

	p.Merge(css.MustProps("b", "20", "d", "4"))
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, p.Keys()); diff != "" {
		t.Errorf("merge order mismatch (-want +got):\n%s", diff)
	}
	if v, _ := p.Get("b"); v.String() != "20" {
		t.Errorf("merge did not overwrite: %q", v)
	}

	odd := p.Filter(func(key string, _ css.Value) bool { return key == "a" || key == "c" })
	if diff := cmp.Diff([]string{"a", "c"}, odd.Keys()); diff != "" {
		t.Errorf("filter mismatch (-want +got):\n%s", diff)
	}
}

func TestPropsFromMap_Sorted(t *testing.T) {
	p, err := css.PropsFromMap(map[string]any{"padding": "5px", "color": "red", "margin": 0})
	if err != nil {
		t.Fatalf("PropsFromMap failed: %v", err)
	}
	if diff := cmp.Diff([]string{"color", "margin", "padding"}, p.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
}
