package sheet

import (
	"maps"
	"slices"
	"sort"

	"github.com/maruel/natural"

	"colorado/css"
	"colorado/utils/debug"
)

// String returns a readable tree of the sheet, its rules and their change
// history. It exists solely for manual inspection during debugging.
func (s *Sheet) String() string {
	if s == nil {
		return "<nil Sheet>"
	}

	tw := debug.NewTreeWriter()
	tw.Line(0, "Sheet %q id[%s] prefix[%q]", s.Name, s.ID, s.Prefix)

	tw.Line(1, "Rules: %d", len(s.Rules))
	for _, r := range s.Rules {
		dumpRule(tw, 2, r)
	}
	tw.Line(1, "Colors: %d", len(s.Colors))
	for _, c := range s.Colors {
		tw.Line(2, "Color %q abbr[%q] value[%q]", c.Name, c.Abbr, c.Value)
		for _, r := range c.Rules {
			dumpRule(tw, 3, r)
		}
	}
	return tw.String()
}

func dumpRule(tw *debug.TreeWriter, depth int, r *css.Rule) {
	sel := r.Selector()
	tw.Field(depth, "Rule", sel.String())
	for _, t := range sel.Tokens() {
		if t.Kind == css.KindCombinator {
			continue
		}
		tw.Line(depth+1, "[%d:%d] %s %q", t.Span.Start, t.Span.End, t.Kind, t.Content)
	}

	props := r.Props()
	for _, key := range props.Keys() {
		v, _ := props.Get(key)
		tw.Line(depth+1, "%s(%s): %q", key, v.Kind(), v.String())
	}

	changes := r.Changes()
	tw.List(depth+1, "Selector changes", changes.Selectors)
	tw.Line(depth+1, "Property changes (%d)", len(changes.Props))
	for i, vars := range changes.Vars {
		tw.Line(depth+1, "Vars[%d] (%d)", i, len(vars))
		keys := slices.Collect(maps.Keys(vars))
		sort.Sort(natural.StringSlice(keys))
		for _, k := range keys {
			tw.Field(depth+2, k, vars[k])
		}
	}
}
