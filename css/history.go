package css

import (
	"maps"
	"slices"
)

// History is the append-only change log of a Rule. It is never truncated and
// clones inherit it from their parent, so placeholders and expressions can use
// every variable set ever applied along the derivation chain.
type History struct {
	Selectors []string
	Props     []*PropertyMap
	Vars      []Vars
}

func (h History) clone() History {
	out := History{
		Selectors: slices.Clone(h.Selectors),
		Props:     make([]*PropertyMap, 0, len(h.Props)),
		Vars:      make([]Vars, 0, len(h.Vars)),
	}
	for _, p := range h.Props {
		out.Props = append(out.Props, p.Clone())
	}
	for _, v := range h.Vars {
		out.Vars = append(out.Vars, maps.Clone(v))
	}
	return out
}

// MergedVars flattens recorded variable sets, oldest first, so later sets win
// on key collision.
func (h History) MergedVars() Vars {
	return Merge(h.Vars...)
}
