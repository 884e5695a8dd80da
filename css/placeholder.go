package css

import (
	"maps"
	"regexp"
	"strings"
)

// Vars maps placeholder names to their substitution values.
type Vars map[string]string

// Merge returns a new Vars with sets applied in order, later sets overriding
// earlier ones.
func Merge(sets ...Vars) Vars {
	out := make(Vars)
	for _, set := range sets {
		maps.Copy(out, set)
	}
	return out
}

// Tokenize returns the placeholder form of name: "<name/>".
func Tokenize(name string) string {
	if IsToken(name) {
		return name
	}
	return "<" + name + "/>"
}

// IsToken reports whether value is exactly one placeholder.
func IsToken(value string) bool {
	loc := placeholderPattern.FindStringIndex(value)
	return loc != nil && loc[0] == 0 && loc[1] == len(value)
}

var placeholderPattern = regexp.MustCompile(`<([A-Za-z_][\w-]*)/>`)

// PlaceholderRef records a placeholder which had no matching variable.
type PlaceholderRef struct {
	Name    string
	Literal string
	Span    Span
}

// Resolve substitutes every <name/> found in vars. Unknown placeholders are
// left verbatim and returned, one entry per occurrence. Substituted values are
// not scanned again.
func Resolve(text string, vars Vars) (string, []PlaceholderRef) {
	locs := placeholderPattern.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return text, nil
	}

	var (
		sb         strings.Builder
		unresolved []PlaceholderRef
		prev       int
	)
	for _, loc := range locs {
		name := text[loc[2]:loc[3]]
		sb.WriteString(text[prev:loc[0]])
		if value, ok := vars[name]; ok {
			sb.WriteString(value)
		} else {
			sb.WriteString(text[loc[0]:loc[1]])
			unresolved = append(unresolved, PlaceholderRef{
				Name:    name,
				Literal: text[loc[0]:loc[1]],
				Span:    Span{loc[0], loc[1]},
			})
		}
		prev = loc[1]
	}
	sb.WriteString(text[prev:])
	return sb.String(), unresolved
}
