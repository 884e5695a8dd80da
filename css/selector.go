package css

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Placeholder is the abbreviation substitution point inside selectors.
const Placeholder = "<abbr/>"

// marker stands in for Placeholder during classification. It must have the
// same length so token spans computed on the substituted text apply to the
// original string unchanged.
const marker = "zqabbrq"

// TokenKind classifies a single selector token.
type TokenKind int

const (
	KindRegularClass  TokenKind = iota // .class
	KindID                             // #id
	KindAttribute                      // [attr=value]
	KindPseudoClass                    // :hover
	KindPseudoElement                  // ::after
	KindElement                        // span, *
	KindColoradoClass                  // <abbr/>-card, bg-<abbr/>
	KindCombinator                     // whitespace, '>' and ',' separators
)

var kindNames = [...]string{
	KindRegularClass:  "regular-class",
	KindID:            "id",
	KindAttribute:     "attribute",
	KindPseudoClass:   "pseudo-class",
	KindPseudoElement: "pseudo-element",
	KindElement:       "element",
	KindColoradoClass: "colorado-class",
	KindCombinator:    "combinator",
}

func (k TokenKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
	return kindNames[k]
}

// Span is a half-open byte range in the source text.
type Span struct {
	Start int
	End   int
}

// Token is a classified piece of a selector.
type Token struct {
	Kind    TokenKind
	Content string
	Span    Span
}

// matcher pairs a pattern with the token kind it produces. Matchers are
// applied in table order over the unclaimed remainder of every fragment.
type matcher struct {
	kind TokenKind
	re   *regexp.Regexp
}

func longest(expr string) *regexp.Regexp {
	re := regexp.MustCompile(expr)
	re.Longest()
	return re
}

const (
	bemTail = `(?:__(?:[a-z0-9]+-?)+)?(?:--(?:[a-z0-9]+-?)+){0,2}`
)

var (
	attributeSelector = longest(`\[[\w-]+(?:[~|^$*]?=(?:"[^\n\t"]+"|'[^\n\t']+'|[^\n\t\]]+)(?:\s[sSiI])?)?\]`)
	pseudoElement     = longest(`::(?:after|b[ae](?:ckdrop|fore)|cue(?:-region)?|first-l(?:etter|ine)|marker|placeholder|selection|(?:grammar|spelling)-error|target-text)`)
	pseudoClass       = longest(`:(?:a(?:ctive|ny(?:-link)?)|checked|d(?:efault|i(?:r\((?:ltr|rtl)\)|sabled))|e(?:mpty|nabled)|f(?:irst(?:-(?:child|of-type))*|ullscreen|ocus(?:-(?:visible|within))?)|hover|in(?:determinate|valid|-range)|la(?:ng\([a-zA-Z]{1,3}\)|st-(?:child|of-type))|l(?:eft|ink)|nth-(?:last-)*(?:child|of-type)\((?:odd|even|-?(?:n|\d+n)(?:[+\-]\d+)?|\d+)\)|o(?:nly-(?:child|of-type)|ptional|ut-of-range)|r(?:e(?:ad-(?:only|write)|quired)|ight|oot)|scope|target|v(?:alid|isited))`)
	classSelector     = longest(`(?i)\.[a-z][a-z0-9-]*` + bemTail)
	idSelector        = longest(`(?i)#[a-z][a-z0-9-]*` + bemTail)
	bareWord          = longest(`(?i)\*|[a-z][a-z0-9-]*` + bemTail)

	unsupportedLogical = regexp.MustCompile(`:(is|not)\(`)
	separators         = regexp.MustCompile(`\s*>\s*|\s*,+\s*|\s+`)

	matchers = []matcher{
		{KindAttribute, attributeSelector},
		{KindPseudoElement, pseudoElement},
		{KindPseudoClass, pseudoClass},
		{KindRegularClass, classSelector},
		{KindID, idSelector},
		{KindElement, bareWord},
	}
)

type fragment struct {
	text  string
	span  Span
	kinds map[TokenKind]bool
}

// Selector is an immutable, classified CSS selector.
type Selector struct {
	raw       string
	tokens    []Token
	fragments []fragment
}

type classifyOptions struct {
	allowMissing bool
}

// ClassifyOption alters Classify behavior.
type ClassifyOption func(*classifyOptions)

// AllowMissingPlaceholder accepts selectors without a colorado-class token.
func AllowMissingPlaceholder() ClassifyOption {
	return func(o *classifyOptions) {
		o.allowMissing = true
	}
}

// Classify splits raw into typed tokens. Supported constructs are attribute
// selectors, a fixed list of pseudo-elements and pseudo-classes, dotted and
// bare class names, ids and descendant, child and group combinators.
func Classify(raw string, opts ...ClassifyOption) (*Selector, error) {
	var o classifyOptions
	for _, opt := range opts {
		opt(&o)
	}

	if raw == "" {
		return nil, &ParameterError{Caller: "selector", Names: []string{"selector"}}
	}
	if found := unsupportedLogical.FindAllString(raw, -1); len(found) > 0 {
		return nil, &SelectorError{Selector: raw,
			Msg: fmt.Sprintf("selector contains the following unsupported css-selectors [ %s ]", strings.Join(found, ", "))}
	}
	if !o.allowMissing && len(raw) < len(Placeholder) {
		return nil, &SelectorError{Selector: raw, Msg: "selector too short to contain " + Placeholder}
	}
	if strings.Contains(strings.ToLower(raw), marker) {
		return nil, &SelectorError{Selector: raw, Msg: fmt.Sprintf("selector contains reserved sequence %q", marker)}
	}

	work := strings.ReplaceAll(raw, Placeholder, marker)
	sel := &Selector{raw: raw}

	prev := 0
	for _, loc := range separators.FindAllStringIndex(work, -1) {
		if err := sel.classifyFragment(work, Span{prev, loc[0]}); err != nil {
			return nil, err
		}
		sel.tokens = append(sel.tokens, Token{Kind: KindCombinator, Content: raw[loc[0]:loc[1]], Span: Span{loc[0], loc[1]}})
		prev = loc[1]
	}
	if err := sel.classifyFragment(work, Span{prev, len(work)}); err != nil {
		return nil, err
	}

	if !o.allowMissing && !sel.HasPlaceholder() {
		return nil, &SelectorError{Selector: raw, Msg: "css-selector must contain " + Placeholder + " as a class"}
	}
	return sel, nil
}

// classifyFragment claims every byte of work[span] with a matcher or fails.
func (s *Selector) classifyFragment(work string, span Span) error {
	if span.Start == span.End {
		return nil
	}
	remainder := []byte(work[span.Start:span.End])
	frag := fragment{text: s.raw[span.Start:span.End], span: span, kinds: make(map[TokenKind]bool)}

	var found []Token
	for _, m := range matchers {
		for _, loc := range m.re.FindAllIndex(remainder, -1) {
			kind := m.kind
			if (kind == KindRegularClass || kind == KindElement) && strings.Contains(string(remainder[loc[0]:loc[1]]), marker) {
				kind = KindColoradoClass
			}
			start, end := span.Start+loc[0], span.Start+loc[1]
			found = append(found, Token{Kind: kind, Content: s.raw[start:end], Span: Span{start, end}})
			frag.kinds[kind] = true
			// masked bytes are never matched again and keep later matchers
			// from joining text across a claimed token
			for i := loc[0]; i < loc[1]; i++ {
				remainder[i] = 0
			}
		}
	}

	var rest strings.Builder
	for _, b := range remainder {
		if b != 0 {
			rest.WriteByte(b)
		}
	}
	if rest.Len() > 0 {
		return &SelectorError{Selector: s.raw,
			Msg: fmt.Sprintf("could not parse %q into any valid css-selector type", strings.ReplaceAll(rest.String(), marker, Placeholder))}
	}

	slices.SortFunc(found, func(a, b Token) int { return a.Span.Start - b.Span.Start })
	s.tokens = append(s.tokens, found...)
	s.fragments = append(s.fragments, frag)
	return nil
}

// String returns the original selector text.
func (s *Selector) String() string {
	return s.raw
}

// Tokens returns a copy of the classified tokens in source order.
func (s *Selector) Tokens() []Token {
	return slices.Clone(s.tokens)
}

// HasPlaceholder reports whether the selector has a substitution point.
func (s *Selector) HasPlaceholder() bool {
	return slices.ContainsFunc(s.tokens, func(t Token) bool { return t.Kind == KindColoradoClass })
}

// Fragments returns the unique compound selectors (text between combinators)
// containing at least one token of the given kind.
func (s *Selector) Fragments(kind TokenKind) []string {
	var out []string
	for _, f := range s.fragments {
		if f.kinds[kind] && !slices.Contains(out, f.text) {
			out = append(out, f.text)
		}
	}
	return out
}

// renderToken substitutes abbr into a single token. Colorado-class tokens
// always come out as dotted class selectors.
func renderToken(t Token, abbr string) string {
	content := strings.ReplaceAll(t.Content, Placeholder, abbr)
	if t.Kind == KindColoradoClass && !strings.HasPrefix(content, ".") {
		content = "." + content
	}
	return content
}

// Render returns the selector with every placeholder replaced by abbr.
func (s *Selector) Render(abbr string) string {
	var sb strings.Builder
	for _, t := range s.tokens {
		sb.WriteString(renderToken(t, abbr))
	}
	return sb.String()
}

// Classnames returns the synthesized class selectors for abbr, in order and
// without duplicates.
func (s *Selector) Classnames(abbr string) []string {
	var out []string
	for _, t := range s.tokens {
		if t.Kind != KindColoradoClass {
			continue
		}
		if name := renderToken(t, abbr); !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// Expansion is a selector rendered for a concrete abbreviation.
type Expansion struct {
	String     string
	Classnames []string
	// Fragments holds, per kind, the compound selectors containing the
	// abbreviation.
	Fragments map[TokenKind][]string
}

// Expand renders the selector for abbr and classifies the result again.
func (s *Selector) Expand(abbr string) (*Expansion, error) {
	if err := required("selector.expand", "abbr", abbr); err != nil {
		return nil, err
	}
	rendered := s.Render(abbr)
	concrete, err := Classify(rendered, AllowMissingPlaceholder())
	if err != nil {
		return nil, fmt.Errorf("unable to classify expanded selector: %w", err)
	}

	exp := &Expansion{
		String:     rendered,
		Classnames: s.Classnames(abbr),
		Fragments:  make(map[TokenKind][]string),
	}
	for kind := KindRegularClass; kind < KindCombinator; kind++ {
		for _, f := range concrete.Fragments(kind) {
			if strings.Contains(f, abbr) {
				exp.Fragments[kind] = append(exp.Fragments[kind], f)
			}
		}
	}
	return exp, nil
}
