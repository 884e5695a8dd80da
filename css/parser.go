package css

import (
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser reads CSS declaration blocks into property maps.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new declarations parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// ParseDeclarations parses text like "color: <color/>; padding: ${2*2}px"
// preserving declaration order. Placeholders and inline expressions are kept
// verbatim, later duplicates overwrite earlier values in place.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) ParseDeclarations(text string, source ...string) (*PropertyMap, error) {
	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing declarations", zap.String("source", source[0]), zap.Int("bytes", len(text)))
	}

	masked, restore := maskTemplates(text)
	parser := css.NewParser(parse.NewInputString(masked), true)

	props := NewPropertyMap()
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("unable to parse declarations: %w", err)
			}
			return props, nil

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			name := string(data)
			raw := restore(joinTokens(parser.Values()))
			if raw == "" {
				p.log.Debug("Skipping empty declaration", zap.String("property", name))
				continue
			}
			if err := props.Set(name, raw); err != nil {
				return nil, err
			}

		default:
			p.log.Debug("Skipping unexpected grammar", zap.Stringer("grammar", gt), zap.ByteString("data", data))
		}
	}
}

// ParseDeclarations parses text with a non logging parser.
func ParseDeclarations(text string) (*PropertyMap, error) {
	return NewParser(nil).ParseDeclarations(text)
}

// joinTokens builds raw value string collapsing whitespace runs.
func joinTokens(tokens []css.Token) string {
	var parts []string
	for _, t := range tokens {
		if t.TokenType != css.WhitespaceToken {
			parts = append(parts, string(t.Data))
		} else if len(parts) > 0 {
			parts = append(parts, " ")
		}
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}

// maskTemplates replaces placeholders and inline expressions with plain
// identifiers the tokenizer keeps intact and returns a function putting the
// originals back.
func maskTemplates(text string) (string, func(string) string) {
	var originals []string
	substitute := func(literal string) string {
		originals = append(originals, literal)
		return fmt.Sprintf("zqtmpl%dq", len(originals)-1)
	}

	var sb strings.Builder
	prev := 0
	for _, m := range scanExpressions(text) {
		sb.WriteString(text[prev:m.span.Start])
		sb.WriteString(substitute(m.literal))
		prev = m.span.End
	}
	sb.WriteString(text[prev:])
	masked := placeholderPattern.ReplaceAllStringFunc(sb.String(), substitute)

	if len(originals) == 0 {
		return masked, func(s string) string { return s }
	}
	return masked, func(s string) string {
		for i, literal := range originals {
			s = strings.ReplaceAll(s, fmt.Sprintf("zqtmpl%dq", i), literal)
		}
		return s
	}
}
