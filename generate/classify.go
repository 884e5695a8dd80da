package generate

import (
	"context"
	"errors"
	"io"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"

	"colorado/css"
	"colorado/utils/debug"
)

// Classify prints selector tokens for every argument. With --abbr it also
// shows expansion of the selector.
func Classify(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cmd.Args().Len() == 0 {
		return errors.New("no selectors have been specified")
	}

	var errs error
	for _, raw := range cmd.Args().Slice() {
		if err := classify(cmd.Root().Writer, raw, cmd.String("abbr")); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func classify(w io.Writer, raw, abbr string) error {
	sel, err := css.Classify(raw, css.AllowMissingPlaceholder())
	if err != nil {
		return err
	}

	tw := debug.NewTreeWriter()
	tw.Field(0, "Selector", sel.String())
	for _, t := range sel.Tokens() {
		tw.Line(1, "[%d:%d] %s %q", t.Span.Start, t.Span.End, t.Kind, t.Content)
	}
	if abbr != "" && sel.HasPlaceholder() {
		exp, err := sel.Expand(abbr)
		if err != nil {
			return err
		}
		tw.Field(1, "Expanded", exp.String)
		tw.List(2, "Classes", exp.Classnames)
		for kind := css.KindRegularClass; kind < css.KindCombinator; kind++ {
			if frags := exp.Fragments[kind]; len(frags) > 0 {
				tw.Field(2, kind.String(), strings.Join(frags, ", "))
			}
		}
	}
	_, err = tw.WriteTo(w)
	return err
}
