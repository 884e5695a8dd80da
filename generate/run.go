// Package generate drives rendering of sheet definition files into CSS.
package generate

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"colorado/archive"
	"colorado/sheet"
	"colorado/state"
)

var definitionExts = []string{".yaml", ".yml"}

// Run is the render command action.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("render")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	// command line wins over configuration
	if cmd.IsSet("prefix") {
		env.Cfg.Render.Prefix = cmd.String("prefix")
	}
	if cmd.IsSet("compact") {
		env.Cfg.Render.Compact = cmd.Bool("compact")
	}
	if cmd.IsSet("strict") {
		env.Cfg.Render.Strict = cmd.Bool("strict")
	}
	env.Overwrite = cmd.Bool("overwrite")

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	err = process(ctx, src, dst, env, log)
	if !cmd.Bool("watch") {
		return err
	}
	if err != nil {
		log.Error("Unable to render", zap.Error(err))
	}
	return watch(ctx, src, dst, env, log)
}

// process renders a single definition file, every definition in a zip archive
// or every definition and archive found under a directory.
func process(ctx context.Context, src, dst string, env *state.LocalEnv, log *zap.Logger) error {
	fi, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("input source was not found (%s): %w", src, err)
	}

	if env.Rpt != nil {
		if err := env.Rpt.StoreCopy("input", src); err != nil {
			log.Warn("Unable to store input in report", zap.Error(err))
		}
	}

	if !fi.Mode().IsDir() {
		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s)", src)
		}
		if archive.IsArchive(src) {
			return processArchive(ctx, src, dst, env, log)
		}
		return processFile(ctx, src, dst, env, log)
	}

	var errs error
	count := 0
	err = filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		handler := processFile
		switch {
		case archive.IsArchive(path):
			handler = processArchive
		case !isDefinition(path):
			return nil
		}
		count++

		rel, _ := filepath.Rel(src, filepath.Dir(path))
		if err := handler(ctx, path, filepath.Join(dst, rel), env, log); err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if count == 0 {
		log.Debug("Nothing to process", zap.String("dir", src))
	}
	return errs
}

func isDefinition(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range definitionExts {
		if ext == e {
			return true
		}
	}
	return false
}

func loadOptions(env *state.LocalEnv) []sheet.Option {
	return []sheet.Option{sheet.WithLogger(env.Log), sheet.WithEvaluator(env.Evaluator())}
}

func processFile(ctx context.Context, src, dst string, env *state.LocalEnv, log *zap.Logger) error {
	s, err := sheet.LoadFile(src, loadOptions(env)...)
	if err != nil {
		return err
	}
	return renderSheet(ctx, s, src, dst, env, log)
}

// processArchive renders definitions inside zip archive keeping archive
// directory structure on the output.
func processArchive(ctx context.Context, src, dst string, env *state.LocalEnv, log *zap.Logger) error {
	var errs error
	err := archive.Walk(src, isDefinition, func(arc string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := archive.ReadFile(f)
		if err == nil {
			var s *sheet.Sheet
			if s, err = sheet.Load(data, append(loadOptions(env), sheet.WithSource(arc+":"+f.Name))...); err == nil {
				err = renderSheet(ctx, s, f.Name, filepath.Join(dst, filepath.FromSlash(path.Dir(f.Name))), env, log)
			}
		}
		if err != nil {
			log.Error("Unable to process archive entry", zap.String("archive", arc), zap.String("entry", f.Name), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", f.Name, err))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to process archive %s: %w", src, err)
	}
	return errs
}

func renderSheet(ctx context.Context, s *sheet.Sheet, src, dst string, env *state.LocalEnv, log *zap.Logger) error {
	if env.Rpt != nil {
		env.Rpt.StoreData(fmt.Sprintf("sheet/%s-%s.txt", s.ID, filepath.Base(src)), []byte(s.String()))
	}

	out, err := s.Render(ctx, sheet.RenderOptions{
		Prefix:  env.Cfg.Render.Prefix,
		Compact: env.Cfg.Render.Compact,
		Strict:  env.Cfg.Render.Strict,
	})
	if err != nil {
		return fmt.Errorf("unable to render %s: %w", src, err)
	}

	outPath := buildOutputPath(s, src, dst, env)
	if _, err := os.Stat(outPath); err == nil && !env.Overwrite {
		return fmt.Errorf("output file already exists: %s", outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	var buf bytes.Buffer
	if _, err := out.WriteTo(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	if env.Rpt != nil {
		env.Rpt.Store(path.Join("output", filepath.Base(outPath)), outPath)
	}

	log.Info("Stylesheet written",
		zap.String("source", src),
		zap.String("sheet", s.Name),
		zap.String("output", outPath),
		zap.Int("classes", len(out.Classes)))
	return nil
}
