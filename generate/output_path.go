package generate

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"colorado/config"
	"colorado/sheet"
	"colorado/state"
)

const outExt = ".css"

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context    string
	Name       string
	ID         string
	Prefix     string
	Colors     []string
	Rules      int
	SourceFile string
}

func expandTemplate(s *sheet.Sheet, src string, name config.TemplateFieldName, field, prefix string) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values := Values{
		Context:    string(name),
		Name:       s.Name,
		ID:         s.ID.String(),
		Prefix:     prefix,
		Rules:      len(s.Rules),
		SourceFile: strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
	}
	for _, c := range s.Colors {
		values.Colors = append(values.Colors, c.Name)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// buildOutputPath returns path of the stylesheet produced from src. Name comes
// from configured template when it expands to something, sheet name otherwise.
func buildOutputPath(s *sheet.Sheet, src, dst string, env *state.LocalEnv) string {
	prefix := s.Prefix
	if env.Cfg.Render.Prefix != "" {
		prefix = env.Cfg.Render.Prefix
	}

	name := s.Name
	if tmpl := env.Cfg.Render.OutputNameTemplate; tmpl != "" {
		expanded, err := expandTemplate(s, src, config.OutputNameTemplateFieldName, tmpl, prefix)
		if err != nil {
			env.Log.Warn("Unable to prepare output filename", zap.Error(err))
		} else if strings.TrimSpace(expanded) != "" {
			name = expanded
		}
	}
	return filepath.Join(dst, cleanName(name, env)+outExt)
}

func cleanName(name string, env *state.LocalEnv) string {
	// template may not produce subdirectories
	name = strings.NewReplacer("/", "-", "\\", "-").Replace(strings.TrimSpace(name))
	if env.Cfg.Render.FileNameTransliterate {
		name = slug.Make(name)
	}
	return config.CleanFileName(name)
}
