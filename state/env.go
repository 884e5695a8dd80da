// Package state defines shared program state.
package state

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"colorado/config"
	"colorado/sandbox"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// used by render subcommand
	Overwrite bool

	evalOnce sync.Once
	eval     *sandbox.Evaluator

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &LocalEnv{start: time.Now()})
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// Evaluator returns expression evaluator configured from Cfg, shared by every
// rendered rule.
func (e *LocalEnv) Evaluator() *sandbox.Evaluator {
	e.evalOnce.Do(func() {
		opts := []sandbox.Option{sandbox.WithLogger(e.Log)}
		if e.Cfg != nil {
			opts = append(opts,
				sandbox.WithTimeout(e.Cfg.Expressions.Timeout),
				sandbox.WithPackages(e.Cfg.Expressions.Packages...))
		}
		e.eval = sandbox.New(opts...)
	})
	return e.eval
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
