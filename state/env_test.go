package state

import (
	"context"
	"log"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"colorado/config"
	"colorado/sandbox"
)

func TestEnvFromContext(t *testing.T) {
	ctx := ContextWithEnv(context.Background())
	env := EnvFromContext(ctx)
	if env != EnvFromContext(ctx) {
		t.Error("context must carry a single environment")
	}

	time.Sleep(5 * time.Millisecond)
	if up := env.Uptime(); up < 5*time.Millisecond || up > time.Minute {
		t.Errorf("Uptime() = %v", up)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic when env not in context")
		}
	}()
	EnvFromContext(context.Background())
}

func TestLocalEnv_RedirectStdLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	env := &LocalEnv{Log: zap.New(core)}

	env.RedirectStdLog()
	log.Print("from standard logger")
	env.RestoreStdLog()

	entries := logs.All()
	if len(entries) != 1 || entries[0].Message != "from standard logger" {
		t.Errorf("unexpected redirected entries %v", entries)
	}

	t.Run("nil logger", func(t *testing.T) {
		env := &LocalEnv{}
		env.RedirectStdLog()
		if env.restoreStdLog != nil {
			t.Error("expected restoreStdLog to remain nil")
		}
		env.RestoreStdLog()
	})
}

func TestLocalEnv_Evaluator(t *testing.T) {
	t.Run("from configuration", func(t *testing.T) {
		env := &LocalEnv{
			Cfg: &config.Config{Expressions: config.ExpressionsConfig{Timeout: time.Second, Packages: []string{"strings"}}},
			Log: zaptest.NewLogger(t),
		}

		ev := env.Evaluator()
		if ev != env.Evaluator() {
			t.Error("Evaluator must be created once")
		}
		if got := ev.Packages(); len(got) != 2 || got[0] != "fmt" || got[1] != "strings" {
			t.Errorf("unexpected packages %v", got)
		}
		res, err := ev.Eval(context.Background(), `strings.ToUpper("dark")`, sandbox.Scope{})
		if err != nil || res != "DARK" {
			t.Errorf("Eval() = %q, %v", res, err)
		}
		if _, err := ev.Eval(context.Background(), `math.Sqrt(4)`, sandbox.Scope{}); err == nil {
			t.Error("packages outside configuration must be rejected")
		}
	})

	t.Run("without configuration", func(t *testing.T) {
		env := &LocalEnv{}
		if got := env.Evaluator().Packages(); len(got) != len(sandbox.DefaultPackages) {
			t.Errorf("unexpected packages %v", got)
		}
	})
}
