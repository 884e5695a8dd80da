package sandbox_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"colorado/sandbox"
)

func TestEval(t *testing.T) {
	ev := sandbox.New(sandbox.WithLogger(zaptest.NewLogger(t)))
	scope := sandbox.Scope{
		Selector:   ".dark-card",
		Classnames: []string{".dark-card", ".dark-alt"},
		Props:      map[string]string{"padding": "5px"},
		Vars:       map[string]string{"size": "16px", "var-1": "var(--dark-card)", "strings": "shadowed"},
	}

	tests := []struct {
		expr string
		want string
	}{
		{"1+2", "3"},
		{"size", "16px"},
		{`vars["var-1"]`, "var(--dark-card)"},
		{`vars["strings"]`, "shadowed"},
		{`strings.Repeat("a", 3)`, "aaa"},
		{`props["padding"]`, "5px"},
		{"classnames[1]", ".dark-alt"},
		{`return selector + "!"`, ".dark-card!"},
		{"math.Max(2, 3)", "3"},
		{`strconv.Itoa(len(selector))`, "10"},
		{"  2 * 21 ", "42"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ev.Eval(context.Background(), tt.expr, scope)
			if err != nil {
				t.Fatalf("Eval(%q) failed: %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Eval(%q) = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEval_Failures(t *testing.T) {
	ev := sandbox.New(sandbox.WithPackages("strings"))

	for _, expr := range []string{
		"",
		"1/0",
		"nosuchthing",
		`os.Getenv("HOME")`,
		"math.Sqrt(4)",
		"func() int { var s []int; return s[3] }()",
	} {
		if got, err := ev.Eval(context.Background(), expr, sandbox.Scope{}); err == nil {
			t.Errorf("Eval(%q) = %q, expected an error", expr, got)
		}
	}
}

func TestEval_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ev := sandbox.New(sandbox.WithTimeout(time.Second))
	if _, err := ev.Eval(ctx, "1", sandbox.Scope{}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestEval_Timeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ev := sandbox.New(sandbox.WithTimeout(200 * time.Millisecond))
	start := time.Now()
	_, err := ev.Eval(context.Background(), "func() string { for {} }()", sandbox.Scope{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("evaluation took %v", elapsed)
	}
}

func TestEvaluator_Packages(t *testing.T) {
	if diff := cmp.Diff([]string{"fmt", "math", "strconv", "strings", "unicode"}, sandbox.New().Packages()); diff != "" {
		t.Errorf("default packages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"fmt", "strings"}, sandbox.New(sandbox.WithPackages("strings")).Packages()); diff != "" {
		t.Errorf("packages mismatch (-want +got):\n%s", diff)
	}
}
