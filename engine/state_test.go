package engine

import (
	"context"
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/villagemud/lua-runtime/errors"
)

func newTestState(t *testing.T, cfg Config) *State {
	t.Helper()
	s, err := NewState(cfg)
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestState_CompileAndRun(t *testing.T) {
	s := newTestState(t, Config{})
	ctx := context.Background()

	if err := s.CompileAndRun(ctx, "x = 1 + 1", "chunk"); err != nil {
		t.Fatalf("run: %v", err)
	}

	v := s.Global("x")
	if n, ok := v.(lua.LNumber); !ok || n != 2 {
		t.Errorf("x = %v, want 2", v)
	}
}

func TestState_SyntaxError(t *testing.T) {
	s := newTestState(t, Config{})

	err := s.CompileAndRun(context.Background(), "x = (", "chunk")
	if err == nil {
		t.Fatal("expected syntax error")
	}
	if !errors.IsKind(err, errors.KindSyntax) {
		t.Errorf("kind = %v, want syntax", err)
	}
	if e := err.(*errors.Error); e.Message == "" {
		t.Error("syntax error carries no message")
	}
}

func TestState_RuntimeError(t *testing.T) {
	s := newTestState(t, Config{})

	err := s.CompileAndRun(context.Background(), "local t = nil; return t.x", "chunk")
	if err == nil {
		t.Fatal("expected runtime error")
	}
	if !errors.IsKind(err, errors.KindRuntime) {
		t.Errorf("kind = %v, want runtime", err)
	}
}

func TestState_BareEnvironment(t *testing.T) {
	s := newTestState(t, Config{})

	// No stdlib: print must not resolve.
	err := s.CompileAndRun(context.Background(), `print("hello")`, "chunk")
	if err == nil {
		t.Fatal("expected failure calling print in a bare environment")
	}
	if !errors.IsKind(err, errors.KindRuntime) {
		t.Errorf("kind = %v, want runtime", err)
	}
}

func TestState_Libraries(t *testing.T) {
	s := newTestState(t, Config{Libraries: []string{"base", "string"}})

	src := `x = string.upper(tostring(12))`
	if err := s.CompileAndRun(context.Background(), src, "chunk"); err != nil {
		t.Fatalf("run with libraries: %v", err)
	}
	if v := s.Global("x"); lua.LVAsString(v) != "12" {
		t.Errorf("x = %v, want \"12\"", v)
	}
}

func TestState_UnknownLibrary(t *testing.T) {
	_, err := NewState(Config{Libraries: []string{"sockets"}})
	if err == nil {
		t.Fatal("expected error for unknown library")
	}
	if !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("kind = %v, want invalid_input", err)
	}
}

func TestState_CloseIdempotent(t *testing.T) {
	s, err := NewState(Config{})
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	s.Close()
	s.Close()

	if !s.Closed() {
		t.Error("state should report closed")
	}
	if err := s.CompileAndRun(context.Background(), "x = 1", "chunk"); !errors.IsKind(err, errors.KindStateClosed) {
		t.Errorf("run after close = %v, want state_closed", err)
	}
}

func TestState_ResumeQuantum(t *testing.T) {
	s := newTestState(t, Config{})
	ctx := context.Background()

	if err := s.CompileAndRun(ctx, "function loop() while true do end end", "chunk"); err != nil {
		t.Fatalf("load: %v", err)
	}
	fn, ok := s.Global("loop").(*lua.LFunction)
	if !ok {
		t.Fatalf("loop is %T, want function", s.Global("loop"))
	}

	co := s.NewCoroutine()
	for i := 0; i < 100; i++ {
		outcome, _, err := s.Resume(ctx, co, fn, 10)
		if err != nil {
			t.Fatalf("resume %d: %v", i, err)
		}
		if outcome != OutcomeYield {
			t.Fatalf("resume %d outcome = %v, want yield", i, outcome)
		}
		if got := s.CoroutineStatus(co); got != "suspended" {
			t.Fatalf("resume %d status = %q, want suspended", i, got)
		}
	}
}

func TestState_ResumeCompletes(t *testing.T) {
	s := newTestState(t, Config{})
	ctx := context.Background()

	if err := s.CompileAndRun(ctx, "function f() return 1 end", "chunk"); err != nil {
		t.Fatalf("load: %v", err)
	}
	fn := s.Global("f").(*lua.LFunction)

	co := s.NewCoroutine()
	outcome, values, err := s.Resume(ctx, co, fn, 10)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if outcome != OutcomeDone {
		t.Fatalf("outcome = %v, want done", outcome)
	}
	if len(values) != 1 || values[0] != lua.LNumber(1) {
		t.Errorf("values = %v, want [1]", values)
	}
	if got := s.CoroutineStatus(co); got != "dead" {
		t.Errorf("status = %q, want dead", got)
	}
}

func TestState_ResumeError(t *testing.T) {
	s := newTestState(t, Config{})
	ctx := context.Background()

	if err := s.CompileAndRun(ctx, "function boom() local t = nil; return t.x end", "chunk"); err != nil {
		t.Fatalf("load: %v", err)
	}
	fn := s.Global("boom").(*lua.LFunction)

	co := s.NewCoroutine()
	outcome, _, err := s.Resume(ctx, co, fn, 10)
	if outcome != OutcomeError {
		t.Fatalf("outcome = %v, want error", outcome)
	}
	if !errors.IsKind(err, errors.KindRuntime) {
		t.Errorf("err = %v, want runtime kind", err)
	}
}

func TestState_VoluntaryYield(t *testing.T) {
	s := newTestState(t, Config{Libraries: []string{"base", "coroutine"}})
	ctx := context.Background()

	src := `
function gen()
  coroutine.yield("first")
  return "second"
end`
	if err := s.CompileAndRun(ctx, src, "chunk"); err != nil {
		t.Fatalf("load: %v", err)
	}
	fn := s.Global("gen").(*lua.LFunction)
	co := s.NewCoroutine()

	outcome, values, err := s.Resume(ctx, co, fn, 100)
	if err != nil || outcome != OutcomeYield {
		t.Fatalf("first resume outcome=%v err=%v, want yield", outcome, err)
	}
	if len(values) != 1 || lua.LVAsString(values[0]) != "first" {
		t.Errorf("yielded %v, want [first]", values)
	}

	outcome, values, err = s.Resume(ctx, co, fn, 100)
	if err != nil || outcome != OutcomeDone {
		t.Fatalf("second resume outcome=%v err=%v, want done", outcome, err)
	}
	if len(values) != 1 || lua.LVAsString(values[0]) != "second" {
		t.Errorf("returned %v, want [second]", values)
	}
}

func TestState_FreezeGlobals(t *testing.T) {
	s := newTestState(t, Config{FreezeGlobals: true})
	ctx := context.Background()

	if err := s.CompileAndRun(ctx, "x = 1", "first"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if !s.Frozen() {
		t.Fatal("namespace should be frozen after first successful run")
	}

	// Existing keys stay assignable.
	if err := s.CompileAndRun(ctx, "x = 2", "second"); err != nil {
		t.Fatalf("reassigning existing global: %v", err)
	}

	// New keys are rejected with the distinct category.
	err := s.CompileAndRun(ctx, "y = 3", "third")
	if err == nil {
		t.Fatal("expected globals_locked error")
	}
	if !errors.IsKind(err, errors.KindGlobalsLocked) {
		t.Errorf("kind = %v, want globals_locked", err)
	}

	// Host-side registration still lands.
	s.SetGlobal("fresh", lua.LNumber(9))
	if v := s.Global("fresh"); v != lua.LNumber(9) {
		t.Errorf("fresh = %v, want 9", v)
	}
}

func TestState_GlobalFunctions(t *testing.T) {
	s := newTestState(t, Config{})
	ctx := context.Background()

	src := `
function beta() end
function alpha() end
x = 10`
	if err := s.CompileAndRun(ctx, src, "chunk"); err != nil {
		t.Fatalf("load: %v", err)
	}

	names := s.GlobalFunctions()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("global functions = %v, want [alpha beta]", names)
	}
	for _, n := range names {
		if strings.HasPrefix(n, "__") {
			t.Errorf("internal global %q leaked into listing", n)
		}
	}
}
