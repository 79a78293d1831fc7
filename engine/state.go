package engine

import (
	"context"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	luaparse "github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"

	"github.com/villagemud/lua-runtime/errors"
)

// DefaultQuantum is the number of execution steps a coroutine may take
// before the step limiter forces a yield.
const DefaultQuantum = 10

// trapGlobal is the global the step limiter trap is installed under. The
// instrumented chunks call it by name, so a script that reassigns it can
// disable its own preemption; treat scripts that touch it as hostile.
const trapGlobal = "__step"

// lockedGlobalMark is embedded in the error raised by the freeze metatable
// so Translate can recover the distinct globals_locked category.
const lockedGlobalMark = "namespace is locked"

// Config holds configuration for state creation.
type Config struct {
	// Libraries lists stdlib modules opened into the state ("base", "table",
	// "string", "math", "coroutine", "os", "io", "debug", "channel",
	// "package"). Empty means a bare environment: no base library at all.
	Libraries []string

	// FreezeGlobals locks the global namespace against new top-level keys
	// after the first successful chunk run.
	FreezeGlobals bool

	// CallStackSize and RegistrySize pass through to the engine.
	// Zero uses the engine defaults.
	CallStackSize int
	RegistrySize  int
}

// State wraps one isolated Lua state: a stack, a global namespace and the
// host closures registered into it. All execution entry points are
// synchronous; State is not safe for concurrent use beyond the budget
// table, which the trap reads while a resume is in flight.
type State struct {
	mu      sync.Mutex
	l       *lua.LState
	budgets map[*lua.LState]int
	ctx     context.Context
	logger  *zap.Logger
	closed  bool
	frozen  bool
	ranOnce bool
	freeze  bool
}

type stdlib struct {
	name string
	open lua.LGFunction
}

var stdlibs = map[string]stdlib{
	"package":   {lua.LoadLibName, lua.OpenPackage},
	"base":      {lua.BaseLibName, lua.OpenBase},
	"table":     {lua.TabLibName, lua.OpenTable},
	"string":    {lua.StringLibName, lua.OpenString},
	"math":      {lua.MathLibName, lua.OpenMath},
	"os":        {lua.OsLibName, lua.OpenOs},
	"io":        {lua.IoLibName, lua.OpenIo},
	"coroutine": {lua.CoroutineLibName, lua.OpenCoroutine},
	"debug":     {lua.DebugLibName, lua.OpenDebug},
	"channel":   {lua.ChannelLibName, lua.OpenChannel},
}

// openOrder keeps library loading deterministic; package must load first.
var openOrder = []string{"package", "base", "table", "string", "math", "os", "io", "coroutine", "debug", "channel"}

// NewState creates a fresh, empty Lua state. No stdlib is opened unless
// cfg.Libraries asks for it; sandboxing policy belongs to the caller.
func NewState(cfg Config) (*State, error) {
	opts := lua.Options{SkipOpenLibs: true}
	if cfg.CallStackSize > 0 {
		opts.CallStackSize = cfg.CallStackSize
	}
	if cfg.RegistrySize > 0 {
		opts.RegistrySize = cfg.RegistrySize
	}

	s := &State{
		l:       lua.NewState(opts),
		budgets: make(map[*lua.LState]int),
		logger:  Logger(),
		freeze:  cfg.FreezeGlobals,
	}

	if err := s.openLibraries(cfg.Libraries); err != nil {
		s.l.Close()
		return nil, err
	}

	// The trap goes straight into the raw globals table so it exists even
	// in a bare environment and survives a later freeze.
	s.l.Env.RawSetString(trapGlobal, s.l.NewFunction(s.stepTrap))

	return s, nil
}

func (s *State) openLibraries(names []string) error {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := stdlibs[n]; !ok {
			known := make([]string, 0, len(stdlibs))
			for k := range stdlibs {
				known = append(known, k)
			}
			sort.Strings(known)
			return errors.InvalidInput(errors.PhaseLoad,
				"unknown library "+n+" (known: "+strings.Join(known, ", ")+")")
		}
		want[n] = true
	}
	if len(want) > 0 {
		// base and everything else route through package.loaded.
		want["package"] = true
	}

	for _, n := range openOrder {
		if !want[n] {
			continue
		}
		lib := stdlibs[n]
		err := s.l.CallByParam(lua.P{
			Fn:      s.l.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name))
		if err != nil {
			return Translate(errors.PhaseLoad, err)
		}
	}
	return nil
}

// Close releases the Lua state. It is idempotent and never fails; derived
// coroutines become unusable and callers are expected to gate on Closed.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.budgets = nil
	s.l.Close()
}

// Closed reports whether Close has run.
func (s *State) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// LState exposes the underlying engine state for value construction.
// Callers must not close or resume it directly.
func (s *State) LState() *lua.LState {
	return s.l
}

// Context returns the context of the call currently executing in the
// state, for host functions invoked from script.
func (s *State) Context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		return s.ctx
	}
	return context.Background()
}

func (s *State) setContext(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
}

// CompileAndRun compiles source as a single chunk and executes it once,
// top-level. Compilation failures carry the syntax category; failures
// during the run carry the runtime category. The chunk is instrumented
// with the step trap so functions it defines can be preempted later.
func (s *State) CompileAndRun(ctx context.Context, source, name string) error {
	if s.Closed() {
		return errors.StateClosed(errors.PhaseLoad)
	}

	fn, err := s.compile(source, name)
	if err != nil {
		return err
	}

	s.setContext(ctx)
	defer s.setContext(nil)

	s.l.Push(fn)
	if err := s.l.PCall(0, lua.MultRet, nil); err != nil {
		return Translate(errors.PhaseLoad, err)
	}

	s.mu.Lock()
	s.ranOnce = true
	doFreeze := s.freeze && !s.frozen
	s.mu.Unlock()

	if doFreeze {
		s.freezeGlobals()
	}
	return nil
}

func (s *State) compile(source, name string) (*lua.LFunction, error) {
	chunk, err := luaparse.Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, errors.Syntax(errors.PhaseLoad, err.Error())
	}

	Instrument(chunk, trapGlobal)

	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, errors.Syntax(errors.PhaseLoad, err.Error())
	}
	return s.l.NewFunctionFromProto(proto), nil
}

// freezeGlobals installs a metatable on the globals table whose __newindex
// rejects keys that do not already exist. Host-side registration bypasses
// it with raw sets.
func (s *State) freezeGlobals() {
	mt := s.l.NewTable()
	mt.RawSetString("__newindex", s.l.NewFunction(func(l *lua.LState) int {
		key := l.Get(2)
		l.RaiseError("attempt to create global %q but the namespace is locked", lua.LVAsString(key))
		return 0
	}))
	s.l.SetMetatable(s.l.Env, mt)

	s.mu.Lock()
	s.frozen = true
	s.mu.Unlock()
	s.logger.Debug("global namespace frozen")
}

// Frozen reports whether the global namespace has been locked.
func (s *State) Frozen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frozen
}

// Global reads a global by name.
func (s *State) Global(name string) lua.LValue {
	return s.l.GetGlobal(name)
}

// SetGlobal installs a value under name with a raw set, bypassing the
// freeze metatable. Last write wins.
func (s *State) SetGlobal(name string, v lua.LValue) {
	s.l.Env.RawSetString(name, v)
}

// GlobalFunctions lists the names of all globals holding functions,
// excluding the internal trap. Sorted for stable output.
func (s *State) GlobalFunctions() []string {
	var names []string
	s.l.Env.ForEach(func(k, v lua.LValue) {
		ks, ok := k.(lua.LString)
		if !ok || string(ks) == trapGlobal {
			return
		}
		if _, ok := v.(*lua.LFunction); ok {
			names = append(names, string(ks))
		}
	})
	sort.Strings(names)
	return names
}

// NewFunction wraps a Go function as an engine function value.
func (s *State) NewFunction(fn lua.LGFunction) *lua.LFunction {
	return s.l.NewFunction(fn)
}

// NewCoroutine creates a coroutine sharing this state's global namespace.
func (s *State) NewCoroutine() *lua.LState {
	co, _ := s.l.NewThread()
	return co
}

// CoroutineStatus reports the engine's view of co: "suspended", "running",
// "normal" or "dead".
func (s *State) CoroutineStatus(co *lua.LState) string {
	return s.l.Status(co)
}

// ResumeOutcome classifies what a Resume call produced.
type ResumeOutcome int

const (
	// OutcomeYield means the coroutine suspended, voluntarily or because
	// the step budget ran out.
	OutcomeYield ResumeOutcome = iota
	// OutcomeDone means the bound function returned normally.
	OutcomeDone
	// OutcomeError means the coroutine terminated with an unrecovered
	// failure.
	OutcomeError
)

// Resume drives co until its next suspension, completion or failure.
// quantum is the step budget for this single resume; values carries
// whatever the coroutine yielded or returned.
func (s *State) Resume(ctx context.Context, co *lua.LState, fn *lua.LFunction, quantum int, args ...lua.LValue) (ResumeOutcome, []lua.LValue, error) {
	if s.Closed() {
		return OutcomeError, nil, errors.StateClosed(errors.PhasePump)
	}
	if quantum <= 0 {
		quantum = DefaultQuantum
	}

	s.mu.Lock()
	s.budgets[co] = quantum
	s.ctx = ctx
	s.mu.Unlock()

	st, err, values := s.l.Resume(co, fn, args...)

	s.mu.Lock()
	if s.budgets != nil {
		delete(s.budgets, co)
	}
	s.ctx = nil
	s.mu.Unlock()

	switch st {
	case lua.ResumeYield:
		return OutcomeYield, values, nil
	case lua.ResumeOK:
		return OutcomeDone, values, nil
	default:
		return OutcomeError, nil, Translate(errors.PhasePump, err)
	}
}

// stepTrap is the instrumented chunks' preemption point. When the running
// coroutine has a registered budget, each call burns one step; at zero the
// coroutine is forced to yield. Calls on the main state (the top-level
// chunk run) have no budget and fall through.
func (s *State) stepTrap(l *lua.LState) int {
	s.mu.Lock()
	rem, tracked := s.budgets[l]
	if tracked {
		rem--
		s.budgets[l] = rem
	}
	s.mu.Unlock()

	if tracked && rem <= 0 {
		return l.Yield()
	}
	return 0
}
