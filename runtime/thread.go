package runtime

import (
	"context"
	"strconv"
	"sync"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/villagemud/lua-runtime/engine"
	"github.com/villagemud/lua-runtime/errors"
	"github.com/villagemud/lua-runtime/transcoder"
)

// State is a thread's lifecycle state.
type State int

const (
	// StateSuspended means the thread can be pumped: either it has not
	// started yet, or its last pump ended in a yield.
	StateSuspended State = iota
	// StateRunning means a pump of this thread is in flight.
	StateRunning
	// StateNormal means the thread has resumed another coroutine and is
	// waiting for it.
	StateNormal
	// StateDead means the thread's function returned; the thread cannot be
	// pumped again.
	StateDead
	// StateError means the thread terminated with an unrecovered failure.
	StateError
)

func (s State) String() string {
	switch s {
	case StateSuspended:
		return "suspended"
	case StateRunning:
		return "running"
	case StateNormal:
		return "normal"
	case StateDead:
		return "dead"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

func stateFromStatus(status string, err error) State {
	switch status {
	case "suspended":
		return StateSuspended
	case "running":
		return StateRunning
	case "normal":
		return StateNormal
	default:
		if err != nil {
			return StateError
		}
		return StateDead
	}
}

// Thread is one cooperatively scheduled script function. It shares the
// runtime's global namespace with every other thread; only its stack is
// its own. Threads never run on their own: each Pump grants a bounded
// step budget and returns when it is spent or the function yields,
// finishes or fails.
type Thread struct {
	id      uuid.UUID
	name    string
	rt      *Runtime
	co      *lua.LState
	fn      *lua.LFunction
	quantum int

	mu     sync.Mutex
	state  State
	args   []lua.LValue
	values []lua.LValue
	err    error
}

// Spawn creates a thread bound to the global function named funcname. The
// function does not start running; the first Pump does that. Spawning a
// global that is missing or holds a non-function fails up front.
func (r *Runtime) Spawn(funcname string, opts ...SpawnOption) (*Thread, error) {
	if r.Closed() {
		return nil, errors.StateClosed(errors.PhaseSpawn)
	}

	cfg := spawnConfig{quantum: r.quantum}
	for _, opt := range opts {
		opt(&cfg)
	}

	gv := r.state.Global(funcname)
	fn, ok := gv.(*lua.LFunction)
	if !ok {
		return nil, errors.NotAFunction(funcname, transcoder.LuaKindOf(gv).String())
	}

	var args []lua.LValue
	for i, a := range cfg.args {
		lv, err := transcoder.Encode(r.state.LState(), a)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseSpawn, errors.KindConversion, err,
				"spawn argument "+strconv.Itoa(i+1))
		}
		args = append(args, lv)
	}

	t := &Thread{
		id:      uuid.New(),
		name:    funcname,
		rt:      r,
		co:      r.state.NewCoroutine(),
		fn:      fn,
		quantum: cfg.quantum,
		state:   StateSuspended,
		args:    args,
	}
	r.logger.Debug("thread spawned",
		zap.String("thread", t.id.String()),
		zap.String("function", funcname),
		zap.Int("quantum", cfg.quantum))
	return t, nil
}

// ID returns the thread's identifier.
func (t *Thread) ID() string { return t.id.String() }

// Name returns the name of the global function the thread is bound to.
func (t *Thread) Name() string { return t.name }

// Quantum returns the step budget each pump grants this thread.
func (t *Thread) Quantum() int { return t.quantum }

// Err returns the failure that moved the thread into StateError, or nil.
func (t *Thread) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Status reports the thread's current state. It never runs script.
func (t *Thread) Status() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateDead || t.state == StateError {
		return t.state
	}
	// The engine view is only safe to consult while nothing executes.
	if t.rt.busy() {
		return t.state
	}
	return stateFromStatus(t.rt.state.CoroutineStatus(t.co), t.err)
}

// Pump resumes the thread and runs it until it spends its step budget,
// yields on its own, returns, or fails. Exactly one pump may be in flight
// per runtime; a pump of a Dead or ErrorState thread fails without
// touching the engine. The returned State is the state the pump left the
// thread in.
func (t *Thread) Pump(ctx context.Context) (State, error) {
	t.mu.Lock()
	if t.state == StateDead || t.state == StateError {
		st := t.state
		t.mu.Unlock()
		return st, errors.ThreadDone(st.String())
	}
	args := t.args
	t.args = nil
	t.mu.Unlock()

	if err := t.rt.beginPump(); err != nil {
		t.mu.Lock()
		t.args = args
		st := t.state
		t.mu.Unlock()
		return st, err
	}

	t.setState(StateRunning)
	outcome, values, rerr := t.rt.state.Resume(ctx, t.co, t.fn, t.quantum, args...)
	t.rt.endPump()

	t.mu.Lock()
	defer t.mu.Unlock()
	switch outcome {
	case engine.OutcomeYield:
		t.state = StateSuspended
	case engine.OutcomeDone:
		t.state = StateDead
		t.values = values
	default:
		t.state = StateError
		t.err = rerr
		t.rt.logger.Debug("thread failed",
			zap.String("thread", t.id.String()),
			zap.Error(rerr))
		return t.state, rerr
	}
	return t.state, nil
}

// Values returns the values the thread's function returned, decoded. Only
// a Dead thread has values.
func (t *Thread) Values() ([]any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateDead {
		return nil, errors.InvalidInput(errors.PhasePump,
			"thread is "+t.state.String()+", values exist only after normal completion")
	}
	return transcoder.DecodeMulti(t.values)
}

func (t *Thread) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}
