package runtime

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/villagemud/lua-runtime/engine"
	"github.com/villagemud/lua-runtime/errors"
	"github.com/villagemud/lua-runtime/transcoder"
)

// Runtime is one isolated scripting VM: a global namespace, the host
// functions registered into it, and the threads spawned from it. A Runtime
// is single-threaded by contract; concurrent pumps are rejected rather
// than interleaved.
type Runtime struct {
	mu      sync.Mutex
	state   *engine.State
	logger  *zap.Logger
	quantum int
	closed  bool
	pumping bool
}

// New creates a fresh VM with an empty global namespace. By default no
// stdlib is opened; use WithLibraries to opt in.
func New(opts ...Option) (*Runtime, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	state, err := engine.NewState(engine.Config{
		Libraries:     cfg.libraries,
		FreezeGlobals: cfg.freezeGlobals,
		CallStackSize: cfg.callStackSize,
		RegistrySize:  cfg.registrySize,
	})
	if err != nil {
		return nil, err
	}

	r := &Runtime{
		state:   state,
		logger:  cfg.logger,
		quantum: cfg.quantum,
	}
	r.logger.Debug("runtime created",
		zap.Strings("libraries", cfg.libraries),
		zap.Int("quantum", cfg.quantum))
	return r, nil
}

// Close releases the VM. It is idempotent and never fails. Threads spawned
// from this runtime survive as handles but every operation on them reports
// a closed state from then on.
func (r *Runtime) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.state.Close()
	r.logger.Debug("runtime closed")
}

// Closed reports whether Close has run.
func (r *Runtime) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Load compiles source as one chunk and runs it once at the top level.
// Definitions the chunk makes (globals, functions) persist; a compile
// failure leaves the namespace untouched.
func (r *Runtime) Load(ctx context.Context, source string) error {
	if r.Closed() {
		return errors.StateClosed(errors.PhaseLoad)
	}
	return r.state.CompileAndRun(ctx, source, "chunk")
}

// LoadFile reads path and loads it like Load, naming the chunk after the
// file for error messages.
func (r *Runtime) LoadFile(ctx context.Context, path string) error {
	if r.Closed() {
		return errors.StateClosed(errors.PhaseLoad)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "read script file")
	}
	return r.state.CompileAndRun(ctx, string(src), path)
}

// Functions lists the global function names the loaded scripts and host
// registrations have defined, sorted.
func (r *Runtime) Functions() []string {
	if r.Closed() {
		return nil
	}
	return r.state.GlobalFunctions()
}

// Global reads a global by name, decoded to Go. A missing global decodes
// to nil.
func (r *Runtime) Global(name string) (any, error) {
	if r.Closed() {
		return nil, errors.StateClosed(errors.PhaseConvert)
	}
	return transcoder.Decode(r.state.Global(name))
}

// SetGlobal installs a Go value as a script global. Like host function
// registration it is a raw set: last write wins and a frozen namespace
// does not reject it.
func (r *Runtime) SetGlobal(name string, v any) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseRegister, "global name cannot be empty")
	}
	if r.Closed() {
		return errors.StateClosed(errors.PhaseRegister)
	}
	lv, err := transcoder.Encode(r.state.LState(), v)
	if err != nil {
		return err
	}
	r.state.SetGlobal(name, lv)
	return nil
}

// Quantum returns the default step budget used for each pump.
func (r *Runtime) Quantum() int {
	return r.quantum
}

// beginPump claims the runtime's single execution slot. Exactly one pump
// may be in flight at a time; the engine state is not reentrant.
func (r *Runtime) beginPump() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.StateClosed(errors.PhasePump)
	}
	if r.pumping {
		return errors.PumpInFlight()
	}
	r.pumping = true
	return nil
}

func (r *Runtime) endPump() {
	r.mu.Lock()
	r.pumping = false
	r.mu.Unlock()
}

// busy reports whether the engine state must not be touched right now:
// either a pump is executing script or the runtime is closed.
func (r *Runtime) busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed || r.pumping
}
