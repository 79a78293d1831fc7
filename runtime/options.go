package runtime

import (
	"go.uber.org/zap"

	"github.com/villagemud/lua-runtime/engine"
)

type config struct {
	libraries     []string
	freezeGlobals bool
	quantum       int
	callStackSize int
	registrySize  int
	logger        *zap.Logger
}

func defaultConfig() config {
	return config{
		quantum: engine.DefaultQuantum,
		logger:  zap.NewNop(),
	}
}

// Option configures a Runtime at creation time.
type Option func(*config)

// WithLibraries opens the named stdlib modules into the VM ("base",
// "table", "string", "math", "coroutine", "os", "io", "debug", "channel",
// "package"). Without it the environment is bare.
func WithLibraries(names ...string) Option {
	return func(c *config) { c.libraries = append(c.libraries, names...) }
}

// WithFrozenGlobals locks the global namespace against new top-level keys
// after the first successful Load. Host registration still goes through.
func WithFrozenGlobals() Option {
	return func(c *config) { c.freezeGlobals = true }
}

// WithQuantum sets the default step budget each pump grants a thread.
// Values below one fall back to the engine default.
func WithQuantum(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.quantum = n
		}
	}
}

// WithLogger sets the logger for runtime lifecycle events. Defaults to a
// nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCallStackSize sets the engine call stack depth. Zero keeps the
// engine default.
func WithCallStackSize(n int) Option {
	return func(c *config) { c.callStackSize = n }
}

// WithRegistrySize sets the engine registry size. Zero keeps the engine
// default.
func WithRegistrySize(n int) Option {
	return func(c *config) { c.registrySize = n }
}

type spawnConfig struct {
	quantum int
	args    []any
}

// SpawnOption configures a single thread at spawn time.
type SpawnOption func(*spawnConfig)

// SpawnWithQuantum overrides the runtime's default step budget for this
// thread only.
func SpawnWithQuantum(n int) SpawnOption {
	return func(c *spawnConfig) {
		if n > 0 {
			c.quantum = n
		}
	}
}

// SpawnWithArgs passes arguments to the thread's function on its first
// pump. They are converted at spawn time, so a bad value fails the spawn
// rather than the pump.
func SpawnWithArgs(args ...any) SpawnOption {
	return func(c *spawnConfig) { c.args = args }
}
