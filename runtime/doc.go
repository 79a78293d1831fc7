// Package runtime provides the high-level API for embedding scripted
// behavior in a host application.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	// Load a script; its top level runs once
//	err = rt.Load(ctx, `
//	    function patrol()
//	        while true do
//	            step()
//	        end
//	    end
//	`)
//
//	// Drive a script function as a cooperative thread
//	th, err := rt.Spawn("patrol")
//	for th.Status() == runtime.StateSuspended {
//	    if _, err := th.Pump(ctx); err != nil {
//	        break
//	    }
//	}
//
// # Host Functions
//
// Register Go functions as script-callable globals:
//
//	// Generic shape: decoded args in, values out
//	rt.Register("step", func(ctx context.Context, args ...any) ([]any, error) {
//	    return nil, world.Step()
//	})
//
//	// Or a typed function; arguments are coerced
//	rt.RegisterFunc("move", func(ctx context.Context, dx, dy int) error {
//	    return world.Move(dx, dy)
//	})
//
//	// Or implement the Host interface for a whole namespace table
//	rt.RegisterHost(worldAPI) // script sees world.move(), world.look()...
//
// Registration is last-write-wins: installing a name again replaces the
// binding, though scripts that captured the old global in a local keep it.
//
// # Threads
//
// A Thread is one script function driven in bounded increments. Each Pump
// grants a step budget (WithQuantum, default 10) and returns when the
// budget is spent, the function yields on its own, returns, or fails. A
// busy loop therefore cannot monopolize the host: every pump comes back,
// leaving the thread Suspended. A thread whose function returned is Dead;
// one that failed is in the error state and exposes the failure via Err.
// Neither can be pumped again.
//
// Threads share the runtime's global namespace. A failing thread stops
// alone; siblings and globals are untouched.
//
// # Sandboxing
//
// The VM starts bare: no stdlib, no I/O, nothing a script can reach
// except what the host registers. WithLibraries opens selected stdlib
// modules; WithFrozenGlobals locks the global namespace against new
// top-level keys after the first successful Load.
//
// # Thread Safety
//
// A Runtime and its Threads must be driven from one goroutine at a time.
// Concurrent pumps are not interleaved: the second caller gets a
// pump-in-flight error immediately.
//
// # Resource Management
//
// Close releases the VM; it is idempotent and never fails. Thread handles
// outlive Close, but every operation on them reports a closed state from
// then on.
package runtime
