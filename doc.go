// Package luaruntime embeds cooperatively scheduled Lua scripting in Go
// applications.
//
// A host creates an isolated VM, loads Lua source into it, exposes Go
// functions as script-callable globals, and drives script functions as
// threads pumped in bounded increments. Scripts cannot monopolize the
// host: every pump grants a fixed step budget and returns when it is
// spent, so even an infinite loop yields control back after each pump.
//
// # Architecture Overview
//
// The library is organized into packages with distinct responsibilities:
//
//	lua-runtime/
//	├── runtime/         High-level API: VM lifecycle, host functions, threads
//	├── engine/          Low-level Lua engine integration and the step limiter
//	├── transcoder/      Value conversion between Go and Lua
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
//	rt, err := runtime.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	rt.RegisterFunc("greet", func(name string) string {
//	    return "Hello, " + name
//	})
//
//	err = rt.Load(ctx, `message = greet("World")`)
//	msg, err := rt.Global("message") // "Hello, World"
//
// # Threads
//
// Script functions run as threads: spawned suspended, then pumped by the
// host one bounded step budget at a time. The host decides fairness; the
// library guarantees each pump returns.
//
//	th, _ := rt.Spawn("patrol")
//	for th.Status() == runtime.StateSuspended {
//	    th.Pump(ctx)
//	}
//
// # Sandboxing
//
// A new VM is bare: no stdlib, no file or network access. Everything a
// script can do is something the host registered or opted into.
package luaruntime
