// Package engine wraps the Lua engine behind the small surface the rest of
// the module needs: state creation and teardown, chunk compile-and-run,
// global access, coroutine resume with a step budget, and translation of
// engine failure statuses into categorized errors.
//
// # Preemption
//
// The engine has no instruction hook, so the step limiter is compiled into
// every chunk instead: Instrument injects calls to a hidden trap function
// at loop back-edges, labels and function entries before compilation. Each
// Resume arms a per-coroutine step budget; when the budget runs out the
// trap forces the coroutine to yield. The observable contract is the same
// as a count hook's: a resume of any script, including one that never
// yields on its own, returns after a bounded amount of work with the
// coroutine suspended and resumable.
//
// A step is therefore one trap crossing, not one VM instruction. The
// default budget is 10 steps per resume.
//
// # Environment
//
// States start bare: no stdlib at all. Config.Libraries opens selected
// stdlib modules; which facilities to expose is the caller's sandboxing
// decision, not this package's.
package engine
