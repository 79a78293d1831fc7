// Package errors provides structured error types for the lua-runtime library.
//
// Errors are categorized by Phase (which operation failed) and Kind (error
// category). The engine-status kinds (syntax, runtime, out_of_memory,
// error_handler) correspond to the Lua engine's own failure statuses and
// carry the message the engine left in its error slot at failure time.
// The remaining kinds are raised by the embedding layer itself: conversion
// failures in the host function bridge, lifecycle violations such as pumping
// a finished thread or operating on a closed VM state, and spawn-time lookup
// failures (not_a_function).
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConvert, errors.KindConversion).
//		Path("args", "2").
//		Detail("cannot convert chan int to a Lua value").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Syntax(errors.PhaseLoad, msg)
//	err := errors.NotAFunction("tick", "nil")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
