package engine

import (
	stderrors "errors"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/villagemud/lua-runtime/errors"
)

// Translate maps an engine failure to a categorized error, reading the
// message the engine captured at failure time. It is a pure mapping: the
// engine state is not touched. Errors that are already categorized pass
// through unchanged.
func Translate(phase errors.Phase, err error) *errors.Error {
	if err == nil {
		return nil
	}
	if ee, ok := err.(*errors.Error); ok {
		return ee
	}

	var apiErr *lua.ApiError
	if !stderrors.As(err, &apiErr) {
		return errors.Wrap(phase, errors.KindRuntime, err, "engine failure")
	}

	msg := messageOf(apiErr)
	if strings.Contains(msg, lockedGlobalMark) {
		return errors.GlobalsLocked(phase, msg)
	}

	switch apiErr.Type {
	case lua.ApiErrorSyntax, lua.ApiErrorFile:
		return errors.Syntax(phase, msg)
	case lua.ApiErrorRun:
		return errors.Runtime(phase, msg)
	case lua.ApiErrorError:
		return errors.ErrorHandler(phase, msg)
	case lua.ApiErrorPanic:
		// The engine reports resource exhaustion (registry and call stack
		// overflow) by panicking; anything else that panics is still a
		// script-visible failure.
		if isExhaustion(msg) {
			return errors.OutOfMemory(phase, msg)
		}
		return errors.Runtime(phase, msg)
	default:
		return errors.Runtime(phase, msg)
	}
}

func isExhaustion(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "overflow") || strings.Contains(m, "out of memory")
}

// messageOf prefers the value the engine left in its error slot; the
// wrapped Go error text is the fallback for panics with no Lua value.
func messageOf(e *lua.ApiError) string {
	if e.Object != nil && e.Object != lua.LNil {
		if s := lua.LVAsString(e.Object); s != "" {
			return s
		}
	}
	return e.Error()
}
