package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which runtime operation the error came from
type Phase string

const (
	PhaseLoad     Phase = "load"     // chunk compilation and top-level run
	PhaseRegister Phase = "register" // host function registration
	PhaseSpawn    Phase = "spawn"    // thread creation
	PhasePump     Phase = "pump"     // thread resumption
	PhaseConvert  Phase = "convert"  // Go <-> Lua value conversion
	PhaseClose    Phase = "close"    // state teardown
)

// Kind categorizes the error. The first four kinds mirror the engine's
// failure statuses; the rest are produced by the embedding layer itself.
type Kind string

const (
	// Engine-status kinds.
	KindSyntax       Kind = "syntax"
	KindRuntime      Kind = "runtime"
	KindOutOfMemory  Kind = "out_of_memory"
	KindErrorHandler Kind = "error_handler" // failure inside the error handler

	// Embedding-layer kinds.
	KindNotAFunction  Kind = "not_a_function"
	KindConversion    Kind = "conversion"
	KindStateClosed   Kind = "state_closed"
	KindThreadDone    Kind = "thread_done"
	KindPumpInFlight  Kind = "pump_in_flight"
	KindGlobalsLocked Kind = "globals_locked"
	KindInvalidInput  Kind = "invalid_input"
	KindNotFound      Kind = "not_found"
	KindUnsupported   Kind = "unsupported"
)

// Error is the structured error type used throughout the module.
// Message carries the text the engine left in its error slot at failure
// time; Detail is context added by the embedding layer.
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	Message string
	Detail  string
	Path    []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}

	if e.Detail != "" {
		if e.Message != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the value path for conversion errors
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Message sets the engine-captured message
func (b *Builder) Message(msg string) *Builder {
	b.err.Message = msg
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Syntax creates a compile failure error carrying the engine's message
func Syntax(phase Phase, message string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindSyntax,
		Message: message,
	}
}

// Runtime creates an execution failure error carrying the engine's message
func Runtime(phase Phase, message string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindRuntime,
		Message: message,
	}
}

// OutOfMemory creates a resource exhaustion error
func OutOfMemory(phase Phase, message string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindOutOfMemory,
		Message: message,
	}
}

// ErrorHandler creates an error for a failure raised while the engine was
// already handling an error
func ErrorHandler(phase Phase, message string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindErrorHandler,
		Message: message,
	}
}

// NotAFunction creates a spawn-time lookup failure error
func NotAFunction(name string, got string) *Error {
	return &Error{
		Phase:  PhaseSpawn,
		Kind:   KindNotAFunction,
		Detail: fmt.Sprintf("global %q is %s, not a function", name, got),
	}
}

// Conversion creates a value conversion error
func Conversion(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindConversion,
		Path:   path,
		Detail: detail,
	}
}

// StateClosed reports an operation attempted on a closed VM state
func StateClosed(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindStateClosed,
		Detail: "VM state has been closed",
	}
}

// ThreadDone reports a pump of a thread that already finished
func ThreadDone(state string) *Error {
	return &Error{
		Phase:  PhasePump,
		Kind:   KindThreadDone,
		Detail: fmt.Sprintf("thread is %s and cannot be pumped again", state),
	}
}

// PumpInFlight reports a pump attempted while another pump of the same VM
// state had not returned
func PumpInFlight() *Error {
	return &Error{
		Phase:  PhasePump,
		Kind:   KindPumpInFlight,
		Detail: "another pump on this VM state is still in flight",
	}
}

// GlobalsLocked reports a top-level assignment after the global namespace
// was frozen
func GlobalsLocked(phase Phase, message string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindGlobalsLocked,
		Message: message,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Unsupported creates an unsupported value/operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
