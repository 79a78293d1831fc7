package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "engine message",
			err: &Error{
				Phase:   PhaseLoad,
				Kind:    KindSyntax,
				Message: `line 1: syntax error near '('`,
			},
			contains: []string{"[load]", "syntax", "syntax error near"},
		},
		{
			name: "conversion with path",
			err: &Error{
				Phase:  PhaseConvert,
				Kind:   KindConversion,
				Path:   []string{"args", "2", "items"},
				Detail: "cannot convert chan int",
			},
			contains: []string{"[convert]", "conversion", "args.2.items", "cannot convert chan int"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhasePump,
				Kind:  KindThreadDone,
			},
			contains: []string{"[pump]", "thread_done"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseRegister,
				Kind:   KindInvalidInput,
				Detail: "handler must be a function",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[register]", "invalid_input", "handler must be a function", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLoad,
		Kind:  KindRuntime,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:   PhasePump,
		Kind:    KindRuntime,
		Message: "attempt to call a nil value",
	}

	if !err.Is(&Error{Phase: PhasePump, Kind: KindRuntime}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseLoad, Kind: KindRuntime}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhasePump, Kind: KindSyntax}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhasePump, Kind: KindRuntime}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match same phase and kind")
	}
	if errors.Is(err, errors.New("other")) {
		t.Error("errors.Is should not match a plain error")
	}
}

func TestIsKind(t *testing.T) {
	if !IsKind(Syntax(PhaseLoad, "boom"), KindSyntax) {
		t.Error("IsKind should match the syntax kind")
	}
	if IsKind(Syntax(PhaseLoad, "boom"), KindRuntime) {
		t.Error("IsKind should not match a different kind")
	}
	if IsKind(errors.New("plain"), KindSyntax) {
		t.Error("IsKind should not match a plain error")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("cause")
	err := New(PhaseConvert, KindConversion).
		Path("ret", "0").
		Detail("unsupported Go kind %s", "chan").
		Value(42).
		Cause(cause).
		Build()

	if err.Phase != PhaseConvert || err.Kind != KindConversion {
		t.Errorf("builder produced phase=%s kind=%s", err.Phase, err.Kind)
	}
	if len(err.Path) != 2 || err.Path[0] != "ret" {
		t.Errorf("builder path = %v", err.Path)
	}
	if err.Detail != "unsupported Go kind chan" {
		t.Errorf("builder detail = %q", err.Detail)
	}
	if err.Value != 42 {
		t.Errorf("builder value = %v", err.Value)
	}
	if !errors.Is(err, err) || err.Unwrap() != cause {
		t.Error("builder cause not preserved")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		err  *Error
		kind Kind
	}{
		{Syntax(PhaseLoad, "m"), KindSyntax},
		{Runtime(PhasePump, "m"), KindRuntime},
		{OutOfMemory(PhasePump, "m"), KindOutOfMemory},
		{ErrorHandler(PhasePump, "m"), KindErrorHandler},
		{NotAFunction("f", "nil"), KindNotAFunction},
		{Conversion(PhaseConvert, nil, "d"), KindConversion},
		{StateClosed(PhasePump), KindStateClosed},
		{ThreadDone("dead"), KindThreadDone},
		{PumpInFlight(), KindPumpInFlight},
		{GlobalsLocked(PhasePump, "m"), KindGlobalsLocked},
		{InvalidInput(PhaseRegister, "d"), KindInvalidInput},
		{NotFound(PhaseSpawn, "global", "f"), KindNotFound},
		{Unsupported(PhaseConvert, "d"), KindUnsupported},
	}
	for _, tt := range tests {
		if tt.err.Kind != tt.kind {
			t.Errorf("constructor produced kind %s, want %s", tt.err.Kind, tt.kind)
		}
	}

	nf := NotAFunction("tick", "string")
	if !strings.Contains(nf.Error(), `"tick"`) || !strings.Contains(nf.Error(), "string") {
		t.Errorf("NotAFunction message missing context: %q", nf.Error())
	}
}
