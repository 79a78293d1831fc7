package transcoder

import (
	"fmt"
	"reflect"

	lua "github.com/yuin/gopher-lua"
)

// Kind enumerates the value kinds the bridge can carry between Go and Lua.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindString
	KindTable
	KindFunction
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindTable:
		return "table"
	case KindFunction:
		return "function"
	default:
		return "unknown"
	}
}

// KindOf classifies a Go value.
func KindOf(v any) Kind {
	if v == nil {
		return KindNil
	}
	switch v.(type) {
	case *FuncRef:
		return KindFunction
	case bool:
		return KindBool
	case string, []byte:
		return KindString
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return KindNumber
	case reflect.String:
		return KindString
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return KindTable
	case reflect.Ptr:
		if rv.IsNil() {
			return KindNil
		}
		return KindOf(rv.Elem().Interface())
	default:
		return KindUnknown
	}
}

// LuaKindOf classifies a Lua value.
func LuaKindOf(lv lua.LValue) Kind {
	switch lv.(type) {
	case nil, *lua.LNilType:
		return KindNil
	case lua.LBool:
		return KindBool
	case lua.LNumber:
		return KindNumber
	case lua.LString:
		return KindString
	case *lua.LTable:
		return KindTable
	case *lua.LFunction:
		return KindFunction
	default:
		return KindUnknown
	}
}

// FuncRef is an opaque reference to a script function. It round-trips
// through host callables unchanged: a script can hand a callback to the
// host and the host can pass it back as an argument later. The host cannot
// invoke it directly; only script code resumed by the scheduler can.
type FuncRef struct {
	fn *lua.LFunction
}

// NewFuncRef wraps an engine function value.
func NewFuncRef(fn *lua.LFunction) *FuncRef {
	return &FuncRef{fn: fn}
}

// Lua returns the wrapped engine function value.
func (r *FuncRef) Lua() *lua.LFunction {
	return r.fn
}

func (r *FuncRef) String() string {
	return fmt.Sprintf("funcref(%p)", r.fn)
}
