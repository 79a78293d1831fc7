package runtime

import (
	"context"
	"reflect"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/villagemud/lua-runtime/errors"
	"github.com/villagemud/lua-runtime/transcoder"
)

// HostFunc is the generic shape of a host callable exposed to script.
// Arguments arrive decoded (numbers as float64, tables as []any or
// map[string]any, script functions as *transcoder.FuncRef); returned
// values are encoded back in order.
type HostFunc func(ctx context.Context, args ...any) ([]any, error)

// Host is the interface for struct-based host modules. All exported
// methods except Namespace are installed as fields of one table global
// named by Namespace.
type Host interface {
	Namespace() string
}

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// Register installs fn as a script-callable global. Registering the same
// name again replaces the previous binding: last write wins, and scripts
// that captured the old global keep calling the old function.
func (r *Runtime) Register(name string, fn HostFunc) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseRegister, "function name cannot be empty")
	}
	if fn == nil {
		return errors.InvalidInput(errors.PhaseRegister, "handler cannot be nil")
	}
	if r.Closed() {
		return errors.StateClosed(errors.PhaseRegister)
	}

	tramp := func(l *lua.LState) int {
		n := l.GetTop()
		args := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			v, err := transcoder.Decode(l.Get(i))
			if err != nil {
				l.RaiseError("%s: argument %d: %s", name, i, err.Error())
			}
			args = append(args, v)
		}

		rets, err := fn(r.state.Context(), args...)
		if err != nil {
			l.RaiseError("%s: %s", name, err.Error())
		}

		for _, rv := range rets {
			lv, err := transcoder.Encode(l, rv)
			if err != nil {
				l.RaiseError("%s: return value: %s", name, err.Error())
			}
			l.Push(lv)
		}
		return len(rets)
	}

	r.state.SetGlobal(name, r.state.NewFunction(tramp))
	r.logger.Debug("host function registered", zap.String("name", name))
	return nil
}

// RegisterFunc installs an arbitrary typed Go function as a script-callable
// global. Arguments are coerced to the parameter types; a leading
// context.Context parameter receives the context of the Load or Pump call
// in flight. A trailing error return becomes a script error when non-nil.
// Method values work: the receiver is captured on the Go side.
func (r *Runtime) RegisterFunc(name string, fn any) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseRegister, "function name cannot be empty")
	}
	rv := reflect.ValueOf(fn)
	if !rv.IsValid() || rv.Kind() != reflect.Func {
		return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Value(fn).
			Detail("handler must be a function, got %s", transcoder.KindOf(fn)).
			Build()
	}
	if r.Closed() {
		return errors.StateClosed(errors.PhaseRegister)
	}

	r.state.SetGlobal(name, r.state.NewFunction(r.typedTrampoline(name, rv)))
	r.logger.Debug("host function registered", zap.String("name", name))
	return nil
}

// RegisterHost installs all exported methods of h as fields of a table
// global named h.Namespace(). Method names are converted to snake_case
// (GetValue becomes get_value). Re-registering a namespace replaces the
// whole table.
func (r *Runtime) RegisterHost(h Host) error {
	ns := h.Namespace()
	if ns == "" {
		return errors.InvalidInput(errors.PhaseRegister, "namespace cannot be empty")
	}
	if r.Closed() {
		return errors.StateClosed(errors.PhaseRegister)
	}

	rv := reflect.ValueOf(h)
	rt := rv.Type()

	tbl := r.state.LState().NewTable()
	count := 0
	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)
		if !method.IsExported() || method.Name == "Namespace" {
			continue
		}
		field := transcoder.ToSnakeCase(method.Name)
		tbl.RawSetString(field, r.state.NewFunction(r.typedTrampoline(ns+"."+field, rv.Method(i))))
		count++
	}

	r.state.SetGlobal(ns, tbl)
	r.logger.Debug("host registered",
		zap.String("namespace", ns),
		zap.Int("functions", count))
	return nil
}

// typedTrampoline bridges a script call onto a typed Go function: decode
// each argument, coerce it to the parameter type, call, encode the
// results. Failures surface as script errors at the call site.
func (r *Runtime) typedTrampoline(name string, fn reflect.Value) lua.LGFunction {
	ft := fn.Type()
	wantsCtx := ft.NumIn() > 0 && ft.In(0) == ctxType
	returnsErr := ft.NumOut() > 0 && ft.Out(ft.NumOut()-1) == errType

	fixed := ft.NumIn()
	if wantsCtx {
		fixed--
	}
	if ft.IsVariadic() {
		fixed--
	}

	return func(l *lua.LState) int {
		n := l.GetTop()
		if n < fixed || (!ft.IsVariadic() && n > fixed) {
			l.RaiseError("%s expects %d arguments, got %d", name, fixed, n)
		}

		in := make([]reflect.Value, 0, n+1)
		offset := 0
		if wantsCtx {
			in = append(in, reflect.ValueOf(r.state.Context()))
			offset = 1
		}

		for i := 1; i <= n; i++ {
			pi := offset + i - 1
			var target reflect.Type
			if ft.IsVariadic() && pi >= ft.NumIn()-1 {
				target = ft.In(ft.NumIn() - 1).Elem()
			} else {
				target = ft.In(pi)
			}

			v, err := transcoder.Decode(l.Get(i))
			if err != nil {
				l.RaiseError("%s: argument %d: %s", name, i, err.Error())
			}
			cv, err := transcoder.Coerce(v, target)
			if err != nil {
				l.RaiseError("%s: argument %d: %s", name, i, err.Error())
			}
			in = append(in, cv)
		}

		out := fn.Call(in)
		if returnsErr {
			if ev := out[len(out)-1]; !ev.IsNil() {
				l.RaiseError("%s: %s", name, ev.Interface().(error).Error())
			}
			out = out[:len(out)-1]
		}

		for _, ov := range out {
			lv, err := transcoder.Encode(l, ov.Interface())
			if err != nil {
				l.RaiseError("%s: return value: %s", name, err.Error())
			}
			l.Push(lv)
		}
		return len(out)
	}
}
