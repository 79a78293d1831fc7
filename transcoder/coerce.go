package transcoder

import (
	"math"
	"reflect"
	"strconv"

	"github.com/villagemud/lua-runtime/errors"
)

var (
	anyType     = reflect.TypeOf((*any)(nil)).Elem()
	funcRefType = reflect.TypeOf((*FuncRef)(nil))
)

// Coerce adapts a decoded bridge value to the target Go type, for typed
// host functions. Numbers arrive from the bridge as float64 and narrow to
// any numeric target when they fit exactly; tables arrive as []any or
// map[string]any and coerce element-wise into slices, maps and structs.
func Coerce(v any, target reflect.Type) (reflect.Value, error) {
	return coerce(v, target, nil)
}

func coerce(v any, target reflect.Type, path []string) (reflect.Value, error) {
	if target == anyType {
		if v == nil {
			return reflect.Zero(anyType), nil
		}
		return reflect.ValueOf(v), nil
	}

	if v == nil {
		switch target.Kind() {
		case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
			return reflect.Zero(target), nil
		}
		return reflect.Value{}, errors.Conversion(errors.PhaseConvert, path,
			"nil cannot coerce to "+target.String())
	}

	if target == funcRefType {
		if r, ok := v.(*FuncRef); ok {
			return reflect.ValueOf(r), nil
		}
		return reflect.Value{}, mismatch(v, target, path)
	}

	switch target.Kind() {
	case reflect.Bool:
		if b, ok := v.(bool); ok {
			return reflect.ValueOf(b).Convert(target), nil
		}
		return reflect.Value{}, mismatch(v, target, path)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, ok := v.(float64)
		if !ok {
			return reflect.Value{}, mismatch(v, target, path)
		}
		if f != math.Trunc(f) {
			return reflect.Value{}, errors.Conversion(errors.PhaseConvert, path,
				"number has a fractional part, cannot coerce to "+target.String())
		}
		out := reflect.New(target).Elem()
		out.SetInt(int64(f))
		if float64(out.Int()) != f {
			return reflect.Value{}, errors.Conversion(errors.PhaseConvert, path,
				"number overflows "+target.String())
		}
		return out, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f, ok := v.(float64)
		if !ok {
			return reflect.Value{}, mismatch(v, target, path)
		}
		if f != math.Trunc(f) || f < 0 {
			return reflect.Value{}, errors.Conversion(errors.PhaseConvert, path,
				"number cannot coerce to "+target.String())
		}
		out := reflect.New(target).Elem()
		out.SetUint(uint64(f))
		if float64(out.Uint()) != f {
			return reflect.Value{}, errors.Conversion(errors.PhaseConvert, path,
				"number overflows "+target.String())
		}
		return out, nil

	case reflect.Float32, reflect.Float64:
		f, ok := v.(float64)
		if !ok {
			return reflect.Value{}, mismatch(v, target, path)
		}
		return reflect.ValueOf(f).Convert(target), nil

	case reflect.String:
		if s, ok := v.(string); ok {
			return reflect.ValueOf(s).Convert(target), nil
		}
		return reflect.Value{}, mismatch(v, target, path)

	case reflect.Slice:
		if target.Elem().Kind() == reflect.Uint8 {
			if s, ok := v.(string); ok {
				return reflect.ValueOf([]byte(s)), nil
			}
		}
		arr, ok := v.([]any)
		if !ok {
			return reflect.Value{}, mismatch(v, target, path)
		}
		out := reflect.MakeSlice(target, len(arr), len(arr))
		for i, el := range arr {
			ev, err := coerce(el, target.Elem(), append(path, strconv.Itoa(i)))
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(ev)
		}
		return out, nil

	case reflect.Map:
		if target.Key().Kind() != reflect.String {
			return reflect.Value{}, errors.Conversion(errors.PhaseConvert, path,
				"map targets must have string keys, got "+target.String())
		}
		m, ok := v.(map[string]any)
		if !ok {
			return reflect.Value{}, mismatch(v, target, path)
		}
		out := reflect.MakeMapWithSize(target, len(m))
		for k, el := range m {
			ev, err := coerce(el, target.Elem(), append(path, k))
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(target.Key()), ev)
		}
		return out, nil

	case reflect.Struct:
		m, ok := v.(map[string]any)
		if !ok {
			return reflect.Value{}, mismatch(v, target, path)
		}
		out := reflect.New(target).Elem()
		for i := 0; i < target.NumField(); i++ {
			f := target.Field(i)
			if !f.IsExported() {
				continue
			}
			name := ToSnakeCase(f.Name)
			if tag, ok := f.Tag.Lookup("lua"); ok {
				if tag == "-" {
					continue
				}
				if tag != "" {
					name = tag
				}
			}
			el, present := m[name]
			if !present {
				continue
			}
			fv, err := coerce(el, f.Type, append(path, name))
			if err != nil {
				return reflect.Value{}, err
			}
			out.Field(i).Set(fv)
		}
		return out, nil

	case reflect.Ptr:
		ev, err := coerce(v, target.Elem(), path)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(target.Elem())
		out.Elem().Set(ev)
		return out, nil

	default:
		return reflect.Value{}, errors.Conversion(errors.PhaseConvert, path,
			"unsupported target type "+target.String())
	}
}

func mismatch(v any, target reflect.Type, path []string) *errors.Error {
	return errors.New(errors.PhaseConvert, errors.KindConversion).
		Path(path...).
		Value(v).
		Detail("%s value cannot coerce to %s", KindOf(v), target.String()).
		Build()
}
