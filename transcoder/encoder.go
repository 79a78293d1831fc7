package transcoder

import (
	"reflect"
	"strconv"
	"strings"
	"unicode"

	lua "github.com/yuin/gopher-lua"

	"github.com/villagemud/lua-runtime/errors"
)

// maxDepth bounds nesting on both encode and decode so a pathological
// value cannot blow the Go stack.
const maxDepth = 64

// Encode converts a Go value to a Lua value. Supported kinds: nil, bool,
// all integer and float types, string, []byte (as string), maps with
// string or integer keys, slices, arrays, structs (exported fields, field
// names in snake_case, `lua` tags honored), pointers to any of these,
// FuncRef, and raw lua.LValue passthrough. Everything else fails with a
// conversion error.
func Encode(l *lua.LState, v any) (lua.LValue, error) {
	e := encoder{l: l, seen: make(map[uintptr]bool)}
	return e.encode(v, nil, 0)
}

type encoder struct {
	l    *lua.LState
	seen map[uintptr]bool
}

func (e *encoder) encode(v any, path []string, depth int) (lua.LValue, error) {
	if depth > maxDepth {
		return nil, errors.Conversion(errors.PhaseConvert, path, "value nesting exceeds depth limit")
	}
	if v == nil {
		return lua.LNil, nil
	}

	switch tv := v.(type) {
	case lua.LValue:
		return tv, nil
	case *FuncRef:
		if tv == nil || tv.fn == nil {
			return lua.LNil, nil
		}
		return tv.fn, nil
	case bool:
		return lua.LBool(tv), nil
	case string:
		return lua.LString(tv), nil
	case []byte:
		return lua.LString(tv), nil
	case int:
		return lua.LNumber(tv), nil
	case int8:
		return lua.LNumber(tv), nil
	case int16:
		return lua.LNumber(tv), nil
	case int32:
		return lua.LNumber(tv), nil
	case int64:
		return lua.LNumber(tv), nil
	case uint:
		return lua.LNumber(tv), nil
	case uint8:
		return lua.LNumber(tv), nil
	case uint16:
		return lua.LNumber(tv), nil
	case uint32:
		return lua.LNumber(tv), nil
	case uint64:
		return lua.LNumber(tv), nil
	case float32:
		return lua.LNumber(tv), nil
	case float64:
		return lua.LNumber(tv), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return lua.LNil, nil
		}
		if err := e.enter(rv.Pointer(), path); err != nil {
			return nil, err
		}
		defer e.leave(rv.Pointer())
		return e.encode(rv.Elem().Interface(), path, depth+1)

	case reflect.Slice:
		if rv.IsNil() {
			return lua.LNil, nil
		}
		if err := e.enter(rv.Pointer(), path); err != nil {
			return nil, err
		}
		defer e.leave(rv.Pointer())
		return e.encodeSequence(rv, path, depth)

	case reflect.Array:
		return e.encodeSequence(rv, path, depth)

	case reflect.Map:
		if rv.IsNil() {
			return lua.LNil, nil
		}
		if err := e.enter(rv.Pointer(), path); err != nil {
			return nil, err
		}
		defer e.leave(rv.Pointer())
		return e.encodeMap(rv, path, depth)

	case reflect.Struct:
		return e.encodeStruct(rv, path, depth)

	case reflect.Func:
		return nil, errors.Conversion(errors.PhaseConvert, path,
			"bare Go functions cannot cross the bridge; register them as host functions or pass a FuncRef")

	default:
		return nil, errors.New(errors.PhaseConvert, errors.KindConversion).
			Path(path...).
			Value(v).
			Detail("unsupported Go kind %s", rv.Kind()).
			Build()
	}
}

func (e *encoder) enter(p uintptr, path []string) error {
	if e.seen[p] {
		return errors.Conversion(errors.PhaseConvert, path, "cyclic value")
	}
	e.seen[p] = true
	return nil
}

func (e *encoder) leave(p uintptr) {
	delete(e.seen, p)
}

func (e *encoder) encodeSequence(rv reflect.Value, path []string, depth int) (lua.LValue, error) {
	tbl := e.l.CreateTable(rv.Len(), 0)
	for i := 0; i < rv.Len(); i++ {
		lv, err := e.encode(rv.Index(i).Interface(), append(path, strconv.Itoa(i)), depth+1)
		if err != nil {
			return nil, err
		}
		tbl.RawSetInt(i+1, lv)
	}
	return tbl, nil
}

func (e *encoder) encodeMap(rv reflect.Value, path []string, depth int) (lua.LValue, error) {
	tbl := e.l.CreateTable(0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key()
		var key lua.LValue
		switch k.Kind() {
		case reflect.String:
			key = lua.LString(k.String())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			key = lua.LNumber(k.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			key = lua.LNumber(k.Uint())
		default:
			return nil, errors.Conversion(errors.PhaseConvert, path,
				"map keys must be strings or integers, got "+k.Kind().String())
		}

		lv, err := e.encode(iter.Value().Interface(), append(path, keyString(k)), depth+1)
		if err != nil {
			return nil, err
		}
		tbl.RawSet(key, lv)
	}
	return tbl, nil
}

func (e *encoder) encodeStruct(rv reflect.Value, path []string, depth int) (lua.LValue, error) {
	rt := rv.Type()
	tbl := e.l.CreateTable(0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
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
		lv, err := e.encode(rv.Field(i).Interface(), append(path, name), depth+1)
		if err != nil {
			return nil, err
		}
		tbl.RawSetString(name, lv)
	}
	return tbl, nil
}

func keyString(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return strconv.FormatInt(int64(k.Convert(reflect.TypeOf(int64(0))).Int()), 10)
}

// ToSnakeCase converts a PascalCase identifier to snake_case. An acronym
// run stays together and splits before a trailing word (HTTPStatus becomes
// http_status). Adjacent acronyms cannot be told apart without a
// dictionary, so they stay one run (GetHTTPURL becomes get_httpurl).
func ToSnakeCase(s string) string {
	if len(s) == 0 {
		return ""
	}

	runes := []rune(s)
	var result strings.Builder

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if unicode.IsUpper(r) {
			acronymEnd := i + 1
			for acronymEnd < len(runes) && unicode.IsUpper(runes[acronymEnd]) {
				acronymEnd++
			}

			if acronymEnd > i+1 {
				// Last uppercase before lowercase starts next word, not part of acronym
				if acronymEnd < len(runes) && unicode.IsLower(runes[acronymEnd]) {
					acronymEnd--
				}
			}

			if i > 0 {
				result.WriteByte('_')
			}

			for j := i; j < acronymEnd; j++ {
				result.WriteRune(unicode.ToLower(runes[j]))
			}
			i = acronymEnd - 1 // -1 because loop will increment
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
