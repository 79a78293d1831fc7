package transcoder

import (
	"strconv"

	lua "github.com/yuin/gopher-lua"

	"github.com/villagemud/lua-runtime/errors"
)

// Decode converts a Lua value to a Go value. Numbers come back as float64,
// tables with contiguous integer keys starting at 1 become []any, other
// tables become map[string]any (integer keys are formatted), functions
// become *FuncRef and userdata yields its wrapped Go value. Unsupported
// kinds fail with a conversion error.
func Decode(lv lua.LValue) (any, error) {
	d := decoder{seen: make(map[*lua.LTable]bool)}
	return d.decode(lv, nil, 0)
}

// DecodeMulti decodes a value list, such as coroutine yield results or
// host call arguments, preserving order.
func DecodeMulti(lvs []lua.LValue) ([]any, error) {
	if len(lvs) == 0 {
		return nil, nil
	}
	out := make([]any, len(lvs))
	d := decoder{seen: make(map[*lua.LTable]bool)}
	for i, lv := range lvs {
		v, err := d.decode(lv, []string{strconv.Itoa(i)}, 0)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type decoder struct {
	seen map[*lua.LTable]bool
}

func (d *decoder) decode(lv lua.LValue, path []string, depth int) (any, error) {
	if depth > maxDepth {
		return nil, errors.Conversion(errors.PhaseConvert, path, "value nesting exceeds depth limit")
	}

	switch v := lv.(type) {
	case nil, *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(v), nil
	case lua.LNumber:
		return float64(v), nil
	case lua.LString:
		return string(v), nil
	case *lua.LFunction:
		return NewFuncRef(v), nil
	case *lua.LUserData:
		if v.Value != nil {
			return v.Value, nil
		}
		return nil, errors.Conversion(errors.PhaseConvert, path, "userdata carries no Go value")
	case *lua.LTable:
		return d.decodeTable(v, path, depth)
	default:
		return nil, errors.New(errors.PhaseConvert, errors.KindConversion).
			Path(path...).
			Detail("unsupported Lua kind %s", lv.Type().String()).
			Build()
	}
}

func (d *decoder) decodeTable(tbl *lua.LTable, path []string, depth int) (any, error) {
	if d.seen[tbl] {
		return nil, errors.Conversion(errors.PhaseConvert, path, "cyclic table")
	}
	d.seen[tbl] = true
	defer delete(d.seen, tbl)

	type entry struct {
		key lua.LValue
		val lua.LValue
	}
	var entries []entry
	tbl.ForEach(func(k, v lua.LValue) {
		entries = append(entries, entry{k, v})
	})

	if _, ok := arrayKeys(entries, func(e entry) lua.LValue { return e.key }); ok {
		out := make([]any, len(entries))
		for _, e := range entries {
			idx := int(e.key.(lua.LNumber)) - 1
			v, err := d.decode(e.val, append(path, strconv.Itoa(idx)), depth+1)
			if err != nil {
				return nil, err
			}
			out[idx] = v
		}
		return out, nil
	}

	out := make(map[string]any, len(entries))
	for _, e := range entries {
		var key string
		switch k := e.key.(type) {
		case lua.LString:
			key = string(k)
		case lua.LNumber:
			key = strconv.FormatFloat(float64(k), 'g', -1, 64)
		default:
			return nil, errors.Conversion(errors.PhaseConvert, path,
				"table keys must be strings or numbers, got "+e.key.Type().String())
		}
		v, err := d.decode(e.val, append(path, key), depth+1)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

// arrayKeys reports whether every key is an integer and together they form
// the contiguous range 1..n.
func arrayKeys[T any](entries []T, key func(T) lua.LValue) (int, bool) {
	if len(entries) == 0 {
		return 0, false
	}
	present := make(map[int]bool, len(entries))
	for _, e := range entries {
		n, ok := key(e).(lua.LNumber)
		if !ok {
			return 0, false
		}
		f := float64(n)
		i := int(f)
		if float64(i) != f || i < 1 {
			return 0, false
		}
		present[i] = true
	}
	if len(present) != len(entries) {
		return 0, false
	}
	for i := 1; i <= len(entries); i++ {
		if !present[i] {
			return 0, false
		}
	}
	return len(entries), true
}
