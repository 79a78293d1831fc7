// Package transcoder converts values between Go and the Lua engine's type
// system.
//
// The bridge carries an explicit set of kinds: nil, bool, number, string,
// table and function. Encode maps Go values onto them (maps, slices,
// arrays and structs all become tables; struct field names are converted
// to snake_case, with `lua` tags overriding). Decode maps Lua values back:
// numbers become float64, tables become []any or map[string]any, and
// functions become opaque FuncRef handles a host callable can hold and
// hand back to script later.
//
// Anything outside the kind set (channels, bare Go funcs, userdata with
// no wrapped value) fails with a conversion error rather than crossing
// the bridge in an undefined shape. Both directions guard against cycles
// and excessive nesting.
//
// Coerce adapts decoded values to concrete Go types for typed host
// functions, narrowing float64 to integer types only when the value fits
// exactly.
package transcoder
