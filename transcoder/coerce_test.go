package transcoder

import (
	"reflect"
	"testing"

	"github.com/villagemud/lua-runtime/errors"
)

func TestCoerce_Numbers(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		target any
		want   any
		ok     bool
	}{
		{"int", 42.0, int(0), 42, true},
		{"int8 fits", 127.0, int8(0), int8(127), true},
		{"int8 overflow", 128.0, int8(0), nil, false},
		{"uint negative", -1.0, uint(0), nil, false},
		{"fractional to int", 1.5, int(0), nil, false},
		{"float32", 1.5, float32(0), float32(1.5), true},
		{"float64", 1.5, float64(0), 1.5, true},
		{"string to int", "7", int(0), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.in, reflect.TypeOf(tt.target))
			if tt.ok {
				if err != nil {
					t.Fatalf("coerce: %v", err)
				}
				if got.Interface() != tt.want {
					t.Errorf("Coerce = %v, want %v", got.Interface(), tt.want)
				}
				return
			}
			if !errors.IsKind(err, errors.KindConversion) {
				t.Errorf("err = %v, want conversion error", err)
			}
		})
	}
}

func TestCoerce_Containers(t *testing.T) {
	got, err := Coerce([]any{1.0, 2.0, 3.0}, reflect.TypeOf([]int(nil)))
	if err != nil {
		t.Fatalf("coerce slice: %v", err)
	}
	if want := []int{1, 2, 3}; !reflect.DeepEqual(got.Interface(), want) {
		t.Errorf("slice = %v, want %v", got.Interface(), want)
	}

	got, err = Coerce(map[string]any{"a": 1.0}, reflect.TypeOf(map[string]int(nil)))
	if err != nil {
		t.Fatalf("coerce map: %v", err)
	}
	if want := map[string]int{"a": 1}; !reflect.DeepEqual(got.Interface(), want) {
		t.Errorf("map = %v, want %v", got.Interface(), want)
	}

	got, err = Coerce("bytes", reflect.TypeOf([]byte(nil)))
	if err != nil {
		t.Fatalf("coerce bytes: %v", err)
	}
	if string(got.Interface().([]byte)) != "bytes" {
		t.Errorf("bytes = %q", got.Interface())
	}
}

func TestCoerce_Struct(t *testing.T) {
	type Target struct {
		DisplayName string
		HP          int `lua:"hp"`
	}

	got, err := Coerce(map[string]any{"display_name": "orc", "hp": 10.0}, reflect.TypeOf(Target{}))
	if err != nil {
		t.Fatalf("coerce: %v", err)
	}
	want := Target{DisplayName: "orc", HP: 10}
	if got.Interface() != want {
		t.Errorf("struct = %+v, want %+v", got.Interface(), want)
	}
}

func TestCoerce_NilTargets(t *testing.T) {
	got, err := Coerce(nil, reflect.TypeOf([]int(nil)))
	if err != nil || !got.IsNil() {
		t.Errorf("nil to slice = %v, %v; want nil slice", got, err)
	}

	if _, err := Coerce(nil, reflect.TypeOf(0)); !errors.IsKind(err, errors.KindConversion) {
		t.Errorf("nil to int err = %v, want conversion error", err)
	}
}

func TestCoerce_Any(t *testing.T) {
	got, err := Coerce(1.5, anyType)
	if err != nil || got.Interface() != 1.5 {
		t.Errorf("any = %v, %v", got, err)
	}
}
