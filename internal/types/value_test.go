package types

import (
	"errors"
	"math"
	"testing"
)

type celsius float64

type sku string

type reading struct{ v int }

func (r reading) MatchValue() Value { return Int(int64(r.v)) }

func TestValueOf(t *testing.T) {
	seven := 7
	var nilPtr *int

	tests := []struct {
		name     string
		input    any
		expected Value
	}{
		{"int", 42, Int(42)},
		{"int8", int8(-8), Int(-8)},
		{"int16", int16(300), Int(300)},
		{"int32", int32(-70000), Int(-70000)},
		{"int64 min", int64(math.MinInt64), Int(math.MinInt64)},
		{"uint8", uint8(255), Uint(255)},
		{"uint16", uint16(65535), Uint(65535)},
		{"uint32", uint32(1 << 31), Uint(1 << 31)},
		{"uint64 max", uint64(math.MaxUint64), Uint(math.MaxUint64)},
		{"float32", float32(1.5), Float(1.5)},
		{"float64", 2.25, Float(2.25)},
		{"bool", true, Bool(true)},
		{"string", "hello", String("hello")},
		{"nil", nil, None()},
		{"nil pointer", nilPtr, None()},
		{"pointer", &seven, Some(Int(7))},
		{"slice", []string{"a", "b", "c"}, Length(3)},
		{"map", map[string]int{"a": 1}, Length(1)},
		{"array", [2]int{1, 2}, Length(2)},
		{"named float", celsius(21.5), Float(21.5)},
		{"named string", sku("A-1"), String("A-1")},
		{"valuer", reading{v: 9}, Int(9)},
		{"value passthrough", Char('x'), Char('x')},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValueOf(tt.input)
			if err != nil {
				t.Fatalf("ValueOf(%v) error = %v", tt.input, err)
			}
			if !got.Equal(tt.expected) {
				t.Errorf("ValueOf(%v) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestValueOf_Unsupported(t *testing.T) {
	for _, input := range []any{struct{}{}, func() {}, complex(1, 2)} {
		_, err := ValueOf(input)
		if !errors.Is(err, ErrUnsupportedValueType) {
			t.Errorf("ValueOf(%T) error = %v, want ErrUnsupportedValueType", input, err)
		}
	}
}

func TestSomeFlattens(t *testing.T) {
	inner := Some(String("x"))
	outer := Some(inner)
	if !outer.Equal(inner) {
		t.Errorf("Some(Some(x)) = %v, want %v", outer, inner)
	}
	if got := outer.Unwrap(); got.Kind() != KindString {
		t.Errorf("Unwrap().Kind() = %v, want string", got.Kind())
	}
	if !Some(None()).IsNone() {
		t.Error("Some(None) should stay None")
	}
	if !Some(Value{}).IsNone() {
		t.Error("Some(invalid) should be None")
	}
}

func TestValueEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same int", Int(1), Int(1), true},
		{"int vs uint differ by kind", Int(1), Uint(1), false},
		{"length vs uint differ by kind", Length(3), Uint(3), false},
		{"none none", None(), None(), true},
		{"none some", None(), Some(Int(1)), false},
		{"some some", Some(Int(1)), Some(Int(1)), true},
		{"char", Char('a'), Char('a'), true},
		{"nan", Float(math.NaN()), Float(math.NaN()), false},
		{"invalid", Value{}, Value{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("%v.Equal(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Int(-3), "-3"},
		{Uint(18446744073709551615), "18446744073709551615"},
		{Float(0.5), "0.5"},
		{Bool(false), "false"},
		{Char('z'), "'z'"},
		{String("a\"b"), `"a\"b"`},
		{Length(4), "4"},
		{None(), "None"},
		{Some(String("x")), `Some("x")`},
		{Value{}, "<invalid>"},
	}

	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestKindIsNumeric(t *testing.T) {
	numeric := map[Kind]bool{KindInteger: true, KindUnsigned: true, KindFloat: true, KindLength: true}
	for k := KindInvalid; k <= KindOption; k++ {
		if got := k.IsNumeric(); got != numeric[k] {
			t.Errorf("%v.IsNumeric() = %v, want %v", k, got, numeric[k])
		}
	}
}

func TestLengthClampsNegative(t *testing.T) {
	if n, ok := Length(-5).Len(); !ok || n != 0 {
		t.Errorf("Length(-5).Len() = %d, %v; want 0, true", n, ok)
	}
}

func TestMustValueOfPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustValueOf(struct{}{}) did not panic")
		}
	}()
	MustValueOf(struct{}{})
}
