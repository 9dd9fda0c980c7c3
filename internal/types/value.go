// internal/types/value.go
package types

import (
	"fmt"
	"reflect"
	"strconv"
)

/*
 * Value model.
 *
 * Value is a closed tagged union over every datum the operator engine can
 * compare. Integers of any Go width normalize into int64 (signed) or uint64
 * (unsigned); the operator engine compares mixed signed/unsigned/float values
 * exactly, so normalization never overflows or loses precision.
 *
 * Kinds:
 *   - Integer, UnsignedInteger, Float: numeric
 *   - Bool, Char, String: scalar
 *   - Length: derived from strings and collections, never stored by callers
 *   - Option: presence wrapper; Some(Option(x)) flattens, so an Option never
 *     holds another Option
 *
 * Go has no distinct char type (rune == int32), so Char values are only built
 * explicitly via Char(); ValueOf maps int32 to Integer.
 */

// Kind identifies which member of the Value union is populated.
type Kind int

const (
	KindInvalid Kind = iota
	KindInteger
	KindUnsigned
	KindFloat
	KindBool
	KindChar
	KindString
	KindLength
	KindOption
)

var kindNames = [...]string{
	KindInvalid:  "invalid",
	KindInteger:  "integer",
	KindUnsigned: "unsigned_integer",
	KindFloat:    "float",
	KindBool:     "bool",
	KindChar:     "char",
	KindString:   "string",
	KindLength:   "length",
	KindOption:   "option",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// IsNumeric reports whether values of this kind take part in numeric
// comparison. Length counts as an unsigned number.
func (k Kind) IsNumeric() bool {
	switch k {
	case KindInteger, KindUnsigned, KindFloat, KindLength:
		return true
	default:
		return false
	}
}

// Value is an immutable tagged datum. The zero Value has KindInvalid.
type Value struct {
	kind  Kind
	i     int64   // Integer, Char
	u     uint64  // UnsignedInteger, Length
	f     float64 // Float
	b     bool    // Bool
	s     string  // String
	inner *Value  // Option: nil means None
}

func Int(v int64) Value     { return Value{kind: KindInteger, i: v} }
func Uint(v uint64) Value   { return Value{kind: KindUnsigned, u: v} }
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }
func Bool(v bool) Value     { return Value{kind: KindBool, b: v} }
func Char(r rune) Value     { return Value{kind: KindChar, i: int64(r)} }
func String(s string) Value { return Value{kind: KindString, s: s} }

// Length builds a derived length value. Negative lengths clamp to zero.
func Length(n int) Value {
	if n < 0 {
		n = 0
	}
	return Value{kind: KindLength, u: uint64(n)}
}

// None is the absent Option.
func None() Value { return Value{kind: KindOption} }

// Some wraps v as a present Option. Wrapping an Option returns it unchanged,
// and wrapping the invalid Value yields None.
func Some(v Value) Value {
	switch v.kind {
	case KindOption:
		return v
	case KindInvalid:
		return None()
	}
	inner := v
	return Value{kind: KindOption, inner: &inner}
}

func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds any kind at all.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

func (v Value) Int() (int64, bool)     { return v.i, v.kind == KindInteger }
func (v Value) Uint() (uint64, bool)   { return v.u, v.kind == KindUnsigned }
func (v Value) Float() (float64, bool) { return v.f, v.kind == KindFloat }
func (v Value) Bool() (bool, bool)     { return v.b, v.kind == KindBool }
func (v Value) Char() (rune, bool)     { return rune(v.i), v.kind == KindChar }
func (v Value) Text() (string, bool)   { return v.s, v.kind == KindString }

func (v Value) Len() (int, bool) {
	return int(v.u), v.kind == KindLength
}

// IsNone reports whether v is the absent Option.
func (v Value) IsNone() bool { return v.kind == KindOption && v.inner == nil }

// IsSome reports whether v is a present Option.
func (v Value) IsSome() bool { return v.kind == KindOption && v.inner != nil }

// Unwrap returns the payload of a present Option and v itself otherwise.
func (v Value) Unwrap() Value {
	if v.IsSome() {
		return *v.inner
	}
	return v
}

// Equal is strict structural equality: same kind, same payload. It is used by
// tests and tree comparison; operator semantics live in the rules package.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInteger, KindChar:
		return v.i == o.i
	case KindUnsigned, KindLength:
		return v.u == o.u
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	case KindOption:
		if v.inner == nil || o.inner == nil {
			return v.inner == nil && o.inner == nil
		}
		return v.inner.Equal(*o.inner)
	default:
		return true
	}
}

// String renders v for match reports.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindUnsigned, KindLength:
		return strconv.FormatUint(v.u, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindChar:
		return strconv.QuoteRune(rune(v.i))
	case KindString:
		return strconv.Quote(v.s)
	case KindOption:
		if v.inner == nil {
			return "None"
		}
		return "Some(" + v.inner.String() + ")"
	default:
		return "<invalid>"
	}
}

// Interface returns the natural Go representation of v: int64, uint64,
// float64, bool, rune, string, int (Length) or nil (None). Present Options
// return their payload.
func (v Value) Interface() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindUnsigned:
		return v.u
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindChar:
		return rune(v.i)
	case KindString:
		return v.s
	case KindLength:
		return int(v.u)
	case KindOption:
		if v.inner == nil {
			return nil
		}
		return v.inner.Interface()
	default:
		return nil
	}
}

// ValueOf converts a Go value into a Value.
//
// Supported: every signed and unsigned integer width, float32/64, bool,
// string, Value, Valuer, pointers (nil -> None, otherwise Some of the
// pointee), and slices/arrays/maps (-> Length). Named types with one of these
// underlying kinds are accepted as well. Anything else yields an
// *UnsupportedValueTypeError.
func ValueOf(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return None(), nil
	case Value:
		return v, nil
	case Valuer:
		return v.MatchValue(), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint:
		return Uint(uint64(v)), nil
	case uint8:
		return Uint(uint64(v)), nil
	case uint16:
		return Uint(uint64(v)), nil
	case uint32:
		return Uint(uint64(v)), nil
	case uint64:
		return Uint(v), nil
	case uintptr:
		return Uint(uint64(v)), nil
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case bool:
		return Bool(v), nil
	case string:
		return String(v), nil
	}

	// Named types and containers fall through to kind-level conversion.
	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return None(), nil
		}
		inner, err := ValueOf(rv.Elem().Interface())
		if err != nil {
			return Value{}, err
		}
		return Some(inner), nil
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		return Length(rv.Len()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Uint(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	}
	return Value{}, &UnsupportedValueTypeError{Type: fmt.Sprintf("%T", x)}
}

// MustValueOf is ValueOf for literals known to be convertible. It panics on
// unsupported types, like regexp.MustCompile does on bad patterns.
func MustValueOf(x any) Value {
	v, err := ValueOf(x)
	if err != nil {
		panic(err)
	}
	return v
}
