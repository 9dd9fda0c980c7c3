// internal/rules/coercion.go
package rules

import (
	"math"
	"math/big"

	"github.com/solatis/condmatch/internal/types"
)

/*
 * Numeric coercion for operator dispatch.
 *
 * Integer, UnsignedInteger, Float and Length all take part in numeric
 * comparison. Every pair is compared exactly:
 *   - int64 vs uint64: sign check first, then unsigned comparison
 *   - int64/uint64 vs float64: big.Float at 64-bit precision (no rounding of
 *     large integers through float64)
 *   - float64 vs float64: IEEE ordering; NaN is unordered
 *
 * Length is an unsigned count and compares like UnsignedInteger.
 *
 * Float equality is exact (==) with no tolerance. 0.1+0.2 does not equal 0.3.
 */

type numClass int

const (
	numSigned numClass = iota
	numUnsigned
	numFloat
)

type number struct {
	class numClass
	i     int64
	u     uint64
	f     float64
}

// toNumber extracts the numeric payload of v. ok is false for non-numeric kinds.
func toNumber(v types.Value) (number, bool) {
	switch v.Kind() {
	case types.KindInteger:
		i, _ := v.Int()
		return number{class: numSigned, i: i}, true
	case types.KindUnsigned:
		u, _ := v.Uint()
		return number{class: numUnsigned, u: u}, true
	case types.KindLength:
		n, _ := v.Len()
		return number{class: numUnsigned, u: uint64(n)}, true
	case types.KindFloat:
		f, _ := v.Float()
		return number{class: numFloat, f: f}, true
	default:
		return number{}, false
	}
}

// compareNumbers performs exact three-way comparison (-1/0/1) of two numeric
// values. ordered is false when either side is NaN or a side is not numeric.
func compareNumbers(a, b types.Value) (cmp int, ordered bool) {
	na, oka := toNumber(a)
	nb, okb := toNumber(b)
	if !oka || !okb {
		return 0, false
	}
	return compareNum(na, nb)
}

func compareNum(a, b number) (int, bool) {
	switch {
	case a.class == numFloat && b.class == numFloat:
		if math.IsNaN(a.f) || math.IsNaN(b.f) {
			return 0, false
		}
		return cmpOrdered(a.f, b.f), true
	case a.class == numFloat || b.class == numFloat:
		if (a.class == numFloat && math.IsNaN(a.f)) || (b.class == numFloat && math.IsNaN(b.f)) {
			return 0, false
		}
		return a.big().Cmp(b.big()), true
	case a.class == numSigned && b.class == numSigned:
		return cmpOrdered(a.i, b.i), true
	case a.class == numUnsigned && b.class == numUnsigned:
		return cmpOrdered(a.u, b.u), true
	case a.class == numSigned: // signed vs unsigned
		if a.i < 0 {
			return -1, true
		}
		return cmpOrdered(uint64(a.i), b.u), true
	default: // unsigned vs signed
		if b.i < 0 {
			return 1, true
		}
		return cmpOrdered(a.u, uint64(b.i)), true
	}
}

// big converts n to a big.Float without loss. Infinities are preserved.
func (n number) big() *big.Float {
	switch n.class {
	case numSigned:
		return new(big.Float).SetInt64(n.i)
	case numUnsigned:
		return new(big.Float).SetUint64(n.u)
	default:
		return new(big.Float).SetFloat64(n.f)
	}
}

func cmpOrdered[T int64 | uint64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
