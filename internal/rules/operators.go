// internal/rules/operators.go
package rules

import (
	"strings"

	"github.com/solatis/condmatch/internal/types"
)

/*
 * Operator dispatch.
 *
 * Apply compares an actual value (resolved from the subject) with the rule's
 * operand. Every (operator, kind) pair has exactly one outcome: a boolean,
 * UnsupportedOperator (operator meaningless for the kind) or TypeMismatch
 * (operands of incompatible kinds).
 *
 * Operators:
 *   - equals/not_equals: structural equality, numeric kinds normalized
 *   - greater_than/less_than/..._or_equal: numeric kinds and strings
 *   - contains/not_contains/starts_with/ends_with: strings, case-sensitive
 *   - regex: strings, via the engine's RegexEngine
 *   - is_empty/is_not_empty: strings, Length values and None
 *   - is_none/is_some: Option values only
 *
 * Option handling: is_none/is_some inspect the wrapper itself. Every other
 * operator sees through Some(x) to x. None equals only None.
 *
 * String ordering is byte-wise, which for UTF-8 is code point order.
 */

// Apply evaluates op against actual and operand. Unary operators ignore operand.
func (e *Engine) Apply(op types.Operator, actual, operand types.Value) (bool, error) {
	switch op {
	case types.OpIsNone, types.OpIsSome:
		if actual.Kind() != types.KindOption {
			return false, unsupported(op, actual)
		}
		if op == types.OpIsNone {
			return actual.IsNone(), nil
		}
		return actual.IsSome(), nil
	}

	actual = actual.Unwrap()
	operand = operand.Unwrap()

	switch op {
	case types.OpEquals:
		return equalValues(actual, operand)
	case types.OpNotEquals:
		eq, err := equalValues(actual, operand)
		if err != nil {
			return false, err
		}
		return !eq, nil
	case types.OpGreaterThan, types.OpLessThan, types.OpGreaterThanOrEqual, types.OpLessThanOrEqual:
		return compareOrdered(op, actual, operand)
	case types.OpContains, types.OpNotContains, types.OpStartsWith, types.OpEndsWith:
		return compareText(op, actual, operand)
	case types.OpRegex:
		return e.matchRegex(actual, operand)
	case types.OpIsEmpty:
		return isEmpty(op, actual)
	case types.OpIsNotEmpty:
		empty, err := isEmpty(op, actual)
		if err != nil {
			return false, err
		}
		return !empty, nil
	default:
		return false, unsupported(op, actual)
	}
}

// equalValues is structural equality with numeric normalization.
// NaN is never equal to anything, itself included.
func equalValues(a, b types.Value) (bool, error) {
	if a.Kind().IsNumeric() && b.Kind().IsNumeric() {
		cmp, ordered := compareNumbers(a, b)
		return ordered && cmp == 0, nil
	}
	if a.IsNone() || b.IsNone() {
		return a.IsNone() && b.IsNone(), nil
	}
	if a.Kind() != b.Kind() || !a.IsValid() {
		return false, mismatch(a, b)
	}
	return a.Equal(b), nil
}

// compareOrdered handles the four ordering operators. NaN compares false.
func compareOrdered(op types.Operator, a, b types.Value) (bool, error) {
	var cmp int
	switch {
	case a.Kind().IsNumeric():
		if !b.Kind().IsNumeric() {
			return false, mismatch(a, b)
		}
		c, ordered := compareNumbers(a, b)
		if !ordered {
			return false, nil
		}
		cmp = c
	case a.Kind() == types.KindString:
		bs, ok := b.Text()
		if !ok {
			return false, mismatch(a, b)
		}
		as, _ := a.Text()
		cmp = cmpOrdered(as, bs)
	default:
		return false, unsupported(op, a)
	}

	switch op {
	case types.OpGreaterThan:
		return cmp > 0, nil
	case types.OpLessThan:
		return cmp < 0, nil
	case types.OpGreaterThanOrEqual:
		return cmp >= 0, nil
	default:
		return cmp <= 0, nil
	}
}

// compareText handles substring, prefix and suffix operators. Case-sensitive.
func compareText(op types.Operator, a, b types.Value) (bool, error) {
	as, ok := a.Text()
	if !ok {
		return false, unsupported(op, a)
	}
	bs, ok := b.Text()
	if !ok {
		return false, mismatch(a, b)
	}
	switch op {
	case types.OpContains:
		return strings.Contains(as, bs), nil
	case types.OpNotContains:
		return !strings.Contains(as, bs), nil
	case types.OpStartsWith:
		return strings.HasPrefix(as, bs), nil
	default:
		return strings.HasSuffix(as, bs), nil
	}
}

func (e *Engine) matchRegex(a, b types.Value) (bool, error) {
	if e.regex == nil {
		return false, &types.UnsupportedOperatorError{
			Operator: types.OpRegex.String(),
			Kind:     a.Kind().String(),
			Reason:   "no regex engine configured",
		}
	}
	as, ok := a.Text()
	if !ok {
		return false, unsupported(types.OpRegex, a)
	}
	pattern, ok := b.Text()
	if !ok {
		return false, mismatch(a, b)
	}
	return e.regex.Match(pattern, as)
}

// isEmpty reports length == 0 for strings and Length values. None is empty.
func isEmpty(op types.Operator, a types.Value) (bool, error) {
	if a.IsNone() {
		return true, nil
	}
	if s, ok := a.Text(); ok {
		return len(s) == 0, nil
	}
	if n, ok := a.Len(); ok {
		return n == 0, nil
	}
	return false, unsupported(op, a)
}

func unsupported(op types.Operator, v types.Value) error {
	return &types.UnsupportedOperatorError{Operator: op.String(), Kind: v.Kind().String()}
}

func mismatch(actual, operand types.Value) error {
	return &types.TypeMismatchError{Expected: actual.Kind().String(), Got: operand.Kind().String()}
}
