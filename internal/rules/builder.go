// internal/rules/builder.go
package rules

import "github.com/solatis/condmatch/internal/types"

/*
 * Construction helpers.
 *
 * Plain functions returning immutable conditions and trees. Operands are
 * converted with types.MustValueOf, so passing an unsupported Go type (a
 * struct, a func) panics at construction, like regexp.MustCompile.
 *
 *   rules.All(
 *       rules.Field("age").Gte(18),
 *       rules.Field("email").EndsWith("@example.com"),
 *       rules.Not(rules.Field("banned").Equals(true)),
 *   )
 */

// FieldRef builds conditions on one field path.
type FieldRef struct {
	path string
}

// Field starts a condition on path.
func Field(path string) FieldRef {
	return FieldRef{path: path}
}

func (f FieldRef) cond(op types.Operator, operand any) types.Condition {
	return types.Condition{
		Selector: types.FieldSelector{Path: f.path, Operand: types.MustValueOf(operand)},
		Operator: op,
	}
}

func (f FieldRef) unary(op types.Operator) types.Condition {
	return types.Condition{Selector: types.FieldSelector{Path: f.path}, Operator: op}
}

func (f FieldRef) Equals(v any) types.Condition      { return f.cond(types.OpEquals, v) }
func (f FieldRef) NotEquals(v any) types.Condition   { return f.cond(types.OpNotEquals, v) }
func (f FieldRef) Gt(v any) types.Condition          { return f.cond(types.OpGreaterThan, v) }
func (f FieldRef) Gte(v any) types.Condition         { return f.cond(types.OpGreaterThanOrEqual, v) }
func (f FieldRef) Lt(v any) types.Condition          { return f.cond(types.OpLessThan, v) }
func (f FieldRef) Lte(v any) types.Condition         { return f.cond(types.OpLessThanOrEqual, v) }
func (f FieldRef) Contains(s string) types.Condition { return f.cond(types.OpContains, s) }
func (f FieldRef) NotContains(s string) types.Condition {
	return f.cond(types.OpNotContains, s)
}
func (f FieldRef) StartsWith(s string) types.Condition { return f.cond(types.OpStartsWith, s) }
func (f FieldRef) EndsWith(s string) types.Condition   { return f.cond(types.OpEndsWith, s) }

// Matches builds a regex condition. The pattern is compiled on first
// evaluation.
func (f FieldRef) Matches(pattern string) types.Condition { return f.cond(types.OpRegex, pattern) }

func (f FieldRef) IsNone() types.Condition     { return f.unary(types.OpIsNone) }
func (f FieldRef) IsSome() types.Condition     { return f.unary(types.OpIsSome) }
func (f FieldRef) IsEmpty() types.Condition    { return f.unary(types.OpIsEmpty) }
func (f FieldRef) IsNotEmpty() types.Condition { return f.unary(types.OpIsNotEmpty) }

// Not negates c.
func Not(c types.Condition) types.Condition {
	return types.Condition{Selector: types.NotSelector{Inner: c}}
}

// Value compares the whole subject with v under op.
func Value(op types.Operator, v any) types.Condition {
	return types.Condition{Selector: types.ValueSelector{Operand: types.MustValueOf(v)}, Operator: op}
}

func ValueEquals(v any) types.Condition    { return Value(types.OpEquals, v) }
func ValueNotEquals(v any) types.Condition { return Value(types.OpNotEquals, v) }

// Length compares the subject's length with n under op.
func Length(op types.Operator, n int) types.Condition {
	return types.Condition{Selector: types.LengthSelector{Expected: n}, Operator: op}
}

func LengthEquals(n int) types.Condition { return Length(types.OpEquals, n) }
func LengthGte(n int) types.Condition    { return Length(types.OpGreaterThanOrEqual, n) }
func LengthLte(n int) types.Condition    { return Length(types.OpLessThanOrEqual, n) }

// TypeIs matches subjects whose type name equals name.
func TypeIs(name string) types.Condition {
	return types.Condition{Selector: types.TypeSelector{Name: name}, Operator: types.OpEquals}
}

// All builds an AND matcher.
func All(cs ...types.Condition) *Matcher { return NewMatcher(types.ModeAnd).AddConditions(cs...) }

// Any builds an OR matcher.
func Any(cs ...types.Condition) *Matcher { return NewMatcher(types.ModeOr).AddConditions(cs...) }

// OneOf builds an XOR matcher: exactly one condition must pass.
func OneOf(cs ...types.Condition) *Matcher { return NewMatcher(types.ModeXor).AddConditions(cs...) }

// Group builds a tree node.
func Group(mode types.Mode, rules []types.Condition, nested ...types.NestedCondition) types.NestedCondition {
	return types.NestedCondition{Mode: mode, Rules: rules, Nested: nested}
}
