// internal/types/conditions.go
package types

import "strconv"

/*
 * Condition tree.
 *
 * A Condition is a selector (what is compared) plus an operator (how).
 * NestedCondition combines leaf conditions and child subtrees under one Mode.
 *
 * Selectors:
 *   - ValueSelector: the whole subject against an operand
 *   - LengthSelector: the subject's length against an expected length
 *   - FieldSelector: one field of a Matchable subject against an operand
 *   - NotSelector: negation of exactly one inner condition
 *   - TypeSelector: the subject's type name against a name
 *
 * Trees are plain values. Nothing in the package mutates them after
 * construction, and Rules/Nested slices are never appended to in place.
 */

// Operator is the closed set of comparison operators.
type Operator int

const (
	OpUnspecified Operator = iota
	OpEquals
	OpNotEquals
	OpGreaterThan
	OpLessThan
	OpGreaterThanOrEqual
	OpLessThanOrEqual
	OpContains
	OpNotContains
	OpStartsWith
	OpEndsWith
	OpRegex
	OpIsEmpty
	OpIsNotEmpty
	OpIsNone
	OpIsSome
)

var operatorTokens = [...]string{
	OpUnspecified:        "unspecified",
	OpEquals:             "equals",
	OpNotEquals:          "not_equals",
	OpGreaterThan:        "greater_than",
	OpLessThan:           "less_than",
	OpGreaterThanOrEqual: "greater_than_or_equal",
	OpLessThanOrEqual:    "less_than_or_equal",
	OpContains:           "contains",
	OpNotContains:        "not_contains",
	OpStartsWith:         "starts_with",
	OpEndsWith:           "ends_with",
	OpRegex:              "regex",
	OpIsEmpty:            "is_empty",
	OpIsNotEmpty:         "is_not_empty",
	OpIsNone:             "is_none",
	OpIsSome:             "is_some",
}

// Operators lists every valid operator in declaration order.
func Operators() []Operator {
	ops := make([]Operator, 0, len(operatorTokens)-1)
	for op := OpEquals; op <= OpIsSome; op++ {
		ops = append(ops, op)
	}
	return ops
}

// String returns the snake_case token used in JSON rule documents.
func (op Operator) String() string {
	if op < 0 || int(op) >= len(operatorTokens) {
		return "unspecified"
	}
	return operatorTokens[op]
}

// Valid reports whether op is one of the 15 defined operators.
func (op Operator) Valid() bool {
	return op > OpUnspecified && op <= OpIsSome
}

// IsUnary reports whether op ignores its operand.
func (op Operator) IsUnary() bool {
	switch op {
	case OpIsEmpty, OpIsNotEmpty, OpIsNone, OpIsSome:
		return true
	default:
		return false
	}
}

// ParseOperator maps a snake_case token to an Operator. Matching is exact.
func ParseOperator(token string) (Operator, error) {
	for op := OpEquals; op <= OpIsSome; op++ {
		if operatorTokens[op] == token {
			return op, nil
		}
	}
	return OpUnspecified, &UnknownOperatorError{Token: token}
}

func (op Operator) MarshalText() ([]byte, error) {
	if !op.Valid() {
		return nil, &UnknownOperatorError{Token: op.String()}
	}
	return []byte(op.String()), nil
}

func (op *Operator) UnmarshalText(b []byte) error {
	parsed, err := ParseOperator(string(b))
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}

// Mode is the combination policy applied to an ordered list of outcomes.
// The zero Mode is AND.
type Mode int

const (
	ModeAnd Mode = iota
	ModeOr
	ModeXor
)

var modeTokens = [...]string{
	ModeAnd: "AND",
	ModeOr:  "OR",
	ModeXor: "XOR",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeTokens) {
		return "UNKNOWN"
	}
	return modeTokens[m]
}

// ParseMode maps "AND", "OR" or "XOR" to a Mode. Matching is exact.
func ParseMode(token string) (Mode, error) {
	for m, tok := range modeTokens {
		if tok == token {
			return Mode(m), nil
		}
	}
	return ModeAnd, &ParseError{Message: "unknown mode " + strconv.Quote(token) + ", expected AND, OR or XOR"}
}

func (m Mode) MarshalText() ([]byte, error) {
	if m < 0 || int(m) >= len(modeTokens) {
		return nil, &ParseError{Message: "unknown mode " + m.String()}
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Combine folds outcomes under m. This is the only place combination
// semantics live; adding a mode means adding a case here.
//
// AND is vacuously true on an empty list, OR is false, and XOR is true iff
// exactly one outcome is true.
func (m Mode) Combine(outcomes []bool) bool {
	switch m {
	case ModeAnd:
		for _, ok := range outcomes {
			if !ok {
				return false
			}
		}
		return true
	case ModeOr:
		for _, ok := range outcomes {
			if ok {
				return true
			}
		}
		return false
	case ModeXor:
		n := 0
		for _, ok := range outcomes {
			if ok {
				n++
			}
		}
		return n == 1
	default:
		return false
	}
}

// Selector identifies what a condition compares. The set of selectors is
// closed; implementations live in this package only.
type Selector interface {
	selector()
}

// ValueSelector compares the whole subject with Operand.
type ValueSelector struct {
	Operand Value
}

// LengthSelector compares the subject's length with Expected.
type LengthSelector struct {
	Expected int
}

// FieldSelector compares the field at Path with Operand. Path is resolved
// only through the subject's Matchable capability.
type FieldSelector struct {
	Path    string
	Operand Value
}

// NotSelector negates exactly one inner condition. The enclosing
// condition's operator is not consulted.
type NotSelector struct {
	Inner Condition
}

// TypeSelector compares the subject's type name with Name. Only equals,
// not_equals and contains are meaningful.
type TypeSelector struct {
	Name string
}

func (ValueSelector) selector()  {}
func (LengthSelector) selector() {}
func (FieldSelector) selector()  {}
func (NotSelector) selector()    {}
func (TypeSelector) selector()   {}

// Condition is one atomic predicate.
type Condition struct {
	Selector Selector
	Operator Operator
}

// NestedCondition is a recursive predicate tree. Its outcome is Mode applied
// to the outcomes of Rules followed by the outcomes of Nested, in
// declaration order.
type NestedCondition struct {
	Mode   Mode
	Rules  []Condition
	Nested []NestedCondition
}

// Depth returns the number of levels in the tree, counting n itself.
func (n NestedCondition) Depth() int {
	deepest := 0
	for _, child := range n.Nested {
		if d := child.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// Leaves returns the number of conditions in the tree, including those
// wrapped by NotSelector.
func (n NestedCondition) Leaves() int {
	count := 0
	for _, c := range n.Rules {
		count += c.leaves()
	}
	for _, child := range n.Nested {
		count += child.Leaves()
	}
	return count
}

func (c Condition) leaves() int {
	if not, ok := c.Selector.(NotSelector); ok {
		return not.Inner.leaves()
	}
	return 1
}
