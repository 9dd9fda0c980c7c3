package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for condition matching. Every typed error below unwraps to
// one of these, so callers can branch with errors.Is and extract details with
// errors.As.
var (
	// ErrFieldNotFound indicates a field path could not be resolved on a subject.
	ErrFieldNotFound = errors.New("field not found")

	// ErrUnsupportedOperator indicates an operator is not meaningful for a value kind.
	ErrUnsupportedOperator = errors.New("unsupported operator")

	// ErrTypeMismatch indicates the two operands have incompatible kinds.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrRegexCompile indicates a regex pattern failed to compile at evaluation time.
	ErrRegexCompile = errors.New("invalid regex pattern")

	// ErrLengthNotSupported indicates a Length selector on a subject without a length.
	ErrLengthNotSupported = errors.New("length not supported")

	// ErrParse indicates a malformed rule document.
	ErrParse = errors.New("rule parse error")

	// ErrUnknownOperator indicates an operator token outside the grammar.
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrUnsupportedValueType indicates a value that maps to no Value kind.
	ErrUnsupportedValueType = errors.New("unsupported value type")

	// ErrInvalidCondition indicates a condition without a selector or operator.
	ErrInvalidCondition = errors.New("invalid condition")

	// ErrEmptyFieldPath indicates a field path with no segments.
	ErrEmptyFieldPath = errors.New("field path cannot be empty")

	// ErrInvalidFieldPath indicates a field path with a malformed index segment.
	ErrInvalidFieldPath = errors.New("invalid field path")

	// ErrPathTooDeep indicates a field path exceeds MaxPathDepth.
	ErrPathTooDeep = errors.New("field path exceeds maximum depth")

	// ErrTooManyWildcards indicates a field path exceeds MaxNestedWildcards.
	ErrTooManyWildcards = errors.New("field path has too many wildcards")

	// ErrPayloadTooLarge indicates a JSON subject exceeds MaxPayloadSize.
	ErrPayloadTooLarge = errors.New("payload exceeds maximum size")
)

// FieldNotFoundError reports a path the subject's field-access capability
// could not resolve.
type FieldNotFoundError struct {
	Field    string
	TypeName string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("field %q not found on type %q", e.Field, e.TypeName)
}

func (e *FieldNotFoundError) Unwrap() error { return ErrFieldNotFound }

// UnsupportedOperatorError reports an operator applied to a kind it is not
// defined for. Reason is set when the operator is unavailable in the current
// engine configuration rather than for the kind itself.
type UnsupportedOperatorError struct {
	Operator string
	Kind     string
	Reason   string
}

func (e *UnsupportedOperatorError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("operator %q not supported for %s: %s", e.Operator, e.Kind, e.Reason)
	}
	return fmt.Sprintf("operator %q not supported for %s", e.Operator, e.Kind)
}

func (e *UnsupportedOperatorError) Unwrap() error { return ErrUnsupportedOperator }

// TypeMismatchError reports operands of incompatible kinds. Expected is the
// kind the subject side resolved to; Got is the kind of the rule's operand.
type TypeMismatchError struct {
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", e.Expected, e.Got)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// RegexCompileError reports an invalid pattern. Patterns embedded in rule
// documents are compiled lazily, so this surfaces during evaluation.
type RegexCompileError struct {
	Pattern string
	Message string
}

func (e *RegexCompileError) Error() string {
	return fmt.Sprintf("invalid regex pattern %q: %s", e.Pattern, e.Message)
}

func (e *RegexCompileError) Unwrap() error { return ErrRegexCompile }

// LengthNotSupportedError reports a Length selector on a subject that has no length.
type LengthNotSupportedError struct {
	TypeName string
}

func (e *LengthNotSupportedError) Error() string {
	return fmt.Sprintf("length check not supported for type %q", e.TypeName)
}

func (e *LengthNotSupportedError) Unwrap() error { return ErrLengthNotSupported }

// ParseError reports a malformed or structurally invalid rule document.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string { return "parse error: " + e.Message }

func (e *ParseError) Unwrap() error { return ErrParse }

// UnknownOperatorError reports an operator token that is not in the grammar.
// Matching is exact: "Equals" and "EQUALS" are unknown.
type UnknownOperatorError struct {
	Token string
}

func (e *UnknownOperatorError) Error() string {
	return fmt.Sprintf("unknown operator %q", e.Token)
}

func (e *UnknownOperatorError) Unwrap() error { return ErrUnknownOperator }

// UnsupportedValueTypeError reports a value that cannot be represented as a
// Value, e.g. a JSON array used as a rule's comparison value.
type UnsupportedValueTypeError struct {
	Field string
	Type  string
}

func (e *UnsupportedValueTypeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("unsupported value type %s for field %q", e.Type, e.Field)
	}
	return fmt.Sprintf("unsupported value type %s", e.Type)
}

func (e *UnsupportedValueTypeError) Unwrap() error { return ErrUnsupportedValueType }
