// internal/rules/evaluate.go
package rules

import (
	"errors"
	"fmt"

	"github.com/solatis/condmatch/internal/types"
)

/*
 * Tree evaluation.
 *
 * Walks a NestedCondition depth-first in declaration order: leaf rules first,
 * then nested children. The ordered outcomes are folded by the node's Mode
 * (types.Mode.Combine is the single combination seam).
 *
 * Two walks share Evaluate:
 *   - run: returns the first error in declaration order, no report
 *   - runDetailed: evaluates every leaf, attaches errors to their results
 *
 * A leaf counts as passed for aggregation only when it passed without error.
 * Neither walk short-circuits on a decided outcome, so run reports an error
 * exactly when runDetailed would attach one, and it is the first such error.
 *
 * Missing field: is_none passes and is_some fails without error. Any other
 * operator yields the FieldNotFound error from the subject's LookupField.
 */

// ConditionResult is the outcome of one leaf.
type ConditionResult struct {
	Passed      bool
	Description string
	Actual      types.Value // resolved subject value; invalid when unresolved
	Expected    types.Value // rule operand; invalid for unary operators
	Error       error
}

// OK reports whether the leaf counts as true when combined into its parent.
func (r ConditionResult) OK() bool {
	return r.Passed && r.Error == nil
}

// MatchResult is the detailed report of one tree level. Nested holds the
// reports of child subtrees in declaration order.
type MatchResult struct {
	ConditionResults []ConditionResult
	Nested           []MatchResult
	IsMatch          bool
	Mode             types.Mode
}

// AllConditionResults flattens the report depth-first in declaration order.
func (r MatchResult) AllConditionResults() []ConditionResult {
	out := make([]ConditionResult, 0, len(r.ConditionResults))
	out = append(out, r.ConditionResults...)
	for _, child := range r.Nested {
		out = append(out, child.AllConditionResults()...)
	}
	return out
}

// PassedConditions returns every leaf that counted as true.
func (r MatchResult) PassedConditions() []ConditionResult {
	var out []ConditionResult
	for _, c := range r.AllConditionResults() {
		if c.OK() {
			out = append(out, c)
		}
	}
	return out
}

// FailedConditions returns every leaf that counted as false, errors included.
func (r MatchResult) FailedConditions() []ConditionResult {
	var out []ConditionResult
	for _, c := range r.AllConditionResults() {
		if !c.OK() {
			out = append(out, c)
		}
	}
	return out
}

// Errors returns the errors attached to leaves, in declaration order.
func (r MatchResult) Errors() []error {
	var out []error
	for _, c := range r.AllConditionResults() {
		if c.Error != nil {
			out = append(out, c.Error)
		}
	}
	return out
}

// Evaluate evaluates a single condition against subject.
func (e *Engine) Evaluate(c types.Condition, subject any) ConditionResult {
	switch sel := c.Selector.(type) {
	case types.ValueSelector:
		res := ConditionResult{Description: describe("value", c.Operator, sel.Operand), Expected: operandOf(c.Operator, sel.Operand)}
		actual, err := types.ValueOf(subject)
		if err != nil {
			res.Error = err
			return res
		}
		res.Actual = actual
		res.Passed, res.Error = e.Apply(c.Operator, actual, sel.Operand)
		return res

	case types.LengthSelector:
		expected := types.Length(sel.Expected)
		res := ConditionResult{Description: describe("length", c.Operator, expected), Expected: operandOf(c.Operator, expected)}
		n, err := subjectLength(subject)
		if err != nil {
			res.Error = err
			return res
		}
		res.Actual = types.Length(n)
		res.Passed, res.Error = e.Apply(c.Operator, res.Actual, expected)
		return res

	case types.FieldSelector:
		return e.evaluateField(sel, c.Operator, subject)

	case types.NotSelector:
		inner := e.Evaluate(sel.Inner, subject)
		inner.Passed = !inner.Passed
		inner.Description = "NOT(" + inner.Description + ")"
		return inner

	case types.TypeSelector:
		expected := types.String(sel.Name)
		actual := types.String(typeName(subject))
		res := ConditionResult{
			Description: describe("type", c.Operator, expected),
			Actual:      actual,
			Expected:    operandOf(c.Operator, expected),
		}
		res.Passed, res.Error = e.Apply(c.Operator, actual, expected)
		return res

	default:
		return ConditionResult{
			Description: "invalid condition",
			Error:       fmt.Errorf("%w: selector %T", types.ErrInvalidCondition, c.Selector),
		}
	}
}

func (e *Engine) evaluateField(sel types.FieldSelector, op types.Operator, subject any) ConditionResult {
	res := ConditionResult{
		Description: describe("field '"+sel.Path+"'", op, sel.Operand),
		Expected:    operandOf(op, sel.Operand),
	}
	if sel.Path == "" {
		res.Error = types.ErrEmptyFieldPath
		return res
	}

	actual, err := lookupField(subject, sel.Path)
	if errors.Is(err, types.ErrFieldNotFound) {
		switch op {
		case types.OpIsNone:
			res.Passed = true
			return res
		case types.OpIsSome:
			return res
		}
	}
	if err != nil {
		res.Error = err
		return res
	}

	res.Actual = actual
	res.Passed, res.Error = e.Apply(op, actual, sel.Operand)
	return res
}

// run evaluates n and returns the first error in declaration order.
func (e *Engine) run(n types.NestedCondition, subject any, depth int) (bool, error) {
	if depth > types.MaxNestingDepth {
		return false, errTooDeep()
	}

	outcomes := make([]bool, 0, len(n.Rules)+len(n.Nested))
	for _, c := range n.Rules {
		r := e.Evaluate(c, subject)
		if r.Error != nil {
			return false, r.Error
		}
		outcomes = append(outcomes, r.Passed)
	}
	for _, child := range n.Nested {
		ok, err := e.run(child, subject, depth+1)
		if err != nil {
			return false, err
		}
		outcomes = append(outcomes, ok)
	}
	return n.Mode.Combine(outcomes), nil
}

// runDetailed evaluates every leaf of n and builds the report.
func (e *Engine) runDetailed(n types.NestedCondition, subject any, depth int) (MatchResult, error) {
	if depth > types.MaxNestingDepth {
		return MatchResult{}, errTooDeep()
	}

	res := MatchResult{
		Mode:             n.Mode,
		ConditionResults: make([]ConditionResult, 0, len(n.Rules)),
	}
	outcomes := make([]bool, 0, len(n.Rules)+len(n.Nested))
	for _, c := range n.Rules {
		r := e.Evaluate(c, subject)
		res.ConditionResults = append(res.ConditionResults, r)
		outcomes = append(outcomes, r.OK())
	}
	for _, child := range n.Nested {
		childRes, err := e.runDetailed(child, subject, depth+1)
		if err != nil {
			return MatchResult{}, err
		}
		res.Nested = append(res.Nested, childRes)
		outcomes = append(outcomes, childRes.IsMatch)
	}
	res.IsMatch = n.Mode.Combine(outcomes)
	return res, nil
}

func errTooDeep() error {
	return fmt.Errorf("%w: nesting exceeds %d levels", types.ErrInvalidCondition, types.MaxNestingDepth)
}

// lookupField resolves path through the subject's Matchable capability.
// A bare map[string]any is treated as Map. Other subjects without the
// capability have no fields.
func lookupField(subject any, path string) (types.Value, error) {
	if raw, ok := subject.(map[string]any); ok {
		return Map(raw).LookupField(path)
	}
	m, ok := subject.(types.Matchable)
	if !ok {
		return types.Value{}, &types.FieldNotFoundError{Field: path, TypeName: typeName(subject)}
	}
	return m.LookupField(path)
}

// subjectLength derives the length of strings, collections and Lengther
// subjects. String length counts bytes.
func subjectLength(subject any) (int, error) {
	if l, ok := subject.(types.Lengther); ok {
		if n, ok := l.MatchLength(); ok {
			return n, nil
		}
		return 0, &types.LengthNotSupportedError{TypeName: typeName(subject)}
	}
	v, err := types.ValueOf(subject)
	if err != nil {
		return 0, &types.LengthNotSupportedError{TypeName: typeName(subject)}
	}
	v = v.Unwrap()
	if s, ok := v.Text(); ok {
		return len(s), nil
	}
	if n, ok := v.Len(); ok {
		return n, nil
	}
	return 0, &types.LengthNotSupportedError{TypeName: typeName(subject)}
}

func typeName(subject any) string {
	if n, ok := subject.(types.Named); ok {
		return n.TypeName()
	}
	return fmt.Sprintf("%T", subject)
}

// describe renders a leaf for reports, e.g. "field 'price' greater_than 500".
func describe(target string, op types.Operator, operand types.Value) string {
	if op.IsUnary() || !operand.IsValid() {
		return target + " " + op.String()
	}
	return target + " " + op.String() + " " + operand.String()
}

func operandOf(op types.Operator, operand types.Value) types.Value {
	if op.IsUnary() {
		return types.Value{}
	}
	return operand
}
