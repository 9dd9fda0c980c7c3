// internal/rules/cost.go
package rules

import (
	"strings"

	"github.com/solatis/condmatch/internal/types"
)

/*
 * Cost model for condition trees.
 *
 * Complexity gives a deterministic score for a compiled tree. The catalog
 * stores it with each rule set and the CLI shows it. Evaluation order is
 * never changed by cost: rules always run in declaration order.
 *
 * Cost formula per leaf: lookup_cost + (operator_cost * type_multiplier * 8^wildcards)
 * Not adds CostNegation to its inner leaf. Every tree level adds CostNode.
 *
 * Wildcard execution multiplier: 8^n reflects worst-case fanout per wildcard.
 * With MaxNestedWildcards=2, ceiling is 64x cost.
 */

const (
	// Operator base costs
	CostPresence = 1
	CostEmpty    = 2
	CostEquals   = 5
	CostOrdering = 7
	CostAffix    = 10
	CostContains = 12
	CostRegex    = 64

	// Field lookup cost per path segment
	CostLookupPerSegment = 128

	// Operand type multipliers
	MultiplierInt    = 1
	MultiplierBool   = 1
	MultiplierFloat  = 4
	MultiplierString = 48
	MultiplierAny    = 128

	CostNegation = 1
	CostNode     = 1
)

// Complexity computes the cost score of a tree.
func Complexity(n types.NestedCondition) int {
	total := CostNode
	for _, c := range n.Rules {
		total += ConditionCost(c)
	}
	for _, child := range n.Nested {
		total += Complexity(child)
	}
	return total
}

// ConditionCost computes the cost of a single condition.
func ConditionCost(c types.Condition) int {
	switch sel := c.Selector.(type) {
	case types.NotSelector:
		return CostNegation + ConditionCost(sel.Inner)
	case types.FieldSelector:
		lookupCost, wildcards := pathCost(sel.Path)
		execMult := 1
		for i := 0; i < wildcards; i++ {
			execMult *= 8
		}
		return lookupCost + operatorCost(c.Operator)*typeMultiplier(c.Operator, sel.Operand)*execMult
	case types.ValueSelector:
		return operatorCost(c.Operator) * typeMultiplier(c.Operator, sel.Operand)
	case types.LengthSelector:
		return operatorCost(c.Operator) * MultiplierInt
	case types.TypeSelector:
		return operatorCost(c.Operator) * MultiplierString
	default:
		return 0
	}
}

// pathCost returns the lookup cost and wildcard count of a dotted path.
// Paths that do not parse are costed segment by segment without wildcards.
func pathCost(path string) (int, int) {
	segs, err := ParsePath(path)
	if err != nil {
		return CostLookupPerSegment * (strings.Count(path, ".") + 1), 0
	}
	lookupCost, wildcards := 0, 0
	for _, seg := range segs {
		if seg.Wildcard {
			wildcards++
			continue
		}
		lookupCost += CostLookupPerSegment
	}
	return lookupCost, wildcards
}

// operatorCost returns base cost for operator execution.
func operatorCost(op types.Operator) int {
	switch op {
	case types.OpIsNone, types.OpIsSome:
		return CostPresence
	case types.OpIsEmpty, types.OpIsNotEmpty:
		return CostEmpty
	case types.OpEquals, types.OpNotEquals:
		return CostEquals
	case types.OpGreaterThan, types.OpLessThan, types.OpGreaterThanOrEqual, types.OpLessThanOrEqual:
		return CostOrdering
	case types.OpStartsWith, types.OpEndsWith:
		return CostAffix
	case types.OpContains, types.OpNotContains:
		return CostContains
	case types.OpRegex:
		return CostRegex
	default:
		return CostEquals
	}
}

// typeMultiplier returns cost multiplier based on operand complexity.
// Unary operators do not compare an operand and cost as integers.
func typeMultiplier(op types.Operator, operand types.Value) int {
	if op.IsUnary() {
		return MultiplierInt
	}
	switch operand.Unwrap().Kind() {
	case types.KindInteger, types.KindUnsigned, types.KindLength, types.KindChar:
		return MultiplierInt
	case types.KindBool:
		return MultiplierBool
	case types.KindFloat:
		return MultiplierFloat
	case types.KindString:
		return MultiplierString
	default:
		return MultiplierAny
	}
}
