// internal/rules/matcher.go
package rules

import (
	"errors"

	"github.com/solatis/condmatch/internal/types"
)

// ErrNilMatcher is returned when Run or RunDetailed is called on a nil matcher.
var ErrNilMatcher = errors.New("matcher is nil")

// Evaluator is satisfied by Matcher and JSONMatcher.
type Evaluator interface {
	Run(subject any) (bool, error)
	RunDetailed(subject any) (MatchResult, error)
	Mode() types.Mode
}

// Option configures a Matcher or JSONMatcher.
type Option func(*matcherOptions)

type matcherOptions struct {
	engine *Engine
}

// WithEngine selects the operator engine used for evaluation.
func WithEngine(e *Engine) Option {
	return func(o *matcherOptions) {
		if e != nil {
			o.engine = e
		}
	}
}

func engineOrDefault(e *Engine) *Engine {
	if e == nil {
		return DefaultEngine()
	}
	return e
}

func buildOptions(opts []Option) matcherOptions {
	o := matcherOptions{engine: DefaultEngine()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Matcher is a flat set of conditions combined under one mode.
//
// AddCondition and AddConditions are for assembly before first use. Once a
// Matcher is shared, Run and RunDetailed may be called from any number of
// goroutines.
type Matcher struct {
	mode       types.Mode
	conditions []types.Condition
	engine     *Engine
}

// NewMatcher creates an empty matcher. An empty AND matcher matches
// everything; an empty OR or XOR matcher matches nothing.
func NewMatcher(mode types.Mode, opts ...Option) *Matcher {
	o := buildOptions(opts)
	return &Matcher{mode: mode, engine: o.engine}
}

// AddCondition appends c and returns m for chaining.
func (m *Matcher) AddCondition(c types.Condition) *Matcher {
	return m.AddConditions(c)
}

// AddConditions appends cs in order and returns m for chaining. Slices
// previously returned by Conditions are not modified.
func (m *Matcher) AddConditions(cs ...types.Condition) *Matcher {
	next := make([]types.Condition, 0, len(m.conditions)+len(cs))
	next = append(next, m.conditions...)
	m.conditions = append(next, cs...)
	return m
}

// Mode returns the combination mode.
func (m *Matcher) Mode() types.Mode { return m.mode }

// Conditions returns the conditions in declaration order.
func (m *Matcher) Conditions() []types.Condition { return m.conditions }

// Tree returns the matcher as a single-level NestedCondition.
func (m *Matcher) Tree() types.NestedCondition {
	return types.NestedCondition{Mode: m.mode, Rules: m.conditions}
}

// Run reports whether subject matches. It returns the first error in
// declaration order.
func (m *Matcher) Run(subject any) (bool, error) {
	if m == nil {
		return false, ErrNilMatcher
	}
	return engineOrDefault(m.engine).run(m.Tree(), subject, 1)
}

// RunDetailed evaluates every condition and reports each outcome. Leaf errors
// are attached to their ConditionResult and count as failed.
func (m *Matcher) RunDetailed(subject any) (MatchResult, error) {
	if m == nil {
		return MatchResult{}, ErrNilMatcher
	}
	return engineOrDefault(m.engine).runDetailed(m.Tree(), subject, 1)
}

// JSONMatcher is a NestedCondition compiled from a JSON rule document. It
// keeps the canonical form of the document for re-serialization.
type JSONMatcher struct {
	tree     types.NestedCondition
	document []byte
	engine   *Engine
}

// FromTree wraps an already-built tree. MarshalJSON fails for trees that use
// selectors other than FieldSelector, which have no JSON form.
func FromTree(tree types.NestedCondition, opts ...Option) *JSONMatcher {
	o := buildOptions(opts)
	return &JSONMatcher{tree: tree, engine: o.engine}
}

// Mode returns the root combination mode.
func (m *JSONMatcher) Mode() types.Mode { return m.tree.Mode }

// Tree returns the compiled tree.
func (m *JSONMatcher) Tree() types.NestedCondition { return m.tree }

// Run reports whether subject matches. It returns the first error in
// declaration order.
func (m *JSONMatcher) Run(subject any) (bool, error) {
	if m == nil {
		return false, ErrNilMatcher
	}
	return engineOrDefault(m.engine).run(m.tree, subject, 1)
}

// RunDetailed evaluates every leaf and reports the full tree of outcomes.
func (m *JSONMatcher) RunDetailed(subject any) (MatchResult, error) {
	if m == nil {
		return MatchResult{}, ErrNilMatcher
	}
	return engineOrDefault(m.engine).runDetailed(m.tree, subject, 1)
}

// MarshalJSON returns the canonical rule document: "mode", "rules" and
// "nested" keys only, aliases resolved.
func (m *JSONMatcher) MarshalJSON() ([]byte, error) {
	if m.document != nil {
		return m.document, nil
	}
	return MarshalTree(m.tree)
}

// UnmarshalJSON compiles data into m, replacing its tree. The engine is kept
// if one was already set.
func (m *JSONMatcher) UnmarshalJSON(data []byte) error {
	compiled, err := FromJSON(data)
	if err != nil {
		return err
	}
	if m.engine != nil {
		compiled.engine = m.engine
	}
	*m = *compiled
	return nil
}

var (
	_ Evaluator = (*Matcher)(nil)
	_ Evaluator = (*JSONMatcher)(nil)
)
