// Package types provides the domain model shared across condmatch components.
//
// Zero-dependency design: the value model, the condition tree and the error
// taxonomy use only the standard library so the evaluator core carries no
// third-party weight. ID utilities in ids.go import uuid but are only used by
// the rule catalog.
//
// Trees built from these types are immutable once constructed. Evaluation only
// reads them, so one tree may be shared by any number of goroutines.
package types

// Valuer is implemented by subjects that can present themselves as a single
// Value, e.g. a parsed JSON document whose root is a scalar.
type Valuer interface {
	MatchValue() Value
}

// Lengther is implemented by composite subjects that have a meaningful length
// (collections, buffers) without being a Go slice, array, map or string.
type Lengther interface {
	MatchLength() (int, bool)
}

// Named lets a subject report the type name used in FieldNotFound errors and
// TypeName selectors. Subjects that do not implement it are named by %T.
type Named interface {
	TypeName() string
}

// Matchable is the field-access capability a composite subject provides.
// The evaluator never inspects a subject's structure itself: every FieldValue
// condition goes through LookupField.
//
// LookupField returns a *FieldNotFoundError when the path does not exist.
type Matchable interface {
	LookupField(path string) (Value, error)
}

// Resource limits enforced when compiling rules and resolving field paths.
const (
	// MaxNestingDepth bounds NestedCondition recursion in compiled rule documents.
	// 32 levels is far deeper than any hand-written rule and keeps evaluation
	// recursion well away from stack limits.
	MaxNestingDepth = 32

	// MaxPathDepth prevents stack overflow during recursive path resolution.
	// 16 levels handles deeply nested JSON (a.b.c...) without performance degradation.
	MaxPathDepth = 16

	// MaxNestedWildcards limits wildcard expansion to prevent combinatorial explosion.
	// 2 wildcards allow patterns like orders.*.items.*.price without exponential fan-out.
	MaxNestedWildcards = 2

	// MaxRuleDocumentSize caps a JSON rule document accepted by the catalog and the
	// match service.
	MaxRuleDocumentSize = 1024 * 1024

	// MaxPayloadSize limits a JSON subject document.
	MaxPayloadSize = 1024 * 1024

	// MaxRuleSetNameLength bounds catalog rule-set names.
	MaxRuleSetNameLength = 128
)

// PathSegment represents one segment in a field path.
// Exactly one of Key, Index (with IsIndex) or Wildcard is meaningful.
type PathSegment struct {
	Key      string // object key
	Index    int    // array index (valid when IsIndex)
	IsIndex  bool   // segment addresses an array element
	Wildcard bool   // matches any key or element
}
