package rules

// Engine holds the optional capabilities operator dispatch depends on.
// An Engine is immutable after construction and safe for concurrent use.
type Engine struct {
	regex RegexEngine
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRegexEngine sets the regex strategy. Passing nil disables the regex
// operator.
func WithRegexEngine(re RegexEngine) EngineOption {
	return func(e *Engine) {
		e.regex = re
	}
}

// NewEngine creates an operator engine. Without options the regex operator
// uses RE2.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{regex: NewRE2Engine()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegexEngine returns the configured regex strategy, or nil when disabled.
func (e *Engine) RegexEngine() RegexEngine {
	return e.regex
}

var defaultEngine = NewEngine()

// DefaultEngine returns the shared engine used when a matcher is built
// without WithEngine.
func DefaultEngine() *Engine {
	return defaultEngine
}
