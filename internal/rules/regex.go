// internal/rules/regex.go
package rules

import (
	"fmt"
	"regexp"
	"time"

	"github.com/dlclark/regexp2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/solatis/condmatch/internal/types"
)

/*
 * Regex strategies.
 *
 * The regex operator delegates to an injected RegexEngine. Two engines ship:
 *   - RE2: Go's regexp package; linear time, no backreferences (default)
 *   - Regexp2: .NET-compatible syntax with lookaround; bounded by MatchTimeout
 *
 * A nil engine is a valid configuration: the regex operator then reports
 * UnsupportedOperator with a reason instead of matching.
 *
 * Patterns come from rule documents and are compiled lazily on first use.
 * Compiled patterns (and compile failures) are cached per engine in an LRU
 * bounded by RegexCacheSize. Rule documents can arrive from clients, so the
 * set of distinct patterns an engine sees is unbounded.
 */

// RegexEngine matches a subject string against a pattern. Match returns a
// *types.RegexCompileError when pattern is invalid.
type RegexEngine interface {
	Name() string
	Match(pattern, s string) (bool, error)
}

// Engine names accepted by NewRegexEngine and the engine.regex config key.
const (
	RegexRE2     = "re2"
	RegexRegexp2 = "regexp2"
	RegexNone    = "none"
)

// NewRegexEngine returns the engine registered under name. "none" returns a
// nil engine, which disables the regex operator.
func NewRegexEngine(name string, timeout time.Duration) (RegexEngine, error) {
	switch name {
	case RegexRE2, "":
		return NewRE2Engine(), nil
	case RegexRegexp2:
		return NewRegexp2Engine(timeout), nil
	case RegexNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown regex engine %q (want re2, regexp2 or none)", name)
	}
}

// RegexCacheSize is how many compiled patterns each engine keeps.
const RegexCacheSize = 1024

func newPatternCache[T any]() *lru.Cache[string, T] {
	c, err := lru.New[string, T](RegexCacheSize)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return c
}

type re2Entry struct {
	re  *regexp.Regexp
	err error
}

// RE2Engine compiles patterns with the standard regexp package.
type RE2Engine struct {
	cache *lru.Cache[string, re2Entry]
}

func NewRE2Engine() *RE2Engine {
	return &RE2Engine{cache: newPatternCache[re2Entry]()}
}

func (e *RE2Engine) Name() string { return RegexRE2 }

func (e *RE2Engine) Match(pattern, s string) (bool, error) {
	compiled, ok := e.cache.Get(pattern)
	if !ok {
		re, err := regexp.Compile(pattern)
		if err != nil {
			err = &types.RegexCompileError{Pattern: pattern, Message: err.Error()}
		}
		compiled = re2Entry{re: re, err: err}
		e.cache.Add(pattern, compiled)
	}
	if compiled.err != nil {
		return false, compiled.err
	}
	return compiled.re.MatchString(s), nil
}

type regexp2Entry struct {
	re  *regexp2.Regexp
	err error
}

// Regexp2Engine compiles patterns with dlclark/regexp2. Backtracking is
// bounded per match by timeout; a timed-out match is reported as an error.
type Regexp2Engine struct {
	timeout time.Duration
	cache   *lru.Cache[string, regexp2Entry]
}

// DefaultRegexTimeout bounds a single regexp2 match when no timeout is configured.
const DefaultRegexTimeout = 100 * time.Millisecond

func NewRegexp2Engine(timeout time.Duration) *Regexp2Engine {
	if timeout <= 0 {
		timeout = DefaultRegexTimeout
	}
	return &Regexp2Engine{timeout: timeout, cache: newPatternCache[regexp2Entry]()}
}

func (e *Regexp2Engine) Name() string { return RegexRegexp2 }

func (e *Regexp2Engine) Match(pattern, s string) (bool, error) {
	compiled, ok := e.cache.Get(pattern)
	if !ok {
		re, err := regexp2.Compile(pattern, regexp2.None)
		if err != nil {
			err = &types.RegexCompileError{Pattern: pattern, Message: err.Error()}
		} else {
			re.MatchTimeout = e.timeout
		}
		compiled = regexp2Entry{re: re, err: err}
		e.cache.Add(pattern, compiled)
	}
	if compiled.err != nil {
		return false, compiled.err
	}
	matched, err := compiled.re.MatchString(s)
	if err != nil {
		return false, fmt.Errorf("regex %q: %w", pattern, err)
	}
	return matched, nil
}
