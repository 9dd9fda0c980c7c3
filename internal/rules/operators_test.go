package rules

import (
	"errors"
	"testing"

	"github.com/solatis/condmatch/internal/types"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		op      types.Operator
		actual  types.Value
		operand types.Value
		want    bool
		wantErr error
	}{
		// equality
		{"equals int", types.OpEquals, types.Int(5), types.Int(5), true, nil},
		{"equals int vs uint", types.OpEquals, types.Int(5), types.Uint(5), true, nil},
		{"equals int vs float", types.OpEquals, types.Int(5), types.Float(5), true, nil},
		{"not equals numbers", types.OpNotEquals, types.Int(5), types.Int(6), true, nil},
		{"equals string", types.OpEquals, types.String("a"), types.String("a"), true, nil},
		{"equals bool", types.OpEquals, types.Bool(false), types.Bool(false), true, nil},
		{"equals char", types.OpEquals, types.Char('x'), types.Char('y'), false, nil},
		{"equals string vs int mismatch", types.OpEquals, types.String("5"), types.Int(5), false, types.ErrTypeMismatch},
		{"not equals bool vs string mismatch", types.OpNotEquals, types.Bool(true), types.String("true"), false, types.ErrTypeMismatch},
		{"equals some unwraps", types.OpEquals, types.Some(types.Int(5)), types.Int(5), true, nil},
		{"equals none vs none", types.OpEquals, types.None(), types.None(), true, nil},
		{"equals some vs none", types.OpEquals, types.Some(types.Int(1)), types.None(), false, nil},
		{"not equals some vs none", types.OpNotEquals, types.Some(types.Int(1)), types.None(), true, nil},
		{"equals none vs int", types.OpEquals, types.None(), types.Int(1), false, nil},

		// ordering
		{"greater than", types.OpGreaterThan, types.Int(10), types.Int(5), true, nil},
		{"less than", types.OpLessThan, types.Uint(1), types.Int(-1), false, nil},
		{"gte equal", types.OpGreaterThanOrEqual, types.Float(2.5), types.Float(2.5), true, nil},
		{"lte", types.OpLessThanOrEqual, types.Int(3), types.Float(2.9), false, nil},
		{"string ordering", types.OpLessThan, types.String("apple"), types.String("banana"), true, nil},
		{"string ordering by code point", types.OpGreaterThan, types.String("é"), types.String("z"), true, nil},
		{"ordering string vs int mismatch", types.OpGreaterThan, types.String("a"), types.Int(1), false, types.ErrTypeMismatch},
		{"ordering int vs string mismatch", types.OpGreaterThan, types.Int(1), types.String("a"), false, types.ErrTypeMismatch},
		{"ordering bool unsupported", types.OpGreaterThan, types.Bool(true), types.Bool(false), false, types.ErrUnsupportedOperator},
		{"ordering char unsupported", types.OpLessThan, types.Char('a'), types.Char('b'), false, types.ErrUnsupportedOperator},
		{"ordering none unsupported", types.OpLessThan, types.None(), types.Int(1), false, types.ErrUnsupportedOperator},
		{"ordering some unwraps", types.OpGreaterThan, types.Some(types.Int(600)), types.Int(500), true, nil},

		// strings
		{"contains", types.OpContains, types.String("Alice"), types.String("lic"), true, nil},
		{"contains case-sensitive", types.OpContains, types.String("Alice"), types.String("ALICE"), false, nil},
		{"not contains", types.OpNotContains, types.String("Alice"), types.String("bob"), true, nil},
		{"starts with", types.OpStartsWith, types.String("prefix-x"), types.String("prefix"), true, nil},
		{"ends with", types.OpEndsWith, types.String("file.go"), types.String(".rs"), false, nil},
		{"contains on float unsupported", types.OpContains, types.Float(1.5), types.String("1"), false, types.ErrUnsupportedOperator},
		{"contains with int operand mismatch", types.OpContains, types.String("123"), types.Int(2), false, types.ErrTypeMismatch},

		// emptiness
		{"is empty string", types.OpIsEmpty, types.String(""), types.Value{}, true, nil},
		{"is not empty string", types.OpIsNotEmpty, types.String("x"), types.Value{}, true, nil},
		{"is empty length", types.OpIsEmpty, types.Length(0), types.Value{}, true, nil},
		{"is empty some length", types.OpIsEmpty, types.Some(types.Length(2)), types.Value{}, false, nil},
		{"is empty none", types.OpIsEmpty, types.None(), types.Value{}, true, nil},
		{"is empty int unsupported", types.OpIsEmpty, types.Int(0), types.Value{}, false, types.ErrUnsupportedOperator},

		// presence
		{"is none on none", types.OpIsNone, types.None(), types.Value{}, true, nil},
		{"is none on some", types.OpIsNone, types.Some(types.Int(1)), types.Value{}, false, nil},
		{"is some on some", types.OpIsSome, types.Some(types.String("")), types.Value{}, true, nil},
		{"is some on plain value unsupported", types.OpIsSome, types.Int(1), types.Value{}, false, types.ErrUnsupportedOperator},
		{"is none on plain value unsupported", types.OpIsNone, types.String("x"), types.Value{}, false, types.ErrUnsupportedOperator},

		{"unspecified operator", types.OpUnspecified, types.Int(1), types.Int(1), false, types.ErrUnsupportedOperator},
	}

	e := NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Apply(tt.op, tt.actual, tt.operand)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Apply() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Apply() error = %v, want nil", err)
			}
			if got != tt.want {
				t.Errorf("Apply(%v, %v, %v) = %v, want %v", tt.op, tt.actual, tt.operand, got, tt.want)
			}
		})
	}
}

func TestApply_ErrorDetails(t *testing.T) {
	e := NewEngine()

	_, err := e.Apply(types.OpGreaterThan, types.String("a"), types.Int(1))
	var tm *types.TypeMismatchError
	if !errors.As(err, &tm) {
		t.Fatalf("error = %v, want *TypeMismatchError", err)
	}
	if tm.Expected != "string" || tm.Got != "integer" {
		t.Errorf("TypeMismatchError = {%s, %s}, want {string, integer}", tm.Expected, tm.Got)
	}

	_, err = e.Apply(types.OpContains, types.Float(1), types.String("1"))
	var uo *types.UnsupportedOperatorError
	if !errors.As(err, &uo) {
		t.Fatalf("error = %v, want *UnsupportedOperatorError", err)
	}
	if uo.Operator != "contains" || uo.Kind != "float" {
		t.Errorf("UnsupportedOperatorError = {%s, %s}, want {contains, float}", uo.Operator, uo.Kind)
	}
}

func TestApply_Regex(t *testing.T) {
	engines := map[string]*Engine{
		"re2":     NewEngine(),
		"regexp2": NewEngine(WithRegexEngine(NewRegexp2Engine(0))),
	}

	for name, e := range engines {
		t.Run(name, func(t *testing.T) {
			got, err := e.Apply(types.OpRegex, types.String("order-1234"), types.String(`^order-\d+$`))
			if err != nil || !got {
				t.Errorf("regex match = %v, %v; want true, nil", got, err)
			}

			got, err = e.Apply(types.OpRegex, types.String("ORDER-1"), types.String(`^order`))
			if err != nil || got {
				t.Errorf("regex case-sensitive = %v, %v; want false, nil", got, err)
			}

			_, err = e.Apply(types.OpRegex, types.String("x"), types.String(`(unclosed`))
			var rc *types.RegexCompileError
			if !errors.As(err, &rc) {
				t.Fatalf("bad pattern error = %v, want *RegexCompileError", err)
			}
			if rc.Pattern != "(unclosed" || rc.Message == "" {
				t.Errorf("RegexCompileError = %+v", rc)
			}

			// cached failure is reported again
			_, err = e.Apply(types.OpRegex, types.String("y"), types.String(`(unclosed`))
			if !errors.Is(err, types.ErrRegexCompile) {
				t.Errorf("second bad pattern error = %v, want ErrRegexCompile", err)
			}

			_, err = e.Apply(types.OpRegex, types.Int(1), types.String(`1`))
			if !errors.Is(err, types.ErrUnsupportedOperator) {
				t.Errorf("regex on int error = %v, want ErrUnsupportedOperator", err)
			}
		})
	}
}

func TestApply_Regexp2Lookaround(t *testing.T) {
	e := NewEngine(WithRegexEngine(NewRegexp2Engine(0)))
	got, err := e.Apply(types.OpRegex, types.String("price: 100USD"), types.String(`\d+(?=USD)`))
	if err != nil || !got {
		t.Errorf("lookahead = %v, %v; want true, nil", got, err)
	}

	// RE2 has no lookahead
	_, err = NewEngine().Apply(types.OpRegex, types.String("100USD"), types.String(`\d+(?=USD)`))
	if !errors.Is(err, types.ErrRegexCompile) {
		t.Errorf("re2 lookahead error = %v, want ErrRegexCompile", err)
	}
}

func TestApply_RegexDisabled(t *testing.T) {
	e := NewEngine(WithRegexEngine(nil))
	_, err := e.Apply(types.OpRegex, types.String("abc"), types.String("a"))
	var uo *types.UnsupportedOperatorError
	if !errors.As(err, &uo) {
		t.Fatalf("error = %v, want *UnsupportedOperatorError", err)
	}
	if uo.Reason == "" {
		t.Error("Reason is empty, want configuration reason")
	}

	// other operators keep working without a regex engine
	got, err := e.Apply(types.OpContains, types.String("abc"), types.String("b"))
	if err != nil || !got {
		t.Errorf("contains = %v, %v; want true, nil", got, err)
	}
}

func TestNewRegexEngine(t *testing.T) {
	tests := []struct {
		name     string
		wantName string
		wantNil  bool
		wantErr  bool
	}{
		{"re2", "re2", false, false},
		{"", "re2", false, false},
		{"regexp2", "regexp2", false, false},
		{"none", "", true, false},
		{"pcre", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := NewRegexEngine(tt.name, 0)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewRegexEngine(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if (re == nil) != tt.wantNil {
				t.Fatalf("NewRegexEngine(%q) = %v, wantNil %v", tt.name, re, tt.wantNil)
			}
			if re != nil && re.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", re.Name(), tt.wantName)
			}
		})
	}
}
