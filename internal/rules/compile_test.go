package rules

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/solatis/condmatch/internal/types"
)

const priceRules = `{"mode":"OR","nested":[{"mode":"AND","rules":[{"field":"price","operator":"greater_than","value":500}]},{"mode":"AND","rules":[{"field":"price","operator":"less_than","value":100},{"field":"in_stock","operator":"equals","value":false}]}]}`

func TestFromJSON_PriceRules(t *testing.T) {
	m, err := FromJSON([]byte(priceRules))
	if err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}

	tests := []struct {
		name    string
		price   int
		inStock bool
		want    bool
	}{
		{"expensive", 600, true, true},
		{"cheap and out of stock", 50, false, true},
		{"mid-range", 200, true, false},
		{"cheap but in stock", 50, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Run(Map{"price": tt.price, "in_stock": tt.inStock})
			if err != nil {
				t.Fatalf("Run(Map) error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Run(Map) = %v, want %v", got, tt.want)
			}

			raw, _ := json.Marshal(map[string]any{"price": tt.price, "in_stock": tt.inStock})
			doc, err := ParseJSONDocument(raw)
			if err != nil {
				t.Fatalf("ParseJSONDocument() error = %v", err)
			}
			got, err = m.Run(doc)
			if err != nil {
				t.Fatalf("Run(JSONDocument) error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Run(JSONDocument) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromJSON_CanonicalRoundTrip(t *testing.T) {
	m, err := FromJSON([]byte(priceRules))
	if err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}
	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if string(out) != priceRules {
		t.Errorf("canonical form = %s\nwant %s", out, priceRules)
	}

	again, err := FromJSON(out)
	if err != nil {
		t.Fatalf("FromJSON(canonical) error = %v", err)
	}
	if diff := cmp.Diff(m.Tree(), again.Tree(), cmp.Comparer(func(a, b types.Value) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("round-trip tree mismatch (-first +second):\n%s", diff)
	}
}

func TestFromJSON_Aliases(t *testing.T) {
	canonical := `{"mode":"AND","rules":[{"field":"a","operator":"equals","value":1}],"nested":[{"mode":"XOR"}]}`

	docs := []string{
		`{"mode":"AND","rules":[{"field":"a","operator":"equals","value":1}],"nested":[{"mode":"XOR"}]}`,
		`{"logic":"AND","conditions":[{"field":"a","operator":"equals","value":1}],"nested_rules":[{"comparator":"XOR"}]}`,
		`{"comparator":"AND","rules":[{"field":"a","operator":"equals","value":1}],"nested_conditions":[{"logic":"XOR"}]}`,
		`{"mode":"AND","rules":[{"field":"a","operator":"equals","value":1,"note":"ignored"}],"nested":[{"mode":"XOR","rules":null}],"description":"ignored"}`,
	}

	for _, doc := range docs {
		m, err := FromJSON([]byte(doc))
		if err != nil {
			t.Fatalf("FromJSON(%s) error = %v", doc, err)
		}
		out, err := m.MarshalJSON()
		if err != nil {
			t.Fatalf("MarshalJSON() error = %v", err)
		}
		if string(out) != canonical {
			t.Errorf("FromJSON(%s) canonical = %s, want %s", doc, out, canonical)
		}
	}
}

func TestCompile_Values(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  types.Value
	}{
		{"integer", `500`, types.Int(500)},
		{"negative integer", `-7`, types.Int(-7)},
		{"above int64", `18446744073709551615`, types.Uint(18446744073709551615)},
		{"above uint64", `18446744073709551616`, types.Float(18446744073709551616)},
		{"fraction", `1.5`, types.Float(1.5)},
		{"integral with fraction", `2.0`, types.Float(2)},
		{"exponent", `1e3`, types.Float(1000)},
		{"string", `"x"`, types.String("x")},
		{"bool", `true`, types.Bool(true)},
		{"null", `null`, types.None()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `{"mode":"AND","rules":[{"field":"f","operator":"equals","value":` + tt.value + `}]}`
			tree, err := Compile([]byte(doc))
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			sel := tree.Rules[0].Selector.(types.FieldSelector)
			if !sel.Operand.Equal(tt.want) {
				t.Errorf("operand = %v (%v), want %v (%v)", sel.Operand, sel.Operand.Kind(), tt.want, tt.want.Kind())
			}
		})
	}
}

func TestCompile_UnaryOperators(t *testing.T) {
	for _, op := range []string{"is_empty", "is_not_empty", "is_none", "is_some"} {
		doc := `{"mode":"AND","rules":[{"field":"f","operator":"` + op + `"}]}`
		tree, err := Compile([]byte(doc))
		if err != nil {
			t.Errorf("Compile(%s without value) error = %v", op, err)
			continue
		}
		out, err := MarshalTree(tree)
		if err != nil {
			t.Fatalf("MarshalTree() error = %v", err)
		}
		if string(out) != doc {
			t.Errorf("MarshalTree() = %s, want %s", out, doc)
		}
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantErr  error
		contains string
	}{
		{"malformed json", `{"mode":`, types.ErrParse, "malformed JSON"},
		{"trailing data", `{"mode":"AND"} {}`, types.ErrParse, "unexpected data"},
		{"root not object", `[]`, types.ErrParse, "expected object"},
		{"missing mode", `{"rules":[]}`, types.ErrParse, `missing "mode"`},
		{"lowercase mode", `{"mode":"and"}`, types.ErrParse, "unknown mode"},
		{"mode not string", `{"mode":1}`, types.ErrParse, "mode must be a string"},
		{"duplicate mode alias", `{"mode":"AND","logic":"OR"}`, types.ErrParse, "duplicate field"},
		{"duplicate rules alias", `{"mode":"AND","rules":[],"conditions":[]}`, types.ErrParse, "duplicate field"},
		{"rules not array", `{"mode":"AND","rules":{}}`, types.ErrParse, "must be an array"},
		{"rule not object", `{"mode":"AND","rules":[1]}`, types.ErrParse, "rules[0]"},
		{"missing field", `{"mode":"AND","rules":[{"operator":"equals","value":1}]}`, types.ErrParse, `"field" must be a string`},
		{"empty field", `{"mode":"AND","rules":[{"field":"","operator":"equals","value":1}]}`, types.ErrParse, "must not be empty"},
		{"missing value", `{"mode":"AND","rules":[{"field":"f","operator":"equals"}]}`, types.ErrParse, `missing "value"`},
		{"unknown operator", `{"mode":"AND","rules":[{"field":"f","operator":"approx","value":1}]}`, types.ErrUnknownOperator, "approx"},
		{"operator wrong case", `{"mode":"AND","rules":[{"field":"f","operator":"Equals","value":1}]}`, types.ErrUnknownOperator, "Equals"},
		{"array value", `{"mode":"AND","rules":[{"field":"tags","operator":"contains","value":["a"]}]}`, types.ErrUnsupportedValueType, "tags"},
		{"object value", `{"mode":"AND","rules":[{"field":"f","operator":"equals","value":{"a":1}}]}`, types.ErrUnsupportedValueType, "object"},
		{"number out of range", `{"mode":"AND","rules":[{"field":"f","operator":"equals","value":1e400}]}`, types.ErrParse, "out of range"},
		{"nested error location", `{"mode":"OR","nested":[{"mode":"AND"},{"mode":"AND","rules":[{"field":"f","operator":"nope","value":1}]}]}`, types.ErrUnknownOperator, "nested[1].rules[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile([]byte(tt.doc))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Compile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("Compile() error = %q, want it to contain %q", err, tt.contains)
			}
		})
	}
}

func TestCompile_ErrorDetails(t *testing.T) {
	_, err := Compile([]byte(`{"mode":"AND","rules":[{"field":"f","operator":"approx","value":1}]}`))
	var uo *types.UnknownOperatorError
	if !errors.As(err, &uo) || uo.Token != "approx" {
		t.Errorf("error = %v, want *UnknownOperatorError{approx}", err)
	}

	_, err = Compile([]byte(`{"mode":"AND","rules":[{"field":"tags","operator":"contains","value":["a"]}]}`))
	var uv *types.UnsupportedValueTypeError
	if !errors.As(err, &uv) || uv.Field != "tags" || uv.Type != "array" {
		t.Errorf("error = %v, want *UnsupportedValueTypeError{tags array}", err)
	}
}

func TestCompile_NestingLimit(t *testing.T) {
	build := func(levels int) string {
		return strings.Repeat(`{"mode":"AND","nested":[`, levels-1) + `{"mode":"AND"}` + strings.Repeat(`]}`, levels-1)
	}

	if _, err := Compile([]byte(build(types.MaxNestingDepth))); err != nil {
		t.Errorf("Compile(%d levels) error = %v", types.MaxNestingDepth, err)
	}
	if _, err := Compile([]byte(build(types.MaxNestingDepth + 1))); !errors.Is(err, types.ErrParse) {
		t.Errorf("Compile(%d levels) error = %v, want ErrParse", types.MaxNestingDepth+1, err)
	}
}

func TestCompile_DocumentTooLarge(t *testing.T) {
	doc := make([]byte, types.MaxRuleDocumentSize+1)
	if _, err := Compile(doc); !errors.Is(err, types.ErrParse) {
		t.Errorf("Compile(oversized) error = %v, want ErrParse", err)
	}
}

func TestFromValue(t *testing.T) {
	var decoded any
	if err := json.Unmarshal([]byte(priceRules), &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	m, err := FromValue(decoded)
	if err != nil {
		t.Fatalf("FromValue() error = %v", err)
	}
	out, _ := m.MarshalJSON()
	if string(out) != priceRules {
		t.Errorf("FromValue canonical = %s, want %s", out, priceRules)
	}

	m, err = FromValue(json.RawMessage(priceRules))
	if err != nil {
		t.Fatalf("FromValue(RawMessage) error = %v", err)
	}
	if ok, err := m.Run(Map{"price": 600}); err != nil || !ok {
		t.Errorf("Run() = %v, %v; want true, nil", ok, err)
	}

	if _, err := FromValue("not a document"); !errors.Is(err, types.ErrParse) {
		t.Errorf("FromValue(string) error = %v, want ErrParse", err)
	}
}

func TestJSONMatcher_Embedded(t *testing.T) {
	var cfg struct {
		Name  string       `json:"name"`
		Rules *JSONMatcher `json:"rules"`
	}
	data := `{"name":"pricing","rules":` + priceRules + `}`
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if cfg.Rules.Mode() != types.ModeOr {
		t.Errorf("Mode() = %v, want OR", cfg.Rules.Mode())
	}

	out, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if string(out) != data {
		t.Errorf("json.Marshal() = %s, want %s", out, data)
	}

	bad := `{"name":"x","rules":{"mode":"NAND"}}`
	if err := json.Unmarshal([]byte(bad), &cfg); !errors.Is(err, types.ErrParse) {
		t.Errorf("json.Unmarshal(bad) error = %v, want ErrParse", err)
	}
}

func TestMarshalTree(t *testing.T) {
	tree := Group(types.ModeAnd, []types.Condition{
		Field("ratio").Equals(2.0),
		Field("initial").Equals('x'),
		Field("html").Contains("<b>"),
		Field("email").IsNone(),
	})
	out, err := MarshalTree(tree)
	if err != nil {
		t.Fatalf("MarshalTree() error = %v", err)
	}
	want := `{"mode":"AND","rules":[{"field":"ratio","operator":"equals","value":2.0},{"field":"initial","operator":"equals","value":120},{"field":"html","operator":"contains","value":"<b>"},{"field":"email","operator":"is_none"}]}`
	if string(out) != want {
		t.Errorf("MarshalTree() = %s\nwant %s", out, want)
	}

	if _, err := MarshalTree(Group(types.ModeAnd, []types.Condition{ValueEquals(1)})); !errors.Is(err, types.ErrInvalidCondition) {
		t.Errorf("MarshalTree(value selector) error = %v, want ErrInvalidCondition", err)
	}
	if _, err := MarshalTree(Group(types.ModeAnd, []types.Condition{Not(Field("a").Equals(1))})); !errors.Is(err, types.ErrInvalidCondition) {
		t.Errorf("MarshalTree(not selector) error = %v, want ErrInvalidCondition", err)
	}
}
