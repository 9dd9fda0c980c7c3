// internal/rules/compile.go
package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/solatis/condmatch/internal/types"
)

/*
 * JSON rule compilation.
 *
 * Grammar:
 *   Node := { "mode": Mode, "rules": [Rule]?, "nested": [Node]? }
 *   Rule := { "field": string, "operator": OperatorToken, "value": JSONScalar }
 *   Mode := "AND" | "OR" | "XOR"
 *
 * Accepted aliases: "logic" and "comparator" for "mode", "conditions" for
 * "rules", "nested_rules" and "nested_conditions" for "nested". Giving a key
 * and its alias together is an error. Unknown keys are ignored.
 *
 * Value conversion by JSON kind:
 *   - number without '.', 'e' or 'E': Integer, UnsignedInteger above int64,
 *     Float above uint64
 *   - number with fraction or exponent: Float
 *   - string, bool: String, Bool
 *   - null: None
 *   - array, object: UnsupportedValueType
 *
 * "value" may be omitted only for is_empty, is_not_empty, is_none, is_some.
 *
 * Compilation is all-or-nothing: any error discards the partial tree. Regex
 * patterns are not compiled here; invalid patterns surface at evaluation.
 * Operator/kind compatibility is likewise checked only at evaluation.
 *
 * Error locations use the document shape, e.g. "nested[1].rules[0]".
 */

var (
	modeKeys   = []string{"mode", "logic", "comparator"}
	rulesKeys  = []string{"rules", "conditions"}
	nestedKeys = []string{"nested", "nested_rules", "nested_conditions"}
)

// FromJSON compiles a JSON rule document.
func FromJSON(data []byte, opts ...Option) (*JSONMatcher, error) {
	tree, err := Compile(data)
	if err != nil {
		return nil, err
	}
	return newJSONMatcher(tree, opts)
}

// FromValue compiles an already-decoded JSON document, as produced by
// json.Unmarshal into an any. Integral float64 numbers become Integer values.
// A []byte or json.RawMessage is compiled as JSON text.
func FromValue(doc any, opts ...Option) (*JSONMatcher, error) {
	tree, err := CompileValue(doc)
	if err != nil {
		return nil, err
	}
	return newJSONMatcher(tree, opts)
}

func newJSONMatcher(tree types.NestedCondition, opts []Option) (*JSONMatcher, error) {
	doc, err := MarshalTree(tree)
	if err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &JSONMatcher{tree: tree, document: doc, engine: o.engine}, nil
}

// Compile parses data into a condition tree.
func Compile(data []byte) (types.NestedCondition, error) {
	if len(data) > types.MaxRuleDocumentSize {
		return types.NestedCondition{}, &types.ParseError{
			Message: fmt.Sprintf("rule document exceeds %d bytes", types.MaxRuleDocumentSize),
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return types.NestedCondition{}, &types.ParseError{Message: "malformed JSON: " + err.Error()}
	}
	if _, err := dec.Token(); err != io.EOF {
		return types.NestedCondition{}, &types.ParseError{Message: "unexpected data after rule document"}
	}

	return compileNode(raw, "", 1)
}

// CompileValue converts a decoded JSON document into a condition tree.
func CompileValue(doc any) (types.NestedCondition, error) {
	switch d := doc.(type) {
	case json.RawMessage:
		return Compile(d)
	case []byte:
		return Compile(d)
	}
	return compileNode(doc, "", 1)
}

func compileNode(raw any, at string, depth int) (types.NestedCondition, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return types.NestedCondition{}, parseErrorf(at, "expected object, got %s", jsonType(raw))
	}
	if depth > types.MaxNestingDepth {
		return types.NestedCondition{}, parseErrorf(at, "nesting exceeds %d levels", types.MaxNestingDepth)
	}

	modeRaw, present, err := pick(obj, at, modeKeys)
	if err != nil {
		return types.NestedCondition{}, err
	}
	if !present {
		return types.NestedCondition{}, parseErrorf(at, `missing "mode"`)
	}
	modeToken, ok := modeRaw.(string)
	if !ok {
		return types.NestedCondition{}, parseErrorf(at, "mode must be a string, got %s", jsonType(modeRaw))
	}
	mode, err := types.ParseMode(modeToken)
	if err != nil {
		return types.NestedCondition{}, parseErrorf(at, "unknown mode %q, expected AND, OR or XOR", modeToken)
	}

	node := types.NestedCondition{Mode: mode}

	rules, err := pickArray(obj, at, rulesKeys)
	if err != nil {
		return types.NestedCondition{}, err
	}
	if len(rules) > 0 {
		node.Rules = make([]types.Condition, 0, len(rules))
	}
	for i, r := range rules {
		c, err := compileRule(r, join(at, fmt.Sprintf("rules[%d]", i)))
		if err != nil {
			return types.NestedCondition{}, err
		}
		node.Rules = append(node.Rules, c)
	}

	nested, err := pickArray(obj, at, nestedKeys)
	if err != nil {
		return types.NestedCondition{}, err
	}
	if len(nested) > 0 {
		node.Nested = make([]types.NestedCondition, 0, len(nested))
	}
	for i, n := range nested {
		child, err := compileNode(n, join(at, fmt.Sprintf("nested[%d]", i)), depth+1)
		if err != nil {
			return types.NestedCondition{}, err
		}
		node.Nested = append(node.Nested, child)
	}

	return node, nil
}

func compileRule(raw any, at string) (types.Condition, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return types.Condition{}, parseErrorf(at, "expected rule object, got %s", jsonType(raw))
	}

	field, ok := obj["field"].(string)
	if !ok {
		return types.Condition{}, parseErrorf(at, `"field" must be a string`)
	}
	if field == "" {
		return types.Condition{}, parseErrorf(at, `"field" must not be empty`)
	}

	token, ok := obj["operator"].(string)
	if !ok {
		return types.Condition{}, parseErrorf(at, `"operator" must be a string`)
	}
	op, err := types.ParseOperator(token)
	if err != nil {
		return types.Condition{}, locate(at, err)
	}

	var operand types.Value
	rawValue, present := obj["value"]
	switch {
	case present:
		operand, err = convertValue(field, rawValue)
		if err != nil {
			return types.Condition{}, locate(at, err)
		}
	case !op.IsUnary():
		return types.Condition{}, parseErrorf(at, `missing "value" for operator %s`, op)
	}

	return types.Condition{
		Selector: types.FieldSelector{Path: field, Operand: operand},
		Operator: op,
	}, nil
}

// convertValue maps a decoded JSON scalar onto a Value.
func convertValue(field string, raw any) (types.Value, error) {
	switch v := raw.(type) {
	case nil:
		return types.None(), nil
	case bool:
		return types.Bool(v), nil
	case string:
		return types.String(v), nil
	case json.Number:
		return parseNumber(field, string(v))
	case float64:
		return fromFloat(v), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32:
		return types.ValueOf(v)
	default:
		return types.Value{}, &types.UnsupportedValueTypeError{Field: field, Type: jsonType(raw)}
	}
}

func parseNumber(field, s string) (types.Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return types.Int(i), nil
		}
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return types.Uint(u), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return types.Value{}, &types.ParseError{Message: fmt.Sprintf("number %s for field %q out of range", s, field)}
	}
	return types.Float(f), nil
}

// fromFloat treats integral float64 values from json.Unmarshal as integers.
func fromFloat(f float64) types.Value {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		if f >= math.MinInt64 && f < math.MaxInt64 {
			return types.Int(int64(f))
		}
		if f >= 0 && f < math.MaxUint64 {
			return types.Uint(uint64(f))
		}
	}
	return types.Float(f)
}

// pick returns the value stored under the first present key of keys.
func pick(obj map[string]any, at string, keys []string) (any, bool, error) {
	var (
		found string
		value any
	)
	for _, k := range keys {
		v, ok := obj[k]
		if !ok {
			continue
		}
		if found != "" {
			return nil, false, parseErrorf(at, "duplicate field %q (alias of %q)", k, found)
		}
		found, value = k, v
	}
	return value, found != "", nil
}

// pickArray is pick for list-valued keys. Absent and null both mean empty.
func pickArray(obj map[string]any, at string, keys []string) ([]any, error) {
	v, present, err := pick(obj, at, keys)
	if err != nil || !present || v == nil {
		return nil, err
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, parseErrorf(at, "%q must be an array, got %s", keys[0], jsonType(v))
	}
	return arr, nil
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case json.Number, float64, float32, int, int64, uint64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func join(at, part string) string {
	if at == "" {
		return part
	}
	return at + "." + part
}

func parseErrorf(at, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if at != "" {
		msg = at + ": " + msg
	}
	return &types.ParseError{Message: msg}
}

// locate prefixes err with the document location, keeping it matchable with
// errors.As. ParseErrors get the location folded into their message.
func locate(at string, err error) error {
	if at == "" {
		return err
	}
	var pe *types.ParseError
	if errors.As(err, &pe) {
		return &types.ParseError{Message: at + ": " + pe.Message}
	}
	return fmt.Errorf("%s: %w", at, err)
}

type nodeDocument struct {
	Mode   string         `json:"mode"`
	Rules  []ruleDocument `json:"rules,omitempty"`
	Nested []nodeDocument `json:"nested,omitempty"`
}

type ruleDocument struct {
	Field    string          `json:"field"`
	Operator string          `json:"operator"`
	Value    json.RawMessage `json:"value,omitempty"`
}

// MarshalTree renders tree as a canonical JSON rule document. Only
// FieldSelector conditions have a JSON form.
func MarshalTree(tree types.NestedCondition) ([]byte, error) {
	doc, err := treeDocument(tree)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func treeDocument(n types.NestedCondition) (nodeDocument, error) {
	doc := nodeDocument{Mode: n.Mode.String()}
	if _, err := n.Mode.MarshalText(); err != nil {
		return nodeDocument{}, err
	}
	for _, c := range n.Rules {
		sel, ok := c.Selector.(types.FieldSelector)
		if !ok {
			return nodeDocument{}, fmt.Errorf("%w: %T has no JSON rule form", types.ErrInvalidCondition, c.Selector)
		}
		if !c.Operator.Valid() {
			return nodeDocument{}, &types.UnknownOperatorError{Token: c.Operator.String()}
		}
		value, err := encodeValue(sel.Operand)
		if err != nil {
			return nodeDocument{}, fmt.Errorf("field %q: %w", sel.Path, err)
		}
		doc.Rules = append(doc.Rules, ruleDocument{Field: sel.Path, Operator: c.Operator.String(), Value: value})
	}
	for _, child := range n.Nested {
		childDoc, err := treeDocument(child)
		if err != nil {
			return nodeDocument{}, err
		}
		doc.Nested = append(doc.Nested, childDoc)
	}
	return doc, nil
}

// encodeValue renders v so that compiling it yields the same Value. Floats
// always carry a fraction or exponent. Invalid values are omitted.
func encodeValue(v types.Value) (json.RawMessage, error) {
	switch v.Kind() {
	case types.KindInvalid:
		return nil, nil
	case types.KindOption:
		if v.IsNone() {
			return json.RawMessage("null"), nil
		}
		return encodeValue(v.Unwrap())
	case types.KindInteger:
		i, _ := v.Int()
		return json.RawMessage(strconv.FormatInt(i, 10)), nil
	case types.KindUnsigned:
		u, _ := v.Uint()
		return json.RawMessage(strconv.FormatUint(u, 10)), nil
	case types.KindLength:
		n, _ := v.Len()
		return json.RawMessage(strconv.Itoa(n)), nil
	case types.KindFloat:
		f, _ := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &types.UnsupportedValueTypeError{Type: "non-finite float " + v.String()}
		}
		s := strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return json.RawMessage(s), nil
	case types.KindBool:
		b, _ := v.Bool()
		return json.RawMessage(strconv.FormatBool(b)), nil
	case types.KindChar:
		r, _ := v.Char()
		return encodeString(string(r))
	default:
		s, _ := v.Text()
		return encodeString(s)
	}
}

func encodeString(s string) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
