// internal/rules/fieldaccess.go
package rules

import (
	"errors"
	"sort"
	"strings"

	"github.com/solatis/condmatch/internal/types"
)

/*
 * Field-access adapters.
 *
 * The evaluator resolves FieldSelector paths only through types.Matchable.
 * Two adapters cover Go values:
 *   - FieldTable[T]: a registered table of name -> extractor for a record type
 *   - Map: a map[string]any subject
 *
 * Dotted paths ("address.city") resolve the first segment here and hand the
 * remainder to the extracted value, which must itself be Matchable (or a
 * map[string]any). JSON payloads use JSONDocument in fieldpath.go instead.
 */

// FieldTable maps field names of T to extractors. Build one per record type
// at package init and call Lookup from the type's LookupField method:
//
//	var userFields = rules.NewFieldTable[User]("User").
//		Field("age", func(u *User) any { return u.Age }).
//		Field("email", func(u *User) any { return u.Email })
//
//	func (u *User) LookupField(path string) (types.Value, error) {
//		return userFields.Lookup(u, path)
//	}
//
// A table is read-only once shared.
type FieldTable[T any] struct {
	typeName string
	fields   map[string]func(*T) any
}

// NewFieldTable creates an empty table. typeName is reported in
// FieldNotFound errors.
func NewFieldTable[T any](typeName string) *FieldTable[T] {
	return &FieldTable[T]{typeName: typeName, fields: make(map[string]func(*T) any)}
}

// Field registers an extractor for name and returns t for chaining. Names
// must not contain dots.
func (t *FieldTable[T]) Field(name string, get func(*T) any) *FieldTable[T] {
	if name == "" || strings.Contains(name, ".") {
		panic("rules: invalid field name " + `"` + name + `"`)
	}
	t.fields[name] = get
	return t
}

// TypeName returns the record type name given to NewFieldTable.
func (t *FieldTable[T]) TypeName() string { return t.typeName }

// Names returns the registered field names in sorted order.
func (t *FieldTable[T]) Names() []string {
	names := make([]string, 0, len(t.fields))
	for name := range t.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves path on subject. A nil subject has no fields.
func (t *FieldTable[T]) Lookup(subject *T, path string) (types.Value, error) {
	if path == "" {
		return types.Value{}, types.ErrEmptyFieldPath
	}
	head, rest, nested := strings.Cut(path, ".")
	get, ok := t.fields[head]
	if !ok || subject == nil {
		return types.Value{}, &types.FieldNotFoundError{Field: path, TypeName: t.typeName}
	}

	raw := get(subject)
	if nested {
		v, err := lookupChild(raw, rest)
		if errors.Is(err, types.ErrFieldNotFound) {
			return types.Value{}, &types.FieldNotFoundError{Field: path, TypeName: t.typeName}
		}
		return v, err
	}

	v, err := types.ValueOf(raw)
	if err != nil {
		return types.Value{}, withField(err, path)
	}
	return v, nil
}

// lookupChild continues a dotted path into an extracted value.
func lookupChild(raw any, rest string) (types.Value, error) {
	switch child := raw.(type) {
	case types.Matchable:
		return child.LookupField(rest)
	case map[string]any:
		return Map(child).LookupField(rest)
	default:
		return types.Value{}, &types.FieldNotFoundError{Field: rest, TypeName: typeName(raw)}
	}
}

// Map is a Matchable view of a map[string]any. Dotted paths descend into
// nested maps and Matchable values.
type Map map[string]any

func (m Map) TypeName() string { return "map" }

func (m Map) MatchLength() (int, bool) { return len(m), true }

func (m Map) LookupField(path string) (types.Value, error) {
	if path == "" {
		return types.Value{}, types.ErrEmptyFieldPath
	}
	head, rest, nested := strings.Cut(path, ".")
	raw, ok := m[head]
	if !ok {
		return types.Value{}, &types.FieldNotFoundError{Field: path, TypeName: m.TypeName()}
	}
	if nested {
		v, err := lookupChild(raw, rest)
		if errors.Is(err, types.ErrFieldNotFound) {
			return types.Value{}, &types.FieldNotFoundError{Field: path, TypeName: m.TypeName()}
		}
		return v, err
	}
	v, err := types.ValueOf(raw)
	if err != nil {
		return types.Value{}, withField(err, path)
	}
	return v, nil
}

func withField(err error, field string) error {
	var uv *types.UnsupportedValueTypeError
	if errors.As(err, &uv) {
		return &types.UnsupportedValueTypeError{Field: field, Type: uv.Type}
	}
	return err
}
