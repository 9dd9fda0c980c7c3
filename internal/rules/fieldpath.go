// internal/rules/fieldpath.go
package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/solatis/condmatch/internal/types"
)

/*
 * Field path resolution for JSON payloads.
 *
 * JSONDocument is the Matchable adapter for JSON subjects. Paths are parsed
 * by ParsePath and resolved against the decoded document by Resolve.
 *
 * Path syntax:
 *   - dots separate object keys: "customer.address.city"
 *   - a numeric segment or [n] indexes arrays: "items.0.sku", "items[0].sku"
 *   - "*" or [*] is a wildcard over object values or array elements
 *
 * Wildcard semantics: first match wins (ANY). Object keys are visited in
 * sorted order so resolution is deterministic.
 *
 * Limits: MaxPathDepth (16) segments and MaxNestedWildcards (2) wildcards,
 * checked when the path is parsed.
 *
 * Leaf mapping: JSON null resolves to None. Every other leaf resolves to
 * Some(v), with arrays and objects becoming Some(Length(n)). Numbers keep
 * their JSON form (integer, unsigned or float) via json.Number.
 */

// ResolveResult contains the resolved value and the actual path taken.
type ResolveResult struct {
	Value        any                 // resolved value (nil for JSON null)
	ResolvedPath []types.PathSegment // path with wildcards replaced by actual indices
	Found        bool                // true if path resolved to a value
}

// ParsePath splits a dotted path into segments.
// Returns ErrEmptyFieldPath for empty paths or segments.
// Returns ErrInvalidFieldPath for malformed [n] indices.
// Returns ErrPathTooDeep if path exceeds MaxPathDepth.
// Returns ErrTooManyWildcards if path contains > MaxNestedWildcards wildcards.
func ParsePath(path string) ([]types.PathSegment, error) {
	if path == "" {
		return nil, types.ErrEmptyFieldPath
	}

	var segs []types.PathSegment
	for _, part := range strings.Split(path, ".") {
		key, brackets, hasIndex := strings.Cut(part, "[")
		if key == "" && !hasIndex {
			return nil, fmt.Errorf("%w: empty segment in %q", types.ErrEmptyFieldPath, path)
		}
		if key != "" {
			segs = append(segs, keySegment(key))
		}
		if !hasIndex {
			continue
		}
		// brackets holds "0]" or "0][1]" or "*]"
		for _, idx := range strings.Split(brackets, "[") {
			inner, ok := strings.CutSuffix(idx, "]")
			if !ok || inner == "" {
				return nil, fmt.Errorf("%w: malformed index in %q", types.ErrInvalidFieldPath, path)
			}
			if inner == "*" {
				segs = append(segs, types.PathSegment{Wildcard: true})
				continue
			}
			n, err := strconv.Atoi(inner)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: malformed index in %q", types.ErrInvalidFieldPath, path)
			}
			segs = append(segs, types.PathSegment{Key: inner, Index: n, IsIndex: true})
		}
	}

	if len(segs) > types.MaxPathDepth {
		return nil, types.ErrPathTooDeep
	}
	wildcardCount := 0
	for _, seg := range segs {
		if seg.Wildcard {
			wildcardCount++
		}
	}
	if wildcardCount > types.MaxNestedWildcards {
		return nil, types.ErrTooManyWildcards
	}
	return segs, nil
}

// keySegment classifies a dotted segment. Numeric segments address array
// elements but still match object keys spelled the same way.
func keySegment(key string) types.PathSegment {
	if key == "*" {
		return types.PathSegment{Wildcard: true}
	}
	if n, err := strconv.Atoi(key); err == nil && n >= 0 {
		return types.PathSegment{Key: key, Index: n, IsIndex: true}
	}
	return types.PathSegment{Key: key}
}

// FormatPath renders segments back into dotted form, indices as [n].
func FormatPath(segs []types.PathSegment) string {
	var b strings.Builder
	for i, seg := range segs {
		switch {
		case seg.Wildcard:
			b.WriteString("[*]")
		case seg.IsIndex:
			b.WriteString("[" + strconv.Itoa(seg.Index) + "]")
		default:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(seg.Key)
		}
	}
	return b.String()
}

// Resolve traverses a decoded JSON document following path segments.
// Returns ErrFieldNotFound if path does not exist in data.
func Resolve(path []types.PathSegment, root any) (ResolveResult, error) {
	if len(path) > types.MaxPathDepth {
		return ResolveResult{}, types.ErrPathTooDeep
	}
	return resolveRecursive(path, root, nil)
}

// resolveRecursive traverses nested JSON structures following path segments.
// Returns first match for wildcards (ANY semantics). Accumulates resolved path
// with actual indices/keys replacing wildcards for match diagnostics.
func resolveRecursive(path []types.PathSegment, current any, resolvedSoFar []types.PathSegment) (ResolveResult, error) {
	if len(path) == 0 {
		return ResolveResult{
			Value:        current,
			ResolvedPath: resolvedSoFar,
			Found:        true,
		}, nil
	}

	seg := path[0]
	remaining := path[1:]

	switch v := current.(type) {
	case map[string]any:
		if seg.Wildcard {
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, key := range keys {
				resolved := append(resolvedSoFar[:len(resolvedSoFar):len(resolvedSoFar)], types.PathSegment{Key: key})
				result, err := resolveRecursive(remaining, v[key], resolved)
				if err == nil && result.Found {
					return result, nil
				}
			}
			return ResolveResult{}, types.ErrFieldNotFound
		}
		val, ok := v[seg.Key]
		if !ok {
			return ResolveResult{}, types.ErrFieldNotFound
		}
		return resolveRecursive(remaining, val, append(resolvedSoFar, types.PathSegment{Key: seg.Key}))

	case []any:
		if seg.Wildcard {
			for i, elem := range v {
				resolved := append(resolvedSoFar[:len(resolvedSoFar):len(resolvedSoFar)], types.PathSegment{Index: i, IsIndex: true})
				result, err := resolveRecursive(remaining, elem, resolved)
				if err == nil && result.Found {
					return result, nil
				}
			}
			return ResolveResult{}, types.ErrFieldNotFound
		}
		if !seg.IsIndex || seg.Index < 0 || seg.Index >= len(v) {
			return ResolveResult{}, types.ErrFieldNotFound
		}
		return resolveRecursive(remaining, v[seg.Index], append(resolvedSoFar, types.PathSegment{Index: seg.Index, IsIndex: true}))

	default:
		// Scalar or null value but path continues
		return ResolveResult{}, types.ErrFieldNotFound
	}
}

// JSONDocument is a decoded JSON payload usable as a match subject.
// It is immutable and safe for concurrent lookups.
type JSONDocument struct {
	root any
}

// ParseJSONDocument decodes data, keeping numbers exact.
func ParseJSONDocument(data []byte) (*JSONDocument, error) {
	if len(data) > types.MaxPayloadSize {
		return nil, types.ErrPayloadTooLarge
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("decode subject: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("decode subject: unexpected data after document")
	}
	return &JSONDocument{root: root}, nil
}

// NewJSONDocument wraps an already-decoded document (maps, slices, scalars
// as produced by encoding/json).
func NewJSONDocument(root any) *JSONDocument {
	return &JSONDocument{root: root}
}

// Root returns the decoded document. A nil *JSONDocument is the JSON null
// document: it has no fields, no length and matches as None.
func (d *JSONDocument) Root() any {
	if d == nil {
		return nil
	}
	return d.root
}

// LookupField implements types.Matchable.
func (d *JSONDocument) LookupField(path string) (types.Value, error) {
	segs, err := ParsePath(path)
	if err != nil {
		return types.Value{}, err
	}
	res, err := Resolve(segs, d.Root())
	if errors.Is(err, types.ErrFieldNotFound) {
		return types.Value{}, &types.FieldNotFoundError{Field: path, TypeName: d.TypeName()}
	}
	if err != nil {
		return types.Value{}, err
	}
	return jsonValue(path, res.Value)
}

// MatchValue presents the document root as a single value.
func (d *JSONDocument) MatchValue() types.Value {
	v, err := jsonValue("", d.Root())
	if err != nil {
		return types.Value{}
	}
	return v
}

// MatchLength reports the length of array, object and string roots.
func (d *JSONDocument) MatchLength() (int, bool) {
	switch v := d.Root().(type) {
	case []any:
		return len(v), true
	case map[string]any:
		return len(v), true
	case string:
		return len(v), true
	default:
		return 0, false
	}
}

// TypeName reports the JSON type of the root: object, array, string,
// number, boolean or null.
func (d *JSONDocument) TypeName() string {
	return jsonType(d.Root())
}

// jsonValue maps a decoded JSON leaf onto a Value.
func jsonValue(field string, raw any) (types.Value, error) {
	switch v := raw.(type) {
	case nil:
		return types.None(), nil
	case []any:
		return types.Some(types.Length(len(v))), nil
	case map[string]any:
		return types.Some(types.Length(len(v))), nil
	}
	scalar, err := convertValue(field, raw)
	if err != nil {
		return types.Value{}, err
	}
	return types.Some(scalar), nil
}
