package docstore

import (
	"reflect"
	"strings"
	"time"
)

// Document is a JSON document as stored in a collection. Values follow
// encoding/json conventions: numbers are float64, nested objects are
// map[string]any, arrays are []any.
type Document map[string]any

// Sentinel write values. These are resolved inside the write transaction,
// never persisted as-is.
type serverTimestamp struct{}

type deleteField struct{}

type increment struct{ delta float64 }

type arrayUnion struct{ items []any }

// ServerTimestamp returns a sentinel that resolves to the current time at
// write time.
func ServerTimestamp() any { return serverTimestamp{} }

// Delete returns a sentinel that removes the addressed field.
func Delete() any { return deleteField{} }

// Increment returns a sentinel that atomically adds delta to the current
// numeric value of the field (absent fields count as zero).
func Increment(delta int64) any { return increment{delta: float64(delta)} }

// ArrayUnion returns a sentinel that appends the given items to an array
// field with set semantics: items already present do not grow the array.
func ArrayUnion(items ...any) any { return arrayUnion{items: items} }

// splitPath splits a dotted field path into its segments.
func splitPath(field string) []string {
	return strings.Split(field, ".")
}

// getPath resolves a dotted field path against a document.
func getPath(doc Document, field string) (any, bool) {
	var cur any = map[string]any(doc)
	for _, seg := range splitPath(field) {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// setPath writes a value at a dotted field path, creating intermediate maps.
func setPath(doc map[string]any, field string, value any) {
	segs := splitPath(field)
	cur := doc
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[seg] = next
		}
		cur = next
	}
	cur[segs[len(segs)-1]] = value
}

// deletePath removes a field at a dotted path. Missing intermediate maps are
// a no-op.
func deletePath(doc map[string]any, field string) {
	segs := splitPath(field)
	cur := doc
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, segs[len(segs)-1])
}

// applyFields merges the given fields into dst, resolving dotted paths and
// sentinel values. now is the resolved server timestamp for this write.
func applyFields(dst map[string]any, fields Document, now time.Time) {
	for field, value := range fields {
		switch v := value.(type) {
		case serverTimestamp:
			setPath(dst, field, now.Format(time.RFC3339Nano))
		case deleteField:
			deletePath(dst, field)
		case increment:
			cur, _ := getPath(dst, field)
			setPath(dst, field, toFloat(cur)+v.delta)
		case arrayUnion:
			cur, _ := getPath(dst, field)
			setPath(dst, field, unionArray(cur, v.items))
		case map[string]any:
			// Nested object: deep-merge into the existing map.
			existing, ok := getPath(dst, field)
			existingMap, isMap := existing.(map[string]any)
			if !ok || !isMap {
				existingMap = make(map[string]any)
				setPath(dst, field, existingMap)
			}
			applyFields(existingMap, Document(v), now)
		case Document:
			applyFields(dst, Document{field: map[string]any(v)}, now)
		case time.Time:
			setPath(dst, field, v.Format(time.RFC3339Nano))
		default:
			setPath(dst, field, value)
		}
	}
}

// unionArray appends items not already present in cur.
func unionArray(cur any, items []any) []any {
	out, _ := cur.([]any)
	for _, item := range items {
		found := false
		for _, existing := range out {
			if valueEqual(existing, item) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, item)
		}
	}
	return out
}

// toFloat coerces a JSON value to float64, treating non-numbers as zero.
func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// valueEqual compares two JSON values, normalizing numeric types first so an
// int written by code compares equal to the float64 read back from JSON.
func valueEqual(a, b any) bool {
	if isNumber(a) && isNumber(b) {
		return toFloat(a) == toFloat(b)
	}
	return reflect.DeepEqual(a, b)
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, int, int64:
		return true
	}
	return false
}
