package grid

import (
	"fmt"
	"strings"
)

// IDField is the row field used as the reconciliation, selection and
// update correlation key.
const IDField = "id"

// FullNameKey is the synthetic key that joins first_name and last_name.
const FullNameKey = "fullName"

// Row is an opaque record owned by the caller. It must carry a unique id.
type Row map[string]any

// ID returns the row id rendered as a string, or "" when absent.
func (r Row) ID() string {
	v, ok := r[IDField]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Resolve looks up the display value of key on row.
//
// "fullName" joins first_name and last_name with a single space, dotted keys
// walk nested maps, and any miss resolves to the empty string.
func Resolve(row Row, key string) any {
	if key == FullNameKey {
		return Text(row["first_name"]) + " " + Text(row["last_name"])
	}

	if !strings.Contains(key, ".") {
		v, ok := row[key]
		if !ok || v == nil {
			return ""
		}
		return v
	}

	var cur any = map[string]any(row)
	for _, segment := range strings.Split(key, ".") {
		m, ok := asMap(cur)
		if !ok {
			return ""
		}
		next, ok := m[segment]
		if !ok || next == nil {
			return ""
		}
		cur = next
	}
	return cur
}

// Text renders a resolved value as display text. nil renders as "".
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// NestedPayload builds the update payload for key. A dotted key produces
// nested maps ("a.b" -> {"a": {"b": value}}) rather than a flat dotted key.
func NestedPayload(key string, value any) map[string]any {
	segments := strings.Split(key, ".")
	payload := map[string]any{}
	cur := payload
	for i, segment := range segments {
		if i == len(segments)-1 {
			cur[segment] = value
			break
		}
		next := map[string]any{}
		cur[segment] = next
		cur = next
	}
	return payload
}

// SetPath returns a copy of row with the field at key replaced by value.
// Maps along a dotted path are copied, so the input row is never mutated.
func SetPath(row Row, key string, value any) Row {
	out := row.Clone()
	if !strings.Contains(key, ".") {
		out[key] = value
		return out
	}

	segments := strings.Split(key, ".")
	cur := map[string]any(out)
	for _, segment := range segments[:len(segments)-1] {
		var next map[string]any
		if m, ok := asMap(cur[segment]); ok {
			next = make(map[string]any, len(m)+1)
			for k, v := range m {
				next[k] = v
			}
		} else {
			next = map[string]any{}
		}
		cur[segment] = next
		cur = next
	}
	cur[segments[len(segments)-1]] = value
	return out
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Row:
		return map[string]any(m), true
	default:
		return nil, false
	}
}
