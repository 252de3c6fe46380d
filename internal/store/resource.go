package store

import (
	"slices"
	"sort"
)

// FieldKind is the storage type of a resource column.
type FieldKind int

// Field kinds.
const (
	FieldText FieldKind = iota
	FieldInteger
	FieldReal
	FieldBool
	// FieldJSON columns hold a JSON object. Nested update payloads are
	// merged into them.
	FieldJSON
)

// Field is one column of a resource table.
type Field struct {
	Name string
	Kind FieldKind
}

// Resource describes a table the dashboard can page and edit.
type Resource struct {
	Name        string
	Table       string
	Fields      []Field
	DefaultSort string
}

// Field looks up a column by name.
func (r Resource) Field(name string) (Field, bool) {
	i := slices.IndexFunc(r.Fields, func(f Field) bool { return f.Name == name })
	if i < 0 {
		return Field{}, false
	}
	return r.Fields[i], true
}

// FieldNames returns the column names in declaration order.
func (r Resource) FieldNames() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}

var resources = map[string]Resource{
	"apps": {
		Name:  "apps",
		Table: "apps",
		Fields: []Field{
			{"id", FieldText},
			{"name", FieldText},
			{"owner_email", FieldText},
			{"status", FieldText},
			{"active", FieldBool},
			{"settings", FieldJSON},
			{"document_url", FieldText},
			{"created_at", FieldText},
		},
		DefaultSort: "created_at",
	},
	"clients": {
		Name:  "clients",
		Table: "clients",
		Fields: []Field{
			{"id", FieldText},
			{"first_name", FieldText},
			{"last_name", FieldText},
			{"email", FieldText},
			{"phone", FieldText},
			{"active", FieldBool},
			{"settings", FieldJSON},
			{"ui", FieldJSON},
			{"joined_at", FieldText},
		},
		DefaultSort: "last_name",
	},
	"tickets": {
		Name:  "tickets",
		Table: "tickets",
		Fields: []Field{
			{"id", FieldText},
			{"subject", FieldText},
			{"client_id", FieldText},
			{"priority", FieldText},
			{"status", FieldText},
			{"deadline", FieldText},
			{"resolved", FieldBool},
			{"meta", FieldJSON},
			{"attachment_url", FieldText},
		},
		DefaultSort: "deadline",
	},
	"plans": {
		Name:  "plans",
		Table: "plans",
		Fields: []Field{
			{"id", FieldText},
			{"name", FieldText},
			{"price", FieldReal},
			{"seats", FieldInteger},
			{"active", FieldBool},
			{"features", FieldJSON},
			{"image_url", FieldText},
		},
		DefaultSort: "price",
	},
}

// Lookup returns the named resource.
func Lookup(name string) (Resource, bool) {
	r, ok := resources[name]
	return r, ok
}

// Resources lists the resource names in alphabetical order.
func Resources() []string {
	names := make([]string, 0, len(resources))
	for name := range resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
