// Handles schema definition, column types, and reflection-based schema generation.

package flatdb

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// KeyColumn is the name of the column holding the primary key.
const KeyColumn = "id"

var errNoKeyColumn = errors.New("schema has no integer \"" + KeyColumn + "\" column")

// ColumnType is the declared storage type of a column.
type ColumnType string

const (
	// ColumnTypeText stores strings. Blank defaults to "".
	ColumnTypeText ColumnType = "text"
	// ColumnTypeInteger stores int64. Blank or non-numeric defaults to 0.
	ColumnTypeInteger ColumnType = "integer"
	// ColumnTypeReal stores float64. Blank or non-numeric defaults to 0.
	ColumnTypeReal ColumnType = "real"
)

// Column describes one field of a record in canonical order.
type Column struct {
	Name        string     `json:"name"`
	Type        ColumnType `json:"type"`
	Required    bool       `json:"required,omitempty"`
	Description string     `json:"description,omitempty"`
}

// Schema is the ordered list of columns of a table.
//
// The order of Columns is the canonical field order used for every encode.
type Schema struct {
	Columns []Column `json:"columns"`

	js *jsonschema.Schema
}

// JSONSchema returns the JSON Schema the columns were reflected from, or nil
// for a hand-built Schema.
func (s *Schema) JSONSchema() *jsonschema.Schema {
	return s.js
}

// Names returns the column names in canonical order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the column with the given name.
func (s *Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// SchemaFromType extracts the column definitions of T using JSON Schema
// reflection.
//
// Columns follow struct field order. Descriptions come from
// `jsonschema:"description=..."` tags and required columns from
// `jsonschema:"required"` tags. T must have an integer column named "id".
func SchemaFromType[T any]() (*Schema, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type must be a struct or pointer to struct, got %s", t.Kind())
	}

	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true, RequiredFromJSONSchemaTags: true}
	js := r.ReflectFromType(t)

	required := make(map[string]bool, len(js.Required))
	for _, name := range js.Required {
		required[name] = true
	}

	s := &Schema{js: js}
	for pair := js.Properties.Oldest(); pair != nil; pair = pair.Next() {
		colType := ColumnTypeText
		for i := range t.NumField() {
			field := t.Field(i)
			if jsonFieldName(&field) == pair.Key {
				colType = goTypeToColumnType(field.Type)
				break
			}
		}
		s.Columns = append(s.Columns, Column{
			Name:        pair.Key,
			Type:        colType,
			Required:    required[pair.Key],
			Description: pair.Value.Description,
		})
	}
	if c, ok := s.Column(KeyColumn); !ok || c.Type != ColumnTypeInteger {
		return nil, errNoKeyColumn
	}
	return s, nil
}

// jsonFieldName returns the JSON field name for a struct field.
func jsonFieldName(field *reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return field.Name
	}
	for i, c := range tag {
		if c == ',' {
			if i == 0 {
				return field.Name
			}
			return tag[:i]
		}
	}
	return tag
}

// goTypeToColumnType maps Go types to column types.
func goTypeToColumnType(t reflect.Type) ColumnType {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return ColumnTypeInteger
	case reflect.Float32, reflect.Float64:
		return ColumnTypeReal
	default:
		return ColumnTypeText
	}
}
