package flatdb

import (
	"errors"
	"slices"
	"testing"
)

type describedRow struct {
	ID    int64   `json:"id" jsonschema:"required,description=Primary key"`
	Label string  `json:"label,omitempty" jsonschema:"description=Display label"`
	Score float32 `json:"score"`
	Count uint    `json:"count"`
}

type noKeyRow struct {
	Name string `json:"name"`
}

type textKeyRow struct {
	ID string `json:"id"`
}

func TestSchemaFromType(t *testing.T) {
	s, err := SchemaFromType[*describedRow]()
	if err != nil {
		t.Fatal(err)
	}
	want := []Column{
		{Name: "id", Type: ColumnTypeInteger, Required: true, Description: "Primary key"},
		{Name: "label", Type: ColumnTypeText, Description: "Display label"},
		{Name: "score", Type: ColumnTypeReal},
		{Name: "count", Type: ColumnTypeInteger},
	}
	if !slices.Equal(s.Columns, want) {
		t.Errorf("Columns = %+v\nwant %+v", s.Columns, want)
	}
	if _, ok := s.Column("label"); !ok {
		t.Error("Column(label) not found")
	}
	if _, ok := s.Column("missing"); ok {
		t.Error("Column(missing) found")
	}
	if js := s.JSONSchema(); js == nil || js.Properties.Len() != 4 {
		t.Errorf("JSONSchema() = %+v", js)
	}
}

func TestSchemaFromTypeCanonicalOrder(t *testing.T) {
	s, err := SchemaFromType[testRow]()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"id", "name", "category", "size", "color", "price", "stock"}
	if got := s.Names(); !slices.Equal(got, want) {
		t.Errorf("Names = %v, want %v", got, want)
	}
}

func TestSchemaFromTypeErrors(t *testing.T) {
	if _, err := SchemaFromType[int](); err == nil {
		t.Error("expected error for int")
	}
	if _, err := SchemaFromType[noKeyRow](); !errors.Is(err, errNoKeyColumn) {
		t.Errorf("err = %v, want errNoKeyColumn", err)
	}
	if _, err := SchemaFromType[textKeyRow](); !errors.Is(err, errNoKeyColumn) {
		t.Errorf("err = %v, want errNoKeyColumn", err)
	}
}
