package flatdb

import (
	"errors"
	"testing"
)

func testSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := SchemaFromType[*testRow]()
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestDelimitedCodec(t *testing.T) {
	s := testSchema(t)
	c := NewDelimitedCodec(';')
	if got := string(c.Header(s)); got != "id;name;category;size;color;price;stock" {
		t.Errorf("Header = %q", got)
	}

	fields := s.Normalize(map[string]any{"id": 1, "name": "Shirt", "price": 19.99, "stock": 5})
	line, err := c.Encode(s, fields)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(line); got != "1;Shirt;;;;19.99;5" {
		t.Errorf("Encode = %q", got)
	}

	decoded, err := c.Decode(s, line)
	if err != nil {
		t.Fatal(err)
	}
	got := s.Normalize(decoded)
	for k, v := range fields {
		if got[k] != v {
			t.Errorf("%s = %#v, want %#v", k, got[k], v)
		}
	}
}

func TestDelimitedCodecDecode(t *testing.T) {
	s := testSchema(t)
	tests := []struct {
		name  string
		comma rune
		line  string
		want  map[string]any
	}{
		{"short", ';', "5;Hat", map[string]any{"id": "5", "name": "Hat"}},
		{"long", ';', "5;Hat;a;b;c;1;2;3;4", map[string]any{"id": "5", "name": "Hat", "category": "a", "size": "b", "color": "c", "price": "1", "stock": "2"}},
		{"quoted", ';', `5;"a;b"`, map[string]any{"id": "5", "name": "a;b"}},
		{"comma", ',', "5,Hat,,,,2.5", map[string]any{"id": "5", "name": "Hat", "category": "", "size": "", "color": "", "price": "2.5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewDelimitedCodec(tt.comma).Decode(s, []byte(tt.line))
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Decode = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %#v, want %#v", k, got[k], v)
				}
			}
		})
	}
}

func TestDelimitedCodecMultiline(t *testing.T) {
	s := testSchema(t)
	_, err := NewDelimitedCodec(';').Encode(s, s.Normalize(map[string]any{"id": 1, "name": "a\r\nb"}))
	if !errors.Is(err, errMultiline) {
		t.Errorf("err = %v, want errMultiline", err)
	}
}

func TestJSONLinesCodec(t *testing.T) {
	s := testSchema(t)
	c := JSONLinesCodec{}
	if c.Header(s) != nil {
		t.Error("Header should be nil")
	}
	line, err := c.Encode(s, s.Normalize(map[string]any{"id": 3, "name": "multi\nline", "price": 1.25}))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"id":3,"name":"multi\nline","category":"","size":"","color":"","price":1.25,"stock":0}`
	if string(line) != want {
		t.Errorf("Encode = %s, want %s", line, want)
	}
	decoded, err := c.Decode(s, line)
	if err != nil {
		t.Fatal(err)
	}
	got := s.Normalize(decoded)
	if got["id"] != int64(3) || got["name"] != "multi\nline" || got["price"] != 1.25 {
		t.Errorf("Decode = %v", got)
	}
	for _, bad := range []string{"nope", "[1]", "null", `"str"`} {
		if _, err := c.Decode(s, []byte(bad)); err == nil {
			t.Errorf("Decode(%q) succeeded", bad)
		}
	}
}

func TestCodecByName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "csv", false},
		{"csv", "csv", false},
		{"jsonl", "jsonl", false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		c, err := CodecByName(tt.name, ';')
		if (err != nil) != tt.wantErr {
			t.Fatalf("CodecByName(%q) err = %v", tt.name, err)
		}
		if err == nil && c.Name() != tt.want {
			t.Errorf("CodecByName(%q) = %s, want %s", tt.name, c.Name(), tt.want)
		}
	}
}
