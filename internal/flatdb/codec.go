// Line codecs for the backing file.

package flatdb

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	errMultiline   = errors.New("value contains a line break")
	errNotAnObject = errors.New("line is not a JSON object")
)

// Codec converts between one line of the backing file and a field map.
//
// Encode receives normalized fields and returns the line without its
// terminating newline. Decode receives a non-empty line and may return a
// partial map; the caller normalizes it.
type Codec interface {
	// Name identifies the codec in configuration and logs.
	Name() string
	// Header returns the first line of the file, or nil if the format has none.
	Header(s *Schema) []byte
	Encode(s *Schema, fields map[string]any) ([]byte, error)
	Decode(s *Schema, line []byte) (map[string]any, error)
}

// DelimitedCodec stores a header row followed by one delimited row per record.
//
// Rows are positional: the i-th value belongs to the i-th column. Short rows
// are padded with defaults and long rows truncated. Values containing the
// delimiter are quoted; values containing line breaks cannot be stored.
type DelimitedCodec struct {
	Comma rune
}

// NewDelimitedCodec returns a DelimitedCodec using comma as the separator.
func NewDelimitedCodec(comma rune) *DelimitedCodec {
	return &DelimitedCodec{Comma: comma}
}

// Name implements Codec.
func (c *DelimitedCodec) Name() string {
	return "csv"
}

// Header implements Codec.
func (c *DelimitedCodec) Header(s *Schema) []byte {
	line, _ := c.writeRecord(s.Names())
	return line
}

// Encode implements Codec.
func (c *DelimitedCodec) Encode(s *Schema, fields map[string]any) ([]byte, error) {
	record := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		v := formatValue(fields[col.Name])
		if strings.ContainsAny(v, "\r\n") {
			return nil, fmt.Errorf("column %q: %w", col.Name, errMultiline)
		}
		record[i] = v
	}
	return c.writeRecord(record)
}

// Decode implements Codec.
func (c *DelimitedCodec) Decode(s *Schema, line []byte) (map[string]any, error) {
	r := csv.NewReader(bytes.NewReader(line))
	r.Comma = c.Comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	record, err := r.Read()
	if err != nil {
		// Unbalanced quoting; fall back to a plain split rather than losing the row.
		record = strings.Split(string(line), string(c.Comma))
	}
	fields := make(map[string]any, len(s.Columns))
	for i, col := range s.Columns {
		if i < len(record) {
			fields[col.Name] = record[i]
		}
	}
	return fields, nil
}

func (c *DelimitedCodec) writeRecord(record []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = c.Comma
	if err := w.Write(record); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// JSONLinesCodec stores one JSON object per line, without a header.
//
// Keys are written in canonical column order. On read, unknown keys are
// ignored and missing keys take their default.
type JSONLinesCodec struct{}

// Name implements Codec.
func (JSONLinesCodec) Name() string {
	return "jsonl"
}

// Header implements Codec.
func (JSONLinesCodec) Header(*Schema) []byte {
	return nil
}

// Encode implements Codec.
func (JSONLinesCodec) Encode(s *Schema, fields map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range s.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(col.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(fields[col.Name])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Decode implements Codec.
func (JSONLinesCodec) Decode(_ *Schema, line []byte) (map[string]any, error) {
	d := json.NewDecoder(bytes.NewReader(line))
	d.UseNumber()
	var fields map[string]any
	if err := d.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errNotAnObject
	}
	return fields, nil
}

// CodecByName returns the codec for a configuration value: "csv" (with the
// given delimiter) or "jsonl".
func CodecByName(name string, comma rune) (Codec, error) {
	switch name {
	case "csv", "":
		return NewDelimitedCodec(comma), nil
	case "jsonl":
		return JSONLinesCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown storage format %q", name)
	}
}

// formatValue renders a normalized value as delimited text.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		s, _ := CoerceValue(v, AffinityTEXT).(string)
		return s
	}
}
