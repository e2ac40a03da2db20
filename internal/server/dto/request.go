package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// fieldKind is the JSON type accepted for a product field.
type fieldKind int

const (
	kindText fieldKind = iota
	kindInteger
	kindNumber
)

// productFields lists the fields a product body may carry.
var productFields = map[string]fieldKind{
	"id":       kindInteger,
	"name":     kindText,
	"category": kindText,
	"size":     kindText,
	"color":    kindText,
	"price":    kindNumber,
	"stock":    kindInteger,
}

// legacyFieldNames maps the column names of the original data file to the
// product fields. The /public/producto routes accept both.
var legacyFieldNames = map[string]string{
	"nombre":    "name",
	"categoria": "category",
	"talla":     "size",
	"precio":    "price",
}

var errNotAnObject = errors.New("body must be a JSON object")

// ProductFields is a product body decoded as a field map, preserving which
// fields were present. Numbers are kept as json.Number.
type ProductFields map[string]any

// decodeFields decodes a JSON object, keeping numbers exact.
func decodeFields(b []byte) (ProductFields, error) {
	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()
	var m map[string]any
	if err := d.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errNotAnObject
	}
	if d.More() {
		return nil, errors.New("unexpected data after JSON object")
	}
	return m, nil
}

// decodeLegacyFields decodes a JSON object and renames the original column
// names to product fields. Giving both names of a field is an error.
func decodeLegacyFields(b []byte) (ProductFields, error) {
	f, err := decodeFields(b)
	if err != nil {
		return nil, err
	}
	for legacy, name := range legacyFieldNames {
		v, ok := f[legacy]
		if !ok {
			continue
		}
		if _, dup := f[name]; dup {
			return nil, fmt.Errorf("fields %q and %q are the same column", legacy, name)
		}
		delete(f, legacy)
		f[name] = v
	}
	return f, nil
}

// validate checks the type of every present field. Unknown fields are
// rejected.
func (f ProductFields) validate() error {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		kind, ok := productFields[k]
		if !ok {
			return BadRequest("Unknown field: " + k).WithDetail("field", k)
		}
		v := f[k]
		if v == nil {
			continue
		}
		switch kind {
		case kindInteger:
			if _, ok := asInteger(v); !ok {
				return InvalidFormat(k, "must be an integer")
			}
		case kindNumber:
			n, ok := asNumber(v)
			if !ok {
				return InvalidFormat(k, "must be a number")
			}
			if n < 0 {
				return InvalidFormat(k, "must not be negative")
			}
		case kindText:
			s, ok := asText(v)
			if !ok {
				return InvalidFormat(k, "must be a string")
			}
			if strings.ContainsAny(s, "\r\n") {
				return InvalidFormat(k, "must not contain line breaks")
			}
		}
	}
	if v, ok := f["name"]; ok {
		if s, _ := asText(v); strings.TrimSpace(s) == "" {
			return InvalidFormat("name", "must not be empty")
		}
	}
	return nil
}

// asInteger accepts integral JSON numbers and numeric strings.
func asInteger(v any) (int64, bool) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= 1<<63 {
		return 0, false
	}
	return int64(f), true
}

// asNumber accepts finite JSON numbers and numeric strings.
func asNumber(v any) (float64, bool) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// asText accepts strings and numbers.
func asText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}

// --- Products ---

// ListProductsRequest is a request to list products, optionally filtered.
// Empty filters match every product.
type ListProductsRequest struct {
	Category string `query:"category"`
	Size     string `query:"size"`
	Color    string `query:"color"`
}

// Validate is a no-op for ListProductsRequest.
func (r *ListProductsRequest) Validate() error {
	return nil
}

// GetProductRequest is a request to get a product.
type GetProductRequest struct {
	ID int64 `path:"id"`
}

// Validate validates the get product request fields.
func (r *GetProductRequest) Validate() error {
	return validateID(r.ID)
}

// CreateProductRequest is a request to create a product. The body is a
// product object; id and name are required.
type CreateProductRequest struct {
	Fields ProductFields
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *CreateProductRequest) UnmarshalJSON(b []byte) error {
	f, err := decodeFields(b)
	if err != nil {
		return err
	}
	r.Fields = f
	return nil
}

// Validate validates the create product request fields.
func (r *CreateProductRequest) Validate() error {
	if r.Fields == nil {
		return BadRequest("Request body must be a JSON object")
	}
	id, ok := r.Fields["id"]
	if !ok || id == nil {
		return MissingField("id")
	}
	if name, ok := r.Fields["name"]; !ok || name == nil {
		return MissingField("name")
	}
	if err := r.Fields.validate(); err != nil {
		return err
	}
	n, _ := asInteger(id)
	return validateID(n)
}

// UpdateProductRequest is a request to update some fields of a product.
// An id in the body is ignored; the path id selects the product.
type UpdateProductRequest struct {
	ID     int64 `path:"id"`
	Fields ProductFields
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *UpdateProductRequest) UnmarshalJSON(b []byte) error {
	f, err := decodeFields(b)
	if err != nil {
		return err
	}
	r.Fields = f
	return nil
}

// Validate validates the update product request fields.
func (r *UpdateProductRequest) Validate() error {
	if err := validateID(r.ID); err != nil {
		return err
	}
	if r.Fields == nil {
		return BadRequest("Request body must be a JSON object")
	}
	return r.Fields.validate()
}

// LegacyCreateProductRequest is CreateProductRequest for the original create
// route, whose body may use the original column names.
type LegacyCreateProductRequest struct {
	CreateProductRequest
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *LegacyCreateProductRequest) UnmarshalJSON(b []byte) error {
	f, err := decodeLegacyFields(b)
	if err != nil {
		return err
	}
	r.Fields = f
	return nil
}

// LegacyUpdateProductRequest is UpdateProductRequest for the original update
// route, whose body may use the original column names.
type LegacyUpdateProductRequest struct {
	ID     int64 `path:"id"`
	Fields ProductFields
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *LegacyUpdateProductRequest) UnmarshalJSON(b []byte) error {
	f, err := decodeLegacyFields(b)
	if err != nil {
		return err
	}
	r.Fields = f
	return nil
}

// Validate validates the update product request fields.
func (r *LegacyUpdateProductRequest) Validate() error {
	return r.Update().Validate()
}

// Update returns the equivalent UpdateProductRequest.
func (r *LegacyUpdateProductRequest) Update() *UpdateProductRequest {
	return &UpdateProductRequest{ID: r.ID, Fields: r.Fields}
}

// Patch returns the fields to merge, without the id.
func (r *UpdateProductRequest) Patch() map[string]any {
	patch := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		if k != "id" {
			patch[k] = v
		}
	}
	return patch
}

// DeleteProductRequest is a request to delete a product.
type DeleteProductRequest struct {
	ID int64 `path:"id"`
}

// Validate validates the delete product request fields.
func (r *DeleteProductRequest) Validate() error {
	return validateID(r.ID)
}

func validateID(id int64) error {
	if id <= 0 {
		return InvalidFormat("id", "must be a positive integer")
	}
	return nil
}

// --- Server ---

// HealthRequest is a request to check server health.
type HealthRequest struct{}

// Validate is a no-op for HealthRequest.
func (r *HealthRequest) Validate() error {
	return nil
}

// SchemaRequest is a request to describe the data file.
type SchemaRequest struct{}

// Validate is a no-op for SchemaRequest.
func (r *SchemaRequest) Validate() error {
	return nil
}

// HistoryRequest is a request to list recent data file changes.
type HistoryRequest struct {
	Limit int `query:"limit"`
}

// Validate validates the history request fields.
func (r *HistoryRequest) Validate() error {
	if r.Limit < 0 {
		return InvalidFormat("limit", "must not be negative")
	}
	if r.Limit > 1000 {
		return InvalidFormat("limit", "must be at most 1000")
	}
	return nil
}
