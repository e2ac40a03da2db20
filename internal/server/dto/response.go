// Response types and the envelope written for every request.

package dto

import (
	"net/http"
	"time"

	"github.com/invopop/jsonschema"
)

// Envelope status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the JSON body of every response.
//
// Data is omitted when the operation has nothing to return. Error and Details
// are only set on failures.
type Envelope struct {
	Status  string         `json:"status"`
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Error   ErrorCode      `json:"error,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Response is the successful result of a handler.
type Response[T any] struct {
	// Code is the HTTP status code, usually 200 or 201.
	Code    int
	Message string
	// Data is the payload; nil omits it from the envelope.
	Data *T
}

// OK returns a 200 response.
func OK[T any](message string, data *T) *Response[T] {
	return &Response[T]{Code: http.StatusOK, Message: message, Data: data}
}

// Created returns a 201 response.
func Created[T any](message string, data *T) *Response[T] {
	return &Response[T]{Code: http.StatusCreated, Message: message, Data: data}
}

// Product is a product as returned by the API.
type Product struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Size     string  `json:"size"`
	Color    string  `json:"color"`
	Price    float64 `json:"price"`
	Stock    int64   `json:"stock"`
}

// DeleteProductResponse identifies the removed product.
type DeleteProductResponse struct {
	ID int64 `json:"id"`
}

// HealthResponse reports the server state.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	GoVersion string `json:"go_version"`
	Revision  string `json:"revision,omitempty"`
	Dirty     bool   `json:"dirty,omitempty"`
	Format    string `json:"format"`
	Records   int    `json:"records"`
	History   bool   `json:"history"`
}

// Column describes one column of the data file.
type Column struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required,omitempty"`
	Description string `json:"description,omitempty"`
}

// SchemaResponse describes the data file layout.
type SchemaResponse struct {
	Format     string             `json:"format"`
	Delimiter  string             `json:"delimiter,omitempty"`
	Columns    []Column           `json:"columns"`
	JSONSchema *jsonschema.Schema `json:"json_schema"`
}

// Commit is one entry of the data file history.
type Commit struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	When    time.Time `json:"when"`
}

// HistoryResponse lists recent changes to the data file, newest first.
type HistoryResponse struct {
	Commits []Commit `json:"commits"`
}
