package dto

import (
	"errors"
	"net/http"
	"testing"
)

func TestAPIError(t *testing.T) {
	t.Run("NewAPIError", func(t *testing.T) {
		err := NewAPIError(http.StatusNotFound, ErrorCodeNotFound, "resource not found")
		if err.StatusCode() != http.StatusNotFound {
			t.Errorf("Expected status code %d, got %d", http.StatusNotFound, err.StatusCode())
		}
		if err.Code() != ErrorCodeNotFound {
			t.Errorf("Expected code %s, got %s", ErrorCodeNotFound, err.Code())
		}
		if err.Error() != "resource not found" {
			t.Errorf("Expected message 'resource not found', got '%s'", err.Error())
		}
	})
	t.Run("WithDetails", func(t *testing.T) {
		err := NewAPIError(http.StatusBadRequest, ErrorCodeValidationFailed, "validation failed").
			WithDetail("field", "name").
			WithDetails(map[string]any{"reason": "empty"})
		if err.Details()["field"] != "name" {
			t.Errorf("Expected field 'name', got %v", err.Details()["field"])
		}
		if err.Details()["reason"] != "empty" {
			t.Errorf("Expected reason 'empty', got %v", err.Details()["reason"])
		}
	})
	t.Run("Wrap", func(t *testing.T) {
		inner := errors.New("disk full")
		err := StorageError(inner)
		if !errors.Is(err, inner) {
			t.Error("Expected wrapped error to be reachable")
		}
		if got, want := err.Error(), "Failed to write data file: disk full"; got != want {
			t.Errorf("Error() = %q, want %q", got, want)
		}
		if got, want := err.Message(), "Failed to write data file"; got != want {
			t.Errorf("Message() = %q, want %q", got, want)
		}
		var ews ErrorWithStatus
		if !errors.As(error(err), &ews) || ews.StatusCode() != http.StatusInternalServerError {
			t.Errorf("Expected ErrorWithStatus with 500, got %v", ews)
		}
	})
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *APIError
		status int
		code   ErrorCode
	}{
		{"BadRequest", BadRequest("bad"), http.StatusBadRequest, ErrorCodeValidationFailed},
		{"MissingField", MissingField("id"), http.StatusBadRequest, ErrorCodeMissingField},
		{"InvalidFormat", InvalidFormat("price", "must be a number"), http.StatusBadRequest, ErrorCodeInvalidFormat},
		{"PayloadTooLarge", PayloadTooLarge(10), http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge},
		{"NotFound", NotFound("Product not found"), http.StatusNotFound, ErrorCodeNotFound},
		{"Conflict", Conflict("exists"), http.StatusConflict, ErrorCodeConflict},
		{"RouteNotFound", RouteNotFound("/x"), http.StatusNotFound, ErrorCodeRouteNotFound},
		{"MethodNotAllowed", MethodNotAllowed("PATCH", []string{"GET"}), http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed},
		{"StorageError", StorageError(errors.New("x")), http.StatusInternalServerError, ErrorCodeStorageError},
		{"Internal", Internal("boom"), http.StatusInternalServerError, ErrorCodeInternal},
		{"Unauthorized", Unauthorized("no token"), http.StatusUnauthorized, ErrorCodeUnauthorized},
		{"RateLimitExceeded", RateLimitExceeded(3), http.StatusTooManyRequests, ErrorCodeRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.StatusCode() != tt.status {
				t.Errorf("StatusCode() = %d, want %d", tt.err.StatusCode(), tt.status)
			}
			if tt.err.Code() != tt.code {
				t.Errorf("Code() = %s, want %s", tt.err.Code(), tt.code)
			}
		})
	}
	if got := MissingField("id").Error(); got != "Missing required field: id" {
		t.Errorf("MissingField message = %q", got)
	}
	if got := MethodNotAllowed("PATCH", []string{"GET", "PUT"}).Details()["allowed"]; got != "GET, PUT" {
		t.Errorf("allowed = %v", got)
	}
}
