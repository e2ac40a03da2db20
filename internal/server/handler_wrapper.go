// Provides the adapter turning typed handler functions into http.Handlers.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"reflect"
	"strconv"

	"github.com/maruel/productdb/internal/server/dto"
	"github.com/maruel/productdb/internal/server/ratelimit"
	"github.com/maruel/productdb/internal/server/reqctx"
	"github.com/maruel/productdb/internal/storage/history"
)

// isMutating returns true for HTTP methods that modify state.
func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch || method == http.MethodDelete
}

// commitIfMutating records the data file in history after a mutating request.
//
// The commit is attempted whatever the handler outcome; when the file did not
// change it is a no-op.
func commitIfMutating(ctx context.Context, r *http.Request, repo *history.Repo) {
	if repo == nil || !isMutating(r.Method) {
		return
	}
	msg := fmt.Sprintf("%s %s", r.Method, r.URL.Path)
	committed, err := repo.Commit(ctx, reqctx.Subject(ctx), msg)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to commit data file", "err", err)
		return
	}
	if committed {
		slog.DebugContext(ctx, "Committed data file", "msg", msg)
	}
}

// checkRateLimit consumes a token from tier and writes the rate limit headers.
// Returns false if the request was rejected and the 429 written.
func checkRateLimit(ctx context.Context, w http.ResponseWriter, tier *ratelimit.Tier, identifier string) bool {
	if tier == nil {
		return true
	}
	result := tier.Limiter.Allow(ratelimit.BuildKey(identifier, tier.Name))
	ratelimit.WriteHeaders(w, result)
	if !result.Allowed {
		writeAPIError(ctx, w, dto.RateLimitExceeded(int(math.Ceil(result.RetryAfter.Seconds()))))
		return false
	}
	return true
}

// readAndDecodeBody reads the request body with size limit and decodes JSON into input.
// Returns false if an error occurred and was written to the response.
func readAndDecodeBody[In any](ctx context.Context, w http.ResponseWriter, r *http.Request, input *In, maxBytes int64) bool {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	body, err := io.ReadAll(r.Body)
	if err2 := r.Body.Close(); err == nil {
		err = err2
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeAPIError(ctx, w, dto.PayloadTooLarge(maxBytesErr.Limit))
			return false
		}
		slog.ErrorContext(ctx, "Failed to read request body", "err", err)
		writeAPIError(ctx, w, dto.BadRequest("Failed to read request body"))
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	d := json.NewDecoder(bytes.NewReader(body))
	d.DisallowUnknownFields()
	if err := d.Decode(input); err != nil {
		slog.DebugContext(ctx, "Failed to decode request body", "err", err)
		writeAPIError(ctx, w, dto.NewAPIError(http.StatusBadRequest, dto.ErrorCodeInvalidFormat, "Invalid JSON body").
			WithDetail("reason", err.Error()))
		return false
	}
	return true
}

// writeJSONResponse writes the success envelope, or the error envelope if err
// is set.
func writeJSONResponse[Out any](ctx context.Context, w http.ResponseWriter, resp *dto.Response[Out], err error) {
	if err != nil {
		writeAPIError(ctx, w, err)
		return
	}
	if resp == nil {
		writeAPIError(ctx, w, dto.Internal("Handler returned no response"))
		return
	}
	env := dto.Envelope{Status: dto.StatusSuccess, Code: resp.Code, Message: resp.Message}
	if resp.Data != nil {
		env.Data = resp.Data
	}
	writeEnvelope(ctx, w, &env)
}

// writeAPIError writes err as an error envelope. Errors that do not carry a
// status are reported as 500. Only the public message reaches the client; the
// wrapped cause is logged.
func writeAPIError(ctx context.Context, w http.ResponseWriter, err error) {
	env := dto.Envelope{
		Status:  dto.StatusError,
		Code:    http.StatusInternalServerError,
		Message: "Internal server error",
		Error:   dto.ErrorCodeInternal,
	}
	var ewsErr dto.ErrorWithStatus
	if errors.As(err, &ewsErr) {
		env.Message = ewsErr.Message()
		env.Code = ewsErr.StatusCode()
		env.Error = ewsErr.Code()
		env.Details = ewsErr.Details()
	}
	level := slog.LevelDebug
	if env.Code >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(ctx, level, "Request failed", "err", err, "statusCode", env.Code, "code", env.Error)
	writeEnvelope(ctx, w, &env)
}

func writeEnvelope(ctx context.Context, w http.ResponseWriter, env *dto.Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(env.Code)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "err", err)
	}
}

// Wrap wraps a handler function to work as an http.Handler.
// The function must have signature: func(context.Context, *In) (*dto.Response[Out], error)
// where In can be unmarshalled from JSON.
// Path parameters can be extracted by tagging struct fields with `path:"name"`
// and query parameters with `query:"name"`.
// *In must implement dto.Validatable.
//
// Mutating requests are rate limited on the write tier, require a bearer
// token when auth.require_token is set, and are committed to history.
//
// Example:
//
//	type GetProductRequest struct {
//	    ID int64 `path:"id"`
//	}
//
//	func (h *ProductHandler) GetProduct(ctx context.Context, req *GetProductRequest) (*dto.Response[dto.Product], error)
func Wrap[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](fn func(context.Context, PtrIn) (*dto.Response[Out], error), cfg *Config, limiters *ratelimit.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if !checkRateLimit(ctx, w, limiters.Match(r.Method, r.URL.Path), reqctx.ClientIP(ctx)) {
			return
		}

		if isMutating(r.Method) && cfg.Auth.RequireToken {
			sub, err := validateBearer(r, cfg.Auth.Secret())
			if err != nil {
				writeAPIError(ctx, w, dto.Unauthorized(err.Error()))
				return
			}
			ctx = reqctx.WithSubject(ctx, sub)
		}

		input := new(In)
		if !readAndDecodeBody(ctx, w, r, input, cfg.Limits.MaxRequestBodyBytes) {
			return
		}

		populatePathParams(r, input)
		populateQueryParams(r, input)

		if err := PtrIn(input).Validate(); err != nil {
			handleValidationError(ctx, w, err)
			return
		}

		output, err := fn(ctx, PtrIn(input))
		commitIfMutating(ctx, r, cfg.History)
		writeJSONResponse(ctx, w, output, err)
	})
}

// handleValidationError writes a validation failure, defaulting to 400.
func handleValidationError(ctx context.Context, w http.ResponseWriter, err error) {
	var ewsErr dto.ErrorWithStatus
	if !errors.As(err, &ewsErr) {
		err = dto.BadRequest(err.Error())
	}
	writeAPIError(ctx, w, err)
}

// populatePathParams extracts path parameters from the request and populates
// struct fields tagged with `path:"paramName"`.
//
// Values that do not parse as the field type leave the field zero; Validate
// reports them.
func populatePathParams(r *http.Request, input any) {
	populateTagged(input, "path", r.PathValue)
}

// populateQueryParams extracts query parameters from the request and populates
// struct fields tagged with `query:"paramName"`.
func populateQueryParams(r *http.Request, input any) {
	query := r.URL.Query()
	populateTagged(input, "query", query.Get)
}

func populateTagged(input any, tagName string, get func(string) string) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer {
		return
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Struct {
		return
	}
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get(tagName)
		if tag == "" {
			continue
		}
		paramValue := get(tag)
		if paramValue == "" {
			continue
		}
		fieldVal := elem.Field(i)
		switch field.Type.Kind() {
		case reflect.String:
			fieldVal.SetString(paramValue)
		case reflect.Int, reflect.Int64:
			if n, err := strconv.ParseInt(paramValue, 10, 64); err == nil {
				fieldVal.SetInt(n)
			}
		}
	}
}
