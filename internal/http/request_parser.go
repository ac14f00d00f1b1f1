package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"cofipei/internal/core"
)

var errBodyTooLarge = errors.New("request body too large")

// DecodeChartPayload reads at most maxBytes of JSON from r. Syntax errors
// become ErrMalformedBody, type mismatches become ErrInvalidValue on the
// offending field, and both are *core.ValidationError.
func DecodeChartPayload(w http.ResponseWriter, r *http.Request, maxBytes int64) (core.ChartPayload, error) {
	var payload core.ChartPayload

	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(&payload); err != nil {
		return core.ChartPayload{}, decodeError(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			return core.ChartPayload{}, &core.ValidationError{
				Field: "body",
				Err:   fmt.Errorf("%w: unexpected data after JSON object", core.ErrMalformedBody),
			}
		}
		return core.ChartPayload{}, decodeError(err)
	}
	return payload, nil
}

func decodeError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, maxErr.Limit)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			return &core.ValidationError{Field: "body", Err: fmt.Errorf("%w: expected a JSON object", core.ErrMalformedBody)}
		}
		return &core.ValidationError{
			Field: field,
			Err:   fmt.Errorf("%w: expected %s, got %s", core.ErrInvalidValue, typeErr.Type, typeErr.Value),
		}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &core.ValidationError{Field: "body", Err: fmt.Errorf("%w: %v", core.ErrMalformedBody, err)}
	}

	// Errors raised by field decoders, e.g. a value that is not a number.
	return &core.ValidationError{Field: "body", Err: fmt.Errorf("%w: %v", core.ErrInvalidValue, err)}
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *JSONResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *JSONResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireGET accepts GET and HEAD.
func RequireGET(r *http.Request) *JSONResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}

// ParseLimit reads the "limit" query parameter. Missing means def.
func ParseLimit(r *http.Request, def, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid limit %q: must be a positive integer", raw)
	}
	if n > max {
		n = max
	}
	return n, nil
}
