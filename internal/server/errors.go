package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hyperjump/sentembed/internal/embedding"
	"github.com/hyperjump/sentembed/internal/similarity"
)

var errBodyTooLarge = errors.New("request body too large")

// statusFor maps an engine error to an HTTP status.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr), errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, embedding.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, similarity.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, similarity.ErrDimensionMismatch), errors.Is(err, similarity.ErrDegenerateVector):
		return http.StatusUnprocessableEntity
	case errors.Is(err, similarity.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a single JSON object into dst. Malformed bodies are
// validation errors; oversized bodies keep their MaxBytesError.
func decodeJSON(r *http.Request, op string, dst any) error {
	if r.Body == nil {
		return similarity.Validationf(op, "request body is required")
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, maxErr.Limit)
		case errors.Is(err, io.EOF):
			return similarity.Validationf(op, "request body is required")
		default:
			return similarity.Validationf(op, "invalid JSON body: %v", err)
		}
	}
	if dec.More() {
		return similarity.Validationf(op, "request body must contain a single JSON object")
	}
	return nil
}
