// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vectorcast/internal/jobqueue"
	"github.com/tomtom215/vectorcast/internal/logging"
	"github.com/tomtom215/vectorcast/internal/models"
	"github.com/tomtom215/vectorcast/internal/search"
	"github.com/tomtom215/vectorcast/internal/validation"
)

// Error codes that do not come from models.ErrorCode.
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"
	ErrCodeBodyTooLarge     = "PAYLOAD_TOO_LARGE"
	ErrCodeInvalidState     = "INVALID_STATE"
	ErrCodeNotReady         = "NOT_READY"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// sanitizeLogValue escapes control characters so request-supplied values
// cannot forge log lines.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("failed to write JSON response")
	}
}

// respondSuccess sends a success envelope with query timing.
func respondSuccess(w http.ResponseWriter, status int, data interface{}, start time.Time) {
	respondJSON(w, status, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// respondError sends an error envelope.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondAPIError(w, status, &models.APIError{Code: code, Message: message})
}

func respondAPIError(w http.ResponseWriter, status int, apiErr *models.APIError) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    apiErr,
	})
}

// respondDomainError maps err onto the typed error taxonomy:
// validation 400, not found 404, rate limit 429, open circuit or store
// failure 503, provider timeout 504, other provider failures 502, else 500.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status int
		code   string
	)

	switch {
	case errors.Is(err, jobqueue.ErrJobNotFound), errors.Is(err, search.ErrNoPreference):
		status, code = http.StatusNotFound, string(models.CodeNotFound)
	case errors.Is(err, jobqueue.ErrInvalidTransition):
		status, code = http.StatusConflict, ErrCodeInvalidState
	default:
		code = string(models.Code(err))
		switch models.ErrorCode(code) {
		case models.CodeValidation, models.CodeInvalidRequest:
			status = http.StatusBadRequest
		case models.CodeNotFound:
			status = http.StatusNotFound
		case models.CodeRateLimitExceeded:
			status = http.StatusTooManyRequests
		case models.CodeCircuitOpen, models.CodeStoreFailure:
			status = http.StatusServiceUnavailable
		case models.CodeTimeout:
			status = http.StatusGatewayTimeout
		case models.CodeServerError, models.CodeMalformedResponse:
			status = http.StatusBadGateway
		default:
			status = http.StatusInternalServerError
		}
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}

	apiErr := &models.APIError{
		Code:      code,
		Message:   message,
		Retryable: models.IsRetryable(err),
	}

	var perr *models.ProviderError
	if errors.As(err, &perr) && perr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(perr.RetryAfter.Seconds()+0.5)))
	}

	log := logging.Ctx(r.Context())
	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Str("code", sanitizeLogValue(code)).
		Str("error", sanitizeLogValue(err.Error())).
		Int("status", status).
		Msg("API error")

	respondAPIError(w, status, apiErr)
}

// decodeJSON decodes the request body into v and validates it. It writes the
// error response itself and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			respondError(w, http.StatusRequestEntityTooLarge, ErrCodeBodyTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		case strings.Contains(err.Error(), "request body too large"):
			// the decoder does not always wrap the reader error
			respondError(w, http.StatusRequestEntityTooLarge, ErrCodeBodyTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "request body is required")
		default:
			respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON: "+err.Error())
		}
		return false
	}

	if apiErr := validateRequest(v); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return false
	}
	return true
}

// validateRequest validates a struct using go-playground/validator.
func validateRequest(v interface{}) *models.APIError {
	if verr := validation.ValidateStruct(v); verr != nil {
		return verr.ToAPIError()
	}
	return nil
}

// getIntParam extracts an integer query parameter with a default value.
func getIntParam(r *http.Request, name string, defaultValue int) int {
	if s := r.URL.Query().Get(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return defaultValue
}
