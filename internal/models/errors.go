// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode is the stable, caller-visible classification of a failure.
type ErrorCode string

const (
	CodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeTimeout           ErrorCode = "TIMEOUT"
	CodeServerError       ErrorCode = "SERVER_ERROR"
	CodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	CodeInvalidRequest    ErrorCode = "INVALID_REQUEST"
	CodeCircuitOpen       ErrorCode = "CIRCUIT_OPEN"
	CodeStoreFailure      ErrorCode = "STORE_FAILURE"
	CodeCacheFailure      ErrorCode = "CACHE_FAILURE"
	CodeValidation        ErrorCode = "VALIDATION_ERROR"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// ErrRateLimitExceeded is wrapped by ProviderError when the rate limiter
// cannot admit a call before the caller's deadline.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// ErrNotFound is returned by lookups that find no row.
var ErrNotFound = errors.New("not found")

// ProviderError describes a failed call to the embedding provider.
type ProviderError struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Retryable  bool
	RetryAfter time.Duration
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s (status %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s: %s", e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// StoreError wraps a vector store connection or query failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// CacheError wraps a cache tier failure. It is logged and counted, never
// returned to callers of the cache.
type CacheError struct {
	Op        string
	Namespace string
	Err       error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s [%s]: %v", e.Op, e.Namespace, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// ValidationError marks input that can never succeed: dimension mismatch,
// non-finite vector values, empty text, missing identifiers.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidationError is shorthand for &ValidationError{Field, Reason}.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsRetryable reports whether err is worth retrying at a higher level.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return false
	}

	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Retryable
	}

	var serr *StoreError
	if errors.As(err, &serr) {
		return true
	}

	return errors.Is(err, ErrRateLimitExceeded)
}

// Code maps err onto its caller-visible ErrorCode.
func Code(err error) ErrorCode {
	var perr *ProviderError
	var serr *StoreError
	var cerr *CacheError
	var verr *ValidationError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return CodeValidation
	case errors.As(err, &perr):
		return perr.Code
	case errors.As(err, &serr):
		return CodeStoreFailure
	case errors.As(err, &cerr):
		return CodeCacheFailure
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	default:
		return CodeInternal
	}
}
