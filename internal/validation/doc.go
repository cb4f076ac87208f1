// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

// Package validation provides struct validation using go-playground/validator v10.
//
// A thread-safe singleton validator checks catalog metadata, interactions and
// HTTP request bodies. Field names in messages come from json tags so API
// errors name the fields clients actually send.
//
// Custom tags:
//   - platform: lowercase identifier such as "youtube" or "vimeo"
//   - notblank: string with at least one non-space character
//
// Two ways to consume failures:
//
//	// HTTP handlers
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    respondAPIError(w, http.StatusBadRequest, verr.ToAPIError())
//	    return
//	}
//
//	// Domain code: returns a *models.ValidationError (terminal, never retried)
//	if err := validation.Validate(&meta); err != nil {
//	    return nil, err
//	}
package validation
