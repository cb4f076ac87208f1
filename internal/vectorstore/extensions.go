// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package vectorstore

import (
	"context"
	"fmt"
)

// extensionSpec describes an optional DuckDB extension.
type extensionSpec struct {
	Name        string
	VerifyQuery string
	Available   func(*Store) *bool
}

var extensionSpecs = []extensionSpec{
	{
		Name:        "vss",
		VerifyQuery: "SELECT array_cosine_distance([1.0, 0.0]::FLOAT[2], [1.0, 0.0]::FLOAT[2])",
		Available:   func(s *Store) *bool { return &s.vssAvailable },
	},
	{
		Name:        "fts",
		VerifyQuery: "SELECT stem('searching', 'porter')",
		Available:   func(s *Store) *bool { return &s.ftsAvailable },
	},
}

// installExtensions loads every enabled extension. Failures only disable the
// feature; the store always starts.
func (s *Store) installExtensions() {
	for i := range extensionSpecs {
		spec := &extensionSpecs[i]
		switch {
		case spec.Name == "vss" && !s.cfg.EnableVSS:
			continue
		case spec.Name == "fts" && !s.cfg.EnableFTS:
			continue
		}
		*spec.Available(s) = s.installExtension(spec)
	}

	if s.vssAvailable && !s.cfg.InMemory() {
		if err := s.execWithHardTimeout("SET hnsw_enable_experimental_persistence = true"); err != nil {
			s.logger.Warn().Err(err).Msg("HNSW persistence unavailable, disabling vss")
			s.vssAvailable = false
		}
	}
}

// installExtension follows INSTALL, then LOAD, then FORCE INSTALL, and
// verifies the extension with a probe query.
func (s *Store) installExtension(spec *extensionSpec) bool {
	log := s.logger.With().Str("extension", spec.Name).Logger()

	if installErr := s.execWithHardTimeout(fmt.Sprintf("INSTALL %s;", spec.Name)); installErr != nil {
		if loadErr := s.execWithHardTimeout(fmt.Sprintf("LOAD %s;", spec.Name)); loadErr == nil {
			return s.verifyExtension(spec)
		}
		if forceErr := s.execWithHardTimeout(fmt.Sprintf("FORCE INSTALL %s;", spec.Name)); forceErr != nil {
			log.Warn().Err(installErr).AnErr("force_error", forceErr).Msg("extension unavailable")
			return false
		}
	}

	if err := s.execWithHardTimeout(fmt.Sprintf("LOAD %s;", spec.Name)); err != nil {
		log.Warn().Err(err).Msg("failed to load extension")
		return false
	}
	return s.verifyExtension(spec)
}

func (s *Store) verifyExtension(spec *extensionSpec) bool {
	if err := s.execWithHardTimeout(spec.VerifyQuery); err != nil {
		s.logger.Warn().Str("extension", spec.Name).Err(err).Msg("extension loaded but functions unavailable")
		return false
	}
	s.logger.Debug().Str("extension", spec.Name).Msg("extension loaded")
	return true
}

// execWithHardTimeout runs query with a goroutine-based deadline; DuckDB CGO
// calls do not observe context cancellation.
func (s *Store) execWithHardTimeout(query string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ExtensionTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := s.db.ExecContext(ctx, query)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("operation timed out after %v", s.cfg.ExtensionTimeout)
	}
}
