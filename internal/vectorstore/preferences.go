// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/vectorcast/internal/metrics"
	"github.com/tomtom215/vectorcast/internal/models"
)

type preferenceRow struct {
	UserID           string    `db:"user_id"`
	Embedding        Vector    `db:"embedding"`
	Confidence       float64   `db:"confidence"`
	InteractionCount int       `db:"interaction_count"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// GetPreference loads a user's preference vector. A user without one yields
// an error wrapping models.ErrNotFound.
func (s *Store) GetPreference(ctx context.Context, userID string) (*models.UserPreference, error) {
	var row preferenceRow
	start := time.Now()
	err := s.db.GetContext(ctx, &row, `SELECT user_id, embedding, confidence, interaction_count, updated_at
		FROM user_preferences WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordStoreQuery("get_preference", time.Since(start), nil)
		return nil, fmt.Errorf("preference for %s: %w", userID, models.ErrNotFound)
	}
	if err = s.observe("get_preference", start, err); err != nil {
		return nil, err
	}
	return &models.UserPreference{
		UserID:           row.UserID,
		Embedding:        row.Embedding,
		Confidence:       row.Confidence,
		InteractionCount: row.InteractionCount,
		UpdatedAt:        row.UpdatedAt,
	}, nil
}

// SavePreference inserts or replaces a user's preference vector.
func (s *Store) SavePreference(ctx context.Context, pref *models.UserPreference) error {
	if pref == nil || pref.UserID == "" {
		return models.NewValidationError("user_id", "required")
	}
	if err := s.checkQuery(pref.Embedding); err != nil {
		return err
	}
	updated := pref.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	start := time.Now()
	err := withConflictRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO user_preferences
				(user_id, embedding, confidence, interaction_count, updated_at)
			VALUES (?, ?::FLOAT[%d], ?, ?, ?)
			ON CONFLICT (user_id) DO UPDATE SET
				embedding = EXCLUDED.embedding,
				confidence = EXCLUDED.confidence,
				interaction_count = EXCLUDED.interaction_count,
				updated_at = EXCLUDED.updated_at`, s.cfg.Dimensions),
			pref.UserID, literal(pref.Embedding), pref.Confidence, pref.InteractionCount, updated.UTC())
		return err
	})
	return s.observe("save_preference", start, err)
}
