// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package search

import (
	"context"
	"errors"
	"math"

	"github.com/tomtom215/vectorcast/internal/embedding"
	"github.com/tomtom215/vectorcast/internal/models"
	"github.com/tomtom215/vectorcast/internal/validation"
)

// InteractionWeight maps an interaction to a signed learning weight.
func InteractionWeight(action models.InteractionAction, watchFraction float64) float64 {
	switch action {
	case models.ActionLike, models.ActionShare:
		return 1.0
	case models.ActionWatch:
		return 0.5 * math.Max(0, math.Min(1, watchFraction))
	case models.ActionSkip:
		return -0.2
	case models.ActionDislike:
		return -0.5
	default:
		return 0
	}
}

// UpdateUserPreferences applies one interaction to the user's preference
// vector and persists it. The first positive interaction initializes the
// preference to the item's embedding. A nil preference and nil error mean
// the interaction could not move anything: a non-positive interaction
// before any preference exists.
func (e *Engine) UpdateUserPreferences(ctx context.Context, in models.Interaction) (*models.UserPreference, error) {
	if err := validation.Validate(in); err != nil {
		return nil, err
	}

	weight := InteractionWeight(in.Action, in.WatchFraction)

	record, err := e.store.Get(ctx, in.ExternalID, in.Platform)
	if err != nil {
		return nil, err
	}
	item := record.CombinedEmbedding
	if len(item) == 0 {
		return nil, models.NewValidationError("external_id", "item %s has no embedding yet", record.Metadata.Key())
	}

	e.prefMu.Lock()
	defer e.prefMu.Unlock()

	current, err := e.preference(ctx, in.UserID)
	if err != nil && !errors.Is(err, ErrNoPreference) {
		return nil, err
	}

	now := e.now().UTC()
	var next models.UserPreference
	switch {
	case current == nil && weight <= 0:
		e.logger.Debug().Str("user_id", in.UserID).Str("action", string(in.Action)).Msg("ignoring negative interaction without preference")
		return nil, nil

	case current == nil:
		next = models.UserPreference{
			UserID:           in.UserID,
			Embedding:        embedding.Normalize(item),
			Confidence:       math.Min(1, e.cfg.ConfidenceStep*weight),
			InteractionCount: 1,
		}

	default:
		moved, err := nudge(current.Embedding, item, e.cfg.LearningRate*weight)
		if err != nil {
			return nil, err
		}
		next = models.UserPreference{
			UserID:           in.UserID,
			Embedding:        moved,
			Confidence:       math.Min(1, current.Confidence+e.cfg.ConfidenceStep*math.Abs(weight)),
			InteractionCount: current.InteractionCount + 1,
		}
	}
	next.UpdatedAt = now

	if err := e.store.SavePreference(ctx, &next); err != nil {
		return nil, err
	}
	e.prefs.Add(in.UserID, &next)

	e.logger.Debug().
		Str("user_id", in.UserID).
		Str("action", string(in.Action)).
		Float64("weight", weight).
		Float64("confidence", next.Confidence).
		Msg("preference updated")

	out := next
	out.Embedding = append([]float32(nil), next.Embedding...)
	return &out, nil
}

// nudge returns normalize(p + step*(item - p)). A negative step moves away
// from item. A degenerate (zero) result keeps p.
func nudge(p, item []float32, step float64) ([]float32, error) {
	if len(p) != len(item) {
		return nil, models.NewValidationError("embedding", "preference has %d dimensions, item has %d", len(p), len(item))
	}
	out := make([]float32, len(p))
	for i := range p {
		out[i] = float32(float64(p[i]) + step*(float64(item[i])-float64(p[i])))
	}
	if embedding.Magnitude(out) == 0 {
		return append([]float32(nil), p...), nil
	}
	return embedding.Normalize(out), nil
}
