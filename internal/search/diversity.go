// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package search

import (
	"sort"

	"github.com/tomtom215/vectorcast/internal/models"
)

// diversify selects up to limit candidates.
//
// Candidates are walked in descending score order:
//  1. a candidate with an unseen category is kept and earns DiversityBonus
//  2. then a candidate with an unseen tag is kept and earns DiversityBonus
//  3. then seen-category candidates are admitted while fewer than
//     MinDiverseCount are kept, otherwise with probability 1-factor
//  4. any slots left are filled with the best remaining candidates
//
// Category novelty is resolved first so that with factor 1.0 the result
// covers min(K, limit) of the K categories present.
func (e *Engine) diversify(candidates []models.ScoredRecommendation, limit int, factor float64) []models.ScoredRecommendation {
	if limit <= 0 || len(candidates) == 0 {
		return nil
	}

	ordered := make([]models.ScoredRecommendation, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].FinalScore > ordered[j].FinalScore
	})

	kept := make([]models.ScoredRecommendation, 0, limit)
	used := make([]bool, len(ordered))
	categories := make(map[string]bool)
	tags := make(map[string]bool)

	keep := func(i int, bonus bool) {
		c := ordered[i]
		if bonus && e.cfg.DiversityBonus > 0 {
			c.Breakdown.DiversityBonus = e.cfg.DiversityBonus
			c.FinalScore += e.cfg.DiversityBonus
		}
		if m := c.Metadata; m != nil {
			if m.Category != "" {
				categories[m.Category] = true
			}
			for _, t := range m.Tags {
				tags[t] = true
			}
		}
		used[i] = true
		kept = append(kept, c)
	}

	for i := range ordered {
		if len(kept) == limit {
			break
		}
		if m := ordered[i].Metadata; m != nil && m.Category != "" && !categories[m.Category] {
			keep(i, true)
		}
	}

	for i := range ordered {
		if len(kept) == limit {
			break
		}
		if !used[i] && hasUnseenTag(ordered[i].Metadata, tags) {
			keep(i, true)
		}
	}

	for i := range ordered {
		if len(kept) == limit {
			break
		}
		if used[i] {
			continue
		}
		if len(kept) < e.cfg.MinDiverseCount || e.chance() < 1-factor {
			keep(i, false)
		}
	}

	for i := range ordered {
		if len(kept) == limit {
			break
		}
		if !used[i] {
			keep(i, false)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].FinalScore > kept[j].FinalScore
	})
	return kept
}

func hasUnseenTag(m *models.ItemMetadata, seen map[string]bool) bool {
	if m == nil {
		return false
	}
	for _, t := range m.Tags {
		if !seen[t] {
			return true
		}
	}
	return false
}
