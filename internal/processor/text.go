// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package processor

import (
	"html"
	"regexp"
	"strings"

	"github.com/tomtom215/vectorcast/internal/models"
)

var (
	htmlTagPattern    = regexp.MustCompile(`(?s)<[^>]*>`)
	urlPattern        = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// CleanText strips HTML tags, decodes entities, removes URLs and collapses
// whitespace.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = htmlTagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = htmlTagPattern.ReplaceAllString(s, " ")
	s = urlPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// BuildCompositeText mixes title, description and tags+category into a
// single text whose share of the character budget follows the configured
// weights. Short fields are repeated and long fields truncated at a word
// boundary. Empty fields contribute nothing.
func (p *Processor) BuildCompositeText(meta models.ContentMetadata) string {
	return buildComposite(meta, p.cfg)
}

func buildComposite(meta models.ContentMetadata, cfg Config) string {
	tagText := CleanText(strings.TrimSpace(meta.Category + " " + strings.Join(meta.Tags, " ")))

	parts := []struct {
		text   string
		weight float64
	}{
		{CleanText(meta.Title), cfg.TitleWeight},
		{CleanText(meta.Description), cfg.DescriptionWeight},
		{tagText, cfg.TagsWeight},
	}

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part.text == "" || part.weight == 0 {
			continue
		}
		target := int(float64(cfg.CompositeBudget) * part.weight)
		out = append(out, fitToLength(part.text, target))
	}
	return strings.Join(out, " ")
}

// fitToLength repeats or truncates text so its rune length approaches target.
// The text always appears at least once, truncated if needed.
func fitToLength(text string, target int) string {
	runes := []rune(text)
	if target <= 0 {
		return ""
	}
	if len(runes) >= target {
		return truncateWords(runes, target)
	}

	repeats := (target + 1) / (len(runes) + 1)
	if repeats < 1 {
		repeats = 1
	}
	return strings.TrimSpace(strings.Repeat(text+" ", repeats))
}

func truncateWords(runes []rune, limit int) string {
	cut := runes[:limit]
	if limit < len(runes) && runes[limit] != ' ' {
		for i := len(cut) - 1; i > limit/2; i-- {
			if cut[i] == ' ' {
				cut = cut[:i]
				break
			}
		}
	}
	return strings.TrimSpace(string(cut))
}
