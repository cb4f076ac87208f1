// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/goccy/go-json"
)

// GenerateKey hashes the JSON encoding of parts into a compact cache key.
// Equal parts always produce equal keys.
func GenerateKey(parts ...interface{}) string {
	data, err := json.Marshal(parts)
	if err != nil {
		// Fall back to the fmt rendering for values JSON cannot encode.
		data = []byte(fmt.Sprintf("%#v", parts))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}
