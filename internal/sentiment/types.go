// Package sentiment scores anonymized text through an external service.
//
// Only anonymized text crosses this boundary; mappings never leave the caller.
package sentiment

import (
	"context"
	"errors"
)

// ErrScoring is returned when the scorer could not produce a result
var ErrScoring = errors.New("sentiment scoring failed")

// Result is the scorer's verdict for one text
type Result struct {
	Label  string             `json:"label"`
	Score  float64            `json:"score"`
	Scores map[string]float64 `json:"scores,omitempty"`
	Cached bool               `json:"cached"`
}

// Scorer scores anonymized text
type Scorer interface {
	Score(ctx context.Context, text string) (*Result, error)
}

// CacheStats reports cache effectiveness
type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}
