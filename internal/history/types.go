// Package history keeps a log of analyzed texts for the dashboard.
//
// A Record never holds mappings or original values: only the anonymized text,
// the sentiment verdict and entity counts.
package history

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Record is one analyzed text
type Record struct {
	ID              string    `db:"id" json:"id"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	AnonymizedText  string    `db:"anonymized_text" json:"anonymized_text"`
	Sentiment       string    `db:"sentiment" json:"sentiment"`
	Score           float64   `db:"score" json:"score"`
	EntitiesFound   int       `db:"entities_found" json:"entities_found"`
	EntityBreakdown Breakdown `db:"entity_breakdown" json:"entity_breakdown"`
	ProcessingMS    float64   `db:"processing_ms" json:"processing_ms"`
}

// Breakdown counts entities per type. It is stored as a JSON column.
type Breakdown map[string]int

// Value implements driver.Valuer
func (b Breakdown) Value() (driver.Value, error) {
	if b == nil {
		return "{}", nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (b *Breakdown) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*b = Breakdown{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported entity_breakdown type %T", src)
	}
	out := Breakdown{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("failed to decode entity_breakdown: %w", err)
	}
	*b = out
	return nil
}

// Stats aggregates all stored records
type Stats struct {
	TotalRecords    int64            `json:"total_records"`
	TotalEntities   int64            `json:"total_entities"`
	EntityBreakdown map[string]int64 `json:"entity_breakdown"`
	SentimentCounts map[string]int64 `json:"sentiment_counts"`
	AvgProcessingMS float64          `json:"avg_processing_ms"`
}

func newStats() *Stats {
	return &Stats{
		EntityBreakdown: make(map[string]int64),
		SentimentCounts: make(map[string]int64),
	}
}

// add folds r into the running totals; finish computes the averages
func (s *Stats) add(r *Record, processingSum *float64) {
	s.TotalRecords++
	s.TotalEntities += int64(r.EntitiesFound)
	for k, v := range r.EntityBreakdown {
		s.EntityBreakdown[k] += int64(v)
	}
	if r.Sentiment != "" {
		s.SentimentCounts[r.Sentiment]++
	}
	*processingSum += r.ProcessingMS
}

func (s *Stats) finish(processingSum float64) *Stats {
	if s.TotalRecords > 0 {
		s.AvgProcessingMS = processingSum / float64(s.TotalRecords)
	}
	return s
}

// Store persists analysis records
type Store interface {
	Save(ctx context.Context, r *Record) error
	// Recent returns up to limit records, newest first
	Recent(ctx context.Context, limit int) ([]Record, error)
	Stats(ctx context.Context) (*Stats, error)
	// Prune deletes records created before the cutoff
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}
