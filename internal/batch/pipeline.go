// Package batch anonymizes whole datasets (CSV, JSON lines, Parquet, Excel or
// PDF) with a worker pool, preserving input order in the output.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/raaihank/pii-anonymizer/internal/anonymizer"
	"github.com/raaihank/pii-anonymizer/internal/logger"
	"go.uber.org/zap"
)

const defaultBatchSize = 500

// Pipeline handles dataset anonymization
type Pipeline struct {
	anonymizer *anonymizer.Anonymizer
	config     *Config
	logger     *logger.Logger
}

// NewPipeline creates a new batch pipeline
func NewPipeline(a *anonymizer.Anonymizer, cfg *Config, log *logger.Logger) *Pipeline {
	c := *cfg
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.BatchSize < 1 {
		c.BatchSize = defaultBatchSize
	}
	if c.TextColumn == "" {
		c.TextColumn = "text"
	}
	if c.IDColumn == "" {
		c.IDColumn = "id"
	}
	return &Pipeline{anonymizer: a, config: &c, logger: log.WithComponent("batch")}
}

// ProcessFile anonymizes inPath into outPath
func (p *Pipeline) ProcessFile(ctx context.Context, inPath, outPath string) (*Result, error) {
	reader, err := OpenReader(inPath, p.config.TextColumn, p.config.IDColumn)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	writer, err := CreateWriter(outPath)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Starting batch anonymization",
		zap.String("input", inPath),
		zap.String("input_format", string(DetectFileFormat(inPath))),
		zap.String("output", outPath),
		zap.Int("workers", p.config.Workers),
	)

	result, err := p.Run(ctx, reader, writer)
	if closeErr := writer.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return result, err
	}

	p.logger.Info("Batch anonymization completed",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("anonymized", result.Anonymized),
		zap.Int64("failed", result.Failed),
		zap.Int64("entities_found", result.EntitiesFound),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// Run drains reader in batches and writes each batch in input order
func (p *Pipeline) Run(ctx context.Context, reader RecordReader, writer RecordWriter) (*Result, error) {
	start := time.Now()
	result := &Result{EntityBreakdown: make(map[anonymizer.EntityType]int64)}

	for {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		batch, err := p.readBatch(reader, result.TotalRecords)
		if err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("failed to read batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		out := p.Process(ctx, batch)
		if err := writer.Write(out); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		for _, rec := range out {
			result.TotalRecords++
			if rec.Error != "" {
				result.Failed++
				continue
			}
			result.Anonymized++
			result.EntitiesFound += int64(rec.EntitiesFound)
			for t, n := range rec.EntityBreakdown {
				result.EntityBreakdown[t] += int64(n)
			}
		}

		p.logger.Debug("Batch written",
			zap.Int("batch_size", len(out)),
			zap.Int64("records_processed", result.TotalRecords),
		)
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (p *Pipeline) readBatch(reader RecordReader, seen int64) ([]InputRecord, error) {
	size := p.config.BatchSize
	if limit := p.config.MaxRecords; limit > 0 {
		size = min(size, limit-int(seen))
	}

	batch := make([]InputRecord, 0, max(size, 0))
	for len(batch) < size {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		batch = append(batch, rec)
	}
	return batch, nil
}

// Process anonymizes records with the worker pool. The output slice is index
// aligned with the input.
func (p *Pipeline) Process(ctx context.Context, records []InputRecord) []OutputRecord {
	out := make([]OutputRecord, len(records))
	done := make([]bool, len(records))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for range min(p.config.Workers, len(records)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = p.anonymizeRecord(records[i])
				done[i] = true
			}
		}()
	}

feed:
	for i := range records {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	for i := range out {
		if !done[i] {
			out[i] = OutputRecord{ID: records[i].ID, Error: context.Cause(ctx).Error()}
		}
	}
	return out
}

// anonymizeRecord leaves AnonymizedText empty for rows that fail validation
func (p *Pipeline) anonymizeRecord(rec InputRecord) OutputRecord {
	result, err := p.anonymizer.Anonymize(rec.Text, p.config.Classes)
	if err != nil {
		return OutputRecord{ID: rec.ID, Error: err.Error()}
	}

	out := OutputRecord{
		ID:              rec.ID,
		AnonymizedText:  result.AnonymizedText,
		EntitiesFound:   result.Stats.EntitiesFound,
		EntityBreakdown: result.Stats.EntityBreakdown,
	}
	if p.config.IncludeMappings {
		out.Mappings = result.Mappings
	}
	return out
}
