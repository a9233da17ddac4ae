package batch

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/raaihank/pii-anonymizer/internal/anonymizer"
)

// InputRecord is one text read from a dataset
type InputRecord struct {
	ID   string
	Text string
}

// OutputRecord is one anonymized text written to the output dataset
type OutputRecord struct {
	ID              string                        `json:"id"`
	AnonymizedText  string                        `json:"anonymized_text"`
	EntitiesFound   int                           `json:"entities_found"`
	EntityBreakdown map[anonymizer.EntityType]int `json:"entity_breakdown"`
	Mappings        []anonymizer.EntityMapping    `json:"mappings,omitempty"`
	Error           string                        `json:"error,omitempty"`
}

// parquetRow is the on-disk layout of an OutputRecord in Parquet files
type parquetRow struct {
	ID              string `parquet:"id"`
	AnonymizedText  string `parquet:"anonymized_text"`
	EntitiesFound   int64  `parquet:"entities_found"`
	EntityBreakdown string `parquet:"entity_breakdown"`
	Mappings        string `parquet:"mappings,optional"`
	Error           string `parquet:"error,optional"`
}

// Result summarizes one run
type Result struct {
	TotalRecords    int64                           `json:"total_records"`
	Anonymized      int64                           `json:"anonymized"`
	Failed          int64                           `json:"failed"`
	EntitiesFound   int64                           `json:"entities_found"`
	EntityBreakdown map[anonymizer.EntityType]int64 `json:"entity_breakdown"`
	Duration        time.Duration                   `json:"duration"`
}

// Config contains pipeline configuration
type Config struct {
	Workers    int
	BatchSize  int
	TextColumn string
	IDColumn   string
	// MaxRecords stops reading after this many records; 0 reads everything
	MaxRecords      int
	Classes         anonymizer.Config
	IncludeMappings bool
}

// FileFormat represents supported file formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSONL   FileFormat = "jsonl"
	FormatXLSX    FileFormat = "xlsx"
	FormatPDF     FileFormat = "pdf"
)

// DetectFileFormat detects file format from extension
func DetectFileFormat(filename string) FileFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".parquet":
		return FormatParquet
	case ".jsonl", ".ndjson", ".json":
		return FormatJSONL
	case ".xlsx":
		return FormatXLSX
	case ".pdf":
		return FormatPDF
	default:
		return FormatCSV
	}
}
