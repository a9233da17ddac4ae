package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/raaihank/pii-anonymizer/internal/anonymizer"
	"github.com/raaihank/pii-anonymizer/internal/batch"
	"github.com/raaihank/pii-anonymizer/internal/config"
	"github.com/raaihank/pii-anonymizer/internal/logger"
	"go.uber.org/zap"
)

var version = "0.1.0"

func main() {
	var (
		configPath      = flag.String("config", "", "Configuration file path")
		inputFile       = flag.String("input", "", "Input dataset file (CSV, Parquet, or JSON lines)")
		outputFile      = flag.String("output", "", "Output file (.jsonl or .parquet); defaults to <input>.anonymized.jsonl")
		batchSize       = flag.Int("batch-size", 500, "Records per batch")
		workers         = flag.Int("workers", 0, "Number of worker goroutines (0 uses the configured value)")
		textColumn      = flag.String("text-column", "", "Column holding the text")
		idColumn        = flag.String("id-column", "", "Column holding the record ID")
		maxRecords      = flag.Int("max-records", -1, "Stop after this many records (0 reads everything)")
		classes         = flag.String("classes", "", "Entity class overrides, e.g. companies=true,names=false")
		includeMappings = flag.Bool("include-mappings", false, "Write original values alongside each record")
		showVersion     = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("pii-anonymizer batch %s\n", version)
		os.Exit(0)
	}

	if *inputFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input tickets.csv --output tickets.parquet\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input chats.jsonl --text-column message --classes companies=true\n", os.Args[0])
		os.Exit(1)
	}

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	overrides, err := parseClasses(*classes)
	if err != nil {
		log.Fatal("Invalid --classes value", zap.Error(err))
	}

	registry, err := anonymizer.NewRegistry(
		anonymizer.WithFirstNames(cfg.Anonymizer.ExtraFirstNames),
		anonymizer.WithExclusions(cfg.Anonymizer.ExtraExclusions),
	)
	if err != nil {
		log.Fatal("Failed to build pattern registry", zap.Error(err))
	}

	pipelineCfg := &batch.Config{
		Workers:         pick(*workers, cfg.Batch.Workers),
		BatchSize:       *batchSize,
		TextColumn:      pickString(*textColumn, cfg.Batch.TextColumn),
		IDColumn:        pickString(*idColumn, cfg.Batch.IDColumn),
		MaxRecords:      cfg.Batch.MaxRecords,
		Classes:         anonymizer.Merge(anonymizer.ConfigFromMap(cfg.Anonymizer.Defaults), overrides),
		IncludeMappings: *includeMappings,
	}
	if *maxRecords >= 0 {
		pipelineCfg.MaxRecords = *maxRecords
	}

	out := *outputFile
	if out == "" {
		out = defaultOutput(*inputFile)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling batch")
		cancel()
	}()

	pipeline := batch.NewPipeline(anonymizer.New(registry, log.WithComponent("anonymizer")), pipelineCfg, log)
	result, err := pipeline.ProcessFile(ctx, *inputFile, out)
	if err != nil {
		log.Fatal("Batch anonymization failed", zap.Error(err))
	}

	summary, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(summary))
}

// parseClasses reads "class=bool" pairs separated by commas
func parseClasses(raw string) (anonymizer.Config, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	flags := make(map[string]bool)
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("expected class=true|false, got %q", pair)
		}
		enabled, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", name, err)
		}
		flags[name] = enabled
	}

	cfg := anonymizer.ConfigFromMap(flags)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultOutput(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + ".anonymized.jsonl"
}

func pick(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func pickString(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}
