package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/raaihank/pii-anonymizer/internal/logger"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_history (
	id               TEXT PRIMARY KEY,
	created_at       TIMESTAMP NOT NULL,
	anonymized_text  TEXT NOT NULL,
	sentiment        TEXT NOT NULL DEFAULT '',
	score            DOUBLE PRECISION NOT NULL DEFAULT 0,
	entities_found   INTEGER NOT NULL DEFAULT 0,
	entity_breakdown TEXT NOT NULL DEFAULT '{}',
	processing_ms    DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_analysis_history_created_at ON analysis_history (created_at);
`

// SQLStore keeps records in PostgreSQL or SQLite through sqlx
type SQLStore struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewSQLStore connects with driver ("postgres" or "sqlite3") and creates the
// schema if needed.
func NewSQLStore(ctx context.Context, driver, dsn string, maxConns int, log *logger.Logger) (*SQLStore, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite3" {
		// sqlite serializes writers; one connection avoids "database is locked"
		maxConns = 1
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}

	s := &SQLStore{db: db, logger: log.WithComponent("history")}

	if err := s.initialize(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	s.logger.Info("History store initialized",
		zap.String("driver", driver),
		zap.String("dsn", maskDSN(dsn)),
	)
	return s, nil
}

func (s *SQLStore) initialize(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Save implements Store
func (s *SQLStore) Save(ctx context.Context, r *Record) error {
	query := `
		INSERT INTO analysis_history
			(id, created_at, anonymized_text, sentiment, score, entities_found, entity_breakdown, processing_ms)
		VALUES
			(:id, :created_at, :anonymized_text, :sentiment, :score, :entities_found, :entity_breakdown, :processing_ms)`

	rec := *r
	rec.CreatedAt = rec.CreatedAt.UTC()
	if _, err := s.db.NamedExecContext(ctx, query, &rec); err != nil {
		s.logger.Error("Failed to insert record", zap.Error(err), zap.String("id", r.ID))
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// Recent implements Store
func (s *SQLStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	query := s.db.Rebind(`
		SELECT id, created_at, anonymized_text, sentiment, score, entities_found, entity_breakdown, processing_ms
		FROM analysis_history
		ORDER BY created_at DESC
		LIMIT ?`)

	records := []Record{}
	if err := s.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return records, nil
}

// Stats implements Store
func (s *SQLStore) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT sentiment, entities_found, entity_breakdown, processing_ms FROM analysis_history`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	stats := newStats()
	var sum float64
	for rows.Next() {
		var r Record
		if err := rows.StructScan(&r); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats.add(&r, &sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}
	return stats.finish(sum), nil
}

// Prune implements Store
func (s *SQLStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`DELETE FROM analysis_history WHERE created_at < ?`), before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}

// Close implements Store
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// maskDSN hides the password of a URL-style DSN
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		return dsn[:scheme+3] + creds[:colon] + ":***" + dsn[at:]
	}
	return dsn
}
