package history

import (
	"context"
	"fmt"

	"github.com/raaihank/pii-anonymizer/internal/config"
	"github.com/raaihank/pii-anonymizer/internal/logger"
)

// Open builds the Store selected by cfg.Backend
func Open(ctx context.Context, cfg *config.HistoryConfig, log *logger.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(cfg.Capacity), nil
	case "postgres":
		return NewSQLStore(ctx, "postgres", cfg.DSN, cfg.MaxConns, log)
	case "sqlite":
		return NewSQLStore(ctx, "sqlite3", cfg.DSN, cfg.MaxConns, log)
	case "bolt":
		return NewBoltStore(cfg.DSN, log)
	default:
		return nil, fmt.Errorf("unknown history backend: %s", cfg.Backend)
	}
}
