package history

import (
	"context"
	"fmt"
	"time"

	"github.com/raaihank/pii-anonymizer/internal/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Pruner deletes records older than the retention window on a cron schedule
type Pruner struct {
	store     Store
	retention time.Duration
	cron      *cron.Cron
	logger    *logger.Logger
	now       func() time.Time
}

// NewPruner registers a prune job for schedule, a standard 5-field cron
// expression or a descriptor such as "@hourly".
func NewPruner(store Store, retention time.Duration, schedule string, log *logger.Logger) (*Pruner, error) {
	p := &Pruner{
		store:     store,
		retention: retention,
		cron:      cron.New(),
		logger:    log.WithComponent("history_pruner"),
		now:       time.Now,
	}

	if _, err := p.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := p.PruneNow(ctx); err != nil {
			p.logger.Error("Scheduled prune failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("registering prune schedule %q: %w", schedule, err)
	}

	return p, nil
}

// PruneNow deletes expired records immediately
func (p *Pruner) PruneNow(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.retention)
	removed, err := p.store.Prune(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		p.logger.Info("History pruned",
			zap.Int64("removed", removed),
			zap.Time("cutoff", cutoff),
		)
	}
	return removed, nil
}

// Start begins executing the schedule
func (p *Pruner) Start() {
	p.cron.Start()
}

// Stop halts the scheduler and waits for a running prune to finish
func (p *Pruner) Stop() {
	<-p.cron.Stop().Done()
}
