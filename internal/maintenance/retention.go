// Package maintenance removes stored synthesis runs past the retention
// window. Route-maps are removed through the run foreign key cascade.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/route-beacon/bgp-synth/internal/metrics"
	"go.uber.org/zap"
)

type Pruner struct {
	pool          *pgxpool.Pool
	retentionDays int
	timezone      string
	logger        *zap.Logger
}

func NewPruner(pool *pgxpool.Pool, retentionDays int, timezone string, logger *zap.Logger) *Pruner {
	return &Pruner{
		pool:          pool,
		retentionDays: retentionDays,
		timezone:      timezone,
		logger:        logger,
	}
}

func (p *Pruner) Run(ctx context.Context) error {
	cutoff, err := p.Cutoff(time.Now())
	if err != nil {
		return err
	}

	tag, err := p.pool.Exec(ctx,
		`DELETE FROM synth_runs WHERE created_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("pruning synth_runs: %w", err)
	}

	pruned := tag.RowsAffected()
	metrics.RunsPrunedTotal.Add(float64(pruned))
	metrics.DBRowsAffectedTotal.WithLabelValues("synth_runs", "delete").Add(float64(pruned))
	p.logger.Info("retention pass complete",
		zap.Int64("runs_pruned", pruned),
		zap.Time("cutoff", cutoff),
	)
	return nil
}

// Cutoff returns midnight of the day retentionDays before now, in the
// configured timezone.
func (p *Pruner) Cutoff(now time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(p.timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("loading timezone %s: %w", p.timezone, err)
	}
	t := now.In(loc).AddDate(0, 0, -p.retentionDays)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}
