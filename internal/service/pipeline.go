package service

import (
	"context"
	"time"

	"github.com/route-beacon/bgp-synth/internal/metrics"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// Pipeline processes synthesis job batches from Kafka. Every record is one
// job: the value is the request JSON. A job that fails is logged and its
// offset committed anyway; redelivering a bad request would fail the same
// way forever.
type Pipeline struct {
	runner     *Runner
	runTimeout time.Duration
	logger     *zap.Logger
}

func NewPipeline(runner *Runner, runTimeout time.Duration, logger *zap.Logger) *Pipeline {
	return &Pipeline{runner: runner, runTimeout: runTimeout, logger: logger}
}

// Run consumes record batches until ctx is done, forwarding each processed
// batch to flushed for offset commit.
func (p *Pipeline) Run(ctx context.Context, records <-chan []*kgo.Record, flushed chan<- []*kgo.Record) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-records:
			if !ok {
				return
			}
			for _, rec := range batch {
				p.process(ctx, rec)
			}
			select {
			case flushed <- batch:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *Pipeline) process(ctx context.Context, rec *kgo.Record) {
	runCtx, cancel := context.WithTimeout(ctx, p.runTimeout)
	defer cancel()

	resp, err := p.runner.Run(runCtx, rec.Value, "kafka")
	if err != nil {
		metrics.KafkaMessagesTotal.WithLabelValues(rec.Topic, "failed").Inc()
		p.logger.Error("job failed",
			zap.String("topic", rec.Topic),
			zap.Int64("offset", rec.Offset),
			zap.Error(err),
		)
		return
	}
	metrics.KafkaMessagesTotal.WithLabelValues(rec.Topic, "processed").Inc()
	p.logger.Info("job processed",
		zap.String("topic", rec.Topic),
		zap.Int64("offset", rec.Offset),
		zap.Int64("run_id", resp.RunID),
		zap.String("status", resp.Status),
	)
}
