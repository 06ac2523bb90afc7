package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/contactscan/internal/model"
)

type positionKey struct{}

// WithPosition returns a context carrying the record's index in the
// source order.
func WithPosition(ctx context.Context, position int) context.Context {
	return context.WithValue(ctx, positionKey{}, position)
}

// PositionFrom returns the index stored by WithPosition.
func PositionFrom(ctx context.Context) (int, bool) {
	position, ok := ctx.Value(positionKey{}).(int)
	return position, ok
}

// BatchProcessor runs one pipeline per business record concurrently.
type BatchProcessor struct {
	// pipelineFactory creates a fresh pipeline for each record.
	pipelineFactory func() *Pipeline

	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of records processed at once.
// The default of 1 crawls businesses one after another.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     1,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch runs the pipeline over copies of records and returns them
// in input order. Records never started because of cancellation are
// returned unchanged. The error is the context error, if any.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, records []model.BusinessRecord) ([]model.BusinessRecord, error) {
	results := make([]model.BusinessRecord, len(records))
	copy(results, records)

	err := bp.ProcessBatchWithCallback(ctx, records, func(record model.BusinessRecord, index int) {
		results[index] = record
	})
	return results, err
}

// ProcessBatchWithCallback runs the pipeline over every record and calls
// callback with each finished record and its index. callback runs on the
// worker goroutine and must be safe for concurrent use when concurrency
// is above one.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	records []model.BusinessRecord,
	callback func(record model.BusinessRecord, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_businesses", len(records),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, record := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			bp.logger.Info("processing business",
				"business", record.Name,
				"website", record.Website,
				"index", i+1,
				"total", len(records),
			)

			err := bp.pipelineFactory().Execute(WithPosition(gctx, i), &record)
			callback(record, i)
			if err != nil {
				bp.logger.Warn("business pipeline failed",
					"business", record.Name,
					"error", err,
				)
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	bp.logger.Info("batch processing complete",
		"total_businesses", len(records),
		"elapsed", time.Since(startTime),
	)
	return err
}
