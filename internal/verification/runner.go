package verification

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sourcing_marketplace/internal/models"
	"sourcing_marketplace/internal/registry"
	"sourcing_marketplace/internal/scoring"
)

// RunOutcome carries everything a completed run produced: the raw per-source
// results, the numeric scores that fed aggregation, and the aggregate itself.
type RunOutcome struct {
	SourceResults map[string]models.SourceResult
	SourceScores  map[string]decimal.Decimal
	Aggregate     scoring.Outcome
}

// Runner executes one verification run against the configured sources.
type Runner struct {
	sources []registry.Source
	logger  *zap.Logger
}

func NewRunner(sources []registry.Source, logger *zap.Logger) *Runner {
	return &Runner{sources: sources, logger: logger}
}

// Execute checks every source independently and aggregates the scores. Source
// failures never surface here: each source degrades to a synthetic fallback on
// its own, so a broken registry cannot abort the others or the run.
func (r *Runner) Execute(ctx context.Context, supplier *models.Supplier) *RunOutcome {
	results := make([]models.SourceResult, len(r.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range r.sources {
		i, src := i, src
		g.Go(func() error {
			results[i] = src.Fetch(gctx, supplier)
			return nil
		})
	}
	_ = g.Wait() // sources never return errors

	outcome := &RunOutcome{
		SourceResults: make(map[string]models.SourceResult, len(results)),
		SourceScores:  make(map[string]decimal.Decimal, len(results)),
	}
	for _, res := range results {
		outcome.SourceResults[res.Source] = res
		outcome.SourceScores[res.Source] = res.Score
		if res.Synthetic {
			r.logger.Debug("source resolved synthetically",
				zap.String("source", res.Source),
				zap.String("supplier_id", supplier.ID))
		}
	}

	outcome.Aggregate = scoring.Aggregate(outcome.SourceScores)
	return outcome
}
