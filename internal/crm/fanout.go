package crm

import (
	"context"
	"log/slog"

	"github.com/sourcegraph/conc/iter"
)

// FanOut runs fetch once per parent with at most limit calls in flight.
// Results line up with parents by index. A failed fetch is logged and
// yields a nil child slice for that parent only.
func FanOut[P, C any](ctx context.Context, logger *slog.Logger, parents []P, limit int, fetch func(ctx context.Context, parent P) ([]C, error)) [][]C {
	if limit < 1 {
		limit = DefaultFanOutLimit
	}
	if logger == nil {
		logger = slog.Default()
	}

	mapper := iter.Mapper[P, []C]{MaxGoroutines: limit}
	return mapper.Map(parents, func(parent *P) []C {
		children, err := fetch(ctx, *parent)
		if err != nil {
			logger.Warn("sub-fetch failed, continuing without children",
				slog.String("error", err.Error()))
			return nil
		}
		return children
	})
}
