package diff

import (
	"context"

	"golang.org/x/sync/errgroup"

	domainDiff "github.com/turtacn/ContextDiff/internal/domain/diff"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
)

type chunkStats struct {
	chunks    int
	failed    int
	reconcile domainDiff.ReconcileStats
}

// analyzeChunked splits both texts, analyses the chunk pairs concurrently and
// merges the verdicts. A failed chunk is logged and left out of the merge;
// only caller cancellation fails the whole comparison.
func (s *serviceImpl) analyzeChunked(ctx context.Context, sensitivity domainDiff.Sensitivity, model, original, generated string) (*domainDiff.DiffResult, chunkStats, error) {
	pairs := domainDiff.PairChunks(
		domainDiff.SplitIntoChunks(original, s.cfg.ChunkSize),
		domainDiff.SplitIntoChunks(generated, s.cfg.ChunkSize),
	)
	s.logger.Info("processing chunked comparison",
		logging.Int("chunks", len(pairs)),
		logging.Int("concurrency", s.cfg.MaxConcurrentChunks))

	outcomes := make([]domainDiff.ChunkOutcome, len(pairs))
	perChunk := make([]domainDiff.ReconcileStats, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrentChunks)
	for i, pair := range pairs {
		i, pair := i, pair
		g.Go(func() error {
			result, stats, err := s.analyzeChunk(gctx, sensitivity, model, pair)
			outcomes[i] = domainDiff.ChunkOutcome{Pair: pair, Result: result, Err: err}
			perChunk[i] = stats
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, chunkStats{}, err
	}

	stats := chunkStats{chunks: len(pairs)}
	for i, oc := range outcomes {
		stats.reconcile.Corrected += perChunk[i].Corrected
		stats.reconcile.Removed += perChunk[i].Removed
		stats.reconcile.LowConfidence += perChunk[i].LowConfidence
		if oc.Failed() {
			stats.failed++
			s.logger.Error("chunk analysis failed",
				logging.Int("chunk", oc.Pair.Index),
				logging.Err(oc.Err))
		}
	}
	if stats.failed > 0 {
		s.logger.Warn("chunked comparison is partial",
			logging.Int("failed", stats.failed),
			logging.Int("chunks", stats.chunks))
	}
	return domainDiff.MergeChunkResults(outcomes), stats, nil
}

// analyzeChunk produces the verdict of one chunk pair in chunk-local
// offsets. Chunk verdicts are cached under the chunk texts' own fingerprint,
// so a long document edited in one place only re-analyses that chunk.
func (s *serviceImpl) analyzeChunk(ctx context.Context, sensitivity domainDiff.Sensitivity, model string, pair domainDiff.ChunkPair) (*domainDiff.DiffResult, domainDiff.ReconcileStats, error) {
	if r, src := s.cache.Get(ctx, pair.Original, pair.Generated, sensitivity); r != nil {
		s.countChunk("cached")
		s.logger.Debug("chunk cache hit", logging.Int("chunk", pair.Index), logging.String("source", string(src)))
		return r, domainDiff.ReconcileStats{}, nil
	}

	// Only byte-identical pairs skip the oracle; a near-identical chunk may
	// still carry a changed figure.
	if pair.Original == pair.Generated {
		s.countChunk("skipped")
		result := domainDiff.IdenticalResult()
		s.cache.Set(ctx, pair.Original, pair.Generated, sensitivity, result)
		return result, domainDiff.ReconcileStats{}, nil
	}

	result, stats, err := s.analyzeText(ctx, sensitivity, model, pair.Original, pair.Generated)
	if err != nil {
		s.countChunk("failed")
		return nil, stats, err
	}
	result.EnforceConsistency()
	s.cache.Set(ctx, pair.Original, pair.Generated, sensitivity, result)
	s.countChunk("success")
	return result, stats, nil
}

func (s *serviceImpl) countChunk(status string) {
	if s.metrics != nil {
		s.metrics.ChunksProcessed.WithLabelValues(status).Inc()
	}
}

//Personal.AI order the ending
