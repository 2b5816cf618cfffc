// Package importer runs batch imports: deduplicate against the store, enrich
// under a concurrency bound, insert what has coordinates, and tally the outcome.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chico-rentals/rental-cli/internal/model"
	"github.com/chico-rentals/rental-cli/internal/store"
)

// Defaults for Options.
const (
	DefaultConcurrency = 3
	DefaultPace        = 500 * time.Millisecond

	// maxReasonLen bounds the store-supplied part of an error message.
	maxReasonLen = 80
)

// Enricher is the enrichment step used by the controller.
type Enricher interface {
	Enrich(ctx context.Context, raw string) model.EnrichmentResult
}

// Options tune a single Import call. Zero values select the defaults, except
// Pace where zero means no pause between chunks.
type Options struct {
	Concurrency int
	ChunkSize   int
	Pace        time.Duration
	OnProgress  Reporter
}

// DefaultOptions returns the production pacing and concurrency.
func DefaultOptions() Options {
	return Options{Concurrency: DefaultConcurrency, Pace: DefaultPace}
}

// Controller runs imports. It may be shared; each Import call owns its state.
type Controller struct {
	store    store.Store
	enricher Enricher
	policy   FallbackPolicy
}

// Option configures a Controller.
type Option func(*Controller)

// WithFallbackPolicy overrides the placeholder values for unrecovered columns.
func WithFallbackPolicy(p FallbackPolicy) Option {
	return func(c *Controller) { c.policy = p }
}

// New creates a Controller.
func New(st store.Store, e Enricher, opts ...Option) *Controller {
	c := &Controller{store: st, enricher: e, policy: DefaultFallbackPolicy()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// outcome is the decision for one record.
type outcome int

const (
	undecided outcome = iota
	succeeded
	failed
	skipped
)

type decision struct {
	outcome outcome
	msg     string
}

// firstSeen is the first record of a run carrying a key; later records with
// the same key inherit its fate.
type firstSeen struct {
	raw     string
	outcome outcome
}

// Import processes batch chunk by chunk and returns the aggregate result.
// Success+Failed+Skipped always equals the number of records decided; on
// cancellation the partial result is returned and undecided records are not
// counted.
func (c *Controller) Import(ctx context.Context, batch Batch, opts Options) model.BatchImportResult {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = batch.defaultChunkSize()
	}

	log := zap.L().With(zap.String("component", "importer"), zap.String("kind", batch.kind()))
	result := model.NewBatchImportResult()

	recs := batch.records()
	chunks := chunk(recs, opts.ChunkSize)
	seen := make(map[string]*firstSeen, len(recs))
	start := time.Now()

	log.Info("import started",
		zap.Int("records", len(recs)),
		zap.Int("chunks", len(chunks)),
		zap.Int("concurrency", opts.Concurrency),
	)

	for i, recsInChunk := range chunks {
		if ctx.Err() != nil {
			break
		}

		result.Merge(c.runChunk(ctx, i+1, recsInChunk, seen, opts.Concurrency))

		if opts.OnProgress != nil {
			opts.OnProgress(Progress{Chunk: i + 1, TotalChunks: len(chunks), Counts: result.Counts()})
		}

		if i < len(chunks)-1 && opts.Pace > 0 {
			if err := sleep(ctx, opts.Pace); err != nil {
				break
			}
		}
	}

	fields := []zap.Field{
		zap.Int("success", result.SuccessCount),
		zap.Int("failed", result.FailedCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if ctx.Err() != nil {
		log.Warn("import cancelled", append(fields, zap.Int("undecided", len(recs)-result.Total()))...)
	} else {
		log.Info("import finished", fields...)
	}
	return result
}

// runChunk turns a fault while processing a chunk into a failure of every
// record in it.
func (c *Controller) runChunk(ctx context.Context, n int, recs []record, seen map[string]*firstSeen, concurrency int) (res model.BatchImportResult) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("importer: chunk panicked", zap.Int("chunk", n), zap.Any("panic", r))
			res = model.NewBatchImportResult()
			res.FailedCount = len(recs)
			res.AddError(fmt.Sprintf("Batch %d: %s", n, truncate(fmt.Sprint(r), maxReasonLen)))
		}
	}()
	return c.processChunk(ctx, recs, seen, concurrency)
}

func (c *Controller) processChunk(ctx context.Context, recs []record, seen map[string]*firstSeen, concurrency int) model.BatchImportResult {
	decisions := make([]decision, len(recs))

	// Dedup against the store and earlier records in this run. Repeats are
	// decided after the fold, once their first occurrence is.
	var pending, repeats []int
	for i, rec := range recs {
		if ctx.Err() != nil {
			break
		}
		if seen[rec.key] != nil {
			repeats = append(repeats, i)
			continue
		}
		exists, err := c.store.Exists(ctx, rec.key)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			decisions[i] = decision{failed, fmt.Sprintf("%s: Database check failed - %s", rec.raw, truncate(err.Error(), maxReasonLen))}
			continue
		}
		if exists {
			decisions[i] = decision{outcome: skipped}
			continue
		}
		seen[rec.key] = &firstSeen{raw: rec.raw}
		pending = append(pending, i)
	}

	enriched := c.enrichAll(ctx, recs, pending, concurrency, decisions)

	// Fold in input order; inserts run here so store writes stay sequential.
	for _, i := range pending {
		if ctx.Err() != nil {
			break
		}
		if decisions[i].outcome != undecided {
			continue
		}
		rec := recs[i]
		res := enriched[i]

		if _, _, ok := coordinates(res, rec.listing); !ok {
			decisions[i] = decision{failed, rec.raw + ": No coordinates found from GIS lookup"}
			continue
		}

		inserted, err := c.store.Insert(ctx, c.policy.Apply(rec.raw, res, rec.listing))
		switch {
		case err != nil && ctx.Err() != nil:
			// Cancelled mid-write; leave undecided.
		case err != nil:
			decisions[i] = decision{failed, fmt.Sprintf("%s: Insert failed - %s", rec.raw, truncate(err.Error(), maxReasonLen))}
		case !inserted:
			decisions[i] = decision{outcome: skipped}
		default:
			decisions[i] = decision{outcome: succeeded}
		}
	}

	for _, i := range pending {
		seen[recs[i].key].outcome = decisions[i].outcome
	}
	for _, i := range repeats {
		first := seen[recs[i].key]
		switch {
		case first.outcome == succeeded || first.outcome == skipped:
			decisions[i] = decision{outcome: skipped}
		case first.outcome == undecided && ctx.Err() != nil:
			// Cancelled before the first occurrence was decided.
		default:
			decisions[i] = decision{failed, fmt.Sprintf("%s: Duplicate of failed identifier %s", recs[i].raw, first.raw)}
		}
	}

	res := model.NewBatchImportResult()
	for _, d := range decisions {
		switch d.outcome {
		case succeeded:
			res.SuccessCount++
		case skipped:
			res.SkippedCount++
		case failed:
			res.Fail(d.msg)
		}
	}
	return res
}

// enrichAll enriches the pending records with at most concurrency in flight.
// A panicking enrichment fails only its own record.
func (c *Controller) enrichAll(ctx context.Context, recs []record, pending []int, concurrency int, decisions []decision) []model.EnrichmentResult {
	enriched := make([]model.EnrichmentResult, len(recs))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, i := range pending {
		i := i
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					zap.L().Error("importer: enrichment panicked", zap.String("identifier", recs[i].raw), zap.Any("panic", r))
					decisions[i] = decision{failed, fmt.Sprintf("%s: Unexpected error - %s", recs[i].raw, truncate(fmt.Sprint(r), maxReasonLen))}
				}
			}()
			if ctx.Err() != nil {
				return nil
			}
			enriched[i] = c.enricher.Enrich(ctx, recs[i].raw)
			return nil
		})
	}
	_ = g.Wait()
	return enriched
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "importer: pace")
	case <-t.C:
		return nil
	}
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
