package aggo

import (
	"context"
	"errors"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/aggo/aggregate"
	"github.com/hupe1980/aggo/bigarray"
	"github.com/hupe1980/aggo/model"
	"github.com/hupe1980/aggo/pipeline"
	"github.com/hupe1980/aggo/query"
	"github.com/hupe1980/aggo/segment"
)

// Runner drives one aggregation pass over a partition's index: query
// rewriting, per-segment leaf collection, index-wide post-collection,
// result materialization, and pipeline reduction.
type Runner struct {
	idx  segment.Index
	opts options
}

// NewRunner creates a Runner over the given index.
func NewRunner(idx segment.Index, optFns ...Option) *Runner {
	return &Runner{
		idx:  idx,
		opts: applyOptions(optFns),
	}
}

// Arrays returns the array allocator of this runner. Aggregator
// builders allocate their bucket state from it so that the pass's
// memory is accounted against the configured controller.
func (r *Runner) Arrays() *bigarray.BigArrays {
	return r.opts.arrays
}

// Run executes one pass: every live document matching q is collected at
// the root bucket ordinal, then aggregators post-collect, build their
// results, and the pipeline steps run over the built tree.
//
// The aggregators are closed before Run returns, whether or not the
// pass succeeded. Each aggregator's bucket state only ever sees a
// single collecting goroutine.
func (r *Runner) Run(ctx context.Context, q segment.Query, aggs []aggregate.Aggregator, steps ...pipeline.Step) (aggregate.Internals, error) {
	logger := r.opts.logger

	result, err := func() (aggregate.Internals, error) {
		q, err := rewriteQuery(ctx, q)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		docs, err := r.collect(ctx, q, aggs)
		logger.LogCollect(ctx, len(r.idx.Segments()), docs, time.Since(start), err)
		if err != nil {
			return nil, err
		}

		start = time.Now()
		err = r.postCollect(ctx, aggs)
		logger.LogPostCollect(ctx, len(aggs), time.Since(start), err)
		if err != nil {
			return nil, err
		}

		results := make(aggregate.Internals, 0, len(aggs))
		for _, a := range aggs {
			internal, err := a.Build(model.BucketOrd(0))
			if err != nil {
				logger.LogBuild(ctx, len(aggs), err)
				return nil, err
			}
			results = append(results, internal)
		}
		logger.LogBuild(ctx, len(aggs), nil)
		return results, nil
	}()

	closeErr := closeAll(aggs)
	if err != nil {
		return nil, errors.Join(err, closeErr)
	}
	if closeErr != nil {
		return nil, closeErr
	}

	if len(steps) > 0 {
		result, err = pipeline.Run(ctx, result, steps...)
		logger.LogPipeline(ctx, len(steps), err)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// collect runs phase one. Top-level aggregators are independent, so
// they can collect concurrently; each one visits segments in order.
func (r *Runner) collect(ctx context.Context, q segment.Query, aggs []aggregate.Aggregator) (uint64, error) {
	segments := r.idx.Segments()

	// Evaluate the query once per segment; the matching sets are shared
	// read-only by every collecting goroutine.
	matches := make([]matchSet, 0, len(segments))
	var docs uint64
	for _, seg := range segments {
		bm, err := q.Evaluate(seg)
		if err != nil {
			return 0, err
		}
		matches = append(matches, matchSet{seg: seg, bm: bm})
		docs += bm.GetCardinality()
	}

	g, gctx := errgroup.WithContext(ctx)
	if r.opts.concurrency > 1 {
		g.SetLimit(r.opts.concurrency)
	} else {
		g.SetLimit(1)
	}

	for _, a := range aggs {
		g.Go(func() error {
			for _, m := range matches {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := collectSegment(a, m); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return docs, g.Wait()
}

type matchSet struct {
	seg segment.Reader
	bm  *roaring.Bitmap
}

func collectSegment(a aggregate.Aggregator, m matchSet) error {
	leaf, err := a.Leaf(m.seg)
	if err != nil {
		return err
	}
	if aggregate.IsNoOp(leaf) {
		return nil
	}

	live := m.seg.LiveDocs()
	var it segment.DocIterator = m.bm.Iterator()
	for it.HasNext() {
		doc := it.Next()
		if live != nil && !live.Contains(doc) {
			continue
		}
		if err := leaf.Collect(doc, model.BucketOrd(0)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) postCollect(ctx context.Context, aggs []aggregate.Aggregator) error {
	for _, a := range aggs {
		if err := a.PostCollect(ctx, r.idx); err != nil {
			return err
		}
	}
	return nil
}

func closeAll(aggs []aggregate.Aggregator) error {
	var errs []error
	for _, a := range aggs {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// rewriteQuery runs the fixed-point rewrite protocol when the query
// supports it.
func rewriteQuery(ctx context.Context, q segment.Query) (segment.Query, error) {
	rw, ok := q.(query.Rewriter)
	if !ok {
		return q, nil
	}
	rewritten, err := query.Rewrite(ctx, rw)
	if err != nil {
		return nil, err
	}
	out, ok := rewritten.(segment.Query)
	if !ok {
		return nil, aggregate.NewConfigError("", "rewritten query %T is not executable", rewritten)
	}
	return out, nil
}

// Reduce merges partition result trees and applies the final pipeline
// steps on the coordinating node. Per-type reduction is associative and
// commutative, so partition order does not matter.
func Reduce(ctx context.Context, partitions []aggregate.Internals, steps ...pipeline.Step) (aggregate.Internals, error) {
	merged, err := aggregate.Reduce(ctx, partitions...)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return merged, nil
	}
	return pipeline.Run(ctx, merged, steps...)
}
