package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/aggo/aggregate"
)

// Step is one pipeline aggregation over a built result set. Apply reads
// the immutable tree and returns one result: a new top-level value for
// scalar steps, or the rewritten host aggregation for per-bucket steps.
type Step interface {
	Name() string

	// Touches lists the aggregation names the step reads or writes. Steps
	// with disjoint sets are independent of one another.
	Touches() []string

	// Validate checks the step against the built tree before any step
	// runs.
	Validate(aggs aggregate.Internals) error

	Apply(aggs aggregate.Internals) (aggregate.Internal, error)
}

// Run validates all steps, then executes them in waves: steps that
// touch disjoint aggregations run concurrently, dependent steps wait
// for the wave before them. Results replace their same-named
// aggregation or append to the tree.
func Run(ctx context.Context, aggs aggregate.Internals, steps ...Step) (aggregate.Internals, error) {
	for _, s := range steps {
		if err := s.Validate(aggs); err != nil {
			return nil, err
		}
	}

	out := make(aggregate.Internals, len(aggs))
	copy(out, aggs)

	remaining := steps
	for len(remaining) > 0 {
		var wave, rest []Step
		touched := make(map[string]bool)
		for _, s := range remaining {
			conflict := false
			for _, name := range s.Touches() {
				if touched[name] {
					conflict = true
					break
				}
			}
			if conflict {
				rest = append(rest, s)
				continue
			}
			for _, name := range s.Touches() {
				touched[name] = true
			}
			wave = append(wave, s)
		}

		results := make([]aggregate.Internal, len(wave))
		g, _ := errgroup.WithContext(ctx)
		for i, s := range wave {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				r, err := s.Apply(out)
				if err != nil {
					return err
				}
				results[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for _, r := range results {
			if _, ok := out.Get(r.Name()); ok {
				_ = out.Replace(r)
			} else {
				out = append(out, r)
			}
		}
		remaining = rest
	}
	return out, nil
}
