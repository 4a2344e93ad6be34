package aggregate

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Reduce merges partition result sets by name. The first partition fixes
// the result order; every partition must carry the same aggregations.
// Reduction runs concurrently across names since same-named results are
// independent.
func Reduce(ctx context.Context, partitions ...Internals) (Internals, error) {
	if len(partitions) == 0 {
		return nil, nil
	}
	if len(partitions) == 1 {
		return partitions[0], nil
	}

	first := partitions[0]
	out := make(Internals, len(first))

	g, _ := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for i, agg := range first {
		g.Go(func() error {
			others := make([]Internal, 0, len(partitions)-1)
			for _, p := range partitions[1:] {
				peer, ok := p.Get(agg.Name())
				if !ok {
					return fmt.Errorf("partition result set is missing aggregation [%s]", agg.Name())
				}
				if peer.Type() != agg.Type() {
					return fmt.Errorf("aggregation [%s]: cannot reduce [%s] with [%s]",
						agg.Name(), agg.Type(), peer.Type())
				}
				others = append(others, peer)
			}

			reduced, err := agg.Reduce(others)
			if err != nil {
				return err
			}

			mu.Lock()
			out[i] = reduced
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReduceSub is a helper for multi-bucket results: it merges the
// sub-aggregations of corresponding buckets from several partitions.
func ReduceSub(groups []Internals) (Internals, error) {
	if len(groups) == 0 {
		return nil, nil
	}

	first := groups[0]
	out := make(Internals, len(first))
	for i, agg := range first {
		others := make([]Internal, 0, len(groups)-1)
		for _, g := range groups[1:] {
			if peer, ok := g.Get(agg.Name()); ok {
				others = append(others, peer)
			}
		}
		reduced, err := agg.Reduce(others)
		if err != nil {
			return nil, err
		}
		out[i] = reduced
	}
	return out, nil
}
