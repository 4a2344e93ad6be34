// Package query provides the rewrite protocol queries go through
// before execution: a builder may simplify itself step by step until it
// reaches a fixed point.
package query

import (
	"context"
	"fmt"
)

// maxRewriteRounds caps non-converging rewrite chains.
const maxRewriteRounds = 16

// Rewriter is a query builder that can return a simpler form of
// itself. A builder that cannot be simplified further returns itself.
type Rewriter interface {
	Rewrite(ctx context.Context) (Rewriter, error)
}

// Rewrite applies Rewriter.Rewrite until the builder stops changing.
func Rewrite(ctx context.Context, r Rewriter) (Rewriter, error) {
	for i := 0; i < maxRewriteRounds; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := r.Rewrite(ctx)
		if err != nil {
			return nil, err
		}
		if next == r {
			return r, nil
		}
		r = next
	}
	return nil, fmt.Errorf("query did not converge after %d rewrite rounds", maxRewriteRounds)
}
