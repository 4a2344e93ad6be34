package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countdown struct {
	steps int
}

func (c *countdown) Rewrite(context.Context) (Rewriter, error) {
	if c.steps == 0 {
		return c, nil
	}
	return &countdown{steps: c.steps - 1}, nil
}

type diverging struct {
	round int
}

func (d *diverging) Rewrite(context.Context) (Rewriter, error) {
	return &diverging{round: d.round + 1}, nil
}

type failing struct{}

func (failing) Rewrite(context.Context) (Rewriter, error) {
	return nil, errors.New("boom")
}

func TestRewrite(t *testing.T) {
	t.Run("ReachesFixedPoint", func(t *testing.T) {
		out, err := Rewrite(context.Background(), &countdown{steps: 3})
		require.NoError(t, err)
		assert.Zero(t, out.(*countdown).steps)
	})

	t.Run("DivergingChainIsCapped", func(t *testing.T) {
		_, err := Rewrite(context.Background(), &diverging{})
		require.Error(t, err)
	})

	t.Run("ErrorPropagates", func(t *testing.T) {
		_, err := Rewrite(context.Background(), failing{})
		require.EqualError(t, err, "boom")
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := Rewrite(ctx, &countdown{steps: 3})
		require.ErrorIs(t, err, context.Canceled)
	})
}
