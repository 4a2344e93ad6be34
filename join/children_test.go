package join

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/aggo/aggregate"
	"github.com/hupe1980/aggo/bigarray"
	"github.com/hupe1980/aggo/metrics"
	"github.com/hupe1980/aggo/model"
	"github.com/hupe1980/aggo/segment"
)

const joinField = "join"

func parentDoc(ord model.Ordinal) segment.MemDoc {
	return segment.MemDoc{Type: "product", Ords: map[string]model.Ordinal{joinField: ord}}
}

func childDoc(parent model.Ordinal, value float64) segment.MemDoc {
	return segment.MemDoc{
		Type:    "comment",
		Numeric: map[string][]float64{"value": {value}},
		Ords:    map[string]model.Ordinal{joinField: parent},
	}
}

func newIndex(segs ...*segment.MemSegment) *segment.MemIndex {
	return segment.NewMemIndex(segs...).
		WithParentJoin("comment", segment.ParentJoin{ParentType: "product", Field: joinField})
}

func buildChildren(t *testing.T, idx *segment.MemIndex) (*Children, *bigarray.BigArrays) {
	t.Helper()

	arrays := bigarray.New()
	sum, err := metrics.SumBuilder{Name: "total", Field: "value"}.Build(arrays)
	require.NoError(t, err)

	agg, err := ChildrenBuilder{Name: "comments", ChildType: "comment"}.Build(arrays, idx.Mappings(), sum)
	require.NoError(t, err)

	return agg, arrays
}

// collectParents routes every parent document of the segment into the
// bucket its join-key ordinal indexes in buckets.
func collectParents(t *testing.T, agg *Children, r *segment.MemSegment, buckets map[model.Ordinal]model.BucketOrd) {
	t.Helper()

	leaf, err := agg.Leaf(r)
	require.NoError(t, err)

	ords, ok := r.OrdinalValues(joinField)
	require.True(t, ok)

	for doc := uint32(0); doc < r.MaxDoc(); doc++ {
		if bucket, ok := buckets[ords.Ord(doc)]; ok {
			require.NoError(t, leaf.Collect(doc, bucket))
		}
	}
}

func childSum(t *testing.T, agg *Children, ord model.BucketOrd) (int64, float64) {
	t.Helper()

	internal, err := agg.Build(ord)
	require.NoError(t, err)

	children := internal.(*InternalChildren)
	sum, ok := children.Aggs.Get("total")
	require.True(t, ok)
	return children.Count, sum.(*metrics.InternalSum).Sum
}

func TestChildren(t *testing.T) {
	t.Run("ChildrenFollowTheirParentBucket", func(t *testing.T) {
		// Children live in a segment visited before their parents.
		childSeg := segment.NewMemSegment(1, []segment.MemDoc{
			childDoc(0, 10),
			childDoc(1, 20),
			childDoc(0, 5),
		})
		parentSeg := segment.NewMemSegment(2, []segment.MemDoc{
			parentDoc(0),
			parentDoc(1),
		})
		idx := newIndex(childSeg, parentSeg)

		agg, _ := buildChildren(t, idx)
		defer agg.Close()

		collectParents(t, agg, childSeg, nil)
		collectParents(t, agg, parentSeg, map[model.Ordinal]model.BucketOrd{0: 0, 1: 1})

		require.NoError(t, agg.PostCollect(context.Background(), idx))

		count0, sum0 := childSum(t, agg, 0)
		assert.Equal(t, int64(2), count0)
		assert.Equal(t, 15.0, sum0)

		count1, sum1 := childSum(t, agg, 1)
		assert.Equal(t, int64(1), count1)
		assert.Equal(t, 20.0, sum1)
	})

	t.Run("OrphanAndUnresolvedChildrenAreSkipped", func(t *testing.T) {
		seg := segment.NewMemSegment(1, []segment.MemDoc{
			parentDoc(0),
			childDoc(0, 10),
			childDoc(7, 99), // no such parent ordinal recorded
			{Type: "comment", Numeric: map[string][]float64{"value": {50}}}, // no join key
		})
		idx := newIndex(seg)

		agg, _ := buildChildren(t, idx)
		defer agg.Close()

		collectParents(t, agg, seg, map[model.Ordinal]model.BucketOrd{0: 0})

		require.NoError(t, agg.PostCollect(context.Background(), idx))

		count, sum := childSum(t, agg, 0)
		assert.Equal(t, int64(1), count)
		assert.Equal(t, 10.0, sum)
	})

	t.Run("DeletedChildrenAreSkipped", func(t *testing.T) {
		deleted := childDoc(0, 99)
		deleted.Deleted = true
		seg := segment.NewMemSegment(1, []segment.MemDoc{
			parentDoc(0),
			childDoc(0, 10),
			deleted,
		})
		idx := newIndex(seg)

		agg, _ := buildChildren(t, idx)
		defer agg.Close()

		collectParents(t, agg, seg, map[model.Ordinal]model.BucketOrd{0: 0})

		require.NoError(t, agg.PostCollect(context.Background(), idx))

		count, sum := childSum(t, agg, 0)
		assert.Equal(t, int64(1), count)
		assert.Equal(t, 10.0, sum)
	})

	t.Run("ParentInMultipleBuckets", func(t *testing.T) {
		seg := segment.NewMemSegment(1, []segment.MemDoc{
			parentDoc(0),
			childDoc(0, 10),
		})
		idx := newIndex(seg)

		agg, _ := buildChildren(t, idx)
		defer agg.Close()

		leaf, err := agg.Leaf(seg)
		require.NoError(t, err)
		// The same parent document lands in two buckets of an ancestor.
		require.NoError(t, leaf.Collect(0, 1))
		require.NoError(t, leaf.Collect(0, 3))

		require.NoError(t, agg.PostCollect(context.Background(), idx))

		count1, sum1 := childSum(t, agg, 1)
		assert.Equal(t, int64(1), count1)
		assert.Equal(t, 10.0, sum1)

		count3, sum3 := childSum(t, agg, 3)
		assert.Equal(t, int64(1), count3)
		assert.Equal(t, 10.0, sum3)

		count0, _ := childSum(t, agg, 0)
		assert.Zero(t, count0)
	})

	t.Run("MissingParentReference", func(t *testing.T) {
		idx := segment.NewMemIndex()
		arrays := bigarray.New()

		_, err := ChildrenBuilder{Name: "comments", ChildType: "comment"}.Build(arrays, idx.Mappings())

		var cfgErr *aggregate.ConfigError
		require.ErrorAs(t, err, &cfgErr)
	})
}
