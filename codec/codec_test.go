package codec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/aggo/bucket"
	"github.com/hupe1980/aggo/codec"
	"github.com/hupe1980/aggo/metrics"
	"github.com/hupe1980/aggo/pipeline"
)

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json"} {
		c, ok := codec.ByName(name)
		require.True(t, ok)
		assert.Equal(t, name, c.Name())
	}

	_, ok := codec.ByName("msgpack")
	assert.False(t, ok)
}

// roundTrip marshals in with c and decodes into a fresh value of the
// same type, so a field-tag regression on any builder shows up here.
func roundTrip[T any](t *testing.T, c codec.Codec, in T) T {
	t.Helper()

	data, err := c.Marshal(in)
	require.NoError(t, err)

	var out T
	require.NoError(t, c.Unmarshal(data, &out))

	return out
}

func TestBuilderRoundTrip(t *testing.T) {
	sigma := 3.0

	for _, c := range []codec.Codec{codec.JSON{}, codec.GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			t.Run("Sum", func(t *testing.T) {
				in := metrics.SumBuilder{Name: "total", Field: "price", Format: "0.00"}
				assert.Equal(t, in, roundTrip(t, c, in))
			})

			t.Run("ExtendedStats", func(t *testing.T) {
				in := metrics.ExtendedStatsBuilder{Name: "stats", Field: "price", Sigma: &sigma}
				assert.Equal(t, in, roundTrip(t, c, in))

				// Sigma is optional; nil must survive as nil, not zero.
				in = metrics.ExtendedStatsBuilder{Name: "stats", Field: "price"}
				assert.Equal(t, in, roundTrip(t, c, in))
			})

			t.Run("Histogram", func(t *testing.T) {
				in := bucket.HistogramBuilder{
					Name:        "prices",
					Field:       "price",
					Interval:    10,
					Offset:      2.5,
					MinDocCount: 1,
				}
				assert.Equal(t, in, roundTrip(t, c, in))
			})

			t.Run("Derivative", func(t *testing.T) {
				in := pipeline.DerivativeBuilder{
					Name:         "delta",
					BucketsPaths: []string{"prices>total"},
					GapPolicy:    pipeline.InsertZero,
					Unit:         time.Hour,
				}
				assert.Equal(t, in, roundTrip(t, c, in))
			})

			t.Run("SerialDiff", func(t *testing.T) {
				in := pipeline.SerialDiffBuilder{
					Name:         "diff",
					BucketsPaths: []string{"prices>total"},
					GapPolicy:    pipeline.Skip,
					Lag:          7,
				}
				assert.Equal(t, in, roundTrip(t, c, in))
			})
		})
	}
}

func TestCrossCodecCompatibility(t *testing.T) {
	in := pipeline.SerialDiffBuilder{
		Name:         "diff",
		BucketsPaths: []string{"prices>total"},
		GapPolicy:    pipeline.InsertZero,
		Lag:          2,
	}

	data := codec.MustMarshal(codec.JSON{}, in)

	var out pipeline.SerialDiffBuilder
	require.NoError(t, codec.GoJSON{}.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	// And the other direction.
	data = codec.MustMarshal(codec.GoJSON{}, in)

	var fromStd pipeline.SerialDiffBuilder
	require.NoError(t, codec.JSON{}.Unmarshal(data, &fromStd))
	assert.Equal(t, in, fromStd)
}
