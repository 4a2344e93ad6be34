package metrics

import "github.com/hupe1980/aggo/aggregate"

func init() {
	aggregate.RegisterType("sum", func() aggregate.Internal { return &InternalSum{} })
	aggregate.RegisterType("max", func() aggregate.Internal { return &InternalMax{} })
	aggregate.RegisterType("extended_stats", func() aggregate.Internal { return &InternalExtendedStats{} })
	aggregate.RegisterType("geo_centroid", func() aggregate.Internal { return &InternalGeoCentroid{} })
}
