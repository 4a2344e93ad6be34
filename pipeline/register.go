package pipeline

import "github.com/hupe1980/aggo/aggregate"

func init() {
	aggregate.RegisterType("simple_value", func() aggregate.Internal { return &InternalSimpleValue{} })
	aggregate.RegisterType("derivative", func() aggregate.Internal { return &InternalDerivative{} })
	aggregate.RegisterType("stats_bucket", func() aggregate.Internal { return &InternalStatsBucket{} })
}
