package bucket

import "github.com/hupe1980/aggo/aggregate"

func init() {
	aggregate.RegisterType("global", func() aggregate.Internal { return &InternalGlobal{} })
	aggregate.RegisterType("histogram", func() aggregate.Internal { return &InternalHistogram{} })
}
