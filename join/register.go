package join

import "github.com/hupe1980/aggo/aggregate"

func init() {
	aggregate.RegisterType("children", func() aggregate.Internal { return &InternalChildren{} })
}
