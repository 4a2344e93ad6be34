package pipeline

import "fmt"

// GapPolicy decides how a missing or non-finite bucket value is fed
// into a pipeline fold.
type GapPolicy int

const (
	// Skip treats the value as absent; the fold's state is not advanced
	// past the bucket.
	Skip GapPolicy = iota
	// InsertZero substitutes zero and continues.
	InsertZero
)

func (p GapPolicy) String() string {
	switch p {
	case Skip:
		return "skip"
	case InsertZero:
		return "insert_zero"
	default:
		return fmt.Sprintf("gap_policy(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p GapPolicy) MarshalText() ([]byte, error) {
	switch p {
	case Skip, InsertZero:
		return []byte(p.String()), nil
	default:
		return nil, fmt.Errorf("unknown gap policy %d", int(p))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *GapPolicy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "skip":
		*p = Skip
	case "insert_zero":
		*p = InsertZero
	default:
		return fmt.Errorf("unknown gap policy [%s]", text)
	}
	return nil
}
